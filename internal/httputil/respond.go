// Package httputil provides JSON request/response helpers for the gateway.
package httputil

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// ErrorResponse is the body of every error response.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// WriteJSON writes a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// WriteError writes an error response with a detail message.
func WriteError(w http.ResponseWriter, status int, detail string) {
	WriteJSON(w, status, ErrorResponse{Detail: detail})
}

// BadRequest writes a 400 response.
func BadRequest(w http.ResponseWriter, detail string) {
	WriteError(w, http.StatusBadRequest, detail)
}

// Unauthorized writes a 401 response.
func Unauthorized(w http.ResponseWriter, detail string) {
	WriteError(w, http.StatusUnauthorized, detail)
}

// NotFound writes a 404 response.
func NotFound(w http.ResponseWriter, detail string) {
	WriteError(w, http.StatusNotFound, detail)
}

// Conflict writes a 409 response.
func Conflict(w http.ResponseWriter, detail string) {
	WriteError(w, http.StatusConflict, detail)
}

// InternalError writes a 500 response.
func InternalError(w http.ResponseWriter, detail string) {
	WriteError(w, http.StatusInternalServerError, detail)
}

// ServiceUnavailable writes a 503 response.
func ServiceUnavailable(w http.ResponseWriter, detail string) {
	WriteError(w, http.StatusServiceUnavailable, detail)
}

// DecodeJSON decodes the request body into v. On failure it writes a 400
// response and returns false.
func DecodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if r.Body == nil {
		BadRequest(w, "empty request body")
		return false
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		BadRequest(w, fmt.Sprintf("invalid request body: %v", err))
		return false
	}
	return true
}
