// Package middleware provides HTTP middleware for the gateway.
package middleware

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/bluecarbon-registry/gateway/internal/httputil"
)

// TokenVerifier checks a presented bearer credential.
type TokenVerifier interface {
	Verify(token string) error
}

// StaticTokenVerifier compares credentials against one configured secret.
type StaticTokenVerifier struct {
	role   string
	secret string
}

// NewStaticTokenVerifier creates a verifier for a role backed by a secret.
func NewStaticTokenVerifier(role, secret string) *StaticTokenVerifier {
	return &StaticTokenVerifier{role: role, secret: secret}
}

// Verify compares the token with the configured secret in constant time.
func (v *StaticTokenVerifier) Verify(token string) error {
	if v.secret == "" {
		return fmt.Errorf("no %s secret configured", v.role)
	}
	if subtle.ConstantTimeCompare([]byte(token), []byte(v.secret)) != 1 {
		return fmt.Errorf("invalid %s token", v.role)
	}
	return nil
}

// RequireToken gates a route on a bearer token accepted by the verifier.
func RequireToken(verifier TokenVerifier) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := BearerToken(r)
			if err != nil {
				httputil.Unauthorized(w, err.Error())
				return
			}
			if err := verifier.Verify(token); err != nil {
				httputil.Unauthorized(w, err.Error())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// BearerToken extracts the credential from the Authorization header.
func BearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", fmt.Errorf("missing authorization header")
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", fmt.Errorf("invalid authorization header format")
	}
	return parts[1], nil
}
