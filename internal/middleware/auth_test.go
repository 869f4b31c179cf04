package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticTokenVerifier(t *testing.T) {
	v := NewStaticTokenVerifier("admin", "admin-secret")

	assert.NoError(t, v.Verify("admin-secret"))
	assert.Error(t, v.Verify("wrong"))
	assert.Error(t, v.Verify(""))

	empty := NewStaticTokenVerifier("admin", "")
	assert.Error(t, empty.Verify("anything"))
}

func TestBearerToken(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	_, err := BearerToken(r)
	require.Error(t, err)

	r.Header.Set("Authorization", "Basic abc")
	_, err = BearerToken(r)
	require.Error(t, err)

	r.Header.Set("Authorization", "Bearer my-token")
	token, err := BearerToken(r)
	require.NoError(t, err)
	assert.Equal(t, "my-token", token)
}

func TestRequireToken(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	handler := RequireToken(NewStaticTokenVerifier("minter", "minter-secret"))(next)

	r := httptest.NewRequest(http.MethodPost, "/credits/issue", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	r = httptest.NewRequest(http.MethodPost, "/credits/issue", nil)
	r.Header.Set("Authorization", "Bearer nope")
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	r = httptest.NewRequest(http.MethodPost, "/credits/issue", nil)
	r.Header.Set("Authorization", "Bearer minter-secret")
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	assert.Equal(t, http.StatusNoContent, w.Code)
}
