package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newProtectedHandler(t *testing.T, tm *TokenManager) http.Handler {
	t.Helper()
	return AuthMiddleware(tm)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := GetUserFromContext(r)
		require.NotNil(t, claims)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(claims.Subject))
	}))
}

func TestAuthMiddleware_ValidAccessToken(t *testing.T) {
	tm := newTestTokenManager()
	handler := newProtectedHandler(t, tm)

	tokenString, err := tm.GenerateAccessToken("user-123", "User")
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+tokenString)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "user-123", w.Body.String())
}

func TestAuthMiddleware_MissingHeader(t *testing.T) {
	tm := newTestTokenManager()
	handler := newProtectedHandler(t, tm)

	req := httptest.NewRequest("GET", "/protected", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthMiddleware_MalformedHeader(t *testing.T) {
	tm := newTestTokenManager()
	handler := newProtectedHandler(t, tm)

	for _, header := range []string{"Bearer", "Basic abc123", "Bearerxyz"} {
		req := httptest.NewRequest("GET", "/protected", nil)
		req.Header.Set("Authorization", header)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code, "header %q should be rejected", header)
	}
}

func TestAuthMiddleware_RejectsRefreshToken(t *testing.T) {
	tm := newTestTokenManager()
	handler := newProtectedHandler(t, tm)

	issued, err := tm.GenerateRefreshToken("user-123", "device-A")
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+issued.Token)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthMiddleware_ExpiredToken(t *testing.T) {
	expired := NewTokenManager("opencore-auth", testSecret, -1*time.Minute, 7*24*time.Hour)
	tm := newTestTokenManager()
	handler := newProtectedHandler(t, tm)

	tokenString, err := expired.GenerateAccessToken("user-123", "User")
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+tokenString)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGetUserFromContext_Unauthenticated(t *testing.T) {
	req := httptest.NewRequest("GET", "/protected", nil)
	assert.Nil(t, GetUserFromContext(req))
}
