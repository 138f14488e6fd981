package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/opencore/authd/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-32-characters-long!!"

func newTestTokenManager() *TokenManager {
	return NewTokenManager("opencore-auth", testSecret, 15*time.Minute, 7*24*time.Hour)
}

func TestGenerateAccessToken_RoundTrip(t *testing.T) {
	tm := newTestTokenManager()

	tokenString, err := tm.GenerateAccessToken("user-123", "User")
	require.NoError(t, err)
	require.NotEmpty(t, tokenString)

	claims, err := tm.ValidateToken(tokenString)
	require.NoError(t, err)
	assert.Equal(t, models.TokenTypeAccess, claims.Type)
	assert.Equal(t, "user-123", claims.Subject)
	assert.Equal(t, "User", claims.Role)
	assert.Equal(t, "opencore-auth", claims.Issuer)
	assert.Empty(t, claims.ID, "access tokens must not carry a jti")
}

func TestGenerateRefreshToken_RoundTrip(t *testing.T) {
	tm := newTestTokenManager()

	issued, err := tm.GenerateRefreshToken("user-123", "device-A")
	require.NoError(t, err)
	require.NotEmpty(t, issued.Token)
	require.NotEmpty(t, issued.JTI)
	assert.WithinDuration(t, time.Now().Add(7*24*time.Hour), issued.ExpiresAt, time.Minute)

	claims, err := tm.ValidateToken(issued.Token)
	require.NoError(t, err)
	assert.Equal(t, models.TokenTypeRefresh, claims.Type)
	assert.Equal(t, "user-123", claims.Subject)
	assert.Equal(t, "device-A", claims.DeviceID)
	assert.Equal(t, issued.JTI, claims.ID)
}

func TestGenerateRefreshToken_UniqueJTI(t *testing.T) {
	tm := newTestTokenManager()

	first, err := tm.GenerateRefreshToken("user-123", "device-A")
	require.NoError(t, err)
	second, err := tm.GenerateRefreshToken("user-123", "device-A")
	require.NoError(t, err)

	assert.NotEqual(t, first.JTI, second.JTI)
	assert.NotEqual(t, first.Token, second.Token)
}

func TestValidateToken_TamperedToken(t *testing.T) {
	tm := newTestTokenManager()

	tokenString, err := tm.GenerateAccessToken("user-123", "User")
	require.NoError(t, err)

	// Flip one byte in the signature segment
	tampered := []byte(tokenString)
	last := len(tampered) - 1
	if tampered[last] == 'A' {
		tampered[last] = 'B'
	} else {
		tampered[last] = 'A'
	}

	_, err = tm.ValidateToken(string(tampered))
	assert.Error(t, err)
}

func TestValidateToken_WrongSecret(t *testing.T) {
	tm := newTestTokenManager()
	other := NewTokenManager("opencore-auth", "another-secret-32-characters-ok!", 15*time.Minute, 7*24*time.Hour)

	tokenString, err := tm.GenerateAccessToken("user-123", "User")
	require.NoError(t, err)

	_, err = other.ValidateToken(tokenString)
	assert.Error(t, err)
}

func TestValidateToken_WrongIssuer(t *testing.T) {
	tm := newTestTokenManager()
	other := NewTokenManager("some-other-issuer", testSecret, 15*time.Minute, 7*24*time.Hour)

	tokenString, err := tm.GenerateAccessToken("user-123", "User")
	require.NoError(t, err)

	_, err = other.ValidateToken(tokenString)
	assert.Error(t, err)
}

func TestValidateToken_ExpiredToken(t *testing.T) {
	tm := NewTokenManager("opencore-auth", testSecret, -1*time.Minute, 7*24*time.Hour)

	tokenString, err := tm.GenerateAccessToken("user-123", "User")
	require.NoError(t, err)

	_, err = newTestTokenManager().ValidateToken(tokenString)
	assert.Error(t, err)
}

func TestValidateToken_RejectsUnexpectedAlgorithm(t *testing.T) {
	tm := newTestTokenManager()

	claims := &models.TokenClaims{
		Type: models.TokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "opencore-auth",
			Subject:   "user-123",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS384, claims)
	tokenString, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = tm.ValidateToken(tokenString)
	assert.Error(t, err)
}

func TestValidateToken_MissingType(t *testing.T) {
	tm := newTestTokenManager()

	claims := &models.TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "opencore-auth",
			Subject:   "user-123",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = tm.ValidateToken(tokenString)
	assert.Error(t, err)
}

func TestValidateToken_Garbage(t *testing.T) {
	tm := newTestTokenManager()

	_, err := tm.ValidateToken("not.a.token")
	assert.Error(t, err)

	_, err = tm.ValidateToken("")
	assert.Error(t, err)
}
