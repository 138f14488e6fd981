package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/opencore/authd/internal/models"
)

// TokenManager is the sole owner of the signing key and token grammar.
// Symmetric HS256 signing; the key comes from process configuration.
type TokenManager struct {
	issuer             string
	secret             []byte
	accessTokenExpiry  time.Duration
	refreshTokenExpiry time.Duration
}

// IssuedRefreshToken is a freshly minted refresh token plus the metadata
// the caller needs to key a session
type IssuedRefreshToken struct {
	Token     string
	JTI       string
	ExpiresAt time.Time
}

// NewTokenManager creates a new TokenManager
func NewTokenManager(issuer, secret string, accessExpiry, refreshExpiry time.Duration) *TokenManager {
	return &TokenManager{
		issuer:             issuer,
		secret:             []byte(secret),
		accessTokenExpiry:  accessExpiry,
		refreshTokenExpiry: refreshExpiry,
	}
}

// AccessTokenExpiry returns the configured access token lifetime
func (tm *TokenManager) AccessTokenExpiry() time.Duration {
	return tm.accessTokenExpiry
}

// GenerateAccessToken creates a short-lived access token carrying a role
// claim. Access tokens deliberately have no jti and cannot be revoked;
// their only defense against misuse is the short TTL.
func (tm *TokenManager) GenerateAccessToken(userID, role string) (string, error) {
	now := time.Now()

	claims := &models.TokenClaims{
		Type: models.TokenTypeAccess,
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tm.issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tm.accessTokenExpiry)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(tm.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}

	return tokenString, nil
}

// GenerateRefreshToken creates a long-lived refresh token with a fresh
// globally-unique jti, bound to a device. The jti is returned so the
// caller can key a session with it.
func (tm *TokenManager) GenerateRefreshToken(userID, deviceID string) (*IssuedRefreshToken, error) {
	now := time.Now()
	expiresAt := now.Add(tm.refreshTokenExpiry)
	jti := uuid.New().String()

	claims := &models.TokenClaims{
		Type:     models.TokenTypeRefresh,
		DeviceID: deviceID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tm.issuer,
			Subject:   userID,
			ID:        jti,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(tm.secret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign refresh token: %w", err)
	}

	return &IssuedRefreshToken{
		Token:     tokenString,
		JTI:       jti,
		ExpiresAt: expiresAt,
	}, nil
}

// ValidateToken verifies a token's signature and issuer and returns its
// claims. No claim is trusted before the signature checks out: the parser
// is pinned to HS256 and the configured issuer, and any structural,
// signature, issuer, or expiry problem fails the whole parse.
func (tm *TokenManager) ValidateToken(tokenString string) (*models.TokenClaims, error) {
	claims := &models.TokenClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return tm.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tm.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	if !token.Valid {
		return nil, models.ErrUnauthorized
	}

	if claims.Type == "" {
		return nil, fmt.Errorf("invalid token: missing type")
	}

	return claims, nil
}
