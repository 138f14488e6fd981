package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token type discriminants carried in the "typ" claim
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// DefaultRole is the role claim minted into access tokens until a real
// role directory exists.
const DefaultRole = "User"

// TokenClaims is the claim set carried by every token this service signs.
// Type discriminates access from refresh tokens; Role is set on access
// tokens only, DeviceID on refresh tokens only.
type TokenClaims struct {
	Type     string `json:"typ"`
	Role     string `json:"role,omitempty"`
	DeviceID string `json:"deviceId,omitempty"`
	jwt.RegisteredClaims
}

// IssuedOtp is what the ledger hands back on issue. The plaintext code is
// returned exactly once; only its hash is stored.
type IssuedOtp struct {
	RequestID string
	Code      string
}

// OtpRecord is the outstanding one-time passcode for an email address.
// At most one record exists per email; issuing again overwrites it.
type OtpRecord struct {
	Email     string
	CodeHash  string // bcrypt hash of the 6-digit code
	RequestID string
	ExpiresAt time.Time
}

// Session tracks one outstanding refresh token, keyed by its jti.
// Revoked is the only field ever mutated in place; rotation always creates
// a new Session instead of editing the old one.
type Session struct {
	UserID    string    `json:"user_id"`
	DeviceID  string    `json:"device_id,omitempty"`
	ExpiresAt time.Time `json:"expires_at"`
	Revoked   bool      `json:"revoked"`
}

// Usable reports whether the session can still back a refresh: present,
// not revoked, not yet expired.
func (s *Session) Usable(now time.Time) bool {
	return s != nil && !s.Revoked && now.Before(s.ExpiresAt)
}

// FailureBucket counts consecutive verification failures for one
// identity+origin key within a fixed window.
type FailureBucket struct {
	Failures int
	ResetAt  time.Time
}
