package auth

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"golang.org/x/crypto/bcrypt"
)

const (
	// OtpCodeLength is the number of digits in a one-time passcode
	OtpCodeLength = 6

	// BcryptCost for stored OTP codes. Lower than a password cost would be:
	// codes live for five minutes and are already throttled upstream.
	BcryptCost = 10
)

var otpCodeSpace = big.NewInt(1_000_000)

// GenerateOtpCode returns a 6-digit zero-padded numeric code drawn
// uniformly from 000000-999999 using crypto/rand
func GenerateOtpCode() (string, error) {
	n, err := rand.Int(rand.Reader, otpCodeSpace)
	if err != nil {
		return "", fmt.Errorf("failed to generate otp code: %w", err)
	}
	return fmt.Sprintf("%0*d", OtpCodeLength, n.Int64()), nil
}

// HashOtpCode returns the bcrypt hash of a code for storage
func HashOtpCode(code string) (string, error) {
	if code == "" {
		return "", fmt.Errorf("code cannot be empty")
	}
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(code), BcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash otp code: %w", err)
	}
	return string(hashedBytes), nil
}

// CompareOtpCode reports whether code matches the stored hash
func CompareOtpCode(hashedCode, code string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedCode), []byte(code))
}
