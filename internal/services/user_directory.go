package services

import (
	"context"

	"github.com/google/uuid"
)

// UserDirectory resolves a normalized email to a durable user identifier.
// Implementations must be deterministic and idempotent: the same email
// always yields the same identifier.
type UserDirectory interface {
	ResolveOrCreateUserID(ctx context.Context, email string) (string, error)
}

// userIDNamespace seeds the name-based UUID derivation. Changing it would
// re-identify every user, so it is a fixed constant.
var userIDNamespace = uuid.MustParse("7b9a1c9e-4f1d-4a7e-9b3c-2d8f0a6e5c41")

// DeterministicUserDirectory derives the user identifier from the email
// itself (name-based UUID over a fixed namespace). Two callers presenting
// the same email collide into the same identity; email ownership is
// guaranteed solely by the OTP delivery channel. This stands in until a
// real user directory service backs the lookup.
type DeterministicUserDirectory struct{}

// NewDeterministicUserDirectory creates the default directory resolver
func NewDeterministicUserDirectory() *DeterministicUserDirectory {
	return &DeterministicUserDirectory{}
}

// ResolveOrCreateUserID maps a normalized email to its stable identifier
func (d *DeterministicUserDirectory) ResolveOrCreateUserID(ctx context.Context, email string) (string, error) {
	return uuid.NewSHA1(userIDNamespace, []byte(email)).String(), nil
}
