package repositories

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/opencore/authd/internal/models"
	pkgauth "github.com/opencore/authd/pkg/auth"
)

// InMemoryOtpRepository keeps one outstanding OTP per normalized email.
// Issuing again for the same email overwrites the prior record; expiry is
// evaluated lazily on verify.
type InMemoryOtpRepository struct {
	ttl     time.Duration
	mu      sync.Mutex
	records map[string]models.OtpRecord
}

// NewInMemoryOtpRepository creates an OTP ledger with the given code lifetime
func NewInMemoryOtpRepository(ttl time.Duration) *InMemoryOtpRepository {
	return &InMemoryOtpRepository{
		ttl:     ttl,
		records: make(map[string]models.OtpRecord),
	}
}

// Issue generates a fresh requestId and 6-digit code for the email and
// stores the record, replacing any outstanding one (last-issued-wins)
func (r *InMemoryOtpRepository) Issue(ctx context.Context, email string) (*models.IssuedOtp, error) {
	email = normalizeEmail(email)

	code, err := pkgauth.GenerateOtpCode()
	if err != nil {
		return nil, err
	}
	codeHash, err := pkgauth.HashOtpCode(code)
	if err != nil {
		return nil, err
	}
	requestID := uuid.New().String()

	r.mu.Lock()
	r.records[email] = models.OtpRecord{
		Email:     email,
		CodeHash:  codeHash,
		RequestID: requestID,
		ExpiresAt: time.Now().Add(r.ttl),
	}
	r.mu.Unlock()

	return &models.IssuedOtp{RequestID: requestID, Code: code}, nil
}

// Verify checks email, requestId, and code against the stored record.
// The record is consumed only on a full match; a wrong code leaves it in
// place for further attempts. Expired records are discarded on sight.
func (r *InMemoryOtpRepository) Verify(ctx context.Context, email, code, requestID string) (bool, error) {
	email = normalizeEmail(email)

	r.mu.Lock()
	record, ok := r.records[email]
	if !ok {
		r.mu.Unlock()
		return false, nil
	}
	if time.Now().After(record.ExpiresAt) {
		delete(r.records, email)
		r.mu.Unlock()
		return false, nil
	}
	if record.RequestID != requestID {
		r.mu.Unlock()
		return false, nil
	}
	r.mu.Unlock()

	// bcrypt comparison happens outside the lock so slow hashing on one
	// email never stalls the whole ledger
	if err := pkgauth.CompareOtpCode(record.CodeHash, code); err != nil {
		return false, nil
	}

	// Consume only if the record we matched is still the stored one; a
	// concurrent verify or re-issue for the same email wins otherwise.
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.records[email]
	if !ok || current.RequestID != record.RequestID {
		return false, nil
	}
	delete(r.records, email)
	return true, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
