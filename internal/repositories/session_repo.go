package repositories

import (
	"context"
	"sync"

	"github.com/opencore/authd/internal/models"
)

// InMemorySessionRepository tracks outstanding refresh-token sessions keyed
// by jti. The single-process default; RedisSessionRepository is the
// swappable durable option for multi-instance deployments.
type InMemorySessionRepository struct {
	mu       sync.RWMutex
	sessions map[string]models.Session
}

// NewInMemorySessionRepository creates an empty session registry
func NewInMemorySessionRepository() *InMemorySessionRepository {
	return &InMemorySessionRepository{
		sessions: make(map[string]models.Session),
	}
}

// Put inserts or overwrites the session for a jti
func (r *InMemorySessionRepository) Put(ctx context.Context, jti string, session models.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[jti] = session
	return nil
}

// Get returns the session for a jti, or nil when absent. Callers are
// responsible for checking revocation and expiry; the registry exposes raw
// state, not a validity verdict.
func (r *InMemorySessionRepository) Get(ctx context.Context, jti string) (*models.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	session, ok := r.sessions[jti]
	if !ok {
		return nil, nil
	}
	return &session, nil
}

// Revoke marks the session for a jti as revoked; no-op when absent
func (r *InMemorySessionRepository) Revoke(ctx context.Context, jti string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[jti]
	if !ok {
		return nil
	}
	session.Revoked = true
	r.sessions[jti] = session
	return nil
}
