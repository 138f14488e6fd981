package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/opencore/authd/internal/models"
	"github.com/redis/go-redis/v9"
)

const sessionKeyPrefix = "session:"

// revokeRetries bounds optimistic-transaction retries when concurrent
// writers touch the same session key
const revokeRetries = 5

var errSessionContention = errors.New("session revoke aborted after retries")

// RedisSessionRepository is the durable session registry for multi-instance
// deployments. Sessions are stored as JSON with a TTL matching their
// expiry, so Redis evicts what lazy expiry would otherwise leave behind.
type RedisSessionRepository struct {
	client *redis.Client
}

// NewRedisSessionRepository creates a session registry backed by Redis
func NewRedisSessionRepository(client *redis.Client) *RedisSessionRepository {
	return &RedisSessionRepository{client: client}
}

func (r *RedisSessionRepository) key(jti string) string {
	return sessionKeyPrefix + jti
}

// Put inserts or overwrites the session for a jti
func (r *RedisSessionRepository) Put(ctx context.Context, jti string, session models.Session) error {
	encoded, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		// Already expired; storing it would only create a key that every
		// reader treats as unusable
		return nil
	}

	if err := r.client.Set(ctx, r.key(jti), encoded, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	return nil
}

// Get returns the session for a jti, or nil when absent or already
// evicted by Redis TTL
func (r *RedisSessionRepository) Get(ctx context.Context, jti string) (*models.Session, error) {
	data, err := r.client.Get(ctx, r.key(jti)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	var session models.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	return &session, nil
}

// Revoke marks the session for a jti as revoked; no-op when absent.
// Uses WATCH so a concurrent Put or Revoke on the same key never loses
// the revocation flag.
func (r *RedisSessionRepository) Revoke(ctx context.Context, jti string) error {
	key := r.key(jti)

	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return nil
		}
		if err != nil {
			return err
		}

		var session models.Session
		if err := json.Unmarshal(data, &session); err != nil {
			return fmt.Errorf("failed to decode session: %w", err)
		}
		if session.Revoked {
			return nil
		}
		session.Revoked = true

		encoded, err := json.Marshal(session)
		if err != nil {
			return fmt.Errorf("failed to encode session: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, encoded, redis.KeepTTL)
			return nil
		})
		return err
	}

	for i := 0; i < revokeRetries; i++ {
		err := r.client.Watch(ctx, txf, key)
		if err == nil {
			return nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return errSessionContention
}
