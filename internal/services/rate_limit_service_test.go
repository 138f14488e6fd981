package services_test

import (
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/opencore/authd/internal/services"
	"github.com/stretchr/testify/assert"
)

func newTestGuard(config services.RateLimitConfig) *services.RateLimitService {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	return services.NewRateLimitService(config, logger)
}

func TestRateLimitService_NotBlockedInitially(t *testing.T) {
	guard := newTestGuard(services.DefaultRateLimitConfig())

	assert.False(t, guard.IsBlocked("email=user@example.com|ip=1.2.3.4"))
}

func TestRateLimitService_BlocksAfterMaxFailures(t *testing.T) {
	guard := newTestGuard(services.RateLimitConfig{MaxFailures: 5, Window: 15 * time.Minute})
	key := "email=user@example.com|ip=1.2.3.4"

	for i := 0; i < 4; i++ {
		guard.OnFailure(key)
		assert.False(t, guard.IsBlocked(key), "should not block before failure %d", i+1)
	}

	guard.OnFailure(key)
	assert.True(t, guard.IsBlocked(key), "fifth failure must block")
}

func TestRateLimitService_SuccessResetsCounter(t *testing.T) {
	guard := newTestGuard(services.RateLimitConfig{MaxFailures: 5, Window: 15 * time.Minute})
	key := "email=user@example.com|ip=1.2.3.4"

	for i := 0; i < 4; i++ {
		guard.OnFailure(key)
	}
	guard.OnSuccess(key)

	for i := 0; i < 4; i++ {
		guard.OnFailure(key)
	}
	assert.False(t, guard.IsBlocked(key), "counter must restart from zero after a success")

	guard.OnFailure(key)
	assert.True(t, guard.IsBlocked(key))
}

func TestRateLimitService_WindowElapsesAndUnblocks(t *testing.T) {
	guard := newTestGuard(services.RateLimitConfig{MaxFailures: 2, Window: 30 * time.Millisecond})
	key := "email=user@example.com|ip=1.2.3.4"

	guard.OnFailure(key)
	guard.OnFailure(key)
	assert.True(t, guard.IsBlocked(key))

	time.Sleep(50 * time.Millisecond)
	assert.False(t, guard.IsBlocked(key), "an elapsed window must unblock the key")
}

func TestRateLimitService_ElapsedWindowStartsFresh(t *testing.T) {
	guard := newTestGuard(services.RateLimitConfig{MaxFailures: 2, Window: 30 * time.Millisecond})
	key := "email=user@example.com|ip=1.2.3.4"

	guard.OnFailure(key)
	time.Sleep(50 * time.Millisecond)

	// The old window elapsed, so this failure starts a new window at count 1
	guard.OnFailure(key)
	assert.False(t, guard.IsBlocked(key))
}

func TestRateLimitService_KeysAreIndependent(t *testing.T) {
	guard := newTestGuard(services.RateLimitConfig{MaxFailures: 2, Window: 15 * time.Minute})

	guard.OnFailure("email=user@example.com|ip=1.1.1.1")
	guard.OnFailure("email=user@example.com|ip=1.1.1.1")

	assert.True(t, guard.IsBlocked("email=user@example.com|ip=1.1.1.1"))
	assert.False(t, guard.IsBlocked("email=user@example.com|ip=2.2.2.2"))
	assert.False(t, guard.IsBlocked("email=other@example.com|ip=1.1.1.1"))
}

func TestRateLimitService_ConcurrentFailuresNotLost(t *testing.T) {
	const workers = 100
	guard := newTestGuard(services.RateLimitConfig{MaxFailures: workers, Window: 15 * time.Minute})
	key := "email=user@example.com|ip=1.2.3.4"

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			guard.OnFailure(key)
		}()
	}
	wg.Wait()

	// Every one of the concurrent increments must have landed
	assert.True(t, guard.IsBlocked(key))
}
