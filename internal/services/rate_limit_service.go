package services

import (
	"log/slog"
	"sync"
	"time"

	"github.com/opencore/authd/internal/models"
)

// RateLimitConfig holds brute-force guard configuration
type RateLimitConfig struct {
	MaxFailures int           // failures within a window before the key is blocked
	Window      time.Duration // fixed window length started by the first failure
}

// DefaultRateLimitConfig returns the default guard thresholds
// (5 failures per 15 minutes)
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		MaxFailures: 5,
		Window:      15 * time.Minute,
	}
}

// RateLimitService is a sliding-window failure counter gating OTP
// verification. Keys are opaque identity+origin composites built by the
// caller; the guard knows nothing about their structure. Elapsed windows
// are discarded lazily, never by a background sweep.
type RateLimitService struct {
	config  RateLimitConfig
	logger  *slog.Logger
	mu      sync.Mutex
	buckets map[string]models.FailureBucket
}

// NewRateLimitService creates a new guard with empty state
func NewRateLimitService(config RateLimitConfig, logger *slog.Logger) *RateLimitService {
	if config.MaxFailures <= 0 {
		config.MaxFailures = DefaultRateLimitConfig().MaxFailures
	}
	if config.Window <= 0 {
		config.Window = DefaultRateLimitConfig().Window
	}
	return &RateLimitService{
		config:  config,
		logger:  logger,
		buckets: make(map[string]models.FailureBucket),
	}
}

// OnFailure records one verification failure for the key. A fresh window
// starts when none exists or the prior one has elapsed; otherwise the
// count increments and the window is left unchanged.
func (s *RateLimitService) OnFailure(key string) {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	bucket, ok := s.buckets[key]
	if !ok || now.After(bucket.ResetAt) {
		s.buckets[key] = models.FailureBucket{Failures: 1, ResetAt: now.Add(s.config.Window)}
		return
	}

	bucket.Failures++
	s.buckets[key] = bucket

	if bucket.Failures == s.config.MaxFailures {
		s.logger.Warn("brute-force threshold reached",
			slog.Int("failures", bucket.Failures),
			slog.Time("window_resets_at", bucket.ResetAt))
	}
}

// OnSuccess clears all failure state for the key unconditionally
func (s *RateLimitService) OnSuccess(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.buckets, key)
}

// IsBlocked reports whether the key has reached the failure threshold
// within its current window. Elapsed windows are deleted on sight.
func (s *RateLimitService) IsBlocked(key string) bool {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	bucket, ok := s.buckets[key]
	if !ok {
		return false
	}
	if now.After(bucket.ResetAt) {
		delete(s.buckets, key)
		return false
	}
	return bucket.Failures >= s.config.MaxFailures
}
