package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/httprate"
)

// RateLimitConfig holds per-IP request throttling configuration for the
// HTTP edge. This is separate from the per-identity brute force guard
// inside the verify flow; the two layers protect different things.
type RateLimitConfig struct {
	RequestsPerMinute int
}

// DefaultOtpRequestRateLimit throttles OTP issuance to 5 requests per minute per IP
func DefaultOtpRequestRateLimit() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerMinute: 5,
	}
}

// DefaultAuthRateLimit throttles the remaining auth endpoints (30 requests per minute per IP)
func DefaultAuthRateLimit() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerMinute: 30,
	}
}

// RateLimitByIP creates a middleware that rate limits requests by client IP
func RateLimitByIP(config RateLimitConfig) func(next http.Handler) http.Handler {
	return httprate.Limit(
		config.RequestsPerMinute,
		1*time.Minute,
		httprate.WithKeyByRealIP(),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error":"rate_limit_exceeded","message":"Rate limit exceeded"}`))
		}),
	)
}
