package routes

import (
	"github.com/go-chi/chi/v5"
	"github.com/opencore/authd/internal/auth"
	"github.com/opencore/authd/internal/handlers"
	"github.com/opencore/authd/internal/middleware"
)

// RegisterRoutes registers all application routes under /v1/auth
func RegisterRoutes(
	router chi.Router,
	authHandler *handlers.AuthHandler,
	tokenManager *auth.TokenManager,
) {
	otpLimit := middleware.DefaultOtpRequestRateLimit()
	authLimit := middleware.DefaultAuthRateLimit()

	router.Route("/v1/auth", func(r chi.Router) {
		// OTP issuance gets the tightest edge limit; everything downstream
		// is additionally guarded per identity inside the service
		r.With(middleware.RateLimitByIP(otpLimit)).Post("/login/email-otp/request", authHandler.RequestOtp)
		r.With(middleware.RateLimitByIP(authLimit)).Post("/login/email-otp/verify", authHandler.VerifyOtp)
		r.With(middleware.RateLimitByIP(authLimit)).Post("/token/refresh", authHandler.Refresh)
		r.With(middleware.RateLimitByIP(authLimit)).Post("/sessions/revoke", authHandler.Revoke)

		// Social login is routed but not implemented
		r.Get("/oauth2/{provider}/start", authHandler.OAuthStart)
		r.Get("/oauth2/{provider}/callback", authHandler.OAuthCallback)

		// Protected routes - valid access token required
		r.Group(func(r chi.Router) {
			r.Use(auth.AuthMiddleware(tokenManager))
			r.Get("/introspect", authHandler.Introspect)
		})
	})
}
