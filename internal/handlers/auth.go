package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/opencore/authd/internal/auth"
	"github.com/opencore/authd/internal/models"
	"github.com/opencore/authd/internal/services"
	pkghttp "github.com/opencore/authd/pkg/http"
)

// AuthServiceInterface defines the interface for auth business logic
type AuthServiceInterface interface {
	RequestOtp(ctx context.Context, email, clientIP string) (*services.OtpRequestResponse, error)
	VerifyOtp(ctx context.Context, email, code, requestID, deviceID, clientIP string) (*services.AuthResponse, error)
	Refresh(ctx context.Context, refreshToken, clientIP string) (*services.AuthResponse, error)
	Revoke(ctx context.Context, refreshToken string)
}

// AuthHandler translates HTTP requests into auth flows. It parses,
// validates, and extracts the client IP; all decisions live in the service.
type AuthHandler struct {
	service  AuthServiceInterface
	ipConfig *pkghttp.IPConfig
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(service AuthServiceInterface, ipConfig *pkghttp.IPConfig) *AuthHandler {
	return &AuthHandler{
		service:  service,
		ipConfig: ipConfig,
	}
}

// Request DTOs

// OtpRequestRequest represents the request body for requesting an OTP
type OtpRequestRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// OtpVerifyRequest represents the request body for verifying an OTP
type OtpVerifyRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Otp       string `json:"otp" validate:"required"`
	RequestID string `json:"request_id" validate:"required"`
	DeviceID  string `json:"device_id"`
}

// TokenRefreshRequest represents the request body for token refresh
type TokenRefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// SessionRevokeRequest represents the request body for session revocation
type SessionRevokeRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// SessionRevokeResponse acknowledges a revocation request
type SessionRevokeResponse struct {
	Revoked bool `json:"revoked"`
}

// IntrospectResponse describes the verified access token presented by the caller
type IntrospectResponse struct {
	UserID    string `json:"user_id"`
	Role      string `json:"role"`
	ExpiresAt string `json:"expires_at"`
}

// RequestOtp handles OTP issuance
// @Summary Request a one-time passcode for email login
// @Accept json
// @Param request body OtpRequestRequest true "OTP request"
// @Produce json
// @Success 200 {object} services.OtpRequestResponse
// @Failure 400 {object} pkghttp.ErrorResponse
// @Failure 500 {object} pkghttp.ErrorResponse
// @Router /v1/auth/login/email-otp/request [post]
func (h *AuthHandler) RequestOtp(w http.ResponseWriter, r *http.Request) {
	var req OtpRequestRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	clientIP := pkghttp.ExtractClientIP(r, h.ipConfig)

	resp, err := h.service.RequestOtp(r.Context(), req.Email, clientIP)
	if err != nil {
		h.writeFlowError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, resp)
}

// VerifyOtp handles OTP verification and issues the first token pair
// @Summary Verify a one-time passcode
// @Accept json
// @Param request body OtpVerifyRequest true "OTP verification request"
// @Produce json
// @Success 200 {object} services.AuthResponse
// @Failure 400 {object} pkghttp.ErrorResponse
// @Failure 401 {object} pkghttp.ErrorResponse
// @Failure 429 {object} pkghttp.ErrorResponse
// @Failure 500 {object} pkghttp.ErrorResponse
// @Router /v1/auth/login/email-otp/verify [post]
func (h *AuthHandler) VerifyOtp(w http.ResponseWriter, r *http.Request) {
	var req OtpVerifyRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	clientIP := pkghttp.ExtractClientIP(r, h.ipConfig)

	resp, err := h.service.VerifyOtp(r.Context(), req.Email, req.Otp, req.RequestID, req.DeviceID, clientIP)
	if err != nil {
		h.writeFlowError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, resp)
}

// Refresh handles refresh token rotation
// @Summary Rotate a refresh token
// @Accept json
// @Param request body TokenRefreshRequest true "Refresh request"
// @Produce json
// @Success 200 {object} services.AuthResponse
// @Failure 400 {object} pkghttp.ErrorResponse
// @Failure 401 {object} pkghttp.ErrorResponse
// @Failure 500 {object} pkghttp.ErrorResponse
// @Router /v1/auth/token/refresh [post]
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req TokenRefreshRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	clientIP := pkghttp.ExtractClientIP(r, h.ipConfig)

	resp, err := h.service.Refresh(r.Context(), req.RefreshToken, clientIP)
	if err != nil {
		h.writeFlowError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, resp)
}

// Revoke handles session revocation. The flow has no error surface:
// revoking an already-unusable token is treated as already done.
// @Summary Revoke the session behind a refresh token
// @Accept json
// @Param request body SessionRevokeRequest true "Revoke request"
// @Produce json
// @Success 200 {object} SessionRevokeResponse
// @Failure 400 {object} pkghttp.ErrorResponse
// @Router /v1/auth/sessions/revoke [post]
func (h *AuthHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	var req SessionRevokeRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	h.service.Revoke(r.Context(), req.RefreshToken)

	pkghttp.WriteJSON(w, http.StatusOK, SessionRevokeResponse{Revoked: true})
}

// Introspect echoes the verified claims of the presented access token
// @Summary Describe the caller's access token
// @Security BearerAuth
// @Produce json
// @Success 200 {object} IntrospectResponse
// @Failure 401 {object} pkghttp.ErrorResponse
// @Router /v1/auth/introspect [get]
func (h *AuthHandler) Introspect(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "unauthorized")
		return
	}

	resp := IntrospectResponse{
		UserID: claims.Subject,
		Role:   claims.Role,
	}
	if claims.ExpiresAt != nil {
		resp.ExpiresAt = claims.ExpiresAt.Time.UTC().Format("2006-01-02T15:04:05Z07:00")
	}

	pkghttp.WriteJSON(w, http.StatusOK, resp)
}

// OAuthStart is a stub for social login; not implemented
func (h *AuthHandler) OAuthStart(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")
	pkghttp.WriteNotImplemented(w, "oauth2 start not implemented: "+provider)
}

// OAuthCallback is a stub for social login; not implemented
func (h *AuthHandler) OAuthCallback(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")
	pkghttp.WriteNotImplemented(w, "oauth2 callback not implemented: "+provider)
}

// writeFlowError maps the flow outcome taxonomy onto HTTP statuses. The
// unauthorized mapping is deliberately coarse so responses never reveal
// which check failed.
func (h *AuthHandler) writeFlowError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrInvalidInput):
		pkghttp.WriteBadRequest(w, "Missing or invalid request fields")
	case errors.Is(err, models.ErrRateLimited):
		pkghttp.WriteTooManyRequests(w, "Too many failed attempts. Please try again later.")
	case errors.Is(err, models.ErrUnauthorized):
		pkghttp.WriteUnauthorized(w, "Authentication failed")
	default:
		pkghttp.WriteInternalError(w, "Internal server error")
	}
}
