package services

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/opencore/authd/internal/auth"
	"github.com/opencore/authd/internal/events"
	"github.com/opencore/authd/internal/models"
	pkglogger "github.com/opencore/authd/pkg/logger"
)

// OtpRepository defines the interface for the OTP ledger
type OtpRepository interface {
	Issue(ctx context.Context, email string) (*models.IssuedOtp, error)
	Verify(ctx context.Context, email, code, requestID string) (bool, error)
}

// SessionRepository defines the interface for the refresh-session registry
type SessionRepository interface {
	Put(ctx context.Context, jti string, session models.Session) error
	Get(ctx context.Context, jti string) (*models.Session, error)
	Revoke(ctx context.Context, jti string) error
}

// BruteForceGuard defines the interface for the verification throttle
type BruteForceGuard interface {
	IsBlocked(key string) bool
	OnFailure(key string)
	OnSuccess(key string)
}

// AuthService coordinates the four auth flows over the OTP ledger, the
// session registry, the brute-force guard, and the token manager. It
// never touches storage or transport directly.
type AuthService struct {
	otpRepo     OtpRepository
	sessions    SessionRepository
	guard       BruteForceGuard
	directory   UserDirectory
	tm          *auth.TokenManager
	publisher   events.Publisher
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
}

// NewAuthService creates a new AuthService
func NewAuthService(
	otpRepo OtpRepository,
	sessions SessionRepository,
	guard BruteForceGuard,
	directory UserDirectory,
	tm *auth.TokenManager,
	publisher events.Publisher,
	logger *slog.Logger,
	auditLogger *pkglogger.AuditLogger,
) *AuthService {
	return &AuthService{
		otpRepo:     otpRepo,
		sessions:    sessions,
		guard:       guard,
		directory:   directory,
		tm:          tm,
		publisher:   publisher,
		logger:      logger,
		auditLogger: auditLogger,
	}
}

// OtpRequestResponse is the result of a request-OTP flow. The code is
// returned to the caller directly; a production deployment delivers it
// out-of-band instead and must not echo it in the HTTP response.
type OtpRequestResponse struct {
	RequestID string `json:"request_id"`
	Code      string `json:"code"`
}

// AuthResponse is the token pair returned by verify and refresh
type AuthResponse struct {
	AccessToken      string `json:"access_token"`
	RefreshToken     string `json:"refresh_token"`
	AccessTTLSeconds int64  `json:"access_ttl_seconds"`
}

// RequestOtp issues a one-time passcode for the email
func (s *AuthService) RequestOtp(ctx context.Context, email, clientIP string) (*OtpRequestResponse, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, models.ErrInvalidInput
	}

	issued, err := s.otpRepo.Issue(ctx, email)
	if err != nil {
		s.logger.Error("failed to issue otp", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("otp issued", slog.String("email", pkglogger.SanitizedEmail(email)))
	s.publisher.Publish(events.Event{
		Type:      events.TypeOtpRequested,
		IPAddress: clientIP,
	})

	return &OtpRequestResponse{RequestID: issued.RequestID, Code: issued.Code}, nil
}

// VerifyOtp exchanges a valid one-time passcode for an access/refresh
// token pair and opens a session for the refresh token
func (s *AuthService) VerifyOtp(ctx context.Context, email, code, requestID, deviceID, clientIP string) (*AuthResponse, error) {
	email = normalizeEmail(email)
	code = strings.TrimSpace(code)
	requestID = strings.TrimSpace(requestID)

	if email == "" || code == "" || requestID == "" {
		return nil, models.ErrInvalidInput
	}

	key := guardKey(email, clientIP)
	if s.guard.IsBlocked(key) {
		s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
			EventType:     "otp_verify_failed",
			Email:         email,
			IPAddress:     clientIP,
			FailureReason: "rate_limited",
			Success:       false,
		})
		return nil, models.ErrRateLimited
	}

	ok, err := s.otpRepo.Verify(ctx, email, code, requestID)
	if err != nil {
		s.logger.Error("otp verification error", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	if !ok {
		// Failure is recorded only after the ledger itself said no
		s.guard.OnFailure(key)
		s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
			EventType:     "otp_verify_failed",
			Email:         email,
			IPAddress:     clientIP,
			FailureReason: "invalid_otp",
			Success:       false,
		})
		s.publisher.Publish(events.Event{
			Type:      events.TypeLoginFailed,
			IPAddress: clientIP,
		})
		return nil, models.ErrUnauthorized
	}

	s.guard.OnSuccess(key)

	userID, err := s.directory.ResolveOrCreateUserID(ctx, email)
	if err != nil {
		s.logger.Error("failed to resolve user id", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	resp, err := s.issueTokenPair(ctx, userID, deviceID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user logged in", slog.String("user_id", userID))
	s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
		EventType: "otp_verify_succeeded",
		UserID:    userID,
		Email:     email,
		IPAddress: clientIP,
		Success:   true,
	})
	s.publisher.Publish(events.Event{
		Type:      events.TypeLoginSucceeded,
		UserID:    userID,
		IPAddress: clientIP,
	})

	return resp, nil
}

// Refresh rotates a refresh token: the presented token's session is
// revoked and a brand-new pair is minted for the same user and device.
// There is no path that reuses the presented token.
func (s *AuthService) Refresh(ctx context.Context, refreshToken, clientIP string) (*AuthResponse, error) {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return nil, models.ErrInvalidInput
	}

	// Every parse or verification failure collapses to unauthorized so
	// callers cannot probe which check failed
	claims, err := s.tm.ValidateToken(refreshToken)
	if err != nil {
		s.logger.Info("refresh token validation failed", slog.Any("error", err))
		return nil, models.ErrUnauthorized
	}

	if claims.Type != models.TokenTypeRefresh || claims.ID == "" {
		return nil, models.ErrUnauthorized
	}

	session, err := s.sessions.Get(ctx, claims.ID)
	if err != nil {
		s.logger.Error("failed to load session", slog.String("jti", claims.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	if !session.Usable(time.Now()) {
		// Absent, revoked, or expired. A rotated-away token lands here:
		// its session was revoked when it was last used.
		s.logger.Info("refresh with unusable session", slog.String("jti", claims.ID))
		return nil, models.ErrUnauthorized
	}

	if err := s.sessions.Revoke(ctx, claims.ID); err != nil {
		s.logger.Error("failed to revoke session", slog.String("jti", claims.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	resp, err := s.issueTokenPair(ctx, session.UserID, session.DeviceID)
	if err != nil {
		return nil, err
	}

	s.auditLogger.LogSessionAction("session_rotated", session.UserID, claims.ID)
	s.publisher.Publish(events.Event{
		Type:      events.TypeTokenRefreshed,
		UserID:    session.UserID,
		IPAddress: clientIP,
	})

	return resp, nil
}

// Revoke marks the session behind a refresh token as revoked. It is
// best-effort and never errors: an invalid, expired, or already-revoked
// token has already achieved the caller's intent.
func (s *AuthService) Revoke(ctx context.Context, refreshToken string) {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return
	}

	claims, err := s.tm.ValidateToken(refreshToken)
	if err != nil {
		return
	}
	if claims.ID == "" {
		return
	}

	if err := s.sessions.Revoke(ctx, claims.ID); err != nil {
		s.logger.Error("failed to revoke session", slog.String("jti", claims.ID), slog.Any("error", err))
		return
	}

	s.auditLogger.LogSessionAction("session_revoked", claims.Subject, claims.ID)
	s.publisher.Publish(events.Event{
		Type:   events.TypeSessionRevoked,
		UserID: claims.Subject,
	})
}

// issueTokenPair mints an access token, a refresh token, and the session
// backing the refresh token
func (s *AuthService) issueTokenPair(ctx context.Context, userID, deviceID string) (*AuthResponse, error) {
	accessToken, err := s.tm.GenerateAccessToken(userID, models.DefaultRole)
	if err != nil {
		s.logger.Error("failed to generate access token", slog.String("user_id", userID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	refresh, err := s.tm.GenerateRefreshToken(userID, deviceID)
	if err != nil {
		s.logger.Error("failed to generate refresh token", slog.String("user_id", userID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	session := models.Session{
		UserID:    userID,
		DeviceID:  deviceID,
		ExpiresAt: refresh.ExpiresAt,
	}
	if err := s.sessions.Put(ctx, refresh.JTI, session); err != nil {
		s.logger.Error("failed to store session", slog.String("jti", refresh.JTI), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return &AuthResponse{
		AccessToken:      accessToken,
		RefreshToken:     refresh.Token,
		AccessTTLSeconds: int64(s.tm.AccessTokenExpiry().Seconds()),
	}, nil
}

// guardKey builds the brute-force guard key from the normalized identity
// and the client-visible origin
func guardKey(email, clientIP string) string {
	return "email=" + email + "|ip=" + clientIP
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
