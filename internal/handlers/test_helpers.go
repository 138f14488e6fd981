package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/opencore/authd/internal/models"
	"github.com/opencore/authd/internal/services"
	pkghttp "github.com/opencore/authd/pkg/http"
	"github.com/stretchr/testify/assert"
)

// NewTestRequest creates an HTTP request with JSON body for testing
func NewTestRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// AssertJSONResponse checks that response has correct status and decodes JSON body
func AssertJSONResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, target interface{}) {
	t.Helper()
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	if target != nil {
		err := json.Unmarshal(w.Body.Bytes(), target)
		assert.NoError(t, err, "Failed to decode response JSON")
	}
}

// AssertErrorResponse checks that response is a valid error response
func AssertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedError string) {
	t.Helper()
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	var resp pkghttp.ErrorResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	assert.NoError(t, err, "Failed to decode error response")
	assert.Equal(t, expectedError, resp.Error, "Error code mismatch")
	assert.NotEmpty(t, resp.Message, "Error message should not be empty")
}

// MockAuthService implements AuthServiceInterface for testing
type MockAuthService struct {
	RequestOtpFunc func(ctx context.Context, email, clientIP string) (*services.OtpRequestResponse, error)
	VerifyOtpFunc  func(ctx context.Context, email, code, requestID, deviceID, clientIP string) (*services.AuthResponse, error)
	RefreshFunc    func(ctx context.Context, refreshToken, clientIP string) (*services.AuthResponse, error)
	RevokeFunc     func(ctx context.Context, refreshToken string)
}

func (m *MockAuthService) RequestOtp(ctx context.Context, email, clientIP string) (*services.OtpRequestResponse, error) {
	if m.RequestOtpFunc == nil {
		return nil, models.ErrInternalServer
	}
	return m.RequestOtpFunc(ctx, email, clientIP)
}

func (m *MockAuthService) VerifyOtp(ctx context.Context, email, code, requestID, deviceID, clientIP string) (*services.AuthResponse, error) {
	if m.VerifyOtpFunc == nil {
		return nil, models.ErrUnauthorized
	}
	return m.VerifyOtpFunc(ctx, email, code, requestID, deviceID, clientIP)
}

func (m *MockAuthService) Refresh(ctx context.Context, refreshToken, clientIP string) (*services.AuthResponse, error) {
	if m.RefreshFunc == nil {
		return nil, models.ErrUnauthorized
	}
	return m.RefreshFunc(ctx, refreshToken, clientIP)
}

func (m *MockAuthService) Revoke(ctx context.Context, refreshToken string) {
	if m.RevokeFunc != nil {
		m.RevokeFunc(ctx, refreshToken)
	}
}
