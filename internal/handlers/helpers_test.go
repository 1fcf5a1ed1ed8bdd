package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/BradenHooton/muscuscope/internal/models"
	"github.com/BradenHooton/muscuscope/internal/services"
	pkghttp "github.com/BradenHooton/muscuscope/pkg/http"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "handler-tests-secret-with-32-plus-bytes"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestRequest creates an HTTP request with JSON body for testing
func newTestRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// withURLParams attaches chi route params to the request
func withURLParams(req *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

// assertJSONResponse checks that response has correct status and decodes JSON body
func assertJSONResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, target interface{}) {
	t.Helper()
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	if target != nil {
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), target), "Failed to decode response JSON")
	}
}

// assertErrorResponse checks that response is a valid error envelope
func assertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedError string) pkghttp.ErrorResponse {
	t.Helper()
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	var resp pkghttp.ErrorResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), "Failed to decode error response")
	assert.Equal(t, expectedError, resp.Error, "Error code mismatch")
	assert.NotEmpty(t, resp.Message, "Error message should not be empty")
	return resp
}

// mockAuthService implements handlers.AuthServiceInterface
type mockAuthService struct {
	LoginFunc   func(ctx context.Context, req services.LoginRequest) (*services.AuthResult, error)
	RefreshFunc func(ctx context.Context, refreshToken, ipAddress, userAgent string) (*services.AuthResult, error)
}

func (m *mockAuthService) Login(ctx context.Context, req services.LoginRequest) (*services.AuthResult, error) {
	if m.LoginFunc == nil {
		return nil, models.ErrUnauthorized
	}
	return m.LoginFunc(ctx, req)
}

func (m *mockAuthService) Refresh(ctx context.Context, refreshToken, ipAddress, userAgent string) (*services.AuthResult, error) {
	if m.RefreshFunc == nil {
		return nil, models.NewAuthError(models.KindInvalidSignature, models.ErrInvalidSignature)
	}
	return m.RefreshFunc(ctx, refreshToken, ipAddress, userAgent)
}

// mockResolver implements handlers.UserResolverInterface
type mockResolver struct {
	user *models.User
	err  error
}

func (m *mockResolver) Resolve(r *http.Request) (*models.User, error) {
	return m.user, m.err
}

// mockLedger implements handlers.LoginAttemptLedgerInterface
type mockLedger struct {
	StatisticsFunc func(ctx context.Context, from, to time.Time) (*models.LoginAttemptStats, error)
	IPStatusFunc   func(ctx context.Context, ip string) (*models.BlockStatus, error)
	LoginStatusErr error
	RealTimeErr    error
}

func (m *mockLedger) Statistics(ctx context.Context, from, to time.Time) (*models.LoginAttemptStats, error) {
	return m.StatisticsFunc(ctx, from, to)
}

func (m *mockLedger) RealTimeStatistics(ctx context.Context) (*services.RealTimeStats, error) {
	if m.RealTimeErr != nil {
		return nil, m.RealTimeErr
	}
	return &services.RealTimeStats{
		LastHour:       &models.LoginAttemptStats{Total: 3, Successful: 1, Failed: 2, SuccessRatePercent: 33.33},
		Last24Hours:    &models.LoginAttemptStats{},
		Today:          &models.LoginAttemptStats{},
		IPThreshold:    5,
		LoginThreshold: 3,
	}, nil
}

func (m *mockLedger) IPStatus(ctx context.Context, ip string, maxAttempts int, window time.Duration) (*models.BlockStatus, error) {
	return m.IPStatusFunc(ctx, ip)
}

func (m *mockLedger) LoginStatus(ctx context.Context, login string, maxAttempts int, window time.Duration) (*models.BlockStatus, error) {
	if m.LoginStatusErr != nil {
		return nil, m.LoginStatusErr
	}
	return &models.BlockStatus{Key: login, RecentFailures: 3, MaxAttempts: 3, WindowMinutes: 30, Blocked: true}, nil
}

func (m *mockLedger) UnblockIP(ctx context.Context, ip string) error {
	return models.NewAuthError(models.KindNotImplemented, models.ErrNotImplemented)
}

func (m *mockLedger) UnblockLogin(ctx context.Context, login string) error {
	return models.NewAuthError(models.KindNotImplemented, models.ErrNotImplemented)
}
