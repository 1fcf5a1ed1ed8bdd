package handlers_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/BradenHooton/muscuscope/internal/auth"
	"github.com/BradenHooton/muscuscope/internal/handlers"
	"github.com/BradenHooton/muscuscope/internal/models"
	"github.com/BradenHooton/muscuscope/internal/services"
	pkghttp "github.com/BradenHooton/muscuscope/pkg/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthHandler(svc handlers.AuthServiceInterface, resolver handlers.UserResolverInterface) *handlers.AuthHandler {
	return handlers.NewAuthHandler(svc, resolver, auth.NewCookieTransport(auth.CookieConfig{}), &pkghttp.IPConfig{}, discardLogger())
}

func samplePair() *models.TokenPair {
	return &models.TokenPair{
		AccessToken:             "access_token_123",
		RefreshToken:            "refresh_token_123",
		TokenType:               "Bearer",
		AccessExpiresInSeconds:  3600,
		RefreshExpiresInSeconds: 2592000,
	}
}

func TestLogin_Success(t *testing.T) {
	var got services.LoginRequest
	svc := &mockAuthService{
		LoginFunc: func(ctx context.Context, req services.LoginRequest) (*services.AuthResult, error) {
			got = req
			return &services.AuthResult{Tokens: samplePair(), User: &models.User{ID: 1}}, nil
		},
	}

	handler := newAuthHandler(svc, nil)
	req := newTestRequest(t, http.MethodPost, "/auth/login", handlers.LoginRequest{
		Login:    "  lifter  ",
		Password: "password123",
	})
	req.RemoteAddr = "203.0.113.7:5555"
	req.Header.Set("User-Agent", "curl/8.0")

	w := httptest.NewRecorder()
	handler.Login(w, req)

	var resp models.TokenPair
	assertJSONResponse(t, w, http.StatusOK, &resp)
	assert.Equal(t, "access_token_123", resp.AccessToken)
	assert.Equal(t, "refresh_token_123", resp.RefreshToken)

	assert.Equal(t, "lifter", got.Login)
	assert.Equal(t, "203.0.113.7", got.IPAddress)
	assert.Equal(t, "curl/8.0", got.UserAgent)

	names := make(map[string]string)
	for _, c := range w.Result().Cookies() {
		names[c.Name] = c.Value
	}
	assert.Equal(t, "access_token_123", names[auth.AccessTokenCookie])
	assert.Equal(t, "refresh_token_123", names[auth.RefreshTokenCookie])
}

func TestLogin_InvalidCredentials(t *testing.T) {
	handler := newAuthHandler(&mockAuthService{}, nil)
	req := newTestRequest(t, http.MethodPost, "/auth/login", handlers.LoginRequest{
		Login:    "lifter",
		Password: "wrongpassword",
	})

	w := httptest.NewRecorder()
	handler.Login(w, req)

	resp := assertErrorResponse(t, w, http.StatusUnauthorized, "unauthorized")
	assert.Equal(t, "Invalid credentials", resp.Message)
	assert.Empty(t, w.Result().Cookies())
}

func TestLogin_Throttled(t *testing.T) {
	svc := &mockAuthService{
		LoginFunc: func(ctx context.Context, req services.LoginRequest) (*services.AuthResult, error) {
			return nil, models.ErrRateLimitExceeded
		},
	}

	handler := newAuthHandler(svc, nil)
	w := httptest.NewRecorder()
	handler.Login(w, newTestRequest(t, http.MethodPost, "/auth/login", handlers.LoginRequest{
		Login:    "lifter",
		Password: "password123",
	}))

	assertErrorResponse(t, w, http.StatusTooManyRequests, "rate_limit_exceeded")
}

func TestLogin_InternalError(t *testing.T) {
	svc := &mockAuthService{
		LoginFunc: func(ctx context.Context, req services.LoginRequest) (*services.AuthResult, error) {
			return nil, errors.New("pq: connection reset by peer")
		},
	}

	handler := newAuthHandler(svc, nil)
	w := httptest.NewRecorder()
	handler.Login(w, newTestRequest(t, http.MethodPost, "/auth/login", handlers.LoginRequest{
		Login:    "lifter",
		Password: "password123",
	}))

	resp := assertErrorResponse(t, w, http.StatusInternalServerError, "internal_error")
	assert.NotContains(t, resp.Message, "pq:")
}

func TestLogin_BadRequest(t *testing.T) {
	handler := newAuthHandler(&mockAuthService{
		LoginFunc: func(ctx context.Context, req services.LoginRequest) (*services.AuthResult, error) {
			t.Fatal("service must not be called")
			return nil, nil
		},
	}, nil)

	tests := []struct {
		name string
		body string
	}{
		{"not json", "not json"},
		{"missing password", `{"login":"lifter"}`},
		{"missing login", `{"password":"password123"}`},
		{"blank login", `{"login":"   ","password":"password123"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			handler.Login(w, req)

			assertErrorResponse(t, w, http.StatusBadRequest, "bad_request")
		})
	}
}

func TestLogin_ValidationMessageUsesJSONName(t *testing.T) {
	handler := newAuthHandler(&mockAuthService{}, nil)
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"login":"lifter"}`))
	w := httptest.NewRecorder()
	handler.Login(w, req)

	resp := assertErrorResponse(t, w, http.StatusBadRequest, "bad_request")
	assert.Contains(t, resp.Message, "password")
}

func TestLogout_ClearsCookies(t *testing.T) {
	handler := newAuthHandler(&mockAuthService{}, nil)

	w := httptest.NewRecorder()
	handler.Logout(w, httptest.NewRequest(http.MethodPost, "/auth/logout", nil))

	assert.Equal(t, http.StatusNoContent, w.Code)
	cookies := w.Result().Cookies()
	require.Len(t, cookies, 2)
	for _, c := range cookies {
		assert.Empty(t, c.Value)
		assert.Equal(t, -1, c.MaxAge)
	}
}

func TestMe(t *testing.T) {
	user := &models.User{ID: 42, Username: "lifter", Email: "lifter@example.com", PasswordHash: "$2a$secret", Roles: []string{models.RoleUser}}

	t.Run("authenticated", func(t *testing.T) {
		handler := newAuthHandler(nil, &mockResolver{user: user})
		w := httptest.NewRecorder()
		handler.Me(w, httptest.NewRequest(http.MethodGet, "/auth/me", nil))

		var resp handlers.UserResponse
		assertJSONResponse(t, w, http.StatusOK, &resp)
		assert.Equal(t, int64(42), resp.ID)
		assert.Equal(t, "lifter", resp.Username)
		assert.NotContains(t, w.Body.String(), "$2a$")
	})

	t.Run("anonymous", func(t *testing.T) {
		handler := newAuthHandler(nil, &mockResolver{})
		w := httptest.NewRecorder()
		handler.Me(w, httptest.NewRequest(http.MethodGet, "/auth/me", nil))

		assertErrorResponse(t, w, http.StatusUnauthorized, "unauthorized")
	})

	t.Run("bad token", func(t *testing.T) {
		handler := newAuthHandler(nil, &mockResolver{err: models.NewAuthError(models.KindExpired, models.ErrTokenExpired)})
		w := httptest.NewRecorder()
		handler.Me(w, httptest.NewRequest(http.MethodGet, "/auth/me", nil))

		assertErrorResponse(t, w, http.StatusUnauthorized, "unauthorized")
	})

	t.Run("store failure", func(t *testing.T) {
		handler := newAuthHandler(nil, &mockResolver{err: errors.New("db down")})
		w := httptest.NewRecorder()
		handler.Me(w, httptest.NewRequest(http.MethodGet, "/auth/me", nil))

		assertErrorResponse(t, w, http.StatusInternalServerError, "internal_error")
	})
}
