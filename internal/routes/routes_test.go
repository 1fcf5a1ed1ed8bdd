package routes_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/BradenHooton/muscuscope/internal/auth"
	"github.com/BradenHooton/muscuscope/internal/config"
	"github.com/BradenHooton/muscuscope/internal/database"
	"github.com/BradenHooton/muscuscope/internal/handlers"
	"github.com/BradenHooton/muscuscope/internal/metrics"
	"github.com/BradenHooton/muscuscope/internal/middleware"
	"github.com/BradenHooton/muscuscope/internal/models"
	"github.com/BradenHooton/muscuscope/internal/repositories"
	"github.com/BradenHooton/muscuscope/internal/routes"
	"github.com/BradenHooton/muscuscope/internal/services"
	pkghttp "github.com/BradenHooton/muscuscope/pkg/http"
	pkglogger "github.com/BradenHooton/muscuscope/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSecret    = "routes-test-secret-with-more-than-32-bytes"
	adminPassword = "Deadlift-2026!"
	userPassword  = "Squat-2026!"
)

// newRouter wires the full stack against an in-memory SQLite database
func newRouter(t *testing.T) http.Handler {
	t.Helper()
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	db, err := database.OpenSQLite(ctx, ":memory:", logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(ctx, db, config.DriverSQLite, logger))

	userRepo := repositories.NewSQLiteUserRepository(db)
	attemptRepo := repositories.NewSQLiteLoginAttemptRepository(db)

	users := services.NewUserService(userRepo, logger)
	_, err = users.CreateUser(ctx, "coach", "coach@example.com", adminPassword, []string{"admin"})
	require.NoError(t, err)
	_, err = users.CreateUser(ctx, "lifter", "lifter@example.com", userPassword, nil)
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	authCfg := config.DefaultAuthConfig(testSecret)
	codec := auth.NewTokenCodec(authCfg.JWTSecret, auth.WithExpectedIssuer(authCfg.Issuer, authCfg.Audience))
	issuer := auth.NewTokenIssuer(codec, authCfg, logger)
	validator := auth.NewTokenValidator(codec, logger)
	validator.SetMetrics(m)
	transport := auth.NewCookieTransport(auth.CookieConfig{RefreshPath: authCfg.RefreshCookiePath})
	ipConfig := &pkghttp.IPConfig{}

	ledger := services.NewLoginAttemptLedger(attemptRepo, config.DefaultThrottleConfig(), logger, m)
	authService := services.NewAuthService(userRepo, issuer, validator, ledger, nil, pkglogger.NewAuditLogger(logger), m, logger)
	resolver := auth.NewUserResolver(validator, transport, userRepo, logger)

	router := chi.NewRouter()
	routes.RegisterRoutes(router, routes.Dependencies{
		AuthHandler:         handlers.NewAuthHandler(authService, resolver, transport, ipConfig, logger),
		TokenHandler:        handlers.NewTokenHandler(authService, validator, transport, ipConfig, logger),
		LoginAttemptHandler: handlers.NewLoginAttemptHandler(ledger, logger),
		HealthHandler:       handlers.NewHealthHandler(database.SQLiteHealth{DB: db}),
		Validator:           validator,
		Transport:           transport,
		RateLimit:           middleware.RateLimitConfig{RequestsPerMinute: 1000, IPConfig: ipConfig},
		Metrics:             promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	})
	return router
}

func do(t *testing.T, h http.Handler, method, path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.RemoteAddr = "198.51.100.20:40000"
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func login(t *testing.T, h http.Handler, username, password string) (*models.TokenPair, []*http.Cookie) {
	t.Helper()
	w := do(t, h, http.MethodPost, "/auth/login", `{"login":"`+username+`","password":"`+password+`"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var pair models.TokenPair
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &pair))
	return &pair, w.Result().Cookies()
}

func cookieNamed(cookies []*http.Cookie, name string) *http.Cookie {
	for _, c := range cookies {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestSessionLifecycle(t *testing.T) {
	router := newRouter(t)

	pair, cookies := login(t, router, "lifter", userPassword)
	access := cookieNamed(cookies, auth.AccessTokenCookie)
	refresh := cookieNamed(cookies, auth.RefreshTokenCookie)
	require.NotNil(t, access)
	require.NotNil(t, refresh)
	assert.Equal(t, pair.AccessToken, access.Value)

	// me via cookie
	w := do(t, router, http.MethodGet, "/auth/me", "", access)
	require.Equal(t, http.StatusOK, w.Code)
	var me handlers.UserResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &me))
	assert.Equal(t, "lifter", me.Username)

	// refresh via cookie issues a new, different pair
	w = do(t, router, http.MethodPost, "/token/refresh", "", refresh)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var refreshed models.TokenPair
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &refreshed))
	assert.NotEqual(t, pair.AccessToken, refreshed.AccessToken)

	// the access token cannot be used to refresh
	w = do(t, router, http.MethodPost, "/token/refresh", `{"refreshToken":"`+pair.AccessToken+`"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// the new refresh token links back to the old one
	w = do(t, router, http.MethodPost, "/token/validate", `{"token":"`+refreshed.RefreshToken+`"}`)
	require.Equal(t, http.StatusOK, w.Code)
	var claims handlers.ClaimsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &claims))
	assert.Equal(t, "refresh", claims.TokenType)
	assert.NotEmpty(t, claims.RefreshedFrom)
	assert.NotNil(t, claims.LoginTime)

	// logout clears cookies
	w = do(t, router, http.MethodPost, "/auth/logout", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	for _, c := range w.Result().Cookies() {
		assert.Empty(t, c.Value)
	}

	// no credentials
	w = do(t, router, http.MethodGet, "/auth/me", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestTokenInfo_Bearer(t *testing.T) {
	router := newRouter(t)
	pair, _ := login(t, router, "lifter", userPassword)

	req := httptest.NewRequest(http.MethodGet, "/token/info", nil)
	req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(t, router, http.MethodGet, "/token/info", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLoginThrottle(t *testing.T) {
	router := newRouter(t)

	for i := 0; i < 3; i++ {
		w := do(t, router, http.MethodPost, "/auth/login", `{"login":"lifter","password":"wrong-password"}`)
		require.Equal(t, http.StatusUnauthorized, w.Code)
	}

	// correct password, but the login is blocked
	w := do(t, router, http.MethodPost, "/auth/login", `{"login":"lifter","password":"`+userPassword+`"}`)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Empty(t, w.Result().Cookies())
}

func TestAdminEndpoints(t *testing.T) {
	router := newRouter(t)

	_, userCookies := login(t, router, "lifter", userPassword)
	w := do(t, router, http.MethodGet, "/admin/login-attempts/real-time-stats", "",
		cookieNamed(userCookies, auth.AccessTokenCookie))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = do(t, router, http.MethodGet, "/admin/login-attempts/real-time-stats", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	_, adminCookies := login(t, router, "coach@example.com", adminPassword)
	adminAccess := cookieNamed(adminCookies, auth.AccessTokenCookie)

	w = do(t, router, http.MethodGet, "/admin/login-attempts/real-time-stats", "", adminAccess)
	require.Equal(t, http.StatusOK, w.Code)
	var stats services.RealTimeStats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, 2, stats.LastHour.Total)
	assert.Equal(t, 100.0, stats.LastHour.SuccessRatePercent)

	w = do(t, router, http.MethodGet, "/admin/login-attempts/check-login-status/lifter", "", adminAccess)
	require.Equal(t, http.StatusOK, w.Code)
	var status models.BlockStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.False(t, status.Blocked)

	w = do(t, router, http.MethodGet, "/admin/login-attempts/check-ip-status/198.51.100.20", "", adminAccess)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(t, router, http.MethodPost, "/admin/login-attempts/unblock-ip/198.51.100.20", "", adminAccess)
	assert.Equal(t, http.StatusNotImplemented, w.Code)
	w = do(t, router, http.MethodPost, "/admin/login-attempts/unblock-login/lifter", "", adminAccess)
	assert.Equal(t, http.StatusNotImplemented, w.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	router := newRouter(t)
	login(t, router, "lifter", userPassword)

	w := do(t, router, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(t, router, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `muscuscope_login_attempts_total{outcome="success"} 1`)
}
