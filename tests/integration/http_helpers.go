//go:build integration

package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/BradenHooton/muscuscope/internal/auth"
	"github.com/BradenHooton/muscuscope/internal/config"
	"github.com/BradenHooton/muscuscope/internal/handlers"
	"github.com/BradenHooton/muscuscope/internal/metrics"
	middlewareCustom "github.com/BradenHooton/muscuscope/internal/middleware"
	"github.com/BradenHooton/muscuscope/internal/routes"
	"github.com/BradenHooton/muscuscope/internal/services"
	pkghttp "github.com/BradenHooton/muscuscope/pkg/http"
	pkglogger "github.com/BradenHooton/muscuscope/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const TestJWTSecret = "integration-secret-with-at-least-32-bytes"

// TestServer is the full HTTP stack on top of a TestDB
type TestServer struct {
	Server *httptest.Server
	Client *http.Client
	Ledger *services.LoginAttemptLedger
}

// NewTestServer wires handlers, middleware and routes the way the serve command does
func NewTestServer(db *TestDB, throttle config.ThrottleConfig) (*TestServer, error) {
	logger := quietLogger()
	userRepo, attemptRepo := InitializeRepositories(db.DB)

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	authCfg := config.DefaultAuthConfig(TestJWTSecret)
	codec := auth.NewTokenCodec(authCfg.JWTSecret, auth.WithExpectedIssuer(authCfg.Issuer, authCfg.Audience))
	issuer := auth.NewTokenIssuer(codec, authCfg, logger)
	validator := auth.NewTokenValidator(codec, logger)
	validator.SetMetrics(m)

	ipConfig := &pkghttp.IPConfig{}
	transport := auth.NewCookieTransport(auth.CookieConfig{RefreshPath: authCfg.RefreshCookiePath, IPConfig: ipConfig})

	ledger := services.NewLoginAttemptLedger(attemptRepo, throttle, logger, m)
	authService := services.NewAuthService(userRepo, issuer, validator, ledger, nil, pkglogger.NewAuditLogger(logger), m, logger)
	resolver := auth.NewUserResolver(validator, transport, userRepo, logger)

	router := chi.NewRouter()
	router.Use(chiMiddleware.RequestID)
	router.Use(middlewareCustom.Recover(logger))
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: "test", IPConfig: ipConfig}))
	router.Use(middlewareCustom.SecureLogger(logger, ipConfig))

	routes.RegisterRoutes(router, routes.Dependencies{
		AuthHandler:         handlers.NewAuthHandler(authService, resolver, transport, ipConfig, logger),
		TokenHandler:        handlers.NewTokenHandler(authService, validator, transport, ipConfig, logger),
		LoginAttemptHandler: handlers.NewLoginAttemptHandler(ledger, logger),
		HealthHandler:       handlers.NewHealthHandler(db.DB),
		Validator:           validator,
		Transport:           transport,
		RateLimit:           middlewareCustom.RateLimitConfig{RequestsPerMinute: 1000, IPConfig: ipConfig},
		Metrics:             promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	})

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	return &TestServer{
		Server: httptest.NewServer(router),
		Client: &http.Client{Jar: jar},
		Ledger: ledger,
	}, nil
}

func (s *TestServer) Close() {
	s.Server.Close()
}

// PostJSON sends body as JSON and returns the response with its body read
func (s *TestServer) PostJSON(path string, body any) (*http.Response, []byte, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, nil, err
		}
	}
	req, err := http.NewRequest(http.MethodPost, s.Server.URL+path, &buf)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return s.do(req)
}

// Get issues a GET, optionally with a bearer token
func (s *TestServer) Get(path, bearer string) (*http.Response, []byte, error) {
	req, err := http.NewRequest(http.MethodGet, s.Server.URL+path, nil)
	if err != nil {
		return nil, nil, err
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	return s.do(req)
}

func (s *TestServer) do(req *http.Request) (*http.Response, []byte, error) {
	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	return resp, body, err
}
