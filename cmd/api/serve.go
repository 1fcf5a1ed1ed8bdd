package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/BradenHooton/muscuscope/internal/auth"
	"github.com/BradenHooton/muscuscope/internal/config"
	"github.com/BradenHooton/muscuscope/internal/handlers"
	"github.com/BradenHooton/muscuscope/internal/metrics"
	middlewareCustom "github.com/BradenHooton/muscuscope/internal/middleware"
	"github.com/BradenHooton/muscuscope/internal/observability"
	"github.com/BradenHooton/muscuscope/internal/routes"
	"github.com/BradenHooton/muscuscope/internal/services"
	pkghttp "github.com/BradenHooton/muscuscope/pkg/http"
	pkglogger "github.com/BradenHooton/muscuscope/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

func serveCmd() *cobra.Command {
	var migrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), migrate)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", false, "Apply pending migrations before serving")

	return cmd
}

func runServe(ctx context.Context, migrate bool) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := newLogger(cfg.Server.LogLevel)
	logger.Info("configuration loaded",
		slog.String("env", cfg.Server.Env),
		slog.String("db_driver", cfg.Database.Driver),
	)

	if err := observability.InitSentry(cfg.Server.SentryDSN, cfg.Server.Env, Version); err != nil {
		logger.Warn("sentry disabled", slog.Any("error", err))
	}
	defer observability.FlushSentry()

	st, err := openStore(ctx, &cfg.Database, migrate, logger)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer st.close()

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// Token machinery
	codec := auth.NewTokenCodec(cfg.Auth.JWTSecret, auth.WithExpectedIssuer(cfg.Auth.Issuer, cfg.Auth.Audience))
	issuer := auth.NewTokenIssuer(codec, cfg.Auth, logger)
	validator := auth.NewTokenValidator(codec, logger)
	validator.SetMetrics(m)

	ipConfig := &pkghttp.IPConfig{TrustedProxies: cfg.Server.TrustedProxies}
	transport := auth.NewCookieTransport(auth.CookieConfig{
		Domain:      cfg.Auth.CookieDomain,
		RefreshPath: cfg.Auth.RefreshCookiePath,
		IPConfig:    ipConfig,
	})
	timingDelay := auth.NewTimingDelay(auth.TimingConfig{
		BaseDelayMs:   cfg.Auth.TimingDelayBaseMs,
		RandomDelayMs: cfg.Auth.TimingDelayRandomMs,
	})

	// Services
	auditLogger := pkglogger.NewAuditLogger(logger)
	ledger := services.NewLoginAttemptLedger(st.attempts, cfg.Throttle, logger, m)
	authService := services.NewAuthService(st.users, issuer, validator, ledger, timingDelay, auditLogger, m, logger)
	resolver := auth.NewUserResolver(validator, transport, st.users, logger)

	// Router
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middlewareCustom.Recover(logger))
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env, IPConfig: ipConfig}))
	router.Use(middlewareCustom.CORS(middlewareCustom.DefaultCORSConfig(cfg.Server.AllowedOrigins)))
	router.Use(middlewareCustom.SecureLogger(logger, ipConfig))
	router.Use(middleware.Timeout(30 * time.Second))

	routes.RegisterRoutes(router, routes.Dependencies{
		AuthHandler:         handlers.NewAuthHandler(authService, resolver, transport, ipConfig, logger),
		TokenHandler:        handlers.NewTokenHandler(authService, validator, transport, ipConfig, logger),
		LoginAttemptHandler: handlers.NewLoginAttemptHandler(ledger, logger),
		HealthHandler:       handlers.NewHealthHandler(st.health),
		Validator:           validator,
		Transport:           transport,
		RateLimit:           middlewareCustom.DefaultAuthRateLimit(ipConfig),
		Metrics:             promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	})

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	logger.Info("server stopped gracefully")
	return nil
}
