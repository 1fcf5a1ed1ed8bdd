package routes

import (
	"net/http"

	"github.com/BradenHooton/muscuscope/internal/auth"
	"github.com/BradenHooton/muscuscope/internal/handlers"
	"github.com/BradenHooton/muscuscope/internal/middleware"
	"github.com/BradenHooton/muscuscope/internal/models"
	"github.com/go-chi/chi/v5"
)

// Dependencies groups what the route table needs
type Dependencies struct {
	AuthHandler         *handlers.AuthHandler
	TokenHandler        *handlers.TokenHandler
	LoginAttemptHandler *handlers.LoginAttemptHandler
	HealthHandler       *handlers.HealthHandler

	Validator *auth.TokenValidator
	Transport *auth.CookieTransport
	RateLimit middleware.RateLimitConfig

	// Metrics serves /metrics when set
	Metrics http.Handler
}

// RegisterRoutes registers all application routes
func RegisterRoutes(router chi.Router, deps Dependencies) {
	limited := router.With(middleware.RateLimitByIP(deps.RateLimit))

	router.Get("/health", deps.HealthHandler.Health)
	if deps.Metrics != nil {
		router.Method(http.MethodGet, "/metrics", deps.Metrics)
	}

	// Public routes; the handlers validate whatever credentials they receive
	limited.Post("/auth/login", deps.AuthHandler.Login)
	router.Post("/auth/logout", deps.AuthHandler.Logout)
	router.Get("/auth/me", deps.AuthHandler.Me)

	router.Route("/token", func(r chi.Router) {
		r.Use(middleware.RateLimitByIP(deps.RateLimit))
		r.Post("/refresh", deps.TokenHandler.Refresh)
		r.Post("/validate", deps.TokenHandler.Validate)
		r.Get("/info", deps.TokenHandler.Info)
	})

	// Admin-only routes
	router.Route("/admin/login-attempts", func(r chi.Router) {
		r.Use(auth.RequireAuth(deps.Validator, deps.Transport))
		r.Use(auth.RequireRole(models.RoleAdmin))

		h := deps.LoginAttemptHandler
		r.Get("/statistics", h.Statistics)
		r.Get("/real-time-stats", h.RealTimeStats)
		r.Get("/check-ip-status/{ip}", h.CheckIPStatus)
		r.Get("/check-login-status/{login}", h.CheckLoginStatus)
		r.Post("/unblock-ip/{ip}", h.UnblockIP)
		r.Post("/unblock-login/{login}", h.UnblockLogin)
	})
}
