package middleware

import (
	"net/http"
	"time"

	pkghttp "github.com/BradenHooton/muscuscope/pkg/http"
	"github.com/go-chi/httprate"
)

// RateLimitConfig holds request rate limiting configuration.
// This caps raw request volume; credential failures are throttled separately by the login ledger.
type RateLimitConfig struct {
	RequestsPerMinute int
	IPConfig          *pkghttp.IPConfig
}

// DefaultAuthRateLimit returns default rate limit config for auth endpoints (20 requests per minute)
func DefaultAuthRateLimit(ipConfig *pkghttp.IPConfig) RateLimitConfig {
	return RateLimitConfig{
		RequestsPerMinute: 20,
		IPConfig:          ipConfig,
	}
}

// RateLimitByIP creates a middleware that rate limits requests by client IP.
// The key honours forwarded headers only from trusted proxies.
func RateLimitByIP(config RateLimitConfig) func(next http.Handler) http.Handler {
	return httprate.Limit(
		config.RequestsPerMinute,
		time.Minute,
		httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
			return pkghttp.ExtractClientIP(r, config.IPConfig), nil
		}),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			pkghttp.WriteTooManyRequests(w, "Rate limit exceeded")
		}),
	)
}
