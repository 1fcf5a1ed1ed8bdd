package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/BradenHooton/muscuscope/internal/auth"
	"github.com/BradenHooton/muscuscope/internal/models"
	"github.com/BradenHooton/muscuscope/internal/observability"
	pkghttp "github.com/BradenHooton/muscuscope/pkg/http"
)

// writeServiceError maps service errors onto the JSON error envelope.
// Anything unrecognised is logged, reported and rendered as a generic 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	if authErr, ok := models.AsAuthError(err); ok && authErr.StatusCode() != http.StatusInternalServerError {
		auth.WriteAuthError(w, err)
		return
	}

	switch {
	case errors.Is(err, models.ErrBadRequest):
		pkghttp.WriteBadRequest(w, "Invalid request")
	case errors.Is(err, models.ErrUnauthorized):
		pkghttp.WriteUnauthorized(w, "Invalid credentials")
	case errors.Is(err, models.ErrRateLimitExceeded):
		pkghttp.WriteTooManyRequests(w, "Too many failed login attempts. Please try again later.")
	default:
		logger.ErrorContext(r.Context(), "request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		observability.CaptureError(err)
		pkghttp.WriteInternalError(w, "Internal server error")
	}
}
