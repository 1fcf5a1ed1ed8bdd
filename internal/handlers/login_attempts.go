package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/BradenHooton/muscuscope/internal/models"
	"github.com/BradenHooton/muscuscope/internal/services"
	pkghttp "github.com/BradenHooton/muscuscope/pkg/http"
	"github.com/go-chi/chi/v5"
)

// LoginAttemptLedgerInterface is the read and admin surface of the login attempt ledger
type LoginAttemptLedgerInterface interface {
	Statistics(ctx context.Context, from, to time.Time) (*models.LoginAttemptStats, error)
	RealTimeStatistics(ctx context.Context) (*services.RealTimeStats, error)
	IPStatus(ctx context.Context, ipAddress string, maxAttempts int, window time.Duration) (*models.BlockStatus, error)
	LoginStatus(ctx context.Context, login string, maxAttempts int, window time.Duration) (*models.BlockStatus, error)
	UnblockIP(ctx context.Context, ipAddress string) error
	UnblockLogin(ctx context.Context, login string) error
}

// defaultStatisticsWindow applies when /statistics is called without a from parameter
const defaultStatisticsWindow = 24 * time.Hour

// LoginAttemptHandler serves the admin login-attempt endpoints
type LoginAttemptHandler struct {
	ledger LoginAttemptLedgerInterface
	logger *slog.Logger
	now    func() time.Time
}

// NewLoginAttemptHandler creates a new LoginAttemptHandler
func NewLoginAttemptHandler(ledger LoginAttemptLedgerInterface, logger *slog.Logger) *LoginAttemptHandler {
	return &LoginAttemptHandler{
		ledger: ledger,
		logger: logger,
		now:    time.Now,
	}
}

// Statistics aggregates attempts over [from, to]
// @Summary Login attempt statistics
// @Produce json
// @Param from query string false "RFC3339 start, defaults to 24h before to"
// @Param to query string false "RFC3339 end, defaults to now"
// @Success 200 {object} models.LoginAttemptStats
// @Failure 400 {object} pkghttp.ErrorResponse
// @Router /admin/login-attempts/statistics [get]
func (h *LoginAttemptHandler) Statistics(w http.ResponseWriter, r *http.Request) {
	to := h.now().UTC()
	if raw := r.URL.Query().Get("to"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			pkghttp.WriteBadRequest(w, "to must be an RFC3339 timestamp")
			return
		}
		to = parsed
	}

	from := to.Add(-defaultStatisticsWindow)
	if raw := r.URL.Query().Get("from"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			pkghttp.WriteBadRequest(w, "from must be an RFC3339 timestamp")
			return
		}
		from = parsed
	}

	stats, err := h.ledger.Statistics(r.Context(), from, to)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, stats)
}

// RealTimeStats returns the last hour, last 24 hours and today windows
// @Router /admin/login-attempts/real-time-stats [get]
func (h *LoginAttemptHandler) RealTimeStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.ledger.RealTimeStatistics(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, stats)
}

// CheckIPStatus reports the throttle view for one IP address
// @Router /admin/login-attempts/check-ip-status/{ip} [get]
func (h *LoginAttemptHandler) CheckIPStatus(w http.ResponseWriter, r *http.Request) {
	ip := chi.URLParam(r, "ip")
	if err := validateVar("ip", ip, "required,ip"); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	status, err := h.ledger.IPStatus(r.Context(), ip, 0, 0)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, status)
}

// CheckLoginStatus reports the throttle view for one login
// @Router /admin/login-attempts/check-login-status/{login} [get]
func (h *LoginAttemptHandler) CheckLoginStatus(w http.ResponseWriter, r *http.Request) {
	login := strings.TrimSpace(chi.URLParam(r, "login"))
	if err := validateVar("login", login, "required,max=255"); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	status, err := h.ledger.LoginStatus(r.Context(), login, 0, 0)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, status)
}

// UnblockIP is not supported: blocks expire with the window
// @Failure 501 {object} pkghttp.ErrorResponse
// @Router /admin/login-attempts/unblock-ip/{ip} [post]
func (h *LoginAttemptHandler) UnblockIP(w http.ResponseWriter, r *http.Request) {
	if err := h.ledger.UnblockIP(r.Context(), chi.URLParam(r, "ip")); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UnblockLogin is not supported: blocks expire with the window
// @Failure 501 {object} pkghttp.ErrorResponse
// @Router /admin/login-attempts/unblock-login/{login} [post]
func (h *LoginAttemptHandler) UnblockLogin(w http.ResponseWriter, r *http.Request) {
	if err := h.ledger.UnblockLogin(r.Context(), chi.URLParam(r, "login")); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
