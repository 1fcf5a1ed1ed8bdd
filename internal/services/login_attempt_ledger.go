package services

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/BradenHooton/muscuscope/internal/config"
	"github.com/BradenHooton/muscuscope/internal/metrics"
	"github.com/BradenHooton/muscuscope/internal/models"
)

// LoginAttemptRepository is the storage behind the ledger
type LoginAttemptRepository interface {
	Insert(ctx context.Context, attempt *models.LoginAttempt) error
	CountFailuresByIP(ctx context.Context, ipAddress string, since, until time.Time) (int, error)
	CountFailuresByLogin(ctx context.Context, login string, since, until time.Time) (int, error)
	CountBetween(ctx context.Context, from, to time.Time) (total, successful int, err error)
}

// RealTimeStats groups the rolling windows shown on the admin dashboard
type RealTimeStats struct {
	LastHour       *models.LoginAttemptStats `json:"last_hour"`
	Last24Hours    *models.LoginAttemptStats `json:"last_24_hours"`
	Today          *models.LoginAttemptStats `json:"today"`
	GeneratedAt    time.Time                 `json:"generated_at"`
	IPThreshold    int                       `json:"ip_threshold"`
	LoginThreshold int                       `json:"login_threshold"`
}

// LoginAttemptLedger is the append-only audit trail of login attempts and the
// advisory throttle signals derived from it. Blocking is computed on every check;
// callers decide whether to reject.
type LoginAttemptLedger struct {
	repo    LoginAttemptRepository
	config  config.ThrottleConfig
	logger  *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewLoginAttemptLedger creates a ledger. metrics may be nil.
func NewLoginAttemptLedger(repo LoginAttemptRepository, cfg config.ThrottleConfig, logger *slog.Logger, m *metrics.Metrics) *LoginAttemptLedger {
	return &LoginAttemptLedger{
		repo:    repo,
		config:  cfg,
		logger:  logger,
		metrics: m,
		now:     time.Now,
	}
}

// SetClock overrides the ledger's time source
func (l *LoginAttemptLedger) SetClock(now func() time.Time) {
	l.now = now
}

// Record appends an attempt. A zero at means now. Persistence failures are returned.
func (l *LoginAttemptLedger) Record(ctx context.Context, login string, success bool, ipAddress string, at time.Time) (*models.LoginAttempt, error) {
	if at.IsZero() {
		at = l.now()
	}

	attempt := &models.LoginAttempt{
		AttemptedAt: at.UTC(),
		Login:       login,
		IPAddress:   ipAddress,
		Success:     success,
	}

	if err := l.repo.Insert(ctx, attempt); err != nil {
		l.metrics.ObserveLedgerWriteError()
		l.logger.Error("failed to record login attempt",
			slog.String("ip_address", ipAddress),
			slog.Bool("success", success),
			slog.Any("error", err))
		return nil, fmt.Errorf("failed to record login attempt: %w", err)
	}

	return attempt, nil
}

// CountRecentFailures counts failed attempts from ipAddress in [now-window, now].
// A non-positive window uses the configured IP window.
func (l *LoginAttemptLedger) CountRecentFailures(ctx context.Context, ipAddress string, window time.Duration) (int, error) {
	if window <= 0 {
		window = l.config.IPWindow
	}
	now := l.now()
	return l.repo.CountFailuresByIP(ctx, ipAddress, now.Add(-window), now)
}

// CountRecentFailuresForLogin counts failed attempts for login in [now-window, now].
// A non-positive window uses the configured login window.
func (l *LoginAttemptLedger) CountRecentFailuresForLogin(ctx context.Context, login string, window time.Duration) (int, error) {
	if window <= 0 {
		window = l.config.LoginWindow
	}
	now := l.now()
	return l.repo.CountFailuresByLogin(ctx, login, now.Add(-window), now)
}

// IsIPBlocked reports whether ipAddress reached maxAttempts failures within window.
// Zero values fall back to the configured thresholds.
func (l *LoginAttemptLedger) IsIPBlocked(ctx context.Context, ipAddress string, maxAttempts int, window time.Duration) (bool, error) {
	status, err := l.IPStatus(ctx, ipAddress, maxAttempts, window)
	if err != nil {
		return false, err
	}
	return status.Blocked, nil
}

// IsLoginBlocked reports whether login reached maxAttempts failures within window
func (l *LoginAttemptLedger) IsLoginBlocked(ctx context.Context, login string, maxAttempts int, window time.Duration) (bool, error) {
	status, err := l.LoginStatus(ctx, login, maxAttempts, window)
	if err != nil {
		return false, err
	}
	return status.Blocked, nil
}

// IPStatus returns the failure count and blocked flag for ipAddress
func (l *LoginAttemptLedger) IPStatus(ctx context.Context, ipAddress string, maxAttempts int, window time.Duration) (*models.BlockStatus, error) {
	if maxAttempts <= 0 {
		maxAttempts = l.config.MaxFailuresPerIP
	}
	if window <= 0 {
		window = l.config.IPWindow
	}

	count, err := l.CountRecentFailures(ctx, ipAddress, window)
	if err != nil {
		return nil, fmt.Errorf("failed to count failures for ip: %w", err)
	}

	return &models.BlockStatus{
		Key:            ipAddress,
		RecentFailures: count,
		MaxAttempts:    maxAttempts,
		WindowMinutes:  int(window / time.Minute),
		Blocked:        count >= maxAttempts,
	}, nil
}

// LoginStatus returns the failure count and blocked flag for login
func (l *LoginAttemptLedger) LoginStatus(ctx context.Context, login string, maxAttempts int, window time.Duration) (*models.BlockStatus, error) {
	if maxAttempts <= 0 {
		maxAttempts = l.config.MaxFailuresPerLogin
	}
	if window <= 0 {
		window = l.config.LoginWindow
	}

	count, err := l.CountRecentFailuresForLogin(ctx, login, window)
	if err != nil {
		return nil, fmt.Errorf("failed to count failures for login: %w", err)
	}

	return &models.BlockStatus{
		Key:            login,
		RecentFailures: count,
		MaxAttempts:    maxAttempts,
		WindowMinutes:  int(window / time.Minute),
		Blocked:        count >= maxAttempts,
	}, nil
}

// Statistics aggregates attempts in the closed interval [from, to]
func (l *LoginAttemptLedger) Statistics(ctx context.Context, from, to time.Time) (*models.LoginAttemptStats, error) {
	if to.Before(from) {
		return nil, fmt.Errorf("%w: 'to' is before 'from'", models.ErrBadRequest)
	}

	total, successful, err := l.repo.CountBetween(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to compute login statistics: %w", err)
	}

	return &models.LoginAttemptStats{
		From:               from.UTC(),
		To:                 to.UTC(),
		Total:              total,
		Successful:         successful,
		Failed:             total - successful,
		SuccessRatePercent: successRate(successful, total),
	}, nil
}

// RealTimeStatistics returns statistics for the last hour, the last 24 hours
// and the current UTC day
func (l *LoginAttemptLedger) RealTimeStatistics(ctx context.Context) (*RealTimeStats, error) {
	now := l.now().UTC()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	lastHour, err := l.Statistics(ctx, now.Add(-time.Hour), now)
	if err != nil {
		return nil, err
	}
	lastDay, err := l.Statistics(ctx, now.Add(-24*time.Hour), now)
	if err != nil {
		return nil, err
	}
	today, err := l.Statistics(ctx, midnight, now)
	if err != nil {
		return nil, err
	}

	return &RealTimeStats{
		LastHour:       lastHour,
		Last24Hours:    lastDay,
		Today:          today,
		GeneratedAt:    now,
		IPThreshold:    l.config.MaxFailuresPerIP,
		LoginThreshold: l.config.MaxFailuresPerLogin,
	}, nil
}

// UnblockIP is not supported: blocks only age out of their window
func (l *LoginAttemptLedger) UnblockIP(ctx context.Context, ipAddress string) error {
	l.logger.Warn("unblock requested for ip but not implemented", slog.String("ip_address", ipAddress))
	return models.NewAuthError(models.KindNotImplemented, models.ErrNotImplemented)
}

// UnblockLogin is not supported: blocks only age out of their window
func (l *LoginAttemptLedger) UnblockLogin(ctx context.Context, login string) error {
	l.logger.Warn("unblock requested for login but not implemented")
	return models.NewAuthError(models.KindNotImplemented, models.ErrNotImplemented)
}

func successRate(successful, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(successful)/float64(total)*100*100) / 100
}
