package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/BradenHooton/muscuscope/internal/auth"
	"github.com/BradenHooton/muscuscope/internal/metrics"
	"github.com/BradenHooton/muscuscope/internal/models"
	pkgauth "github.com/BradenHooton/muscuscope/pkg/auth"
	pkglogger "github.com/BradenHooton/muscuscope/pkg/logger"
)

// UserRepository is the user lookup used by login and refresh
type UserRepository interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByLogin(ctx context.Context, login string) (*models.User, error)
}

// LoginRequest carries the credentials and request context of one login
type LoginRequest struct {
	Login     string
	Password  string
	IPAddress string
	UserAgent string
}

// AuthResult is the outcome of a successful login or refresh
type AuthResult struct {
	Tokens *models.TokenPair
	User   *models.User
}

// AuthService runs the login and refresh flows on top of the issuer, validator and ledger
type AuthService struct {
	users       UserRepository
	issuer      *auth.TokenIssuer
	validator   *auth.TokenValidator
	ledger      *LoginAttemptLedger
	timing      *auth.TimingDelay
	auditLogger *pkglogger.AuditLogger
	metrics     *metrics.Metrics
	logger      *slog.Logger

	comparePassword func(hash, password string) error
	compareDummy    func(password string)
	now             func() time.Time
}

// NewAuthService creates a new AuthService. timing and m may be nil.
func NewAuthService(
	users UserRepository,
	issuer *auth.TokenIssuer,
	validator *auth.TokenValidator,
	ledger *LoginAttemptLedger,
	timing *auth.TimingDelay,
	auditLogger *pkglogger.AuditLogger,
	m *metrics.Metrics,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:           users,
		issuer:          issuer,
		validator:       validator,
		ledger:          ledger,
		timing:          timing,
		auditLogger:     auditLogger,
		metrics:         m,
		logger:          logger,
		comparePassword: pkgauth.ComparePassword,
		compareDummy:    pkgauth.CompareDummyPassword,
		now:             time.Now,
	}
}

// Login verifies credentials and issues a token pair.
//
// IP and login blocks are checked first and reject with ErrRateLimitExceeded
// without recording an attempt. Every credential check, successful or not, is
// recorded in the ledger; a failed ledger write fails the login. Wrong password
// and unknown login both return ErrUnauthorized after the same delay.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*AuthResult, error) {
	start := s.now()
	login := strings.TrimSpace(req.Login)
	if login == "" || req.Password == "" {
		return nil, fmt.Errorf("%w: login and password are required", models.ErrBadRequest)
	}

	if err := s.checkThrottle(ctx, login, req.IPAddress); err != nil {
		return nil, err
	}

	user, err := s.users.GetByLogin(ctx, login)
	switch {
	case errors.Is(err, models.ErrNotFound):
		s.compareDummy(req.Password)
		return nil, s.rejectLogin(ctx, start, req, login, "invalid_credentials")
	case err != nil:
		s.logger.Error("failed to load user for login", slog.Any("error", err))
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	if err := s.comparePassword(user.PasswordHash, req.Password); err != nil {
		return nil, s.rejectLogin(ctx, start, req, login, "invalid_credentials")
	}

	if _, err := s.ledger.Record(ctx, login, true, req.IPAddress, start); err != nil {
		return nil, err
	}

	pair, err := s.issuer.IssueTokenPair(user, auth.SessionContext(req.IPAddress, req.UserAgent, start))
	if err != nil {
		return nil, err
	}

	s.metrics.ObserveLogin("success")
	s.metrics.ObserveIssued(string(models.TokenTypeAccess))
	s.metrics.ObserveIssued(string(models.TokenTypeRefresh))
	s.auditLogger.LogLoginAttempt(ctx, pkglogger.AuditEvent{
		UserID:    user.Subject(),
		Login:     login,
		IPAddress: req.IPAddress,
		UserAgent: req.UserAgent,
		Success:   true,
	})
	s.auditLogger.LogTokenIssued(ctx, user.Subject(), req.IPAddress, req.UserAgent)
	s.logger.Info("user logged in", slog.String("user_id", user.Subject()))

	s.timing.WaitFrom(ctx, start, true)
	return &AuthResult{Tokens: pair, User: user}, nil
}

// Refresh exchanges a valid refresh token for a new pair. The new tokens carry
// the original login_time and record the presented token's jti in refreshed_from.
func (s *AuthService) Refresh(ctx context.Context, refreshToken, ipAddress, userAgent string) (*AuthResult, error) {
	claims, err := s.validator.ValidateType(strings.TrimSpace(refreshToken), models.TokenTypeRefresh)
	if err != nil {
		s.metrics.ObserveRefresh("rejected")
		s.auditLogger.LogTokenRefreshed(ctx, "", "", ipAddress, false, failureKind(err))
		return nil, err
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		s.metrics.ObserveRefresh("rejected")
		return nil, models.NewAuthError(models.KindMalformed,
			fmt.Errorf("%w: non-numeric subject", models.ErrTokenMalformed))
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.metrics.ObserveRefresh("rejected")
			s.auditLogger.LogTokenRefreshed(ctx, claims.Subject, claims.TokenID, ipAddress, false, "user_not_found")
			return nil, models.NewAuthError(models.KindUserNotFound, models.ErrUserNotFound)
		}
		s.logger.Error("failed to load user for refresh", slog.Int64("user_id", userID), slog.Any("error", err))
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	extra := auth.ExtraClaims{auth.ClaimRefreshedFrom: claims.TokenID}
	if claims.LoginTime != nil {
		extra[auth.ClaimLoginTime] = *claims.LoginTime
	}
	if ipAddress != "" {
		extra[auth.ClaimIPAddress] = ipAddress
	}
	if userAgent != "" {
		extra[auth.ClaimUserAgent] = userAgent
	}

	pair, err := s.issuer.IssueTokenPair(user, extra)
	if err != nil {
		return nil, err
	}

	s.metrics.ObserveRefresh("success")
	s.metrics.ObserveIssued(string(models.TokenTypeAccess))
	s.metrics.ObserveIssued(string(models.TokenTypeRefresh))
	s.auditLogger.LogTokenRefreshed(ctx, user.Subject(), claims.TokenID, ipAddress, true, "")
	return &AuthResult{Tokens: pair, User: user}, nil
}

func (s *AuthService) checkThrottle(ctx context.Context, login, ipAddress string) error {
	ipBlocked, err := s.ledger.IsIPBlocked(ctx, ipAddress, 0, 0)
	if err != nil {
		s.logger.Error("failed to check ip throttle", slog.Any("error", err))
		return err
	}
	if ipBlocked {
		s.metrics.ObserveThrottle("ip")
		s.logger.Warn("login rejected: ip blocked", slog.String("ip_address", ipAddress))
		return models.ErrRateLimitExceeded
	}

	loginBlocked, err := s.ledger.IsLoginBlocked(ctx, login, 0, 0)
	if err != nil {
		s.logger.Error("failed to check login throttle", slog.Any("error", err))
		return err
	}
	if loginBlocked {
		s.metrics.ObserveThrottle("login")
		s.logger.Warn("login rejected: login blocked", slog.String("login", pkglogger.SanitizedLogin(login)))
		return models.ErrRateLimitExceeded
	}

	return nil
}

// rejectLogin records the failed attempt and pads the response time
func (s *AuthService) rejectLogin(ctx context.Context, start time.Time, req LoginRequest, login, reason string) error {
	if _, err := s.ledger.Record(ctx, login, false, req.IPAddress, start); err != nil {
		return err
	}

	s.metrics.ObserveLogin("failure")
	s.auditLogger.LogLoginAttempt(ctx, pkglogger.AuditEvent{
		Login:         login,
		IPAddress:     req.IPAddress,
		UserAgent:     req.UserAgent,
		Success:       false,
		FailureReason: reason,
	})

	s.timing.WaitFrom(ctx, start, false)
	return models.ErrUnauthorized
}

func failureKind(err error) string {
	if authErr, ok := models.AsAuthError(err); ok {
		return string(authErr.Kind)
	}
	return "error"
}
