package logger

import (
	"context"
	"log/slog"
	"time"
)

// AuditEvent represents a security audit event
type AuditEvent struct {
	EventType     string
	UserID        string
	Login         string // sanitized before logging
	IPAddress     string
	UserAgent     string
	TokenID       string
	Success       bool
	FailureReason string
}

// AuditLogger writes structured "audit" records for authentication events
type AuditLogger struct {
	logger *slog.Logger
}

// NewAuditLogger creates a new audit logger
func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	return &AuditLogger{
		logger: logger,
	}
}

// LogLoginAttempt logs the outcome of a login attempt
func (al *AuditLogger) LogLoginAttempt(ctx context.Context, event AuditEvent) {
	if event.EventType == "" {
		event.EventType = "login_failed"
		if event.Success {
			event.EventType = "login_success"
		}
	}
	al.log(ctx, "auth", event)
}

// LogTokenIssued logs issuance of a token pair at login
func (al *AuditLogger) LogTokenIssued(ctx context.Context, userID, ipAddress, userAgent string) {
	al.log(ctx, "token", AuditEvent{
		EventType: "token_issued",
		UserID:    userID,
		IPAddress: ipAddress,
		UserAgent: userAgent,
		Success:   true,
	})
}

// LogTokenRefreshed logs a refresh, successful or not. previousJTI is the
// jti of the refresh token presented.
func (al *AuditLogger) LogTokenRefreshed(ctx context.Context, userID, previousJTI, ipAddress string, success bool, reason string) {
	al.log(ctx, "token", AuditEvent{
		EventType:     "token_refreshed",
		UserID:        userID,
		TokenID:       previousJTI,
		IPAddress:     ipAddress,
		Success:       success,
		FailureReason: reason,
	})
}

func (al *AuditLogger) log(ctx context.Context, auditType string, event AuditEvent) {
	attrs := []slog.Attr{
		slog.String("audit_type", auditType),
		slog.String("event_type", event.EventType),
		slog.Bool("success", event.Success),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	}

	if event.UserID != "" {
		attrs = append(attrs, slog.String("user_id", event.UserID))
	}
	if event.Login != "" {
		attrs = append(attrs, slog.String("login", SanitizedLogin(event.Login)))
	}
	if event.IPAddress != "" {
		attrs = append(attrs, slog.String("ip_address", event.IPAddress))
	}
	if event.UserAgent != "" {
		attrs = append(attrs, slog.String("user_agent", event.UserAgent))
	}
	if event.TokenID != "" {
		attrs = append(attrs, slog.String("jti", event.TokenID))
	}
	if event.FailureReason != "" {
		attrs = append(attrs, slog.String("failure_reason", event.FailureReason))
	}

	level := slog.LevelInfo
	if !event.Success {
		level = slog.LevelWarn
	}
	al.logger.LogAttrs(ctx, level, "audit", attrs...)
}
