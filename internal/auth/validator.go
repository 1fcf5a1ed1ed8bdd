package auth

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/BradenHooton/muscuscope/internal/metrics"
	"github.com/BradenHooton/muscuscope/internal/models"
)

const bearerPrefix = "Bearer "

// TokenValidator verifies inbound tokens and translates codec failures
// into caller-facing AuthError kinds
type TokenValidator struct {
	codec   *TokenCodec
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewTokenValidator creates a TokenValidator
func NewTokenValidator(codec *TokenCodec, logger *slog.Logger) *TokenValidator {
	return &TokenValidator{
		codec:  codec,
		logger: logger,
	}
}

// SetMetrics enables validation outcome counters
func (tv *TokenValidator) SetMetrics(m *metrics.Metrics) {
	tv.metrics = m
}

// Validate verifies signature, expiry and not-before, then decodes the claims
func (tv *TokenValidator) Validate(token string) (*models.TokenClaims, error) {
	if strings.TrimSpace(token) == "" {
		tv.metrics.ObserveValidation(string(models.KindMalformed))
		return nil, models.NewAuthError(models.KindMalformed, models.ErrTokenMalformed)
	}

	payload, err := tv.codec.Decode(token)
	if err != nil {
		kind := kindForCodecError(err)
		tv.logger.Debug("token validation failed", slog.String("reason", string(kind)), slog.Any("error", err))
		tv.metrics.ObserveValidation(string(kind))
		return nil, models.NewAuthError(kind, err)
	}

	claims, err := claimsFromMap(payload)
	if err != nil {
		tv.metrics.ObserveValidation(string(models.KindMalformed))
		return nil, models.NewAuthError(models.KindMalformed, fmt.Errorf("%w: %w", models.ErrTokenMalformed, err))
	}

	tv.metrics.ObserveValidation("valid")
	return claims, nil
}

// ValidateType validates token and additionally requires its type to be expected
func (tv *TokenValidator) ValidateType(token string, expected models.TokenType) (*models.TokenClaims, error) {
	claims, err := tv.Validate(token)
	if err != nil {
		return nil, err
	}
	if !tv.IsType(claims, expected) {
		return nil, models.NewAuthError(models.KindWrongTokenType,
			fmt.Errorf("%w: expected %s", models.ErrWrongTokenType, expected))
	}
	return claims, nil
}

// IsType reports whether claims are of the expected type. Tokens without a type
// claim are treated as access tokens.
func (tv *TokenValidator) IsType(claims *models.TokenClaims, expected models.TokenType) bool {
	if claims == nil {
		return false
	}
	actual := claims.Type
	if actual == "" {
		actual = models.TokenTypeAccess
	}
	return actual == expected
}

// ExtractFromAuthorizationHeader returns the token following a case-sensitive
// "Bearer " prefix. ok is false for a missing header, another scheme or an empty token.
func (tv *TokenValidator) ExtractFromAuthorizationHeader(header string) (token string, ok bool) {
	return bearerToken(header)
}

func bearerToken(header string) (string, bool) {
	if !strings.HasPrefix(header, bearerPrefix) {
		return "", false
	}
	token := header[len(bearerPrefix):]
	if token == "" {
		return "", false
	}
	return token, true
}

func kindForCodecError(err error) models.AuthErrorKind {
	switch {
	case errors.Is(err, models.ErrTokenExpired):
		return models.KindExpired
	case errors.Is(err, models.ErrInvalidSignature):
		return models.KindInvalidSignature
	case errors.Is(err, models.ErrTokenNotYetValid):
		return models.KindNotYetValid
	default:
		return models.KindMalformed
	}
}
