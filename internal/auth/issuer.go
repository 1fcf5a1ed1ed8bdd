package auth

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/BradenHooton/muscuscope/internal/config"
	"github.com/BradenHooton/muscuscope/internal/models"
	"github.com/google/uuid"
)

// TokenIssuer builds claim sets for a user and signs them
type TokenIssuer struct {
	codec  *TokenCodec
	cfg    config.AuthConfig
	logger *slog.Logger
	now    func() time.Time
}

// NewTokenIssuer creates a TokenIssuer. cfg supplies issuer, audience and TTLs.
func NewTokenIssuer(codec *TokenCodec, cfg config.AuthConfig, logger *slog.Logger) *TokenIssuer {
	return &TokenIssuer{
		codec:  codec,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

// SetClock overrides the time source used for iat/nbf/exp
func (ti *TokenIssuer) SetClock(now func() time.Time) {
	ti.now = now
}

// IssueAccessToken mints a short-lived access token carrying the user's roles
func (ti *TokenIssuer) IssueAccessToken(user *models.User, extra ExtraClaims) (string, error) {
	token, _, err := ti.issue(user, models.TokenTypeAccess, ti.cfg.AccessTokenExpiry, extra)
	return token, err
}

// IssueRefreshToken mints a long-lived refresh token. Refresh tokens carry no roles.
func (ti *TokenIssuer) IssueRefreshToken(user *models.User, extra ExtraClaims) (string, error) {
	token, _, err := ti.issue(user, models.TokenTypeRefresh, ti.cfg.RefreshTokenExpiry, extra)
	return token, err
}

// IssueTokenPair mints an access and a refresh token with independent jtis
func (ti *TokenIssuer) IssueTokenPair(user *models.User, extra ExtraClaims) (*models.TokenPair, error) {
	access, accessClaims, err := ti.issue(user, models.TokenTypeAccess, ti.cfg.AccessTokenExpiry, extra)
	if err != nil {
		return nil, err
	}

	refresh, refreshClaims, err := ti.issue(user, models.TokenTypeRefresh, ti.cfg.RefreshTokenExpiry, extra)
	if err != nil {
		return nil, err
	}

	ti.logger.Info("token pair issued",
		slog.String("user_id", user.Subject()),
		slog.String("access_jti", accessClaims.TokenID),
		slog.String("refresh_jti", refreshClaims.TokenID),
	)

	return &models.TokenPair{
		AccessToken:             access,
		RefreshToken:            refresh,
		TokenType:               "Bearer",
		AccessExpiresInSeconds:  int(ti.cfg.AccessTokenExpiry / time.Second),
		RefreshExpiresInSeconds: int(ti.cfg.RefreshTokenExpiry / time.Second),
	}, nil
}

func (ti *TokenIssuer) issue(user *models.User, tokenType models.TokenType, ttl time.Duration, extra ExtraClaims) (string, *models.TokenClaims, error) {
	if user == nil {
		return "", nil, models.NewAuthError(models.KindSigningFailed, fmt.Errorf("%w: no user", models.ErrSigningFailed))
	}

	seconds := int64(ttl / time.Second)
	if seconds < 1 {
		seconds = 1
	}

	now := ti.now().Unix()
	claims := &models.TokenClaims{
		Issuer:    ti.cfg.Issuer,
		Audience:  ti.cfg.Audience,
		IssuedAt:  now,
		NotBefore: now,
		ExpiresAt: now + seconds,
		TokenID:   uuid.New().String(),
		Subject:   user.Subject(),
		Username:  user.Username,
		Type:      tokenType,
	}
	if tokenType == models.TokenTypeAccess {
		claims.Roles = append([]string{}, user.Roles...)
	}

	payload := claimsToMap(claims)
	for key, value := range extra {
		if protectedClaims[key] {
			ti.logger.Warn("ignoring protected claim override", slog.String("claim", key))
			continue
		}
		payload[key] = value
	}

	signed, err := ti.codec.Encode(payload)
	if err != nil {
		ti.logger.Error("failed to sign token",
			slog.String("user_id", claims.Subject),
			slog.String("token_type", string(tokenType)),
			slog.Any("error", err))
		return "", nil, models.NewAuthError(models.KindSigningFailed, err)
	}

	return signed, claims, nil
}
