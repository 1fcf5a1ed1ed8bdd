package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/BradenHooton/muscuscope/internal/auth"
	"github.com/BradenHooton/muscuscope/internal/models"
	pkghttp "github.com/BradenHooton/muscuscope/pkg/http"
)

// TokenHandler serves refresh and token introspection endpoints
type TokenHandler struct {
	service   AuthServiceInterface
	validator *auth.TokenValidator
	transport *auth.CookieTransport
	ipConfig  *pkghttp.IPConfig
	logger    *slog.Logger
	now       func() time.Time
}

// NewTokenHandler creates a new TokenHandler
func NewTokenHandler(
	service AuthServiceInterface,
	validator *auth.TokenValidator,
	transport *auth.CookieTransport,
	ipConfig *pkghttp.IPConfig,
	logger *slog.Logger,
) *TokenHandler {
	return &TokenHandler{
		service:   service,
		validator: validator,
		transport: transport,
		ipConfig:  ipConfig,
		logger:    logger,
		now:       time.Now,
	}
}

// ValidateTokenRequest represents the request body for token validation
type ValidateTokenRequest struct {
	Token string `json:"token" validate:"required"`
}

// ClaimsResponse is the client-visible summary of a token's claims
type ClaimsResponse struct {
	Valid         bool     `json:"valid"`
	Subject       string   `json:"sub"`
	Username      string   `json:"username,omitempty"`
	Roles         []string `json:"roles,omitempty"`
	TokenType     string   `json:"token_type"`
	TokenID       string   `json:"jti"`
	Issuer        string   `json:"iss"`
	Audience      string   `json:"aud"`
	IssuedAt      int64    `json:"iat"`
	NotBefore     int64    `json:"nbf,omitempty"`
	ExpiresAt     int64    `json:"exp"`
	ExpiresIn     int64    `json:"expires_in"`
	LoginTime     *int64   `json:"login_time,omitempty"`
	RefreshedFrom string   `json:"refreshed_from,omitempty"`
}

func newClaimsResponse(c *models.TokenClaims, now time.Time) ClaimsResponse {
	tokenType := c.Type
	if tokenType == "" {
		tokenType = models.TokenTypeAccess
	}
	expiresIn := c.ExpiresAt - now.Unix()
	if expiresIn < 0 {
		expiresIn = 0
	}
	return ClaimsResponse{
		Valid:         true,
		Subject:       c.Subject,
		Username:      c.Username,
		Roles:         c.Roles,
		TokenType:     string(tokenType),
		TokenID:       c.TokenID,
		Issuer:        c.Issuer,
		Audience:      c.Audience,
		IssuedAt:      c.IssuedAt,
		NotBefore:     c.NotBefore,
		ExpiresAt:     c.ExpiresAt,
		ExpiresIn:     expiresIn,
		LoginTime:     c.LoginTime,
		RefreshedFrom: c.RefreshedFrom,
	}
}

// Refresh exchanges a refresh token for a new token pair
// @Summary Refresh tokens
// @Accept json
// @Produce json
// @Success 200 {object} models.TokenPair
// @Failure 400 {object} pkghttp.ErrorResponse
// @Failure 401 {object} pkghttp.ErrorResponse
// @Router /token/refresh [post]
func (h *TokenHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	token, ok := h.transport.ExtractRefreshToken(r)
	if !ok {
		pkghttp.WriteBadRequest(w, "Refresh token is required")
		return
	}

	result, err := h.service.Refresh(r.Context(), token,
		pkghttp.ExtractClientIP(r, h.ipConfig), r.Header.Get("User-Agent"))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	h.transport.Attach(w, r, result.Tokens)
	pkghttp.WriteJSON(w, http.StatusOK, result.Tokens)
}

// Validate reports whether the posted token is valid and summarises its claims.
// Every failure is a 400 with the kind's client message.
// @Summary Validate a token
// @Accept json
// @Produce json
// @Param request body ValidateTokenRequest true "Token"
// @Success 200 {object} ClaimsResponse
// @Failure 400 {object} pkghttp.ErrorResponse
// @Router /token/validate [post]
func (h *TokenHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var req ValidateTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	claims, err := h.validator.Validate(req.Token)
	if err != nil {
		h.writeTokenError(w, err, pkghttp.WriteBadRequest)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, newClaimsResponse(claims, h.now()))
}

// Info returns the claims of the bearer token
// @Summary Token info
// @Produce json
// @Security BearerAuth
// @Success 200 {object} ClaimsResponse
// @Failure 401 {object} pkghttp.ErrorResponse
// @Router /token/info [get]
func (h *TokenHandler) Info(w http.ResponseWriter, r *http.Request) {
	token, ok := h.validator.ExtractFromAuthorizationHeader(r.Header.Get("Authorization"))
	if !ok {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	claims, err := h.validator.Validate(token)
	if err != nil {
		h.writeTokenError(w, err, pkghttp.WriteUnauthorized)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, newClaimsResponse(claims, h.now()))
}

func (h *TokenHandler) writeTokenError(w http.ResponseWriter, err error, write func(http.ResponseWriter, string)) {
	authErr, ok := models.AsAuthError(err)
	if !ok {
		h.logger.Error("token validation failed unexpectedly", slog.Any("error", err))
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}
	write(w, authErr.Message)
}
