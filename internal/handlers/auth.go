package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/BradenHooton/muscuscope/internal/auth"
	"github.com/BradenHooton/muscuscope/internal/models"
	"github.com/BradenHooton/muscuscope/internal/services"
	pkghttp "github.com/BradenHooton/muscuscope/pkg/http"
)

// AuthServiceInterface defines the interface for auth business logic
type AuthServiceInterface interface {
	Login(ctx context.Context, req services.LoginRequest) (*services.AuthResult, error)
	Refresh(ctx context.Context, refreshToken, ipAddress, userAgent string) (*services.AuthResult, error)
}

// UserResolverInterface resolves the user behind a request's access token
type UserResolverInterface interface {
	Resolve(r *http.Request) (*models.User, error)
}

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	service   AuthServiceInterface
	resolver  UserResolverInterface
	transport *auth.CookieTransport
	ipConfig  *pkghttp.IPConfig
	logger    *slog.Logger
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(
	service AuthServiceInterface,
	resolver UserResolverInterface,
	transport *auth.CookieTransport,
	ipConfig *pkghttp.IPConfig,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		service:   service,
		resolver:  resolver,
		transport: transport,
		ipConfig:  ipConfig,
		logger:    logger,
	}
}

// LoginRequest represents the request body for login.
// Login is either the username or the email address.
type LoginRequest struct {
	Login    string `json:"login" validate:"required,max=255"`
	Password string `json:"password" validate:"required,max=1024"`
}

// UserResponse is the public view of a user
type UserResponse struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Roles     []string  `json:"roles"`
	CreatedAt time.Time `json:"created_at"`
}

func newUserResponse(u *models.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Roles:     u.Roles,
		CreatedAt: u.CreatedAt,
	}
}

// Login handles user login
// @Summary User login
// @Accept json
// @Param request body LoginRequest true "Login request"
// @Produce json
// @Success 200 {object} models.TokenPair
// @Failure 400 {object} pkghttp.ErrorResponse
// @Failure 401 {object} pkghttp.ErrorResponse
// @Failure 429 {object} pkghttp.ErrorResponse
// @Failure 500 {object} pkghttp.ErrorResponse
// @Router /auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	req.Login = strings.TrimSpace(req.Login)
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	result, err := h.service.Login(r.Context(), services.LoginRequest{
		Login:     req.Login,
		Password:  req.Password,
		IPAddress: pkghttp.ExtractClientIP(r, h.ipConfig),
		UserAgent: r.Header.Get("User-Agent"),
	})
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	h.transport.Attach(w, r, result.Tokens)
	pkghttp.WriteJSON(w, http.StatusOK, result.Tokens)
}

// Logout clears the session cookies. Tokens stay valid until they expire.
// @Summary User logout
// @Success 204
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.transport.Clear(w, r)
	w.WriteHeader(http.StatusNoContent)
}

// Me returns the user behind the current access token
// @Summary Current user
// @Produce json
// @Success 200 {object} UserResponse
// @Failure 401 {object} pkghttp.ErrorResponse
// @Router /auth/me [get]
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.resolver.Resolve(r)
	if err != nil {
		if _, ok := models.AsAuthError(err); ok {
			pkghttp.WriteUnauthorized(w, "Authentication required")
			return
		}
		writeServiceError(w, r, h.logger, err)
		return
	}
	if user == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, newUserResponse(user))
}
