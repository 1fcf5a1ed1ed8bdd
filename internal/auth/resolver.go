package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/BradenHooton/muscuscope/internal/models"
)

// UserFinder loads users by primary key
type UserFinder interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
}

// UserResolver maps the access token carried by a request to a stored user
type UserResolver struct {
	validator *TokenValidator
	transport *CookieTransport
	users     UserFinder
	logger    *slog.Logger
}

// NewUserResolver creates a UserResolver
func NewUserResolver(validator *TokenValidator, transport *CookieTransport, users UserFinder, logger *slog.Logger) *UserResolver {
	return &UserResolver{
		validator: validator,
		transport: transport,
		users:     users,
		logger:    logger,
	}
}

// Resolve returns the user behind the request's access token.
//
// A request without a token, or whose subject no longer exists, resolves to
// (nil, nil). A present but invalid token yields an AuthError; so does a
// refresh token, which is never accepted as proof of identity here.
func (ur *UserResolver) Resolve(r *http.Request) (*models.User, error) {
	token, ok := ur.transport.ExtractAccessToken(r)
	if !ok {
		return nil, nil
	}

	claims, err := ur.validator.ValidateType(token, models.TokenTypeAccess)
	if err != nil {
		return nil, err
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return nil, models.NewAuthError(models.KindMalformed,
			fmt.Errorf("%w: non-numeric subject", models.ErrTokenMalformed))
	}

	user, err := ur.users.GetByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			ur.logger.Debug("token subject not found", slog.Int64("user_id", userID))
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	return user, nil
}
