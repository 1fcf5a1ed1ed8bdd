package auth

import (
	"context"
	"net/http"

	"github.com/BradenHooton/muscuscope/internal/models"
	pkghttp "github.com/BradenHooton/muscuscope/pkg/http"
)

// contextKey is a custom type for context keys
type contextKey string

const (
	// ClaimsContextKey is the key for storing access token claims in context
	ClaimsContextKey contextKey = "claims"
)

// RequireAuth validates the access token carried by the request (cookie first,
// then Bearer header) and injects its claims into the context
func RequireAuth(validator *TokenValidator, transport *CookieTransport) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := transport.ExtractAccessToken(r)
			if !ok {
				pkghttp.WriteUnauthorized(w, "Authentication required")
				return
			}

			claims, err := validator.Validate(token)
			if err != nil {
				WriteAuthError(w, err)
				return
			}

			// Refresh tokens are only accepted by the refresh endpoint
			if !validator.IsType(claims, models.TokenTypeAccess) {
				WriteAuthError(w, models.NewAuthError(models.KindWrongTokenType, models.ErrWrongTokenType))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

// RequireRole rejects requests whose access token does not carry role.
// Must be mounted after RequireAuth.
func RequireRole(role string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := GetClaimsFromContext(r.Context())
			if claims == nil {
				pkghttp.WriteUnauthorized(w, "Authentication required")
				return
			}
			if !claims.HasRole(role) {
				pkghttp.WriteForbidden(w, "Insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WithClaims returns a copy of ctx carrying claims
func WithClaims(ctx context.Context, claims *models.TokenClaims) context.Context {
	return context.WithValue(ctx, ClaimsContextKey, claims)
}

// GetClaimsFromContext extracts access token claims from ctx
func GetClaimsFromContext(ctx context.Context) *models.TokenClaims {
	claims, ok := ctx.Value(ClaimsContextKey).(*models.TokenClaims)
	if !ok {
		return nil
	}
	return claims
}

// WriteAuthError renders err with the status of its AuthError kind.
// The body never names the kind beyond a generic message.
func WriteAuthError(w http.ResponseWriter, err error) {
	authErr, ok := models.AsAuthError(err)
	if !ok {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	status := authErr.StatusCode()
	switch status {
	case http.StatusBadRequest:
		pkghttp.WriteBadRequest(w, authErr.Message)
	case http.StatusUnauthorized:
		pkghttp.WriteUnauthorized(w, authErr.Message)
	case http.StatusNotImplemented:
		pkghttp.WriteNotImplemented(w, authErr.Message)
	default:
		pkghttp.WriteInternalError(w, "Internal server error")
	}
}
