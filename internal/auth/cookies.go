package auth

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/BradenHooton/muscuscope/internal/models"
	pkghttp "github.com/BradenHooton/muscuscope/pkg/http"
)

const (
	AccessTokenCookie  = "access_token"
	RefreshTokenCookie = "refresh_token"

	maxRefreshBodyBytes = 64 << 10
)

// CookieConfig holds cookie configuration settings
type CookieConfig struct {
	Domain      string // Empty string = current host only
	RefreshPath string // Only path the refresh cookie is sent to
	IPConfig    *pkghttp.IPConfig
}

// CookieTransport binds token pairs to HTTP cookies and extracts them again.
// Cookies are the primary channel; the Authorization header and JSON body are fallbacks.
type CookieTransport struct {
	config CookieConfig
}

// NewCookieTransport creates a CookieTransport
func NewCookieTransport(config CookieConfig) *CookieTransport {
	if config.RefreshPath == "" {
		config.RefreshPath = "/token/refresh"
	}
	return &CookieTransport{config: config}
}

// Attach sets the access and refresh cookies for pair on w.
// Secure is set iff r arrived over HTTPS.
func (ct *CookieTransport) Attach(w http.ResponseWriter, r *http.Request, pair *models.TokenPair) {
	secure := pkghttp.IsSecureRequest(r, ct.config.IPConfig)
	now := time.Now()

	http.SetCookie(w, ct.cookie(AccessTokenCookie, pair.AccessToken, "/", pair.AccessExpiresInSeconds, now, secure))
	http.SetCookie(w, ct.cookie(RefreshTokenCookie, pair.RefreshToken, ct.config.RefreshPath, pair.RefreshExpiresInSeconds, now, secure))
}

// Clear expires both cookies with the same paths and flags used by Attach
func (ct *CookieTransport) Clear(w http.ResponseWriter, r *http.Request) {
	secure := pkghttp.IsSecureRequest(r, ct.config.IPConfig)

	for _, c := range []struct{ name, path string }{
		{AccessTokenCookie, "/"},
		{RefreshTokenCookie, ct.config.RefreshPath},
	} {
		http.SetCookie(w, &http.Cookie{
			Name:     c.name,
			Value:    "",
			Path:     c.path,
			Domain:   ct.config.Domain,
			Expires:  time.Unix(1, 0),
			MaxAge:   -1, // Negative MaxAge deletes the cookie
			HttpOnly: true,
			Secure:   secure,
			SameSite: http.SameSiteStrictMode,
		})
	}
}

// ExtractAccessToken returns the access token cookie, falling back to a Bearer header.
// The cookie wins when both are present.
func (ct *CookieTransport) ExtractAccessToken(r *http.Request) (string, bool) {
	if cookie, err := r.Cookie(AccessTokenCookie); err == nil && cookie.Value != "" {
		return cookie.Value, true
	}
	return bearerToken(r.Header.Get("Authorization"))
}

// ExtractRefreshToken returns the refresh token cookie, falling back to a
// refresh_token (or refreshToken) field in a JSON body. The body is restored so
// handlers can still decode it.
func (ct *CookieTransport) ExtractRefreshToken(r *http.Request) (string, bool) {
	if cookie, err := r.Cookie(RefreshTokenCookie); err == nil && cookie.Value != "" {
		return cookie.Value, true
	}

	if r.Body == nil || r.Body == http.NoBody {
		return "", false
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxRefreshBodyBytes))
	r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(body))
	if err != nil || len(body) == 0 {
		return "", false
	}

	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", false
	}
	for _, field := range []string{"refresh_token", "refreshToken"} {
		if token, ok := payload[field].(string); ok && token != "" {
			return token, true
		}
	}
	return "", false
}

func (ct *CookieTransport) cookie(name, value, path string, maxAge int, now time.Time, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     path,
		Domain:   ct.config.Domain,
		Expires:  now.Add(time.Duration(maxAge) * time.Second),
		MaxAge:   maxAge,
		HttpOnly: true, // not readable from JavaScript
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	}
}
