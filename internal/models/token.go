package models

// TokenType distinguishes access tokens from refresh tokens
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// TokenClaims is the typed payload of a signed token.
// Timestamps are unix seconds.
type TokenClaims struct {
	Issuer    string
	Audience  string
	IssuedAt  int64
	ExpiresAt int64
	NotBefore int64
	TokenID   string
	Subject   string
	Username  string
	Roles     []string // access tokens only
	Type      TokenType

	// Audit context, attached at issuance or refresh time
	LoginTime     *int64
	IPAddress     string
	UserAgent     string
	RefreshedFrom string
}

// HasRole reports whether the claims carry the given role
func (c *TokenClaims) HasRole(role string) bool {
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// TokenPair is the access/refresh pair returned to clients
type TokenPair struct {
	AccessToken             string `json:"access_token"`
	RefreshToken            string `json:"refresh_token"`
	TokenType               string `json:"token_type"`
	AccessExpiresInSeconds  int    `json:"access_expires_in"`
	RefreshExpiresInSeconds int    `json:"refresh_expires_in"`
}
