package auth

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/BradenHooton/muscuscope/internal/models"
)

// Wire claim names
const (
	ClaimIssuer        = "iss"
	ClaimAudience      = "aud"
	ClaimIssuedAt      = "iat"
	ClaimExpiresAt     = "exp"
	ClaimNotBefore     = "nbf"
	ClaimTokenID       = "jti"
	ClaimSubject       = "sub"
	ClaimUsername      = "username"
	ClaimRoles         = "roles"
	ClaimTokenType     = "token_type"
	ClaimLoginTime     = "login_time"
	ClaimIPAddress     = "ip_address"
	ClaimUserAgent     = "user_agent"
	ClaimRefreshedFrom = "refreshed_from"
)

// protectedClaims can never be supplied through ExtraClaims
var protectedClaims = map[string]bool{
	ClaimIssuer:    true,
	ClaimAudience:  true,
	ClaimIssuedAt:  true,
	ClaimExpiresAt: true,
	ClaimNotBefore: true,
	ClaimTokenID:   true,
	ClaimSubject:   true,
	ClaimUsername:  true,
	ClaimRoles:     true,
	ClaimTokenType: true,
}

// ExtraClaims is caller-supplied context merged into issued tokens
type ExtraClaims map[string]any

// SessionContext builds the audit claims attached at login time
func SessionContext(ipAddress, userAgent string, loginTime time.Time) ExtraClaims {
	extra := ExtraClaims{ClaimLoginTime: loginTime.Unix()}
	if ipAddress != "" {
		extra[ClaimIPAddress] = ipAddress
	}
	if userAgent != "" {
		extra[ClaimUserAgent] = userAgent
	}
	return extra
}

// claimsToMap serializes typed claims for the codec
func claimsToMap(c *models.TokenClaims) map[string]any {
	m := map[string]any{
		ClaimIssuer:    c.Issuer,
		ClaimAudience:  c.Audience,
		ClaimIssuedAt:  c.IssuedAt,
		ClaimExpiresAt: c.ExpiresAt,
		ClaimNotBefore: c.NotBefore,
		ClaimTokenID:   c.TokenID,
		ClaimSubject:   c.Subject,
		ClaimUsername:  c.Username,
		ClaimTokenType: string(c.Type),
	}
	if c.Type == models.TokenTypeAccess {
		roles := c.Roles
		if roles == nil {
			roles = []string{}
		}
		m[ClaimRoles] = roles
	}
	if c.LoginTime != nil {
		m[ClaimLoginTime] = *c.LoginTime
	}
	if c.IPAddress != "" {
		m[ClaimIPAddress] = c.IPAddress
	}
	if c.UserAgent != "" {
		m[ClaimUserAgent] = c.UserAgent
	}
	if c.RefreshedFrom != "" {
		m[ClaimRefreshedFrom] = c.RefreshedFrom
	}
	return m
}

// claimsFromMap parses a decoded payload into typed claims
func claimsFromMap(m map[string]any) (*models.TokenClaims, error) {
	c := &models.TokenClaims{}
	var err error

	if c.Subject, err = stringClaim(m, ClaimSubject); err != nil {
		return nil, err
	}
	if c.Subject == "" {
		return nil, fmt.Errorf("missing %s claim", ClaimSubject)
	}
	if c.TokenID, err = stringClaim(m, ClaimTokenID); err != nil {
		return nil, err
	}
	if c.Issuer, err = stringClaim(m, ClaimIssuer); err != nil {
		return nil, err
	}
	if c.Audience, err = audienceClaim(m); err != nil {
		return nil, err
	}
	if c.Username, err = stringClaim(m, ClaimUsername); err != nil {
		return nil, err
	}
	if c.IPAddress, err = stringClaim(m, ClaimIPAddress); err != nil {
		return nil, err
	}
	if c.UserAgent, err = stringClaim(m, ClaimUserAgent); err != nil {
		return nil, err
	}
	if c.RefreshedFrom, err = stringClaim(m, ClaimRefreshedFrom); err != nil {
		return nil, err
	}

	tokenType, err := stringClaim(m, ClaimTokenType)
	if err != nil {
		return nil, err
	}
	c.Type = models.TokenType(tokenType)

	for name, dst := range map[string]*int64{
		ClaimIssuedAt:  &c.IssuedAt,
		ClaimExpiresAt: &c.ExpiresAt,
		ClaimNotBefore: &c.NotBefore,
	} {
		v, ok, err := int64Claim(m, name)
		if err != nil {
			return nil, err
		}
		if ok {
			*dst = v
		}
	}

	if v, ok, err := int64Claim(m, ClaimLoginTime); err != nil {
		return nil, err
	} else if ok {
		c.LoginTime = &v
	}

	if raw, ok := m[ClaimRoles]; ok && raw != nil {
		switch roles := raw.(type) {
		case []string:
			c.Roles = append([]string{}, roles...)
		case []any:
			c.Roles = make([]string, 0, len(roles))
			for _, r := range roles {
				s, ok := r.(string)
				if !ok {
					return nil, fmt.Errorf("invalid %s claim", ClaimRoles)
				}
				c.Roles = append(c.Roles, s)
			}
		default:
			return nil, fmt.Errorf("invalid %s claim", ClaimRoles)
		}
	}

	return c, nil
}

func stringClaim(m map[string]any, name string) (string, error) {
	raw, ok := m[name]
	if !ok || raw == nil {
		return "", nil
	}
	s, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("invalid %s claim", name)
	}
	return s, nil
}

// audienceClaim accepts both the string and single-element array forms of aud
func audienceClaim(m map[string]any) (string, error) {
	switch aud := m[ClaimAudience].(type) {
	case nil:
		return "", nil
	case string:
		return aud, nil
	case []any:
		if len(aud) == 0 {
			return "", nil
		}
		if s, ok := aud[0].(string); ok {
			return s, nil
		}
	case []string:
		if len(aud) > 0 {
			return aud[0], nil
		}
		return "", nil
	}
	return "", fmt.Errorf("invalid %s claim", ClaimAudience)
}

func int64Claim(m map[string]any, name string) (int64, bool, error) {
	raw, ok := m[name]
	if !ok || raw == nil {
		return 0, false, nil
	}
	switch v := raw.(type) {
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i, true, nil
		}
		f, err := v.Float64()
		if err != nil {
			return 0, false, fmt.Errorf("invalid %s claim", name)
		}
		return int64(math.Trunc(f)), true, nil
	case float64:
		return int64(math.Trunc(v)), true, nil
	case int64:
		return v, true, nil
	case int:
		return int64(v), true, nil
	}
	return 0, false, fmt.Errorf("invalid %s claim", name)
}
