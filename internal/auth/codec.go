package auth

import (
	"encoding/base64"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/BradenHooton/muscuscope/internal/models"
	"github.com/golang-jwt/jwt/v5"
)

// TokenCodec turns claim maps into compact HS256 tokens and back
type TokenCodec struct {
	secret   []byte
	issuer   string
	audience string
	now      func() time.Time
}

// CodecOption customizes a TokenCodec
type CodecOption func(*TokenCodec)

// WithClock overrides the time source used for exp/nbf checks
func WithClock(now func() time.Time) CodecOption {
	return func(c *TokenCodec) {
		c.now = now
	}
}

// WithExpectedIssuer makes Decode reject tokens whose iss/aud differ
func WithExpectedIssuer(issuer, audience string) CodecOption {
	return func(c *TokenCodec) {
		c.issuer = issuer
		c.audience = audience
	}
}

// NewTokenCodec creates a codec signing with secret
func NewTokenCodec(secret string, opts ...CodecOption) *TokenCodec {
	c := &TokenCodec{
		secret: []byte(secret),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Encode signs claims and returns the compact serialization
func (c *TokenCodec) Encode(claims map[string]any) (string, error) {
	if len(c.secret) == 0 {
		return "", fmt.Errorf("%w: empty signing secret", models.ErrSigningFailed)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims(claims))
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("%w: %w", models.ErrSigningFailed, err)
	}
	return signed, nil
}

// Decode verifies the signature, exp and nbf of token and returns its claims.
// Numeric claims are returned as json.Number.
func (c *TokenCodec) Decode(token string) (map[string]any, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithStrictDecoding(),
		jwt.WithJSONNumber(),
		jwt.WithoutClaimsValidation(),
	)

	claims := jwt.MapClaims{}
	_, err := parser.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return c.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenMalformed) && onlySignatureUndecodable(token) {
			return nil, fmt.Errorf("%w: %w", models.ErrInvalidSignature, err)
		}
		return nil, classifyParseError(err)
	}

	if err := c.verifyClaims(claims); err != nil {
		return nil, classifyParseError(err)
	}

	return map[string]any(claims), nil
}

// verifyClaims checks iss, aud, exp and nbf at whole-second resolution.
// A token is expired only once now > exp.
func (c *TokenCodec) verifyClaims(claims jwt.MapClaims) error {
	if c.issuer != "" {
		iss, err := claims.GetIssuer()
		if err != nil || iss != c.issuer {
			return jwt.ErrTokenInvalidIssuer
		}
	}
	if c.audience != "" {
		aud, err := claims.GetAudience()
		if err != nil || !slices.Contains(aud, c.audience) {
			return jwt.ErrTokenInvalidAudience
		}
	}

	now := c.now().Unix()

	exp, err := claims.GetExpirationTime()
	if err != nil {
		return err
	}
	if exp == nil {
		return fmt.Errorf("%w: exp", jwt.ErrTokenRequiredClaimMissing)
	}
	if now > exp.Unix() {
		return jwt.ErrTokenExpired
	}

	nbf, err := claims.GetNotBefore()
	if err != nil {
		return err
	}
	if nbf != nil && now < nbf.Unix() {
		return jwt.ErrTokenNotValidYet
	}

	return nil
}

// onlySignatureUndecodable reports whether token has a well-formed header and
// payload but a signature segment that is not canonical base64url
func onlySignatureUndecodable(token string) bool {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return false
	}
	strict := base64.RawURLEncoding.Strict()
	for _, part := range parts[:2] {
		if _, err := strict.DecodeString(part); err != nil {
			return false
		}
	}
	_, err := strict.DecodeString(parts[2])
	return err != nil
}

// classifyParseError folds golang-jwt errors into the codec's three outcomes
func classifyParseError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenSignatureInvalid),
		errors.Is(err, jwt.ErrTokenUnverifiable),
		errors.Is(err, jwt.ErrTokenInvalidIssuer),
		errors.Is(err, jwt.ErrTokenInvalidAudience):
		return fmt.Errorf("%w: %w", models.ErrInvalidSignature, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %w", models.ErrTokenExpired, err)
	case errors.Is(err, jwt.ErrTokenNotValidYet):
		return fmt.Errorf("%w: %w", models.ErrTokenNotYetValid, err)
	default:
		return fmt.Errorf("%w: %w", models.ErrTokenMalformed, err)
	}
}
