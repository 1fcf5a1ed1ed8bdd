package models

import (
	"errors"
	"net/http"
)

// Sentinel errors for common failure conditions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource already exists")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrBadRequest     = errors.New("bad request")
	ErrInternalServer = errors.New("internal server error")

	ErrRateLimitExceeded = errors.New("too many failed login attempts")
	ErrNotImplemented    = errors.New("not implemented")
)

// Token errors raised by the codec and translated by the validator
var (
	ErrTokenMalformed   = errors.New("token malformed")
	ErrTokenExpired     = errors.New("token expired")
	ErrTokenNotYetValid = errors.New("token not yet valid")
	ErrInvalidSignature = errors.New("token signature invalid")
	ErrWrongTokenType   = errors.New("wrong token type")
	ErrUserNotFound     = errors.New("user not found")
	ErrSigningFailed    = errors.New("token signing failed")
)

// AuthErrorKind classifies caller-facing authentication failures
type AuthErrorKind string

const (
	KindMalformed        AuthErrorKind = "malformed"
	KindExpired          AuthErrorKind = "expired"
	KindNotYetValid      AuthErrorKind = "not_yet_valid"
	KindInvalidSignature AuthErrorKind = "invalid_signature"
	KindWrongTokenType   AuthErrorKind = "wrong_token_type"
	KindUserNotFound     AuthErrorKind = "user_not_found"
	KindSigningFailed    AuthErrorKind = "signing_failed"
	KindNotImplemented   AuthErrorKind = "not_implemented"
)

// AuthError is a tagged authentication error. Message is safe to show to clients;
// Err keeps the underlying cause for logs and errors.Is.
type AuthError struct {
	Kind    AuthErrorKind
	Message string
	Err     error
}

func (e *AuthError) Error() string {
	return string(e.Kind) + ": " + e.Message
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// StatusCode maps the kind to its HTTP status
func (e *AuthError) StatusCode() int {
	switch e.Kind {
	case KindMalformed, KindWrongTokenType:
		return http.StatusBadRequest
	case KindExpired, KindNotYetValid, KindInvalidSignature, KindUserNotFound:
		return http.StatusUnauthorized
	case KindNotImplemented:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

// NewAuthError builds an AuthError for kind, wrapping cause
func NewAuthError(kind AuthErrorKind, cause error) *AuthError {
	return &AuthError{Kind: kind, Message: defaultMessages[kind], Err: cause}
}

var defaultMessages = map[AuthErrorKind]string{
	KindMalformed:        "Malformed token",
	KindExpired:          "Token has expired",
	KindNotYetValid:      "Invalid token",
	KindInvalidSignature: "Invalid token",
	KindWrongTokenType:   "Wrong token type",
	KindUserNotFound:     "Invalid token",
	KindSigningFailed:    "Unable to issue token",
	KindNotImplemented:   "Not implemented",
}

// AsAuthError unwraps err into an *AuthError if it carries one
func AsAuthError(err error) (*AuthError, bool) {
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return authErr, true
	}
	return nil, false
}
