// Package auth models authentication as a capability boundary: tokens are
// verified by an external identity provider, never decoded locally.
package auth

import (
	"context"
	"errors"
)

// Claims are the identity attributes the provider returns for a valid token.
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Name   string `json:"name,omitempty"`
}

// TokenVerifier checks a bearer token against the identity provider.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*Claims, error)
}

// ErrInvalidToken is returned when the provider rejects a token.
var ErrInvalidToken = errors.New("invalid or expired token")

// ErrInvalidCredentials is returned when a password sign-in is rejected.
var ErrInvalidCredentials = errors.New("invalid credentials")

type claimsKey struct{}

// WithClaims stores verified claims in the request context.
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, claims)
}

// ClaimsFrom retrieves the verified claims, if the request passed the
// auth middleware.
func ClaimsFrom(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(claimsKey{}).(*Claims)
	return claims, ok
}
