// Package authn resolves the identity behind a bearer token.
package authn

import (
	"context"
	"errors"
	"strings"

	"github.com/ontologymarket/catalog/pkg/logger"
)

var (
	ErrUnauthenticated     = errors.New("unauthenticated")
	ErrMissingBearerToken  = errors.New("missing bearer token")
	ErrInvalidBearerHeader = errors.New("invalid authorization header, expected 'Bearer <token>'")
	ErrEmailNotVerified    = errors.New("email not verified")
)

// Identity is the authenticated caller. Subject is the only key used for authorization;
// Email is informational.
type Identity struct {
	Subject       string `json:"uid"`
	Email         string `json:"email,omitempty"`
	EmailVerified bool   `json:"email_verified"`
}

type ctxKey string

const identityContextKey = ctxKey("identity")

// ContextWithIdentity injects the provided Identity into the parent context.
func ContextWithIdentity(parent context.Context, identity *Identity) context.Context {
	return context.WithValue(parent, identityContextKey, identity)
}

// IdentityFromContext extracts the Identity from the provided ctx (if any).
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	identity, ok := ctx.Value(identityContextKey).(*Identity)
	if !ok || identity == nil {
		return nil, false
	}
	return identity, true
}

// SubjectFromContext returns the subject of the identity in ctx, or "" for an anonymous
// caller.
func SubjectFromContext(ctx context.Context) string {
	if identity, ok := IdentityFromContext(ctx); ok {
		return identity.Subject
	}
	return ""
}

type Authenticator interface {
	// Authenticate returns the identity holding the bearer token, or a non-nil error
	// wrapping ErrUnauthenticated, ErrMissingBearerToken or ErrEmailNotVerified.
	Authenticate(ctx context.Context, bearer string) (*Identity, error)

	// Close releases the resources held by the authenticator.
	Close()
}

// BearerFromHeader returns the token of an Authorization header of the form
// "Bearer <token>". The scheme is matched case-insensitively.
func BearerFromHeader(header string) (string, error) {
	if strings.TrimSpace(header) == "" {
		return "", ErrMissingBearerToken
	}

	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", ErrInvalidBearerHeader
	}
	return parts[1], nil
}

// DevAuthenticator trusts the bearer token as the subject. It is meant for local
// development only.
type DevAuthenticator struct{}

var _ Authenticator = (*DevAuthenticator)(nil)

// NewDevAuthenticator warns that tokens are not verified.
func NewDevAuthenticator(l logger.Logger) *DevAuthenticator {
	l.Warn("authentication is disabled: bearer tokens are trusted as subject ids. Do not use in production.")
	return &DevAuthenticator{}
}

func (DevAuthenticator) Authenticate(_ context.Context, bearer string) (*Identity, error) {
	if bearer == "" {
		return nil, ErrMissingBearerToken
	}
	return &Identity{Subject: bearer}, nil
}

func (DevAuthenticator) Close() {}
