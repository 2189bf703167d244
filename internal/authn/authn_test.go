package authn

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ontologymarket/catalog/pkg/logger"
)

func TestBearerFromHeader(t *testing.T) {
	for _, tc := range []struct {
		name     string
		header   string
		expected string
		err      error
	}{
		{name: "empty", header: "", err: ErrMissingBearerToken},
		{name: "blank", header: "   ", err: ErrMissingBearerToken},
		{name: "bearer", header: "Bearer abc", expected: "abc"},
		{name: "lowercase_scheme", header: "bearer abc", expected: "abc"},
		{name: "extra_whitespace", header: "  Bearer \t abc ", expected: "abc"},
		{name: "wrong_scheme", header: "Basic abc", err: ErrInvalidBearerHeader},
		{name: "no_token", header: "Bearer", err: ErrInvalidBearerHeader},
		{name: "too_many_parts", header: "Bearer abc def", err: ErrInvalidBearerHeader},
	} {
		t.Run(tc.name, func(t *testing.T) {
			token, err := BearerFromHeader(tc.header)
			if tc.err != nil {
				require.ErrorIs(t, err, tc.err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.expected, token)
		})
	}
}

func TestIdentityContext(t *testing.T) {
	ctx := context.Background()
	_, ok := IdentityFromContext(ctx)
	require.False(t, ok)
	require.Empty(t, SubjectFromContext(ctx))

	ctx = ContextWithIdentity(ctx, &Identity{Subject: "user-a"})
	identity, ok := IdentityFromContext(ctx)
	require.True(t, ok)
	require.Equal(t, "user-a", identity.Subject)
	require.Equal(t, "user-a", SubjectFromContext(ctx))

	_, ok = IdentityFromContext(ContextWithIdentity(context.Background(), nil))
	require.False(t, ok)
}

func TestDevAuthenticator(t *testing.T) {
	authenticator := NewDevAuthenticator(logger.NewNoopLogger())
	t.Cleanup(authenticator.Close)

	_, err := authenticator.Authenticate(context.Background(), "")
	require.ErrorIs(t, err, ErrMissingBearerToken)

	identity, err := authenticator.Authenticate(context.Background(), "user-a")
	require.NoError(t, err)
	require.Equal(t, &Identity{Subject: "user-a"}, identity)
}
