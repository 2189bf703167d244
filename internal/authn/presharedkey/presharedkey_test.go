package presharedkey

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ontologymarket/catalog/internal/authn"
)

func TestNewPresharedKeyAuthenticator(t *testing.T) {
	_, err := NewPresharedKeyAuthenticator(nil)
	require.Error(t, err)

	_, err = NewPresharedKeyAuthenticator([]string{"no-separator"})
	require.Error(t, err)

	_, err = NewPresharedKeyAuthenticator([]string{"subject:"})
	require.Error(t, err)
}

func TestPresharedKeyAuthenticator_Authenticate(t *testing.T) {
	authenticator, err := NewPresharedKeyAuthenticator([]string{"indexer:key1", "importer:key2"})
	require.NoError(t, err)
	t.Cleanup(authenticator.Close)

	identity, err := authenticator.Authenticate(context.Background(), "key2")
	require.NoError(t, err)
	require.Equal(t, "importer", identity.Subject)

	_, err = authenticator.Authenticate(context.Background(), "key3")
	require.ErrorIs(t, err, authn.ErrUnauthenticated)

	_, err = authenticator.Authenticate(context.Background(), "")
	require.ErrorIs(t, err, authn.ErrMissingBearerToken)
}
