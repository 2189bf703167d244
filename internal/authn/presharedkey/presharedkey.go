// Package presharedkey authenticates service accounts holding a static key.
package presharedkey

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"

	"github.com/ontologymarket/catalog/internal/authn"
)

type PresharedKeyAuthenticator struct {
	keys map[string]string
}

var _ authn.Authenticator = (*PresharedKeyAuthenticator)(nil)

// NewPresharedKeyAuthenticator accepts entries of the form "subject:key". Each key
// authenticates as its subject.
func NewPresharedKeyAuthenticator(entries []string) (*PresharedKeyAuthenticator, error) {
	if len(entries) < 1 {
		return nil, errors.New("invalid auth configuration, please specify at least one key")
	}

	keys := make(map[string]string, len(entries))
	for _, entry := range entries {
		subject, key, ok := strings.Cut(entry, ":")
		if !ok || subject == "" || key == "" {
			return nil, fmt.Errorf("invalid preshared key entry %q, expected 'subject:key'", subject)
		}
		keys[key] = subject
	}

	return &PresharedKeyAuthenticator{keys: keys}, nil
}

func (pka *PresharedKeyAuthenticator) Authenticate(_ context.Context, bearer string) (*authn.Identity, error) {
	if bearer == "" {
		return nil, authn.ErrMissingBearerToken
	}

	for key, subject := range pka.keys {
		if subtle.ConstantTimeCompare([]byte(key), []byte(bearer)) == 1 {
			return &authn.Identity{Subject: subject}, nil
		}
	}
	return nil, authn.ErrUnauthenticated
}

func (pka *PresharedKeyAuthenticator) Close() {}
