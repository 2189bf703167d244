// Package oidc verifies RS256 bearer tokens issued by an OpenID Connect provider.
package oidc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/hashicorp/go-retryablehttp"

	"github.com/ontologymarket/catalog/internal/authn"
)

// OidcConfig is the subset of the provider discovery document the authenticator reads.
type OidcConfig struct {
	Issuer  string `json:"issuer"`
	JWKsURI string `json:"jwks_uri"`
}

type RemoteOidcAuthenticator struct {
	IssuerURLs []string
	Audience   string

	// RequireVerifiedEmail rejects tokens whose email_verified claim is not true.
	RequireVerifiedEmail bool

	JwksURI string
	JWKs    *keyfunc.JWKS

	httpClient *http.Client
}

var (
	jwkRefreshInterval = 48 * time.Hour

	errInvalidAudience = fmt.Errorf("%w: invalid audience", authn.ErrUnauthenticated)
	errInvalidClaims   = fmt.Errorf("%w: invalid claims", authn.ErrUnauthenticated)
	errInvalidIssuer   = fmt.Errorf("%w: invalid issuer", authn.ErrUnauthenticated)
	errInvalidSubject  = fmt.Errorf("%w: invalid subject", authn.ErrUnauthenticated)
	errInvalidToken    = fmt.Errorf("%w: invalid bearer token", authn.ErrUnauthenticated)

	fetchJWKs = fetchJWK
)

var _ authn.Authenticator = (*RemoteOidcAuthenticator)(nil)

// NewRemoteOidcAuthenticator discovers the signing keys of the first issuer. The keys
// are refreshed in the background until Close is called.
func NewRemoteOidcAuthenticator(issuerURLs []string, audience string, requireVerifiedEmail bool) (*RemoteOidcAuthenticator, error) {
	if len(issuerURLs) == 0 {
		return nil, errors.New("at least one OIDC issuer is required")
	}

	client := retryablehttp.NewClient()
	client.Logger = nil
	client.RetryMax = 3
	oidc := &RemoteOidcAuthenticator{
		IssuerURLs:           issuerURLs,
		Audience:             audience,
		RequireVerifiedEmail: requireVerifiedEmail,
		httpClient:           client.StandardClient(),
	}
	if err := fetchJWKs(oidc); err != nil {
		return nil, err
	}
	return oidc, nil
}

func (oidc *RemoteOidcAuthenticator) Authenticate(_ context.Context, bearer string) (*authn.Identity, error) {
	if bearer == "" {
		return nil, authn.ErrMissingBearerToken
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"RS256"}), jwt.WithIssuedAt()}
	if oidc.Audience != "" {
		opts = append(opts, jwt.WithAudience(oidc.Audience))
	}
	jwtParser := jwt.NewParser(opts...)

	token, err := jwtParser.Parse(bearer, oidc.JWKs.Keyfunc)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenInvalidAudience) {
			return nil, errInvalidAudience
		}
		return nil, errInvalidToken
	}

	if !token.Valid {
		return nil, errInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errInvalidClaims
	}

	issuer, err := claims.GetIssuer()
	if err != nil || !slices.Contains(oidc.IssuerURLs, issuer) {
		return nil, errInvalidIssuer
	}

	subject, err := claims.GetSubject()
	if err != nil || subject == "" {
		return nil, errInvalidSubject
	}

	identity := &authn.Identity{Subject: subject}
	if email, ok := claims["email"].(string); ok {
		identity.Email = email
	}
	if verified, ok := claims["email_verified"].(bool); ok {
		identity.EmailVerified = verified
	}

	if oidc.RequireVerifiedEmail && !identity.EmailVerified {
		return nil, authn.ErrEmailNotVerified
	}

	return identity, nil
}

func fetchJWK(oidc *RemoteOidcAuthenticator) error {
	oidcConfig, err := oidc.GetConfiguration()
	if err != nil {
		return fmt.Errorf("error fetching OIDC configuration: %w", err)
	}

	oidc.JwksURI = oidcConfig.JWKsURI
	jwks, err := oidc.GetKeys()
	if err != nil {
		return fmt.Errorf("error fetching OIDC keys: %w", err)
	}

	oidc.JWKs = jwks

	return nil
}

func (oidc *RemoteOidcAuthenticator) GetKeys() (*keyfunc.JWKS, error) {
	jwks, err := keyfunc.Get(oidc.JwksURI, keyfunc.Options{
		Client:          oidc.httpClient,
		RefreshInterval: jwkRefreshInterval,
	})
	if err != nil {
		return nil, fmt.Errorf("error fetching keys from %v: %w", oidc.JwksURI, err)
	}
	return jwks, nil
}

func (oidc *RemoteOidcAuthenticator) GetConfiguration() (*OidcConfig, error) {
	wellKnown := strings.TrimSuffix(oidc.IssuerURLs[0], "/") + "/.well-known/openid-configuration"
	req, err := http.NewRequest(http.MethodGet, wellKnown, nil)
	if err != nil {
		return nil, fmt.Errorf("error forming request to get OIDC: %w", err)
	}

	res, err := oidc.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error getting OIDC: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code getting OIDC: %v", res.StatusCode)
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response body: %w", err)
	}

	oidcConfig := &OidcConfig{}
	if err := json.Unmarshal(body, oidcConfig); err != nil {
		return nil, fmt.Errorf("failed parsing document: %w", err)
	}

	if oidcConfig.Issuer == "" {
		return nil, errors.New("missing issuer value")
	}

	if oidcConfig.JWKsURI == "" {
		return nil, errors.New("missing jwks_uri value")
	}
	return oidcConfig, nil
}

func (oidc *RemoteOidcAuthenticator) Close() {
	if oidc.JWKs != nil {
		oidc.JWKs.EndBackground()
	}
}
