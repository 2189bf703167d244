package mocks

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// MockOidcServer serves a discovery document and a JWKS for a single RSA key.
type MockOidcServer struct {
	server     *httptest.Server
	privateKey *rsa.PrivateKey
}

const kidHeader = "1"

// NewMockOidcServer starts a mock OIDC provider with a random private key. Its issuer is
// the URL of the underlying test server. You must call Stop afterward.
func NewMockOidcServer() (*MockOidcServer, error) {
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, err
	}

	mockServer := &MockOidcServer{privateKey: privateKey}

	mux := http.NewServeMux()
	mux.HandleFunc("/.well-known/openid-configuration", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{
			"issuer":   mockServer.IssuerURL(),
			"jwks_uri": mockServer.IssuerURL() + "/jwks.json",
		})
	})
	mux.HandleFunc("/jwks.json", func(w http.ResponseWriter, r *http.Request) {
		publicKey := privateKey.Public().(*rsa.PublicKey)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"keys": []map[string]string{
				{
					"kid": kidHeader,
					"kty": "RSA",
					"alg": "RS256",
					"n":   base64.RawURLEncoding.EncodeToString(publicKey.N.Bytes()),
					"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(publicKey.E)).Bytes()),
				},
			},
		})
	})

	mockServer.server = httptest.NewServer(mux)
	return mockServer, nil
}

func (server *MockOidcServer) IssuerURL() string {
	return server.server.URL
}

func (server *MockOidcServer) Stop() {
	server.server.Close()
}

// GetToken signs a token for the subject. Extra claims override the defaults.
func (server *MockOidcServer) GetToken(audience, subject string, extra map[string]any) (string, error) {
	claims := jwt.MapClaims{
		"iss": server.IssuerURL(),
		"aud": audience,
		"sub": subject,
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(time.Minute).Unix(),
	}
	for k, v := range extra {
		claims[k] = v
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = kidHeader
	return token.SignedString(server.privateKey)
}
