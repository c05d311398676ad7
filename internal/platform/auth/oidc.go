package auth

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// OIDCProvider is the subset of an OpenID discovery document the server uses.
type OIDCProvider struct {
	Issuer        string `json:"issuer"`
	TokenEndpoint string `json:"token_endpoint"`
	JWKSURI       string `json:"jwks_uri"`
}

var discoveryClient = &http.Client{Timeout: 10 * time.Second}

// NewOIDCProvider fetches <issuer>/.well-known/openid-configuration. The
// document must name the same issuer it was fetched from.
func NewOIDCProvider(issuerURL string) (*OIDCProvider, error) {
	issuer := strings.TrimRight(issuerURL, "/")
	resp, err := discoveryClient.Get(issuer + "/.well-known/openid-configuration")
	if err != nil {
		return nil, fmt.Errorf("fetching OIDC discovery document: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("OIDC discovery endpoint returned status %d", resp.StatusCode)
	}

	var p OIDCProvider
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return nil, fmt.Errorf("decoding OIDC discovery document: %w", err)
	}
	if p.JWKSURI == "" {
		return nil, fmt.Errorf("OIDC discovery document missing jwks_uri")
	}
	if p.Issuer != "" && strings.TrimRight(p.Issuer, "/") != issuer {
		return nil, fmt.Errorf("OIDC issuer mismatch: configured %s, discovered %s", issuer, p.Issuer)
	}
	return &p, nil
}

func (p *OIDCProvider) JWKSKeyFunc() jwt.Keyfunc {
	return jwksKeyFunc(p.JWKSURI)
}

// issuerKeyFunc discovers the issuer's JWKS on the first token it sees and
// retries discovery on later tokens until it succeeds, so the server can
// start while the identity provider is down.
func issuerKeyFunc(issuer string) jwt.Keyfunc {
	var (
		mu      sync.Mutex
		keyFunc jwt.Keyfunc
	)
	return func(token *jwt.Token) (interface{}, error) {
		mu.Lock()
		if keyFunc == nil {
			p, err := NewOIDCProvider(issuer)
			if err != nil {
				mu.Unlock()
				return nil, err
			}
			keyFunc = p.JWKSKeyFunc()
		}
		kf := keyFunc
		mu.Unlock()
		return kf(token)
	}
}
