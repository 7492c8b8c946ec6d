package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// refreshSkew renews a token this long before the upstream says it expires.
const refreshSkew = 60 * time.Second

var ErrTokenExchange = errors.New("token exchange failed")

// Token is a bearer credential returned by the auth endpoint.
type Token struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

// TokenExchanger performs one credential exchange against the auth endpoint.
type TokenExchanger interface {
	Exchange(ctx context.Context) (*Token, error)
}

// Credentials are the client-credentials grant parameters.
type Credentials struct {
	ClientID     string
	ClientSecret string
	Scope        string
	GrantType    string
}

// AuthClient exchanges client credentials for a bearer token.
type AuthClient struct {
	tokenURL string
	creds    Credentials
	client   *http.Client
}

func NewAuthClient(tokenURL string, creds Credentials, client *http.Client) *AuthClient {
	if creds.GrantType == "" {
		creds.GrantType = "client_credentials"
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &AuthClient{tokenURL: tokenURL, creds: creds, client: client}
}

// Exchange posts the credentials form. A non-2xx status or a response
// without an access token is an error.
func (a *AuthClient) Exchange(ctx context.Context) (*Token, error) {
	form := url.Values{}
	form.Set("client_id", a.creds.ClientID)
	form.Set("client_secret", a.creds.ClientSecret)
	form.Set("scope", a.creds.Scope)
	form.Set("grant_type", a.creds.GrantType)

	req, err := http.NewRequestWithContext(ctx, "POST", a.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %v", ErrTokenExchange, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenExchange, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: status %d: %s", ErrTokenExchange, resp.StatusCode, string(body))
	}

	var tok Token
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrTokenExchange, err)
	}
	if tok.AccessToken == "" {
		return nil, fmt.Errorf("%w: response has no access_token", ErrTokenExchange)
	}
	return &tok, nil
}

// TokenCache hands out a cached bearer token and refreshes it through the
// exchanger when it is missing or about to expire.
type TokenCache struct {
	exchanger TokenExchanger
	now       func() time.Time

	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

func NewTokenCache(exchanger TokenExchanger) *TokenCache {
	return &TokenCache{exchanger: exchanger, now: time.Now}
}

// SetClock replaces the time source.
func (c *TokenCache) SetClock(now func() time.Time) {
	c.now = now
}

// Token returns a valid bearer token. Concurrent callers share one refresh.
func (c *TokenCache) Token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && c.now().Before(c.expiresAt) {
		return c.token, nil
	}

	tok, err := c.exchanger.Exchange(ctx)
	if err != nil {
		c.token = ""
		return "", err
	}

	ttl := time.Duration(tok.ExpiresIn)*time.Second - refreshSkew
	if ttl < 0 {
		ttl = 0
	}
	c.token = tok.AccessToken
	c.expiresAt = c.now().Add(ttl)
	return c.token, nil
}

// Invalidate drops the cached token so the next call exchanges again.
func (c *TokenCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = ""
	c.expiresAt = time.Time{}
}
