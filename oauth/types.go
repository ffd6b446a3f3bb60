package oauth

import (
	"context"
	"net/http"
	"time"
)

// Token represents one OAuth2 client's credential state.
type Token struct {
	AccessToken  string    `json:"access_token"`
	TokenType    string    `json:"token_type"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	ExpiresIn    int       `json:"expires_in,omitempty"`
	ExpiresAt    time.Time `json:"expires_at,omitempty"`
	Scope        string    `json:"scope,omitempty"`
}

// IsExpired checks if the token is expired. Tokens without an expiry never
// expire.
func (t *Token) IsExpired() bool {
	if t.ExpiresAt.IsZero() {
		return false
	}
	return time.Now().After(t.ExpiresAt)
}

// TimeUntilExpiry returns the duration until the token expires.
func (t *Token) TimeUntilExpiry() time.Duration {
	if t.ExpiresAt.IsZero() {
		return 0
	}
	return time.Until(t.ExpiresAt)
}

// Type returns the token type to use in an Authorization header, defaulting
// to "Bearer" when the provider omitted it.
func (t *Token) Type() string {
	if t.TokenType == "" {
		return "Bearer"
	}
	return t.TokenType
}

// HTTPClient interface for mocking in tests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// TokenStore persists tokens across process restarts.
type TokenStore interface {
	// Store stores a token under a key
	Store(ctx context.Context, key string, token *Token) error

	// Retrieve gets a token by key; ErrTokenNotFound when absent
	Retrieve(ctx context.Context, key string) (*Token, error)

	// Delete removes a token by key
	Delete(ctx context.Context, key string) error
}
