package oauth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"golang.org/x/sync/singleflight"
)

// TokenManager owns the credential state of one OAuth2 client: the current
// access token, refresh token, token type, and expiry.
//
// The state is shared by every request using the client, so the manager
// serializes the check-expiry/exchange/commit sequence: concurrent callers of
// Token coalesce into a single in-flight exchange and all receive its result.
//
// State is mutated only by a successful exchange; a failed exchange commits
// nothing.
type TokenManager struct {
	cfg        Config
	httpClient HTTPClient
	logger     *slog.Logger

	store    TokenStore
	storeKey string

	mu          sync.Mutex
	token       *Token
	storeLoaded bool

	group singleflight.Group
}

// TokenManagerOption configures a TokenManager.
type TokenManagerOption func(*TokenManager)

// WithLogger sets the logger used for token lifecycle events.
func WithLogger(logger *slog.Logger) TokenManagerOption {
	return func(m *TokenManager) {
		m.logger = logger
	}
}

// WithTokenStore attaches a persistent token store. The store seeds the
// manager's cache on first use and receives every newly acquired token.
// Store failures are logged, never fatal: the in-memory state stays
// authoritative.
func WithTokenStore(store TokenStore, key string) TokenManagerOption {
	return func(m *TokenManager) {
		m.store = store
		m.storeKey = key
	}
}

// NewTokenManager creates a token manager for one OAuth2 client.
func NewTokenManager(cfg Config, opts ...TokenManagerOption) (*TokenManager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	m := &TokenManager{
		cfg:        cfg,
		httpClient: cfg.HTTPClient,
		logger:     slog.Default(),
	}
	if m.httpClient == nil {
		m.httpClient = &http.Client{Timeout: cfg.HTTPTimeout}
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Token returns the current valid access token.
//
// When force is false and the cached token has not expired, it is returned
// with no I/O. Otherwise the manager performs one token exchange: a
// refresh-token grant when a refresh token is cached, else the configured
// flow's grant. Exchange errors propagate to the caller and leave the cached
// state untouched.
//
// Concurrent callers, forced or not, join a single in-flight exchange.
func (m *TokenManager) Token(ctx context.Context, force bool) (*Token, error) {
	if !force {
		if t := m.cached(ctx); t != nil {
			return t, nil
		}
	}

	v, err, _ := m.group.Do("token", func() (interface{}, error) {
		// A caller that queued behind a finished exchange may find a
		// fresh token already committed.
		if !force {
			if t := m.cached(ctx); t != nil {
				return t, nil
			}
		}

		token, err := m.acquire(ctx)
		if err != nil {
			return nil, err
		}
		m.commit(ctx, token)
		return token, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Token), nil
}

// CanRefresh reports whether a refresh token is currently cached, i.e.
// whether a rejected access token can be remediated without re-authorizing.
func (m *TokenManager) CanRefresh() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token != nil && m.token.RefreshToken != ""
}

// SetToken seeds the manager's credential state, e.g. from tokens obtained
// out of band.
func (m *TokenManager) SetToken(token *Token) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	m.storeLoaded = true
}

// InvalidateToken drops the cached credential state. The next Token call
// performs a full exchange.
func (m *TokenManager) InvalidateToken() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = nil
	m.storeLoaded = true
}

// cached returns the current token if it is usable without I/O, loading the
// persistent store on first use.
func (m *TokenManager) cached(ctx context.Context) *Token {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.token == nil && m.store != nil && !m.storeLoaded {
		m.storeLoaded = true
		stored, err := m.store.Retrieve(ctx, m.storeKey)
		switch {
		case err == nil:
			m.token = stored
		case !errors.Is(err, ErrTokenNotFound):
			m.logger.Warn("failed to load token from store", "key", m.storeKey, "error", err)
		}
	}

	if m.token != nil && m.token.AccessToken != "" && !m.token.IsExpired() {
		return m.token
	}
	return nil
}

// acquire performs one token exchange without touching cached state.
func (m *TokenManager) acquire(ctx context.Context) (*Token, error) {
	m.mu.Lock()
	var refreshToken string
	if m.token != nil {
		refreshToken = m.token.RefreshToken
	}
	m.mu.Unlock()

	if refreshToken != "" {
		token, err := m.doExchange(ctx, m.refreshForm(refreshToken))
		if err != nil {
			return nil, err
		}
		// Providers that do not rotate refresh tokens omit them from
		// refresh responses.
		if token.RefreshToken == "" {
			token.RefreshToken = refreshToken
		}
		m.logger.Debug("refreshed access token", "expires_in", token.ExpiresIn)
		return token, nil
	}

	form, err := m.grantForm()
	if err != nil {
		return nil, err
	}
	token, err := m.doExchange(ctx, form)
	if err != nil {
		return nil, err
	}
	m.logger.Debug("acquired access token",
		"grant_type", string(m.cfg.GrantType),
		"expires_in", token.ExpiresIn)
	return token, nil
}

// commit atomically replaces the credential state and writes it back to the
// persistent store.
func (m *TokenManager) commit(ctx context.Context, token *Token) {
	m.mu.Lock()
	m.token = token
	m.storeLoaded = true
	m.mu.Unlock()

	if m.store != nil {
		if err := m.store.Store(ctx, m.storeKey, token); err != nil {
			m.logger.Warn("failed to persist token", "key", m.storeKey, "error", err)
		}
	}
}
