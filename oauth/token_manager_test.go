package oauth_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gobeaver/authkit/oauth"
)

// tokenEndpoint is a fake provider token endpoint. It counts exchanges,
// records the last form it received, and issues sequentially numbered access
// tokens.
type tokenEndpoint struct {
	server    *httptest.Server
	exchanges int64
	delay     time.Duration
	failWith  *oauth.Error

	mu       sync.Mutex
	lastForm url.Values

	rotateRefresh bool
	expiresIn     int
}

func newTokenEndpoint(t *testing.T) *tokenEndpoint {
	t.Helper()
	te := &tokenEndpoint{expiresIn: 3600}
	te.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if te.delay > 0 {
			time.Sleep(te.delay)
		}
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		te.mu.Lock()
		te.lastForm = r.PostForm
		te.mu.Unlock()

		n := atomic.AddInt64(&te.exchanges, 1)
		w.Header().Set("Content-Type", "application/json")

		if te.failWith != nil {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]string{
				"error":             te.failWith.Code,
				"error_description": te.failWith.Description,
			})
			return
		}

		body := map[string]interface{}{
			"access_token": fmt.Sprintf("access-%d", n),
			"token_type":   "Bearer",
			"expires_in":   te.expiresIn,
		}
		if te.rotateRefresh {
			body["refresh_token"] = fmt.Sprintf("refresh-%d", n)
		}
		json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(te.server.Close)
	return te
}

func (te *tokenEndpoint) count() int64 {
	return atomic.LoadInt64(&te.exchanges)
}

func (te *tokenEndpoint) form() url.Values {
	te.mu.Lock()
	defer te.mu.Unlock()
	return te.lastForm
}

func (te *tokenEndpoint) config() oauth.Config {
	return oauth.Config{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		TokenURL:     te.server.URL,
		GrantType:    oauth.GrantClientCredentials,
	}
}

func TestTokenCachedReturnsWithoutExchange(t *testing.T) {
	te := newTokenEndpoint(t)
	manager, err := oauth.NewTokenManager(te.config())
	if err != nil {
		t.Fatalf("NewTokenManager() error = %v", err)
	}

	first, err := manager.Token(context.Background(), false)
	if err != nil {
		t.Fatalf("Token() error = %v", err)
	}
	if te.count() != 1 {
		t.Fatalf("first acquisition performed %d exchanges, want 1", te.count())
	}

	second, err := manager.Token(context.Background(), false)
	if err != nil {
		t.Fatalf("Token() error = %v", err)
	}
	if te.count() != 1 {
		t.Errorf("cached acquisition performed %d exchanges, want 1 total", te.count())
	}
	if second.AccessToken != first.AccessToken {
		t.Errorf("cached token = %q, want %q", second.AccessToken, first.AccessToken)
	}
}

func TestTokenForceAlwaysExchanges(t *testing.T) {
	te := newTokenEndpoint(t)
	manager, err := oauth.NewTokenManager(te.config())
	if err != nil {
		t.Fatalf("NewTokenManager() error = %v", err)
	}

	if _, err := manager.Token(context.Background(), false); err != nil {
		t.Fatalf("Token() error = %v", err)
	}
	forced, err := manager.Token(context.Background(), true)
	if err != nil {
		t.Fatalf("Token(force) error = %v", err)
	}
	if te.count() != 2 {
		t.Errorf("forced acquisition performed %d exchanges total, want 2", te.count())
	}
	if forced.AccessToken != "access-2" {
		t.Errorf("forced token = %q, want access-2", forced.AccessToken)
	}
}

func TestTokenExpiredTriggersExchange(t *testing.T) {
	te := newTokenEndpoint(t)
	manager, err := oauth.NewTokenManager(te.config())
	if err != nil {
		t.Fatalf("NewTokenManager() error = %v", err)
	}

	manager.SetToken(&oauth.Token{
		AccessToken: "stale",
		ExpiresAt:   time.Now().Add(-time.Minute),
	})

	token, err := manager.Token(context.Background(), false)
	if err != nil {
		t.Fatalf("Token() error = %v", err)
	}
	if token.AccessToken == "stale" {
		t.Error("expired token was returned from cache")
	}
	if te.count() != 1 {
		t.Errorf("performed %d exchanges, want 1", te.count())
	}
}

func TestTokenUsesRefreshGrantWhenRefreshTokenCached(t *testing.T) {
	te := newTokenEndpoint(t)
	manager, err := oauth.NewTokenManager(te.config())
	if err != nil {
		t.Fatalf("NewTokenManager() error = %v", err)
	}

	manager.SetToken(&oauth.Token{
		AccessToken:  "rejected",
		RefreshToken: "refresh-seed",
	})

	if _, err := manager.Token(context.Background(), true); err != nil {
		t.Fatalf("Token(force) error = %v", err)
	}

	form := te.form()
	if got := form.Get("grant_type"); got != "refresh_token" {
		t.Errorf("grant_type = %q, want refresh_token", got)
	}
	if got := form.Get("refresh_token"); got != "refresh-seed" {
		t.Errorf("refresh_token = %q, want refresh-seed", got)
	}
	if got := form.Get("client_secret"); got != "client-secret" {
		t.Errorf("client_secret = %q, want client-secret", got)
	}
}

func TestTokenKeepsRefreshTokenWhenNotRotated(t *testing.T) {
	te := newTokenEndpoint(t)
	manager, err := oauth.NewTokenManager(te.config())
	if err != nil {
		t.Fatalf("NewTokenManager() error = %v", err)
	}

	manager.SetToken(&oauth.Token{AccessToken: "old", RefreshToken: "keep-me"})

	token, err := manager.Token(context.Background(), true)
	if err != nil {
		t.Fatalf("Token(force) error = %v", err)
	}
	if token.RefreshToken != "keep-me" {
		t.Errorf("RefreshToken = %q, want the previous refresh token kept", token.RefreshToken)
	}
	if !manager.CanRefresh() {
		t.Error("CanRefresh() = false after a refresh that did not rotate")
	}
}

func TestTokenExchangeFailureLeavesStateUntouched(t *testing.T) {
	te := newTokenEndpoint(t)
	te.failWith = &oauth.Error{Code: "invalid_grant", Description: "refresh token revoked"}

	manager, err := oauth.NewTokenManager(te.config())
	if err != nil {
		t.Fatalf("NewTokenManager() error = %v", err)
	}
	seed := &oauth.Token{AccessToken: "seed", RefreshToken: "seed-refresh"}
	manager.SetToken(seed)

	_, err = manager.Token(context.Background(), true)
	var oauthErr *oauth.Error
	if !errors.As(err, &oauthErr) {
		t.Fatalf("Token(force) error = %v, want *oauth.Error", err)
	}
	if oauthErr.Code != "invalid_grant" {
		t.Errorf("error code = %q, want invalid_grant", oauthErr.Code)
	}

	// The failed exchange must not have committed anything: the seeded
	// refresh token is still the remediation path.
	if !manager.CanRefresh() {
		t.Error("CanRefresh() = false after failed exchange; state was mutated")
	}
	token, err := manager.Token(context.Background(), false)
	if err == nil && token.AccessToken != "seed" {
		t.Errorf("cached token = %q, want untouched seed", token.AccessToken)
	}
}

func TestTokenConcurrentForcedRefreshCoalesces(t *testing.T) {
	te := newTokenEndpoint(t)
	te.delay = 100 * time.Millisecond

	manager, err := oauth.NewTokenManager(te.config())
	if err != nil {
		t.Fatalf("NewTokenManager() error = %v", err)
	}

	const callers = 16
	start := make(chan struct{})
	tokens := make([]*oauth.Token, callers)
	errs := make([]error, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			tokens[i], errs[i] = manager.Token(context.Background(), true)
		}(i)
	}
	close(start)
	wg.Wait()

	if te.count() != 1 {
		t.Errorf("concurrent forced refreshes performed %d exchanges, want 1", te.count())
	}
	for i := 0; i < callers; i++ {
		if errs[i] != nil {
			t.Fatalf("caller %d error = %v", i, errs[i])
		}
		if tokens[i].AccessToken != tokens[0].AccessToken {
			t.Errorf("caller %d token = %q, want every caller to share the coalesced result",
				i, tokens[i].AccessToken)
		}
	}
}

func TestTokenContextCancellation(t *testing.T) {
	te := newTokenEndpoint(t)
	te.delay = time.Second

	manager, err := oauth.NewTokenManager(te.config())
	if err != nil {
		t.Fatalf("NewTokenManager() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, err := manager.Token(ctx, false); err == nil {
		t.Fatal("Token() succeeded despite cancelled context")
	}
	if manager.CanRefresh() {
		t.Error("cancelled exchange committed credential state")
	}
}

func TestPasswordGrant(t *testing.T) {
	te := newTokenEndpoint(t)
	cfg := te.config()
	cfg.GrantType = oauth.GrantPassword
	cfg.Username = "alice"
	cfg.Password = "secret"
	cfg.Scopes = "read, write"

	manager, err := oauth.NewTokenManager(cfg)
	if err != nil {
		t.Fatalf("NewTokenManager() error = %v", err)
	}
	if _, err := manager.Token(context.Background(), false); err != nil {
		t.Fatalf("Token() error = %v", err)
	}

	form := te.form()
	if got := form.Get("grant_type"); got != "password" {
		t.Errorf("grant_type = %q, want password", got)
	}
	if form.Get("username") != "alice" || form.Get("password") != "secret" {
		t.Errorf("credentials = (%q, %q), want configured ones", form.Get("username"), form.Get("password"))
	}
	if got := form.Get("scope"); got != "read write" {
		t.Errorf("scope = %q, want space-joined list", got)
	}
}

func TestAuthorizationCodeFlow(t *testing.T) {
	te := newTokenEndpoint(t)
	te.rotateRefresh = true
	cfg := te.config()
	cfg.GrantType = oauth.GrantAuthorizationCode
	cfg.AuthURL = "https://provider.example.com/authorize"
	cfg.RedirectURL = "https://app.example.com/callback"

	manager, err := oauth.NewTokenManager(cfg)
	if err != nil {
		t.Fatalf("NewTokenManager() error = %v", err)
	}

	// Without an exchanged code there is nothing to acquire lazily.
	if _, err := manager.Token(context.Background(), false); !errors.Is(err, oauth.ErrAuthorizationRequired) {
		t.Fatalf("Token() error = %v, want ErrAuthorizationRequired", err)
	}

	pkce, err := oauth.GeneratePKCEChallenge("S256")
	if err != nil {
		t.Fatalf("GeneratePKCEChallenge() error = %v", err)
	}

	authURL, state, err := manager.AuthCodeURL(pkce)
	if err != nil {
		t.Fatalf("AuthCodeURL() error = %v", err)
	}
	if state == "" {
		t.Error("AuthCodeURL() returned empty state")
	}
	parsed, err := url.Parse(authURL)
	if err != nil {
		t.Fatalf("AuthCodeURL() returned unparseable URL: %v", err)
	}
	q := parsed.Query()
	if q.Get("response_type") != "code" || q.Get("code_challenge") != pkce.Challenge {
		t.Errorf("authorization URL query = %v, want code flow with PKCE", q)
	}

	token, err := manager.ExchangeCodeWithPKCE(context.Background(), "the-code", pkce)
	if err != nil {
		t.Fatalf("ExchangeCodeWithPKCE() error = %v", err)
	}
	form := te.form()
	if form.Get("grant_type") != "authorization_code" || form.Get("code") != "the-code" {
		t.Errorf("exchange form = %v, want authorization_code grant", form)
	}
	if form.Get("code_verifier") != pkce.Verifier {
		t.Errorf("code_verifier = %q, want the PKCE verifier", form.Get("code_verifier"))
	}

	// The exchanged token becomes the cached credential state.
	cached, err := manager.Token(context.Background(), false)
	if err != nil {
		t.Fatalf("Token() after exchange error = %v", err)
	}
	if cached.AccessToken != token.AccessToken {
		t.Errorf("cached token = %q, want exchanged token %q", cached.AccessToken, token.AccessToken)
	}
}

func TestTokenStoreSeedAndWriteBack(t *testing.T) {
	te := newTokenEndpoint(t)
	store := oauth.NewMemoryTokenStore()

	seeded := &oauth.Token{
		AccessToken: "persisted",
		TokenType:   "Bearer",
		ExpiresAt:   time.Now().Add(time.Hour),
	}
	if err := store.Store(context.Background(), "client-id", seeded); err != nil {
		t.Fatalf("Store() error = %v", err)
	}

	manager, err := oauth.NewTokenManager(te.config(), oauth.WithTokenStore(store, "client-id"))
	if err != nil {
		t.Fatalf("NewTokenManager() error = %v", err)
	}

	token, err := manager.Token(context.Background(), false)
	if err != nil {
		t.Fatalf("Token() error = %v", err)
	}
	if token.AccessToken != "persisted" {
		t.Errorf("token = %q, want the stored token to seed the cache", token.AccessToken)
	}
	if te.count() != 0 {
		t.Errorf("seeded acquisition performed %d exchanges, want 0", te.count())
	}

	// A forced refresh writes the fresh token back to the store.
	if _, err := manager.Token(context.Background(), true); err != nil {
		t.Fatalf("Token(force) error = %v", err)
	}
	stored, err := store.Retrieve(context.Background(), "client-id")
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if stored.AccessToken != "access-1" {
		t.Errorf("stored token = %q, want the freshly acquired one", stored.AccessToken)
	}
}

func TestNewTokenManagerValidation(t *testing.T) {
	if _, err := oauth.NewTokenManager(oauth.Config{TokenURL: "https://x"}); !errors.Is(err, oauth.ErrInvalidConfig) {
		t.Errorf("missing client ID: error = %v, want ErrInvalidConfig", err)
	}
	if _, err := oauth.NewTokenManager(oauth.Config{ClientID: "x"}); !errors.Is(err, oauth.ErrInvalidConfig) {
		t.Errorf("missing token URL: error = %v, want ErrInvalidConfig", err)
	}
	cfg := oauth.Config{ClientID: "x", TokenURL: "https://x", GrantType: "implicit"}
	if _, err := oauth.NewTokenManager(cfg); !errors.Is(err, oauth.ErrUnsupportedGrant) {
		t.Errorf("unknown grant: error = %v, want ErrUnsupportedGrant", err)
	}
}
