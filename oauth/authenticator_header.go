package oauth

import (
	"context"
	"net/http"
	"sync"
)

// HeaderAuthenticator attaches the current access token to requests as an
// "Authorization: <type> <token>" header. It satisfies auth.Authenticator.
//
// The authenticator tracks whether the previously attached header was
// rejected by a challenge. While it was not, an Authorization header already
// present on the request is left untouched, so retries do not hit the token
// manager redundantly; after a rejection the next pre-authentication attaches
// a fresh value, overwriting the old one.
type HeaderAuthenticator struct {
	manager *TokenManager

	mu         sync.Mutex
	authFailed bool
}

// NewHeaderAuthenticator creates an Authorization-header authenticator backed
// by the given token manager.
func NewHeaderAuthenticator(manager *TokenManager) *HeaderAuthenticator {
	return &HeaderAuthenticator{manager: manager}
}

// CanPreAuthenticate always reports true: the token exchange happens lazily
// inside the manager, so there is always something to attach.
func (a *HeaderAuthenticator) CanPreAuthenticate(req *http.Request) bool {
	return true
}

// PreAuthenticate attaches the Authorization header when it is absent or the
// previous value was rejected.
func (a *HeaderAuthenticator) PreAuthenticate(ctx context.Context, req *http.Request) error {
	a.mu.Lock()
	failed := a.authFailed
	a.mu.Unlock()

	if req.Header.Get("Authorization") != "" && !failed {
		return nil
	}

	token, err := a.manager.Token(ctx, false)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", token.Type()+" "+token.AccessToken)

	a.mu.Lock()
	a.authFailed = false
	a.mu.Unlock()
	return nil
}

// CanHandleChallenge reports whether a refresh token is cached; without one
// no remediation is possible.
func (a *HeaderAuthenticator) CanHandleChallenge(req *http.Request, resp *http.Response) bool {
	return a.manager.CanRefresh()
}

// HandleChallenge marks the attached header as rejected and forces a token
// refresh. Without a refresh token it is a no-op; a failed refresh propagates
// so the caller aborts the retry instead of resending stale credentials.
func (a *HeaderAuthenticator) HandleChallenge(ctx context.Context, req *http.Request, resp *http.Response) error {
	if !a.manager.CanRefresh() {
		return nil
	}

	a.mu.Lock()
	a.authFailed = true
	a.mu.Unlock()

	_, err := a.manager.Token(ctx, true)
	return err
}
