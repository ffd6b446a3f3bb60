package oauth

import (
	"context"
	"net/http"
)

// DefaultQueryParam is the query parameter used for token injection unless
// overridden.
const DefaultQueryParam = "access_token"

// QueryParamAuthenticator attaches the current access token to requests as a
// query parameter. It satisfies auth.Authenticator.
//
// Unlike HeaderAuthenticator it keeps no failure state: every
// pre-authentication sets or overwrites the parameter with the manager's
// current token.
type QueryParamAuthenticator struct {
	manager *TokenManager
	param   string
}

// QueryParamOption configures a QueryParamAuthenticator.
type QueryParamOption func(*QueryParamAuthenticator)

// WithQueryParam overrides the query parameter name.
func WithQueryParam(name string) QueryParamOption {
	return func(a *QueryParamAuthenticator) {
		a.param = name
	}
}

// NewQueryParamAuthenticator creates a query-parameter authenticator backed
// by the given token manager.
func NewQueryParamAuthenticator(manager *TokenManager, opts ...QueryParamOption) *QueryParamAuthenticator {
	a := &QueryParamAuthenticator{
		manager: manager,
		param:   DefaultQueryParam,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// CanPreAuthenticate always reports true: the token exchange happens lazily
// inside the manager.
func (a *QueryParamAuthenticator) CanPreAuthenticate(req *http.Request) bool {
	return true
}

// PreAuthenticate sets the token query parameter, overwriting any previous
// value.
func (a *QueryParamAuthenticator) PreAuthenticate(ctx context.Context, req *http.Request) error {
	token, err := a.manager.Token(ctx, false)
	if err != nil {
		return err
	}

	q := req.URL.Query()
	q.Set(a.param, token.AccessToken)
	req.URL.RawQuery = q.Encode()
	return nil
}

// CanHandleChallenge reports whether a refresh token is cached; without one
// no remediation is possible.
func (a *QueryParamAuthenticator) CanHandleChallenge(req *http.Request, resp *http.Response) bool {
	return a.manager.CanRefresh()
}

// HandleChallenge forces a token refresh so the retry's pre-authentication
// injects a fresh token. Without a refresh token it is a no-op.
func (a *QueryParamAuthenticator) HandleChallenge(ctx context.Context, req *http.Request, resp *http.Response) error {
	if !a.manager.CanRefresh() {
		return nil
	}
	_, err := a.manager.Token(ctx, true)
	return err
}
