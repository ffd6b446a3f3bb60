package auth

import (
	"context"
	"net/http"
)

// BasicAuthenticator attaches HTTP Basic credentials to requests.
//
// Basic authentication has no refreshable state: the only remediation for a
// Basic challenge is attaching credentials that were not on the rejected
// request. A request that already carried the header and was still challenged
// has wrong credentials, which this authenticator cannot fix.
type BasicAuthenticator struct {
	username string
	password string
}

// NewBasicAuthenticator creates a Basic authenticator for the given
// credentials.
func NewBasicAuthenticator(username, password string) *BasicAuthenticator {
	return &BasicAuthenticator{username: username, password: password}
}

// CanPreAuthenticate reports whether credentials are configured.
func (b *BasicAuthenticator) CanPreAuthenticate(req *http.Request) bool {
	return b.username != ""
}

// PreAuthenticate sets the Authorization header unless one is already
// present.
func (b *BasicAuthenticator) PreAuthenticate(ctx context.Context, req *http.Request) error {
	if req.Header.Get("Authorization") != "" {
		return nil
	}
	req.SetBasicAuth(b.username, b.password)
	return nil
}

// CanHandleChallenge reports whether attaching credentials on retry could
// succeed: credentials are configured and the challenged request did not
// already carry them.
func (b *BasicAuthenticator) CanHandleChallenge(req *http.Request, resp *http.Response) bool {
	if b.username == "" {
		return false
	}
	return req == nil || req.Header.Get("Authorization") == ""
}

// HandleChallenge is a no-op: the retry's PreAuthenticate attaches the
// credentials.
func (b *BasicAuthenticator) HandleChallenge(ctx context.Context, req *http.Request, resp *http.Response) error {
	return nil
}
