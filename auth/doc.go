// Package auth provides the authentication negotiation layer for HTTP clients.
//
// The package is built around the Authenticator interface: a pluggable unit
// of authentication logic that can proactively attach credentials to outgoing
// requests (pre-authentication) and react to authentication challenges
// (401/407 responses carrying WWW-Authenticate or Proxy-Authenticate headers).
//
// A ChallengeHandler composes any number of named Authenticators and
// implements the Authenticator interface itself, so a client installs a
// single handler and the handler negotiates with the server on its behalf:
//
//	handler := auth.NewChallengeHandler()
//	handler.Register("Basic", 1, auth.NewBasicAuthenticator("user", "secret"))
//	handler.Register("Bearer", 10, bearerAuth)
//
//	// before every send, including retries:
//	if handler.CanPreAuthenticate(req) {
//	    if err := handler.PreAuthenticate(ctx, req); err != nil {
//	        return err
//	    }
//	}
//
//	// after an authentication-failure response:
//	if handler.CanHandleChallenge(req, resp) {
//	    if err := handler.HandleChallenge(ctx, req, resp); err != nil {
//	        return err
//	    }
//	    // retry the request
//	}
//
// The retry loop itself is owned by the caller. This package never decides to
// give up; a challenge that cannot be remediated simply leaves the request
// unauthenticated so the retried request fails again and the caller's retry
// budget surfaces the failure.
//
// OAuth2 authenticators that plug into a ChallengeHandler live in the
// sibling oauth package.
package auth
