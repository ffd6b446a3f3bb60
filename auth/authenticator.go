package auth

import (
	"context"
	"net/http"
)

// Authenticator is the unit of pluggable authentication logic.
//
// Implementations attach credentials to outgoing requests before they are
// sent, and repair request state after the server rejects a request with an
// authentication challenge. Credentials are supplied to implementations at
// construction time.
type Authenticator interface {
	// CanPreAuthenticate reports whether this authenticator has something
	// to attach to the given request. It must be side-effect free and must
	// not perform I/O.
	CanPreAuthenticate(req *http.Request) bool

	// PreAuthenticate mutates the outgoing request to attach credentials.
	// It is invoked on every send, including retries, so implementations
	// must be idempotent: attaching twice in a row without an intervening
	// challenge must not change the request.
	//
	// PreAuthenticate may perform network I/O (for example a lazy token
	// exchange) and must honor ctx cancellation.
	PreAuthenticate(ctx context.Context, req *http.Request) error

	// CanHandleChallenge reports whether this authenticator recognizes the
	// challenge carried by resp and is able to remediate it. It must be
	// side-effect free and must not perform I/O.
	CanHandleChallenge(req *http.Request, resp *http.Response) bool

	// HandleChallenge performs whatever remediation is needed (typically a
	// credential refresh) so that a subsequent PreAuthenticate and retry
	// can succeed. When no remediation is possible it returns nil and does
	// nothing: the retried request will fail again and the caller's retry
	// policy surfaces the failure. Remediation I/O errors are returned
	// unchanged.
	HandleChallenge(ctx context.Context, req *http.Request, resp *http.Response) error
}
