package auth

import "errors"

// Package-level errors
var (
	// ErrNoMatchingAuthenticator indicates HandleChallenge was invoked for a
	// challenge no registered authenticator can handle. The correct protocol
	// is to call CanHandleChallenge first, so hitting this error is a caller
	// bug rather than a recoverable runtime condition.
	ErrNoMatchingAuthenticator = errors.New("no registered authenticator matches the challenge")
)
