package oauth

import (
	"errors"
	"fmt"
)

// Package-level errors
var (
	// ErrInvalidConfig indicates invalid token manager configuration
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrNoRefreshToken indicates no refresh token is available
	ErrNoRefreshToken = errors.New("no refresh token available")

	// ErrUnsupportedGrant indicates an unknown grant type was configured
	ErrUnsupportedGrant = errors.New("unsupported grant type")

	// ErrAuthorizationRequired indicates the authorization-code flow needs
	// an interactive authorization before tokens can be acquired
	ErrAuthorizationRequired = errors.New("authorization required: exchange an authorization code first")

	// ErrTokenNotFound indicates the requested token is not in the store
	ErrTokenNotFound = errors.New("token not found")
)

// Error represents an error returned by the token endpoint, per the RFC 6749
// error envelope.
type Error struct {
	// Code is the provider's error code (e.g. "invalid_grant")
	Code string

	// Description is the provider's human-readable description
	Description string

	// Status is the HTTP status code of the token response
	Status int
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("oauth: %s: %s", e.Code, e.Description)
	}
	if e.Code != "" {
		return fmt.Sprintf("oauth: %s", e.Code)
	}
	return fmt.Sprintf("oauth: token endpoint returned status %d", e.Status)
}
