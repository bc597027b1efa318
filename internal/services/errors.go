package services

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConfigured is returned when the X OAuth client credentials
	// are missing from the environment.
	ErrNotConfigured = errors.New("x oauth client is not configured")

	// ErrInvalidCallback is returned when the OAuth callback is missing
	// the code or state parameter, or the provider reported an error.
	ErrInvalidCallback = errors.New("invalid callback parameters")

	// ErrInvalidSession is returned when the callback state does not
	// match a live authorization session. Consumed and expired sessions
	// are indistinguishable from never-issued ones.
	ErrInvalidSession = errors.New("invalid or expired authorization session")

	// ErrNotConnected is returned when no credential exists for the user.
	ErrNotConnected = errors.New("no connected x account")

	// ErrTokenExpired is returned when the stored credential has passed
	// its expiry. The caller must run the authorization flow again.
	ErrTokenExpired = errors.New("access token expired")

	// ErrRunnerClosed is returned when a task is submitted after the
	// runner began shutting down.
	ErrRunnerClosed = errors.New("task runner is shut down")
)

// ProviderCallbackError is an explicit rejection delivered on the OAuth
// callback via the error/error_description query parameters.
type ProviderCallbackError struct {
	Code        string
	Description string
}

func (e *ProviderCallbackError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("provider rejected authorization: %s (%s)", e.Description, e.Code)
	}
	return "provider rejected authorization: " + e.Code
}

// Message returns the text surfaced to the caller, preferring the
// provider's description over the bare error code.
func (e *ProviderCallbackError) Message() string {
	if e.Description != "" {
		return e.Description
	}
	return e.Code
}
