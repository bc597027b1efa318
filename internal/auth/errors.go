package auth

import "errors"

var (
	// ErrExchangeFailed means the provider's token endpoint rejected the
	// authorization code exchange.
	ErrExchangeFailed = errors.New("authorization code exchange failed")

	// ErrUserInfoFailed means the authenticated profile lookup failed.
	ErrUserInfoFailed = errors.New("failed to fetch user profile")
)
