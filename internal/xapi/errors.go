package xapi

import (
	"errors"
	"fmt"
)

var (
	// ErrInitFailed means the INIT phase did not yield a media ID.
	// Permanent: the caller must not retry the upload.
	ErrInitFailed = errors.New("media upload initialization failed")

	// ErrAppendFailed means a segment upload failed; the wrapped error
	// carries the failing segment index.
	ErrAppendFailed = errors.New("media segment upload failed")

	// ErrFinalizeFailed means the FINALIZE phase was rejected.
	ErrFinalizeFailed = errors.New("media upload finalization failed")

	// ErrPublishFailed means the post creation call failed.
	ErrPublishFailed = errors.New("post creation failed")
)

// APIError is a non-2xx response from the X API. Detail carries the
// structured error description when the response body provided one.
type APIError struct {
	StatusCode int
	Title      string
	Detail     string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("x api: %d %s", e.StatusCode, e.Detail)
	}
	if e.Title != "" {
		return fmt.Sprintf("x api: %d %s", e.StatusCode, e.Title)
	}
	return fmt.Sprintf("x api: unexpected status %d", e.StatusCode)
}

// Message returns the upstream error description, preferring the
// structured detail field over the title.
func (e *APIError) Message() string {
	if e.Detail != "" {
		return e.Detail
	}
	return e.Title
}

// AsAPIError unwraps err to an *APIError when one is in the chain.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
