package store

import "errors"

var (
	// ErrRecordNotFound wraps GORM's not found error for consistency
	ErrRecordNotFound = errors.New("record not found")

	// ErrUploadFinalized is returned by UpdateUploadStatus when the upload
	// already reached a terminal state (0 rows updated). Terminal states
	// are never overwritten.
	ErrUploadFinalized = errors.New("upload already finalized")
)
