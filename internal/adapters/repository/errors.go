package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound    = errors.New("competitor not found")
	ErrInvalidPage = errors.New("invalid page request")
	ErrClosed      = errors.New("store closed")
)
