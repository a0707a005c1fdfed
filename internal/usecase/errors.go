package usecase

import "errors"

var (
	ErrInvalidInput          = errors.New("invalid input")
	ErrNotFound              = errors.New("resource not found")
	ErrRateLimited           = errors.New("rate limited by provider")
	ErrMalformedDocument     = errors.New("malformed match document")
	ErrDependencyUnavailable = errors.New("dependency unavailable")

	// ErrIntegrityConflict marks a duplicate-key write. The rows are already
	// in the store, so callers count the match as skipped rather than failed.
	ErrIntegrityConflict = errors.New("integrity conflict")

	// ErrStoreUnavailable marks a store or connection level failure. Unlike
	// per-match errors it aborts the whole run.
	ErrStoreUnavailable = errors.New("persistence unavailable")
)
