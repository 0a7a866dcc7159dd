package internalerr

import "errors"

// Sentinel errors for common cases
var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrInvalidConfig    = errors.New("invalid configuration")

	// ErrInvalidLabel is returned when a classifier answers with a label
	// outside the document type enum.
	ErrInvalidLabel = errors.New("invalid document type label")
	// ErrNoClassifier is returned when no keyword rule fires and there is
	// neither a model nor a fallback label to decide.
	ErrNoClassifier = errors.New("no classifier available")
	// ErrEmptyResponse is returned when a remote collaborator answers with
	// nothing usable.
	ErrEmptyResponse = errors.New("empty response")
)
