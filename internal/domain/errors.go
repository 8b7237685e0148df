package domain

import "errors"

var (
	// ErrStoreUnavailable marks the durable aggregate store as unreachable or
	// throttled. Recovered locally by the fallback cache, never user-visible.
	ErrStoreUnavailable = errors.New("aggregate store unavailable")

	// ErrCaseNotFound is returned when a case id is unknown.
	ErrCaseNotFound = errors.New("case not found")

	// ErrInvalidPath is returned when a knowledge update names a section or
	// key path that does not resolve against the tree.
	ErrInvalidPath = errors.New("invalid knowledge path")
)
