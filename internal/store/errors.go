package store

import "errors"

// Sentinel errors matching spec.md §7's error taxonomy (NotFound / Invalid
// argument kinds); Storage and Corrupt-index kinds surface as wrapped
// errors from internal/dlog and internal/bm25idx instead of these.
var (
	// ErrNotFound covers a missing topic, entry index, or tag.
	ErrNotFound = errors.New("not found")

	// ErrInvalidArgument covers a malformed caller-supplied argument (a
	// negative index, an empty topic name).
	ErrInvalidArgument = errors.New("invalid argument")
)
