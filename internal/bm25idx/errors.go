package bm25idx

import "errors"

// Sentinel errors. See spec.md §7's error taxonomy: these fall under
// "Corrupt index" and "Invalid argument".
var (
	ErrBadMagic        = errors.New("bad index.bin magic")
	ErrVersionMismatch = errors.New("unsupported index.bin version")
	ErrTruncated       = errors.New("index.bin truncated")
	ErrTooManyEntries  = errors.New("corpus exceeds max indexable entries (65535)")
)
