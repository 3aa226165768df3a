package bptree

import "errors"

// Stable error sentinels. Callers should compare with errors.Is, not
// string matching: wrapped occurrences (e.g. "opening head block: %w")
// still satisfy errors.Is against these vars.
var (
	ErrAlloc    = errors.New("bptree: allocation failed")
	ErrFile     = errors.New("bptree: file error")
	ErrFileRead = errors.New("bptree: file read error")
	ErrFileReadOOB = errors.New("bptree: file read out of bounds")
	ErrFileWrite  = errors.New("bptree: file write error")
	ErrFileRename = errors.New("bptree: file rename error")

	ErrCompactExists = errors.New("bptree: compact file already exists")
	ErrCompress      = errors.New("bptree: compression error")
	ErrDecompress    = errors.New("bptree: decompression error")

	ErrNotFound = errors.New("bptree: key not found")

	ErrComparatorMismatch = errors.New("bptree: comparator does not match the one this file was created with")

	// ErrClosed is returned by any operation on a tree after Close has
	// been called.
	ErrClosed = errors.New("bptree: tree is closed")
)

// splitSignal is the internal control-flow result carried alongside the
// normal error return of page.insert when a page overflowed and must be
// split by its caller, who already holds the overflowing page in memory
// (see page.insert). A nil *splitSignal means "no split, nothing for
// the caller to do." It is never returned from a public Tree method;
// the analogous "child became empty" signal from page.remove is a plain
// bool for the same reason — both are success variants, not errors.
type splitSignal struct{}
