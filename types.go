package bptree

// CompareFunc is a total order over opaque byte-string keys, supplied by
// the caller at Open time. It must return <0, 0 or >0 the way
// bytes.Compare does.
type CompareFunc func(a, b []byte) int

// Fsync selects how aggressively the writer flushes to stable storage.
// The original C source never asserts a durability guarantee beyond OS
// buffering; this is the explicit, documented knob spec.md's design
// notes ask for.
type Fsync int

const (
	// FsyncHead fsyncs only after a head block write, so a crash can
	// lose at most the data written since the previous head rewrite but
	// never corrupts it. The zero value, so Options{} without an
	// explicit Fsync gets this default rather than the weakest setting.
	FsyncHead Fsync = iota
	// FsyncNever relies entirely on OS buffering, matching the original
	// C behavior. Fastest, weakest durability.
	FsyncNever
	// FsyncAlways fsyncs after every append, including page and value
	// writes. Slowest, strongest durability.
	FsyncAlways
)

// Options configures Open.
type Options struct {
	// PageSize is the B+ tree branching factor, fixed at first creation
	// and persisted in the head block thereafter; subsequent Open calls
	// ignore this field once a file exists. Zero selects the default.
	PageSize int

	// Compressor compresses page and value blocks. Nil selects the
	// default S2-backed compressor.
	Compressor Compressor

	// Comparator orders keys. Nil selects the default byte-wise
	// comparator (bytes.Compare semantics, shorter-is-less tiebreak).
	Comparator CompareFunc

	// ComparatorName identifies Comparator for the persisted-tag check
	// (see SetCompareCb). Required when Comparator is non-nil.
	ComparatorName string

	// Fsync selects durability vs. throughput. Zero value is
	// FsyncHead.
	Fsync Fsync

	// HeadStride overrides the stride, in bytes, used to separate head
	// blocks during backward recovery scan. Zero selects the default;
	// otherwise it must be a multiple of 8 and at least the head block
	// size, or Open fails.
	HeadStride uint64
}

const (
	defaultPageSize  = 64
	defaultHeadStride = headBlockSize
)

// KeyValue is one entry of a BulkUpdate batch.
type KeyValue struct {
	Key   []byte
	Value []byte
}

// UpdateFunc is invoked by Update/BulkUpdate with the current value for
// a key (nil if absent) and returns the new value to install. Returning
// ErrNoChange requests a no-op.
type UpdateFunc func(key, prev []byte) (next []byte, err error)

// ErrNoChange is a sentinel UpdateFunc implementations return (wrapped
// or bare) to signal "leave this key alone."
var ErrNoChange = errNoChange{}

type errNoChange struct{}

func (errNoChange) Error() string { return "bptree: no change requested" }
