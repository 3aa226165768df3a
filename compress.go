package bptree

import (
	"fmt"

	"github.com/klauspost/compress/s2"
)

// Compressor is the block compressor collaborator the writer consumes.
// It never sees whole pages or values directly, only the raw bytes of a
// single block.
type Compressor interface {
	// Compress appends the compressed form of src to dst and returns the
	// result.
	Compress(dst, src []byte) ([]byte, error)

	// Decompress appends the decompressed form of src to dst and returns
	// the result.
	Decompress(dst, src []byte) ([]byte, error)

	// MaxEncodedLen bounds the compressed size of a block of n
	// uncompressed bytes, so callers can size a scratch buffer up front.
	MaxEncodedLen(n int) int

	// DecodedLen reports the uncompressed length encoded in a compressed
	// block's frame header, without decompressing it.
	DecodedLen(src []byte) (int, error)
}

// s2Compressor adapts github.com/klauspost/compress/s2 to Compressor. S2
// is a Snappy-compatible, block-oriented format well suited to the
// writer's "compress one page or value blob at a time" access pattern.
type s2Compressor struct{}

// NewS2Compressor returns the default Compressor used when Options.
// Compressor is left nil.
func NewS2Compressor() Compressor { return s2Compressor{} }

func (s2Compressor) Compress(dst, src []byte) ([]byte, error) {
	base := len(dst)
	max := s2.MaxEncodedLen(len(src))
	if cap(dst)-base < max {
		grown := make([]byte, base, base+max)
		copy(grown, dst)
		dst = grown
	}
	out := s2.Encode(dst[base:base+max], src)
	return dst[:base+len(out)], nil
}

func (s2Compressor) Decompress(dst, src []byte) ([]byte, error) {
	n, err := s2.DecodedLen(src)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecompress, err)
	}
	base := len(dst)
	if cap(dst)-base < n {
		grown := make([]byte, base, base+n)
		copy(grown, dst)
		dst = grown
	}
	out, err := s2.Decode(dst[base:base+n], src)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecompress, err)
	}
	return dst[:base+len(out)], nil
}

func (s2Compressor) MaxEncodedLen(n int) int { return s2.MaxEncodedLen(n) }

func (s2Compressor) DecodedLen(src []byte) (int, error) {
	n, err := s2.DecodedLen(src)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrDecompress, err)
	}
	return n, nil
}

// noopCompressor is a swap-in for callers that want raw, uncompressed
// blocks (e.g. already-compressed values, or debugging a corrupt file).
type noopCompressor struct{}

// NewNoopCompressor returns a Compressor that performs no compression.
func NewNoopCompressor() Compressor { return noopCompressor{} }

func (noopCompressor) Compress(dst, src []byte) ([]byte, error) {
	return append(dst, src...), nil
}

func (noopCompressor) Decompress(dst, src []byte) ([]byte, error) {
	return append(dst, src...), nil
}

func (noopCompressor) MaxEncodedLen(n int) int { return n }

func (noopCompressor) DecodedLen(src []byte) (int, error) { return len(src), nil }
