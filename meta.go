package bptree

import (
	"encoding/binary"
	"fmt"
)

// headBlockSize is the fixed, uncompressed, on-disk size of a head
// block: page_size, hash (magic), offset, config, and a comparator
// identity tag, each a big-endian u64.
const headBlockSize = 5 * 8

// headMagic identifies a valid head block during backward recovery
// scan; any candidate block whose hash word (the block's second u64)
// does not match this value is skipped.
const headMagic uint64 = 0x6270_2b74_7265_6521 // "bp+tree!" ascii, packed

// head is the tree header: the fixed fields persisted at the tail of
// the file that locate the current root and the format parameters
// chosen at creation.
type head struct {
	pageSize      uint64
	hash          uint64
	offset        uint64 // root page offset
	config        uint64 // root page config: (csize<<1)|is_leaf
	comparatorTag uint64 // 0 means "default byte comparator"
}

// serialize writes h's fields, in order, as big-endian u64s.
func (h *head) serialize() []byte {
	buf := make([]byte, headBlockSize)
	binary.BigEndian.PutUint64(buf[0:8], h.pageSize)
	binary.BigEndian.PutUint64(buf[8:16], h.hash)
	binary.BigEndian.PutUint64(buf[16:24], h.offset)
	binary.BigEndian.PutUint64(buf[24:32], h.config)
	binary.BigEndian.PutUint64(buf[32:40], h.comparatorTag)
	return buf
}

// parseHead reads a head block candidate and reports whether its magic
// matches, so the backward scan can tell an intact head from a torn
// write or unrelated data.
func parseHead(buf []byte) (*head, bool) {
	if len(buf) < headBlockSize {
		return nil, false
	}
	h := &head{
		pageSize:      binary.BigEndian.Uint64(buf[0:8]),
		hash:          binary.BigEndian.Uint64(buf[8:16]),
		offset:        binary.BigEndian.Uint64(buf[16:24]),
		config:        binary.BigEndian.Uint64(buf[24:32]),
		comparatorTag: binary.BigEndian.Uint64(buf[32:40]),
	}
	return h, h.hash == headMagic
}

// writeHeadBlock appends a new head block at the given stride and
// fsyncs per w's Fsync option. It first pads to an absolute multiple of
// stride (not just the usual 8-byte alignment every other append gets)
// so that head blocks occupy a periodic subsequence of file offsets —
// see writer.find's doc comment for why that periodicity is load-bearing.
func writeHeadBlock(w *writer, stride uint64, h *head) error {
	if err := w.padToStride(stride); err != nil {
		return err
	}

	h.hash = headMagic
	block := make([]byte, stride)
	copy(block, h.serialize())

	if _, _, err := w.write(false, block); err != nil {
		return err
	}
	return w.syncHead()
}

// findHeadBlock locates the most recent valid head block by scanning
// backward from end-of-file in stride-sized candidates. It reports
// found=false if none exists yet (a brand new file).
func findHeadBlock(w *writer, stride uint64) (h *head, found bool, err error) {
	err = w.find(stride, func(candidate []byte) bool {
		parsed, ok := parseHead(candidate)
		if !ok {
			return false
		}
		h = parsed
		found = true
		return true
	}, func() error { return nil })
	if err != nil {
		return nil, false, fmt.Errorf("scanning for head block: %w", err)
	}
	return h, found, nil
}

// writeHead is a Tree-scoped convenience wrapper around writeHeadBlock.
func (t *Tree) writeHead(h *head) error {
	return writeHeadBlock(t.w, t.headStride, h)
}

// findHead is a Tree-scoped convenience wrapper around findHeadBlock.
func (t *Tree) findHead() (*head, bool, error) {
	return findHeadBlock(t.w, t.headStride)
}
