package bptree

import "encoding/binary"

// kvHeaderSize is the on-disk size of a KV's three big-endian u64 fields,
// not counting its variable-length key bytes.
const kvHeaderSize = 24

// kv is one entry inside a page: a child pointer (internal page) or a
// value-blob pointer (leaf page). The field named value always holds
// key bytes — offset/config locate the thing this entry actually
// references (a child page, or a value blob), never the key itself.
//
// Unlike the C original, there is no allocated flag: key bytes are
// always owned by this struct (copied out of the page's decompressed
// block on load), so there is nothing to alias and nothing to free
// explicitly — the garbage collector reclaims it with the page.
type kv struct {
	length uint64 // len(value)
	offset uint64 // child page offset, or value-blob offset
	config uint64 // child page config, or value-blob byte length
	value  []byte // key bytes
}

// size is the serialized on-disk size of this entry.
func (e *kv) size() uint64 {
	return kvHeaderSize + e.length
}

// cloneKV returns a deep copy of src; used everywhere a KV is inserted
// into a page (shift, split, copy) so that no two pages ever alias the
// same backing array. Collapses the C original's dual allocate/alias
// bp__kv_copy into a single always-copies form, sanctioned by SPEC_FULL's
// page-to-buffer-aliasing design note.
func cloneKV(src *kv) *kv {
	value := make([]byte, len(src.value))
	copy(value, src.value)
	return &kv{length: src.length, offset: src.offset, config: src.config, value: value}
}

// appendKV serializes e onto dst and returns the extended slice.
func appendKV(dst []byte, e *kv) []byte {
	var hdr [kvHeaderSize]byte
	binary.BigEndian.PutUint64(hdr[0:8], e.length)
	binary.BigEndian.PutUint64(hdr[8:16], e.offset)
	binary.BigEndian.PutUint64(hdr[16:24], e.config)
	dst = append(dst, hdr[:]...)
	dst = append(dst, e.value...)
	return dst
}

// parseKV reads one entry starting at buf[0] and returns it along with
// the number of bytes consumed. The returned kv's value is a freshly
// allocated copy, never an alias into buf (see the no-allocated-flag
// note on the kv struct above).
func parseKV(buf []byte) (*kv, uint64) {
	length := binary.BigEndian.Uint64(buf[0:8])
	offset := binary.BigEndian.Uint64(buf[8:16])
	config := binary.BigEndian.Uint64(buf[16:24])
	value := make([]byte, length)
	copy(value, buf[kvHeaderSize:kvHeaderSize+length])
	return &kv{length: length, offset: offset, config: config, value: value}, kvHeaderSize + length
}
