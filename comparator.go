package bptree

import (
	"bytes"
	"hash/fnv"
)

// defaultCompare is the byte-wise comparator installed when Options.
// Comparator is nil: bytes.Compare's ordering, i.e. memcmp with
// shorter-is-less tiebreak, matching spec.md §4.3.
func defaultCompare(a, b []byte) int {
	return bytes.Compare(a, b)
}

// comparatorTag derives the 8-byte identifier persisted in the head
// block for a named comparator, so a later Open can detect a caller
// installing a different comparator than the one the file was created
// with (spec.md §9's first Open Question). The zero tag is reserved for
// "default byte comparator" and is never produced by a non-empty name.
func comparatorTag(name string) uint64 {
	if name == "" {
		return 0
	}
	h := fnv.New64a()
	h.Write([]byte(name))
	tag := h.Sum64()
	if tag == 0 {
		tag = 1 // keep 0 reserved for "default"
	}
	return tag
}

// compare invokes the tree's installed comparator.
func (t *Tree) compare(a, b []byte) int {
	return t.cmp(a, b)
}
