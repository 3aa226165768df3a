package bptree

// pageKind distinguishes a leaf (holds user KVs pointing at value blobs)
// from an internal page (holds child KVs pointing at other pages).
type pageKind int

const (
	pageLeaf pageKind = iota
	pageInternal
)

// page is the in-memory representation of one B+ tree node. Its
// in-memory identity never outlives a single top-level Tree operation:
// every page loaded during a descent is discarded once that operation
// returns, matching the resource model of spec.md §5 (there is simply
// nothing to free explicitly in Go — no buff_, no manual page_destroy).
type page struct {
	kind     pageKind
	offset   uint64 // disk offset; 0 until first save
	config   uint64 // (csize<<1)|isLeaf, valid only after save
	byteSize uint64
	entries  []*kv
}

// zeroSpineKV is the synthetic "less than all keys" first entry every
// internal page carries; comparisons against it are skipped by search.
func zeroSpineKV() *kv {
	return &kv{length: 0, offset: 0, config: 0, value: nil}
}

func newLeafPage() *page {
	return &page{kind: pageLeaf}
}

func newInternalPage() *page {
	spine := zeroSpineKV()
	return &page{kind: pageInternal, entries: []*kv{spine}, byteSize: spine.size()}
}

// isLeafBit is the bit packed into a saved page's config to mark it as
// a leaf, per spec.md §6's "config = (csize<<1)|is_leaf".
func (p *page) isLeafBit() uint64 {
	if p.kind == pageLeaf {
		return 1
	}
	return 0
}

// loadPage reads and decompresses the page at (offset, config) and
// parses its KV entries. Grounded on original_source/src/pages.c's
// bp__page_load: config's low bit is the leaf flag, the rest is the
// on-disk compressed size.
func loadPage(w *writer, offset, config uint64) (*page, error) {
	size := config >> 1
	kind := pageInternal
	if config&1 == 1 {
		kind = pageLeaf
	}

	buf, err := w.read(true, offset, size)
	if err != nil {
		return nil, err
	}

	p := &page{kind: kind, offset: offset, config: config, byteSize: uint64(len(buf))}
	var o uint64
	for o < p.byteSize {
		e, n := parseKV(buf[o:])
		p.entries = append(p.entries, e)
		o += n
	}
	return p, nil
}

// save serializes p's entries and appends the compressed result via w,
// recording the new (offset, config) on p. Grounded on bp__page_save.
func (p *page) save(w *writer) error {
	buf := make([]byte, 0, p.byteSize)
	for _, e := range p.entries {
		buf = appendKV(buf, e)
	}

	offset, csize, err := w.write(true, buf)
	if err != nil {
		return err
	}
	p.offset = offset
	p.config = (csize << 1) | p.isLeafBit()
	return nil
}

// insertAt inserts e at index, shifting subsequent entries right.
func (p *page) insertAt(index uint64, e *kv) {
	p.entries = append(p.entries, nil)
	copy(p.entries[index+1:], p.entries[index:])
	p.entries[index] = e
	p.byteSize += e.size()
}

// removeAt deletes the entry at index, shifting subsequent entries
// left, and returns it.
func (p *page) removeAt(index uint64) *kv {
	e := p.entries[index]
	p.byteSize -= e.size()
	p.entries = append(p.entries[:index], p.entries[index+1:]...)
	return e
}

// searchResult is the outcome of page.search: the insertion/match index,
// the last comparison performed (-1 if the scan ran off the end without
// a single comparison, e.g. an empty page), and — for internal pages —
// the already-loaded child page to descend into.
type searchResult struct {
	index uint64
	cmp   int
	child *page
}

// search performs the linear scan described in spec.md §4.2: starting
// at index 1 for internal pages (the synthetic zero-key spine at index
// 0 is never compared against) or 0 for leaves, until the comparator
// reports a match or overshoot. Internal pages additionally load the
// child to descend into.
func (p *page) search(t *Tree, w *writer, key []byte) (*searchResult, error) {
	i := uint64(0)
	if p.kind == pageInternal {
		i = 1
	}

	cmp := -1
	for i < uint64(len(p.entries)) {
		cmp = t.compare(p.entries[i].value, key)
		if cmp >= 0 {
			break
		}
		i++
	}

	if p.kind == pageLeaf {
		return &searchResult{index: i, cmp: cmp}, nil
	}

	childIdx := i
	if cmp != 0 {
		childIdx--
	}
	child, err := loadPage(w, p.entries[childIdx].offset, p.entries[childIdx].config)
	if err != nil {
		return nil, err
	}
	return &searchResult{index: childIdx, cmp: cmp, child: child}, nil
}

// get recurses to the leaf owning key and reads its value blob.
func (p *page) get(t *Tree, w *writer, key []byte) ([]byte, error) {
	res, err := p.search(t, w, key)
	if err != nil {
		return nil, err
	}
	if res.child == nil {
		if res.cmp != 0 {
			return nil, ErrNotFound
		}
		e := p.entries[res.index]
		return w.read(true, e.offset, e.config)
	}
	return res.child.get(t, w, key)
}

// insert recurses to the owning leaf, replacing any existing entry for
// the same key, then propagates child offset/config updates back up.
// When a page has grown to exactly t.pageSize entries, it is left
// unsaved and a non-nil *splitSignal is returned: the caller already
// holds this very page in memory (as its freshly-returned child) and is
// responsible for splitting it, per spec.md's "transient overflow" rule
// (an overflowing page is never itself written to disk). The root is
// the one page with nowhere to propagate to, so an overflowing root is
// split in place via a freshly created parent instead.
func (p *page) insert(t *Tree, w *writer, isRoot bool, entry *kv) (*splitSignal, error) {
	res, err := p.search(t, w, entry.value)
	if err != nil {
		return nil, err
	}

	if res.child == nil {
		if res.cmp == 0 {
			p.removeAt(res.index)
		}
		p.insertAt(res.index, cloneKV(entry))
	} else {
		split, err := res.child.insert(t, w, false, entry)
		if err != nil {
			return nil, err
		}
		if split != nil {
			if err := p.splitChild(w, res.index, res.child); err != nil {
				return nil, err
			}
		} else {
			p.entries[res.index].offset = res.child.offset
			p.entries[res.index].config = res.child.config
		}
	}

	if uint64(len(p.entries)) == t.pageSize {
		if isRoot {
			return nil, t.splitRoot(w, p)
		}
		return pageOverflowed, nil
	}

	return nil, p.save(w)
}

var pageOverflowed = &splitSignal{}

// splitRoot replaces the tree's root with a fresh internal page whose
// only two children are the two halves of the overflowing old root,
// grounded on bp__page_insert's "if (page == t->head_page)" branch.
func (t *Tree) splitRoot(w *writer, oldRoot *page) error {
	newRoot := newInternalPage()
	if err := newRoot.splitChild(w, 0, oldRoot); err != nil {
		return err
	}
	t.root = newRoot
	return newRoot.save(w)
}

// splitChild splits the overflowing page child — already loaded in
// memory at parent.entries[index] — into two fresh pages, saves both,
// and rewrites parent's entry at index plus a new entry at index+1 to
// point at them. Grounded on bp__page_split, including the exact
// middle = page_size>>1 computation.
func (p *page) splitChild(w *writer, index uint64, child *page) error {
	middle := uint64(len(child.entries)) >> 1

	left := &page{kind: child.kind}
	for _, e := range child.entries[:middle] {
		ce := cloneKV(e)
		left.entries = append(left.entries, ce)
		left.byteSize += ce.size()
	}

	right := &page{kind: child.kind}
	for _, e := range child.entries[middle:] {
		ce := cloneKV(e)
		right.entries = append(right.entries, ce)
		right.byteSize += ce.size()
	}

	middleKey := cloneKV(child.entries[middle])

	if err := left.save(w); err != nil {
		return err
	}
	if err := right.save(w); err != nil {
		return err
	}

	middleKey.offset = right.offset
	middleKey.config = right.config

	p.insertAt(index+1, middleKey)
	p.entries[index].offset = left.offset
	p.entries[index].config = left.config

	return nil
}

// remove recurses to the owning leaf and deletes its entry. A page
// that becomes empty and is not the root signals emptiness to its
// caller (becameEmpty=true) instead of saving itself, mirroring
// EEMPTYPAGE in bp__page_remove.
func (p *page) remove(t *Tree, w *writer, isRoot bool, key []byte) (becameEmpty bool, err error) {
	res, err := p.search(t, w, key)
	if err != nil {
		return false, err
	}

	if res.child == nil {
		if res.cmp != 0 {
			return false, ErrNotFound
		}
		p.removeAt(res.index)
	} else {
		childEmpty, err := res.child.remove(t, w, false, key)
		if err != nil {
			return false, err
		}
		if childEmpty {
			p.removeAt(res.index)
			if len(p.entries) == 1 {
				if err := p.collapse(w); err != nil {
					return false, err
				}
			}
		} else {
			p.entries[res.index].offset = res.child.offset
			p.entries[res.index].config = res.child.config
		}
	}

	if len(p.entries) == 0 && !isRoot {
		return true, nil
	}
	return false, p.save(w)
}

// collapse lifts the contents of this internal page's sole remaining
// child into the page itself, so a chain of near-empty internal pages
// does not persist indefinitely. Grounded on bp__page_remove's
// single-child lift: "page->length == 1" branch.
func (p *page) collapse(w *writer) error {
	last := p.entries[0]
	lifted, err := loadPage(w, last.offset, last.config)
	if err != nil {
		return err
	}
	p.kind = lifted.kind
	p.entries = lifted.entries
	p.byteSize = lifted.byteSize
	return nil
}

// cloneShallow copies p's entry list (deeply, entry by entry) but not
// the subtrees those entries reference on disk. Used by Compact so that
// copyTo — which mutates entry offsets/configs in place as it rewrites
// each page into the target file — never touches the live tree's root.
func (p *page) cloneShallow() *page {
	c := &page{kind: p.kind, byteSize: p.byteSize}
	for _, e := range p.entries {
		c.entries = append(c.entries, cloneKV(e))
	}
	return c
}

// copyTo recursively rewrites p and its subtree from src into dst,
// used by Compact. Children are copied (and saved into dst) before
// their parent, so a page's offset is only assigned once its entire
// subtree is durable — grounded on bp__page_copy.
func (p *page) copyTo(src, dst *writer) error {
	for _, e := range p.entries {
		if p.kind == pageInternal {
			// entries[0]'s key is the synthetic zero-key spine, but its
			// offset/config is still a real child pointer (the leftmost
			// subtree) and must be copied like any other.
			child, err := loadPage(src, e.offset, e.config)
			if err != nil {
				return err
			}
			if err := child.copyTo(src, dst); err != nil {
				return err
			}
			e.offset = child.offset
			e.config = child.config
		} else {
			val, err := src.read(true, e.offset, e.config)
			if err != nil {
				return err
			}
			offset, csize, err := dst.write(true, val)
			if err != nil {
				return err
			}
			e.offset = offset
			e.config = csize
		}
	}
	return p.save(dst)
}

// walk performs an in-order traversal of p's subtree, invoking cb on
// every leaf entry whose key falls within [lo, hi] (either bound nil
// meaning open-ended), stopping early if cb returns cont=false.
// Grounded on spec.md §4.2's Range traversal description directly —
// the retrieved original_source/src/pages.c excerpt does not include a
// range function, so there is no C routine to mirror here.
func (p *page) walk(t *Tree, w *writer, lo, hi []byte, cb func(key, value []byte) (bool, error)) (cont bool, err error) {
	if p.kind == pageLeaf {
		for _, e := range p.entries {
			if lo != nil && t.compare(e.value, lo) < 0 {
				continue
			}
			if hi != nil && t.compare(e.value, hi) > 0 {
				break
			}
			val, err := w.read(true, e.offset, e.config)
			if err != nil {
				return false, err
			}
			more, err := cb(e.value, val)
			if err != nil {
				return false, err
			}
			if !more {
				return false, nil
			}
		}
		return true, nil
	}

	for i := range p.entries {
		e := p.entries[i]
		if hi != nil && i > 0 && t.compare(e.value, hi) > 0 {
			break
		}
		if lo != nil && i+1 < len(p.entries) && t.compare(p.entries[i+1].value, lo) <= 0 {
			continue
		}
		child, err := loadPage(w, e.offset, e.config)
		if err != nil {
			return false, err
		}
		cont, err := child.walk(t, w, lo, hi, cb)
		if err != nil {
			return false, err
		}
		if !cont {
			return false, nil
		}
	}
	return true, nil
}
