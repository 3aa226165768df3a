package bptree

import (
	"fmt"
	"os"
)

// compactSuffix is appended to the backing file's name to derive the
// scratch file compaction rewrites into, grounded on
// bp__writer_compact_name.
const compactSuffix = ".compact"

// Compact rewrites the tree's backing file, keeping only the live
// (reachable from the current root) pages and values, then atomically
// replaces the original file with the result. It refuses to run if a
// stale `<path>.compact` file is already present (a previous compaction
// that did not finish cleanly), returning ErrCompactExists — grounded
// on bp__writer_compact_name's access() check.
func (t *Tree) Compact() error {
	if err := t.checkOpen(); err != nil {
		return err
	}

	compactPath := t.path + compactSuffix
	if _, err := os.Stat(compactPath); err == nil {
		return ErrCompactExists
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("%w: stat %s: %v", ErrFile, compactPath, err)
	}

	targetW, err := openWriter(compactPath, t.compressor, t.fsync)
	if err != nil {
		return err
	}

	// rootCopy is a shallow clone so copyTo's in-place offset/config
	// rewrites never touch the live tree's root while the rewrite is in
	// flight; if the copy or the target head write fails, t.root and t.w
	// are untouched and the tree remains fully usable against the
	// original file.
	rootCopy := t.root.cloneShallow()
	if err := rootCopy.copyTo(t.w, targetW); err != nil {
		targetW.close()
		os.Remove(compactPath)
		return err
	}

	targetHead := &head{pageSize: t.pageSize, offset: rootCopy.offset, config: rootCopy.config, comparatorTag: t.cmpTag}
	if err := writeHeadBlock(targetW, t.headStride, targetHead); err != nil {
		targetW.close()
		os.Remove(compactPath)
		return err
	}

	// Grounded on bp__writer_compact_finalize: close both descriptors,
	// rename the already-durable compacted file over the original, then
	// reopen on the new inode under the same path.
	if err := t.w.close(); err != nil {
		targetW.close()
		return err
	}
	if err := targetW.close(); err != nil {
		return err
	}

	if err := os.Rename(compactPath, t.path); err != nil {
		return fmt.Errorf("%w: rename %s to %s: %v", ErrFileRename, compactPath, t.path, err)
	}

	newW, err := openWriter(t.path, t.compressor, t.fsync)
	if err != nil {
		return err
	}

	t.w = newW
	t.root = rootCopy
	return nil
}
