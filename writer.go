package bptree

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/sys/unix"
)

// blockAlign is the byte boundary every append is padded to. Head-block
// recovery depends on this exactly: a torn tail write can only ever
// leave a partial aligned block, never corrupt an earlier one.
const blockAlign = 8

// writer owns the backing file descriptor and a monotonically growing
// logical file size. It is the sole place that issues pread/pwrite
// against the backing file; the page engine and tree never touch *os.File
// directly.
type writer struct {
	file       *os.File
	filename   string
	filesize   uint64
	compressor Compressor
	fsync      Fsync
	padding    [blockAlign]byte
}

// openWriter opens filename for read+write, creating it if absent, and
// takes an exclusive advisory lock so a second opener in this or another
// process fails immediately. Grounded on original_source/src/writer.c's
// bp__writer_create (O_RDWR|O_CREAT under O_EXLOCK on BSD; Linux has no
// O_EXLOCK, so the lock is taken explicitly via flock(2) below).
func openWriter(filename string, compressor Compressor, fsync Fsync) (*writer, error) {
	f, err := os.OpenFile(filename, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrFile, filename, err)
	}

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: lock %s: %v", ErrFile, filename, err)
	}

	size, err := f.Seek(0, io.SeekEnd)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: stat %s: %v", ErrFile, filename, err)
	}

	return &writer{
		file:       f,
		filename:   filename,
		filesize:   uint64(size),
		compressor: compressor,
		fsync:      fsync,
	}, nil
}

// close releases the descriptor (and with it, the advisory lock).
func (w *writer) close() error {
	if err := w.file.Close(); err != nil {
		return fmt.Errorf("%w: close %s: %v", ErrFile, w.filename, err)
	}
	return nil
}

// read bounds-checks offset+size against the logical file size, reads
// exactly size bytes via a positional read, and decompresses when
// compressed is true. Empty reads return a nil slice and no error.
func (w *writer) read(compressed bool, offset, size uint64) ([]byte, error) {
	if w.filesize < offset+size {
		return nil, fmt.Errorf("%w: offset %d size %d filesize %d", ErrFileReadOOB, offset, size, w.filesize)
	}
	if size == 0 {
		return nil, nil
	}

	raw := make([]byte, size)
	n, err := w.file.ReadAt(raw, int64(offset))
	if err != nil || uint64(n) != size {
		return nil, fmt.Errorf("%w: read at %d: %v", ErrFileRead, offset, err)
	}

	if !compressed {
		return raw, nil
	}
	out, err := w.compressor.Decompress(nil, raw)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// write pads the file to the next 8-byte boundary, then appends data
// (compressed, when requested). It returns the post-padding offset at
// which the payload begins and the number of bytes actually written for
// the payload (the compressed size, when compressed).
func (w *writer) write(compressed bool, data []byte) (offset uint64, size uint64, err error) {
	if err := w.pad(); err != nil {
		return 0, 0, err
	}

	if len(data) == 0 {
		return w.filesize, 0, nil
	}

	payload := data
	if compressed {
		payload, err = w.compressor.Compress(nil, data)
		if err != nil {
			return 0, 0, fmt.Errorf("%w: %v", ErrCompress, err)
		}
	}

	n, err := w.file.WriteAt(payload, int64(w.filesize))
	if err != nil || n != len(payload) {
		return 0, 0, fmt.Errorf("%w: write at %d: %v", ErrFileWrite, w.filesize, err)
	}

	offset = w.filesize
	w.filesize += uint64(n)

	if w.fsync == FsyncAlways {
		if err := w.file.Sync(); err != nil {
			return 0, 0, fmt.Errorf("%w: sync: %v", ErrFile, err)
		}
	}

	return offset, uint64(n), nil
}

// pad writes zero padding, if needed, to bring the logical file size to
// the next 8-byte boundary.
func (w *writer) pad() error {
	rem := w.filesize % blockAlign
	if rem == 0 {
		return nil
	}
	n := blockAlign - rem
	written, err := w.file.WriteAt(w.padding[:n], int64(w.filesize))
	if err != nil || uint64(written) != n {
		return fmt.Errorf("%w: pad: %v", ErrFileWrite, err)
	}
	w.filesize += n
	return nil
}

// syncHead fsyncs the file; called after the head block write when
// Fsync is FsyncHead (FsyncAlways already synced every write, FsyncNever
// never syncs).
func (w *writer) syncHead() error {
	if w.fsync != FsyncHead {
		return nil
	}
	if err := w.file.Sync(); err != nil {
		return fmt.Errorf("%w: sync: %v", ErrFile, err)
	}
	return nil
}

// padToStride zero-pads the file up to the next absolute multiple of
// stride, so that every head block write (the only caller) lands at a
// stride-aligned file offset. This is a stronger alignment than the
// plain 8-byte pad() every other append uses, and is what makes find's
// backward stride-scan sound: head blocks occupy a periodic, predictable
// subsequence of offsets no matter what variable-sized page/value writes
// fall between them.
func (w *writer) padToStride(stride uint64) error {
	rem := w.filesize % stride
	if rem == 0 {
		return nil
	}
	need := stride - rem
	buf := make([]byte, need)
	n, err := w.file.WriteAt(buf, int64(w.filesize))
	if err != nil || uint64(n) != need {
		return fmt.Errorf("%w: pad to stride: %v", ErrFileWrite, err)
	}
	w.filesize += need
	return nil
}

// find scans the file backward in blockSize strides, invoking seek on
// each candidate block; it stops at the first candidate for which seek
// returns true. If no candidate matches, miss is invoked. Used
// exclusively to locate the most recent valid head block.
//
// The scan starts at the last complete blockSize-aligned boundary at or
// below the current (possibly torn-tail) file size, rather than padding
// up to one: any trailing fragment narrower than a full stride — a
// partial write from a crash, or garbage appended after a clean close —
// is simply excluded from every candidate window instead of corrupting
// their alignment, which is what lets a torn tail of arbitrary length
// still resolve to the last intact head (spec.md §8 property 8).
func (w *writer) find(blockSize uint64, seek func(candidate []byte) bool, miss func() error) error {
	offset := (w.filesize / blockSize) * blockSize
	for offset >= blockSize {
		candidate, err := w.read(false, offset-blockSize, blockSize)
		if err != nil {
			return err
		}
		if seek(candidate) {
			return nil
		}
		offset -= blockSize
	}

	return miss()
}
