package bptree

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func openTestWriter(t *testing.T) *writer {
	t.Helper()
	path := filepath.Join(t.TempDir(), "w.raw")
	w, err := openWriter(path, NewS2Compressor(), FsyncNever)
	require.NoError(t, err)
	t.Cleanup(func() { w.close() })
	return w
}

func TestWriterWriteReadRoundTrip(t *testing.T) {
	w := openTestWriter(t)

	payload := []byte("the quick brown fox jumps over the lazy dog")
	offset, csize, err := w.write(true, payload)
	require.NoError(t, err)
	require.Zero(t, offset%blockAlign)

	got, err := w.read(true, offset, csize)
	require.NoError(t, err)
	require.Equal(t, payload, got)
}

func TestWriterEveryAppendIsEightByteAligned(t *testing.T) {
	w := openTestWriter(t)

	lengths := []int{1, 3, 7, 8, 9, 17, 100}
	for _, n := range lengths {
		data := make([]byte, n)
		offset, _, err := w.write(false, data)
		require.NoError(t, err)
		require.Zero(t, offset%blockAlign)
	}
}

func TestWriterReadOutOfBounds(t *testing.T) {
	w := openTestWriter(t)
	_, err := w.read(false, 1000, 10)
	require.ErrorIs(t, err, ErrFileReadOOB)
}

func TestWriterEmptyWriteOnlyPads(t *testing.T) {
	w := openTestWriter(t)
	before := w.filesize
	offset, size, err := w.write(false, nil)
	require.NoError(t, err)
	require.Zero(t, size)
	require.Equal(t, w.filesize, offset)
	require.GreaterOrEqual(t, w.filesize, before)
}

func TestWriterFindLocatesMostRecentMatch(t *testing.T) {
	w := openTestWriter(t)

	const stride = 16
	mkBlock := func(tag byte) []byte {
		b := make([]byte, stride)
		b[0] = tag
		return b
	}

	_, _, err := w.write(false, mkBlock(1))
	require.NoError(t, err)
	require.NoError(t, w.padToStride(stride))
	_, _, err = w.write(false, mkBlock(2))
	require.NoError(t, err)

	var found byte
	err = w.find(stride, func(candidate []byte) bool {
		if candidate[0] == 1 || candidate[0] == 2 {
			found = candidate[0]
			return true
		}
		return false
	}, func() error { return nil })
	require.NoError(t, err)
	require.Equal(t, byte(2), found)
}
