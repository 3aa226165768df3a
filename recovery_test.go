package bptree

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// S5 — crash simulation. After a successful close, appending garbage
// bytes to the tail of the file must not affect recovery: the backward
// head scan skips the torn tail and finds the last intact head block.
func TestRecoveryAfterTornTailWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recover.bpt")

	tr, err := Open(path, Options{Fsync: FsyncAlways})
	require.NoError(t, err)
	require.NoError(t, tr.Set([]byte("a"), []byte("1")))
	require.NoError(t, tr.Close())

	f, err := os.OpenFile(path, os.O_RDWR|os.O_APPEND, 0644)
	require.NoError(t, err)
	_, err = f.Write([]byte{1, 2, 3, 4, 5, 6, 7})
	require.NoError(t, err)
	require.NoError(t, f.Close())

	tr2, err := Open(path, Options{})
	require.NoError(t, err)
	defer tr2.Close()

	v, err := tr2.Get([]byte("a"))
	require.NoError(t, err)
	require.Equal(t, []byte("1"), v)
}

func TestEveryOffsetIsEightByteAligned(t *testing.T) {
	path := filepath.Join(t.TempDir(), "align.bpt")
	tr, err := Open(path, Options{PageSize: 4})
	require.NoError(t, err)
	defer tr.Close()

	for i := 0; i < 50; i++ {
		k := []byte{byte(i), byte(i * 3), byte(i * 7)}
		require.NoError(t, tr.Set(k, k))
	}

	require.Zero(t, tr.root.offset%blockAlign)
	require.Zero(t, tr.w.filesize%blockAlign)
}
