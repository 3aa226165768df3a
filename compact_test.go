package bptree

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func collectAll(t *testing.T, tr *Tree) map[string]string {
	t.Helper()
	out := map[string]string{}
	err := tr.GetRange(nil, nil, func(k, v []byte) (bool, error) {
		out[string(k)] = string(v)
		return true, nil
	})
	require.NoError(t, err)
	return out
}

// S6 — compaction idempotence.
func TestCompactionIdempotence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "compact.bpt")
	tr, err := Open(path, Options{PageSize: 8})
	require.NoError(t, err)
	defer tr.Close()

	const n = 1000
	for i := 0; i < n; i++ {
		k := []byte(fmt.Sprintf("k%05d", i))
		require.NoError(t, tr.Set(k, k))
	}
	for i := 0; i < n; i += 2 {
		k := []byte(fmt.Sprintf("k%05d", i))
		require.NoError(t, tr.Remove(k))
	}

	before := collectAll(t, tr)
	require.Len(t, before, n/2)

	preSize, err := os.Stat(path)
	require.NoError(t, err)

	require.NoError(t, tr.Compact())

	postStat, err := os.Stat(path)
	require.NoError(t, err)
	require.Less(t, postStat.Size(), preSize.Size())

	after := collectAll(t, tr)
	if diff := cmp.Diff(before, after); diff != "" {
		t.Fatalf("mapping changed after compaction (-before +after):\n%s", diff)
	}

	firstCompactSize := postStat.Size()

	require.NoError(t, tr.Compact())

	secondStat, err := os.Stat(path)
	require.NoError(t, err)
	require.LessOrEqual(t, secondStat.Size(), firstCompactSize)

	finalMapping := collectAll(t, tr)
	if diff := cmp.Diff(before, finalMapping); diff != "" {
		t.Fatalf("mapping changed after second compaction (-before +after):\n%s", diff)
	}
}

func TestCompactRefusesWhenScratchFileExists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "busy.bpt")
	tr, err := Open(path, Options{})
	require.NoError(t, err)
	defer tr.Close()

	require.NoError(t, tr.Set([]byte("k"), []byte("v")))

	require.NoError(t, os.WriteFile(path+compactSuffix, []byte("stale"), 0644))

	err = tr.Compact()
	require.ErrorIs(t, err, ErrCompactExists)

	// tree must remain fully usable after a refused compaction
	v, err := tr.Get([]byte("k"))
	require.NoError(t, err)
	require.Equal(t, []byte("v"), v)
}

func TestCompactionPreservesDataAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "compact-reopen.bpt")
	tr, err := Open(path, Options{PageSize: 4})
	require.NoError(t, err)

	for i := 0; i < 40; i++ {
		k := []byte(fmt.Sprintf("x%03d", i))
		require.NoError(t, tr.Set(k, k))
	}
	for i := 0; i < 40; i += 3 {
		k := []byte(fmt.Sprintf("x%03d", i))
		require.NoError(t, tr.Remove(k))
	}

	before := collectAll(t, tr)
	require.NoError(t, tr.Compact())
	require.NoError(t, tr.Close())

	tr2, err := Open(path, Options{})
	require.NoError(t, err)
	defer tr2.Close()

	after := collectAll(t, tr2)
	if diff := cmp.Diff(before, after); diff != "" {
		t.Fatalf("mapping changed across compact+close+reopen (-before +after):\n%s", diff)
	}
}
