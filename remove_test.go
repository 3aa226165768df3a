package bptree

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// S4 — remove + collapse. Fill the tree until it has internal depth
// >= 2, then remove keys until a page collapses; confirm remaining
// keys are still all reachable in order.
func TestRemoveCollapsesInternalPages(t *testing.T) {
	path := filepath.Join(t.TempDir(), "collapse.bpt")
	tr, err := Open(path, Options{PageSize: 4})
	require.NoError(t, err)
	defer tr.Close()

	const n = 300
	keys := make([][]byte, n)
	for i := 0; i < n; i++ {
		k := []byte(fmt.Sprintf("key-%04d", i))
		keys[i] = k
		require.NoError(t, tr.Set(k, k))
	}
	require.Equal(t, pageInternal, tr.root.kind)

	// remove all but every third key, driving plenty of leaf and
	// internal page collapses
	remaining := map[string][]byte{}
	for i, k := range keys {
		if i%3 == 0 {
			remaining[string(k)] = k
			continue
		}
		require.NoError(t, tr.Remove(k))
	}

	for k, v := range remaining {
		got, err := tr.Get([]byte(k))
		require.NoError(t, err)
		require.Equal(t, v, got)
	}

	var seen []string
	err = tr.GetRange(nil, nil, func(k, v []byte) (bool, error) {
		seen = append(seen, string(k))
		return true, nil
	})
	require.NoError(t, err)
	require.Len(t, seen, len(remaining))

	for i := 1; i < len(seen); i++ {
		require.Less(t, seen[i-1], seen[i])
	}
}

func TestRemoveThenReinsert(t *testing.T) {
	tr, _ := openTestTree(t, Options{})

	require.NoError(t, tr.Set([]byte("a"), []byte("1")))
	require.NoError(t, tr.Remove([]byte("a")))

	_, err := tr.Get([]byte("a"))
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, tr.Set([]byte("a"), []byte("2")))
	v, err := tr.Get([]byte("a"))
	require.NoError(t, err)
	require.Equal(t, []byte("2"), v)
}
