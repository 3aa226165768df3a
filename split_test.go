package bptree

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// S2 — split. With page_size = 4, the root leaf splits as soon as the
// fourth insert fills it; after the fifth insert the root is an
// internal node with two leaf children holding all five keys.
func TestSplitAfterFiveInserts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "split.bpt")
	tr, err := Open(path, Options{PageSize: 4})
	require.NoError(t, err)
	defer tr.Close()

	keys := []string{"a", "b", "c", "d", "e"}
	for i, k := range keys {
		require.NoError(t, tr.Set([]byte(k), []byte{byte('0' + i)}))
	}

	require.Equal(t, pageInternal, tr.root.kind)
	require.Len(t, tr.root.entries, 2)

	var total int
	for _, e := range tr.root.entries {
		child, err := loadPage(tr.w, e.offset, e.config)
		require.NoError(t, err)
		require.Equal(t, pageLeaf, child.kind)
		total += len(child.entries)
	}
	require.Equal(t, len(keys), total)

	for i, k := range keys {
		v, err := tr.Get([]byte(k))
		require.NoError(t, err)
		require.Equal(t, []byte{byte('0' + i)}, v)
	}
}

func TestMultiLevelSplit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "multisplit.bpt")
	tr, err := Open(path, Options{PageSize: 4})
	require.NoError(t, err)
	defer tr.Close()

	const n = 200
	for i := 0; i < n; i++ {
		k := []byte{byte(i >> 8), byte(i)}
		require.NoError(t, tr.Set(k, k))
	}

	for i := 0; i < n; i++ {
		k := []byte{byte(i >> 8), byte(i)}
		v, err := tr.Get(k)
		require.NoError(t, err)
		require.Equal(t, k, v)
	}

	count := 0
	err = tr.GetRange(nil, nil, func(k, v []byte) (bool, error) {
		count++
		return true, nil
	})
	require.NoError(t, err)
	require.Equal(t, n, count)
}
