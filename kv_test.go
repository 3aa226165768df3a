package bptree

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKVSerializeRoundTrip(t *testing.T) {
	e := &kv{length: 3, offset: 123456, config: 789, value: []byte("abc")}

	buf := appendKV(nil, e)
	require.Len(t, buf, int(kvHeaderSize+e.length))

	got, n := parseKV(buf)
	require.Equal(t, uint64(len(buf)), n)
	require.Equal(t, e.length, got.length)
	require.Equal(t, e.offset, got.offset)
	require.Equal(t, e.config, got.config)
	require.Equal(t, e.value, got.value)
}

func TestParseKVCopiesValueNotAliased(t *testing.T) {
	src := []byte("some-key-bytes")
	e := &kv{length: uint64(len(src)), offset: 1, config: 2, value: src}
	buf := appendKV(nil, e)

	got, _ := parseKV(buf)
	buf[kvHeaderSize] = 'X' // mutate the serialized buffer after parsing
	require.NotEqual(t, byte('X'), got.value[0])
}

func TestCloneKVIsIndependent(t *testing.T) {
	src := &kv{length: 2, offset: 5, config: 6, value: []byte("ab")}
	c := cloneKV(src)

	c.value[0] = 'z'
	require.Equal(t, byte('a'), src.value[0])
}
