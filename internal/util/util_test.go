package util

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNextPow2(t *testing.T) {
	t.Parallel()

	cases := map[uint64]uint64{
		0:           1,
		1:           1,
		2:           2,
		3:           4,
		5:           8,
		64:          64,
		65:          128,
		1<<63 - 1:   1 << 63,
		1 << 63:     1 << 63,
		1<<63 + 1:   1 << 63,
		^uint64(0):  1 << 63,
	}
	for in, want := range cases {
		require.Equal(t, want, NextPow2(in), "NextPow2(%d)", in)
	}
}

func TestIsPowerOfTwo(t *testing.T) {
	t.Parallel()

	require.False(t, IsPowerOfTwo(0))
	require.True(t, IsPowerOfTwo(1))
	require.True(t, IsPowerOfTwo(1024))
	require.False(t, IsPowerOfTwo(1023))
}

func TestReasonableShardCount(t *testing.T) {
	t.Parallel()

	n := ReasonableShardCount()
	require.GreaterOrEqual(t, n, 1)
	require.LessOrEqual(t, n, MaxShards)
	require.True(t, IsPowerOfTwo(uint64(n)))
}

func TestShardIndex(t *testing.T) {
	t.Parallel()

	require.Equal(t, 0, ShardIndex(12345, 1))
	require.Equal(t, 0, ShardIndex(12345, 0))
	require.Equal(t, int(12345&7), ShardIndex(12345, 8))
	require.Equal(t, 12345%6, ShardIndex(12345, 6))
}

type stringerKey struct{ id int }

func (s stringerKey) String() string { return "id" }

func TestHash(t *testing.T) {
	t.Parallel()

	require.Equal(t, Hash("abc"), Hash("abc"))
	require.NotEqual(t, Hash("abc"), Hash("abd"))
	require.Equal(t, Hash(42), Hash(int64(42)), "int widths hash the same value identically")
	require.NotEqual(t, Hash(1), Hash(2))
	require.Equal(t, Hash(stringerKey{1}), Hash("id"))

	require.Panics(t, func() { Hash(struct{ a int }{1}) })
}

func TestPrevPow2(t *testing.T) {
	t.Parallel()

	cases := map[uint64]uint64{
		0:          1,
		1:          1,
		2:          2,
		3:          2,
		100:        64,
		256:        256,
		^uint64(0): 1 << 63,
	}
	for in, want := range cases {
		require.Equal(t, want, PrevPow2(in), "PrevPow2(%d)", in)
	}
}

func TestHashable(t *testing.T) {
	t.Parallel()

	require.True(t, Hashable[string]())
	require.True(t, Hashable[int32]())
	require.True(t, Hashable[[16]byte]())
	require.True(t, Hashable[stringerKey]())
	require.True(t, Hashable[any](), "interface keys are checked per value")
	require.False(t, Hashable[struct{ a int }]())
	require.False(t, Hashable[float64]())
}
