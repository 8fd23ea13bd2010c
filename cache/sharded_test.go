package cache

import (
	"context"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/sync/errgroup"
)

func TestSharded_ShardCountAndBudget(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		maxSize   int64
		shards    int
		wantCount int
		wantMax   int64
	}{
		{name: "exact", maxSize: 100, shards: 4, wantCount: 4, wantMax: 100},
		{name: "rounded up", maxSize: 100, shards: 3, wantCount: 4, wantMax: 100},
		{name: "remainder dropped", maxSize: 10, shards: 4, wantCount: 4, wantMax: 8},
		{name: "single", maxSize: 7, shards: 1, wantCount: 1, wantMax: 7},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := NewSharded(tc.maxSize, Options[string, string, struct{}]{Shards: tc.shards})
			assert.Equal(t, tc.wantCount, c.ShardCount())
			assert.Equal(t, tc.wantMax, c.MaxSize())
		})
	}

	auto := NewSharded(1<<20, Options[string, string, struct{}]{})
	assert.GreaterOrEqual(t, auto.ShardCount(), 1)
	assert.Zero(t, auto.ShardCount()&(auto.ShardCount()-1), "auto shard count must be a power of two")

	assert.Panics(t, func() { NewSharded(-1, Options[string, string, struct{}]{}) })
}

// An entry that fits the whole budget but not one shard is rejected.
func TestSharded_RejectsAbovePerShardBudget(t *testing.T) {
	t.Parallel()

	c := NewSharded(40, Options[string, string, struct{}]{Shards: 4})
	assert.False(t, c.Set("k", ent(11, "v")))
	assert.True(t, c.Set("k", ent(10, "v")))
	assert.EqualValues(t, 1, c.Stats().Rejects)
}

func TestSharded_SizeBoundHolds(t *testing.T) {
	t.Parallel()

	rec := &recorder[string, string, struct{}]{}
	c := NewSharded(64, Options[string, string, struct{}]{Shards: 4, OnEvict: rec.onEvict})

	for i := 0; i < 200; i++ {
		k := "k" + strconv.Itoa(i)
		require.True(t, c.Set(k, ent(int64(1+i%5), k)))
		require.LessOrEqual(t, c.Size(), c.MaxSize())
	}
	assert.Equal(t, 200-c.Len(), len(rec.calls), "every departed entry is notified once")
	assert.Len(t, c.Keys(), c.Len())
	assert.Len(t, c.Values(), c.Len())

	c.Clear()
	assert.True(t, c.IsEmpty())
	assert.Len(t, rec.calls, 200)
}

// With every key routed to one shard, Sharded behaves like a single LRU.
func TestSharded_CustomHasher(t *testing.T) {
	t.Parallel()

	rec := &recorder[string, string, struct{}]{}
	c := NewSharded(40, Options[string, string, struct{}]{
		Shards:  4,
		Hasher:  func(string) uint64 { return 0 },
		OnEvict: rec.onEvict,
	})

	c.Set("a", ent(4, "a"))
	c.Set("b", ent(4, "b"))
	c.Get("a")
	c.Set("c", ent(4, "c"))

	assert.Equal(t, []string{"b"}, rec.keys())
	assert.True(t, c.Has("a"))
	assert.True(t, c.Has("c"))
}

func TestSharded_Ops(t *testing.T) {
	t.Parallel()

	c := NewSharded(1000, Options[string, string, struct{}]{
		Shards: 8,
		SizeOf: func(_ string, v string) int64 { return int64(len(v)) },
		Loader: func(_ context.Context, k string) (Entry[string, struct{}], error) {
			return ent(1, "L"+k), nil
		},
	})
	t.Cleanup(func() { _ = c.Close() })

	require.True(t, c.SetValue("a", "abc", struct{}{}))
	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, "abc", v)
	v, ok = c.Peek("a")
	require.True(t, ok)
	assert.Equal(t, "abc", v)

	c.SetAsUtilized("a")
	e, ok := c.PeekEntry("a")
	require.True(t, ok)
	assert.True(t, e.Utilized)
	assert.EqualValues(t, 3, e.Size)

	v, err := c.GetOrLoad(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, "Lx", v)
	assert.True(t, c.Has("x"))

	assert.True(t, c.Remove("a"))
	assert.False(t, c.Remove("a"))
	assert.EqualValues(t, 1, c.Size())

	st := c.Stats()
	assert.EqualValues(t, 1, st.Hits)
	assert.EqualValues(t, 1, st.Misses) // GetOrLoad fast path
	assert.EqualValues(t, 1, st.Evictions)

	require.NoError(t, c.Close())
	_, err = c.GetOrLoad(context.Background(), "y")
	assert.ErrorIs(t, err, ErrClosed)
}

// Per-shard Size reports are folded into cache-wide totals.
func TestSharded_MetricsAggregateSize(t *testing.T) {
	t.Parallel()

	m := newCountingMetrics()
	c := NewSharded(400, Options[string, string, struct{}]{Shards: 4, Metrics: m})

	for i := 0; i < 50; i++ {
		c.Set("k"+strconv.Itoa(i), ent(int64(1+i%7), "v"))
	}
	for i := 0; i < 50; i += 3 {
		c.Remove("k" + strconv.Itoa(i))
	}
	c.Get("k1")
	c.Get("k0")

	assert.Equal(t, c.Len(), m.entries)
	assert.Equal(t, c.Size(), m.size)
	assert.Equal(t, 1, m.hits)
	assert.Equal(t, 1, m.misses)

	c.Clear()
	assert.Equal(t, 0, m.entries)
	assert.EqualValues(t, 0, m.size)
}

// A budget smaller than the shard count shrinks the shard count instead of
// leaving every shard with budget 0.
func TestSharded_SmallBudgetReducesShards(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.WarnLevel)
	c := NewSharded(100, Options[string, string, struct{}]{Shards: 256, Logger: zap.New(core)})
	assert.Equal(t, 64, c.ShardCount())
	assert.EqualValues(t, 64, c.MaxSize())
	assert.True(t, c.Set("k", ent(1, "v")))
	assert.Equal(t, 1, logs.FilterMessage("cache: shard count reduced to fit the size budget").Len())

	tiny := NewSharded(3, Options[string, string, struct{}]{})
	assert.LessOrEqual(t, tiny.ShardCount(), 2)
	assert.True(t, tiny.Set("k", ent(1, "v")))

	zero := NewSharded(0, Options[string, string, struct{}]{Shards: 4})
	assert.Equal(t, 4, zero.ShardCount())
	assert.True(t, zero.Set("k", ent(0, "v")))
	assert.False(t, zero.Set("k", ent(1, "v")))
}

type structKey struct{ a, b int }

// Key types the default hasher cannot route fail at construction, not on
// the first Set.
func TestSharded_UnhashableKeyPanicsEarly(t *testing.T) {
	t.Parallel()

	assert.PanicsWithValue(t, "cache: key type cache.structKey needs Options.Hasher", func() {
		NewSharded(10, Options[structKey, string, struct{}]{Shards: 2})
	})

	c := NewSharded(10, Options[structKey, string, struct{}]{
		Shards: 2,
		Hasher: func(k structKey) uint64 { return uint64(k.a) },
	})
	assert.True(t, c.Set(structKey{1, 2}, ent(1, "v")))
	assert.True(t, c.Has(structKey{1, 2}))
}

// Concurrent writers on different shards leave the forwarded gauges on the
// final totals.
func TestSharded_MetricsTotalsUnderConcurrency(t *testing.T) {
	t.Parallel()

	m := newCountingMetrics()
	c := NewSharded(1<<12, Options[string, string, struct{}]{Shards: 16, Metrics: m})

	var g errgroup.Group
	for w := 0; w < 8; w++ {
		g.Go(func() error {
			for i := 0; i < 500; i++ {
				k := strconv.Itoa(w) + ":" + strconv.Itoa(i%97)
				if i%5 == 4 {
					c.Remove(k)
					continue
				}
				c.Set(k, ent(int64(1+i%13), k))
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	m.mu.Lock()
	defer m.mu.Unlock()
	assert.Equal(t, c.Len(), m.entries)
	assert.Equal(t, c.Size(), m.size)
}
