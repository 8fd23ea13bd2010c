package cache

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/IvanBrykalov/sizecache/internal/util"
)

// Sharded spreads keys over several Synced shards to cut lock contention.
// All methods are safe for concurrent use.
//
// The size budget is split evenly (rounded down) so the sum of shard
// budgets never exceeds the requested maxSize. Recency is per shard: the
// evicted entry is the least recently used one of its shard, not of the
// whole cache. An entry larger than one shard's budget is rejected.
type Sharded[K comparable, V, C any] struct {
	shards []*Synced[K, V, C]
	hash   func(K) uint64
}

// NewSharded constructs a sharded cache. Options.Shards (0 = auto) is
// rounded up to a power of two and capped at 256. The count is further
// reduced so that every shard gets a budget of at least 1.
//
// NewSharded panics when maxSize is negative, or when K is a key type
// util.Hash cannot route and no Options.Hasher is set.
func NewSharded[K comparable, V, C any](maxSize int64, opt Options[K, V, C]) *Sharded[K, V, C] {
	if maxSize < 0 {
		panic("cache: maxSize must be >= 0")
	}

	hash := opt.Hasher
	if hash == nil {
		if !util.Hashable[K]() {
			var zero K
			panic(fmt.Sprintf("cache: key type %T needs Options.Hasher", zero))
		}
		hash = util.Hash[K]
	}

	// number of shards -> power of two
	n := opt.Shards
	if n <= 0 {
		n = util.ReasonableShardCount()
	} else {
		n = min(int(util.NextPow2(uint64(n))), util.MaxShards)
	}
	// a shard with budget 0 would reject every non-empty entry
	if maxSize > 0 && int64(n) > maxSize {
		clamped := int(util.PrevPow2(uint64(maxSize)))
		if opt.Logger != nil {
			opt.Logger.Warn("cache: shard count reduced to fit the size budget",
				zap.Int("requested", n), zap.Int("shards", clamped), zap.Int64("max_size", maxSize))
		}
		n = clamped
	}
	var agg *shardedMetrics
	if opt.Metrics != nil {
		agg = &shardedMetrics{Metrics: opt.Metrics}
	}

	perShard := maxSize / int64(n)
	shards := make([]*Synced[K, V, C], n)
	for i := range shards {
		so := opt
		if agg != nil {
			so.Metrics = &shardMetrics{agg: agg}
		}
		shards[i] = NewSynced(perShard, so)
	}
	return &Sharded[K, V, C]{shards: shards, hash: hash}
}

// ---- Cache[K,V,C] implementation ----

func (c *Sharded[K, V, C]) Has(k K) bool                      { return c.shard(k).Has(k) }
func (c *Sharded[K, V, C]) Get(k K) (V, bool)                 { return c.shard(k).Get(k) }
func (c *Sharded[K, V, C]) Peek(k K) (V, bool)                { return c.shard(k).Peek(k) }
func (c *Sharded[K, V, C]) PeekEntry(k K) (Entry[V, C], bool) { return c.shard(k).PeekEntry(k) }
func (c *Sharded[K, V, C]) Set(k K, e Entry[V, C]) bool       { return c.shard(k).Set(k, e) }
func (c *Sharded[K, V, C]) SetValue(k K, v V, ctx C) bool     { return c.shard(k).SetValue(k, v, ctx) }
func (c *Sharded[K, V, C]) Remove(k K) bool                   { return c.shard(k).Remove(k) }
func (c *Sharded[K, V, C]) SetAsUtilized(k K)                 { c.shard(k).SetAsUtilized(k) }

// GetOrLoad loads through the key's shard; coalescing is per shard, which
// is equivalent since a key always maps to the same shard.
func (c *Sharded[K, V, C]) GetOrLoad(ctx context.Context, k K) (V, error) {
	return c.shard(k).GetOrLoad(ctx, k)
}

// Clear evicts every entry shard by shard.
func (c *Sharded[K, V, C]) Clear() {
	for _, s := range c.shards {
		s.Clear()
	}
}

// Values returns a snapshot of all values across shards.
func (c *Sharded[K, V, C]) Values() []V {
	var out []V
	for _, s := range c.shards {
		out = append(out, s.Values()...)
	}
	return out
}

// Keys returns a snapshot of all keys across shards.
func (c *Sharded[K, V, C]) Keys() []K {
	var out []K
	for _, s := range c.shards {
		out = append(out, s.Keys()...)
	}
	return out
}

// Len returns the total number of resident entries across all shards.
func (c *Sharded[K, V, C]) Len() int {
	total := 0
	for _, s := range c.shards {
		total += s.Len()
	}
	return total
}

// Size returns the total size across all shards.
func (c *Sharded[K, V, C]) Size() int64 {
	var total int64
	for _, s := range c.shards {
		total += s.Size()
	}
	return total
}

// MaxSize returns the effective budget: the sum of the shard budgets,
// which may be slightly below the value passed to NewSharded.
func (c *Sharded[K, V, C]) MaxSize() int64 {
	var total int64
	for _, s := range c.shards {
		total += s.MaxSize()
	}
	return total
}

// IsEmpty reports whether every shard is empty.
func (c *Sharded[K, V, C]) IsEmpty() bool {
	for _, s := range c.shards {
		if !s.IsEmpty() {
			return false
		}
	}
	return true
}

// Stats sums the counters of all shards.
func (c *Sharded[K, V, C]) Stats() Stats {
	var st Stats
	for _, s := range c.shards {
		ss := s.Stats()
		st.Hits += ss.Hits
		st.Misses += ss.Misses
		st.Evictions += ss.Evictions
		st.Rejects += ss.Rejects
	}
	return st
}

// ShardCount returns the number of shards.
func (c *Sharded[K, V, C]) ShardCount() int { return len(c.shards) }

// Close closes every shard.
func (c *Sharded[K, V, C]) Close() error {
	for _, s := range c.shards {
		_ = s.Close()
	}
	return nil
}

// shard picks a shard by hashing the key.
// len(c.shards) is guaranteed to be a power of two.
func (c *Sharded[K, V, C]) shard(k K) *Synced[K, V, C] {
	return c.shards[util.ShardIndex(c.hash(k), len(c.shards))]
}

// ---- metrics aggregation ----

// shardedMetrics turns per-shard Size reports into cache-wide totals before
// forwarding them; every other signal passes straight through.
//
// mu serializes the update and the forward, so the last forwarded Size is
// always the current total. It is taken under a shard lock, never the
// other way round.
type shardedMetrics struct {
	Metrics

	mu      sync.Mutex
	entries int
	size    int64
}

// shardMetrics remembers the last report of one shard. Size is only ever
// called under that shard's lock, so the last* fields need no atomics.
type shardMetrics struct {
	agg         *shardedMetrics
	lastEntries int
	lastSize    int64
}

func (m *shardMetrics) Hit()                { m.agg.Hit() }
func (m *shardMetrics) Miss()               { m.agg.Miss() }
func (m *shardMetrics) Reject()             { m.agg.Reject() }
func (m *shardMetrics) Evict(r EvictReason) { m.agg.Evict(r) }

func (m *shardMetrics) Size(entries int, size int64) {
	a := m.agg
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries += entries - m.lastEntries
	a.size += size - m.lastSize
	m.lastEntries, m.lastSize = entries, size
	a.Metrics.Size(a.entries, a.size)
}
