// Package cache provides a generic, size-bounded LRU cache.
//
// Every entry carries a caller-assigned Size (bytes, weight, any unit). The
// cache keeps the sum of sizes at or below MaxSize by evicting the least
// recently used entries, one at a time, from the back of its recency list.
//
// Naming trap: Size() is the total size of the resident entries, NOT the
// number of entries. Use Len() for the count.
//
// Design
//
//   - Storage: a map[K]*node over an intrusive doubly linked list
//     (internal/dlist). The list element is embedded in the node, so get,
//     set, remove and eviction are O(1) and allocate at most one node.
//
//   - Recency: Get and Set promote an entry to the front; Has, Peek and
//     PeekEntry never touch order. IndexOf reports the recency position by
//     scanning the list and is meant for tests and debugging.
//
//   - Admission: Set refuses (returns false, changes nothing) an entry whose
//     size is negative or larger than MaxSize. The entry written by a Set is
//     never evicted by that same Set.
//
//   - Policies: promotion and extra victim selection are pluggable via the
//     policy package. LRU is the default; a size-aware 2Q policy is provided
//     to resist one-off scans.
//
//   - Callbacks: Options.OnEvict(k, e, reason) runs exactly once for every
//     entry that leaves the cache (capacity, policy, Remove, Clear), after
//     the triggering call has finished its own bookkeeping. Panics in the callback are
//     recovered and logged. A bare LRU ignores (and logs) mutations made from
//     inside its own callback; Synced and Sharded run callbacks after
//     releasing their lock, so there the callback may use the cache freely.
//
//   - Concurrency: LRU is single-owner. Synced wraps one LRU behind a
//     RWMutex. Sharded spreads keys over a power-of-two number of Synced
//     shards and splits the size budget evenly between them.
//
//   - GetOrLoad (Synced, Sharded): coalesces concurrent loads for the same
//     key. If Loader is nil, GetOrLoad returns ErrNoLoader.
//
//   - Metrics: Options.Metrics receives Hit/Miss/Reject/Evict/Size signals.
//     NoopMetrics is the default; metrics/prom exports them to Prometheus.
//
// Basic usage
//
//	c := cache.New[string, []byte, struct{}](1<<20, cache.Options[string, []byte, struct{}]{})
//	c.Set("a", cache.Entry[[]byte, struct{}]{Size: 3, Value: []byte("abc")})
//	if v, ok := c.Get("a"); ok {
//	    _ = v
//	}
//	c.Remove("a")
//
// Sizing values automatically
//
//	c := cache.NewSynced[string, string, string](4096, cache.Options[string, string, string]{
//	    SizeOf: func(k, v string) int64 { return int64(len(k) + len(v)) },
//	})
//	c.SetValue("greeting", "hello", "seeded at startup")
//
// Sharded with a loader
//
//	c := cache.NewSharded[string, []byte, struct{}](64<<20, cache.Options[string, []byte, struct{}]{
//	    Shards: 16,
//	    Loader: func(ctx context.Context, k string) (cache.Entry[[]byte, struct{}], error) {
//	        b, err := fetch(ctx, k)
//	        return cache.Entry[[]byte, struct{}]{Size: int64(len(b)), Value: b}, err
//	    },
//	})
//	v, err := c.GetOrLoad(ctx, "key")
//
// Using the 2Q policy
//
//	c := cache.New[string, []byte, struct{}](1<<20, cache.Options[string, []byte, struct{}]{
//	    Policy: twoq.New[string](256<<10 /* probation budget */, 4096 /* ghosts */),
//	})
package cache
