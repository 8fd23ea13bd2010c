package cache

import (
	"context"

	"go.uber.org/zap"

	"github.com/IvanBrykalov/sizecache/policy"
)

// EvictReason explains why an entry left the cache.
type EvictReason int

const (
	// EvictCapacity means the entry was pruned from the back to bring the total size under budget.
	EvictCapacity EvictReason = iota
	// EvictPolicy means the entry was proposed as a victim by the active policy (e.g. 2Q probation overflow).
	EvictPolicy
	// EvictRemoved means an explicit Remove by the caller.
	EvictRemoved
	// EvictCleared means bulk removal by Clear.
	EvictCleared
)

// String returns a stable lowercase label for the reason.
func (r EvictReason) String() string {
	switch r {
	case EvictCapacity:
		return "capacity"
	case EvictPolicy:
		return "policy"
	case EvictRemoved:
		return "removed"
	case EvictCleared:
		return "cleared"
	default:
		return "unknown"
	}
}

// Metrics exposes cache-level observability hooks.
// NoopMetrics is used when none is configured.
type Metrics interface {
	Hit()
	Miss()
	// Reject is signalled when Set refuses an entry that can never fit.
	Reject()
	Evict(reason EvictReason)
	// Size reports the resident entry count and the total size after a mutation.
	Size(entries int, size int64)
}

// Options configures a cache. Zero values are safe; defaults are applied
// by the constructors:
//   - nil Policy  => LRU
//   - nil Metrics => NoopMetrics
//   - nil Logger  => zap.NewNop()
//   - Shards <= 0 => auto (Sharded only)
type Options[K comparable, V, C any] struct {
	// OnEvict is called exactly once for every entry that leaves the cache,
	// whatever the reason, after the cache has finished its own bookkeeping.
	// A panicking callback is recovered and logged.
	//
	// On a bare LRU the callback runs once the triggering call has finished
	// its changes, before it returns, and must not mutate that LRU; such
	// calls are ignored. Synced and Sharded run it after releasing
	// their lock, so it may call back into them.
	OnEvict func(k K, e Entry[V, C], reason EvictReason)

	// Policy is a pluggable admission/promotion policy; nil => LRU.
	Policy policy.Policy[K]

	// SizeOf computes an entry's size for SetValue. Nil disables SetValue.
	SizeOf func(k K, v V) int64

	// Loader produces the entry for a missing key. Used by GetOrLoad
	// (Synced and Sharded only).
	Loader func(ctx context.Context, k K) (Entry[V, C], error)

	// Shards is the shard count for Sharded, rounded up to a power of two.
	// 0 picks one from GOMAXPROCS.
	Shards int

	// Hasher routes keys to shards; nil => a built-in hash for strings,
	// byte arrays, integers and fmt.Stringer.
	Hasher func(K) uint64

	// Observability
	Metrics Metrics
	Logger  *zap.Logger
}

// withDefaults fills in the zero-value defaults listed on Options.
func (o Options[K, V, C]) withDefaults() Options[K, V, C] {
	if o.Metrics == nil {
		o.Metrics = NoopMetrics{}
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}
