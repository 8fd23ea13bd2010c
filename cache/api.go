package cache

import (
	"context"
	"errors"
)

var (
	// ErrNoLoader is returned by GetOrLoad when no Loader was configured in Options.
	ErrNoLoader = errors.New("cache: no Loader provided")
	// ErrClosed is returned by GetOrLoad after Close.
	ErrClosed = errors.New("cache: closed")
)

// Cache is a concurrency-safe, size-bounded LRU cache.
// Synced and Sharded implement it; the bare LRU does not (it is not
// goroutine-safe and has no loader).
//
// Sizes are caller-assigned costs: Size reports their sum, Len the number
// of entries. Operations on unknown keys never fail; they miss, return
// false, or do nothing.
type Cache[K comparable, V, C any] interface {
	// Has reports membership without affecting recency.
	Has(k K) bool

	// Get returns the value for k and promotes it to most recently used.
	Get(k K) (V, bool)

	// Peek returns the value for k without affecting recency.
	Peek(k K) (V, bool)

	// PeekEntry returns the stored entry (size, context, utilized flag)
	// without affecting recency.
	PeekEntry(k K) (Entry[V, C], bool)

	// Set inserts or replaces k→e, evicting least recently used entries
	// until the total size fits. Returns false, changing nothing, if e can
	// never fit.
	Set(k K, e Entry[V, C]) bool

	// SetValue is Set with the size computed by Options.SizeOf.
	SetValue(k K, v V, ctx C) bool

	// Remove deletes k (notifying OnEvict) and reports whether it existed.
	Remove(k K) bool

	// Clear evicts every entry, notifying OnEvict for each.
	Clear()

	// SetAsUtilized flags the entry for k as consumed; no recency change.
	SetAsUtilized(k K)

	// Values and Keys return snapshots in no guaranteed order.
	Values() []V
	Keys() []K

	Len() int
	Size() int64
	MaxSize() int64
	IsEmpty() bool

	// GetOrLoad returns the value for k, loading it via Options.Loader on miss.
	// Concurrent loads for the same key are coalesced.
	GetOrLoad(ctx context.Context, k K) (V, error)

	// Stats returns hit/miss/eviction/reject counters.
	Stats() Stats

	// Close marks the cache closed; later reads miss and writes are ignored.
	Close() error
}

// Stats is a snapshot of cache counters.
type Stats struct {
	Hits      int64
	Misses    int64
	Evictions uint64
	Rejects   uint64
}

// HitRatio returns hits / (hits + misses), or 0 before any lookup.
func (s Stats) HitRatio() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

var (
	_ Cache[string, int, struct{}] = (*Synced[string, int, struct{}])(nil)
	_ Cache[string, int, struct{}] = (*Sharded[string, int, struct{}])(nil)
)
