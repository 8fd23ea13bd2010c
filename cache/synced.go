package cache

import (
	"context"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/IvanBrykalov/sizecache/internal/singleflight"
	"github.com/IvanBrykalov/sizecache/internal/util"
)

// Synced is an LRU behind a single RWMutex. All methods are safe for
// concurrent use.
//
// Eviction callbacks are queued while the lock is held and run after it is
// released, still before the triggering method returns. A callback may
// therefore call back into the same Synced cache.
type Synced[K comparable, V, C any] struct {
	// ---- guarded by mu ----
	mu      sync.RWMutex
	lru     *LRU[K, V, C]
	pending []eviction[K, V, C]

	onEvict func(k K, e Entry[V, C], reason EvictReason)
	loader  func(ctx context.Context, k K) (Entry[V, C], error)
	sized   bool // Options.SizeOf set
	log     *zap.Logger
	closed  atomic.Bool

	// singleflight group for coalescing concurrent loads in GetOrLoad.
	sf singleflight.Group[K, V]

	// ---- hot counters (separate cache lines to avoid false sharing) ----
	_       util.CacheLinePad
	hits    util.PaddedAtomicInt64
	misses  util.PaddedAtomicInt64
	evicts  util.PaddedAtomicUint64
	rejects util.PaddedAtomicUint64
}

// NewSynced constructs a concurrency-safe cache with the given size budget.
// Options.Shards and Options.Hasher are ignored.
func NewSynced[K comparable, V, C any](maxSize int64, opt Options[K, V, C]) *Synced[K, V, C] {
	opt = opt.withDefaults()
	s := &Synced[K, V, C]{
		onEvict: opt.OnEvict,
		loader:  opt.Loader,
		sized:   opt.SizeOf != nil,
		log:     opt.Logger,
	}

	inner := opt
	inner.OnEvict = func(k K, e Entry[V, C], reason EvictReason) {
		// Runs under s.mu; only queue.
		s.evicts.Add(1)
		if s.onEvict != nil {
			s.pending = append(s.pending, eviction[K, V, C]{key: k, entry: e, reason: reason})
		}
	}
	s.lru = New(maxSize, inner)
	return s
}

// ---- Cache[K,V,C] implementation ----

// Has reports whether k is resident.
func (s *Synced[K, V, C]) Has(k K) bool {
	if s.closed.Load() {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lru.Has(k)
}

// Get returns the value for k and promotes it to most recently used.
func (s *Synced[K, V, C]) Get(k K) (V, bool) {
	if s.closed.Load() {
		var zero V
		return zero, false
	}
	s.mu.Lock()
	v, ok := s.lru.Get(k)
	s.mu.Unlock()

	if ok {
		s.hits.Add(1)
	} else {
		s.misses.Add(1)
	}
	return v, ok
}

// Peek returns the value for k without touching recency.
func (s *Synced[K, V, C]) Peek(k K) (V, bool) {
	if s.closed.Load() {
		var zero V
		return zero, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lru.Peek(k)
}

// PeekEntry returns the whole entry for k without touching recency.
func (s *Synced[K, V, C]) PeekEntry(k K) (Entry[V, C], bool) {
	if s.closed.Load() {
		return Entry[V, C]{}, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lru.PeekEntry(k)
}

// Set inserts or replaces k→e. See LRU.Set.
func (s *Synced[K, V, C]) Set(k K, e Entry[V, C]) bool {
	if s.closed.Load() {
		return false
	}
	s.mu.Lock()
	ok := s.lru.Set(k, e)
	s.unlockAndDispatch()

	if !ok {
		s.rejects.Add(1)
	}
	return ok
}

// SetValue stores v with its size computed by Options.SizeOf. Without
// SizeOf it returns false and does not count a reject.
func (s *Synced[K, V, C]) SetValue(k K, v V, ctx C) bool {
	if s.closed.Load() {
		return false
	}
	if !s.sized {
		s.log.Warn("cache: SetValue without Options.SizeOf", zap.Any("key", k))
		return false
	}
	s.mu.Lock()
	ok := s.lru.SetValue(k, v, ctx)
	s.unlockAndDispatch()

	if !ok {
		s.rejects.Add(1)
	}
	return ok
}

// Remove deletes k if present and returns true on success.
func (s *Synced[K, V, C]) Remove(k K) bool {
	if s.closed.Load() {
		return false
	}
	s.mu.Lock()
	ok := s.lru.Remove(k)
	s.unlockAndDispatch()
	return ok
}

// Clear evicts every entry.
func (s *Synced[K, V, C]) Clear() {
	if s.closed.Load() {
		return
	}
	s.mu.Lock()
	s.lru.Clear()
	s.unlockAndDispatch()
}

// Resize changes the size budget; see LRU.Resize.
func (s *Synced[K, V, C]) Resize(maxSize int64) int {
	if s.closed.Load() {
		return 0
	}
	s.mu.Lock()
	n := s.lru.Resize(maxSize)
	s.unlockAndDispatch()
	return n
}

// SetAsUtilized flags the entry for k as consumed.
func (s *Synced[K, V, C]) SetAsUtilized(k K) {
	if s.closed.Load() {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lru.SetAsUtilized(k)
}

// Values returns a snapshot of all values in no guaranteed order.
func (s *Synced[K, V, C]) Values() []V {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lru.Values()
}

// Keys returns a snapshot of all keys.
func (s *Synced[K, V, C]) Keys() []K {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lru.Keys()
}

// IndexOf returns the recency position of k or -1. Debug helper.
func (s *Synced[K, V, C]) IndexOf(k K) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lru.IndexOf(k)
}

// Len returns the number of resident entries.
func (s *Synced[K, V, C]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lru.Len()
}

// Size returns the total size of resident entries (not the entry count).
func (s *Synced[K, V, C]) Size() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lru.Size()
}

// MaxSize returns the size budget.
func (s *Synced[K, V, C]) MaxSize() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lru.MaxSize()
}

// IsEmpty reports whether the cache holds no entries.
func (s *Synced[K, V, C]) IsEmpty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lru.IsEmpty()
}

// GetOrLoad returns the value for k; on miss it loads the entry via
// Options.Loader, coalescing concurrent loads for the same key.
// A loaded entry too large to admit is still returned to the caller.
func (s *Synced[K, V, C]) GetOrLoad(ctx context.Context, k K) (V, error) {
	var zero V
	if s.closed.Load() {
		return zero, ErrClosed
	}
	// fast path
	if v, ok := s.Get(k); ok {
		return v, nil
	}
	if s.loader == nil {
		return zero, ErrNoLoader
	}

	v, err, _ := s.sf.Do(ctx, k, func() (V, error) {
		// double-check after flight join
		if v, ok := s.Peek(k); ok {
			return v, nil
		}
		e, err := s.loader(ctx, k)
		if err != nil {
			return zero, err
		}
		if !s.Set(k, e) {
			s.log.Debug("cache: loaded entry not admitted", zap.Any("key", k), zap.Int64("size", e.Size))
		}
		return e.Value, nil
	})
	return v, err
}

// Stats returns a snapshot of the hit/miss/eviction/reject counters.
func (s *Synced[K, V, C]) Stats() Stats {
	return Stats{
		Hits:      s.hits.Load(),
		Misses:    s.misses.Load(),
		Evictions: s.evicts.Load(),
		Rejects:   s.rejects.Load(),
	}
}

// Close marks the cache as closed. Later reads miss and writes are ignored.
// Resident entries are not evicted.
func (s *Synced[K, V, C]) Close() error {
	s.closed.Store(true)
	return nil
}

// ---- helpers ----

// unlockAndDispatch releases mu and then runs the queued eviction callbacks.
func (s *Synced[K, V, C]) unlockAndDispatch() {
	evs := s.pending
	s.pending = nil
	s.mu.Unlock()

	for _, ev := range evs {
		s.dispatch(ev)
	}
}

func (s *Synced[K, V, C]) dispatch(ev eviction[K, V, C]) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("cache: eviction callback panicked",
				zap.Any("key", ev.key), zap.Stringer("reason", ev.reason), zap.Any("panic", r))
		}
	}()
	s.onEvict(ev.key, ev.entry, ev.reason)
}
