package cache

import (
	"go.uber.org/zap"

	"github.com/IvanBrykalov/sizecache/internal/dlist"
	"github.com/IvanBrykalov/sizecache/policy"
	"github.com/IvanBrykalov/sizecache/policy/lru"
)

// LRU is a size-bounded least-recently-used cache.
//
// Every entry carries a caller-assigned Size; the sum of sizes never exceeds
// MaxSize once a public method returns. Entries are kept in a map over an
// intrusive recency list (front = most recently used, back = next victim).
// Get, Set, Remove and eviction are O(1); IndexOf, Values, Keys and Clear
// are O(n).
//
// Size reports the total size, NOT the entry count; use Len for that.
//
// LRU is not safe for concurrent use. Wrap it in Synced (or use Sharded)
// when several goroutines share it.
type LRU[K comparable, V, C any] struct {
	m       map[K]*node[K, V, C]
	list    dlist.List[*node[K, V, C]]
	size    int64
	maxSize int64

	pol policy.Instance[K]
	opt Options[K, V, C]
	log *zap.Logger

	// evictions of the running mutation, notified once it has finished.
	queued []eviction[K, V, C]
	// inCallback > 0 while OnEvict runs; mutations are refused meanwhile.
	inCallback int
}

// New constructs an LRU with the given size budget.
// maxSize may be 0 (only zero-size entries fit); a negative budget panics.
func New[K comparable, V, C any](maxSize int64, opt Options[K, V, C]) *LRU[K, V, C] {
	if maxSize < 0 {
		panic("cache: maxSize must be >= 0")
	}
	opt = opt.withDefaults()
	if opt.Policy == nil {
		opt.Policy = lru.New[K]()
	}
	c := &LRU[K, V, C]{
		m:       make(map[K]*node[K, V, C]),
		maxSize: maxSize,
		opt:     opt,
		log:     opt.Logger,
	}
	c.pol = opt.Policy.New(lruHooks[K, V, C]{c: c})
	return c
}

// Has reports whether k is resident. It does not affect recency.
func (c *LRU[K, V, C]) Has(k K) bool {
	_, ok := c.m[k]
	return ok
}

// Get returns the value for k and promotes the entry to most recently used.
func (c *LRU[K, V, C]) Get(k K) (V, bool) {
	n, ok := c.m[k]
	if !ok {
		c.opt.Metrics.Miss()
		var zero V
		return zero, false
	}
	c.pol.OnGet(n)
	c.opt.Metrics.Hit()
	return n.entry.Value, true
}

// Peek returns the value for k without touching recency order.
func (c *LRU[K, V, C]) Peek(k K) (V, bool) {
	n, ok := c.m[k]
	if !ok {
		var zero V
		return zero, false
	}
	return n.entry.Value, true
}

// PeekEntry returns the whole entry (size, context, utilized flag) for k
// without touching recency order.
func (c *LRU[K, V, C]) PeekEntry(k K) (Entry[V, C], bool) {
	n, ok := c.m[k]
	if !ok {
		return Entry[V, C]{}, false
	}
	return n.entry, true
}

// Set inserts or replaces the entry for k and marks it most recently used,
// then evicts from the back until the total size fits the budget.
//
// Set returns false and changes nothing when e.Size is negative or larger
// than MaxSize: such an entry could never fit, even in an empty cache.
// The entry just written is never evicted by its own Set.
func (c *LRU[K, V, C]) Set(k K, e Entry[V, C]) bool {
	if c.reentrant("set") {
		return false
	}
	if e.Size < 0 || e.Size > c.maxSize {
		c.opt.Metrics.Reject()
		c.log.Debug("cache: entry rejected",
			zap.Any("key", k), zap.Int64("size", e.Size), zap.Int64("max_size", c.maxSize))
		return false
	}

	// The new size is added only after room is made, so size never
	// exceeds maxSize and cannot overflow.
	if n, ok := c.m[k]; ok {
		// In-place update: same node, promote and swap the entry.
		c.size -= n.entry.Size
		n.entry = e
		c.pol.OnUpdate(n)
		c.makeRoom(e.Size, n)
		c.size += e.Size
		c.report()
		c.flush()
		return true
	}

	n := newNode(k, e)
	c.m[k] = n
	for _, v := range c.pol.OnAdd(n) {
		if vn := v.(*node[K, V, C]); vn != n {
			c.evict(vn, EvictPolicy)
		}
	}
	c.makeRoom(e.Size, n)
	c.size += e.Size
	c.report()
	c.flush()
	return true
}

// SetValue stores v under k with its size computed by Options.SizeOf.
// It returns false when no SizeOf is configured or when Set would.
func (c *LRU[K, V, C]) SetValue(k K, v V, ctx C) bool {
	if c.opt.SizeOf == nil {
		c.log.Warn("cache: SetValue without Options.SizeOf", zap.Any("key", k))
		return false
	}
	return c.Set(k, Entry[V, C]{Size: c.opt.SizeOf(k, v), Value: v, Context: ctx})
}

// Remove deletes k and notifies OnEvict with EvictRemoved.
// It returns false (and notifies nobody) when k is absent.
func (c *LRU[K, V, C]) Remove(k K) bool {
	if c.reentrant("remove") {
		return false
	}
	n, ok := c.m[k]
	if !ok {
		return false
	}
	c.evict(n, EvictRemoved)
	c.report()
	c.flush()
	return true
}

// Clear evicts every entry, notifying OnEvict with EvictCleared in recency
// order (most recently used first), and resets the total size to 0.
func (c *LRU[K, V, C]) Clear() {
	if c.reentrant("clear") || c.list.IsEmpty() {
		return
	}
	gone := make([]*node[K, V, C], 0, c.list.Len())
	c.list.ForEach(func(e *dlist.Node[*node[K, V, C]]) bool {
		gone = append(gone, e.Value)
		return true
	})
	for _, n := range gone {
		c.pol.OnRemove(n)
	}
	c.list.Clear()
	clear(c.m)
	c.size = 0
	c.report()

	// State is already empty, so callbacks observe a consistent cache.
	for _, n := range gone {
		c.opt.Metrics.Evict(EvictCleared)
		c.notify(n.key, n.entry, EvictCleared)
	}
}

// Resize changes the size budget and evicts from the back until the total
// fits. It returns the number of evicted entries. A negative budget panics.
func (c *LRU[K, V, C]) Resize(maxSize int64) int {
	if maxSize < 0 {
		panic("cache: maxSize must be >= 0")
	}
	if c.reentrant("resize") {
		return 0
	}
	c.maxSize = maxSize
	evicted := c.makeRoom(0, nil)
	c.report()
	c.flush()
	return evicted
}

// SetAsUtilized flags the entry for k as consumed. No-op if k is absent;
// recency is unchanged.
func (c *LRU[K, V, C]) SetAsUtilized(k K) {
	if n, ok := c.m[k]; ok {
		n.entry.Utilized = true
	}
}

// Values returns a snapshot of all values. Callers must not rely on the order.
func (c *LRU[K, V, C]) Values() []V {
	out := make([]V, 0, len(c.m))
	c.list.ForEach(func(e *dlist.Node[*node[K, V, C]]) bool {
		out = append(out, e.Value.entry.Value)
		return true
	})
	return out
}

// Keys returns a snapshot of all keys, most recently used first.
func (c *LRU[K, V, C]) Keys() []K {
	out := make([]K, 0, len(c.m))
	c.list.ForEach(func(e *dlist.Node[*node[K, V, C]]) bool {
		out = append(out, e.Value.key)
		return true
	})
	return out
}

// IndexOf returns the recency position of k (0 = most recently used) or -1.
// It scans the list; meant for tests and debugging.
func (c *LRU[K, V, C]) IndexOf(k K) int {
	n, ok := c.m[k]
	if !ok {
		return -1
	}
	return c.list.IndexOf(&n.link)
}

// IsEmpty reports whether the cache holds no entries.
func (c *LRU[K, V, C]) IsEmpty() bool { return len(c.m) == 0 }

// Len returns the number of resident entries.
func (c *LRU[K, V, C]) Len() int { return len(c.m) }

// Size returns the sum of the resident entries' sizes (not the entry count).
func (c *LRU[K, V, C]) Size() int64 { return c.size }

// MaxSize returns the size budget.
func (c *LRU[K, V, C]) MaxSize() int64 { return c.maxSize }

// -------------------- internals --------------------

// makeRoom evicts from the back until need more units fit under maxSize.
// need <= maxSize, so maxSize-need cannot underflow. keep is skipped and
// its size must not be counted in c.size while makeRoom runs.
func (c *LRU[K, V, C]) makeRoom(need int64, keep *node[K, V, C]) int {
	evicted := 0
	for c.size > c.maxSize-need {
		victim := c.list.Back()
		if victim != nil && victim.Value == keep {
			victim = victim.Prev()
		}
		if victim == nil {
			break
		}
		c.evict(victim.Value, EvictCapacity)
		evicted++
	}
	return evicted
}

// evict drops n from the policy, list and map and queues its notification.
func (c *LRU[K, V, C]) evict(n *node[K, V, C], reason EvictReason) {
	c.pol.OnRemove(n)
	c.list.Remove(&n.link)
	delete(c.m, n.key)
	c.size -= n.entry.Size
	c.opt.Metrics.Evict(reason)
	c.queued = append(c.queued, eviction[K, V, C]{key: n.key, entry: n.entry, reason: reason})
}

// flush notifies the queued evictions in order. Mutations are refused while
// callbacks run, so the queue cannot grow during a flush.
func (c *LRU[K, V, C]) flush() {
	if len(c.queued) == 0 {
		return
	}
	evs := c.queued
	c.queued = nil
	for _, ev := range evs {
		c.notify(ev.key, ev.entry, ev.reason)
	}
}

// notify runs OnEvict with mutations blocked and panics recovered.
func (c *LRU[K, V, C]) notify(k K, e Entry[V, C], reason EvictReason) {
	cb := c.opt.OnEvict
	if cb == nil {
		return
	}
	c.inCallback++
	defer func() {
		c.inCallback--
		if r := recover(); r != nil {
			c.log.Error("cache: eviction callback panicked",
				zap.Any("key", k), zap.Stringer("reason", reason), zap.Any("panic", r))
		}
	}()
	cb(k, e, reason)
}

// reentrant reports (and logs) a mutation attempted from inside OnEvict.
func (c *LRU[K, V, C]) reentrant(op string) bool {
	if c.inCallback == 0 {
		return false
	}
	c.log.Warn("cache: mutation from eviction callback ignored", zap.String("op", op))
	return true
}

func (c *LRU[K, V, C]) report() { c.opt.Metrics.Size(len(c.m), c.size) }

// -------------------- policy hooks --------------------

// lruHooks adapts the recency list to policy.Hooks.
type lruHooks[K comparable, V, C any] struct{ c *LRU[K, V, C] }

func (h lruHooks[K, V, C]) PushFront(x policy.Node[K]) {
	h.c.list.PushFront(&x.(*node[K, V, C]).link)
}

func (h lruHooks[K, V, C]) MoveToFront(x policy.Node[K]) {
	h.c.list.MoveToFront(&x.(*node[K, V, C]).link)
}
