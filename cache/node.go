package cache

import "github.com/IvanBrykalov/sizecache/internal/dlist"

// Entry is the value record stored per key.
type Entry[V, C any] struct {
	// Size is the caller-defined cost (bytes, weight, ...). It counts toward
	// the cache's size budget; 0 is allowed, negative is rejected.
	Size int64

	Value V

	// Context is auxiliary metadata attached at write time. Eviction ignores it.
	Context C

	// Utilized is a sticky flag set by SetAsUtilized. It survives Get and
	// Peek and goes away with the entry (or when Set overwrites it).
	Utilized bool
}

// node is an intrusive list element owned by one LRU: the entry and its
// recency links live in a single allocation. link.Value points back at the
// node so list traversal can recover it.
type node[K comparable, V, C any] struct {
	key   K
	entry Entry[V, C]
	link  dlist.Node[*node[K, V, C]]
}

func newNode[K comparable, V, C any](k K, e Entry[V, C]) *node[K, V, C] {
	n := &node[K, V, C]{key: k, entry: e}
	n.link.Value = n
	return n
}

// Key returns the node key (part of policy.Node).
func (n *node[K, V, C]) Key() K { return n.key }

// Size returns the entry size (part of policy.Node).
func (n *node[K, V, C]) Size() int64 { return n.entry.Size }

// eviction is a pending OnEvict call.
type eviction[K comparable, V, C any] struct {
	key    K
	entry  Entry[V, C]
	reason EvictReason
}
