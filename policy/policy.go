// Package policy defines the contract between the cache and its pluggable
// admission/promotion strategies.
package policy

// Node is the minimal view of a cache entry a policy works with.
// Size is the caller-assigned cost of the entry, not 1 per entry.
type Node[K comparable] interface {
	Key() K
	Size() int64
}

// Hooks expose the cache's O(1) recency-list primitives to a policy.
//
// Hooks manage only the list; the cache owns the key->node map and the
// size accounting.
type Hooks[K comparable] interface {
	// PushFront links a newly admitted node at MRU.
	PushFront(Node[K])
	// MoveToFront promotes a resident node to MRU.
	MoveToFront(Node[K])
}

// Instance is a policy bound to one cache's hooks.
// All methods are invoked by the cache's single owner (or under its lock).
//
// Semantics:
//   - OnAdd must link the node (normally via PushFront). It may return
//     victims the cache should evict right away, oldest first. It never
//     returns the node being added.
//   - OnGet/OnUpdate typically promote the node.
//   - OnRemove tells the policy a node left the cache for any reason,
//     including as a victim it proposed. The cache unlinks it.
type Instance[K comparable] interface {
	OnAdd(Node[K]) (evict []Node[K])
	OnGet(Node[K])
	OnUpdate(Node[K])
	OnRemove(Node[K])
}

// Policy is a factory producing an Instance bound to a cache's hooks.
type Policy[K comparable] interface {
	New(Hooks[K]) Instance[K]
}
