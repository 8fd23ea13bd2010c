// Package lru implements the LRU recency policy.
package lru

import "github.com/IvanBrykalov/sizecache/policy"

// lru is the classic move-to-front policy. It never proposes victims;
// the cache prunes from the back of the list when the size budget is
// exceeded.
type lru[K comparable] struct {
	h policy.Hooks[K]
}

type lruPolicy[K comparable] struct{}

// New returns a Policy factory for LRU instances.
func New[K comparable]() policy.Policy[K] { return lruPolicy[K]{} }

// New implements policy.Policy.
func (lruPolicy[K]) New(h policy.Hooks[K]) policy.Instance[K] {
	return &lru[K]{h: h}
}

// OnAdd links the new entry at MRU.
func (p *lru[K]) OnAdd(n policy.Node[K]) []policy.Node[K] {
	p.h.PushFront(n)
	return nil
}

// OnGet promotes the entry to MRU.
func (p *lru[K]) OnGet(n policy.Node[K]) { p.h.MoveToFront(n) }

// OnUpdate promotes the entry to MRU; a write counts as use.
func (p *lru[K]) OnUpdate(n policy.Node[K]) { p.h.MoveToFront(n) }

// OnRemove is a no-op: LRU keeps no state of its own.
func (p *lru[K]) OnRemove(policy.Node[K]) {}
