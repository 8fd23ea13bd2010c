// Package twoq implements a size-aware 2Q admission policy.
package twoq

import (
	"github.com/IvanBrykalov/sizecache/internal/dlist"
	"github.com/IvanBrykalov/sizecache/policy"
)

// twoQ keeps first-time entries on probation (A1in) until they are hit.
//
// Resident queues:
//   - A1in: its own list + index, bounded by a size budget (same units as
//     the cache's sizes). Overflow proposes A1in victims, oldest first.
//   - Am: every resident node not tracked in A1in; ordering is the cache's
//     recency list, driven through hooks.
//
// Ghosts (A1out) remember keys evicted from A1in, bounded by count. A key
// re-admitted while it still has a ghost skips probation.
type twoQ[K comparable] struct {
	h policy.Hooks[K]

	budgetIn int64 // A1in size budget
	capGhost int   // A1out key count

	in     dlist.List[probation[K]] // MRU at front
	inIdx  map[policy.Node[K]]*dlist.Node[probation[K]]
	inSize int64

	ghosts   dlist.List[K]
	ghostIdx map[K]*dlist.Node[K]
}

// probation pins the size a node had when it entered A1in, so updates that
// change the node's size cannot skew inSize.
type probation[K comparable] struct {
	n    policy.Node[K]
	size int64
}

// New constructs a 2Q policy factory.
// budgetIn bounds the total size on probation (≈25% of the cache budget is
// a common choice); capGhost bounds the number of remembered keys.
func New[K comparable](budgetIn int64, capGhost int) policy.Policy[K] {
	if budgetIn < 1 {
		budgetIn = 1
	}
	if capGhost < 1 {
		capGhost = 1
	}
	return twoQPolicy[K]{budgetIn: budgetIn, capGhost: capGhost}
}

type twoQPolicy[K comparable] struct {
	budgetIn int64
	capGhost int
}

func (p twoQPolicy[K]) New(h policy.Hooks[K]) policy.Instance[K] {
	return &twoQ[K]{
		h:        h,
		budgetIn: p.budgetIn,
		capGhost: p.capGhost,
		inIdx:    make(map[policy.Node[K]]*dlist.Node[probation[K]]),
		ghostIdx: make(map[K]*dlist.Node[K]),
	}
}

// OnAdd admission rules:
//   - a ghosted key goes straight to Am (MRU) and its ghost is dropped;
//   - otherwise the node enters A1in, and if A1in is over budget its oldest
//     members (never n itself) are proposed as victims.
func (q *twoQ[K]) OnAdd(n policy.Node[K]) []policy.Node[K] {
	k := n.Key()
	if g, ok := q.ghostIdx[k]; ok {
		q.ghosts.Remove(g)
		delete(q.ghostIdx, k)
		q.h.PushFront(n)
		return nil
	}

	q.h.PushFront(n)
	e := &dlist.Node[probation[K]]{Value: probation[K]{n: n, size: n.Size()}}
	q.in.PushFront(e)
	q.inIdx[n] = e
	q.inSize += e.Value.size

	over := q.inSize - q.budgetIn
	if over <= 0 {
		return nil
	}
	var victims []policy.Node[K]
	for cur := q.in.Back(); cur != nil && over > 0; cur = cur.Prev() {
		if cur.Value.n == n {
			break
		}
		victims = append(victims, cur.Value.n)
		over -= cur.Value.size
	}
	return victims
}

// OnGet promotes a probation node into Am, then moves it to MRU.
func (q *twoQ[K]) OnGet(n policy.Node[K]) {
	q.dropProbation(n)
	q.h.MoveToFront(n)
}

// OnUpdate follows OnGet (writes count as use).
func (q *twoQ[K]) OnUpdate(n policy.Node[K]) { q.OnGet(n) }

// OnRemove turns a departing probation node into a ghost.
// Removals from Am leave no ghost.
func (q *twoQ[K]) OnRemove(n policy.Node[K]) {
	if !q.dropProbation(n) {
		return
	}
	k := n.Key()
	if old := q.ghostIdx[k]; old != nil {
		q.ghosts.MoveToFront(old)
		return
	}
	g := &dlist.Node[K]{Value: k}
	q.ghosts.PushFront(g)
	q.ghostIdx[k] = g

	for q.ghosts.Len() > q.capGhost {
		tail := q.ghosts.Pop()
		delete(q.ghostIdx, tail.Value)
	}
}

// dropProbation removes n from A1in and reports whether it was there.
func (q *twoQ[K]) dropProbation(n policy.Node[K]) bool {
	e, ok := q.inIdx[n]
	if !ok {
		return false
	}
	q.in.Remove(e)
	delete(q.inIdx, n)
	q.inSize -= e.Value.size
	return true
}
