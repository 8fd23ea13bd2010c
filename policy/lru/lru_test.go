package lru

import (
	"testing"

	"github.com/IvanBrykalov/sizecache/policy"
)

// --- test doubles ---

type testNode[K comparable] struct {
	k    K
	size int64
}

func (n *testNode[K]) Key() K      { return n.k }
func (n *testNode[K]) Size() int64 { return n.size }

type mockHooks[K comparable] struct {
	pushFrontCnt   int
	moveToFrontCnt int

	lastPush policy.Node[K]
	lastMove policy.Node[K]
}

func (h *mockHooks[K]) MoveToFront(n policy.Node[K]) { h.moveToFrontCnt++; h.lastMove = n }
func (h *mockHooks[K]) PushFront(n policy.Node[K])   { h.pushFrontCnt++; h.lastPush = n }

// --- tests ---

// OnAdd should push the node to MRU and never propose a victim.
func TestLRU_OnAdd_PushFrontAndNoEvict(t *testing.T) {
	t.Parallel()

	h := &mockHooks[string]{}
	p := New[string]().New(h)

	n := &testNode[string]{k: "k1", size: 4}
	ev := p.OnAdd(n)

	if len(ev) != 0 {
		t.Fatalf("OnAdd must not return victims for LRU, got %v", ev)
	}
	if h.pushFrontCnt != 1 || h.lastPush != n {
		t.Fatalf("OnAdd must call PushFront exactly once with the node")
	}
	if h.moveToFrontCnt != 0 {
		t.Fatalf("OnAdd must not call MoveToFront")
	}
}

// OnGet should promote the node to MRU.
func TestLRU_OnGet_MoveToFront(t *testing.T) {
	t.Parallel()

	h := &mockHooks[string]{}
	p := New[string]().New(h)

	n := &testNode[string]{k: "k2", size: 1}
	p.OnGet(n)

	if h.moveToFrontCnt != 1 || h.lastMove != n {
		t.Fatalf("OnGet must call MoveToFront exactly once with the node")
	}
	if h.pushFrontCnt != 0 {
		t.Fatalf("OnGet must not call PushFront")
	}
}

// OnUpdate should promote the node to MRU (writes count as recent use).
func TestLRU_OnUpdate_MoveToFront(t *testing.T) {
	t.Parallel()

	h := &mockHooks[string]{}
	p := New[string]().New(h)

	n := &testNode[string]{k: "k3", size: 8}
	p.OnUpdate(n)

	if h.moveToFrontCnt != 1 || h.lastMove != n {
		t.Fatalf("OnUpdate must call MoveToFront exactly once with the node")
	}
}

// OnRemove is a no-op for pure LRU.
func TestLRU_OnRemove_NoOp(t *testing.T) {
	t.Parallel()

	h := &mockHooks[string]{}
	p := New[string]().New(h)

	p.OnRemove(&testNode[string]{k: "k4", size: 2})

	if h.pushFrontCnt != 0 || h.moveToFrontCnt != 0 {
		t.Fatalf("OnRemove for LRU must not touch the list")
	}
}
