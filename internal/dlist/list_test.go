package dlist

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// check walks the chain in both directions and verifies the link invariant.
func check[T any](t *testing.T, l *List[T]) {
	t.Helper()

	if l.head == nil || l.tail == nil {
		require.Nil(t, l.head, "head set on empty list")
		require.Nil(t, l.tail, "tail set on empty list")
		require.Zero(t, l.len)
		return
	}
	require.Nil(t, l.head.prev, "head.prev must be nil")
	require.Nil(t, l.tail.next, "tail.next must be nil")

	n := 0
	var last *Node[T]
	for cur := l.head; cur != nil; cur = cur.next {
		require.Same(t, l, cur.list, "node not owned by list")
		if cur.next != nil {
			require.Same(t, cur, cur.next.prev, "a.next.prev != a")
		}
		last = cur
		n++
	}
	require.Same(t, l.tail, last, "forward walk does not end at tail")
	require.Equal(t, l.len, n, "len mismatch")
}

func values[T any](l *List[T]) []T {
	out := make([]T, 0, l.Len())
	l.ForEach(func(n *Node[T]) bool {
		out = append(out, n.Value)
		return true
	})
	return out
}

func nodes(vals ...string) []*Node[string] {
	out := make([]*Node[string], len(vals))
	for i, v := range vals {
		out[i] = &Node[string]{Value: v}
	}
	return out
}

func TestList_PushFrontOrder(t *testing.T) {
	t.Parallel()

	l := New[string]()
	require.True(t, l.IsEmpty())
	for _, n := range nodes("a", "b", "c") {
		l.PushFront(n)
		check(t, l)
	}
	require.Equal(t, []string{"c", "b", "a"}, values(l))
	require.Equal(t, "c", l.Front().Value)
	require.Equal(t, "a", l.Back().Value)
	require.False(t, l.IsEmpty())
}

func TestList_RemoveHeadMiddleTail(t *testing.T) {
	t.Parallel()

	ns := nodes("a", "b", "c", "d")
	l := New[string]()
	for _, n := range ns {
		l.PushFront(n) // d c b a
	}

	require.True(t, l.Remove(ns[2])) // middle: c
	check(t, l)
	require.Equal(t, []string{"d", "b", "a"}, values(l))

	require.True(t, l.Remove(ns[3])) // head: d
	check(t, l)
	require.True(t, l.Remove(ns[0])) // tail: a
	check(t, l)
	require.Equal(t, []string{"b"}, values(l))

	require.True(t, l.Remove(ns[1]))
	check(t, l)
	require.True(t, l.IsEmpty())
}

func TestList_RemoveTwiceIsNoOp(t *testing.T) {
	t.Parallel()

	ns := nodes("a", "b")
	l := New[string]()
	l.PushFront(ns[0])
	l.PushFront(ns[1])

	require.True(t, l.Remove(ns[0]))
	require.False(t, l.Remove(ns[0]))
	require.False(t, l.Remove(nil))
	check(t, l)
	require.Equal(t, 1, l.Len())
	require.False(t, ns[0].Linked())
}

func TestList_RemoveForeignNode(t *testing.T) {
	t.Parallel()

	a, b := New[string](), New[string]()
	n := &Node[string]{Value: "x"}
	a.PushFront(n)

	require.False(t, b.Remove(n))
	require.Equal(t, -1, b.IndexOf(n))
	check(t, a)
	check(t, b)
	require.Equal(t, 1, a.Len())
}

func TestList_PushFrontForeignPanics(t *testing.T) {
	t.Parallel()

	a, b := New[string](), New[string]()
	n := &Node[string]{Value: "x"}
	a.PushFront(n)
	require.Panics(t, func() { b.PushFront(n) })
}

func TestList_MoveToFront(t *testing.T) {
	t.Parallel()

	ns := nodes("a", "b", "c")
	l := New[string]()
	for _, n := range ns {
		l.PushFront(n) // c b a
	}

	l.MoveToFront(ns[0]) // tail
	check(t, l)
	require.Equal(t, []string{"a", "c", "b"}, values(l))

	l.MoveToFront(ns[2]) // middle
	check(t, l)
	require.Equal(t, []string{"c", "a", "b"}, values(l))

	l.MoveToFront(ns[2]) // already head
	check(t, l)
	require.Equal(t, []string{"c", "a", "b"}, values(l))
}

// Repeated remove+push and move on the same node is where hand-written lists
// usually break; hammer the single- and two-node cases.
func TestList_MoveSameNodeRepeatedly(t *testing.T) {
	t.Parallel()

	l := New[string]()
	one := &Node[string]{Value: "one"}
	l.PushFront(one)
	for i := 0; i < 3; i++ {
		l.MoveToFront(one)
		check(t, l)
		require.True(t, l.Remove(one))
		check(t, l)
		l.PushFront(one)
		check(t, l)
	}
	require.Same(t, one, l.Front())
	require.Same(t, one, l.Back())

	two := &Node[string]{Value: "two"}
	l.PushFront(two)
	for i := 0; i < 4; i++ {
		l.MoveToFront(l.Back())
		check(t, l)
	}
	require.Equal(t, []string{"two", "one"}, values(l))

	// Pushing a node already in the list acts as a move.
	l.PushFront(one)
	check(t, l)
	require.Equal(t, []string{"one", "two"}, values(l))
	require.Equal(t, 2, l.Len())
}

func TestList_MoveToFrontDetachedIsNoOp(t *testing.T) {
	t.Parallel()

	l := New[string]()
	l.PushFront(&Node[string]{Value: "a"})
	l.MoveToFront(&Node[string]{Value: "stray"})
	check(t, l)
	require.Equal(t, []string{"a"}, values(l))
}

func TestList_Pop(t *testing.T) {
	t.Parallel()

	l := New[int]()
	require.Nil(t, l.Pop())

	for i := 1; i <= 3; i++ {
		l.PushFront(&Node[int]{Value: i})
	}
	for want := 1; want <= 3; want++ {
		n := l.Pop()
		require.NotNil(t, n)
		require.Equal(t, want, n.Value)
		require.False(t, n.Linked())
		check(t, l)
	}
	require.Nil(t, l.Pop())
	require.True(t, l.IsEmpty())
}

func TestList_IndexOf(t *testing.T) {
	t.Parallel()

	ns := nodes("a", "b", "c")
	l := New[string]()
	for _, n := range ns {
		l.PushFront(n)
	}
	require.Equal(t, 0, l.IndexOf(ns[2]))
	require.Equal(t, 1, l.IndexOf(ns[1]))
	require.Equal(t, 2, l.IndexOf(ns[0]))
	require.Equal(t, -1, l.IndexOf(&Node[string]{Value: "z"}))
	require.Equal(t, -1, l.IndexOf(nil))
}

func TestList_ForEachStops(t *testing.T) {
	t.Parallel()

	l := New[int]()
	for i := 0; i < 5; i++ {
		l.PushFront(&Node[int]{Value: i})
	}
	var seen []int
	l.ForEach(func(n *Node[int]) bool {
		seen = append(seen, n.Value)
		return len(seen) < 2
	})
	require.Equal(t, []int{4, 3}, seen)
}

func TestList_ClearDetachesNodes(t *testing.T) {
	t.Parallel()

	ns := nodes("a", "b", "c")
	l := New[string]()
	for _, n := range ns {
		l.PushFront(n)
	}
	l.Clear()
	check(t, l)
	require.True(t, l.IsEmpty())
	for _, n := range ns {
		require.False(t, n.Linked())
		require.Nil(t, n.Next())
		require.Nil(t, n.Prev())
	}

	// Detached nodes can be reused.
	l.PushFront(ns[1])
	check(t, l)
	require.Equal(t, []string{"b"}, values(l))
}

func TestList_ZeroValueUsable(t *testing.T) {
	t.Parallel()

	var l List[string]
	n := &Node[string]{Value: "a"}
	l.PushFront(n)
	check(t, &l)
	require.Same(t, n, l.Pop())
	check(t, &l)
}
