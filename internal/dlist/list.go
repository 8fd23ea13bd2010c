// Package dlist implements a generic intrusive doubly linked list.
//
// Nodes are allocated by the caller and linked in place: moving a node never
// copies or reallocates it. The list is nil-terminated (head.prev and
// tail.next are nil) and is not safe for concurrent use.
package dlist

// Node is a list element. The zero value is a detached node; set Value
// before pushing it.
type Node[T any] struct {
	prev *Node[T]
	next *Node[T]
	list *List[T] // owning list, nil when detached

	Value T
}

// Next returns the next node toward the back, or nil.
func (n *Node[T]) Next() *Node[T] { return n.next }

// Prev returns the previous node toward the front, or nil.
func (n *Node[T]) Prev() *Node[T] { return n.prev }

// Linked reports whether n currently belongs to a list.
func (n *Node[T]) Linked() bool { return n.list != nil }

// List is an ordered sequence of nodes: head is the front, tail is the back.
// The zero value is an empty list ready to use.
type List[T any] struct {
	head *Node[T]
	tail *Node[T]
	len  int
}

// Len returns the number of linked nodes.
func (l *List[T]) Len() int { return l.len }

// IsEmpty reports whether the list has no nodes.
func (l *List[T]) IsEmpty() bool { return l.len == 0 }

// Front returns the head node, or nil if the list is empty.
func (l *List[T]) Front() *Node[T] { return l.head }

// Back returns the tail node, or nil if the list is empty.
func (l *List[T]) Back() *Node[T] { return l.tail }

// PushFront links n at the head in O(1).
// A node already in l is moved to the front instead; a node owned by a
// different list is a programming error and panics.
func (l *List[T]) PushFront(n *Node[T]) {
	switch n.list {
	case nil:
	case l:
		l.MoveToFront(n)
		return
	default:
		panic("dlist: PushFront of a node owned by another list")
	}
	l.linkFront(n)
	l.len++
}

// Remove detaches n in O(1) and reports whether it was linked in l.
// Removing a detached node (or one from another list) is a no-op.
func (l *List[T]) Remove(n *Node[T]) bool {
	if n == nil || n.list != l {
		return false
	}
	l.unlink(n)
	n.list = nil
	l.len--
	return true
}

// MoveToFront relinks n at the head without allocating.
// No-op when n is already the head or is not linked in l.
func (l *List[T]) MoveToFront(n *Node[T]) {
	if n.list != l || l.head == n {
		return
	}
	// n is not the head, so it has a predecessor and the list keeps at
	// least one other node after the unlink.
	l.unlink(n)
	l.linkFront(n)
}

// Pop detaches and returns the tail node, or nil if the list is empty.
func (l *List[T]) Pop() *Node[T] {
	n := l.tail
	if n == nil {
		return nil
	}
	l.Remove(n)
	return n
}

// ForEach walks the list front to back and stops early when fn returns false.
// fn must not mutate the list.
func (l *List[T]) ForEach(fn func(n *Node[T]) bool) {
	for n := l.head; n != nil; n = n.next {
		if !fn(n) {
			return
		}
	}
}

// IndexOf returns the zero-based position of n counted from the front,
// or -1 if n is not linked in l. It scans the list.
func (l *List[T]) IndexOf(n *Node[T]) int {
	if n == nil || n.list != l {
		return -1
	}
	i := 0
	for cur := l.head; cur != nil; cur = cur.next {
		if cur == n {
			return i
		}
		i++
	}
	return -1
}

// Clear detaches every node. No callbacks are made; owners that need to
// observe removals must walk the list first.
func (l *List[T]) Clear() {
	for n := l.head; n != nil; {
		next := n.next
		n.prev, n.next, n.list = nil, nil, nil
		n = next
	}
	l.head, l.tail, l.len = nil, nil, 0
}

// linkFront splices a detached n in at the head. It does not touch len.
func (l *List[T]) linkFront(n *Node[T]) {
	n.prev = nil
	n.next = l.head
	if l.head != nil {
		l.head.prev = n
	}
	l.head = n
	if l.tail == nil {
		l.tail = n
	}
	n.list = l
}

// unlink splices n out and fixes head/tail. It does not touch len or n.list.
func (l *List[T]) unlink(n *Node[T]) {
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		l.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		l.tail = n.prev
	}
	n.prev, n.next = nil, nil
}
