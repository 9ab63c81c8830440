// Package list provides the singly linked list used for subscriber
// registries in the reactive graph.
//
// Entries are appended at the tail and removed by predicate. Iteration and
// removal are both O(n); registries are small and notification walks them
// in full anyway.
package list

// Node is a single list entry.
type Node[T any] struct {
	Value T
	next  *Node[T]
}

// Next returns the following node, or nil at the tail.
func (n *Node[T]) Next() *Node[T] {
	return n.next
}

// List is a singly linked list with head and tail pointers.
// The zero value is an empty list ready to use.
type List[T any] struct {
	head *Node[T]
	tail *Node[T]
	size int
}

// Of builds a list holding values in order.
func Of[T any](values ...T) *List[T] {
	l := &List[T]{}
	for _, v := range values {
		l.Push(v)
	}
	return l
}

// Push appends v at the tail and returns its node.
func (l *List[T]) Push(v T) *Node[T] {
	n := &Node[T]{Value: v}
	if l.tail == nil {
		l.head = n
	} else {
		l.tail.next = n
	}
	l.tail = n
	l.size++
	return n
}

// Front returns the head node, or nil when the list is empty.
func (l *List[T]) Front() *Node[T] {
	return l.head
}

// Len returns the number of entries.
func (l *List[T]) Len() int {
	return l.size
}

// RemoveIf unlinks every entry matching pred, keeping the relative order of
// the remaining entries. Returns the number of removed entries.
func (l *List[T]) RemoveIf(pred func(T) bool) int {
	removed := 0
	var prev *Node[T]
	for n := l.head; n != nil; {
		next := n.next
		if pred(n.Value) {
			if prev == nil {
				l.head = next
			} else {
				prev.next = next
			}
			if l.tail == n {
				l.tail = prev
			}
			n.next = nil
			removed++
		} else {
			prev = n
		}
		n = next
	}
	l.size -= removed
	return removed
}

// Each calls fn for every entry in order. Returning false stops the walk.
// The next pointer is captured before fn runs, so fn may remove the
// current entry.
func (l *List[T]) Each(fn func(T) bool) {
	for n := l.head; n != nil; {
		next := n.next
		if !fn(n.Value) {
			return
		}
		n = next
	}
}

// Values returns a copy of the entries in order.
func (l *List[T]) Values() []T {
	out := make([]T, 0, l.size)
	for n := l.head; n != nil; n = n.next {
		out = append(out, n.Value)
	}
	return out
}

// Clear drops every entry.
func (l *List[T]) Clear() {
	for n := l.head; n != nil; {
		next := n.next
		n.next = nil
		n = next
	}
	l.head = nil
	l.tail = nil
	l.size = 0
}
