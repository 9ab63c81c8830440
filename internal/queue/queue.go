// Package queue implements the FIFO task queue drained by the scheduler.
package queue

// Queue is a FIFO queue backed by a growable ring buffer.
// The zero value is an empty queue ready to use. It is not safe for
// concurrent use.
type Queue[T any] struct {
	buf   []T
	head  int
	count int
}

// Push appends v at the back.
func (q *Queue[T]) Push(v T) {
	if q.count == len(q.buf) {
		q.grow()
	}
	q.buf[(q.head+q.count)%len(q.buf)] = v
	q.count++
}

// Pop removes and returns the front entry. ok is false when the queue is
// empty.
func (q *Queue[T]) Pop() (v T, ok bool) {
	if q.count == 0 {
		return v, false
	}
	var zero T
	v = q.buf[q.head]
	q.buf[q.head] = zero
	q.head = (q.head + 1) % len(q.buf)
	q.count--
	if q.count == 0 {
		q.head = 0
	}
	return v, true
}

// Peek returns the front entry without removing it.
func (q *Queue[T]) Peek() (v T, ok bool) {
	if q.count == 0 {
		return v, false
	}
	return q.buf[q.head], true
}

// Len returns the number of queued entries.
func (q *Queue[T]) Len() int {
	return q.count
}

// Drain removes every entry and returns them in FIFO order.
func (q *Queue[T]) Drain() []T {
	out := make([]T, 0, q.count)
	for {
		v, ok := q.Pop()
		if !ok {
			return out
		}
		out = append(out, v)
	}
}

func (q *Queue[T]) grow() {
	size := len(q.buf) * 2
	if size == 0 {
		size = 16
	}
	buf := make([]T, size)
	for i := 0; i < q.count; i++ {
		buf[i] = q.buf[(q.head+i)%len(q.buf)]
	}
	q.buf = buf
	q.head = 0
}
