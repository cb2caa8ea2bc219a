// Package queue provides the bounded FIFO used for pending work items.
package queue

// Ring is a fixed-capacity FIFO. Pushing onto a full ring drops the oldest
// element, so Push never fails. It is not safe for concurrent use.
type Ring[T any] struct {
	buf  []T
	head int
	size int
}

// New returns an empty ring holding at most capacity elements.
// A capacity below one is treated as one.
func New[T any](capacity int) *Ring[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring[T]{buf: make([]T, capacity)}
}

// Push appends v. It reports whether an older element was evicted to make room.
func (r *Ring[T]) Push(v T) (evicted bool) {
	if r.size == len(r.buf) {
		r.buf[r.head] = v
		r.head = (r.head + 1) % len(r.buf)
		return true
	}
	r.buf[(r.head+r.size)%len(r.buf)] = v
	r.size++
	return false
}

// Pop removes and returns the oldest element.
func (r *Ring[T]) Pop() (T, bool) {
	var zero T
	if r.size == 0 {
		return zero, false
	}
	v := r.buf[r.head]
	r.buf[r.head] = zero
	r.head = (r.head + 1) % len(r.buf)
	r.size--
	return v, true
}

func (r *Ring[T]) Len() int { return r.size }

func (r *Ring[T]) Cap() int { return len(r.buf) }
