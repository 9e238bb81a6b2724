// Package ringbuf provides a bounded ring buffer that overwrites the oldest
// element once full. It backs the per-symbol tick buffers, the finalized bar
// histories, and the alert ring; all of them share the same retention rule:
// append is O(1) and eviction is strictly oldest-first.
//
// The ring itself is not goroutine-safe. Owners guard it with their own
// mutex, which keeps locking at the component boundary where the copies
// are taken.
package ringbuf

// Ring is a bounded FIFO of T with oldest-first eviction.
type Ring[T any] struct {
	buf   []T
	head  int // index of the oldest element
	count int
}

// New creates a ring with the given capacity. Capacity must be >= 1.
func New[T any](capacity int) *Ring[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring[T]{buf: make([]T, capacity)}
}

// Push appends v, evicting the oldest element if the ring is full.
func (r *Ring[T]) Push(v T) {
	if r.count < len(r.buf) {
		r.buf[(r.head+r.count)%len(r.buf)] = v
		r.count++
		return
	}
	// Full: overwrite the oldest slot and advance.
	r.buf[r.head] = v
	r.head = (r.head + 1) % len(r.buf)
}

// Len returns the number of stored elements.
func (r *Ring[T]) Len() int { return r.count }

// Cap returns the ring capacity.
func (r *Ring[T]) Cap() int { return len(r.buf) }

// At returns the i-th element, oldest first. Panics if out of range,
// matching slice semantics.
func (r *Ring[T]) At(i int) T {
	if i < 0 || i >= r.count {
		panic("ringbuf: index out of range")
	}
	return r.buf[(r.head+i)%len(r.buf)]
}

// Last returns the newest element and true, or a zero value and false when
// the ring is empty.
func (r *Ring[T]) Last() (T, bool) {
	if r.count == 0 {
		var zero T
		return zero, false
	}
	return r.At(r.count - 1), true
}

// Snapshot returns a copy of the contents, oldest first.
func (r *Ring[T]) Snapshot() []T {
	out := make([]T, r.count)
	for i := 0; i < r.count; i++ {
		out[i] = r.At(i)
	}
	return out
}

// TailN returns a copy of the newest n elements, oldest first. When n
// exceeds Len, the whole ring is returned.
func (r *Ring[T]) TailN(n int) []T {
	if n >= r.count {
		return r.Snapshot()
	}
	if n <= 0 {
		return nil
	}
	out := make([]T, n)
	for i := 0; i < n; i++ {
		out[i] = r.At(r.count - n + i)
	}
	return out
}

// Clear drops all elements.
func (r *Ring[T]) Clear() {
	r.head = 0
	r.count = 0
	var zero T
	for i := range r.buf {
		r.buf[i] = zero
	}
}
