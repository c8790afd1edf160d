// Package history keeps the bounded per-greenhouse histories the engine
// reads: soil-moisture values and alert flags, in insertion order.
package history

// Ring is a fixed-capacity append-only buffer. Once full, each Push evicts
// the oldest value.
type Ring[T any] struct {
	buf   []T
	start int
	size  int
}

// NewRing creates a ring holding at most capacity values (minimum 1).
func NewRing[T any](capacity int) *Ring[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring[T]{buf: make([]T, capacity)}
}

// Push appends v. When the ring is full the oldest value is returned with
// evicted=true.
func (r *Ring[T]) Push(v T) (old T, evicted bool) {
	if r.size < len(r.buf) {
		r.buf[(r.start+r.size)%len(r.buf)] = v
		r.size++
		return old, false
	}
	old = r.buf[r.start]
	r.buf[r.start] = v
	r.start = (r.start + 1) % len(r.buf)
	return old, true
}

// Len returns the number of stored values.
func (r *Ring[T]) Len() int { return r.size }

// Cap returns the retention limit.
func (r *Ring[T]) Cap() int { return len(r.buf) }

// At returns the i-th oldest value.
func (r *Ring[T]) At(i int) T {
	return r.buf[(r.start+i)%len(r.buf)]
}

// Values returns a copy of the stored values, oldest first.
func (r *Ring[T]) Values() []T {
	out := make([]T, r.size)
	for i := range out {
		out[i] = r.At(i)
	}
	return out
}

// LastN returns a copy of the newest n values, oldest first.
func (r *Ring[T]) LastN(n int) []T {
	if n <= 0 || r.size == 0 {
		return []T{}
	}
	if n > r.size {
		n = r.size
	}
	out := make([]T, n)
	for i := range out {
		out[i] = r.At(r.size - n + i)
	}
	return out
}
