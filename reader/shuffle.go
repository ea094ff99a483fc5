package reader

import "math/rand"

// Shuffle emits the records of src in a pseudo-random order that is a
// permutation of the source. It holds at most bufferSize records in memory
// at any instant: records beyond the buffer are exchanged against a random
// buffer slot as they stream in. If bufferSize is at least the total record
// count the result is a full uniform shuffle.
//
// The returned reader owns its buffer (released on Close) but not src.
// The same seed over the same source reproduces the same order.
func Shuffle[T any](src Reader[T], bufferSize int, seed int64) Reader[T] {
	if bufferSize < 1 {
		bufferSize = 1
	}
	return &shuffleReader[T]{src: src, max: bufferSize, rng: rand.New(rand.NewSource(seed))}
}

type shuffleReader[T any] struct {
	src Reader[T]
	max int
	rng *rand.Rand

	buf    []T
	cur    T
	filled bool
	closed bool
}

func (r *shuffleReader[T]) fill() {
	r.buf = make([]T, 0, min(r.max, 1024))
	for len(r.buf) < r.max && r.src.Next() {
		r.buf = append(r.buf, r.src.Record())
	}
	r.filled = true
}

func (r *shuffleReader[T]) Next() bool {
	if r.closed {
		return false
	}
	if !r.filled {
		r.fill()
	}
	if len(r.buf) == 0 {
		return false
	}
	i := r.rng.Intn(len(r.buf))
	r.cur = r.buf[i]
	if r.src.Next() {
		r.buf[i] = r.src.Record()
	} else {
		// Drain phase: swap-remove keeps the remaining buffer uniform.
		last := len(r.buf) - 1
		r.buf[i] = r.buf[last]
		var zero T
		r.buf[last] = zero
		r.buf = r.buf[:last]
	}
	return true
}

func (r *shuffleReader[T]) Record() T { return r.cur }

func (r *shuffleReader[T]) Err() error { return r.src.Err() }

func (r *shuffleReader[T]) Close() error {
	r.closed = true
	r.buf = nil
	return nil
}

func (r *shuffleReader[T]) Size() (int64, bool) { return SizeOf(r.src) }
