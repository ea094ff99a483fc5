package reader

// Map returns a reader that lazily applies f to every record of src. No
// record is transformed before it is pulled. The returned reader references
// src but does not own it: Close is a no-op on src, and Reset/Size are
// delegated when src supports them.
func Map[T, U any](src Reader[T], f func(T) (U, error)) Reader[U] {
	return &mapReader[T, U]{src: src, f: f}
}

type mapReader[T, U any] struct {
	src Reader[T]
	f   func(T) (U, error)

	cur U
	err error
}

func (r *mapReader[T, U]) Next() bool {
	if r.err != nil {
		return false
	}
	if !r.src.Next() {
		return false
	}
	rec, err := r.f(r.src.Record())
	if err != nil {
		r.err = err
		return false
	}
	r.cur = rec
	return true
}

func (r *mapReader[T, U]) Record() U { return r.cur }

func (r *mapReader[T, U]) Err() error {
	if r.err != nil {
		return r.err
	}
	return r.src.Err()
}

func (r *mapReader[T, U]) Close() error { return nil }

func (r *mapReader[T, U]) Size() (int64, bool) { return SizeOf(r.src) }

func (r *mapReader[T, U]) Reset() error {
	if err := ResetIfPossible(r.src); err != nil {
		return err
	}
	r.err = nil
	return nil
}
