package reader

// Zip advances the given readers in lockstep and yields one row per step
// containing the current record of each source, in argument order. The
// sources must have equal length: if some are exhausted while others still
// have records, iteration fails with ErrLengthMismatch.
//
// The returned reader references the sources but does not own them.
func Zip[T any](srcs ...Reader[T]) Reader[[]T] {
	return &zipReader[T]{srcs: srcs}
}

type zipReader[T any] struct {
	srcs []Reader[T]
	cur  []T
	err  error
}

func (r *zipReader[T]) Next() bool {
	if r.err != nil || len(r.srcs) == 0 {
		return false
	}
	live := 0
	for _, s := range r.srcs {
		if s.Next() {
			live++
		}
	}
	if live == 0 {
		return false
	}
	if live != len(r.srcs) {
		// A source that failed mid-stream also stops advancing; its own
		// error outranks the length mismatch it causes.
		r.err = ErrLengthMismatch
		for _, s := range r.srcs {
			if err := s.Err(); err != nil {
				r.err = err
				break
			}
		}
		return false
	}
	row := make([]T, len(r.srcs))
	for i, s := range r.srcs {
		row[i] = s.Record()
	}
	r.cur = row
	return true
}

func (r *zipReader[T]) Record() []T { return r.cur }

func (r *zipReader[T]) Err() error {
	if r.err != nil {
		return r.err
	}
	for _, s := range r.srcs {
		if err := s.Err(); err != nil {
			return err
		}
	}
	return nil
}

func (r *zipReader[T]) Close() error { return nil }

func (r *zipReader[T]) Size() (int64, bool) {
	var n int64
	for i, s := range r.srcs {
		sz, ok := SizeOf(s)
		if !ok {
			return 0, false
		}
		if i == 0 {
			n = sz
		} else if sz != n {
			return 0, false
		}
	}
	return n, len(r.srcs) > 0
}

func (r *zipReader[T]) Reset() error {
	for _, s := range r.srcs {
		if err := ResetIfPossible(s); err != nil {
			return err
		}
	}
	r.err = nil
	return nil
}
