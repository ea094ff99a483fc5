// Package reader provides a lazy, streaming cursor abstraction over typed
// record sequences, plus composition operators (map, sample, shuffle, zip,
// fanout) that never materialize more than they document.
//
// A Reader is a single-pass cursor unless it also implements Resettable.
// Composition operators reference their source but do not own it: closing a
// derived reader does not close the source. Operators that allocate owned
// intermediate state (Shuffle, Fanout, Buffer cursors) release it on Close.
package reader

import "errors"

// Reader is a cursor over a sequence of records of type T.
//
// Usage follows the usual scan loop:
//
//	for r.Next() {
//	    rec := r.Record()
//	    ...
//	}
//	if err := r.Err(); err != nil { ... }
type Reader[T any] interface {
	// Next advances the cursor. It returns false when the sequence is
	// exhausted or an error occurred; Err distinguishes the two.
	Next() bool

	// Record returns the current record. Only valid after Next returned true.
	Record() T

	// Err returns the first error encountered during iteration, if any.
	Err() error

	// Close releases resources owned by this reader. It must be safe to call
	// on all exit paths, including after a consumer error.
	Close() error
}

// Sized is implemented by readers that know how many records they hold.
// Streaming sources (files of unknown length, message brokers) do not.
type Sized interface {
	// Size returns the total record count and true, or 0 and false if the
	// count is unknown.
	Size() (int64, bool)
}

// Resettable is implemented by readers that can be iterated more than once.
// Multi-pass consumers (e.g. multi-epoch trainers) require their input to
// implement it.
type Resettable interface {
	// Reset rewinds the cursor to the start of the sequence.
	Reset() error
}

// ErrLengthMismatch is returned when lockstep composition (Zip) observes
// sources of unequal length.
var ErrLengthMismatch = errors.New("readers have mismatched lengths")

// ErrNotRestartable is returned when a second pass is requested over a
// reader that does not implement Resettable.
var ErrNotRestartable = errors.New("reader is not restartable")

// FromSlice returns a sized, restartable reader over the given slice. The
// slice is not copied; callers must not mutate it while reading.
func FromSlice[T any](items []T) Reader[T] {
	return &sliceReader[T]{items: items}
}

type sliceReader[T any] struct {
	items []T
	pos   int
}

func (r *sliceReader[T]) Next() bool {
	if r.pos >= len(r.items) {
		return false
	}
	r.pos++
	return true
}

func (r *sliceReader[T]) Record() T { return r.items[r.pos-1] }

func (r *sliceReader[T]) Err() error { return nil }

func (r *sliceReader[T]) Close() error { return nil }

func (r *sliceReader[T]) Size() (int64, bool) { return int64(len(r.items)), true }

func (r *sliceReader[T]) Reset() error {
	r.pos = 0
	return nil
}

// Collect drains the reader into a slice. The reader is not closed; that
// remains the caller's responsibility.
func Collect[T any](r Reader[T]) ([]T, error) {
	var out []T
	for r.Next() {
		out = append(out, r.Record())
	}
	if err := r.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// SizeOf reports the record count of r if it is Sized.
func SizeOf[T any](r Reader[T]) (int64, bool) {
	if s, ok := r.(Sized); ok {
		return s.Size()
	}
	return 0, false
}

// ResetIfPossible rewinds r if it is Resettable and returns
// ErrNotRestartable otherwise.
func ResetIfPossible[T any](r Reader[T]) error {
	if rr, ok := r.(Resettable); ok {
		return rr.Reset()
	}
	return ErrNotRestartable
}
