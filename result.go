package creek

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/creekml/creek/reader"
	"go.uber.org/multierr"
)

// Result is a fixed-arity immutable bundle of output readers, one per
// declared graph output, returned by preparation and application. The
// Result owns its readers: Close closes every slot exactly once, in slot
// order, and is idempotent. No reader is shared between two Results.
type Result struct {
	readers []reader.Reader[any]
	types   []reflect.Type

	mu     sync.Mutex
	closed bool
}

// NewResult bundles per-slot readers with their declared types. The two
// slices must have equal, non-zero length; anything else is a construction
// error, never silently repaired.
func NewResult(readers []reader.Reader[any], types []reflect.Type) (*Result, error) {
	if len(readers) == 0 || len(readers) != len(types) {
		return nil, fmt.Errorf("%w: %d readers for %d declared outputs",
			ErrArityMismatch, len(readers), len(types))
	}
	return &Result{readers: readers, types: types}, nil
}

// Arity returns the number of output slots.
func (r *Result) Arity() int { return len(r.readers) }

// Type returns the declared record type of slot i.
func (r *Result) Type(i int) reflect.Type { return r.types[i] }

// Slot returns the untyped reader for output slot i, failing with
// ErrArityMismatch for an out-of-range slot. The reader remains owned by
// the Result; close the Result, not the slot.
func (r *Result) Slot(i int) (reader.Reader[any], error) {
	if i < 0 || i >= len(r.readers) {
		return nil, fmt.Errorf("%w: output %d of %d", ErrArityMismatch, i, len(r.readers))
	}
	return r.readers[i], nil
}

// Close closes all slot readers in slot order, exactly once, aggregating
// any close errors. Subsequent calls are no-ops.
func (r *Result) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	var err error
	for _, rd := range r.readers {
		err = multierr.Append(err, rd.Close())
	}
	return err
}

// Output returns a typed view over output slot i, failing with
// ErrTypeMismatch if T is not the slot's declared type. The view
// references the slot reader but does not own it.
func Output[T any](r *Result, i int) (reader.Reader[T], error) {
	if i < 0 || i >= len(r.readers) {
		return nil, fmt.Errorf("%w: output %d of %d", ErrArityMismatch, i, len(r.readers))
	}
	want := reflect.TypeOf((*T)(nil)).Elem()
	if r.types[i] != want {
		return nil, fmt.Errorf("%w: output %d is %v, requested %v", ErrTypeMismatch, i, r.types[i], want)
	}
	return reader.Map(r.readers[i], func(v any) (T, error) {
		return v.(T), nil
	}), nil
}
