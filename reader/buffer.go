package reader

// Buffer is a fully materialized column of records supporting any number of
// independent cursors. It is the one deliberately non-lazy piece of this
// package: the executor uses it to retain the training-time outputs of
// prepared nodes for downstream consumers.
type Buffer[T any] struct {
	items []T
}

// NewBuffer wraps the given records. The slice is not copied.
func NewBuffer[T any](items []T) *Buffer[T] {
	return &Buffer[T]{items: items}
}

// Drain consumes src to exhaustion into a new Buffer and closes it. src is
// owned by this call regardless of outcome.
func Drain[T any](src Reader[T]) (*Buffer[T], error) {
	items, err := Collect(src)
	cerr := src.Close()
	if err != nil {
		return nil, err
	}
	if cerr != nil {
		return nil, cerr
	}
	return &Buffer[T]{items: items}, nil
}

// Len returns the number of buffered records.
func (b *Buffer[T]) Len() int { return len(b.items) }

// Cursor returns a fresh sized, restartable reader over the buffer.
func (b *Buffer[T]) Cursor() Reader[T] {
	return &sliceReader[T]{items: b.items}
}
