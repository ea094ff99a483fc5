package transformers

import (
	"encoding/gob"
	"fmt"
	"reflect"
)

// Wrap is a stateless transformer emitting its input as a one-element
// list. Glue for list-consuming nodes (Index) fed by scalar columns.
type Wrap[T any] struct{}

func (Wrap[T]) InputTypes() []reflect.Type { return []reflect.Type{typeOf[T]()} }

func (Wrap[T]) OutputTypes() []reflect.Type { return []reflect.Type{typeOf[[]T]()} }

func (Wrap[T]) Apply(in []any) ([]any, error) {
	return []any{[]T{in[0].(T)}}, nil
}

func (Wrap[T]) GobEncode() ([]byte, error) { return []byte{}, nil }

func (*Wrap[T]) GobDecode([]byte) error { return nil }

// First is a stateless transformer emitting the first element of a list.
// It fails on empty input.
type First[T any] struct{}

func (First[T]) InputTypes() []reflect.Type { return []reflect.Type{typeOf[[]T]()} }

func (First[T]) OutputTypes() []reflect.Type { return []reflect.Type{typeOf[T]()} }

func (First[T]) Apply(in []any) ([]any, error) {
	items := in[0].([]T)
	if len(items) == 0 {
		return nil, fmt.Errorf("empty list")
	}
	return []any{items[0]}, nil
}

func (First[T]) GobEncode() ([]byte, error) { return []byte{}, nil }

func (*First[T]) GobDecode([]byte) error { return nil }

// RegisterListTypes makes Wrap[T] and First[T] serializable for item type
// T. Common item types are registered by this package's init.
func RegisterListTypes[T any]() {
	gob.Register(Wrap[T]{})
	gob.Register(First[T]{})
}

func init() {
	RegisterListTypes[string]()
	RegisterListTypes[int]()
	RegisterListTypes[int64]()
	RegisterListTypes[float64]()
}
