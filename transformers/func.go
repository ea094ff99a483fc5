package transformers

import (
	"reflect"

	"github.com/creekml/creek"
)

// Func1 adapts an ordinary single-input function into a stateless
// transformer. Handy for one-off glue nodes; because the adapter holds a
// closure, graphs containing it cannot be serialized.
func Func1[A, Out any](f func(A) (Out, error)) creek.StatelessTransformer {
	return func1[A, Out]{f: f}
}

type func1[A, Out any] struct {
	f func(A) (Out, error)
}

func (func1[A, Out]) InputTypes() []reflect.Type { return []reflect.Type{typeOf[A]()} }

func (func1[A, Out]) OutputTypes() []reflect.Type { return []reflect.Type{typeOf[Out]()} }

func (t func1[A, Out]) Apply(in []any) ([]any, error) {
	out, err := t.f(in[0].(A))
	if err != nil {
		return nil, err
	}
	return []any{out}, nil
}

// Func2 is Func1 for two inputs.
func Func2[A, B, Out any](f func(A, B) (Out, error)) creek.StatelessTransformer {
	return func2[A, B, Out]{f: f}
}

type func2[A, B, Out any] struct {
	f func(A, B) (Out, error)
}

func (func2[A, B, Out]) InputTypes() []reflect.Type {
	return []reflect.Type{typeOf[A](), typeOf[B]()}
}

func (func2[A, B, Out]) OutputTypes() []reflect.Type { return []reflect.Type{typeOf[Out]()} }

func (t func2[A, B, Out]) Apply(in []any) ([]any, error) {
	out, err := t.f(in[0].(A), in[1].(B))
	if err != nil {
		return nil, err
	}
	return []any{out}, nil
}
