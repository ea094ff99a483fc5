package creek

import (
	"fmt"
	"reflect"

	"github.com/creekml/creek/reader"
)

// Binding attaches a caller-supplied reader to a placeholder. Bindings are
// matched to placeholders by position; their declared type must equal the
// placeholder's type. The caller keeps ownership of the underlying reader
// and remains responsible for closing it.
type Binding struct {
	typ reflect.Type
	r   reader.Reader[any]
	// used tracks whether a streaming pass has already consumed this
	// binding; a second pass requires the reader to be restartable.
	used bool
}

// Bind wraps a typed reader into a Binding. Reset and Size capabilities of
// r are preserved.
func Bind[T any](r reader.Reader[T]) Binding {
	return Binding{
		typ: reflect.TypeOf((*T)(nil)).Elem(),
		r:   reader.Map(r, func(v T) (any, error) { return v, nil }),
	}
}

// Type returns the record type the binding supplies.
func (b Binding) Type() reflect.Type { return b.typ }

// validateBindings checks count and per-position type compatibility of the
// supplied bindings against the graph's placeholder list.
func (g *Graph) validateBindings(bindings []Binding) error {
	if len(bindings) != len(g.placeholders) {
		return fmt.Errorf("%w: graph declares %d placeholders, got %d bindings",
			ErrArityMismatch, len(g.placeholders), len(bindings))
	}
	for i, b := range bindings {
		ph := g.nodes[g.placeholders[i]]
		if b.typ != ph.outTypes[0] {
			return fmt.Errorf("%w: placeholder %q expects %v, binding %d supplies %v",
				ErrTypeMismatch, ph.id, ph.outTypes[0], i, b.typ)
		}
	}
	return nil
}

// bindingSet tracks streaming passes over the bound placeholder readers.
// The first pass consumes each reader as-is; any later pass rewinds it
// first, which requires the caller's reader to be restartable.
type bindingSet struct {
	byID map[NodeID]*Binding
}

func newBindingSet(g *Graph, bindings []Binding) *bindingSet {
	bs := &bindingSet{byID: make(map[NodeID]*Binding, len(bindings))}
	for i := range bindings {
		bs.byID[g.placeholders[i]] = &bindings[i]
	}
	return bs
}

// acquire starts a pass over the given placeholders, rewinding any that a
// previous pass already consumed.
func (bs *bindingSet) acquire(ids []NodeID) error {
	for _, id := range ids {
		b := bs.byID[id]
		if b.used {
			if err := reader.ResetIfPossible(b.r); err != nil {
				return fmt.Errorf("placeholder %q needs another pass: %w", id, err)
			}
		}
		b.used = true
	}
	return nil
}

func (bs *bindingSet) reader(id NodeID) reader.Reader[any] {
	return bs.byID[id].r
}
