package creek

import (
	"fmt"
	"reflect"
)

// Builder constructs a pipeline DAG.
//
// IMPORTANT: Builder is NOT safe for concurrent use. All registration
// methods must be called from a single goroutine. The resulting Graph is
// immutable and safe to use concurrently.
//
// Registration wires structure only; data is bound at Prepare/Apply time.
// Every registration method validates its inputs immediately (existing
// parent, slot bounds, type compatibility), so errors point at the
// offending call rather than at Build.
type Builder struct {
	nodes        map[NodeID]*node
	order        []NodeID
	placeholders []NodeID
}

// NewBuilder creates a new empty DAG builder.
func NewBuilder() *Builder {
	return &Builder{nodes: map[NodeID]*node{}}
}

// AddPlaceholder declares a graph input slot of type T. Placeholders form
// the graph's parameter list in declaration order; at Prepare/Apply time
// bindings are matched to them by position.
func AddPlaceholder[T any](b *Builder, name string) (Edge, error) {
	id := NodeID(name)
	if err := id.Validate(); err != nil {
		return Edge{}, err
	}
	if _, exists := b.nodes[id]; exists {
		return Edge{}, fmt.Errorf("%w: placeholder %q", ErrNodeAlreadyExists, name)
	}
	typ := reflect.TypeOf((*T)(nil)).Elem()
	registerValueType(typ)
	n := &node{
		id:        id,
		kind:      kindPlaceholder,
		outTypes:  []reflect.Type{typ},
		declIndex: len(b.order),
	}
	b.nodes[id] = n
	b.order = append(b.order, id)
	b.placeholders = append(b.placeholders, id)
	return Edge{node: id}, nil
}

// MustAddPlaceholder is like AddPlaceholder but panics on error.
func MustAddPlaceholder[T any](b *Builder, name string) Edge {
	e, err := AddPlaceholder[T](b, name)
	if err != nil {
		panic(err)
	}
	return e
}

// AddStateless registers a stateless transformer node fed by the given
// input edges. It returns the edge for output slot 0; secondary outputs of
// multi-output transformers are addressed with Slot.
func (b *Builder) AddStateless(name string, t StatelessTransformer, inputs ...Edge) (Edge, error) {
	return b.add(name, kindStateless, t, nil, inputs)
}

// MustAddStateless is like AddStateless but panics on error.
func (b *Builder) MustAddStateless(name string, t StatelessTransformer, inputs ...Edge) Edge {
	e, err := b.AddStateless(name, t, inputs...)
	if err != nil {
		panic(err)
	}
	return e
}

// AddPreparable registers a transformer that requires a training pass. It
// returns the edge for output slot 0.
func (b *Builder) AddPreparable(name string, t PreparableTransformer, inputs ...Edge) (Edge, error) {
	return b.add(name, kindPreparable, nil, t, inputs)
}

// MustAddPreparable is like AddPreparable but panics on error.
func (b *Builder) MustAddPreparable(name string, t PreparableTransformer, inputs ...Edge) Edge {
	e, err := b.AddPreparable(name, t, inputs...)
	if err != nil {
		panic(err)
	}
	return e
}

func (b *Builder) add(name string, kind nodeKind, st StatelessTransformer, pt PreparableTransformer, inputs []Edge) (Edge, error) {
	id := NodeID(name)
	if err := id.Validate(); err != nil {
		return Edge{}, err
	}
	if _, exists := b.nodes[id]; exists {
		return Edge{}, fmt.Errorf("%w: %q", ErrNodeAlreadyExists, name)
	}

	var t Transformer
	if kind == kindStateless {
		t = st
	} else {
		t = pt
	}
	inTypes := t.InputTypes()
	outTypes := t.OutputTypes()
	if len(outTypes) == 0 {
		return Edge{}, fmt.Errorf("%w: transformer %q declares no outputs", ErrArityMismatch, name)
	}
	if len(inputs) != len(inTypes) {
		return Edge{}, fmt.Errorf("%w: transformer %q expects %d inputs, got %d",
			ErrArityMismatch, name, len(inTypes), len(inputs))
	}
	for i, in := range inputs {
		parent, ok := b.nodes[in.node]
		if !ok {
			return Edge{}, fmt.Errorf("%w: input %d of %q references %q", ErrNodeNotFound, i, name, in.node)
		}
		if in.slot < 0 || in.slot >= len(parent.outTypes) {
			return Edge{}, fmt.Errorf("%w: input %d of %q references slot %d of %q (width %d)",
				ErrArityMismatch, i, name, in.slot, in.node, len(parent.outTypes))
		}
		if parent.outTypes[in.slot] != inTypes[i] {
			return Edge{}, fmt.Errorf("cannot connect %s -> %s: %w: slot %d outputs %v but input %d expects %v",
				in.node, name, ErrTypeMismatch, in.slot, parent.outTypes[in.slot], i, inTypes[i])
		}
	}

	n := &node{
		id:         id,
		kind:       kind,
		inputs:     append([]Edge(nil), inputs...),
		inTypes:    inTypes,
		outTypes:   outTypes,
		stateless:  st,
		preparable: pt,
		declIndex:  len(b.order),
	}
	b.nodes[id] = n
	b.order = append(b.order, id)
	return Edge{node: id}, nil
}

// Build validates the DAG and finalizes it into an immutable Graph with
// the given output edges (in declared order; the graph's arity is
// len(outputs)). Nodes that no output depends on are pruned; declared
// placeholders are always retained so the binding positions stay stable.
func (b *Builder) Build(outputs ...Edge) (*Graph, error) {
	if len(outputs) == 0 {
		return nil, ErrNoOutputs
	}
	for i, e := range outputs {
		n, ok := b.nodes[e.node]
		if !ok {
			return nil, fmt.Errorf("%w: output %d references %q", ErrNodeNotFound, i, e.node)
		}
		if e.slot < 0 || e.slot >= len(n.outTypes) {
			return nil, fmt.Errorf("%w: output %d references slot %d of %q (width %d)",
				ErrArityMismatch, i, e.slot, e.node, len(n.outTypes))
		}
	}

	g := &Graph{
		nodes:        b.nodes,
		order:        b.order,
		placeholders: b.placeholders,
		outputs:      append([]Edge(nil), outputs...),
	}
	if err := g.validate(); err != nil {
		return nil, err
	}
	// Hand the node set over to the graph; further use of the builder
	// would otherwise mutate the "immutable" result.
	b.nodes = map[NodeID]*node{}
	b.order = nil
	b.placeholders = nil
	return g, nil
}

// MustBuild is like Build but panics on error.
func (b *Builder) MustBuild(outputs ...Edge) *Graph {
	g, err := b.Build(outputs...)
	if err != nil {
		panic(err)
	}
	return g
}
