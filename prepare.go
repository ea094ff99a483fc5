package creek

import (
	"context"
	"fmt"
	"reflect"

	"github.com/creekml/creek/reader"
)

// PreparedGraph is the result of a successful preparation: the same
// topology as the source Graph, with every preparable node replaced by its
// trained form. It is immutable, safe for concurrent Apply calls, and
// serializable (see Serialize).
type PreparedGraph struct {
	g        *Graph
	prepared map[NodeID]PreparedTransformer
}

// Graph returns the underlying validated graph structure.
func (pg *PreparedGraph) Graph() *Graph { return pg.g }

// Prepare trains the graph on the bound training data and returns the
// PreparedGraph together with a Result over the training-time outputs.
//
// Bindings are matched to placeholders by position; their count and types
// must match the declaration. Nodes are visited in the cached topological
// order; every preparable node's Prepare is invoked exactly once, fed by a
// single synchronized streaming pass over its inputs. Stateless nodes are
// evaluated lazily along the way and never materialized. If the training
// data must be streamed more than once overall (several preparable nodes
// depending on the same placeholder, or the final Result), the placeholder
// readers must be restartable.
//
// Any node failure aborts the whole preparation with a PreparationError;
// no partial PreparedGraph is returned.
func (g *Graph) Prepare(ctx context.Context, bindings []Binding, opts ...Option) (*PreparedGraph, *Result, error) {
	o := newOptions(opts)
	if err := g.validateBindings(bindings); err != nil {
		return nil, nil, err
	}
	bs := newBindingSet(g, bindings)

	trained := make(map[NodeID]*reader.Buffer[[]any])
	prepared := make(map[NodeID]PreparedTransformer)

	for _, id := range g.topo {
		n := g.nodes[id]
		if n.kind != kindPreparable {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, nil, &PreparationError{Node: id, Err: err}
		}
		if n.preparable == nil {
			return nil, nil, &PreparationError{Node: id, Err: fmt.Errorf("graph is already prepared")}
		}

		rows, err := g.newRowCursor(ctx, n.inputs, bs, trained, nil)
		if err != nil {
			return nil, nil, &PreparationError{Node: id, Err: err}
		}

		o.log.V(1).Info("preparing node", "node", id)
		pt, out, err := n.preparable.Prepare(ctx, rows)
		if err != nil {
			return nil, nil, &PreparationError{Node: id, Err: err}
		}
		if err := checkPreparedTypes(n, pt); err != nil {
			return nil, nil, &PreparationError{Node: id, Err: err}
		}

		buf, err := reader.Drain(out)
		if err != nil {
			return nil, nil, &PreparationError{Node: id, Err: err}
		}
		o.log.V(1).Info("prepared node", "node", id, "trainingRows", buf.Len())

		trained[id] = buf
		prepared[id] = pt
	}

	res, err := g.buildResult(ctx, bs, trained, nil)
	if err != nil {
		return nil, nil, err
	}
	return &PreparedGraph{g: g, prepared: prepared}, res, nil
}

// checkPreparedTypes rejects a trained transformer whose signature drifted
// from the declaration the graph was validated against.
func checkPreparedTypes(n *node, pt PreparedTransformer) error {
	if !typesEqual(pt.OutputTypes(), n.outTypes) {
		return fmt.Errorf("%w: prepared form outputs %v, node declares %v",
			ErrTypeMismatch, pt.OutputTypes(), n.outTypes)
	}
	if !typesEqual(pt.InputTypes(), n.inTypes) {
		return fmt.Errorf("%w: prepared form inputs %v, node declares %v",
			ErrTypeMismatch, pt.InputTypes(), n.inTypes)
	}
	return nil
}

func typesEqual(a, b []reflect.Type) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// buildResult bundles the graph's output edges into a Result backed by one
// synchronized streaming pass, fanned out into one independently
// consumable reader per output slot.
func (g *Graph) buildResult(
	ctx context.Context,
	bs *bindingSet,
	trained map[NodeID]*reader.Buffer[[]any],
	prepared map[NodeID]PreparedTransformer,
) (*Result, error) {
	cur, err := g.newRowCursor(ctx, g.outputs, bs, trained, prepared)
	if err != nil {
		return nil, err
	}
	branches := reader.Fanout[[]any](cur, len(g.outputs))
	readers := make([]reader.Reader[any], len(branches))
	for i, br := range branches {
		slot := i
		readers[i] = &slotReader{src: br, slot: slot}
	}
	return NewResult(readers, g.OutputTypes())
}

// slotReader projects one output slot out of a fanout branch and forwards
// Close to it, so closing a Result slot releases its share of the
// underlying pass.
type slotReader struct {
	src  reader.Reader[[]any]
	slot int
	cur  any
}

func (r *slotReader) Next() bool {
	if !r.src.Next() {
		return false
	}
	r.cur = r.src.Record()[r.slot]
	return true
}

func (r *slotReader) Record() any { return r.cur }

func (r *slotReader) Err() error { return r.src.Err() }

func (r *slotReader) Close() error { return r.src.Close() }
