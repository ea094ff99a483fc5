package creek

import (
	"context"
	"fmt"

	"github.com/creekml/creek/reader"
)

// rowCursor is the executor's synchronized per-row evaluation of a
// sub-DAG. One Next advances every leaf source (placeholder bindings and
// buffered training columns) by exactly one row and evaluates all
// dependent nodes for that row, so a full iteration is a single streaming
// pass regardless of how many nodes consume the same source.
type rowCursor struct {
	ctx     context.Context
	g       *Graph
	order   []NodeID
	targets []Edge

	phLeaves  map[NodeID]reader.Reader[any]
	bufLeaves map[NodeID]reader.Reader[[]any]
	prepared  map[NodeID]PreparedTransformer

	vals map[NodeID][]any
	cur  []any
	err  error
}

// newRowCursor builds a cursor producing one row per input record, each
// row holding the projected values of targets in order.
//
// In prepare mode (trained non-nil) every preparable ancestor must already
// have a buffered training column, and is read from it rather than
// re-applied. In apply mode (trained nil) preparable ancestors are
// evaluated per row through their prepared form.
func (g *Graph) newRowCursor(
	ctx context.Context,
	targets []Edge,
	bs *bindingSet,
	trained map[NodeID]*reader.Buffer[[]any],
	prepared map[NodeID]PreparedTransformer,
) (*rowCursor, error) {
	needed := make(map[NodeID]bool)
	var visit func(NodeID)
	visit = func(id NodeID) {
		if needed[id] {
			return
		}
		needed[id] = true
		n := g.nodes[id]
		if n.kind == kindPlaceholder {
			return
		}
		if n.kind == kindPreparable && trained != nil {
			// Buffered leaf; its own ancestors were consumed during its
			// preparation and are not needed again.
			return
		}
		for _, in := range n.inputs {
			visit(in.node)
		}
	}
	for _, e := range targets {
		visit(e.node)
	}

	order := make([]NodeID, 0, len(needed))
	var phIDs []NodeID
	for _, id := range g.topo {
		if !needed[id] {
			continue
		}
		order = append(order, id)
		if g.nodes[id].kind == kindPlaceholder {
			phIDs = append(phIDs, id)
		}
	}

	if err := bs.acquire(phIDs); err != nil {
		return nil, err
	}

	c := &rowCursor{
		ctx:       ctx,
		g:         g,
		order:     order,
		targets:   targets,
		phLeaves:  make(map[NodeID]reader.Reader[any]),
		bufLeaves: make(map[NodeID]reader.Reader[[]any]),
		prepared:  prepared,
		vals:      make(map[NodeID][]any, len(order)),
	}
	for _, id := range order {
		n := g.nodes[id]
		switch {
		case n.kind == kindPlaceholder:
			c.phLeaves[id] = bs.reader(id)
		case n.kind == kindPreparable && trained != nil:
			buf, ok := trained[id]
			if !ok {
				return nil, fmt.Errorf("internal: node %q consumed before its preparation", id)
			}
			c.bufLeaves[id] = buf.Cursor()
		}
	}
	return c, nil
}

func (c *rowCursor) Next() bool {
	if c.err != nil {
		return false
	}
	if err := c.ctx.Err(); err != nil {
		c.err = err
		return false
	}

	total := len(c.phLeaves) + len(c.bufLeaves)
	advanced := 0
	for _, l := range c.phLeaves {
		if l.Next() {
			advanced++
		}
	}
	for _, l := range c.bufLeaves {
		if l.Next() {
			advanced++
		}
	}
	if advanced == 0 {
		return false
	}
	if advanced != total {
		// A leaf that failed mid-stream also stops advancing; its own
		// error outranks the length mismatch it causes.
		c.err = reader.ErrLengthMismatch
		for id, l := range c.phLeaves {
			if err := l.Err(); err != nil {
				c.err = fmt.Errorf("placeholder %q: %w", id, err)
				break
			}
		}
		if c.err == reader.ErrLengthMismatch {
			for _, l := range c.bufLeaves {
				if err := l.Err(); err != nil {
					c.err = err
					break
				}
			}
		}
		return false
	}

	for _, id := range c.order {
		n := c.g.nodes[id]
		switch {
		case n.kind == kindPlaceholder:
			c.vals[id] = []any{c.phLeaves[id].Record()}
		case n.kind == kindPreparable && c.bufLeaves[id] != nil:
			c.vals[id] = c.bufLeaves[id].Record()
		default:
			in := make([]any, len(n.inputs))
			for i, e := range n.inputs {
				in[i] = c.vals[e.node][e.slot]
			}
			out, err := c.applyNode(n, in)
			if err != nil {
				c.err = &ApplyError{Node: id, Err: err}
				return false
			}
			if len(out) != len(n.outTypes) {
				c.err = &ApplyError{Node: id, Err: fmt.Errorf("%w: produced %d values, declared %d",
					ErrArityMismatch, len(out), len(n.outTypes))}
				return false
			}
			c.vals[id] = out
		}
	}

	row := make([]any, len(c.targets))
	for i, e := range c.targets {
		row[i] = c.vals[e.node][e.slot]
	}
	c.cur = row
	return true
}

func (c *rowCursor) applyNode(n *node, in []any) ([]any, error) {
	if n.kind == kindStateless {
		return n.stateless.Apply(in)
	}
	pt, ok := c.prepared[n.id]
	if !ok {
		return nil, fmt.Errorf("internal: no prepared form for node %q", n.id)
	}
	return pt.Apply(in)
}

func (c *rowCursor) Record() []any { return c.cur }

func (c *rowCursor) Err() error {
	if c.err != nil {
		return c.err
	}
	for _, l := range c.phLeaves {
		if err := l.Err(); err != nil {
			return err
		}
	}
	for _, l := range c.bufLeaves {
		if err := l.Err(); err != nil {
			return err
		}
	}
	return nil
}

// Close releases nothing: leaf readers stay owned by the caller (bindings)
// or by the preparation state (buffers).
func (c *rowCursor) Close() error { return nil }

// Reset rewinds every leaf, enabling multi-pass consumers. It fails with
// reader.ErrNotRestartable when a placeholder binding cannot restart.
func (c *rowCursor) Reset() error {
	for id, l := range c.phLeaves {
		if err := reader.ResetIfPossible(l); err != nil {
			return fmt.Errorf("placeholder %q: %w", id, err)
		}
	}
	for _, l := range c.bufLeaves {
		if err := reader.ResetIfPossible(l); err != nil {
			return err
		}
	}
	c.err = nil
	return nil
}

func (c *rowCursor) Size() (int64, bool) {
	var n int64
	known := false
	check := func(sz int64, ok bool) bool {
		if !ok {
			return false
		}
		if known && sz != n {
			return false
		}
		n, known = sz, true
		return true
	}
	for _, l := range c.phLeaves {
		if !check(reader.SizeOf(l)) {
			return 0, false
		}
	}
	for _, l := range c.bufLeaves {
		if !check(reader.SizeOf(l)) {
			return 0, false
		}
	}
	return n, known
}
