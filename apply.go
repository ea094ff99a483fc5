package creek

import (
	"context"
)

// Apply runs the trained graph over new data bound to the placeholders and
// returns a Result over the outputs. Execution is fully lazy: no record is
// pulled from the bindings until a Result slot is iterated, the data flows
// through in a single synchronized pass, and nothing is materialized.
// Output row order matches input row order.
//
// Apply does not mutate the PreparedGraph; it may be called repeatedly and
// from concurrent goroutines, each call with its own bindings. Per-record
// transformer failures surface through the Err method of the Result slot
// that pulled the failing row, wrapped in an ApplyError; the PreparedGraph
// remains valid for subsequent calls.
func (pg *PreparedGraph) Apply(ctx context.Context, bindings []Binding, opts ...Option) (*Result, error) {
	o := newOptions(opts)
	if err := pg.g.validateBindings(bindings); err != nil {
		return nil, err
	}
	bs := newBindingSet(pg.g, bindings)
	o.log.V(1).Info("applying graph", "outputs", pg.g.Arity())
	return pg.g.buildResult(ctx, bs, nil, pg.prepared)
}
