package creek

import (
	"context"
	"reflect"

	"github.com/creekml/creek/reader"
)

// Transformer is the common surface of every graph node: its typed input
// and output signature. A transformer with more than one output type is a
// multi-output node; edges address its output slots individually.
type Transformer interface {
	// InputTypes returns the declared input types, one per input edge, in
	// positional order.
	InputTypes() []reflect.Type

	// OutputTypes returns the declared output types, one per output slot.
	OutputTypes() []reflect.Type
}

// StatelessTransformer is a node that needs no training pass. Apply is
// invoked once per record with the input tuple (len == len(InputTypes()))
// and returns the output row (len == len(OutputTypes())).
//
// Apply must be a pure function of its inputs: stateless nodes may be
// evaluated lazily and more than once if several downstream consumers pull
// independently, so any node with side effects must not be stateless.
type StatelessTransformer interface {
	Transformer
	Apply(in []any) ([]any, error)
}

// PreparedTransformer is the trained, inference-time form of a preparable
// node. Its Apply has the same contract as StatelessTransformer.Apply and
// must additionally be read-only: a PreparedGraph is shared by concurrent
// Apply calls.
type PreparedTransformer interface {
	Transformer
	Apply(in []any) ([]any, error)
}

// PreparableTransformer is a node that must be trained before it can be
// applied. Prepare consumes the streamed training tuples and returns both
// the trained node and a reader over the outputs it produced for that same
// training data, in input row order. Fitting and emitting happen in one
// pass; the engine never re-runs inference over the training data.
//
// Prepare is invoked exactly once per preparation and normally sees the
// data as a single forward pass. A transformer that needs several passes
// (e.g. a multi-epoch trainer) may call Reset on rows; Reset fails with
// reader.ErrNotRestartable when the underlying placeholder bindings cannot
// restart, and the transformer should surface that error.
type PreparableTransformer interface {
	Transformer
	Prepare(ctx context.Context, rows reader.Reader[[]any]) (PreparedTransformer, reader.Reader[[]any], error)
}
