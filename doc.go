// Package creek is a machine-learning pipeline authoring framework: users
// compose directed acyclic graphs of typed transformer nodes, and creek
// handles preparation (training), streaming batch execution, and
// serialization of the trained result.
//
// # Architecture
//
// Pipelines are built in two phases. The build phase wires structure only:
// a Builder registers placeholders (the graph's inputs) and transformer
// nodes, connected by typed Edges. Build validates the graph (cycles,
// dangling placeholders, type compatibility) and computes a deterministic
// topological order, cached on the resulting Graph. Data is bound later,
// at call time, never at construction time.
//
//	b := creek.NewBuilder()
//	text := creek.MustAddPlaceholder[string](b, "text")
//	toks := b.MustAddStateless("tokens", transformers.Tokens{}, text)
//	idx := b.MustAddPreparable("index", transformers.Index[string]{MinFrequency: 2}, toks)
//	g := b.MustBuild(idx)
//
// The execution phase is the two-state machine Unprepared -> Prepared.
// Graph.Prepare streams caller-supplied readers through the graph once,
// training every preparable node in dependency order, and returns both the
// immutable PreparedGraph and a Result holding the training-time outputs.
// PreparedGraph.Apply runs the trained graph over new data, fully lazily,
// and may be called repeatedly and concurrently.
//
//	pg, trainRes, err := g.Prepare(ctx, []creek.Binding{creek.Bind(trainReader)})
//	res, err := pg.Apply(ctx, []creek.Binding{creek.Bind(testReader)})
//
// # Transformers
//
// A node is characterized by capabilities rather than a class hierarchy:
// StatelessTransformer (pure per-record function), PreparableTransformer
// (requires a training pass; Prepare both fits the node and emits its
// training-time outputs in the same pass), and PreparedTransformer (the
// trained, inference-time form). Multi-output nodes simply declare more
// than one output type; edges address individual output slots.
//
// # Errors
//
// Graph construction problems surface as sentinel errors (ErrCycleDetected,
// ErrTypeMismatch, ...) checkable with errors.Is. A failed training step
// aborts the whole preparation with a PreparationError; no partial
// PreparedGraph is ever returned.
package creek
