package creek

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/alecthomas/assert/v2"

	"github.com/creekml/creek/reader"
)

// hideCaps strips Sized/Resettable from a reader, to simulate one-shot
// sources like brokers.
type hideCaps[T any] struct {
	src reader.Reader[T]
}

func (h *hideCaps[T]) Next() bool   { return h.src.Next() }
func (h *hideCaps[T]) Record() T    { return h.src.Record() }
func (h *hideCaps[T]) Err() error   { return h.src.Err() }
func (h *hideCaps[T]) Close() error { return h.src.Close() }

func collectOutput[T any](t *testing.T, res *Result, slot int) []T {
	t.Helper()
	out, err := Output[T](res, slot)
	assert.NoError(t, err)
	got, err := reader.Collect(out)
	assert.NoError(t, err)
	return got
}

func buildMeanGraph(t *testing.T) *Graph {
	t.Helper()
	b := NewBuilder()
	x := MustAddPlaceholder[float64](b, "x")
	centered := b.MustAddPreparable("center", meanT{}, x)
	return b.MustBuild(centered)
}

func TestPrepare(t *testing.T) {
	ctx := context.Background()

	t.Run("stateless only graph", func(t *testing.T) {
		b := NewBuilder()
		x := MustAddPlaceholder[int](b, "x")
		d := b.MustAddStateless("double", doubleT{}, x)
		g := b.MustBuild(d)

		_, res, err := g.Prepare(ctx, []Binding{Bind[int](reader.FromSlice([]int{1, 2, 3}))})
		assert.NoError(t, err)
		assert.Equal(t, []int{2, 4, 6}, collectOutput[int](t, res, 0))
		assert.NoError(t, res.Close())
	})

	t.Run("preparable node trains and emits training outputs", func(t *testing.T) {
		g := buildMeanGraph(t)

		_, res, err := g.Prepare(ctx, []Binding{Bind[float64](reader.FromSlice([]float64{1, 2, 3}))})
		assert.NoError(t, err)
		assert.Equal(t, []float64{-1, 0, 1}, collectOutput[float64](t, res, 0))
		assert.NoError(t, res.Close())
	})

	t.Run("prepared form is used on apply", func(t *testing.T) {
		g := buildMeanGraph(t)

		pg, res, err := g.Prepare(ctx, []Binding{Bind[float64](reader.FromSlice([]float64{1, 2, 3}))})
		assert.NoError(t, err)
		assert.NoError(t, res.Close())

		applied, err := pg.Apply(ctx, []Binding{Bind[float64](reader.FromSlice([]float64{10}))})
		assert.NoError(t, err)
		// Mean learned at prepare time (2) is subtracted, not recomputed.
		assert.Equal(t, []float64{8}, collectOutput[float64](t, applied, 0))
		assert.NoError(t, applied.Close())
	})

	t.Run("binding count mismatch", func(t *testing.T) {
		g := buildMeanGraph(t)
		_, _, err := g.Prepare(ctx, nil)
		assert.IsError(t, err, ErrArityMismatch)
	})

	t.Run("binding type mismatch", func(t *testing.T) {
		g := buildMeanGraph(t)
		_, _, err := g.Prepare(ctx, []Binding{Bind[string](reader.FromSlice([]string{"no"}))})
		assert.IsError(t, err, ErrTypeMismatch)
	})

	t.Run("training failure aborts with a PreparationError", func(t *testing.T) {
		b := NewBuilder()
		x := MustAddPlaceholder[float64](b, "x")
		e := b.MustAddPreparable("bad", brokenPrepare{}, x)
		g := b.MustBuild(e)

		_, _, err := g.Prepare(ctx, []Binding{Bind[float64](reader.FromSlice([]float64{1}))})
		var perr *PreparationError
		assert.True(t, errors.As(err, &perr))
		assert.Equal(t, NodeID("bad"), perr.Node)
		assert.Contains(t, err.Error(), "training diverged")
	})

	t.Run("cancelled context aborts", func(t *testing.T) {
		g := buildMeanGraph(t)
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, _, err := g.Prepare(cctx, []Binding{Bind[float64](reader.FromSlice([]float64{1}))})
		assert.IsError(t, err, context.Canceled)
	})

	t.Run("second pass needs a restartable binding", func(t *testing.T) {
		// Two preparable nodes over the same placeholder force two passes.
		b := NewBuilder()
		x := MustAddPlaceholder[float64](b, "x")
		c1 := b.MustAddPreparable("c1", meanT{}, x)
		c2 := b.MustAddPreparable("c2", meanT{}, x)
		s := b.MustAddStateless("pair", floatPairT{}, c1, c2)
		g := b.MustBuild(s)

		oneShot := &hideCaps[float64]{src: reader.FromSlice([]float64{1, 2, 3})}
		_, _, err := g.Prepare(ctx, []Binding{Bind[float64](oneShot)})
		assert.IsError(t, err, reader.ErrNotRestartable)

		// A restartable binding succeeds.
		_, res, err := g.Prepare(ctx, []Binding{Bind[float64](reader.FromSlice([]float64{1, 2, 3}))})
		assert.NoError(t, err)
		assert.NoError(t, res.Close())
	})

	t.Run("preparation is deterministic", func(t *testing.T) {
		run := func() []float64 {
			g := buildMeanGraph(t)
			_, res, err := g.Prepare(ctx, []Binding{Bind[float64](reader.FromSlice([]float64{4, 8}))})
			assert.NoError(t, err)
			defer res.Close()
			return collectOutput[float64](t, res, 0)
		}
		assert.Equal(t, run(), run())
	})

	t.Run("per record failure surfaces through the slot reader", func(t *testing.T) {
		b := NewBuilder()
		x := MustAddPlaceholder[int](b, "x")
		f := b.MustAddStateless("fragile", failingT{Trigger: 2}, x)
		g := b.MustBuild(f)

		_, res, err := g.Prepare(ctx, []Binding{Bind[int](reader.FromSlice([]int{1, 2, 3}))})
		assert.NoError(t, err)
		out, err := Output[int](res, 0)
		assert.NoError(t, err)

		assert.True(t, out.Next())
		assert.False(t, out.Next())
		var aerr *ApplyError
		assert.True(t, errors.As(out.Err(), &aerr))
		assert.Equal(t, NodeID("fragile"), aerr.Node)
		assert.NoError(t, res.Close())
	})

	t.Run("declared width is enforced per record", func(t *testing.T) {
		b := NewBuilder()
		x := MustAddPlaceholder[int](b, "x")
		w := b.MustAddStateless("wide", wideT{}, x)
		g := b.MustBuild(w)

		_, res, err := g.Prepare(ctx, []Binding{Bind[int](reader.FromSlice([]int{1}))})
		assert.NoError(t, err)
		out, err := Output[int](res, 0)
		assert.NoError(t, err)
		assert.False(t, out.Next())
		assert.IsError(t, out.Err(), ErrArityMismatch)
		assert.NoError(t, res.Close())
	})

	t.Run("uneven binding lengths fail", func(t *testing.T) {
		b := NewBuilder()
		x := MustAddPlaceholder[int](b, "x")
		y := MustAddPlaceholder[int](b, "y")
		s := b.MustAddStateless("sum", sumT{}, x, y)
		g := b.MustBuild(s)

		_, res, err := g.Prepare(ctx, []Binding{
			Bind[int](reader.FromSlice([]int{1, 2, 3})),
			Bind[int](reader.FromSlice([]int{1})),
		})
		assert.NoError(t, err)
		out, err := Output[int](res, 0)
		assert.NoError(t, err)
		assert.True(t, out.Next())
		assert.False(t, out.Next())
		assert.IsError(t, out.Err(), reader.ErrLengthMismatch)
		assert.NoError(t, res.Close())
	})

	t.Run("binding failure outranks length mismatch", func(t *testing.T) {
		b := NewBuilder()
		x := MustAddPlaceholder[int](b, "x")
		y := MustAddPlaceholder[int](b, "y")
		s := b.MustAddStateless("sum", sumT{}, x, y)
		g := b.MustBuild(s)

		ioErr := errors.New("disk failure")
		broken := reader.Map(reader.FromSlice([]int{1, 2, 3}), func(v int) (int, error) {
			if v > 1 {
				return 0, ioErr
			}
			return v, nil
		})
		_, res, err := g.Prepare(ctx, []Binding{
			Bind[int](broken),
			Bind[int](reader.FromSlice([]int{1, 2, 3})),
		})
		assert.NoError(t, err)
		out, err := Output[int](res, 0)
		assert.NoError(t, err)
		assert.True(t, out.Next())
		assert.False(t, out.Next())
		assert.True(t, errors.Is(out.Err(), ioErr))
		assert.False(t, errors.Is(out.Err(), reader.ErrLengthMismatch))
		assert.NoError(t, res.Close())
	})
}

// floatPairT consumes two float64 inputs and emits their sum; exists so a
// graph can reference two prepared columns at once.
type floatPairT struct{}

func (floatPairT) InputTypes() []reflect.Type {
	return []reflect.Type{testType[float64](), testType[float64]()}
}
func (floatPairT) OutputTypes() []reflect.Type { return []reflect.Type{testType[float64]()} }
func (floatPairT) Apply(in []any) ([]any, error) {
	return []any{in[0].(float64) + in[1].(float64)}, nil
}
