package creek

import (
	"context"
	"sync"
	"testing"

	"github.com/alecthomas/assert/v2"

	"github.com/creekml/creek/reader"
)

func prepareMeanGraph(t *testing.T) *PreparedGraph {
	t.Helper()
	g := buildMeanGraph(t)
	pg, res, err := g.Prepare(context.Background(), []Binding{
		Bind[float64](reader.FromSlice([]float64{1, 2, 3})),
	})
	assert.NoError(t, err)
	assert.NoError(t, res.Close())
	return pg
}

func TestApply(t *testing.T) {
	ctx := context.Background()

	t.Run("applies the trained form", func(t *testing.T) {
		pg := prepareMeanGraph(t)
		res, err := pg.Apply(ctx, []Binding{Bind[float64](reader.FromSlice([]float64{2, 12}))})
		assert.NoError(t, err)
		assert.Equal(t, []float64{0, 10}, collectOutput[float64](t, res, 0))
		assert.NoError(t, res.Close())
	})

	t.Run("is lazy until the result is read", func(t *testing.T) {
		b := NewBuilder()
		x := MustAddPlaceholder[int](b, "x")
		f := b.MustAddStateless("fragile", failingT{Trigger: 1}, x)
		g := b.MustBuild(f)
		pg, res, err := g.Prepare(ctx, []Binding{Bind[int](reader.FromSlice([]int{2}))})
		assert.NoError(t, err)
		assert.NoError(t, res.Close())

		// Apply itself must not touch the data; the failure only shows up
		// when the slot is pulled.
		applied, err := pg.Apply(ctx, []Binding{Bind[int](reader.FromSlice([]int{1}))})
		assert.NoError(t, err)
		out, err := Output[int](applied, 0)
		assert.NoError(t, err)
		assert.False(t, out.Next())
		assert.Error(t, out.Err())
		assert.NoError(t, applied.Close())
	})

	t.Run("binding validation", func(t *testing.T) {
		pg := prepareMeanGraph(t)
		_, err := pg.Apply(ctx, nil)
		assert.IsError(t, err, ErrArityMismatch)
		_, err = pg.Apply(ctx, []Binding{Bind[int](reader.FromSlice([]int{1}))})
		assert.IsError(t, err, ErrTypeMismatch)
	})

	t.Run("reusable across calls", func(t *testing.T) {
		pg := prepareMeanGraph(t)
		for i := 0; i < 3; i++ {
			res, err := pg.Apply(ctx, []Binding{Bind[float64](reader.FromSlice([]float64{2}))})
			assert.NoError(t, err)
			assert.Equal(t, []float64{0}, collectOutput[float64](t, res, 0))
			assert.NoError(t, res.Close())
		}
	})

	t.Run("safe for concurrent calls", func(t *testing.T) {
		pg := prepareMeanGraph(t)
		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				res, err := pg.Apply(ctx, []Binding{Bind[float64](reader.FromSlice([]float64{5}))})
				assert.NoError(t, err)
				assert.Equal(t, []float64{3}, collectOutput[float64](t, res, 0))
				assert.NoError(t, res.Close())
			}()
		}
		wg.Wait()
	})

	t.Run("multiple outputs consumed independently", func(t *testing.T) {
		b := NewBuilder()
		x := MustAddPlaceholder[int](b, "x")
		split := b.MustAddStateless("split", splitT{}, x)
		g := b.MustBuild(split, Slot(split, 1))
		pg, res, err := g.Prepare(ctx, []Binding{Bind[int](reader.FromSlice([]int{1}))})
		assert.NoError(t, err)
		assert.NoError(t, res.Close())

		applied, err := pg.Apply(ctx, []Binding{Bind[int](reader.FromSlice([]int{-1, 2}))})
		assert.NoError(t, err)
		assert.Equal(t, []int{-1, 2}, collectOutput[int](t, applied, 0))
		assert.Equal(t, []bool{false, true}, collectOutput[bool](t, applied, 1))
		assert.NoError(t, applied.Close())
	})
}

func TestResult(t *testing.T) {
	t.Run("arity mismatch on construction", func(t *testing.T) {
		_, err := NewResult([]reader.Reader[any]{}, nil)
		assert.IsError(t, err, ErrArityMismatch)
	})

	t.Run("typed output view checks slot and type", func(t *testing.T) {
		pg := prepareMeanGraph(t)
		res, err := pg.Apply(context.Background(), []Binding{Bind[float64](reader.FromSlice([]float64{2}))})
		assert.NoError(t, err)
		defer res.Close()

		_, err = Output[float64](res, 5)
		assert.IsError(t, err, ErrArityMismatch)
		_, err = Output[string](res, 0)
		assert.IsError(t, err, ErrTypeMismatch)
		out, err := Output[float64](res, 0)
		assert.NoError(t, err)
		assert.NotZero(t, out)
	})

	t.Run("slot bounds are checked", func(t *testing.T) {
		pg := prepareMeanGraph(t)
		res, err := pg.Apply(context.Background(), []Binding{Bind[float64](reader.FromSlice([]float64{2}))})
		assert.NoError(t, err)
		defer res.Close()

		_, err = res.Slot(-1)
		assert.IsError(t, err, ErrArityMismatch)
		_, err = res.Slot(1)
		assert.IsError(t, err, ErrArityMismatch)
		slot, err := res.Slot(0)
		assert.NoError(t, err)
		assert.NotZero(t, slot)
	})

	t.Run("close is idempotent", func(t *testing.T) {
		pg := prepareMeanGraph(t)
		res, err := pg.Apply(context.Background(), []Binding{Bind[float64](reader.FromSlice([]float64{2}))})
		assert.NoError(t, err)
		assert.NoError(t, res.Close())
		assert.NoError(t, res.Close())
	})

	t.Run("partially consumed result can still close", func(t *testing.T) {
		pg := prepareMeanGraph(t)
		res, err := pg.Apply(context.Background(), []Binding{Bind[float64](reader.FromSlice([]float64{1, 2, 3}))})
		assert.NoError(t, err)
		out, err := Output[float64](res, 0)
		assert.NoError(t, err)
		assert.True(t, out.Next())
		assert.NoError(t, res.Close())
	})
}
