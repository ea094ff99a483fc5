package transformers

import (
	"context"
	"testing"

	"github.com/alecthomas/assert/v2"

	"github.com/creekml/creek"
	"github.com/creekml/creek/reader"
)

func prepareIndex[T comparable](t *testing.T, ix Index[T], lists [][]T) (*IndexPrepared[T], [][]int) {
	t.Helper()
	rows := reader.Map(reader.FromSlice(lists), func(items []T) ([]any, error) {
		return []any{items}, nil
	})
	pt, out, err := ix.Prepare(context.Background(), rows)
	assert.NoError(t, err)

	var trained [][]int
	for out.Next() {
		trained = append(trained, out.Record()[0].([]int))
	}
	assert.NoError(t, out.Err())
	return pt.(*IndexPrepared[T]), trained
}

func TestIndex(t *testing.T) {
	t.Run("assigns by descending frequency", func(t *testing.T) {
		p, _ := prepareIndex(t, Index[string]{}, [][]string{
			{"rare"},
			{"common", "common", "mid"},
			{"common", "mid"},
		})
		assert.Equal(t, 3, p.KnownItems())
		assert.Equal(t, 0, p.Indices["common"])
		assert.Equal(t, 1, p.Indices["mid"])
		assert.Equal(t, 2, p.Indices["rare"])
	})

	t.Run("frequency ties break by first occurrence", func(t *testing.T) {
		p, _ := prepareIndex(t, Index[string]{}, [][]string{
			{"b", "a"},
			{"a", "b"},
		})
		assert.Equal(t, 0, p.Indices["b"])
		assert.Equal(t, 1, p.Indices["a"])
	})

	t.Run("min frequency filters items", func(t *testing.T) {
		p, _ := prepareIndex(t, Index[string]{MinFrequency: 2}, [][]string{
			{"a", "b"}, {"a", "b"}, {"c", "d"},
		})
		assert.Equal(t, 2, p.KnownItems())
		assert.Equal(t, 2, p.UnknownIndex())

		// Filtered items fall back to the unknown index.
		out, err := p.Apply([]any{[]string{"a", "c"}})
		assert.NoError(t, err)
		assert.Equal(t, []int{0, 2}, out[0].([]int))
	})

	t.Run("training outputs use the final assignment", func(t *testing.T) {
		_, trained := prepareIndex(t, Index[string]{MinFrequency: 2}, [][]string{
			{"a", "b"}, {"a", "b"}, {"c", "d"},
		})
		// Early rows reflect counts that were only final after the whole
		// pass: c and d map to the unknown index.
		assert.Equal(t, [][]int{{0, 1}, {0, 1}, {2, 2}}, trained)
	})

	t.Run("unknown error policy fails the pass", func(t *testing.T) {
		p, _ := prepareIndex(t, Index[string]{Unknown: UnknownError}, [][]string{{"a"}})
		_, err := p.Apply([]any{[]string{"b"}})
		assert.Error(t, err)
	})

	t.Run("deterministic across preparations", func(t *testing.T) {
		lists := [][]string{{"x", "y", "z"}, {"y", "z"}, {"z"}}
		a, _ := prepareIndex(t, Index[string]{}, lists)
		b, _ := prepareIndex(t, Index[string]{}, lists)
		assert.Equal(t, a.Indices, b.Indices)
	})

	t.Run("works for integer items", func(t *testing.T) {
		p, _ := prepareIndex(t, Index[int]{}, [][]int{{7, 7, 9}})
		assert.Equal(t, 0, p.Indices[7])
		assert.Equal(t, 1, p.Indices[9])
	})
}

func TestIndexPipeline(t *testing.T) {
	// Tokenizer feeding a min-frequency indexer, trained and applied through
	// the full graph machinery.
	b := creek.NewBuilder()
	text := creek.MustAddPlaceholder[string](b, "text")
	tokens := b.MustAddStateless("tokenize", Tokens{}, text)
	indexed := b.MustAddPreparable("index", Index[string]{MinFrequency: 2}, tokens)
	g := b.MustBuild(indexed)

	ctx := context.Background()
	pg, res, err := g.Prepare(ctx, []creek.Binding{
		creek.Bind[string](reader.FromSlice([]string{"a b", "a b", "c d"})),
	})
	assert.NoError(t, err)

	trained, err := creek.Output[[]int](res, 0)
	assert.NoError(t, err)
	got, err := reader.Collect(trained)
	assert.NoError(t, err)
	assert.Equal(t, [][]int{{0, 1}, {0, 1}, {2, 2}}, got)
	assert.NoError(t, res.Close())

	applied, err := pg.Apply(ctx, []creek.Binding{
		creek.Bind[string](reader.FromSlice([]string{"a c"})),
	})
	assert.NoError(t, err)
	out, err := creek.Output[[]int](applied, 0)
	assert.NoError(t, err)
	rows, err := reader.Collect(out)
	assert.NoError(t, err)
	assert.Equal(t, [][]int{{0, 2}}, rows)
	assert.NoError(t, applied.Close())
}

func TestFuncAdapters(t *testing.T) {
	t.Run("Func1 adapts a unary function", func(t *testing.T) {
		tr := Func1(func(s string) (int, error) { return len(s), nil })
		out, err := tr.Apply([]any{"four"})
		assert.NoError(t, err)
		assert.Equal(t, 4, out[0].(int))
	})

	t.Run("Func2 adapts a binary function", func(t *testing.T) {
		tr := Func2(func(a, b int) (int, error) { return a * b, nil })
		out, err := tr.Apply([]any{6, 7})
		assert.NoError(t, err)
		assert.Equal(t, 42, out[0].(int))
	})

	t.Run("adapters participate in graphs", func(t *testing.T) {
		b := creek.NewBuilder()
		x := creek.MustAddPlaceholder[string](b, "x")
		n := b.MustAddStateless("len", Func1(func(s string) (int, error) { return len(s), nil }), x)
		g := b.MustBuild(n)

		_, res, err := g.Prepare(context.Background(), []creek.Binding{
			creek.Bind[string](reader.FromSlice([]string{"ab", "abc"})),
		})
		assert.NoError(t, err)
		out, err := creek.Output[int](res, 0)
		assert.NoError(t, err)
		got, err := reader.Collect(out)
		assert.NoError(t, err)
		assert.Equal(t, []int{2, 3}, got)
		assert.NoError(t, res.Close())
	})
}
