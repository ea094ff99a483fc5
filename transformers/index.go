package transformers

import (
	"context"
	"fmt"
	"reflect"
	"sort"

	"github.com/creekml/creek"
	"github.com/creekml/creek/reader"
)

// UnknownPolicy decides what index an item gets when it was not assigned
// one during preparation (never seen, or seen fewer than MinFrequency
// times). This is explicit configuration, not an error path.
type UnknownPolicy int

const (
	// UnknownDistinct maps all unassigned items to one reserved index,
	// distinct from every known item's index.
	UnknownDistinct UnknownPolicy = iota

	// UnknownError fails the pass on any unassigned item.
	UnknownError
)

// Index is a preparable categorical indexer: it observes the items of the
// training lists once, assigns dense integer indices to every item
// occurring at least MinFrequency times, and thereafter maps item lists to
// index lists. Index assignment is deterministic: items are ordered by
// descending training frequency, ties broken by first occurrence.
//
// Preparation retains the training lists in memory until the counts are
// final, so the training outputs can be emitted without a second pass over
// the source.
type Index[T comparable] struct {
	// MinFrequency is the minimum number of training occurrences for an
	// item to receive its own index. Zero means 1.
	MinFrequency int

	// Unknown is the policy for unassigned items.
	Unknown UnknownPolicy
}

func (Index[T]) InputTypes() []reflect.Type { return []reflect.Type{typeOf[[]T]()} }

func (Index[T]) OutputTypes() []reflect.Type { return []reflect.Type{typeOf[[]int]()} }

func (ix Index[T]) Prepare(ctx context.Context, rows reader.Reader[[]any]) (creek.PreparedTransformer, reader.Reader[[]any], error) {
	minFreq := ix.MinFrequency
	if minFreq < 1 {
		minFreq = 1
	}

	counts := make(map[T]int)
	var firstSeen []T
	var retained [][]T
	for rows.Next() {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		items := rows.Record()[0].([]T)
		for _, item := range items {
			if counts[item] == 0 {
				firstSeen = append(firstSeen, item)
			}
			counts[item]++
		}
		retained = append(retained, items)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	// Deterministic assignment: descending frequency, first-seen order on
	// ties. firstSeen is already in occurrence order, so a stable sort by
	// count alone preserves the tie-break.
	eligible := make([]T, 0, len(firstSeen))
	for _, item := range firstSeen {
		if counts[item] >= minFreq {
			eligible = append(eligible, item)
		}
	}
	sort.SliceStable(eligible, func(a, b int) bool {
		return counts[eligible[a]] > counts[eligible[b]]
	})

	indices := make(map[T]int, len(eligible))
	for i, item := range eligible {
		indices[item] = i
	}
	prepared := &IndexPrepared[T]{
		Indices: indices,
		Unknown: len(eligible),
		Policy:  ix.Unknown,
	}

	outputs := reader.Map(reader.FromSlice(retained), func(items []T) ([]any, error) {
		out, err := prepared.mapItems(items)
		if err != nil {
			return nil, err
		}
		return []any{out}, nil
	})
	return prepared, outputs, nil
}

// IndexPrepared is the trained form of Index: a fixed item-to-index table.
type IndexPrepared[T comparable] struct {
	Indices map[T]int
	Unknown int
	Policy  UnknownPolicy
}

func (*IndexPrepared[T]) InputTypes() []reflect.Type { return []reflect.Type{typeOf[[]T]()} }

func (*IndexPrepared[T]) OutputTypes() []reflect.Type { return []reflect.Type{typeOf[[]int]()} }

// KnownItems returns the number of items holding their own index.
func (p *IndexPrepared[T]) KnownItems() int { return len(p.Indices) }

// UnknownIndex returns the index unassigned items map to under
// UnknownDistinct.
func (p *IndexPrepared[T]) UnknownIndex() int { return p.Unknown }

func (p *IndexPrepared[T]) Apply(in []any) ([]any, error) {
	out, err := p.mapItems(in[0].([]T))
	if err != nil {
		return nil, err
	}
	return []any{out}, nil
}

func (p *IndexPrepared[T]) mapItems(items []T) ([]int, error) {
	out := make([]int, len(items))
	for i, item := range items {
		idx, ok := p.Indices[item]
		if !ok {
			if p.Policy == UnknownError {
				return nil, fmt.Errorf("unknown item %v", item)
			}
			idx = p.Unknown
		}
		out[i] = idx
	}
	return out, nil
}
