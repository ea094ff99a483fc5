// Package eval computes evaluation metrics over paired truth/prediction
// readers. The executor guarantees output readers preserve input row
// order, so metrics pair rows positionally; unequal lengths are an error,
// never silently truncated.
package eval

import (
	"fmt"
	"sort"

	"github.com/creekml/creek/reader"
	"golang.org/x/exp/constraints"
)

// Accuracy returns the fraction of rows where prediction equals truth.
func Accuracy[T comparable](truth, pred reader.Reader[T]) (float64, error) {
	var total, correct int64
	err := walk(truth, pred, func(t, p T) error {
		total++
		if t == p {
			correct++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if total == 0 {
		return 0, fmt.Errorf("no rows to evaluate")
	}
	return float64(correct) / float64(total), nil
}

// MeanSquaredError returns the mean squared difference between paired
// rows.
func MeanSquaredError(truth, pred reader.Reader[float64]) (float64, error) {
	var total int64
	var sum float64
	err := walk(truth, pred, func(t, p float64) error {
		total++
		d := t - p
		sum += d * d
		return nil
	})
	if err != nil {
		return 0, err
	}
	if total == 0 {
		return 0, fmt.Errorf("no rows to evaluate")
	}
	return sum / float64(total), nil
}

// Confusion is a labeled confusion matrix.
type Confusion[T constraints.Ordered] struct {
	// Counts maps (truth, prediction) pairs to row counts.
	Counts map[[2]T]int64
	Total  int64
}

// Labels returns all labels appearing as truth or prediction, sorted.
func (c *Confusion[T]) Labels() []T {
	set := map[T]bool{}
	for pair := range c.Counts {
		set[pair[0]] = true
		set[pair[1]] = true
	}
	labels := make([]T, 0, len(set))
	for l := range set {
		labels = append(labels, l)
	}
	sort.Slice(labels, func(a, b int) bool { return labels[a] < labels[b] })
	return labels
}

// ConfusionMatrix tallies (truth, prediction) pair counts.
func ConfusionMatrix[T constraints.Ordered](truth, pred reader.Reader[T]) (*Confusion[T], error) {
	c := &Confusion[T]{Counts: map[[2]T]int64{}}
	err := walk(truth, pred, func(t, p T) error {
		c.Counts[[2]T{t, p}]++
		c.Total++
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// walk advances both readers in lockstep, failing on unequal lengths. The
// readers are not closed; that stays with the caller.
func walk[T any](truth, pred reader.Reader[T], f func(t, p T) error) error {
	for {
		tok := truth.Next()
		pok := pred.Next()
		if tok != pok {
			return reader.ErrLengthMismatch
		}
		if !tok {
			break
		}
		if err := f(truth.Record(), pred.Record()); err != nil {
			return err
		}
	}
	if err := truth.Err(); err != nil {
		return err
	}
	return pred.Err()
}
