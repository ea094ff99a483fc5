package neural

import (
	"context"
	"encoding/gob"
	"fmt"
	"math"
	"math/rand"

	"github.com/creekml/creek/reader"
	"golang.org/x/sync/errgroup"
)

// SGD is the reference engine: multinomial logistic regression trained
// with minibatch stochastic gradient descent. Minibatch assembly runs on a
// producer goroutine overlapped with the parameter updates; updates are
// applied strictly in stream order, so results are reproducible for a
// fixed seed.
type SGD struct{}

type batch struct {
	examples []Example
}

func (SGD) Train(ctx context.Context, rows reader.Reader[Example], cfg Config) (Model, error) {
	cfg, err := cfg.withDefaults()
	if err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	model := &SGDModel{
		Weights: make([][]float64, cfg.Classes),
		Bias:    make([]float64, cfg.Classes),
	}
	scale := 1.0 / math.Sqrt(float64(cfg.Features))
	for c := range model.Weights {
		w := make([]float64, cfg.Features)
		for i := range w {
			w[i] = rng.NormFloat64() * scale
		}
		model.Weights[c] = w
	}

	for epoch := 0; epoch < cfg.Epochs; epoch++ {
		if epoch > 0 {
			if err := reader.ResetIfPossible(rows); err != nil {
				return nil, fmt.Errorf("epoch %d: %w", epoch+1, err)
			}
		}
		if err := trainEpoch(ctx, rows, model, cfg); err != nil {
			return nil, err
		}
	}
	return model, nil
}

// trainEpoch streams one pass: a producer goroutine assembles minibatches
// ahead of the update loop. The bounded channel keeps at most two batches
// in flight; closing happens through context cancellation on error.
func trainEpoch(ctx context.Context, rows reader.Reader[Example], model *SGDModel, cfg Config) error {
	g, gctx := errgroup.WithContext(ctx)
	batches := make(chan batch, 2)

	g.Go(func() error {
		defer close(batches)
		cur := batch{}
		for rows.Next() {
			ex := rows.Record()
			if len(ex.Features) != cfg.Features {
				return fmt.Errorf("example has %d features, config declares %d", len(ex.Features), cfg.Features)
			}
			if ex.Label < 0 || ex.Label >= cfg.Classes {
				return fmt.Errorf("label %d out of range [0, %d)", ex.Label, cfg.Classes)
			}
			cur.examples = append(cur.examples, ex)
			if len(cur.examples) == cfg.BatchSize {
				select {
				case batches <- cur:
					cur = batch{}
				case <-gctx.Done():
					return gctx.Err()
				}
			}
		}
		if err := rows.Err(); err != nil {
			return err
		}
		if len(cur.examples) > 0 {
			select {
			case batches <- cur:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	g.Go(func() error {
		for {
			select {
			case b, ok := <-batches:
				if !ok {
					return nil
				}
				model.step(b.examples, cfg.LearningRate)
			case <-gctx.Done():
				return gctx.Err()
			}
		}
	})

	return g.Wait()
}

// SGDModel is the learned parameter set of the reference engine: one
// weight vector and bias per class.
type SGDModel struct {
	Weights [][]float64
	Bias    []float64
}

func (m *SGDModel) Predict(features []float64) ([]float64, error) {
	if len(m.Weights) == 0 {
		return nil, fmt.Errorf("model has no parameters")
	}
	if len(features) != len(m.Weights[0]) {
		return nil, fmt.Errorf("feature vector has %d dimensions, model expects %d",
			len(features), len(m.Weights[0]))
	}
	return m.scores(features), nil
}

func (m *SGDModel) scores(features []float64) []float64 {
	logits := make([]float64, len(m.Weights))
	for c, w := range m.Weights {
		sum := m.Bias[c]
		for i, x := range features {
			sum += w[i] * x
		}
		logits[c] = sum
	}
	return softmax(logits)
}

// step applies one averaged cross-entropy gradient update.
func (m *SGDModel) step(examples []Example, lr float64) {
	scale := lr / float64(len(examples))
	for _, ex := range examples {
		probs := m.scores(ex.Features)
		for c := range m.Weights {
			grad := probs[c]
			if c == ex.Label {
				grad -= 1
			}
			g := grad * scale
			w := m.Weights[c]
			for i, x := range ex.Features {
				w[i] -= g * x
			}
			m.Bias[c] -= g
		}
	}
}

func softmax(logits []float64) []float64 {
	max := logits[0]
	for _, l := range logits[1:] {
		if l > max {
			max = l
		}
	}
	var sum float64
	out := make([]float64, len(logits))
	for i, l := range logits {
		out[i] = math.Exp(l - max)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

func init() {
	gob.Register(&ClassifierPrepared{})
	gob.Register(&SGDModel{})
}
