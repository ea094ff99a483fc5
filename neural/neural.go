// Package neural is the boundary to trainable neural models. The pipeline
// core only ever talks to it through the PreparableTransformer contract:
// Classifier adapts an Engine (the actual training implementation, usually
// backed by an external tensor library) into a graph node. The package
// ships a small self-contained reference engine, SGD, sufficient for
// linear models and for exercising the training path end to end.
package neural

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"github.com/creekml/creek"
	"github.com/creekml/creek/reader"
)

// Example is one labeled training instance.
type Example struct {
	Features []float64
	Label    int
}

// Config declares the architecture and training schedule. The zero value
// is not usable: Classes and Features are mandatory.
type Config struct {
	// Classes is the number of output classes.
	Classes int

	// Features is the input vector dimension.
	Features int

	// Epochs is the number of passes over the training data. Values above
	// one require the training input to be restartable. Zero means 1.
	Epochs int

	// BatchSize is the minibatch size. Zero means 32.
	BatchSize int

	// LearningRate is the SGD step size. Zero means 0.1.
	LearningRate float64

	// Seed fixes all pseudo-randomness of the engine. The same seed over
	// the same data reproduces identical parameters.
	Seed int64
}

func (c Config) withDefaults() (Config, error) {
	if c.Classes < 2 {
		return c, fmt.Errorf("config needs at least 2 classes, got %d", c.Classes)
	}
	if c.Features < 1 {
		return c, fmt.Errorf("config needs a positive feature dimension, got %d", c.Features)
	}
	if c.Epochs < 1 {
		c.Epochs = 1
	}
	if c.BatchSize < 1 {
		c.BatchSize = 32
	}
	if c.LearningRate <= 0 {
		c.LearningRate = 0.1
	}
	return c, nil
}

// Model is a trained network: a read-only scorer safe for concurrent use.
type Model interface {
	// Predict returns one score per class for the given feature vector.
	Predict(features []float64) ([]float64, error)
}

// Engine trains a Model from streamed examples. Implementations must be
// deterministic for a fixed Config.Seed and must consume the stream in its
// given order; epochs beyond the first rewind rows via reader.Resettable.
type Engine interface {
	Train(ctx context.Context, rows reader.Reader[Example], cfg Config) (Model, error)
}

// Classifier is the preparable graph node wrapping an Engine. Its inputs
// are (features []float64, label int); its output is the per-class score
// vector. The label input is consumed during preparation only — at apply
// time it is ignored, so callers bind any placeholder column of the right
// length (zeros are customary).
type Classifier struct {
	Engine Engine
	Config Config
}

func (Classifier) InputTypes() []reflect.Type {
	return []reflect.Type{reflect.TypeOf([]float64(nil)), reflect.TypeOf(int(0))}
}

func (Classifier) OutputTypes() []reflect.Type {
	return []reflect.Type{reflect.TypeOf([]float64(nil))}
}

func (c Classifier) Prepare(ctx context.Context, rows reader.Reader[[]any]) (creek.PreparedTransformer, reader.Reader[[]any], error) {
	if c.Engine == nil {
		return nil, nil, errors.New("classifier has no engine")
	}

	examples := reader.Map(rows, func(row []any) (Example, error) {
		return Example{Features: row[0].([]float64), Label: row[1].(int)}, nil
	})
	model, err := c.Engine.Train(ctx, examples, c.Config)
	if err != nil {
		return nil, nil, err
	}
	prepared := &ClassifierPrepared{Model: model}

	// Emit the training-time predictions with one more pass over the same
	// rows. The engine has consumed them, so the input must restart.
	if err := reader.ResetIfPossible(rows); err != nil {
		return nil, nil, fmt.Errorf("emitting training predictions: %w", err)
	}
	outputs := reader.Map(rows, func(row []any) ([]any, error) {
		scores, err := model.Predict(row[0].([]float64))
		if err != nil {
			return nil, err
		}
		return []any{scores}, nil
	})
	return prepared, outputs, nil
}

// ClassifierPrepared is the trained form of Classifier. Serializing it
// requires the concrete Model type to be gob-registered; SGD's model is.
type ClassifierPrepared struct {
	Model Model
}

func (*ClassifierPrepared) InputTypes() []reflect.Type {
	return []reflect.Type{reflect.TypeOf([]float64(nil)), reflect.TypeOf(int(0))}
}

func (*ClassifierPrepared) OutputTypes() []reflect.Type {
	return []reflect.Type{reflect.TypeOf([]float64(nil))}
}

func (p *ClassifierPrepared) Apply(in []any) ([]any, error) {
	scores, err := p.Model.Predict(in[0].([]float64))
	if err != nil {
		return nil, err
	}
	return []any{scores}, nil
}
