package kafka

import (
	"context"
	"fmt"

	"github.com/go-logr/logr"
	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/creekml/creek/reader"
	"github.com/creekml/creek/serde"
)

// Writer publishes encoded records to a Kafka topic, the outbound
// counterpart of Reader. Values are encoded with a serde.Serializer before
// produce, so pipeline outputs can be shipped to a topic the same way
// topic data feeds pipelines in.
type Writer[T any] struct {
	client *kgo.Client
	topic  string
	ser    serde.Serializer[T]
	log    logr.Logger
	closed bool
}

// NewWriter connects to the cluster and prepares to publish to topic.
func NewWriter[T any](topic string, ser serde.Serializer[T], opts ...Option) (*Writer[T], error) {
	o := options{log: logr.Discard()}
	for _, opt := range opts {
		opt(&o)
	}

	client, err := kgo.NewClient(kgo.SeedBrokers(o.brokers...))
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka client: %w", err)
	}

	o.log.V(1).Info("publishing to topic", "topic", topic, "brokers", o.brokers)
	return &Writer[T]{client: client, topic: topic, ser: ser, log: o.log}, nil
}

func (w *Writer[T]) record(v T) (*kgo.Record, error) {
	val, err := w.ser(v)
	if err != nil {
		return nil, fmt.Errorf("serialize record: %w", err)
	}
	return &kgo.Record{Topic: w.topic, Value: val}, nil
}

// Write encodes and publishes a single value, waiting for the broker
// acknowledgement.
func (w *Writer[T]) Write(ctx context.Context, v T) error {
	rec, err := w.record(v)
	if err != nil {
		return err
	}
	return w.client.ProduceSync(ctx, rec).FirstErr()
}

// Drain publishes every record of src in order and reports how many were
// acknowledged. The source stays owned by the caller.
func (w *Writer[T]) Drain(ctx context.Context, src reader.Reader[T]) (int64, error) {
	var n int64
	for src.Next() {
		if err := w.Write(ctx, src.Record()); err != nil {
			return n, err
		}
		n++
	}
	if err := src.Err(); err != nil {
		return n, err
	}
	return n, nil
}

// Close flushes outstanding produces and shuts down the client.
func (w *Writer[T]) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	err := w.client.Flush(context.Background())
	w.client.Close()
	return err
}
