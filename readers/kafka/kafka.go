// Package kafka adapts Kafka topics to the module's record streams: Reader
// decodes a topic into a bounded stream with a serde.Deserializer, so a
// topic can feed the same pipelines as file-backed data, and Writer encodes
// pipeline outputs back onto a topic with a serde.Serializer. The inbound
// stream is not restartable; restartable consumers should drain it into a
// buffer first.
package kafka

import (
	"context"
	"fmt"
	"time"

	"github.com/go-logr/logr"
	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/creekml/creek/serde"
)

type options struct {
	brokers     []string
	group       string
	maxRecords  int64
	pollTimeout time.Duration
	log         logr.Logger
}

// Option configures a Reader.
type Option func(*options)

// SeedBrokers sets the brokers used to bootstrap the client.
func SeedBrokers(brokers ...string) Option {
	return func(o *options) { o.brokers = brokers }
}

// ConsumerGroup joins the given consumer group instead of consuming all
// partitions directly.
func ConsumerGroup(group string) Option {
	return func(o *options) { o.group = group }
}

// MaxRecords bounds the stream to n records. Without a bound the stream ends
// only when a poll times out with no data.
func MaxRecords(n int64) Option {
	return func(o *options) { o.maxRecords = n }
}

// PollTimeout sets how long Next waits for new records before treating the
// topic as exhausted. The default is 5s.
func PollTimeout(d time.Duration) Option {
	return func(o *options) { o.pollTimeout = d }
}

// WithLogger sets the logger. The default discards all output.
func WithLogger(log logr.Logger) Option {
	return func(o *options) { o.log = log }
}

// Reader streams decoded records from a Kafka topic.
type Reader[T any] struct {
	client *kgo.Client
	deser  serde.Deserializer[T]
	opts   options

	pending []*kgo.Record
	seen    int64
	cur     T
	err     error
	closed  bool
}

// NewReader connects to the cluster and prepares to consume topic from the
// beginning.
func NewReader[T any](topic string, deser serde.Deserializer[T], opts ...Option) (*Reader[T], error) {
	o := options{
		pollTimeout: 5 * time.Second,
		log:         logr.Discard(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	clientOpts := []kgo.Opt{
		kgo.SeedBrokers(o.brokers...),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	}
	if o.group != "" {
		clientOpts = append(clientOpts, kgo.ConsumerGroup(o.group))
	}

	client, err := kgo.NewClient(clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka client: %w", err)
	}

	o.log.V(1).Info("consuming topic", "topic", topic, "brokers", o.brokers)
	return &Reader[T]{client: client, deser: deser, opts: o}, nil
}

// Next advances to the next record. It returns false when the configured
// record bound is reached, a poll times out with no data, or an error occurs.
func (r *Reader[T]) Next() bool {
	if r.err != nil || r.closed {
		return false
	}
	if r.opts.maxRecords > 0 && r.seen >= r.opts.maxRecords {
		return false
	}

	for len(r.pending) == 0 {
		ctx, cancel := context.WithTimeout(context.Background(), r.opts.pollTimeout)
		fetches := r.client.PollFetches(ctx)
		cancel()

		if err := ctx.Err(); err != nil {
			// No data within the timeout; treat as end of stream.
			return false
		}
		if errs := fetches.Errors(); len(errs) > 0 {
			r.err = fmt.Errorf("fetch %s/%d: %w", errs[0].Topic, errs[0].Partition, errs[0].Err)
			return false
		}
		r.pending = fetches.Records()
	}

	rec := r.pending[0]
	r.pending = r.pending[1:]

	val, err := r.deser(rec.Value)
	if err != nil {
		r.err = fmt.Errorf("deserialize record at offset %d: %w", rec.Offset, err)
		return false
	}
	r.cur = val
	r.seen++
	return true
}

// Record returns the current decoded record.
func (r *Reader[T]) Record() T { return r.cur }

// Err returns the first error encountered while consuming.
func (r *Reader[T]) Err() error { return r.err }

// Close shuts down the client.
func (r *Reader[T]) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	r.client.Close()
	return nil
}
