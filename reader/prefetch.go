package reader

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

// Prefetch decouples production from consumption: a background goroutine
// pulls up to depth records ahead of the consumer. Useful in front of slow
// sources (files, brokers) feeding a trainer.
//
// Prefetch takes ownership of src. Closing the returned reader cancels the
// producer promptly, waits for it to stop, and closes src; no background
// work is left running.
func Prefetch[T any](src Reader[T], depth int) Reader[T] {
	if depth < 1 {
		depth = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	g, ctx := errgroup.WithContext(ctx)
	p := &prefetchReader[T]{
		src:    src,
		ch:     make(chan T, depth),
		cancel: cancel,
		g:      g,
	}
	g.Go(func() error {
		defer close(p.ch)
		for src.Next() {
			select {
			case p.ch <- src.Record():
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if err := src.Err(); err != nil {
			p.setErr(err)
		}
		return nil
	})
	return p
}

type prefetchReader[T any] struct {
	src    Reader[T]
	ch     chan T
	cancel context.CancelFunc
	g      *errgroup.Group

	mu     sync.Mutex
	err    error
	cur    T
	closed bool
}

func (p *prefetchReader[T]) setErr(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err == nil {
		p.err = err
	}
}

func (p *prefetchReader[T]) Next() bool {
	rec, ok := <-p.ch
	if !ok {
		return false
	}
	p.cur = rec
	return true
}

func (p *prefetchReader[T]) Record() T { return p.cur }

func (p *prefetchReader[T]) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

func (p *prefetchReader[T]) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	p.cancel()
	// Unblock the producer if it is waiting on a full channel.
	for range p.ch {
	}
	err := p.g.Wait()
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	return multierr.Append(err, p.src.Close())
}
