package reader

import "sync"

// Fanout splits one pass over src into n branches that can be consumed
// independently. Each record of src is delivered to every branch exactly
// once; a branch that lags behind the fastest one buffers the records it
// has not pulled yet, so memory is bounded by the consumption skew between
// branches, not by the dataset.
//
// Fanout takes ownership of src: it is closed exactly once, when the last
// branch is closed. Closing a branch drops its pending records. Branch
// Close is idempotent.
func Fanout[T any](src Reader[T], n int) []Reader[T] {
	st := &fanoutState[T]{src: src, open: n}
	st.pending = make([][]T, n)
	st.closed = make([]bool, n)
	out := make([]Reader[T], n)
	for i := range out {
		out[i] = &fanoutBranch[T]{st: st, idx: i}
	}
	return out
}

type fanoutState[T any] struct {
	mu      sync.Mutex
	src     Reader[T]
	pending [][]T
	closed  []bool
	open    int
	done    bool
	err     error
	srcErr  error
}

// advance pulls one record from src and distributes it. Caller holds mu.
func (st *fanoutState[T]) advance() bool {
	if st.done {
		return false
	}
	if !st.src.Next() {
		st.done = true
		st.srcErr = st.src.Err()
		return false
	}
	rec := st.src.Record()
	for i := range st.pending {
		if !st.closed[i] {
			st.pending[i] = append(st.pending[i], rec)
		}
	}
	return true
}

type fanoutBranch[T any] struct {
	st  *fanoutState[T]
	idx int
	cur T
}

func (b *fanoutBranch[T]) Next() bool {
	st := b.st
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.closed[b.idx] {
		return false
	}
	if len(st.pending[b.idx]) == 0 && !st.advance() {
		return false
	}
	b.cur = st.pending[b.idx][0]
	st.pending[b.idx] = st.pending[b.idx][1:]
	return true
}

func (b *fanoutBranch[T]) Record() T { return b.cur }

func (b *fanoutBranch[T]) Err() error {
	st := b.st
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.srcErr
}

func (b *fanoutBranch[T]) Close() error {
	st := b.st
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.closed[b.idx] {
		return nil
	}
	st.closed[b.idx] = true
	st.pending[b.idx] = nil
	st.open--
	if st.open == 0 {
		return st.src.Close()
	}
	return nil
}
