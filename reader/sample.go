package reader

import "fmt"

// Segment is a seeded fractional partition of a dataset. A record at row
// position i is inside the segment iff a pseudo-random draw derived from
// (seed, i) falls into [Lo, Hi). For a fixed seed, a segment and its
// Complement partition the data exactly: every record is in precisely one
// of the two.
type Segment struct {
	Lo, Hi float64

	// invert flips membership; set by Complement.
	invert bool
}

// NewSegment returns the segment [lo, hi). Bounds must satisfy
// 0 <= lo <= hi <= 1.
func NewSegment(lo, hi float64) (Segment, error) {
	if lo < 0 || hi > 1 || lo > hi {
		return Segment{}, fmt.Errorf("invalid segment bounds [%v, %v)", lo, hi)
	}
	return Segment{Lo: lo, Hi: hi}, nil
}

// MustSegment is like NewSegment but panics on invalid bounds.
func MustSegment(lo, hi float64) Segment {
	s, err := NewSegment(lo, hi)
	if err != nil {
		panic(err)
	}
	return s
}

// Complement returns the segment matching exactly the records this segment
// excludes, under the same seed.
func (s Segment) Complement() Segment {
	return Segment{Lo: s.Lo, Hi: s.Hi, invert: !s.invert}
}

func (s Segment) contains(u float64) bool {
	in := u >= s.Lo && u < s.Hi
	return in != s.invert
}

// Sample filters src down to the records whose positional draw falls into
// the segment. Membership depends only on (seed, row position), so two
// Sample readers over the same data with the same seed and disjoint
// segments never overlap. The returned reader references src but does not
// own it.
func Sample[T any](src Reader[T], seed uint64, seg Segment) Reader[T] {
	return &sampleReader[T]{src: src, seed: seed, seg: seg}
}

type sampleReader[T any] struct {
	src  Reader[T]
	seed uint64
	seg  Segment
	row  uint64
}

func (r *sampleReader[T]) Next() bool {
	for r.src.Next() {
		row := r.row
		r.row++
		if r.seg.contains(drawAt(r.seed, row)) {
			return true
		}
	}
	return false
}

func (r *sampleReader[T]) Record() T { return r.src.Record() }

func (r *sampleReader[T]) Err() error { return r.src.Err() }

func (r *sampleReader[T]) Close() error { return nil }

func (r *sampleReader[T]) Reset() error {
	if err := ResetIfPossible(r.src); err != nil {
		return err
	}
	r.row = 0
	return nil
}

// drawAt maps (seed, row) to a uniform draw in [0, 1) via splitmix64. The
// draw must be stable across runs: reproducibility of segment membership is
// part of the contract.
func drawAt(seed, row uint64) float64 {
	h := splitmix64(seed ^ splitmix64(row))
	return float64(h>>11) / (1 << 53)
}

func splitmix64(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}
