package transformers

import (
	"fmt"
	"hash/fnv"
	"reflect"
)

// HashingVectorizer is a stateless featurizer mapping a token list to a
// fixed-dimension count vector via FNV-1a feature hashing. It needs no
// vocabulary and therefore no preparation.
type HashingVectorizer struct {
	// Dim is the output vector dimension. Must be positive.
	Dim int
}

func (v HashingVectorizer) InputTypes() []reflect.Type { return []reflect.Type{typeOf[[]string]()} }

func (v HashingVectorizer) OutputTypes() []reflect.Type { return []reflect.Type{typeOf[[]float64]()} }

func (v HashingVectorizer) Apply(in []any) ([]any, error) {
	if v.Dim <= 0 {
		return nil, fmt.Errorf("hashing vectorizer dimension must be positive, got %d", v.Dim)
	}
	tokens := in[0].([]string)
	vec := make([]float64, v.Dim)
	for _, tok := range tokens {
		h := fnv.New64a()
		h.Write([]byte(tok))
		vec[h.Sum64()%uint64(v.Dim)]++
	}
	return []any{vec}, nil
}

// MostLikely is a stateless transformer reducing a score or probability
// vector to the index of its largest element. Ties resolve to the lowest
// index.
type MostLikely struct{}

func (MostLikely) InputTypes() []reflect.Type { return []reflect.Type{typeOf[[]float64]()} }

func (MostLikely) OutputTypes() []reflect.Type { return []reflect.Type{typeOf[int]()} }

func (MostLikely) Apply(in []any) ([]any, error) {
	scores := in[0].([]float64)
	if len(scores) == 0 {
		return nil, fmt.Errorf("empty score vector")
	}
	best := 0
	for i, s := range scores {
		if s > scores[best] {
			best = i
		}
	}
	return []any{best}, nil
}

// GobEncode exists because MostLikely carries no state; gob refuses types
// without exported fields otherwise.
func (MostLikely) GobEncode() ([]byte, error) { return []byte{}, nil }

func (*MostLikely) GobDecode([]byte) error { return nil }
