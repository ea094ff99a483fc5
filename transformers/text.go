// Package transformers provides the built-in pipeline nodes: text
// processing, categorical indexing, feature hashing, and generic function
// adapters. All concrete node types (and the trained forms of preparable
// ones) are registered with encoding/gob so graphs using them serialize.
package transformers

import (
	"reflect"
	"strings"
	"unicode"
)

func typeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// Tokens is a stateless tokenizer splitting a string into tokens on
// whitespace and punctuation boundaries.
type Tokens struct {
	// Punctuation controls whether punctuation characters are emitted as
	// single-rune tokens (true) or dropped (false).
	Punctuation bool
}

func (Tokens) InputTypes() []reflect.Type { return []reflect.Type{typeOf[string]()} }

func (Tokens) OutputTypes() []reflect.Type { return []reflect.Type{typeOf[[]string]()} }

func (t Tokens) Apply(in []any) ([]any, error) {
	text := in[0].(string)
	var tokens []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			tokens = append(tokens, cur.String())
			cur.Reset()
		}
	}
	for _, r := range text {
		switch {
		case unicode.IsLetter(r) || unicode.IsNumber(r):
			cur.WriteRune(r)
		case unicode.IsSpace(r):
			flush()
		default:
			flush()
			if t.Punctuation {
				tokens = append(tokens, string(r))
			}
		}
	}
	flush()
	return []any{tokens}, nil
}

// LowerCased is a stateless transformer lowercasing a string.
type LowerCased struct{}

func (LowerCased) InputTypes() []reflect.Type { return []reflect.Type{typeOf[string]()} }

func (LowerCased) OutputTypes() []reflect.Type { return []reflect.Type{typeOf[string]()} }

func (LowerCased) Apply(in []any) ([]any, error) {
	return []any{strings.ToLower(in[0].(string))}, nil
}

// GobEncode exists because LowerCased carries no state; gob refuses types
// without exported fields otherwise.
func (LowerCased) GobEncode() ([]byte, error) { return []byte{}, nil }

func (*LowerCased) GobDecode([]byte) error { return nil }

// NGrams is a stateless transformer turning a token list into the bag of
// its n-grams of orders MinOrder..MaxOrder, each joined with underscores.
// A zero MinOrder means 1; a zero MaxOrder means MinOrder.
type NGrams struct {
	MinOrder int
	MaxOrder int
}

func (NGrams) InputTypes() []reflect.Type { return []reflect.Type{typeOf[[]string]()} }

func (NGrams) OutputTypes() []reflect.Type { return []reflect.Type{typeOf[[]string]()} }

func (g NGrams) Apply(in []any) ([]any, error) {
	tokens := in[0].([]string)
	lo := g.MinOrder
	if lo < 1 {
		lo = 1
	}
	hi := g.MaxOrder
	if hi < lo {
		hi = lo
	}
	var grams []string
	for n := lo; n <= hi; n++ {
		for i := 0; i+n <= len(tokens); i++ {
			grams = append(grams, strings.Join(tokens[i:i+n], "_"))
		}
	}
	return []any{grams}, nil
}
