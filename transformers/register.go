package transformers

import "encoding/gob"

// RegisterIndexType makes Index's trained form serializable for item type
// T. Common item types are registered by this package's init; call this
// for anything else before serializing or deserializing a graph using
// Index[T].
func RegisterIndexType[T comparable]() {
	gob.Register(&IndexPrepared[T]{})
}

func init() {
	gob.Register(Tokens{})
	gob.Register(LowerCased{})
	gob.Register(NGrams{})
	gob.Register(HashingVectorizer{})
	gob.Register(MostLikely{})

	RegisterIndexType[string]()
	RegisterIndexType[int]()
	RegisterIndexType[int64]()
	RegisterIndexType[float64]()
}
