// Package serde provides byte-level serializer/deserializer pairs used at
// the module's external boundaries (message brokers, stores).
package serde

// Serializer turns a value into bytes.
type Serializer[T any] func(T) ([]byte, error)

// Deserializer turns bytes into a value.
type Deserializer[T any] func([]byte) (T, error)

// Serde bundles both directions for one type.
type Serde[T any] struct {
	Serializer   Serializer[T]
	Deserializer Deserializer[T]
}
