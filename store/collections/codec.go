// Package collections layers Item, Map, IndexedMap, and Incrementor
// over a generic Storage capability. Key encoding is uniform regardless
// of which Codec a given collection uses for values: the key layout is
// fixed, only value encoding varies per collection.
package collections

import (
	"github.com/ethereum/go-ethereum/rlp"
	"gopkg.in/yaml.v3"

	"github.com/cwsoftware123/cwd/core"
	"github.com/cwsoftware123/cwd/store/kv"
)

// Storage is the minimal read/write/remove/scan capability every typed
// primitive is built on; store/cache.Store satisfies it directly.
type Storage interface {
	Get(key []byte) ([]byte, error)
	Set(key, value []byte)
	Delete(key []byte)
	Iterator(start, end []byte, order core.Order) Iterator
}

// Iterator is an alias for kv.Iterator rather than a structurally
// equivalent redeclaration: Go interface satisfaction requires identical
// named return types, so store/cache.Store's Iterator method (which
// returns kv.Iterator) would not satisfy Storage otherwise.
type Iterator = kv.Iterator

// Codec is the pluggable (de)serialization strategy for collection
// values. Two implementations are provided: RLPCodec (compact binary)
// and YAMLCodec (schema-based, human-legible, keyed by struct tags).
type Codec[T any] interface {
	Encode(v T) ([]byte, error)
	Decode(b []byte) (T, error)
}

// RLPCodec encodes values with go-ethereum's RLP, the compact binary
// encoding used for records that stay machine-internal.
type RLPCodec[T any] struct{}

func (RLPCodec[T]) Encode(v T) ([]byte, error) {
	return rlp.EncodeToBytes(v)
}

func (RLPCodec[T]) Decode(b []byte) (T, error) {
	var v T
	err := rlp.DecodeBytes(b, &v)
	return v, err
}

// YAMLCodec encodes values as YAML, a schema-based encoding in the sense
// that a value's shape is described by its Go struct tags rather than by
// positional/compact framing; useful for values a human operator may
// need to inspect directly (e.g. via the CLI's raw-state query).
type YAMLCodec[T any] struct{}

func (YAMLCodec[T]) Encode(v T) ([]byte, error) {
	return yaml.Marshal(v)
}

func (YAMLCodec[T]) Decode(b []byte) (T, error) {
	var v T
	err := yaml.Unmarshal(b, &v)
	return v, err
}
