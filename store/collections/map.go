package collections

import "github.com/cwsoftware123/cwd/core"

// Map is a composite-key, typed collection over Storage. K must
// implement Key (big-endian for fixed-width integers, length-prefixed
// namespace segments for composite keys), preserving lexicographic
// order on tuple keys.
type Map[K Key, T any] struct {
	namespace []byte
	codec     Codec[T]
}

func NewMap[K Key, T any](namespace string, codec Codec[T]) Map[K, T] {
	return Map[K, T]{namespace: []byte(namespace), codec: codec}
}

func (m Map[K, T]) key(k K) []byte {
	return BuildKey(m.namespace, nil, k.RawKey())
}

func (m Map[K, T]) Load(s Storage, k K) (T, error) {
	var zero T
	b, err := s.Get(m.key(k))
	if err != nil {
		return zero, err
	}
	return m.codec.Decode(b)
}

func (m Map[K, T]) MayLoad(s Storage, k K) (T, bool, error) {
	var zero T
	b, err := s.Get(m.key(k))
	if err != nil {
		if isNotFound(err) {
			return zero, false, nil
		}
		return zero, false, err
	}
	v, err := m.codec.Decode(b)
	return v, err == nil, err
}

func (m Map[K, T]) Has(s Storage, k K) bool {
	_, ok, _ := m.MayLoad(s, k)
	return ok
}

func (m Map[K, T]) Save(s Storage, k K, v T) error {
	b, err := m.codec.Encode(v)
	if err != nil {
		return err
	}
	s.Set(m.key(k), b)
	return nil
}

func (m Map[K, T]) Remove(s Storage, k K) {
	s.Delete(m.key(k))
}

// TypedRecord pairs a decoded value with the raw suffix of its key past
// the map's namespace (the part the caller needs to recover K from, for
// callers that scan rather than look up by exact key).
type TypedRecord[T any] struct {
	RawKeySuffix []byte
	Value        T
}

// Range performs a full prefix scan of the map's namespace and decodes
// each value, in the requested order. Iteration order over the prefix
// is strictly lexicographic on raw keys; descending is the exact
// inverse.
func (m Map[K, T]) Range(s Storage, order core.Order) ([]TypedRecord[T], error) {
	return m.scan(s, nil, order)
}

// Prefix scans only keys whose suffix (past the namespace) itself
// begins with rawPrefix, used e.g. to enumerate all primary keys
// sharing a composite key's leading component.
func (m Map[K, T]) Prefix(s Storage, rawPrefix []byte, order core.Order) ([]TypedRecord[T], error) {
	return m.scan(s, rawPrefix, order)
}

func (m Map[K, T]) scan(s Storage, rawPrefix []byte, order core.Order) ([]TypedRecord[T], error) {
	start := BuildKey(m.namespace, nil, rawPrefix)
	end := prefixUpperBound(start)

	it := s.Iterator(start, end, order)
	defer it.Close()

	var out []TypedRecord[T]
	for it.Next() {
		v, err := m.codec.Decode(it.Value())
		if err != nil {
			return nil, err
		}
		suffix := it.Key()[len(start)-len(rawPrefix):]
		out = append(out, TypedRecord[T]{RawKeySuffix: append([]byte(nil), suffix...), Value: v})
	}
	return out, it.Error()
}

// prefixUpperBound returns the smallest key strictly greater than every
// key beginning with prefix, i.e. prefix with its last byte incremented
// (carrying as needed). If prefix is all 0xFF bytes (or empty), there is
// no finite upper bound and nil (unbounded) is returned.
func prefixUpperBound(prefix []byte) []byte {
	out := append([]byte(nil), prefix...)
	for i := len(out) - 1; i >= 0; i-- {
		if out[i] < 0xFF {
			out[i]++
			return out[:i+1]
		}
	}
	return nil
}
