package collections

import (
	"fmt"

	"github.com/cwsoftware123/cwd/core"
)

// Index is the interface MultiIndex and UniqueIndex satisfy; save and
// remove are package-private since IndexedMap is the only intended
// caller.
type Index[PK Key, T any] interface {
	save(s Storage, pk PK, value T) error
	remove(s Storage, pk PK, value T)
}

// IndexList groups a set of named indexes over T so IndexedMap can
// apply them uniformly on every write. Callers define a concrete struct
// of named Index fields and implement Indexes() to return them
// together.
type IndexList[PK Key, T any] interface {
	Indexes() []Index[PK, T]
}

// MultiIndex indexes T by a derived key that need not be unique: several
// primary keys may share the same index value. The index's storage key is
// indexValue ‖ primaryKey, so a range over a fixed index value enumerates
// every primary key sharing it, in primary-key order.
type MultiIndex[IK Key, PK Key, T any] struct {
	namespace []byte
	indexFn   func(pk PK, value T) IK
}

func NewMultiIndex[IK Key, PK Key, T any](namespace string, indexFn func(PK, T) IK) *MultiIndex[IK, PK, T] {
	return &MultiIndex[IK, PK, T]{namespace: []byte(namespace), indexFn: indexFn}
}

func (mi *MultiIndex[IK, PK, T]) key(ik IK, pk PK) []byte {
	return BuildKey(mi.namespace, [][]byte{ik.RawKey()}, pk.RawKey())
}

func (mi *MultiIndex[IK, PK, T]) save(s Storage, pk PK, value T) error {
	s.Set(mi.key(mi.indexFn(pk, value), pk), pk.RawKey())
	return nil
}

func (mi *MultiIndex[IK, PK, T]) remove(s Storage, pk PK, value T) {
	s.Delete(mi.key(mi.indexFn(pk, value), pk))
}

// PrimaryKeys returns the raw primary keys indexed under ik, in primary
// key order.
func (mi *MultiIndex[IK, PK, T]) PrimaryKeys(s Storage, ik IK, order core.Order) ([][]byte, error) {
	start := BuildKey(mi.namespace, [][]byte{ik.RawKey()}, nil)
	end := prefixUpperBound(start)

	it := s.Iterator(start, end, order)
	defer it.Close()

	var out [][]byte
	for it.Next() {
		out = append(out, append([]byte(nil), it.Value()...))
	}
	return out, it.Error()
}

// UniqueIndex indexes T by a derived key that must be unique: saving a
// second primary key under an already-occupied index value fails.
type UniqueIndex[IK Key, PK Key, T any] struct {
	namespace []byte
	indexFn   func(value T) IK
}

func NewUniqueIndex[IK Key, PK Key, T any](namespace string, indexFn func(T) IK) *UniqueIndex[IK, PK, T] {
	return &UniqueIndex[IK, PK, T]{namespace: []byte(namespace), indexFn: indexFn}
}

func (ui *UniqueIndex[IK, PK, T]) key(ik IK) []byte {
	return BuildKey(ui.namespace, nil, ik.RawKey())
}

func (ui *UniqueIndex[IK, PK, T]) save(s Storage, pk PK, value T) error {
	ik := ui.indexFn(value)
	key := ui.key(ik)

	if existing, err := s.Get(key); err == nil && string(existing) != string(pk.RawKey()) {
		return fmt.Errorf("collections: %w: index value already claimed by another key", core.ErrUniquenessViolation)
	}
	s.Set(key, pk.RawKey())
	return nil
}

func (ui *UniqueIndex[IK, PK, T]) remove(s Storage, pk PK, value T) {
	s.Delete(ui.key(ui.indexFn(value)))
}

// PrimaryKey returns the raw primary key indexed under ik, if any.
func (ui *UniqueIndex[IK, PK, T]) PrimaryKey(s Storage, ik IK) ([]byte, bool, error) {
	v, err := s.Get(ui.key(ik))
	if err != nil {
		if isNotFound(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return v, true, nil
}

// IndexedMap is a Map that additionally maintains a set of secondary
// indexes kept consistent with the primary data on every Save/Remove.
// Index maintenance happens in the same Storage scope as
// the primary write, so an index collision aborts the write entirely once
// the caller's enclosing cache frame is discarded — IndexedMap itself
// does not need to undo partially-applied index writes.
type IndexedMap[K Key, T any] struct {
	primary Map[K, T]
	indexes IndexList[K, T]
}

func NewIndexedMap[K Key, T any](pkNamespace string, codec Codec[T], indexes IndexList[K, T]) IndexedMap[K, T] {
	return IndexedMap[K, T]{primary: NewMap[K, T](pkNamespace, codec), indexes: indexes}
}

func (m IndexedMap[K, T]) Load(s Storage, k K) (T, error) { return m.primary.Load(s, k) }

func (m IndexedMap[K, T]) MayLoad(s Storage, k K) (T, bool, error) { return m.primary.MayLoad(s, k) }

func (m IndexedMap[K, T]) Has(s Storage, k K) bool { return m.primary.Has(s, k) }

func (m IndexedMap[K, T]) Range(s Storage, order core.Order) ([]TypedRecord[T], error) {
	return m.primary.Range(s, order)
}

func (m IndexedMap[K, T]) Save(s Storage, k K, v T) error {
	old, had, err := m.primary.MayLoad(s, k)
	if err != nil {
		return err
	}
	if had {
		for _, idx := range m.indexes.Indexes() {
			idx.remove(s, k, old)
		}
	}
	for _, idx := range m.indexes.Indexes() {
		if err := idx.save(s, k, v); err != nil {
			return err
		}
	}
	return m.primary.Save(s, k, v)
}

func (m IndexedMap[K, T]) Remove(s Storage, k K) error {
	old, had, err := m.primary.MayLoad(s, k)
	if err != nil {
		return err
	}
	if !had {
		return nil
	}
	for _, idx := range m.indexes.Indexes() {
		idx.remove(s, k, old)
	}
	m.primary.Remove(s, k)
	return nil
}
