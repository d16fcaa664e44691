// Package cache implements the stackable write overlay that is the
// atomicity substrate for transactions and sub-messages. Each frame
// stages its own writes and tombstones; committing folds them into the
// frame below, discarding drops them. Nested sub-message scopes compose
// without copying the backing map on every Begin.
package cache

import (
	"sort"

	"github.com/cwsoftware123/cwd/core"
	"github.com/cwsoftware123/cwd/store/kv"
)

type opKind int

const (
	opSet opKind = iota
	opDelete
)

type pendingOp struct {
	kind  opKind
	value []byte
}

// Store is a single frame's reads cascading to a parent. The parent is
// either another *Store (a nested sub-message scope) or a kv.Backend (the
// committed base). Exactly one of parentCache/parentBackend is set.
type Store struct {
	parentCache   *Store
	parentBackend kv.Backend

	pending map[string]pendingOp
}

// NewOverBackend opens the outermost cache frame over a committed backend
// snapshot — what the executor does at begin-block and check-tx.
func NewOverBackend(backend kv.Backend) *Store {
	return &Store{parentBackend: backend, pending: make(map[string]pendingOp)}
}

// Begin pushes a new frame on top of this one. The returned *Store is the
// active scope; s remains untouched until the child is committed or
// discarded into it.
func (s *Store) Begin() *Store {
	return &Store{parentCache: s, pending: make(map[string]pendingOp)}
}

// Get reads through the frame stack, innermost first.
func (s *Store) Get(key []byte) ([]byte, error) {
	k := string(key)
	if op, ok := s.pending[k]; ok {
		if op.kind == opDelete {
			return nil, kv.ErrNotFoundLocal
		}
		out := make([]byte, len(op.value))
		copy(out, op.value)
		return out, nil
	}
	if s.parentCache != nil {
		return s.parentCache.Get(key)
	}
	return s.parentBackend.Get(key)
}

// Has reports whether a key is visible (not tombstoned) at this scope.
func (s *Store) Has(key []byte) bool {
	_, err := s.Get(key)
	return err == nil
}

// Set stages a write in this frame only.
func (s *Store) Set(key, value []byte) {
	v := make([]byte, len(value))
	copy(v, value)
	s.pending[string(key)] = pendingOp{kind: opSet, value: v}
}

// Delete tombstones a key in this frame only.
func (s *Store) Delete(key []byte) {
	s.pending[string(key)] = pendingOp{kind: opDelete}
}

// CommitFrame folds this frame's pending writes into its parent cache
// frame. It is a programmer error to call CommitFrame on the outermost
// frame (the one opened with NewOverBackend); use Flush for that.
func (s *Store) CommitFrame() {
	if s.parentCache == nil {
		panic("cache: CommitFrame called on the outermost frame; use Flush")
	}
	for k, op := range s.pending {
		s.parentCache.pending[k] = op
	}
}

// Discard drops this frame's pending writes without applying them.
func (s *Store) Discard() {
	s.pending = make(map[string]pendingOp)
}

// Flush applies the outermost frame's pending writes directly to the
// backing kv.Backend's pending batch, ready for Backend.Commit. It does
// not call Backend.Commit itself — the caller controls when the version
// advances.
func (s *Store) Flush() error {
	if s.parentCache != nil {
		panic("cache: Flush called on a nested frame; use CommitFrame")
	}
	for k, op := range s.pending {
		switch op.kind {
		case opSet:
			if err := s.parentBackend.Set([]byte(k), op.value); err != nil {
				return err
			}
		case opDelete:
			if err := s.parentBackend.Delete([]byte(k)); err != nil {
				return err
			}
		}
	}
	s.pending = make(map[string]pendingOp)
	return nil
}

// Iterator merges this frame and every ancestor deterministically: the
// union of keys in order, with the innermost operation winning per key
// and tombstoned keys suppressed.
func (s *Store) Iterator(start, end []byte, order core.Order) kv.Iterator {
	merged := s.collect(start, end)
	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if order == core.Descending {
		for i, j := 0, len(keys)-1; i < j; i, j = i+1, j-1 {
			keys[i], keys[j] = keys[j], keys[i]
		}
	}
	return &mergedIterator{keys: keys, data: merged, index: -1}
}

// collect walks from the base backend inward, letting each successive
// (more specific) frame override, then strips tombstones. Keys outside
// [start, end) are excluded at the base; frame-local writes to keys
// outside the range are also excluded for iteration consistency.
func (s *Store) collect(start, end []byte) map[string][]byte {
	var base map[string][]byte
	if s.parentCache != nil {
		base = s.parentCache.collect(start, end)
	} else {
		base = make(map[string][]byte)
		it := s.parentBackend.Iterator(start, end, core.Ascending)
		defer it.Close()
		for it.Next() {
			base[string(it.Key())] = append([]byte(nil), it.Value()...)
		}
	}
	for k, op := range s.pending {
		if !inRange([]byte(k), start, end) {
			continue
		}
		switch op.kind {
		case opSet:
			base[k] = op.value
		case opDelete:
			delete(base, k)
		}
	}
	return base
}

func inRange(key, start, end []byte) bool {
	if start != nil && string(key) < string(start) {
		return false
	}
	if end != nil && string(key) >= string(end) {
		return false
	}
	return true
}

type mergedIterator struct {
	keys  []string
	data  map[string][]byte
	index int
}

func (it *mergedIterator) Next() bool {
	it.index++
	return it.index < len(it.keys)
}
func (it *mergedIterator) Key() []byte {
	if it.index < 0 || it.index >= len(it.keys) {
		return nil
	}
	return []byte(it.keys[it.index])
}
func (it *mergedIterator) Value() []byte {
	if it.index < 0 || it.index >= len(it.keys) {
		return nil
	}
	return it.data[it.keys[it.index]]
}
func (it *mergedIterator) Error() error { return nil }
func (it *mergedIterator) Close() error { return nil }
