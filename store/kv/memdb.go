package kv

import (
	"sort"
	"sync"

	"github.com/cwsoftware123/cwd/core"
	"github.com/cwsoftware123/cwd/store/merkle"
)

// MemBackend is an in-process, map-backed Backend used by unit tests,
// genesis dry-runs, and anywhere a durable engine is unnecessary: a
// single mutex guarding a plain map, with a pending batch staged until
// Commit.
type MemBackend struct {
	mu   sync.RWMutex
	data map[string][]byte

	pendingSet    map[string][]byte
	pendingDelete map[string]struct{}

	version int64
	tree    *merkle.Tree

	// history retains prior versions' full key sets for Snapshot; unbounded
	// for MemBackend since it only ever backs tests and genesis.
	history map[int64]map[string][]byte
}

// NewMemBackend returns an empty MemBackend at version -1 (nothing
// committed yet).
func NewMemBackend() *MemBackend {
	return &MemBackend{
		data:          make(map[string][]byte),
		pendingSet:    make(map[string][]byte),
		pendingDelete: make(map[string]struct{}),
		tree:          merkle.NewTree(),
		history:       make(map[int64]map[string][]byte),
		version:       -1,
	}
}

func (b *MemBackend) Get(key []byte) ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	v, ok := b.data[string(key)]
	if !ok {
		return nil, ErrNotFoundLocal
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (b *MemBackend) Set(key, value []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	k := string(key)
	v := make([]byte, len(value))
	copy(v, value)
	b.pendingSet[k] = v
	delete(b.pendingDelete, k)
	return nil
}

func (b *MemBackend) Delete(key []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	k := string(key)
	b.pendingDelete[k] = struct{}{}
	delete(b.pendingSet, k)
	return nil
}

func (b *MemBackend) Commit() ([32]byte, int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for k, v := range b.pendingSet {
		b.data[k] = v
		b.tree.Set([]byte(k), v)
	}
	for k := range b.pendingDelete {
		delete(b.data, k)
		b.tree.Remove([]byte(k))
	}
	b.pendingSet = make(map[string][]byte)
	b.pendingDelete = make(map[string]struct{})
	b.version++
	root := b.tree.Root()

	snap := make(map[string][]byte, len(b.data))
	for k, v := range b.data {
		cp := make([]byte, len(v))
		copy(cp, v)
		snap[k] = cp
	}
	b.history[b.version] = snap
	return root, b.version, nil
}

func (b *MemBackend) Version() int64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.version
}

func (b *MemBackend) Snapshot(version int64) (Backend, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	snap, ok := b.history[version]
	if !ok {
		return nil, ErrPruned
	}
	cp := make(map[string][]byte, len(snap))
	for k, v := range snap {
		cp[k] = v
	}
	return &memSnapshot{data: cp, version: version}, nil
}

func (b *MemBackend) Close() error { return nil }

// memSnapshot is a read-only view over a historical version.
type memSnapshot struct {
	data    map[string][]byte
	version int64
}

func (s *memSnapshot) Get(key []byte) ([]byte, error) {
	v, ok := s.data[string(key)]
	if !ok {
		return nil, ErrNotFoundLocal
	}
	return v, nil
}
func (s *memSnapshot) Set(key, value []byte) error { return errReadOnly }
func (s *memSnapshot) Delete(key []byte) error     { return errReadOnly }
func (s *memSnapshot) Iterator(start, end []byte, order core.Order) Iterator {
	return newSliceIterator(s.data, start, end, order)
}
func (s *memSnapshot) Commit() ([32]byte, int64, error) { return [32]byte{}, s.version, errReadOnly }
func (s *memSnapshot) Snapshot(version int64) (Backend, error) {
	if version != s.version {
		return nil, ErrPruned
	}
	return s, nil
}
func (s *memSnapshot) Version() int64 { return s.version }
func (s *memSnapshot) Close() error   { return nil }

func (b *MemBackend) Iterator(start, end []byte, order core.Order) Iterator {
	b.mu.RLock()
	defer b.mu.RUnlock()
	snap := make(map[string][]byte, len(b.data))
	for k, v := range b.data {
		snap[k] = v
	}
	return newSliceIterator(snap, start, end, order)
}

func newSliceIterator(data map[string][]byte, start, end []byte, order core.Order) Iterator {
	keys := make([]string, 0, len(data))
	for k := range data {
		kb := []byte(k)
		if start != nil && string(kb) < string(start) {
			continue
		}
		if end != nil && string(kb) >= string(end) {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if order == core.Descending {
		for i, j := 0, len(keys)-1; i < j; i, j = i+1, j-1 {
			keys[i], keys[j] = keys[j], keys[i]
		}
	}
	return &sliceIterator{keys: keys, data: data, index: -1}
}

type sliceIterator struct {
	keys  []string
	data  map[string][]byte
	index int
}

func (it *sliceIterator) Next() bool {
	it.index++
	return it.index < len(it.keys)
}
func (it *sliceIterator) Key() []byte {
	if it.index < 0 || it.index >= len(it.keys) {
		return nil
	}
	return []byte(it.keys[it.index])
}
func (it *sliceIterator) Value() []byte {
	if it.index < 0 || it.index >= len(it.keys) {
		return nil
	}
	return it.data[it.keys[it.index]]
}
func (it *sliceIterator) Error() error { return nil }
func (it *sliceIterator) Close() error { return nil }
