package kv

import (
	"encoding/binary"
	"fmt"
	"path/filepath"

	bolt "go.etcd.io/bbolt"

	"github.com/cwsoftware123/cwd/core"
	"github.com/cwsoftware123/cwd/store/merkle"
)

// Bucket layout: a single "state" bucket holds the live key/value view,
// and a "versions" bucket indexes committed roots by big-endian version
// number so historical lookups stay O(log n).
var (
	bucketState    = []byte("state")
	bucketVersions = []byte("versions")
)

// BoltBackend is the on-disk Backend implementation. Root retention is
// a committed feature, not best-effort: the last RetainVersions
// committed roots are kept in bucketVersions; anything older returns
// ErrPruned.
type BoltBackend struct {
	db             *bolt.DB
	tree           *merkle.Tree
	version        int64
	retainVersions int64

	pendingSet    map[string][]byte
	pendingDelete map[string]struct{}
}

// BoltOptions configures a BoltBackend.
type BoltOptions struct {
	DataDir        string
	RetainVersions int64 // 0 means the default of 100
}

// OpenBoltBackend opens (creating if absent) a bbolt-backed store under
// opts.DataDir/chain.db, replays its current state into an in-memory
// merkle.Tree, and returns a ready Backend.
func OpenBoltBackend(opts BoltOptions) (*BoltBackend, error) {
	if opts.RetainVersions <= 0 {
		opts.RetainVersions = 100
	}
	dbPath := filepath.Join(opts.DataDir, "chain.db")
	db, err := bolt.Open(dbPath, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("kv: open bbolt: %w", err)
	}

	b := &BoltBackend{
		db:             db,
		tree:           merkle.NewTree(),
		version:        -1,
		retainVersions: opts.RetainVersions,
		pendingSet:     make(map[string][]byte),
		pendingDelete:  make(map[string]struct{}),
	}

	err = db.Update(func(tx *bolt.Tx) error {
		state, err := tx.CreateBucketIfNotExists(bucketState)
		if err != nil {
			return err
		}
		if _, err := tx.CreateBucketIfNotExists(bucketVersions); err != nil {
			return err
		}
		return state.ForEach(func(k, v []byte) error {
			b.tree.Set(k, v)
			return nil
		})
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("kv: init buckets: %w", err)
	}

	if err := db.View(func(tx *bolt.Tx) error {
		versions := tx.Bucket(bucketVersions)
		c := versions.Cursor()
		if k, _ := c.Last(); k != nil {
			b.version = int64(binary.BigEndian.Uint64(k))
		}
		return nil
	}); err != nil {
		db.Close()
		return nil, err
	}

	return b, nil
}

func (b *BoltBackend) Get(key []byte) ([]byte, error) {
	if v, ok := b.tree.Get(key); ok {
		return v, nil
	}
	return nil, ErrNotFoundLocal
}

func (b *BoltBackend) Set(key, value []byte) error {
	k := string(key)
	v := make([]byte, len(value))
	copy(v, value)
	b.pendingSet[k] = v
	delete(b.pendingDelete, k)
	return nil
}

func (b *BoltBackend) Delete(key []byte) error {
	k := string(key)
	b.pendingDelete[k] = struct{}{}
	delete(b.pendingSet, k)
	return nil
}

func (b *BoltBackend) Iterator(start, end []byte, order core.Order) Iterator {
	snap := make(map[string][]byte)
	_ = b.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketState).ForEach(func(k, v []byte) error {
			cp := make([]byte, len(v))
			copy(cp, v)
			snap[string(k)] = cp
			return nil
		})
	})
	return newSliceIterator(snap, start, end, order)
}

func (b *BoltBackend) Commit() ([32]byte, int64, error) {
	err := b.db.Update(func(tx *bolt.Tx) error {
		state := tx.Bucket(bucketState)
		for k, v := range b.pendingSet {
			if err := state.Put([]byte(k), v); err != nil {
				return err
			}
			b.tree.Set([]byte(k), v)
		}
		for k := range b.pendingDelete {
			if err := state.Delete([]byte(k)); err != nil {
				return err
			}
			b.tree.Remove([]byte(k))
		}
		b.version++
		root := b.tree.Root()

		versions := tx.Bucket(bucketVersions)
		vk := make([]byte, 8)
		binary.BigEndian.PutUint64(vk, uint64(b.version))
		if err := versions.Put(vk, root[:]); err != nil {
			return err
		}
		return b.pruneLocked(versions)
	})
	if err != nil {
		return [32]byte{}, b.version, err
	}
	b.pendingSet = make(map[string][]byte)
	b.pendingDelete = make(map[string]struct{})
	return b.tree.Root(), b.version, nil
}

func (b *BoltBackend) pruneLocked(versions *bolt.Bucket) error {
	cutoff := b.version - b.retainVersions + 1
	if cutoff <= 0 {
		return nil
	}
	c := versions.Cursor()
	for k, _ := c.First(); k != nil; k, _ = c.Next() {
		v := int64(binary.BigEndian.Uint64(k))
		if v >= cutoff {
			break
		}
		if err := versions.Delete(k); err != nil {
			return err
		}
	}
	return nil
}

func (b *BoltBackend) Version() int64 { return b.version }

// Snapshot returns a read-only handle for a committed version. Because this
// backend only retains roots (not full historical key sets) beyond the
// live state, only the latest version supports reads; older, unpruned
// versions support root verification only: Get returns ErrPruned so
// callers never mistake a stale root-only entry for a queryable snapshot,
// and Iterator yields no records.
func (b *BoltBackend) Snapshot(version int64) (Backend, error) {
	if version == b.version {
		return b, nil
	}
	var root [32]byte
	found := false
	_ = b.db.View(func(tx *bolt.Tx) error {
		vk := make([]byte, 8)
		binary.BigEndian.PutUint64(vk, uint64(version))
		if v := tx.Bucket(bucketVersions).Get(vk); v != nil {
			copy(root[:], v)
			found = true
		}
		return nil
	})
	if !found {
		return nil, ErrPruned
	}
	return &boltRootOnlySnapshot{root: root, version: version}, nil
}

func (b *BoltBackend) Close() error { return b.db.Close() }

// boltRootOnlySnapshot answers root queries for a retained-but-superseded
// version; it cannot serve Get/Iterator since this backend does not keep
// full historical key sets (see Snapshot's doc comment).
type boltRootOnlySnapshot struct {
	root    [32]byte
	version int64
}

func (s *boltRootOnlySnapshot) Get(key []byte) ([]byte, error) { return nil, ErrPruned }
func (s *boltRootOnlySnapshot) Set(key, value []byte) error    { return errReadOnly }
func (s *boltRootOnlySnapshot) Delete(key []byte) error        { return errReadOnly }
func (s *boltRootOnlySnapshot) Iterator(start, end []byte, order core.Order) Iterator {
	return newSliceIterator(nil, start, end, order)
}
func (s *boltRootOnlySnapshot) Commit() ([32]byte, int64, error) {
	return s.root, s.version, errReadOnly
}
func (s *boltRootOnlySnapshot) Snapshot(version int64) (Backend, error) {
	if version != s.version {
		return nil, ErrPruned
	}
	return s, nil
}
func (s *boltRootOnlySnapshot) Version() int64 { return s.version }
func (s *boltRootOnlySnapshot) Close() error    { return nil }
