// Package kv defines the abstract ordered byte-keyed store every higher
// layer (the Merkle commit tree, the cached store, the typed storage
// primitives) is built on. The disk engine itself is a collaborator's
// concern; this package treats it as exactly two interchangeable
// implementations: an in-memory map for tests/genesis dry-runs, and a
// bbolt-backed engine for a real process.
package kv

import (
	"errors"
	"fmt"

	"github.com/cwsoftware123/cwd/core"
)

// ErrPruned is returned by Snapshot when the requested version has been
// pruned under the backend's retention policy.
var ErrPruned = errors.New("kv: version pruned")

// ErrNotFoundLocal wraps core.ErrNotFound for callers that only import kv.
var ErrNotFoundLocal = fmt.Errorf("kv: %w", core.ErrNotFound)

var errReadOnly = errors.New("kv: snapshot is read-only")

// Iterator walks a bounded key range in a single direction. It must be
// exhausted or closed; Backend.Iterator returns one already positioned
// before the first record.
type Iterator interface {
	// Next advances to the next record, returning false at the end or on
	// error (check Error() to distinguish).
	Next() bool
	Key() []byte
	Value() []byte
	Error() error
	Close() error
}

// Backend is an ordered byte-keyed map with ranged iteration, snapshots,
// and versioned commits.
type Backend interface {
	Get(key []byte) ([]byte, error)
	Set(key, value []byte) error
	Delete(key []byte) error

	// Iterator returns a lazy, restartable sequence over [start, end).
	// A nil start or end means unbounded in that direction.
	Iterator(start, end []byte, order core.Order) Iterator

	// Commit atomically applies the pending batch, advances the version
	// by exactly 1, and returns the new root hash and version.
	Commit() (root [32]byte, version int64, err error)

	// Snapshot returns a read-only handle against a committed version.
	// Implementations must support at least the latest committed version.
	Snapshot(version int64) (Backend, error)

	// Version reports the backend's current committed version.
	Version() int64

	Close() error
}
