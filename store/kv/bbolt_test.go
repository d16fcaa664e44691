package kv

import (
	"bytes"
	"errors"
	"testing"
)

// TestBoltBackendPersistsAcrossReopen verifies committed state and the
// committed version survive a close/reopen cycle.
func TestBoltBackendPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	b, err := OpenBoltBackend(BoltOptions{DataDir: dir})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	b.Set([]byte("k"), []byte("v"))
	root1, v, err := b.Commit()
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if v != 0 {
		t.Fatalf("first commit version=%d want 0", v)
	}
	if err := b.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	b2, err := OpenBoltBackend(BoltOptions{DataDir: dir})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer b2.Close()

	if got := b2.Version(); got != 0 {
		t.Fatalf("reopened version=%d want 0", got)
	}
	got, err := b2.Get([]byte("k"))
	if err != nil {
		t.Fatalf("get after reopen: %v", err)
	}
	if !bytes.Equal(got, []byte("v")) {
		t.Fatalf("get=%q want %q", got, "v")
	}

	b2.Set([]byte("k2"), []byte("v2"))
	root2, v2, err := b2.Commit()
	if err != nil {
		t.Fatalf("commit after reopen: %v", err)
	}
	if v2 != 1 {
		t.Fatalf("version after reopen commit=%d want 1", v2)
	}
	if root1 == root2 {
		t.Fatalf("root unchanged after a new write")
	}
}

// TestBoltBackendSnapshotRetention verifies the latest version snapshots
// to a readable handle while versions past the retention window return
// ErrPruned.
func TestBoltBackendSnapshotRetention(t *testing.T) {
	dir := t.TempDir()
	b, err := OpenBoltBackend(BoltOptions{DataDir: dir, RetainVersions: 2})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer b.Close()

	for i := 0; i < 5; i++ {
		b.Set([]byte{byte(i)}, []byte{byte(i)})
		if _, _, err := b.Commit(); err != nil {
			t.Fatalf("commit %d: %v", i, err)
		}
	}

	snap, err := b.Snapshot(b.Version())
	if err != nil {
		t.Fatalf("latest snapshot: %v", err)
	}
	if _, err := snap.Get([]byte{0}); err != nil {
		t.Fatalf("latest snapshot get: %v", err)
	}

	if _, err := b.Snapshot(0); !errors.Is(err, ErrPruned) {
		t.Fatalf("pruned version err=%v want ErrPruned", err)
	}
}
