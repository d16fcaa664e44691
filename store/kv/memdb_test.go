package kv

import (
	"bytes"
	"errors"
	"testing"

	"github.com/cwsoftware123/cwd/core"
)

// TestMemBackendCommitAdvancesVersion verifies versions start at 0 on the
// first commit and advance by exactly one per commit.
func TestMemBackendCommitAdvancesVersion(t *testing.T) {
	b := NewMemBackend()
	if got := b.Version(); got != -1 {
		t.Fatalf("fresh backend version=%d want -1", got)
	}
	b.Set([]byte("k"), []byte("v"))
	_, v0, err := b.Commit()
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if v0 != 0 {
		t.Fatalf("first commit version=%d want 0", v0)
	}
	_, v1, err := b.Commit()
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if v1 != 1 {
		t.Fatalf("second commit version=%d want 1", v1)
	}
}

// TestMemBackendGetSetDelete verifies staged writes only become visible
// after Commit and deletes tombstone correctly.
func TestMemBackendGetSetDelete(t *testing.T) {
	b := NewMemBackend()
	b.Set([]byte("k"), []byte("v"))
	if _, err := b.Get([]byte("k")); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("staged write visible before commit, err=%v", err)
	}
	if _, _, err := b.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	got, err := b.Get([]byte("k"))
	if err != nil {
		t.Fatalf("get after commit: %v", err)
	}
	if !bytes.Equal(got, []byte("v")) {
		t.Fatalf("get=%q want %q", got, "v")
	}

	b.Delete([]byte("k"))
	if _, _, err := b.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if _, err := b.Get([]byte("k")); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("deleted key still readable, err=%v", err)
	}
}

// TestMemBackendReplayDeterminism verifies replaying the same commit
// sequence from empty yields the same sequence of roots.
func TestMemBackendReplayDeterminism(t *testing.T) {
	run := func() [][32]byte {
		b := NewMemBackend()
		var roots [][32]byte
		b.Set([]byte("a"), []byte("1"))
		b.Set([]byte("b"), []byte("2"))
		r, _, _ := b.Commit()
		roots = append(roots, r)
		b.Delete([]byte("a"))
		b.Set([]byte("c"), []byte("3"))
		r, _, _ = b.Commit()
		roots = append(roots, r)
		return roots
	}
	first, second := run(), run()
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("root %d differs between replays", i)
		}
	}
}

// TestMemBackendFailedWriteOmittedRootMatches verifies that committing
// with no staged writes leaves the root identical to the prior commit.
func TestMemBackendFailedWriteOmittedRootMatches(t *testing.T) {
	b := NewMemBackend()
	b.Set([]byte("a"), []byte("1"))
	r1, _, _ := b.Commit()
	r2, _, _ := b.Commit()
	if r1 != r2 {
		t.Fatalf("empty commit moved the root")
	}
}

// TestMemBackendSnapshotIsolation verifies a snapshot keeps serving the
// version it was taken at while the live backend moves on.
func TestMemBackendSnapshotIsolation(t *testing.T) {
	b := NewMemBackend()
	b.Set([]byte("k"), []byte("old"))
	_, v, _ := b.Commit()

	snap, err := b.Snapshot(v)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}

	b.Set([]byte("k"), []byte("new"))
	b.Commit()

	got, err := snap.Get([]byte("k"))
	if err != nil {
		t.Fatalf("snapshot get: %v", err)
	}
	if !bytes.Equal(got, []byte("old")) {
		t.Fatalf("snapshot get=%q want %q", got, "old")
	}
	if err := snap.Set([]byte("x"), []byte("y")); err == nil {
		t.Fatalf("snapshot accepted a write")
	}
	if _, err := b.Snapshot(99); !errors.Is(err, ErrPruned) {
		t.Fatalf("missing version err=%v want ErrPruned", err)
	}
}

// TestMemBackendIterationOrder verifies ascending iteration is
// lexicographic, descending is its exact inverse, and bounds are
// start-inclusive end-exclusive.
func TestMemBackendIterationOrder(t *testing.T) {
	b := NewMemBackend()
	for _, k := range []string{"b", "a", "c", "ab"} {
		b.Set([]byte(k), []byte("v-"+k))
	}
	b.Commit()

	collect := func(start, end []byte, order core.Order) []string {
		it := b.Iterator(start, end, order)
		defer it.Close()
		var keys []string
		for it.Next() {
			keys = append(keys, string(it.Key()))
		}
		return keys
	}

	asc := collect(nil, nil, core.Ascending)
	want := []string{"a", "ab", "b", "c"}
	if len(asc) != len(want) {
		t.Fatalf("asc keys=%v want %v", asc, want)
	}
	for i := range want {
		if asc[i] != want[i] {
			t.Fatalf("asc keys=%v want %v", asc, want)
		}
	}

	desc := collect(nil, nil, core.Descending)
	for i := range want {
		if desc[i] != want[len(want)-1-i] {
			t.Fatalf("desc=%v is not the inverse of asc=%v", desc, asc)
		}
	}

	bounded := collect([]byte("ab"), []byte("c"), core.Ascending)
	wantBounded := []string{"ab", "b"}
	if len(bounded) != len(wantBounded) || bounded[0] != "ab" || bounded[1] != "b" {
		t.Fatalf("bounded=%v want %v", bounded, wantBounded)
	}
}
