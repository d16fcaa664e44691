package collections_test

import (
	"errors"
	"testing"

	"github.com/cwsoftware123/cwd/core"
	"github.com/cwsoftware123/cwd/store/collections"
)

type account struct {
	OwnerID uint64 `yaml:"owner_id"`
	Tier    string `yaml:"tier"`
}

type accountIndexes struct {
	ByTier  *collections.MultiIndex[collections.StringKey, collections.U64Key, account]
	ByOwner *collections.UniqueIndex[collections.U64Key, collections.U64Key, account]
}

func (ix accountIndexes) Indexes() []collections.Index[collections.U64Key, account] {
	return []collections.Index[collections.U64Key, account]{ix.ByTier, ix.ByOwner}
}

func newAccountMap() (collections.IndexedMap[collections.U64Key, account], accountIndexes) {
	ix := accountIndexes{
		ByTier: collections.NewMultiIndex[collections.StringKey, collections.U64Key, account](
			"accounts_by_tier",
			func(_ collections.U64Key, a account) collections.StringKey { return collections.StringKey(a.Tier) },
		),
		ByOwner: collections.NewUniqueIndex[collections.U64Key, collections.U64Key, account](
			"accounts_by_owner",
			func(a account) collections.U64Key { return collections.U64Key(a.OwnerID) },
		),
	}
	return collections.NewIndexedMap[collections.U64Key, account]("accounts", collections.YAMLCodec[account]{}, ix), ix
}

// TestIndexedMapIndexesFollowPrimary verifies every live primary entry
// has exactly one entry per index and updates relocate stale entries.
func TestIndexedMapIndexesFollowPrimary(t *testing.T) {
	s := freshStore(t)
	m, ix := newAccountMap()

	if err := m.Save(s, 1, account{OwnerID: 101, Tier: "gold"}); err != nil {
		t.Fatalf("save 1: %v", err)
	}
	if err := m.Save(s, 2, account{OwnerID: 102, Tier: "gold"}); err != nil {
		t.Fatalf("save 2: %v", err)
	}

	pks, err := ix.ByTier.PrimaryKeys(s, "gold", core.Ascending)
	if err != nil {
		t.Fatalf("primary keys: %v", err)
	}
	if len(pks) != 2 {
		t.Fatalf("gold tier has %d entries, want 2", len(pks))
	}

	// Moving entry 1 to silver must remove its gold index entry.
	if err := m.Save(s, 1, account{OwnerID: 101, Tier: "silver"}); err != nil {
		t.Fatalf("re-save 1: %v", err)
	}
	pks, _ = ix.ByTier.PrimaryKeys(s, "gold", core.Ascending)
	if len(pks) != 1 {
		t.Fatalf("gold tier has %d entries after move, want 1", len(pks))
	}
	pks, _ = ix.ByTier.PrimaryKeys(s, "silver", core.Ascending)
	if len(pks) != 1 {
		t.Fatalf("silver tier has %d entries after move, want 1", len(pks))
	}

	// Removing the primary removes its index entries.
	if err := m.Remove(s, 1); err != nil {
		t.Fatalf("remove: %v", err)
	}
	pks, _ = ix.ByTier.PrimaryKeys(s, "silver", core.Ascending)
	if len(pks) != 0 {
		t.Fatalf("orphan index entry survives primary removal")
	}
	if _, ok, _ := ix.ByOwner.PrimaryKey(s, 101); ok {
		t.Fatalf("orphan unique index entry survives primary removal")
	}
}

// TestUniqueIndexCollision verifies saving a second primary key under an
// occupied unique index value fails with a uniqueness violation and
// leaves the second primary absent.
func TestUniqueIndexCollision(t *testing.T) {
	s := freshStore(t)
	m, _ := newAccountMap()

	if err := m.Save(s, 1, account{OwnerID: 101, Tier: "gold"}); err != nil {
		t.Fatalf("save 1: %v", err)
	}
	err := m.Save(s, 2, account{OwnerID: 101, Tier: "gold"})
	if !errors.Is(err, core.ErrUniquenessViolation) {
		t.Fatalf("second save err=%v want ErrUniquenessViolation", err)
	}
	if m.Has(s, 2) {
		t.Fatalf("primary key 2 present after failed save")
	}

	// Re-saving the same primary under its own index value is not a
	// collision.
	if err := m.Save(s, 1, account{OwnerID: 101, Tier: "silver"}); err != nil {
		t.Fatalf("same-key re-save: %v", err)
	}
}
