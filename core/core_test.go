package core

import (
	"testing"
)

// TestHashBytesDeterministic verifies hashing is stable and
// content-sensitive.
func TestHashBytesDeterministic(t *testing.T) {
	a := HashBytes([]byte("payload"))
	b := HashBytes([]byte("payload"))
	if a != b {
		t.Fatalf("same input hashed differently")
	}
	if a == HashBytes([]byte("payload2")) {
		t.Fatalf("different inputs collided")
	}
}

// TestParseHashRoundTrip verifies hex round-trips and rejects bad input.
func TestParseHashRoundTrip(t *testing.T) {
	h := HashBytes([]byte("x"))
	parsed, err := ParseHash(h.String())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if parsed != h {
		t.Fatalf("round trip=%s want %s", parsed, h)
	}
	if _, err := ParseHash("abcd"); err == nil {
		t.Fatalf("short hash accepted")
	}
	if _, err := ParseHash("zz"); err == nil {
		t.Fatalf("non-hex hash accepted")
	}
}

// TestDeriveAddressDeterministic verifies address derivation is a pure
// function of (sender, code hash, salt) and each input matters.
func TestDeriveAddressDeterministic(t *testing.T) {
	var sender Address
	sender[0] = 1
	codeHash := HashBytes([]byte("code"))

	a1 := DeriveAddress(sender, codeHash, []byte("salt"))
	a2 := DeriveAddress(sender, codeHash, []byte("salt"))
	if a1 != a2 {
		t.Fatalf("identical inputs derived different addresses")
	}

	if a1 == DeriveAddress(sender, codeHash, []byte("salt2")) {
		t.Fatalf("salt ignored in derivation")
	}
	var other Address
	other[0] = 2
	if a1 == DeriveAddress(other, codeHash, []byte("salt")) {
		t.Fatalf("sender ignored in derivation")
	}
	if a1 == DeriveAddress(sender, HashBytes([]byte("code2")), []byte("salt")) {
		t.Fatalf("code hash ignored in derivation")
	}
}

// TestCanonicalSignBytesSensitivity verifies every signed component
// changes the digest.
func TestCanonicalSignBytesSensitivity(t *testing.T) {
	var sender Address
	sender[0] = 7
	tx := &Transaction{Sender: sender, Sequence: 1}
	msgs := []byte(`[{"kind":"transfer"}]`)

	base := CanonicalSignBytes(tx, "chain-1", msgs)
	if base != CanonicalSignBytes(tx, "chain-1", msgs) {
		t.Fatalf("digest unstable")
	}
	if base == CanonicalSignBytes(tx, "chain-2", msgs) {
		t.Fatalf("chain id not signed")
	}
	if base == CanonicalSignBytes(tx, "chain-1", []byte(`[]`)) {
		t.Fatalf("messages not signed")
	}
	bumped := &Transaction{Sender: sender, Sequence: 2}
	if base == CanonicalSignBytes(bumped, "chain-1", msgs) {
		t.Fatalf("sequence not signed")
	}
}
