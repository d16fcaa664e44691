// Package core holds the data model shared by every layer of the chain:
// addresses, hashes, block and transaction envelopes, the message union,
// and the response/event shapes a contract hands back to the executor.
package core

import (
	"encoding/hex"
	"errors"

	"lukechampine.com/blake3"
)

// Hash is a 32-byte BLAKE3 digest, used for code identity, block identity
// and signing digests.
type Hash [32]byte

// HashBytes returns the BLAKE3 digest of b.
func HashBytes(b []byte) Hash {
	return Hash(blake3.Sum256(b))
}

func (h Hash) String() string  { return hex.EncodeToString(h[:]) }
func (h Hash) Bytes() []byte   { return h[:] }
func (h Hash) IsZero() bool    { return h == Hash{} }

// ParseHash decodes a hex string into a Hash.
func ParseHash(s string) (Hash, error) {
	var h Hash
	b, err := hex.DecodeString(s)
	if err != nil {
		return h, err
	}
	if len(b) != len(h) {
		return h, errors.New("core: hash must be 32 bytes")
	}
	copy(h[:], b)
	return h, nil
}

// Address is a fixed 32-byte, content-addressable account identifier.
type Address [32]byte

func (a Address) String() string { return hex.EncodeToString(a[:]) }
func (a Address) Bytes() []byte  { return a[:] }
func (a Address) IsZero() bool   { return a == Address{} }

// ZeroAddress is the sender of record for genesis messages.
var ZeroAddress Address

// ParseAddress decodes a hex string into an Address.
func ParseAddress(s string) (Address, error) {
	var a Address
	b, err := hex.DecodeString(s)
	if err != nil {
		return a, err
	}
	if len(b) != len(a) {
		return a, errors.New("core: address must be 32 bytes")
	}
	copy(a[:], b)
	return a, nil
}

// BlockInfo is pinned at begin-block and immutable within the block.
type BlockInfo struct {
	ChainID   string `json:"chain_id" yaml:"chain_id"`
	Height    int64  `json:"height" yaml:"height"`
	Timestamp int64  `json:"timestamp" yaml:"timestamp"` // unix seconds
}

// Record is the unit of iteration over a key-value range.
type Record struct {
	Key   []byte
	Value []byte
}

// Order selects ascending or descending iteration.
type Order int

const (
	Ascending Order = iota
	Descending
)

// Account is the on-chain record for a wasm-backed account.
type Account struct {
	CodeHash Hash     `json:"code_hash" yaml:"code_hash"`
	Admin    *Address `json:"admin,omitempty" yaml:"admin,omitempty"`
}

// Code is an immutable wasm byte-blob, indexed by its hash.
type Code struct {
	Hash  Hash   `json:"hash" yaml:"hash"`
	Bytes []byte `json:"bytes" yaml:"bytes"`
}
