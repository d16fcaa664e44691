// Package merkle implements the authenticated index over the KV
// backend: a balanced binary hash tree over the full (key, value) leaf
// set, hashed with BLAKE3 to match the chain's content-addressing
// scheme (core.HashBytes). The root depends only on the leaf set, never
// on the order leaves were inserted in, and inclusion proofs are
// logarithmic in the leaf count.
package merkle

import (
	"sort"

	"github.com/cwsoftware123/cwd/core"
)

// Tree is a balanced binary Merkle tree over a set of (key, value) leaves,
// rebuilt deterministically from its sorted leaf set on every Root() call.
// It is not thread-safe; callers serialize access (MemBackend holds its
// own lock around Tree operations; BoltBackend takes no lock).
type Tree struct {
	leaves map[string][]byte
}

// NewTree returns an empty tree.
func NewTree() *Tree {
	return &Tree{leaves: make(map[string][]byte)}
}

// Set upserts a leaf.
func (t *Tree) Set(key, value []byte) {
	v := make([]byte, len(value))
	copy(v, value)
	t.leaves[string(key)] = v
}

// Remove deletes a leaf if present.
func (t *Tree) Remove(key []byte) {
	delete(t.leaves, string(key))
}

// Get returns a leaf's current value.
func (t *Tree) Get(key []byte) ([]byte, bool) {
	v, ok := t.leaves[string(key)]
	return v, ok
}

// Root computes the tree's root hash. The root depends only on the
// current (key, value) set, never on the order operations were applied
// in — the leaf slice is always derived by sorting keys first.
func (t *Tree) Root() [32]byte {
	if len(t.leaves) == 0 {
		return core.HashBytes(nil)
	}
	keys := make([]string, 0, len(t.leaves))
	for k := range t.leaves {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	level := make([][32]byte, len(keys))
	for i, k := range keys {
		level[i] = leafHash(k, t.leaves[k])
	}

	for len(level) > 1 {
		if len(level)%2 == 1 {
			level = append(level, level[len(level)-1])
		}
		next := make([][32]byte, len(level)/2)
		for i := 0; i < len(level); i += 2 {
			pair := append(append([]byte{}, level[i][:]...), level[i+1][:]...)
			next[i/2] = core.HashBytes(pair)
		}
		level = next
	}
	return level[0]
}

func leafHash(key string, value []byte) [32]byte {
	buf := make([]byte, 0, len(key)+len(value)+1)
	buf = append(buf, []byte(key)...)
	buf = append(buf, 0)
	buf = append(buf, value...)
	return core.HashBytes(buf)
}

// Prove builds an inclusion proof for key against the tree's current
// leaf set. It returns false if the key is not a leaf.
func (t *Tree) Prove(key []byte) (Proof, bool) {
	if _, ok := t.leaves[string(key)]; !ok {
		return Proof{}, false
	}
	keys := make([]string, 0, len(t.leaves))
	for k := range t.leaves {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	idx := sort.SearchStrings(keys, string(key))
	level := make([][32]byte, len(keys))
	for i, k := range keys {
		level[i] = leafHash(k, t.leaves[k])
	}

	proof := Proof{Key: append([]byte(nil), key...)}
	for depth := 0; len(level) > 1; depth++ {
		if len(level)%2 == 1 {
			level = append(level, level[len(level)-1])
		}
		sib := idx ^ 1
		proof.Siblings = append(proof.Siblings, level[sib])
		if idx%2 == 1 {
			proof.LeftMask |= 1 << uint(depth)
		}
		next := make([][32]byte, len(level)/2)
		for i := 0; i < len(level); i += 2 {
			pair := append(append([]byte{}, level[i][:]...), level[i+1][:]...)
			next[i/2] = core.HashBytes(pair)
		}
		level = next
		idx /= 2
	}
	return proof, true
}

// Proof is an inclusion proof for a single leaf, ordered leaf-to-root.
type Proof struct {
	Key      []byte
	Siblings [][32]byte
	// LeftMask has bit i set when Siblings[i] is the left operand of the
	// i'th hash combination (i.e. the leaf/accumulated hash was the
	// right operand at that level).
	LeftMask uint64
}

// VerifyProof recomputes the root from a leaf and proof and compares it
// to want.
func VerifyProof(want [32]byte, key, value []byte, proof Proof) bool {
	h := leafHash(string(key), value)
	for i, sib := range proof.Siblings {
		var pair []byte
		if proof.LeftMask&(1<<uint(i)) != 0 {
			pair = append(append([]byte{}, sib[:]...), h[:]...)
		} else {
			pair = append(append([]byte{}, h[:]...), sib[:]...)
		}
		h = core.HashBytes(pair)
	}
	return h == want
}
