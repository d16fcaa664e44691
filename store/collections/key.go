package collections

import "encoding/binary"

// BuildKey assembles a collection storage key:
//
//	key = namespace_len(u16 BE) ‖ namespace ‖ [prefix_len(u16 BE) ‖ prefix]* ‖ last_key
//
// prefixes are intermediate composite-key segments (each length-prefixed so
// concatenation stays unambiguous and lexicographic ordering on the tuple
// is preserved); lastKey is the final segment and is written unprefixed,
// since nothing follows it in the key. An Item has no segments beyond its
// namespace, so it calls BuildKey(ns, nil, nil).
func BuildKey(namespace []byte, prefixes [][]byte, lastKey []byte) []byte {
	size := 2 + len(namespace)
	for _, p := range prefixes {
		size += 2 + len(p)
	}
	size += len(lastKey)

	out := make([]byte, 0, size)
	out = appendLenPrefixed(out, namespace)
	for _, p := range prefixes {
		out = appendLenPrefixed(out, p)
	}
	out = append(out, lastKey...)
	return out
}

func appendLenPrefixed(dst, seg []byte) []byte {
	var l [2]byte
	binary.BigEndian.PutUint16(l[:], uint16(len(seg)))
	dst = append(dst, l[:]...)
	dst = append(dst, seg...)
	return dst
}

// Key is implemented by any type usable as a Map/IndexedMap key. RawKey
// returns the key's big-endian (for fixed-width integers) or raw (for
// bytes/strings) byte encoding, which BuildKey then places as lastKey or
// as a composite prefix segment.
type Key interface {
	RawKey() []byte
}

// StringKey is a UTF-8 string key; ordering is byte-lexicographic, which
// matches Go string comparison.
type StringKey string

func (k StringKey) RawKey() []byte { return []byte(k) }

// BytesKey is a raw byte-slice key.
type BytesKey []byte

func (k BytesKey) RawKey() []byte { return k }

// U64Key is a fixed-width, big-endian uint64 key. BE encoding is what
// preserves numeric order under lexicographic comparison.
type U64Key uint64

func (k U64Key) RawKey() []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(k))
	return b
}

// U32Key is a fixed-width, big-endian uint32 key.
type U32Key uint32

func (k U32Key) RawKey() []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, uint32(k))
	return b
}

// AddressKey adapts core.Address for use as a Map/IndexedMap key.
type AddressKey [32]byte

func (k AddressKey) RawKey() []byte { return k[:] }

// HashKey adapts core.Hash for use as a Map/IndexedMap key.
type HashKey [32]byte

func (k HashKey) RawKey() []byte { return k[:] }
