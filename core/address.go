package core

// DeriveAddress computes the deterministic, content-addressable account
// address for an Instantiate message: addr = BLAKE3(sender ‖ code_hash ‖ salt).
// Re-running Instantiate with identical inputs always yields the same
// address, which is exactly what lets the executor detect and reject a
// repeat instantiation as a collision.
func DeriveAddress(sender Address, codeHash Hash, salt []byte) Address {
	buf := make([]byte, 0, len(sender)+len(codeHash)+len(salt))
	buf = append(buf, sender[:]...)
	buf = append(buf, codeHash[:]...)
	buf = append(buf, salt...)
	sum := HashBytes(buf)
	var addr Address
	copy(addr[:], sum[:])
	return addr
}
