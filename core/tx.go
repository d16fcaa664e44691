package core

import "encoding/binary"

// Transaction is the unit the host engine delivers to the executor.
// Credential is opaque bytes handed to the sender account's authenticate
// entry point; the chain does not interpret it beyond passing it
// through. A typical account contract treats it as a secp256k1/r1
// signature over CanonicalSignBytes and checks it via the verify host
// imports.
type Transaction struct {
	Sender     Address   `json:"sender" yaml:"sender"`
	Credential []byte    `json:"credential" yaml:"credential"`
	Sequence   uint64    `json:"sequence" yaml:"sequence"`
	Messages   []Message `json:"messages" yaml:"messages"`
}

// AuthPayload is handed to an account's authenticate entry point:
// Credential is the transaction's opaque authentication bytes, SignBytes
// is the canonical digest the account contract is expected to have
// signed. The contract itself decides how to interpret Credential (a
// secp256k1 signature, a secp256r1 signature, a multisig bundle) by
// calling back into secp256k1_verify/secp256r1_verify.
type AuthPayload struct {
	Credential []byte `json:"credential"`
	SignBytes  Hash   `json:"sign_bytes"`
}

// CanonicalSignBytes returns the canonical digest signed by the sender:
// hash(sender ‖ messages-json ‖ chain_id ‖ sequence). It is deterministic
// because the JSON codec at the host boundary preserves field order.
func CanonicalSignBytes(tx *Transaction, chainID string, messagesJSON []byte) Hash {
	buf := make([]byte, 0, len(tx.Sender)+len(messagesJSON)+len(chainID)+8)
	buf = append(buf, tx.Sender[:]...)
	buf = append(buf, messagesJSON...)
	buf = append(buf, []byte(chainID)...)
	seq := make([]byte, 8)
	binary.BigEndian.PutUint64(seq, tx.Sequence)
	buf = append(buf, seq...)
	return HashBytes(buf)
}
