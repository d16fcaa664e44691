package wasmvm

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"fmt"
	"math/big"

	"github.com/btcsuite/btcd/btcec/v2"
	btcecdsa "github.com/btcsuite/btcd/btcec/v2/ecdsa"

	"github.com/cwsoftware123/cwd/core"
)

// VerifySecp256k1 checks a 64-byte compact (r, s) signature over a
// 32-byte digest against a SEC1 (compressed or uncompressed) public
// key. The digest is verified as-is, never rehashed, and the signature
// is expected to already be low-S normalized.
func VerifySecp256k1(digest, sig, pubkey []byte) (bool, error) {
	if len(digest) != 32 {
		return false, fmt.Errorf("%w: secp256k1 digest must be 32 bytes, got %d", core.ErrCrypto, len(digest))
	}
	if len(sig) != 64 {
		return false, fmt.Errorf("%w: secp256k1 signature must be 64 bytes, got %d", core.ErrCrypto, len(sig))
	}

	pk, err := btcec.ParsePubKey(pubkey)
	if err != nil {
		return false, fmt.Errorf("%w: parse pubkey: %v", core.ErrCrypto, err)
	}

	var r, s btcec.ModNScalar
	if overflow := r.SetByteSlice(sig[:32]); overflow {
		return false, fmt.Errorf("%w: signature r overflows curve order", core.ErrCrypto)
	}
	if overflow := s.SetByteSlice(sig[32:]); overflow {
		return false, fmt.Errorf("%w: signature s overflows curve order", core.ErrCrypto)
	}

	signature := btcecdsa.NewSignature(&r, &s)
	return signature.Verify(digest, pk), nil
}

// VerifySecp256r1 checks an ASN.1 DER signature over a 32-byte digest
// against a 65-byte uncompressed SEC1 public key (0x04, X, Y).
// crypto/ecdsa's VerifyASN1 accepts high-S signatures, which gives the
// low-S-normalizing behavior this import needs without a second curve
// dependency for P-256.
func VerifySecp256r1(digest, sig, pubkey []byte) (bool, error) {
	if len(digest) != 32 {
		return false, fmt.Errorf("%w: secp256r1 digest must be 32 bytes, got %d", core.ErrCrypto, len(digest))
	}
	if len(pubkey) != 65 || pubkey[0] != 0x04 {
		return false, fmt.Errorf("%w: secp256r1 pubkey must be 65-byte uncompressed SEC1", core.ErrCrypto)
	}

	x := new(big.Int).SetBytes(pubkey[1:33])
	y := new(big.Int).SetBytes(pubkey[33:65])
	curve := elliptic.P256()
	if !curve.IsOnCurve(x, y) {
		return false, fmt.Errorf("%w: secp256r1 pubkey point not on curve", core.ErrCrypto)
	}

	pub := &ecdsa.PublicKey{Curve: curve, X: x, Y: y}
	return ecdsa.VerifyASN1(pub, digest, sig), nil
}
