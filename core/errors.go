package core

import "errors"

// Error taxonomy shared across the executor, storage, and wasm host.
// Every non-fatal error returned across a package boundary should wrap one
// of these via fmt.Errorf("...: %w", err) so callers can classify failures
// with errors.Is regardless of which layer raised them.
var (
	ErrNotFound            = errors.New("not found")
	ErrParseOrDecode       = errors.New("parse or decode error")
	ErrCodec               = errors.New("codec error")
	ErrUniquenessViolation = errors.New("uniqueness violation")
	ErrAddressCollision    = errors.New("address collision")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrOutOfGas            = errors.New("out of gas")
	ErrWasmCompile         = errors.New("wasm compile error")
	ErrWasmInstantiate     = errors.New("wasm instantiate error")
	ErrWasmRuntime         = errors.New("wasm runtime error")
	ErrHostImport          = errors.New("host import error")
	ErrCrypto              = errors.New("crypto error")
	ErrIteratorNotFound    = errors.New("iterator not found")
	ErrRegionTooSmall      = errors.New("region too small")
	ErrPruned              = errors.New("version pruned")
)

// InvariantViolation is fatal: the state machine has diverged from its
// contract. Callers that observe one must stop driving the executor and
// halt the process rather than attempt to recover.
type InvariantViolation struct {
	Reason string
}

func (e *InvariantViolation) Error() string {
	return "invariant violation: " + e.Reason
}
