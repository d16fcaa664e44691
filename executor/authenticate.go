package executor

import (
	"encoding/json"
	"fmt"

	"github.com/cwsoftware123/cwd/core"
	"github.com/cwsoftware123/cwd/gas"
	"github.com/cwsoftware123/cwd/store/cache"
	"github.com/cwsoftware123/cwd/store/collections"
	"github.com/cwsoftware123/cwd/wasmvm"
)

// authenticate runs tx.Sender's authenticate entry point. CheckTx opens
// a scratch cache and runs it to gate mempool admission without
// committing; DeliverTx runs it again against the
// transaction's own cache frame before dispatching tx.Messages, so a
// failed authentication aborts the transaction exactly like any other
// message failure. An account whose code exports no authenticate entry
// point is authenticated unconditionally — this is how the zero address
// and other system accounts created outside any contract's control are
// expected to behave.
func (e *Executor) authenticate(s *cache.Store, meter *gas.Meter, block core.BlockInfo, tx *core.Transaction) error {
	acct, err := Accounts.Load(s, collections.AddressKey(tx.Sender))
	if err != nil {
		return fmt.Errorf("executor: authenticate: account %s: %w", tx.Sender, err)
	}
	code, err := Codes.Load(s, collections.HashKey(acct.CodeHash))
	if err != nil {
		return fmt.Errorf("executor: authenticate: code %s: %w", acct.CodeHash, err)
	}

	hasAuth, err := e.runtime.HasExport(acct.CodeHash, code.Bytes, "authenticate")
	if err != nil {
		return err
	}
	if !hasAuth {
		return nil
	}

	messagesJSON, err := json.Marshal(tx.Messages)
	if err != nil {
		return fmt.Errorf("executor: authenticate: encode messages: %w", err)
	}
	signBytes := core.CanonicalSignBytes(tx, e.cfg.ChainID, messagesJSON)

	payload, err := json.Marshal(core.AuthPayload{Credential: tx.Credential, SignBytes: signBytes})
	if err != nil {
		return fmt.Errorf("executor: authenticate: encode payload: %w", err)
	}

	env := &wasmvm.Env{
		Contract:   tx.Sender,
		Sender:     tx.Sender,
		Block:      block,
		Storage:    ContractStore(s, tx.Sender),
		Gas:        meter,
		QueryChain: e.queryChainFunc(s, meter),
	}
	if _, err := e.runtime.Call(acct.CodeHash, code.Bytes, "authenticate", env, payload); err != nil {
		return fmt.Errorf("executor: authenticate: %s: %w", tx.Sender, err)
	}
	return nil
}
