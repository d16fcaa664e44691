package query_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/cwsoftware123/cwd/core"
	"github.com/cwsoftware123/cwd/executor"
	"github.com/cwsoftware123/cwd/gas"
	"github.com/cwsoftware123/cwd/query"
	"github.com/cwsoftware123/cwd/store/cache"
	"github.com/cwsoftware123/cwd/store/collections"
	"github.com/cwsoftware123/cwd/store/kv"
	"github.com/cwsoftware123/cwd/wasmvm"
)

// stubRuntime answers the query entry point from a scripted function
// table, keeping querier tests free of wasmer.
type stubRuntime struct {
	queries map[core.Hash]func(env *wasmvm.Env, payload []byte) (*core.Response, error)
}

func (r *stubRuntime) Call(codeHash core.Hash, _ []byte, entryPoint string, env *wasmvm.Env, payload []byte) (*core.Response, error) {
	if entryPoint != "query" {
		return nil, fmt.Errorf("%w: unexpected entry point %q", core.ErrWasmRuntime, entryPoint)
	}
	fn, ok := r.queries[codeHash]
	if !ok {
		return nil, fmt.Errorf("%w: unknown code %s", core.ErrWasmRuntime, codeHash)
	}
	return fn(env, payload)
}

// seededState commits one code, one account, one balance, and one IBC
// client into a fresh backend, returning the pieces tests poke at.
func seededState(t *testing.T) (*kv.MemBackend, core.Hash, core.Address) {
	t.Helper()
	backend := kv.NewMemBackend()
	s := cache.NewOverBackend(backend)

	codeHash := core.HashBytes([]byte("query-wasm"))
	contract := core.DeriveAddress(core.ZeroAddress, codeHash, []byte("q"))

	if err := executor.Codes.Save(s, collections.HashKey(codeHash), core.Code{Hash: codeHash, Bytes: []byte("query-wasm")}); err != nil {
		t.Fatalf("seed code: %v", err)
	}
	if err := executor.Accounts.Save(s, collections.AddressKey(contract), core.Account{CodeHash: codeHash}); err != nil {
		t.Fatalf("seed account: %v", err)
	}
	if err := executor.Balances.Save(s, collections.AddressKey(contract), 250); err != nil {
		t.Fatalf("seed balance: %v", err)
	}
	if err := executor.IBCClients.Save(s, collections.StringKey("client-0"), core.ClientStateBlob{ClientType: "tendermint", ConsensusState: []byte("h0")}); err != nil {
		t.Fatalf("seed client: %v", err)
	}
	executor.ContractStore(s, contract).Set([]byte("greeting"), []byte("hello"))

	if err := s.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if _, _, err := backend.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	return backend, codeHash, contract
}

// TestQueryStateEnumeration covers codes, accounts, balances, and IBC
// client reads against the latest committed snapshot.
func TestQueryStateEnumeration(t *testing.T) {
	backend, codeHash, contract := seededState(t)
	q := query.New(backend, &stubRuntime{}, gas.DefaultTable(), "test-app", func() [32]byte { return [32]byte{1} })

	resp, err := q.Query(core.QueryRequest{Kind: core.QueryCodes}, -1)
	if err != nil {
		t.Fatalf("codes: %v", err)
	}
	if len(resp.Codes) != 1 || resp.Codes[0].Hash != codeHash {
		t.Fatalf("codes=%v want one entry with the seeded hash", resp.Codes)
	}

	resp, err = q.Query(core.QueryRequest{Kind: core.QueryAccounts}, -1)
	if err != nil {
		t.Fatalf("accounts: %v", err)
	}
	if len(resp.Accounts) != 1 || resp.Accounts[0].Address != contract {
		t.Fatalf("accounts=%v want the seeded contract", resp.Accounts)
	}

	resp, err = q.Query(core.QueryRequest{Kind: core.QueryBankBalance, BankBalance: &core.BankBalanceQuery{Address: contract}}, -1)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if resp.BankBalance != 250 {
		t.Fatalf("balance=%d want 250", resp.BankBalance)
	}

	resp, err = q.Query(core.QueryRequest{Kind: core.QueryIBCClient, IBCClient: &core.IBCClientQuery{ClientID: "client-0"}}, -1)
	if err != nil {
		t.Fatalf("ibc client: %v", err)
	}
	if resp.IBCClient == nil || string(resp.IBCClient.ConsensusState) != "h0" {
		t.Fatalf("ibc client=%+v", resp.IBCClient)
	}

	resp, err = q.Query(core.QueryRequest{Kind: core.QueryInfo}, -1)
	if err != nil {
		t.Fatalf("info: %v", err)
	}
	if resp.Info.AppVersion != "test-app" || resp.Info.LastAppHash != ([32]byte{1}) {
		t.Fatalf("info=%+v", resp.Info)
	}
}

// TestQueryWasmRawReadsContractNamespace verifies raw reads resolve
// inside the target contract's own namespace.
func TestQueryWasmRawReadsContractNamespace(t *testing.T) {
	backend, _, contract := seededState(t)
	q := query.New(backend, &stubRuntime{}, gas.DefaultTable(), "test-app", func() [32]byte { return [32]byte{} })

	resp, err := q.Query(core.QueryRequest{Kind: core.QueryWasmRaw, WasmRaw: &core.WasmRawQuery{Contract: contract, Key: []byte("greeting")}}, -1)
	if err != nil {
		t.Fatalf("wasm raw: %v", err)
	}
	if string(resp.Raw) != "hello" {
		t.Fatalf("raw=%q want hello", resp.Raw)
	}
}

// TestQueryWasmSmartRunsReadOnly verifies a smart query reaches the
// contract's query entry point with read-only storage scoped to the
// contract.
func TestQueryWasmSmartRunsReadOnly(t *testing.T) {
	backend, codeHash, contract := seededState(t)

	var sawReadOnly bool
	rt := &stubRuntime{queries: map[core.Hash]func(env *wasmvm.Env, payload []byte) (*core.Response, error){
		codeHash: func(env *wasmvm.Env, payload []byte) (*core.Response, error) {
			sawReadOnly = env.ReadOnly
			got, err := env.Storage.Get([]byte("greeting"))
			if err != nil {
				return nil, err
			}
			return &core.Response{Data: append(got, payload...)}, nil
		},
	}}
	q := query.New(backend, rt, gas.DefaultTable(), "test-app", func() [32]byte { return [32]byte{} })

	resp, err := q.Query(core.QueryRequest{Kind: core.QueryWasmSmart, WasmSmart: &core.WasmSmartQuery{Contract: contract, Msg: []byte("!")}}, -1)
	if err != nil {
		t.Fatalf("wasm smart: %v", err)
	}
	if string(resp.Smart) != "hello!" {
		t.Fatalf("smart=%q want hello!", resp.Smart)
	}
	if !sawReadOnly {
		t.Fatalf("smart query env was not read-only")
	}
}

// TestQueryHistoricalVersion verifies a snapshot query sees the state as
// of its version, not later commits, and an unknown version reports
// pruned.
func TestQueryHistoricalVersion(t *testing.T) {
	backend, _, contract := seededState(t)
	v0 := backend.Version()

	s := cache.NewOverBackend(backend)
	if err := executor.Balances.Save(s, collections.AddressKey(contract), 999); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if _, _, err := backend.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	q := query.New(backend, &stubRuntime{}, gas.DefaultTable(), "test-app", func() [32]byte { return [32]byte{} })

	resp, err := q.Query(core.QueryRequest{Kind: core.QueryBankBalance, BankBalance: &core.BankBalanceQuery{Address: contract}}, v0)
	if err != nil {
		t.Fatalf("historical balance: %v", err)
	}
	if resp.BankBalance != 250 {
		t.Fatalf("historical balance=%d want 250", resp.BankBalance)
	}

	resp, err = q.Query(core.QueryRequest{Kind: core.QueryBankBalance, BankBalance: &core.BankBalanceQuery{Address: contract}}, -1)
	if err != nil {
		t.Fatalf("latest balance: %v", err)
	}
	if resp.BankBalance != 999 {
		t.Fatalf("latest balance=%d want 999", resp.BankBalance)
	}

	if _, err := q.Query(core.QueryRequest{Kind: core.QueryInfo}, 42); !errors.Is(err, kv.ErrPruned) {
		t.Fatalf("unknown version err=%v want ErrPruned", err)
	}
}
