// Package query answers read-only requests against either a committed
// backend snapshot (the externally-originated path) or the live cache
// frame of an in-progress call (the query_chain host import's reentrant
// path). Both paths share the same switch over
// core.QueryKind; only the Storage they read through differs.
package query

import (
	"fmt"
	"math"

	"github.com/cwsoftware123/cwd/core"
	"github.com/cwsoftware123/cwd/executor"
	"github.com/cwsoftware123/cwd/gas"
	"github.com/cwsoftware123/cwd/store/cache"
	"github.com/cwsoftware123/cwd/store/collections"
	"github.com/cwsoftware123/cwd/store/kv"
	"github.com/cwsoftware123/cwd/wasmvm"
)

// DefaultQueryGasLimit is the gas budget WasmSmart queries run against
// absent an operator override: effectively unbounded.
const DefaultQueryGasLimit = uint64(math.MaxUint64)

// Runtime is the read-only subset of contract execution a query needs:
// only WasmSmart ever reaches the wasm host, and only to invoke the
// query entry point.
type Runtime interface {
	Call(codeHash core.Hash, wasmBytes []byte, entryPoint string, env *wasmvm.Env, payload []byte) (*core.Response, error)
}

// Querier implements executor.Querier (the query_chain host import) and
// additionally serves the externally-originated query path the host
// engine's ABCI query hook calls.
type Querier struct {
	backend       kv.Backend
	runtime       Runtime
	gasTable      gas.Table
	queryGasLimit uint64
	appVersion    string
	block         core.BlockInfo

	// lastRoot reports the most recently committed root hash, used to
	// answer QueryInfo. Supplied as a callback rather than read directly
	// off backend because kv.Backend exposes a version but no root
	// accessor; a root is only returned by Commit — the executor is the
	// one source of truth for
	// "what did the last Commit return".
	lastRoot func() [32]byte
}

func New(backend kv.Backend, runtime Runtime, gasTable gas.Table, appVersion string, lastRoot func() [32]byte) *Querier {
	return &Querier{
		backend:       backend,
		runtime:       runtime,
		gasTable:      gasTable,
		queryGasLimit: DefaultQueryGasLimit,
		appVersion:    appVersion,
		lastRoot:      lastRoot,
	}
}

// SetQueryGasLimit overrides the default, e.g. from ChainConfig.
func (q *Querier) SetQueryGasLimit(limit uint64) {
	q.queryGasLimit = limit
}

// SetBlock records the current block, surfaced to a WasmSmart query's
// query entry point the same way it's surfaced to instantiate/execute.
// Called by cmd/chaind alongside Executor.BeginBlock.
func (q *Querier) SetBlock(block core.BlockInfo) {
	q.block = block
}

// Query answers req against the committed snapshot at version. A
// negative version selects the latest committed one; version 0 is the
// genesis commit itself.
func (q *Querier) Query(req core.QueryRequest, version int64) (core.QueryResponse, error) {
	if version < 0 {
		version = q.backend.Version()
	}
	snap, err := q.backend.Snapshot(version)
	if err != nil {
		return core.QueryResponse{}, err
	}
	s := cache.NewOverBackend(snap)
	meter := gas.NewMeter(q.gasTable, q.queryGasLimit)
	return q.dispatch(req, s, meter, version)
}

// QueryInCall answers req re-entrantly against the cache frame a call is
// currently running in, satisfying executor.Querier.
func (q *Querier) QueryInCall(req core.QueryRequest, s collections.Storage, meter *gas.Meter) (core.QueryResponse, error) {
	return q.dispatch(req, s, meter, q.backend.Version())
}

func (q *Querier) dispatch(req core.QueryRequest, s collections.Storage, meter *gas.Meter, height int64) (core.QueryResponse, error) {
	switch req.Kind {
	case core.QueryInfo:
		return core.QueryResponse{Kind: req.Kind, Info: &core.InfoResponse{
			AppVersion:      q.appVersion,
			LastBlockHeight: height,
			LastAppHash:     q.lastRoot(),
		}}, nil

	case core.QueryCodes:
		if err := meter.Consume(gas.CategoryStorageIterateStep, 1); err != nil {
			return core.QueryResponse{}, err
		}
		recs, err := executor.Codes.Range(s, core.Ascending)
		if err != nil {
			return core.QueryResponse{}, err
		}
		infos := make([]core.CodeInfo, len(recs))
		for i, r := range recs {
			infos[i] = core.CodeInfo{Hash: r.Value.Hash}
		}
		return core.QueryResponse{Kind: req.Kind, Codes: infos}, nil

	case core.QueryAccounts:
		if err := meter.Consume(gas.CategoryStorageIterateStep, 1); err != nil {
			return core.QueryResponse{}, err
		}
		recs, err := executor.Accounts.Range(s, core.Ascending)
		if err != nil {
			return core.QueryResponse{}, err
		}
		infos := make([]core.AccountInfo, len(recs))
		for i, r := range recs {
			var addr core.Address
			copy(addr[:], r.RawKeySuffix)
			infos[i] = core.AccountInfo{Address: addr, Account: r.Value}
		}
		return core.QueryResponse{Kind: req.Kind, Accounts: infos}, nil

	case core.QueryWasmRaw:
		return q.queryWasmRaw(req.WasmRaw, s, meter)

	case core.QueryWasmSmart:
		return q.queryWasmSmart(req.WasmSmart, s, meter)

	case core.QueryBankBalance:
		if req.BankBalance == nil {
			return core.QueryResponse{}, fmt.Errorf("query: bank_balance request missing payload")
		}
		if err := meter.Consume(gas.CategoryStorageRead, 1); err != nil {
			return core.QueryResponse{}, err
		}
		bal, _, err := executor.Balances.MayLoad(s, collections.AddressKey(req.BankBalance.Address))
		if err != nil {
			return core.QueryResponse{}, err
		}
		return core.QueryResponse{Kind: req.Kind, BankBalance: bal}, nil

	case core.QueryIBCClient:
		if req.IBCClient == nil {
			return core.QueryResponse{}, fmt.Errorf("query: ibc_client request missing payload")
		}
		if err := meter.Consume(gas.CategoryStorageRead, 1); err != nil {
			return core.QueryResponse{}, err
		}
		blob, err := executor.IBCClients.Load(s, collections.StringKey(req.IBCClient.ClientID))
		if err != nil {
			return core.QueryResponse{}, fmt.Errorf("query: ibc_client %s: %w", req.IBCClient.ClientID, err)
		}
		return core.QueryResponse{Kind: req.Kind, IBCClient: &blob}, nil

	default:
		return core.QueryResponse{}, fmt.Errorf("query: unknown query kind %q", req.Kind)
	}
}

func (q *Querier) queryWasmRaw(req *core.WasmRawQuery, s collections.Storage, meter *gas.Meter) (core.QueryResponse, error) {
	if req == nil {
		return core.QueryResponse{}, fmt.Errorf("query: wasm_raw request missing payload")
	}
	if err := meter.Consume(gas.CategoryStorageRead, 1); err != nil {
		return core.QueryResponse{}, err
	}
	raw, err := executor.ContractStore(s, req.Contract).Get(req.Key)
	if err != nil {
		return core.QueryResponse{}, err
	}
	return core.QueryResponse{Kind: core.QueryWasmRaw, Raw: raw}, nil
}

// queryWasmSmart instantiates the contract's query entry point read-only:
// the Env handed to the wasm host has no db_write/db_remove capability —
// it shares the same Storage, but every host import in wasmvm checks
// Env.ReadOnly and returns core.ErrHostImport for mutating calls.
func (q *Querier) queryWasmSmart(req *core.WasmSmartQuery, s collections.Storage, meter *gas.Meter) (core.QueryResponse, error) {
	if req == nil {
		return core.QueryResponse{}, fmt.Errorf("query: wasm_smart request missing payload")
	}

	acct, err := executor.Accounts.Load(s, collections.AddressKey(req.Contract))
	if err != nil {
		return core.QueryResponse{}, fmt.Errorf("query: wasm_smart: account %s: %w", req.Contract, err)
	}
	code, err := executor.Codes.Load(s, collections.HashKey(acct.CodeHash))
	if err != nil {
		return core.QueryResponse{}, fmt.Errorf("query: wasm_smart: code %s: %w", acct.CodeHash, err)
	}

	env := &wasmvm.Env{
		Contract: req.Contract,
		Block:    q.block,
		Storage:  executor.ContractStore(s, req.Contract),
		Gas:      meter,
		ReadOnly: true,
		QueryChain: func(inner core.QueryRequest) (core.QueryResponse, error) {
			if err := meter.Consume(gas.CategoryQueryChain, 1); err != nil {
				return core.QueryResponse{}, err
			}
			return q.dispatch(inner, s, meter, q.backend.Version())
		},
	}
	resp, err := q.runtime.Call(acct.CodeHash, code.Bytes, "query", env, req.Msg)
	if err != nil {
		return core.QueryResponse{}, err
	}

	return core.QueryResponse{Kind: core.QueryWasmSmart, Smart: resp.Data}, nil
}
