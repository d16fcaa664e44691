// Package executor drives the block lifecycle and message dispatch:
// InitChain, BeginBlock, DeliverTx, EndBlock, Commit, each gated by the
// Phase state machine, plus CheckTx, which runs in any phase, with all
// seven message kinds
// dispatched atomically against a stacked store/cache.Store frame so a
// failure anywhere in a transaction rolls the whole transaction back
// without touching the block-scoped cache.
package executor

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/cwsoftware123/cwd/core"
	"github.com/cwsoftware123/cwd/gas"
	"github.com/cwsoftware123/cwd/store/cache"
	"github.com/cwsoftware123/cwd/store/collections"
	"github.com/cwsoftware123/cwd/store/kv"
	"github.com/cwsoftware123/cwd/wasmvm"
)

// Runtime is the contract execution capability the executor depends on.
// *wasmvm.Host satisfies it; tests inject a stub that never touches
// wasmer, keeping dispatch/sub-message logic testable without a real
// wasm binary.
type Runtime interface {
	Call(codeHash core.Hash, wasmBytes []byte, entryPoint string, env *wasmvm.Env, payload []byte) (*core.Response, error)
	ValidateExports(codeHash core.Hash, wasmBytes []byte) error
	HasExport(codeHash core.Hash, wasmBytes []byte, name string) (bool, error)
}

// Querier answers a contract's query_chain host import while a call is
// in progress, re-entrantly, against the same cache frame the call is
// running in rather than the last committed snapshot. *query.Querier
// satisfies it; like Runtime, the interface lives here so query can
// depend on executor's shared collection namespaces without a cycle.
type Querier interface {
	QueryInCall(req core.QueryRequest, s collections.Storage, meter *gas.Meter) (core.QueryResponse, error)
}

// ChainConfig is the executor's process-lifetime configuration, loaded
// once at startup and never re-derived per transaction.
type ChainConfig struct {
	ChainID             string
	GasTable            gas.Table
	DefaultTxGasLimit   uint64
	QueryGasLimit       uint64
	HistoricalRetention int64
}

// DefaultChainConfig returns sane defaults for a chain booted without
// operator overrides.
func DefaultChainConfig(chainID string) ChainConfig {
	return ChainConfig{
		ChainID:             chainID,
		GasTable:            gas.DefaultTable(),
		DefaultTxGasLimit:   10_000_000,
		QueryGasLimit:       ^uint64(0),
		HistoricalRetention: 100,
	}
}

// Executor is the single-writer state transition machine the host
// consensus engine drives.
type Executor struct {
	cfg     ChainConfig
	backend kv.Backend
	runtime Runtime
	querier Querier

	phase      Phase
	block      core.BlockInfo
	blockCache *cache.Store

	log *logrus.Entry
}

func New(cfg ChainConfig, backend kv.Backend, runtime Runtime) *Executor {
	return &Executor{
		cfg:     cfg,
		backend: backend,
		runtime: runtime,
		phase:   PhaseIdle,
		log:     logrus.WithField("component", "executor"),
	}
}

// SetQuerier wires the query_chain host import's backing implementation.
// Split from New because the query package's *query.Querier itself takes
// the executor's backend as a constructor argument — the two are wired
// together by the caller (cmd/chaind) after both are constructed.
func (e *Executor) SetQuerier(q Querier) {
	e.querier = q
}

func (e *Executor) requirePhase(want Phase) {
	if e.phase != want {
		panic(&core.InvariantViolation{Reason: fmt.Sprintf("executor: expected phase %s, got %s", want, e.phase)})
	}
}

// InitChain applies the genesis messages atomically against a fresh
// cache frame and commits once: any message failure aborts before the
// cache is ever flushed to the backend.
func (e *Executor) InitChain(block core.BlockInfo, sender core.Address, messages []core.Message) ([32]byte, error) {
	e.requirePhase(PhaseIdle)

	c := cache.NewOverBackend(e.backend)
	meter := gas.NewMeter(e.cfg.GasTable, e.cfg.DefaultTxGasLimit*uint64(len(messages)+1))

	for i, msg := range messages {
		if _, _, err := e.dispatch(c, meter, block, sender, msg); err != nil {
			return [32]byte{}, fmt.Errorf("executor: init_chain message %d: %w", i, err)
		}
	}

	if err := c.Flush(); err != nil {
		return [32]byte{}, err
	}
	root, _, err := e.backend.Commit()
	if err != nil {
		return [32]byte{}, err
	}
	e.phase = PhaseCommitted
	e.block = block
	return root, nil
}

// BeginBlock opens the block-scoped cache frame transactions accumulate
// into over the course of the block.
func (e *Executor) BeginBlock(block core.BlockInfo) {
	e.requirePhase(PhaseCommitted)
	e.block = block
	e.blockCache = cache.NewOverBackend(e.backend)
	e.phase = PhaseInBlock
}

// CheckTx stateless-validates tx against the last committed state,
// mutating nothing: its cache frame is always discarded, whether the
// dispatch succeeds or fails.
func (e *Executor) CheckTx(tx *core.Transaction) error {
	c := cache.NewOverBackend(e.backend)
	meter := gas.NewMeter(e.cfg.GasTable, e.cfg.DefaultTxGasLimit)

	if err := e.authenticate(c, meter, e.block, tx); err != nil {
		return err
	}

	for _, msg := range tx.Messages {
		if _, _, err := e.dispatch(c, meter, e.block, tx.Sender, msg); err != nil {
			return err
		}
	}
	return nil
}

// DeliverTx dispatches every message in tx within its own nested cache
// frame; a failure discards that frame and leaves the block cache
// untouched, so a failed transaction never partially applies. The
// consumed-gas counter is the one artifact a failed transaction still
// reports.
func (e *Executor) DeliverTx(tx *core.Transaction) ([]core.Event, uint64, error) {
	e.requirePhase(PhaseInBlock)

	txCache := e.blockCache.Begin()
	meter := gas.NewMeter(e.cfg.GasTable, e.cfg.DefaultTxGasLimit)

	if err := e.authenticate(txCache, meter, e.block, tx); err != nil {
		txCache.Discard()
		return nil, meter.Used(), fmt.Errorf("executor: deliver_tx: %w", err)
	}

	var events []core.Event
	for i, msg := range tx.Messages {
		_, msgEvents, err := e.dispatch(txCache, meter, e.block, tx.Sender, msg)
		if err != nil {
			txCache.Discard()
			return nil, meter.Used(), fmt.Errorf("executor: deliver_tx message %d: %w", i, err)
		}
		events = append(events, msgEvents...)
	}

	txCache.CommitFrame()
	return events, meter.Used(), nil
}

// EndBlock is a no-op hook in this core (fee distribution, validator
// updates, and other end-of-block concerns belong to a collaborator
// layered above it), kept as an explicit phase-checked step so the host
// engine's call sequence is enforced regardless.
func (e *Executor) EndBlock() {
	e.requirePhase(PhaseInBlock)
}

// Commit flushes the block cache to the backend and advances the
// committed version.
func (e *Executor) Commit() ([32]byte, int64, error) {
	e.requirePhase(PhaseInBlock)

	if err := e.blockCache.Flush(); err != nil {
		return [32]byte{}, 0, err
	}
	root, version, err := e.backend.Commit()
	if err != nil {
		return [32]byte{}, 0, err
	}
	e.blockCache = nil
	e.phase = PhaseCommitted
	e.log.WithFields(logrus.Fields{"height": e.block.Height, "version": version}).Info("committed block")
	return root, version, nil
}
