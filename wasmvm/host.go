// Package wasmvm loads and executes wasm contract code inside a
// sandboxed wasmer-go instance: the Region memory-handoff ABI, the host
// import surface, a module cache, and the two signature schemes host
// imports verify.
//
// Entry-point calling convention: every contract export used here
// (instantiate/execute/migrate/query/reply) has the uniform signature
//
//	fn(env_ptr, payload_ptr, out_ptr i32) -> i32 status
//
// env_ptr and payload_ptr point to Region headers the host fills with
// JSON before the call (host-owned, host-sized exactly to the payload);
// out_ptr points to a Region the host pre-allocates with a generous
// capacity for the contract to fill with its JSON-encoded result via the
// same guest-owned-buffer convention db_read uses. status is 0 on
// success, nonzero if the contract trapped logically rather than via a
// wasm trap.
package wasmvm

import (
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/wasmerio/wasmer-go/wasmer"

	"github.com/cwsoftware123/cwd/core"
	"github.com/cwsoftware123/cwd/gas"
	"github.com/cwsoftware123/cwd/store/collections"
)

// requiredExports are the entry points every piece of stored code must
// export; migrate/reply/query/authenticate are optional and only
// invoked if present. Presence is checked against an instantiated
// Exports registry rather than the not-yet-instantiated Module, since
// wasmer-go only exposes export lookup by name on an Instance.
var requiredExports = []string{"instantiate", "execute"}

const defaultOutCapacity = 1 << 20 // 1 MiB scratch buffer for entry-point results
const wasmPageSize = 65536

// invocationFuelUnits is the opcode budget pre-charged before every entry
// point call. wasmer-go exposes no per-opcode metering hook, so the fuel
// half of the gas model is a fixed up-front budget per invocation,
// trued up by the per-import charges each host call adds on top. The
// charge is the same for every invocation, which keeps replay
// deterministic.
const invocationFuelUnits = 100_000

// Env is the per-call execution environment handed to a contract
// invocation.
type Env struct {
	Contract   core.Address
	Sender     core.Address
	Block      core.BlockInfo
	Storage    collections.Storage
	Gas        *gas.Meter
	QueryChain func(core.QueryRequest) (core.QueryResponse, error)
	ReadOnly   bool
}

type envJSON struct {
	Contract core.Address   `json:"contract"`
	Sender   core.Address   `json:"sender"`
	Block    core.BlockInfo `json:"block"`
}

// Host owns the wasmer engine, a single store shared by every compiled
// module and instance (wasmer-go ties imported wasmer.Function values to
// the store they were created with, so instantiation must reuse it), and
// the module cache.
type Host struct {
	engine *wasmer.Engine
	store  *wasmer.Store
	cache  *ModuleCache
}

// NewHost constructs a Host whose module cache is sized from a megabyte
// budget (wasm_cache_size_mb, passed in by the caller; ChainConfig does
// not carry it).
func NewHost(cacheSizeMB uint64) (*Host, error) {
	engine := wasmer.NewEngine()
	store := wasmer.NewStore(engine)
	cache, err := NewModuleCache(store, cacheSizeMB)
	if err != nil {
		return nil, err
	}
	return &Host{engine: engine, store: store, cache: cache}, nil
}

// LoadModule compiles (or fetches from cache) the module for codeHash.
func (h *Host) LoadModule(codeHash core.Hash, wasmBytes []byte) (*wasmer.Module, error) {
	mod, err := h.cache.GetOrCompile(codeHash, wasmBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrWasmCompile, err)
	}
	return mod, nil
}

// bareInstantiate builds a throwaway instance purely to inspect its
// Exports registry (HasExport) or to validate required exports
// (ValidateExports) without running any guest code.
func (h *Host) bareInstantiate(mod *wasmer.Module) (*wasmer.Instance, error) {
	cs := &callState{iterators: make(map[uint32]*openIterator), nextHandle: 1}
	imports := registerHost(h.store, cs)
	instance, err := wasmer.NewInstance(mod, imports)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrWasmInstantiate, err)
	}
	return instance, nil
}

// ValidateExports checks that codeHash's module exports every entry
// point a contract is required to have, per requiredExports. Called once
// at store_code time so a malformed contract is rejected before any
// account ever instantiates it.
func (h *Host) ValidateExports(codeHash core.Hash, wasmBytes []byte) error {
	mod, err := h.LoadModule(codeHash, wasmBytes)
	if err != nil {
		return err
	}
	instance, err := h.bareInstantiate(mod)
	if err != nil {
		return err
	}
	defer instance.Close()

	for _, name := range requiredExports {
		if _, err := instance.Exports.GetFunction(name); err != nil {
			return fmt.Errorf("%w: missing required export %q", core.ErrWasmCompile, name)
		}
	}
	return nil
}

// EvictModule drops codeHash from the cache, used when migrating code
// away makes it unlikely to be re-instantiated soon.
func (h *Host) EvictModule(codeHash core.Hash) {
	h.cache.Evict(codeHash)
}

// Call instantiates a fresh wasmer.Instance for a single invocation and
// invokes entryPoint with env and payload JSON-encoded onto the guest
// heap. A fresh instance per call keeps calls hermetic: no linear
// memory leaks between a rejected call and the next one sharing the
// same compiled module.
func (h *Host) Call(codeHash core.Hash, wasmBytes []byte, entryPoint string, env *Env, payload []byte) (*core.Response, error) {
	mod, err := h.LoadModule(codeHash, wasmBytes)
	if err != nil {
		return nil, err
	}

	if err := env.Gas.Consume(gas.CategoryWasmFuelUnit, invocationFuelUnits); err != nil {
		return nil, err
	}

	cs := &callState{
		storage:    env.Storage,
		gasMeter:   env.Gas,
		env:        env,
		iterators:  make(map[uint32]*openIterator),
		nextHandle: 1,
	}
	imports := registerHost(h.store, cs)

	instance, err := wasmer.NewInstance(mod, imports)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrWasmInstantiate, err)
	}
	defer instance.Close()

	mem, err := instance.Exports.GetMemory("memory")
	if err != nil {
		return nil, fmt.Errorf("%w: memory export missing", core.ErrWasmInstantiate)
	}
	cs.mem = mem

	entryFn, err := instance.Exports.GetFunction(entryPoint)
	if err != nil {
		return nil, fmt.Errorf("%w: entry point %q not exported", core.ErrWasmRuntime, entryPoint)
	}

	envBytes, err := json.Marshal(envJSON{Contract: env.Contract, Sender: env.Sender, Block: env.Block})
	if err != nil {
		return nil, fmt.Errorf("%w: encode env: %v", core.ErrWasmRuntime, err)
	}

	envPtr, err := cs.allocAndWrite(envBytes)
	if err != nil {
		return nil, err
	}
	payloadPtr, err := cs.allocAndWrite(payload)
	if err != nil {
		return nil, err
	}
	outPtr, err := cs.allocScratch(defaultOutCapacity)
	if err != nil {
		return nil, err
	}

	ret, err := entryFn(int32(envPtr), int32(payloadPtr), int32(outPtr))
	for _, msg := range cs.debugLogs {
		logrus.WithFields(logrus.Fields{"component": "wasmvm", "contract": env.Contract}).Debug(msg)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrWasmRuntime, err)
	}
	if cs.fatal != nil {
		return nil, cs.fatal
	}
	status, ok := ret.(int32)
	if !ok {
		return nil, fmt.Errorf("%w: entry point returned non-i32", core.ErrWasmRuntime)
	}

	out, rerr := readRegionData(cs.mem, outPtr)
	if rerr != nil {
		return nil, fmt.Errorf("%w: read result region: %v", core.ErrWasmRuntime, rerr)
	}
	wipeRegion(cs.mem, outPtr)
	if status != 0 {
		return nil, fmt.Errorf("%w: %s", core.ErrWasmRuntime, string(out))
	}

	var resp core.Response
	if err := json.Unmarshal(out, &resp); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", core.ErrParseOrDecode, err)
	}
	return &resp, nil
}

// HasExport reports whether codeHash's module exports name, used by the
// executor to decide whether an optional entry point (migrate, reply,
// query) applies before attempting the call.
func (h *Host) HasExport(codeHash core.Hash, wasmBytes []byte, name string) (bool, error) {
	mod, err := h.LoadModule(codeHash, wasmBytes)
	if err != nil {
		return false, err
	}
	instance, err := h.bareInstantiate(mod)
	if err != nil {
		return false, err
	}
	defer instance.Close()

	_, err = instance.Exports.GetFunction(name)
	return err == nil, nil
}
