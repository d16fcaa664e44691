package wasmvm

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/wasmerio/wasmer-go/wasmer"

	"github.com/cwsoftware123/cwd/core"
	"github.com/cwsoftware123/cwd/gas"
	"github.com/cwsoftware123/cwd/store/collections"
)

// openIterator pairs a live collections.Iterator with the uuid it was
// minted under. The uuid stays host-side; the i32 ABI only ever exposes
// the compact handle it is filed under in the per-call table, and errors
// name that handle.
type openIterator struct {
	id uuid.UUID
	it collections.Iterator
}

// callState is the per-invocation host context every registered import
// closes over: guest memory, the storage scope, the gas meter, and the
// iterator table live and die with a single entry-point call.
type callState struct {
	mem       *wasmer.Memory
	storage   collections.Storage
	gasMeter  *gas.Meter
	env       *Env
	debugLogs []string

	iterators  map[uint32]*openIterator
	nextHandle uint32

	// fatal is set by an import that hit an unrecoverable host-side error
	// (as opposed to a well-formed negative status the guest can branch
	// on) and checked by Host.Call after the entry point returns.
	fatal error
}

func (cs *callState) growAndReserve(need uint32) (uint32, error) {
	mem := cs.mem
	before := uint32(len(mem.Data()))
	total := regionSize + need
	pages := (total + wasmPageSize - 1) / wasmPageSize
	if pages == 0 {
		pages = 1
	}
	if ok := mem.Grow(wasmer.Pages(pages)); !ok {
		return 0, fmt.Errorf("%w: grow guest memory", core.ErrWasmRuntime)
	}
	return before, nil
}

// allocAndWrite reserves guest memory, writes data immediately after a
// Region header describing it, and returns the header's pointer.
func (cs *callState) allocAndWrite(data []byte) (uint32, error) {
	ptr, err := cs.growAndReserve(uint32(len(data)))
	if err != nil {
		return 0, err
	}
	offset := ptr + regionSize
	copy(cs.mem.Data()[offset:], data)
	if err := writeRegionHeader(cs.mem, ptr, Region{Offset: offset, Capacity: uint32(len(data)), Length: uint32(len(data))}); err != nil {
		return 0, err
	}
	return ptr, nil
}

// allocScratch reserves an empty guest buffer of the given capacity for
// the guest to fill (the out_ptr convention entry points use for
// results, and db_read/query_chain use for their outputs).
func (cs *callState) allocScratch(capacity uint32) (uint32, error) {
	ptr, err := cs.growAndReserve(capacity)
	if err != nil {
		return 0, err
	}
	offset := ptr + regionSize
	if err := writeRegionHeader(cs.mem, ptr, Region{Offset: offset, Capacity: capacity, Length: 0}); err != nil {
		return 0, err
	}
	return ptr, nil
}

// Status codes returned by host imports to the guest. Negative values
// are always errors; the guest branches on sign, not on value.
const (
	statusOK             int32 = 0
	statusNotFound       int32 = 1
	statusIteratorDone   int32 = 1
	statusFalse          int32 = 1
	statusError          int32 = -1
	statusRegionTooSmall int32 = -2
)

func i32Params(n int) []wasmer.ValueKind {
	out := make([]wasmer.ValueKind, n)
	for i := range out {
		out[i] = wasmer.ValueKind(wasmer.I32)
	}
	return out
}

func fn(store *wasmer.Store, paramCount, resultCount int, body func(args []wasmer.Value) ([]wasmer.Value, error)) *wasmer.Function {
	return wasmer.NewFunction(
		store,
		wasmer.NewFunctionType(wasmer.NewValueTypes(i32Params(paramCount)...), wasmer.NewValueTypes(i32Params(resultCount)...)),
		body,
	)
}

// registerHost builds the "env" import namespace a contract links
// against: db_read, db_write, db_remove, db_scan, db_next, query_chain,
// secp256k1_verify, secp256r1_verify, debug. One wasmer.NewFunction per
// import, all closing over the same callState.
func registerHost(store *wasmer.Store, cs *callState) *wasmer.ImportObject {
	imports := wasmer.NewImportObject()

	chargeImport := func() error {
		return cs.gasMeter.Consume(gas.CategoryHostImportBase, 1)
	}

	dbRead := fn(store, 2, 1, func(args []wasmer.Value) ([]wasmer.Value, error) {
		keyPtr, outPtr := uint32(args[0].I32()), uint32(args[1].I32())
		if err := chargeImport(); err != nil {
			return []wasmer.Value{wasmer.NewI32(statusError)}, nil
		}
		key, err := readRegionData(cs.mem, keyPtr)
		if err != nil {
			cs.fatal = err
			return []wasmer.Value{wasmer.NewI32(statusError)}, nil
		}
		if err := cs.gasMeter.Consume(gas.CategoryStorageRead, 1); err != nil {
			return []wasmer.Value{wasmer.NewI32(statusError)}, nil
		}
		val, err := cs.storage.Get(key)
		if err != nil {
			if errors.Is(err, core.ErrNotFound) {
				return []wasmer.Value{wasmer.NewI32(statusNotFound)}, nil
			}
			cs.fatal = err
			return []wasmer.Value{wasmer.NewI32(statusError)}, nil
		}
		if err := writeRegionData(cs.mem, outPtr, val); err != nil {
			if errors.Is(err, core.ErrRegionTooSmall) {
				return []wasmer.Value{wasmer.NewI32(statusRegionTooSmall)}, nil
			}
			cs.fatal = err
			return []wasmer.Value{wasmer.NewI32(statusError)}, nil
		}
		return []wasmer.Value{wasmer.NewI32(statusOK)}, nil
	})

	dbWrite := fn(store, 2, 1, func(args []wasmer.Value) ([]wasmer.Value, error) {
		keyPtr, valPtr := uint32(args[0].I32()), uint32(args[1].I32())
		if err := chargeImport(); err != nil {
			return []wasmer.Value{wasmer.NewI32(statusError)}, nil
		}
		key, err := readRegionData(cs.mem, keyPtr)
		if err != nil {
			cs.fatal = err
			return []wasmer.Value{wasmer.NewI32(statusError)}, nil
		}
		val, err := readRegionData(cs.mem, valPtr)
		if err != nil {
			cs.fatal = err
			return []wasmer.Value{wasmer.NewI32(statusError)}, nil
		}
		if cs.env.ReadOnly {
			cs.fatal = fmt.Errorf("%w: db_write called in a read-only call", core.ErrHostImport)
			return []wasmer.Value{wasmer.NewI32(statusError)}, nil
		}
		if err := cs.gasMeter.Consume(gas.CategoryStorageWrite, 1); err != nil {
			return []wasmer.Value{wasmer.NewI32(statusError)}, nil
		}
		cs.storage.Set(key, val)
		return []wasmer.Value{wasmer.NewI32(statusOK)}, nil
	})

	dbRemove := fn(store, 1, 1, func(args []wasmer.Value) ([]wasmer.Value, error) {
		keyPtr := uint32(args[0].I32())
		if err := chargeImport(); err != nil {
			return []wasmer.Value{wasmer.NewI32(statusError)}, nil
		}
		key, err := readRegionData(cs.mem, keyPtr)
		if err != nil {
			cs.fatal = err
			return []wasmer.Value{wasmer.NewI32(statusError)}, nil
		}
		if cs.env.ReadOnly {
			cs.fatal = fmt.Errorf("%w: db_remove called in a read-only call", core.ErrHostImport)
			return []wasmer.Value{wasmer.NewI32(statusError)}, nil
		}
		if err := cs.gasMeter.Consume(gas.CategoryStorageRemove, 1); err != nil {
			return []wasmer.Value{wasmer.NewI32(statusError)}, nil
		}
		cs.storage.Delete(key)
		return []wasmer.Value{wasmer.NewI32(statusOK)}, nil
	})

	dbScan := fn(store, 3, 1, func(args []wasmer.Value) ([]wasmer.Value, error) {
		startPtr, endPtr, orderArg := uint32(args[0].I32()), uint32(args[1].I32()), args[2].I32()
		if err := chargeImport(); err != nil {
			return []wasmer.Value{wasmer.NewI32(statusError)}, nil
		}
		var start, end []byte
		var err error
		if startPtr != 0 {
			if start, err = readRegionData(cs.mem, startPtr); err != nil {
				cs.fatal = err
				return []wasmer.Value{wasmer.NewI32(statusError)}, nil
			}
		}
		if endPtr != 0 {
			if end, err = readRegionData(cs.mem, endPtr); err != nil {
				cs.fatal = err
				return []wasmer.Value{wasmer.NewI32(statusError)}, nil
			}
		}
		order := core.Ascending
		if orderArg != 0 {
			order = core.Descending
		}
		it := cs.storage.Iterator(start, end, order)
		handle := cs.nextHandle
		cs.nextHandle++
		cs.iterators[handle] = &openIterator{id: uuid.New(), it: it}
		return []wasmer.Value{wasmer.NewI32(int32(handle))}, nil
	})

	dbNext := fn(store, 3, 1, func(args []wasmer.Value) ([]wasmer.Value, error) {
		handle := uint32(args[0].I32())
		keyOutPtr, valOutPtr := uint32(args[1].I32()), uint32(args[2].I32())
		if err := chargeImport(); err != nil {
			return []wasmer.Value{wasmer.NewI32(statusError)}, nil
		}
		entry, ok := cs.iterators[handle]
		if !ok {
			cs.fatal = fmt.Errorf("%w: handle %d", core.ErrIteratorNotFound, handle)
			return []wasmer.Value{wasmer.NewI32(statusError)}, nil
		}
		if err := cs.gasMeter.Consume(gas.CategoryStorageIterateStep, 1); err != nil {
			return []wasmer.Value{wasmer.NewI32(statusError)}, nil
		}
		if !entry.it.Next() {
			if err := entry.it.Error(); err != nil {
				cs.fatal = err
				return []wasmer.Value{wasmer.NewI32(statusError)}, nil
			}
			entry.it.Close()
			delete(cs.iterators, handle)
			return []wasmer.Value{wasmer.NewI32(statusIteratorDone)}, nil
		}
		if err := writeRegionData(cs.mem, keyOutPtr, entry.it.Key()); err != nil {
			if errors.Is(err, core.ErrRegionTooSmall) {
				return []wasmer.Value{wasmer.NewI32(statusRegionTooSmall)}, nil
			}
			cs.fatal = err
			return []wasmer.Value{wasmer.NewI32(statusError)}, nil
		}
		if err := writeRegionData(cs.mem, valOutPtr, entry.it.Value()); err != nil {
			if errors.Is(err, core.ErrRegionTooSmall) {
				return []wasmer.Value{wasmer.NewI32(statusRegionTooSmall)}, nil
			}
			cs.fatal = err
			return []wasmer.Value{wasmer.NewI32(statusError)}, nil
		}
		return []wasmer.Value{wasmer.NewI32(statusOK)}, nil
	})

	queryChain := fn(store, 2, 1, func(args []wasmer.Value) ([]wasmer.Value, error) {
		reqPtr, outPtr := uint32(args[0].I32()), uint32(args[1].I32())
		if err := chargeImport(); err != nil {
			return []wasmer.Value{wasmer.NewI32(statusError)}, nil
		}
		reqBytes, err := readRegionData(cs.mem, reqPtr)
		if err != nil {
			cs.fatal = err
			return []wasmer.Value{wasmer.NewI32(statusError)}, nil
		}
		if err := cs.gasMeter.Consume(gas.CategoryQueryChain, 1); err != nil {
			return []wasmer.Value{wasmer.NewI32(statusError)}, nil
		}
		var req core.QueryRequest
		if err := json.Unmarshal(reqBytes, &req); err != nil {
			cs.fatal = fmt.Errorf("%w: decode query_chain request: %v", core.ErrParseOrDecode, err)
			return []wasmer.Value{wasmer.NewI32(statusError)}, nil
		}
		resp, err := cs.env.QueryChain(req)
		if err != nil {
			if werr := writeRegionData(cs.mem, outPtr, []byte(err.Error())); werr == nil {
				return []wasmer.Value{wasmer.NewI32(statusError)}, nil
			}
			cs.fatal = err
			return []wasmer.Value{wasmer.NewI32(statusError)}, nil
		}
		respBytes, err := json.Marshal(resp)
		if err != nil {
			cs.fatal = fmt.Errorf("%w: encode query_chain response: %v", core.ErrParseOrDecode, err)
			return []wasmer.Value{wasmer.NewI32(statusError)}, nil
		}
		if err := writeRegionData(cs.mem, outPtr, respBytes); err != nil {
			if errors.Is(err, core.ErrRegionTooSmall) {
				return []wasmer.Value{wasmer.NewI32(statusRegionTooSmall)}, nil
			}
			cs.fatal = err
			return []wasmer.Value{wasmer.NewI32(statusError)}, nil
		}
		return []wasmer.Value{wasmer.NewI32(statusOK)}, nil
	})

	secp256k1Verify := fn(store, 3, 1, func(args []wasmer.Value) ([]wasmer.Value, error) {
		return verifyImport(cs, args, VerifySecp256k1)
	})
	secp256r1Verify := fn(store, 3, 1, func(args []wasmer.Value) ([]wasmer.Value, error) {
		return verifyImport(cs, args, VerifySecp256r1)
	})

	debug := wasmer.NewFunction(
		store,
		wasmer.NewFunctionType(wasmer.NewValueTypes(wasmer.I32), wasmer.NewValueTypes()),
		func(args []wasmer.Value) ([]wasmer.Value, error) {
			msgPtr := uint32(args[0].I32())
			msg, err := readRegionData(cs.mem, msgPtr)
			if err == nil {
				cs.debugLogs = append(cs.debugLogs, string(msg))
			}
			return []wasmer.Value{}, nil
		},
	)

	imports.Register("env", map[string]wasmer.IntoExtern{
		"db_read":          dbRead,
		"db_write":         dbWrite,
		"db_remove":        dbRemove,
		"db_scan":          dbScan,
		"db_next":          dbNext,
		"query_chain":      queryChain,
		"secp256k1_verify": secp256k1Verify,
		"secp256r1_verify": secp256r1Verify,
		"debug":            debug,
	})

	return imports
}

func verifyImport(cs *callState, args []wasmer.Value, verify func(digest, sig, pubkey []byte) (bool, error)) ([]wasmer.Value, error) {
	digestPtr, sigPtr, pubkeyPtr := uint32(args[0].I32()), uint32(args[1].I32()), uint32(args[2].I32())
	if err := cs.gasMeter.Consume(gas.CategoryHostImportBase, 1); err != nil {
		return []wasmer.Value{wasmer.NewI32(statusError)}, nil
	}
	digest, err := readRegionData(cs.mem, digestPtr)
	if err != nil {
		cs.fatal = err
		return []wasmer.Value{wasmer.NewI32(statusError)}, nil
	}
	sig, err := readRegionData(cs.mem, sigPtr)
	if err != nil {
		cs.fatal = err
		return []wasmer.Value{wasmer.NewI32(statusError)}, nil
	}
	pubkey, err := readRegionData(cs.mem, pubkeyPtr)
	if err != nil {
		cs.fatal = err
		return []wasmer.Value{wasmer.NewI32(statusError)}, nil
	}
	if err := cs.gasMeter.Consume(gas.CategoryCryptoVerify, 1); err != nil {
		return []wasmer.Value{wasmer.NewI32(statusError)}, nil
	}
	ok, err := verify(digest, sig, pubkey)
	if err != nil {
		return []wasmer.Value{wasmer.NewI32(statusError)}, nil
	}
	if !ok {
		return []wasmer.Value{wasmer.NewI32(statusFalse)}, nil
	}
	return []wasmer.Value{wasmer.NewI32(statusOK)}, nil
}
