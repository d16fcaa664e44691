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

// runSubMessages executes subs depth-first, in declaration order, each in
// its own nested cache.Store frame and its own gas.Meter child scoped to
// either the sub-message's explicit GasLimit or whatever the parent has
// left. A sub-message's failure only propagates past it if nothing
// catches it via ReplyOn — contract is whichever account scheduled subs
// and is also who sub-messages are sent as, and who reply is delivered
// to.
func (e *Executor) runSubMessages(s *cache.Store, meter *gas.Meter, block core.BlockInfo, contract core.Address, subs []core.SubMessage) ([]core.Event, error) {
	var events []core.Event

	for _, sm := range subs {
		limit := meter.Remaining()
		if sm.GasLimit != nil {
			limit = *sm.GasLimit
		}
		child := meter.Child(limit)
		childCache := s.Begin()

		resp, msgEvents, dispatchErr := e.dispatch(childCache, child, block, contract, sm.Msg)

		success := dispatchErr == nil
		if success {
			childCache.CommitFrame()
			events = append(events, msgEvents...)
		} else {
			childCache.Discard()
		}
		meter.Absorb(child)

		shouldReply := sm.ReplyOn == core.ReplyAlways ||
			(success && sm.ReplyOn == core.ReplySuccess) ||
			(!success && sm.ReplyOn == core.ReplyError)

		if !success && !shouldReply {
			return nil, fmt.Errorf("executor: sub-message %d: %w", sm.ID, dispatchErr)
		}

		if shouldReply {
			replyEvents, err := e.runReply(s, meter, block, contract, sm.ID, resp, dispatchErr)
			if err != nil {
				return nil, err
			}
			events = append(events, replyEvents...)
		}
	}

	return events, nil
}

// runReply delivers a SubMsgResult to contract's reply entry point, if it
// exports one, and recurses into whatever further sub-messages that
// reply schedules. A contract that doesn't export reply silently misses
// the notification rather than failing the transaction — ReplyOn on a
// contract with no reply export is a caller mistake, not a runtime
// fault.
func (e *Executor) runReply(s *cache.Store, meter *gas.Meter, block core.BlockInfo, contract core.Address, id uint64, resp *core.Response, dispatchErr error) ([]core.Event, error) {
	acct, err := Accounts.Load(s, collections.AddressKey(contract))
	if err != nil {
		return nil, fmt.Errorf("executor: reply: account %s: %w", contract, err)
	}
	code, err := Codes.Load(s, collections.HashKey(acct.CodeHash))
	if err != nil {
		return nil, fmt.Errorf("executor: reply: code %s: %w", acct.CodeHash, err)
	}

	hasReply, err := e.runtime.HasExport(acct.CodeHash, code.Bytes, "reply")
	if err != nil {
		return nil, err
	}
	if !hasReply {
		return nil, nil
	}

	result := core.SubMsgResult{ID: id}
	if dispatchErr == nil {
		result.Ok = resp
	} else {
		result.Err = dispatchErr.Error()
	}
	payload, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("executor: reply: encode sub-message result: %w", err)
	}

	env := &wasmvm.Env{
		Contract:   contract,
		Sender:     contract,
		Block:      block,
		Storage:    ContractStore(s, contract),
		Gas:        meter,
		QueryChain: e.queryChainFunc(s, meter),
	}
	replyResp, err := e.runtime.Call(acct.CodeHash, code.Bytes, "reply", env, payload)
	if err != nil {
		return nil, err
	}

	events := responseEvents("reply", replyResp)
	if replyResp != nil && len(replyResp.Messages) > 0 {
		subEvents, err := e.runSubMessages(s, meter, block, contract, replyResp.Messages)
		if err != nil {
			return nil, err
		}
		events = append(events, subEvents...)
	}
	return events, nil
}
