package executor

import (
	"fmt"

	"github.com/cwsoftware123/cwd/core"
	"github.com/cwsoftware123/cwd/gas"
	"github.com/cwsoftware123/cwd/store/cache"
	"github.com/cwsoftware123/cwd/store/collections"
	"github.com/cwsoftware123/cwd/wasmvm"
)

// dispatch routes a single message to its handler, then schedules and
// runs any sub-messages the handler's Response carries, depth-first, in
// declaration order. The returned events are only those
// belonging to this message and its sub-tree; a caller failure discards
// them by discarding the cache frame they were staged against.
func (e *Executor) dispatch(s *cache.Store, meter *gas.Meter, block core.BlockInfo, sender core.Address, msg core.Message) (*core.Response, []core.Event, error) {
	var (
		resp     *core.Response
		err      error
		contract core.Address
	)

	switch msg.Kind {
	case core.MsgStoreCode:
		resp, err = e.handleStoreCode(s, meter, msg.StoreCode)
	case core.MsgInstantiate:
		resp, contract, err = e.handleInstantiate(s, meter, block, sender, msg.Instantiate)
	case core.MsgExecute:
		resp, err = e.handleExecute(s, meter, block, sender, msg.Execute)
		if msg.Execute != nil {
			contract = msg.Execute.Contract
		}
	case core.MsgMigrate:
		resp, err = e.handleMigrate(s, meter, block, sender, msg.Migrate)
		if msg.Migrate != nil {
			contract = msg.Migrate.Contract
		}
	case core.MsgTransfer:
		resp, err = e.handleTransfer(s, meter, sender, msg.Transfer)
	case core.MsgCreateClient:
		resp, err = e.handleCreateClient(s, meter, msg.CreateClient)
	case core.MsgUpdateClient:
		resp, err = e.handleUpdateClient(s, meter, msg.UpdateClient)
	default:
		return nil, nil, fmt.Errorf("executor: unknown message kind %q", msg.Kind)
	}
	if err != nil {
		return nil, nil, err
	}

	events := responseEvents(string(msg.Kind), resp)

	if resp != nil && len(resp.Messages) > 0 {
		subEvents, err := e.runSubMessages(s, meter, block, contract, resp.Messages)
		if err != nil {
			return nil, nil, err
		}
		events = append(events, subEvents...)
	}

	return resp, events, nil
}

func responseEvents(kind string, resp *core.Response) []core.Event {
	if resp == nil {
		return nil
	}
	return []core.Event{{Type: kind, Attributes: resp.Attributes}}
}

func (e *Executor) queryChainFunc(s *cache.Store, meter *gas.Meter) func(core.QueryRequest) (core.QueryResponse, error) {
	return func(req core.QueryRequest) (core.QueryResponse, error) {
		if err := meter.Consume(gas.CategoryQueryChain, 1); err != nil {
			return core.QueryResponse{}, err
		}
		return e.querier.QueryInCall(req, s, meter)
	}
}

func (e *Executor) handleStoreCode(s *cache.Store, meter *gas.Meter, msg *core.StoreCodeMsg) (*core.Response, error) {
	if msg == nil {
		return nil, fmt.Errorf("executor: store_code message missing payload")
	}
	if err := meter.Consume(gas.CategoryStorageWrite, uint64(len(msg.Wasm))); err != nil {
		return nil, err
	}

	codeHash := core.HashBytes(msg.Wasm)
	if err := e.runtime.ValidateExports(codeHash, msg.Wasm); err != nil {
		return nil, err
	}
	if err := Codes.Save(s, collections.HashKey(codeHash), core.Code{Hash: codeHash, Bytes: msg.Wasm}); err != nil {
		return nil, err
	}

	return &core.Response{
		Data:       codeHash.Bytes(),
		Attributes: []core.EventAttribute{{Key: "code_hash", Value: codeHash.String()}},
	}, nil
}

func (e *Executor) handleInstantiate(s *cache.Store, meter *gas.Meter, block core.BlockInfo, sender core.Address, msg *core.InstantiateMsg) (*core.Response, core.Address, error) {
	if msg == nil {
		return nil, core.Address{}, fmt.Errorf("executor: instantiate message missing payload")
	}

	code, err := Codes.Load(s, collections.HashKey(msg.CodeHash))
	if err != nil {
		return nil, core.Address{}, fmt.Errorf("executor: instantiate: code %s: %w", msg.CodeHash, err)
	}

	addr := core.DeriveAddress(sender, msg.CodeHash, msg.Salt)
	if Accounts.Has(s, collections.AddressKey(addr)) {
		return nil, core.Address{}, fmt.Errorf("executor: instantiate: address %s: %w", addr, core.ErrAddressCollision)
	}

	// The account record is written before the guest runs so the contract
	// can already observe itself (AccountInfo, WasmRaw on its own address)
	// through reentrant queries during its own instantiate call. A failed
	// call discards the record along with the rest of the frame.
	if err := Accounts.Save(s, collections.AddressKey(addr), core.Account{CodeHash: msg.CodeHash, Admin: msg.Admin}); err != nil {
		return nil, core.Address{}, err
	}

	env := &wasmvm.Env{
		Contract:   addr,
		Sender:     sender,
		Block:      block,
		Storage:    ContractStore(s, addr),
		Gas:        meter,
		QueryChain: e.queryChainFunc(s, meter),
	}
	resp, err := e.runtime.Call(msg.CodeHash, code.Bytes, "instantiate", env, msg.Msg)
	if err != nil {
		return nil, core.Address{}, err
	}

	resp.Attributes = append([]core.EventAttribute{{Key: "contract", Value: addr.String()}}, resp.Attributes...)
	return resp, addr, nil
}

func (e *Executor) handleExecute(s *cache.Store, meter *gas.Meter, block core.BlockInfo, sender core.Address, msg *core.ExecuteMsg) (*core.Response, error) {
	if msg == nil {
		return nil, fmt.Errorf("executor: execute message missing payload")
	}

	acct, err := Accounts.Load(s, collections.AddressKey(msg.Contract))
	if err != nil {
		return nil, fmt.Errorf("executor: execute: account %s: %w", msg.Contract, err)
	}
	code, err := Codes.Load(s, collections.HashKey(acct.CodeHash))
	if err != nil {
		return nil, fmt.Errorf("executor: execute: code %s: %w", acct.CodeHash, err)
	}

	env := &wasmvm.Env{
		Contract:   msg.Contract,
		Sender:     sender,
		Block:      block,
		Storage:    ContractStore(s, msg.Contract),
		Gas:        meter,
		QueryChain: e.queryChainFunc(s, meter),
	}
	return e.runtime.Call(acct.CodeHash, code.Bytes, "execute", env, msg.Msg)
}

func (e *Executor) handleMigrate(s *cache.Store, meter *gas.Meter, block core.BlockInfo, sender core.Address, msg *core.MigrateMsg) (*core.Response, error) {
	if msg == nil {
		return nil, fmt.Errorf("executor: migrate message missing payload")
	}

	acct, err := Accounts.Load(s, collections.AddressKey(msg.Contract))
	if err != nil {
		return nil, fmt.Errorf("executor: migrate: account %s: %w", msg.Contract, err)
	}
	if acct.Admin == nil || *acct.Admin != sender {
		return nil, fmt.Errorf("executor: migrate: %s is not admin of %s: %w", sender, msg.Contract, core.ErrUnauthorized)
	}

	newCode, err := Codes.Load(s, collections.HashKey(msg.NewCodeHash))
	if err != nil {
		return nil, fmt.Errorf("executor: migrate: code %s: %w", msg.NewCodeHash, err)
	}

	// The code hash swaps before the guest runs, so a migrate handler
	// querying its own AccountInfo mid-call sees the post-migration hash.
	// A failed call discards the swap along with the rest of the frame.
	acct.CodeHash = msg.NewCodeHash
	if err := Accounts.Save(s, collections.AddressKey(msg.Contract), acct); err != nil {
		return nil, err
	}

	hasMigrate, err := e.runtime.HasExport(msg.NewCodeHash, newCode.Bytes, "migrate")
	if err != nil {
		return nil, err
	}
	if !hasMigrate {
		return &core.Response{}, nil
	}

	env := &wasmvm.Env{
		Contract:   msg.Contract,
		Sender:     sender,
		Block:      block,
		Storage:    ContractStore(s, msg.Contract),
		Gas:        meter,
		QueryChain: e.queryChainFunc(s, meter),
	}
	return e.runtime.Call(msg.NewCodeHash, newCode.Bytes, "migrate", env, msg.Msg)
}

func (e *Executor) handleTransfer(s *cache.Store, meter *gas.Meter, sender core.Address, msg *core.TransferMsg) (*core.Response, error) {
	if msg == nil {
		return nil, fmt.Errorf("executor: transfer message missing payload")
	}
	if err := meter.Consume(gas.CategoryStorageWrite, 2); err != nil {
		return nil, err
	}

	fromBal, _, err := Balances.MayLoad(s, collections.AddressKey(sender))
	if err != nil {
		return nil, err
	}
	if fromBal < msg.Amount {
		return nil, fmt.Errorf("executor: transfer: %s has %d, needs %d: %w", sender, fromBal, msg.Amount, core.ErrInsufficientFunds)
	}
	toBal, _, err := Balances.MayLoad(s, collections.AddressKey(msg.To))
	if err != nil {
		return nil, err
	}

	if err := Balances.Save(s, collections.AddressKey(sender), fromBal-msg.Amount); err != nil {
		return nil, err
	}
	if err := Balances.Save(s, collections.AddressKey(msg.To), toBal+msg.Amount); err != nil {
		return nil, err
	}

	return &core.Response{Attributes: []core.EventAttribute{
		{Key: "from", Value: sender.String()},
		{Key: "to", Value: msg.To.String()},
	}}, nil
}

func (e *Executor) handleCreateClient(s *cache.Store, meter *gas.Meter, msg *core.CreateClientMsg) (*core.Response, error) {
	if msg == nil {
		return nil, fmt.Errorf("executor: create_client message missing payload")
	}
	if err := meter.Consume(gas.CategoryStorageWrite, 1); err != nil {
		return nil, err
	}

	seq, err := clientSeq.Increment(s)
	if err != nil {
		return nil, err
	}
	clientID := fmt.Sprintf("client-%d", seq)

	blob := core.ClientStateBlob{
		ClientType:     msg.ClientType,
		ClientState:    msg.ClientState,
		ConsensusState: msg.ConsensusState,
	}
	if err := IBCClients.Save(s, collections.StringKey(clientID), blob); err != nil {
		return nil, err
	}

	return &core.Response{
		Data:       []byte(clientID),
		Attributes: []core.EventAttribute{{Key: "client_id", Value: clientID}},
	}, nil
}

func (e *Executor) handleUpdateClient(s *cache.Store, meter *gas.Meter, msg *core.UpdateClientMsg) (*core.Response, error) {
	if msg == nil {
		return nil, fmt.Errorf("executor: update_client message missing payload")
	}
	if err := meter.Consume(gas.CategoryStorageWrite, 1); err != nil {
		return nil, err
	}

	blob, err := IBCClients.Load(s, collections.StringKey(msg.ClientID))
	if err != nil {
		return nil, fmt.Errorf("executor: update_client: %s: %w", msg.ClientID, err)
	}
	blob.ConsensusState = msg.Header
	if err := IBCClients.Save(s, collections.StringKey(msg.ClientID), blob); err != nil {
		return nil, err
	}

	return &core.Response{Attributes: []core.EventAttribute{{Key: "client_id", Value: msg.ClientID}}}, nil
}
