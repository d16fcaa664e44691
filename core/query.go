package core

// QueryKind tags the QueryRequest/QueryResponse union.
type QueryKind string

const (
	QueryInfo        QueryKind = "info"
	QueryCodes       QueryKind = "codes"
	QueryAccounts    QueryKind = "accounts"
	QueryWasmRaw     QueryKind = "wasm_raw"
	QueryWasmSmart   QueryKind = "wasm_smart"
	QueryBankBalance QueryKind = "bank_balance"
	QueryIBCClient   QueryKind = "ibc_client"
)

// QueryRequest is a read-only request against committed state or, for
// recursive in-call queries, the active cache.
type QueryRequest struct {
	Kind QueryKind `json:"kind" yaml:"kind"`

	WasmRaw     *WasmRawQuery     `json:"wasm_raw,omitempty" yaml:"wasm_raw,omitempty"`
	WasmSmart   *WasmSmartQuery   `json:"wasm_smart,omitempty" yaml:"wasm_smart,omitempty"`
	BankBalance *BankBalanceQuery `json:"bank_balance,omitempty" yaml:"bank_balance,omitempty"`
	IBCClient   *IBCClientQuery   `json:"ibc_client,omitempty" yaml:"ibc_client,omitempty"`
}

type WasmRawQuery struct {
	Contract Address `json:"contract" yaml:"contract"`
	Key      []byte  `json:"key" yaml:"key"`
}

type WasmSmartQuery struct {
	Contract Address `json:"contract" yaml:"contract"`
	Msg      []byte  `json:"msg" yaml:"msg"`
}

type BankBalanceQuery struct {
	Address Address `json:"address" yaml:"address"`
}

type IBCClientQuery struct {
	ClientID string `json:"client_id" yaml:"client_id"`
}

// QueryResponse mirrors QueryRequest's tag.
type QueryResponse struct {
	Kind QueryKind `json:"kind" yaml:"kind"`

	Info        *InfoResponse     `json:"info,omitempty" yaml:"info,omitempty"`
	Codes       []CodeInfo        `json:"codes,omitempty" yaml:"codes,omitempty"`
	Accounts    []AccountInfo     `json:"accounts,omitempty" yaml:"accounts,omitempty"`
	Raw         []byte            `json:"raw,omitempty" yaml:"raw,omitempty"`
	Smart       []byte            `json:"smart,omitempty" yaml:"smart,omitempty"`
	BankBalance uint64            `json:"bank_balance,omitempty" yaml:"bank_balance,omitempty"`
	IBCClient   *ClientStateBlob  `json:"ibc_client,omitempty" yaml:"ibc_client,omitempty"`
}

type InfoResponse struct {
	AppVersion      string `json:"app_version" yaml:"app_version"`
	LastBlockHeight int64  `json:"last_block_height" yaml:"last_block_height"`
	LastAppHash     Hash   `json:"last_app_hash" yaml:"last_app_hash"`
}

type CodeInfo struct {
	Hash Hash `json:"hash" yaml:"hash"`
}

type AccountInfo struct {
	Address Address `json:"address" yaml:"address"`
	Account Account `json:"account" yaml:"account"`
}

type ClientStateBlob struct {
	ClientType     string `json:"client_type" yaml:"client_type"`
	ClientState    []byte `json:"client_state" yaml:"client_state"`
	ConsensusState []byte `json:"consensus_state" yaml:"consensus_state"`
}
