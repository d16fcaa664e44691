package executor

import (
	"github.com/cwsoftware123/cwd/core"
	"github.com/cwsoftware123/cwd/store/collections"
)

// Codes, Accounts, Balances, and IBCClients are namespaced collection
// handles over whatever Storage scope a call is running against (the
// outer cache.Store for a real call, a throwaway one for CheckTx). They
// carry no mutable state of their own — only a namespace and a codec —
// and are exported so the query package can serve the same records
// without importing executor's internals through a cycle.
var (
	Codes      = collections.NewMap[collections.HashKey, core.Code]("codes", collections.RLPCodec[core.Code]{})
	Accounts   = collections.NewMap[collections.AddressKey, core.Account]("accounts", collections.YAMLCodec[core.Account]{})
	Balances   = collections.NewMap[collections.AddressKey, uint64]("balances", collections.RLPCodec[uint64]{})
	IBCClients = collections.NewMap[collections.StringKey, core.ClientStateBlob]("ibc_clients", collections.RLPCodec[core.ClientStateBlob]{})

	clientSeq = collections.NewIncrementor[uint64]("ibc_client_seq")
)

// ContractStore returns the guest-visible view of s for the account at
// addr: every key the contract reads or writes is transparently
// namespaced under the contract's address, so no account can touch
// another account's state or the executor's own collections. The query
// package uses the same derivation for WasmRaw reads, which is what
// makes externally-read raw keys line up with what the contract wrote.
func ContractStore(s collections.Storage, addr core.Address) collections.Storage {
	return collections.NewPrefixed(s, collections.BuildKey([]byte("contract"), [][]byte{addr[:]}, nil))
}
