package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/cwsoftware123/cwd/core"
	"github.com/cwsoftware123/cwd/executor"
	"github.com/cwsoftware123/cwd/query"
	"github.com/cwsoftware123/cwd/store/kv"
	"github.com/cwsoftware123/cwd/wasmvm"
)

// node bundles everything one chaind invocation wires together. There
// is exactly one, held in currentNode. Every other package in this
// module takes its dependencies as constructor arguments; only the CLI
// layer, which constructs a fresh process per invocation, gets a
// singleton.
type node struct {
	chainID  string
	backend  kv.Backend
	host     *wasmvm.Host
	executor *executor.Executor
	querier  *query.Querier

	height   int64
	lastRoot [32]byte
}

var currentNode *node

func currentLedger() *node {
	return currentNode
}

// loadNode opens the backend at --data-dir and wires the host, executor
// and querier together, storing the result in currentNode.
func loadNode(cmd *cobra.Command) (*node, error) {
	dataDir, err := cmd.Flags().GetString("data-dir")
	if err != nil {
		return nil, err
	}
	chainID, err := cmd.Flags().GetString("chain-id")
	if err != nil {
		return nil, err
	}
	cacheSizeMB, err := cmd.Flags().GetUint64("wasm-cache-size-mb")
	if err != nil {
		return nil, err
	}
	queryGasLimit, err := cmd.Flags().GetUint64("query-gas-limit")
	if err != nil {
		return nil, err
	}

	backend, err := kv.OpenBoltBackend(kv.BoltOptions{DataDir: dataDir})
	if err != nil {
		return nil, fmt.Errorf("chaind: open backend: %w", err)
	}

	host, err := wasmvm.NewHost(cacheSizeMB)
	if err != nil {
		return nil, fmt.Errorf("chaind: start wasm host: %w", err)
	}

	cfg := executor.DefaultChainConfig(chainID)
	if queryGasLimit > 0 {
		cfg.QueryGasLimit = queryGasLimit
	}

	n := &node{chainID: chainID, backend: backend, host: host, height: backend.Version()}

	n.executor = executor.New(cfg, backend, host)
	n.querier = query.New(backend, host, cfg.GasTable, "chaind-devnet", func() [32]byte { return n.lastRoot })
	n.querier.SetQueryGasLimit(cfg.QueryGasLimit)
	n.executor.SetQuerier(n.querier)

	currentNode = n
	return n, nil
}

// commitBlock runs exactly one transaction through the full block
// lifecycle and commits it, the devnet-sized stand-in for what a real
// ABCI engine would otherwise drive across many blocks.
func (n *node) commitBlock(sender core.Address, messages []core.Message, credential []byte, sequence uint64) ([]core.Event, uint64, error) {
	n.height++
	block := core.BlockInfo{ChainID: n.chainID, Height: n.height, Timestamp: time.Now().Unix()}
	n.executor.BeginBlock(block)
	n.querier.SetBlock(block)

	tx := &core.Transaction{Sender: sender, Credential: credential, Sequence: sequence, Messages: messages}
	events, gasUsed, err := n.executor.DeliverTx(tx)
	if err != nil {
		return nil, gasUsed, err
	}

	n.executor.EndBlock()
	root, _, err := n.executor.Commit()
	if err != nil {
		return nil, gasUsed, err
	}
	n.lastRoot = root
	return events, gasUsed, nil
}
