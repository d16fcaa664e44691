// Package genesis loads the chain's bootstrap document and applies it
// through the executor against an empty store, producing the initial
// root.
package genesis

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cwsoftware123/cwd/core"
	"github.com/cwsoftware123/cwd/executor"
)

// State is the operator-authored chain bootstrap document: a chain id,
// the timestamp height 0 is pinned at, and the messages to apply before
// the chain accepts any transaction. YAML rather than the wasm-boundary
// JSON, since this is an artifact an operator edits and reviews by hand
// before a chain ever starts, the same rationale collections.YAMLCodec
// documents for account records.
type State struct {
	ChainID          string         `yaml:"chain_id"`
	InitialTimestamp int64          `yaml:"initial_timestamp"`
	Messages         []core.Message `yaml:"messages"`
}

// LoadFile reads and parses a genesis document from path.
func LoadFile(path string) (State, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return State{}, fmt.Errorf("genesis: read %s: %w", path, err)
	}
	var gs State
	if err := yaml.Unmarshal(b, &gs); err != nil {
		return State{}, fmt.Errorf("genesis: parse %s: %w", path, err)
	}
	return gs, nil
}

// Load applies cfg's messages against exec atomically, with sender the
// zero address at height 0 and the configured initial timestamp, then
// commits. Any message failing aborts before anything is committed —
// the transition from executor.PhaseIdle only ever completes as a whole
// or not at all.
func Load(exec *executor.Executor, cfg State) ([32]byte, error) {
	block := core.BlockInfo{
		ChainID:   cfg.ChainID,
		Height:    0,
		Timestamp: cfg.InitialTimestamp,
	}
	root, err := exec.InitChain(block, core.ZeroAddress, cfg.Messages)
	if err != nil {
		return [32]byte{}, fmt.Errorf("genesis: init_chain: %w", err)
	}
	return root, nil
}
