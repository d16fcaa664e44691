package genesis_test

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/cwsoftware123/cwd/core"
	"github.com/cwsoftware123/cwd/executor"
	"github.com/cwsoftware123/cwd/genesis"
	"github.com/cwsoftware123/cwd/store/kv"
	"github.com/cwsoftware123/cwd/wasmvm"
)

// stubRuntime accepts any registered code and answers every entry point
// with an empty response.
type stubRuntime struct {
	known map[core.Hash]bool
}

func (r *stubRuntime) Call(codeHash core.Hash, _ []byte, _ string, _ *wasmvm.Env, _ []byte) (*core.Response, error) {
	if !r.known[codeHash] {
		return nil, fmt.Errorf("%w: unknown code %s", core.ErrWasmRuntime, codeHash)
	}
	return &core.Response{}, nil
}

func (r *stubRuntime) ValidateExports(codeHash core.Hash, _ []byte) error {
	if !r.known[codeHash] {
		return fmt.Errorf("%w: unknown code %s", core.ErrWasmCompile, codeHash)
	}
	return nil
}

func (r *stubRuntime) HasExport(core.Hash, []byte, string) (bool, error) { return false, nil }

// TestLoadFileParsesDocument verifies a YAML genesis document round-trips
// into a State.
func TestLoadFileParsesDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "genesis.yaml")
	doc := `chain_id: devnet-1
initial_timestamp: 1700000000
messages:
  - kind: create_client
    create_client:
      client_type: tendermint
`
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	gs, err := genesis.LoadFile(path)
	if err != nil {
		t.Fatalf("load file: %v", err)
	}
	if gs.ChainID != "devnet-1" || gs.InitialTimestamp != 1_700_000_000 {
		t.Fatalf("parsed state=%+v", gs)
	}
	if len(gs.Messages) != 1 || gs.Messages[0].Kind != core.MsgCreateClient {
		t.Fatalf("parsed messages=%+v", gs.Messages)
	}
}

// TestLoadAppliesAtVersionZero verifies a successful genesis commits
// exactly once, at version 0.
func TestLoadAppliesAtVersionZero(t *testing.T) {
	backend := kv.NewMemBackend()
	wasm := []byte("genesis-wasm")
	rt := &stubRuntime{known: map[core.Hash]bool{core.HashBytes(wasm): true}}
	exec := executor.New(executor.DefaultChainConfig("devnet-1"), backend, rt)

	gs := genesis.State{
		ChainID:          "devnet-1",
		InitialTimestamp: 1_700_000_000,
		Messages: []core.Message{
			{Kind: core.MsgStoreCode, StoreCode: &core.StoreCodeMsg{Wasm: wasm}},
			{Kind: core.MsgInstantiate, Instantiate: &core.InstantiateMsg{CodeHash: core.HashBytes(wasm), Salt: []byte("a")}},
		},
	}
	root, err := genesis.Load(exec, gs)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if root == ([32]byte{}) {
		t.Fatalf("zero root after genesis")
	}
	if backend.Version() != 0 {
		t.Fatalf("version=%d want 0", backend.Version())
	}
}

// TestLoadIsAtomic verifies a failing genesis message commits nothing.
func TestLoadIsAtomic(t *testing.T) {
	backend := kv.NewMemBackend()
	rt := &stubRuntime{known: map[core.Hash]bool{}}
	exec := executor.New(executor.DefaultChainConfig("devnet-1"), backend, rt)

	gs := genesis.State{
		ChainID: "devnet-1",
		Messages: []core.Message{
			{Kind: core.MsgStoreCode, StoreCode: &core.StoreCodeMsg{Wasm: []byte("unknown")}},
		},
	}
	if _, err := genesis.Load(exec, gs); err == nil {
		t.Fatalf("expected genesis to fail")
	}
	if backend.Version() != -1 {
		t.Fatalf("failed genesis committed: version=%d", backend.Version())
	}
}
