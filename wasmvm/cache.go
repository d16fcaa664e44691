package wasmvm

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/wasmerio/wasmer-go/wasmer"

	"github.com/cwsoftware123/cwd/core"
)

// averageModuleBytes is the assumed compiled-module footprint used to
// translate an operator-facing byte budget (wasm_cache_size_mb) into an
// entry count for hashicorp/golang-lru/v2, which caches by entry count
// rather than by byte size. This is a deliberate approximation: wasmer-go
// exposes no API to measure a compiled wasmer.Module's resident size.
const averageModuleBytes = 256 * 1024

// ModuleCache caches compiled wasmer.Module values keyed by BLAKE3 code
// hash. A RWMutex guards the compile-on-miss path so
// two concurrent loads of the same never-before-seen code compile it
// exactly once rather than racing two independent compilations; the
// underlying LRU is already safe for concurrent Get/Add on its own.
type ModuleCache struct {
	mu    sync.RWMutex
	lru   *lru.Cache[core.Hash, *wasmer.Module]
	store *wasmer.Store
}

// NewModuleCache sizes the cache from a megabyte budget.
func NewModuleCache(store *wasmer.Store, sizeMB uint64) (*ModuleCache, error) {
	capacity := int(sizeMB * 1024 * 1024 / averageModuleBytes)
	if capacity < 1 {
		capacity = 1
	}
	c, err := lru.New[core.Hash, *wasmer.Module](capacity)
	if err != nil {
		return nil, err
	}
	return &ModuleCache{lru: c, store: store}, nil
}

// GetOrCompile returns the cached module for hash, compiling wasmBytes
// and inserting it on a miss.
func (c *ModuleCache) GetOrCompile(hash core.Hash, wasmBytes []byte) (*wasmer.Module, error) {
	c.mu.RLock()
	if mod, ok := c.lru.Get(hash); ok {
		c.mu.RUnlock()
		return mod, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	if mod, ok := c.lru.Get(hash); ok {
		return mod, nil
	}
	mod, err := wasmer.NewModule(c.store, wasmBytes)
	if err != nil {
		return nil, err
	}
	c.lru.Add(hash, mod)
	return mod, nil
}

// Evict drops hash from the cache, used when code is removed/migrated
// away from in a way that should not keep a stale module resident.
func (c *ModuleCache) Evict(hash core.Hash) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Remove(hash)
}
