// Package gas implements the deterministic fuel-metering substrate: a
// small, concurrent-safe lookup table from a coarse Category to a base
// cost, with a punitive-but-non-fatal default for anything left
// unpriced, and a per-scope Meter charged against it.
package gas

// Category is a coarse bucket of chargeable work. Individual host
// imports and storage operations map onto one of these rather than each
// carrying its own bespoke price, keeping the table small and auditable.
type Category int

const (
	CategoryStorageRead Category = iota
	CategoryStorageWrite
	CategoryStorageRemove
	CategoryStorageIterateStep
	CategoryWasmFuelUnit
	CategoryCryptoVerify
	CategoryHostImportBase
	CategoryQueryChain
)

func (c Category) String() string {
	switch c {
	case CategoryStorageRead:
		return "storage_read"
	case CategoryStorageWrite:
		return "storage_write"
	case CategoryStorageRemove:
		return "storage_remove"
	case CategoryStorageIterateStep:
		return "storage_iterate_step"
	case CategoryWasmFuelUnit:
		return "wasm_fuel_unit"
	case CategoryCryptoVerify:
		return "crypto_verify"
	case CategoryHostImportBase:
		return "host_import_base"
	case CategoryQueryChain:
		return "query_chain"
	default:
		return "unknown"
	}
}

// DefaultCost is charged for any category absent from a Table. Pricing
// an unknown category high rather than failing keeps a partially
// configured chain running while making misconfiguration visible in gas
// reports.
const DefaultCost uint64 = 100_000

// Table is an immutable category-to-cost schedule, loaded once from
// ChainConfig at process start rather than re-derived per transaction.
// Reads are lock-free: the underlying map is never mutated after
// construction, so concurrent lookups from multiple executor workers are
// safe without synchronization.
type Table struct {
	costs map[Category]uint64
}

// DefaultTable returns the baseline schedule a chain boots with absent
// operator overrides.
func DefaultTable() Table {
	return Table{costs: map[Category]uint64{
		CategoryStorageRead:        100,
		CategoryStorageWrite:       1_000,
		CategoryStorageRemove:      500,
		CategoryStorageIterateStep: 50,
		CategoryWasmFuelUnit:       1,
		CategoryCryptoVerify:       10_000,
		CategoryHostImportBase:     250,
		CategoryQueryChain:         2_000,
	}}
}

// NewTable builds a schedule from an explicit category map, for chains
// whose ChainConfig overrides the defaults.
func NewTable(costs map[Category]uint64) Table {
	t := Table{costs: make(map[Category]uint64, len(costs))}
	for k, v := range costs {
		t.costs[k] = v
	}
	return t
}

// Cost returns the base price of category c, falling back to
// DefaultCost for anything the table doesn't carry.
func (t Table) Cost(c Category) uint64 {
	if v, ok := t.costs[c]; ok {
		return v
	}
	return DefaultCost
}
