package gas

import (
	"fmt"

	"github.com/cwsoftware123/cwd/core"
)

// Meter tracks gas usage against a fixed limit for a single call scope:
// a transaction, a sub-message, or an in-call query. Consume takes a
// Category and a unit count rather than a per-opcode price, since the
// wasm host charges per storage op, per import, and per fuel unit.
type Meter struct {
	table Table
	used  uint64
	limit uint64
}

// NewMeter constructs a Meter with the given limit, priced from table.
func NewMeter(table Table, limit uint64) *Meter {
	return &Meter{table: table, limit: limit}
}

// Remaining returns the gas left before the limit is hit.
func (m *Meter) Remaining() uint64 {
	if m.used > m.limit {
		return 0
	}
	return m.limit - m.used
}

// Used returns gas consumed so far.
func (m *Meter) Used() uint64 {
	return m.used
}

// Limit returns the scope's total gas budget.
func (m *Meter) Limit() uint64 {
	return m.limit
}

// Consume charges n units of category c's base cost. On overflow it
// pins the counter at the limit and returns core.ErrOutOfGas: the scope
// is dead, its reported usage is exactly its budget, and replaying the
// same scope against the same pre-state reports the same number. The
// caller must treat the whole scope as failed, not retry with a partial
// charge.
func (m *Meter) Consume(c Category, n uint64) error {
	cost := m.table.Cost(c) * n
	if cost > m.limit-m.used {
		m.used = m.limit
		return fmt.Errorf("gas: %w: category %s exceeds limit %d", core.ErrOutOfGas, c, m.limit)
	}
	m.used += cost
	return nil
}

// ConsumeFlat charges a caller-computed absolute amount rather than a
// category multiple, used by the wasm host's upfront fuel-budget
// pre-charge. Overflow pins the counter at the limit, same as Consume.
func (m *Meter) ConsumeFlat(amount uint64) error {
	if amount > m.limit-m.used {
		m.used = m.limit
		return fmt.Errorf("gas: %w: flat charge exceeds limit %d", core.ErrOutOfGas, m.limit)
	}
	m.used += amount
	return nil
}

// Child creates a sub-scope meter sharing the same price table, seeded
// with the lesser of the parent's remaining gas and requestedLimit. Used
// to bound sub-message dispatch: a sub-message can never spend more than
// its parent has left, regardless of what limit it requests.
func (m *Meter) Child(requestedLimit uint64) *Meter {
	lim := requestedLimit
	if rem := m.Remaining(); rem < lim {
		lim = rem
	}
	return &Meter{table: m.table, limit: lim}
}

// Absorb folds a child scope's usage back into the parent once the
// child's work has run, whether its cache frame was committed or
// discarded. Sub-message gas spend is real spend against the parent, not
// charged separately.
func (m *Meter) Absorb(child *Meter) {
	m.used += child.used
}
