package collections

import "github.com/cwsoftware123/cwd/core"

// Prefixed wraps a Storage so every key passing through it is silently
// namespaced under prefix. A caller holding a Prefixed store cannot read,
// write, or iterate outside its prefix by construction: keys are
// prefixed on the way in and stripped on the way out. The executor hands
// each contract a Prefixed view of the active cache frame keyed by the
// contract's own address, which is what keeps one account's storage
// disjoint from every other's.
type Prefixed struct {
	inner  Storage
	prefix []byte
}

// NewPrefixed builds a Prefixed view of s under prefix.
func NewPrefixed(s Storage, prefix []byte) *Prefixed {
	return &Prefixed{inner: s, prefix: append([]byte(nil), prefix...)}
}

func (p *Prefixed) abs(key []byte) []byte {
	out := make([]byte, 0, len(p.prefix)+len(key))
	out = append(out, p.prefix...)
	out = append(out, key...)
	return out
}

func (p *Prefixed) Get(key []byte) ([]byte, error) {
	return p.inner.Get(p.abs(key))
}

func (p *Prefixed) Set(key, value []byte) {
	p.inner.Set(p.abs(key), value)
}

func (p *Prefixed) Delete(key []byte) {
	p.inner.Delete(p.abs(key))
}

// Iterator scans [start, end) in the prefixed keyspace. A nil bound is
// clamped to the prefix's own bounds rather than left unbounded, so the
// scan can never escape into a sibling namespace.
func (p *Prefixed) Iterator(start, end []byte, order core.Order) Iterator {
	absStart := p.abs(start)
	var absEnd []byte
	if end != nil {
		absEnd = p.abs(end)
	} else {
		absEnd = prefixUpperBound(p.prefix)
	}
	return &prefixedIterator{inner: p.inner.Iterator(absStart, absEnd, order), strip: len(p.prefix)}
}

type prefixedIterator struct {
	inner Iterator
	strip int
}

func (it *prefixedIterator) Next() bool { return it.inner.Next() }

func (it *prefixedIterator) Key() []byte {
	k := it.inner.Key()
	if len(k) < it.strip {
		return nil
	}
	return k[it.strip:]
}

func (it *prefixedIterator) Value() []byte { return it.inner.Value() }
func (it *prefixedIterator) Error() error  { return it.inner.Error() }
func (it *prefixedIterator) Close() error  { return it.inner.Close() }
