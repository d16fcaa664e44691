// Package math provides fixed-point arithmetic helpers for on-chain
// amounts: an 18-place Decimal and a range-checked Uint128, both backed
// by math/big.
package math

import (
	"fmt"
	"math/big"
)

// 18 decimal places, the usual on-chain fixed-point precision.
const decimalPrecision = 18

var decimalFraction = new(big.Int).Exp(big.NewInt(10), big.NewInt(decimalPrecision), nil)

// Decimal is a signed fixed-point number with 18 decimal places of
// precision, stored as an integer count of 1e-18 units.
type Decimal struct {
	atomics *big.Int
}

// NewDecimal builds a Decimal representing whole from an integer.
func NewDecimal(whole int64) Decimal {
	return Decimal{atomics: new(big.Int).Mul(big.NewInt(whole), decimalFraction)}
}

// NewDecimalFromAtomics wraps a raw 1e-18-unit count.
func NewDecimalFromAtomics(atomics *big.Int) Decimal {
	return Decimal{atomics: new(big.Int).Set(atomics)}
}

func (d Decimal) Add(o Decimal) Decimal {
	return Decimal{atomics: new(big.Int).Add(d.atomics, o.atomics)}
}

func (d Decimal) Sub(o Decimal) Decimal {
	return Decimal{atomics: new(big.Int).Sub(d.atomics, o.atomics)}
}

func (d Decimal) Mul(o Decimal) Decimal {
	prod := new(big.Int).Mul(d.atomics, o.atomics)
	return Decimal{atomics: prod.Div(prod, decimalFraction)}
}

func (d Decimal) IsZero() bool { return d.atomics.Sign() == 0 }

func (d Decimal) String() string {
	whole := new(big.Int)
	frac := new(big.Int)
	whole.DivMod(d.atomics, decimalFraction, frac)
	return fmt.Sprintf("%s.%018s", whole.String(), frac.String())
}

// Uint128 is an unsigned 128-bit integer for on-chain amounts,
// represented as a big.Int constrained to [0, 2^128).
type Uint128 struct {
	v *big.Int
}

var uint128Max = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))

func NewUint128(v uint64) Uint128 { return Uint128{v: new(big.Int).SetUint64(v)} }

func (u Uint128) Add(o Uint128) (Uint128, error) {
	sum := new(big.Int).Add(u.v, o.v)
	if sum.Cmp(uint128Max) > 0 {
		return Uint128{}, fmt.Errorf("math: uint128 overflow")
	}
	return Uint128{v: sum}, nil
}

func (u Uint128) Sub(o Uint128) (Uint128, error) {
	if u.v.Cmp(o.v) < 0 {
		return Uint128{}, fmt.Errorf("math: uint128 underflow")
	}
	return Uint128{v: new(big.Int).Sub(u.v, o.v)}, nil
}

func (u Uint128) Uint64() uint64 { return u.v.Uint64() }
func (u Uint128) String() string { return u.v.String() }
