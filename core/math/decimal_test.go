package math

import (
	"math/big"
	"testing"
)

// TestDecimalArithmetic verifies add, sub, and fixed-point multiply.
func TestDecimalArithmetic(t *testing.T) {
	two := NewDecimal(2)
	three := NewDecimal(3)

	if got := two.Add(three); got.String() != NewDecimal(5).String() {
		t.Fatalf("2+3=%s", got)
	}
	if got := three.Sub(two); got.String() != NewDecimal(1).String() {
		t.Fatalf("3-2=%s", got)
	}
	if got := two.Mul(three); got.String() != NewDecimal(6).String() {
		t.Fatalf("2*3=%s", got)
	}

	half := NewDecimalFromAtomics(new(big.Int).Div(decimalFraction, big.NewInt(2)))
	if got := two.Mul(half); got.String() != NewDecimal(1).String() {
		t.Fatalf("2*0.5=%s", got)
	}
	if !NewDecimal(0).IsZero() || two.IsZero() {
		t.Fatalf("IsZero misreports")
	}
}

// TestDecimalString pins the fixed 18-place rendering.
func TestDecimalString(t *testing.T) {
	if got := NewDecimal(1).String(); got != "1.000000000000000000" {
		t.Fatalf("render=%q", got)
	}
}

// TestUint128Bounds verifies overflow and underflow are rejected.
func TestUint128Bounds(t *testing.T) {
	a := NewUint128(40)
	b := NewUint128(2)

	sum, err := a.Add(b)
	if err != nil || sum.Uint64() != 42 {
		t.Fatalf("40+2=%s, %v", sum, err)
	}
	diff, err := a.Sub(b)
	if err != nil || diff.Uint64() != 38 {
		t.Fatalf("40-2=%s, %v", diff, err)
	}
	if _, err := b.Sub(a); err == nil {
		t.Fatalf("underflow accepted")
	}

	max := Uint128{v: new(big.Int).Set(uint128Max)}
	if _, err := max.Add(NewUint128(1)); err == nil {
		t.Fatalf("overflow accepted")
	}
}
