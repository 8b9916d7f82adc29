package abstr

import (
	"testing"

	"github.com/onderjan/machine-check-sub001/internal/bv/concr"
)

func TestExactRoundTrip(t *testing.T) {
	c := concr.New(8, 42)
	b := Exact(c)
	got, ok := b.Concretize()
	if !ok {
		t.Fatal("expected an exact bitvector to concretize")
	}
	if got.Value() != 42 {
		t.Errorf("expected 42, got %d", got.Value())
	}
}

func TestUnknownDoesNotConcretize(t *testing.T) {
	b := Unknown(8)
	if _, ok := b.Concretize(); ok {
		t.Error("expected an unknown bitvector to not concretize")
	}
	if b.UnknownBits() != 0xFF {
		t.Errorf("expected every bit unknown, got mask %#x", b.UnknownBits())
	}
}

func TestJoinWidensDisagreement(t *testing.T) {
	a := Exact(concr.New(4, 0b0101))
	b := Exact(concr.New(4, 0b0110))
	j := Join(a, b)
	if j.IsExact() {
		t.Fatal("expected join of disagreeing exact values to be non-exact")
	}
	// Per bit: a=0101, b=0110 -> bit0: 1 vs 0 differ, bit1: 0 vs 1 differ,
	// bit2: 1 vs 1 agree, bit3: 0 vs 0 agree.
	if j.UnknownBits() != 0b0011 {
		t.Errorf("expected bits 0,1 unknown, got mask %#b", j.UnknownBits())
	}
}

func TestMeetDisjointFails(t *testing.T) {
	a := Exact(concr.New(4, 1))
	b := Exact(concr.New(4, 2))
	if _, ok := Meet(a, b); ok {
		t.Error("expected Meet of disjoint exact values to fail")
	}
}

func TestEqOnUnknownOperand(t *testing.T) {
	a := Unknown(8)
	b := Exact(concr.New(8, 5))
	eq := a.Eq(b)
	if eq.IsExact() {
		t.Error("expected Eq against an unknown operand to be unknown")
	}
}

func TestUltExact(t *testing.T) {
	a := Exact(concr.New(8, 3))
	b := Exact(concr.New(8, 5))
	lt := a.Ult(b)
	v, ok := lt.Concretize()
	if !ok || v.IsZero() {
		t.Errorf("expected 3 < 5 to be exactly true, got %v ok=%v", lt, ok)
	}
}

func TestSignedComparisonDistinctFromUnsigned(t *testing.T) {
	// 0xFF at width 8 is -1 signed, 255 unsigned.
	negOne := Exact(concr.New(8, 0xFF))
	zero := Exact(concr.New(8, 0))

	slt := negOne.Slt(zero)
	if v, ok := slt.Concretize(); !ok || v.IsZero() {
		t.Errorf("expected -1 < 0 signed to be true, got %v", slt)
	}

	ult := negOne.Ult(zero)
	if v, ok := ult.Concretize(); !ok || !v.IsZero() {
		t.Errorf("expected 255 < 0 unsigned to be false, got %v", ult)
	}
}

func TestUdivByPossiblyZeroDivisor(t *testing.T) {
	dividend := Exact(concr.New(8, 10))
	divisor := Unknown(8) // might be zero
	_, mayPanic, mustPanic := dividend.Udiv(divisor)
	if !mayPanic {
		t.Error("expected Udiv by an unknown divisor to flag mayPanic")
	}
	if mustPanic {
		t.Error("expected Udiv by an unknown divisor to not flag mustPanic")
	}
}

func TestUdivByExactZero(t *testing.T) {
	dividend := Exact(concr.New(8, 10))
	zero := Exact(concr.New(8, 0))
	_, mayPanic, mustPanic := dividend.Udiv(zero)
	if !mustPanic || !mayPanic {
		t.Error("expected Udiv by exactly zero to flag mustPanic")
	}
}

func TestSdivMinByMinusOneNeverPanics(t *testing.T) {
	minV := Exact(concr.New(4, 0b1000))
	minusOne := Exact(concr.New(4, 0b1111))
	_, mayPanic, mustPanic := minV.Sdiv(minusOne)
	if mayPanic || mustPanic {
		t.Error("expected Sdiv(MIN, -1) to never panic")
	}
}

func TestSdivNarrowsOverInexactDividend(t *testing.T) {
	// {4,5,6,7}, joined from its two endpoints.
	dividend := Join(Exact(concr.New(8, 4)), Exact(concr.New(8, 7)))
	divisor := Exact(concr.New(8, 2))

	quotient, mayPanic, mustPanic := dividend.Sdiv(divisor)
	if mayPanic || mustPanic {
		t.Fatal("an exact positive divisor must never panic")
	}

	four := Exact(concr.New(8, 4))
	v, ok := quotient.Ult(four).Concretize()
	if !ok {
		t.Fatalf("expected the region split to bound the quotient tightly enough for a definite comparison, got %v", quotient)
	}
	if v.IsZero() {
		t.Errorf("expected Sdiv({4..7}, 2) to stay below 4, got %v", quotient)
	}
}

func TestBitIndexing(t *testing.T) {
	b := Exact(concr.New(8, 0b00000100)) // bit 2 set
	bit := b.Bit(2)
	v, ok := bit.Concretize()
	if !ok || v.IsZero() {
		t.Errorf("expected bit 2 to read as 1, got %v", bit)
	}
	other := b.Bit(0)
	v2, ok := other.Concretize()
	if !ok || !v2.IsZero() {
		t.Errorf("expected bit 0 to read as 0, got %v", other)
	}
}
