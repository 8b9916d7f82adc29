package mark

import (
	"testing"

	"github.com/onderjan/machine-check-sub001/internal/bv/abstr"
	"github.com/onderjan/machine-check-sub001/internal/bv/concr"
)

func TestConstruction(t *testing.T) {
	if !NewUnmarked(8).IsEmpty() {
		t.Error("expected NewUnmarked to be empty")
	}
	if !NewMarked(8).IsFull() {
		t.Error("expected NewMarked to be full")
	}
	if NewFromFlag(8, true) != NewMarked(8) {
		t.Error("expected NewFromFlag(true) to equal NewMarked")
	}
	if NewFromFlag(8, false) != NewUnmarked(8) {
		t.Error("expected NewFromFlag(false) to equal NewUnmarked")
	}
	m := FromBits(4, 0xFF)
	if m.Bits() != 0x0F {
		t.Errorf("expected FromBits to mask to width, got %#x", m.Bits())
	}
}

func TestJoinUnion(t *testing.T) {
	a := FromBits(8, 0b0001)
	b := FromBits(8, 0b0100)
	j := a.Join(b)
	if j.Bits() != 0b0101 {
		t.Errorf("expected join to union bits, got %#b", j.Bits())
	}
}

func TestLimitRestrictsToUnknownBits(t *testing.T) {
	// v has bits 0-1 unknown (disagreement), bits 2-3 known exact.
	v := abstr.Join(
		abstr.Exact(concr.New(4, 0b0101)),
		abstr.Exact(concr.New(4, 0b0110)),
	)
	if v.UnknownBits() != 0b0011 {
		t.Fatalf("precondition: expected unknown bits 0b0011, got %#b", v.UnknownBits())
	}
	full := NewMarked(4)
	limited := full.Limit(v)
	if limited.Bits() != 0b0011 {
		t.Errorf("expected Limit to drop known bits, got %#b", limited.Bits())
	}
}

func TestAnyAndCount(t *testing.T) {
	if NewUnmarked(8).Any() {
		t.Error("expected unmarked to report Any() == false")
	}
	m := FromBits(8, 0b1011)
	if !m.Any() {
		t.Error("expected non-empty mark to report Any() == true")
	}
	if m.Count() != 3 {
		t.Errorf("expected 3 set bits, got %d", m.Count())
	}
}

func TestPossibilityIterNoMarkedBitsYieldsBaseOnce(t *testing.T) {
	base := abstr.Unknown(4)
	it := NewPossibilityIter(base, NewUnmarked(4))
	v, ok := it.Next()
	if !ok {
		t.Fatal("expected one possibility with zero marked bits")
	}
	if v != base {
		t.Errorf("expected the single possibility to equal base, got %v", v)
	}
	if _, ok := it.Next(); ok {
		t.Error("expected iteration to stop after the single possibility")
	}
}

func TestPossibilityIterEnumeratesAllCombinations(t *testing.T) {
	base := abstr.Unknown(4)
	mask := FromBits(4, 0b0011) // bits 0 and 1 marked
	it := NewPossibilityIter(base, mask)

	seen := make(map[uint64]bool)
	count := 0
	for {
		v, ok := it.Next()
		if !ok {
			break
		}
		count++
		concrete, exact := v.Concretize()
		if exact {
			t.Fatalf("expected bits 2,3 to remain unknown, got exact value %d", concrete.Value())
		}
		// Bits 0,1 must be pinned to a concrete value among {0,1}; bits 2,3 stay unknown.
		if v.UnknownBits() != 0b1100 {
			t.Errorf("expected bits 2,3 unknown mask 0b1100, got %#b", v.UnknownBits())
		}
		seen[v.Zeros()&0b0011] = true
	}
	if count != 4 {
		t.Errorf("expected 4 combinations for 2 marked bits, got %d", count)
	}
	if len(seen) != 4 {
		t.Errorf("expected 4 distinct low-bit patterns, got %d", len(seen))
	}
}

func TestBackwardNotPropagatesUnchanged(t *testing.T) {
	m := FromBits(8, 0b1010)
	if BackwardNot(m) != m {
		t.Error("expected BackwardNot to pass the mark through unchanged")
	}
}

func TestBackwardBitwiseMarksBothOperands(t *testing.T) {
	m := FromBits(8, 0b0001)
	a, b := BackwardBitwise(m)
	if a != m || b != m {
		t.Error("expected BackwardBitwise to mark both operands identically")
	}
}

func TestBackwardArithEmptyStaysUnmarked(t *testing.T) {
	a := abstr.Exact(concr.New(8, 3))
	b := abstr.Exact(concr.New(8, 4))
	markA, markB := BackwardArith(NewUnmarked(1), a, b)
	if markA.Any() || markB.Any() {
		t.Error("expected an empty later mark to produce empty earlier marks")
	}
}

func TestBackwardArithMarksUnknownBitsOnly(t *testing.T) {
	a := abstr.Unknown(8)
	b := abstr.Exact(concr.New(8, 4))
	markA, markB := BackwardArith(NewMarked(1), a, b)
	if markA.Bits() != 0xFF {
		t.Errorf("expected all of a's unknown bits marked, got %#x", markA.Bits())
	}
	if markB.Any() {
		t.Error("expected b's exact bits to stay unmarked even though a later mark is set")
	}
}

func TestBackwardUnaryArith(t *testing.T) {
	a := abstr.Unknown(4)
	if m := BackwardUnaryArith(NewUnmarked(1), a); m.Any() {
		t.Error("expected empty later mark to yield empty earlier mark")
	}
	if m := BackwardUnaryArith(NewMarked(1), a); m.Bits() != 0x0F {
		t.Errorf("expected all unknown bits marked, got %#x", m.Bits())
	}
}

func TestBackwardEqMarksEveryUnknownBitOfBothOperands(t *testing.T) {
	a := abstr.Unknown(8)
	b := abstr.Exact(concr.New(8, 5))
	markA, markB := BackwardEq(NewMarked(1), a, b)
	if markA.Bits() != 0xFF {
		t.Errorf("expected a's unknown bits marked, got %#x", markA.Bits())
	}
	if markB.Any() {
		t.Error("expected b's exact bits to stay unmarked")
	}
}

func TestBackwardCompareDelegatesToBackwardArith(t *testing.T) {
	a := abstr.Unknown(8)
	b := abstr.Exact(concr.New(8, 5))
	cmpA, cmpB := BackwardCompare(NewMarked(1), a, b)
	arithA, arithB := BackwardArith(NewMarked(1), a, b)
	if cmpA != arithA || cmpB != arithB {
		t.Error("expected BackwardCompare to match BackwardArith exactly")
	}
}

func TestBackwardZeroExtendMapsLowBitsExactly(t *testing.T) {
	later := FromBits(8, 0b00001111) // fromWidth 4; only the low bits 0-3 marked, no extension bits
	earlier := BackwardZeroExtend(later, 4)
	if earlier.Width() != 4 {
		t.Fatalf("expected earlier width 4, got %d", earlier.Width())
	}
	if earlier.Bits() != 0b1111 {
		t.Errorf("expected the low 4 bits preserved, got %#b", earlier.Bits())
	}
}

func TestBackwardSignExtendFoldsExtensionOntoSignBit(t *testing.T) {
	// fromWidth 4, width 8: extension bits are 4-7. Marking an extension
	// bit must fold back onto bit 3 (the sign bit of the 4-bit input).
	later := FromBits(8, 0b00010000) // bit 4 (an extension bit) marked
	earlier := BackwardSignExtend(later, 4)
	if earlier.Width() != 4 {
		t.Fatalf("expected earlier width 4, got %d", earlier.Width())
	}
	if earlier.Bits() != 0b1000 {
		t.Errorf("expected the sign bit (bit 3) marked, got %#b", earlier.Bits())
	}
}

func TestBackwardSignExtendWithoutExtensionBitsMarked(t *testing.T) {
	later := FromBits(8, 0b00000101) // only low bits marked, no extension bits
	earlier := BackwardSignExtend(later, 4)
	if earlier.Bits() != 0b0101 {
		t.Errorf("expected no sign-bit folding without a marked extension bit, got %#b", earlier.Bits())
	}
}

func TestBackwardShiftByConcreteLeft(t *testing.T) {
	// A later mark on bit 5 after ShiftLeft by 2 implies bit 3 earlier.
	later := FromBits(8, 1<<5)
	earlier := BackwardShiftByConcrete(later, 2, ShiftLeft)
	if earlier.Bits() != 1<<3 {
		t.Errorf("expected bit 3 marked, got %#b", earlier.Bits())
	}
}

func TestBackwardShiftByConcreteLogicalRight(t *testing.T) {
	// A later mark on bit 3 after ShiftRightLogical by 2 implies bit 5 earlier.
	later := FromBits(8, 1<<3)
	earlier := BackwardShiftByConcrete(later, 2, ShiftRightLogical)
	if earlier.Bits() != 1<<5 {
		t.Errorf("expected bit 5 marked, got %#b", earlier.Bits())
	}
}

func TestBackwardShiftByConcreteArithmeticRightFoldsIntoSignBit(t *testing.T) {
	// width 8, shift right arithmetic by 2: output bits 5,6,7 are all
	// copies of the input's sign bit (bit 7), so marking any of them
	// must fold back onto bit 7.
	later := FromBits(8, 1<<6)
	earlier := BackwardShiftByConcrete(later, 2, ShiftRightArithmetic)
	if earlier.Bits() != 1<<7 {
		t.Errorf("expected the sign bit (bit 7) marked, got %#b", earlier.Bits())
	}
}

func TestBackwardShiftByConcreteAmountAtOrAboveWidthIsUnmarked(t *testing.T) {
	later := NewMarked(8)
	if earlier := BackwardShiftByConcrete(later, 8, ShiftLeft); earlier.Any() {
		t.Error("expected a shift amount at or above width to yield an unmarked earlier value")
	}
}
