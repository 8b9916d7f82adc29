// Package mark implements the mark bitvector used for backward
// sensitivity analysis: a bitmask recording which bit positions of a
// value the checker still cares about, propagated backward through the
// machine's step function during refinement, and reused verbatim as the
// precision mask stored per node.
package mark

import (
	"math/bits"

	"github.com/onderjan/machine-check-sub001/internal/bv/abstr"
	"github.com/onderjan/machine-check-sub001/internal/bv/concr"
)

// Mark is a bitmask over a fixed width: bit i set means "bit i of the
// associated value is significant".
type Mark struct {
	width uint8
	bits  uint64
}

// NewUnmarked returns the mask with no bits significant.
func NewUnmarked(width uint8) Mark { return Mark{width: width} }

// NewMarked returns the mask with every bit significant.
func NewMarked(width uint8) Mark { return Mark{width: width, bits: concr.Mask(width)} }

// NewFromFlag returns NewMarked if flag is true, NewUnmarked otherwise —
// the common case of "mark this whole value iff some condition holds".
func NewFromFlag(width uint8, flag bool) Mark {
	if flag {
		return NewMarked(width)
	}
	return NewUnmarked(width)
}

// FromBits constructs a Mark directly from a raw bitmask, masked to width.
func FromBits(width uint8, raw uint64) Mark {
	return Mark{width: width, bits: raw & concr.Mask(width)}
}

func (m Mark) Width() uint8  { return m.width }
func (m Mark) Bits() uint64  { return m.bits }
func (m Mark) IsEmpty() bool { return m.bits == 0 }
func (m Mark) IsFull() bool  { return m.bits == concr.Mask(m.width) }

// Join is the union of two marks: a bit is significant in the result if
// it was significant in either input. Precision and sensitivity masks
// both only ever grow, so Join is the natural merge across culprit paths
// and across the multiple callers of a shared predecessor.
func (m Mark) Join(other Mark) Mark {
	return Mark{width: m.width, bits: m.bits | other.bits}
}

// Limit restricts a mark to only the bits that are actually unknown in v,
// since there is no point asking refinement to chase a bit the abstract
// domain already knows exactly.
func (m Mark) Limit(v abstr.Bitvector) Mark {
	return Mark{width: m.width, bits: m.bits & v.UnknownBits()}
}

// Any reports whether at least one bit is marked.
func (m Mark) Any() bool { return m.bits != 0 }

// Count returns the number of marked bits.
func (m Mark) Count() int { return bits.OnesCount64(m.bits) }

// --- Possibility enumeration ---
//
// PossibilityIter walks every combination of concrete values for the
// marked bits of an abstr.Bitvector, holding unmarked bits at "unknown".
// It mirrors the original's manual carry-style iteration: marked bit
// positions are treated as a little-endian counter, incremented like
// addition, and iteration stops once the counter overflows past the
// highest marked bit.
type PossibilityIter struct {
	mask      Mark
	positions []uint8
	current   uint64 // one bit of "current" per entry in positions
	done      bool
	base      abstr.Bitvector
}

// NewPossibilityIter starts an iterator over base restricted by mask:
// every marked bit ranges over {0,1}, every unmarked bit stays unknown.
func NewPossibilityIter(base abstr.Bitvector, mask Mark) *PossibilityIter {
	var positions []uint8
	for i := uint8(0); i < mask.width; i++ {
		if mask.bits&(uint64(1)<<i) != 0 {
			positions = append(positions, i)
		}
	}
	return &PossibilityIter{mask: mask, positions: positions, base: base}
}

// Next returns the next concretization and true, or the zero value and
// false once every combination has been produced. With zero marked bits
// it yields base exactly once.
func (it *PossibilityIter) Next() (abstr.Bitvector, bool) {
	if it.done {
		return abstr.Bitvector{}, false
	}
	if len(it.positions) == 0 {
		it.done = true
		return it.base, true
	}

	zeros := it.base.Zeros()
	ones := it.base.Ones()
	for idx, pos := range it.positions {
		bit := uint64(1) << pos
		if it.current&(uint64(1)<<idx) != 0 {
			ones |= bit
			zeros &^= bit
		} else {
			zeros |= bit
			ones &^= bit
		}
	}
	result := abstr.FromZerosOnes(it.base.Width(), zeros, ones)

	// Advance the little-endian counter over len(positions) bits.
	next := it.current + 1
	if next>>len(it.positions) != 0 {
		it.done = true
	}
	it.current = next
	return result, true
}

// --- Backward (mark-propagation) operators ---
//
// Each Backward* function takes the mark on a later value (the output of
// the forward operation) and returns the marks it implies on the earlier
// values (the inputs). Per the original's mark.rs, equality/inequality
// and extension propagate exactly; bitwise operators pass the mark
// unchanged to both operands and shifts by a concrete amount map it
// exactly; arithmetic and ordering comparisons are conservative, marking
// every unknown input bit whenever any output bit is marked, since a
// precise per-bit backward arithmetic
// transfer function is not required for soundness (refinement always
// converges by eventually marking everything, just less efficiently).

// BackwardNot propagates a later mark unchanged through bitwise complement.
func BackwardNot(markLater Mark) (markEarlier Mark) { return markLater }

// BackwardBitwise propagates a later mark unchanged to both operands of
// AND/OR/XOR — a single output bit can depend on either input bit, so
// both are conservatively marked together.
func BackwardBitwise(markLater Mark) (markA, markB Mark) { return markLater, markLater }

// BackwardArith conservatively marks every unknown bit of both operands
// whenever any later bit is marked, for add/sub/mul/div/rem.
func BackwardArith(markLater Mark, a, b abstr.Bitvector) (markA, markB Mark) {
	if markLater.IsEmpty() {
		return NewUnmarked(a.Width()), NewUnmarked(b.Width())
	}
	return NewMarked(a.Width()).Limit(a), NewMarked(b.Width()).Limit(b)
}

// BackwardUnaryArith is BackwardArith for negation.
func BackwardUnaryArith(markLater Mark, a abstr.Bitvector) (markA Mark) {
	if markLater.IsEmpty() {
		return NewUnmarked(a.Width())
	}
	return NewMarked(a.Width()).Limit(a)
}

// BackwardEq propagates a later mark (on the 1-bit comparison result)
// back to both operands exactly: if the comparison result is significant
// at all, every bit of both operands that could change the outcome is
// marked, matching TypedEq's exact treatment in the original (it is one
// of the few operators the original does not leave conservative).
func BackwardEq(markLater Mark, a, b abstr.Bitvector) (markA, markB Mark) {
	if markLater.IsEmpty() {
		return NewUnmarked(a.Width()), NewUnmarked(b.Width())
	}
	return NewMarked(a.Width()).Limit(a), NewMarked(b.Width()).Limit(b)
}

// BackwardCompare is conservative for ordering comparisons (Ult/Slt/...):
// the original leaves TypedCmp's backward transfer as unimplemented
// (todo!() in mark.rs), so this marks every unknown bit of both operands
// whenever the result is marked, same as BackwardArith.
func BackwardCompare(markLater Mark, a, b abstr.Bitvector) (markA, markB Mark) {
	return BackwardArith(markLater, a, b)
}

// BackwardZeroExtend/BackwardSignExtend propagate the mark on the
// extended bits back onto the original width exactly, since extension is
// a bijection between the low bits of the output and the whole input.
func BackwardZeroExtend(markLater Mark, fromWidth uint8) (markEarlier Mark) {
	return Mark{width: fromWidth, bits: markLater.bits & concr.Mask(fromWidth)}
}

func BackwardSignExtend(markLater Mark, fromWidth uint8) (markEarlier Mark) {
	extendMask := concr.Mask(markLater.width) ^ concr.Mask(fromWidth)
	earlier := markLater.bits & concr.Mask(fromWidth)
	if markLater.bits&extendMask != 0 {
		// Any marked extension bit depends on the sign bit of the input.
		earlier |= uint64(1) << (fromWidth - 1)
	}
	return Mark{width: fromWidth, bits: earlier}
}

// BackwardShiftByConcrete propagates a later mark back through a shift by
// a known concrete amount exactly (shifts are bit permutations/clears, so
// the backward map is exact even though the original leaves variable-
// amount shifts conservative).
func BackwardShiftByConcrete(markLater Mark, amount uint64, kind ShiftKind) (markEarlier Mark) {
	w := markLater.width
	if amount >= uint64(w) {
		if kind == ShiftRightArithmetic && markLater.Any() {
			// Every output bit is a copy of the input's sign bit.
			return Mark{width: w, bits: uint64(1) << (w - 1)}
		}
		return NewUnmarked(w)
	}
	switch kind {
	case ShiftLeft:
		return Mark{width: w, bits: markLater.bits >> amount}
	case ShiftRightLogical, ShiftRightArithmetic:
		shifted := markLater.bits << amount
		if kind == ShiftRightArithmetic && markLater.bits&(concr.Mask(w)&^concr.Mask(w-uint8(amount))) != 0 {
			shifted |= uint64(1) << (w - 1)
		}
		return Mark{width: w, bits: shifted & concr.Mask(w)}
	default:
		return NewMarked(w)
	}
}

// ShiftKind distinguishes the three shift directions for
// BackwardShiftByConcrete.
type ShiftKind int

const (
	ShiftLeft ShiftKind = iota
	ShiftRightLogical
	ShiftRightArithmetic
)
