// Package abstr implements the three-valued (Kleene) bitvector abstract
// domain: each bit is zero, one, or unknown, represented as a pair of
// concrete bitvectors (zeros, ones) with the invariant zeros|ones == all
// ones of the width. Forward transfer functions for every concrete
// bitvector operation are provided, following the min-max construction of
// the original Rust implementation's abstract arithmetic.
package abstr

import (
	"fmt"
	"math/big"
	"math/bits"

	"github.com/onderjan/machine-check-sub001/internal/bv/concr"
)

// Bitvector is a three-valued bitvector: a bit position is concretely 0 if
// zeros has it set and ones does not, concretely 1 if ones has it set and
// zeros does not, and unknown if both have it set. Both-clear is invalid
// and never constructed by this package.
type Bitvector struct {
	width uint8
	zeros uint64
	ones  uint64
}

// Unknown returns the bitvector of the given width with every bit unknown.
func Unknown(width uint8) Bitvector {
	m := concr.Mask(width)
	return Bitvector{width: width, zeros: m, ones: m}
}

// Exact lifts a concrete bitvector into the abstract domain with no
// unknown bits.
func Exact(c concr.Bitvector) Bitvector {
	m := concr.Mask(c.Width())
	return Bitvector{width: c.Width(), zeros: (^c.Value()) & m, ones: c.Value()}
}

// FromZerosOnes constructs a Bitvector directly from its zeros/ones masks.
// The caller must ensure zeros|ones covers the full width; callers inside
// this package rely on that invariant without rechecking it.
func FromZerosOnes(width uint8, zeros, ones uint64) Bitvector {
	m := concr.Mask(width)
	return Bitvector{width: width, zeros: zeros & m, ones: ones & m}
}

func (b Bitvector) Width() uint8  { return b.width }
func (b Bitvector) Zeros() uint64 { return b.zeros }
func (b Bitvector) Ones() uint64  { return b.ones }

// UnknownBits returns the mask of bit positions that are unknown.
func (b Bitvector) UnknownBits() uint64 { return b.zeros & b.ones }

// IsExact reports whether the bitvector has no unknown bits.
func (b Bitvector) IsExact() bool { return b.UnknownBits() == 0 }

// Concretize returns the underlying concrete bitvector and true if the
// value is exact, or the zero value and false otherwise.
func (b Bitvector) Concretize() (concr.Bitvector, bool) {
	if !b.IsExact() {
		return concr.Bitvector{}, false
	}
	return concr.New(b.width, b.ones), true
}

func (b Bitvector) String() string {
	bits := make([]byte, b.width)
	for i := uint8(0); i < b.width; i++ {
		bit := uint64(1) << (b.width - 1 - i)
		switch {
		case b.zeros&bit != 0 && b.ones&bit != 0:
			bits[i] = 'X'
		case b.ones&bit != 0:
			bits[i] = '1'
		default:
			bits[i] = '0'
		}
	}
	return fmt.Sprintf("%d'b%s", b.width, string(bits))
}

// Join computes the least upper bound (union of possibilities): a bit is
// known in the result only if it agrees in both operands.
func Join(a, b Bitvector) Bitvector {
	return Bitvector{width: a.width, zeros: a.zeros | b.zeros, ones: a.ones | b.ones}
}

// Meet computes the greatest lower bound (intersection of possibilities).
// ok is false if the operands disagree on some bit (empty intersection).
func Meet(a, b Bitvector) (result Bitvector, ok bool) {
	zeros := a.zeros & b.zeros
	ones := a.ones & b.ones
	if zeros|ones != concr.Mask(a.width) {
		return Bitvector{}, false
	}
	return Bitvector{width: a.width, zeros: zeros, ones: ones}, true
}

// Contains reports whether the concrete value c is one of the
// possibilities described by b.
func (b Bitvector) Contains(c concr.Bitvector) bool {
	v := c.Value()
	for i := uint8(0); i < b.width; i++ {
		bit := uint64(1) << i
		bitIsOne := v&bit != 0
		if bitIsOne && b.ones&bit == 0 {
			return false
		}
		if !bitIsOne && b.zeros&bit == 0 {
			return false
		}
	}
	return true
}

// --- Bitwise (exact, bit-independent) ---

func (b Bitvector) Not() Bitvector {
	return Bitvector{width: b.width, zeros: b.ones, ones: b.zeros}
}

// exactZero/exactOne/unknownBits classify each bit of b as exactly zero,
// exactly one, or unknown.
func (b Bitvector) exactZero() uint64 { return b.zeros &^ b.ones }
func (b Bitvector) exactOne() uint64  { return b.ones &^ b.zeros }

func (a Bitvector) And(b Bitvector) Bitvector {
	// A bit is known zero if it is known zero in either operand; known one
	// only if known one in both; otherwise unknown.
	resultZero := a.exactZero() | b.exactZero()
	resultOne := a.exactOne() & b.exactOne()
	m := concr.Mask(a.width) &^ resultZero &^ resultOne
	return FromZerosOnes(a.width, resultZero|m, resultOne|m)
}

func (a Bitvector) Or(b Bitvector) Bitvector {
	// A bit is known one if it is known one in either operand; known zero
	// only if known zero in both; otherwise unknown.
	resultOne := a.exactOne() | b.exactOne()
	resultZero := a.exactZero() & b.exactZero()
	m := concr.Mask(a.width) &^ resultZero &^ resultOne
	return FromZerosOnes(a.width, resultZero|m, resultOne|m)
}

func (a Bitvector) Xor(b Bitvector) Bitvector {
	// Exact bits XOR directly; if either operand bit is unknown the result
	// bit is unknown (unless both operands happen to be unknown, still
	// unknown).
	resultZeros := uint64(0)
	resultOnes := uint64(0)
	for i := uint8(0); i < a.width; i++ {
		bit := uint64(1) << i
		aUnknown := a.zeros&bit != 0 && a.ones&bit != 0
		bUnknown := b.zeros&bit != 0 && b.ones&bit != 0
		if aUnknown || bUnknown {
			resultZeros |= bit
			resultOnes |= bit
			continue
		}
		aBit := a.ones&bit != 0
		bBit := b.ones&bit != 0
		if aBit != bBit {
			resultOnes |= bit
		} else {
			resultZeros |= bit
		}
	}
	return FromZerosOnes(a.width, resultZeros, resultOnes)
}

// --- Arithmetic: min-max range propagation ---
//
// Each unsigned corner (minCorner sets every unknown bit to 0, maxCorner to
// 1) bounds the set of concrete values a Bitvector stands for. For any
// monotonic operation, the true result is contained in the range spanned by
// the corner values; bitRange then reads off which output bits are forced
// by that whole range and which remain unknown. This is a simplified,
// whole-width variant of the per-output-bit prefix construction in the
// original three-valued arithmetic (arith.rs's minmax_compute): it is
// sound and becomes exact once both operands are exact, at the cost of
// sometimes marking a bit unknown that a tighter prefix-local analysis
// would have resolved.

func minCorner(b Bitvector) uint64 { return b.exactOne() }
func maxCorner(b Bitvector) uint64 { return b.ones }

func uintBig(v uint64) *big.Int { return new(big.Int).SetUint64(v) }

// bitRange reads off, for each bit 0..width-1, whether it is constant
// across the closed integer range [lo, hi] (lo may exceed hi only for
// already-empty ranges, which callers avoid constructing) and if so what
// its value is. lo/hi may be negative (two's complement arithmetic shift
// applies via math/big's Rsh/Bit semantics), which subtraction relies on.
func bitRange(lo, hi *big.Int, width uint8) (zeros, ones uint64) {
	for k := uint8(0); k < width; k++ {
		loShift := new(big.Int).Rsh(lo, uint(k))
		hiShift := new(big.Int).Rsh(hi, uint(k))
		bit := uint64(1) << k
		if loShift.Cmp(hiShift) == 0 {
			if loShift.Bit(0) == 1 {
				ones |= bit
			} else {
				zeros |= bit
			}
		} else {
			zeros |= bit
			ones |= bit
		}
	}
	return zeros, ones
}

func (a Bitvector) Add(b Bitvector) Bitvector {
	lo := new(big.Int).Add(uintBig(minCorner(a)), uintBig(minCorner(b)))
	hi := new(big.Int).Add(uintBig(maxCorner(a)), uintBig(maxCorner(b)))
	zeros, ones := bitRange(lo, hi, a.width)
	return FromZerosOnes(a.width, zeros, ones)
}

func (a Bitvector) Sub(b Bitvector) Bitvector {
	lo := new(big.Int).Sub(uintBig(minCorner(a)), uintBig(maxCorner(b)))
	hi := new(big.Int).Sub(uintBig(maxCorner(a)), uintBig(minCorner(b)))
	zeros, ones := bitRange(lo, hi, a.width)
	return FromZerosOnes(a.width, zeros, ones)
}

func (a Bitvector) Neg() Bitvector {
	return Exact(concr.Zero(a.width)).Sub(a)
}

func (a Bitvector) Mul(b Bitvector) Bitvector {
	// Both corners are unsigned and non-negative, so the product is
	// monotonic increasing in each factor independently and the extremes
	// of the box are exactly (min,min) and (max,max).
	lo := new(big.Int).Mul(uintBig(minCorner(a)), uintBig(minCorner(b)))
	hi := new(big.Int).Mul(uintBig(maxCorner(a)), uintBig(maxCorner(b)))
	zeros, ones := bitRange(lo, hi, a.width)
	return FromZerosOnes(a.width, zeros, ones)
}

// --- Comparisons: result is a 1-bit Bitvector ---

func oneBit(known bool, value bool) Bitvector {
	if !known {
		return Unknown(1)
	}
	if value {
		return FromZerosOnes(1, 0, 1)
	}
	return FromZerosOnes(1, 1, 0)
}

func (a Bitvector) Eq(b Bitvector) Bitvector {
	// Exact per spec: equality/inequality must be exact even when operands
	// carry unknown bits, by checking whether the possibility sets
	// intersect at all and whether they are each singletons.
	_, meets := Meet(a, b)
	if !meets {
		return oneBit(true, false)
	}
	if a.IsExact() && b.IsExact() {
		return oneBit(true, a.ones == b.ones)
	}
	return Unknown(1)
}

func (a Bitvector) Ne(b Bitvector) Bitvector { return a.Eq(b).Not3() }

// Not3 inverts a known 1-bit result, leaving unknown as unknown.
func (a Bitvector) Not3() Bitvector { return a.Not() }

func (a Bitvector) Ult(b Bitvector) Bitvector {
	aMax, bMin := maxCorner(a), minCorner(b)
	aMin, bMax := minCorner(a), maxCorner(b)
	if aMax < bMin {
		return oneBit(true, true)
	}
	if aMin >= bMax {
		return oneBit(true, false)
	}
	return Unknown(1)
}

func (a Bitvector) Ule(b Bitvector) Bitvector { return b.Ult(a).Not3() }
func (a Bitvector) Ugt(b Bitvector) Bitvector { return b.Ult(a) }
func (a Bitvector) Uge(b Bitvector) Bitvector { return a.Ult(b).Not3() }

func (a Bitvector) Slt(b Bitvector) Bitvector {
	// Signed min/max corners are not simply minCorner/maxCorner reinterpreted,
	// since the sign bit flips the ordering; signedRange computes the true
	// signed extremes of each operand, as arith.rs's apply_signed_op does
	// for signed comparisons.
	aLo, aHi := a.signedRange()
	bLo, bHi := b.signedRange()
	if aHi < bLo {
		return oneBit(true, true)
	}
	if aLo >= bHi {
		return oneBit(true, false)
	}
	return Unknown(1)
}

func (a Bitvector) Sle(b Bitvector) Bitvector { return b.Slt(a).Not3() }
func (a Bitvector) Sgt(b Bitvector) Bitvector { return b.Slt(a) }
func (a Bitvector) Sge(b Bitvector) Bitvector { return a.Slt(b).Not3() }

// signedRange returns the true [min,max] signed range of a. With a known
// sign bit these are the unsigned min/max corners reinterpreted as signed
// values; with an unknown sign bit the minimum is the minimum corner with
// the sign bit set and the maximum is the maximum corner with it cleared.
func (a Bitvector) signedRange() (lo, hi int64) {
	if a.width == 0 {
		return 0, 0
	}
	signBit := uint64(1) << (a.width - 1)
	loBits, hiBits := minCorner(a), maxCorner(a)
	if a.UnknownBits()&signBit != 0 {
		loBits |= signBit
		hiBits &^= signBit
	}
	return concr.New(a.width, loBits).Signed(), concr.New(a.width, hiBits).Signed()
}

// Bit extracts a single bit as a 1-wide Bitvector, used by the property
// checker's bit-indexing atoms (e.g. "count[3] == 1").
func (a Bitvector) Bit(i uint8) Bitvector {
	bit := uint64(1) << i
	z, o := uint64(0), uint64(0)
	if a.zeros&bit != 0 {
		z = 1
	}
	if a.ones&bit != 0 {
		o = 1
	}
	return FromZerosOnes(1, z, o)
}

// --- Extension ---

func (a Bitvector) ZeroExtend(width uint8) Bitvector {
	return FromZerosOnes(width, a.zeros|(^concr.Mask(a.width)&concr.Mask(width)), a.ones)
}

func (a Bitvector) SignExtend(width uint8) Bitvector {
	if width <= a.width {
		return FromZerosOnes(width, a.zeros, a.ones)
	}
	extendMask := concr.Mask(width) ^ concr.Mask(a.width)
	signZero := a.zeros&(uint64(1)<<(a.width-1)) != 0 && a.ones&(uint64(1)<<(a.width-1)) == 0
	signOne := a.ones&(uint64(1)<<(a.width-1)) != 0 && a.zeros&(uint64(1)<<(a.width-1)) == 0
	switch {
	case signZero:
		return FromZerosOnes(width, a.zeros|extendMask, a.ones)
	case signOne:
		return FromZerosOnes(width, a.zeros, a.ones|extendMask)
	default:
		// Sign bit unknown: the extension bits are unknown too.
		return FromZerosOnes(width, a.zeros|extendMask, a.ones|extendMask)
	}
}

// --- Shifts: by a concrete amount only. This package has no shift by a
// non-concrete amount; a caller with such an amount computes one shift per
// possible amount and joins the results itself.

func (a Bitvector) ShlConcrete(amount uint64) Bitvector {
	if amount >= uint64(a.width) {
		return Exact(concr.Zero(a.width))
	}
	return FromZerosOnes(a.width, (a.zeros<<amount)|concr.Mask(uint8(amount)), a.ones<<amount)
}

func (a Bitvector) LshrConcrete(amount uint64) Bitvector {
	if amount >= uint64(a.width) {
		return Exact(concr.Zero(a.width))
	}
	topMask := concr.Mask(a.width) &^ concr.Mask(a.width-uint8(amount))
	return FromZerosOnes(a.width, (a.zeros>>amount)|topMask, a.ones>>amount)
}

func (a Bitvector) AshrConcrete(amount uint64) Bitvector {
	if a.width == 0 {
		return a
	}
	if amount >= uint64(a.width) {
		signBit := uint64(1) << (a.width - 1)
		signZero := a.zeros&signBit != 0 && a.ones&signBit == 0
		signOne := a.ones&signBit != 0 && a.zeros&signBit == 0
		switch {
		case signZero:
			return Exact(concr.Zero(a.width))
		case signOne:
			return Exact(concr.AllOnes(a.width))
		default:
			return Unknown(a.width)
		}
	}
	topMask := concr.Mask(a.width) &^ concr.Mask(a.width-uint8(amount))
	signBit := uint64(1) << (a.width - 1)
	signZero := a.zeros&signBit != 0 && a.ones&signBit == 0
	signOne := a.ones&signBit != 0 && a.zeros&signBit == 0
	switch {
	case signZero:
		return FromZerosOnes(a.width, (a.zeros>>amount)|topMask, a.ones>>amount)
	case signOne:
		return FromZerosOnes(a.width, a.zeros>>amount, (a.ones>>amount)|topMask)
	default:
		return FromZerosOnes(a.width, (a.zeros>>amount)|topMask, (a.ones>>amount)|topMask)
	}
}

// --- Division / remainder ---
//
// mayPanic/mustPanic classify the abstract divisor per arith.rs's
// panic_result: mustPanic iff the divisor is exactly zero, mayPanic iff
// zero is one of the divisor's possibilities. The quotient/remainder
// range is computed over the divisor's nonzero sub-range; callers combine
// the returned Bitvector with the panic flags through panicv.

func (b Bitvector) couldBeZero() bool { return b.exactOne() == 0 }
func (b Bitvector) mustBeZero() bool  { return b.ones == 0 }

func (a Bitvector) Udiv(b Bitvector) (quotient Bitvector, mayPanic, mustPanic bool) {
	mustPanic = b.mustBeZero()
	mayPanic = b.couldBeZero()
	if mustPanic {
		return Unknown(a.width), mayPanic, mustPanic
	}
	bMin, bMax := minCorner(b), maxCorner(b)
	if bMin == 0 {
		bMin = 1
	}
	aMin, aMax := minCorner(a), maxCorner(a)
	lo := new(big.Int).Div(uintBig(aMin), uintBig(bMax))
	hi := new(big.Int).Div(uintBig(aMax), uintBig(bMin))
	zeros, ones := bitRange(lo, hi, a.width)
	return FromZerosOnes(a.width, zeros, ones), mayPanic, mustPanic
}

// Urem is conservative: exact when both operands are exact, unknown
// otherwise, matching the texture of the original's own backward
// remainder handling (mark.rs leaves TypedCmp and several backward ops as
// todo!() — forward urem here stays sound without chasing full precision).
func (a Bitvector) Urem(b Bitvector) (remainder Bitvector, mayPanic, mustPanic bool) {
	mustPanic = b.mustBeZero()
	mayPanic = b.couldBeZero()
	if mustPanic {
		return a, mayPanic, mustPanic
	}
	if ac, aok := a.Concretize(); aok {
		if bc, bok := b.Concretize(); bok && !bc.IsZero() {
			r, _ := ac.Urem(bc)
			return Exact(r), mayPanic, mustPanic
		}
	}
	return Unknown(a.width), mayPanic, mustPanic
}

func (a Bitvector) Sdiv(b Bitvector) (quotient Bitvector, mayPanic, mustPanic bool) {
	mustPanic = b.mustBeZero()
	mayPanic = b.couldBeZero()
	if mustPanic {
		return Unknown(a.width), mayPanic, mustPanic
	}
	return computeSdivrem(a, b, func(av, bv int64) uint64 {
		r, _ := concr.New(a.width, uint64(av)).Sdiv(concr.New(a.width, uint64(bv)))
		return r.Unsigned()
	}), mayPanic, mustPanic
}

func (a Bitvector) Srem(b Bitvector) (remainder Bitvector, mayPanic, mustPanic bool) {
	mustPanic = b.mustBeZero()
	mayPanic = b.couldBeZero()
	if mustPanic {
		return a, mayPanic, mustPanic
	}
	return computeSdivrem(a, b, func(av, bv int64) uint64 {
		r, _ := concr.New(a.width, uint64(av)).Srem(concr.New(a.width, uint64(bv)))
		return r.Unsigned()
	}), mayPanic, mustPanic
}

// computeSdivrem computes a signed division-family op (sdiv or srem, picked
// by opFn) over two abstract operands by splitting the divisor's signed
// range into the four regions it behaves differently over — positive,
// zero, minus-one, and below-minus-one — and bounding the result over each
// region separately, mirroring compute_sdivrem's region split.
func computeSdivrem(dividend, divisor Bitvector, opFn func(a, b int64) uint64) Bitvector {
	width := dividend.width
	if width == 0 {
		return dividend
	}

	var zeros, ones uint64
	divisorMin, divisorMax := divisor.signedRange()
	dividendMin, dividendMax := dividend.signedRange()

	if divisorMax > 0 {
		lo := divisorMin
		if lo < 1 {
			lo = 1
		}
		applySignedOp(width, dividendMin, dividendMax, lo, divisorMax, opFn, &zeros, &ones)
	}

	if divisorMin <= 0 && divisorMax >= 0 {
		applySignedOp(width, dividendMin, dividendMax, 0, 0, opFn, &zeros, &ones)
	}

	if divisorMin <= -1 && divisorMax >= -1 {
		dMin, dMax := dividendMin, dividendMax
		if dMin == signedMin(width) {
			// dividend's most negative value divided by -1 overflows,
			// wrapping back to itself; handle it as its own singleton
			// region before folding in the rest of the range.
			applySignedOp(width, dMin, dMin, -1, -1, opFn, &zeros, &ones)
			if dMin != dMax {
				dMin++
			}
		}
		applySignedOp(width, dMin, dMax, -1, -1, opFn, &zeros, &ones)
	}

	if divisorMin < -1 {
		hi := divisorMax
		if hi > -2 {
			hi = -2
		}
		applySignedOp(width, dividendMin, dividendMax, divisorMin, hi, opFn, &zeros, &ones)
	}

	return FromZerosOnes(width, zeros, ones)
}

// signedMin returns the most negative value representable at width.
func signedMin(width uint8) int64 {
	if width == 0 {
		return 0
	}
	if width >= 64 {
		return -1 << 63
	}
	return -(int64(1) << (width - 1))
}

// applySignedOp evaluates opFn at the box's four corners and folds the
// results into zeros/ones: bits constant across all four corners are
// settled, and the highest bit position at which any two corners disagree
// (and every bit below it) is marked unknown, matching apply_signed_op's
// "highest different bit dominates" widening.
func applySignedOp(width uint8, aMin, aMax, bMin, bMax int64, opFn func(a, b int64) uint64, zeros, ones *uint64) {
	x := opFn(aMin, bMin)
	y := opFn(aMin, bMax)
	z := opFn(aMax, bMin)
	w := opFn(aMax, bMax)

	mask := concr.Mask(width)
	foundZeros := (^x | ^y | ^z | ^w) & mask
	foundOnes := (x | y | z | w) & mask
	different := foundZeros & foundOnes

	*zeros |= foundZeros
	*ones |= foundOnes

	if different == 0 {
		return
	}

	highestDifferentBit := uint8(bits.Len64(different) - 1)
	unknownMask := concr.Mask(highestDifferentBit + 1)
	*zeros |= unknownMask
	*ones |= unknownMask
}
