// Package concr implements concrete fixed-width bitvectors: a (width, value)
// pair with value < 2^width, wrapping arithmetic, and the signed/unsigned
// views used throughout the abstract domains built on top of it.
//
// Widths are capped at 64 bits and stored in a native uint64; the verifier
// only ever targets BTOR2-shaped machine words, which never exceed that.
package concr

import "fmt"

// Bitvector is a concrete (width, value) pair with value masked to width.
type Bitvector struct {
	width uint8
	value uint64
}

// Mask returns the all-ones value of the given width.
func Mask(width uint8) uint64 {
	if width == 0 {
		return 0
	}
	if width >= 64 {
		return ^uint64(0)
	}
	return (uint64(1) << width) - 1
}

// New constructs a bitvector, masking value to width bits.
func New(width uint8, value uint64) Bitvector {
	return Bitvector{width: width, value: value & Mask(width)}
}

// Zero returns the zero bitvector of the given width.
func Zero(width uint8) Bitvector { return Bitvector{width: width} }

// AllOnes returns the bitvector with every bit set, of the given width.
func AllOnes(width uint8) Bitvector { return Bitvector{width: width, value: Mask(width)} }

func (b Bitvector) Width() uint8  { return b.width }
func (b Bitvector) Value() uint64 { return b.value }
func (b Bitvector) IsZero() bool  { return b.value == 0 }

func (b Bitvector) String() string {
	return fmt.Sprintf("%d'd%d", b.width, b.value)
}

func (a Bitvector) Equal(b Bitvector) bool {
	return a.width == b.width && a.value == b.value
}

// Unsigned returns the value under an unsigned interpretation.
func (b Bitvector) Unsigned() uint64 { return b.value }

// Signed returns the value under a two's-complement signed interpretation.
func (b Bitvector) Signed() int64 {
	if b.width == 0 {
		return 0
	}
	if b.width >= 64 {
		return int64(b.value)
	}
	signBit := uint64(1) << (b.width - 1)
	if b.value&signBit != 0 {
		return int64(b.value) - int64(uint64(1)<<b.width)
	}
	return int64(b.value)
}

// SignBit returns whether the sign (most significant) bit is set.
func (b Bitvector) SignBit() bool {
	if b.width == 0 {
		return false
	}
	return b.value&(uint64(1)<<(b.width-1)) != 0
}

// --- Unsigned comparisons ---

func (a Bitvector) Ult(b Bitvector) bool { return a.value < b.value }
func (a Bitvector) Ule(b Bitvector) bool { return a.value <= b.value }
func (a Bitvector) Ugt(b Bitvector) bool { return a.value > b.value }
func (a Bitvector) Uge(b Bitvector) bool { return a.value >= b.value }

// --- Signed comparisons ---

func (a Bitvector) Slt(b Bitvector) bool { return a.Signed() < b.Signed() }
func (a Bitvector) Sle(b Bitvector) bool { return a.Signed() <= b.Signed() }
func (a Bitvector) Sgt(b Bitvector) bool { return a.Signed() > b.Signed() }
func (a Bitvector) Sge(b Bitvector) bool { return a.Signed() >= b.Signed() }

// --- Bitwise ---

func (b Bitvector) Not() Bitvector       { return New(b.width, ^b.value) }
func (a Bitvector) And(b Bitvector) Bitvector { return New(a.width, a.value&b.value) }
func (a Bitvector) Or(b Bitvector) Bitvector  { return New(a.width, a.value|b.value) }
func (a Bitvector) Xor(b Bitvector) Bitvector { return New(a.width, a.value^b.value) }

// --- Wrapping arithmetic ---

func (a Bitvector) Neg() Bitvector { return New(a.width, -a.value) }
func (a Bitvector) Add(b Bitvector) Bitvector { return New(a.width, a.value+b.value) }
func (a Bitvector) Sub(b Bitvector) Bitvector { return New(a.width, a.value-b.value) }
func (a Bitvector) Mul(b Bitvector) Bitvector { return New(a.width, a.value*b.value) }

// OverflowingAdd computes a+b at the given width (which may differ from a
// and b's own widths — callers use this to evaluate the min-max algorithm's
// (k+1)-bit prefixes), returning whether the unsigned result overflowed.
func OverflowingAdd(a, b uint64, width uint8) (uint64, bool) {
	m := Mask(width)
	a &= m
	b &= m
	sum := a + b
	if width >= 64 {
		return sum, sum < a
	}
	return sum & m, sum > m
}

// OverflowingSub computes a-b at the given width, returning whether the
// unsigned subtraction borrowed.
func OverflowingSub(a, b uint64, width uint8) (uint64, bool) {
	m := Mask(width)
	a &= m
	b &= m
	return (a - b) & m, a < b
}

// --- Division / remainder: panic on zero divisor ---

// Udiv performs unsigned division. ok is false iff rhs is zero, in which
// case result is the sentinel all-ones value.
func (a Bitvector) Udiv(b Bitvector) (result Bitvector, ok bool) {
	if b.value == 0 {
		return AllOnes(a.width), false
	}
	return New(a.width, a.value/b.value), true
}

// Urem performs unsigned remainder. ok is false iff rhs is zero, in which
// case result is the dividend unchanged (the sentinel used by BTOR2).
func (a Bitvector) Urem(b Bitvector) (result Bitvector, ok bool) {
	if b.value == 0 {
		return a, false
	}
	return New(a.width, a.value%b.value), true
}

// Sdiv performs signed division. ok is false iff rhs is zero. The
// MIN/-1 case does not panic; it wraps to MIN (two's-complement overflow).
func (a Bitvector) Sdiv(b Bitvector) (result Bitvector, ok bool) {
	if b.value == 0 {
		return AllOnes(a.width), false
	}
	as, bs := a.Signed(), b.Signed()
	if bs == -1 {
		// MIN / -1 overflows back to MIN; never panics.
		return New(a.width, uint64(-as)), true
	}
	return New(a.width, uint64(as/bs)), true
}

// Srem performs signed remainder. ok is false iff rhs is zero.
func (a Bitvector) Srem(b Bitvector) (result Bitvector, ok bool) {
	if b.value == 0 {
		return a, false
	}
	as, bs := a.Signed(), b.Signed()
	if bs == -1 {
		return Zero(a.width), true
	}
	return New(a.width, uint64(as%bs)), true
}

// --- Shifts ---

func (a Bitvector) Shl(amount uint64) Bitvector {
	if amount >= uint64(a.width) {
		return Zero(a.width)
	}
	return New(a.width, a.value<<amount)
}

func (a Bitvector) Lshr(amount uint64) Bitvector {
	if amount >= uint64(a.width) {
		return Zero(a.width)
	}
	return New(a.width, a.value>>amount)
}

func (a Bitvector) Ashr(amount uint64) Bitvector {
	if a.width == 0 {
		return a
	}
	if amount >= uint64(a.width) {
		if a.SignBit() {
			return AllOnes(a.width)
		}
		return Zero(a.width)
	}
	signed := a.Signed()
	return New(a.width, uint64(signed>>amount))
}

// --- Extension ---

func (a Bitvector) ZeroExtend(width uint8) Bitvector { return New(width, a.value) }

func (a Bitvector) SignExtend(width uint8) Bitvector {
	if a.SignBit() && width > a.width {
		extendMask := Mask(width) ^ Mask(a.width)
		return New(width, a.value|extendMask)
	}
	return New(width, a.value)
}
