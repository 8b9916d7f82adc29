package machine

import (
	"github.com/onderjan/machine-check-sub001/internal/bv/abstr"
	"github.com/onderjan/machine-check-sub001/internal/bv/concr"
	"github.com/onderjan/machine-check-sub001/internal/bv/mark"
	"github.com/onderjan/machine-check-sub001/internal/panicv"
	"github.com/onderjan/machine-check-sub001/internal/valuation"
)

// Divider is the seed end-to-end scenario for inherent panics: an 8-bit
// "dividend" register is divided each step by a nondeterministic 8-bit
// "divisor" input, so a zero divisor is always reachable and the core
// must label it MUST_PANIC/MAY_PANIC exactly as the original's
// panic_result construction does.
type Divider struct {
	inputShape *valuation.Shape
	stateShape *valuation.Shape
}

const dividerWidth uint8 = 8

// NewDivider constructs the divider machine, starting the dividend at 100.
func NewDivider() *Divider {
	inputShape := valuation.NewShape(valuation.Field{Name: "divisor", Width: dividerWidth})
	stateShape := valuation.NewShape(valuation.Field{Name: "dividend", Width: dividerWidth}).
		WithField(valuation.Field{Name: valuation.PanicFieldName, Width: panicv.CodeWidth})
	return &Divider{inputShape: inputShape, stateShape: stateShape}
}

func (d *Divider) InputShape() *valuation.Shape { return d.inputShape }
func (d *Divider) StateShape() *valuation.Shape { return d.stateShape }

func (d *Divider) Init(input Valuation) Valuation {
	return valuation.NewRecord(d.stateShape, []abstr.Bitvector{
		abstr.Exact(concr.New(dividerWidth, 100)),
		panicv.ExactCode(panicv.NoPanic),
	})
}

func (d *Divider) Step(state, input Valuation) Valuation {
	dividend := state.MustGet("dividend")
	divisor := input.MustGet("divisor")
	quotient, mayPanic, mustPanic := dividend.Udiv(divisor)
	newDividend := dividend
	if !mustPanic {
		newDividend = quotient
	}
	return valuation.NewRecord(d.stateShape, []abstr.Bitvector{
		newDividend,
		panicv.FromFlags(mayPanic, mustPanic, panicv.DivByZero),
	})
}

func (d *Divider) InitRefin(input Valuation, markLater MaskRecord) MaskRecord {
	return unmarkedMask(d.inputShape)
}

func (d *Divider) StepRefin(state, input Valuation, markLater MaskRecord) (markState, markInput MaskRecord) {
	dividendLater := markLater.MustGet("dividend")
	panicLater := markLater.MustGet(valuation.PanicFieldName)

	dividend := state.MustGet("dividend")
	divisor := input.MustGet("divisor")

	var markDividend, markDivisor mark.Mark
	if dividendLater.Any() || panicLater.Any() {
		// The divisor determines both the quotient and whether a panic
		// occurs, so any interest in either output conservatively marks
		// every unknown bit of both operands (division has no precise
		// backward transfer function in the original either).
		markDividend, markDivisor = mark.BackwardArith(dividendLater.Join(panicLaterAsDividendWidth(panicLater)), dividend, divisor)
	} else {
		markDividend = mark.NewUnmarked(dividerWidth)
		markDivisor = mark.NewUnmarked(dividerWidth)
	}

	markState = valuation.NewRecord(d.stateShape, []mark.Mark{
		markDividend,
		mark.NewUnmarked(panicv.CodeWidth),
	})
	markInput = valuation.NewRecord(d.inputShape, []mark.Mark{markDivisor})
	return markState, markInput
}

// panicLaterAsDividendWidth collapses a panic-field mark down to a single
// flag reinterpreted at the dividend's width, purely to fold it into the
// same conservative BackwardArith call as the dividend's own mark; the
// resulting width is discarded by BackwardArith's Limit call, only
// whether it is empty matters.
func panicLaterAsDividendWidth(panicLater mark.Mark) mark.Mark {
	return mark.NewFromFlag(dividerWidth, panicLater.Any())
}
