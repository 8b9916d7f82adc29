package machine

import (
	"github.com/onderjan/machine-check-sub001/internal/bv/abstr"
	"github.com/onderjan/machine-check-sub001/internal/bv/concr"
	"github.com/onderjan/machine-check-sub001/internal/bv/mark"
	"github.com/onderjan/machine-check-sub001/internal/panicv"
	"github.com/onderjan/machine-check-sub001/internal/valuation"
)

// Counter is the up/down counter from the seed end-to-end scenarios: a
// single 5-bit "count" register, incremented or decremented each step
// according to a nondeterministic 1-bit "up" input. It never panics, and
// exists to exercise wraparound (reaching the signed value -1, i.e. the
// unsigned value 31, as well as the plain unsigned value 17) and the
// distinction between signed and unsigned interpretation of the same
// register, per the "signed-vs-unsigned comparison" and "counter reaching
// -1/17" testable properties.
type Counter struct {
	inputShape *valuation.Shape
	stateShape *valuation.Shape
}

const counterWidth uint8 = 5

// NewCounter constructs the counter machine.
func NewCounter() *Counter {
	inputShape := valuation.NewShape(valuation.Field{Name: "up", Width: 1})
	stateShape := valuation.NewShape(valuation.Field{Name: "count", Width: counterWidth}).
		WithField(valuation.Field{Name: valuation.PanicFieldName, Width: panicv.CodeWidth})
	return &Counter{inputShape: inputShape, stateShape: stateShape}
}

func (c *Counter) InputShape() *valuation.Shape { return c.inputShape }
func (c *Counter) StateShape() *valuation.Shape { return c.stateShape }

func (c *Counter) Init(input Valuation) Valuation {
	return valuation.NewRecord(c.stateShape, []abstr.Bitvector{
		abstr.Exact(concr.Zero(counterWidth)),
		panicv.ExactCode(panicv.NoPanic),
	})
}

// muxByBit selects ifOne when cond is exactly 1, ifZero when cond is
// exactly 0, and conservatively joins both when cond is unknown.
func muxByBit(cond, ifOne, ifZero abstr.Bitvector) abstr.Bitvector {
	if cond.IsExact() {
		if cond.Ones() != 0 {
			return ifOne
		}
		return ifZero
	}
	return abstr.Join(ifOne, ifZero)
}

func (c *Counter) Step(state, input Valuation) Valuation {
	count := state.MustGet("count")
	up := input.MustGet("up")
	one := abstr.Exact(concr.New(counterWidth, 1))
	incremented := count.Add(one)
	decremented := count.Sub(one)
	newCount := muxByBit(up, incremented, decremented)
	return valuation.NewRecord(c.stateShape, []abstr.Bitvector{
		newCount,
		panicv.ExactCode(panicv.NoPanic),
	})
}

func (c *Counter) InitRefin(input Valuation, markLater MaskRecord) MaskRecord {
	return unmarkedMask(c.inputShape)
}

func (c *Counter) StepRefin(state, input Valuation, markLater MaskRecord) (markState, markInput MaskRecord) {
	countLater := markLater.MustGet("count")
	count := state.MustGet("count")
	up := input.MustGet("up")
	one := abstr.Exact(concr.New(counterWidth, 1))

	var markCount, markUp mark.Mark
	if countLater.Any() {
		// Both the add and the sub branch are conservatively marked, and
		// since which branch is taken depends on the "up" input, it is
		// marked whenever the counter's next value is of interest at all
		// (limited, like the count mark, to its unknown bits).
		markCount, _ = mark.BackwardArith(countLater, count, one)
		markUp = mark.NewMarked(1).Limit(up)
	} else {
		markCount = mark.NewUnmarked(counterWidth)
		markUp = mark.NewUnmarked(1)
	}

	markState = valuation.NewRecord(c.stateShape, []mark.Mark{
		markCount,
		mark.NewUnmarked(panicv.CodeWidth),
	})
	markInput = valuation.NewRecord(c.inputShape, []mark.Mark{markUp})
	return markState, markInput
}
