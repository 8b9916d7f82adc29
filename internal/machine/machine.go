// Package machine defines the transition-system interface the
// verification core operates on and provides the small
// set of example machines exercised by the seed end-to-end scenarios.
package machine

import (
	"github.com/onderjan/machine-check-sub001/internal/bv/abstr"
	"github.com/onderjan/machine-check-sub001/internal/bv/mark"
	"github.com/onderjan/machine-check-sub001/internal/valuation"
)

// Valuation is the abstract bitvector record type shared by inputs and
// states throughout the verification core.
type Valuation = valuation.Record[abstr.Bitvector]

// MaskRecord is the mark record type shared by input and state masks.
type MaskRecord = valuation.Record[mark.Mark]

// Machine is the abstract transition system under verification. A state
// is always a Valuation over StateShape(), whose fields include the
// machine's declared fields plus the reserved
// valuation.PanicFieldName field recording the panic indicator for the
// step that produced that state.
//
// Forward methods (Init, Step) compute the abstract semantics; the Refin
// counterparts compute the backward mark-propagation semantics used
// during refinement, mapping a mark on the
// value a forward call produced back onto marks over that call's inputs.
type Machine interface {
	InputShape() *valuation.Shape
	StateShape() *valuation.Shape

	// Init computes the abstract initial state for a given abstract input.
	Init(input Valuation) Valuation

	// Step computes the abstract successor state for a given abstract
	// state and input.
	Step(state, input Valuation) Valuation

	// InitRefin propagates a mark on the initial state back onto the
	// input that produced it.
	InitRefin(input Valuation, markLater MaskRecord) (markInput MaskRecord)

	// StepRefin propagates a mark on the successor state back onto the
	// state and input that produced it.
	StepRefin(state, input Valuation, markLater MaskRecord) (markState, markInput MaskRecord)
}

// UnmarkedInputMask returns the all-unmarked mask over a machine's input
// shape, the starting point for a fresh PrecisionStore entry.
func UnmarkedInputMask(shape *valuation.Shape) MaskRecord {
	return unmarkedMask(shape)
}

// UnmarkedStateMask returns the all-unmarked mask over a machine's state
// shape.
func UnmarkedStateMask(shape *valuation.Shape) MaskRecord {
	return unmarkedMask(shape)
}

func unmarkedMask(shape *valuation.Shape) MaskRecord {
	values := make([]mark.Mark, shape.Len())
	for i, f := range shape.Fields() {
		values[i] = mark.NewUnmarked(f.Width)
	}
	return valuation.NewRecord(shape, values)
}

// JoinMask joins two mask records sharing a shape field-wise.
func JoinMask(a, b MaskRecord) MaskRecord {
	return valuation.Zip(a, b, func(_ valuation.Field, x, y mark.Mark) mark.Mark {
		return x.Join(y)
	})
}
