package modelcheck

import (
	"github.com/onderjan/machine-check-sub001/internal/bv/abstr"
	"github.com/onderjan/machine-check-sub001/internal/bv/concr"
	"github.com/onderjan/machine-check-sub001/internal/machine"
	"github.com/onderjan/machine-check-sub001/internal/proposition"
)

// trueFieldName is the synthetic field proposition.PNF/ENF's trueProp
// atom refers to; it is never a real machine field and always reads as
// True regardless of its nominal comparison.
const trueFieldName = "__true"

// evalAtom evaluates one atomic proposition against a state valuation
// directly, with no fixed-point involved: look up the named field,
// apply an optional bit index, then compare against the literal under
// the chosen comparison operator, producing a three-valued result.
func evalAtom(atom *proposition.Atom, state machine.Valuation) (Truth, error) {
	if atom.Value.Field == trueFieldName {
		return True, nil
	}

	idx, ok := state.Shape.IndexOf(atom.Value.Field)
	if !ok {
		return Unknown, &FieldNotFoundError{Name: atom.Value.Field}
	}
	value := state.Values[idx]
	width := value.Width()

	if atom.Value.Index != nil {
		i := *atom.Value.Index
		if i < 0 || i >= int(width) {
			return Unknown, &IndexOutOfRangeError{Name: atom.Value.Field, Index: i}
		}
		value = value.Bit(uint8(i))
		width = 1
	}

	literal := abstr.Exact(concr.New(width, uint64(atom.Literal)&concr.Mask(width)))

	var result abstr.Bitvector
	switch atom.Op {
	case proposition.OpEq:
		result = value.Eq(literal)
	case proposition.OpNe:
		result = value.Ne(literal)
	case proposition.OpUlt:
		result = value.Ult(literal)
	case proposition.OpUle:
		result = value.Ule(literal)
	case proposition.OpUgt:
		result = value.Ugt(literal)
	case proposition.OpUge:
		result = value.Uge(literal)
	case proposition.OpSlt:
		result = value.Slt(literal)
	case proposition.OpSle:
		result = value.Sle(literal)
	case proposition.OpSgt:
		result = value.Sgt(literal)
	case proposition.OpSge:
		result = value.Sge(literal)
	}
	return truthOfBit(result), nil
}

func truthOfBit(b abstr.Bitvector) Truth {
	c, ok := b.Concretize()
	if !ok {
		return Unknown
	}
	return truthOf(!c.IsZero())
}
