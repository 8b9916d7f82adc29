// Package precision implements the precision store: per-node
// input and decay masks that determine how finely a node's successors are
// enumerated during regeneration, grown monotonically by refinement and
// swept in lockstep with the state space's own garbage collection.
package precision

import (
	"github.com/onderjan/machine-check-sub001/internal/bv/abstr"
	"github.com/onderjan/machine-check-sub001/internal/bv/mark"
	"github.com/onderjan/machine-check-sub001/internal/machine"
	"github.com/onderjan/machine-check-sub001/internal/space"
	"github.com/onderjan/machine-check-sub001/internal/valuation"
)

// MaskRecord is the mark record type precisions are expressed in.
type MaskRecord = machine.MaskRecord

// Store holds, per node, the input-precision mask (which input bits are
// enumerated concretely rather than left fully abstract) and the
// decay-precision mask (which bits of each successor state computed from
// the node keep their value, all others being widened to unknown, under
// Strategy.UseDecay).
type Store struct {
	inputShape *valuation.Shape
	stateShape *valuation.Shape

	input map[space.StateID]MaskRecord
	decay map[space.StateID]MaskRecord
}

// NewStore returns an empty precision store over the given shapes.
func NewStore(inputShape, stateShape *valuation.Shape) *Store {
	return &Store{
		inputShape: inputShape,
		stateShape: stateShape,
		input:      make(map[space.StateID]MaskRecord),
		decay:      make(map[space.StateID]MaskRecord),
	}
}

// Reset discards every recorded precision, the starting point of a fresh
// verify_inner pass.
func (s *Store) Reset() {
	s.input = make(map[space.StateID]MaskRecord)
	s.decay = make(map[space.StateID]MaskRecord)
}

// InputPrecision returns the node's input-precision mask, defaulting to
// fully unmarked (no bits forced concrete — a single fully abstract
// input suffices) if none was ever set.
func (s *Store) InputPrecision(id space.StateID) MaskRecord {
	if m, ok := s.input[id]; ok {
		return m
	}
	return machine.UnmarkedInputMask(s.inputShape)
}

// DecayPrecision returns the node's decay-precision mask, over the state
// shape, defaulting to fully unmarked.
func (s *Store) DecayPrecision(id space.StateID) MaskRecord {
	if m, ok := s.decay[id]; ok {
		return m
	}
	return machine.UnmarkedStateMask(s.stateShape)
}

// RefineInput joins extra into the node's input precision. grew is true
// if the mask actually changed, signalling to the CEGAR loop that this
// refinement round made progress.
func (s *Store) RefineInput(id space.StateID, extra MaskRecord) (grew bool) {
	cur := s.InputPrecision(id)
	joined := machine.JoinMask(cur, extra)
	if maskRecordEqual(cur, joined) {
		return false
	}
	s.input[id] = joined
	return true
}

// RefineDecay joins extra into the node's decay precision.
func (s *Store) RefineDecay(id space.StateID, extra MaskRecord) (grew bool) {
	cur := s.DecayPrecision(id)
	joined := machine.JoinMask(cur, extra)
	if maskRecordEqual(cur, joined) {
		return false
	}
	s.decay[id] = joined
	return true
}

func maskRecordEqual(a, b MaskRecord) bool {
	for i := range a.Values {
		if a.Values[i].Bits() != b.Values[i].Bits() {
			return false
		}
	}
	return true
}

// RetainIDs drops every per-node precision entry whose node was swept by
// the state space's last garbage collection (retain_indices on the
// precision store drops precisions whose node was swept).
func (s *Store) RetainIDs(retained map[space.StateID]struct{}) {
	for id := range s.input {
		if _, keep := retained[id]; !keep {
			delete(s.input, id)
		}
	}
	for id := range s.decay {
		if _, keep := retained[id]; !keep {
			delete(s.decay, id)
		}
	}
}

// EnumerateInputs produces the admissible abstract inputs for a node
// under naiveInputs/the node's current input precision (into_proto_iter):
// when naiveInputs is set the whole input stays one
// fully abstract value (no splitting); otherwise every marked input bit
// is enumerated concretely while unmarked bits stay abstract, as the
// Cartesian product of each field's own possibility iterator.
func (s *Store) EnumerateInputs(id space.StateID, naiveInputs bool) []space.Input {
	if naiveInputs {
		return []space.Input{allUnknown(s.inputShape)}
	}
	mask := s.InputPrecision(id)
	return cartesian(s.inputShape, mask)
}

func allUnknown(shape *valuation.Shape) valuation.Record[abstr.Bitvector] {
	values := make([]abstr.Bitvector, shape.Len())
	for i, f := range shape.Fields() {
		values[i] = abstr.Unknown(f.Width)
	}
	return valuation.NewRecord(shape, values)
}

func cartesian(shape *valuation.Shape, maskRec MaskRecord) []valuation.Record[abstr.Bitvector] {
	fields := shape.Fields()
	perField := make([][]abstr.Bitvector, len(fields))
	for i, f := range fields {
		it := mark.NewPossibilityIter(abstr.Unknown(f.Width), maskRec.Values[i])
		var options []abstr.Bitvector
		for {
			v, ok := it.Next()
			if !ok {
				break
			}
			options = append(options, v)
		}
		perField[i] = options
	}

	results := []valuation.Record[abstr.Bitvector]{allUnknown(shape)}
	for i := range fields {
		var next []valuation.Record[abstr.Bitvector]
		for _, partial := range results {
			for _, opt := range perField[i] {
				next = append(next, partial.With(fields[i].Name, opt))
			}
		}
		results = next
	}
	return results
}
