package precision

import (
	"testing"

	"github.com/onderjan/machine-check-sub001/internal/bv/mark"
	"github.com/onderjan/machine-check-sub001/internal/space"
	"github.com/onderjan/machine-check-sub001/internal/valuation"
)

func testShapes() (input, state *valuation.Shape) {
	input = valuation.NewShape(valuation.Field{Name: "in", Width: 4})
	state = valuation.NewShape(valuation.Field{Name: "st", Width: 4})
	return
}

func TestDefaultPrecisionIsUnmarked(t *testing.T) {
	inputShape, stateShape := testShapes()
	store := NewStore(inputShape, stateShape)
	if store.InputPrecision(1).MustGet("in").Any() {
		t.Error("expected default input precision to be unmarked")
	}
	if store.DecayPrecision(1).MustGet("st").Any() {
		t.Error("expected default decay precision to be unmarked")
	}
}

func TestRefineInputGrowsAndReportsProgress(t *testing.T) {
	inputShape, stateShape := testShapes()
	store := NewStore(inputShape, stateShape)
	extra := valuation.NewRecord(inputShape, []mark.Mark{mark.FromBits(4, 0b0001)})

	grew := store.RefineInput(1, extra)
	if !grew {
		t.Error("expected the first refinement to report growth")
	}
	if store.InputPrecision(1).MustGet("in").Bits() != 0b0001 {
		t.Errorf("expected the new bit to stick, got %#b", store.InputPrecision(1).MustGet("in").Bits())
	}

	grewAgain := store.RefineInput(1, extra)
	if grewAgain {
		t.Error("expected refining with an already-included mask to report no growth")
	}
}

func TestRefineDecayGrowsAndReportsProgress(t *testing.T) {
	inputShape, stateShape := testShapes()
	store := NewStore(inputShape, stateShape)
	extra := valuation.NewRecord(stateShape, []mark.Mark{mark.FromBits(4, 0b0010)})

	if !store.RefineDecay(1, extra) {
		t.Error("expected the first decay refinement to report growth")
	}
	if store.RefineDecay(1, extra) {
		t.Error("expected a repeated identical decay refinement to report no growth")
	}
}

func TestResetClearsAllPrecisions(t *testing.T) {
	inputShape, stateShape := testShapes()
	store := NewStore(inputShape, stateShape)
	store.RefineInput(1, valuation.NewRecord(inputShape, []mark.Mark{mark.NewMarked(4)}))
	store.Reset()
	if store.InputPrecision(1).MustGet("in").Any() {
		t.Error("expected Reset to clear every recorded precision")
	}
}

func TestRetainIDsDropsSweptNodes(t *testing.T) {
	inputShape, stateShape := testShapes()
	store := NewStore(inputShape, stateShape)
	store.RefineInput(1, valuation.NewRecord(inputShape, []mark.Mark{mark.NewMarked(4)}))
	store.RefineInput(2, valuation.NewRecord(inputShape, []mark.Mark{mark.NewMarked(4)}))

	store.RetainIDs(map[space.StateID]struct{}{1: {}})

	if !store.InputPrecision(1).MustGet("in").Any() {
		t.Error("expected node 1's precision to survive retention")
	}
	if store.InputPrecision(2).MustGet("in").Any() {
		t.Error("expected node 2's precision to be dropped as unretained")
	}
}

func TestEnumerateInputsNaiveYieldsOneFullyAbstractInput(t *testing.T) {
	inputShape, stateShape := testShapes()
	store := NewStore(inputShape, stateShape)
	store.RefineInput(1, valuation.NewRecord(inputShape, []mark.Mark{mark.NewMarked(4)}))

	inputs := store.EnumerateInputs(1, true)
	if len(inputs) != 1 {
		t.Fatalf("expected exactly one input under naiveInputs, got %d", len(inputs))
	}
	if inputs[0].MustGet("in").IsExact() {
		t.Error("expected the naive input to remain fully abstract despite a marked precision")
	}
}

func TestEnumerateInputsSplitsOnMarkedBits(t *testing.T) {
	inputShape, stateShape := testShapes()
	store := NewStore(inputShape, stateShape)
	store.RefineInput(1, valuation.NewRecord(inputShape, []mark.Mark{mark.FromBits(4, 0b0001)}))

	inputs := store.EnumerateInputs(1, false)
	if len(inputs) != 2 {
		t.Fatalf("expected 2 inputs for a single marked bit, got %d", len(inputs))
	}
	for _, in := range inputs {
		if in.MustGet("in").UnknownBits() != 0b1110 {
			t.Errorf("expected bits 1-3 to remain unknown, got mask %#b", in.MustGet("in").UnknownBits())
		}
	}
}

func TestEnumerateInputsWithNoPrecisionYieldsOneFullyAbstractInput(t *testing.T) {
	inputShape, stateShape := testShapes()
	store := NewStore(inputShape, stateShape)
	inputs := store.EnumerateInputs(1, false)
	if len(inputs) != 1 {
		t.Fatalf("expected exactly one input with no marked bits, got %d", len(inputs))
	}
	if inputs[0].MustGet("in").IsExact() {
		t.Error("expected the single input to remain fully abstract")
	}
}
