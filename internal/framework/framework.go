// Package framework implements the three-valued abstraction-refinement
// CEGAR loop: regenerating a state space under a precision
// store, checking a property against it, and refining the precision
// along a culprit's path whenever the result comes out unknown, until a
// definite verdict is reached or refinement can no longer make progress.
package framework

import (
	"math"

	"go.uber.org/zap"

	"github.com/onderjan/machine-check-sub001/internal/bv/abstr"
	"github.com/onderjan/machine-check-sub001/internal/bv/concr"
	"github.com/onderjan/machine-check-sub001/internal/bv/mark"
	"github.com/onderjan/machine-check-sub001/internal/machine"
	"github.com/onderjan/machine-check-sub001/internal/modelcheck"
	"github.com/onderjan/machine-check-sub001/internal/panicv"
	"github.com/onderjan/machine-check-sub001/internal/precision"
	"github.com/onderjan/machine-check-sub001/internal/proposition"
	"github.com/onderjan/machine-check-sub001/internal/space"
	"github.com/onderjan/machine-check-sub001/internal/valuation"
)

// startNode is the sentinel node identifying the pre-initial marker: the
// original design gives it its own NodeId variant, but since every
// reachable node here is an ordinary StateID (space.NodeID = StateID),
// this package reserves the otherwise-unreachable maximum StateID value
// for it instead of introducing a second identifier type.
const startNode space.StateID = math.MaxUint64

// Strategy controls how aggressively the framework abstracts inputs and
// successor states before any refinement has narrowed them.
type Strategy struct {
	// NaiveInputs, when set, keeps every node's input fully abstract
	// (one value per step) rather than enumerating precision-selected
	// concrete slices of it.
	NaiveInputs bool
	// UseDecay, when set, forces every freshly computed successor state
	// to fully unknown except where a node's decay precision says
	// otherwise, trading early precision for a smaller state space.
	UseDecay bool
}

// Stats reports the bookkeeping of one VerifyProperty call.
type Stats struct {
	Refinements          int
	GeneratedStates      int
	FinalStates          int
	GeneratedTransitions int
	FinalTransitions     int
	FixedPointIterations int
}

// Framework owns the abstract machine, its state space, and the
// refinement precision driving that space's construction.
type Framework struct {
	machine  machine.Machine
	strategy Strategy
	log      *zap.Logger

	space      *space.Space
	precision  *precision.Store
	rootInputs map[space.StateID]space.Input

	numRefinements     int
	numGeneratedStates int
	numGeneratedEdges  int
}

// New returns a Framework over m with the given strategy. A nil logger
// disables round tracing (equivalent to zap.NewNop()).
func New(m machine.Machine, strategy Strategy, logger *zap.Logger) *Framework {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Framework{machine: m, strategy: strategy, log: logger}
}

// neverPanicProp builds AG![__panic == 0] directly rather than through
// the parser, matching framework.rs's construction of its inherent
// non-panic check.
func neverPanicProp() *proposition.Prop {
	atom := proposition.AtomCompare(proposition.OpEq, proposition.ValueExpr{Field: valuation.PanicFieldName}, 0)
	return proposition.ENF(proposition.PNF(proposition.AG(atom)))
}

// VerifyProperty parses src and verifies it: the system's
// inherent non-panicking is checked first, then src itself is checked
// assuming no panic occurred.
func (f *Framework) VerifyProperty(src string) (bool, Stats, error) {
	parsed, err := proposition.Parse(src)
	if err != nil {
		return false, Stats{}, &VerifyError{Kind: PropertyNotParseable, Err: err}
	}
	normalized := proposition.ENF(proposition.PNF(parsed))

	inherentOK, stats, err := f.verifyInner(neverPanicProp(), false)
	if err != nil {
		return false, stats, err
	}
	if !inherentOK {
		return false, stats, &VerifyError{Kind: InherentPanic, Message: f.findPanicMessage()}
	}

	return f.verifyInner(normalized, true)
}

func (f *Framework) verifyInner(prop *proposition.Prop, assumeNoPanic bool) (bool, Stats, error) {
	f.space = space.New()
	f.precision = precision.NewStore(f.machine.InputShape(), f.machine.StateShape())
	f.rootInputs = make(map[space.StateID]space.Input)
	f.numGeneratedStates = 0
	f.numGeneratedEdges = 0
	f.numRefinements = 0

	f.regenerate(startNode, assumeNoPanic)

	checker := modelcheck.NewChecker(f.space)
	for round := 0; ; round++ {
		f.log.Debug("checking property",
			zap.Int("round", round),
			zap.Int("states", f.space.NumStates()),
			zap.Int("edges", f.space.NumEdges()),
		)

		concl, err := checker.Evaluate(prop)
		if err != nil {
			return false, f.stats(0), wrapModelcheckError(err)
		}

		switch concl.Value {
		case modelcheck.True, modelcheck.False:
			verdict := concl.Value == modelcheck.True
			f.log.Debug("verdict reached", zap.Bool("verdict", verdict), zap.Int("refinements", f.numRefinements))
			return verdict, f.stats(checker.FixedPointIterations()), nil
		}

		if !f.refine(concl.Culprit, assumeNoPanic) {
			f.log.Debug("refinement exhausted", zap.Int("refinements", f.numRefinements))
			return false, f.stats(checker.FixedPointIterations()), &VerifyError{Kind: Incomplete}
		}

		retained := f.space.GarbageCollect()
		retained[startNode] = struct{}{} // the start node's precision always survives
		f.precision.RetainIDs(retained)
		checker.Invalidate()
	}
}

func (f *Framework) stats(fixedPointIterations int) Stats {
	return Stats{
		Refinements:          f.numRefinements,
		GeneratedStates:      f.numGeneratedStates,
		FinalStates:          f.space.NumStates(),
		GeneratedTransitions: f.numGeneratedEdges,
		FinalTransitions:     f.space.NumEdges(),
		FixedPointIterations: fixedPointIterations,
	}
}

// regenerate rebuilds the state space breadth-first from fromNode
// onward, keeping everything generated before it.
func (f *Framework) regenerate(fromNode space.StateID, assumeNoPanic bool) {
	if fromNode == startNode {
		// Every init state freshly generated below re-registers itself as
		// a root; without clearing first, a root merged away by a prior
		// regeneration (same structural state, new StateID) would stay in
		// the root set and keep re-entering the checker's conjunction.
		f.space.ResetRoots()
	}

	queue := []space.StateID{fromNode}
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]

		var currentState machine.Valuation
		haveCurrentState := false
		if node != startNode {
			f.space.RemoveOutgoing(node)
			st, ok := f.space.State(node)
			if !ok {
				continue
			}
			currentState, haveCurrentState = st, true

			if stateCanPanic(st) {
				// A state that might already have panicked is a sink:
				// loop back to itself instead of stepping further, to
				// keep the space left-total.
				inputs := f.precision.EnumerateInputs(node, f.strategy.NaiveInputs)
				f.space.AddSelfLoop(node, inputs[0])
				continue
			}
		}

		decayMask := f.precision.DecayPrecision(node)
		if assumeNoPanic {
			decayMask = decayMask.With(valuation.PanicFieldName, mark.NewMarked(panicv.CodeWidth))
		}

		for _, input := range f.precision.EnumerateInputs(node, f.strategy.NaiveInputs) {
			var next machine.Valuation
			if haveCurrentState {
				next = f.machine.Step(currentState, input)
			} else {
				next = f.machine.Init(input)
			}
			f.numGeneratedStates++

			if assumeNoPanic {
				next = next.With(valuation.PanicFieldName, abstr.Exact(concr.New(panicv.CodeWidth, panicv.NoPanic)))
			}
			if f.strategy.UseDecay {
				next = forceDecay(next, decayMask)
			}

			var id space.StateID
			var isNew bool
			if node == startNode {
				id, isNew = f.space.AddRoot(next)
				f.rootInputs[id] = input
			} else {
				id, isNew = f.space.AddStep(node, input, next)
			}
			f.numGeneratedEdges++

			if isNew {
				queue = append(queue, id)
			}
		}
	}
}

func stateCanPanic(st machine.Valuation) bool {
	panicVal := st.MustGet(valuation.PanicFieldName)
	c, ok := panicVal.Concretize()
	if ok && c.IsZero() {
		return false
	}
	return true
}

// forceDecay widens every bit of next not covered by decayMask to fully
// unknown, implementing the decay precision's "decay by default" policy
// for the UseDecay strategy.
func forceDecay(next machine.Valuation, decayMask machine.MaskRecord) machine.Valuation {
	return valuation.Zip(next, decayMask, func(_ valuation.Field, v abstr.Bitvector, m mark.Mark) abstr.Bitvector {
		width := v.Width()
		keep := m.Bits() & concr.Mask(width)
		widen := concr.Mask(width) &^ keep
		return abstr.FromZerosOnes(width, (v.Zeros()&keep)|widen, (v.Ones()&keep)|widen)
	})
}

// refine tries to grow the precision along culprit's path, from the
// offending state back toward the initial state, regenerating and
// returning true as soon as a single growth is found.
func (f *Framework) refine(culprit *modelcheck.Culprit, assumeNoPanic bool) bool {
	f.numRefinements++
	f.log.Debug("refining along culprit path",
		zap.String("field", culprit.Field),
		zap.Int("path_length", len(culprit.Path)),
	)

	stateShape := f.machine.StateShape()
	var currentStateMark machine.MaskRecord
	if culprit.Field == valuation.PanicFieldName {
		currentStateMark = machine.UnmarkedStateMask(stateShape).With(valuation.PanicFieldName, mark.NewMarked(panicv.CodeWidth))
	} else {
		width := fieldWidth(stateShape, culprit.Field)
		var fieldMask mark.Mark
		if culprit.Index != nil {
			fieldMask = mark.FromBits(width, uint64(1)<<uint(*culprit.Index))
		} else {
			fieldMask = mark.NewMarked(width)
		}
		currentStateMark = machine.UnmarkedStateMask(stateShape).With(culprit.Field, fieldMask)
	}

	// previousNode == startNode exactly when i == 0 (path holds only real
	// state IDs), so that is always the loop's last iteration: there is
	// no further predecessor to walk back to after the initial state.
	path := culprit.Path
	for i := len(path) - 1; i >= 0; i-- {
		currentStateID := path[i]
		previousNode := startNode
		if i > 0 {
			previousNode = path[i-1]
		}

		if f.strategy.UseDecay {
			if f.precision.RefineDecay(previousNode, currentStateMark) {
				f.regenerate(previousNode, assumeNoPanic)
				return true
			}
		}

		input := f.representativeInput(previousNode, currentStateID)

		var markInput machine.MaskRecord
		if previousNode != startNode {
			previousState, ok := f.space.State(previousNode)
			if !ok {
				break
			}
			var newStateMark machine.MaskRecord
			newStateMark, markInput = f.machine.StepRefin(previousState, input, currentStateMark)
			currentStateMark = newStateMark.With(valuation.PanicFieldName, mark.NewUnmarked(panicv.CodeWidth))
		} else {
			markInput = f.machine.InitRefin(input, currentStateMark)
		}

		if f.precision.RefineInput(previousNode, markInput) {
			f.regenerate(previousNode, assumeNoPanic)
			return true
		}
	}

	return false
}

// representativeInput looks up the input used to reach currentStateID
// from previousNode the last time that edge was generated.
func (f *Framework) representativeInput(previousNode, currentStateID space.StateID) space.Input {
	if previousNode == startNode {
		return f.rootInputs[currentStateID]
	}
	for _, e := range f.space.Outgoing(previousNode) {
		if e.To == currentStateID {
			return e.Input
		}
	}
	return f.rootInputs[currentStateID]
}

func fieldWidth(shape *valuation.Shape, name string) uint8 {
	for _, fld := range shape.Fields() {
		if fld.Name == name {
			return fld.Width
		}
	}
	return 0
}

// findPanicMessage scans the space for a state whose panic field is
// concretely nonzero and returns its registered message.
func (f *Framework) findPanicMessage() string {
	for _, id := range f.space.AllStateIDs() {
		st, ok := f.space.State(id)
		if !ok {
			continue
		}
		panicVal := st.MustGet(valuation.PanicFieldName)
		c, ok := panicVal.Concretize()
		if ok && !c.IsZero() {
			return panicv.Message(c.Unsigned())
		}
	}
	return "unknown panic"
}
