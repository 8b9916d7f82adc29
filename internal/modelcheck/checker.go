package modelcheck

import (
	"sort"

	"github.com/onderjan/machine-check-sub001/internal/proposition"
	"github.com/onderjan/machine-check-sub001/internal/space"
)

// Checker evaluates properties over a state space. It is owned by the
// framework and reused across verify_property calls within one CEGAR
// round set; Invalidate must be called whenever the space changes
// (regeneration), which both clears the per-state memo and, together
// with holding the same *space.Space, lets repeated Evaluate calls on an
// unchanged space reuse every memoized verdict with zero recomputation —
// a "calm" fixed-point reuse, simplified from the original's time-stamped
// history/computation-index bookkeeping (fixed_point.rs) into plain
// memoization (see DESIGN.md).
type Checker struct {
	space *space.Space
	memo  map[memoKey]Truth

	// fixedPointIterations counts how many outer Kleene iterations the
	// most recent Evaluate call performed across every EG/EU/FixedPoint
	// node it touched; a repeated Evaluate of the same property on an
	// unchanged space reports 0.
	fixedPointIterations int
}

type memoKey struct {
	prop  *proposition.Prop
	state space.StateID
}

// NewChecker returns a Checker over sp. Call Invalidate whenever sp's
// contents change.
func NewChecker(sp *space.Space) *Checker {
	return &Checker{space: sp, memo: make(map[memoKey]Truth)}
}

// Invalidate discards every memoized verdict, forcing full recomputation
// on the next Evaluate — called by the framework after every regenerate.
func (c *Checker) Invalidate() {
	c.memo = make(map[memoKey]Truth)
}

// FixedPointIterations reports the outer iteration count of the most
// recent Evaluate call, for Stats bookkeeping and the "calm reuse" test.
func (c *Checker) FixedPointIterations() int { return c.fixedPointIterations }

// Conclusion is the verdict for a property: either a definite boolean or
// Unknown together with the culprit that witnesses the uncertainty.
type Conclusion struct {
	Value   Truth
	Culprit *Culprit
}

// Evaluate labels prop at every root of the space and conjoins the
// results (a property must hold at every initial state to hold overall).
// If the conjunction is Unknown, it extracts a culprit from whichever
// root produced it.
//
// prop must already be in ENF(PNF(...)) form (the framework normalizes a
// parsed property exactly once and keeps the same *proposition.Prop for
// every later call); the memo is keyed by prop's identity, so evaluating
// an equal but freshly rebuilt AST defeats the calm-reuse behavior this
// package exists to provide.
func (c *Checker) Evaluate(prop *proposition.Prop) (Conclusion, error) {
	c.fixedPointIterations = 0
	roots := c.space.Roots()
	sort.Slice(roots, func(i, j int) bool { return roots[i] < roots[j] })

	overall := True
	var unknownRoot space.StateID
	haveUnknownRoot := false
	for _, r := range roots {
		v, err := c.eval(prop, r, nil)
		if err != nil {
			return Conclusion{}, err
		}
		overall = And3(overall, v)
		if v == Unknown && !haveUnknownRoot {
			unknownRoot, haveUnknownRoot = r, true
		}
	}

	if overall != Unknown {
		return Conclusion{Value: overall}, nil
	}
	culprit, err := c.extractCulprit(prop, unknownRoot)
	if err != nil {
		return Conclusion{}, err
	}
	return Conclusion{Value: Unknown, Culprit: culprit}, nil
}

// LabelAt is a convenience wrapper evaluating prop at a single state
// outside the root-conjunction, used by tests; like Evaluate, prop
// should already be normalized and kept stable across calls.
func (c *Checker) LabelAt(prop *proposition.Prop, id space.StateID) (Truth, error) {
	return c.eval(prop, id, nil)
}
