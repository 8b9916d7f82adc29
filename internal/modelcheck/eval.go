package modelcheck

import (
	"sort"

	"github.com/onderjan/machine-check-sub001/internal/proposition"
	"github.com/onderjan/machine-check-sub001/internal/space"
)

// frame binds one raw lfp!/gfp! variable to the converged-so-far map of
// its enclosing fixed-point computation; env is the stack of frames
// currently open while evaluating inside a fixed point's body.
type frame struct {
	name      string
	converged map[space.StateID]Truth
	prop      *proposition.Prop // the KindFixedPoint node this frame was pushed for
}

// fixedPointIterationCap bounds the Kleene iteration loop defensively;
// a well-formed CTL fixed point (no Not directly wrapping its own bound
// variable) converges in at most 2*|states| steps by monotonicity (spec
// §4.6), so this cap only guards against a malformed raw lfp!/gfp! body.
func (c *Checker) fixedPointIterationCap() int {
	return 2*c.space.NumStates() + 16
}

// eval is the recursive three-valued labelling function.
// env is nil outside any open fixed point, in which case the result is
// memoized for reuse by a later Evaluate call against the same space
// (the simplified "calm" reuse described on Checker).
func (c *Checker) eval(p *proposition.Prop, id space.StateID, env []frame) (Truth, error) {
	if env == nil {
		if v, ok := c.memo[memoKey{p, id}]; ok {
			return v, nil
		}
	}
	v, err := c.evalUncached(p, id, env)
	if err != nil {
		return Unknown, err
	}
	if env == nil {
		c.memo[memoKey{p, id}] = v
	}
	return v, nil
}

func (c *Checker) evalUncached(p *proposition.Prop, id space.StateID, env []frame) (Truth, error) {
	switch p.Kind {
	case proposition.KindAtom:
		state, ok := c.space.State(id)
		if !ok {
			return Unknown, nil
		}
		return evalAtom(p.Atom, state)
	case proposition.KindNot:
		v, err := c.eval(p.Sub, id, env)
		if err != nil {
			return Unknown, err
		}
		return v.Not(), nil
	case proposition.KindAnd:
		l, err := c.eval(p.Left, id, env)
		if err != nil {
			return Unknown, err
		}
		r, err := c.eval(p.Right, id, env)
		if err != nil {
			return Unknown, err
		}
		return And3(l, r), nil
	case proposition.KindOr:
		l, err := c.eval(p.Left, id, env)
		if err != nil {
			return Unknown, err
		}
		r, err := c.eval(p.Right, id, env)
		if err != nil {
			return Unknown, err
		}
		return Or3(l, r), nil
	case proposition.KindEX:
		return c.evalEX(p.Sub, id, env)
	case proposition.KindEG:
		converged, err := c.computeFixedPoint(true, func(cur map[space.StateID]Truth, s space.StateID) (Truth, error) {
			subVal, err := c.eval(p.Sub, s, env)
			if err != nil {
				return Unknown, err
			}
			return And3(subVal, exOf(c.space, cur, s)), nil
		})
		if err != nil {
			return Unknown, err
		}
		return converged[id], nil
	case proposition.KindEU:
		converged, err := c.computeFixedPoint(false, func(cur map[space.StateID]Truth, s space.StateID) (Truth, error) {
			rVal, err := c.eval(p.Right, s, env)
			if err != nil {
				return Unknown, err
			}
			if rVal == True {
				return True, nil
			}
			lVal, err := c.eval(p.Left, s, env)
			if err != nil {
				return Unknown, err
			}
			return Or3(rVal, And3(lVal, exOf(c.space, cur, s))), nil
		})
		if err != nil {
			return Unknown, err
		}
		return converged[id], nil
	case proposition.KindFixedPoint:
		converged, err := c.computeFixedPoint(p.IsGreatest, func(cur map[space.StateID]Truth, s space.StateID) (Truth, error) {
			innerEnv := append(append([]frame{}, env...), frame{name: p.Var, converged: cur, prop: p})
			return c.eval(p.Sub, s, innerEnv)
		})
		if err != nil {
			return Unknown, err
		}
		return converged[id], nil
	case proposition.KindVariable:
		for i := len(env) - 1; i >= 0; i-- {
			if env[i].name == p.Var {
				return env[i].converged[id], nil
			}
		}
		// A variable outside any binding frame is a parser/AST invariant
		// violation, not a condition a parsed property can trigger.
		panic("modelcheck: unbound fixed-point variable " + p.Var)
	}
	return Unknown, nil
}

// evalEX computes EX sub at id directly against the current (non-fixed-
// point) truth of sub at every successor.
func (c *Checker) evalEX(sub *proposition.Prop, id space.StateID, env []frame) (Truth, error) {
	edges := c.space.Outgoing(id)
	anyTrue, anyUnknown := false, false
	for _, e := range edges {
		v, err := c.eval(sub, e.To, env)
		if err != nil {
			return Unknown, err
		}
		switch v {
		case True:
			anyTrue = true
		case Unknown:
			anyUnknown = true
		}
	}
	switch {
	case anyTrue:
		return True, nil
	case anyUnknown:
		return Unknown, nil
	default:
		return False, nil
	}
}

// exOf applies the EX rule directly against an in-progress fixed-point
// map cur, without recursing through eval (cur is not yet converged).
func exOf(sp *space.Space, cur map[space.StateID]Truth, id space.StateID) Truth {
	edges := sp.Outgoing(id)
	anyTrue, anyUnknown := false, false
	for _, e := range edges {
		switch cur[e.To] {
		case True:
			anyTrue = true
		case Unknown:
			anyUnknown = true
		}
	}
	switch {
	case anyTrue:
		return True
	case anyUnknown:
		return Unknown
	default:
		return False
	}
}

// computeFixedPoint iterates a Kleene-monotone step function over every
// state in the space to a stable point (lfp/gfp iteration),
// starting from all-False (lfp) or all-True (gfp).
func (c *Checker) computeFixedPoint(greatest bool, step func(cur map[space.StateID]Truth, id space.StateID) (Truth, error)) (map[space.StateID]Truth, error) {
	states := c.space.AllStateIDs()
	sort.Slice(states, func(i, j int) bool { return states[i] < states[j] })

	start := False
	if greatest {
		start = True
	}
	cur := make(map[space.StateID]Truth, len(states))
	for _, s := range states {
		cur[s] = start
	}

	cap := c.fixedPointIterationCap()
	for iter := 0; iter < cap; iter++ {
		c.fixedPointIterations++
		next := make(map[space.StateID]Truth, len(states))
		changed := false
		for _, s := range states {
			v, err := step(cur, s)
			if err != nil {
				return nil, err
			}
			next[s] = v
			if v != cur[s] {
				changed = true
			}
		}
		cur = next
		if !changed {
			break
		}
	}
	return cur, nil
}
