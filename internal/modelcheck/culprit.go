package modelcheck

import (
	"fmt"

	"github.com/onderjan/machine-check-sub001/internal/proposition"
	"github.com/onderjan/machine-check-sub001/internal/space"
)

// Culprit pinpoints why a property's verdict came out Unknown: the
// atomic proposition whose comparison could not be decided, and the path
// of states (root-first) leading to the state it was evaluated at.
type Culprit struct {
	Field string
	Index *int
	Path  []space.StateID
}

func (c *Culprit) String() string {
	if c.Index != nil {
		return fmt.Sprintf("%s[%d] along %v", c.Field, *c.Index, c.Path)
	}
	return fmt.Sprintf("%s along %v", c.Field, c.Path)
}

// extractCulprit performs a guided walk from root, which
// must already be known to evaluate prop to Unknown, down to the
// offending atom. At every connective the walk follows whichever operand
// is itself Unknown, breaking ties by preferring the left/lower-index
// operand (the lexicographic-ascending tie-break of SPEC_FULL.md); at an
// EX/EG/EU/fixed-point node it follows the lowest-numbered Unknown
// successor.
func (c *Checker) extractCulprit(prop *proposition.Prop, root space.StateID) (*Culprit, error) {
	return c.walk(prop, root, nil, []space.StateID{root}, 0)
}

// walkStepCap bounds the same-state "unfold one more level" steps a walk
// may take through EG/EU/fixed-point nodes before giving up; it mirrors
// fixedPointIterationCap since both guard against the same pathological
// non-monotone input.
func (c *Checker) walkStepCap() int {
	return 2*c.space.NumStates() + 16
}

func (c *Checker) walk(p *proposition.Prop, id space.StateID, env []frame, path []space.StateID, depth int) (*Culprit, error) {
	if depth > c.walkStepCap() {
		return nil, fmt.Errorf("modelcheck: culprit walk did not converge")
	}

	switch p.Kind {
	case proposition.KindAtom:
		return &Culprit{Field: p.Atom.Value.Field, Index: p.Atom.Value.Index, Path: path}, nil

	case proposition.KindNot:
		return c.walk(p.Sub, id, env, path, depth+1)

	case proposition.KindAnd:
		lv, err := c.eval(p.Left, id, env)
		if err != nil {
			return nil, err
		}
		if lv == Unknown {
			return c.walk(p.Left, id, env, path, depth+1)
		}
		return c.walk(p.Right, id, env, path, depth+1)

	case proposition.KindOr:
		lv, err := c.eval(p.Left, id, env)
		if err != nil {
			return nil, err
		}
		if lv == Unknown {
			return c.walk(p.Left, id, env, path, depth+1)
		}
		return c.walk(p.Right, id, env, path, depth+1)

	case proposition.KindEX:
		succ, ok, err := c.lowestUnknownSuccessor(p.Sub, id, env)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("modelcheck: EX culprit walk found no unknown successor at state %d", id)
		}
		return c.walk(p.Sub, succ, env, append(append([]space.StateID{}, path...), succ), depth+1)

	case proposition.KindEG:
		converged, err := c.computeFixedPoint(true, func(cur map[space.StateID]Truth, s space.StateID) (Truth, error) {
			subVal, err := c.eval(p.Sub, s, env)
			if err != nil {
				return Unknown, err
			}
			return And3(subVal, exOf(c.space, cur, s)), nil
		})
		if err != nil {
			return nil, err
		}
		subVal, err := c.eval(p.Sub, id, env)
		if err != nil {
			return nil, err
		}
		if subVal == Unknown {
			return c.walk(p.Sub, id, env, path, depth+1)
		}
		succ, ok := lowestUnknownAmong(c.space, converged, id)
		if !ok {
			return nil, fmt.Errorf("modelcheck: EG culprit walk found no unknown successor at state %d", id)
		}
		return c.walk(p, succ, env, append(append([]space.StateID{}, path...), succ), depth+1)

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
			return nil, err
		}
		rVal, err := c.eval(p.Right, id, env)
		if err != nil {
			return nil, err
		}
		if rVal == Unknown {
			return c.walk(p.Right, id, env, path, depth+1)
		}
		lVal, err := c.eval(p.Left, id, env)
		if err != nil {
			return nil, err
		}
		if lVal == Unknown {
			return c.walk(p.Left, id, env, path, depth+1)
		}
		succ, ok := lowestUnknownAmong(c.space, converged, id)
		if !ok {
			return nil, fmt.Errorf("modelcheck: EU culprit walk found no unknown successor at state %d", id)
		}
		return c.walk(p, succ, env, append(append([]space.StateID{}, path...), succ), depth+1)

	case proposition.KindFixedPoint:
		converged, err := c.computeFixedPoint(p.IsGreatest, func(cur map[space.StateID]Truth, s space.StateID) (Truth, error) {
			innerEnv := append(append([]frame{}, env...), frame{name: p.Var, converged: cur, prop: p})
			return c.eval(p.Sub, s, innerEnv)
		})
		if err != nil {
			return nil, err
		}
		innerEnv := append(append([]frame{}, env...), frame{name: p.Var, converged: converged, prop: p})
		return c.walk(p.Sub, id, innerEnv, path, depth+1)

	case proposition.KindVariable:
		for i := len(env) - 1; i >= 0; i-- {
			if env[i].name == p.Var {
				// Unfold the fixed point once more at the same state;
				// depth still advances so pathological non-monotone
				// input cannot loop forever.
				return c.walk(env[i].prop, id, env[:i], path, depth+1)
			}
		}
		panic("modelcheck: unbound fixed-point variable " + p.Var)
	}
	return nil, fmt.Errorf("modelcheck: culprit walk reached an unhandled property kind")
}

// lowestUnknownSuccessor evaluates sub directly at every successor of id
// (not through a fixed-point's in-progress map) and returns the
// lowest-numbered one that is Unknown.
func (c *Checker) lowestUnknownSuccessor(sub *proposition.Prop, id space.StateID, env []frame) (space.StateID, bool, error) {
	edges := c.space.Outgoing(id)
	best, found := space.StateID(0), false
	for _, e := range edges {
		v, err := c.eval(sub, e.To, env)
		if err != nil {
			return 0, false, err
		}
		if v == Unknown && (!found || e.To < best) {
			best, found = e.To, true
		}
	}
	return best, found, nil
}

// lowestUnknownAmong picks the lowest-numbered successor of id whose
// value in a converged fixed-point map is Unknown.
func lowestUnknownAmong(sp *space.Space, converged map[space.StateID]Truth, id space.StateID) (space.StateID, bool) {
	edges := sp.Outgoing(id)
	best, found := space.StateID(0), false
	for _, e := range edges {
		if converged[e.To] == Unknown && (!found || e.To < best) {
			best, found = e.To, true
		}
	}
	return best, found
}
