package proposition

// PNF pushes negation down to the atoms (positive normal form), rewriting
// double negation, De Morgan's laws over &&/||, and the CTL duals
// (!AX p == EX !p, !AF p == EG !p, !AG p == EF !p and symmetrically for
// the E-operators, !A[p U q] == E[!p R !q] and symmetrically for R/E/U).
// Fixed-point variables and bodies are left structurally intact other
// than recursing into their bodies; negating a bound variable reference
// is not eliminated (a raw lfp!/gfp! property is expected to already be
// written in the parity its semantics require).
func PNF(p *Prop) *Prop {
	return pnf(p, false)
}

func pnf(p *Prop, negated bool) *Prop {
	switch p.Kind {
	case KindAtom:
		if negated {
			return Not(&Prop{Kind: KindAtom, Atom: p.Atom})
		}
		return &Prop{Kind: KindAtom, Atom: p.Atom}
	case KindVariable:
		if negated {
			return Not(Variable(p.Var))
		}
		return Variable(p.Var)
	case KindNot:
		return pnf(p.Sub, !negated)
	case KindAnd:
		l, r := pnf(p.Left, negated), pnf(p.Right, negated)
		if negated {
			return Or(l, r)
		}
		return And(l, r)
	case KindOr:
		l, r := pnf(p.Left, negated), pnf(p.Right, negated)
		if negated {
			return And(l, r)
		}
		return Or(l, r)
	case KindAX:
		sub := pnf(p.Sub, negated)
		if negated {
			return EX(sub)
		}
		return AX(sub)
	case KindEX:
		sub := pnf(p.Sub, negated)
		if negated {
			return AX(sub)
		}
		return EX(sub)
	case KindAF:
		sub := pnf(p.Sub, negated)
		if negated {
			return EG(sub)
		}
		return AF(sub)
	case KindEG:
		sub := pnf(p.Sub, negated)
		if negated {
			return AF(sub)
		}
		return EG(sub)
	case KindAG:
		sub := pnf(p.Sub, negated)
		if negated {
			return EF(sub)
		}
		return AG(sub)
	case KindEF:
		sub := pnf(p.Sub, negated)
		if negated {
			return AG(sub)
		}
		return EF(sub)
	case KindAU:
		l, r := pnf(p.Left, negated), pnf(p.Right, negated)
		if negated {
			return ER(l, r)
		}
		return AU(l, r)
	case KindER:
		l, r := pnf(p.Left, negated), pnf(p.Right, negated)
		if negated {
			return AU(l, r)
		}
		return ER(l, r)
	case KindEU:
		l, r := pnf(p.Left, negated), pnf(p.Right, negated)
		if negated {
			return AR(l, r)
		}
		return EU(l, r)
	case KindAR:
		l, r := pnf(p.Left, negated), pnf(p.Right, negated)
		if negated {
			return EU(l, r)
		}
		return AR(l, r)
	case KindFixedPoint:
		body := pnf(p.Sub, negated)
		return FixedPoint(p.Var, p.IsGreatest, body)
	}
	return p
}

// ENF eliminates the A-quantified temporal operators and AG/AF in favor
// of EX/EG/EU (the "existential normal form" the model checker's fixed-
// point engine operates on directly), following the standard CTL
// equivalences:
//
//	AX p       == !EX !p
//	AG p       == !EF !p == !E[true U !p]
//	AF p       == !EG !p
//	A[p U q]   == !E[!q U (!p && !q)] && !EG !q
//	A[p R q]   == !E[!p U !q]   (release is the dual of until)
//
// ENF assumes its input is already in PNF (negation only at atoms), so
// the rewrites below never need to re-push negation themselves.
func ENF(p *Prop) *Prop {
	switch p.Kind {
	case KindAtom, KindVariable:
		return p
	case KindNot:
		return Not(ENF(p.Sub))
	case KindAnd:
		return And(ENF(p.Left), ENF(p.Right))
	case KindOr:
		return Or(ENF(p.Left), ENF(p.Right))
	case KindEX:
		return EX(ENF(p.Sub))
	case KindEG:
		return EG(ENF(p.Sub))
	case KindEU:
		return EU(ENF(p.Left), ENF(p.Right))
	case KindAX:
		return Not(EX(Not(ENF(p.Sub))))
	case KindAF:
		return Not(EG(Not(ENF(p.Sub))))
	case KindAG:
		return Not(EU(trueProp(), Not(ENF(p.Sub))))
	// AG p == !EF(!p) == !E[true U !p]; the inner Not(ENF(p.Sub)) above
	// carries the negation, matching this derivation.
	case KindEF:
		return EU(trueProp(), ENF(p.Sub))
	case KindAU:
		l, r := ENF(p.Left), ENF(p.Right)
		notL, notR := Not(l), Not(r)
		return And(Not(EU(notR, And(notL, notR))), Not(EG(notR)))
	case KindER:
		l, r := ENF(p.Left), ENF(p.Right)
		return Or(EU(r, And(l, r)), EG(r))
	case KindAR:
		l, r := ENF(p.Left), ENF(p.Right)
		return Not(EU(Not(l), Not(r)))
	case KindFixedPoint:
		return FixedPoint(p.Var, p.IsGreatest, ENF(p.Sub))
	}
	return p
}

// trueProp builds a tautological atom (__true == 1) used by the AG/EF
// rewrites above; the checker evaluates the reserved field name "__true"
// to True in every state instead of looking it up in the state.
func trueProp() *Prop {
	return AtomCompare(OpEq, ValueExpr{Field: "__true"}, 1)
}
