// Package proposition implements the CTL property language: a lexer
// and recursive-descent parser producing a Prop AST, its
// round-trip String representation, and the PNF/ENF normal-form
// transforms the model checker operates on.
package proposition

// Kind discriminates the variants of Prop.
type Kind int

const (
	KindAtom Kind = iota
	KindNot
	KindAnd
	KindOr
	KindAX
	KindAF
	KindAG
	KindEX
	KindEF
	KindEG
	KindAU
	KindAR
	KindEU
	KindER
	KindFixedPoint
	KindVariable
)

// CompareOp is the comparison operator of an atomic proposition.
type CompareOp int

const (
	OpEq CompareOp = iota
	OpNe
	OpUlt
	OpUle
	OpUgt
	OpUge
	OpSlt
	OpSle
	OpSgt
	OpSge
)

var compareOpText = map[CompareOp]string{
	OpEq: "==", OpNe: "!=",
	OpUlt: "<", OpUle: "<=", OpUgt: ">", OpUge: ">=",
	OpSlt: "<", OpSle: "<=", OpSgt: ">", OpSge: ">=",
}

// Cast is the optional as_signed/as_unsigned reinterpretation of a value
// expression; comparisons pick their signed/unsigned variant from it.
type Cast int

const (
	CastNone Cast = iota
	CastSigned
	CastUnsigned
)

// ValueExpr is a reference to one machine field, optionally bit-indexed
// and cast to a signed or unsigned interpretation.
type ValueExpr struct {
	Field string
	Index *int // nil selects the whole field
	Cast  Cast
}

// Atom is an atomic proposition per §6.2: a value expression compared
// against a signed 64-bit integer literal.
type Atom struct {
	Op      CompareOp
	Value   ValueExpr
	Literal int64
}

// Prop is one node of a parsed CTL property. Which fields are meaningful
// depends on Kind: KindAtom uses Atom; KindNot/KindAX/.../KindEG use Sub;
// KindAnd/KindOr/KindAU/KindAR/KindEU/KindER use Left/Right;
// KindFixedPoint uses Var, IsGreatest and Sub; KindVariable uses Var.
type Prop struct {
	Kind       Kind
	Atom       *Atom
	Sub        *Prop
	Left       *Prop
	Right      *Prop
	Var        string
	IsGreatest bool
}

// --- Constructors ---

func AtomCompare(op CompareOp, value ValueExpr, literal int64) *Prop {
	return &Prop{Kind: KindAtom, Atom: &Atom{Op: op, Value: value, Literal: literal}}
}

func Not(p *Prop) *Prop    { return &Prop{Kind: KindNot, Sub: p} }
func And(l, r *Prop) *Prop { return &Prop{Kind: KindAnd, Left: l, Right: r} }
func Or(l, r *Prop) *Prop  { return &Prop{Kind: KindOr, Left: l, Right: r} }
func AX(p *Prop) *Prop     { return &Prop{Kind: KindAX, Sub: p} }
func AF(p *Prop) *Prop     { return &Prop{Kind: KindAF, Sub: p} }
func AG(p *Prop) *Prop     { return &Prop{Kind: KindAG, Sub: p} }
func EX(p *Prop) *Prop     { return &Prop{Kind: KindEX, Sub: p} }
func EF(p *Prop) *Prop     { return &Prop{Kind: KindEF, Sub: p} }
func EG(p *Prop) *Prop     { return &Prop{Kind: KindEG, Sub: p} }
func AU(l, r *Prop) *Prop  { return &Prop{Kind: KindAU, Left: l, Right: r} }
func AR(l, r *Prop) *Prop  { return &Prop{Kind: KindAR, Left: l, Right: r} }
func EU(l, r *Prop) *Prop  { return &Prop{Kind: KindEU, Left: l, Right: r} }
func ER(l, r *Prop) *Prop  { return &Prop{Kind: KindER, Left: l, Right: r} }
func FixedPoint(v string, greatest bool, body *Prop) *Prop {
	return &Prop{Kind: KindFixedPoint, Var: v, IsGreatest: greatest, Sub: body}
}
func Variable(v string) *Prop { return &Prop{Kind: KindVariable, Var: v} }
