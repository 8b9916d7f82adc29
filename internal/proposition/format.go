package proposition

import (
	"fmt"
	"strings"
)

// String renders a Prop back into the surface syntax Parse accepts, so
// that Parse(p.String()) reproduces an equivalent AST — the round-trip
// property exercised by this package's tests.
func (p *Prop) String() string {
	var b strings.Builder
	p.write(&b)
	return b.String()
}

func (p *Prop) write(b *strings.Builder) {
	switch p.Kind {
	case KindAtom:
		p.Atom.write(b)
	case KindNot:
		b.WriteString("!(")
		p.Sub.write(b)
		b.WriteByte(')')
	case KindAnd:
		b.WriteByte('(')
		p.Left.write(b)
		b.WriteString(" && ")
		p.Right.write(b)
		b.WriteByte(')')
	case KindOr:
		b.WriteByte('(')
		p.Left.write(b)
		b.WriteString(" || ")
		p.Right.write(b)
		b.WriteByte(')')
	case KindAX, KindAF, KindAG, KindEX, KindEF, KindEG:
		b.WriteString(unaryTemporalText[p.Kind])
		b.WriteString("![")
		p.Sub.write(b)
		b.WriteByte(']')
	case KindAU, KindAR, KindEU, KindER:
		b.WriteString(binaryTemporalText[p.Kind])
		b.WriteString("![")
		p.Left.write(b)
		b.WriteString(", ")
		p.Right.write(b)
		b.WriteByte(']')
	case KindFixedPoint:
		if p.IsGreatest {
			b.WriteString("gfp![")
		} else {
			b.WriteString("lfp![")
		}
		b.WriteString(p.Var)
		b.WriteString(", ")
		p.Sub.write(b)
		b.WriteByte(']')
	case KindVariable:
		b.WriteString(p.Var)
	}
}

var unaryTemporalText = map[Kind]string{
	KindAX: "AX", KindAF: "AF", KindAG: "AG",
	KindEX: "EX", KindEF: "EF", KindEG: "EG",
}

var binaryTemporalText = map[Kind]string{
	KindAU: "AU", KindAR: "AR", KindEU: "EU", KindER: "ER",
}

func (a *Atom) write(b *strings.Builder) {
	a.Value.write(b)
	b.WriteByte(' ')
	b.WriteString(compareOpText[a.Op])
	b.WriteByte(' ')
	fmt.Fprintf(b, "%d", a.Literal)
}

func (v *ValueExpr) write(b *strings.Builder) {
	open, shut := "", ""
	switch v.Cast {
	case CastSigned:
		open, shut = "as_signed(", ")"
	case CastUnsigned:
		open, shut = "as_unsigned(", ")"
	}
	b.WriteString(open)
	b.WriteString(v.Field)
	if v.Index != nil {
		fmt.Fprintf(b, "[%d]", *v.Index)
	}
	b.WriteString(shut)
}
