package proposition

// Parse parses a CTL property string into a Prop AST, following the
// CTL grammar below exactly:
//
//	property   := or-expr
//	or-expr    := and-expr ( '||' and-expr )*
//	and-expr   := unary ( '&&' unary )*
//	unary      := '!' '(' property ')'
//	            | '(' property ')'
//	            | macro-op | atomic | bound-variable
//	macro-op   := ('AX'|'AF'|'AG'|'EX'|'EF'|'EG') '![' property ']'
//	            | ('AU'|'AR'|'EU'|'ER')            '![' property ',' property ']'
//	            | ('lfp'|'gfp')                    '![' ident ',' property ']'
//	atomic     := value-expr comparison int-literal
//	value-expr := ident ( '[' int-literal ']' )?
//	            | ('as_unsigned'|'as_signed') '(' value-expr ')'
//	comparison := '==' | '!=' | '<' | '<=' | '>' | '>='
//
// bound-variable extends the literal grammar: inside the body of an
// enclosing lfp!/gfp!, the bound identifier may appear on its own as a
// property, denoting the fixed-point variable itself (e.g.
// "lfp![Z, (x == 3) || EX![Z]]").
func Parse(input string) (*Prop, error) {
	tokens, err := lex(input)
	if err != nil {
		return nil, err
	}
	p := &parser{tokens: tokens}
	prop, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.peek().kind != tokEOF {
		return nil, &ParseError{Pos: p.peek().pos, Msg: "unexpected trailing input"}
	}
	return prop, nil
}

type parser struct {
	tokens []token
	pos    int
	vars   []string
}

func (p *parser) peek() token { return p.tokens[p.pos] }

func (p *parser) next() token {
	t := p.tokens[p.pos]
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
	return t
}

func (p *parser) expect(k tokenKind) (token, error) {
	t := p.peek()
	if t.kind != k {
		return t, &ParseError{Pos: t.pos, Msg: "unexpected token " + tokenDesc(t)}
	}
	return p.next(), nil
}

func tokenDesc(t token) string {
	if t.kind == tokEOF {
		return "end of input"
	}
	return "'" + t.text + "'"
}

func (p *parser) pushVar(name string) { p.vars = append(p.vars, name) }
func (p *parser) popVar()             { p.vars = p.vars[:len(p.vars)-1] }
func (p *parser) isBoundVar(name string) bool {
	for _, v := range p.vars {
		if v == name {
			return true
		}
	}
	return false
}

func (p *parser) parseOr() (*Prop, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokOrOr {
		p.next()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = Or(left, right)
	}
	return left, nil
}

func (p *parser) parseAnd() (*Prop, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokAndAnd {
		p.next()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = And(left, right)
	}
	return left, nil
}

var unaryTemporalKinds = map[string]Kind{
	"AX": KindAX, "AF": KindAF, "AG": KindAG,
	"EX": KindEX, "EF": KindEF, "EG": KindEG,
}

var binaryTemporalKinds = map[string]Kind{
	"AU": KindAU, "AR": KindAR, "EU": KindEU, "ER": KindER,
}

func (p *parser) parseUnary() (*Prop, error) {
	if p.peek().kind == tokBang {
		p.next()
		if _, err := p.expect(tokLParen); err != nil {
			return nil, err
		}
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokRParen); err != nil {
			return nil, err
		}
		return Not(inner), nil
	}
	if p.peek().kind == tokLParen {
		p.next()
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokRParen); err != nil {
			return nil, err
		}
		return inner, nil
	}
	tok := p.peek()
	if tok.kind == tokIdent {
		if kind, ok := unaryTemporalKinds[tok.text]; ok {
			return p.parseUnaryMacroOp(kind)
		}
		if kind, ok := binaryTemporalKinds[tok.text]; ok {
			return p.parseBinaryMacroOp(kind)
		}
		switch tok.text {
		case "lfp":
			return p.parseFixedPointOp(false)
		case "gfp":
			return p.parseFixedPointOp(true)
		}
		if p.isBoundVar(tok.text) {
			p.next()
			return Variable(tok.text), nil
		}
	}
	return p.parseAtomic()
}

// expectBangBracket consumes the "![" pair that opens every macro-op.
func (p *parser) expectBangBracket() error {
	if _, err := p.expect(tokBang); err != nil {
		return err
	}
	if _, err := p.expect(tokLBracket); err != nil {
		return err
	}
	return nil
}

func (p *parser) parseUnaryMacroOp(kind Kind) (*Prop, error) {
	p.next()
	if err := p.expectBangBracket(); err != nil {
		return nil, err
	}
	sub, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokRBracket); err != nil {
		return nil, err
	}
	return &Prop{Kind: kind, Sub: sub}, nil
}

func (p *parser) parseBinaryMacroOp(kind Kind) (*Prop, error) {
	p.next()
	if err := p.expectBangBracket(); err != nil {
		return nil, err
	}
	left, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokComma); err != nil {
		return nil, err
	}
	right, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokRBracket); err != nil {
		return nil, err
	}
	return &Prop{Kind: kind, Left: left, Right: right}, nil
}

func (p *parser) parseFixedPointOp(greatest bool) (*Prop, error) {
	p.next()
	if err := p.expectBangBracket(); err != nil {
		return nil, err
	}
	nameTok, err := p.expect(tokIdent)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokComma); err != nil {
		return nil, err
	}
	p.pushVar(nameTok.text)
	body, err := p.parseOr()
	p.popVar()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokRBracket); err != nil {
		return nil, err
	}
	return FixedPoint(nameTok.text, greatest, body), nil
}

func (p *parser) parseAtomic() (*Prop, error) {
	value, err := p.parseValueExpr()
	if err != nil {
		return nil, err
	}
	op, ok := compareOpFromToken(p.peek())
	if !ok {
		return nil, &ParseError{Pos: p.peek().pos, Msg: "expected a comparison operator, got " + tokenDesc(p.peek())}
	}
	p.next()
	litTok, err := p.expect(tokNumber)
	if err != nil {
		return nil, err
	}
	literal, err := parseLiteral(litTok)
	if err != nil {
		return nil, err
	}
	if value.Cast == CastSigned {
		op = toSignedOp(op)
	}
	return AtomCompare(op, value, literal), nil
}

func compareOpFromToken(t token) (CompareOp, bool) {
	switch t.kind {
	case tokEqEq:
		return OpEq, true
	case tokNeq:
		return OpNe, true
	case tokLt:
		return OpUlt, true
	case tokLe:
		return OpUle, true
	case tokGt:
		return OpUgt, true
	case tokGe:
		return OpUge, true
	default:
		return 0, false
	}
}

func toSignedOp(op CompareOp) CompareOp {
	switch op {
	case OpUlt:
		return OpSlt
	case OpUle:
		return OpSle
	case OpUgt:
		return OpSgt
	case OpUge:
		return OpSge
	default:
		return op
	}
}

func (p *parser) parseValueExpr() (ValueExpr, error) {
	tok := p.peek()
	if tok.kind == tokIdent && (tok.text == "as_signed" || tok.text == "as_unsigned") {
		cast := CastUnsigned
		if tok.text == "as_signed" {
			cast = CastSigned
		}
		p.next()
		if _, err := p.expect(tokLParen); err != nil {
			return ValueExpr{}, err
		}
		inner, err := p.parseValueExpr()
		if err != nil {
			return ValueExpr{}, err
		}
		if _, err := p.expect(tokRParen); err != nil {
			return ValueExpr{}, err
		}
		inner.Cast = cast
		return inner, nil
	}
	nameTok, err := p.expect(tokIdent)
	if err != nil {
		return ValueExpr{}, err
	}
	ve := ValueExpr{Field: nameTok.text}
	if p.peek().kind == tokLBracket {
		p.next()
		numTok, err := p.expect(tokNumber)
		if err != nil {
			return ValueExpr{}, err
		}
		idx, err := parseIndex(numTok)
		if err != nil {
			return ValueExpr{}, err
		}
		ve.Index = &idx
		if _, err := p.expect(tokRBracket); err != nil {
			return ValueExpr{}, err
		}
	}
	return ve, nil
}
