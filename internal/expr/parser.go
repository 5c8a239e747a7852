package expr

import (
	"fmt"
	"strconv"
)

// parser is a recursive-descent parser over a lazily lexed token stream.
// Tokens are pulled on demand so the first offending token is the one
// reported, even when later input would not lex.
type parser struct {
	lex  *lexer
	cur  token
	peek *token
}

// Parse builds the expression tree for input.
func Parse(input string) (*Node, error) {
	p := &parser{lex: newLexer(input)}
	if err := p.advance(); err != nil {
		return nil, p.wrap(input, err)
	}
	if p.cur.typ == tokEOF {
		return nil, &EvaluationError{Expression: input, Reason: "empty expression"}
	}
	node, err := p.parseComparison()
	if err != nil {
		return nil, p.wrap(input, err)
	}
	if p.cur.typ != tokEOF {
		return nil, p.wrap(input, unexpected(p.cur))
	}
	return node, nil
}

func (p *parser) wrap(input string, err error) error {
	if ee, ok := err.(*EvaluationError); ok && ee.Expression == "" {
		ee.Expression = input
	}
	return err
}

func (p *parser) advance() error {
	if p.peek != nil {
		p.cur = *p.peek
		p.peek = nil
		return nil
	}
	t, err := p.lex.nextToken()
	if err != nil {
		return err
	}
	p.cur = t
	return nil
}

func (p *parser) lookahead() (token, error) {
	if p.peek == nil {
		t, err := p.lex.nextToken()
		if err != nil {
			return token{}, err
		}
		p.peek = &t
	}
	return *p.peek, nil
}

func (p *parser) isOp(ops ...string) bool {
	if p.cur.typ != tokOp {
		return false
	}
	for _, op := range ops {
		if p.cur.lit == op {
			return true
		}
	}
	return false
}

func (p *parser) expect(tt tokenType, what string) (token, error) {
	t := p.cur
	if t.typ != tt {
		if t.typ == tokEOF {
			return token{}, &EvaluationError{Offset: t.span.Start, Reason: fmt.Sprintf("expected %s, got end of expression", what)}
		}
		return token{}, &EvaluationError{Token: t.lit, Offset: t.span.Start, Reason: fmt.Sprintf("expected %s, got %q", what, t.lit)}
	}
	return t, p.advance()
}

// comparison := additive (cmp additive)*
func (p *parser) parseComparison() (*Node, error) {
	first, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	if !p.isOp("<", "<=", ">", ">=", "==", "!=") {
		return first, nil
	}
	cmp := &Node{Kind: KindCompare, Operands: []*Node{first}}
	for p.isOp("<", "<=", ">", ">=", "==", "!=") {
		cmp.Ops = append(cmp.Ops, p.cur.lit)
		if err := p.advance(); err != nil {
			return nil, err
		}
		next, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		cmp.Operands = append(cmp.Operands, next)
	}
	cmp.Span = Span{Start: first.Span.Start, End: cmp.Operands[len(cmp.Operands)-1].Span.End}
	return cmp, nil
}

func (p *parser) parseAdditive() (*Node, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.isOp("+", "-") {
		op := p.cur.lit
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = &Node{Kind: KindBinary, Span: Span{Start: left.Span.Start, End: right.Span.End}, Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseMultiplicative() (*Node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.isOp("*", "/", "%") {
		op := p.cur.lit
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &Node{Kind: KindBinary, Span: Span{Start: left.Span.Start, End: right.Span.End}, Op: op, Left: left, Right: right}
	}
	return left, nil
}

// unary := ('+'|'-') unary | power
func (p *parser) parseUnary() (*Node, error) {
	if p.isOp("+", "-") {
		op := p.cur
		if err := p.advance(); err != nil {
			return nil, err
		}
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &Node{Kind: KindUnary, Span: Span{Start: op.span.Start, End: operand.Span.End}, Op: op.lit, Operand: operand}, nil
	}
	return p.parsePower()
}

// power := primary ('**' unary)?  -- right associative, so -2**2 == -(2**2)
// and 2**-1 == 0.5.
func (p *parser) parsePower() (*Node, error) {
	base, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	if !p.isOp("**") {
		return base, nil
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	exp, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	return &Node{Kind: KindBinary, Span: Span{Start: base.Span.Start, End: exp.Span.End}, Op: "**", Left: base, Right: exp}, nil
}

func (p *parser) parsePrimary() (*Node, error) {
	t := p.cur
	switch t.typ {
	case tokNumber:
		v, err := strconv.ParseFloat(t.lit, 64)
		if err != nil {
			return nil, &EvaluationError{Token: t.lit, Offset: t.span.Start, Reason: fmt.Sprintf("invalid number %q", t.lit)}
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &Node{Kind: KindLiteral, Span: t.span, Number: v}, nil

	case tokIdentifier:
		next, err := p.lookahead()
		if err != nil {
			return nil, err
		}
		if next.typ == tokLParen {
			return p.parseCall(t)
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &Node{Kind: KindVariable, Span: t.span, Name: t.lit}, nil

	case tokLParen:
		if err := p.advance(); err != nil {
			return nil, err
		}
		inner, err := p.parseComparison()
		if err != nil {
			return nil, err
		}
		end, err := p.expect(tokRParen, "')'")
		if err != nil {
			return nil, err
		}
		inner.Span = Span{Start: t.span.Start, End: end.span.End}
		return inner, nil

	case tokEOF:
		return nil, &EvaluationError{Offset: t.span.Start, Reason: "unexpected end of expression"}

	default:
		return nil, unexpected(t)
	}
}

func (p *parser) parseCall(name token) (*Node, error) {
	fn, ok := functions[name.lit]
	if !ok {
		return nil, &EvaluationError{Token: name.lit, Offset: name.span.Start, Reason: fmt.Sprintf("function %q is not allowed", name.lit)}
	}
	if err := p.advance(); err != nil { // name
		return nil, err
	}
	if err := p.advance(); err != nil { // (
		return nil, err
	}

	var args []*Node
	if p.cur.typ != tokRParen {
		for {
			arg, err := p.parseComparison()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if p.cur.typ != tokComma {
				break
			}
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
	}
	end, err := p.expect(tokRParen, "')' after arguments")
	if err != nil {
		return nil, err
	}
	if err := fn.checkArity(name.lit, len(args)); err != nil {
		err.Offset = name.span.Start
		return nil, err
	}
	return &Node{Kind: KindCall, Span: Span{Start: name.span.Start, End: end.span.End}, Name: name.lit, Args: args}, nil
}
