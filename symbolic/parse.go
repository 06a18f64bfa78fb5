package symbolic

import (
	"fmt"
	"math/big"
	"strings"
	"unicode"
)

// ============================================================
// Parser
// ============================================================

// Parse reads an infix expression such as "1 - 2*M/r" or "r^2*sin(theta)^2".
//
// Grammar, lowest precedence first: + and -, then * and /, then unary minus,
// then ^ (or **, right associative). Decimal literals are read exactly.
// Identifiers followed by "(" are function applications; names outside the
// built-in set become undefined functions such as a(t). log is ln, and
// sqrt(x) is x^(1/2).
func Parse(input string) (Expr, error) {
	toks, err := tokenize(input)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	e, err := p.expr()
	if err != nil {
		return nil, err
	}
	if p.pos != len(p.toks) {
		return nil, fmt.Errorf("%w: unexpected %q at offset %d", ErrParse, p.toks[p.pos].text, p.toks[p.pos].off)
	}
	return e, nil
}

// MustParse is Parse for literals known to be valid; it panics on error.
func MustParse(input string) Expr {
	e, err := Parse(input)
	if err != nil {
		panic(err)
	}
	return e
}

type tokKind int

const (
	tokNum tokKind = iota
	tokIdent
	tokOp
)

type token struct {
	kind tokKind
	text string
	off  int
}

func tokenize(s string) ([]token, error) {
	var toks []token
	rs := []rune(s)
	for i := 0; i < len(rs); {
		c := rs[i]
		switch {
		case unicode.IsSpace(c):
			i++
		case unicode.IsDigit(c) || (c == '.' && i+1 < len(rs) && unicode.IsDigit(rs[i+1])):
			start := i
			for i < len(rs) && (unicode.IsDigit(rs[i]) || rs[i] == '.') {
				i++
			}
			toks = append(toks, token{kind: tokNum, text: string(rs[start:i]), off: start})
		case unicode.IsLetter(c) || c == '_':
			start := i
			for i < len(rs) && (unicode.IsLetter(rs[i]) || unicode.IsDigit(rs[i]) || rs[i] == '_') {
				i++
			}
			toks = append(toks, token{kind: tokIdent, text: string(rs[start:i]), off: start})
		case c == '*' && i+1 < len(rs) && rs[i+1] == '*':
			toks = append(toks, token{kind: tokOp, text: "^", off: i})
			i += 2
		case strings.ContainsRune("+-*/^(),", c):
			toks = append(toks, token{kind: tokOp, text: string(c), off: i})
			i++
		default:
			return nil, fmt.Errorf("%w: unexpected character %q at offset %d", ErrParse, c, i)
		}
	}
	return toks, nil
}

type parser struct {
	toks []token
	pos  int
}

func (p *parser) peekOp(ops ...string) (string, bool) {
	if p.pos >= len(p.toks) || p.toks[p.pos].kind != tokOp {
		return "", false
	}
	for _, op := range ops {
		if p.toks[p.pos].text == op {
			return op, true
		}
	}
	return "", false
}

func (p *parser) expect(op string) error {
	if _, ok := p.peekOp(op); !ok {
		if p.pos >= len(p.toks) {
			return fmt.Errorf("%w: expected %q at end of input", ErrParse, op)
		}
		return fmt.Errorf("%w: expected %q at offset %d", ErrParse, op, p.toks[p.pos].off)
	}
	p.pos++
	return nil
}

func (p *parser) expr() (Expr, error) {
	left, err := p.term()
	if err != nil {
		return nil, err
	}
	terms := []Expr{left}
	for {
		op, ok := p.peekOp("+", "-")
		if !ok {
			break
		}
		p.pos++
		right, err := p.term()
		if err != nil {
			return nil, err
		}
		if op == "-" {
			right = MulOf(N(-1), right)
		}
		terms = append(terms, right)
	}
	if len(terms) == 1 {
		return left, nil
	}
	return AddOf(terms...), nil
}

func (p *parser) term() (Expr, error) {
	left, err := p.unary()
	if err != nil {
		return nil, err
	}
	factors := []Expr{left}
	for {
		op, ok := p.peekOp("*", "/")
		if !ok {
			break
		}
		p.pos++
		right, err := p.unary()
		if err != nil {
			return nil, err
		}
		if op == "/" {
			right = PowOf(right, N(-1))
		}
		factors = append(factors, right)
	}
	if len(factors) == 1 {
		return left, nil
	}
	return MulOf(factors...), nil
}

func (p *parser) unary() (Expr, error) {
	if op, ok := p.peekOp("-", "+"); ok {
		p.pos++
		inner, err := p.unary()
		if err != nil {
			return nil, err
		}
		if op == "-" {
			return MulOf(N(-1), inner), nil
		}
		return inner, nil
	}
	return p.power()
}

func (p *parser) power() (Expr, error) {
	base, err := p.primary()
	if err != nil {
		return nil, err
	}
	if _, ok := p.peekOp("^"); ok {
		p.pos++
		exp, err := p.unary()
		if err != nil {
			return nil, err
		}
		return PowOf(base, exp), nil
	}
	return base, nil
}

func (p *parser) primary() (Expr, error) {
	if p.pos >= len(p.toks) {
		return nil, fmt.Errorf("%w: unexpected end of input", ErrParse)
	}
	tok := p.toks[p.pos]
	switch tok.kind {
	case tokNum:
		p.pos++
		r, ok := new(big.Rat).SetString(tok.text)
		if !ok {
			return nil, fmt.Errorf("%w: bad number %q at offset %d", ErrParse, tok.text, tok.off)
		}
		return &Num{val: r}, nil
	case tokIdent:
		p.pos++
		if _, ok := p.peekOp("("); !ok {
			return S(tok.text), nil
		}
		p.pos++
		arg, err := p.expr()
		if err != nil {
			return nil, err
		}
		if err := p.expect(")"); err != nil {
			return nil, err
		}
		return applyNamed(tok.text, arg), nil
	}
	if tok.text == "(" {
		p.pos++
		inner, err := p.expr()
		if err != nil {
			return nil, err
		}
		if err := p.expect(")"); err != nil {
			return nil, err
		}
		return inner, nil
	}
	return nil, fmt.Errorf("%w: unexpected %q at offset %d", ErrParse, tok.text, tok.off)
}

func applyNamed(name string, arg Expr) Expr {
	switch name {
	case "sqrt":
		return SqrtOf(arg)
	case "log":
		return LnOf(arg)
	}
	return FuncOf(name, arg)
}
