// Package parse reads the text form produced by symcalc's Serialize back into
// an expression tree.
//
// Grammar, loosest binding first:
//
//	expr    = unary { ("+" | "-") unary }
//	unary   = "-" unary | product
//	product = power { ("*" | "/" | implicit) power }
//	power   = primary [ "^" exponent ]
//	primary = number | identifier | unit | call | "(" expr ")" | matrix | list
//
// Implicit multiplication is only recognized after a number literal, as in
// 2x or 3_m. An integer literal divided by an integer literal is read as a
// single rational number.
package parse

import (
	"math/big"
	"strconv"

	"github.com/pkg/errors"

	"github.com/njchilds90/symcalc"
)

// maxNesting bounds the depth of parentheses, brackets and calls.
const maxNesting = 128

type literal uint8

const (
	notLiteral literal = iota
	integerLiteral
	decimalLiteral
)

type parser struct {
	a     *symcalc.Arena
	toks  []Token
	i     int
	depth int
}

// Parse reads input into a new root of a with one hold. Syntax errors wrap
// symcalc.ErrParse and report the byte offset. When a runs out of space the
// error wraps symcalc.ErrOutOfArenaSpace and the nodes built so far are left
// to the caller's checkpoint.
func Parse(a *symcalc.Arena, input string) (symcalc.Expr, error) {
	toks, err := Lex(input)
	if err != nil {
		return symcalc.Expr{}, err
	}
	p := &parser{a: a, toks: toks}
	if p.peek().Type == EOF {
		return symcalc.Expr{}, errors.Wrap(symcalc.ErrParse, "empty input")
	}
	e, err := p.expression()
	if err == nil && p.peek().Type != EOF {
		e.Release()
		e, err = symcalc.Expr{}, p.unexpected()
	}
	if a.Err() != nil {
		return symcalc.Expr{}, errors.Wrap(a.Err(), "parse")
	}
	return e, err
}

// MustParse is Parse for inputs known to be valid; it panics on error.
func MustParse(a *symcalc.Arena, input string) symcalc.Expr {
	e, err := Parse(a, input)
	if err != nil {
		panic(err)
	}
	return e
}

func (p *parser) peek() Token { return p.toks[p.i] }

func (p *parser) peekAt(n int) Token {
	if p.i+n >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.i+n]
}

func (p *parser) match(tt TokenType) bool {
	if p.peek().Type == tt {
		p.i++
		return true
	}
	return false
}

func (p *parser) need(tt TokenType) error {
	if !p.match(tt) {
		t := p.peek()
		return errors.Wrapf(symcalc.ErrParse, "at %d: expected %s, found %s", t.Pos, tt, describe(t))
	}
	return nil
}

func (p *parser) unexpected() error {
	t := p.peek()
	return errors.Wrapf(symcalc.ErrParse, "at %d: unexpected %s", t.Pos, describe(t))
}

func describe(t Token) string {
	if t.Lexeme == "" {
		return t.Type.String()
	}
	return strconv.Quote(t.Lexeme)
}

func (p *parser) enter() error {
	if p.depth++; p.depth > maxNesting {
		return errors.Wrapf(symcalc.ErrParse, "at %d: nesting deeper than %d", p.peek().Pos, maxNesting)
	}
	return nil
}

func (p *parser) leave() { p.depth-- }

// expression parses a sum. Terms joined by '+' go into one Addition; '-'
// builds a binary Subtraction over everything on its left.
func (p *parser) expression() (symcalc.Expr, error) {
	left, err := p.unary()
	if err != nil {
		return left, err
	}
	chain := false
	for {
		var minus bool
		switch {
		case p.match(PLUS):
		case p.match(MINUS):
			minus = true
		default:
			return left, nil
		}
		right, err := p.unary()
		if err != nil {
			left.Release()
			return symcalc.Expr{}, err
		}
		switch {
		case minus:
			left, chain = p.a.Sub(left, right), false
		case chain:
			left.AddChild(right)
		default:
			left, chain = p.a.Add(left, right), true
		}
	}
}

func (p *parser) unary() (symcalc.Expr, error) {
	if !p.match(MINUS) {
		return p.product()
	}
	if t := p.peek(); (t.Type == INTEGER || t.Type == DECIMAL) && p.peekAt(1).Type != POW {
		p.i++
		n, lit, err := p.number(t, true)
		if err != nil {
			return n, err
		}
		return p.productFrom(n, lit)
	}
	operand, err := p.unary()
	if err != nil {
		return operand, err
	}
	return p.a.Opp(operand), nil
}

func (p *parser) product() (symcalc.Expr, error) {
	first, lit, err := p.power()
	if err != nil {
		return first, err
	}
	return p.productFrom(first, lit)
}

// productFrom continues a product whose first factor is left. lit describes
// the last factor read, which decides implicit multiplication and whether a
// division folds into a rational.
func (p *parser) productFrom(left symcalc.Expr, lit literal) (symcalc.Expr, error) {
	chain := false
	for {
		t := p.peek()
		implicit := lit != notLiteral && (t.Type == ID || t.Type == UNIT || t.Type == LROUND)
		switch {
		case t.Type == MULT || implicit:
			if t.Type == MULT {
				p.i++
			}
			right, rlit, err := p.power()
			if err != nil {
				left.Release()
				return symcalc.Expr{}, err
			}
			if chain {
				left.AddChild(right)
			} else {
				left, chain = p.a.Mul(left, right), true
			}
			lit = rlit
		case t.Type == DIV:
			p.i++
			right, rlit, err := p.power()
			if err != nil {
				left.Release()
				return symcalc.Expr{}, err
			}
			folds := !chain && lit == integerLiteral && rlit == integerLiteral && p.a.Err() == nil
			if folds && right.RationalValue().Sign() != 0 {
				q := new(big.Rat).Quo(left.RationalValue(), right.RationalValue())
				left.Release()
				right.Release()
				left = p.a.RationalFromBig(q)
			} else {
				left = p.a.Div(left, right)
			}
			lit, chain = notLiteral, false
		default:
			return left, nil
		}
	}
}

func (p *parser) power() (symcalc.Expr, literal, error) {
	base, lit, err := p.primary()
	if err != nil || !p.match(POW) {
		return base, lit, err
	}
	exp, err := p.exponent()
	if err != nil {
		base.Release()
		return symcalc.Expr{}, notLiteral, err
	}
	return p.a.Pow(base, exp), notLiteral, nil
}

// exponent reads the right operand of '^', which may carry its own sign and
// binds to the right: 2^-x^2 is 2^(-(x^2)).
func (p *parser) exponent() (symcalc.Expr, error) {
	if !p.match(MINUS) {
		e, _, err := p.power()
		return e, err
	}
	if t := p.peek(); (t.Type == INTEGER || t.Type == DECIMAL) && p.peekAt(1).Type != POW {
		p.i++
		n, _, err := p.number(t, true)
		return n, err
	}
	operand, err := p.exponent()
	if err != nil {
		return operand, err
	}
	return p.a.Opp(operand), nil
}

func (p *parser) number(t Token, negative bool) (symcalc.Expr, literal, error) {
	if t.Type == INTEGER {
		n, ok := new(big.Int).SetString(t.Lexeme, 10)
		if !ok {
			return symcalc.Expr{}, notLiteral, errors.Wrapf(symcalc.ErrParse, "at %d: bad integer %q", t.Pos, t.Lexeme)
		}
		if negative {
			n.Neg(n)
		}
		return p.a.RationalFromBig(new(big.Rat).SetInt(n)), integerLiteral, nil
	}
	v, err := strconv.ParseFloat(t.Lexeme, 64)
	if err != nil {
		return symcalc.Expr{}, notLiteral, errors.Wrapf(symcalc.ErrParse, "at %d: bad decimal %q", t.Pos, t.Lexeme)
	}
	if negative {
		v = -v
	}
	return p.a.Decimal(v), decimalLiteral, nil
}

func (p *parser) primary() (symcalc.Expr, literal, error) {
	t := p.peek()
	switch t.Type {
	case INTEGER, DECIMAL:
		p.i++
		return p.number(t, false)
	case UNIT:
		p.i++
		if !symcalc.IsKnownUnit(t.Lexeme) {
			return symcalc.Expr{}, notLiteral, errors.Wrapf(symcalc.ErrParse, "at %d: unknown unit %q", t.Pos, t.Lexeme)
		}
		return p.a.Unit(t.Lexeme), notLiteral, nil
	case ID:
		p.i++
		e, err := p.identifier(t)
		return e, notLiteral, err
	case LROUND, LSQUARE, LCURLY:
		if err := p.enter(); err != nil {
			return symcalc.Expr{}, notLiteral, err
		}
		defer p.leave()
		p.i++
		var e symcalc.Expr
		var err error
		switch t.Type {
		case LROUND:
			if e, err = p.expression(); err == nil {
				if err = p.need(RROUND); err != nil {
					e.Release()
				}
			}
		case LSQUARE:
			e, err = p.matrix(t)
		default:
			var items []symcalc.Expr
			if items, err = p.arguments(RCURLY); err == nil {
				e = p.a.List(items...)
			}
		}
		if err != nil {
			return symcalc.Expr{}, notLiteral, err
		}
		return e, notLiteral, nil
	}
	return symcalc.Expr{}, notLiteral, p.unexpected()
}

func (p *parser) identifier(t Token) (symcalc.Expr, error) {
	switch t.Lexeme {
	case "pi", "π":
		return p.a.Pi(), nil
	case "e":
		return p.a.E(), nil
	case "i":
		return p.a.I(), nil
	case symcalc.KindUndefined.Alias():
		return p.a.Undefined(), nil
	case symcalc.KindNonreal.Alias():
		return p.a.Nonreal(), nil
	}
	k, ok := symcalc.KindForAlias(t.Lexeme)
	if !ok {
		return p.a.Symbol(t.Lexeme), nil
	}
	if err := p.need(LROUND); err != nil {
		return symcalc.Expr{}, err
	}
	if err := p.enter(); err != nil {
		return symcalc.Expr{}, err
	}
	defer p.leave()
	args, err := p.arguments(RROUND)
	if err != nil {
		return symcalc.Expr{}, err
	}
	if lo, hi := k.Arity(); len(args) < lo || (hi >= 0 && len(args) > hi) {
		for _, x := range args {
			x.Release()
		}
		return symcalc.Expr{}, errors.Wrapf(symcalc.ErrParse, "at %d: %s takes %d argument(s), got %d", t.Pos, t.Lexeme, lo, len(args))
	}
	return p.a.Node(k, args...), nil
}

// arguments reads a possibly empty comma-separated list up to and including
// the closing token.
func (p *parser) arguments(closing TokenType) ([]symcalc.Expr, error) {
	var args []symcalc.Expr
	fail := func(err error) ([]symcalc.Expr, error) {
		for _, x := range args {
			x.Release()
		}
		return nil, err
	}
	if p.match(closing) {
		return args, nil
	}
	for {
		e, err := p.expression()
		if err != nil {
			return fail(err)
		}
		args = append(args, e)
		if p.match(closing) {
			return args, nil
		}
		if err := p.need(COMMA); err != nil {
			return fail(err)
		}
	}
}

// matrix reads the rows of [[a,b][c,d]] after the opening bracket.
func (p *parser) matrix(open Token) (symcalc.Expr, error) {
	var entries []symcalc.Expr
	fail := func(err error) (symcalc.Expr, error) {
		for _, x := range entries {
			x.Release()
		}
		return symcalc.Expr{}, err
	}
	rows, cols := 0, 0
	for p.peek().Type == LSQUARE {
		row := p.peek()
		p.i++
		items, err := p.arguments(RSQUARE)
		if err != nil {
			return fail(err)
		}
		entries = append(entries, items...)
		switch {
		case len(items) == 0:
			return fail(errors.Wrapf(symcalc.ErrParse, "at %d: empty matrix row", row.Pos))
		case rows > 0 && len(items) != cols:
			return fail(errors.Wrapf(symcalc.ErrParse, "at %d: row has %d entries, want %d", row.Pos, len(items), cols))
		}
		rows, cols = rows+1, len(items)
	}
	if rows == 0 {
		return fail(errors.Wrapf(symcalc.ErrParse, "at %d: matrix needs at least one row", open.Pos))
	}
	if rows*cols > symcalc.MaxMatrixChildren {
		return fail(errors.Wrapf(symcalc.ErrParse, "at %d: matrix larger than %d entries", open.Pos, symcalc.MaxMatrixChildren))
	}
	if err := p.need(RSQUARE); err != nil {
		return fail(err)
	}
	return p.a.Matrix(rows, cols, entries...), nil
}
