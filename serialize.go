package symcalc

import (
	"strconv"
	"strings"
)

// Precedence levels used to decide where parentheses are needed. A tree
// printed by Serialize parses back to an identical tree.
const (
	precAdditive = 1
	precUnary    = 2
	precProduct  = 3
	precPower    = 4
	precAtom     = 5
)

// Serialize returns the text form of e.
func (e Expr) Serialize() string {
	var b strings.Builder
	writeExpr(&b, e)
	return b.String()
}

// String implements fmt.Stringer.
func (e Expr) String() string {
	if e.IsUninitialized() {
		return "<uninitialized>"
	}
	return e.Serialize()
}

func isFraction(e Expr) bool {
	return e.Kind() == KindRational && !e.rat().IsInt()
}

// startsWithMinus reports whether the text of e begins with a minus sign.
func startsWithMinus(e Expr) bool {
	switch k := e.Kind(); {
	case k.IsNumber():
		return e.numberSign() < 0
	case k == KindOpposite:
		return true
	case k == KindMultiplication, k == KindDivision, k == KindAddition, k == KindSubtraction:
		return e.NumChildren() > 0 && startsWithMinus(e.Child(0))
	}
	return false
}

func precedence(e Expr) int {
	switch k := e.Kind(); {
	case k == KindAddition, k == KindSubtraction:
		return precAdditive
	case k == KindOpposite:
		return precUnary
	case k.IsNumber():
		if e.numberSign() < 0 {
			return precUnary
		}
		if isFraction(e) {
			return precProduct
		}
		return precAtom
	case k == KindMultiplication, k == KindDivision:
		if startsWithMinus(e) {
			return precUnary
		}
		return precProduct
	case k == KindPower:
		return precPower
	}
	return precAtom
}

func writeParenthesized(b *strings.Builder, e Expr, paren bool) {
	if paren {
		b.WriteByte('(')
	}
	writeExpr(b, e)
	if paren {
		b.WriteByte(')')
	}
}

func writeNumber(b *strings.Builder, e Expr) {
	if e.Kind() == KindRational {
		b.WriteString(e.rat().RatString())
		return
	}
	s := strconv.FormatFloat(e.FloatValue(), 'g', -1, 64)
	b.WriteString(s)
	if e.Kind() == KindDecimal && !strings.ContainsAny(s, ".eIN") {
		b.WriteString(".0")
	}
}

// leftmostIsNumber reports whether the text of e begins with a digit.
func leftmostIsNumber(e Expr) bool {
	for {
		switch k := e.Kind(); {
		case k.IsNumber():
			return true
		case k == KindAddition, k == KindSubtraction, k == KindMultiplication,
			k == KindDivision, k == KindPower:
			if e.NumChildren() == 0 {
				return false
			}
			e = e.Child(0)
		default:
			return false
		}
	}
}

func writeExpr(b *strings.Builder, e Expr) {
	switch k := e.Kind(); {
	case k == KindUninitialized, k == KindGhost:
		return
	case k.IsNumber():
		writeNumber(b, e)
	case k == KindUndefined, k == KindNonreal:
		b.WriteString(k.Alias())
	case k == KindConstant:
		b.WriteString(e.ConstantValue().String())
	case k == KindSymbol, k == KindUnit:
		b.WriteString(e.Name())
	case k == KindAddition:
		if e.NumChildren() == 0 {
			b.WriteByte('0')
		}
		for i, c := range e.Children() {
			if i > 0 {
				b.WriteByte('+')
			}
			writeParenthesized(b, c, c.Kind() == KindAddition || (i > 0 && precedence(c) < precProduct))
		}
	case k == KindSubtraction:
		writeExpr(b, e.Child(0))
		b.WriteByte('-')
		c := e.Child(1)
		writeParenthesized(b, c, precedence(c) < precProduct)
	case k == KindOpposite:
		b.WriteByte('-')
		c := e.Child(0)
		writeParenthesized(b, c, precedence(c) < precProduct || leftmostIsNumber(c))
	case k == KindMultiplication:
		if e.NumChildren() == 0 {
			b.WriteByte('1')
		}
		for i, c := range e.Children() {
			if i > 0 {
				b.WriteByte('*')
			}
			var paren bool
			switch c.Kind() {
			case KindAddition, KindSubtraction, KindOpposite, KindMultiplication:
				paren = true
			case KindDivision:
				paren = i > 0
			default:
				paren = i > 0 && precedence(c) < precPower
			}
			writeParenthesized(b, c, paren)
		}
	case k == KindDivision:
		l, r := e.Child(0), e.Child(1)
		switch l.Kind() {
		case KindAddition, KindSubtraction, KindOpposite:
			writeParenthesized(b, l, true)
		default:
			writeExpr(b, l)
		}
		b.WriteByte('/')
		// An integer over an integer literal would read back as a rational.
		literal := l.Kind() == KindRational && l.rat().IsInt() && r.Kind() == KindRational
		writeParenthesized(b, r, precedence(r) <= precProduct || literal)
	case k == KindPower:
		base, exp := e.Child(0), e.Child(1)
		writeParenthesized(b, base, precedence(base) < precAtom)
		b.WriteByte('^')
		writeParenthesized(b, exp, precedence(exp) < precAtom)
	case k == KindMatrix:
		b.WriteByte('[')
		for i := 0; i < e.Rows(); i++ {
			b.WriteByte('[')
			for j := 0; j < e.Cols(); j++ {
				if j > 0 {
					b.WriteByte(',')
				}
				writeExpr(b, e.MatrixChild(i, j))
			}
			b.WriteByte(']')
		}
		b.WriteByte(']')
	case k == KindList:
		b.WriteByte('{')
		writeArguments(b, e)
		b.WriteByte('}')
	default:
		b.WriteString(k.Alias())
		b.WriteByte('(')
		writeArguments(b, e)
		b.WriteByte(')')
	}
}

func writeArguments(b *strings.Builder, e Expr) {
	for i, c := range e.Children() {
		if i > 0 {
			b.WriteByte(',')
		}
		writeExpr(b, c)
	}
}
