package symcalc

import (
	"math/big"
	"math/cmplx"
)

const (
	maxIntegerPower = 1000
	maxRootIndex    = 100
)

func reducePower(e Expr, ctx ReductionContext) Expr {
	a := e.a
	base, exp := e.Child(0), e.Child(1)

	if isMatrixLike(exp) {
		return e.replaceWithUndefined()
	}
	if base.Kind() == KindMatrix {
		return reduceMatrixPower(e, ctx)
	}
	if isMatrixLike(base) {
		return e
	}

	switch {
	case exp.isRationalZero():
		if base.NullStatus() == TrinaryTrue {
			return e.replaceWithUndefined()
		}
		return e.ReplaceWithInPlace(a.Integer(1))
	case exp.isRationalOne():
		return e.replaceWithChild(0)
	case base.isRationalOne():
		return e.ReplaceWithInPlace(a.Integer(1))
	case base.isRationalZero() && exp.isNumber():
		if exp.numberSign() > 0 {
			return e.ReplaceWithInPlace(a.Integer(0))
		}
		return e.replaceWithUndefined()
	}

	if base.isConstant(ConstantI) && exp.isInteger() {
		n := new(big.Int).Mod(exp.rat().Num(), big.NewInt(4)).Int64()
		var r Expr
		switch n {
		case 0:
			r = a.Integer(1)
		case 1:
			r = a.I()
		case 2:
			r = a.Integer(-1)
		default:
			r = a.Mul(a.Integer(-1), a.I())
		}
		return e.ReplaceWithInPlace(r)
	}
	if base.isConstant(ConstantE) && exp.Kind() == KindNaperianLogarithm {
		return e.ReplaceWithInPlace(exp.Child(0))
	}

	if base.isNumber() && exp.isNumber() {
		if r, done := reduceNumericPower(e, ctx); done {
			return r
		}
		return e
	}

	// (x^a)^n → x^(a*n) for integer n.
	if base.Kind() == KindPower && exp.isInteger() {
		inner := e.DetachChildAtIndex(0)
		n := e.DetachChildAtIndex(0)
		b := inner.DetachChildAtIndex(0)
		x := inner.DetachChildAtIndex(0)
		inner.Release()
		newExp := a.Mul(x, n).ShallowReduce(ctx)
		return e.ReplaceWithInPlace(a.Pow(b, newExp)).ShallowReduce(ctx)
	}

	// (x*y)^n → x^n*y^n for integer n.
	if base.Kind() == KindMultiplication && exp.isInteger() {
		m := e.DetachChildAtIndex(0)
		n := e.DetachChildAtIndex(0)
		factors := make([]Expr, 0, m.NumChildren())
		for m.NumChildren() > 0 {
			factors = append(factors, a.Pow(m.DetachChildAtIndex(0), n.Clone()).ShallowReduce(ctx))
		}
		m.Release()
		n.Release()
		return e.ReplaceWithInPlace(a.Mul(factors...)).ShallowReduce(ctx)
	}
	return e
}

// reduceNumericPower evaluates number^number exactly when both are exact and
// the result stays rational, and approximately when either is a Float.
func reduceNumericPower(e Expr, ctx ReductionContext) (Expr, bool) {
	a := e.a
	base, exp := e.Child(0), e.Child(1)
	b, bok := base.exactValue()
	x, xok := exp.exactValue()
	if !bok || !xok {
		v := cmplx.Pow(complex(base.numberValue(), 0), complex(exp.numberValue(), 0))
		if imag(v) != 0 || cmplx.IsNaN(v) {
			if ctx.ComplexFormat == ComplexReal && base.numberSign() < 0 {
				return e.ReplaceWithInPlace(a.Nonreal()), true
			}
			return e, false
		}
		return e.ReplaceWithInPlace(a.Float(real(v))), true
	}

	if x.IsInt() {
		if !x.Num().IsInt64() || abs64(x.Num().Int64()) > maxIntegerPower {
			return e, false
		}
		r, ok := ratPow(b, int(x.Num().Int64()))
		if !ok {
			return e, false
		}
		return e.ReplaceWithInPlace(a.RationalFromBig(r)), true
	}

	if !x.Denom().IsInt64() || x.Denom().Int64() > maxRootIndex || !x.Num().IsInt64() {
		return e, false
	}
	p, q := x.Num().Int64(), int(x.Denom().Int64())

	if b.Sign() < 0 {
		if q%2 == 0 {
			if ctx.ComplexFormat == ComplexReal {
				return e.ReplaceWithInPlace(a.Nonreal()), true
			}
			if q != 2 {
				return e, false
			}
			// (-b)^(p/2) → b^(p/2) * i^p
			abs := a.Pow(a.RationalFromBig(new(big.Rat).Neg(b)), a.RationalFromBig(x)).ShallowReduce(ctx)
			ip := a.Pow(a.I(), a.Integer(p)).ShallowReduce(ctx)
			return e.ReplaceWithInPlace(a.Mul(abs, ip)).ShallowReduce(ctx), true
		}
		if ctx.ComplexFormat != ComplexReal {
			return e, false
		}
		// Real odd root of a negative number: (-1)^p * |b|^(p/q)
		abs := a.Pow(a.RationalFromBig(new(big.Rat).Neg(b)), a.RationalFromBig(x)).ShallowReduce(ctx)
		sign := int64(1)
		if p%2 != 0 {
			sign = -1
		}
		return e.ReplaceWithInPlace(a.Mul(a.Integer(sign), abs)).ShallowReduce(ctx), true
	}

	num, nok := integerRoot(b.Num(), q)
	den, dok := integerRoot(b.Denom(), q)
	if nok && dok {
		root := new(big.Rat).SetFrac(num, den)
		if abs64(p) > maxIntegerPower {
			return e, false
		}
		r, ok := ratPow(root, int(p))
		if !ok {
			return e, false
		}
		return e.ReplaceWithInPlace(a.RationalFromBig(r)), true
	}

	// Split the integer part off a positive improper exponent:
	// b^(p/q) → b^⌊p/q⌋ * b^((p mod q)/q)
	if p > int64(q) {
		whole := p / int64(q)
		rest := p % int64(q)
		w, ok := ratPow(b, int(whole))
		if !ok {
			return e, false
		}
		frac := a.Pow(a.RationalFromBig(b), a.Rational(rest, int64(q)))
		return e.ReplaceWithInPlace(a.Mul(a.RationalFromBig(w), frac)).ShallowReduce(ctx), true
	}
	return e, false
}

func abs64(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}

// reduceMatrixPower computes M^n for a square matrix and an integer n;
// M^-n is the inverse raised to n.
func reduceMatrixPower(e Expr, ctx ReductionContext) Expr {
	a := e.a
	m, exp := e.Child(0), e.Child(1)
	n, ok := exp.smallInteger()
	if !ok || m.Rows() != m.Cols() || abs64(int64(n)) > maxIntegerPower {
		if exp.Kind() == KindSymbol {
			return e
		}
		return e.replaceWithUndefined()
	}
	if n == 0 {
		return e.ReplaceWithInPlace(a.IdentityMatrix(m.Rows()))
	}
	var base Expr
	if n < 0 {
		inv, ok := m.Inverse(ctx)
		if !ok {
			return e
		}
		if inv.Kind() != KindMatrix {
			return e.ReplaceWithInPlace(inv)
		}
		base = inv
		n = -n
	} else {
		base = m.Clone()
	}
	var result Expr
	for n > 0 {
		if n&1 == 1 {
			if result.IsUninitialized() {
				result = base.Clone()
			} else {
				p := matrixProduct(result, base, ctx)
				result.Release()
				result = p
			}
		}
		n >>= 1
		if n > 0 {
			sq := matrixProduct(base, base, ctx)
			base.Release()
			base = sq
		}
	}
	base.Release()
	return e.ReplaceWithInPlace(result)
}
