package symcalc

import "math/big"

// Simplify reduces e and beautifies the result.
func (e Expr) Simplify(ctx ReductionContext) Expr {
	return e.DeepReduce(ctx).Beautify(ctx)
}

// Beautify reshapes a reduced tree for display without changing its value:
// negative terms become subtractions, negative exponents become divisions,
// x^(1/2) becomes a square root and dependencies are dropped. It returns the
// handle standing where e stood.
func (e Expr) Beautify(ctx ReductionContext) Expr {
	if e.IsUninitialized() || e.a.err != nil {
		return e
	}
	r := shallowBeautify(e, ctx)
	for i := 0; i < r.NumChildren(); i++ {
		r.Child(i).Beautify(ctx)
	}
	return r
}

func shallowBeautify(e Expr, ctx ReductionContext) Expr {
	switch e.Kind() {
	case KindDependency:
		return shallowBeautify(e.replaceWithChild(0), ctx)
	case KindAddition:
		return beautifyAddition(e)
	case KindMultiplication:
		if ctx.UnitFormat == UnitImperial {
			convertToImperial(e)
		}
		return beautifyMultiplication(e)
	case KindPower:
		return beautifyPower(e)
	case KindUnit:
		if ctx.UnitFormat == UnitImperial && e.Parent().Kind() != KindMultiplication {
			if _, ok := imperialUnits[e.Name()]; ok {
				m := e.wrapInPlace(func(inner Expr) Expr { return e.a.Mul(inner) })
				convertToImperial(m)
				return shallowBeautify(m.squashUnaryHierarchy(1), ctx)
			}
		}
	}
	return e
}

// isNegativeTerm reports whether t prints with a leading minus sign in
// canonical form: a negative number or a product led by one.
func isNegativeTerm(t Expr) bool {
	if t.isNegativeNumber() {
		return true
	}
	return t.Kind() == KindMultiplication && t.NumChildren() > 0 && t.Child(0).isNegativeNumber()
}

// negateTerm flips the sign of a negative term in place and returns the
// handle standing where t stood.
func negateTerm(t Expr) Expr {
	a := t.a
	if t.isNumber() {
		return t.ReplaceWithInPlace(a.numberNeg(t))
	}
	c := t.Child(0)
	if c.isRationalMinusOne() {
		t.RemoveChildAtIndex(0)
		return t.squashUnaryHierarchy(1)
	}
	t.ReplaceChildAtIndex(0, a.numberNeg(c))
	return t
}

func beautifyAddition(e Expr) Expr {
	n := e.NumChildren()
	negative := false
	for i := 0; i < n; i++ {
		if isNegativeTerm(e.Child(i)) {
			negative = true
			break
		}
	}
	if !negative {
		return e
	}
	a := e.a
	terms := make([]Expr, n)
	for i := n - 1; i >= 0; i-- {
		terms[i] = e.DetachChildAtIndex(i)
	}
	acc := terms[0]
	if isNegativeTerm(acc) {
		acc = a.Opp(negateTerm(acc))
	}
	chain := false
	for _, t := range terms[1:] {
		switch {
		case isNegativeTerm(t):
			acc = a.Sub(acc, negateTerm(t))
			chain = false
		case chain:
			acc.AddChild(t)
		default:
			acc = a.Add(acc, t)
			chain = true
		}
	}
	return e.ReplaceWithInPlace(acc)
}

func beautifyMultiplication(e Expr) Expr {
	a := e.a
	if isNegativeTerm(e) {
		return e.wrapInPlace(func(inner Expr) Expr {
			return a.Opp(negateTerm(inner))
		})
	}
	var num, den []Expr
	for i := 0; i < e.NumChildren(); i++ {
		c := e.Child(i)
		switch {
		case isFraction(c):
			r := c.rat()
			if r.Num().Cmp(big.NewInt(1)) != 0 {
				num = append(num, a.RationalFromBig(new(big.Rat).SetInt(r.Num())))
			}
			den = append(den, a.RationalFromBig(new(big.Rat).SetInt(r.Denom())))
		case c.Kind() == KindPower && c.Child(1).isNegativeNumber():
			den = append(den, a.reciprocalPower(c))
		default:
			num = append(num, c.Clone())
		}
	}
	if len(den) == 0 {
		releaseAll(num)
		return e
	}
	return e.ReplaceWithInPlace(a.Div(a.product(num), a.product(den)))
}

// product builds the product of factors, 1 when there are none.
func (a *Arena) product(factors []Expr) Expr {
	switch len(factors) {
	case 0:
		return a.Integer(1)
	case 1:
		return factors[0]
	}
	return a.Mul(factors...)
}

// reciprocalPower returns base^-n for a power base^n with n negative.
func (a *Arena) reciprocalPower(p Expr) Expr {
	exp := p.Child(1)
	if exp.isRationalMinusOne() {
		return p.Child(0).Clone()
	}
	return a.Pow(p.Child(0).Clone(), a.numberNeg(exp))
}

func beautifyPower(e Expr) Expr {
	a := e.a
	exp := e.Child(1)
	switch {
	case exp.isNegativeNumber():
		return e.ReplaceWithInPlace(a.Div(a.Integer(1), a.reciprocalPower(e)))
	case exp.Kind() == KindRational && exp.rat().Cmp(big.NewRat(1, 2)) == 0:
		return e.ReplaceWithInPlace(a.Sqrt(e.DetachChildAtIndex(0)))
	}
	return e
}

// convertToImperial rewrites the single SI base unit of a product into its
// imperial counterpart, rescaling the numeric coefficient.
func convertToImperial(m Expr) {
	a := m.a
	unit := -1
	for i := 0; i < m.NumChildren(); i++ {
		if m.Child(i).Kind() == KindUnit {
			if unit >= 0 {
				return
			}
			unit = i
		}
	}
	if unit < 0 {
		return
	}
	target, ok := imperialUnits[m.Child(unit).Name()]
	if !ok {
		return
	}
	ratio := new(big.Rat).Inv(unitTable[target].ratio)
	m.ReplaceChildAtIndex(unit, a.Unit(target))
	if c := m.Child(0); c.isNumber() {
		r := a.RationalFromBig(ratio)
		m.ReplaceChildAtIndex(0, a.numberMul(c, r))
		r.Release()
		return
	}
	m.AddChildAtIndex(a.RationalFromBig(ratio), 0)
}
