package symcalc

import "cmp"

// a-b → a+(-1)*b
func reduceSubtraction(e Expr, ctx ReductionContext) Expr {
	a := e.a
	y := e.DetachChildAtIndex(1)
	x := e.DetachChildAtIndex(0)
	neg := a.Mul(a.Integer(-1), y).ShallowReduce(ctx)
	sum := a.Add(x, neg)
	return e.ReplaceWithInPlace(sum).ShallowReduce(ctx)
}

// -a → (-1)*a
func reduceOpposite(e Expr, ctx ReductionContext) Expr {
	a := e.a
	x := e.DetachChildAtIndex(0)
	return e.ReplaceWithInPlace(a.Mul(a.Integer(-1), x)).ShallowReduce(ctx)
}

// a/b → a*b^-1
func reduceDivision(e Expr, ctx ReductionContext) Expr {
	a := e.a
	y := e.DetachChildAtIndex(1)
	x := e.DetachChildAtIndex(0)
	inv := a.Pow(y, a.Integer(-1)).ShallowReduce(ctx)
	return e.ReplaceWithInPlace(a.Mul(x, inv)).ShallowReduce(ctx)
}

// √a → a^(1/2)
func reduceSquareRoot(e Expr, ctx ReductionContext) Expr {
	a := e.a
	x := e.DetachChildAtIndex(0)
	return e.ReplaceWithInPlace(a.Pow(x, a.Rational(1, 2))).ShallowReduce(ctx)
}

// Terms of a sum are c*f1*...*fn with an optional leading number c.

func nonNumeralFactors(t Expr) []Expr {
	if t.Kind() != KindMultiplication {
		return []Expr{t}
	}
	f := t.Children()
	if len(f) > 0 && f[0].isNumber() {
		return f[1:]
	}
	return f
}

// termCoefficient returns the leading number of t, or the uninitialized
// handle when the coefficient is an implicit 1.
func termCoefficient(t Expr) Expr {
	if t.isNumber() {
		return t
	}
	if t.Kind() == KindMultiplication && t.NumChildren() > 0 && t.Child(0).isNumber() {
		return t.Child(0)
	}
	return Expr{}
}

func compareFactorLists(fx, fy []Expr) int {
	for i := 0; i < min(len(fx), len(fy)); i++ {
		if c := compareExpr(fx[i], fy[i]); c != 0 {
			return c
		}
	}
	return cmp.Compare(len(fx), len(fy))
}

func compareForAddition(x, y Expr) int {
	xn, yn := x.isNumber(), y.isNumber()
	switch {
	case xn && yn:
		return 0
	case xn:
		return 1
	case yn:
		return -1
	}
	return compareFactorLists(nonNumeralFactors(x), nonNumeralFactors(y))
}

func termsAreLike(x, y Expr) bool {
	if x.isNumber() || y.isNumber() {
		return false
	}
	fx, fy := nonNumeralFactors(x), nonNumeralFactors(y)
	if len(fx) != len(fy) {
		return false
	}
	for i := range fx {
		if !fx[i].IsIdenticalTo(fy[i]) {
			return false
		}
	}
	return true
}

func (a *Arena) coefficientSum(x, y Expr) Expr {
	cx, cy := termCoefficient(x), termCoefficient(y)
	if cx.IsUninitialized() || cy.IsUninitialized() {
		one := a.Integer(1)
		defer one.Release()
		if cx.IsUninitialized() {
			cx = one
		}
		if cy.IsUninitialized() {
			cy = one
		}
	}
	return a.numberAdd(cx, cy)
}

func reduceAddition(e Expr, ctx ReductionContext) Expr {
	a := e.a
	e.flatten()
	if r, done := reduceMatrixAddition(e, ctx); done {
		return r
	}
	e.sortChildren(compareForAddition)
	for i := 0; i < e.NumChildren()-1; {
		x, y := e.Child(i), e.Child(i+1)
		switch {
		case x.isNumber() && y.isNumber():
			e.ReplaceChildAtIndex(i, a.numberAdd(x, y))
		case termsAreLike(x, y):
			factors := []Expr{a.coefficientSum(x, y)}
			for _, f := range nonNumeralFactors(x) {
				factors = append(factors, f.Clone())
			}
			e.ReplaceChildAtIndex(i, a.Mul(factors...).ShallowReduce(ctx))
		default:
			i++
			continue
		}
		e.RemoveChildAtIndex(i + 1)
	}
	for i := e.NumChildren() - 1; i >= 0 && e.NumChildren() > 1; i-- {
		if e.Child(i).isRationalZero() {
			e.RemoveChildAtIndex(i)
		}
	}
	return e.squashUnaryHierarchy(0)
}

// reduceMatrixAddition sums matrices entry-wise; a matrix added to a scalar
// or to a matrix of another shape is undefined.
func reduceMatrixAddition(e Expr, ctx ReductionContext) (Expr, bool) {
	matrices := 0
	for i := 0; i < e.NumChildren(); i++ {
		if isMatrixLike(e.Child(i)) {
			matrices++
		}
	}
	if matrices == 0 {
		return e, false
	}
	if matrices != e.NumChildren() {
		return e.replaceWithUndefined(), true
	}
	first := e.Child(0)
	for i := 0; i < e.NumChildren(); i++ {
		c := e.Child(i)
		if c.Kind() != KindMatrix {
			return e, false
		}
		if c.Rows() != first.Rows() || c.Cols() != first.Cols() {
			return e.replaceWithUndefined(), true
		}
	}
	a := e.a
	result := e.DetachChildAtIndex(0)
	for e.NumChildren() > 0 {
		m := e.DetachChildAtIndex(0)
		for k := 0; k < result.NumChildren(); k++ {
			x := result.detachWithGhost(k)
			y := m.detachWithGhost(k)
			s := a.Add(x, y)
			result.ReplaceChildAtIndex(k, s)
			s.ShallowReduce(ctx)
		}
		m.Release()
	}
	return e.ReplaceWithInPlace(result), true
}

func factorBase(f Expr) Expr {
	if f.Kind() == KindPower {
		return f.Child(0)
	}
	return f
}

func (a *Arena) factorExponent(f Expr) Expr {
	if f.Kind() == KindPower {
		return f.Child(1).Clone()
	}
	return a.Integer(1)
}

func compareForMultiplication(x, y Expr) int {
	mx, my := isMatrixLike(x), isMatrixLike(y)
	switch {
	case mx && my:
		return 0
	case mx:
		return 1
	case my:
		return -1
	}
	xn, yn := x.isNumber(), y.isNumber()
	switch {
	case xn && yn:
		return 0
	case xn:
		return -1
	case yn:
		return 1
	}
	if c := compareExpr(factorBase(x), factorBase(y)); c != 0 {
		return c
	}
	return compareExpr(x, y)
}

func basesAreLike(x, y Expr) bool {
	if x.isNumber() || y.isNumber() || isMatrixLike(x) || isMatrixLike(y) {
		return false
	}
	return factorBase(x).IsIdenticalTo(factorBase(y))
}

const maxMultiplicationPasses = 8

func reduceMultiplication(e Expr, ctx ReductionContext) Expr {
	a := e.a
	e.flatten()
	if r, done := reduceMatrixMultiplication(e, ctx); done {
		return r
	}
	var deps []Expr
	for pass := 0; pass < maxMultiplicationPasses; pass++ {
		e.sortChildren(compareForMultiplication)
		if !combineLikeBases(e, ctx, &deps) {
			break
		}
		e.flatten()
	}

	// Fold every number into a single leading coefficient.
	var coeff Expr
	for i := 0; i < e.NumChildren(); {
		c := e.Child(i)
		if !c.isNumber() {
			i++
			continue
		}
		c = e.DetachChildAtIndex(i)
		if coeff.IsUninitialized() {
			coeff = c
			continue
		}
		p := a.numberMul(coeff, c)
		coeff.Release()
		c.Release()
		coeff = p
	}
	if !coeff.IsUninitialized() {
		switch {
		case coeff.NullStatus() == TrinaryTrue && coeff.Kind() == KindRational:
			releaseAll(deps)
			return e.ReplaceWithInPlace(coeff)
		case coeff.isRationalOne() && e.NumChildren() > 0:
			coeff.Release()
		default:
			e.AddChildAtIndex(coeff, 0)
		}
	}
	e = e.squashUnaryHierarchy(1)
	if len(deps) == 0 {
		return e
	}
	return wrapDependencies(e, a.List(deps...), ctx)
}

// combineLikeBases merges adjacent factors sharing a base, x^a*x^b → x^(a+b).
// A cancelled exponent on a base that may be zero records base^-1 as a
// dependency. It reports whether a merge produced a number or a product,
// which calls for another sorting pass.
func combineLikeBases(e Expr, ctx ReductionContext, deps *[]Expr) bool {
	a := e.a
	resort := false
	for i := 0; i < e.NumChildren()-1; {
		x, y := e.Child(i), e.Child(i+1)
		if !basesAreLike(x, y) {
			i++
			continue
		}
		base := factorBase(x)
		exp := a.Add(a.factorExponent(x), a.factorExponent(y)).ShallowReduce(ctx)
		if exp.isRationalZero() && base.NullStatus() != TrinaryFalse && ctx.Target != TargetSystemForAnalysis {
			*deps = append(*deps, a.Pow(base.Clone(), a.Integer(-1)).ShallowReduce(ctx))
		}
		p := a.Pow(base.Clone(), exp).ShallowReduce(ctx)
		e.ReplaceChildAtIndex(i, p)
		e.RemoveChildAtIndex(i + 1)
		if p.isNumber() || p.Kind() == KindMultiplication {
			resort = true
		}
	}
	return resort
}

func releaseAll(es []Expr) {
	for _, x := range es {
		x.Release()
	}
}

// reduceMatrixMultiplication multiplies the matrix factors in order and
// distributes the remaining scalar factors over the entries.
func reduceMatrixMultiplication(e Expr, ctx ReductionContext) (Expr, bool) {
	found := false
	for i := 0; i < e.NumChildren(); i++ {
		c := e.Child(i)
		if c.Kind() == KindMatrix {
			found = true
		} else if isMatrixLike(c) {
			return e, false
		}
	}
	if !found {
		return e, false
	}
	a := e.a
	var mats []Expr
	for i := 0; i < e.NumChildren(); {
		if e.Child(i).Kind() == KindMatrix {
			mats = append(mats, e.DetachChildAtIndex(i))
			continue
		}
		i++
	}
	result := mats[0]
	for j, m := range mats[1:] {
		if result.Cols() != m.Rows() {
			result.Release()
			releaseAll(mats[j+1:])
			return e.replaceWithUndefined(), true
		}
		p := matrixProduct(result, m, ctx)
		result.Release()
		m.Release()
		result = p
	}
	if e.NumChildren() > 0 {
		for k := 0; k < result.NumChildren(); k++ {
			factors := make([]Expr, 0, e.NumChildren()+1)
			for s := 0; s < e.NumChildren(); s++ {
				factors = append(factors, e.Child(s).Clone())
			}
			factors = append(factors, result.detachWithGhost(k))
			f := a.Mul(factors...)
			result.ReplaceChildAtIndex(k, f)
			f.ShallowReduce(ctx)
		}
	}
	return e.ReplaceWithInPlace(result), true
}
