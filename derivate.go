package symcalc

// Derivate returns the derivative of e with respect to symbol as a new
// reduced root. ok is false when e is not differentiable; floor, ceiling,
// sign, matrices and lists are not.
func (e Expr) Derivate(symbol string, ctx ReductionContext) (Expr, bool) {
	if !isDifferentiable(e, symbol) {
		return Expr{}, false
	}
	if e.Kind() == KindUndefined {
		return e.a.Undefined(), true
	}
	d := derivate(e, symbol, ctx)
	return d.DeepReduce(ctx), !d.IsUninitialized()
}

func dependsOn(e Expr, symbol string) bool {
	return e.RecursivelyMatches(func(n Expr) bool {
		return n.Kind() == KindSymbol && n.Name() == symbol
	})
}

func isDifferentiable(e Expr, symbol string) bool {
	if !dependsOn(e, symbol) {
		return true
	}
	k := e.Kind()
	switch {
	case k == KindSymbol:
		return true
	case k == KindDependency:
		return isDifferentiable(e.Child(0), symbol)
	case k == KindFloor, k == KindCeiling, k == KindSignFunction:
		return false
	case k == KindAddition, k == KindSubtraction, k == KindMultiplication, k == KindDivision,
		k == KindOpposite, k == KindPower, k == KindSquareRoot, k.IsUnaryFunction():
		for i := 0; i < e.NumChildren(); i++ {
			if !isDifferentiable(e.Child(i), symbol) {
				return false
			}
		}
		return true
	}
	return false
}

// angleFactor converts the derivative of a trigonometric function taken in
// radians to the context's angle unit.
func (a *Arena) angleFactor(u AngleUnit) Expr {
	switch u {
	case AngleDegree:
		return a.Mul(a.Rational(1, 180), a.Pi())
	case AngleGradian:
		return a.Mul(a.Rational(1, 200), a.Pi())
	}
	return a.Integer(1)
}

// derivate builds the unreduced derivative of e. e must be differentiable.
func derivate(e Expr, x string, ctx ReductionContext) Expr {
	a := e.a
	if !dependsOn(e, x) {
		return a.Integer(0)
	}
	d := func(i int) Expr { return derivate(e.Child(i), x, ctx) }
	c := func(i int) Expr { return e.Child(i).Clone() }

	switch k := e.Kind(); k {
	case KindSymbol:
		return a.Integer(1)
	case KindDependency:
		return d(0)
	case KindAddition:
		terms := make([]Expr, e.NumChildren())
		for i := range terms {
			terms[i] = d(i)
		}
		return a.Add(terms...)
	case KindSubtraction:
		return a.Sub(d(0), d(1))
	case KindOpposite:
		return a.Opp(d(0))
	case KindMultiplication:
		var terms []Expr
		for i := 0; i < e.NumChildren(); i++ {
			if !dependsOn(e.Child(i), x) {
				continue
			}
			factors := make([]Expr, e.NumChildren())
			for j := range factors {
				if j == i {
					factors[j] = d(j)
				} else {
					factors[j] = c(j)
				}
			}
			terms = append(terms, a.Mul(factors...))
		}
		return a.Add(terms...)
	case KindDivision:
		// (u'v - uv') / v²
		num := a.Sub(a.Mul(d(0), c(1)), a.Mul(c(0), d(1)))
		return a.Div(num, a.Pow(c(1), a.Integer(2)))
	case KindPower:
		if !dependsOn(e.Child(1), x) {
			return a.Mul(c(1), a.Pow(c(0), a.Add(c(1), a.Integer(-1))), d(0))
		}
		// b^n * (n' ln b + n b'/b)
		return a.Mul(e.Clone(), a.Add(
			a.Mul(d(1), a.Func(KindNaperianLogarithm, c(0))),
			a.Mul(c(1), d(0), a.Pow(c(0), a.Integer(-1))),
		))
	case KindSquareRoot:
		return a.Div(d(0), a.Mul(a.Integer(2), e.Clone()))
	}

	var outer Expr
	switch e.Kind() {
	case KindSine:
		outer = a.Mul(a.angleFactor(ctx.AngleUnit), a.Func(KindCosine, c(0)))
	case KindCosine:
		outer = a.Mul(a.Integer(-1), a.angleFactor(ctx.AngleUnit), a.Func(KindSine, c(0)))
	case KindTangent:
		outer = a.Mul(a.angleFactor(ctx.AngleUnit), a.Add(a.Integer(1), a.Pow(e.Clone(), a.Integer(2))))
	case KindArcSine:
		outer = a.Div(a.Pow(a.Sub(a.Integer(1), a.Pow(c(0), a.Integer(2))), a.Rational(-1, 2)), a.angleFactor(ctx.AngleUnit))
	case KindArcCosine:
		outer = a.Div(a.Mul(a.Integer(-1), a.Pow(a.Sub(a.Integer(1), a.Pow(c(0), a.Integer(2))), a.Rational(-1, 2))), a.angleFactor(ctx.AngleUnit))
	case KindArcTangent:
		outer = a.Div(a.Pow(a.Add(a.Integer(1), a.Pow(c(0), a.Integer(2))), a.Integer(-1)), a.angleFactor(ctx.AngleUnit))
	case KindHyperbolicSine:
		outer = a.Func(KindHyperbolicCosine, c(0))
	case KindHyperbolicCosine:
		outer = a.Func(KindHyperbolicSine, c(0))
	case KindHyperbolicTangent:
		outer = a.Sub(a.Integer(1), a.Pow(e.Clone(), a.Integer(2)))
	case KindNaperianLogarithm:
		outer = a.Pow(c(0), a.Integer(-1))
	case KindAbsoluteValue:
		outer = a.Func(KindSignFunction, c(0))
	default:
		panic("symcalc: derivating a non-differentiable " + e.Kind().String())
	}
	return a.Mul(outer, d(0))
}

// substitute replaces the free occurrences of symbol in e by copies of
// value and returns the handle standing where e stood.
func substitute(e Expr, symbol string, value Expr) Expr {
	switch e.Kind() {
	case KindSymbol:
		if e.Name() == symbol {
			return e.ReplaceWithInPlace(value.Clone())
		}
		return e
	case KindDerivative:
		// The variable of an inner derivative is bound; only its evaluation
		// point sees the outer symbol.
		if v := e.Child(1); v.Kind() == KindSymbol && v.Name() == symbol {
			substitute(e.Child(2), symbol, value)
			return e
		}
	}
	for i := 0; i < e.NumChildren(); i++ {
		substitute(e.Child(i), symbol, value)
	}
	return e
}

// reduceDerivative differentiates f symbolically and evaluates the result at
// the requested point. A non-differentiable f leaves the node for numeric
// evaluation.
func reduceDerivative(e Expr, ctx ReductionContext) Expr {
	if r, done := defaultShallowReduce(e); done {
		return r
	}
	v := e.Child(1)
	if v.Kind() != KindSymbol {
		return e.replaceWithUndefined()
	}
	f := e.Child(0)
	if !isDifferentiable(f, v.Name()) {
		return e
	}
	d := derivate(f, v.Name(), ctx)
	if d.IsUninitialized() {
		return e
	}
	d = substitute(d, v.Name(), e.Child(2))
	return e.ReplaceWithInPlace(d).deepReduce(ctx)
}
