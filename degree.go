package symcalc

import (
	"math"
)

// maxPolynomialDegree bounds coefficient extraction and root finding.
const maxPolynomialDegree = 3

// PolynomialDegree returns the degree of e in symbol, or -1 when e is not a
// polynomial in it. Other symbols count as constants, unless the context
// substitutes their definition, whose degree is then used.
func (e Expr) PolynomialDegree(ctx ReductionContext, symbol string) int {
	return e.polynomialDegree(ctx, symbol, 0)
}

func (e Expr) polynomialDegree(ctx ReductionContext, symbol string, depth int) int {
	deg := func(c Expr) int { return c.polynomialDegree(ctx, symbol, depth) }
	switch e.Kind() {
	case KindSymbol:
		if e.Name() == symbol {
			return 1
		}
		return symbolDegree(e.Name(), ctx, symbol, depth)
	case KindUndefined, KindNonreal, KindMatrix, KindList:
		return -1
	case KindAddition, KindSubtraction:
		d := 0
		for i := 0; i < e.NumChildren(); i++ {
			di := deg(e.Child(i))
			if di < 0 {
				return -1
			}
			d = max(d, di)
		}
		return d
	case KindMultiplication:
		d := 0
		for i := 0; i < e.NumChildren(); i++ {
			di := deg(e.Child(i))
			if di < 0 {
				return -1
			}
			d += di
		}
		return d
	case KindOpposite, KindDependency:
		return deg(e.Child(0))
	case KindDivision:
		if deg(e.Child(1)) != 0 {
			return -1
		}
		return deg(e.Child(0))
	case KindPower:
		d := deg(e.Child(0))
		if d < 0 || deg(e.Child(1)) != 0 {
			return -1
		}
		if d == 0 {
			return 0
		}
		n, ok := e.Child(1).smallInteger()
		if !ok || n < 0 {
			return -1
		}
		return d * n
	}
	for i := 0; i < e.NumChildren(); i++ {
		if deg(e.Child(i)) != 0 {
			return -1
		}
	}
	return 0
}

func symbolDegree(name string, ctx ReductionContext, symbol string, depth int) int {
	switch ctx.SymbolicComputation {
	case ReplaceAllDefinedSymbolsWithDefinition, ReplaceAllSymbolsWithDefinitionsOrUndefined:
	default:
		return 0
	}
	def, ok := ctx.definition(name)
	if !ok {
		return 0
	}
	if depth >= maxSymbolReplacements {
		return -1
	}
	return def.polynomialDegree(ctx, symbol, depth+1)
}

// polynomial is a list of owned coefficient roots, lowest degree first.
type polynomial []Expr

func (p polynomial) release() { releaseAll(p) }

func (a *Arena) polyAdd(p, q polynomial) polynomial {
	if len(p) < len(q) {
		p, q = q, p
	}
	for i, c := range q {
		p[i] = a.Add(p[i], c)
	}
	return p
}

func (a *Arena) polyMul(p, q polynomial) (polynomial, bool) {
	if len(p)+len(q)-2 > maxPolynomialDegree {
		p.release()
		q.release()
		return nil, false
	}
	terms := make([][]Expr, len(p)+len(q)-1)
	for i, x := range p {
		for j, y := range q {
			terms[i+j] = append(terms[i+j], a.Mul(x.Clone(), y.Clone()))
		}
	}
	p.release()
	q.release()
	out := make(polynomial, len(terms))
	for i, t := range terms {
		out[i] = a.Add(t...)
	}
	return out, true
}

func (a *Arena) polyScale(p polynomial, f Expr) polynomial {
	for i, c := range p {
		p[i] = a.Mul(c, f.Clone())
	}
	f.Release()
	return p
}

// coefficients expands e into its coefficients in symbol. It fails on
// anything but a polynomial of degree at most maxPolynomialDegree.
func coefficients(e Expr, symbol string) (polynomial, bool) {
	a := e.a
	if !dependsOn(e, symbol) {
		return polynomial{e.Clone()}, true
	}
	switch e.Kind() {
	case KindSymbol:
		return polynomial{a.Integer(0), a.Integer(1)}, true
	case KindDependency:
		return coefficients(e.Child(0), symbol)
	case KindOpposite:
		p, ok := coefficients(e.Child(0), symbol)
		if !ok {
			return nil, false
		}
		return a.polyScale(p, a.Integer(-1)), true
	case KindAddition, KindSubtraction:
		var sum polynomial
		for i := 0; i < e.NumChildren(); i++ {
			p, ok := coefficients(e.Child(i), symbol)
			if !ok {
				sum.release()
				return nil, false
			}
			if i > 0 && e.Kind() == KindSubtraction {
				p = a.polyScale(p, a.Integer(-1))
			}
			sum = a.polyAdd(sum, p)
		}
		return sum, true
	case KindMultiplication:
		prod := polynomial{a.Integer(1)}
		for i := 0; i < e.NumChildren(); i++ {
			p, ok := coefficients(e.Child(i), symbol)
			if !ok {
				prod.release()
				return nil, false
			}
			if prod, ok = a.polyMul(prod, p); !ok {
				return nil, false
			}
		}
		return prod, true
	case KindDivision:
		if dependsOn(e.Child(1), symbol) {
			return nil, false
		}
		p, ok := coefficients(e.Child(0), symbol)
		if !ok {
			return nil, false
		}
		return a.polyScale(p, a.Pow(e.Child(1).Clone(), a.Integer(-1))), true
	case KindPower:
		n, ok := e.Child(1).smallInteger()
		if !ok || n < 0 || n > maxPolynomialDegree {
			return nil, false
		}
		base, ok := coefficients(e.Child(0), symbol)
		if !ok {
			return nil, false
		}
		result := polynomial{a.Integer(1)}
		for ; n > 0; n-- {
			b := make(polynomial, len(base))
			for i, c := range base {
				b[i] = c.Clone()
			}
			if result, ok = a.polyMul(result, b); !ok {
				base.release()
				return nil, false
			}
		}
		base.release()
		return result, true
	}
	return nil, false
}

// PolynomialCoefficients returns the reduced coefficients of e in symbol,
// lowest degree first, with trailing zero coefficients trimmed. ok is false
// when e is not a polynomial of degree at most 3.
func (e Expr) PolynomialCoefficients(symbol string, ctx ReductionContext) ([]Expr, bool) {
	p, ok := coefficients(e, symbol)
	if !ok {
		return nil, false
	}
	for i := range p {
		p[i] = p[i].DeepReduce(ctx)
	}
	for len(p) > 1 && p[len(p)-1].isRationalZero() {
		p[len(p)-1].Release()
		p = p[:len(p)-1]
	}
	return p, true
}

// PolynomialRoots returns the roots of e = 0 in symbol for a polynomial of
// degree 1 to 3. Roots of degree 1 and 2 are exact; cubic roots are numeric.
// In Real format only real roots are returned.
func (e Expr) PolynomialRoots(symbol string, ctx ReductionContext) ([]Expr, bool) {
	c, ok := e.PolynomialCoefficients(symbol, ctx)
	if !ok {
		return nil, false
	}
	defer releaseAll(c)
	a := e.a
	switch len(c) - 1 {
	case 1:
		// -c0/c1
		r := a.Div(a.Opp(c[0].Clone()), c[1].Clone())
		return []Expr{r.DeepReduce(ctx)}, true
	case 2:
		return a.quadraticRoots(c[2], c[1], c[0], ctx), true
	case 3:
		return a.cubicRoots(c, ctx)
	}
	return nil, false
}

func (a *Arena) quadraticRoots(qa, qb, qc Expr, ctx ReductionContext) []Expr {
	disc := a.Sub(a.Pow(qb.Clone(), a.Integer(2)), a.Mul(a.Integer(4), qa.Clone(), qc.Clone())).DeepReduce(ctx)
	if disc.isNumber() {
		switch {
		case disc.numberSign() == 0:
			disc.Release()
			r := a.Div(a.Opp(qb.Clone()), a.Mul(a.Integer(2), qa.Clone()))
			return []Expr{r.DeepReduce(ctx)}
		case disc.numberSign() < 0 && ctx.ComplexFormat == ComplexReal:
			disc.Release()
			return nil
		}
	}
	// (-b ± √Δ) / 2a
	root := func(sign int64) Expr {
		num := a.Add(a.Opp(qb.Clone()), a.Mul(a.Integer(sign), a.Sqrt(disc.Clone())))
		return a.Div(num, a.Mul(a.Integer(2), qa.Clone())).DeepReduce(ctx)
	}
	roots := []Expr{root(-1), root(1)}
	disc.Release()
	return roots
}

// cubicRoots solves with Cardano's method on the approximated coefficients.
func (a *Arena) cubicRoots(c []Expr, ctx ReductionContext) ([]Expr, bool) {
	var f [4]float64
	for i := range f {
		f[i] = c[i].ApproximateToScalar(ctx, DoublePrecision)
		if math.IsNaN(f[i]) {
			return nil, false
		}
	}
	ca, cb, cc, cd := f[3], f[2], f[1], f[0]
	p := (3*ca*cc - cb*cb) / (3 * ca * ca)
	q := (2*cb*cb*cb - 9*ca*cb*cc + 27*ca*ca*cd) / (27 * ca * ca * ca)
	offset := cb / (3 * ca)
	disc := -(4*p*p*p + 27*q*q)

	var roots []Expr
	switch {
	case disc > 0:
		m := 2 * math.Sqrt(-p/3)
		theta := math.Acos(3*q/(p*m)) / 3
		for k := 0; k < 3; k++ {
			roots = append(roots, a.Float(m*math.Cos(theta-2*math.Pi*float64(k)/3)-offset))
		}
	case disc == 0:
		if q == 0 {
			roots = []Expr{a.Float(-offset)}
		} else {
			roots = []Expr{a.Float(3*q/p - offset), a.Float(-3*q/(2*p) - offset)}
		}
	default:
		u := math.Cbrt(-q/2 + math.Sqrt(q*q/4+p*p*p/27))
		v := 0.0
		if u != 0 {
			v = -p / (3 * u)
		}
		roots = []Expr{a.Float(u + v - offset)}
		if ctx.ComplexFormat != ComplexReal {
			re := -(u+v)/2 - offset
			im := math.Sqrt(3) / 2 * math.Abs(u-v)
			roots = append(roots,
				a.complexToExpr(complex(re, im), ctx.ComplexFormat),
				a.complexToExpr(complex(re, -im), ctx.ComplexFormat))
		}
	}
	return roots, true
}
