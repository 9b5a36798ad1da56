package symcalc

import (
	"math"
	"math/big"
)

func reduceFunction(e Expr, ctx ReductionContext) Expr {
	a := e.a
	arg := e.Child(0)
	if arg.Kind() == KindFloat {
		return replaceWithApproximation(e, ctx)
	}
	switch e.Kind() {
	case KindSine, KindCosine, KindTangent:
		return reduceTrigonometry(e, ctx)
	case KindArcSine, KindArcCosine, KindArcTangent:
		return reduceInverseTrigonometry(e, ctx)
	case KindHyperbolicSine, KindHyperbolicTangent:
		if arg.isRationalZero() {
			return e.ReplaceWithInPlace(a.Integer(0))
		}
	case KindHyperbolicCosine:
		if arg.isRationalZero() {
			return e.ReplaceWithInPlace(a.Integer(1))
		}
	case KindNaperianLogarithm:
		switch {
		case arg.isRationalOne():
			return e.ReplaceWithInPlace(a.Integer(0))
		case arg.isRationalZero():
			return e.replaceWithUndefined()
		case arg.isConstant(ConstantE):
			return e.ReplaceWithInPlace(a.Integer(1))
		case arg.Kind() == KindPower && arg.Child(0).isConstant(ConstantE):
			return e.ReplaceWithInPlace(arg.Child(1))
		case arg.isNegativeNumber() && ctx.ComplexFormat == ComplexReal:
			return e.ReplaceWithInPlace(a.Nonreal())
		}
	case KindAbsoluteValue:
		return reduceAbsoluteValue(e)
	case KindFloor, KindCeiling:
		return reduceFloorCeiling(e, ctx)
	case KindSignFunction:
		switch {
		case arg.isNumber():
			return e.ReplaceWithInPlace(a.Integer(int64(arg.numberSign())))
		case arg.isConstant(ConstantPi), arg.isConstant(ConstantE):
			return e.ReplaceWithInPlace(a.Integer(1))
		}
	}
	return e
}

// replaceWithApproximation swaps e for its numeric value when that value is
// real, leaving it untouched otherwise.
func replaceWithApproximation(e Expr, ctx ReductionContext) Expr {
	v := e.Approximate(ctx, DoublePrecision)
	if v.IsUndefined() {
		return e.replaceWithUndefined()
	}
	if v.IsMatrix() || imag(v.Scalar()) != 0 {
		return e
	}
	return e.ReplaceWithInPlace(e.a.Float(real(v.Scalar())))
}

func reduceAbsoluteValue(e Expr) Expr {
	a := e.a
	arg := e.Child(0)
	switch {
	case arg.isNumber():
		if arg.numberSign() < 0 {
			return e.ReplaceWithInPlace(a.numberNeg(arg))
		}
		return e.replaceWithChild(0)
	case arg.isConstant(ConstantPi), arg.isConstant(ConstantE):
		return e.replaceWithChild(0)
	case arg.isConstant(ConstantI):
		return e.ReplaceWithInPlace(a.Integer(1))
	case arg.Kind() == KindAbsoluteValue:
		return e.replaceWithChild(0)
	}
	return e
}

func reduceFloorCeiling(e Expr, ctx ReductionContext) Expr {
	a := e.a
	arg := e.Child(0)
	floor := e.Kind() == KindFloor
	if r, ok := arg.exactValue(); ok {
		q := new(big.Int)
		m := new(big.Int)
		q.DivMod(r.Num(), r.Denom(), m)
		if !floor && m.Sign() != 0 {
			q.Add(q, big.NewInt(1))
		}
		return e.ReplaceWithInPlace(a.RationalFromBig(new(big.Rat).SetInt(q)))
	}
	if arg.Kind() == KindConstant && !arg.isConstant(ConstantI) {
		v := real(arg.Approximate(ctx, DoublePrecision).Scalar())
		if floor {
			v = math.Floor(v)
		} else {
			v = math.Ceil(v)
		}
		return e.ReplaceWithInPlace(a.Integer(int64(v)))
	}
	return e
}

// Angles that reduce exactly are multiples of π/12; the values kept are the
// ones with a short closed form: 0, 1/2, √2/2, √3/2, 1.

func angleInTwelfths(arg Expr, ctx ReductionContext) (int64, bool) {
	var r *big.Rat
	switch ctx.AngleUnit {
	case AngleRadian:
		switch {
		case arg.isRationalZero():
			return 0, true
		case arg.isConstant(ConstantPi):
			return 12, true
		case arg.Kind() == KindMultiplication && arg.NumChildren() == 2 &&
			arg.Child(0).Kind() == KindRational && arg.Child(1).isConstant(ConstantPi):
			r = new(big.Rat).Mul(arg.Child(0).rat(), big.NewRat(12, 1))
		default:
			return 0, false
		}
	case AngleDegree:
		if arg.Kind() != KindRational {
			return 0, false
		}
		r = new(big.Rat).Quo(arg.rat(), big.NewRat(15, 1))
	case AngleGradian:
		if arg.Kind() != KindRational {
			return 0, false
		}
		r = new(big.Rat).Mul(arg.rat(), big.NewRat(3, 50))
	}
	if !r.IsInt() || !r.Num().IsInt64() {
		return 0, false
	}
	n := r.Num().Int64() % 24
	if n < 0 {
		n += 24
	}
	return n, true
}

// sineInTwelfths returns sin(nπ/12) as a sign and a first-quadrant index.
func sineInTwelfths(n int64) (sign int64, m int64) {
	sign = 1
	if n >= 12 {
		n -= 12
		sign = -1
	}
	if n > 6 {
		n = 12 - n
	}
	return sign, n
}

func (a *Arena) firstQuadrantSine(m int64) (Expr, bool) {
	half := func() Expr { return a.Rational(1, 2) }
	switch m {
	case 0:
		return a.Integer(0), true
	case 2:
		return half(), true
	case 3:
		return a.Mul(half(), a.Pow(a.Integer(2), half())), true
	case 4:
		return a.Mul(half(), a.Pow(a.Integer(3), half())), true
	case 6:
		return a.Integer(1), true
	}
	return Expr{}, false
}

func (a *Arena) exactSine(n int64) (Expr, bool) {
	sign, m := sineInTwelfths(n)
	v, ok := a.firstQuadrantSine(m)
	if !ok {
		return Expr{}, false
	}
	if sign < 0 {
		v = a.Mul(a.Integer(-1), v)
	}
	return v, true
}

func reduceTrigonometry(e Expr, ctx ReductionContext) Expr {
	a := e.a
	n, ok := angleInTwelfths(e.Child(0), ctx)
	if !ok {
		return e
	}
	if _, m := sineInTwelfths(n); m == 1 || m == 5 {
		return e
	}
	switch e.Kind() {
	case KindSine:
		v, _ := a.exactSine(n)
		return e.ReplaceWithInPlace(v).deepReduce(ctx)
	case KindCosine:
		v, _ := a.exactSine(n + 6)
		return e.ReplaceWithInPlace(v).deepReduce(ctx)
	}
	// tan = sin/cos, undefined where the cosine vanishes.
	if (n+6)%12 == 0 {
		return e.replaceWithUndefined()
	}
	s, _ := a.exactSine(n)
	c, _ := a.exactSine(n + 6)
	s = s.deepReduce(ctx)
	c = c.deepReduce(ctx)
	q := a.Mul(s, a.Pow(c, a.Integer(-1)).ShallowReduce(ctx))
	return e.ReplaceWithInPlace(q).ShallowReduce(ctx)
}

// inverseTrigValues maps exact arguments to angles in twelfths of π.
var inverseTrigValues = map[Kind]map[string]int64{
	KindArcSine:    {"0": 0, "1/2": 2, "1": 6, "-1/2": -2, "-1": -6},
	KindArcCosine:  {"1": 0, "1/2": 4, "0": 6, "-1/2": 8, "-1": 12},
	KindArcTangent: {"0": 0, "1": 3, "-1": -3},
}

func (a *Arena) angleFromTwelfths(n int64, unit AngleUnit) Expr {
	switch unit {
	case AngleDegree:
		return a.Integer(15 * n)
	case AngleGradian:
		return a.Rational(50*n, 3)
	}
	if n == 0 {
		return a.Integer(0)
	}
	return a.Mul(a.Rational(n, 12), a.Pi())
}

func reduceInverseTrigonometry(e Expr, ctx ReductionContext) Expr {
	arg := e.Child(0)
	if arg.Kind() != KindRational {
		return e
	}
	r := arg.rat()
	n, ok := inverseTrigValues[e.Kind()][r.RatString()]
	if !ok {
		if e.Kind() != KindArcTangent && ctx.ComplexFormat == ComplexReal && (r.Cmp(big.NewRat(1, 1)) > 0 || r.Cmp(big.NewRat(-1, 1)) < 0) {
			return e.ReplaceWithInPlace(e.a.Nonreal())
		}
		return e
	}
	return e.ReplaceWithInPlace(e.a.angleFromTwelfths(n, ctx.AngleUnit)).ShallowReduce(ctx)
}

// Units reduce to a ratio times their SI base unit.

type unitDefinition struct {
	base  string
	ratio *big.Rat
}

var unitTable = map[string]unitDefinition{
	"_m":   {"_m", big.NewRat(1, 1)},
	"_km":  {"_m", big.NewRat(1000, 1)},
	"_cm":  {"_m", big.NewRat(1, 100)},
	"_mm":  {"_m", big.NewRat(1, 1000)},
	"_in":  {"_m", big.NewRat(254, 10000)},
	"_ft":  {"_m", big.NewRat(3048, 10000)},
	"_yd":  {"_m", big.NewRat(9144, 10000)},
	"_mi":  {"_m", big.NewRat(1609344, 1000)},
	"_s":   {"_s", big.NewRat(1, 1)},
	"_min": {"_s", big.NewRat(60, 1)},
	"_h":   {"_s", big.NewRat(3600, 1)},
	"_kg":  {"_kg", big.NewRat(1, 1)},
	"_g":   {"_kg", big.NewRat(1, 1000)},
	"_lb":  {"_kg", big.NewRat(45359237, 100000000)},
	"_oz":  {"_kg", big.NewRat(45359237, 1600000000)},
}

// imperialUnits names the unit shown for an SI base unit in imperial format.
var imperialUnits = map[string]string{
	"_m":  "_ft",
	"_kg": "_lb",
}

// IsKnownUnit reports whether name, underscore included, is a unit the
// reducer can convert.
func IsKnownUnit(name string) bool {
	_, ok := unitTable[name]
	return ok
}

func unitRatio(name string) (float64, bool) {
	d, ok := unitTable[name]
	if !ok {
		return 0, false
	}
	f, _ := d.ratio.Float64()
	return f, true
}

func reduceUnit(e Expr, ctx ReductionContext) Expr {
	d, ok := unitTable[e.Name()]
	if !ok || d.base == e.Name() {
		return e
	}
	a := e.a
	return e.ReplaceWithInPlace(a.Mul(a.RationalFromBig(d.ratio), a.Unit(d.base))).ShallowReduce(ctx)
}
