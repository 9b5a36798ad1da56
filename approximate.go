package symcalc

import (
	"fmt"
	"math"
	"math/cmplx"
	"strconv"
	"strings"
)

// ============================================================
// Evaluations
// ============================================================

// Precision selects the float width used for every intermediate result.
type Precision uint8

const (
	SinglePrecision Precision = iota
	DoublePrecision
)

func (p Precision) String() string {
	if p == SinglePrecision {
		return "single"
	}
	return "double"
}

// Evaluation is the numeric value of a tree: a complex scalar or a complex
// matrix. An undefined scalar is NaN.
type Evaluation struct {
	matrix bool
	rows   int
	cols   int
	values []complex128
}

func scalarEvaluation(v complex128) Evaluation {
	return Evaluation{values: []complex128{v}}
}

func undefinedEvaluation() Evaluation { return scalarEvaluation(cmplx.NaN()) }

func matrixEvaluation(rows, cols int, values []complex128) Evaluation {
	return Evaluation{matrix: true, rows: rows, cols: cols, values: values}
}

func (v Evaluation) IsMatrix() bool { return v.matrix }
func (v Evaluation) Rows() int      { return v.rows }
func (v Evaluation) Cols() int      { return v.cols }

// Scalar returns the value of a scalar evaluation, NaN for a matrix.
func (v Evaluation) Scalar() complex128 {
	if v.matrix || len(v.values) == 0 {
		return cmplx.NaN()
	}
	return v.values[0]
}

// At returns entry (i, j) of a matrix evaluation.
func (v Evaluation) At(i, j int) complex128 { return v.values[i*v.cols+j] }

// Values returns the row-major entries of a matrix evaluation.
func (v Evaluation) Values() []complex128 { return v.values }

func (v Evaluation) IsUndefined() bool {
	return !v.matrix && cmplx.IsNaN(v.Scalar())
}

func formatComplex(c complex128) string {
	if cmplx.IsNaN(c) {
		return "undef"
	}
	re := strconv.FormatFloat(real(c), 'g', -1, 64)
	if imag(c) == 0 {
		return re
	}
	im := strconv.FormatFloat(imag(c), 'g', -1, 64)
	if real(c) == 0 {
		return im + "*i"
	}
	if imag(c) > 0 {
		return re + "+" + im + "*i"
	}
	return re + im + "*i"
}

func (v Evaluation) String() string {
	if !v.matrix {
		return formatComplex(v.Scalar())
	}
	var b strings.Builder
	b.WriteByte('[')
	for i := 0; i < v.rows; i++ {
		b.WriteByte('[')
		for j := 0; j < v.cols; j++ {
			if j > 0 {
				b.WriteByte(',')
			}
			b.WriteString(formatComplex(v.At(i, j)))
		}
		b.WriteByte(']')
	}
	b.WriteByte(']')
	return b.String()
}

// Approximate evaluates e numerically. It works on unreduced trees and does
// not mutate e.
func (e Expr) Approximate(ctx ReductionContext, p Precision) Evaluation {
	ap := &approximator{ctx: ctx.UpdateComplexFormat(e), precision: p}
	return ap.eval(e)
}

// ApproximateToScalar returns the real value of e, NaN when e is undefined,
// non-real or a matrix.
func (e Expr) ApproximateToScalar(ctx ReductionContext, p Precision) float64 {
	return realPart(e.Approximate(ctx, p))
}

// ApproximateWithValueForSymbol evaluates e with symbol bound to x; graphing
// consumers call it once per abscissa.
func (e Expr) ApproximateWithValueForSymbol(ctx ReductionContext, p Precision, symbol string, x float64) float64 {
	ap := &approximator{ctx: ctx.UpdateComplexFormat(e), precision: p, symbol: symbol, value: complex(x, 0), bound: true}
	return realPart(ap.eval(e))
}

func realPart(v Evaluation) float64 {
	if v.IsMatrix() {
		return math.NaN()
	}
	s := v.Scalar()
	if cmplx.IsNaN(s) || imag(s) != 0 {
		return math.NaN()
	}
	return real(s)
}

// ============================================================
// Tree walk
// ============================================================

type approximator struct {
	ctx       ReductionContext
	precision Precision
	symbol    string
	value     complex128
	bound     bool
	depth     int
}

func (ap *approximator) round(c complex128) complex128 {
	if cmplx.IsInf(c) || cmplx.IsNaN(c) {
		return cmplx.NaN()
	}
	if ap.precision == SinglePrecision {
		c = complex128(complex64(c))
		if cmplx.IsInf(c) {
			return cmplx.NaN()
		}
	}
	return c
}

func (ap *approximator) finish(v Evaluation) Evaluation {
	for i, c := range v.values {
		v.values[i] = ap.round(c)
	}
	return v
}

func (ap *approximator) scalar(c complex128) Evaluation {
	return ap.finish(scalarEvaluation(c))
}

func isReal(c complex128) bool { return imag(c) == 0 }

// realOnly enforces the Real complex format: real inputs producing a
// non-real output give undefined.
func (ap *approximator) realOnly(in, out complex128) complex128 {
	if ap.ctx.ComplexFormat != ComplexReal || !isReal(in) || isReal(out) {
		return out
	}
	if math.Abs(imag(out)) <= doubleEpsilon*math.Abs(real(out)) {
		return complex(real(out), 0)
	}
	return cmplx.NaN()
}

func (ap *approximator) eval(e Expr) Evaluation {
	switch e.Kind() {
	case KindRational, KindDecimal, KindFloat:
		return ap.scalar(complex(e.numberValue(), 0))
	case KindConstant:
		switch e.ConstantValue() {
		case ConstantPi:
			return ap.scalar(math.Pi)
		case ConstantE:
			return ap.scalar(math.E)
		}
		return ap.scalar(1i)
	case KindSymbol:
		return ap.evalSymbol(e)
	case KindUnit:
		if r, ok := unitRatio(e.Name()); ok {
			return ap.scalar(complex(r, 0))
		}
		return ap.scalar(1)
	case KindAddition, KindSubtraction, KindMultiplication, KindDivision:
		return ap.evalBinaryChain(e)
	case KindOpposite:
		return ap.negate(ap.eval(e.Child(0)))
	case KindPower:
		return ap.evalPower(e)
	case KindSquareRoot:
		return ap.unary(e, func(x complex128) complex128 { return ap.realOnly(x, cmplx.Sqrt(x)) })
	case KindMatrix:
		values := make([]complex128, e.NumChildren())
		for i := range values {
			c := ap.eval(e.Child(i))
			if c.IsMatrix() {
				return undefinedEvaluation()
			}
			values[i] = c.Scalar()
		}
		return ap.finish(matrixEvaluation(e.Rows(), e.Cols(), values))
	case KindDependency:
		list := e.Child(1)
		for i := 0; i < list.NumChildren(); i++ {
			if ap.eval(list.Child(i)).IsUndefined() {
				return undefinedEvaluation()
			}
		}
		return ap.eval(e.Child(0))
	case KindDerivative:
		return ap.evalDerivative(e)
	}
	if k := e.Kind(); k.IsUnaryFunction() {
		return ap.unary(e, func(x complex128) complex128 { return ap.function(k, x) })
	}
	if e.Kind().IsMatrixFunction() {
		return ap.evalMatrixFunction(e)
	}
	return undefinedEvaluation()
}

func (ap *approximator) evalSymbol(e Expr) Evaluation {
	name := e.Name()
	if ap.bound && name == ap.symbol {
		return ap.scalar(ap.value)
	}
	switch ap.ctx.SymbolicComputation {
	case DoNotReplaceAnySymbol, ReplaceAllSymbolsWithUndefined:
		return undefinedEvaluation()
	}
	def, ok := ap.ctx.definition(name)
	if !ok || ap.depth >= maxSymbolReplacements {
		return undefinedEvaluation()
	}
	ap.depth++
	defer func() { ap.depth-- }()
	return ap.eval(def)
}

func (ap *approximator) unary(e Expr, f func(complex128) complex128) Evaluation {
	x := ap.eval(e.Child(0))
	if x.IsMatrix() || x.IsUndefined() {
		return undefinedEvaluation()
	}
	return ap.scalar(f(x.Scalar()))
}

func (ap *approximator) negate(v Evaluation) Evaluation {
	out := Evaluation{matrix: v.matrix, rows: v.rows, cols: v.cols, values: make([]complex128, len(v.values))}
	for i, c := range v.values {
		out.values[i] = -c
	}
	return ap.finish(out)
}

func (ap *approximator) evalBinaryChain(e Expr) Evaluation {
	k := e.Kind()
	if e.NumChildren() == 0 {
		if k == KindMultiplication {
			return ap.scalar(1)
		}
		return ap.scalar(0)
	}
	acc := ap.eval(e.Child(0))
	for i := 1; i < e.NumChildren(); i++ {
		next := ap.eval(e.Child(i))
		switch k {
		case KindAddition:
			acc = ap.add(acc, next)
		case KindSubtraction:
			acc = ap.add(acc, ap.negate(next))
		case KindMultiplication:
			acc = ap.multiply(acc, next)
		case KindDivision:
			acc = ap.divide(acc, next)
		}
	}
	return acc
}

func (ap *approximator) add(x, y Evaluation) Evaluation {
	if x.matrix != y.matrix || x.rows != y.rows || x.cols != y.cols {
		return undefinedEvaluation()
	}
	out := Evaluation{matrix: x.matrix, rows: x.rows, cols: x.cols, values: make([]complex128, len(x.values))}
	for i := range x.values {
		out.values[i] = x.values[i] + y.values[i]
	}
	return ap.finish(out)
}

func (ap *approximator) scale(m Evaluation, s complex128) Evaluation {
	out := matrixEvaluation(m.rows, m.cols, make([]complex128, len(m.values)))
	for i, c := range m.values {
		out.values[i] = c * s
	}
	return ap.finish(out)
}

func (ap *approximator) multiply(x, y Evaluation) Evaluation {
	switch {
	case !x.matrix && !y.matrix:
		return ap.scalar(x.Scalar() * y.Scalar())
	case !x.matrix:
		return ap.scale(y, x.Scalar())
	case !y.matrix:
		return ap.scale(x, y.Scalar())
	}
	if x.cols != y.rows {
		return undefinedEvaluation()
	}
	return ap.finish(matrixEvaluation(x.rows, y.cols, arrayMultiply(x.values, y.values, x.rows, x.cols, y.cols)))
}

func (ap *approximator) inverse(m Evaluation) Evaluation {
	if !m.matrix {
		return ap.scalar(1 / m.Scalar())
	}
	if m.rows != m.cols {
		return undefinedEvaluation()
	}
	values := append([]complex128(nil), m.values...)
	if !ArrayInverse(values, m.rows) {
		return undefinedEvaluation()
	}
	return ap.finish(matrixEvaluation(m.rows, m.cols, values))
}

func (ap *approximator) divide(x, y Evaluation) Evaluation {
	if y.IsUndefined() {
		return undefinedEvaluation()
	}
	if !y.matrix && y.Scalar() == 0 {
		return undefinedEvaluation()
	}
	return ap.multiply(x, ap.inverse(y))
}

func (ap *approximator) evalPower(e Expr) Evaluation {
	base := ap.eval(e.Child(0))
	exp := ap.eval(e.Child(1))
	if exp.IsMatrix() || exp.IsUndefined() {
		return undefinedEvaluation()
	}
	x := exp.Scalar()
	if base.IsMatrix() {
		n := real(x)
		if imag(x) != 0 || n != math.Trunc(n) || base.rows != base.cols || math.Abs(n) > maxIntegerPower {
			return undefinedEvaluation()
		}
		if n < 0 {
			base = ap.inverse(base)
			if base.IsUndefined() {
				return base
			}
			n = -n
		}
		result := matrixEvaluation(base.rows, base.cols, arrayIdentity(base.rows))
		for i := 0; i < int(n); i++ {
			result = ap.multiply(result, base)
		}
		return result
	}
	b := base.Scalar()
	if cmplx.IsNaN(b) {
		return undefinedEvaluation()
	}
	if b == 0 && real(x) <= 0 {
		return undefinedEvaluation()
	}
	if isReal(x) && real(x) == math.Trunc(real(x)) && math.Abs(real(x)) <= maxIntegerPower {
		return ap.scalar(integerPower(b, int(real(x))))
	}
	if ap.ctx.ComplexFormat == ComplexReal && isReal(b) && real(b) < 0 && isReal(x) {
		if q, ok := oddDenominator(e.Child(1)); ok {
			r := math.Pow(-real(b), real(x))
			if q.numeratorOdd {
				r = -r
			}
			return ap.scalar(complex(r, 0))
		}
	}
	return ap.scalar(ap.realOnly(b, cmplx.Pow(b, x)))
}

type rationalExponent struct{ numeratorOdd bool }

// oddDenominator recognizes exponents p/q with q odd, whose real root of a
// negative base is defined.
func oddDenominator(x Expr) (rationalExponent, bool) {
	if x.Kind() != KindRational {
		return rationalExponent{}, false
	}
	r := x.rat()
	if r.Denom().Bit(0) == 0 {
		return rationalExponent{}, false
	}
	return rationalExponent{numeratorOdd: r.Num().Bit(0) == 1}, true
}

func integerPower(b complex128, n int) complex128 {
	if n < 0 {
		return 1 / integerPower(b, -n)
	}
	result := complex(1, 0)
	for n > 0 {
		if n&1 == 1 {
			result *= b
		}
		b *= b
		n >>= 1
	}
	return result
}

func (ap *approximator) angleFactor() float64 {
	switch ap.ctx.AngleUnit {
	case AngleDegree:
		return math.Pi / 180
	case AngleGradian:
		return math.Pi / 200
	}
	return 1
}

func (ap *approximator) function(k Kind, x complex128) complex128 {
	f := complex(ap.angleFactor(), 0)
	switch k {
	case KindSine:
		return cmplx.Sin(x * f)
	case KindCosine:
		return cmplx.Cos(x * f)
	case KindTangent:
		if isReal(x) && math.Abs(math.Cos(real(x*f))) < epsilonFor(ap.precision) {
			return cmplx.NaN()
		}
		return cmplx.Tan(x * f)
	case KindArcSine:
		return ap.realOnly(x, cmplx.Asin(x)) / f
	case KindArcCosine:
		return ap.realOnly(x, cmplx.Acos(x)) / f
	case KindArcTangent:
		return cmplx.Atan(x) / f
	case KindHyperbolicSine:
		return cmplx.Sinh(x)
	case KindHyperbolicCosine:
		return cmplx.Cosh(x)
	case KindHyperbolicTangent:
		return cmplx.Tanh(x)
	case KindNaperianLogarithm:
		if x == 0 {
			return cmplx.NaN()
		}
		return ap.realOnly(x, cmplx.Log(x))
	case KindAbsoluteValue:
		return complex(cmplx.Abs(x), 0)
	case KindFloor:
		if !isReal(x) {
			return cmplx.NaN()
		}
		return complex(math.Floor(real(x)), 0)
	case KindCeiling:
		if !isReal(x) {
			return cmplx.NaN()
		}
		return complex(math.Ceil(real(x)), 0)
	case KindSignFunction:
		if !isReal(x) {
			return cmplx.NaN()
		}
		switch {
		case real(x) > 0:
			return 1
		case real(x) < 0:
			return -1
		}
		return 0
	}
	return cmplx.NaN()
}

// evalDerivative differentiates numerically with a Richardson-extrapolated
// central difference.
func (ap *approximator) evalDerivative(e Expr) Evaluation {
	v := e.Child(1)
	if v.Kind() != KindSymbol {
		return undefinedEvaluation()
	}
	at := ap.eval(e.Child(2))
	if at.IsMatrix() || at.IsUndefined() {
		return undefinedEvaluation()
	}
	x := at.Scalar()
	inner := &approximator{ctx: ap.ctx, precision: DoublePrecision, symbol: v.Name(), bound: true, depth: ap.depth}
	f := func(t complex128) complex128 {
		inner.value = t
		r := inner.eval(e.Child(0))
		if r.IsMatrix() {
			return cmplx.NaN()
		}
		return r.Scalar()
	}
	h := 1e-3 * math.Max(1, cmplx.Abs(x))
	d1 := (f(x+complex(h, 0)) - f(x-complex(h, 0))) / complex(2*h, 0)
	d2 := (f(x+complex(h/2, 0)) - f(x-complex(h/2, 0))) / complex(h, 0)
	return ap.scalar((4*d2 - d1) / 3)
}

func (ap *approximator) evalMatrixFunction(e Expr) Evaluation {
	k := e.Kind()
	eps := epsilonFor(ap.precision)
	x := ap.eval(e.Child(0))
	if x.IsUndefined() {
		return x
	}
	switch k {
	case KindMatrixIdentity:
		n := real(x.Scalar())
		if x.IsMatrix() || n != math.Trunc(n) || n <= 0 || n*n > MaxMatrixChildren {
			return undefinedEvaluation()
		}
		return matrixEvaluation(int(n), int(n), arrayIdentity(int(n)))
	case KindMatrixAugment, KindVectorDot, KindVectorCross:
		y := ap.eval(e.Child(1))
		if !x.IsMatrix() || !y.IsMatrix() {
			return undefinedEvaluation()
		}
		return ap.binaryMatrixFunction(k, x, y)
	}
	if !x.IsMatrix() {
		switch k {
		case KindDeterminant, KindMatrixTranspose, KindMatrixTrace:
			return x
		case KindMatrixInverse:
			return ap.inverse(x)
		}
		return undefinedEvaluation()
	}
	switch k {
	case KindDeterminant:
		if x.rows != x.cols {
			return undefinedEvaluation()
		}
		values := append([]complex128(nil), x.values...)
		return ap.scalar(ArrayRowCanonize(values, x.rows, x.cols, false))
	case KindMatrixInverse:
		return ap.inverse(x)
	case KindMatrixTranspose:
		return ap.finish(matrixEvaluation(x.cols, x.rows, arrayTranspose(x.values, x.rows, x.cols)))
	case KindMatrixTrace:
		if x.rows != x.cols {
			return undefinedEvaluation()
		}
		var s complex128
		for i := 0; i < x.rows; i++ {
			s += x.At(i, i)
		}
		return ap.scalar(s)
	case KindMatrixRank:
		return ap.scalar(complex(float64(arrayRank(x.values, x.rows, x.cols, eps)), 0))
	case KindMatrixRef, KindMatrixRref:
		values := append([]complex128(nil), x.values...)
		ArrayRowCanonize(values, x.rows, x.cols, k == KindMatrixRref)
		return ap.finish(matrixEvaluation(x.rows, x.cols, values))
	case KindVectorNorm:
		if vectorShape(x.rows, x.cols) == notAVector {
			return undefinedEvaluation()
		}
		var s float64
		for _, c := range x.values {
			a := cmplx.Abs(c)
			s += a * a
		}
		return ap.scalar(complex(math.Sqrt(s), 0))
	}
	return undefinedEvaluation()
}

func (ap *approximator) binaryMatrixFunction(k Kind, x, y Evaluation) Evaluation {
	switch k {
	case KindMatrixAugment:
		if x.rows != y.rows {
			return undefinedEvaluation()
		}
		cols := x.cols + y.cols
		values := make([]complex128, 0, x.rows*cols)
		for i := 0; i < x.rows; i++ {
			values = append(values, x.values[i*x.cols:(i+1)*x.cols]...)
			values = append(values, y.values[i*y.cols:(i+1)*y.cols]...)
		}
		return matrixEvaluation(x.rows, cols, values)
	case KindVectorDot:
		if vectorShape(x.rows, x.cols) == notAVector || vectorShape(x.rows, x.cols) != vectorShape(y.rows, y.cols) || len(x.values) != len(y.values) {
			return undefinedEvaluation()
		}
		var s complex128
		for i := range x.values {
			s += x.values[i] * y.values[i]
		}
		return ap.scalar(s)
	case KindVectorCross:
		if len(x.values) != 3 || len(y.values) != 3 || vectorShape(x.rows, x.cols) != vectorShape(y.rows, y.cols) {
			return undefinedEvaluation()
		}
		u, v := x.values, y.values
		values := []complex128{
			u[1]*v[2] - u[2]*v[1],
			u[2]*v[0] - u[0]*v[2],
			u[0]*v[1] - u[1]*v[0],
		}
		return ap.finish(matrixEvaluation(x.rows, x.cols, values))
	}
	return undefinedEvaluation()
}

// EvaluationToExpr builds a numeric tree from v, formatting complex values in
// cartesian (a+b*i) or polar (r*e^(θ*i)) form.
func (a *Arena) EvaluationToExpr(v Evaluation, format ComplexFormat) Expr {
	if !v.IsMatrix() {
		return a.complexToExpr(v.Scalar(), format)
	}
	entries := make([]Expr, len(v.values))
	for i, c := range v.values {
		entries[i] = a.complexToExpr(c, format)
	}
	return a.Matrix(v.rows, v.cols, entries...)
}

func (a *Arena) complexToExpr(c complex128, format ComplexFormat) Expr {
	switch {
	case cmplx.IsNaN(c):
		return a.Undefined()
	case isReal(c):
		return a.Float(real(c))
	case format == ComplexReal:
		return a.Nonreal()
	case format == ComplexPolar:
		r, theta := cmplx.Polar(c)
		return a.Mul(a.Float(r), a.Pow(a.E(), a.Mul(a.Float(theta), a.I())))
	}
	im := a.Mul(a.Float(imag(c)), a.I())
	if real(c) == 0 {
		return im
	}
	return a.Add(a.Float(real(c)), im)
}

func (v Evaluation) GoString() string {
	return fmt.Sprintf("Evaluation{%s}", v.String())
}
