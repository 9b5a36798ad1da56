package symcalc_test

import (
	"math"
	"math/cmplx"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/njchilds90/symcalc"
	"github.com/njchilds90/symcalc/parse"
)

func approximate(t *testing.T, input string, ctx symcalc.ReductionContext, p symcalc.Precision) symcalc.Evaluation {
	t.Helper()
	a := symcalc.NewArena(0)
	e, err := parse.Parse(a, input)
	require.NoError(t, err, input)
	defer e.Release()
	return e.Approximate(ctx, p)
}

// ============================================================
// Scalars
// ============================================================

func TestApproximate_Scalars(t *testing.T) {
	ctx := symcalc.DefaultContext()
	cases := []struct {
		in   string
		want float64
	}{
		{"1/3", 1.0 / 3},
		{"2^10", 1024},
		{"sqrt(2)*sqrt(2)", 2},
		{"sin(pi/2)", 1},
		{"ln(e^3)", 3},
		{"abs(-2.5)", 2.5},
		{"floor(-1.5)", -2},
		{"det([[1,2][3,4]])", -2},
		{"trace([[1,2][3,4]])", 5},
	}
	for _, c := range cases {
		v := approximate(t, c.in, ctx, symcalc.DoublePrecision)
		require.False(t, v.IsMatrix(), c.in)
		assert.InDelta(t, c.want, real(v.Scalar()), 1e-12, c.in)
		assert.Zero(t, imag(v.Scalar()), c.in)
	}
}

func TestApproximate_SinglePrecisionRounds(t *testing.T) {
	v := approximate(t, "1/3", symcalc.DefaultContext(), symcalc.SinglePrecision)
	assert.Equal(t, float64(float32(1.0/3)), real(v.Scalar()))
}

func TestApproximate_Undefined(t *testing.T) {
	ctx := symcalc.DefaultContext()
	for _, in := range []string{"1/0", "ln(0)", "x", "sqrt(-1)", "undef+1", "[[1]]+1"} {
		v := approximate(t, in, ctx, symcalc.DoublePrecision)
		if !v.IsUndefined() {
			t.Errorf("%s: want undef, got %s", in, v)
		}
		if v.String() != "undef" {
			t.Errorf("%s: want text undef, got %s", in, v)
		}
	}
}

func TestApproximate_TangentPolesAgreeAcrossPrecisions(t *testing.T) {
	radian := symcalc.DefaultContext()
	cartesian := symcalc.DefaultContext()
	cartesian.ComplexFormat = symcalc.ComplexCartesian
	degree := symcalc.DefaultContext()
	degree.AngleUnit = symcalc.AngleDegree
	cases := []struct {
		in  string
		ctx symcalc.ReductionContext
	}{
		{"tan(pi/2)", radian},
		{"tan(pi/2)", cartesian},
		{"tan(-pi/2)", radian},
		{"tan(3*pi/2)", radian},
		{"tan(90)", degree},
	}
	for _, c := range cases {
		for _, p := range []symcalc.Precision{symcalc.DoublePrecision, symcalc.SinglePrecision} {
			v := approximate(t, c.in, c.ctx, p)
			if !v.IsUndefined() {
				t.Errorf("%s in %s precision: want undef, got %s", c.in, p, v)
			}
		}
	}
	// Close to the pole but not on it.
	v := approximate(t, "tan(1.57)", radian, symcalc.SinglePrecision)
	assert.InDelta(t, math.Tan(1.57), real(v.Scalar()), 0.5)
}

func TestApproximate_RankIgnoresRoundOff(t *testing.T) {
	ctx := symcalc.DefaultContext()
	cases := []struct {
		in   string
		want float64
	}{
		{"rank([[1,2,3][4,5,6][7,8,9]])", 2},
		{"rank([[0.1,0.2][0.3,0.6]])", 1},
		{"rank([[1e-20,0][0,1e-20]])", 2},
		{"rank([[0,0][0,0]])", 0},
		{"rank([[2,1][1,3]])", 2},
	}
	for _, c := range cases {
		for _, p := range []symcalc.Precision{symcalc.DoublePrecision, symcalc.SinglePrecision} {
			v := approximate(t, c.in, ctx, p)
			if real(v.Scalar()) != c.want {
				t.Errorf("%s in %s precision: want %g, got %s", c.in, p, c.want, v)
			}
		}
	}
}

func TestApproximate_Complex(t *testing.T) {
	ctx := symcalc.DefaultContext().WithComplexFormat(symcalc.ComplexCartesian)
	v := approximate(t, "sqrt(-1)", ctx, symcalc.DoublePrecision)
	assert.InDelta(t, 0, real(v.Scalar()), 1e-15)
	assert.InDelta(t, 1, imag(v.Scalar()), 1e-15)

	// i in the input switches a Real context to cartesian.
	v = approximate(t, "2+3*i", symcalc.DefaultContext(), symcalc.DoublePrecision)
	assert.Equal(t, complex(2, 3), v.Scalar())
	assert.Equal(t, "2+3*i", v.String())
}

func TestApproximate_AngleUnit(t *testing.T) {
	ctx := symcalc.DefaultContext()
	ctx.AngleUnit = symcalc.AngleDegree
	v := approximate(t, "cos(60)", ctx, symcalc.DoublePrecision)
	assert.InDelta(t, 0.5, real(v.Scalar()), 1e-12)

	ctx.AngleUnit = symcalc.AngleGradian
	v = approximate(t, "sin(100)", ctx, symcalc.DoublePrecision)
	assert.InDelta(t, 1, real(v.Scalar()), 1e-12)
}

func TestApproximate_Units(t *testing.T) {
	v := approximate(t, "3_km", symcalc.DefaultContext(), symcalc.DoublePrecision)
	assert.InDelta(t, 3000, real(v.Scalar()), 1e-9)
}

// ============================================================
// Matrices
// ============================================================

func TestApproximate_MatrixProduct(t *testing.T) {
	v := approximate(t, "[[1,2][3,4]]*[[0,1][1,0]]", symcalc.DefaultContext(), symcalc.DoublePrecision)
	require.True(t, v.IsMatrix())
	assert.Equal(t, 2, v.Rows())
	assert.Equal(t, 2, v.Cols())
	assert.Equal(t, complex(2, 0), v.At(0, 0))
	assert.Equal(t, complex(1, 0), v.At(0, 1))
	assert.Equal(t, complex(4, 0), v.At(1, 0))
	assert.Equal(t, "[[2,1][4,3]]", v.String())
}

func TestApproximate_MatrixInverse(t *testing.T) {
	v := approximate(t, "inverse([[2,0][0,4]])", symcalc.DefaultContext(), symcalc.DoublePrecision)
	require.True(t, v.IsMatrix())
	assert.InDelta(t, 0.5, real(v.At(0, 0)), 1e-15)
	assert.InDelta(t, 0.25, real(v.At(1, 1)), 1e-15)

	v = approximate(t, "inverse([[1,2][2,4]])", symcalc.DefaultContext(), symcalc.DoublePrecision)
	assert.True(t, v.IsUndefined() || cmplx.IsNaN(v.At(0, 0)))
}

func TestApproximate_MatrixMismatch(t *testing.T) {
	v := approximate(t, "[[1,2]]*[[1,2]]", symcalc.DefaultContext(), symcalc.DoublePrecision)
	assert.True(t, v.IsUndefined())
}

// ============================================================
// Plotting helpers
// ============================================================

func TestApproximate_WithValueForSymbol(t *testing.T) {
	a := symcalc.NewArena(0)
	e := parse.MustParse(a, "x^2+1")
	defer e.Release()
	ctx := symcalc.DefaultContext()
	for _, x := range []float64{-2, 0, 0.5, 3} {
		assert.InDelta(t, x*x+1, e.ApproximateWithValueForSymbol(ctx, symcalc.DoublePrecision, "x", x), 1e-12)
	}
	assert.True(t, math.IsNaN(e.ApproximateToScalar(ctx, symcalc.DoublePrecision)), "x is free")
}

func TestApproximate_ToScalarRejectsNonReal(t *testing.T) {
	a := symcalc.NewArena(0)
	e := parse.MustParse(a, "i")
	defer e.Release()
	assert.True(t, math.IsNaN(e.ApproximateToScalar(symcalc.DefaultContext(), symcalc.DoublePrecision)))
}

func TestApproximate_DefinitionsThroughContext(t *testing.T) {
	a := symcalc.NewArena(0)
	table := symcalc.NewSymbolTable(a)
	table.Set("r", parse.MustParse(a, "2"))
	ctx := symcalc.DefaultContext()
	ctx.Symbols = table
	e := parse.MustParse(a, "pi*r^2")
	defer e.Release()
	assert.InDelta(t, 4*math.Pi, e.ApproximateToScalar(ctx, symcalc.DoublePrecision), 1e-12)
}

func TestApproximate_Derivative(t *testing.T) {
	v := approximate(t, "diff(x^3,x,2)", symcalc.DefaultContext(), symcalc.DoublePrecision)
	assert.InDelta(t, 12, real(v.Scalar()), 1e-6)
}

func TestEvaluationToExpr(t *testing.T) {
	a := symcalc.NewArena(0)
	v := approximate(t, "[[1,2][3,4]]*2", symcalc.DefaultContext(), symcalc.DoublePrecision)
	e := a.EvaluationToExpr(v, symcalc.ComplexReal)
	defer e.Release()
	assert.Equal(t, "[[2,4][6,8]]", e.Serialize())
}
