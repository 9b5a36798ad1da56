package symcalc_test

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/njchilds90/symcalc"
	"github.com/njchilds90/symcalc/parse"
)

// ============================================================
// Derivatives
// ============================================================

func derivate(t *testing.T, s *symcalc.Session, input, symbol string) (string, bool) {
	t.Helper()
	e, err := s.Parse(input)
	require.NoError(t, err, input)
	defer e.Release()
	d, ok, err := s.Derivate(e, symbol)
	require.NoError(t, err, input)
	if !ok {
		return "", false
	}
	defer d.Release()
	return d.Serialize(), true
}

func TestDerivate_Rules(t *testing.T) {
	s := newSession()
	cases := []struct{ in, want string }{
		{"5", "0"},
		{"y", "0"},
		{"x", "1"},
		{"x^2", "2*x"},
		{"3*x+1", "3"},
		{"sin(x)", "cos(x)"},
		{"x^3", "3*x^2"},
	}
	for _, c := range cases {
		got, ok := derivate(t, s, c.in, "x")
		if !ok || got != c.want {
			t.Errorf("d/dx(%s): want %s, got %s (ok=%v)", c.in, c.want, got, ok)
		}
	}
	assert.Zero(t, s.Arena().Used())
}

func TestDerivate_NotDifferentiable(t *testing.T) {
	s := newSession()
	for _, in := range []string{"floor(x)", "ceil(2*x)", "sign(x)", "[[x]]"} {
		if _, ok := derivate(t, s, in, "x"); ok {
			t.Errorf("d/dx(%s): want not differentiable", in)
		}
	}
	// Constant in the variable: differentiable whatever the function.
	got, ok := derivate(t, s, "floor(y)", "x")
	assert.True(t, ok)
	assert.Equal(t, "0", got)
}

func TestDerivate_MatchesNumericDerivative(t *testing.T) {
	a := symcalc.NewArena(0)
	ctx := symcalc.DefaultContext()
	for _, in := range []string{"sin(x)^2", "x*ln(x)", "e^(2*x)", "atan(x)", "sqrt(x)/(1+x)", "tanh(x)*x"} {
		e := parse.MustParse(a, in)
		d, ok := e.Derivate("x", ctx)
		require.True(t, ok, in)
		for _, x := range []float64{0.3, 1.2, 2.5} {
			want := numericDerivative(e, ctx, x)
			got := d.ApproximateWithValueForSymbol(ctx, symcalc.DoublePrecision, "x", x)
			assert.InDelta(t, want, got, 1e-5, "%s at %g", in, x)
		}
		d.Release()
		e.Release()
	}
	assert.Zero(t, a.Used())
}

func numericDerivative(e symcalc.Expr, ctx symcalc.ReductionContext, x float64) float64 {
	const h = 1e-6
	f := func(v float64) float64 {
		return e.ApproximateWithValueForSymbol(ctx, symcalc.DoublePrecision, "x", v)
	}
	return (f(x+h) - f(x-h)) / (2 * h)
}

func TestDerivate_DegreeAngleUnit(t *testing.T) {
	ctx := symcalc.DefaultContext()
	ctx.AngleUnit = symcalc.AngleDegree
	s := newSession(symcalc.WithContext(ctx))
	e, err := s.Parse("sin(x)")
	require.NoError(t, err)
	defer e.Release()
	d, ok, err := s.Derivate(e, "x")
	require.NoError(t, err)
	require.True(t, ok)
	defer d.Release()
	// d/dx sin(x°) = π/180 cos(x°)
	got := d.ApproximateWithValueForSymbol(s.Context(), symcalc.DoublePrecision, "x", 60)
	assert.InDelta(t, 0.5*3.141592653589793/180, got, 1e-12)
}

func TestDerivate_DerivativeNodeReduces(t *testing.T) {
	assert.Equal(t, "12", simplify(t, "diff(x^3,x,2)"))
	assert.Equal(t, "0", simplify(t, "diff(sin(x)^2,x,0)"))
	// The evaluation point may mention the outer symbol.
	assert.Equal(t, "2*y", simplify(t, "diff(x^2,x,y)"))
}

// ============================================================
// Polynomials
// ============================================================

func reduced(t *testing.T, a *symcalc.Arena, input string) symcalc.Expr {
	t.Helper()
	e, err := parse.Parse(a, input)
	require.NoError(t, err, input)
	return e.DeepReduce(symcalc.DefaultContext())
}

func TestPolynomialDegree(t *testing.T) {
	a := symcalc.NewArena(0)
	cases := []struct {
		in   string
		want int
	}{
		{"3", 0},
		{"y", 0},
		{"x", 1},
		{"x^2*y+x", 2},
		{"(x+1)^3", 3},
		{"x^3+x", 3},
		{"sin(x)", -1},
		{"1/x", -1},
		{"x^y", -1},
		{"sin(y)*x^2", 2},
	}
	for _, c := range cases {
		e := reduced(t, a, c.in)
		if got := e.PolynomialDegree(symcalc.DefaultContext(), "x"); got != c.want {
			t.Errorf("degree of %s: want %d, got %d", c.in, c.want, got)
		}
		e.Release()
	}
	assert.Zero(t, a.Used())
}

func TestPolynomialDegree_FollowsDefinitions(t *testing.T) {
	s := newSession()
	def, err := s.Parse("x^2")
	require.NoError(t, err)
	require.NoError(t, s.Define("y", def))
	def.Release()

	e, err := s.Parse("y*x")
	require.NoError(t, err)
	defer e.Release()
	assert.Equal(t, 3, e.PolynomialDegree(s.Context(), "x"))
	assert.Equal(t, 1, e.PolynomialDegree(symcalc.DefaultContext(), "x"), "no definitions in scope")
	keep := s.Context().WithSymbolicComputation(symcalc.DoNotReplaceAnySymbol)
	assert.Equal(t, 1, e.PolynomialDegree(keep, "x"))

	loop, err := s.Parse("g*x")
	require.NoError(t, err)
	require.NoError(t, s.Define("g", loop))
	loop.Release()
	g, err := s.Parse("g")
	require.NoError(t, err)
	defer g.Release()
	assert.Equal(t, -1, g.PolynomialDegree(s.Context(), "x"))
}

func TestPolynomialCoefficients(t *testing.T) {
	a := symcalc.NewArena(0)
	e := reduced(t, a, "(x+1)^2")
	defer e.Release()
	c, ok := e.PolynomialCoefficients("x", symcalc.DefaultContext())
	require.True(t, ok)
	got := make([]string, len(c))
	for i, x := range c {
		got[i] = x.Serialize()
		x.Release()
	}
	assert.Equal(t, []string{"1", "2", "1"}, got)

	_, ok = e.PolynomialCoefficients("y", symcalc.DefaultContext())
	assert.True(t, ok, "constant in y")

	high := reduced(t, a, "x^4")
	defer high.Release()
	_, ok = high.PolynomialCoefficients("x", symcalc.DefaultContext())
	assert.False(t, ok)
}

func roots(t *testing.T, s *symcalc.Session, input string) []string {
	t.Helper()
	e, err := s.Parse(input)
	require.NoError(t, err, input)
	defer e.Release()
	rs, err := s.Roots(e, "x")
	require.NoError(t, err, input)
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.Serialize()
		r.Release()
	}
	return out
}

func TestRoots_LinearAndQuadratic(t *testing.T) {
	s := newSession()
	assert.Equal(t, []string{"3"}, roots(t, s, "2*x-6"))
	assert.Equal(t, []string{"-2", "2"}, roots(t, s, "x^2-4"))
	assert.Equal(t, []string{"2"}, roots(t, s, "x^2-4*x+4"))
	assert.Empty(t, roots(t, s, "x^2+1"), "no real roots")
	assert.Zero(t, s.Arena().Used())
}

func TestRoots_ComplexQuadratic(t *testing.T) {
	s := newSession(symcalc.WithContext(symcalc.DefaultContext().WithComplexFormat(symcalc.ComplexCartesian)))
	got := roots(t, s, "x^2+1")
	assert.Equal(t, []string{"-i", "i"}, got)
}

func TestRoots_Cubic(t *testing.T) {
	s := newSession()
	e, err := s.Parse("x^3-6*x^2+11*x-6")
	require.NoError(t, err)
	defer e.Release()
	rs, err := s.Roots(e, "x")
	require.NoError(t, err)
	require.Len(t, rs, 3)
	values := make([]float64, len(rs))
	for i, r := range rs {
		values[i] = r.ApproximateToScalar(s.Context(), symcalc.DoublePrecision)
		r.Release()
	}
	sort.Float64s(values)
	for i, want := range []float64{1, 2, 3} {
		assert.InDelta(t, want, values[i], 1e-9)
	}
}

func TestRoots_NotAPolynomial(t *testing.T) {
	s := newSession()
	e, err := s.Parse("sin(x)")
	require.NoError(t, err)
	defer e.Release()
	_, err = s.Roots(e, "x")
	assert.Error(t, err)
}
