package symcalc_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/njchilds90/symcalc"
	"github.com/njchilds90/symcalc/parse"
)

func newSession(opts ...symcalc.Option) *symcalc.Session {
	return symcalc.NewSession(append(opts, symcalc.WithParser(parse.Parse))...)
}

// simplify parses, reduces and beautifies input in a fresh session.
func simplify(t *testing.T, input string, opts ...symcalc.Option) string {
	t.Helper()
	res, err := newSession(opts...).Eval(input)
	require.NoError(t, err, input)
	return res.Exact
}

// ============================================================
// Arithmetic
// ============================================================

func TestReduce_Arithmetic(t *testing.T) {
	cases := []struct{ in, want string }{
		{"2+3*4", "14"},
		{"1/2+1/3", "5/6"},
		{"2^10", "1024"},
		{"4^(1/2)", "2"},
		{"(-8)^(1/3)", "-2"},
		{"0.5+x", "x+1/2"},
		{"7-10", "-3"},
		{"-(2*3)", "-6"},
	}
	for _, c := range cases {
		if got := simplify(t, c.in); got != c.want {
			t.Errorf("%s: want %s, got %s", c.in, c.want, got)
		}
	}
}

func TestReduce_CollectsLikeTerms(t *testing.T) {
	cases := []struct{ in, want string }{
		{"x+x", "2*x"},
		{"x-x", "0"},
		{"x*x", "x^2"},
		{"2*x*3", "6*x"},
		{"2*x*y+3*y*x", "5*x*y"},
		{"x^-1", "1/x"},
		{"2-x", "-x+2"},
		{"acos(0)", "π/2"},
	}
	for _, c := range cases {
		if got := simplify(t, c.in); got != c.want {
			t.Errorf("%s: want %s, got %s", c.in, c.want, got)
		}
	}
}

func TestReduce_Functions(t *testing.T) {
	cases := []struct{ in, want string }{
		{"floor(7/2)", "3"},
		{"ceil(7/2)", "4"},
		{"abs(-3)", "3"},
		{"sign(-5)", "-1"},
		{"ln(1)", "0"},
		{"ln(e)", "1"},
		{"sin(0)", "0"},
		{"cos(pi)", "-1"},
		{"sin(pi/6)", "1/2"},
	}
	for _, c := range cases {
		if got := simplify(t, c.in); got != c.want {
			t.Errorf("%s: want %s, got %s", c.in, c.want, got)
		}
	}
}

func TestReduce_AngleUnit(t *testing.T) {
	ctx := symcalc.DefaultContext()
	ctx.AngleUnit = symcalc.AngleDegree
	assert.Equal(t, "1", simplify(t, "sin(90)", symcalc.WithContext(ctx)))
	assert.Equal(t, "-1", simplify(t, "cos(180)", symcalc.WithContext(ctx)))
}

// ============================================================
// Undefined and nonreal
// ============================================================

func TestReduce_Undefined(t *testing.T) {
	for _, in := range []string{"1/0", "ln(0)", "x+undef", "sin({1,2})", "tan(pi/2)"} {
		if got := simplify(t, in); got != "undef" {
			t.Errorf("%s: want undef, got %s", in, got)
		}
	}
}

func TestReduce_ComplexFormat(t *testing.T) {
	assert.Equal(t, "nonreal", simplify(t, "(-4)^(1/2)"))
	cartesian := symcalc.DefaultContext().WithComplexFormat(symcalc.ComplexCartesian)
	assert.Equal(t, "2*i", simplify(t, "(-4)^(1/2)", symcalc.WithContext(cartesian)))
	assert.Equal(t, "-1", simplify(t, "i^2", symcalc.WithContext(cartesian)))
}

// ============================================================
// Dependencies
// ============================================================

func TestReduce_CancellationKeepsDependency(t *testing.T) {
	a := symcalc.NewArena(0)
	r := parse.MustParse(a, "x/x").DeepReduce(symcalc.DefaultContext())
	defer r.Release()
	require.Equal(t, symcalc.KindDependency, r.Kind())
	assert.Equal(t, "1", r.Child(0).Serialize())
	assert.Equal(t, "x^(-1)", r.Child(1).Child(0).Serialize())
}

func TestReduce_AnalysisDropsDependency(t *testing.T) {
	a := symcalc.NewArena(0)
	ctx := symcalc.DefaultContext().WithTarget(symcalc.TargetSystemForAnalysis)
	r := parse.MustParse(a, "x/x").DeepReduce(ctx)
	defer r.Release()
	assert.Equal(t, "1", r.Serialize())
}

func TestReduce_BeautifyDropsDependency(t *testing.T) {
	assert.Equal(t, "1", simplify(t, "x/x"))
}

func TestReduce_UndefinedDependency(t *testing.T) {
	a := symcalc.NewArena(0)
	e := a.Dependency(a.Symbol("x"), a.List(a.Pow(a.Integer(0), a.Integer(-1))))
	r := e.DeepReduce(symcalc.DefaultContext())
	defer r.Release()
	assert.Equal(t, "undef", r.Serialize())
}

// ============================================================
// Canonical form
// ============================================================

func TestReduce_Idempotent(t *testing.T) {
	a := symcalc.NewArena(0)
	ctx := symcalc.DefaultContext()
	for _, in := range []string{"x+x", "2*x*y+3*y*x", "(x+1)^2", "sin(x)^2+cos(x)", "[[1,x][x,1]]*2", "y-3/4*x"} {
		once := parse.MustParse(a, in).DeepReduce(ctx)
		twice := once.Clone().DeepReduce(ctx)
		if !once.IsIdenticalTo(twice) {
			t.Errorf("%s: %s reduced again to %s", in, once.Serialize(), twice.Serialize())
		}
		once.Release()
		twice.Release()
	}
	assert.Zero(t, a.Used())
}

func TestReduce_OrderIndependent(t *testing.T) {
	a := symcalc.NewArena(0)
	ctx := symcalc.DefaultContext()
	x := parse.MustParse(a, "y*3+x+2").DeepReduce(ctx)
	y := parse.MustParse(a, "2+x+3*y").DeepReduce(ctx)
	defer x.Release()
	defer y.Release()
	assert.True(t, x.IsIdenticalTo(y), "%s vs %s", x.Serialize(), y.Serialize())
	assert.Equal(t, "x+3*y+2", x.Serialize())
}

// ============================================================
// Symbols
// ============================================================

func TestReduce_ReplacesDefinitions(t *testing.T) {
	s := newSession()
	for name, def := range map[string]string{"y": "3", "f": "2*y"} {
		e, err := s.Parse(def)
		require.NoError(t, err)
		require.NoError(t, s.Define(name, e))
		e.Release()
	}
	res, err := s.Eval("f+1")
	require.NoError(t, err)
	assert.Equal(t, "7", res.Exact)
	assert.Equal(t, "7", res.Approximate)
}

func TestReduce_CircularDefinitionIsUndefined(t *testing.T) {
	s := newSession()
	e, err := s.Parse("f+1")
	require.NoError(t, err)
	require.NoError(t, s.Define("f", e))
	e.Release()
	assert.True(t, symcalc.IsCircular(s.Symbols(), "f", mustDefinition(t, s, "f")))

	res, err := s.Eval("f")
	require.NoError(t, err)
	assert.Equal(t, "undef", res.Exact)
	assert.Equal(t, "undef", res.Approximate)
}

func mustDefinition(t *testing.T, s *symcalc.Session, name string) symcalc.Expr {
	t.Helper()
	def, ok := s.Symbols().Definition(name)
	require.True(t, ok, name)
	return def
}

func TestReduce_SymbolPolicies(t *testing.T) {
	ctx := symcalc.DefaultContext().WithSymbolicComputation(symcalc.ReplaceAllSymbolsWithUndefined)
	assert.Equal(t, "undef", simplify(t, "x+1", symcalc.WithContext(ctx)))

	ctx = symcalc.DefaultContext().WithSymbolicComputation(symcalc.ReplaceAllSymbolsWithDefinitionsOrUndefined)
	assert.Equal(t, "undef", simplify(t, "x+1", symcalc.WithContext(ctx)))

	s := newSession(symcalc.WithContext(symcalc.DefaultContext().WithSymbolicComputation(symcalc.DoNotReplaceAnySymbol)))
	three, err := s.Parse("3")
	require.NoError(t, err)
	require.NoError(t, s.Define("y", three))
	three.Release()
	res, err := s.Eval("y+y")
	require.NoError(t, err)
	assert.Equal(t, "2*y", res.Exact)
}

func TestReduce_FreeSymbols(t *testing.T) {
	a := symcalc.NewArena(0)
	e := parse.MustParse(a, "x+sin(y)*diff(t^2,t,z)")
	defer e.Release()
	got := symcalc.FreeSymbols(e)
	assert.True(t, got.Contains("x"))
	assert.True(t, got.Contains("y"))
	assert.True(t, got.Contains("z"))
	assert.False(t, got.Contains("t"), "the variable of diff is bound")
	assert.Equal(t, 3, got.Size())
}

// ============================================================
// Units
// ============================================================

func TestReduce_UnitsConvertToBase(t *testing.T) {
	assert.Equal(t, "2000*_m", simplify(t, "2_km"))
	assert.Equal(t, "undef", simplify(t, "sin(_m)"))
}
