package symcalc_test

import (
	"bytes"
	"log/slog"
	"math/cmplx"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/njchilds90/symcalc"
)

func TestSession_Eval(t *testing.T) {
	s := newSession()
	res, err := s.Eval("x+x+1/2")
	require.NoError(t, err)
	assert.Equal(t, "x+x+1/2", res.Input)
	assert.Equal(t, "2*x+1/2", res.Exact)
	assert.Equal(t, "undef", res.Approximate, "x has no value")

	res, err = s.Eval("sqrt(8)")
	require.NoError(t, err)
	assert.Equal(t, "sqrt(8)", res.Exact)
	assert.Contains(t, res.Approximate, "2.82842712474619")
	assert.Zero(t, s.Arena().Used())
}

func TestSession_ParseErrors(t *testing.T) {
	s := newSession()
	_, err := s.Eval("1+")
	assert.True(t, errors.Is(err, symcalc.ErrParse))

	bare := symcalc.NewSession()
	_, err = bare.Parse("1")
	assert.True(t, errors.Is(err, symcalc.ErrParse), "no parser configured")
}

func TestSession_UninitializedInput(t *testing.T) {
	s := newSession()
	_, err := s.Reduce(symcalc.Expr{})
	assert.True(t, errors.Is(err, symcalc.ErrUninitialized))
	_, err = s.Approximate(symcalc.Expr{})
	assert.True(t, errors.Is(err, symcalc.ErrUninitialized))
}

func TestSession_ForeignArenaPanics(t *testing.T) {
	s := newSession()
	other := symcalc.NewArena(0)
	assert.Panics(t, func() { _, _ = s.Reduce(other.Integer(1)) })
}

func TestSession_CouldNotCompute(t *testing.T) {
	s := newSession(symcalc.WithArenaSize(200))
	_, err := s.Eval("x+y+z+w+v+u+t+s+r+q+p+o")
	assert.True(t, errors.Is(err, symcalc.ErrCouldNotCompute))
	assert.NoError(t, s.Arena().Err(), "the checkpoint clears the error")
}

// values approximates input in a fresh session, entry by entry.
func values(t *testing.T, input string) []complex128 {
	t.Helper()
	s := newSession()
	e, err := s.Parse(input)
	require.NoError(t, err, input)
	defer e.Release()
	v, err := s.Approximate(e)
	require.NoError(t, err, input)
	if v.IsMatrix() {
		return v.Values()
	}
	return []complex128{v.Scalar()}
}

func closeValues(got, want []complex128) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range want {
		if cmplx.IsNaN(got[i]) || cmplx.IsNaN(want[i]) || cmplx.Abs(got[i]-want[i]) > 1e-6 {
			return false
		}
	}
	return true
}

// Whatever the arena size, a computation either gives the right answer or
// reports that it could not compute, and leaves the arena empty.
func TestSession_ArenaCapacitySweep(t *testing.T) {
	for _, in := range []string{
		"rank([[1,2,3][4,5,6][7,8,9]])",
		"rref([[1,2,3][4,5,6]])",
		"ref([[0,1][2,3][4,5]])",
		"diff(x^3,x,2)",
		"det([[2,0,1][1,3,2][1,1,4]])",
		"inverse([[1,2][3,4]])",
	} {
		ref, err := newSession().Eval(in)
		require.NoError(t, err, in)
		want := values(t, ref.Exact)

		answered, refused := 0, 0
		for size := 100; size <= 6000; size += 10 {
			s := newSession(symcalc.WithArenaSize(size))
			res, err := s.Eval(in)
			if err != nil {
				refused++
				if !errors.Is(err, symcalc.ErrCouldNotCompute) {
					t.Errorf("%s with %d bytes: want ErrCouldNotCompute, got %v", in, size, err)
				}
			} else {
				answered++
				if !closeValues(values(t, res.Exact), want) {
					t.Errorf("%s with %d bytes: want %s, got %s", in, size, ref.Exact, res.Exact)
				}
			}
			if s.Arena().Used() != 0 {
				t.Errorf("%s with %d bytes: %d bytes still in use", in, size, s.Arena().Used())
			}
			require.NoError(t, s.Arena().Err(), "%s with %d bytes", in, size)
		}
		assert.Positive(t, answered, in)
		assert.Positive(t, refused, in)
	}
}

func TestSession_RankFallbackStaysExact(t *testing.T) {
	for size := 500; size <= 1200; size += 10 {
		s := newSession(symcalc.WithArenaSize(size))
		res, err := s.Eval("rank([[1,2,3][4,5,6][7,8,9]])")
		if err != nil {
			continue
		}
		if res.Exact != "2" {
			t.Errorf("with %d bytes: want 2, got %s", size, res.Exact)
		}
	}
}

func TestSession_DefineAndUndefine(t *testing.T) {
	s := newSession()
	e, err := s.Parse("2*a")
	require.NoError(t, err)
	require.NoError(t, s.Define("b", e))
	e.Release()
	assert.Equal(t, []string{"b"}, s.Symbols().Names())

	res, err := s.Eval("b+1")
	require.NoError(t, err)
	assert.Equal(t, "2*a+1", res.Exact)

	s.Undefine("b")
	res, err = s.Eval("b+1")
	require.NoError(t, err)
	assert.Equal(t, "b+1", res.Exact)
	assert.Zero(t, s.Arena().Used())
}

func TestSession_CircularDefinitionWarns(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}))
	s := newSession(symcalc.WithLogger(logger))
	e, err := s.Parse("g*2")
	require.NoError(t, err)
	require.NoError(t, s.Define("g", e))
	e.Release()
	assert.Contains(t, buf.String(), "circular definition")
	assert.Contains(t, buf.String(), "symbol=g")
}

func TestSession_SetContextKeepsSymbols(t *testing.T) {
	s := newSession()
	e, err := s.Parse("90")
	require.NoError(t, err)
	require.NoError(t, s.Define("q", e))
	e.Release()

	ctx := symcalc.DefaultContext()
	ctx.AngleUnit = symcalc.AngleDegree
	s.SetContext(ctx)
	res, err := s.Eval("sin(q)")
	require.NoError(t, err)
	assert.Equal(t, "1", res.Exact)
}

func TestSession_Reset(t *testing.T) {
	s := newSession()
	e, err := s.Parse("1")
	require.NoError(t, err)
	require.NoError(t, s.Define("k", e))
	s.Reset()
	assert.Empty(t, s.Symbols().Names())
	assert.Zero(t, s.Arena().Used())
	res, err := s.Eval("k")
	require.NoError(t, err)
	assert.Equal(t, "k", res.Exact)
}

func TestSession_SinglePrecision(t *testing.T) {
	s := newSession(symcalc.WithPrecision(symcalc.SinglePrecision))
	e, err := s.Parse("1/3")
	require.NoError(t, err)
	defer e.Release()
	v, err := s.Approximate(e)
	require.NoError(t, err)
	assert.Equal(t, float64(float32(1.0/3)), real(v.Scalar()))
}

func TestSession_IDsDiffer(t *testing.T) {
	assert.NotEqual(t, newSession().ID, newSession().ID)
}
