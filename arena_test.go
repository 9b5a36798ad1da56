package symcalc_test

import (
	"fmt"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/njchilds90/symcalc"
	"github.com/njchilds90/symcalc/parse"
)

// ============================================================
// Arena accounting
// ============================================================

func TestArena_ReleaseReturnsToBaseline(t *testing.T) {
	a := symcalc.NewArena(0)
	base := a.Used()
	e := parse.MustParse(a, "2*x+sin(y)^2-[[1,2][3,4]]")
	if a.Used() <= base {
		t.Fatalf("want occupancy above %d after parsing, got %d", base, a.Used())
	}
	e.Release()
	if a.Used() != base {
		t.Errorf("want %d bytes after release, got %d", base, a.Used())
	}
	if a.LiveNodes() != 0 {
		t.Errorf("want no live nodes, got %d", a.LiveNodes())
	}
}

func TestArena_ReduceDoesNotLeak(t *testing.T) {
	a := symcalc.NewArena(0)
	for _, in := range []string{"x+x+1", "2+3*4", "x*x/x", "1/3*x+5/6*x", "det([[1,2][3,4]])"} {
		e := parse.MustParse(a, in)
		r := e.DeepReduce(symcalc.DefaultContext())
		r.Release()
		assert.Equal(t, 0, a.Used(), "occupancy after reducing %s", in)
		assert.Equal(t, 0, a.LiveNodes(), "live nodes after reducing %s", in)
	}
}

func TestArena_DefaultCapacity(t *testing.T) {
	a := symcalc.NewArena(-1)
	if a.Capacity() != symcalc.DefaultArenaSize {
		t.Errorf("want %d, got %d", symcalc.DefaultArenaSize, a.Capacity())
	}
}

func TestArena_PeakTracksHighWater(t *testing.T) {
	a := symcalc.NewArena(0)
	e := parse.MustParse(a, "x+y+z")
	used := a.Used()
	e.Release()
	assert.Equal(t, used, a.Peak())
	assert.Zero(t, a.Used())
}

func TestArena_ExhaustionIsSticky(t *testing.T) {
	a := symcalc.NewArena(64)
	var last symcalc.Expr
	for i := 0; i < 10; i++ {
		last = a.Symbol(fmt.Sprintf("s%d", i))
	}
	require.True(t, last.IsUninitialized())
	require.True(t, errors.Is(a.Err(), symcalc.ErrOutOfArenaSpace))
	// Even a tiny allocation fails until the error is cleared.
	assert.True(t, a.Integer(1).IsUninitialized())
	a.Reset()
	assert.NoError(t, a.Err())
	assert.Zero(t, a.Used())
	assert.False(t, a.Integer(1).IsUninitialized())
}

// ============================================================
// Reference counting
// ============================================================

func TestRefCount_ParentLinkHoldsChild(t *testing.T) {
	a := symcalc.NewArena(0)
	x := a.Symbol("x")
	if x.RefCount() != 1 {
		t.Fatalf("want 1, got %d", x.RefCount())
	}
	sum := a.Add(x, a.Integer(1))
	assert.Equal(t, 1, x.RefCount(), "attaching moves the hold into the parent link")
	assert.True(t, x.HasParent())
	assert.Equal(t, 0, x.IndexInParent())

	x.Retain()
	assert.Equal(t, 2, x.RefCount())
	sum.Release()
	assert.False(t, x.HasParent())
	assert.Equal(t, "x", x.Name())
	assert.Equal(t, 1, x.RefCount())
	x.Release()
	assert.Zero(t, a.Used())
}

func TestRefCount_UninitializedIsInert(t *testing.T) {
	var e symcalc.Expr
	assert.True(t, e.IsUninitialized())
	assert.Equal(t, symcalc.KindUninitialized, e.Kind())
	assert.Zero(t, e.NumChildren())
	assert.Zero(t, e.RefCount())
	assert.NotPanics(t, func() { e.Release() })
}

func TestRefCount_BuilderWithUninitializedChild(t *testing.T) {
	a := symcalc.NewArena(0)
	y := a.Symbol("y")
	s := a.Add(symcalc.Expr{}, y)
	assert.True(t, s.IsUninitialized())
	y.Release()
	assert.Zero(t, a.Used())
}

// ============================================================
// Tree edits
// ============================================================

func TestExpr_AddChildRequiresRoot(t *testing.T) {
	a := symcalc.NewArena(0)
	x := a.Symbol("x")
	s := a.Add(x)
	p := a.Mul()
	assert.Panics(t, func() { p.AddChild(x) })
	p.AddChild(x.Clone())
	assert.Equal(t, "x", p.Serialize())
	s.Release()
	p.Release()
	assert.Zero(t, a.Used())
}

func TestExpr_AddChildUnderItselfPanics(t *testing.T) {
	a := symcalc.NewArena(0)
	s := a.Add(a.Symbol("x"))
	assert.Panics(t, func() { s.Child(0).AddChild(s) })
	s.Release()
}

func TestExpr_DetachChild(t *testing.T) {
	a := symcalc.NewArena(0)
	s := a.Add(a.Symbol("x"), a.Symbol("y"))
	c := s.DetachChildAtIndex(0)
	assert.False(t, c.HasParent())
	assert.Equal(t, 1, s.NumChildren())
	assert.Equal(t, "y", s.Serialize())
	c.Release()
	s.Release()
	assert.Zero(t, a.Used())
}

func TestExpr_ReplaceChildInPlace(t *testing.T) {
	a := symcalc.NewArena(0)
	s := a.Add(a.Symbol("x"), a.Symbol("y"))
	r := s.Child(0).ReplaceWithInPlace(a.Integer(3))
	assert.Equal(t, "3", r.Serialize())
	assert.Equal(t, "3+y", s.Serialize())
	s.Release()
	assert.Zero(t, a.Used())
}

func TestExpr_ReplaceRootWithDescendant(t *testing.T) {
	a := symcalc.NewArena(0)
	s := a.Add(a.Symbol("x"), a.Symbol("y"))
	r := s.ReplaceWithInPlace(s.Child(1))
	assert.Equal(t, "y", r.Serialize())
	assert.False(t, r.HasParent())
	r.Release()
	assert.Zero(t, a.Used())
}

func TestExpr_SwapAndRemove(t *testing.T) {
	a := symcalc.NewArena(0)
	l := a.List(a.Integer(1), a.Integer(2), a.Integer(3))
	l.SwapChildren(0, 2)
	assert.Equal(t, "{3,2,1}", l.Serialize())
	l.RemoveChildAtIndex(1)
	assert.Equal(t, "{3,1}", l.Serialize())
	l.AddChildAtIndex(a.Symbol("x"), 1)
	assert.Equal(t, "{3,x,1}", l.Serialize())
	l.Release()
	assert.Zero(t, a.Used())
}

func TestExpr_CloneIsIdentical(t *testing.T) {
	a := symcalc.NewArena(0)
	e := parse.MustParse(a, "sin(x)+2/3*[[1,y]]")
	used := a.Used()
	c := e.Clone()
	assert.True(t, c.IsIdenticalTo(e))
	assert.NotEqual(t, e.ID(), c.ID())
	assert.Equal(t, 2*used, a.Used())
	c.Child(0).ReplaceWithInPlace(a.Integer(0))
	assert.False(t, c.IsIdenticalTo(e))
	c.Release()
	e.Release()
	assert.Zero(t, a.Used())
}

func TestExpr_CloneIsAllOrNothing(t *testing.T) {
	for _, in := range []string{"[[1,2,3][4,5,6]]", "diff(x^3,x,2)", "sin(x)+y*z"} {
		failed := 0
		for size := 40; size <= 1200; size += 4 {
			a := symcalc.NewArena(size)
			e, err := parse.Parse(a, in)
			if err != nil {
				continue
			}
			before := a.Used()
			c := e.Clone()
			if c.IsUninitialized() {
				failed++
				if a.Used() != before {
					t.Errorf("%s with %d bytes: want %d bytes after a failed clone, got %d", in, size, before, a.Used())
				}
				continue
			}
			if !c.IsIdenticalTo(e) {
				t.Errorf("%s with %d bytes: clone %s differs", in, size, c.Serialize())
			}
		}
		assert.Positive(t, failed, in)
	}
}

func TestExpr_RecursivelyMatches(t *testing.T) {
	a := symcalc.NewArena(0)
	e := parse.MustParse(a, "1+cos(2*pi)")
	defer e.Release()
	isPi := func(n symcalc.Expr) bool {
		return n.Kind() == symcalc.KindConstant && n.ConstantValue() == symcalc.ConstantPi
	}
	assert.True(t, e.RecursivelyMatches(isPi))
	assert.False(t, e.RecursivelyMatches(func(n symcalc.Expr) bool { return n.Kind() == symcalc.KindSymbol }))
}

func TestExpr_NodeChecksArity(t *testing.T) {
	a := symcalc.NewArena(0)
	assert.Panics(t, func() { a.Node(symcalc.KindPower, a.Integer(1)) })
	assert.Panics(t, func() { a.Matrix(2, 2, a.Integer(1)) })
}

func TestExpr_Payloads(t *testing.T) {
	a := symcalc.NewArena(0)
	r := a.Rational(6, -4)
	assert.Equal(t, "-3/2", r.RationalValue().RatString())
	assert.Nil(t, a.Symbol("x").RationalValue())
	m := a.IdentityMatrix(3)
	assert.Equal(t, 3, m.Rows())
	assert.Equal(t, 3, m.Cols())
	assert.Equal(t, "1", m.MatrixChild(2, 2).Serialize())
	assert.Equal(t, "0", m.MatrixChild(0, 2).Serialize())
}

// ============================================================
// Checkpoints
// ============================================================

func TestCheckpoint_RollsBackOnExhaustion(t *testing.T) {
	a := symcalc.NewArena(256)
	keep := a.Symbol("keep")
	before := a.Used()

	r, err := symcalc.WithCheckpoint(a, func() symcalc.Expr {
		terms := make([]symcalc.Expr, 0, 100)
		for i := 0; i < 100; i++ {
			terms = append(terms, a.Symbol(fmt.Sprintf("x%d", i)))
		}
		return a.Add(terms...)
	})
	require.True(t, errors.Is(err, symcalc.ErrOutOfArenaSpace))
	assert.True(t, r.IsUninitialized())
	assert.NoError(t, a.Err())
	assert.Equal(t, before, a.Used())
	assert.Equal(t, "keep", keep.Name())
	assert.Equal(t, 1, a.LiveNodes())
}

func TestCheckpoint_PreexistingChildSurvivesRollback(t *testing.T) {
	a := symcalc.NewArena(256)
	x := a.Symbol("x")
	_, err := symcalc.WithCheckpoint(a, func() symcalc.Expr {
		s := a.Add(x.Retain(), a.Integer(1))
		for i := 0; i < 100; i++ {
			s.AddChild(a.Symbol(fmt.Sprintf("y%d", i)))
		}
		return s
	})
	require.Error(t, err)
	assert.False(t, x.HasParent())
	assert.Equal(t, "x", x.Serialize())
}

func TestCheckpoint_SuccessKeepsResult(t *testing.T) {
	a := symcalc.NewArena(0)
	r, err := symcalc.WithCheckpoint(a, func() symcalc.Expr {
		return a.Add(a.Symbol("x"), a.Integer(1))
	})
	require.NoError(t, err)
	assert.Equal(t, "x+1", r.Serialize())
	assert.Equal(t, 1, r.RefCount())
	r.Release()
}

func TestCheckpoint_NumericFallback(t *testing.T) {
	a := symcalc.NewArena(128)
	r := symcalc.TrySymbolicElseNumeric(a, func() (symcalc.Expr, bool) {
		for i := 0; i < 100; i++ {
			a.Symbol(fmt.Sprintf("z%d", i))
		}
		return a.Integer(0), true
	}, func() symcalc.Expr {
		return a.Integer(7)
	})
	assert.Equal(t, "7", r.Serialize())
	assert.NoError(t, a.Err())
}

func TestCheckpoint_SymbolicDeclines(t *testing.T) {
	a := symcalc.NewArena(0)
	r := symcalc.TrySymbolicElseNumeric(a, func() (symcalc.Expr, bool) {
		return a.Symbol("unused"), false
	}, func() symcalc.Expr {
		return a.Float(1.5)
	})
	assert.Equal(t, "1.5", r.Serialize())
	r.Release()
	assert.Zero(t, a.Used())
}

func TestCheckpoint_PanicWhileExhaustedRollsBack(t *testing.T) {
	a := symcalc.NewArena(128)
	r, err := symcalc.WithCheckpoint(a, func() symcalc.Expr {
		for i := 0; i < 100; i++ {
			a.Symbol(fmt.Sprintf("w%d", i))
		}
		var m symcalc.Expr
		return m.Child(0)
	})
	require.True(t, errors.Is(err, symcalc.ErrOutOfArenaSpace))
	assert.True(t, r.IsUninitialized())
	assert.NoError(t, a.Err())
	assert.Zero(t, a.Used())
}

func TestCheckpoint_OtherPanicsPropagate(t *testing.T) {
	a := symcalc.NewArena(0)
	assert.PanicsWithValue(t, "boom", func() {
		_, _ = symcalc.WithCheckpoint(a, func() symcalc.Expr { panic("boom") })
	})
}
