package symcalc_test

import (
	"math/rand"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/njchilds90/symcalc"
	"github.com/njchilds90/symcalc/parse"
)

// matrixText renders integer rows in the parser's matrix syntax.
func matrixText(rows [][]int) string {
	var b strings.Builder
	b.WriteByte('[')
	for _, row := range rows {
		b.WriteByte('[')
		for j, v := range row {
			if j > 0 {
				b.WriteByte(',')
			}
			b.WriteString(strconv.Itoa(v))
		}
		b.WriteByte(']')
	}
	b.WriteByte(']')
	return b.String()
}

func randomMatrix(rng *rand.Rand, rows, cols, bound int) [][]int {
	m := make([][]int, rows)
	for i := range m {
		m[i] = make([]int, cols)
		for j := range m[i] {
			m[i][j] = rng.Intn(2*bound+1) - bound
		}
	}
	return m
}

// laplace expands the determinant along the first row.
func laplace(m [][]int) int {
	if len(m) == 1 {
		return m[0][0]
	}
	det, sign := 0, 1
	for j := range m[0] {
		minor := make([][]int, 0, len(m)-1)
		for _, row := range m[1:] {
			r := append(append([]int(nil), row[:j]...), row[j+1:]...)
			minor = append(minor, r)
		}
		det += sign * m[0][j] * laplace(minor)
		sign = -sign
	}
	return det
}

// ============================================================
// Determinant
// ============================================================

func TestDeterminant_ExplicitAgreesWithGeneral(t *testing.T) {
	a := symcalc.NewArena(0)
	ctx := symcalc.DefaultContext()
	cases := []struct{ in, want string }{
		{"[[7]]", "7"},
		{"[[1,2][3,4]]", "-2"},
		{"[[1,2][2,4]]", "0"},
		{"[[2,0,1][1,3,2][1,1,2]]", "6"},
		{"[[1/2,0][0,4]]", "2"},
	}
	for _, c := range cases {
		m := parse.MustParse(a, c.in)
		explicit, ok := m.Determinant(ctx)
		require.True(t, ok, c.in)
		general, ok := m.DeterminantGeneral(ctx)
		require.True(t, ok, c.in)
		if explicit.Serialize() != c.want {
			t.Errorf("det %s: want %s, got %s", c.in, c.want, explicit.Serialize())
		}
		if general.Serialize() != c.want {
			t.Errorf("general det %s: want %s, got %s", c.in, c.want, general.Serialize())
		}
		explicit.Release()
		general.Release()
		m.Release()
	}
	assert.Zero(t, a.Used())
}

func TestDeterminant_RandomIntegerMatrices(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	a := symcalc.NewArena(0)
	ctx := symcalc.DefaultContext()
	for dim := 1; dim <= 4; dim++ {
		for n := 0; n < 25; n++ {
			rows := randomMatrix(rng, dim, dim, 5)
			text := matrixText(rows)
			want := strconv.Itoa(laplace(rows))
			m := parse.MustParse(a, text)

			general, ok := m.DeterminantGeneral(ctx)
			require.True(t, ok, text)
			if got := general.Serialize(); got != want {
				t.Errorf("general det %s: want %s, got %s", text, want, got)
			}
			d, ok := m.Determinant(ctx)
			require.True(t, ok, text)
			if got := d.Serialize(); got != want {
				t.Errorf("det %s: want %s, got %s", text, want, got)
			}
			general.Release()
			d.Release()
			m.Release()
		}
	}
	assert.Zero(t, a.Used())
}

func TestDeterminant_LargeDimensions(t *testing.T) {
	a := symcalc.NewArena(0)
	ctx := symcalc.DefaultContext()
	cases := []struct{ in, want string }{
		{"[[1,0,0,0][0,2,0,0][0,0,3,0][0,0,0,4]]", "24"},
		{"[[1,2,0,0][3,4,0,0][0,0,1,1][0,0,0,2]]", "-4"},
		{"[[1,2,3,4][2,4,6,8][0,1,0,1][1,0,1,0]]", "0"},
	}
	for _, c := range cases {
		m := parse.MustParse(a, c.in)
		d, ok := m.Determinant(ctx)
		require.True(t, ok, c.in)
		assert.Equal(t, c.want, d.Serialize(), c.in)
		d.Release()
		m.Release()
	}
}

func TestDeterminant_NotSquare(t *testing.T) {
	a := symcalc.NewArena(0)
	m := parse.MustParse(a, "[[1,2,3][4,5,6]]")
	d, ok := m.Determinant(symcalc.DefaultContext())
	require.True(t, ok)
	assert.Equal(t, symcalc.KindUndefined, d.Kind())
}

func TestDeterminant_Symbolic(t *testing.T) {
	assert.Equal(t, "a*d-b*c", simplify(t, "det([[a,b][c,d]])"))
	assert.Equal(t, "5", simplify(t, "det(5)"), "a scalar is its own determinant")
}

func TestDeterminant_NumericFallbackOnSmallArena(t *testing.T) {
	a := symcalc.NewArena(400)
	m := parse.MustParse(a, "[[2,0,1][1,3,2][1,1,2]]")
	require.NoError(t, a.Err())
	d, ok := m.Determinant(symcalc.DefaultContext())
	require.True(t, ok)
	assert.InDelta(t, 6, d.ApproximateToScalar(symcalc.DefaultContext(), symcalc.DoublePrecision), 1e-9)
	assert.NoError(t, a.Err())
}

// ============================================================
// Row canonization
// ============================================================

func TestRowCanonize_SwapFlipsDeterminant(t *testing.T) {
	a := symcalc.NewArena(0)
	m := parse.MustParse(a, "[[0,1][1,0]]")
	res, det, ok := m.RowCanonize(symcalc.DefaultContext(), false, true, false)
	require.True(t, ok)
	defer res.Release()
	defer det.Release()
	assert.Equal(t, "-1", det.Serialize())
	assert.Equal(t, "[[1,0][0,1]]", res.Serialize())
}

func TestRowCanonize_ReducedEchelon(t *testing.T) {
	a := symcalc.NewArena(0)
	m := parse.MustParse(a, "[[1,2,3][4,5,6]]")
	res, _, ok := m.RowCanonize(symcalc.DefaultContext(), true, false, false)
	require.True(t, ok)
	defer res.Release()
	assert.Equal(t, "[[1,0,-1][0,1,2]]", res.Serialize())
}

func TestRowCanonize_UnknownMagnitude(t *testing.T) {
	a := symcalc.NewArena(0)
	m := parse.MustParse(a, "[[x,1][1,0]]")
	defer m.Release()
	_, _, ok := m.RowCanonize(symcalc.DefaultContext(), true, false, false)
	assert.False(t, ok, "x has no magnitude")
}

func TestRef_ThroughReduction(t *testing.T) {
	assert.Equal(t, "[[1,0,-1][0,1,2]]", simplify(t, "rref([[1,2,3][4,5,6]])"))
}

// ============================================================
// Rank
// ============================================================

func TestRank(t *testing.T) {
	a := symcalc.NewArena(0)
	ctx := symcalc.DefaultContext()
	cases := []struct {
		in   string
		want int
	}{
		{"[[1,2][2,4]]", 1},
		{"[[1,0][0,1]]", 2},
		{"[[0,0][0,0]]", 0},
		{"[[1,2,3][4,5,6][7,8,9]]", 2},
		{"[[1,2,3]]", 1},
		{"[[1,undef][0,1]]", -1},
	}
	for _, c := range cases {
		m := parse.MustParse(a, c.in)
		if got := m.Rank(ctx, false); got != c.want {
			t.Errorf("rank %s: want %d, got %d", c.in, c.want, got)
		}
		m.Release()
	}
	assert.Zero(t, a.Used())
}

func TestRank_AugmentNeverLowers(t *testing.T) {
	a := symcalc.NewArena(0)
	ctx := symcalc.DefaultContext()
	m := parse.MustParse(a, "[[1,2][2,4]]")
	b := parse.MustParse(a, "[[1][3]]")
	aug := m.Augment(b)
	assert.GreaterOrEqual(t, aug.Rank(ctx, false), m.Rank(ctx, false))
	assert.Equal(t, 2, aug.Rank(ctx, false))
}

func TestRank_AppendedRows(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	a := symcalc.NewArena(0)
	ctx := symcalc.DefaultContext()
	rank := func(rows [][]int) int {
		m := parse.MustParse(a, matrixText(rows))
		defer m.Release()
		return m.Rank(ctx, false)
	}
	checked := 0
	for n := 0; n < 40; n++ {
		base := randomMatrix(rng, 2, 3, 4)
		r0, r1 := base[0], base[1]
		normal := []int{
			r0[1]*r1[2] - r0[2]*r1[1],
			r0[2]*r1[0] - r0[0]*r1[2],
			r0[0]*r1[1] - r0[1]*r1[0],
		}
		if normal[0] == 0 && normal[1] == 0 && normal[2] == 0 {
			continue
		}
		checked++
		require.Equal(t, 2, rank(base), matrixText(base))

		c0, c1 := rng.Intn(7)-3, rng.Intn(7)-3
		combination := make([]int, 3)
		for j := range combination {
			combination[j] = c0*r0[j] + c1*r1[j]
		}
		withCombination := [][]int{r0, r1, combination}
		if got := rank(withCombination); got != 2 {
			t.Errorf("rank %s: a combination row must not raise the rank, got %d", matrixText(withCombination), got)
		}
		// The normal of the two rows lies outside their span.
		withNormal := [][]int{r0, r1, normal}
		if got := rank(withNormal); got != 3 {
			t.Errorf("rank %s: an independent row must raise the rank to 3, got %d", matrixText(withNormal), got)
		}
	}
	assert.Greater(t, checked, 20)
	assert.Zero(t, a.Used())
}

func TestRank_ThroughReduction(t *testing.T) {
	assert.Equal(t, "1", simplify(t, "rank([[1,2][2,4]])"))
	assert.Equal(t, "undef", simplify(t, "rank([[1,2][undef,4]])"))
}

// ============================================================
// Inverse
// ============================================================

func TestInverse(t *testing.T) {
	a := symcalc.NewArena(0)
	ctx := symcalc.DefaultContext()
	m := parse.MustParse(a, "[[1,2][3,4]]")
	inv, ok := m.Inverse(ctx)
	require.True(t, ok)
	assert.Equal(t, "[[-2,1][3/2,-1/2]]", inv.Serialize())

	// m·m⁻¹ = I
	prod := a.Mul(m.Clone(), inv).DeepReduce(ctx)
	assert.Equal(t, "[[1,0][0,1]]", prod.Serialize())
	prod.Release()
	m.Release()
	assert.Zero(t, a.Used())
}

func TestInverse_Singular(t *testing.T) {
	a := symcalc.NewArena(0)
	m := parse.MustParse(a, "[[1,2][2,4]]")
	inv, ok := m.Inverse(symcalc.DefaultContext())
	require.True(t, ok)
	assert.Equal(t, "undef", inv.Serialize())
	assert.Equal(t, "undef", simplify(t, "inverse([[1,2][2,4]])"))
}

func TestInverse_Scalar(t *testing.T) {
	assert.Equal(t, "1/4", simplify(t, "inverse(4)"))
}

// ============================================================
// Other operations
// ============================================================

func TestTransposeAndTrace(t *testing.T) {
	a := symcalc.NewArena(0)
	m := parse.MustParse(a, "[[1,2,3][4,5,6]]")
	tr := m.Transpose()
	assert.Equal(t, "[[1,4][2,5][3,6]]", tr.Serialize())
	assert.Equal(t, 3, tr.Rows())
	assert.Panics(t, func() { m.Trace() })

	assert.Equal(t, "5", simplify(t, "trace([[1,2][3,4]])"))
	assert.Equal(t, "undef", simplify(t, "trace([[1,2,3]])"))
}

func TestVectors(t *testing.T) {
	a := symcalc.NewArena(0)
	ctx := symcalc.DefaultContext()
	x := parse.MustParse(a, "[[1,2,3]]")
	y := parse.MustParse(a, "[[4,5,6]]")
	dot := x.Dot(y, ctx).DeepReduce(ctx)
	assert.Equal(t, "32", dot.Serialize())

	e1 := parse.MustParse(a, "[[1,0,0]]")
	e2 := parse.MustParse(a, "[[0,1,0]]")
	cross := e1.Cross(e2, ctx).DeepReduce(ctx)
	assert.Equal(t, "[[0,0,1]]", cross.Serialize())

	v := parse.MustParse(a, "[[3][4]]")
	norm := v.Norm(ctx).DeepReduce(ctx)
	assert.Equal(t, "5", norm.Serialize())

	col := parse.MustParse(a, "[[1][2][3]]")
	assert.Panics(t, func() { x.Dot(col, ctx) }, "shapes differ")
}

func TestMatrixFunctions_ThroughReduction(t *testing.T) {
	cases := []struct{ in, want string }{
		{"identity(2)", "[[1,0][0,1]]"},
		{"identity(0)", "undef"},
		{"transpose([[1,2]])", "[[1][2]]"},
		{"augment([[1][2]],[[3][4]])", "[[1,3][2,4]]"},
		{"dot([[1,2]],[[3,4]])", "11"},
		{"dot([[1,2]],[[3][4]])", "undef"},
		{"cross([[1,2]],[[3,4]])", "undef"},
		{"norm([[3,4]])", "5"},
		{"[[1,2][3,4]]*[[0,1][1,0]]", "[[2,1][4,3]]"},
		{"[[1,2][3,4]]+[[1,1][1,1]]", "[[2,3][4,5]]"},
		{"2*[[1,2]]", "[[2,4]]"},
		{"[[1,2]]+1", "undef"},
	}
	for _, c := range cases {
		if got := simplify(t, c.in); got != c.want {
			t.Errorf("%s: want %s, got %s", c.in, c.want, got)
		}
	}
}

func TestMatrix_SessionHelpers(t *testing.T) {
	s := newSession()
	m, err := s.Parse("[[1,2][3,4]]")
	require.NoError(t, err)
	defer m.Release()

	d, err := s.Determinant(m)
	require.NoError(t, err)
	assert.Equal(t, "-2", d.Serialize())
	d.Release()

	r, err := s.Rank(m)
	require.NoError(t, err)
	assert.Equal(t, 2, r)

	inv, err := s.Inverse(m)
	require.NoError(t, err)
	assert.Equal(t, symcalc.KindMatrix, inv.Kind())
	inv.Release()
}
