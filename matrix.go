package symcalc

import (
	"math/cmplx"
)

// MaxMatrixChildren caps the number of entries of a matrix built by the
// parser or by the identity function.
const MaxMatrixChildren = 100

// floatMin stands in for the magnitude of a pivot candidate that
// approximates to 0 without being provably null.
const floatMin float32 = 0x1p-126

type vectorType uint8

const (
	notAVector vectorType = iota
	verticalVector
	horizontalVector
)

func vectorShape(rows, cols int) vectorType {
	switch {
	case cols == 1:
		return verticalVector
	case rows == 1:
		return horizontalVector
	}
	return notAVector
}

func (m Expr) isVector() bool {
	return m.Kind() == KindMatrix && vectorShape(m.Rows(), m.Cols()) != notAVector
}

// MatrixChild returns the entry at row i, column j.
func (m Expr) MatrixChild(i, j int) Expr {
	return m.Child(i*m.Cols() + j)
}

// IdentityMatrix builds the n×n identity.
func (a *Arena) IdentityMatrix(n int) Expr {
	entries := make([]Expr, 0, n*n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j {
				entries = append(entries, a.Integer(1))
			} else {
				entries = append(entries, a.Integer(0))
			}
		}
	}
	return a.Matrix(n, n, entries...)
}

// isCanonizable reports whether every entry has a numeric magnitude, which
// pivot selection needs.
func (m Expr) isCanonizable(ctx ReductionContext) bool {
	for i := 0; i < m.NumChildren(); i++ {
		v := m.Child(i).Approximate(ctx, SinglePrecision)
		if v.IsMatrix() || cmplx.IsNaN(v.Scalar()) {
			return false
		}
	}
	return true
}

func (m Expr) pivotMagnitude(i, j int, ctx ReductionContext) float32 {
	c := m.MatrixChild(i, j)
	p := float32(cmplx.Abs(c.Approximate(ctx, SinglePrecision).Scalar()))
	if p == 0 && c.NullStatus() != TrinaryTrue {
		return floatMin
	}
	return p
}

func stripDependency(e Expr, ctx ReductionContext) {
	if ctx.Target == TargetSystemForAnalysis && e.Kind() == KindDependency {
		e.replaceWithChild(0)
	}
}

// ============================================================
// Row canonization
// ============================================================

// RowCanonize runs Gaussian elimination on m in place and returns it. In
// reduced form the rows above each pivot are cleared too (rref); otherwise
// the result is a row echelon form.
//
// The pivot of a column is the candidate with the largest approximate
// magnitude, the first one found on ties; in reduced form the first non-null
// candidate is taken. A candidate that approximates to 0 but is not provably
// null counts as floatMin. When wantDeterminant is set, det is the product of
// the factors met along the way: -1 per row swap, each pivot, and 0 per
// skipped column.
//
// Unless force is set, a matrix with an entry of unknown magnitude is left
// alone and ok is false.
func (m Expr) RowCanonize(ctx ReductionContext, reduced, wantDeterminant, force bool) (res, det Expr, ok bool) {
	if m.IsUninitialized() {
		return m, Expr{}, false
	}
	if m.Kind() != KindMatrix {
		panic("symcalc: row canonization of a non-matrix")
	}
	a := m.a
	for i := 0; i < m.NumChildren(); i++ {
		m.Child(i).deepReduce(ctx)
	}
	if a.err != nil || (!force && !m.isCanonizable(ctx)) {
		return m, Expr{}, false
	}
	if wantDeterminant {
		det = a.Mul()
	}
	addFactor := func(f Expr) {
		if !det.IsUninitialized() {
			det.AddChild(f)
		} else {
			f.Release()
		}
	}

	rows, cols := m.Rows(), m.Cols()
	h, k := 0, 0
	for h < rows && k < cols {
		if a.err != nil {
			return m, det, false
		}
		iPivot := h
		var best float32
		for r := h; r < rows; r++ {
			if p := m.pivotMagnitude(r, k, ctx); p > best {
				best = p
				iPivot = r
				if reduced {
					break
				}
			}
		}
		if m.MatrixChild(iPivot, k).NullStatus() == TrinaryTrue {
			k++
			addFactor(a.Integer(0))
			continue
		}
		if iPivot != h {
			for c := h; c < cols; c++ {
				m.SwapChildren(iPivot*cols+c, h*cols+c)
			}
			addFactor(a.Integer(-1))
		}

		divisor := m.MatrixChild(h, k)
		addFactor(divisor.Clone())
		for j := k + 1; j < cols; j++ {
			op := m.detachWithGhost(h*cols + j)
			q := a.Div(op, divisor.Clone())
			m.ReplaceChildAtIndex(h*cols+j, q)
			stripDependency(q.ShallowReduce(ctx), ctx)
		}
		m.ReplaceChildAtIndex(h*cols+k, a.Integer(1))

		l := h + 1
		if reduced {
			l = 0
		}
		for i := l; i < rows; i++ {
			if i == h {
				continue
			}
			factor := m.MatrixChild(i, k)
			for j := k + 1; j < cols; j++ {
				op := m.detachWithGhost(i*cols + j)
				prod := a.Mul(m.MatrixChild(h, j).Clone(), factor.Clone()).ShallowReduce(ctx)
				s := a.Sub(op, prod)
				m.ReplaceChildAtIndex(i*cols+j, s)
				stripDependency(s.ShallowReduce(ctx), ctx)
			}
			m.ReplaceChildAtIndex(i*cols+k, a.Integer(0))
		}
		h++
		k++
	}
	if !det.IsUninitialized() {
		det = det.ShallowReduce(ctx)
	}
	return m, det, true
}

// ============================================================
// Determinant and inverse
// ============================================================

// Determinant returns det(m) as a new root, or Undefined when m is not
// square. Dimensions up to 3 use the explicit formulas. ok is false when the
// value could be computed neither symbolically nor numerically.
func (m Expr) Determinant(ctx ReductionContext) (Expr, bool) {
	if m.Kind() != KindMatrix {
		panic("symcalc: determinant of a non-matrix")
	}
	if m.Rows() != m.Cols() {
		return m.a.Undefined(), true
	}
	if m.Rows() > 3 {
		return m.DeterminantGeneral(ctx)
	}
	return m.withNumericFallback(ctx, func() (Expr, bool) {
		return m.explicitDeterminant(ctx), true
	}, m.numericDeterminant)
}

// DeterminantGeneral computes det(m) by canonizing (m|I), whatever the
// dimension.
func (m Expr) DeterminantGeneral(ctx ReductionContext) (Expr, bool) {
	if m.Rows() != m.Cols() {
		return m.a.Undefined(), true
	}
	return m.withNumericFallback(ctx, func() (Expr, bool) {
		return m.inverseOrDeterminant(ctx, true)
	}, m.numericDeterminant)
}

func (m Expr) explicitDeterminant(ctx ReductionContext) Expr {
	a := m.a
	c := func(i, j int) Expr { return m.MatrixChild(i, j).Clone() }
	var r Expr
	switch m.Rows() {
	case 1:
		return c(0, 0).deepReduce(ctx)
	case 2:
		r = a.Sub(a.Mul(c(0, 0), c(1, 1)), a.Mul(c(0, 1), c(1, 0)))
	default:
		r = a.Add(
			a.Mul(c(0, 0), c(1, 1), c(2, 2)),
			a.Mul(c(0, 1), c(1, 2), c(2, 0)),
			a.Mul(c(0, 2), c(1, 0), c(2, 1)),
			a.Mul(a.Integer(-1), c(0, 2), c(1, 1), c(2, 0)),
			a.Mul(a.Integer(-1), c(0, 1), c(1, 0), c(2, 2)),
			a.Mul(a.Integer(-1), c(0, 0), c(1, 2), c(2, 1)),
		)
	}
	return r.deepReduce(ctx)
}

// withNumericFallback runs symbolic inside a checkpoint and, when it cannot
// conclude, numeric on the approximated entries of m. numeric returns the
// uninitialized handle when the approximation is undefined.
func (m Expr) withNumericFallback(ctx ReductionContext, symbolic func() (Expr, bool), numeric func(ReductionContext, Evaluation) Expr) (Expr, bool) {
	r := TrySymbolicElseNumeric(m.a, symbolic, func() Expr {
		v := m.Approximate(ctx, DoublePrecision)
		if !v.IsMatrix() {
			return Expr{}
		}
		for _, c := range v.Values() {
			if !finite(c) {
				return Expr{}
			}
		}
		return numeric(ctx, v)
	})
	return r, !r.IsUninitialized()
}

func (m Expr) numericDeterminant(ctx ReductionContext, v Evaluation) Expr {
	values := append([]complex128(nil), v.Values()...)
	d := ArrayRowCanonize(values, v.Rows(), v.Cols(), false)
	return m.a.complexToExpr(d, ctx.ComplexFormat)
}

// inverseOrDeterminant canonizes the augmented matrix (m|I). The determinant
// is the accumulated factor; the inverse is the right half, provided the left
// half became the identity.
func (m Expr) inverseOrDeterminant(ctx ReductionContext, wantDeterminant bool) (Expr, bool) {
	a := m.a
	n := m.Rows()
	entries := make([]Expr, 0, 2*n*n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			entries = append(entries, m.MatrixChild(i, j).Clone())
		}
		for j := 0; j < n; j++ {
			if i == j {
				entries = append(entries, a.Integer(1))
			} else {
				entries = append(entries, a.Integer(0))
			}
		}
	}
	ai := a.Matrix(n, 2*n, entries...)
	if ai.IsUninitialized() {
		return Expr{}, false
	}
	ai, det, ok := ai.RowCanonize(ctx, true, wantDeterminant, false)
	if !ok {
		ai.Release()
		return Expr{}, false
	}
	if wantDeterminant {
		ai.Release()
		return det, true
	}
	for i := 0; i < n; i++ {
		if !ai.MatrixChild(i, i).isRationalOne() {
			ai.Release()
			return a.Undefined(), true
		}
	}
	inv := make([]Expr, 0, n*n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			inv = append(inv, ai.detachWithGhost(i*2*n+n+j))
		}
	}
	ai.Release()
	return a.Matrix(n, n, inv...), true
}

// Inverse returns m^-1 as a new root: Undefined when m is not square or is
// singular.
func (m Expr) Inverse(ctx ReductionContext) (Expr, bool) {
	if m.Kind() != KindMatrix {
		panic("symcalc: inverse of a non-matrix")
	}
	if m.Rows() != m.Cols() {
		return m.a.Undefined(), true
	}
	return m.withNumericFallback(ctx, func() (Expr, bool) {
		return m.inverseOrDeterminant(ctx, false)
	}, func(ctx ReductionContext, v Evaluation) Expr {
		values := append([]complex128(nil), v.Values()...)
		if !ArrayInverse(values, v.Rows()) {
			return m.a.Undefined()
		}
		return m.a.EvaluationToExpr(matrixEvaluation(v.Rows(), v.Cols(), values), ctx.ComplexFormat)
	})
}

// Ref returns the row echelon form of m as a new root, or the reduced row
// echelon form when reduced is set.
func (m Expr) Ref(ctx ReductionContext, reduced bool) (Expr, bool) {
	if m.Kind() != KindMatrix {
		panic("symcalc: row echelon form of a non-matrix")
	}
	return m.withNumericFallback(ctx, func() (Expr, bool) {
		c, _, ok := m.Clone().RowCanonize(ctx, reduced, false, false)
		return c, ok
	}, func(ctx ReductionContext, v Evaluation) Expr {
		values := append([]complex128(nil), v.Values()...)
		ArrayRowCanonize(values, v.Rows(), v.Cols(), reduced)
		return m.a.EvaluationToExpr(matrixEvaluation(v.Rows(), v.Cols(), values), ctx.ComplexFormat)
	})
}

// ============================================================
// Rank
// ============================================================

// Rank returns the rank of m, or -1 when it cannot be computed. When the
// canonized form does not fit in the arena the rank is computed on the
// values, and -1 is returned if single and double precision disagree. Rows are
// counted as null from the bottom while all their entries are provably null;
// an entry whose nullity is unknown counts as non-null, so the result may
// undercount.
func (m Expr) Rank(ctx ReductionContext, force bool) int {
	if m.Kind() != KindMatrix {
		panic("symcalc: rank of a non-matrix")
	}
	if m.RecursivelyMatches(func(e Expr) bool { return e.Kind() == KindUndefined }) {
		return -1
	}
	analysis := ctx.WithTarget(TargetSystemForAnalysis)
	rank := -1
	_, err := WithCheckpoint(m.a, func() Expr {
		c, _, ok := m.Clone().RowCanonize(analysis, true, false, force)
		if ok && m.a.err == nil {
			rank = countNonNullRows(c)
		}
		c.Release()
		return Expr{}
	})
	if err == nil {
		return rank
	}
	// The canonized form did not fit in the arena; work on the values.
	numericFallbacks.Inc()
	v := m.Approximate(analysis, DoublePrecision)
	if !v.IsMatrix() {
		return -1
	}
	for _, c := range v.Values() {
		if !finite(c) {
			return -1
		}
	}
	return checkedRank(v.Values(), v.Rows(), v.Cols())
}

func countNonNullRows(c Expr) int {
	rank := c.Rows()
	for i := rank - 1; i >= 0; i-- {
		j := c.Cols() - 1
		for j >= i && c.MatrixChild(i, j).NullStatus() == TrinaryTrue {
			j--
		}
		if j > i-1 {
			break
		}
		rank--
	}
	return rank
}

// ============================================================
// Shape and vector functions
// ============================================================

// Transpose returns a new matrix with m's rows as columns.
func (m Expr) Transpose() Expr {
	entries := make([]Expr, 0, m.NumChildren())
	for j := 0; j < m.Cols(); j++ {
		for i := 0; i < m.Rows(); i++ {
			entries = append(entries, m.MatrixChild(i, j).Clone())
		}
	}
	return m.a.Matrix(m.Cols(), m.Rows(), entries...)
}

// Trace returns the unreduced sum of the diagonal of a square matrix.
func (m Expr) Trace() Expr {
	if m.Rows() != m.Cols() {
		panic("symcalc: trace of a non-square matrix")
	}
	terms := make([]Expr, m.Rows())
	for i := range terms {
		terms[i] = m.MatrixChild(i, i).Clone()
	}
	return m.a.Add(terms...)
}

// Augment returns (m|b); both must have the same number of rows.
func (m Expr) Augment(b Expr) Expr {
	if m.Rows() != b.Rows() {
		panic("symcalc: augmenting matrices with different row counts")
	}
	entries := make([]Expr, 0, m.NumChildren()+b.NumChildren())
	for i := 0; i < m.Rows(); i++ {
		for j := 0; j < m.Cols(); j++ {
			entries = append(entries, m.MatrixChild(i, j).Clone())
		}
		for j := 0; j < b.Cols(); j++ {
			entries = append(entries, b.MatrixChild(i, j).Clone())
		}
	}
	return m.a.Matrix(m.Rows(), m.Cols()+b.Cols(), entries...)
}

func checkVectors(x, y Expr) {
	if !x.isVector() || vectorShape(x.Rows(), x.Cols()) != vectorShape(y.Rows(), y.Cols()) || x.NumChildren() != y.NumChildren() {
		panic("symcalc: vectors of different shapes")
	}
}

// Dot returns the reduced sum of the entrywise products of two vectors of
// the same shape.
func (m Expr) Dot(b Expr, ctx ReductionContext) Expr {
	checkVectors(m, b)
	a := m.a
	terms := make([]Expr, m.NumChildren())
	for j := range terms {
		terms[j] = a.Mul(m.Child(j).Clone(), b.Child(j).Clone()).ShallowReduce(ctx)
	}
	return a.Add(terms...).ShallowReduce(ctx)
}

// Cross returns the cross product of two 3-vectors of the same shape.
func (m Expr) Cross(b Expr, ctx ReductionContext) Expr {
	checkVectors(m, b)
	if m.NumChildren() != 3 {
		panic("symcalc: cross product needs 3-vectors")
	}
	a := m.a
	entries := make([]Expr, 3)
	for j := range entries {
		j1, j2 := (j+1)%3, (j+2)%3
		x := a.Mul(m.Child(j1).Clone(), b.Child(j2).Clone()).ShallowReduce(ctx)
		y := a.Mul(m.Child(j2).Clone(), b.Child(j1).Clone()).ShallowReduce(ctx)
		entries[j] = a.Sub(x, y).ShallowReduce(ctx)
	}
	return a.Matrix(m.Rows(), m.Cols(), entries...)
}

// Norm returns the euclidean norm √(Σ|xᵢ|²) of a vector.
func (m Expr) Norm(ctx ReductionContext) Expr {
	if !m.isVector() {
		panic("symcalc: norm of a non-vector")
	}
	a := m.a
	terms := make([]Expr, m.NumChildren())
	for j := range terms {
		abs := a.Func(KindAbsoluteValue, m.Child(j).Clone()).ShallowReduce(ctx)
		terms[j] = a.Pow(abs, a.Integer(2)).ShallowReduce(ctx)
	}
	sum := a.Add(terms...).ShallowReduce(ctx)
	return a.Sqrt(sum).ShallowReduce(ctx)
}

// matrixProduct returns x·y as a new reduced matrix; x.Cols() must equal
// y.Rows().
func matrixProduct(x, y Expr, ctx ReductionContext) Expr {
	a := x.a
	rows, inner, cols := x.Rows(), x.Cols(), y.Cols()
	entries := make([]Expr, 0, rows*cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			terms := make([]Expr, inner)
			for k := range terms {
				terms[k] = a.Mul(x.MatrixChild(i, k).Clone(), y.MatrixChild(k, j).Clone()).ShallowReduce(ctx)
			}
			entries = append(entries, a.Add(terms...).ShallowReduce(ctx))
		}
	}
	return a.Matrix(rows, cols, entries...)
}
