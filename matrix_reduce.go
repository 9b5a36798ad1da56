package symcalc

// reduceMatrixNode turns a matrix nesting a matrix or a list undefined and
// lifts the dependencies of its entries onto the whole matrix.
func reduceMatrixNode(e Expr, ctx ReductionContext) Expr {
	for i := 0; i < e.NumChildren(); i++ {
		if k := e.Child(i).Kind(); k == KindMatrix || k == KindList {
			return e.replaceWithUndefined()
		}
	}
	e, deps := liftDependencies(e)
	return wrapDependencies(e, deps, ctx)
}

// matrixArgument classifies the i-th argument of a matrix function: a
// concrete matrix, a scalar, or a matrix-valued node that did not reduce to
// a matrix yet.
func matrixArgument(e Expr, i int) (m Expr, scalar, pending bool) {
	c := e.Child(i)
	switch {
	case c.Kind() == KindMatrix:
		return c, false, false
	case isMatrixLike(c):
		return Expr{}, false, true
	}
	return Expr{}, true, false
}

// replaceWithComputed puts r where e stands, or leaves e untouched when r
// could not be computed.
func (e Expr) replaceWithComputed(r Expr, ok bool) Expr {
	if !ok || r.IsUninitialized() {
		return e
	}
	return e.ReplaceWithInPlace(r)
}

func reduceMatrixFunction(e Expr, ctx ReductionContext) Expr {
	a := e.a
	k := e.Kind()
	switch k {
	case KindMatrixIdentity:
		return reduceIdentity(e)
	case KindMatrixAugment, KindVectorDot, KindVectorCross:
		return reduceBinaryMatrixFunction(e, ctx)
	}

	m, scalar, pending := matrixArgument(e, 0)
	if pending {
		return e
	}
	if scalar {
		switch k {
		case KindDeterminant, KindMatrixTranspose, KindMatrixTrace:
			return e.replaceWithChild(0)
		case KindMatrixInverse:
			x := e.DetachChildAtIndex(0)
			return e.ReplaceWithInPlace(a.Pow(x, a.Integer(-1))).ShallowReduce(ctx)
		}
		return e.replaceWithUndefined()
	}

	switch k {
	case KindDeterminant:
		return e.replaceWithComputed(m.Determinant(ctx))
	case KindMatrixInverse:
		return e.replaceWithComputed(m.Inverse(ctx))
	case KindMatrixTranspose:
		return e.ReplaceWithInPlace(m.Transpose())
	case KindMatrixTrace:
		if m.Rows() != m.Cols() {
			return e.replaceWithUndefined()
		}
		return e.ReplaceWithInPlace(m.Trace()).ShallowReduce(ctx)
	case KindMatrixRank:
		if r := m.Rank(ctx, false); r >= 0 {
			return e.ReplaceWithInPlace(a.Integer(int64(r)))
		}
		if m.RecursivelyMatches(func(n Expr) bool { return n.Kind() == KindUndefined }) {
			return e.replaceWithUndefined()
		}
		return e
	case KindMatrixRef, KindMatrixRref:
		return e.replaceWithComputed(m.Ref(ctx, k == KindMatrixRref))
	case KindVectorNorm:
		if !m.isVector() {
			return e.replaceWithUndefined()
		}
		return e.ReplaceWithInPlace(m.Norm(ctx))
	}
	return e
}

// reduceIdentity builds identity(n) for a positive integer n small enough
// to fit in a matrix.
func reduceIdentity(e Expr) Expr {
	arg := e.Child(0)
	if isMatrixLike(arg) {
		return e.replaceWithUndefined()
	}
	if arg.Kind() != KindRational {
		return e
	}
	n, ok := arg.smallInteger()
	if !ok || n <= 0 || n*n > MaxMatrixChildren {
		return e.replaceWithUndefined()
	}
	return e.ReplaceWithInPlace(e.a.IdentityMatrix(n))
}

func reduceBinaryMatrixFunction(e Expr, ctx ReductionContext) Expr {
	x, xs, xp := matrixArgument(e, 0)
	y, ys, yp := matrixArgument(e, 1)
	if xs || ys {
		return e.replaceWithUndefined()
	}
	if xp || yp {
		return e
	}
	sameVectors := x.isVector() && vectorShape(x.Rows(), x.Cols()) == vectorShape(y.Rows(), y.Cols()) &&
		x.NumChildren() == y.NumChildren()
	switch e.Kind() {
	case KindMatrixAugment:
		if x.Rows() != y.Rows() {
			return e.replaceWithUndefined()
		}
		return e.ReplaceWithInPlace(x.Augment(y))
	case KindVectorDot:
		if !sameVectors {
			return e.replaceWithUndefined()
		}
		return e.ReplaceWithInPlace(x.Dot(y, ctx))
	case KindVectorCross:
		if !sameVectors || x.NumChildren() != 3 {
			return e.replaceWithUndefined()
		}
		return e.ReplaceWithInPlace(x.Cross(y, ctx))
	}
	return e
}
