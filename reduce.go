package symcalc

import (
	"cmp"
	"sort"
	"strings"
	"time"
)

// DeepReduce rewrites e into canonical form and returns the handle standing
// where e stood. Symbols are first replaced according to the context policy;
// a circular definition turns the whole expression undefined.
func (e Expr) DeepReduce(ctx ReductionContext) Expr {
	if e.IsUninitialized() {
		return e
	}
	start := time.Now()
	e, ok := replaceSymbols(e, ctx)
	if !ok {
		e.a.logger.Warn("circular symbol definition")
		e = e.replaceWithUndefined()
	} else {
		e = e.deepReduce(ctx)
	}
	observeReduction(start, e)
	return e
}

func (e Expr) deepReduce(ctx ReductionContext) Expr {
	for i := 0; i < e.NumChildren(); i++ {
		e.Child(i).deepReduce(ctx)
	}
	return e.ShallowReduce(ctx)
}

// ShallowReduce applies the reduction rules of e's kind assuming its
// children are already reduced. Nodes created along the way are reduced
// before being returned.
func (e Expr) ShallowReduce(ctx ReductionContext) Expr {
	if e.IsUninitialized() || e.a.err != nil {
		return e
	}
	k := e.Kind()
	switch k {
	case KindUninitialized, KindGhost, KindRational, KindFloat, KindUndefined,
		KindNonreal, KindConstant, KindSymbol:
		return e
	case KindDecimal:
		return reduceDecimal(e)
	case KindUnit:
		return reduceUnit(e, ctx)
	case KindMatrix:
		return reduceMatrixNode(e, ctx)
	case KindList:
		return reduceList(e)
	case KindDependency:
		return reduceDependency(e, ctx)
	case KindDerivative:
		return reduceDerivative(e, ctx)
	}
	if r, done := defaultShallowReduce(e); done {
		return r
	}
	e, deps := liftDependencies(e)
	switch {
	case k == KindAddition:
		e = reduceAddition(e, ctx)
	case k == KindSubtraction:
		e = reduceSubtraction(e, ctx)
	case k == KindMultiplication:
		e = reduceMultiplication(e, ctx)
	case k == KindDivision:
		e = reduceDivision(e, ctx)
	case k == KindOpposite:
		e = reduceOpposite(e, ctx)
	case k == KindPower:
		e = reducePower(e, ctx)
	case k == KindSquareRoot:
		e = reduceSquareRoot(e, ctx)
	case k.IsUnaryFunction():
		e = reduceFunction(e, ctx)
	case k.IsMatrixFunction():
		e = reduceMatrixFunction(e, ctx)
	}
	return wrapDependencies(e, deps, ctx)
}

// defaultShallowReduce handles what every operator shares: undefined and
// nonreal children absorb the node, functions refuse matrices, lists and
// units.
func defaultShallowReduce(e Expr) (Expr, bool) {
	k := e.Kind()
	for i := 0; i < e.NumChildren(); i++ {
		c := e.Child(i)
		switch c.Kind() {
		case KindUndefined:
			return e.replaceWithUndefined(), true
		case KindNonreal:
			return e.ReplaceWithInPlace(e.a.Nonreal()), true
		case KindList:
			return e.replaceWithUndefined(), true
		case KindMatrix:
			if k.IsUnaryFunction() || k == KindSquareRoot {
				return e.replaceWithUndefined(), true
			}
		}
		if k.IsUnaryFunction() && k != KindAbsoluteValue && c.RecursivelyMatches(isUnit) {
			return e.replaceWithUndefined(), true
		}
	}
	return e, false
}

func isUnit(e Expr) bool { return e.Kind() == KindUnit }

func (e Expr) replaceWithUndefined() Expr {
	return e.ReplaceWithInPlace(e.a.Undefined())
}

// wrapInPlace replaces e by build(e), keeping e's position in its parent.
func (e Expr) wrapInPlace(build func(inner Expr) Expr) Expr {
	p := e.Parent()
	if p.IsUninitialized() {
		w := build(e)
		if w.IsUninitialized() {
			return e
		}
		return w
	}
	i := p.indexOfChild(e)
	inner := p.detachWithGhost(i)
	if inner.IsUninitialized() {
		return e
	}
	w := build(inner)
	p.ReplaceChildAtIndex(i, w)
	return w
}

// replaceWithChild puts e's i-th child where e stands.
func (e Expr) replaceWithChild(i int) Expr {
	return e.ReplaceWithInPlace(e.Child(i))
}

func reduceDecimal(e Expr) Expr {
	r, ok := decimalRat(e.FloatValue())
	if !ok {
		return e.replaceWithUndefined()
	}
	return e.ReplaceWithInPlace(e.a.RationalFromBig(r))
}

func reduceList(e Expr) Expr {
	for i := 0; i < e.NumChildren(); i++ {
		if k := e.Child(i).Kind(); k == KindList || k == KindMatrix {
			return e.replaceWithUndefined()
		}
	}
	return e
}

// flatten merges children of the same associative kind into e.
func (e Expr) flatten() {
	k := e.Kind()
	for i := 0; i < e.NumChildren(); {
		c := e.Child(i)
		if c.Kind() != k {
			i++
			continue
		}
		c = e.DetachChildAtIndex(i)
		n := c.NumChildren()
		for j := 0; j < n; j++ {
			e.AddChildAtIndex(c.DetachChildAtIndex(0), i+j)
		}
		c.Release()
	}
}

// sortChildren reorders e's children stably by cmp.
func (e Expr) sortChildren(compare func(x, y Expr) int) {
	if e.NumChildren() < 2 {
		return
	}
	s := e.node()
	ids := s.children
	sort.SliceStable(ids, func(i, j int) bool {
		return compare(Expr{e.a, ids[i]}, Expr{e.a, ids[j]}) < 0
	})
}

// squashUnaryHierarchy collapses an n-ary node with one child into that
// child, and an empty one into its neutral element.
func (e Expr) squashUnaryHierarchy(neutral int64) Expr {
	switch e.NumChildren() {
	case 0:
		return e.ReplaceWithInPlace(e.a.Integer(neutral))
	case 1:
		return e.replaceWithChild(0)
	}
	return e
}

// compareExpr is the canonical total order on trees.
func compareExpr(x, y Expr) int {
	kx, ky := x.Kind(), y.Kind()
	if c := cmp.Compare(kindRank(kx), kindRank(ky)); c != 0 {
		return c
	}
	switch {
	case kx.IsNumber():
		return compareNumbers(x, y)
	case kx == KindConstant:
		return cmp.Compare(x.ConstantValue(), y.ConstantValue())
	case kx == KindSymbol, kx == KindUnit:
		return strings.Compare(x.Name(), y.Name())
	}
	if kx == KindMatrix {
		if c := cmp.Compare(x.Rows(), y.Rows()); c != 0 {
			return c
		}
	}
	nx, ny := x.NumChildren(), y.NumChildren()
	for i := 0; i < min(nx, ny); i++ {
		if c := compareExpr(x.Child(i), y.Child(i)); c != 0 {
			return c
		}
	}
	return cmp.Compare(nx, ny)
}

// isMatrixLike reports whether e evaluates to a matrix.
func isMatrixLike(e Expr) bool {
	switch e.Kind() {
	case KindMatrix, KindMatrixInverse, KindMatrixTranspose, KindMatrixIdentity,
		KindMatrixRef, KindMatrixRref, KindMatrixAugment, KindVectorCross:
		return true
	}
	return false
}

// liftDependencies moves the dependency lists of e's Dependency children
// into a single list, leaving the wrapped expressions in place.
func liftDependencies(e Expr) (Expr, Expr) {
	var deps Expr
	for i := 0; i < e.NumChildren(); i++ {
		c := e.Child(i)
		if c.Kind() != KindDependency {
			continue
		}
		list := c.DetachChildAtIndex(1)
		c.replaceWithChild(0)
		if deps.IsUninitialized() {
			deps = list
			continue
		}
		for list.NumChildren() > 0 {
			deps.AddChild(list.DetachChildAtIndex(0))
		}
		list.Release()
	}
	return e, deps
}

func wrapDependencies(e, deps Expr, ctx ReductionContext) Expr {
	if deps.IsUninitialized() {
		return e
	}
	if ctx.Target == TargetSystemForAnalysis {
		deps.Release()
		return e
	}
	w := e.wrapInPlace(func(inner Expr) Expr { return e.a.Dependency(inner, deps) })
	if w.Kind() != KindDependency {
		return w
	}
	return reduceDependency(w, ctx)
}

// reduceDependency drops the dependencies that are known to be defined and
// removes the node once none remain.
func reduceDependency(e Expr, ctx ReductionContext) Expr {
	main := e.Child(0)
	switch main.Kind() {
	case KindUndefined, KindNonreal:
		return e.replaceWithChild(0)
	case KindDependency:
		inner := main.DetachChildAtIndex(1)
		main.replaceWithChild(0)
		list := e.Child(1)
		for inner.NumChildren() > 0 {
			list.AddChild(inner.DetachChildAtIndex(0))
		}
		inner.Release()
	}
	list := e.Child(1)
	for i := list.NumChildren() - 1; i >= 0; i-- {
		d := list.Child(i)
		if d.Kind() == KindUndefined {
			return e.replaceWithUndefined()
		}
		duplicate := false
		for j := 0; j < i; j++ {
			if list.Child(j).IsIdenticalTo(d) {
				duplicate = true
				break
			}
		}
		if duplicate {
			list.RemoveChildAtIndex(i)
			continue
		}
		if !d.RecursivelyMatches(func(n Expr) bool { return n.Kind() == KindSymbol }) {
			if d.Approximate(ctx, DoublePrecision).IsUndefined() {
				return e.replaceWithUndefined()
			}
			list.RemoveChildAtIndex(i)
		}
	}
	if list.NumChildren() == 0 || ctx.Target == TargetSystemForAnalysis {
		return e.replaceWithChild(0)
	}
	return e
}
