package symcalc

import (
	"math/big"
	"slices"
)

// ============================================================
// Handles on arena nodes
// ============================================================

// Expr is a handle on a node of an Arena. The zero Expr is the
// uninitialized handle; allocation failures return it.
//
// Ownership: a node's reference count is the number of holds on it plus one
// if it has a parent. Builders and Clone return a root carrying one hold.
// Attaching a root to a parent moves that hold into the parent link;
// detaching turns the link back into a hold. Release drops a hold and frees
// the node, recursively, when the count reaches zero.
type Expr struct {
	a  *Arena
	id NodeID
}

func (e Expr) IsUninitialized() bool { return e.a == nil || e.id == 0 }
func (e Expr) Arena() *Arena         { return e.a }
func (e Expr) ID() NodeID            { return e.id }

func (e Expr) node() *slot { return e.a.slot(e.id) }

func (e Expr) Kind() Kind {
	if e.IsUninitialized() {
		return KindUninitialized
	}
	return e.node().kind
}

func (e Expr) NumChildren() int {
	if e.IsUninitialized() {
		return 0
	}
	return len(e.node().children)
}

func (e Expr) Child(i int) Expr {
	return Expr{e.a, e.node().children[i]}
}

// Children returns borrowed handles on the current children.
func (e Expr) Children() []Expr {
	n := e.NumChildren()
	out := make([]Expr, n)
	for i := 0; i < n; i++ {
		out[i] = e.Child(i)
	}
	return out
}

func (e Expr) Parent() Expr {
	if e.IsUninitialized() {
		return Expr{}
	}
	p := e.node().parent
	if p == 0 {
		return Expr{}
	}
	return Expr{e.a, p}
}

func (e Expr) HasParent() bool { return !e.Parent().IsUninitialized() }

// IndexInParent returns the position of e among its parent's children, or -1.
func (e Expr) IndexInParent() int {
	p := e.Parent()
	if p.IsUninitialized() {
		return -1
	}
	return slices.Index(p.node().children, e.id)
}

func (e Expr) RefCount() int {
	if e.IsUninitialized() {
		return 0
	}
	return int(e.node().refs)
}

// Retain adds a hold on e.
func (e Expr) Retain() Expr {
	if !e.IsUninitialized() {
		e.a.retain(e.id)
	}
	return e
}

// Release drops a hold on e.
func (e Expr) Release() {
	if !e.IsUninitialized() {
		e.a.release(e.id)
	}
}

func (e Expr) isAncestorOf(d Expr) bool {
	for p := d.Parent(); !p.IsUninitialized(); p = p.Parent() {
		if p.id == e.id {
			return true
		}
	}
	return false
}

// ============================================================
// Structural edits
// ============================================================

// AddChild appends child; see AddChildAtIndex.
func (e Expr) AddChild(child Expr) {
	e.AddChildAtIndex(child, e.NumChildren())
}

// AddChildAtIndex inserts child at position i. child must be a root; one of
// the caller's holds on it becomes the parent link.
func (e Expr) AddChildAtIndex(child Expr, i int) {
	if e.IsUninitialized() || child.IsUninitialized() || e.a.err != nil {
		return
	}
	if child.HasParent() {
		panic("symcalc: node already has a parent")
	}
	if child.id == e.id || child.isAncestorOf(e) {
		panic("symcalc: attaching a node under itself")
	}
	if len(e.node().children) >= MaxChildren {
		panic("symcalc: too many children")
	}
	if !e.a.grow(e.id, childRefSize) {
		return
	}
	s := e.node()
	s.children = slices.Insert(s.children, i, child.id)
	child.node().parent = e.id
}

// RemoveChildAtIndex drops the child at i and its parent link.
func (e Expr) RemoveChildAtIndex(i int) {
	c := e.DetachChildAtIndex(i)
	c.Release()
}

// DetachChildAtIndex unlinks the child at i and returns it as a root; the
// former parent link becomes a hold owned by the caller.
func (e Expr) DetachChildAtIndex(i int) Expr {
	s := e.node()
	c := s.children[i]
	s.children = slices.Delete(s.children, i, i+1)
	e.a.shrink(e.id, childRefSize)
	e.a.slots[c].parent = 0
	return Expr{e.a, c}
}

// detachFromParent turns e's parent link into a hold.
func (e Expr) detachFromParent() {
	p := e.Parent()
	if p.IsUninitialized() {
		return
	}
	p.DetachChildAtIndex(p.indexOfChild(e))
}

func (e Expr) indexOfChild(c Expr) int {
	return slices.Index(e.node().children, c.id)
}

// adopt prepares n for insertion into the tree rooted around e: a parentless
// n is used as is, a descendant of e is unlinked first, anything else is an
// aliasing violation.
func (e Expr) adopt(n Expr) {
	if n.id == e.id || n.isAncestorOf(e) {
		panic("symcalc: attaching a node under itself")
	}
	if !n.HasParent() {
		return
	}
	if !e.isAncestorOf(n) {
		panic("symcalc: node already has a parent")
	}
	n.detachFromParent()
}

// ReplaceChildAtIndex puts n at position i and releases the former child.
// n may be a descendant of e.
func (e Expr) ReplaceChildAtIndex(i int, n Expr) {
	if e.IsUninitialized() || n.IsUninitialized() {
		return
	}
	old := e.node().children[i]
	if old == n.id {
		return
	}
	if n.HasParent() {
		if n.Parent().id == e.id && n.IndexInParent() < i {
			i--
		}
		e.adopt(n)
		old = e.node().children[i]
	} else if n.isAncestorOf(e) {
		panic("symcalc: attaching a node under itself")
	}
	e.node().children[i] = n.id
	n.node().parent = e.id
	e.a.slots[old].parent = 0
	e.a.release(old)
}

// ReplaceWithInPlace puts n where e stands and returns n. If e has a parent,
// n takes its slot among the parent's children; otherwise the caller's hold
// on e moves to n. n may be a descendant of e. An uninitialized n leaves e
// untouched.
func (e Expr) ReplaceWithInPlace(n Expr) Expr {
	if e.IsUninitialized() || n.IsUninitialized() || e.id == n.id {
		if n.IsUninitialized() {
			return e
		}
		return n
	}
	if p := e.Parent(); !p.IsUninitialized() {
		p.ReplaceChildAtIndex(p.indexOfChild(e), n)
		return n
	}
	if n.HasParent() {
		if !e.isAncestorOf(n) {
			panic("symcalc: node already has a parent")
		}
		n.detachFromParent()
	}
	e.Release()
	return n
}

// SwapChildren exchanges the children at i and j.
func (e Expr) SwapChildren(i, j int) {
	s := e.node()
	s.children[i], s.children[j] = s.children[j], s.children[i]
}

// detachWithGhost swaps the child at i for a placeholder and returns the
// child as a root, so that its position survives while it is rebuilt.
func (e Expr) detachWithGhost(i int) Expr {
	g := e.a.ghost()
	if g.IsUninitialized() {
		return Expr{}
	}
	c := e.Child(i).Retain()
	e.ReplaceChildAtIndex(i, g)
	return c
}

// ============================================================
// Copy and comparison
// ============================================================

// Clone returns a deep copy of e as a new root, or the uninitialized handle
// when the arena runs out of space. A copy is never partial.
func (e Expr) Clone() Expr {
	if e.IsUninitialized() {
		return e
	}
	s := e.node()
	k, p := s.kind, s.payload
	id := e.a.alloc(k, p)
	if id == 0 {
		return Expr{}
	}
	c := Expr{e.a, id}
	for i := 0; i < e.NumChildren(); i++ {
		cc := e.Child(i).Clone()
		if cc.IsUninitialized() {
			c.Release()
			return Expr{}
		}
		c.AddChild(cc)
		if !cc.HasParent() {
			cc.Release()
			c.Release()
			return Expr{}
		}
	}
	return c
}

// IsIdenticalTo reports structural equality.
func (e Expr) IsIdenticalTo(o Expr) bool {
	if e.IsUninitialized() || o.IsUninitialized() {
		return e.IsUninitialized() == o.IsUninitialized()
	}
	if e.a == o.a && e.id == o.id {
		return true
	}
	es, os := e.node(), o.node()
	if es.kind != os.kind || len(es.children) != len(os.children) || !payloadEqual(es.kind, es.payload, os.payload) {
		return false
	}
	for i := range es.children {
		if !e.Child(i).IsIdenticalTo(o.Child(i)) {
			return false
		}
	}
	return true
}

func payloadEqual(k Kind, p, q payload) bool {
	switch k {
	case KindRational:
		return p.rat.Cmp(q.rat) == 0
	case KindDecimal, KindFloat:
		return p.flt == q.flt
	case KindSymbol, KindUnit:
		return p.name == q.name
	case KindConstant:
		return p.constant == q.constant
	case KindMatrix:
		return p.rows == q.rows && p.cols == q.cols
	}
	return true
}

// RecursivelyMatches reports whether pred holds for e or any descendant.
func (e Expr) RecursivelyMatches(pred func(Expr) bool) bool {
	if e.IsUninitialized() {
		return false
	}
	if pred(e) {
		return true
	}
	for i := 0; i < e.NumChildren(); i++ {
		if e.Child(i).RecursivelyMatches(pred) {
			return true
		}
	}
	return false
}

// ============================================================
// Payload accessors
// ============================================================

func (e Expr) rat() *big.Rat { return e.node().payload.rat }

// RationalValue returns a copy of the value of a Rational node.
func (e Expr) RationalValue() *big.Rat {
	if e.Kind() != KindRational {
		return nil
	}
	return new(big.Rat).Set(e.rat())
}

// FloatValue returns the value of a Float or Decimal node.
func (e Expr) FloatValue() float64 { return e.node().payload.flt }

// Name returns the identifier of a Symbol or Unit node.
func (e Expr) Name() string {
	if e.IsUninitialized() {
		return ""
	}
	return e.node().payload.name
}

func (e Expr) ConstantValue() Constant { return e.node().payload.constant }

func (e Expr) Rows() int { return e.node().payload.rows }
func (e Expr) Cols() int { return e.node().payload.cols }

// SetDimensions updates a matrix's shape; rows*cols must equal its child count.
func (e Expr) SetDimensions(rows, cols int) {
	if e.IsUninitialized() {
		return
	}
	if rows*cols != e.NumChildren() {
		panic("symcalc: matrix dimensions do not match its children")
	}
	s := e.node()
	s.payload.rows, s.payload.cols = rows, cols
}

func (e Expr) isConstant(c Constant) bool {
	return e.Kind() == KindConstant && e.ConstantValue() == c
}

// ============================================================
// Builders
// ============================================================

// Children handed to a builder must be roots; their holds move
// into the new node. If any child is uninitialized or the arena is out of
// space the builder returns the uninitialized handle.

func (a *Arena) leaf(k Kind, p payload) Expr {
	id := a.alloc(k, p)
	if id == 0 {
		return Expr{}
	}
	return Expr{a, id}
}

func (a *Arena) ghost() Expr { return a.leaf(KindGhost, payload{}) }

func (a *Arena) Integer(n int64) Expr {
	return a.leaf(KindRational, payload{rat: new(big.Rat).SetInt64(n)})
}

// Rational builds p/q; q must not be zero.
func (a *Arena) Rational(p, q int64) Expr {
	if q == 0 {
		panic("symcalc: zero denominator")
	}
	return a.leaf(KindRational, payload{rat: big.NewRat(p, q)})
}

// RationalFromBig builds a Rational, or a Float when r exceeds MaxRationalBits.
func (a *Arena) RationalFromBig(r *big.Rat) Expr {
	if ratOverflows(r) {
		f, _ := r.Float64()
		return a.Float(f)
	}
	return a.leaf(KindRational, payload{rat: new(big.Rat).Set(r)})
}

// Decimal builds an exact decimal literal, as produced by the parser.
func (a *Arena) Decimal(v float64) Expr { return a.leaf(KindDecimal, payload{flt: v}) }

// Float builds an approximate number.
func (a *Arena) Float(v float64) Expr { return a.leaf(KindFloat, payload{flt: v}) }

func (a *Arena) Undefined() Expr { return a.leaf(KindUndefined, payload{}) }
func (a *Arena) Nonreal() Expr   { return a.leaf(KindNonreal, payload{}) }

func (a *Arena) Constant(c Constant) Expr {
	return a.leaf(KindConstant, payload{constant: c})
}

func (a *Arena) Pi() Expr { return a.Constant(ConstantPi) }
func (a *Arena) E() Expr  { return a.Constant(ConstantE) }
func (a *Arena) I() Expr  { return a.Constant(ConstantI) }

func (a *Arena) Symbol(name string) Expr {
	return a.leaf(KindSymbol, payload{name: name})
}

// Unit builds a unit leaf such as "_m".
func (a *Arena) Unit(name string) Expr {
	return a.leaf(KindUnit, payload{name: name})
}

// Node builds a node of kind k over children, checking arity.
func (a *Arena) Node(k Kind, children ...Expr) Expr {
	min, max := k.Arity()
	if len(children) < min || (max != nAry && len(children) > max) {
		panic("symcalc: wrong number of children for " + k.String())
	}
	for _, c := range children {
		if c.IsUninitialized() {
			return Expr{}
		}
	}
	n := a.leaf(k, payload{})
	for _, c := range children {
		n.AddChild(c)
	}
	if a.err != nil {
		return Expr{}
	}
	return n
}

func (a *Arena) Add(terms ...Expr) Expr   { return a.Node(KindAddition, terms...) }
func (a *Arena) Mul(factors ...Expr) Expr { return a.Node(KindMultiplication, factors...) }
func (a *Arena) Sub(x, y Expr) Expr       { return a.Node(KindSubtraction, x, y) }
func (a *Arena) Div(x, y Expr) Expr       { return a.Node(KindDivision, x, y) }
func (a *Arena) Opp(x Expr) Expr          { return a.Node(KindOpposite, x) }
func (a *Arena) Pow(b, x Expr) Expr       { return a.Node(KindPower, b, x) }
func (a *Arena) Sqrt(x Expr) Expr         { return a.Node(KindSquareRoot, x) }
func (a *Arena) List(items ...Expr) Expr  { return a.Node(KindList, items...) }

// Func builds a single-argument function or matrix-function node.
func (a *Arena) Func(k Kind, arg Expr) Expr { return a.Node(k, arg) }

// Dependency wraps e with the list of expressions that must stay defined.
func (a *Arena) Dependency(e, deps Expr) Expr { return a.Node(KindDependency, e, deps) }

// Derivative builds diff(f, x, at).
func (a *Arena) Derivative(f, x, at Expr) Expr { return a.Node(KindDerivative, f, x, at) }

// Matrix builds a rows×cols matrix from entries in row-major order.
func (a *Arena) Matrix(rows, cols int, entries ...Expr) Expr {
	if rows*cols != len(entries) {
		panic("symcalc: matrix dimensions do not match its entries")
	}
	m := a.Node(KindMatrix, entries...)
	if m.IsUninitialized() {
		return m
	}
	s := m.node()
	s.payload.rows, s.payload.cols = rows, cols
	return m
}
