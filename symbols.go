package symcalc

import (
	"sort"

	"github.com/hashicorp/go-set/v3"
)

// maxSymbolReplacements bounds how deep definitions may refer to other
// definitions before the expression is considered circular.
const maxSymbolReplacements = 10

// SymbolTable is a SymbolStore whose definitions live in the arena. It owns
// one hold on every stored definition.
type SymbolTable struct {
	a    *Arena
	defs map[string]Expr
}

func NewSymbolTable(a *Arena) *SymbolTable {
	return &SymbolTable{a: a, defs: make(map[string]Expr)}
}

// Set stores def under name, taking over the caller's hold on it.
func (t *SymbolTable) Set(name string, def Expr) {
	if old, ok := t.defs[name]; ok {
		old.Release()
	}
	t.defs[name] = def
}

func (t *SymbolTable) Definition(name string) (Expr, bool) {
	e, ok := t.defs[name]
	return e, ok
}

func (t *SymbolTable) Delete(name string) {
	if old, ok := t.defs[name]; ok {
		old.Release()
		delete(t.defs, name)
	}
}

// Names returns the defined names in order.
func (t *SymbolTable) Names() []string {
	names := make([]string, 0, len(t.defs))
	for n := range t.defs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Clear drops every definition.
func (t *SymbolTable) Clear() {
	for _, e := range t.defs {
		e.Release()
	}
	clear(t.defs)
}

// FreeSymbols collects the names of symbols in e that are not bound by an
// enclosing derivative.
func FreeSymbols(e Expr) *set.Set[string] {
	out := set.New[string](0)
	collectSymbols(e, set.New[string](0), out)
	return out
}

func collectSymbols(e Expr, bound, out *set.Set[string]) {
	switch e.Kind() {
	case KindSymbol:
		if !bound.Contains(e.Name()) {
			out.Insert(e.Name())
		}
		return
	case KindDerivative:
		inner := withBound(bound, e.Child(1).Name())
		collectSymbols(e.Child(0), inner, out)
		collectSymbols(e.Child(2), bound, out)
		return
	}
	for i := 0; i < e.NumChildren(); i++ {
		collectSymbols(e.Child(i), bound, out)
	}
}

func withBound(bound *set.Set[string], name string) *set.Set[string] {
	inner := set.New[string](bound.Size() + 1)
	for _, n := range bound.Slice() {
		inner.Insert(n)
	}
	inner.Insert(name)
	return inner
}

// IsCircular reports whether defining name as def would make name depend
// on itself through the definitions of store.
func IsCircular(store SymbolStore, name string, def Expr) bool {
	visiting := set.New[string](0)
	visiting.Insert(name)
	return dependsOnVisiting(store, def, visiting, 0)
}

func dependsOnVisiting(store SymbolStore, e Expr, visiting *set.Set[string], depth int) bool {
	if depth >= maxSymbolReplacements {
		return true
	}
	for _, s := range FreeSymbols(e).Slice() {
		if visiting.Contains(s) {
			return true
		}
		if store == nil {
			continue
		}
		def, ok := store.Definition(s)
		if !ok {
			continue
		}
		visiting.Insert(s)
		circular := dependsOnVisiting(store, def, visiting, depth+1)
		visiting.Remove(s)
		if circular {
			return true
		}
	}
	return false
}

type symbolReplacer struct {
	ctx      ReductionContext
	visiting *set.Set[string]
	circular bool
}

// replaceSymbols substitutes symbols in e according to the context policy
// and returns the handle now standing where e stood. It reports false when a
// circular definition was met.
func replaceSymbols(e Expr, ctx ReductionContext) (Expr, bool) {
	r := &symbolReplacer{ctx: ctx, visiting: set.New[string](0)}
	e = r.replace(e, set.New[string](0), 0)
	return e, !r.circular
}

func (r *symbolReplacer) replace(e Expr, bound *set.Set[string], depth int) Expr {
	if e.IsUninitialized() || e.a.err != nil {
		return e
	}
	switch e.Kind() {
	case KindSymbol:
		return r.replaceSymbol(e, bound, depth)
	case KindDerivative:
		if e.Child(1).Kind() == KindSymbol {
			r.replace(e.Child(0), withBound(bound, e.Child(1).Name()), depth)
			r.replace(e.Child(2), bound, depth)
			return e
		}
	}
	for i := 0; i < e.NumChildren() && e.a.err == nil; i++ {
		r.replace(e.Child(i), bound, depth)
	}
	return e
}

func (r *symbolReplacer) replaceSymbol(e Expr, bound *set.Set[string], depth int) Expr {
	name := e.Name()
	if bound.Contains(name) {
		return e
	}
	switch r.ctx.SymbolicComputation {
	case DoNotReplaceAnySymbol:
		return e
	case ReplaceAllSymbolsWithUndefined:
		return e.ReplaceWithInPlace(e.a.Undefined())
	}
	def, ok := r.ctx.definition(name)
	if !ok {
		if r.ctx.SymbolicComputation == ReplaceAllSymbolsWithDefinitionsOrUndefined {
			return e.ReplaceWithInPlace(e.a.Undefined())
		}
		return e
	}
	if r.visiting.Contains(name) || depth >= maxSymbolReplacements {
		r.circular = true
		return e
	}
	r.visiting.Insert(name)
	c := r.replace(def.Clone(), set.New[string](0), depth+1)
	r.visiting.Remove(name)
	return e.ReplaceWithInPlace(c)
}
