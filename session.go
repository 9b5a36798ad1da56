package symcalc

import (
	"log/slog"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// ParseFunc reads text into a new root of a. The parse package provides one;
// it is injected to keep this package free of the text grammar.
type ParseFunc func(a *Arena, input string) (Expr, error)

// Session bundles an arena, its symbol definitions and the settings used to
// reduce and approximate. Its operations never mutate their input trees:
// they work on clones inside a checkpoint and report an exhausted arena as
// ErrCouldNotCompute. A Session is not safe for concurrent use.
type Session struct {
	ID        uuid.UUID
	arena     *Arena
	symbols   *SymbolTable
	ctx       ReductionContext
	precision Precision
	logger    *slog.Logger
	parse     ParseFunc
}

type Option func(*Session)

// WithArenaSize sets the arena capacity in bytes.
func WithArenaSize(n int) Option {
	return func(s *Session) { s.arena = NewArena(n) }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithContext sets the reduction settings. Its symbol store is ignored: the
// session always resolves symbols through its own table.
func WithContext(ctx ReductionContext) Option {
	return func(s *Session) { s.ctx = ctx }
}

func WithPrecision(p Precision) Option {
	return func(s *Session) { s.precision = p }
}

func WithParser(p ParseFunc) Option {
	return func(s *Session) { s.parse = p }
}

func NewSession(opts ...Option) *Session {
	s := &Session{
		ID:        uuid.New(),
		ctx:       DefaultContext(),
		precision: DoublePrecision,
		logger:    slog.New(slog.DiscardHandler),
	}
	for _, o := range opts {
		o(s)
	}
	if s.arena == nil {
		s.arena = NewArena(DefaultArenaSize)
	}
	s.logger = s.logger.With("session", s.ID.String())
	s.arena.SetLogger(s.logger)
	s.symbols = NewSymbolTable(s.arena)
	s.ctx.Symbols = s.symbols
	return s
}

func (s *Session) Arena() *Arena            { return s.arena }
func (s *Session) Symbols() *SymbolTable    { return s.symbols }
func (s *Session) Context() ReductionContext { return s.ctx }

// SetContext replaces the reduction settings, keeping the session's symbols.
func (s *Session) SetContext(ctx ReductionContext) {
	ctx.Symbols = s.symbols
	s.ctx = ctx
}

// Reset drops every tree and definition of the session. Handles obtained
// before the call become invalid.
func (s *Session) Reset() {
	s.symbols = NewSymbolTable(s.arena)
	s.arena.Reset()
	s.ctx.Symbols = s.symbols
	s.logger.Debug("session reset")
}

// compute runs body on a fresh checkpoint and maps exhaustion to
// ErrCouldNotCompute.
func (s *Session) compute(op string, body func() Expr) (Expr, error) {
	r, err := WithCheckpoint(s.arena, body)
	if err != nil {
		s.logger.Warn("computation ran out of arena space", "op", op, "capacity", s.arena.Capacity())
		return Expr{}, errors.Wrap(ErrCouldNotCompute, op)
	}
	return r, nil
}

func (s *Session) check(e Expr) error {
	if e.IsUninitialized() {
		return ErrUninitialized
	}
	if e.a != s.arena {
		panic("symcalc: expression belongs to another arena")
	}
	return nil
}

// Parse reads input with the session's parser.
func (s *Session) Parse(input string) (Expr, error) {
	if s.parse == nil {
		return Expr{}, errors.Wrap(ErrParse, "no parser configured")
	}
	var perr error
	e, err := s.compute("parse", func() Expr {
		x, err := s.parse(s.arena, input)
		perr = err
		return x
	})
	if err != nil {
		return Expr{}, err
	}
	return e, perr
}

// Define stores a copy of def under name. A definition that refers back to
// name is stored anyway; expressions using it reduce to undefined.
func (s *Session) Define(name string, def Expr) error {
	if err := s.check(def); err != nil {
		return err
	}
	c, err := s.compute("define", def.Clone)
	if err != nil {
		return err
	}
	if IsCircular(s.symbols, name, c) {
		s.logger.Warn("circular definition", "symbol", name)
	}
	s.symbols.Set(name, c)
	return nil
}

// Undefine removes the definition of name, if any.
func (s *Session) Undefine(name string) { s.symbols.Delete(name) }

// Reduce returns the canonical form of e as a new root.
func (s *Session) Reduce(e Expr) (Expr, error) {
	if err := s.check(e); err != nil {
		return Expr{}, err
	}
	return s.compute("reduce", func() Expr { return e.Clone().DeepReduce(s.ctx) })
}

// Simplify returns the reduced and beautified form of e as a new root.
func (s *Session) Simplify(e Expr) (Expr, error) {
	if err := s.check(e); err != nil {
		return Expr{}, err
	}
	return s.compute("simplify", func() Expr { return e.Clone().Simplify(s.ctx) })
}

// Approximate evaluates e after replacing the defined symbols.
func (s *Session) Approximate(e Expr) (Evaluation, error) {
	if err := s.check(e); err != nil {
		return Evaluation{}, err
	}
	ctx := s.ctx.WithTarget(TargetSystemForApproximation)
	r, err := s.compute("approximate", func() Expr {
		c, ok := replaceSymbols(e.Clone(), ctx)
		if !ok {
			return c.replaceWithUndefined()
		}
		return c
	})
	if err != nil {
		return Evaluation{}, err
	}
	defer r.Release()
	return r.Approximate(ctx, s.precision), nil
}

// Derivate returns de/dsymbol, reduced, as a new root. ok is false when e is
// not differentiable in symbol.
func (s *Session) Derivate(e Expr, symbol string) (Expr, bool, error) {
	if err := s.check(e); err != nil {
		return Expr{}, false, err
	}
	differentiable := true
	r, err := s.compute("derivate", func() Expr {
		c := e.Clone().DeepReduce(s.ctx)
		d, ok := c.Derivate(symbol, s.ctx)
		c.Release()
		differentiable = ok
		return d.Beautify(s.ctx)
	})
	if err != nil || !differentiable {
		return Expr{}, false, err
	}
	return r, true, nil
}

// Determinant returns det(e) as a new root; a scalar is its own determinant.
func (s *Session) Determinant(e Expr) (Expr, error) {
	return s.matrixFunction("determinant", e, KindDeterminant)
}

// Inverse returns the inverse of e, undefined when e is singular.
func (s *Session) Inverse(e Expr) (Expr, error) {
	return s.matrixFunction("inverse", e, KindMatrixInverse)
}

func (s *Session) matrixFunction(op string, e Expr, k Kind) (Expr, error) {
	if err := s.check(e); err != nil {
		return Expr{}, err
	}
	return s.compute(op, func() Expr {
		return s.arena.Func(k, e.Clone()).DeepReduce(s.ctx).Beautify(s.ctx)
	})
}

// Rank returns the rank of the matrix e. Entries whose nullity cannot be
// decided count as nonzero.
func (s *Session) Rank(e Expr) (int, error) {
	m, err := s.Reduce(e)
	if err != nil {
		return 0, err
	}
	defer m.Release()
	if m.Kind() != KindMatrix {
		return 0, errors.Errorf("expected a matrix, got %s", m.Kind())
	}
	r := m.Rank(s.ctx, true)
	if r < 0 {
		return 0, errors.New("rank could not be determined")
	}
	return r, nil
}

// Roots solves e = 0 for symbol when e is a polynomial of degree 1 to 3.
func (s *Session) Roots(e Expr, symbol string) ([]Expr, error) {
	p, err := s.Reduce(e)
	if err != nil {
		return nil, err
	}
	defer p.Release()
	var roots []Expr
	solved := false
	_, err = s.compute("roots", func() Expr {
		roots, solved = p.PolynomialRoots(symbol, s.ctx)
		for i := range roots {
			roots[i] = roots[i].Beautify(s.ctx)
		}
		return Expr{}
	})
	if err != nil {
		return nil, err
	}
	if !solved {
		return nil, errors.Errorf("%s is not a polynomial of degree 1 to 3 in %s", p.Serialize(), symbol)
	}
	return roots, nil
}

// Result is the text rendering of an evaluated input.
type Result struct {
	Input       string `json:"input"`
	Exact       string `json:"exact"`
	LaTeX       string `json:"latex"`
	Approximate string `json:"approximate"`
}

// Eval parses input, simplifies it and approximates it. The trees built
// along the way are released before returning.
func (s *Session) Eval(input string) (Result, error) {
	e, err := s.Parse(input)
	if err != nil {
		return Result{}, err
	}
	defer e.Release()
	r, err := s.Simplify(e)
	if err != nil {
		return Result{}, err
	}
	defer r.Release()
	v, err := s.Approximate(e)
	if err != nil {
		return Result{}, err
	}
	return Result{Input: input, Exact: r.Serialize(), LaTeX: r.Layout(), Approximate: v.String()}, nil
}
