package symcalc

import "strings"

// ReductionTarget selects how aggressively a tree is rewritten.
type ReductionTarget uint8

const (
	// TargetUser produces a canonical form meant to be beautified and shown.
	TargetUser ReductionTarget = iota
	// TargetSystemForApproximation prepares a tree for numeric evaluation.
	TargetSystemForApproximation
	// TargetSystemForAnalysis keeps the form convenient for algorithms
	// (matrix canonization, polynomial analysis); dependencies are dropped.
	TargetSystemForAnalysis
)

type ComplexFormat uint8

const (
	ComplexReal ComplexFormat = iota
	ComplexCartesian
	ComplexPolar
)

type AngleUnit uint8

const (
	AngleRadian AngleUnit = iota
	AngleDegree
	AngleGradian
)

type UnitFormat uint8

const (
	UnitMetric UnitFormat = iota
	UnitImperial
)

// SymbolicComputation is the policy for symbols met during reduction.
type SymbolicComputation uint8

const (
	ReplaceAllDefinedSymbolsWithDefinition SymbolicComputation = iota
	ReplaceAllSymbolsWithDefinitionsOrUndefined
	ReplaceAllSymbolsWithUndefined
	DoNotReplaceAnySymbol
)

// SymbolStore resolves user definitions. The returned Expr is borrowed:
// callers clone it before inserting it into a tree.
type SymbolStore interface {
	Definition(name string) (Expr, bool)
}

// ReductionContext is the bundle of settings threaded through reduction and
// approximation. It is passed by value; sub-steps adjust a copy.
type ReductionContext struct {
	Target              ReductionTarget
	ComplexFormat       ComplexFormat
	AngleUnit           AngleUnit
	UnitFormat          UnitFormat
	SymbolicComputation SymbolicComputation
	Symbols             SymbolStore
}

// DefaultContext is the user-facing default: real results, radians, metric
// units, defined symbols replaced.
func DefaultContext() ReductionContext {
	return ReductionContext{}
}

func (c ReductionContext) WithTarget(t ReductionTarget) ReductionContext {
	c.Target = t
	return c
}

func (c ReductionContext) WithComplexFormat(f ComplexFormat) ReductionContext {
	c.ComplexFormat = f
	return c
}

func (c ReductionContext) WithSymbolicComputation(s SymbolicComputation) ReductionContext {
	c.SymbolicComputation = s
	return c
}

func (c ReductionContext) definition(name string) (Expr, bool) {
	if c.Symbols == nil {
		return Expr{}, false
	}
	return c.Symbols.Definition(name)
}

// UpdateComplexFormat switches a Real context to Cartesian when e mentions i.
func (c ReductionContext) UpdateComplexFormat(e Expr) ReductionContext {
	if c.ComplexFormat == ComplexReal && e.RecursivelyMatches(func(n Expr) bool { return n.isConstant(ConstantI) }) {
		c.ComplexFormat = ComplexCartesian
	}
	return c
}

func (t ReductionTarget) String() string {
	switch t {
	case TargetSystemForApproximation:
		return "system-approximation"
	case TargetSystemForAnalysis:
		return "system-analysis"
	}
	return "user"
}

func (f ComplexFormat) String() string {
	switch f {
	case ComplexCartesian:
		return "cartesian"
	case ComplexPolar:
		return "polar"
	}
	return "real"
}

func (u AngleUnit) String() string {
	switch u {
	case AngleDegree:
		return "degree"
	case AngleGradian:
		return "gradian"
	}
	return "radian"
}

func (u UnitFormat) String() string {
	if u == UnitImperial {
		return "imperial"
	}
	return "metric"
}

func (s SymbolicComputation) String() string {
	switch s {
	case ReplaceAllSymbolsWithDefinitionsOrUndefined:
		return "definitions-or-undefined"
	case ReplaceAllSymbolsWithUndefined:
		return "undefined"
	case DoNotReplaceAnySymbol:
		return "none"
	}
	return "defined"
}

// ParseComplexFormat accepts the names produced by ComplexFormat.String.
func ParseComplexFormat(s string) (ComplexFormat, bool) {
	switch strings.ToLower(s) {
	case "", "real":
		return ComplexReal, true
	case "cartesian":
		return ComplexCartesian, true
	case "polar":
		return ComplexPolar, true
	}
	return ComplexReal, false
}

func ParseAngleUnit(s string) (AngleUnit, bool) {
	switch strings.ToLower(s) {
	case "", "radian", "rad":
		return AngleRadian, true
	case "degree", "deg":
		return AngleDegree, true
	case "gradian", "grad":
		return AngleGradian, true
	}
	return AngleRadian, false
}

func ParseUnitFormat(s string) (UnitFormat, bool) {
	switch strings.ToLower(s) {
	case "", "metric":
		return UnitMetric, true
	case "imperial":
		return UnitImperial, true
	}
	return UnitMetric, false
}

func ParseSymbolicComputation(s string) (SymbolicComputation, bool) {
	switch strings.ToLower(s) {
	case "", "defined":
		return ReplaceAllDefinedSymbolsWithDefinition, true
	case "definitions-or-undefined":
		return ReplaceAllSymbolsWithDefinitionsOrUndefined, true
	case "undefined":
		return ReplaceAllSymbolsWithUndefined, true
	case "none":
		return DoNotReplaceAnySymbol, true
	}
	return ReplaceAllDefinedSymbolsWithDefinition, false
}
