package symcalc

import "github.com/pkg/errors"

// Sentinel errors returned by symcalc. Callers match them with errors.Is;
// the package wraps them with context via errors.Wrap at API boundaries.
var (
	// ErrOutOfArenaSpace is set on an Arena when an allocation cannot be
	// satisfied. It is recoverable only through WithCheckpoint.
	ErrOutOfArenaSpace = errors.New("symcalc: out of arena space")

	// ErrCouldNotCompute is surfaced by Session operations when the arena was
	// exhausted outside of any fallback path.
	ErrCouldNotCompute = errors.New("symcalc: could not compute")

	// ErrCouldNotCanonize reports that a matrix holds a coefficient whose
	// zero-ness could not be decided and canonization was not forced.
	ErrCouldNotCanonize = errors.New("symcalc: could not canonize matrix")

	// ErrUninitialized is returned when an operation receives the zero Expr.
	ErrUninitialized = errors.New("symcalc: uninitialized expression")

	// ErrParse wraps every error reported by the text parser.
	ErrParse = errors.New("symcalc: parse error")
)
