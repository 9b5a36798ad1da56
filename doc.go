// Package symcalc provides the symbolic kernel of a graphing calculator.
//
// Design goals:
//   - Expression trees live in a bounded, reference-counted Arena
//   - Exact rational arithmetic (math/big.Rat) with a float fallback
//   - Deterministic reduction to a canonical form, then beautification
//   - Numeric approximation in single or double precision, real or complex
//   - Matrix algebra that degrades to numeric results when the arena is full
//   - Checkpoints: running out of space rolls back instead of crashing
//   - AI/LLM friendly: JSON, LaTeX, and MCP-ready tool calls
//
// A Session bundles an arena, a reduction context and user definitions:
//
//	s := symcalc.NewSession(symcalc.WithParser(parse.Parse))
//	res, err := s.Eval("det([[a,b][c,d]])")
//	// res.Exact == "a*d-b*c"
package symcalc
