package symcalc

// WithCheckpoint runs body and, if the arena ran out of space while it ran,
// frees every node allocated since the call, clears the arena error and
// returns ErrOutOfArenaSpace. The body must only mutate nodes it created
// itself; nodes that existed before the checkpoint may be read and cloned.
// On success the returned root carries one hold owned by the caller.
//
// A panic raised by body while the arena is out of space counts as
// exhaustion: trees left half built by failed allocations may break the
// shape invariants later code relies on. Other panics propagate.
func WithCheckpoint(a *Arena, body func() Expr) (result Expr, err error) {
	if a.err != nil {
		return Expr{}, ErrOutOfArenaSpace
	}
	m := a.mark()
	defer func() {
		if err == nil {
			return
		}
		a.rollback(m)
		checkpointRollbacks.Inc()
		a.logger.Debug("checkpoint rolled back", "mark", m, "used", a.used)
	}()
	result = runBody(a, body)
	if a.err == nil {
		return result, nil
	}
	return Expr{}, ErrOutOfArenaSpace
}

func runBody(a *Arena, body func() Expr) (result Expr) {
	defer func() {
		if a.err == nil {
			return
		}
		if r := recover(); r != nil {
			a.logger.Debug("panic while out of arena space", "panic", r)
			result = Expr{}
		}
	}()
	return body()
}

// TrySymbolicElseNumeric runs symbolic inside a checkpoint. If it exhausted
// the arena or reported that it could not compute, numeric runs instead,
// outside of the checkpoint.
func TrySymbolicElseNumeric(a *Arena, symbolic func() (Expr, bool), numeric func() Expr) Expr {
	computed := false
	res, err := WithCheckpoint(a, func() Expr {
		e, ok := symbolic()
		computed = ok
		return e
	})
	if err == nil && computed {
		return res
	}
	if err == nil {
		res.Release()
	}
	numericFallbacks.Inc()
	a.logger.Debug("falling back to numeric computation", "exhausted", err != nil)
	return numeric()
}
