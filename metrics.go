package symcalc

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// arenaBytesInUse tracks the bytes held by live nodes of the last arena
	// that allocated or was reset.
	arenaBytesInUse = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "symcalc_arena_bytes_in_use",
		Help: "Bytes held by live expression nodes",
	})

	arenaExhaustions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "symcalc_arena_exhaustions_total",
		Help: "Total allocations refused because the arena was full",
	})

	checkpointRollbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "symcalc_checkpoint_rollbacks_total",
		Help: "Total checkpoints rolled back after arena exhaustion",
	})

	// numericFallbacks counts computations finished numerically after the
	// symbolic attempt ran out of space.
	numericFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "symcalc_numeric_fallbacks_total",
		Help: "Total symbolic computations replaced by a numeric one",
	})

	reductionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "symcalc_reductions_total",
		Help: "Total deep reductions by outcome",
	}, []string{"result"}) // "ok", "undefined" or "exhausted"

	reduceDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "symcalc_reduce_duration_seconds",
		Help:    "Deep reduction duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10), // 10µs to ~2.6s
	})
)

func observeReduction(start time.Time, r Expr) {
	reduceDuration.Observe(time.Since(start).Seconds())
	switch {
	case r.a != nil && r.a.err != nil:
		reductionsTotal.WithLabelValues("exhausted").Inc()
	case r.Kind() == KindUndefined:
		reductionsTotal.WithLabelValues("undefined").Inc()
	default:
		reductionsTotal.WithLabelValues("ok").Inc()
	}
}
