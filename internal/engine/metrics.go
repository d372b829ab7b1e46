package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Метрики прогонов и позиций. Регистрируются в глобальном реестре
// prometheus, отдаются через /metrics.
var (
	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "orion",
		Subsystem: "engine",
		Name:      "runs_total",
		Help:      "Runs by final status",
	}, []string{"status"})

	runDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "orion",
		Subsystem: "engine",
		Name:      "run_duration_seconds",
		Help:      "Wall time of a full run over the pair universe",
		Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
	})

	pairErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "orion",
		Subsystem: "engine",
		Name:      "pair_errors_total",
		Help:      "Per-pair failures that did not abort the run",
	})

	barsWritten = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "orion",
		Subsystem: "candles",
		Name:      "bars_written_total",
		Help:      "Bars written to the cache",
	}, []string{"timeframe"})

	positionsOpened = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "orion",
		Subsystem: "positions",
		Name:      "opened_total",
		Help:      "Positions opened from entry signals",
	})

	positionsClosed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "orion",
		Subsystem: "positions",
		Name:      "closed_total",
		Help:      "Positions closed by reason",
	}, []string{"reason"})

	trailArmed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "orion",
		Subsystem: "positions",
		Name:      "trail_armed_total",
		Help:      "Trail activations",
	})

	trailUpdates = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "orion",
		Subsystem: "positions",
		Name:      "trail_updates_total",
		Help:      "Trail price moves",
	})
)
