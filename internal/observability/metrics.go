package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters and histograms for the parse
// pipeline and its cache.
type Metrics struct {
	ParsesCompleted prometheus.Counter
	ParsesRejected  prometheus.Counter
	DecodeFailures  prometheus.Counter
	ParseDuration   prometheus.Histogram

	// Reconstruction diagnostics: silent defaults are a design choice, but
	// the gaps they paper over should still be visible.
	PointsOutOfRange prometheus.Counter
	CellsUnfilled    prometheus.Counter

	CacheHits   prometheus.Counter
	CacheMisses prometheus.Counter
}

// NewMetrics creates and registers all pipeline metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.ParsesCompleted,
		m.ParsesRejected,
		m.DecodeFailures,
		m.ParseDuration,
		m.PointsOutOfRange,
		m.CellsUnfilled,
		m.CacheHits,
		m.CacheMisses,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		ParsesCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "griblet",
			Name:      "parses_completed_total",
			Help:      "Total GRIB files successfully assembled into velocity series.",
		}),
		ParsesRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "griblet",
			Name:      "parses_rejected_total",
			Help:      "Total parse requests rejected by the concurrency limiter.",
		}),
		DecodeFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "griblet",
			Name:      "decode_failures_total",
			Help:      "Total external decoder invocations that failed or emitted unparsable output.",
		}),
		ParseDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "griblet",
			Name:      "parse_duration_seconds",
			Help:      "Duration of a complete list-match-extract-assemble cycle.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		PointsOutOfRange: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "griblet",
			Name:      "points_out_of_range_total",
			Help:      "Scattered samples discarded because their computed cell fell outside the grid.",
		}),
		CellsUnfilled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "griblet",
			Name:      "cells_unfilled_total",
			Help:      "Grid cells left at the zero default because no sample landed in them.",
		}),
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "griblet",
			Name:      "cache_hits_total",
			Help:      "Velocity series served from the on-disk cache.",
		}),
		CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "griblet",
			Name:      "cache_misses_total",
			Help:      "Velocity series that required a full decode.",
		}),
	}
}
