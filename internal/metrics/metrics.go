package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Sweep metrics
	SweepsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "wardwatch_sweeps_total",
			Help: "Total number of analysis sweeps started",
		},
	)

	SystemsAnalyzedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wardwatch_systems_analyzed_total",
			Help: "Total per-system analysis units, by outcome",
		},
		[]string{"outcome"},
	)

	// Ingestion metrics
	RecordsFetchedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "wardwatch_records_fetched_total",
			Help: "Total log records fetched from external systems",
		},
	)

	FetchErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wardwatch_fetch_errors_total",
			Help: "Total fetch failures, by error kind",
		},
		[]string{"kind"},
	)

	// Detection metrics
	AlertsEmittedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wardwatch_alerts_emitted_total",
			Help: "Total threat alerts persisted, by severity",
		},
		[]string{"severity"},
	)

	EvaluationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "wardwatch_evaluation_duration_seconds",
			Help:    "Duration of rule evaluation per record batch in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Storage metrics
	StoreErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "wardwatch_store_errors_total",
			Help: "Total alert persistence failures",
		},
	)
)
