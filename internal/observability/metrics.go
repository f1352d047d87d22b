// Package observability holds the Prometheus instrumentation for the alert
// pipeline.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the counters, gauges, and histograms for the cron pipeline.
type Metrics struct {
	RunsTotal   prometheus.Counter
	RunDuration prometheus.Histogram

	FetchFailures      *prometheus.CounterVec // labels: domain
	CandidatesChecked  *prometheus.CounterVec // labels: domain
	CandidatesMatched  *prometheus.CounterVec // labels: domain
	IdentitiesNotified *prometheus.CounterVec // labels: domain

	LedgerSkips          *prometheus.CounterVec // labels: domain — candidates suppressed by the ledger
	LedgerCleanupDeleted prometheus.Counter
	CleanupFailures      prometheus.Counter
}

// NewMetrics creates and registers all pipeline metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.RunsTotal,
		m.RunDuration,
		m.FetchFailures,
		m.CandidatesChecked,
		m.CandidatesMatched,
		m.IdentitiesNotified,
		m.LedgerSkips,
		m.LedgerCleanupDeleted,
		m.CleanupFailures,
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
		RunsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "civic_alerts",
			Name:      "runs_total",
			Help:      "Total cron pipeline invocations.",
		}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "civic_alerts",
			Name:      "run_duration_seconds",
			Help:      "Duration of a complete four-domain pipeline run.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		FetchFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "civic_alerts",
			Name:      "fetch_failures_total",
			Help:      "Upstream fetch failures by domain.",
		}, []string{"domain"}),
		CandidatesChecked: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "civic_alerts",
			Name:      "candidates_checked_total",
			Help:      "Candidate (occurrence, identity) pairs evaluated, by domain.",
		}, []string{"domain"}),
		CandidatesMatched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "civic_alerts",
			Name:      "candidates_matched_total",
			Help:      "Candidates that passed the subscription matcher, by domain.",
		}, []string{"domain"}),
		IdentitiesNotified: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "civic_alerts",
			Name:      "identities_notified_total",
			Help:      "Identities with at least one accepted delivery, by domain.",
		}, []string{"domain"}),
		LedgerSkips: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "civic_alerts",
			Name:      "ledger_skips_total",
			Help:      "Candidates suppressed because the occurrence was already announced.",
		}, []string{"domain"}),
		LedgerCleanupDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "civic_alerts",
			Name:      "ledger_cleanup_deleted_total",
			Help:      "Ledger rows removed by the per-run retention cleanup.",
		}),
		CleanupFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "civic_alerts",
			Name:      "cleanup_failures_total",
			Help:      "Ledger cleanup attempts that failed.",
		}),
	}
}
