package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "expanders360"

// Matching and scheduling Prometheus metrics.
var (
	RebuildsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rebuilds_total",
			Help:      "Total number of project match rebuilds",
		},
		[]string{"status"}, // "ok" / "not_found" / "error"
	)

	RebuildDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rebuild_duration_seconds",
			Help:      "Project match rebuild duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	MatchesUpsertedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "matches_upserted_total",
			Help:      "Total number of matches created or refreshed",
		},
	)

	VendorsSkippedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "vendors_skipped_total",
			Help:      "Eligible vendors skipped during rebuild",
		},
		[]string{"reason"},
	)

	SchedulerRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scheduler_runs_total",
			Help:      "Total number of scheduler refresh runs",
		},
		[]string{"status"}, // "ok" / "partial" / "failed" / "skipped"
	)

	SchedulerProjectFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scheduler_project_failures_total",
			Help:      "Projects whose rebuild failed inside a scheduler run",
		},
	)

	NotificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Match notifications by delivery outcome",
		},
		[]string{"status"}, // "sent" / "failed" / "dropped"
	)

	AnalyticsCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analytics_cache_total",
			Help:      "Analytics report cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)

	DocumentCountDegradedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "document_count_degraded_total",
			Help:      "Countries reported with document_count 0 because the lookup failed",
		},
	)
)

var registerOnce sync.Once

// Register registers the matching metrics on the default registry. Safe to call more than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			RebuildsTotal,
			RebuildDuration,
			MatchesUpsertedTotal,
			VendorsSkippedTotal,
			SchedulerRunsTotal,
			SchedulerProjectFailuresTotal,
			NotificationsTotal,
			AnalyticsCacheTotal,
			DocumentCountDegradedTotal,
		)
	})
}
