package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TotalRuns tracks pipeline runs started.
	TotalRuns = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pagewatch_runs_total",
		Help: "The total number of monitoring runs started.",
	})
	// TotalPagesProcessed tracks pages that reached a persisted snapshot.
	TotalPagesProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pagewatch_pages_processed_total",
		Help: "The total number of pages snapshotted across all runs.",
	})
	// TotalPageFailures tracks pages that failed before persistence.
	TotalPageFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pagewatch_page_failures_total",
		Help: "The total number of per-page failures across all runs.",
	})
	// TotalSignificantChanges tracks diffs above the change threshold.
	TotalSignificantChanges = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pagewatch_significant_changes_total",
		Help: "The total number of changes above the significance threshold.",
	})
	// RunDuration observes wall time per completed run.
	RunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pagewatch_run_duration_seconds",
		Help:    "Duration of completed monitoring runs.",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12),
	})
)
