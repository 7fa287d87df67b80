package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Transaction lifecycle metrics
	TransactionsBegun = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "txmgr_transactions_begun_total",
			Help: "Total number of transactions begun",
		},
	)

	TransactionsCommitted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "txmgr_transactions_committed_total",
			Help: "Total number of transactions committed",
		},
	)

	TransactionsRolledBack = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "txmgr_transactions_rolled_back_total",
			Help: "Total number of transactions rolled back, by reason",
		},
		[]string{"reason"},
	)

	TransactionsInFlight = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "txmgr_transactions_by_status",
			Help: "Current number of non-terminal transactions by status",
		},
		[]string{"status"},
	)

	PrepareBacklogDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "txmgr_prepare_backlog_depth",
			Help: "Number of transactions waiting for the prepare pipeline slot",
		},
	)

	// Pipeline stage durations
	PrepareDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "txmgr_prepare_duration_seconds",
			Help:    "Time taken to run a transaction's full prepare pipeline in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	TriggerPhaseDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "txmgr_trigger_phase_duration_seconds",
			Help:    "Time taken to run one validate/rectify/distribute phase in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)

	CommitDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "txmgr_commit_duration_seconds",
			Help:    "Time taken to append a commit record and notify enlisted stores in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Store-facing metrics
	StorePrepareErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "txmgr_store_prepare_errors_total",
			Help: "Total number of store.Prepare calls that returned an error, by store id",
		},
		[]string{"store_id"},
	)

	StoreCommitInconsistencies = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "txmgr_store_commit_inconsistencies_total",
			Help: "Total number of store.Commit calls that failed after the log record was already durable, by store id",
		},
		[]string{"store_id"},
	)

	// Log metrics
	LogSegmentBytes = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "txmgr_log_segment_bytes",
			Help: "Size in bytes of the current log segment",
		},
	)

	LogRotationsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "txmgr_log_rotations_total",
			Help: "Total number of log segment rotations",
		},
	)

	LastCommittedID = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "txmgr_last_committed_id",
			Help: "Highest commit id durably recorded in the transaction log",
		},
	)
)

func init() {
	prometheus.MustRegister(TransactionsBegun)
	prometheus.MustRegister(TransactionsCommitted)
	prometheus.MustRegister(TransactionsRolledBack)
	prometheus.MustRegister(TransactionsInFlight)
	prometheus.MustRegister(PrepareBacklogDepth)
	prometheus.MustRegister(PrepareDuration)
	prometheus.MustRegister(TriggerPhaseDuration)
	prometheus.MustRegister(CommitDuration)
	prometheus.MustRegister(StorePrepareErrors)
	prometheus.MustRegister(StoreCommitInconsistencies)
	prometheus.MustRegister(LogSegmentBytes)
	prometheus.MustRegister(LogRotationsTotal)
	prometheus.MustRegister(LastCommittedID)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	duration := time.Since(t.start).Seconds()
	histogram.Observe(duration)
}

// ObserveDurationVec records the duration to a histogram vec with labels
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	duration := time.Since(t.start).Seconds()
	histogram.WithLabelValues(labels...).Observe(duration)
}

// Duration returns the elapsed time since timer started
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
