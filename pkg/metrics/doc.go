/*
Package metrics provides Prometheus metrics collection and exposition for
the transaction manager.

# Architecture

	┌──────────────────── METRICS SYSTEM ──────────────────────┐
	│                                                            │
	│  ┌────────────────────────────────────────────┐          │
	│  │          Prometheus Registry                 │          │
	│  │  - Global DefaultRegistry                    │          │
	│  │  - MustRegister at package init              │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │           Metric Categories                  │          │
	│  │                                               │          │
	│  │  Lifecycle: begun/committed/rolled-back       │          │
	│  │  Pipeline: prepare/trigger/commit duration    │          │
	│  │  Store: prepare errors, commit inconsistency  │          │
	│  │  Log: segment bytes, rotations, last commit   │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │          HTTP Metrics Endpoint                │          │
	│  │  - Path: /metrics, Handler: promhttp.Handler()│          │
	│  └────────────────────────────────────────────┘           │
	└────────────────────────────────────────────────────────────┘

# Metrics Catalog

txmgr_transactions_begun_total / txmgr_transactions_committed_total:
  - Type: Counter
  - Monotonic counts of begin/commit completions.

txmgr_transactions_rolled_back_total{reason}:
  - Type: Counter
  - Rollback count, labeled by the reason the record terminated that way.

txmgr_transactions_by_status{status}:
  - Type: Gauge
  - Current count of non-terminal records per txrecord.Status.

txmgr_prepare_backlog_depth:
  - Type: Gauge
  - Length of the pendingPrepare FIFO queue.

txmgr_prepare_duration_seconds / txmgr_commit_duration_seconds:
  - Type: Histogram
  - Wall time for a full prepare pipeline run, and for one batched commit.

txmgr_trigger_phase_duration_seconds{kind}:
  - Type: Histogram
  - Wall time for one validate/rectify/distribute phase.

txmgr_store_prepare_errors_total{store_id} /
txmgr_store_commit_inconsistencies_total{store_id}:
  - Type: Counter
  - Store-attributed failure counts; the latter corresponds to
    manager.FatalInconsistencyError.

txmgr_log_segment_bytes / txmgr_log_rotations_total / txmgr_last_committed_id:
  - Type: Gauge / Counter / Gauge
  - Current segment size, rotation count, and highest durable commit id.

Only txmgr_transactions_by_status, txmgr_prepare_backlog_depth and
txmgr_last_committed_id are updated inside this module, by Collector. The
other metrics above are registered and served, but no code in this module
updates them, so they stay at zero unless an embedding application does.

# Usage

	timer := metrics.NewTimer()
	// ... run the prepare pipeline ...
	timer.ObserveDuration(metrics.PrepareDuration)

	metrics.TransactionsRolledBack.WithLabelValues("validator_rejected").Inc()

	http.Handle("/metrics", metrics.Handler())

# Design Patterns

Package Init Registration: all metrics are registered in init(); as in the
rest of this corpus, MustRegister panics on duplicate registration so a
naming collision fails fast at process start rather than silently dropping
a metric.

Collector: pkg/metrics.Collector polls a manager.Snapshot on an interval
and republishes it as gauges, decoupling the manager's internal locking
from the scrape path.
*/
package metrics
