package metrics

import (
	"time"

	"github.com/cuemby/txmgr/pkg/manager"
)

// snapshotSource is the subset of *manager.Manager the collector needs,
// declared locally so pkg/metrics never imports pkg/manager's Config or
// Catalog machinery.
type snapshotSource interface {
	Snapshot() manager.Snapshot
}

// Collector polls a Manager's status snapshot on an interval and publishes
// it as gauges.
type Collector struct {
	source snapshotSource
	stopCh chan struct{}
}

// NewCollector creates a new metrics collector for mgr.
func NewCollector(mgr snapshotSource) *Collector {
	return &Collector{
		source: mgr,
		stopCh: make(chan struct{}),
	}
}

// Start begins collecting metrics on a 5-second interval.
func (c *Collector) Start() {
	ticker := time.NewTicker(5 * time.Second)
	go func() {
		c.collect()
		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop stops the collector.
func (c *Collector) Stop() {
	close(c.stopCh)
}

func (c *Collector) collect() {
	snap := c.source.Snapshot()

	PrepareBacklogDepth.Set(float64(snap.PrepareBacklogDepth))
	LastCommittedID.Set(float64(snap.LastCommitted))

	for _, status := range []string{
		"InFlight", "Enqueued", "Preparing", "Prepared",
		"Validating", "Validated", "Rectifying", "Rectified",
		"Distributing", "Distributed", "Sealing", "Sealed",
		"Committing", "RollingBack",
	} {
		TransactionsInFlight.WithLabelValues(status).Set(float64(snap.ByStatus[status]))
	}
}
