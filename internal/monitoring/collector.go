// Package monitoring watches enrichment run history and raises webhook
// alerts when failure rate or spend cross configured thresholds.
package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/enrich-cli/internal/store"
)

// runScanLimit caps how many recent runs one snapshot reads.
const runScanLimit = 10000

// MetricsSnapshot holds a point-in-time view of run health.
type MetricsSnapshot struct {
	Total     int     `json:"total"`
	Complete  int     `json:"complete"`
	Cached    int     `json:"cached"`
	Failed    int     `json:"failed"`
	FailRate  float64 `json:"fail_rate"`
	CacheRate float64 `json:"cache_rate"`
	CostUSD   float64 `json:"cost_usd"`
	AvgCost   float64 `json:"avg_cost_usd"`
	AvgDurMs  int64   `json:"avg_duration_ms"`

	LookbackHours int       `json:"lookback_hours"`
	CollectedAt   time.Time `json:"collected_at"`
}

// RunLister is the slice of the store the collector reads.
type RunLister interface {
	ListRuns(ctx context.Context, filter store.RunFilter) ([]store.Run, error)
}

// Collector gathers metrics from run history.
type Collector struct {
	runs RunLister
	now  func() time.Time
}

// NewCollector creates a new metrics collector.
func NewCollector(runs RunLister) *Collector {
	return &Collector{runs: runs, now: time.Now}
}

// Collect gathers a snapshot over the given lookback window.
func (c *Collector) Collect(ctx context.Context, lookbackHours int) (*MetricsSnapshot, error) {
	now := c.now().UTC()
	snap := &MetricsSnapshot{LookbackHours: lookbackHours, CollectedAt: now}
	cutoff := now.Add(-time.Duration(lookbackHours) * time.Hour)

	runs, err := c.runs.ListRuns(ctx, store.RunFilter{Limit: runScanLimit})
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list runs")
	}

	var totalDur int64
	for _, r := range runs {
		if r.CreatedAt.Before(cutoff) {
			continue
		}
		snap.Total++
		snap.CostUSD += r.CostUSD
		switch r.Status {
		case store.RunStatusComplete:
			snap.Complete++
			totalDur += r.DurationMs
		case store.RunStatusCached:
			snap.Cached++
		case store.RunStatusFailed:
			snap.Failed++
		}
	}

	if snap.Total > 0 {
		snap.FailRate = float64(snap.Failed) / float64(snap.Total)
		snap.CacheRate = float64(snap.Cached) / float64(snap.Total)
		snap.AvgCost = snap.CostUSD / float64(snap.Total)
	}
	if snap.Complete > 0 {
		snap.AvgDurMs = totalDur / int64(snap.Complete)
	}
	return snap, nil
}
