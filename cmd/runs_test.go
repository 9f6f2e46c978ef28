//go:build !integration

package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/enrich-cli/internal/monitoring"
	"github.com/sells-group/enrich-cli/internal/store"
)

func sampleRuns(now time.Time) []store.Run {
	return []store.Run{
		{ID: "11111111-aaaa", Domain: "acme.com", Status: store.RunStatusComplete, CostUSD: 0.2, DurationMs: 4000, CreatedAt: now.Add(-time.Hour)},
		{ID: "22222222-bbbb", Domain: "widgets.io", Status: store.RunStatusComplete, CostUSD: 0.1, DurationMs: 2000, CreatedAt: now.Add(-2 * time.Hour)},
		{ID: "33333333-cccc", Domain: "acme.com", Status: store.RunStatusCached, CreatedAt: now.Add(-30 * time.Minute)},
		{ID: "44444444-dddd", Domain: "bad", Status: store.RunStatusFailed, Error: "pipeline: input failed for bad", CreatedAt: now.Add(-10 * time.Minute)},
		{ID: "55555555-eeee", Domain: "old.com", Status: store.RunStatusComplete, CostUSD: 9, DurationMs: 60000, CreatedAt: now.Add(-72 * time.Hour)},
	}
}

func TestComputeRunStats(t *testing.T) {
	now := time.Now()

	s := computeRunStats(sampleRuns(now), now.Add(-24*time.Hour))

	assert.Equal(t, 4, s.Total)
	assert.Equal(t, 2, s.Complete)
	assert.Equal(t, 1, s.Cached)
	assert.Equal(t, 1, s.Failed)
	assert.InDelta(t, 0.3, s.CostUSD, 1e-9)
	assert.InDelta(t, 3, s.AvgDurSec, 1e-9)
}

func TestComputeRunStats_AllTime(t *testing.T) {
	s := computeRunStats(sampleRuns(time.Now()), time.Time{})

	assert.Equal(t, 5, s.Total)
	assert.Equal(t, 3, s.Complete)
	assert.InDelta(t, 22, s.AvgDurSec, 1e-9)
}

func TestComputeRunStats_Empty(t *testing.T) {
	assert.Equal(t, runStats{}, computeRunStats(nil, time.Time{}))
}

func TestFormatRunsList(t *testing.T) {
	var buf bytes.Buffer
	formatRunsList(&buf, sampleRuns(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)))

	out := buf.String()
	assert.Contains(t, out, "ID")
	assert.Contains(t, out, "11111111")
	assert.NotContains(t, out, "11111111-aaaa")
	assert.Contains(t, out, "$0.2000")
	assert.Contains(t, out, "4s")
	assert.Contains(t, out, "pipeline: input failed for bad")
}

func TestFormatRunStats(t *testing.T) {
	var buf bytes.Buffer
	formatRunStats(&buf, runStats{Total: 3, Complete: 2, Failed: 1, CostUSD: 0.5, AvgDurSec: 12.4})

	out := buf.String()
	assert.Contains(t, out, "Total runs:")
	assert.Contains(t, out, "$0.5000")
	assert.Contains(t, out, "12.4s")

	buf.Reset()
	formatRunStats(&buf, runStats{})
	assert.NotContains(t, buf.String(), "Avg duration")
}

func TestFormatAlerts(t *testing.T) {
	var buf bytes.Buffer
	formatAlerts(&buf, nil)
	assert.Contains(t, buf.String(), "no alerts")

	buf.Reset()
	formatAlerts(&buf, []monitoring.Alert{{Type: monitoring.AlertCostOverrun, Severity: "high", Message: "API cost $31.50 exceeds threshold $25.00 in last 24h"}})
	out := buf.String()
	assert.Contains(t, out, "SEVERITY")
	assert.Contains(t, out, "cost_overrun")
	assert.Contains(t, out, "$31.50")
}

func TestTruncateID(t *testing.T) {
	assert.Equal(t, "12345678", truncateID("12345678-90ab-cdef"))
	assert.Equal(t, "short", truncateID("short"))
}

func TestFormatSummaries(t *testing.T) {
	var buf bytes.Buffer
	formatSummaries(&buf, []store.Summary{
		{Domain: "acme.com", CompanyName: "Acme Tools", RevenueBand: "25M-75M", SizeBand: "201-500 Employees", ICPMatch: true, CostUSD: 0.08},
		{Domain: "tiny.io", CompanyName: "Tiny", SizeBand: "2-10 Employees"},
	})

	out := buf.String()
	assert.Contains(t, out, "acme.com")
	assert.Contains(t, out, "25M-75M")
	assert.Contains(t, out, "yes")
	assert.Contains(t, out, "$0.0800")
	assert.Contains(t, out, "-")
}
