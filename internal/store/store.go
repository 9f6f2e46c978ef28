// Package store persists enrichment results keyed by normalized domain.
package store

import (
	"context"
	"strconv"
	"time"

	"github.com/sells-group/enrich-cli/internal/model"
)

// RunStatus is the outcome of one pipeline invocation.
type RunStatus string

const (
	RunStatusComplete RunStatus = "complete"
	RunStatusCached   RunStatus = "cached"
	RunStatusFailed   RunStatus = "failed"
)

// Run is the audit row written for every pipeline invocation.
type Run struct {
	ID         string    `json:"id"`
	Domain     string    `json:"domain"`
	Status     RunStatus `json:"status"`
	Error      string    `json:"error,omitempty"`
	CostUSD    float64   `json:"cost_usd"`
	DurationMs int64     `json:"duration_ms"`
	CreatedAt  time.Time `json:"created_at"`
}

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status RunStatus `json:"status,omitempty"`
	Domain string    `json:"domain,omitempty"`
	Limit  int       `json:"limit,omitempty"`
	Offset int       `json:"offset,omitempty"`
}

// Summary is the listing view of a stored result.
type Summary struct {
	Domain      string    `json:"domain"`
	CompanyName string    `json:"company_name"`
	RevenueBand string    `json:"revenue_band,omitempty"`
	SizeBand    string    `json:"company_size"`
	ICPMatch    bool      `json:"icp_match"`
	CostUSD     float64   `json:"total_cost_usd"`
	EnrichedAt  time.Time `json:"enriched_at"`
}

// ResultFilter specifies criteria for listing stored results.
type ResultFilter struct {
	ICPOnly bool `json:"icp_only,omitempty"`
	Limit   int  `json:"limit,omitempty"`
	Offset  int  `json:"offset,omitempty"`
}

// Store defines the persistence interface for enrichment results.
// Writes are idempotent upserts keyed by domain; the last write wins.
type Store interface {
	// Results
	GetResult(ctx context.Context, domain string) (*model.Result, error)
	UpsertResult(ctx context.Context, res *model.Result) error
	ListResults(ctx context.Context, filter ResultFilter) ([]Summary, error)

	// Runs
	RecordRun(ctx context.Context, run Run) error
	ListRuns(ctx context.Context, filter RunFilter) ([]Run, error)

	// Lifecycle
	Ping(ctx context.Context) error
	Migrate(ctx context.Context) error
	Close() error
}

func defaultLimit(n int) int {
	if n <= 0 {
		return 50
	}
	return n
}

func itoa(n int) string { return strconv.Itoa(n) }
