package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/enrich-cli/internal/model"
)

// sqliteTime is a fixed-width UTC layout so text columns sort chronologically.
const sqliteTime = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS enrichments (
	domain         TEXT PRIMARY KEY,
	request_id     TEXT NOT NULL,
	company_name   TEXT NOT NULL DEFAULT '',
	revenue_band   TEXT,
	size_band      TEXT NOT NULL DEFAULT 'unknown',
	icp_match      INTEGER NOT NULL DEFAULT 0,
	total_cost_usd REAL NOT NULL DEFAULT 0,
	result         TEXT NOT NULL,
	enriched_at    TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_enrichments_enriched_at ON enrichments(enriched_at);

CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	domain      TEXT NOT NULL,
	status      TEXT NOT NULL,
	error       TEXT NOT NULL DEFAULT '',
	cost_usd    REAL NOT NULL DEFAULT 0,
	duration_ms INTEGER NOT NULL DEFAULT 0,
	created_at  TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_domain ON runs(domain);
CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);
`

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// GetResult returns the stored result for domain, or nil when absent.
func (s *SQLiteStore) GetResult(ctx context.Context, domain string) (*model.Result, error) {
	var body, at string
	err := s.db.QueryRowContext(ctx,
		`SELECT result, enriched_at FROM enrichments WHERE domain = ?`, domain,
	).Scan(&body, &at)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get result %s", domain)
	}

	var res model.Result
	if err := json.Unmarshal([]byte(body), &res); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal result")
	}
	if res.EnrichedAt, err = time.Parse(sqliteTime, at); err != nil {
		return nil, eris.Wrap(err, "sqlite: parse enriched_at")
	}
	return &res, nil
}

// UpsertResult writes res keyed by its record's domain.
func (s *SQLiteStore) UpsertResult(ctx context.Context, res *model.Result) error {
	if res == nil || res.Record.Domain == "" {
		return eris.New("sqlite: upsert result: missing domain")
	}
	at := res.EnrichedAt
	if at.IsZero() {
		at = time.Now()
	}
	body, err := json.Marshal(res)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal result")
	}

	var revenue sql.NullString
	if band := res.Record.Revenue(); band != "" {
		revenue = sql.NullString{String: band, Valid: true}
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO enrichments (domain, request_id, company_name, revenue_band, size_band, icp_match, total_cost_usd, result, enriched_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (domain) DO UPDATE SET
			request_id = excluded.request_id,
			company_name = excluded.company_name,
			revenue_band = excluded.revenue_band,
			size_band = excluded.size_band,
			icp_match = excluded.icp_match,
			total_cost_usd = excluded.total_cost_usd,
			result = excluded.result,
			enriched_at = excluded.enriched_at`,
		res.Record.Domain, res.RequestID, res.Record.CompanyName, revenue, res.Record.SizeBand,
		res.Record.ICPMatch, res.TotalCost, string(body), at.UTC().Format(sqliteTime),
	)
	return eris.Wrapf(err, "sqlite: upsert result %s", res.Record.Domain)
}

// ListResults returns stored results, newest first.
func (s *SQLiteStore) ListResults(ctx context.Context, filter ResultFilter) ([]Summary, error) {
	query := `SELECT domain, company_name, COALESCE(revenue_band, ''), size_band, icp_match, total_cost_usd, enriched_at FROM enrichments`
	if filter.ICPOnly {
		query += ` WHERE icp_match = 1`
	}
	query += ` ORDER BY enriched_at DESC LIMIT ? OFFSET ?`

	rows, err := s.db.QueryContext(ctx, query, defaultLimit(filter.Limit), filter.Offset)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list results")
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var sm Summary
		var at string
		if err := rows.Scan(&sm.Domain, &sm.CompanyName, &sm.RevenueBand, &sm.SizeBand, &sm.ICPMatch, &sm.CostUSD, &at); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan result summary")
		}
		if sm.EnrichedAt, err = time.Parse(sqliteTime, at); err != nil {
			return nil, eris.Wrap(err, "sqlite: parse enriched_at")
		}
		out = append(out, sm)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate results")
}

// RecordRun appends a run audit row.
func (s *SQLiteStore) RecordRun(ctx context.Context, run Run) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, domain, status, error, cost_usd, duration_ms, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Domain, string(run.Status), run.Error, run.CostUSD, run.DurationMs, run.CreatedAt.UTC().Format(sqliteTime),
	)
	return eris.Wrap(err, "sqlite: insert run")
}

// ListRuns returns run audit rows, newest first.
func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]Run, error) {
	query := `SELECT id, domain, status, error, cost_usd, duration_ms, created_at FROM runs WHERE 1=1`
	var args []any
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.Domain != "" {
		query += ` AND domain = ?`
		args = append(args, filter.Domain)
	}
	query += ` ORDER BY created_at DESC LIMIT ? OFFSET ?`
	args = append(args, defaultLimit(filter.Limit), filter.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		var status, at string
		if err := rows.Scan(&r.ID, &r.Domain, &status, &r.Error, &r.CostUSD, &r.DurationMs, &at); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run")
		}
		r.Status = RunStatus(status)
		if r.CreatedAt, err = time.Parse(sqliteTime, at); err != nil {
			return nil, eris.Wrap(err, "sqlite: parse created_at")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate runs")
}
