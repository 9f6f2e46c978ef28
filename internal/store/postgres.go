package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/enrich-cli/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses. pgxmock satisfies it.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

const upsertResultSQL = `INSERT INTO enrichments
	(domain, request_id, company_name, revenue_band, size_band, icp_match, total_cost_usd, result, enriched_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	ON CONFLICT (domain) DO UPDATE SET
		request_id = EXCLUDED.request_id,
		company_name = EXCLUDED.company_name,
		revenue_band = EXCLUDED.revenue_band,
		size_band = EXCLUDED.size_band,
		icp_match = EXCLUDED.icp_match,
		total_cost_usd = EXCLUDED.total_cost_usd,
		result = EXCLUDED.result,
		enriched_at = EXCLUDED.enriched_at`

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS enrichments (
	domain         TEXT PRIMARY KEY,
	request_id     TEXT NOT NULL,
	company_name   TEXT NOT NULL DEFAULT '',
	revenue_band   TEXT,
	size_band      TEXT NOT NULL DEFAULT 'unknown',
	icp_match      BOOLEAN NOT NULL DEFAULT false,
	total_cost_usd DOUBLE PRECISION NOT NULL DEFAULT 0,
	result         JSONB NOT NULL,
	enriched_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_enrichments_enriched_at ON enrichments(enriched_at DESC);
CREATE INDEX IF NOT EXISTS idx_enrichments_icp ON enrichments(icp_match) WHERE icp_match;

CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	domain      TEXT NOT NULL,
	status      TEXT NOT NULL,
	error       TEXT NOT NULL DEFAULT '',
	cost_usd    DOUBLE PRECISION NOT NULL DEFAULT 0,
	duration_ms BIGINT NOT NULL DEFAULT 0,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_runs_domain ON runs(domain);
CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at DESC);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// GetResult returns the stored result for domain, or nil when absent.
func (s *PostgresStore) GetResult(ctx context.Context, domain string) (*model.Result, error) {
	var (
		res      model.Result
		body     []byte
		reqID    string
		totalUSD float64
		at       time.Time
	)
	err := s.pool.QueryRow(ctx,
		`SELECT request_id, result, total_cost_usd, enriched_at FROM enrichments WHERE domain = $1`,
		domain,
	).Scan(&reqID, &body, &totalUSD, &at)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: get result %s", domain)
	}
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal result")
	}
	res.RequestID = reqID
	res.TotalCost = totalUSD
	res.EnrichedAt = at
	return &res, nil
}

// UpsertResult writes res keyed by its record's domain.
func (s *PostgresStore) UpsertResult(ctx context.Context, res *model.Result) error {
	if res == nil || res.Record.Domain == "" {
		return eris.New("postgres: upsert result: missing domain")
	}
	body, err := json.Marshal(res)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal result")
	}
	at := res.EnrichedAt
	if at.IsZero() {
		at = time.Now().UTC()
	}
	_, err = s.pool.Exec(ctx, upsertResultSQL,
		res.Record.Domain, res.RequestID, res.Record.CompanyName, res.Record.RevenueBand,
		res.Record.SizeBand, res.Record.ICPMatch, res.TotalCost, body, at,
	)
	return eris.Wrapf(err, "postgres: upsert result %s", res.Record.Domain)
}

// ListResults returns stored results, newest first.
func (s *PostgresStore) ListResults(ctx context.Context, filter ResultFilter) ([]Summary, error) {
	query := `SELECT domain, company_name, COALESCE(revenue_band, ''), size_band, icp_match, total_cost_usd, enriched_at
		FROM enrichments`
	if filter.ICPOnly {
		query += ` WHERE icp_match`
	}
	query += ` ORDER BY enriched_at DESC LIMIT $1 OFFSET $2`

	rows, err := s.pool.Query(ctx, query, defaultLimit(filter.Limit), filter.Offset)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list results")
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var sm Summary
		if err := rows.Scan(&sm.Domain, &sm.CompanyName, &sm.RevenueBand, &sm.SizeBand, &sm.ICPMatch, &sm.CostUSD, &sm.EnrichedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan result summary")
		}
		out = append(out, sm)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate results")
}

// RecordRun appends a run audit row.
func (s *PostgresStore) RecordRun(ctx context.Context, run Run) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO runs (id, domain, status, error, cost_usd, duration_ms, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		run.ID, run.Domain, string(run.Status), run.Error, run.CostUSD, run.DurationMs, run.CreatedAt,
	)
	return eris.Wrap(err, "postgres: insert run")
}

// ListRuns returns run audit rows, newest first.
func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]Run, error) {
	query := `SELECT id, domain, status, error, cost_usd, duration_ms, created_at FROM runs WHERE 1=1`
	var args []any
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		query += ` AND status = $` + itoa(len(args))
	}
	if filter.Domain != "" {
		args = append(args, filter.Domain)
		query += ` AND domain = $` + itoa(len(args))
	}
	args = append(args, defaultLimit(filter.Limit), filter.Offset)
	query += ` ORDER BY created_at DESC LIMIT $` + itoa(len(args)-1) + ` OFFSET $` + itoa(len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		var status string
		if err := rows.Scan(&r.ID, &r.Domain, &status, &r.Error, &r.CostUSD, &r.DurationMs, &r.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		r.Status = RunStatus(status)
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate runs")
}
