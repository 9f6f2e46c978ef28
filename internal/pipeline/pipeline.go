// Package pipeline turns a company domain into a confidence-scored
// EnrichmentRecord: web search, outlier research, tiered scraping,
// identity checks, content analysis, estimation and parent inheritance.
package pipeline

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/enrich-cli/internal/config"
	"github.com/sells-group/enrich-cli/internal/cost"
	"github.com/sells-group/enrich-cli/internal/estimate"
	"github.com/sells-group/enrich-cli/internal/icp"
	"github.com/sells-group/enrich-cli/internal/lookup"
	"github.com/sells-group/enrich-cli/internal/model"
	"github.com/sells-group/enrich-cli/internal/progress"
	"github.com/sells-group/enrich-cli/internal/resilience"
	"github.com/sells-group/enrich-cli/internal/scrape"
	"github.com/sells-group/enrich-cli/internal/store"
	"github.com/sells-group/enrich-cli/pkg/anthropic"
	"github.com/sells-group/enrich-cli/pkg/jina"
	"github.com/sells-group/enrich-cli/pkg/perplexity"
)

// Deps are the collaborators a Pipeline calls. Search, AI and Fetcher are
// required for a run; Store, Jina, Tables and Costs are optional.
type Deps struct {
	Store   store.Store
	Search  perplexity.Client
	AI      anthropic.Client
	Fetcher scrape.Fetcher
	// Jina enables identity-link discovery by site search.
	Jina   jina.Client
	Tables *lookup.Tables
	Costs  *cost.Calculator
}

// Pipeline orchestrates enrichment runs. It holds no per-request state and
// is safe for concurrent use.
type Pipeline struct {
	cfg       *config.Config
	store     store.Store
	search    perplexity.Client
	ai        anthropic.Client
	fetcher   scrape.Fetcher
	jina      jina.Client
	tables    *lookup.Tables
	matcher   *icp.Matcher
	estimator *estimate.Estimator
	costs     *cost.Calculator
	retry     resilience.RetryConfig
}

// New creates a Pipeline.
func New(cfg *config.Config, d Deps) *Pipeline {
	tables := d.Tables
	if tables == nil {
		tables = lookup.Default()
	}
	costs := d.Costs
	if costs == nil {
		costs = cost.NewCalculator(cfg.Pricing.Rates())
	}
	return &Pipeline{
		cfg:       cfg,
		store:     d.Store,
		search:    d.Search,
		ai:        d.AI,
		fetcher:   d.Fetcher,
		jina:      d.Jina,
		tables:    tables,
		matcher:   icp.NewMatcher(tables.ICPProfiles()),
		estimator: estimate.NewEstimator(tables),
		costs:     costs,
		retry:     resilience.FromSettings(cfg.Research.MaxAttempts, cfg.Research.InitialBackoffMs),
	}
}

func (p *Pipeline) rules() Rules {
	return Rules{
		Estimator:     p.estimator,
		Matcher:       p.matcher,
		ConflictRatio: p.cfg.Research.ConflictRatio,
		Thresholds:    p.cfg.Research.Thresholds(),
	}
}

// Run enriches one company. A fresh stored result is returned as-is unless
// req.Refresh is set. Optional sources that fail degrade the record; only
// invalid input or a configuration failure aborts the run, as a
// *StageError. The sink may be nil.
func (p *Pipeline) Run(ctx context.Context, req model.Request, sink progress.Sink) (*model.Result, error) {
	domain, err := NormalizeDomain(req.Domain)
	if err != nil {
		return nil, &StageError{Domain: req.Domain, Stage: "input", Err: err}
	}
	if p.search == nil || p.ai == nil || p.fetcher == nil {
		return nil, &StageError{Domain: domain, Stage: "config",
			Err: eris.Wrap(ErrConfig, "pipeline: search, analysis and scrape clients are required")}
	}
	emailOnly := p.tables.IsFreeEmail(domain)
	if emailOnly && strings.TrimSpace(req.CompanyName) == "" {
		return nil, &StageError{Domain: domain, Stage: "input",
			Err: eris.Wrapf(ErrInvalidDomain, "%s is a free email domain; a company name is required", domain)}
	}

	start := time.Now()
	rs := newRunState(domain, sink, p.costs)
	rs.log.Info("pipeline: starting enrichment", zap.Bool("email_only", emailOnly))

	fail := func(stage string, err error) (*model.Result, error) {
		p.recordRun(ctx, rs, store.Run{
			Domain:     domain,
			Status:     store.RunStatusFailed,
			Error:      err.Error(),
			DurationMs: time.Since(start).Milliseconds(),
		})
		return nil, &StageError{Domain: domain, Stage: stage, Err: err}
	}

	// Results are keyed by domain, and an email provider's domain names no
	// single company.
	if hit := p.cached(ctx, rs, domain, req.Refresh || emailOnly); hit != nil {
		p.recordRun(ctx, rs, store.Run{
			Domain:     domain,
			Status:     store.RunStatusCached,
			DurationMs: time.Since(start).Milliseconds(),
		})
		return hit, nil
	}

	q := searchQuery{
		Domain:    domain,
		Name:      strings.TrimSpace(req.CompanyName),
		State:     req.State,
		Country:   req.Country,
		EmailOnly: emailOnly,
	}

	// First pass.
	var fp model.FirstPassResult
	if err := rs.track(StageFirstPass, "Searching the web for "+domain, func() error {
		var err error
		fp, err = p.firstPass(ctx, rs, StageFirstPass, q)
		return err
	}); err != nil {
		return fail(StageFirstPass, err)
	}

	site := domain
	if emailOnly {
		site = ""
		if fp.Website != nil && fp.Website.Confidence >= 0.5 {
			if h := hostOf(fp.Website.URL); h != "" && !p.tables.IsFreeEmail(h) {
				site = h
			}
		}
	}

	// Deep research.
	var findings []model.Finding
	if reasons := DetectOutliers(fp, thresholdsFrom(p.cfg.Research)); req.DeepResearch || len(reasons) > 0 {
		msg := "Running targeted research"
		if len(reasons) > 0 {
			msg += ": " + strings.Join(reasons, "; ")
		}
		_ = rs.track(StageDeepResearch, msg, func() error {
			r := p.deepResearch(ctx, rs, fp.CompanyName, domain)
			fp = MergeResearch(fp, r)
			findings = r.Findings
			return nil
		})
		rs.setFlag(func(pm *model.PerformanceMetrics) { pm.DeepResearch = true })
	}

	// Scrape.
	var content model.ScrapedContent
	_ = rs.track(StageScrape, "Fetching company pages", func() error {
		sel := SelectURLs(fp, site, p.tables)
		batch := p.fetcher.FetchAll(ctx, sel.Fetch)
		rs.chargeScrape(StageScrape, len(sel.Fetch), batch)
		content = batch.Content
		rs.log.Debug("pipeline: scrape selection",
			zap.Int("selected", len(sel.Fetch)),
			zap.Int("supplemental_limit", sel.SupplementalLimit),
			zap.Int("fetched", content.Len()),
			zap.Strings("failed", batch.Failed))
		return nil
	})

	// Entity consistency.
	mismatch := MismatchSkipped
	if err := rs.track(StageEntityCheck, "Checking the site matches the company", func() error {
		mismatch = CheckConsistency(fp.CompanyName, site, content)
		if mismatch != MismatchWeak && mismatch != MismatchStrong {
			return nil
		}
		rs.log.Info("pipeline: entity mismatch, retrying strictly", zap.String("mismatch", string(mismatch)))
		rs.setFlag(func(pm *model.PerformanceMetrics) { pm.StrictRetry = true })

		strict := q
		strict.Homepage = homepageExcerpt(content, site)
		retry, err := p.firstPass(ctx, rs, StageEntityCheck, strict)
		if err != nil {
			return err
		}
		if retry.Status == model.ParseFallback {
			return nil
		}
		fp = MergeRetry(fp, retry)

		var fresh []string
		for _, u := range SelectURLs(fp, site, p.tables).Fetch {
			if !content.Has(u) {
				fresh = append(fresh, u)
			}
		}
		if len(fresh) > 0 {
			batch := p.fetcher.FetchAll(ctx, fresh)
			rs.chargeScrape(StageEntityCheck, len(fresh), batch)
			content = content.Merge(batch.Content)
		}
		return nil
	}); err != nil {
		return fail(StageEntityCheck, err)
	}

	// Identity link.
	var link IdentityLink
	_ = rs.track(StageIdentityLink, "Finding the company profile", func() error {
		link = p.resolveIdentityLink(ctx, rs, site, fp, &content)
		return nil
	})

	// Content analysis.
	var rec model.EnrichmentRecord
	if err := rs.track(StageAnalysis, "Analyzing company content", func() error {
		var err error
		rec, err = p.analyze(ctx, rs, site, fp, content)
		return err
	}); err != nil {
		return fail(StageAnalysis, err)
	}
	if link.URL != "" {
		u := link.URL
		rec.LinkedInURL = &u
	}
	rec.Diagnostics.FirstPass = fp
	rec.Diagnostics.DeepResearch = findings
	rec.Diagnostics.EntityCheck = string(mismatch)
	rec.Diagnostics.IdentityLinkSource = link.Source
	rec.Diagnostics.RejectedLinks = link.Rejected

	// Estimation and reconciliation.
	_ = rs.track(StageEstimation, "Reconciling revenue and size", func() error {
		rec = Reconcile(rec, fp, p.rules())
		return nil
	})

	// Parent inheritance.
	if fp.ParentCompany != "" {
		_ = rs.track(StageInheritance, "Checking parent company "+fp.ParentCompany, func() error {
			rec = p.inherit(ctx, rs, rec, fp.ParentCompany)
			return nil
		})
	}

	// The ICP verdict always reflects the final bands.
	p.matcher.Apply(&rec)

	costs, perf := rs.snapshot()
	perf.TotalMillis = time.Since(start).Milliseconds()
	res := &model.Result{
		RequestID:   uuid.NewString(),
		Record:      rec,
		Cost:        costs,
		TotalCost:   costs.Total(),
		Performance: perf,
		Scraped:     content,
		EnrichedAt:  time.Now().UTC(),
	}
	p.persist(ctx, rs, res, !emailOnly)

	rs.log.Info("pipeline: enrichment complete",
		zap.String("company", rec.CompanyName),
		zap.String("revenue_band", rec.Revenue()),
		zap.String("size_band", rec.SizeBand),
		zap.Bool("icp_match", rec.ICPMatch),
		zap.Float64("cost_usd", res.TotalCost),
		zap.Int64("duration_ms", perf.TotalMillis),
	)
	return res, nil
}

// cached returns a stored result younger than the cache TTL, or nil.
// Store errors are logged and treated as a miss.
func (p *Pipeline) cached(ctx context.Context, rs *runState, domain string, refresh bool) *model.Result {
	if p.store == nil || refresh {
		return nil
	}
	var hit *model.Result
	_ = rs.track(StageCache, "Checking stored results", func() error {
		res, err := p.store.GetResult(ctx, domain)
		if err != nil {
			rs.log.Warn("pipeline: cache lookup failed", zap.Error(err))
			return nil
		}
		if res == nil {
			return nil
		}
		if ttl := time.Duration(p.cfg.Store.CacheTTLHours) * time.Hour; ttl > 0 && time.Since(res.EnrichedAt) > ttl {
			rs.log.Debug("pipeline: stored result expired", zap.Time("enriched_at", res.EnrichedAt))
			return nil
		}
		hit = res
		return nil
	})
	if hit != nil {
		hit.FromCache = true
		rs.log.Info("pipeline: using stored result", zap.Time("enriched_at", hit.EnrichedAt))
	}
	return hit
}

// persist upserts the result when save is set and always records the run.
// Failures are logged; the caller already holds the result.
func (p *Pipeline) persist(ctx context.Context, rs *runState, res *model.Result, save bool) {
	if p.store == nil {
		return
	}
	if save {
		_ = rs.track(StagePersist, "Saving result", func() error {
			if err := p.store.UpsertResult(ctx, res); err != nil {
				rs.log.Warn("pipeline: saving result failed", zap.Error(err))
			}
			return nil
		})
	}
	p.recordRun(ctx, rs, store.Run{
		ID:         res.RequestID,
		Domain:     res.Record.Domain,
		Status:     store.RunStatusComplete,
		CostUSD:    res.TotalCost,
		DurationMs: res.Performance.TotalMillis,
	})
}

func (p *Pipeline) recordRun(ctx context.Context, rs *runState, run store.Run) {
	if p.store == nil {
		return
	}
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	run.CreatedAt = time.Now().UTC()
	if err := p.store.RecordRun(ctx, run); err != nil {
		rs.log.Warn("pipeline: recording run failed", zap.Error(err))
	}
}
