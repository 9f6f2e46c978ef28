package main

import (
	"context"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/enrich-cli/internal/config"
	"github.com/sells-group/enrich-cli/internal/cost"
	"github.com/sells-group/enrich-cli/internal/lookup"
	"github.com/sells-group/enrich-cli/internal/pipeline"
	"github.com/sells-group/enrich-cli/internal/scrape"
	"github.com/sells-group/enrich-cli/internal/store"
	anthropicpkg "github.com/sells-group/enrich-cli/pkg/anthropic"
	"github.com/sells-group/enrich-cli/pkg/firecrawl"
	"github.com/sells-group/enrich-cli/pkg/jina"
	"github.com/sells-group/enrich-cli/pkg/perplexity"
)

// pipelineEnv holds the store and pipeline shared by the run, batch and
// serve commands.
type pipelineEnv struct {
	Store    store.Store
	Pipeline *pipeline.Pipeline
}

// Close releases resources held by the environment.
func (pe *pipelineEnv) Close() {
	if pe.Store != nil {
		_ = pe.Store.Close()
	}
}

// initPipeline validates config for mode, opens and migrates the store,
// builds the provider clients and the Pipeline. Callers should defer
// env.Close().
func initPipeline(ctx context.Context, mode string) (*pipelineEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	tables, err := loadTables(cfg.Lookups)
	if err != nil {
		return nil, err
	}

	st, err := initStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	jinaOpts := []jina.Option{jina.WithBaseURL(cfg.Jina.BaseURL)}
	if cfg.Jina.SearchBaseURL != "" {
		jinaOpts = append(jinaOpts, jina.WithSearchBaseURL(cfg.Jina.SearchBaseURL))
	}
	var jinaClient jina.Client
	if cfg.Jina.Key != "" {
		jinaClient = jina.NewClient(cfg.Jina.Key, jinaOpts...)
	} else {
		zap.L().Debug("ENRICH_JINA_KEY not set, Jina reader and identity-link site search disabled")
	}

	var firecrawlClient firecrawl.Client
	if cfg.Firecrawl.Key != "" {
		firecrawlClient = firecrawl.NewClient(cfg.Firecrawl.Key, firecrawl.WithBaseURL(cfg.Firecrawl.BaseURL))
	}

	searchClient := perplexity.NewClient(cfg.Perplexity.Key,
		perplexity.WithBaseURL(cfg.Perplexity.BaseURL),
		perplexity.WithModel(cfg.Perplexity.Model),
		perplexity.WithHTTPClient(&http.Client{Timeout: time.Duration(cfg.Perplexity.TimeoutSecs) * time.Second}),
	)
	aiClient := anthropicpkg.NewClient(cfg.Anthropic.Key)

	chain := buildChain(cfg.Scrape, buildScrapers(cfg, jinaClient, firecrawlClient))

	p := pipeline.New(cfg, pipeline.Deps{
		Store:   st,
		Search:  searchClient,
		AI:      aiClient,
		Fetcher: chain,
		Jina:    jinaClient,
		Tables:  tables,
		Costs:   cost.NewCalculator(cfg.Pricing.Rates()),
	})

	return &pipelineEnv{Store: st, Pipeline: p}, nil
}

// initStore opens the configured store, fronted by Redis when an address
// is set. An unreachable Redis only disables the hot cache.
func initStore(ctx context.Context, c *config.Config) (store.Store, error) {
	var (
		st  store.Store
		err error
	)
	switch c.Store.Driver {
	case "sqlite":
		dsn := c.Store.DatabaseURL
		if dsn == "" {
			dsn = "enrich.db"
		}
		st, err = store.NewSQLite(dsn)
	case "postgres":
		st, err = store.NewPostgres(ctx, c.Store.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", c.Store.Driver)
	}
	if err != nil {
		return nil, err
	}

	if c.Redis.Addr == "" {
		return st, nil
	}
	rdb, err := store.NewRedisClient(ctx, c.Redis.Addr, c.Redis.Password, c.Redis.DB)
	if err != nil {
		zap.L().Warn("redis unavailable, hot cache disabled", zap.String("addr", c.Redis.Addr), zap.Error(err))
		return st, nil
	}
	zap.L().Info("redis hot cache enabled", zap.String("addr", c.Redis.Addr))
	return store.NewCachedStore(st, rdb, time.Duration(c.Redis.TTLHours)*time.Hour), nil
}

func loadTables(c config.LookupsConfig) (*lookup.Tables, error) {
	if c.Path == "" {
		return lookup.Default(), nil
	}
	t, err := lookup.Load(c.Path)
	if err != nil {
		return nil, eris.Wrapf(err, "load lookups %s", c.Path)
	}
	zap.L().Info("lookup tables loaded", zap.String("path", c.Path))
	return t, nil
}

// buildScrapers orders the available scrapers: the free local fetcher when
// enabled, then Jina, then Firecrawl.
func buildScrapers(c *config.Config, jinaClient jina.Client, firecrawlClient firecrawl.Client) []scrape.Scraper {
	var scrapers []scrape.Scraper
	if c.Scrape.LocalFirst {
		scrapers = append(scrapers, scrape.NewLocalScraper(time.Duration(c.Scrape.FetchTimeoutSecs)*time.Second, c.Scrape.UserAgent))
	}
	if jinaClient != nil {
		scrapers = append(scrapers, scrape.NewJinaAdapter(jinaClient))
	}
	if firecrawlClient != nil {
		scrapers = append(scrapers, scrape.NewFirecrawlAdapter(firecrawlClient, c.Firecrawl.TimeoutMs))
	}
	return scrapers
}

func buildChain(c config.ScrapeConfig, scrapers []scrape.Scraper) *scrape.Chain {
	opts := []scrape.ChainOption{
		scrape.WithBatchWidth(c.BatchWidth),
		scrape.WithFetchTimeout(time.Duration(c.FetchTimeoutSecs) * time.Second),
	}
	if c.RatePerSec > 0 {
		opts = append(opts, scrape.WithLimiter(rate.NewLimiter(rate.Limit(c.RatePerSec), max(c.BatchWidth, 1))))
	}
	return scrape.NewChain(scrape.NewPathMatcher(c.ExcludePaths), scrapers, opts...)
}
