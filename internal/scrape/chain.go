package scrape

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/sells-group/enrich-cli/internal/model"
)

const (
	defaultBatchWidth   = 3
	defaultFetchTimeout = 30 * time.Second
)

// Batch is the outcome of fetching a URL set.
type Batch struct {
	Content model.ScrapedContent
	// Credits counts successful fetches.
	Credits int
	// Tokens sums provider-reported token usage.
	Tokens int
	// Sources counts successful fetches per scraper name.
	Sources map[string]int
	Failed  []string
}

// Fetcher fetches a set of URLs into ScrapedContent.
type Fetcher interface {
	FetchAll(ctx context.Context, urls []string) Batch
}

// Chain tries scrapers in priority order, returning the first success.
type Chain struct {
	matcher  *PathMatcher
	scrapers []Scraper
	width    int
	timeout  time.Duration
	limiter  *rate.Limiter
}

// ChainOption configures a Chain.
type ChainOption func(*Chain)

// WithBatchWidth sets how many URLs are fetched concurrently per batch.
func WithBatchWidth(n int) ChainOption {
	return func(c *Chain) {
		if n > 0 {
			c.width = n
		}
	}
}

// WithFetchTimeout bounds each single-URL fetch across all scrapers.
func WithFetchTimeout(d time.Duration) ChainOption {
	return func(c *Chain) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLimiter throttles fetch starts across every request sharing the chain.
func WithLimiter(l *rate.Limiter) ChainOption {
	return func(c *Chain) {
		c.limiter = l
	}
}

// NewChain creates a Chain. Scrapers are tried in order.
func NewChain(matcher *PathMatcher, scrapers []Scraper, opts ...ChainOption) *Chain {
	c := &Chain{
		matcher:  matcher,
		scrapers: scrapers,
		width:    defaultBatchWidth,
		timeout:  defaultFetchTimeout,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Scrape tries each scraper in order for a single URL.
func (c *Chain) Scrape(ctx context.Context, targetURL string) (*Result, error) {
	if c.matcher.IsExcluded(targetURL) {
		return nil, eris.Errorf("scrape: url excluded by path matcher: %s", targetURL)
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "scrape: rate limiter")
		}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var lastErr error
	for _, s := range c.scrapers {
		if !s.Supports(targetURL) {
			continue
		}
		result, err := s.Scrape(ctx, targetURL)
		if err == nil && result != nil {
			return result, nil
		}
		if err != nil {
			zap.L().Debug("scrape: scraper failed, trying next",
				zap.String("scraper", s.Name()),
				zap.String("url", targetURL),
				zap.Error(err),
			)
			lastErr = err
		}
	}
	if lastErr != nil {
		return nil, eris.Wrap(lastErr, "scrape: all scrapers failed")
	}
	return nil, eris.Errorf("scrape: no suitable scraper for url: %s", targetURL)
}

// FetchAll fetches urls in consecutive batches of the configured width.
// Failures are logged and omitted. Content keys keep the order of urls so
// the result does not depend on which fetch in a batch finished first.
func (c *Chain) FetchAll(ctx context.Context, urls []string) Batch {
	out := Batch{Sources: make(map[string]int)}
	urls = dedupe(urls)

	for start := 0; start < len(urls); start += c.width {
		end := min(start+c.width, len(urls))
		chunk := urls[start:end]
		results := make([]*Result, len(chunk))

		g, gCtx := errgroup.WithContext(ctx)
		for i, u := range chunk {
			g.Go(func() error {
				r, err := c.Scrape(gCtx, u)
				if err != nil {
					zap.L().Debug("scrape: fetch failed", zap.String("url", u), zap.Error(err))
					return nil
				}
				results[i] = r
				return nil
			})
		}
		_ = g.Wait()

		for i, r := range results {
			if r == nil || r.Page.Markdown == "" {
				out.Failed = append(out.Failed, chunk[i])
				continue
			}
			// Keyed by the requested URL so callers can look pages up by
			// what they asked for, even after provider redirects.
			if out.Content.Add(model.ScrapedPage{URL: chunk[i], Text: r.Page.Markdown, Source: r.Source}) {
				out.Credits++
				out.Tokens += r.Tokens
				out.Sources[r.Source]++
			}
		}
	}

	zap.L().Debug("scrape: batch complete",
		zap.Int("requested", len(urls)),
		zap.Int("fetched", out.Content.Len()),
		zap.Int("failed", len(out.Failed)),
	)
	return out
}

func dedupe(urls []string) []string {
	seen := make(map[string]struct{}, len(urls))
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		if u == "" {
			continue
		}
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}
