package scrape

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/sells-group/enrich-cli/internal/model"
)

// stubScraper implements Scraper for testing.
type stubScraper struct {
	name     string
	supports func(string) bool
	pages    map[string]string
	delay    time.Duration
	calls    atomic.Int32
	inflight atomic.Int32
	peak     atomic.Int32
}

func (s *stubScraper) Name() string { return s.name }

func (s *stubScraper) Supports(u string) bool {
	if s.supports == nil {
		return true
	}
	return s.supports(u)
}

func (s *stubScraper) Scrape(ctx context.Context, u string) (*Result, error) {
	s.calls.Add(1)
	n := s.inflight.Add(1)
	defer s.inflight.Add(-1)
	for {
		p := s.peak.Load()
		if n <= p || s.peak.CompareAndSwap(p, n) {
			break
		}
	}
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	text, ok := s.pages[u]
	if !ok {
		return nil, errors.New("not found")
	}
	return &Result{Page: model.CrawledPage{URL: u, Markdown: text}, Source: s.name, Tokens: 10}, nil
}

func TestChain_Scrape_FallsBack(t *testing.T) {
	primary := &stubScraper{name: "jina", pages: map[string]string{}}
	fallback := &stubScraper{name: "firecrawl", pages: map[string]string{"https://acme.com": "home"}}

	chain := NewChain(NewPathMatcher(nil), []Scraper{primary, fallback})
	r, err := chain.Scrape(context.Background(), "https://acme.com")
	require.NoError(t, err)
	assert.Equal(t, "firecrawl", r.Source)
	assert.Equal(t, int32(1), primary.calls.Load())
}

func TestChain_Scrape_SkipsUnsupported(t *testing.T) {
	local := &stubScraper{name: "local_http", supports: func(u string) bool { return !strings.Contains(u, "linkedin") }}
	jina := &stubScraper{name: "jina", pages: map[string]string{"https://www.linkedin.com/company/acme": "profile"}}

	chain := NewChain(nil, []Scraper{local, jina})
	r, err := chain.Scrape(context.Background(), "https://www.linkedin.com/company/acme")
	require.NoError(t, err)
	assert.Equal(t, "jina", r.Source)
	assert.Equal(t, int32(0), local.calls.Load())
}

func TestChain_Scrape_Excluded(t *testing.T) {
	chain := NewChain(NewPathMatcher([]string{"/careers/*"}), []Scraper{&stubScraper{name: "jina"}})
	_, err := chain.Scrape(context.Background(), "https://acme.com/careers/engineer")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "excluded")
}

func TestChain_Scrape_AllFail(t *testing.T) {
	chain := NewChain(nil, []Scraper{&stubScraper{name: "jina"}, &stubScraper{name: "firecrawl"}})
	_, err := chain.Scrape(context.Background(), "https://acme.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all scrapers failed")
}

func TestChain_FetchAll_OrderCreditsAndFailures(t *testing.T) {
	s := &stubScraper{name: "jina", pages: map[string]string{
		"https://acme.com":         "home",
		"https://acme.com/about":   "about",
		"https://acme.com/contact": "contact",
		"https://zoominfo.com/c/a": "profile",
	}}
	chain := NewChain(nil, []Scraper{s})

	batch := chain.FetchAll(context.Background(), []string{
		"https://acme.com",
		"https://acme.com/about",
		"https://acme.com/missing",
		"https://acme.com",
		"https://acme.com/contact",
		"https://zoominfo.com/c/a",
	})

	assert.Equal(t, []string{
		"https://acme.com",
		"https://acme.com/about",
		"https://acme.com/contact",
		"https://zoominfo.com/c/a",
	}, batch.Content.URLs())
	assert.Equal(t, 4, batch.Credits)
	assert.Equal(t, 40, batch.Tokens)
	assert.Equal(t, map[string]int{"jina": 4}, batch.Sources)
	assert.Equal(t, []string{"https://acme.com/missing"}, batch.Failed)
	assert.Equal(t, int32(5), s.calls.Load())
}

func TestChain_FetchAll_BoundedWidth(t *testing.T) {
	pages := map[string]string{}
	var urls []string
	for _, p := range []string{"a", "b", "c", "d", "e", "f", "g"} {
		u := "https://acme.com/" + p
		pages[u] = p
		urls = append(urls, u)
	}
	s := &stubScraper{name: "jina", pages: pages, delay: 5 * time.Millisecond}

	batch := NewChain(nil, []Scraper{s}).FetchAll(context.Background(), urls)
	assert.Equal(t, 7, batch.Content.Len())
	assert.LessOrEqual(t, s.peak.Load(), int32(3))
}

func TestChain_FetchAll_TimeoutOmitsSlowPage(t *testing.T) {
	slow := &stubScraper{name: "jina", delay: time.Second, pages: map[string]string{"https://acme.com": "x"}}
	chain := NewChain(nil, []Scraper{slow}, WithFetchTimeout(10*time.Millisecond))

	batch := chain.FetchAll(context.Background(), []string{"https://acme.com"})
	assert.Equal(t, 0, batch.Content.Len())
	assert.Equal(t, 0, batch.Credits)
	assert.Len(t, batch.Failed, 1)
}

func TestChain_FetchAll_Empty(t *testing.T) {
	batch := NewChain(nil, nil).FetchAll(context.Background(), nil)
	assert.Equal(t, 0, batch.Content.Len())
	assert.Empty(t, batch.Failed)
}

func TestChain_FetchAll_Limiter(t *testing.T) {
	s := &stubScraper{name: "jina", pages: map[string]string{"https://a.com": "a", "https://b.com": "b"}}
	chain := NewChain(nil, []Scraper{s}, WithLimiter(rate.NewLimiter(rate.Inf, 1)), WithBatchWidth(1))

	batch := chain.FetchAll(context.Background(), []string{"https://a.com", "https://b.com"})
	assert.Equal(t, 2, batch.Credits)
}
