package scrape

import (
	"context"

	"github.com/sells-group/enrich-cli/internal/model"
	"github.com/sells-group/enrich-cli/pkg/firecrawl"
)

// FirecrawlAdapter wraps a Firecrawl client as a Scraper for single-page scrapes.
type FirecrawlAdapter struct {
	client    firecrawl.Client
	timeoutMs int
}

// NewFirecrawlAdapter creates a FirecrawlAdapter from a Firecrawl client.
func NewFirecrawlAdapter(client firecrawl.Client, timeoutMs int) *FirecrawlAdapter {
	return &FirecrawlAdapter{client: client, timeoutMs: timeoutMs}
}

// Name implements Scraper.
func (f *FirecrawlAdapter) Name() string { return "firecrawl" }

// Supports returns true; Firecrawl is the last-resort fallback.
func (f *FirecrawlAdapter) Supports(_ string) bool { return true }

// Scrape fetches a single URL via Firecrawl's scrape API.
func (f *FirecrawlAdapter) Scrape(ctx context.Context, targetURL string) (*Result, error) {
	resp, err := f.client.Scrape(ctx, firecrawl.ScrapeRequest{
		URL:             targetURL,
		OnlyMainContent: true,
		Timeout:         f.timeoutMs,
	})
	if err != nil {
		return nil, err
	}
	url := resp.Data.Metadata.SourceURL
	if url == "" {
		url = targetURL
	}
	return &Result{
		Page: model.CrawledPage{
			URL:        url,
			Title:      resp.Data.Metadata.Title,
			Markdown:   resp.Data.Markdown,
			StatusCode: resp.Data.Metadata.StatusCode,
		},
		Source: "firecrawl",
	}, nil
}
