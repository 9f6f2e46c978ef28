// Package scrape fetches company pages through a chain of scraping
// providers and aggregates them into ScrapedContent.
package scrape

import (
	"context"

	"github.com/sells-group/enrich-cli/internal/model"
)

// Result holds a scraped page with its source.
type Result struct {
	Page   model.CrawledPage
	Source string // "local_http", "jina", "firecrawl"
	// Tokens is the provider-reported token usage, if any.
	Tokens int
}

// Scraper fetches a single URL and returns its content.
type Scraper interface {
	Scrape(ctx context.Context, url string) (*Result, error)
	Name() string
	Supports(url string) bool
}
