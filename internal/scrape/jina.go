package scrape

import (
	"context"
	"net/http"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/enrich-cli/internal/model"
	"github.com/sells-group/enrich-cli/internal/resilience"
	"github.com/sells-group/enrich-cli/pkg/jina"
)

// JinaAdapter wraps a Jina Reader client as a Scraper with a circuit breaker.
type JinaAdapter struct {
	client  jina.Client
	breaker *resilience.Breaker
}

// NewJinaAdapter creates a JinaAdapter. Three consecutive upstream failures
// open the breaker for a minute, sending traffic straight to the next scraper.
func NewJinaAdapter(client jina.Client) *JinaAdapter {
	return &JinaAdapter{
		client:  client,
		breaker: resilience.NewBreaker("jina", 3, 60*time.Second),
	}
}

// Name implements Scraper.
func (j *JinaAdapter) Name() string { return "jina" }

// Supports returns true unless the circuit breaker is open.
func (j *JinaAdapter) Supports(_ string) bool {
	return j.breaker.State() != resilience.StateOpen || j.breaker.Allow()
}

// Scrape fetches a URL via Jina Reader and validates the response.
func (j *JinaAdapter) Scrape(ctx context.Context, targetURL string) (*Result, error) {
	resp, err := resilience.Call(ctx, j.breaker, tripsBreaker, func(ctx context.Context) (*jina.ReadResponse, error) {
		return j.client.Read(ctx, targetURL)
	})
	if err != nil {
		return nil, err
	}

	if resp.Code != 0 && resp.Code != http.StatusOK {
		return nil, eris.Errorf("jina: response code %d", resp.Code)
	}
	if blocked, kind := LooksBlocked(resp.Data.Content); blocked {
		return nil, eris.Errorf("jina: unusable content (%s)", kind)
	}

	url := resp.Data.URL
	if url == "" {
		url = targetURL
	}
	return &Result{
		Page: model.CrawledPage{
			URL:        url,
			Title:      resp.Data.Title,
			Markdown:   resp.Data.Content,
			StatusCode: http.StatusOK,
		},
		Source: "jina",
		Tokens: resp.Data.Usage.Tokens,
	}, nil
}

// tripsBreaker ignores page-level client errors such as 404 or 451; only
// transport failures and server-side statuses count against Jina itself.
func tripsBreaker(err error) bool {
	status := resilience.StatusOf(err)
	return status == 0 || status >= 500 || status == http.StatusTooManyRequests
}
