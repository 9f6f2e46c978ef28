package pipeline

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/enrich-cli/internal/config"
	"github.com/sells-group/enrich-cli/internal/cost"
	"github.com/sells-group/enrich-cli/internal/lookup"
	"github.com/sells-group/enrich-cli/internal/model"
	"github.com/sells-group/enrich-cli/internal/scrape"
	"github.com/sells-group/enrich-cli/pkg/anthropic"
	"github.com/sells-group/enrich-cli/pkg/perplexity"
)

func testConfig() *config.Config {
	return &config.Config{
		Store: config.StoreConfig{CacheTTLHours: 720},
		Perplexity: config.PerplexityConfig{
			Model:         "sonar-pro",
			ResearchModel: "sonar-pro",
		},
		Anthropic: config.AnthropicConfig{
			AnalysisModel: "claude-sonnet-4-5-20250929",
			ExtractModel:  "claude-haiku-4-5-20251001",
			MaxTokens:     4096,
		},
		Research: config.ResearchConfig{
			ConflictRatio:         5,
			LargeRevenueUSD:       100e6,
			SmallHeadcount:        50,
			MaxAttempts:           1,
			LinkedInValidation:    true,
		},
		Analysis: config.AnalysisConfig{PageCharLimit: 15000, MaxPages: 8},
	}
}

func testRunState(domain string) *runState {
	return newRunState(domain, nil, cost.NewCalculator(cost.DefaultRates()))
}

// stubFetcher serves canned pages and records what was requested.
type stubFetcher struct {
	mu        sync.Mutex
	pages     map[string]string
	requested [][]string
}

func (f *stubFetcher) FetchAll(_ context.Context, urls []string) scrape.Batch {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requested = append(f.requested, append([]string(nil), urls...))

	b := scrape.Batch{Sources: map[string]int{}}
	for _, u := range urls {
		text, ok := f.pages[u]
		if !ok {
			b.Failed = append(b.Failed, u)
			continue
		}
		b.Content.Add(model.ScrapedPage{URL: u, Text: text, Source: "jina"})
		b.Credits++
		b.Tokens += len(text) / 4
		b.Sources["jina"]++
	}
	return b
}

func (f *stubFetcher) allRequested() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, r := range f.requested {
		out = append(out, r...)
	}
	return out
}

func content(pages ...string) model.ScrapedContent {
	var c model.ScrapedContent
	for i := 0; i+1 < len(pages); i += 2 {
		c.Add(model.ScrapedPage{URL: pages[i], Text: pages[i+1]})
	}
	return c
}

func searchResponse(body string, citations ...string) *perplexity.ChatCompletionResponse {
	return &perplexity.ChatCompletionResponse{
		Choices:   []perplexity.Choice{{Message: perplexity.Message{Role: "assistant", Content: body}}},
		Usage:     perplexity.Usage{PromptTokens: 900, CompletionTokens: 400},
		Citations: citations,
	}
}

func aiResponse(body string) *anthropic.MessageResponse {
	return &anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: body}},
		Usage:   anthropic.TokenUsage{InputTokens: 5000, OutputTokens: 800},
	}
}

// promptContains matches a search request whose user prompt contains s.
func promptContains(s string) interface{} {
	return mock.MatchedBy(func(req perplexity.ChatCompletionRequest) bool {
		return len(req.Messages) > 0 && strings.Contains(req.Messages[len(req.Messages)-1].Content, s)
	})
}

func newTestPipeline(t *testing.T, d Deps) *Pipeline {
	t.Helper()
	if d.Tables == nil {
		d.Tables = lookup.Default()
	}
	return New(testConfig(), d)
}
