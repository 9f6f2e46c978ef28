// Package cost prices provider usage into per-stage cost entries.
package cost

import "github.com/sells-group/enrich-cli/internal/model"

// Rates holds per-provider pricing configuration.
type Rates struct {
	Anthropic  map[string]ModelRate      `yaml:"anthropic" mapstructure:"anthropic"`
	Perplexity map[string]PerplexityRate `yaml:"perplexity" mapstructure:"perplexity"`
	Jina       JinaRate                  `yaml:"jina" mapstructure:"jina"`
	Firecrawl  FirecrawlRate             `yaml:"firecrawl" mapstructure:"firecrawl"`
}

// ModelRate holds per-model token pricing (per million tokens).
type ModelRate struct {
	Input         float64 `yaml:"input" mapstructure:"input"`
	Output        float64 `yaml:"output" mapstructure:"output"`
	CacheWriteMul float64 `yaml:"cache_write_mul" mapstructure:"cache_write_mul"`
	CacheReadMul  float64 `yaml:"cache_read_mul" mapstructure:"cache_read_mul"`
}

// PerplexityRate prices a Perplexity model: a flat request fee plus tokens.
type PerplexityRate struct {
	PerRequest float64 `yaml:"per_request" mapstructure:"per_request"`
	Input      float64 `yaml:"input" mapstructure:"input"`
	Output     float64 `yaml:"output" mapstructure:"output"`
}

// JinaRate holds Jina Reader pricing.
type JinaRate struct {
	PerMTok float64 `yaml:"per_mtok" mapstructure:"per_mtok"`
}

// FirecrawlRate holds Firecrawl plan pricing; a credit costs
// PlanMonthly / CreditsIncluded.
type FirecrawlRate struct {
	PlanMonthly     float64 `yaml:"plan_monthly" mapstructure:"plan_monthly"`
	CreditsIncluded float64 `yaml:"credits_included" mapstructure:"credits_included"`
}

// ClaudeUsage is the token usage of one Anthropic call.
type ClaudeUsage struct {
	Input, Output, CacheWrite, CacheRead int64
}

// Calculator computes costs for API usage.
type Calculator struct {
	rates Rates
}

// NewCalculator creates a Calculator with the given rates.
func NewCalculator(rates Rates) *Calculator {
	return &Calculator{rates: rates}
}

// Claude prices one Anthropic call. Unknown models are recorded at zero cost.
func (c *Calculator) Claude(modelID string, u ClaudeUsage) model.StageCost {
	sc := model.StageCost{
		Calls:        1,
		InputTokens:  u.Input + u.CacheWrite + u.CacheRead,
		OutputTokens: u.Output,
	}
	rate, ok := c.rates.Anthropic[modelID]
	if !ok {
		return sc
	}
	sc.USD = perM(u.Input, rate.Input) +
		perM(u.Output, rate.Output) +
		perM(u.CacheWrite, rate.Input*rate.CacheWriteMul) +
		perM(u.CacheRead, rate.Input*rate.CacheReadMul)
	return sc
}

// Perplexity prices one search-model call.
func (c *Calculator) Perplexity(modelID string, promptTokens, completionTokens int) model.StageCost {
	sc := model.StageCost{
		Calls:        1,
		InputTokens:  int64(promptTokens),
		OutputTokens: int64(completionTokens),
	}
	rate, ok := c.rates.Perplexity[modelID]
	if !ok {
		return sc
	}
	sc.USD = rate.PerRequest + perM(int64(promptTokens), rate.Input) + perM(int64(completionTokens), rate.Output)
	return sc
}

// Scrape prices a fetch batch: every successful fetch is one credit, Jina
// bills by token and Firecrawl by credit.
func (c *Calculator) Scrape(credits, jinaTokens, firecrawlCredits int) model.StageCost {
	usd := perM(int64(jinaTokens), c.rates.Jina.PerMTok)
	if c.rates.Firecrawl.CreditsIncluded > 0 {
		usd += float64(firecrawlCredits) * c.rates.Firecrawl.PlanMonthly / c.rates.Firecrawl.CreditsIncluded
	}
	return model.StageCost{Calls: credits, Credits: credits, USD: usd}
}

func perM(tokens int64, ratePerM float64) float64 {
	return float64(tokens) / 1e6 * ratePerM
}

// DefaultRates returns the default pricing rates.
func DefaultRates() Rates {
	return Rates{
		Anthropic: map[string]ModelRate{
			"claude-haiku-4-5-20251001": {
				Input: 1.00, Output: 5.00, CacheWriteMul: 1.25, CacheReadMul: 0.1,
			},
			"claude-sonnet-4-5-20250929": {
				Input: 3.00, Output: 15.00, CacheWriteMul: 1.25, CacheReadMul: 0.1,
			},
		},
		Perplexity: map[string]PerplexityRate{
			"sonar":               {PerRequest: 0.005, Input: 1.00, Output: 1.00},
			"sonar-pro":           {PerRequest: 0.006, Input: 3.00, Output: 15.00},
			"sonar-reasoning-pro": {PerRequest: 0.006, Input: 2.00, Output: 8.00},
		},
		Jina:      JinaRate{PerMTok: 0.02},
		Firecrawl: FirecrawlRate{PlanMonthly: 19.00, CreditsIncluded: 3000},
	}
}
