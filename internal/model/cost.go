package model

import "sort"

// StageCost is the accumulated usage and price of one pipeline stage.
type StageCost struct {
	Calls        int     `json:"calls"`
	InputTokens  int64   `json:"input_tokens"`
	OutputTokens int64   `json:"output_tokens"`
	Credits      int     `json:"credits"`
	USD          float64 `json:"usd"`
}

// CostBreakdown holds per-stage cost. A given call is recorded against
// exactly one stage, so Total is a plain sum.
type CostBreakdown struct {
	Stages map[string]StageCost `json:"stages"`
}

// Add folds usage into a stage entry.
func (c *CostBreakdown) Add(stage string, sc StageCost) {
	if c.Stages == nil {
		c.Stages = make(map[string]StageCost)
	}
	cur := c.Stages[stage]
	cur.Calls += sc.Calls
	cur.InputTokens += sc.InputTokens
	cur.OutputTokens += sc.OutputTokens
	cur.Credits += sc.Credits
	cur.USD += sc.USD
	c.Stages[stage] = cur
}

// Total returns the sum of all stage costs in USD.
func (c CostBreakdown) Total() float64 {
	var total float64
	for _, name := range c.StageNames() {
		total += c.Stages[name].USD
	}
	return total
}

// Credits returns the total scraping credits consumed.
func (c CostBreakdown) Credits() int {
	var n int
	for _, sc := range c.Stages {
		n += sc.Credits
	}
	return n
}

// StageNames returns stage names in sorted order.
func (c CostBreakdown) StageNames() []string {
	names := make([]string, 0, len(c.Stages))
	for k := range c.Stages {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// PerformanceMetrics records how long each stage took and what ran.
type PerformanceMetrics struct {
	StageMillis    map[string]int64 `json:"stage_ms"`
	TotalMillis    int64            `json:"total_ms"`
	PagesRequested int              `json:"pages_requested"`
	PagesFetched   int              `json:"pages_fetched"`
	Credits        int              `json:"credits"`
	DeepResearch   bool             `json:"deep_research"`
	StrictRetry    bool             `json:"strict_retry"`
	ParentLookup   bool             `json:"parent_lookup"`
}

// RecordStage adds a stage duration.
func (p *PerformanceMetrics) RecordStage(stage string, ms int64) {
	if p.StageMillis == nil {
		p.StageMillis = make(map[string]int64)
	}
	p.StageMillis[stage] += ms
}
