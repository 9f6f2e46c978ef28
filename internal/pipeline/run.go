package pipeline

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/enrich-cli/internal/cost"
	"github.com/sells-group/enrich-cli/internal/model"
	"github.com/sells-group/enrich-cli/internal/progress"
	"github.com/sells-group/enrich-cli/internal/scrape"
	"github.com/sells-group/enrich-cli/pkg/anthropic"
	"github.com/sells-group/enrich-cli/pkg/perplexity"
)

// Stage identifiers used for progress events, cost and timing.
const (
	StageCache        = "cache"
	StageFirstPass    = "first_pass"
	StageDeepResearch = "deep_research"
	StageScrape       = "scrape"
	StageEntityCheck  = "entity_check"
	StageIdentityLink = "identity_link"
	StageAnalysis     = "analysis"
	StageEstimation   = "estimation"
	StageInheritance  = "inheritance"
	StagePersist      = "persist"
)

// runState is the per-request ledger: cost, timings and the progress sink.
// Stages that fan out share it, so every mutation holds mu.
type runState struct {
	domain string
	log    *zap.Logger
	sink   progress.Sink
	costs  *cost.Calculator

	mu     sync.Mutex
	ledger model.CostBreakdown
	perf   model.PerformanceMetrics
}

func newRunState(domain string, sink progress.Sink, costs *cost.Calculator) *runState {
	if sink == nil {
		sink = progress.Nop{}
	}
	return &runState{
		domain: domain,
		log:    zap.L().With(zap.String("domain", domain)),
		sink:   sink,
		costs:  costs,
	}
}

func (rs *runState) emit(stage, msg string, status progress.Status, usd float64) {
	rs.sink.Emit(progress.Event{
		Stage:   stage,
		Message: msg,
		Status:  status,
		CostUSD: usd,
		At:      time.Now().UTC(),
	})
}

func (rs *runState) stageUSD(stage string) float64 {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return rs.ledger.Stages[stage].USD
}

func (rs *runState) add(stage string, sc model.StageCost) {
	rs.mu.Lock()
	rs.ledger.Add(stage, sc)
	rs.mu.Unlock()
}

// track runs fn as one named stage: it emits started and complete/error
// events, records the duration and reports the stage's incremental cost.
func (rs *runState) track(stage, msg string, fn func() error) error {
	rs.emit(stage, msg, progress.StatusStarted, 0)
	before := rs.stageUSD(stage)
	start := time.Now()

	err := fn()

	ms := time.Since(start).Milliseconds()
	rs.mu.Lock()
	rs.perf.RecordStage(stage, ms)
	rs.mu.Unlock()
	delta := rs.stageUSD(stage) - before

	if err != nil {
		rs.log.Error("pipeline: stage failed",
			zap.String("stage", stage),
			zap.Int64("duration_ms", ms),
			zap.Error(err),
		)
		rs.emit(stage, err.Error(), progress.StatusError, delta)
		return err
	}
	rs.log.Info("pipeline: stage complete",
		zap.String("stage", stage),
		zap.Int64("duration_ms", ms),
	)
	rs.emit(stage, msg, progress.StatusComplete, delta)
	return nil
}

// chargeSearch prices one search-model call against stage.
func (rs *runState) chargeSearch(stage, modelID string, resp *perplexity.ChatCompletionResponse) {
	if resp == nil {
		return
	}
	sc := rs.costs.Perplexity(modelID, resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
	rs.add(stage, sc)
	rs.log.Debug("pipeline: cost attribution",
		zap.String("stage", stage),
		zap.String("model", modelID),
		zap.Int64("input_tokens", sc.InputTokens),
		zap.Int64("output_tokens", sc.OutputTokens),
		zap.Float64("usd", sc.USD),
	)
}

// chargeAI prices one Anthropic call against stage.
func (rs *runState) chargeAI(stage, modelID string, resp *anthropic.MessageResponse) {
	if resp == nil {
		return
	}
	sc := rs.costs.Claude(modelID, cost.ClaudeUsage{
		Input:      resp.Usage.InputTokens,
		Output:     resp.Usage.OutputTokens,
		CacheWrite: resp.Usage.CacheCreationInputTokens,
		CacheRead:  resp.Usage.CacheReadInputTokens,
	})
	rs.add(stage, sc)
	rs.log.Debug("pipeline: cost attribution",
		zap.String("stage", stage),
		zap.String("model", modelID),
		zap.Int64("input_tokens", sc.InputTokens),
		zap.Int64("output_tokens", sc.OutputTokens),
		zap.Int64("cache_read_tokens", resp.Usage.CacheReadInputTokens),
		zap.Float64("usd", sc.USD),
	)
}

// chargeScrape prices a fetch batch against stage and counts its pages.
func (rs *runState) chargeScrape(stage string, requested int, b scrape.Batch) {
	sc := rs.costs.Scrape(b.Credits, b.Tokens, b.Sources["firecrawl"])
	rs.add(stage, sc)
	rs.mu.Lock()
	rs.perf.PagesRequested += requested
	rs.perf.PagesFetched += b.Content.Len()
	rs.perf.Credits += b.Credits
	rs.mu.Unlock()
}

func (rs *runState) setFlag(set func(p *model.PerformanceMetrics)) {
	rs.mu.Lock()
	set(&rs.perf)
	rs.mu.Unlock()
}

// snapshot returns copies of the accumulated cost and metrics.
func (rs *runState) snapshot() (model.CostBreakdown, model.PerformanceMetrics) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	c := model.CostBreakdown{Stages: make(map[string]model.StageCost, len(rs.ledger.Stages))}
	for k, v := range rs.ledger.Stages {
		c.Stages[k] = v
	}
	p := rs.perf
	p.StageMillis = make(map[string]int64, len(rs.perf.StageMillis))
	for k, v := range rs.perf.StageMillis {
		p.StageMillis[k] = v
	}
	return c, p
}
