package pipeline

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/enrich-cli/internal/resilience"
	"github.com/sells-group/enrich-cli/pkg/anthropic"
)

// callAI sends one prompt to the analysis model with retries and charges
// the call to stage. Rejected credentials are a configuration failure.
func (p *Pipeline) callAI(ctx context.Context, rs *runState, stage, modelID string, system []anthropic.SystemBlock, prompt string, maxTokens int64) (*anthropic.MessageResponse, error) {
	if p.ai == nil {
		return nil, eris.Wrap(ErrConfig, "pipeline: no analysis client configured")
	}
	temp := 0.0
	req := anthropic.MessageRequest{
		Model:       modelID,
		MaxTokens:   maxTokens,
		System:      system,
		Messages:    []anthropic.Message{{Role: "user", Content: prompt}},
		Temperature: &temp,
	}

	retry := p.retry
	retry.OnRetry = resilience.RetryLogger("anthropic", stage)
	resp, err := resilience.DoVal(ctx, retry, func(ctx context.Context) (*anthropic.MessageResponse, error) {
		return p.ai.CreateMessage(ctx, req)
	})
	if err != nil {
		if isAuthFailure(err) {
			return nil, eris.Wrapf(ErrConfig, "pipeline: analysis credentials rejected: %v", err)
		}
		return nil, eris.Wrap(err, "pipeline: analysis model")
	}
	rs.chargeAI(stage, modelID, resp)
	return resp, nil
}
