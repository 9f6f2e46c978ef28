package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/enrich-cli/internal/model"
	"github.com/sells-group/enrich-cli/internal/resilience"
	"github.com/sells-group/enrich-cli/pkg/perplexity"
)

// searchQuery describes what the search model should identify.
type searchQuery struct {
	Domain  string
	Name    string
	State   string
	Country string
	// EmailOnly marks a free email domain: research the named company,
	// not the domain.
	EmailOnly bool
	// Homepage, when set, switches to strict re-identification from this
	// literal site text.
	Homepage string
}

func (q searchQuery) target() string {
	var b strings.Builder
	if q.EmailOnly {
		fmt.Fprintf(&b, "the company named %q (its staff use the free email provider %s, which is not the company's site)", q.Name, q.Domain)
	} else {
		fmt.Fprintf(&b, "the company that operates the website %s", q.Domain)
		if q.Name != "" {
			fmt.Fprintf(&b, ", believed to be %q", q.Name)
		}
	}
	var loc []string
	for _, s := range []string{q.State, q.Country} {
		if s = strings.TrimSpace(s); s != "" {
			loc = append(loc, s)
		}
	}
	if len(loc) > 0 {
		fmt.Fprintf(&b, ", located in %s", strings.Join(loc, ", "))
	}
	return b.String()
}

func (q searchQuery) prompt() string {
	if q.Homepage != "" {
		return fmt.Sprintf(strictPassPrompt, q.Domain, q.Homepage, firstPassSchema)
	}
	return fmt.Sprintf(firstPassPrompt, q.target(), firstPassSchema)
}

// callSearch sends one prompt to the search model with retries and charges
// the call to stage. Rejected credentials are a configuration failure.
func (p *Pipeline) callSearch(ctx context.Context, rs *runState, stage, modelID, prompt string) (*perplexity.ChatCompletionResponse, error) {
	if p.search == nil {
		return nil, eris.Wrap(ErrConfig, "pipeline: no search client configured")
	}
	temp := 0.1
	req := perplexity.ChatCompletionRequest{
		Model: modelID,
		Messages: []perplexity.Message{
			{Role: "system", Content: searchSystemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature: &temp,
	}

	retry := p.retry
	retry.OnRetry = resilience.RetryLogger("perplexity", stage)
	timeout := time.Duration(p.cfg.Perplexity.TimeoutSecs) * time.Second

	resp, err := resilience.DoVal(ctx, retry, func(ctx context.Context) (*perplexity.ChatCompletionResponse, error) {
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		return p.search.ChatCompletion(ctx, req)
	})
	if err != nil {
		if isAuthFailure(err) {
			return nil, eris.Wrapf(ErrConfig, "pipeline: search credentials rejected: %v", err)
		}
		return nil, eris.Wrap(err, "pipeline: search")
	}
	rs.chargeSearch(stage, modelID, resp)
	return resp, nil
}

func isAuthFailure(err error) bool {
	switch resilience.StatusOf(err) {
	case http.StatusUnauthorized, http.StatusForbidden:
		return true
	}
	return false
}

// firstPass identifies the company and collects its evidence. Search
// failures other than configuration errors yield the fallback result.
func (p *Pipeline) firstPass(ctx context.Context, rs *runState, stage string, q searchQuery) (model.FirstPassResult, error) {
	resp, err := p.callSearch(ctx, rs, stage, p.cfg.Perplexity.Model, q.prompt())
	if err != nil {
		if errors.Is(err, ErrConfig) {
			return model.FirstPassResult{}, err
		}
		rs.log.Warn("pipeline: search failed, using fallback",
			zap.String("stage", stage), zap.Error(err))
		return fallbackFor(q), nil
	}

	fp := ParseFirstPass(resp.Content(), resp.Citations, q.Domain)
	switch fp.Status {
	case model.ParseFallback:
		fp = fallbackFor(q)
		rs.log.Warn("pipeline: search response unusable, using fallback", zap.String("stage", stage))
	case model.ParseSalvaged:
		rs.log.Info("pipeline: search response salvaged", zap.String("stage", stage))
	}
	if q.EmailOnly {
		fp = dropEmailDomain(fp, q)
	}
	return fp, nil
}

// fallbackFor is FallbackFirstPass, named after the domain. Email-only
// queries have no company site, so they keep the caller's name and fetch
// nothing.
func fallbackFor(q searchQuery) model.FirstPassResult {
	fp := FallbackFirstPass(q.Domain)
	if q.EmailOnly {
		fp.CompanyName = q.Name
		fp.CandidateURLs = nil
	}
	return fp
}

// dropEmailDomain removes pages on the email provider's own site.
func dropEmailDomain(fp model.FirstPassResult, q searchQuery) model.FirstPassResult {
	if fp.CompanyName == q.Domain {
		fp.CompanyName = q.Name
	}
	kept := fp.CandidateURLs[:0:0]
	for _, u := range fp.CandidateURLs {
		if !sameSite(hostOf(u), q.Domain) {
			kept = append(kept, u)
		}
	}
	fp.CandidateURLs = kept
	return fp
}
