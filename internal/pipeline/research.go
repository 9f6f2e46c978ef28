package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/enrich-cli/internal/model"
)

// Research holds the settled outcome of the three targeted queries. Any
// field may be nil when its query failed or found nothing.
type Research struct {
	Revenue   *model.RevenueEvidence
	Employees *model.EmployeeEvidence
	Location  *model.Headquarters
	Findings  []model.Finding
}

type rawResearchRevenue struct {
	rawRevenue
	Confidence flexString `json:"confidence"`
}

type rawResearchEmployees struct {
	rawEmployees
	URL        flexString `json:"evidence_url"`
	Confidence flexString `json:"confidence"`
}

type rawResearchLocation struct {
	rawHeadquarters
	Source     flexString `json:"source"`
	URL        flexString `json:"evidence_url"`
	Confidence flexString `json:"confidence"`
}

// deepResearch runs the revenue, employee and location queries in
// parallel. Each settles independently; a failed query only leaves its
// slot empty.
func (p *Pipeline) deepResearch(ctx context.Context, rs *runState, name, domain string) Research {
	subject := name
	if subject == "" {
		subject = domain
	}
	modelID := p.cfg.Perplexity.ResearchModel
	if modelID == "" {
		modelID = p.cfg.Perplexity.Model
	}

	var (
		revText, empText, locText string
		g                         errgroup.Group
	)
	ask := func(kind, tmpl string, out *string) {
		g.Go(func() error {
			resp, err := p.callSearch(ctx, rs, StageDeepResearch, modelID, fmt.Sprintf(tmpl, subject, domain))
			if err != nil {
				rs.log.Warn("pipeline: deep research query failed",
					zap.String("kind", kind), zap.Error(err))
				return nil
			}
			*out = stripModelNoise(resp.Content())
			return nil
		})
	}
	ask("revenue", researchRevenuePrompt, &revText)
	ask("employees", researchEmployeesPrompt, &empText)
	ask("location", researchLocationPrompt, &locText)
	_ = g.Wait()

	var r Research
	r.Revenue, r.Findings = parseResearchRevenue(revText, r.Findings)
	r.Employees, r.Findings = parseResearchEmployees(empText, r.Findings)
	r.Location, r.Findings = parseResearchLocation(locText, r.Findings)
	return r
}

func parseResearchRevenue(text string, findings []model.Finding) (*model.RevenueEvidence, []model.Finding) {
	var raw rawResearchRevenue
	if text == "" || json.Unmarshal([]byte(extractJSON(text)), &raw) != nil {
		return nil, findings
	}
	e := model.RevenueEvidence{
		Amount:     strings.TrimSpace(string(raw.Amount)),
		USD:        float64(raw.USD),
		Source:     strings.TrimSpace(string(raw.Source)),
		Year:       int(raw.Year),
		IsEstimate: bool(raw.IsEstimate),
		Scope:      model.NormalizeScope(string(raw.Scope)),
		Tier:       model.NormalizeTier(string(raw.Tier)),
		URL:        strings.TrimSpace(string(raw.URL)),
	}
	if e.USD <= 0 {
		e.USD = parseUSD(e.Amount)
	}
	if !e.HasValue() {
		return nil, findings
	}
	return &e, append(findings, model.Finding{
		Kind:       "revenue",
		Value:      e.Amount,
		Source:     e.Source,
		URL:        e.URL,
		Confidence: model.NormalizeConfidence(strings.ToLower(string(raw.Confidence))),
	})
}

func parseResearchEmployees(text string, findings []model.Finding) (*model.EmployeeEvidence, []model.Finding) {
	var raw rawResearchEmployees
	if text == "" || json.Unmarshal([]byte(extractJSON(text)), &raw) != nil {
		return nil, findings
	}
	e := model.EmployeeEvidence{
		Amount: strings.TrimSpace(string(raw.Amount)),
		Count:  int(raw.Count),
		Source: strings.TrimSpace(string(raw.Source)),
		Year:   int(raw.Year),
		Scope:  model.NormalizeScope(string(raw.Scope)),
		Tier:   model.NormalizeTier(string(raw.Tier)),
	}
	if e.Count <= 0 {
		e.Count = parseHeadcount(e.Amount)
	}
	if e.Count <= 0 {
		return nil, findings
	}
	return &e, append(findings, model.Finding{
		Kind:       "employees",
		Value:      e.Amount,
		Source:     e.Source,
		URL:        strings.TrimSpace(string(raw.URL)),
		Confidence: model.NormalizeConfidence(strings.ToLower(string(raw.Confidence))),
	})
}

func parseResearchLocation(text string, findings []model.Finding) (*model.Headquarters, []model.Finding) {
	var raw rawResearchLocation
	if text == "" || json.Unmarshal([]byte(extractJSON(text)), &raw) != nil {
		return nil, findings
	}
	hq := raw.toModel()
	if hq.IsUnknown() {
		return nil, findings
	}
	parts := make([]string, 0, 3)
	for _, s := range []string{hq.City, hq.Region, hq.Country} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return &hq, append(findings, model.Finding{
		Kind:       "location",
		Value:      strings.Join(parts, ", "),
		Source:     strings.TrimSpace(string(raw.Source)),
		URL:        strings.TrimSpace(string(raw.URL)),
		Confidence: model.NormalizeConfidence(strings.ToLower(string(raw.Confidence))),
	})
}

// MergeResearch folds deep-research findings into a first-pass result.
// New revenue and employee evidence is prepended as higher priority; the
// location only fills a headquarters that is entirely unknown.
func MergeResearch(fp model.FirstPassResult, r Research) model.FirstPassResult {
	out := fp
	if r.Revenue != nil {
		out.Revenue = append([]model.RevenueEvidence{*r.Revenue}, fp.Revenue...)
	}
	if r.Employees != nil {
		out.Employees = append([]model.EmployeeEvidence{*r.Employees}, fp.Employees...)
	}
	if r.Location != nil && fp.Headquarters.IsUnknown() {
		out.Headquarters = *r.Location
	}
	return out
}
