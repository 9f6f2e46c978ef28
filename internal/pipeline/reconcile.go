package pipeline

import (
	"fmt"

	"github.com/sells-group/enrich-cli/internal/estimate"
	"github.com/sells-group/enrich-cli/internal/icp"
	"github.com/sells-group/enrich-cli/internal/model"
)

// Rules are the fixed inputs of reconciliation.
type Rules struct {
	Estimator     *estimate.Estimator
	Matcher       *icp.Matcher
	ConflictRatio float64
	Thresholds    []estimate.Threshold
}

func confidenceRank(c model.Confidence) int {
	switch c {
	case model.ConfidenceHigh:
		return 3
	case model.ConfidenceMedium:
		return 2
	case model.ConfidenceLow:
		return 1
	}
	return 0
}

// operatingHeadcount returns the first operating-company employee figure.
func operatingHeadcount(fp model.FirstPassResult) (model.EmployeeEvidence, bool) {
	for _, e := range fp.Employees {
		if e.Count > 0 && e.Scope != model.ScopeUltimateParent {
			return e, true
		}
	}
	return model.EmployeeEvidence{}, false
}

// Reconcile fills and cross-checks the analysed record's bands from the
// first-pass evidence, in order: search headcount overrides an implausibly
// small size band; the best revenue evidence is picked; missing revenue is
// estimated from size, then from the industry average; missing size is
// estimated from revenue; size is raised to what revenue implies. ICP
// fields are recomputed last. An irreconcilable revenue conflict leaves
// revenue null with low confidence.
func Reconcile(rec model.EnrichmentRecord, fp model.FirstPassResult, r Rules) model.EnrichmentRecord {
	if !rec.HasSize() {
		rec.SizeBand = model.UnknownBand
	}
	rec.SetRevenue(rec.Revenue())

	if e, ok := operatingHeadcount(fp); ok {
		band, _ := model.EmployeeBandFor(e.Count)
		have := model.EmployeeBandIndex(rec.SizeBand)
		switch {
		case have < 0:
			rec.SizeBand = band
			rec.Quality.Size = model.QualityMetric{
				Confidence: model.ConfidenceMedium,
				Reasoning:  fmt.Sprintf("Search evidence states %d employees (%s)", e.Count, sourceLabel(e.Source)),
			}
		case model.EmployeeBandIndex(band) > have+1:
			reason := fmt.Sprintf("Analysis size %s is implausibly small; search evidence states %d employees (%s)",
				rec.SizeBand, e.Count, sourceLabel(e.Source))
			rec.SizeBand = band
			rec.Quality.Size = model.QualityMetric{Confidence: model.ConfidenceMedium, Reasoning: reason}
			rec.Diagnostics.Adjustments = append(rec.Diagnostics.Adjustments, reason)
		}
	}

	pick := estimate.PickRevenue(fp.Revenue, r.ConflictRatio)
	switch {
	case pick.Conflict:
		rec.RevenueBand = nil
		rec.Quality.Revenue = model.QualityMetric{Confidence: model.ConfidenceLow, Reasoning: pick.Reasoning}
		rec.Diagnostics.RevenueConflict = true
	case pick.Found():
		if rec.RevenueBand == nil || confidenceRank(pick.Confidence) >= confidenceRank(rec.Quality.Revenue.Confidence) {
			rec.SetRevenue(pick.Band)
			rec.Quality.Revenue = model.QualityMetric{Confidence: pick.Confidence, Reasoning: pick.Reasoning}
		}
	}

	if rec.RevenueBand == nil && !rec.Diagnostics.RevenueConflict && r.Estimator != nil {
		est, ok := r.Estimator.RevenueFromSize(rec.SizeBand, rec.IndustryCodes)
		if !ok {
			est, ok = r.Estimator.RevenueFromIndustry(rec.IndustryCodes)
		}
		if ok {
			rec.SetRevenue(est.Band)
			rec.Quality.Revenue = model.QualityMetric{Confidence: est.Confidence, Reasoning: est.Reasoning}
		}
	}

	if !rec.HasSize() && rec.RevenueBand != nil && r.Estimator != nil {
		if est, ok := r.Estimator.SizeFromRevenue(rec.Revenue(), rec.IndustryCodes); ok {
			rec.SizeBand = est.Band
			rec.Quality.Size = model.QualityMetric{Confidence: est.Confidence, Reasoning: est.Reasoning}
		}
	}

	if adj, ok := estimate.SanityAdjust(rec.Revenue(), rec.SizeBand, r.Thresholds); ok {
		rec.SizeBand = adj.To
		rec.Quality.Size = model.QualityMetric{Confidence: model.ConfidenceMedium, Reasoning: adj.Reason}
		rec.Diagnostics.Adjustments = append(rec.Diagnostics.Adjustments, adj.Reason)
	}

	r.Matcher.Apply(&rec)
	return rec
}

func sourceLabel(s string) string {
	if s == "" {
		return "unnamed source"
	}
	return s
}
