package pipeline

import (
	"fmt"

	"github.com/sells-group/enrich-cli/internal/config"
	"github.com/sells-group/enrich-cli/internal/estimate"
	"github.com/sells-group/enrich-cli/internal/model"
)

// OutlierThresholds tune DetectOutliers.
type OutlierThresholds struct {
	LargeRevenueUSD float64
	SmallHeadcount  int
	ConflictRatio   float64
}

// thresholdsFrom reads outlier thresholds from config, filling defaults.
func thresholdsFrom(cfg config.ResearchConfig) OutlierThresholds {
	t := OutlierThresholds{
		LargeRevenueUSD: cfg.LargeRevenueUSD,
		SmallHeadcount:  cfg.SmallHeadcount,
		ConflictRatio:   cfg.ConflictRatio,
	}
	if t.LargeRevenueUSD <= 0 {
		t.LargeRevenueUSD = 100e6
	}
	if t.SmallHeadcount <= 0 {
		t.SmallHeadcount = 50
	}
	if t.ConflictRatio <= 1 {
		t.ConflictRatio = estimate.DefaultConflictRatio
	}
	return t
}

// DetectOutliers lists the reasons first-pass evidence warrants deep
// research. An empty list means the evidence is complete and coherent.
func DetectOutliers(fp model.FirstPassResult, t OutlierThresholds) []string {
	var reasons []string

	var valued []model.RevenueEvidence
	for _, e := range fp.Revenue {
		if e.HasValue() {
			valued = append(valued, e)
		}
	}
	if len(valued) == 0 {
		reasons = append(reasons, "no revenue evidence")
	}

	headcount := 0
	if e := fp.PrimaryEmployees(); e != nil {
		headcount = e.Count
	}
	if headcount <= 0 {
		reasons = append(reasons, "no employee evidence")
	}
	if !fp.Headquarters.HasCountry() {
		reasons = append(reasons, "no headquarters country")
	}

	var top float64
	for _, e := range valued {
		if e.Scope == model.ScopeOperatingCompany {
			top = max(top, e.USD)
		}
	}
	if top > t.LargeRevenueUSD && headcount > 0 && headcount < t.SmallHeadcount {
		reasons = append(reasons, fmt.Sprintf("revenue %s with only %d employees", estimate.FormatUSD(top), headcount))
	}

	for _, scope := range []model.EntityScope{model.ScopeOperatingCompany, model.ScopeUltimateParent} {
		lo, hi := 0.0, 0.0
		for _, e := range valued {
			if e.Scope != scope {
				continue
			}
			if lo == 0 || e.USD < lo {
				lo = e.USD
			}
			hi = max(hi, e.USD)
		}
		if lo > 0 && hi/lo > t.ConflictRatio {
			reasons = append(reasons, fmt.Sprintf("%s revenue sources differ by more than %gx", scope, t.ConflictRatio))
		}
	}

	if fp.PubliclyTraded {
		reasons = append(reasons, "publicly traded")
	}
	return reasons
}
