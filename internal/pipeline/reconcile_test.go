package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/enrich-cli/internal/estimate"
	"github.com/sells-group/enrich-cli/internal/icp"
	"github.com/sells-group/enrich-cli/internal/lookup"
	"github.com/sells-group/enrich-cli/internal/model"
)

func testRules() Rules {
	tables := lookup.Default()
	return Rules{
		Estimator:     estimate.NewEstimator(tables),
		Matcher:       icp.NewMatcher(tables.ICPProfiles()),
		ConflictRatio: 5,
		Thresholds:    estimate.DefaultThresholds(),
	}
}

func analysedRecord() model.EnrichmentRecord {
	rec := model.EnrichmentRecord{
		CompanyName:   "Acme Tools",
		Domain:        "acme.com",
		SizeBand:      "201-500 Employees",
		IndustryCodes: []model.IndustryCode{{Code: "332216", Description: "Handtools"}},
		Headquarters:  model.Headquarters{City: "Austin", CountryCode: "US"},
		Quality: model.Quality{
			Size:    model.QualityMetric{Confidence: model.ConfidenceMedium, Reasoning: "About page"},
			Revenue: model.QualityMetric{Confidence: model.ConfidenceLow},
		},
	}
	return rec
}

func TestReconcile_AgreeingSourcesPickReportedFigure(t *testing.T) {
	fp := model.FirstPassResult{Revenue: []model.RevenueEvidence{
		{Amount: "$42M", USD: 42e6, Source: "ZoomInfo", IsEstimate: true, Tier: model.TierEstimateSite, Scope: model.ScopeOperatingCompany},
		{Amount: "$38M", USD: 38e6, Source: "Press release", Tier: model.TierMedia, Scope: model.ScopeOperatingCompany},
	}}

	rec := Reconcile(analysedRecord(), fp, testRules())

	assert.Equal(t, "25M-75M", rec.Revenue())
	assert.Equal(t, model.ConfidenceHigh, rec.Quality.Revenue.Confidence)
	assert.Contains(t, rec.Quality.Revenue.Reasoning, "$38M")
	assert.False(t, rec.Diagnostics.RevenueConflict)
	assert.True(t, rec.ICPMatch)
	assert.Equal(t, []string{"core"}, rec.ICPMatches)
}

func TestReconcile_YearPrefixedAmountIsNotRevenue(t *testing.T) {
	fp := ParseFirstPass(`{"company_name": "Acme Tools", "revenue_evidence": [
		{"amount": "FY2023: $38 million", "source": "Press release", "source_tier": "press_release"},
		{"amount": "$42M", "source": "ZoomInfo", "is_estimate": true, "source_tier": "estimate_site"}
	]}`, nil, "acme.com")
	require.Len(t, fp.Revenue, 2)
	assert.Equal(t, 38e6, fp.Revenue[0].USD)

	rec := Reconcile(analysedRecord(), fp, testRules())

	assert.Equal(t, "25M-75M", rec.Revenue())
	assert.Equal(t, model.ConfidenceHigh, rec.Quality.Revenue.Confidence)
	assert.Contains(t, rec.Quality.Revenue.Reasoning, "Press release")
	assert.False(t, rec.Diagnostics.RevenueConflict)
}

func TestReconcile_ConflictLeavesRevenueNull(t *testing.T) {
	fp := model.FirstPassResult{Revenue: []model.RevenueEvidence{
		{Amount: "$1B", USD: 1e9, Source: "Forbes", Scope: model.ScopeOperatingCompany},
		{Amount: "$50M", USD: 50e6, Source: "Owler", Scope: model.ScopeOperatingCompany},
	}}
	rec := analysedRecord()
	rec.SetRevenue("75M-200M")
	rec.Quality.Revenue = model.QualityMetric{Confidence: model.ConfidenceMedium, Reasoning: "Owler lists $50M"}

	rec = Reconcile(rec, fp, testRules())

	assert.Nil(t, rec.RevenueBand, "a conflict is never filled by estimation")
	assert.Equal(t, model.ConfidenceLow, rec.Quality.Revenue.Confidence)
	assert.Contains(t, rec.Quality.Revenue.Reasoning, "Conflicting revenue sources")
	assert.True(t, rec.Diagnostics.RevenueConflict)
	assert.False(t, rec.RevenuePass)
	assert.False(t, rec.ICPMatch)
}

func TestReconcile_ParentFiguresOnlyWithoutOperatingFigures(t *testing.T) {
	fp := model.FirstPassResult{Revenue: []model.RevenueEvidence{
		{Amount: "$80B", USD: 80e9, Source: "10-K", Tier: model.TierFiling, Scope: model.ScopeUltimateParent},
		{Amount: "$40M", USD: 40e6, Source: "Press release", Tier: model.TierMedia, Scope: model.ScopeOperatingCompany},
	}}

	rec := Reconcile(analysedRecord(), fp, testRules())

	assert.Equal(t, "25M-75M", rec.Revenue())
	assert.False(t, rec.Diagnostics.RevenueConflict)
}

func TestReconcile_SearchHeadcountOverridesTinySize(t *testing.T) {
	rec := analysedRecord()
	rec.SizeBand = "0-1 Employees"
	fp := model.FirstPassResult{Employees: []model.EmployeeEvidence{
		{Amount: "2,500", Count: 2500, Source: "LinkedIn", Scope: model.ScopeOperatingCompany},
	}}

	rec = Reconcile(rec, fp, testRules())

	assert.Equal(t, "1,001-5,000 Employees", rec.SizeBand)
	assert.Equal(t, model.ConfidenceMedium, rec.Quality.Size.Confidence)
	require.NotEmpty(t, rec.Diagnostics.Adjustments)
	assert.Contains(t, rec.Diagnostics.Adjustments[0], "implausibly small")
}

func TestReconcile_AdjacentHeadcountKeepsAnalysis(t *testing.T) {
	rec := analysedRecord()
	fp := model.FirstPassResult{Employees: []model.EmployeeEvidence{{Count: 600, Scope: model.ScopeOperatingCompany}}}

	rec = Reconcile(rec, fp, testRules())

	assert.Equal(t, "201-500 Employees", rec.SizeBand)
	assert.Empty(t, rec.Diagnostics.Adjustments)
}

func TestReconcile_ParentHeadcountIgnored(t *testing.T) {
	rec := analysedRecord()
	rec.SizeBand = model.UnknownBand
	fp := model.FirstPassResult{Employees: []model.EmployeeEvidence{{Count: 90000, Scope: model.ScopeUltimateParent}}}

	rec = Reconcile(rec, fp, testRules())

	assert.NotEqual(t, "10,001+ Employees", rec.SizeBand)
}

func TestReconcile_SanityRaisesSize(t *testing.T) {
	rec := analysedRecord()
	rec.SizeBand = "51-200 Employees"
	rec.SetRevenue("10B-100B")
	rec.Quality.Revenue = model.QualityMetric{Confidence: model.ConfidenceHigh, Reasoning: "Annual report: $12B"}

	rec = Reconcile(rec, model.FirstPassResult{}, testRules())

	assert.Equal(t, "10B-100B", rec.Revenue())
	assert.Equal(t, "5,001-10,000 Employees", rec.SizeBand)
	assert.Equal(t, model.ConfidenceMedium, rec.Quality.Size.Confidence)
	assert.Contains(t, rec.Diagnostics.Adjustments, rec.Quality.Size.Reasoning)

	// Reconciling the output again changes nothing.
	again := Reconcile(rec, model.FirstPassResult{}, testRules())
	assert.Equal(t, rec.SizeBand, again.SizeBand)
	assert.Len(t, again.Diagnostics.Adjustments, 1)
}

func TestReconcile_RevenueEstimatedFromSize(t *testing.T) {
	rec := analysedRecord()
	rec.IndustryCodes = []model.IndustryCode{{Code: "541511"}}

	rec = Reconcile(rec, model.FirstPassResult{}, testRules())

	// 350 employees at $200K each.
	assert.Equal(t, "25M-75M", rec.Revenue())
	assert.Equal(t, model.ConfidenceMedium, rec.Quality.Revenue.Confidence)
	assert.Contains(t, rec.Quality.Revenue.Reasoning, "Estimated from size band")
}

func TestReconcile_IndustryAverageThenSize(t *testing.T) {
	rec := analysedRecord()
	rec.SizeBand = model.UnknownBand
	rec.IndustryCodes = []model.IndustryCode{{Code: "541511"}}

	rec = Reconcile(rec, model.FirstPassResult{}, testRules())

	assert.Equal(t, "1M-5M", rec.Revenue())
	assert.Equal(t, model.ConfidenceLow, rec.Quality.Revenue.Confidence)
	assert.Equal(t, "11-50 Employees", rec.SizeBand)
}

func TestReconcile_NothingToGoOn(t *testing.T) {
	rec := analysedRecord()
	rec.SizeBand = "not a band"
	rec.IndustryCodes = nil

	rec = Reconcile(rec, model.FirstPassResult{}, testRules())

	assert.Equal(t, model.UnknownBand, rec.SizeBand)
	assert.Nil(t, rec.RevenueBand)
	assert.False(t, rec.ICPMatch)
	assert.NotNil(t, rec.ICPMatches)
}
