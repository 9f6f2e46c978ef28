package estimate

import (
	"fmt"
	"math"

	"github.com/sells-group/enrich-cli/internal/lookup"
	"github.com/sells-group/enrich-cli/internal/model"
)

// representativeHeadcount is the headcount used to stand in for each
// employee band when converting to revenue.
var representativeHeadcount = map[string]int{
	"0-1 Employees":          1,
	"2-10 Employees":         6,
	"11-50 Employees":        30,
	"51-200 Employees":       125,
	"201-500 Employees":      350,
	"501-1,000 Employees":    750,
	"1,001-5,000 Employees":  3000,
	"5,001-10,000 Employees": 7500,
	"10,001+ Employees":      15000,
}

// RepresentativeHeadcount returns the stand-in headcount for band.
func RepresentativeHeadcount(band string) (int, bool) {
	n, ok := representativeHeadcount[band]
	return n, ok
}

// representativeRevenue returns the geometric middle of a revenue band.
func representativeRevenue(band string) (float64, bool) {
	idx := model.RevenueBandIndex(band)
	if idx < 0 {
		return 0, false
	}
	lo, _ := model.RevenueBandFloor(band)
	hi := 1e12
	if idx+1 < len(model.RevenueBands) {
		hi, _ = model.RevenueBandFloor(model.RevenueBands[idx+1])
	}
	if lo <= 0 {
		return hi / 2, true
	}
	return math.Sqrt(lo * hi), true
}

// Estimate is a derived band with its provenance.
type Estimate struct {
	Band       string
	Confidence model.Confidence
	Reasoning  string
}

// Estimator derives missing bands from industry multipliers.
type Estimator struct {
	tables *lookup.Tables
}

// NewEstimator creates an Estimator over the lookup tables.
func NewEstimator(tables *lookup.Tables) *Estimator {
	if tables == nil {
		tables = lookup.Default()
	}
	return &Estimator{tables: tables}
}

func primaryPrefix(codes []model.IndustryCode) string {
	for _, c := range codes {
		if len(c.Code) >= 2 {
			return c.Prefix(2)
		}
	}
	return ""
}

// RevenueFromSize estimates revenue as headcount times the industry's
// revenue per employee. Confidence is medium with an industry code and low
// when only the default multiplier applies.
func (e *Estimator) RevenueFromSize(sizeBand string, codes []model.IndustryCode) (Estimate, bool) {
	heads, ok := RepresentativeHeadcount(sizeBand)
	if !ok {
		return Estimate{}, false
	}
	prefix := primaryPrefix(codes)
	perHead := e.tables.RevenuePerEmployee(prefix)
	band, ok := model.RevenueBandFor(float64(heads) * perHead)
	if !ok {
		return Estimate{}, false
	}
	conf := model.ConfidenceMedium
	basis := "industry " + prefix
	if prefix == "" {
		conf = model.ConfidenceLow
		basis = "default"
	}
	return Estimate{
		Band:       band,
		Confidence: conf,
		Reasoning: fmt.Sprintf("Estimated from size band %s (~%d employees) at %s revenue per employee (%s multiplier)",
			sizeBand, heads, FormatUSD(perHead), basis),
	}, true
}

// RevenueFromIndustry falls back to the typical revenue of the primary
// industry. Always low confidence.
func (e *Estimator) RevenueFromIndustry(codes []model.IndustryCode) (Estimate, bool) {
	prefix := primaryPrefix(codes)
	if prefix == "" {
		return Estimate{}, false
	}
	avg, ok := e.tables.IndustryAverageRevenue(prefix)
	if !ok {
		return Estimate{}, false
	}
	band, ok := model.RevenueBandFor(avg)
	if !ok {
		return Estimate{}, false
	}
	return Estimate{
		Band:       band,
		Confidence: model.ConfidenceLow,
		Reasoning:  fmt.Sprintf("Industry average revenue for NAICS %s (%s); no company-specific evidence", prefix, FormatUSD(avg)),
	}, true
}

// SizeFromRevenue inverts the revenue-per-employee multiplier.
func (e *Estimator) SizeFromRevenue(revenueBand string, codes []model.IndustryCode) (Estimate, bool) {
	rev, ok := representativeRevenue(revenueBand)
	if !ok {
		return Estimate{}, false
	}
	prefix := primaryPrefix(codes)
	perHead := e.tables.RevenuePerEmployee(prefix)
	heads := int(math.Round(rev / perHead))
	band, ok := model.EmployeeBandFor(heads)
	if !ok {
		return Estimate{}, false
	}
	conf := model.ConfidenceMedium
	if prefix == "" {
		conf = model.ConfidenceLow
	}
	return Estimate{
		Band:       band,
		Confidence: conf,
		Reasoning: fmt.Sprintf("Estimated ~%d employees from revenue band %s at %s revenue per employee",
			heads, revenueBand, FormatUSD(perHead)),
	}, true
}
