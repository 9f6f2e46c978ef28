package estimate

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/sells-group/enrich-cli/internal/model"
)

// Threshold says a revenue at or above MinRevenueUSD needs at least
// MinSizeBand employees.
type Threshold struct {
	MinRevenueUSD float64 `yaml:"min_revenue_usd" mapstructure:"min_revenue_usd"`
	MinSizeBand   string  `yaml:"min_size_band" mapstructure:"min_size_band"`
}

// DefaultThresholds returns the built-in revenue to headcount floor table,
// largest revenue first.
func DefaultThresholds() []Threshold {
	return []Threshold{
		{MinRevenueUSD: 10e9, MinSizeBand: "5,001-10,000 Employees"},
		{MinRevenueUSD: 1e9, MinSizeBand: "1,001-5,000 Employees"},
		{MinRevenueUSD: 200e6, MinSizeBand: "201-500 Employees"},
	}
}

// Adjustment is a forced size-band change.
type Adjustment struct {
	From, To string
	Reason   string
}

// SanityAdjust raises sizeBand to the smallest band consistent with
// revenueBand. Revenue is trusted over headcount. When several thresholds
// apply the strictest wins, so their order does not matter; entries with an
// unknown band are skipped. Re-running on its own output yields no
// adjustment. Unknown input bands are left alone.
func SanityAdjust(revenueBand, sizeBand string, thresholds []Threshold) (Adjustment, bool) {
	floor, ok := model.RevenueBandFloor(revenueBand)
	if !ok {
		return Adjustment{}, false
	}
	have := model.EmployeeBandIndex(sizeBand)
	if have < 0 {
		return Adjustment{}, false
	}

	need, to := -1, ""
	for _, th := range thresholds {
		if floor < th.MinRevenueUSD {
			continue
		}
		if idx := model.EmployeeBandIndex(th.MinSizeBand); idx > need {
			need, to = idx, th.MinSizeBand
		}
	}
	if need < 0 || have >= need {
		return Adjustment{}, false
	}
	return Adjustment{
		From: sizeBand,
		To:   to,
		Reason: fmt.Sprintf("Revenue band %s implies at least %s; raised from %s",
			revenueBand, to, sizeBand),
	}, true
}

// SortThresholds returns a copy of thresholds ordered largest revenue first.
func SortThresholds(thresholds []Threshold) []Threshold {
	out := slices.Clone(thresholds)
	slices.SortStableFunc(out, func(a, b Threshold) int {
		return cmp.Compare(b.MinRevenueUSD, a.MinRevenueUSD)
	})
	return out
}
