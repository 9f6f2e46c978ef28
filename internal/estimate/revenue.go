// Package estimate picks, derives and sanity-checks revenue and headcount
// bands from noisy evidence.
package estimate

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/sells-group/enrich-cli/internal/model"
)

// DefaultConflictRatio is the max/min spread beyond which revenue evidence
// is considered irreconcilable.
const DefaultConflictRatio = 5.0

// Pick is the outcome of choosing one revenue figure from evidence.
type Pick struct {
	Band       string
	Evidence   *model.RevenueEvidence
	Confidence model.Confidence
	Reasoning  string
	Conflict   bool
	Scope      model.EntityScope
}

// Found reports whether a band was chosen.
func (p Pick) Found() bool { return p.Band != "" }

// PickRevenue chooses the best revenue figure. Items without a positive
// in-range USD value are discarded. Operating-company figures are preferred
// and ultimate-parent figures are used only when no operating-company figure
// survives. If the surviving group's max/min ratio exceeds ratio no figure
// is chosen. Otherwise the most recent year wins, then non-estimates, then
// the larger amount.
func PickRevenue(evidence []model.RevenueEvidence, ratio float64) Pick {
	if ratio <= 1 {
		ratio = DefaultConflictRatio
	}

	var own, parent []model.RevenueEvidence
	for _, e := range evidence {
		if !e.HasValue() {
			continue
		}
		if _, ok := model.RevenueBandFor(e.USD); !ok {
			continue
		}
		if e.Scope == model.ScopeUltimateParent {
			parent = append(parent, e)
		} else {
			own = append(own, e)
		}
	}

	group, scope := own, model.ScopeOperatingCompany
	if len(group) == 0 {
		group, scope = parent, model.ScopeUltimateParent
	}
	if len(group) == 0 {
		return Pick{Confidence: model.ConfidenceLow, Reasoning: "No revenue evidence with a usable amount"}
	}

	lo, hi := group[0], group[0]
	for _, e := range group[1:] {
		if e.USD < lo.USD {
			lo = e
		}
		if e.USD > hi.USD {
			hi = e
		}
	}
	if hi.USD/lo.USD > ratio {
		return Pick{
			Confidence: model.ConfidenceLow,
			Conflict:   true,
			Scope:      scope,
			Reasoning: fmt.Sprintf("Conflicting revenue sources: %s (%s) vs %s (%s) differ by more than %gx",
				FormatUSD(hi.USD), sourceName(hi), FormatUSD(lo.USD), sourceName(lo), ratio),
		}
	}

	sorted := make([]model.RevenueEvidence, len(group))
	copy(sorted, group)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Year != b.Year {
			return a.Year > b.Year
		}
		if a.IsEstimate != b.IsEstimate {
			return !a.IsEstimate
		}
		return a.USD > b.USD
	})
	best := sorted[0]
	band, _ := model.RevenueBandFor(best.USD)

	conf := model.ConfidenceMedium
	if !best.IsEstimate && best.Tier.Authoritative() {
		conf = model.ConfidenceHigh
	}

	return Pick{
		Band:       band,
		Evidence:   &best,
		Confidence: conf,
		Scope:      scope,
		Reasoning:  describePick(best, len(group), scope),
	}
}

func describePick(e model.RevenueEvidence, n int, scope model.EntityScope) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Revenue of %s", FormatUSD(e.USD))
	if e.Year > 0 {
		fmt.Fprintf(&b, " (%d)", e.Year)
	}
	kind := "reported figure"
	if e.IsEstimate {
		kind = "estimate"
	}
	fmt.Fprintf(&b, " from %s, %s", sourceName(e), kind)
	if e.URL != "" {
		fmt.Fprintf(&b, " [%s]", e.URL)
	}
	if n > 1 {
		fmt.Fprintf(&b, "; %d sources agree within range", n)
	}
	if scope == model.ScopeUltimateParent {
		b.WriteString("; figure describes the ultimate parent")
	}
	return b.String()
}

func sourceName(e model.RevenueEvidence) string {
	if e.Source != "" {
		return e.Source
	}
	if e.Tier != "" && e.Tier != model.TierUnknown {
		return string(e.Tier)
	}
	return "unnamed source"
}

// FormatUSD renders an amount as $38M, $1.2B, $750K.
func FormatUSD(v float64) string {
	switch {
	case v >= 1e12:
		return "$" + trimFloat(v/1e12) + "T"
	case v >= 1e9:
		return "$" + trimFloat(v/1e9) + "B"
	case v >= 1e6:
		return "$" + trimFloat(v/1e6) + "M"
	case v >= 1e3:
		return "$" + trimFloat(v/1e3) + "K"
	default:
		return "$" + trimFloat(v)
	}
}

func trimFloat(v float64) string {
	v = math.Round(v*10) / 10
	s := fmt.Sprintf("%.1f", v)
	return strings.TrimSuffix(s, ".0")
}
