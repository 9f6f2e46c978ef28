package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/sells-group/enrich-cli/internal/estimate"
	"github.com/sells-group/enrich-cli/internal/icp"
	"github.com/sells-group/enrich-cli/internal/model"
)

// weakSizeCeiling is the largest size band still considered weak.
const weakSizeCeiling = "11-50 Employees"

func weakRevenue(rec model.EnrichmentRecord, primary icp.Profile) bool {
	return rec.RevenueBand == nil || !primary.RevenuePasses(rec.Revenue())
}

func weakSize(rec model.EnrichmentRecord) bool {
	idx := model.EmployeeBandIndex(rec.SizeBand)
	return idx < 0 || idx <= model.EmployeeBandIndex(weakSizeCeiling)
}

// IsWeak reports whether a record's own figures are too thin to stand on:
// no revenue, revenue below the primary profile's threshold, or a size at
// or below 11-50 employees.
func IsWeak(rec model.EnrichmentRecord, primary icp.Profile) bool {
	return weakRevenue(rec, primary) || weakSize(rec)
}

// Inherit copies the parent's revenue and size bands onto a weak child.
// A band is copied only over a weak child value and only when it is
// larger, so the child's own figures are never downgraded. ICP fields are
// recomputed. It reports whether anything was copied.
func Inherit(child, parent model.EnrichmentRecord, parentDomain string, m *icp.Matcher) (model.EnrichmentRecord, bool) {
	if parent.RevenueBand == nil {
		return child, false
	}
	primary := m.Primary()
	parentName := parent.CompanyName
	if parentName == "" {
		parentName = parentDomain
	}
	copied := false

	if weakRevenue(child, primary) && model.RevenueBandIndex(parent.Revenue()) > model.RevenueBandIndex(child.Revenue()) {
		child.SetRevenue(parent.Revenue())
		child.Inheritance.InheritedRevenue = true
		child.Quality.Revenue = model.QualityMetric{
			Confidence: model.ConfidenceMedium,
			Reasoning:  fmt.Sprintf("Inherited %s from parent %s (%s)", parent.Revenue(), parentName, parentDomain),
		}
		copied = true
	}
	if weakSize(child) && model.EmployeeBandIndex(parent.SizeBand) > model.EmployeeBandIndex(child.SizeBand) {
		child.SizeBand = parent.SizeBand
		child.Inheritance.InheritedSize = true
		child.Quality.Size = model.QualityMetric{
			Confidence: model.ConfidenceMedium,
			Reasoning:  fmt.Sprintf("Inherited %s from parent %s (%s)", parent.SizeBand, parentName, parentDomain),
		}
		copied = true
	}
	if copied {
		child.Inheritance.ParentName = parentName
		child.Inheritance.ParentDomain = parentDomain
		m.Apply(&child)
	}
	return child, copied
}

// inherit resolves the named parent and borrows its stored figures when
// the record is weak. Lookup failures leave the record unchanged.
func (p *Pipeline) inherit(ctx context.Context, rs *runState, rec model.EnrichmentRecord, parentName string) model.EnrichmentRecord {
	if parentName == "" || !IsWeak(rec, p.matcher.Primary()) {
		return rec
	}
	domain, method := p.tables.ParentDomain(parentName)
	if domain == "" || domain == rec.Domain {
		return rec
	}
	rs.setFlag(func(pm *model.PerformanceMetrics) { pm.ParentLookup = true })
	log := rs.log.With(zap.String("parent", parentName), zap.String("parent_domain", domain), zap.String("method", method))

	if rec.Inheritance.ParentName == "" {
		rec.Inheritance.ParentName = parentName
		rec.Inheritance.ParentDomain = domain
	}
	if p.store == nil {
		return rec
	}
	res, err := p.store.GetResult(ctx, domain)
	if err != nil {
		log.Warn("pipeline: parent lookup failed", zap.Error(err))
		return rec
	}
	if res == nil {
		log.Info("pipeline: parent not enriched yet")
		return rec
	}

	out, copied := Inherit(rec, res.Record, domain, p.matcher)
	if copied && out.Inheritance.InheritedRevenue {
		// An inherited revenue band can outgrow the child's own size band.
		if adj, ok := estimate.SanityAdjust(out.Revenue(), out.SizeBand, p.rules().Thresholds); ok {
			out.SizeBand = adj.To
			out.Quality.Size = model.QualityMetric{Confidence: model.ConfidenceMedium, Reasoning: adj.Reason}
			out.Diagnostics.Adjustments = append(out.Diagnostics.Adjustments, adj.Reason)
			p.matcher.Apply(&out)
		}
	}
	if copied {
		log.Info("pipeline: inherited parent figures",
			zap.Bool("revenue", out.Inheritance.InheritedRevenue),
			zap.Bool("size", out.Inheritance.InheritedSize))
	}
	return out
}
