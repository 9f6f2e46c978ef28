// Package icp evaluates enrichment records against ideal-customer profiles.
package icp

import (
	"strings"

	"github.com/sells-group/enrich-cli/internal/model"
)

// Profile is one ideal-customer profile. A record matches when it has an
// industry code under one of IndustryPrefixes, a headquarters (or US
// subsidiary) in Regions, and a revenue band at or above MinRevenueBand.
type Profile struct {
	Name             string   `yaml:"name" json:"name"`
	IndustryPrefixes []string `yaml:"industry_prefixes" json:"industry_prefixes"`
	Regions          []string `yaml:"regions" json:"regions"`
	MinRevenueBand   string   `yaml:"min_revenue_band" json:"min_revenue_band"`
}

// Verdict is the per-criterion outcome for one profile.
type Verdict struct {
	Industry bool
	Region   bool
	Revenue  bool
}

// Match reports whether all three criteria hold.
func (v Verdict) Match() bool {
	return v.Industry && v.Region && v.Revenue
}

// Evaluate checks rec against p.
func (p Profile) Evaluate(rec model.EnrichmentRecord) Verdict {
	return Verdict{
		Industry: p.industryMatch(rec.IndustryCodes),
		Region:   p.regionMatch(rec),
		Revenue:  p.RevenuePasses(rec.Revenue()),
	}
}

// RevenuePasses reports whether band is at or above the profile threshold.
// An empty or invalid band never passes.
func (p Profile) RevenuePasses(band string) bool {
	idx := model.RevenueBandIndex(band)
	if idx < 0 {
		return false
	}
	floor := model.RevenueBandIndex(p.MinRevenueBand)
	if floor < 0 {
		return true
	}
	return idx >= floor
}

func (p Profile) industryMatch(codes []model.IndustryCode) bool {
	for _, c := range codes {
		for _, prefix := range p.IndustryPrefixes {
			if prefix != "" && strings.HasPrefix(c.Code, prefix) {
				return true
			}
		}
	}
	return false
}

func (p Profile) regionMatch(rec model.EnrichmentRecord) bool {
	code := strings.ToUpper(rec.Headquarters.CountryCode)
	for _, r := range p.Regions {
		r = strings.ToUpper(r)
		if r == code && rec.Headquarters.HasCountry() {
			return true
		}
		if r == "US" && rec.USSubsidiary {
			return true
		}
	}
	return false
}

// Matcher applies an ordered set of profiles. The first profile is the
// primary one and drives the record's pass flags.
type Matcher struct {
	profiles []Profile
}

// NewMatcher creates a Matcher over profiles.
func NewMatcher(profiles []Profile) *Matcher {
	cp := make([]Profile, len(profiles))
	copy(cp, profiles)
	return &Matcher{profiles: cp}
}

// Primary returns the primary profile, or the zero Profile.
func (m *Matcher) Primary() Profile {
	if m == nil || len(m.profiles) == 0 {
		return Profile{}
	}
	return m.profiles[0]
}

// Apply recomputes every ICP field of rec from its current industry codes,
// location and revenue band.
func (m *Matcher) Apply(rec *model.EnrichmentRecord) {
	rec.ICPMatches = []string{}
	rec.RevenuePass, rec.IndustryPass, rec.RegionPass, rec.ICPMatch = false, false, false, false
	if m == nil {
		return
	}
	for i, p := range m.profiles {
		v := p.Evaluate(*rec)
		if i == 0 {
			rec.RevenuePass = v.Revenue
			rec.IndustryPass = v.Industry
			rec.RegionPass = v.Region
			rec.ICPMatch = v.Match()
		}
		if v.Match() {
			rec.ICPMatches = append(rec.ICPMatches, p.Name)
		}
	}
}

// DefaultProfiles returns the built-in profile set.
func DefaultProfiles() []Profile {
	return []Profile{
		{
			Name:             "core",
			IndustryPrefixes: []string{"23", "31", "32", "33", "42", "48", "54", "56"},
			Regions:          []string{"US", "CA"},
			MinRevenueBand:   "10M-25M",
		},
	}
}
