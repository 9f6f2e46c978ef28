package icp

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/enrich-cli/internal/model"
)

func record(band, country string, codes ...string) model.EnrichmentRecord {
	rec := model.EnrichmentRecord{Headquarters: model.Headquarters{CountryCode: country}}
	rec.SetRevenue(band)
	for _, c := range codes {
		rec.IndustryCodes = append(rec.IndustryCodes, model.IndustryCode{Code: c})
	}
	return rec
}

func TestMatcher_Apply(t *testing.T) {
	m := NewMatcher([]Profile{
		{Name: "core", IndustryPrefixes: []string{"54"}, Regions: []string{"US"}, MinRevenueBand: "10M-25M"},
		{Name: "canada", IndustryPrefixes: []string{"54"}, Regions: []string{"CA"}, MinRevenueBand: "1M-5M"},
	})

	tests := []struct {
		name    string
		rec     model.EnrichmentRecord
		match   bool
		flags   [3]bool // revenue, industry, region
		matches []string
	}{
		{"all pass", record("25M-75M", "US", "541512"), true, [3]bool{true, true, true}, []string{"core"}},
		{"revenue below", record("5M-10M", "US", "541512"), false, [3]bool{false, true, true}, []string{}},
		{"no revenue", record("", "US", "541512"), false, [3]bool{false, true, true}, []string{}},
		{"wrong industry", record("25M-75M", "US", "621111"), false, [3]bool{true, false, true}, []string{}},
		{"wrong region", record("25M-75M", "DE", "541512"), false, [3]bool{true, true, false}, []string{}},
		{"secondary only", record("5M-10M", "CA", "541512"), false, [3]bool{false, true, false}, []string{"canada"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := tt.rec
			m.Apply(&rec)
			assert.Equal(t, tt.match, rec.ICPMatch)
			assert.Equal(t, tt.flags, [3]bool{rec.RevenuePass, rec.IndustryPass, rec.RegionPass})
			assert.Equal(t, tt.match, rec.RevenuePass && rec.IndustryPass && rec.RegionPass)
			assert.Equal(t, tt.matches, rec.ICPMatches)
		})
	}
}

func TestMatcher_USSubsidiaryCountsForUS(t *testing.T) {
	m := NewMatcher(DefaultProfiles())
	rec := record("75M-200M", "GB", "541512")
	rec.USSubsidiary = true
	m.Apply(&rec)
	assert.True(t, rec.RegionPass)
	assert.True(t, rec.ICPMatch)
}

func TestMatcher_RecomputesFromScratch(t *testing.T) {
	m := NewMatcher(DefaultProfiles())
	rec := record("75M-200M", "US", "541512")
	m.Apply(&rec)
	assert.True(t, rec.ICPMatch)

	rec.RevenueBand = nil
	m.Apply(&rec)
	assert.False(t, rec.ICPMatch)
	assert.False(t, rec.RevenuePass)
}

func TestProfile_RevenuePasses(t *testing.T) {
	p := Profile{MinRevenueBand: "10M-25M"}
	assert.True(t, p.RevenuePasses("10M-25M"))
	assert.True(t, p.RevenuePasses("1B-10B"))
	assert.False(t, p.RevenuePasses("5M-10M"))
	assert.False(t, p.RevenuePasses("bogus"))
	assert.True(t, Profile{}.RevenuePasses("0-500K"))
}

func TestMatcher_Nil(t *testing.T) {
	var m *Matcher
	rec := record("75M-200M", "US", "541512")
	rec.ICPMatch = true
	m.Apply(&rec)
	assert.False(t, rec.ICPMatch)
	assert.Equal(t, Profile{}, m.Primary())
}
