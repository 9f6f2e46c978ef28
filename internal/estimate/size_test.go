package estimate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/enrich-cli/internal/lookup"
	"github.com/sells-group/enrich-cli/internal/model"
)

var consulting = []model.IndustryCode{{Code: "541511", Description: "Custom Computer Programming Services"}}

func TestRevenueFromSize(t *testing.T) {
	e := NewEstimator(lookup.Default())

	est, ok := e.RevenueFromSize("51-200 Employees", consulting)
	require.True(t, ok)
	assert.Equal(t, "25M-75M", est.Band)
	assert.Equal(t, model.ConfidenceMedium, est.Confidence)
	assert.Contains(t, est.Reasoning, "industry 54")

	est, ok = e.RevenueFromSize("11-50 Employees", nil)
	require.True(t, ok)
	assert.Equal(t, "5M-10M", est.Band)
	assert.Equal(t, model.ConfidenceLow, est.Confidence)

	_, ok = e.RevenueFromSize(model.UnknownBand, consulting)
	assert.False(t, ok)
}

func TestRevenueFromIndustry(t *testing.T) {
	e := NewEstimator(nil)

	est, ok := e.RevenueFromIndustry(consulting)
	require.True(t, ok)
	assert.Equal(t, "1M-5M", est.Band)
	assert.Equal(t, model.ConfidenceLow, est.Confidence)

	est, ok = e.RevenueFromIndustry([]model.IndustryCode{{Code: "999990"}})
	require.True(t, ok)
	assert.Equal(t, "5M-10M", est.Band)

	_, ok = e.RevenueFromIndustry(nil)
	assert.False(t, ok)
}

func TestSizeFromRevenue(t *testing.T) {
	e := NewEstimator(lookup.Default())

	tests := []struct {
		revenue string
		codes   []model.IndustryCode
		want    string
	}{
		{"25M-75M", consulting, "201-500 Employees"},
		{"0-500K", nil, "0-1 Employees"},
		{"100B-1T", nil, "10,001+ Employees"},
	}
	for _, tt := range tests {
		t.Run(tt.revenue, func(t *testing.T) {
			est, ok := e.SizeFromRevenue(tt.revenue, tt.codes)
			require.True(t, ok)
			assert.Equal(t, tt.want, est.Band)
		})
	}

	_, ok := e.SizeFromRevenue("lots", nil)
	assert.False(t, ok)
}

func TestRepresentativeHeadcountCoversEveryBand(t *testing.T) {
	for _, b := range model.EmployeeBands {
		n, ok := RepresentativeHeadcount(b)
		require.True(t, ok, b)
		got, _ := model.EmployeeBandFor(n)
		assert.Equal(t, b, got)
	}
}
