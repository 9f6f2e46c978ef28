package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/enrich-cli/internal/model"
	"github.com/sells-group/enrich-cli/pkg/anthropic"
	anthmocks "github.com/sells-group/enrich-cli/pkg/anthropic/mocks"
)

const analysisJSON = `{
  "company_name": "Acme Tools",
  "website": "acme.com",
  "description": "Acme Tools makes industrial hand tools.",
  "headquarters": {"city": "Austin", "region": "Texas", "country": "United States", "country_code": "US"},
  "us_headquarters": true,
  "us_subsidiary": true,
  "company_size": "201-500 Employees",
  "revenue_band": "25M-75M",
  "industry_codes": [
    {"code": "332216", "description": "Saw Blade and Handtool Manufacturing"},
    {"code": "3322", "description": "Cutlery"},
    {"code": "332216", "description": "duplicate"},
    {"code": "423710", "description": "Hardware Merchant Wholesalers"},
    {"code": "423830", "description": "Industrial Machinery"},
    {"code": "444140", "description": "Hardware Retailers"}
  ],
  "quality": {
    "location": {"confidence": "high", "reasoning": "Contact page lists Austin, TX."},
    "revenue": {"confidence": "Medium", "reasoning": "ZoomInfo lists $42M."},
    "size": {"confidence": "medium", "reasoning": "About page: 250 staff."},
    "industry": {"confidence": "high", "reasoning": "Products page."}
  },
  "source_urls": ["https://acme.com/about"]
}`

func TestParseAnalysis_OK(t *testing.T) {
	fp := completeFirstPass()
	c := content("https://acme.com", "Acme Tools", "https://www.zoominfo.com/c/acme/1", "Revenue $42M")

	rec := ParseAnalysis("<think>ok</think>"+analysisJSON, "acme.com", "acme.com", fp, c)

	assert.Equal(t, model.ParseOK, rec.Diagnostics.AnalysisStatus)
	assert.Equal(t, "acme.com", rec.Domain)
	assert.Equal(t, "https://acme.com", rec.Website)
	assert.Equal(t, "201-500 Employees", rec.SizeBand)
	assert.Equal(t, "25M-75M", rec.Revenue())
	assert.Equal(t, model.ConfidenceMedium, rec.Quality.Revenue.Confidence)
	assert.True(t, rec.USHeadquarters)
	assert.False(t, rec.USSubsidiary, "a US headquarters is never also a US subsidiary")

	codes := make([]string, 0, len(rec.IndustryCodes))
	for _, c := range rec.IndustryCodes {
		codes = append(codes, c.Code)
	}
	assert.Equal(t, []string{"332216", "423710", "423830"}, codes)

	assert.Equal(t, []string{
		"https://acme.com/about",
		"https://acme.com",
		"https://www.zoominfo.com/c/acme/1",
	}, rec.SourceURLs)
}

func TestParseAnalysis_UnsupportedRevenueDiscarded(t *testing.T) {
	text := strings.Replace(analysisJSON, "ZoomInfo lists $42M.", "Seems like a mid-sized firm.", 1)

	rec := ParseAnalysis(text, "acme.com", "acme.com", completeFirstPass(), model.ScrapedContent{})

	assert.Nil(t, rec.RevenueBand)
	assert.Equal(t, model.ConfidenceLow, rec.Quality.Revenue.Confidence)
	assert.Contains(t, rec.Quality.Revenue.Reasoning, "no cited figure")
}

func TestParseAnalysis_InvalidBands(t *testing.T) {
	text := strings.Replace(analysisJSON, `"201-500 Employees"`, `"about 300"`, 1)
	text = strings.Replace(text, `"25M-75M"`, `"$30M-$60M"`, 1)

	rec := ParseAnalysis(text, "acme.com", "acme.com", completeFirstPass(), model.ScrapedContent{})

	assert.Equal(t, model.UnknownBand, rec.SizeBand)
	assert.Equal(t, model.ConfidenceLow, rec.Quality.Size.Confidence)
	assert.Nil(t, rec.RevenueBand)
	assert.Equal(t, model.ConfidenceLow, rec.Quality.Revenue.Confidence)
}

func TestParseAnalysis_Salvaged(t *testing.T) {
	text := `{"company_name": "Acme Tools", "company_size": "51-200 Employees", "revenue_band": "10M-25M",
"industry_codes": [{"code": "332216", "description": "Handtools"}, {"code": 423710`

	fp := completeFirstPass()
	rec := ParseAnalysis(text, "acme.com", "acme.com", fp, model.ScrapedContent{})

	assert.Equal(t, model.ParseSalvaged, rec.Diagnostics.AnalysisStatus)
	assert.Equal(t, "Acme Tools", rec.CompanyName)
	assert.Equal(t, "51-200 Employees", rec.SizeBand)
	// Salvaged reasoning cites nothing, so the revenue band cannot stand.
	assert.Nil(t, rec.RevenueBand)
	require.Len(t, rec.IndustryCodes, 2)
	assert.Equal(t, "423710", rec.IndustryCodes[1].Code)
	assert.Equal(t, fp.Headquarters, rec.Headquarters)
}

func TestFallbackRecord(t *testing.T) {
	fp := completeFirstPass()
	rec := FallbackRecord("acme.com", "acme.com", fp, model.ScrapedContent{})

	assert.Equal(t, model.ParseFallback, rec.Diagnostics.AnalysisStatus)
	assert.Equal(t, "Acme Tools", rec.CompanyName)
	assert.Equal(t, model.UnknownBand, rec.SizeBand)
	assert.Nil(t, rec.RevenueBand)
	assert.Empty(t, rec.IndustryCodes)
	assert.Equal(t, model.ConfidenceLow, rec.Quality.Industry.Confidence)
	assert.Equal(t, "Austin", rec.Headquarters.City)
	assert.True(t, rec.USHeadquarters)
}

func TestFallbackRecord_NoSite(t *testing.T) {
	fp := model.FirstPassResult{
		CompanyName:  "Acme Tools",
		Headquarters: model.Headquarters{CountryCode: model.UnknownCountry},
		Website:      &model.WebsiteCandidate{URL: "https://acmetools.com", Confidence: 0.3},
	}
	rec := FallbackRecord("gmail.com", "", fp, model.ScrapedContent{})

	assert.Equal(t, "https://acmetools.com", rec.Website)
	assert.Equal(t, model.UnknownCountry, rec.Headquarters.CountryCode)
	assert.False(t, rec.USHeadquarters)
}

func TestAnalysisPages(t *testing.T) {
	c := content(
		"https://www.zoominfo.com/c/acme/1", "aggregator",
		"https://acme.com", strings.Repeat("a", 50),
		"https://acme.com/about", "about",
	)
	got := analysisPages(c, "acme.com", 10, 2)

	assert.True(t, strings.HasPrefix(got, "### https://acme.com\naaaaaaaaaa\n"))
	assert.Contains(t, got, "### https://acme.com/about")
	assert.NotContains(t, got, "aggregator")

	assert.Equal(t, "(no pages could be fetched)", analysisPages(model.ScrapedContent{}, "acme.com", 10, 2))
}

func TestAnalyze_ModelFailureFallsBack(t *testing.T) {
	ai := anthmocks.NewMockClient(t)
	ai.On("CreateMessage", mock.Anything, mock.Anything).Return(nil, errors.New("overloaded"))

	p := newTestPipeline(t, Deps{AI: ai})
	rec, err := p.analyze(context.Background(), testRunState("acme.com"), "acme.com", completeFirstPass(), model.ScrapedContent{})

	require.NoError(t, err)
	assert.Equal(t, model.ParseFallback, rec.Diagnostics.AnalysisStatus)
}

func TestAnalyze_RejectedCredentialsAreFatal(t *testing.T) {
	ai := anthmocks.NewMockClient(t)
	ai.On("CreateMessage", mock.Anything, mock.Anything).Return(nil, &statusErr{code: 401})

	p := newTestPipeline(t, Deps{AI: ai})
	_, err := p.analyze(context.Background(), testRunState("acme.com"), "acme.com", completeFirstPass(), model.ScrapedContent{})

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConfig))
}

func TestAnalyze_SendsCachedSystemPrompt(t *testing.T) {
	ai := anthmocks.NewMockClient(t)
	ai.On("CreateMessage", mock.Anything, mock.MatchedBy(func(req anthropic.MessageRequest) bool {
		return len(req.System) == 1 && req.System[0].CacheControl != nil &&
			req.Model == "claude-sonnet-4-5-20250929" &&
			strings.Contains(req.Messages[0].Content, "### https://acme.com")
	})).Return(aiResponse(analysisJSON), nil)

	p := newTestPipeline(t, Deps{AI: ai})
	rs := testRunState("acme.com")
	rec, err := p.analyze(context.Background(), rs, "acme.com", completeFirstPass(), content("https://acme.com", "Acme Tools"))

	require.NoError(t, err)
	assert.Equal(t, "25M-75M", rec.Revenue())
	costs, _ := rs.snapshot()
	assert.Greater(t, costs.Stages[StageAnalysis].USD, 0.0)
}

// statusErr carries an HTTP status like the provider clients' errors.
type statusErr struct{ code int }

func (e *statusErr) Error() string   { return "provider error" }
func (e *statusErr) HTTPStatus() int { return e.code }
