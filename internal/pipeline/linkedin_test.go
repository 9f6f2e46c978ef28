package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/enrich-cli/internal/model"
	anthmocks "github.com/sells-group/enrich-cli/pkg/anthropic/mocks"
	"github.com/sells-group/enrich-cli/pkg/jina"
)

type stubJina struct {
	results []jina.SearchResult
	queries []string
}

func (s *stubJina) Read(context.Context, string) (*jina.ReadResponse, error) {
	return &jina.ReadResponse{}, nil
}

func (s *stubJina) Search(_ context.Context, query string, _ ...jina.SearchOption) (*jina.SearchResponse, error) {
	s.queries = append(s.queries, query)
	return &jina.SearchResponse{Code: 200, Data: s.results}, nil
}

const acmeProfile = `# Acme Tools | LinkedIn

Website
 https://acme.com

Company size
 201-500 employees

Headquarters
 Austin, Texas, United States
`

func TestExtractLinkFacts(t *testing.T) {
	f := extractLinkFacts(acmeProfile)
	assert.Equal(t, flexString("https://acme.com"), f.Website)
	assert.Equal(t, flexString("201-500"), f.Employees)
	assert.Equal(t, flexString("Austin, Texas, United States"), f.Headquarters)
	assert.Equal(t, "US", countryOf(f))
}

func TestCheckLinkFacts(t *testing.T) {
	want := linkExpectation{Domain: "acme.com", SizeBand: "201-500 Employees", CountryCode: "US"}

	assert.Empty(t, checkLinkFacts(extractLinkFacts(acmeProfile), want))
	assert.Contains(t, checkLinkFacts(linkFacts{Website: "https://other.com"}, want), "does not match")
	assert.Contains(t, checkLinkFacts(linkFacts{Employees: "2-10"}, want), "far below")
	assert.Empty(t, checkLinkFacts(linkFacts{Employees: "51-200"}, want), "one band below is tolerated")
	assert.Contains(t, checkLinkFacts(linkFacts{Headquarters: "Toronto, Ontario, Canada"}, want), "conflicts")

	// No site to compare against.
	assert.Empty(t, checkLinkFacts(linkFacts{Website: "https://acmetools.com"}, linkExpectation{}))
}

func TestIdentityCandidates(t *testing.T) {
	fp := model.FirstPassResult{
		IdentityLinks: []model.IdentityLinkCandidate{
			{URL: "https://www.linkedin.com/company/acme-tools", Confidence: 0.8},
			{URL: "https://www.linkedin.com/company/acme", Confidence: 0.4},
		},
		CandidateURLs: []string{"https://linkedin.com/company/acme-tools/", "https://www.linkedin.com/company/acme-usa"},
	}
	got := identityCandidates(fp)
	assert.Equal(t, []linkCandidate{
		{url: "https://www.linkedin.com/company/acme-tools", source: LinkSourceFirstPass},
		{url: "https://www.linkedin.com/company/acme", source: LinkSourceResidual},
		{url: "https://www.linkedin.com/company/acme-usa", source: LinkSourceResidual},
	}, got)
}

func TestResolveIdentityLink_OwnSiteWins(t *testing.T) {
	fetcher := &stubFetcher{}
	p := newTestPipeline(t, Deps{Fetcher: fetcher})
	c := content("https://acme.com", "Follow us: https://www.linkedin.com/company/acme-tools/")
	fp := model.FirstPassResult{IdentityLinks: []model.IdentityLinkCandidate{{URL: "https://www.linkedin.com/company/someone-else", Confidence: 0.9}}}

	link := p.resolveIdentityLink(context.Background(), testRunState("acme.com"), "acme.com", fp, &c)

	assert.Equal(t, IdentityLink{URL: "https://www.linkedin.com/company/acme-tools", Source: LinkSourceSite, Verified: true}, link)
	assert.Empty(t, fetcher.allRequested())
}

func TestResolveIdentityLink_RejectsConflictingProfile(t *testing.T) {
	fetcher := &stubFetcher{pages: map[string]string{
		"https://www.linkedin.com/company/acme-corp":  "Website\n https://acme-corp.de\n\nHeadquarters\n Berlin, Germany\n",
		"https://www.linkedin.com/company/acme-tools": acmeProfile,
	}}
	p := newTestPipeline(t, Deps{Fetcher: fetcher})
	fp := model.FirstPassResult{
		Headquarters: model.Headquarters{City: "Austin", CountryCode: "US"},
		Employees:    []model.EmployeeEvidence{{Count: 300}},
		IdentityLinks: []model.IdentityLinkCandidate{
			{URL: "https://www.linkedin.com/company/acme-corp", Confidence: 0.9},
			{URL: "https://www.linkedin.com/company/acme-tools", Confidence: 0.6},
		},
	}
	var c model.ScrapedContent
	rs := testRunState("acme.com")

	link := p.resolveIdentityLink(context.Background(), rs, "acme.com", fp, &c)

	assert.Equal(t, "https://www.linkedin.com/company/acme-tools", link.URL)
	assert.Equal(t, LinkSourceResidual, link.Source)
	assert.True(t, link.Verified)
	require.Len(t, link.Rejected, 1)
	assert.Contains(t, link.Rejected[0], "acme-corp")
	assert.True(t, c.Has("https://www.linkedin.com/company/acme-tools"), "validation pages join the scraped content")

	_, perf := rs.snapshot()
	assert.Equal(t, 2, perf.PagesFetched)
}

func TestResolveIdentityLink_UnreadableFirstPassAccepted(t *testing.T) {
	fetcher := &stubFetcher{pages: map[string]string{
		"https://www.linkedin.com/company/acme-tools": "Sign in to see who you already know at Acme Tools",
	}}
	p := newTestPipeline(t, Deps{Fetcher: fetcher})
	fp := model.FirstPassResult{IdentityLinks: []model.IdentityLinkCandidate{{URL: "https://www.linkedin.com/company/acme-tools", Confidence: 0.9}}}
	var c model.ScrapedContent

	link := p.resolveIdentityLink(context.Background(), testRunState("acme.com"), "acme.com", fp, &c)

	assert.Equal(t, "https://www.linkedin.com/company/acme-tools", link.URL)
	assert.Equal(t, LinkSourceFirstPass, link.Source)
	assert.False(t, link.Verified)
}

func TestResolveIdentityLink_AIExtractionFallback(t *testing.T) {
	fetcher := &stubFetcher{pages: map[string]string{
		"https://www.linkedin.com/company/acme": "Acme | builders of tools | 12k followers | Toronto-based team",
	}}
	ai := anthmocks.NewMockClient(t)
	ai.On("CreateMessage", mock.Anything, mock.Anything).
		Return(aiResponse(`{"website": "acme.ca", "employees": "1,001-5,000", "headquarters": "Toronto, Canada", "country_code": "CA"}`), nil)

	p := newTestPipeline(t, Deps{Fetcher: fetcher, AI: ai})
	fp := model.FirstPassResult{
		Headquarters:  model.Headquarters{CountryCode: "US"},
		CandidateURLs: []string{"https://www.linkedin.com/company/acme"},
	}
	var c model.ScrapedContent

	link := p.resolveIdentityLink(context.Background(), testRunState("acme.com"), "acme.com", fp, &c)

	assert.Empty(t, link.URL)
	require.Len(t, link.Rejected, 1)
	assert.Contains(t, link.Rejected[0], "conflicts with US")
}

func TestResolveIdentityLink_SearchFallback(t *testing.T) {
	fetcher := &stubFetcher{pages: map[string]string{
		"https://www.linkedin.com/company/acme-tools": acmeProfile,
	}}
	search := &stubJina{results: []jina.SearchResult{
		{URL: "https://www.linkedin.com/in/jane-doe", Usage: jina.ReadUsage{Tokens: 100}},
		{URL: "https://www.linkedin.com/company/acme-tools/", Usage: jina.ReadUsage{Tokens: 120}},
	}}
	p := newTestPipeline(t, Deps{Fetcher: fetcher, Jina: search})
	fp := model.FirstPassResult{CompanyName: "Acme Tools", Headquarters: model.Headquarters{CountryCode: "US"}}
	var c model.ScrapedContent

	link := p.resolveIdentityLink(context.Background(), testRunState("acme.com"), "acme.com", fp, &c)

	assert.Equal(t, []string{"Acme Tools company"}, search.queries)
	assert.Equal(t, "https://www.linkedin.com/company/acme-tools", link.URL)
	assert.Equal(t, LinkSourceSearch, link.Source)
	assert.True(t, link.Verified)
}

func TestResolveIdentityLink_ValidationDisabled(t *testing.T) {
	fetcher := &stubFetcher{}
	p := newTestPipeline(t, Deps{Fetcher: fetcher})
	p.cfg.Research.LinkedInValidation = false
	fp := model.FirstPassResult{IdentityLinks: []model.IdentityLinkCandidate{{URL: "https://www.linkedin.com/company/acme-tools", Confidence: 0.2}}}
	var c model.ScrapedContent

	link := p.resolveIdentityLink(context.Background(), testRunState("acme.com"), "acme.com", fp, &c)

	assert.Equal(t, "https://www.linkedin.com/company/acme-tools", link.URL)
	assert.False(t, link.Verified)
	assert.Empty(t, fetcher.allRequested())
}
