package model

import "time"

// Request is the input to one enrichment run.
type Request struct {
	Domain       string `json:"domain"`
	CompanyName  string `json:"company_name,omitempty"`
	State        string `json:"state,omitempty"`
	Country      string `json:"country,omitempty"`
	DeepResearch bool   `json:"deep_research,omitempty"`
	Refresh      bool   `json:"refresh,omitempty"`
}

// Inheritance records what, if anything, was borrowed from a parent entity.
type Inheritance struct {
	ParentName       string `json:"parent_name,omitempty"`
	ParentDomain     string `json:"parent_domain,omitempty"`
	InheritedRevenue bool   `json:"inherited_revenue"`
	InheritedSize    bool   `json:"inherited_size"`
}

// EnrichmentRecord is the final, confidence-scored description of a company.
type EnrichmentRecord struct {
	CompanyName    string         `json:"company_name"`
	Website        string         `json:"website"`
	Domain         string         `json:"domain"`
	LinkedInURL    *string        `json:"linkedin_url"`
	Description    string         `json:"description"`
	SizeBand       string         `json:"company_size"`
	RevenueBand    *string        `json:"revenue_band"`
	IndustryCodes  []IndustryCode `json:"industry_codes"`
	Headquarters   Headquarters   `json:"headquarters"`
	USHeadquarters bool           `json:"us_headquarters"`
	USSubsidiary   bool           `json:"us_subsidiary"`
	SourceURLs     []string       `json:"source_urls"`
	Quality        Quality        `json:"quality"`
	ICPMatches     []string       `json:"icp_matches"`
	ICPMatch       bool           `json:"icp_match"`
	RevenuePass    bool           `json:"revenue_pass"`
	IndustryPass   bool           `json:"industry_pass"`
	RegionPass     bool           `json:"region_pass"`
	Inheritance    Inheritance    `json:"inheritance"`
	Diagnostics    Diagnostics    `json:"diagnostics"`
}

// Revenue returns the revenue band, or "" if none.
func (r EnrichmentRecord) Revenue() string {
	if r.RevenueBand == nil {
		return ""
	}
	return *r.RevenueBand
}

// SetRevenue assigns a revenue band, or clears it when band is not a member
// of the enumeration.
func (r *EnrichmentRecord) SetRevenue(band string) {
	if !IsRevenueBand(band) {
		r.RevenueBand = nil
		return
	}
	b := band
	r.RevenueBand = &b
}

// HasSize reports whether the size band is a known enumeration member.
func (r EnrichmentRecord) HasSize() bool {
	return IsEmployeeBand(r.SizeBand)
}

// Diagnostics retains the raw evidence behind a record for audit.
type Diagnostics struct {
	FirstPass          FirstPassResult `json:"first_pass"`
	DeepResearch       []Finding       `json:"deep_research,omitempty"`
	EntityCheck        string          `json:"entity_check,omitempty"`
	IdentityLinkSource string          `json:"identity_link_source,omitempty"`
	RejectedLinks      []string        `json:"rejected_links,omitempty"`
	AnalysisStatus     ParseStatus     `json:"analysis_status,omitempty"`
	RevenueConflict    bool            `json:"revenue_conflict"`
	Adjustments        []string        `json:"adjustments,omitempty"`
}

// Finding is one deep-research answer with provenance.
type Finding struct {
	Kind       string     `json:"kind"`
	Value      string     `json:"value"`
	Source     string     `json:"source,omitempty"`
	URL        string     `json:"url,omitempty"`
	Confidence Confidence `json:"confidence"`
}

// Result is what one pipeline run returns and what the store persists.
type Result struct {
	RequestID   string             `json:"request_id"`
	Record      EnrichmentRecord   `json:"record"`
	Cost        CostBreakdown      `json:"cost"`
	TotalCost   float64            `json:"total_cost_usd"`
	Performance PerformanceMetrics `json:"performance"`
	Scraped     ScrapedContent     `json:"-"`
	FromCache   bool               `json:"from_cache"`
	EnrichedAt  time.Time          `json:"enriched_at"`
}
