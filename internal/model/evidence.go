package model

import "strings"

// EntityScope says whether a data point describes the operating company at a
// domain or its ultimate parent.
type EntityScope string

const (
	ScopeOperatingCompany EntityScope = "operating_company"
	ScopeUltimateParent   EntityScope = "ultimate_parent"
)

// NormalizeScope maps free-form scope tags onto the two known scopes.
// Untagged evidence is treated as describing the operating company.
func NormalizeScope(s string) EntityScope {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ultimate_parent", "parent", "ultimate parent", "group":
		return ScopeUltimateParent
	default:
		return ScopeOperatingCompany
	}
}

// SourceTier ranks where a figure came from.
type SourceTier string

const (
	TierFiling            SourceTier = "filing"
	TierInvestorRelations SourceTier = "investor_relations"
	TierCompanySite       SourceTier = "company_site"
	TierMedia             SourceTier = "media"
	TierEstimateSite      SourceTier = "estimate_site"
	TierDirectory         SourceTier = "directory"
	TierUnknown           SourceTier = "unknown"
)

// NormalizeTier maps a model-supplied tier tag onto a SourceTier.
func NormalizeTier(s string) SourceTier {
	switch SourceTier(strings.ToLower(strings.TrimSpace(strings.ReplaceAll(s, "-", "_")))) {
	case TierFiling, "sec_filing", "annual_report":
		return TierFiling
	case TierInvestorRelations, "ir":
		return TierInvestorRelations
	case TierCompanySite, "company_website", "website":
		return TierCompanySite
	case TierMedia, "press", "press_release", "news":
		return TierMedia
	case TierEstimateSite, "estimate", "data_provider":
		return TierEstimateSite
	case TierDirectory:
		return TierDirectory
	default:
		return TierUnknown
	}
}

// Authoritative reports whether the tier is a primary, company-controlled or
// regulator-controlled source.
func (t SourceTier) Authoritative() bool {
	switch t {
	case TierFiling, TierInvestorRelations, TierCompanySite, TierMedia:
		return true
	}
	return false
}

// RelationshipType describes how the entity at the domain relates to its parent.
type RelationshipType string

const (
	RelationshipStandalone RelationshipType = "standalone"
	RelationshipSubsidiary RelationshipType = "subsidiary"
	RelationshipDivision   RelationshipType = "division"
	RelationshipBrand      RelationshipType = "brand"
	RelationshipUnknown    RelationshipType = "unknown"
)

// NormalizeRelationship maps a model-supplied relationship onto a known value.
func NormalizeRelationship(s string) RelationshipType {
	switch RelationshipType(strings.ToLower(strings.TrimSpace(s))) {
	case RelationshipStandalone, "independent":
		return RelationshipStandalone
	case RelationshipSubsidiary:
		return RelationshipSubsidiary
	case RelationshipDivision:
		return RelationshipDivision
	case RelationshipBrand:
		return RelationshipBrand
	default:
		return RelationshipUnknown
	}
}

// RevenueEvidence is one revenue figure reported by a source.
type RevenueEvidence struct {
	Amount     string      `json:"amount"`
	USD        float64     `json:"usd,omitempty"`
	Source     string      `json:"source"`
	Year       int         `json:"year,omitempty"`
	IsEstimate bool        `json:"is_estimate"`
	Scope      EntityScope `json:"entity_scope"`
	Tier       SourceTier  `json:"source_tier"`
	URL        string      `json:"evidence_url,omitempty"`
	Excerpt    string      `json:"evidence_excerpt,omitempty"`
}

// HasValue reports whether the evidence carries a usable normalized value.
func (e RevenueEvidence) HasValue() bool {
	return e.USD > 0
}

// EmployeeEvidence is one headcount figure reported by a source.
type EmployeeEvidence struct {
	Amount string      `json:"amount"`
	Count  int         `json:"count,omitempty"`
	Source string      `json:"source"`
	Year   int         `json:"year,omitempty"`
	Scope  EntityScope `json:"entity_scope"`
	Tier   SourceTier  `json:"source_tier"`
}

// Headquarters is a company's stated head office. CountryCode is either an
// ISO-2 code or "unknown".
type Headquarters struct {
	City        string `json:"city,omitempty"`
	Region      string `json:"region,omitempty"`
	Country     string `json:"country,omitempty"`
	CountryCode string `json:"country_code"`
}

// UnknownCountry is the country code used when no country is known.
const UnknownCountry = "unknown"

// HasCountry reports whether the country code is a real ISO-2 code.
func (h Headquarters) HasCountry() bool {
	return h.CountryCode != "" && h.CountryCode != UnknownCountry
}

// IsUnknown reports whether nothing at all is known about the location.
func (h Headquarters) IsUnknown() bool {
	return !h.HasCountry() && isBlankOrUnknown(h.City) && isBlankOrUnknown(h.Region) && isBlankOrUnknown(h.Country)
}

func isBlankOrUnknown(s string) bool {
	s = strings.TrimSpace(strings.ToLower(s))
	return s == "" || s == UnknownCountry
}

// IdentityLinkCandidate is a possible company profile URL with the model's
// confidence in [0,1].
type IdentityLinkCandidate struct {
	URL        string  `json:"url"`
	Confidence float64 `json:"confidence"`
}

// WebsiteCandidate is the canonical website the search model found.
type WebsiteCandidate struct {
	URL        string  `json:"url"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning,omitempty"`
}

// ParseStatus records how a model response was turned into a typed result.
type ParseStatus string

const (
	ParseOK       ParseStatus = "ok"
	ParseSalvaged ParseStatus = "salvaged"
	ParseFallback ParseStatus = "fallback"
)

// FirstPassResult is the typed output of the web-search pass.
type FirstPassResult struct {
	CompanyName    string                  `json:"company_name"`
	ParentCompany  string                  `json:"parent_company,omitempty"`
	Scope          EntityScope             `json:"entity_scope"`
	Relationship   RelationshipType        `json:"relationship_type"`
	Headquarters   Headquarters            `json:"headquarters"`
	CandidateURLs  []string                `json:"candidate_urls"`
	Revenue        []RevenueEvidence       `json:"revenue_evidence"`
	Employees      []EmployeeEvidence      `json:"employee_evidence"`
	IdentityLinks  []IdentityLinkCandidate `json:"identity_links"`
	Website        *WebsiteCandidate       `json:"website,omitempty"`
	PubliclyTraded bool                    `json:"publicly_traded"`
	Status         ParseStatus             `json:"parse_status"`
}

// PrimaryEmployees returns the highest-priority employee evidence, or nil.
func (f FirstPassResult) PrimaryEmployees() *EmployeeEvidence {
	if len(f.Employees) == 0 {
		return nil
	}
	e := f.Employees[0]
	return &e
}

// HasRevenue reports whether any revenue evidence was found.
func (f FirstPassResult) HasRevenue() bool {
	return len(f.Revenue) > 0
}

// HasEmployees reports whether any employee evidence was found.
func (f FirstPassResult) HasEmployees() bool {
	return len(f.Employees) > 0
}
