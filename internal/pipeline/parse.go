package pipeline

import (
	"encoding/json"
	"regexp"
	"sort"
	"strings"

	"github.com/sells-group/enrich-cli/internal/model"
)

// rawFirstPass is the JSON shape the search model is asked to return.
type rawFirstPass struct {
	CompanyName    flexString      `json:"company_name"`
	ParentCompany  flexString      `json:"parent_company"`
	EntityScope    flexString      `json:"entity_scope"`
	Relationship   flexString      `json:"relationship_type"`
	Headquarters   rawHeadquarters `json:"headquarters"`
	CandidateURLs  []flexString    `json:"candidate_urls"`
	Revenue        []rawRevenue    `json:"revenue_evidence"`
	Employees      json.RawMessage `json:"employee_evidence"`
	IdentityLinks  []rawLink       `json:"linkedin_candidates"`
	Website        *rawWebsite     `json:"website"`
	PubliclyTraded flexBool        `json:"publicly_traded"`
}

type rawHeadquarters struct {
	City        flexString `json:"city"`
	Region      flexString `json:"region"`
	State       flexString `json:"state"`
	Country     flexString `json:"country"`
	CountryCode flexString `json:"country_code"`
}

type rawRevenue struct {
	Amount     flexString `json:"amount"`
	USD        flexFloat  `json:"usd"`
	Source     flexString `json:"source"`
	Year       flexInt    `json:"year"`
	IsEstimate flexBool   `json:"is_estimate"`
	Scope      flexString `json:"entity_scope"`
	Tier       flexString `json:"source_tier"`
	URL        flexString `json:"evidence_url"`
	Excerpt    flexString `json:"evidence_excerpt"`
}

type rawEmployees struct {
	Amount flexString `json:"amount"`
	Count  flexInt    `json:"count"`
	Source flexString `json:"source"`
	Year   flexInt    `json:"year"`
	Scope  flexString `json:"entity_scope"`
	Tier   flexString `json:"source_tier"`
}

type rawLink struct {
	URL        flexString `json:"url"`
	Confidence flexFloat  `json:"confidence"`
}

type rawWebsite struct {
	URL        flexString `json:"url"`
	Confidence flexFloat  `json:"confidence"`
	Reasoning  flexString `json:"reasoning"`
}

// flexBool decodes true/false, "yes"/"no" and 0/1.
type flexBool bool

func (f *flexBool) UnmarshalJSON(b []byte) error {
	switch strings.ToLower(strings.Trim(string(b), `"`)) {
	case "true", "yes", "y", "1":
		*f = true
	default:
		*f = false
	}
	return nil
}

func (h rawHeadquarters) toModel() model.Headquarters {
	region := string(h.Region)
	if region == "" {
		region = string(h.State)
	}
	hq := model.Headquarters{
		City:    cleanUnknown(string(h.City)),
		Region:  cleanUnknown(region),
		Country: cleanUnknown(string(h.Country)),
	}
	hq.CountryCode = normalizeCountryCode(string(h.CountryCode), hq.Country)
	return hq
}

// cleanUnknown blanks placeholder values such as "unknown" or "N/A".
func cleanUnknown(s string) string {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "unknown", "n/a", "na", "none", "null", "-":
		return ""
	}
	return s
}

// decodeEmployees accepts a single evidence object or a list of them.
func decodeEmployees(raw json.RawMessage) []rawEmployees {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var list []rawEmployees
	if err := json.Unmarshal(raw, &list); err == nil {
		return list
	}
	var one rawEmployees
	if err := json.Unmarshal(raw, &one); err == nil {
		return []rawEmployees{one}
	}
	return nil
}

// ParseFirstPass turns a search model response into a FirstPassResult. It
// never fails: unparseable text is salvaged field by field, and text with
// nothing usable yields FallbackFirstPass.
func ParseFirstPass(text string, citations []string, domain string) model.FirstPassResult {
	clean := stripModelNoise(text)

	var raw rawFirstPass
	if err := json.Unmarshal([]byte(extractJSON(clean)), &raw); err == nil {
		fp := raw.toModel()
		fp.Status = model.ParseOK
		return finishFirstPass(fp, citations, domain)
	}

	if fp, ok := salvageFirstPass(clean); ok {
		fp.Status = model.ParseSalvaged
		return finishFirstPass(fp, citations, domain)
	}
	return FallbackFirstPass(domain)
}

// FallbackFirstPass is the deterministic result used when the search model
// is unreachable or returns nothing usable.
func FallbackFirstPass(domain string) model.FirstPassResult {
	root := "https://" + domain
	return model.FirstPassResult{
		CompanyName:   domain,
		Scope:         model.ScopeOperatingCompany,
		Relationship:  model.RelationshipUnknown,
		Headquarters:  model.Headquarters{CountryCode: model.UnknownCountry},
		CandidateURLs: []string{root, root + "/about", root + "/contact"},
		Status:        model.ParseFallback,
	}
}

func (r rawFirstPass) toModel() model.FirstPassResult {
	fp := model.FirstPassResult{
		CompanyName:    strings.TrimSpace(string(r.CompanyName)),
		ParentCompany:  cleanUnknown(string(r.ParentCompany)),
		Scope:          model.NormalizeScope(string(r.EntityScope)),
		Relationship:   model.NormalizeRelationship(string(r.Relationship)),
		Headquarters:   r.Headquarters.toModel(),
		PubliclyTraded: bool(r.PubliclyTraded),
	}
	for _, u := range r.CandidateURLs {
		fp.CandidateURLs = append(fp.CandidateURLs, string(u))
	}
	for _, rv := range r.Revenue {
		fp.Revenue = append(fp.Revenue, model.RevenueEvidence{
			Amount:     strings.TrimSpace(string(rv.Amount)),
			USD:        float64(rv.USD),
			Source:     strings.TrimSpace(string(rv.Source)),
			Year:       int(rv.Year),
			IsEstimate: bool(rv.IsEstimate),
			Scope:      model.NormalizeScope(string(rv.Scope)),
			Tier:       model.NormalizeTier(string(rv.Tier)),
			URL:        strings.TrimSpace(string(rv.URL)),
			Excerpt:    strings.TrimSpace(string(rv.Excerpt)),
		})
	}
	for _, e := range decodeEmployees(r.Employees) {
		fp.Employees = append(fp.Employees, model.EmployeeEvidence{
			Amount: strings.TrimSpace(string(e.Amount)),
			Count:  int(e.Count),
			Source: strings.TrimSpace(string(e.Source)),
			Year:   int(e.Year),
			Scope:  model.NormalizeScope(string(e.Scope)),
			Tier:   model.NormalizeTier(string(e.Tier)),
		})
	}
	for _, l := range r.IdentityLinks {
		fp.IdentityLinks = append(fp.IdentityLinks, model.IdentityLinkCandidate{
			URL:        string(l.URL),
			Confidence: float64(l.Confidence),
		})
	}
	if r.Website != nil && strings.TrimSpace(string(r.Website.URL)) != "" {
		fp.Website = &model.WebsiteCandidate{
			URL:        strings.TrimSpace(string(r.Website.URL)),
			Confidence: float64(r.Website.Confidence),
			Reasoning:  strings.TrimSpace(string(r.Website.Reasoning)),
		}
	}
	return fp
}

// finishFirstPass validates and normalizes a parsed result in place of
// trusting the model: values are derived from free text where missing,
// invalid entries are dropped and URLs are made absolute and unique.
func finishFirstPass(fp model.FirstPassResult, citations []string, domain string) model.FirstPassResult {
	if fp.CompanyName == "" || strings.EqualFold(fp.CompanyName, "unknown") {
		fp.CompanyName = domain
	}
	if fp.Headquarters.CountryCode == "" {
		fp.Headquarters.CountryCode = model.UnknownCountry
	}

	revenue := fp.Revenue[:0:0]
	for _, e := range fp.Revenue {
		if e.USD <= 0 {
			e.USD = parseUSD(e.Amount)
		}
		if e.USD <= 0 && e.Amount == "" {
			continue
		}
		if e.USD < 0 {
			e.USD = 0
		}
		revenue = append(revenue, e)
	}
	fp.Revenue = revenue

	employees := fp.Employees[:0:0]
	for _, e := range fp.Employees {
		if e.Count <= 0 {
			e.Count = parseHeadcount(e.Amount)
		}
		if e.Count <= 0 && e.Amount == "" {
			continue
		}
		employees = append(employees, e)
	}
	fp.Employees = employees

	links := fp.IdentityLinks[:0:0]
	seen := map[string]bool{}
	for _, l := range fp.IdentityLinks {
		u, ok := canonicalLinkedIn(l.URL)
		if !ok || seen[u] {
			continue
		}
		seen[u] = true
		links = append(links, model.IdentityLinkCandidate{URL: u, Confidence: clamp01(l.Confidence)})
	}
	sort.SliceStable(links, func(i, j int) bool { return links[i].Confidence > links[j].Confidence })
	fp.IdentityLinks = links

	if fp.Website != nil {
		fp.Website.URL = absoluteURL(fp.Website.URL)
		fp.Website.Confidence = clamp01(fp.Website.Confidence)
		if fp.Website.URL == "" {
			fp.Website = nil
		}
	}

	fp.CandidateURLs = mergeURLs(fp.CandidateURLs, citations)
	return fp
}

func clamp01(v float64) float64 {
	// Percentages are accepted as-is.
	if v > 1 && v <= 100 {
		v /= 100
	}
	return max(0, min(1, v))
}

// absoluteURL prefixes scheme-less hosts with https:// and returns "" for
// values that are not URLs at all.
func absoluteURL(u string) string {
	u = strings.TrimSpace(strings.Trim(u, "<>()\"'"))
	if u == "" {
		return ""
	}
	if !strings.Contains(u, "://") {
		if hostOf(u) == "" {
			return ""
		}
		u = "https://" + u
	}
	return strings.TrimRight(u, ".,;")
}

// mergeURLs appends extra URLs to base, dropping blanks and duplicates
// while keeping first-seen order.
func mergeURLs(base []string, extra ...[]string) []string {
	out := make([]string, 0, len(base))
	seen := map[string]bool{}
	add := func(u string) {
		u = absoluteURL(u)
		key := strings.TrimSuffix(u, "/")
		if u == "" || seen[key] {
			return
		}
		seen[key] = true
		out = append(out, u)
	}
	for _, u := range base {
		add(u)
	}
	for _, list := range extra {
		for _, u := range list {
			add(u)
		}
	}
	return out
}

var (
	linkedInRe      = regexp.MustCompile(`(?i)(?:https?://)?(?:[a-z]{2,3}\.)?linkedin\.com/(?:company|school|showcase)/([a-z0-9%._~-]+)`)
	urlRe           = regexp.MustCompile(`https?://[^\s"'<>()\]\[,]+`)
	jsonFieldRe     = `"%s"\s*:\s*"([^"]*)"`
	salvageRevRe    = regexp.MustCompile(`(?i)revenue[^$\n]{0,80}?((?:US)?\$\s?\d[\d,.]*\s*(?:trillion|billion|million|thousand|bn|mm|[bmk])?)`)
	salvageEmpRe    = regexp.MustCompile(`(?i)(\d[\d,]*(?:\s*(?:-|–|to)\s*\d[\d,]*)?\+?)\s+(?:employees|staff|people)`)
	salvagePublicRe = regexp.MustCompile(`(?i)"publicly_traded"\s*:\s*true|publicly traded|listed on the (?:nyse|nasdaq)`)
)

// canonicalLinkedIn normalizes a company profile URL to
// https://www.linkedin.com/company/<slug>.
func canonicalLinkedIn(u string) (string, bool) {
	m := linkedInRe.FindStringSubmatch(u)
	if m == nil {
		return "", false
	}
	kind := "company"
	if strings.Contains(strings.ToLower(m[0]), "/school/") {
		kind = "school"
	} else if strings.Contains(strings.ToLower(m[0]), "/showcase/") {
		kind = "showcase"
	}
	return "https://www.linkedin.com/" + kind + "/" + strings.ToLower(strings.TrimRight(m[1], ".")), true
}

func jsonField(text, name string) string {
	re := regexp.MustCompile(strings.Replace(jsonFieldRe, "%s", regexp.QuoteMeta(name), 1))
	if m := re.FindStringSubmatch(text); m != nil {
		return cleanUnknown(m[1])
	}
	return ""
}

// salvageFirstPass extracts what it can from malformed JSON or prose. It
// reports false when nothing identifying was found.
func salvageFirstPass(text string) (model.FirstPassResult, bool) {
	fp := model.FirstPassResult{
		CompanyName:   jsonField(text, "company_name"),
		ParentCompany: jsonField(text, "parent_company"),
		Scope:         model.NormalizeScope(jsonField(text, "entity_scope")),
		Relationship:  model.NormalizeRelationship(jsonField(text, "relationship_type")),
		Headquarters: model.Headquarters{
			City:    jsonField(text, "city"),
			Region:  jsonField(text, "region"),
			Country: jsonField(text, "country"),
		},
		PubliclyTraded: salvagePublicRe.MatchString(text),
	}
	fp.Headquarters.CountryCode = normalizeCountryCode(jsonField(text, "country_code"), fp.Headquarters.Country)

	if m := salvageRevRe.FindStringSubmatch(text); m != nil {
		fp.Revenue = append(fp.Revenue, model.RevenueEvidence{
			Amount:     strings.TrimSpace(m[1]),
			USD:        parseUSD(m[1]),
			Source:     "search summary",
			IsEstimate: true,
			Scope:      model.ScopeOperatingCompany,
			Tier:       model.TierUnknown,
		})
	}
	if m := salvageEmpRe.FindStringSubmatch(text); m != nil {
		fp.Employees = append(fp.Employees, model.EmployeeEvidence{
			Amount: strings.TrimSpace(m[1]),
			Count:  parseHeadcount(m[1]),
			Source: "search summary",
			Scope:  model.ScopeOperatingCompany,
			Tier:   model.TierUnknown,
		})
	}

	for _, u := range urlRe.FindAllString(text, -1) {
		if li, ok := canonicalLinkedIn(u); ok {
			fp.IdentityLinks = append(fp.IdentityLinks, model.IdentityLinkCandidate{URL: li, Confidence: 0.5})
			continue
		}
		fp.CandidateURLs = append(fp.CandidateURLs, u)
	}

	found := fp.CompanyName != "" || fp.HasRevenue() || fp.HasEmployees() || fp.Headquarters.HasCountry()
	return fp, found
}
