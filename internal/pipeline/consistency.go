package pipeline

import (
	"sort"
	"strings"

	"github.com/sells-group/enrich-cli/internal/lookup"
	"github.com/sells-group/enrich-cli/internal/model"
)

// Mismatch is the outcome of the entity consistency check.
type Mismatch string

const (
	MismatchNone    Mismatch = "none"
	MismatchWeak    Mismatch = "weak"
	MismatchStrong  Mismatch = "strong"
	MismatchSkipped Mismatch = "skipped"
)

// homepageBudget bounds the site text quoted to the strict search.
const homepageBudget = 4000

// siteText joins the text of pages on domain's own site in fetch order.
func siteText(content model.ScrapedContent, domain string) string {
	var b strings.Builder
	for _, pg := range content.Pages() {
		if sameSite(hostOf(pg.URL), domain) {
			b.WriteString(pg.Text)
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// CheckConsistency reports whether the company's own scraped site
// mentions the identified company. Strong means the site references its
// domain but not the name, which points at a misidentified company.
func CheckConsistency(name, domain string, content model.ScrapedContent) Mismatch {
	text := strings.ToLower(siteText(content, domain))
	if strings.TrimSpace(text) == "" {
		return MismatchSkipped
	}

	for _, n := range []string{strings.ToLower(strings.TrimSpace(name)), lookup.NormalizeName(name)} {
		if len(n) >= 2 && strings.Contains(text, n) {
			return MismatchNone
		}
	}
	for _, tok := range domainTokens(domain) {
		if strings.Contains(text, tok) {
			return MismatchStrong
		}
	}
	return MismatchWeak
}

// homepageExcerpt is the literal own-site text quoted to the strict search.
func homepageExcerpt(content model.ScrapedContent, domain string) string {
	return truncate(strings.TrimSpace(siteText(content, domain)), homepageBudget)
}

// MergeRetry combines the original first pass with the strict retry. The
// retry's identity wins because it was confirmed against the site, while
// evidence from both attempts is kept with the retry's first. The retry's
// headquarters replaces the original only when it names a city.
func MergeRetry(first, retry model.FirstPassResult) model.FirstPassResult {
	out := first
	out.Status = retry.Status

	if retry.CompanyName != "" {
		out.CompanyName = retry.CompanyName
	}
	if retry.ParentCompany != "" {
		out.ParentCompany = retry.ParentCompany
	}
	if retry.Relationship != model.RelationshipUnknown && retry.Relationship != "" {
		out.Relationship = retry.Relationship
		out.Scope = retry.Scope
	}
	if strings.TrimSpace(retry.Headquarters.City) != "" {
		out.Headquarters = retry.Headquarters
	}
	if retry.Website != nil {
		out.Website = retry.Website
	}
	out.PubliclyTraded = first.PubliclyTraded || retry.PubliclyTraded

	out.Revenue = nil
	seenRev := map[string]bool{}
	for _, e := range append(append([]model.RevenueEvidence{}, retry.Revenue...), first.Revenue...) {
		key := strings.ToLower(e.Source) + "|" + e.Amount
		if seenRev[key] {
			continue
		}
		seenRev[key] = true
		out.Revenue = append(out.Revenue, e)
	}

	out.Employees = nil
	seenEmp := map[string]bool{}
	for _, e := range append(append([]model.EmployeeEvidence{}, retry.Employees...), first.Employees...) {
		key := strings.ToLower(e.Source) + "|" + e.Amount
		if seenEmp[key] {
			continue
		}
		seenEmp[key] = true
		out.Employees = append(out.Employees, e)
	}

	out.IdentityLinks = nil
	seenLink := map[string]bool{}
	for _, l := range append(append([]model.IdentityLinkCandidate{}, retry.IdentityLinks...), first.IdentityLinks...) {
		if seenLink[l.URL] {
			continue
		}
		seenLink[l.URL] = true
		out.IdentityLinks = append(out.IdentityLinks, l)
	}
	sort.SliceStable(out.IdentityLinks, func(i, j int) bool {
		return out.IdentityLinks[i].Confidence > out.IdentityLinks[j].Confidence
	})

	out.CandidateURLs = mergeURLs(retry.CandidateURLs, first.CandidateURLs)
	return out
}
