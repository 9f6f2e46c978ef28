package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/enrich-cli/internal/model"
	"github.com/sells-group/enrich-cli/pkg/jina"
)

// Where an identity link came from.
const (
	LinkSourceSite      = "own_site"
	LinkSourceFirstPass = "first_pass"
	LinkSourceResidual  = "residual"
	LinkSourceSearch    = "search"
)

// IdentityLink is the outcome of identity-link resolution.
type IdentityLink struct {
	URL      string
	Source   string
	Verified bool
	// Rejected lists "url: reason" for every discarded candidate.
	Rejected []string
}

// linkFacts are what a profile page states about the company.
type linkFacts struct {
	Name         string     `json:"name"`
	Website      flexString `json:"website"`
	Employees    flexString `json:"employees"`
	Headquarters flexString `json:"headquarters"`
	CountryCode  flexString `json:"country_code"`
}

func (f linkFacts) empty() bool {
	return f.Website == "" && f.Employees == "" && f.Headquarters == ""
}

var (
	liWebsiteRe = regexp.MustCompile(`(?i)\bwebsite\b[\s:*\-\]\[]*\(?((?:https?://)?[a-z0-9][a-z0-9.-]*\.[a-z]{2,}[^\s)\]]*)`)
	liSizeRe    = regexp.MustCompile(`(?i)(\d[\d,]*(?:\s*-\s*\d[\d,]*)?\+?)\s+employees`)
	liHQRe      = regexp.MustCompile(`(?i)\bheadquarters\b[\s:*\-]*([^\n]{2,80})`)
	loginWallRe = regexp.MustCompile(`(?i)authwall|sign in to see|join now to see|sign up to view|login_required`)
)

// extractLinkFacts reads a profile page with patterns. LinkedIn's public
// pages render these fields as labeled lines.
func extractLinkFacts(text string) linkFacts {
	var f linkFacts
	if m := liWebsiteRe.FindStringSubmatch(text); m != nil {
		f.Website = flexString(m[1])
	}
	if m := liSizeRe.FindStringSubmatch(text); m != nil {
		f.Employees = flexString(m[1])
	}
	if m := liHQRe.FindStringSubmatch(text); m != nil {
		f.Headquarters = flexString(strings.TrimSpace(m[1]))
	}
	return f
}

// countryOf resolves the country named at the end of a location string.
func countryOf(f linkFacts) string {
	if c := normalizeCountryCode(string(f.CountryCode), ""); c != model.UnknownCountry {
		return c
	}
	parts := strings.Split(string(f.Headquarters), ",")
	return normalizeCountryCode("", parts[len(parts)-1])
}

// linkExpectation is what a valid profile must be consistent with.
type linkExpectation struct {
	Domain      string
	SizeBand    string
	CountryCode string
}

// checkLinkFacts returns why a profile's facts conflict with the
// expectation, or "" when they are consistent.
func checkLinkFacts(f linkFacts, want linkExpectation) string {
	if w := string(f.Website); w != "" && want.Domain != "" {
		if h := hostOf(w); h != "" && !domainsOverlap(h, want.Domain) {
			return fmt.Sprintf("profile website %s does not match %s", h, want.Domain)
		}
	}
	if count := parseHeadcount(string(f.Employees)); count > 0 && want.SizeBand != "" {
		got, _ := model.EmployeeBandFor(count)
		if model.EmployeeBandIndex(got) < model.EmployeeBandIndex(want.SizeBand)-1 {
			return fmt.Sprintf("profile size %s is far below expected %s", got, want.SizeBand)
		}
	}
	if want.CountryCode != "" && want.CountryCode != model.UnknownCountry {
		if c := countryOf(f); c != model.UnknownCountry && c != want.CountryCode {
			return fmt.Sprintf("profile country %s conflicts with %s", c, want.CountryCode)
		}
	}
	return ""
}

type linkCandidate struct {
	url    string
	source string
}

// identityCandidates orders profile candidates after the own-site link:
// the top first-pass candidate, then residual ones from the first pass.
func identityCandidates(fp model.FirstPassResult) []linkCandidate {
	var out []linkCandidate
	seen := map[string]bool{}
	add := func(u, source string) {
		if li, ok := canonicalLinkedIn(u); ok && !seen[li] {
			seen[li] = true
			out = append(out, linkCandidate{url: li, source: source})
		}
	}
	for i, l := range fp.IdentityLinks {
		if i == 0 {
			add(l.URL, LinkSourceFirstPass)
		} else {
			add(l.URL, LinkSourceResidual)
		}
	}
	for _, u := range fp.CandidateURLs {
		add(u, LinkSourceResidual)
	}
	return out
}

// siteLink finds a company profile link on the company's own pages.
func siteLink(content model.ScrapedContent, domain string) string {
	if domain == "" {
		return ""
	}
	for _, pg := range content.Pages() {
		if !sameSite(hostOf(pg.URL), domain) {
			continue
		}
		for _, m := range linkedInRe.FindAllString(pg.Text, -1) {
			if li, ok := canonicalLinkedIn(m); ok && strings.Contains(li, "/company/") {
				return li
			}
		}
	}
	return ""
}

// resolveIdentityLink picks the company's profile URL. A link on the
// company's own site is authoritative; every other candidate is checked
// against the expected domain, size and country and discarded on conflict.
// Pages fetched for validation are added to content.
func (p *Pipeline) resolveIdentityLink(ctx context.Context, rs *runState, site string, fp model.FirstPassResult, content *model.ScrapedContent) IdentityLink {
	if li := siteLink(*content, site); li != "" {
		return IdentityLink{URL: li, Source: LinkSourceSite, Verified: true}
	}

	want := linkExpectation{Domain: site, CountryCode: fp.Headquarters.CountryCode}
	if e := fp.PrimaryEmployees(); e != nil && e.Count > 0 {
		want.SizeBand, _ = model.EmployeeBandFor(e.Count)
	}

	var out IdentityLink
	accept := func(cands []linkCandidate) bool {
		for _, c := range cands {
			if !p.cfg.Research.LinkedInValidation {
				out.URL, out.Source = c.url, c.source
				return true
			}
			verified, reason := p.validateLink(ctx, rs, c, want, content)
			if reason != "" {
				rs.log.Info("pipeline: identity link rejected",
					zap.String("url", c.url), zap.String("reason", reason))
				out.Rejected = append(out.Rejected, c.url+": "+reason)
				continue
			}
			out.URL, out.Source, out.Verified = c.url, c.source, verified
			return true
		}
		return false
	}

	candidates := identityCandidates(fp)
	if !accept(candidates) {
		accept(p.searchIdentityLinks(ctx, rs, fp.CompanyName, candidates))
	}
	return out
}

// validateLink checks one candidate. It reports whether the candidate's
// facts were verified and, when it must be discarded, why. A first-pass
// candidate whose page cannot be read is accepted unverified; residual and
// search candidates must verify.
func (p *Pipeline) validateLink(ctx context.Context, rs *runState, c linkCandidate, want linkExpectation, content *model.ScrapedContent) (bool, string) {
	text, ok := content.Get(c.url)
	if !ok && p.fetcher != nil {
		batch := p.fetcher.FetchAll(ctx, []string{c.url})
		rs.chargeScrape(StageIdentityLink, 1, batch)
		for _, pg := range batch.Content.Pages() {
			content.Add(pg)
		}
		text, _ = batch.Content.Get(c.url)
	}

	var facts linkFacts
	if strings.TrimSpace(text) != "" && !loginWallRe.MatchString(text) {
		facts = extractLinkFacts(text)
		if facts.empty() {
			facts = p.extractLinkFactsAI(ctx, rs, text)
		}
	}

	if facts.empty() {
		if c.source == LinkSourceFirstPass {
			return false, ""
		}
		return false, "profile could not be verified"
	}
	if reason := checkLinkFacts(facts, want); reason != "" {
		return false, reason
	}
	return true, ""
}

// extractLinkFactsAI asks the extraction model for a page's facts. Any
// failure yields empty facts.
func (p *Pipeline) extractLinkFactsAI(ctx context.Context, rs *runState, text string) linkFacts {
	if p.ai == nil {
		return linkFacts{}
	}
	resp, err := p.callAI(ctx, rs, StageIdentityLink, p.cfg.Anthropic.ExtractModel, nil,
		fmt.Sprintf(linkedInExtractPrompt, truncate(text, 8000)), 512)
	if err != nil {
		rs.log.Debug("pipeline: identity link extraction failed", zap.Error(err))
		return linkFacts{}
	}
	var f linkFacts
	if err := json.Unmarshal([]byte(extractJSON(resp.Text())), &f); err != nil {
		return linkFacts{}
	}
	return f
}

// searchIdentityLinks looks for profile pages by name when the first pass
// offered nothing usable.
func (p *Pipeline) searchIdentityLinks(ctx context.Context, rs *runState, name string, have []linkCandidate) []linkCandidate {
	if p.jina == nil || strings.TrimSpace(name) == "" {
		return nil
	}
	resp, err := p.jina.Search(ctx, name+" company", jina.WithSiteFilter("linkedin.com"))
	if err != nil {
		rs.log.Debug("pipeline: identity link search failed", zap.Error(err))
		return nil
	}

	seen := map[string]bool{}
	for _, c := range have {
		seen[c.url] = true
	}
	var out []linkCandidate
	tokens := 0
	for _, r := range resp.Data {
		tokens += r.Usage.Tokens
		li, ok := canonicalLinkedIn(r.URL)
		if !ok || seen[li] || !strings.Contains(li, "/company/") {
			continue
		}
		seen[li] = true
		out = append(out, linkCandidate{url: li, source: LinkSourceSearch})
		if len(out) == 3 {
			break
		}
	}
	rs.add(StageIdentityLink, p.costs.Scrape(0, tokens, 0))
	return out
}
