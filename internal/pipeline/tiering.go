package pipeline

import (
	"strings"

	"github.com/sells-group/enrich-cli/internal/lookup"
	"github.com/sells-group/enrich-cli/internal/model"
)

// URLTier is the fetch priority of a candidate URL.
type URLTier int

const (
	// TierEssential pages are always fetched: the company's own site and
	// its identity-link page.
	TierEssential URLTier = 1
	// TierSupplemental pages are data aggregators, fetched only while
	// evidence is missing.
	TierSupplemental URLTier = 2
	// TierExcluded pages are never fetched.
	TierExcluded URLTier = 3
)

// maxSitePages caps own-site pages in the essential tier.
const maxSitePages = 6

// TieredURL is a classified candidate.
type TieredURL struct {
	URL  string
	Tier URLTier
}

// Selection is the outcome of URL tiering.
type Selection struct {
	Fetch []string
	// Classified lists every candidate in classification order.
	Classified []TieredURL
	// SupplementalLimit is how many Tier-2 URLs were allowed.
	SupplementalLimit int
}

// supplementalLimit allows more aggregator pages the more evidence is
// missing: none when revenue and headcount are both known, 2 when one is
// missing, 4 when both are.
func supplementalLimit(fp model.FirstPassResult) int {
	missing := 0
	if !hasRevenueValue(fp) {
		missing++
	}
	if !hasHeadcount(fp) {
		missing++
	}
	return []int{0, 2, 4}[missing]
}

func hasRevenueValue(fp model.FirstPassResult) bool {
	for _, e := range fp.Revenue {
		if e.HasValue() {
			return true
		}
	}
	return false
}

func hasHeadcount(fp model.FirstPassResult) bool {
	for _, e := range fp.Employees {
		if e.Count > 0 {
			return true
		}
	}
	return false
}

// SelectURLs classifies the first-pass candidates and picks what to fetch.
// site is the company's own domain, or "" when it has none.
func SelectURLs(fp model.FirstPassResult, site string, tables *lookup.Tables) Selection {
	var (
		sel         Selection
		sitePages   int
		aggregators []string
		others      []string
		seen        = map[string]bool{}
	)
	classify := func(u string, tier URLTier) {
		key := strings.TrimSuffix(u, "/")
		if seen[key] {
			return
		}
		seen[key] = true
		sel.Classified = append(sel.Classified, TieredURL{URL: u, Tier: tier})
		if tier == TierEssential {
			sel.Fetch = append(sel.Fetch, u)
		}
	}

	if site != "" {
		classify("https://"+site, TierEssential)
		sitePages++
	}
	if fp.Website != nil && fp.Website.Confidence >= 0.5 {
		if h := hostOf(fp.Website.URL); h != "" && (site == "" || !sameSite(h, site)) {
			classify(fp.Website.URL, TierEssential)
		}
	}

	topLink := ""
	if len(fp.IdentityLinks) > 0 {
		topLink = fp.IdentityLinks[0].URL
		classify(topLink, TierEssential)
	}

	for _, u := range fp.CandidateURLs {
		if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
			classify(u, TierExcluded)
			continue
		}
		host := hostOf(u)
		switch {
		case host == "":
			classify(u, TierExcluded)
		case site != "" && sameSite(host, site):
			if sitePages < maxSitePages {
				sitePages++
				classify(u, TierEssential)
			} else {
				classify(u, TierExcluded)
			}
		case sameSite(host, "linkedin.com"):
			if li, ok := canonicalLinkedIn(u); ok && li == topLink {
				continue
			}
			classify(u, TierExcluded)
		case tables.IsLowValue(host):
			classify(u, TierExcluded)
		case tables.IsAggregator(host):
			aggregators = append(aggregators, u)
		default:
			others = append(others, u)
		}
	}

	sel.SupplementalLimit = supplementalLimit(fp)
	taken := 0
	for _, u := range append(aggregators, others...) {
		key := strings.TrimSuffix(u, "/")
		if seen[key] {
			continue
		}
		if taken < sel.SupplementalLimit {
			taken++
			sel.Fetch = append(sel.Fetch, u)
		}
		seen[key] = true
		sel.Classified = append(sel.Classified, TieredURL{URL: u, Tier: TierSupplemental})
	}
	return sel
}
