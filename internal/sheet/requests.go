package sheet

import (
	"strings"

	"github.com/sells-group/enrich-cli/internal/model"
)

// columns maps a request field to the header names that select it.
var columns = map[string][]string{
	"domain":  {"domain", "website", "url", "email"},
	"name":    {"company_name", "company", "name"},
	"state":   {"state", "region"},
	"country": {"country", "country_code"},
}

// Requests turns rows into enrichment requests. A first row naming a
// "domain" (or website/url/email) column is treated as a header and its
// optional name, state and country columns are read too. Without a header
// the first column holds the domain. Blank domains and duplicates are
// dropped; order is preserved.
func Requests(rows [][]string) []model.Request {
	if len(rows) == 0 {
		return nil
	}

	idx := map[string]int{"domain": 0, "name": -1, "state": -1, "country": -1}
	if h, ok := header(rows[0]); ok {
		idx = h
		rows = rows[1:]
	}

	seen := make(map[string]bool, len(rows))
	var out []model.Request
	for _, row := range rows {
		domain := cell(row, idx["domain"])
		key := strings.ToLower(domain)
		if domain == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, model.Request{
			Domain:      domain,
			CompanyName: cell(row, idx["name"]),
			State:       cell(row, idx["state"]),
			Country:     cell(row, idx["country"]),
		})
	}
	return out
}

func header(row []string) (map[string]int, bool) {
	idx := map[string]int{"domain": -1, "name": -1, "state": -1, "country": -1}
	for i, h := range row {
		h = strings.ToLower(strings.TrimSpace(h))
		for field, names := range columns {
			if idx[field] >= 0 {
				continue
			}
			for _, n := range names {
				if h == n {
					idx[field] = i
				}
			}
		}
	}
	return idx, idx["domain"] >= 0
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
