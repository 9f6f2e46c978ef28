package lookup

import (
	"github.com/agext/levenshtein"
)

// Resolution methods for a parent domain.
const (
	MethodExact     = "exact"
	MethodFuzzy     = "fuzzy"
	MethodGenerated = "generated"
)

// fuzzyThreshold is the minimum similarity for a fuzzy table hit.
const fuzzyThreshold = 0.85

// ParentDomain resolves a parent company name to a domain: an exact table
// hit on the normalized name, else the most similar table entry scoring at
// least 0.85, else a generated guess. It returns "" for blank names.
func (t *Tables) ParentDomain(name string) (domain, method string) {
	key := NormalizeName(name)
	if key == "" {
		return "", ""
	}
	if d, ok := t.parents[key]; ok {
		return d, MethodExact
	}

	best, bestScore := "", 0.0
	for _, k := range t.parentKeys {
		score := levenshtein.Similarity(key, k, nil)
		// Ties resolve to the first-inserted key.
		if score > bestScore {
			best, bestScore = k, score
		}
	}
	if bestScore >= fuzzyThreshold {
		return t.parents[best], MethodFuzzy
	}

	return GuessDomain(name), MethodGenerated
}
