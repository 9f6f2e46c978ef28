package lookup

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// legalSuffixes are trailing entity designators removed before matching.
// Multi-word forms come first so "holdings inc" loses both words.
var legalSuffixes = []string{
	"incorporated", "corporation", "company", "limited", "holdings", "holding",
	"group", "gmbh", "l l c", "llc", "inc", "corp", "co", "ltd", "plc", "llp",
	"lp", "pllc", "pc", "ag", "sa", "nv", "bv", "se", "spa", "ab", "oy", "as", "kk",
}

var (
	nonAlnumRe = regexp.MustCompile(`[^a-z0-9]+`)
	foldAccent = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
)

// NormalizeName lowercases name, folds accents, turns punctuation into
// spaces and strips trailing legal suffixes. "Nestlé S.A." becomes "nestle".
func NormalizeName(name string) string {
	folded, _, err := transform.String(foldAccent, name)
	if err != nil {
		folded = name
	}
	folded = strings.ReplaceAll(strings.ToLower(folded), "&", " and ")
	folded = strings.ReplaceAll(folded, ".", "")
	folded = strings.TrimSpace(nonAlnumRe.ReplaceAllString(folded, " "))

	words := strings.Fields(folded)
	for len(words) > 1 && isLegalSuffix(words[len(words)-1]) {
		words = words[:len(words)-1]
	}
	return strings.Join(words, " ")
}

func isLegalSuffix(w string) bool {
	for _, s := range legalSuffixes {
		if w == s {
			return true
		}
	}
	return false
}

// GuessDomain builds a deterministic domain guess from a company name:
// normalized words concatenated with ".com". Returns "" for empty names.
func GuessDomain(name string) string {
	n := strings.ReplaceAll(NormalizeName(name), " ", "")
	if n == "" {
		return ""
	}
	return n + ".com"
}
