package pipeline

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/language"

	"github.com/sells-group/enrich-cli/internal/model"
)

var (
	citationRe = regexp.MustCompile(`(?:\[\d{1,3}\])+`)
	thinkRe    = regexp.MustCompile(`(?s)<think>.*?</think>`)
	numberRe   = regexp.MustCompile(`(\d[\d,]*(?:\.\d+)?)\s*(trillion|billion|million|thousand|tn|bn|mm|mn|[tbmk])?\b`)
	yearRe     = regexp.MustCompile(`^(?:19|20)\d{2}$`)
	rangeSepRe = regexp.MustCompile(`^\s*(?:-|–|to)\s*$`)
)

// stripModelNoise removes reasoning blocks and [n] citation markers.
func stripModelNoise(text string) string {
	text = thinkRe.ReplaceAllString(text, "")
	return citationRe.ReplaceAllString(text, "")
}

// extractJSON returns the outermost JSON object in text, tolerating
// markdown fences and prose around it.
func extractJSON(text string) string {
	text = strings.TrimSpace(text)

	// Strip markdown code fences.
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}
	return strings.TrimSpace(text)
}

// flexString decodes a JSON string, number or bool as text.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	if string(b) == "null" {
		*f = ""
		return nil
	}
	*f = flexString(strings.Trim(string(b), `"`))
	return nil
}

// flexInt decodes a JSON number or numeric string; anything else is 0.
type flexInt int

func (f *flexInt) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	n, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil {
		*f = 0
		return nil
	}
	*f = flexInt(int(n))
	return nil
}

// flexFloat decodes a JSON number or a money-like string; anything else is 0.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		*f = flexFloat(v)
		return nil
	}
	*f = flexFloat(parseUSD(s))
	return nil
}

func magnitude(unit string) float64 {
	switch strings.ToLower(unit) {
	case "k", "thousand":
		return 1e3
	case "m", "mm", "mn", "million":
		return 1e6
	case "b", "bn", "billion":
		return 1e9
	case "t", "tn", "trillion":
		return 1e12
	}
	return 1
}

// parseUSD reads the amount in free text such as "$38M", "USD 1.2
// billion" or "38,000,000". A number carrying a currency marker or a
// magnitude unit wins over a bare one, and bare years ("FY2023") are
// never amounts. It returns 0 when there is none.
func parseUSD(text string) float64 {
	lower := strings.ToLower(text)
	fallback := -1.0
	for _, loc := range numberRe.FindAllStringSubmatchIndex(lower, -1) {
		digits := lower[loc[2]:loc[3]]
		v, err := strconv.ParseFloat(strings.ReplaceAll(digits, ",", ""), 64)
		if err != nil {
			continue
		}
		unit := ""
		if loc[4] >= 0 {
			unit = lower[loc[4]:loc[5]]
		}
		if unit != "" || hasCurrencyMarker(lower[:loc[0]]) {
			return v * magnitude(unit)
		}
		if fallback < 0 && !yearRe.MatchString(digits) {
			fallback = v
		}
	}
	return max(fallback, 0)
}

func hasCurrencyMarker(before string) bool {
	before = strings.TrimSpace(before)
	return strings.HasSuffix(before, "$") || strings.HasSuffix(before, "usd")
}

// parseHeadcount reads a headcount from text such as "2,500", "51-200
// employees", "10,000+" or "~1.2k". Ranges resolve to their midpoint.
func parseHeadcount(text string) int {
	lower := strings.ToLower(text)
	locs := numberRe.FindAllStringSubmatchIndex(lower, 2)
	if len(locs) == 0 {
		return 0
	}
	value := func(loc []int) float64 {
		v, _ := strconv.ParseFloat(strings.ReplaceAll(lower[loc[2]:loc[3]], ",", ""), 64)
		unit := ""
		if loc[4] >= 0 {
			unit = lower[loc[4]:loc[5]]
		}
		return v * magnitude(unit)
	}

	first := value(locs[0])
	if len(locs) == 2 && rangeSepRe.MatchString(lower[locs[0][1]:locs[1][0]]) {
		return int(math.Round((first + value(locs[1])) / 2))
	}
	if strings.HasPrefix(strings.TrimSpace(lower[locs[0][1]:]), "+") {
		return int(first) + 1
	}
	return int(first)
}

// countryNames maps common country names onto ISO-2 codes.
var countryNames = map[string]string{
	"united states": "US", "united states of america": "US", "usa": "US", "us": "US", "u.s.": "US", "america": "US",
	"canada": "CA", "mexico": "MX", "united kingdom": "GB", "uk": "GB", "england": "GB", "great britain": "GB",
	"ireland": "IE", "germany": "DE", "france": "FR", "netherlands": "NL", "switzerland": "CH",
	"sweden": "SE", "norway": "NO", "denmark": "DK", "finland": "FI", "spain": "ES", "italy": "IT",
	"belgium": "BE", "austria": "AT", "japan": "JP", "china": "CN", "india": "IN", "australia": "AU",
	"brazil": "BR", "israel": "IL", "singapore": "SG", "south korea": "KR", "korea": "KR",
}

// normalizeCountryCode returns a valid ISO-2 code for code or name, or
// model.UnknownCountry.
func normalizeCountryCode(code, name string) string {
	if c := strings.ToUpper(strings.TrimSpace(code)); len(c) == 2 {
		if r, err := language.ParseRegion(c); err == nil && r.IsCountry() {
			return r.String()
		}
	}
	if c, ok := countryNames[strings.ToLower(strings.TrimSpace(name))]; ok {
		return c
	}
	return model.UnknownCountry
}

// truncate cuts s to at most n bytes on a rune boundary.
func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	for n > 0 && !utf8RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func utf8RuneStart(b byte) bool { return b&0xC0 != 0x80 }
