package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/enrich-cli/internal/model"
	"github.com/sells-group/enrich-cli/pkg/anthropic"
)

const (
	defaultPageCharLimit = 15000
	defaultMaxPages      = 8
	maxIndustryCodes     = 3
)

type rawAnalysis struct {
	CompanyName    flexString      `json:"company_name"`
	Website        flexString      `json:"website"`
	Description    flexString      `json:"description"`
	Headquarters   rawHeadquarters `json:"headquarters"`
	USHeadquarters flexBool        `json:"us_headquarters"`
	USSubsidiary   flexBool        `json:"us_subsidiary"`
	CompanySize    flexString      `json:"company_size"`
	RevenueBand    flexString      `json:"revenue_band"`
	IndustryCodes  []rawIndustry   `json:"industry_codes"`
	Quality        rawQuality      `json:"quality"`
	SourceURLs     []flexString    `json:"source_urls"`
}

type rawIndustry struct {
	Code        flexString `json:"code"`
	Description flexString `json:"description"`
}

type rawQuality struct {
	Location rawMetric `json:"location"`
	Revenue  rawMetric `json:"revenue"`
	Size     rawMetric `json:"size"`
	Industry rawMetric `json:"industry"`
}

type rawMetric struct {
	Confidence flexString `json:"confidence"`
	Reasoning  flexString `json:"reasoning"`
}

func (m rawMetric) toModel() model.QualityMetric {
	return model.QualityMetric{
		Confidence: model.NormalizeConfidence(strings.ToLower(strings.TrimSpace(string(m.Confidence)))),
		Reasoning:  strings.TrimSpace(string(m.Reasoning)),
	}
}

func (r rawAnalysis) toRecord() model.EnrichmentRecord {
	rec := model.EnrichmentRecord{
		CompanyName:    strings.TrimSpace(string(r.CompanyName)),
		Website:        strings.TrimSpace(string(r.Website)),
		Description:    strings.TrimSpace(string(r.Description)),
		Headquarters:   r.Headquarters.toModel(),
		USHeadquarters: bool(r.USHeadquarters),
		USSubsidiary:   bool(r.USSubsidiary),
		SizeBand:       strings.TrimSpace(string(r.CompanySize)),
		Quality: model.Quality{
			Location: r.Quality.Location.toModel(),
			Revenue:  r.Quality.Revenue.toModel(),
			Size:     r.Quality.Size.toModel(),
			Industry: r.Quality.Industry.toModel(),
		},
	}
	rec.SetRevenue(strings.TrimSpace(string(r.RevenueBand)))
	for _, c := range r.IndustryCodes {
		rec.IndustryCodes = append(rec.IndustryCodes, model.IndustryCode{
			Code:        strings.TrimSpace(string(c.Code)),
			Description: strings.TrimSpace(string(c.Description)),
		})
	}
	for _, u := range r.SourceURLs {
		rec.SourceURLs = append(rec.SourceURLs, string(u))
	}
	return rec
}

var (
	// revenueSupportRe matches reasoning that cites a figure or a source.
	revenueSupportRe = regexp.MustCompile(`(?i)[$€£]|\busd\b|\b\d[\d,.]*\s*(?:k|m|mm|b|bn|thousand|million|billion)\b|annual report|10-k|filing|press release|investor|zoominfo|dun|owler|crunchbase|reported revenue|revenue of`)
	naicsRe          = regexp.MustCompile(`^\d{6}$`)
	salvageCodeRe    = regexp.MustCompile(`"code"\s*:\s*"?(\d{6})"?(?:\s*,\s*"description"\s*:\s*"([^"]*)")?`)
)

// analysisPages builds the page bundle: own-site pages first, each cut to
// limit characters, at most maxPages pages.
func analysisPages(content model.ScrapedContent, site string, limit, maxPages int) string {
	var own, other []model.ScrapedPage
	for _, pg := range content.Pages() {
		if site != "" && sameSite(hostOf(pg.URL), site) {
			own = append(own, pg)
		} else {
			other = append(other, pg)
		}
	}
	var b strings.Builder
	for i, pg := range append(own, other...) {
		if i == maxPages {
			break
		}
		fmt.Fprintf(&b, "### %s\n%s\n\n", pg.URL, truncate(pg.Text, limit))
	}
	if b.Len() == 0 {
		return "(no pages could be fetched)"
	}
	return b.String()
}

// analyze runs the content analysis and returns the parsed record. Model
// failures other than configuration errors yield the fallback record.
func (p *Pipeline) analyze(ctx context.Context, rs *runState, site string, fp model.FirstPassResult, content model.ScrapedContent) (model.EnrichmentRecord, error) {
	limit, maxPages := p.cfg.Analysis.PageCharLimit, p.cfg.Analysis.MaxPages
	if limit <= 0 {
		limit = defaultPageCharLimit
	}
	if maxPages <= 0 {
		maxPages = defaultMaxPages
	}
	evidence, err := json.MarshalIndent(fp, "", "  ")
	if err != nil {
		evidence = []byte("{}")
	}
	prompt := fmt.Sprintf(analysisPrompt, rs.domain, fp.CompanyName, evidence,
		analysisPages(content, site, limit, maxPages), analysisSchema)

	maxTokens := p.cfg.Anthropic.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	resp, err := p.callAI(ctx, rs, StageAnalysis, p.cfg.Anthropic.AnalysisModel,
		anthropic.CachedSystem(analysisSystemPrompt), prompt, maxTokens)
	if err != nil {
		if errors.Is(err, ErrConfig) {
			return model.EnrichmentRecord{}, err
		}
		rs.log.Warn("pipeline: analysis failed, using fallback record", zap.Error(err))
		return FallbackRecord(rs.domain, site, fp, content), nil
	}

	rec := ParseAnalysis(resp.Text(), rs.domain, site, fp, content)
	if rec.Diagnostics.AnalysisStatus != model.ParseOK {
		rs.log.Info("pipeline: analysis response not clean",
			zap.String("status", string(rec.Diagnostics.AnalysisStatus)))
	}
	return rec, nil
}

// ParseAnalysis turns the analysis model's text into a record. Malformed
// output is salvaged field by field before falling back to an all-unknown
// record; the parse status is kept in the diagnostics.
func ParseAnalysis(text, domain, site string, fp model.FirstPassResult, content model.ScrapedContent) model.EnrichmentRecord {
	clean := stripModelNoise(text)

	var raw rawAnalysis
	if err := json.Unmarshal([]byte(extractJSON(clean)), &raw); err == nil {
		rec := finishRecord(raw.toRecord(), domain, site, fp, content, model.ParseOK)
		return rec
	}
	if rec, ok := salvageAnalysis(clean); ok {
		return finishRecord(rec, domain, site, fp, content, model.ParseSalvaged)
	}
	return FallbackRecord(domain, site, fp, content)
}

// FallbackRecord is the all-unknown, low-confidence record used when the
// analysis produced nothing usable. It keeps what the first pass knew
// about identity and location.
func FallbackRecord(domain, site string, fp model.FirstPassResult, content model.ScrapedContent) model.EnrichmentRecord {
	low := model.QualityMetric{Confidence: model.ConfidenceLow, Reasoning: "content analysis unavailable"}
	rec := model.EnrichmentRecord{
		SizeBand: model.UnknownBand,
		Quality:  model.Quality{Location: low, Revenue: low, Size: low, Industry: low},
	}
	return finishRecord(rec, domain, site, fp, content, model.ParseFallback)
}

func salvageAnalysis(text string) (model.EnrichmentRecord, bool) {
	rec := model.EnrichmentRecord{
		CompanyName: jsonField(text, "company_name"),
		Description: jsonField(text, "description"),
		SizeBand:    jsonField(text, "company_size"),
		Headquarters: model.Headquarters{
			City:    jsonField(text, "city"),
			Region:  jsonField(text, "region"),
			Country: jsonField(text, "country"),
		},
	}
	rec.Headquarters.CountryCode = normalizeCountryCode(jsonField(text, "country_code"), rec.Headquarters.Country)
	rec.SetRevenue(jsonField(text, "revenue_band"))
	for _, m := range salvageCodeRe.FindAllStringSubmatch(text, maxIndustryCodes) {
		rec.IndustryCodes = append(rec.IndustryCodes, model.IndustryCode{Code: m[1], Description: m[2]})
	}
	// Salvaged fields carry no trustworthy reasoning.
	low := model.QualityMetric{Confidence: model.ConfidenceLow, Reasoning: "salvaged from malformed analysis output"}
	rec.Quality = model.Quality{Location: low, Revenue: low, Size: low, Industry: low}

	found := rec.CompanyName != "" || rec.Description != "" || model.IsEmployeeBand(rec.SizeBand) ||
		rec.RevenueBand != nil || len(rec.IndustryCodes) > 0
	return rec, found
}

// finishRecord enforces the record's invariants on model output: bands
// come from the enumerations, revenue needs cited support, industry codes
// are six digits, and first-pass identity and location fill the gaps.
func finishRecord(rec model.EnrichmentRecord, domain, site string, fp model.FirstPassResult, content model.ScrapedContent, status model.ParseStatus) model.EnrichmentRecord {
	rec.Domain = domain
	rec.Diagnostics.AnalysisStatus = status
	if rec.CompanyName == "" || strings.EqualFold(rec.CompanyName, "unknown") {
		rec.CompanyName = fp.CompanyName
	}
	if w := absoluteURL(rec.Website); w != "" {
		rec.Website = w
	} else if site != "" {
		rec.Website = "https://" + site
	} else if fp.Website != nil {
		rec.Website = fp.Website.URL
	} else {
		rec.Website = ""
	}

	if !model.IsEmployeeBand(rec.SizeBand) {
		rec.SizeBand = model.UnknownBand
	}
	if rec.RevenueBand != nil && !revenueSupportRe.MatchString(rec.Quality.Revenue.Reasoning) {
		rec.RevenueBand = nil
		rec.Quality.Revenue = model.QualityMetric{
			Confidence: model.ConfidenceLow,
			Reasoning:  strings.TrimSpace("Revenue band discarded: no cited figure or source. " + rec.Quality.Revenue.Reasoning),
		}
	}
	if rec.RevenueBand == nil && rec.Quality.Revenue.Confidence != model.ConfidenceLow {
		rec.Quality.Revenue.Confidence = model.ConfidenceLow
	}
	if !rec.HasSize() {
		rec.Quality.Size.Confidence = model.ConfidenceLow
	}

	codes := rec.IndustryCodes[:0:0]
	seen := map[string]bool{}
	for _, c := range rec.IndustryCodes {
		if !naicsRe.MatchString(c.Code) || seen[c.Code] || len(codes) == maxIndustryCodes {
			continue
		}
		seen[c.Code] = true
		codes = append(codes, c)
	}
	rec.IndustryCodes = codes

	if (status != model.ParseOK || rec.Headquarters.IsUnknown()) && !fp.Headquarters.IsUnknown() {
		rec.Headquarters = fp.Headquarters
	}
	if rec.Headquarters.CountryCode == "" {
		rec.Headquarters.CountryCode = model.UnknownCountry
	}
	if rec.Headquarters.HasCountry() {
		rec.USHeadquarters = rec.Headquarters.CountryCode == "US"
	}
	if rec.USHeadquarters {
		rec.USSubsidiary = false
	}

	rec.SourceURLs = mergeURLs(rec.SourceURLs, content.URLs())
	return rec
}
