package pipeline

// searchSystemPrompt sets the scope-tracking rules for every search call.
const searchSystemPrompt = `You are a company research analyst with live web search.
Track entity scope on every figure: "operating_company" is the specific business at the
given domain, "ultimate_parent" is its top-level owner. Never attribute a parent's figures
to the operating company. Tag each figure's source tier as one of: filing,
investor_relations, company_site, media, estimate_site, directory, unknown.
Answer with a single JSON object and nothing else.`

const firstPassSchema = `{
  "company_name": "legal or trading name of the operating company",
  "parent_company": "ultimate parent name or empty",
  "entity_scope": "operating_company | ultimate_parent",
  "relationship_type": "standalone | subsidiary | division | brand | unknown",
  "headquarters": {"city": "", "region": "", "country": "", "country_code": "ISO-2 or unknown"},
  "candidate_urls": ["pages worth reading: own site pages, profiles, data providers"],
  "revenue_evidence": [{"amount": "$38M", "usd": 38000000, "source": "", "year": 2024,
    "is_estimate": false, "entity_scope": "", "source_tier": "", "evidence_url": "", "evidence_excerpt": ""}],
  "employee_evidence": [{"amount": "250", "count": 250, "source": "", "year": 2024,
    "entity_scope": "", "source_tier": ""}],
  "linkedin_candidates": [{"url": "https://www.linkedin.com/company/...", "confidence": 0.9}],
  "website": {"url": "", "confidence": 0.9, "reasoning": ""},
  "publicly_traded": false
}`

// firstPassPrompt is formatted with the target description and the schema.
const firstPassPrompt = `Research %s.

Return ALL revenue figures you find, not just the best one, each with its own source,
year, entity scope and source tier. Mark third-party estimates with is_estimate=true.
Actively search for the company's canonical website and its LinkedIn company page; do
not guess URLs you did not see.

Respond with JSON matching:
%s`

// strictPassPrompt re-identifies the company from its own homepage text
// before any financial research.
const strictPassPrompt = `The previous identification of the company at %s may be wrong.
First confirm the company's identity ONLY from this literal text scraped from its own
homepage, footer and about page:

---
%s
---

Use the name that text states. Then research that company's revenue, employees and
headquarters, following the same scope rules.

Respond with JSON matching:
%s`

const researchRevenuePrompt = `Find the most recent annual revenue of %s (%s). Prefer
filings, investor relations and press releases over estimate sites. Respond with JSON:
{"amount": "", "usd": 0, "source": "", "year": 0, "is_estimate": true, "entity_scope": "",
"source_tier": "", "evidence_url": "", "confidence": "high | medium | low"}
Use {"amount": ""} if nothing is found.`

const researchEmployeesPrompt = `Find the current employee headcount of %s (%s). Respond
with JSON: {"amount": "", "count": 0, "source": "", "year": 0, "entity_scope": "",
"source_tier": "", "evidence_url": "", "confidence": "high | medium | low"}
Use {"amount": ""} if nothing is found.`

const researchLocationPrompt = `Find the headquarters location of %s (%s). Respond with
JSON: {"city": "", "region": "", "country": "", "country_code": "ISO-2", "source": "",
"evidence_url": "", "confidence": "high | medium | low"}
Use {"country_code": "unknown"} if nothing is found.`

// linkedInExtractPrompt pulls the facts used to validate a profile page.
const linkedInExtractPrompt = `Extract from this LinkedIn company page the company's
stated website, employee range and headquarters. Respond with JSON:
{"name": "", "website": "", "employees": "51-200", "headquarters": "City, Region, Country", "country_code": "ISO-2 or unknown"}
Use empty strings for anything the page does not state.

Page:
%s`

// analysisSystemPrompt is cached across a batch.
const analysisSystemPrompt = `You extract a structured company profile from scraped web pages
and prior search evidence. Rules:
- company_size must be one of: 0-1 Employees, 2-10 Employees, 11-50 Employees,
  51-200 Employees, 201-500 Employees, 501-1,000 Employees, 1,001-5,000 Employees,
  5,001-10,000 Employees, 10,001+ Employees, or "unknown".
- revenue_band must be one of: 0-500K, 500K-1M, 1M-5M, 5M-10M, 10M-25M, 25M-75M,
  75M-200M, 200M-500M, 500M-1B, 1B-10B, 10B-100B, 100B-1T, or null.
- Never assert revenue without explicit evidence. quality.revenue.reasoning must quote the
  figure and name its source; otherwise revenue_band is null.
- industry_codes: up to 3 six-digit NAICS codes with descriptions, most specific first.
- Describe the operating company at the domain, not its parent.
- Every quality confidence is high, medium or low.
Answer with one JSON object and nothing else.`

const analysisSchema = `{
  "company_name": "", "website": "", "description": "",
  "headquarters": {"city": "", "region": "", "country": "", "country_code": ""},
  "us_headquarters": false, "us_subsidiary": false,
  "company_size": "", "revenue_band": null,
  "industry_codes": [{"code": "541511", "description": ""}],
  "quality": {
    "location": {"confidence": "", "reasoning": ""},
    "revenue": {"confidence": "", "reasoning": ""},
    "size": {"confidence": "", "reasoning": ""},
    "industry": {"confidence": "", "reasoning": ""}
  },
  "source_urls": []
}`

// analysisPrompt is formatted with domain, company name, first-pass
// evidence JSON, the page bundle and the schema.
const analysisPrompt = `Domain: %s
Company: %s

Search evidence (JSON):
%s

Scraped pages:
%s

Respond with JSON matching:
%s`
