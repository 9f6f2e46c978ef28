// Package lookup holds the curated, read-only reference data the pipeline
// consults: parent-company domains, URL host classes, free email providers,
// industry revenue multipliers and ICP profiles.
package lookup

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/enrich-cli/internal/icp"
)

// File is the on-disk YAML shape. Any section present replaces or extends
// the built-in defaults: maps merge key by key, lists replace.
type File struct {
	ParentDomains          map[string]string  `yaml:"parent_domains"`
	AggregatorHosts        []string           `yaml:"aggregator_hosts"`
	LowValueHosts          []string           `yaml:"low_value_hosts"`
	FreeEmailDomains       []string           `yaml:"free_email_domains"`
	RevenuePerEmployee     map[string]float64 `yaml:"revenue_per_employee"`
	IndustryAverageRevenue map[string]float64 `yaml:"industry_average_revenue"`
	ICPProfiles            []icp.Profile      `yaml:"icp_profiles"`
}

// Tables is immutable after construction and safe for concurrent use.
type Tables struct {
	parents        map[string]string
	parentKeys     []string
	aggregators    map[string]struct{}
	lowValue       map[string]struct{}
	freeEmail      map[string]struct{}
	revPerEmployee map[string]float64
	industryAvg    map[string]float64
	profiles       []icp.Profile
}

const (
	defaultRevenuePerEmployee = 200_000
	fallbackKey               = "default"
)

// Default returns the built-in tables.
func Default() *Tables {
	return build(defaultFile())
}

// Load reads a YAML file and merges it over the defaults. An empty path
// returns the defaults.
func Load(path string) (*Tables, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "lookup: read %s", path)
	}
	return Parse(data)
}

// Parse decodes YAML lookup data and merges it over the defaults.
func Parse(data []byte) (*Tables, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, eris.Wrap(err, "lookup: decode yaml")
	}
	return build(merge(defaultFile(), f)), nil
}

// New builds tables from f alone, without defaults. Intended for tests.
func New(f File) *Tables {
	return build(f)
}

func merge(base, over File) File {
	for k, v := range over.ParentDomains {
		base.ParentDomains[k] = v
	}
	for k, v := range over.RevenuePerEmployee {
		base.RevenuePerEmployee[k] = v
	}
	for k, v := range over.IndustryAverageRevenue {
		base.IndustryAverageRevenue[k] = v
	}
	if len(over.AggregatorHosts) > 0 {
		base.AggregatorHosts = over.AggregatorHosts
	}
	if len(over.LowValueHosts) > 0 {
		base.LowValueHosts = over.LowValueHosts
	}
	if len(over.FreeEmailDomains) > 0 {
		base.FreeEmailDomains = over.FreeEmailDomains
	}
	if len(over.ICPProfiles) > 0 {
		base.ICPProfiles = over.ICPProfiles
	}
	return base
}

func build(f File) *Tables {
	t := &Tables{
		parents:        make(map[string]string, len(f.ParentDomains)),
		aggregators:    hostSet(f.AggregatorHosts),
		lowValue:       hostSet(f.LowValueHosts),
		freeEmail:      hostSet(f.FreeEmailDomains),
		revPerEmployee: make(map[string]float64, len(f.RevenuePerEmployee)),
		industryAvg:    make(map[string]float64, len(f.IndustryAverageRevenue)),
		profiles:       append([]icp.Profile(nil), f.ICPProfiles...),
	}
	for name, domain := range f.ParentDomains {
		key := NormalizeName(name)
		if key == "" {
			continue
		}
		if _, dup := t.parents[key]; !dup {
			t.parentKeys = append(t.parentKeys, key)
		}
		t.parents[key] = strings.ToLower(strings.TrimSpace(domain))
	}
	for k, v := range f.RevenuePerEmployee {
		t.revPerEmployee[k] = v
	}
	for k, v := range f.IndustryAverageRevenue {
		t.industryAvg[k] = v
	}
	return t
}

func hostSet(hosts []string) map[string]struct{} {
	m := make(map[string]struct{}, len(hosts))
	for _, h := range hosts {
		m[strings.ToLower(strings.TrimPrefix(strings.TrimSpace(h), "www."))] = struct{}{}
	}
	return m
}

// matchHost reports whether host or any parent domain of it is in set.
func matchHost(set map[string]struct{}, host string) bool {
	host = strings.ToLower(strings.TrimPrefix(host, "www."))
	for host != "" {
		if _, ok := set[host]; ok {
			return true
		}
		i := strings.IndexByte(host, '.')
		if i < 0 {
			return false
		}
		host = host[i+1:]
	}
	return false
}

// IsAggregator reports whether host is a company-data aggregator.
func (t *Tables) IsAggregator(host string) bool { return matchHost(t.aggregators, host) }

// IsLowValue reports whether host is an encyclopedic, social or review site.
func (t *Tables) IsLowValue(host string) bool { return matchHost(t.lowValue, host) }

// IsFreeEmail reports whether domain belongs to a consumer email provider.
func (t *Tables) IsFreeEmail(domain string) bool {
	_, ok := t.freeEmail[strings.ToLower(domain)]
	return ok
}

// RevenuePerEmployee returns the USD revenue-per-employee multiplier for a
// 2-digit industry prefix, falling back to the table default.
func (t *Tables) RevenuePerEmployee(prefix string) float64 {
	if v, ok := t.revPerEmployee[prefix]; ok && v > 0 {
		return v
	}
	if v, ok := t.revPerEmployee[fallbackKey]; ok && v > 0 {
		return v
	}
	return defaultRevenuePerEmployee
}

// IndustryAverageRevenue returns the typical company revenue for a 2-digit
// industry prefix, and whether any figure (specific or default) exists.
func (t *Tables) IndustryAverageRevenue(prefix string) (float64, bool) {
	if v, ok := t.industryAvg[prefix]; ok && v > 0 {
		return v, true
	}
	v, ok := t.industryAvg[fallbackKey]
	return v, ok && v > 0
}

// ICPProfiles returns a copy of the ICP profiles.
func (t *Tables) ICPProfiles() []icp.Profile {
	return append([]icp.Profile(nil), t.profiles...)
}
