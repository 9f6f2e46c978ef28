package pipeline

import (
	"strings"

	"github.com/rotisserie/eris"
)

// NormalizeDomain reduces a bare domain, URL or email address to a
// lowercase host without scheme, www prefix, port or path.
func NormalizeDomain(input string) (string, error) {
	s := strings.ToLower(strings.TrimSpace(input))
	s = strings.TrimPrefix(s, "mailto:")
	if i := strings.Index(s, "://"); i >= 0 {
		s = s[i+3:]
	}
	if i := strings.IndexAny(s, "/?#"); i >= 0 {
		s = s[:i]
	}
	if i := strings.LastIndex(s, "@"); i >= 0 {
		s = s[i+1:]
	}
	if i := strings.LastIndex(s, ":"); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimSuffix(strings.TrimPrefix(s, "www."), ".")

	if !validHost(s) {
		return "", eris.Wrapf(ErrInvalidDomain, "%q", input)
	}
	return s, nil
}

func validHost(s string) bool {
	labels := strings.Split(s, ".")
	if len(labels) < 2 {
		return false
	}
	for _, l := range labels {
		if l == "" || len(l) > 63 || l[0] == '-' || l[len(l)-1] == '-' {
			return false
		}
		for _, r := range l {
			if !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '-') {
				return false
			}
		}
	}
	tld := labels[len(labels)-1]
	for _, r := range tld {
		if r >= '0' && r <= '9' {
			return false
		}
	}
	return true
}

// hostOf returns the normalized host of a URL, or "".
func hostOf(rawURL string) string {
	h, err := NormalizeDomain(rawURL)
	if err != nil {
		return ""
	}
	return h
}

// sameSite reports whether host is domain or one of its subdomains.
func sameSite(host, domain string) bool {
	return host == domain || strings.HasSuffix(host, "."+domain)
}

// domainsOverlap reports whether two hosts plausibly belong to the same
// company: same site either way round, or the same leading label
// (acme.com and acme.io).
func domainsOverlap(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	if sameSite(a, b) || sameSite(b, a) {
		return true
	}
	return firstLabel(a) == firstLabel(b)
}

func firstLabel(host string) string {
	if i := strings.Index(host, "."); i >= 0 {
		return host[:i]
	}
	return host
}

// domainTokens splits the first label of a domain into searchable tokens:
// "acme-tools.com" gives ["acme-tools", "acme tools", "acmetools"].
func domainTokens(domain string) []string {
	label := firstLabel(domain)
	if label == "" {
		return nil
	}
	out := []string{label}
	if strings.Contains(label, "-") {
		out = append(out, strings.ReplaceAll(label, "-", " "), strings.ReplaceAll(label, "-", ""))
	}
	return out
}
