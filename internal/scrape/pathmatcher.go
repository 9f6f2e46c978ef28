package scrape

import (
	"net/url"
	"path"
	"strings"
)

// defaultExcludePatterns skip pages that never carry firmographic data.
var defaultExcludePatterns = []string{
	"/careers/*",
	"/jobs/*",
	"/login*",
	"/cart*",
	"/*.pdf",
}

// PathMatcher filters URLs by glob-style path patterns. A pattern ending in
// "/*" also matches every deeper path below it.
type PathMatcher struct {
	patterns []string
}

// NewPathMatcher creates a PathMatcher, falling back to the defaults when
// patterns is empty.
func NewPathMatcher(patterns []string) *PathMatcher {
	if len(patterns) == 0 {
		patterns = defaultExcludePatterns
	}
	lowered := make([]string, len(patterns))
	for i, p := range patterns {
		lowered[i] = strings.ToLower(p)
	}
	return &PathMatcher{patterns: lowered}
}

// Patterns returns the configured patterns.
func (m *PathMatcher) Patterns() []string {
	return m.patterns
}

// IsExcluded reports whether rawURL is unparseable or matches a pattern.
func (m *PathMatcher) IsExcluded(rawURL string) bool {
	if m == nil {
		return false
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return true
	}
	p := strings.ToLower(u.Path)
	for _, pattern := range m.patterns {
		if matchSegmented(pattern, p) {
			return true
		}
	}
	return false
}

func matchSegmented(pattern, urlPath string) bool {
	if ok, _ := path.Match(pattern, urlPath); ok {
		return true
	}
	if strings.HasSuffix(pattern, "/*") {
		prefix := strings.TrimSuffix(pattern, "/*")
		return urlPath == prefix || strings.HasPrefix(urlPath, prefix+"/")
	}
	return false
}
