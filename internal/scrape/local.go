package scrape

import (
	"context"
	"io"
	"net"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/enrich-cli/internal/model"
)

// LocalScraper fetches HTML directly and converts it to plaintext. It costs
// nothing, so when enabled it runs ahead of the paid providers and hands off
// to them whenever a page is blocked or rendered client-side.
type LocalScraper struct {
	client    *http.Client
	userAgent string
}

// NewLocalScraper creates a LocalScraper with the given per-request timeout.
func NewLocalScraper(timeout time.Duration, userAgent string) *LocalScraper {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if userAgent == "" {
		userAgent = "Mozilla/5.0 (compatible; EnrichBot/1.0)"
	}
	return &LocalScraper{
		userAgent: userAgent,
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				DialContext:         (&net.Dialer{Timeout: 10 * time.Second}).DialContext,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
	}
}

// Name implements Scraper.
func (l *LocalScraper) Name() string { return "local_http" }

// Supports skips hosts that always require a logged-in, JS-rendered session.
func (l *LocalScraper) Supports(u string) bool {
	return !strings.Contains(strings.ToLower(u), "linkedin.com/")
}

// Scrape fetches a URL, detects blocks and strips HTML to plaintext.
func (l *LocalScraper) Scrape(ctx context.Context, targetURL string) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "local_http: create request")
	}
	req.Header.Set("User-Agent", l.userAgent)

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "local_http: fetch")
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 512*1024))
	if err != nil {
		return nil, eris.Wrap(err, "local_http: read body")
	}

	if blocked, kind := DetectBlock(resp, body); blocked {
		return nil, eris.Errorf("local_http: blocked (%s)", kind)
	}
	if resp.StatusCode >= 400 {
		return nil, eris.Errorf("local_http: status %d", resp.StatusCode)
	}

	text := stripHTML(string(body))
	if blocked, kind := LooksBlocked(text); blocked {
		return nil, eris.Errorf("local_http: unusable content (%s)", kind)
	}

	return &Result{
		Page: model.CrawledPage{
			URL:        targetURL,
			Title:      extractTitle(body),
			Markdown:   text,
			StatusCode: resp.StatusCode,
		},
		Source: "local_http",
	}, nil
}

var (
	titleRe     = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
	dropBlockRe = regexp.MustCompile(`(?is)<(script|style|noscript|svg)[^>]*>.*?</(script|style|noscript|svg)>`)
	tagRe       = regexp.MustCompile(`<[^>]+>`)
	spaceRe     = regexp.MustCompile(`[ \t\r\f]+`)
	blankRe     = regexp.MustCompile(`\n\s*\n(\s*\n)+`)
	entities    = strings.NewReplacer(
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&#39;", "'",
		"&nbsp;", " ",
		"&copy;", "©",
	)
)

func extractTitle(body []byte) string {
	if m := titleRe.FindSubmatch(body); len(m) > 1 {
		return strings.TrimSpace(entities.Replace(string(m[1])))
	}
	return ""
}

// stripHTML keeps nav and footer text: footers carry the legal entity name,
// address and social links that entity and identity-link checks look for.
func stripHTML(html string) string {
	html = dropBlockRe.ReplaceAllString(html, "")
	html = tagRe.ReplaceAllString(html, " ")
	html = entities.Replace(html)
	html = spaceRe.ReplaceAllString(html, " ")
	html = blankRe.ReplaceAllString(html, "\n\n")
	return strings.TrimSpace(html)
}
