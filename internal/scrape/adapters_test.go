package scrape

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/enrich-cli/internal/resilience"
	"github.com/sells-group/enrich-cli/pkg/firecrawl"
	"github.com/sells-group/enrich-cli/pkg/jina"
)

type fakeJina struct {
	resp  *jina.ReadResponse
	err   error
	calls int
}

func (f *fakeJina) Read(context.Context, string) (*jina.ReadResponse, error) {
	f.calls++
	return f.resp, f.err
}

func (f *fakeJina) Search(context.Context, string, ...jina.SearchOption) (*jina.SearchResponse, error) {
	return nil, errors.New("unused")
}

type fakeFirecrawl struct {
	resp *firecrawl.ScrapeResponse
	err  error
	req  firecrawl.ScrapeRequest
}

func (f *fakeFirecrawl) Scrape(_ context.Context, req firecrawl.ScrapeRequest) (*firecrawl.ScrapeResponse, error) {
	f.req = req
	return f.resp, f.err
}

var longText = strings.Repeat("Acme Corp builds industrial widgets. ", 10)

func TestJinaAdapter_Success(t *testing.T) {
	fj := &fakeJina{resp: &jina.ReadResponse{Code: 200, Data: jina.ReadData{
		Title: "Acme", Content: longText, Usage: jina.ReadUsage{Tokens: 120},
	}}}
	a := NewJinaAdapter(fj)

	r, err := a.Scrape(context.Background(), "https://acme.com")
	require.NoError(t, err)
	assert.Equal(t, "jina", r.Source)
	assert.Equal(t, "https://acme.com", r.Page.URL)
	assert.Equal(t, 120, r.Tokens)
}

func TestJinaAdapter_ThinContent(t *testing.T) {
	a := NewJinaAdapter(&fakeJina{resp: &jina.ReadResponse{Code: 200, Data: jina.ReadData{Content: "Just a moment..."}}})
	_, err := a.Scrape(context.Background(), "https://acme.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unusable content")
}

func TestJinaAdapter_BreakerOpensOnServerErrors(t *testing.T) {
	fj := &fakeJina{err: &jina.StatusError{StatusCode: http.StatusBadGateway}}
	a := NewJinaAdapter(fj)

	for i := 0; i < 3; i++ {
		_, _ = a.Scrape(context.Background(), "https://acme.com")
	}
	assert.False(t, a.Supports("https://acme.com"))

	_, err := a.Scrape(context.Background(), "https://acme.com")
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
	assert.Equal(t, 3, fj.calls)
}

func TestJinaAdapter_NotFoundDoesNotTrip(t *testing.T) {
	a := NewJinaAdapter(&fakeJina{err: &jina.StatusError{StatusCode: http.StatusNotFound}})
	for i := 0; i < 5; i++ {
		_, _ = a.Scrape(context.Background(), "https://acme.com/missing")
	}
	assert.True(t, a.Supports("https://acme.com"))
}

func TestFirecrawlAdapter(t *testing.T) {
	ff := &fakeFirecrawl{resp: &firecrawl.ScrapeResponse{Success: true, Data: firecrawl.PageData{
		Markdown: "# Acme", Metadata: firecrawl.Metadata{Title: "Acme", StatusCode: 200},
	}}}
	a := NewFirecrawlAdapter(ff, 20000)

	r, err := a.Scrape(context.Background(), "https://acme.com")
	require.NoError(t, err)
	assert.Equal(t, "firecrawl", r.Source)
	assert.Equal(t, "https://acme.com", r.Page.URL)
	assert.True(t, ff.req.OnlyMainContent)
	assert.Equal(t, 20000, ff.req.Timeout)
}

func TestFirecrawlAdapter_Error(t *testing.T) {
	a := NewFirecrawlAdapter(&fakeFirecrawl{err: errors.New("402")}, 0)
	_, err := a.Scrape(context.Background(), "https://acme.com")
	require.Error(t, err)
}
