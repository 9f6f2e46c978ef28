package model

import "encoding/json"

// CrawledPage is a single fetched page as returned by a scraper.
type CrawledPage struct {
	URL        string `json:"url"`
	Title      string `json:"title"`
	Markdown   string `json:"markdown"`
	StatusCode int    `json:"status_code"`
}

// ScrapedPage is one entry of ScrapedContent.
type ScrapedPage struct {
	URL    string `json:"url"`
	Text   string `json:"text"`
	Source string `json:"source,omitempty"`
}

// ScrapedContent maps URL to extracted text. Keys are unique and iteration
// order is fetch order. The zero value is empty and ready to use.
type ScrapedContent struct {
	pages []ScrapedPage
	index map[string]int
}

// Add records a page. It returns false if the URL is already present.
func (s *ScrapedContent) Add(p ScrapedPage) bool {
	if s.index == nil {
		s.index = make(map[string]int)
	}
	if _, ok := s.index[p.URL]; ok {
		return false
	}
	s.index[p.URL] = len(s.pages)
	s.pages = append(s.pages, p)
	return true
}

// Get returns the text for url.
func (s ScrapedContent) Get(url string) (string, bool) {
	i, ok := s.index[url]
	if !ok {
		return "", false
	}
	return s.pages[i].Text, true
}

// Has reports whether url was fetched.
func (s ScrapedContent) Has(url string) bool {
	_, ok := s.index[url]
	return ok
}

// Pages returns the pages in fetch order.
func (s ScrapedContent) Pages() []ScrapedPage {
	out := make([]ScrapedPage, len(s.pages))
	copy(out, s.pages)
	return out
}

// URLs returns the fetched URLs in fetch order.
func (s ScrapedContent) URLs() []string {
	out := make([]string, len(s.pages))
	for i, p := range s.pages {
		out[i] = p.URL
	}
	return out
}

// Len returns the number of pages.
func (s ScrapedContent) Len() int { return len(s.pages) }

// Merge returns a copy of s with the pages of other appended, skipping URLs
// already present.
func (s ScrapedContent) Merge(other ScrapedContent) ScrapedContent {
	var out ScrapedContent
	for _, p := range s.pages {
		out.Add(p)
	}
	for _, p := range other.pages {
		out.Add(p)
	}
	return out
}

// MarshalJSON encodes the content as an ordered list of pages.
func (s ScrapedContent) MarshalJSON() ([]byte, error) {
	if s.pages == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(s.pages)
}

// UnmarshalJSON decodes an ordered list of pages.
func (s *ScrapedContent) UnmarshalJSON(data []byte) error {
	var pages []ScrapedPage
	if err := json.Unmarshal(data, &pages); err != nil {
		return err
	}
	*s = ScrapedContent{}
	for _, p := range pages {
		s.Add(p)
	}
	return nil
}
