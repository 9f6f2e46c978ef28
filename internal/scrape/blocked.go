package scrape

import (
	"net/http"
	"strings"
)

// BlockType describes the kind of anti-bot block detected.
type BlockType string

// Block types.
const (
	BlockNone       BlockType = ""
	BlockCloudflare BlockType = "cloudflare"
	BlockCaptcha    BlockType = "captcha"
	BlockJSShell    BlockType = "js_shell"
	BlockChallenge  BlockType = "challenge"
	BlockThin       BlockType = "thin"
)

// minContentChars is the smallest page body treated as real content.
const minContentChars = 100

var challengeSignatures = []string{
	"checking your browser",
	"enable javascript",
	"please enable cookies",
	"access denied",
	"403 forbidden",
	"just a moment",
	"attention required",
}

// DetectBlock checks a raw HTTP response for signs of anti-bot protection.
func DetectBlock(resp *http.Response, body []byte) (bool, BlockType) {
	if resp == nil {
		return false, BlockNone
	}

	if resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusServiceUnavailable {
		if resp.Header.Get("cf-ray") != "" || resp.Header.Get("server") == "cloudflare" {
			return true, BlockCloudflare
		}
	}

	lower := strings.ToLower(string(body))
	switch {
	case strings.Contains(lower, "cf-browser-verification"),
		strings.Contains(lower, "cloudflare") && strings.Contains(lower, "challenge"):
		return true, BlockCloudflare
	case strings.Contains(lower, "captcha"):
		return true, BlockCaptcha
	}

	if len(body) < 2000 {
		if strings.Contains(lower, "<noscript") && strings.Contains(lower, "javascript") {
			return true, BlockJSShell
		}
		if strings.Contains(lower, `meta http-equiv="refresh"`) {
			return true, BlockJSShell
		}
	}
	return false, BlockNone
}

// LooksBlocked inspects extracted page text. Short pages carrying a
// challenge phrase, or pages with almost no text, are not usable.
func LooksBlocked(text string) (bool, BlockType) {
	content := strings.TrimSpace(text)
	if len(content) < minContentChars {
		return true, BlockThin
	}
	if len(content) >= 1000 {
		return false, BlockNone
	}
	lower := strings.ToLower(content)
	for _, sig := range challengeSignatures {
		if strings.Contains(lower, sig) {
			return true, BlockChallenge
		}
	}
	return false, BlockNone
}
