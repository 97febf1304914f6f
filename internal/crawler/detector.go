package crawler

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var blockStatuses = map[int]struct{}{
	403: {},
	429: {},
	503: {},
}

// blockSignals are challenge-page markers scanned for in lowercased bodies.
var blockSignals = []string{
	"captcha",
	"access denied",
	"blocked",
	"cloudflare",
	"please verify you are human",
	"enable javascript and cookies",
	"checking your browser",
	"ddos-guard",
	"bot detected",
}

// BlockDetector recognizes rate-limit and anti-bot responses.
type BlockDetector struct{}

// Blocked reports whether the response status or body indicates a bot block.
func (BlockDetector) Blocked(status int, html string) bool {
	if _, ok := blockStatuses[status]; ok {
		return true
	}
	lower := strings.ToLower(html)
	for _, signal := range blockSignals {
		if strings.Contains(lower, signal) {
			return true
		}
	}
	return false
}

// Selectors that hold the whole app on JavaScript-rendered sites.
var shellMounts = []string{"#root", "#app", "#__next"}

// ShellDetector decides whether a statically fetched document is only a
// JavaScript app shell that needs a real browser to render.
type ShellDetector struct {
	MinContentBytes int
}

// NewShellDetector creates a detector; threshold zero means the default floor.
func NewShellDetector(minContentBytes int) *ShellDetector {
	if minContentBytes <= 0 {
		minContentBytes = 2048
	}
	return &ShellDetector{MinContentBytes: minContentBytes}
}

// NeedsBrowser reports whether the document warrants a headless-browser
// refetch.
func (d *ShellDetector) NeedsBrowser(html string) bool {
	if len(html) < d.MinContentBytes {
		return true
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return false
	}
	needs := false
	doc.Find("noscript").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := strings.ToLower(s.Text())
		if strings.Contains(text, "enable javascript") || strings.Contains(text, "javascript is required") {
			needs = true
			return false
		}
		return true
	})
	if needs {
		return true
	}
	for _, sel := range shellMounts {
		mount := doc.Find(sel)
		if mount.Length() > 0 && strings.TrimSpace(mount.Text()) == "" {
			return true
		}
	}
	return false
}
