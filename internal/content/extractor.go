// Package content turns raw fetched markup into the normalized structured
// signals the rest of the system works with: clean body text, word count,
// title, headings, and internal links. Extraction is pure and deterministic.
package content

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// ErrMalformed reports input that could not be parsed as a markup document.
// Extraction failures are data problems: callers must not retry them.
var ErrMalformed = errors.New("malformed document")

// Tags whose whole subtree is boilerplate rather than page copy.
var stripSelector = strings.Join([]string{
	"script", "style", "noscript", "nav", "footer", "header", "aside",
	"form", "iframe", "svg", "button", "input", "select", "textarea",
	"figure", "figcaption",
}, ", ")

var skipLinkPrefixes = []string{"#", "mailto:", "tel:", "javascript:"}

// Heading is one document heading with its level tag ("h1".."h4").
type Heading struct {
	Level string `json:"level"`
	Text  string `json:"text"`
}

// Extracted holds the structured content signals harvested from one page.
type Extracted struct {
	Title           string    `json:"title"`
	MetaDescription string    `json:"meta_description"`
	H1              string    `json:"h1"`
	Headings        []Heading `json:"headings"`
	CleanText       string    `json:"clean_text"`
	WordCount       int       `json:"word_count"`
	InternalLinks   []string  `json:"internal_links"`
}

// Extract parses raw markup fetched from pageURL. Headings are collected
// before boilerplate removal; body text and links are read from the stripped
// document, so navigation and footer links never count as internal links.
func Extract(rawHTML, pageURL string) (*Extracted, error) {
	if strings.TrimSpace(rawHTML) == "" {
		return nil, fmt.Errorf("%w: empty document", ErrMalformed)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("parse page url: %w", err)
	}

	out := &Extracted{
		Title: strings.TrimSpace(doc.Find("title").First().Text()),
	}

	doc.Find("meta").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if name, _ := s.Attr("name"); strings.EqualFold(name, "description") {
			out.MetaDescription = strings.TrimSpace(s.AttrOr("content", ""))
			return false
		}
		return true
	})

	for _, level := range []string{"h1", "h2", "h3", "h4"} {
		doc.Find(level).Each(func(_ int, s *goquery.Selection) {
			text := joinedText(s, " ")
			if text == "" {
				return
			}
			if level == "h1" && out.H1 == "" {
				out.H1 = text
			}
			out.Headings = append(out.Headings, Heading{Level: level, Text: text})
		})
	}

	doc.Find(stripSelector).Remove()

	body := doc.Find("body")
	if body.Length() == 0 {
		body = doc.Selection
	}
	out.CleanText = cleanText(body)
	out.WordCount = len(strings.Fields(out.CleanText))
	out.InternalLinks = internalLinks(doc, base)

	return out, nil
}

// cleanText flattens the selection's text nodes one per line, trims each
// line, and drops empty ones.
func cleanText(sel *goquery.Selection) string {
	raw := joinedText(sel, "\n")
	var lines []string
	for _, line := range strings.Split(raw, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

func joinedText(sel *goquery.Selection, sep string) string {
	var parts []string
	for _, n := range sel.Nodes {
		collectText(n, &parts)
	}
	return strings.Join(parts, sep)
}

func collectText(n *html.Node, parts *[]string) {
	if n.Type == html.TextNode {
		if t := strings.TrimSpace(n.Data); t != "" {
			*parts = append(*parts, t)
		}
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, parts)
	}
}

func internalLinks(doc *goquery.Document, base *url.URL) []string {
	var links []string
	seen := make(map[string]struct{})
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href := strings.TrimSpace(s.AttrOr("href", ""))
		if href == "" || hasSkippedPrefix(href) {
			return
		}
		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		abs := base.ResolveReference(ref)
		if !strings.EqualFold(abs.Host, base.Host) {
			return
		}
		abs.Fragment = ""
		normalized := abs.String()
		if _, ok := seen[normalized]; ok {
			return
		}
		seen[normalized] = struct{}{}
		links = append(links, normalized)
	})
	return links
}

func hasSkippedPrefix(href string) bool {
	for _, p := range skipLinkPrefixes {
		if strings.HasPrefix(href, p) {
			return true
		}
	}
	return false
}
