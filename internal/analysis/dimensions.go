package analysis

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/plexfield/pagewatch/internal/content"
)

// Dimension weights for the overall depth score.
var dimensionWeights = map[string]float64{
	"question_coverage":     0.25,
	"faq_coverage":          0.20,
	"heading_structure":     0.15,
	"word_count":            0.15,
	"transactional_clarity": 0.10,
	"trust_signals":         0.05,
	"freshness":             0.05,
	"internal_linking":      0.05,
}

// Slugs that are competitions rather than team pages; their question catalog
// differs.
var competitionSlugs = map[string]struct{}{
	"fa-cup":           {},
	"world-cup":        {},
	"champions-league": {},
	"europa-league":    {},
	"euro":             {},
}

var teamQuestions = []string{
	"Where is the stadium and how do I get there?",
	"How much do tickets cost?",
	"How do I actually buy tickets?",
	"When are the next fixtures?",
	"Are there hospitality or premium options?",
	"What should I know as a visitor or away fan?",
	"Is this site trustworthy?",
}

var competitionQuestions = []string{
	"What rounds or stages are available?",
	"Which teams are involved?",
	"When are the matches?",
	"Where are the venues?",
	"How do I buy?",
	"What is the price range?",
}

func questionsFor(slug string) []string {
	if _, ok := competitionSlugs[slug]; ok {
		return competitionQuestions
	}
	return teamQuestions
}

// findQuote returns a short surrounding quote when keyword appears in text.
func findQuote(text, keyword string) string {
	idx := strings.Index(strings.ToLower(text), strings.ToLower(keyword))
	if idx < 0 {
		return ""
	}
	start := idx - 20
	if start < 0 {
		start = 0
	}
	end := idx + 80
	if end > len(text) {
		end = len(text)
	}
	return strings.TrimSpace(text[start:end])
}

// scoreWordCount is the hard word-count measurement (dimension 1).
func scoreWordCount(wc int) (float64, string) {
	var score float64
	switch {
	case wc < 300:
		score = 2
	case wc < 600:
		score = 4
	case wc < 900:
		score = 6
	case wc < 1200:
		score = 7
	case wc < 1800:
		score = 8
	default:
		score = 10
	}
	return score, fmt.Sprintf("%d words in extracted body text", wc)
}

// headingProfile is the measured half of the heading-structure dimension; the
// model adds a diversity adjustment on top of the base.
type headingProfile struct {
	base     float64
	h2Texts  []string
	h3Count  int
	evidence string
}

func profileHeadings(headings []content.Heading) headingProfile {
	var h2Texts []string
	h3Count := 0
	for _, h := range headings {
		switch h.Level {
		case "h2":
			h2Texts = append(h2Texts, h.Text)
		case "h3":
			h3Count++
		}
	}
	n2 := len(h2Texts)

	var base float64
	switch {
	case n2 == 0:
		base = 1
	case n2 <= 2:
		base = 4
	case n2 <= 4:
		base = 6
	case h3Count > 0:
		base = 9
	default:
		base = 7
	}

	evidence := fmt.Sprintf("%d H2s, %d H3s", n2, h3Count)
	if n2 > 0 {
		shown := h2Texts
		if len(shown) > 5 {
			shown = shown[:5]
		}
		evidence += ". H2s: " + strings.Join(shown, ", ")
	}
	return headingProfile{base: base, h2Texts: h2Texts, h3Count: h3Count, evidence: evidence}
}

// trustCategory pairs a category name with the keywords that evidence it.
type trustCategory struct {
	name     string
	keywords []string
}

var trustCategories = []trustCategory{
	{"guarantee", []string{"100% guarantee", "money back guarantee", "guaranteed", "100%"}},
	{"reviews", []string{"trustpilot", "reviews", "rated", "stars", "rating"}},
	{"experience", []string{"years experience", "since 19", "since 20", "established in"}},
	{"security", []string{"secure payment", "ssl", "secure checkout", "safe and secure", "encrypted"}},
	{"official", []string{"official", "authorised", "authorized", "licensed seller", "official partner"}},
}

// trustFinding is one evidenced trust-signal category.
type trustFinding struct {
	Category string
	Quote    string
}

// scoreTrustSignals scans for trust-signal categories, two points each.
func scoreTrustSignals(text string) (float64, []trustFinding) {
	var found []trustFinding
	for _, cat := range trustCategories {
		for _, kw := range cat.keywords {
			if quote := findQuote(text, kw); quote != "" {
				found = append(found, trustFinding{Category: cat.name, Quote: quote})
				break
			}
		}
	}
	score := float64(len(found) * 2)
	if score > 10 {
		score = 10
	}
	return score, found
}

var (
	seasonPattern     = regexp.MustCompile(`\b(202[5-9](?:/\d{2})?|2025-2[0-9])\b`)
	fixtureFull       = regexp.MustCompile(`\b(January|February|March|April|May|June|July|August|September|October|November|December)\s+\d{1,2}(?:st|nd|rd|th)?,?\s+202[5-9]\b`)
	fixtureShort      = regexp.MustCompile(`\b(Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)\s+\d{1,2}\b`)
	formPattern       = regexp.MustCompile(`(?i)\b(current form|recent results?|latest results?|this season)\b`)
	freshnessLanguage = regexp.MustCompile(`(?i)\b(upcoming|latest|new for|new season)\b`)
)

// scoreFreshness scans for freshness signals, 2.5 points each, truncated to
// an integer value and capped at 10.
func scoreFreshness(text string) (float64, []string) {
	var signals []string

	if m := seasonPattern.FindString(text); m != "" {
		signals = append(signals, fmt.Sprintf("season/year reference: '%s'", m))
	}
	if m := fixtureFull.FindString(text); m != "" {
		if len(m) > 60 {
			m = m[:60]
		}
		signals = append(signals, fmt.Sprintf("fixture date: '%s'", m))
	} else if fixtureShort.MatchString(text) {
		signals = append(signals, "fixture dates present")
	}
	if m := formPattern.FindString(text); m != "" {
		if len(m) > 50 {
			m = m[:50]
		}
		signals = append(signals, fmt.Sprintf("form/results language: '%s'", m))
	}
	if m := freshnessLanguage.FindString(text); m != "" {
		signals = append(signals, fmt.Sprintf("freshness language: '%s'", m))
	}

	score := float64(int(float64(len(signals)) * 2.5))
	if score > 10 {
		score = 10
	}
	return score, signals
}

var faqMarkers = []string{"frequently asked", "faq", "common questions", "people also ask"}

var questionStarts = []string{
	"how ", "what ", "where ", "when ", "can ", "do ", "is ",
	"are ", "why ", "which ", "will ",
}

// faqResult is the FAQ-coverage measurement.
type faqResult struct {
	score            float64
	hasExplicit      bool
	questionHeadings []string
	evidence         string
}

// scoreFAQ detects explicit FAQ sections and question-format headings.
func scoreFAQ(text string, headings []content.Heading) faqResult {
	lower := strings.ToLower(text)
	hasExplicit := false
	for _, marker := range faqMarkers {
		if strings.Contains(lower, marker) {
			hasExplicit = true
			break
		}
	}

	var questionHeadings []string
	for _, h := range headings {
		headingLower := strings.ToLower(h.Text)
		for _, start := range questionStarts {
			if strings.HasPrefix(headingLower, start) {
				questionHeadings = append(questionHeadings, h.Text)
				break
			}
		}
	}
	count := len(questionHeadings)

	var score float64
	switch {
	case hasExplicit && count >= 5:
		score = 10
	case hasExplicit || count >= 3:
		score = 7
	case count >= 1:
		score = 4
	default:
		score = 0
	}

	var evidence string
	switch {
	case hasExplicit && count > 0:
		evidence = fmt.Sprintf("Explicit FAQ section with %d question headings", count)
	case hasExplicit:
		evidence = "Explicit FAQ section found (no question-format headings detected)"
	case count > 0:
		evidence = fmt.Sprintf("%d question-format heading(s) found", count)
	default:
		evidence = "No FAQ section or question-format headings found"
	}

	return faqResult{score: score, hasExplicit: hasExplicit, questionHeadings: questionHeadings, evidence: evidence}
}

// scoreInternalLinks scores directly from the stored link count.
func scoreInternalLinks(links []string) (float64, string) {
	count := len(links)
	var score float64
	switch {
	case count >= 10:
		score = 10
	case count >= 6:
		score = 7
	case count >= 3:
		score = 5
	default:
		score = 2
	}
	return score, fmt.Sprintf("%d internal links found", count)
}

// weightedAverage combines dimension scores into the overall depth score,
// rounded to one decimal.
func weightedAverage(scores map[string]float64) float64 {
	sum := 0.0
	for key, weight := range dimensionWeights {
		if score, ok := scores[key]; ok {
			sum += weight * score
		}
	}
	return round1(sum)
}
