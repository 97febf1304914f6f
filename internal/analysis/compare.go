package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/plexfield/pagewatch/internal/content"
)

// PageContent is one side of a comparison, read from the latest snapshot.
type PageContent struct {
	URL           string
	Text          string
	Headings      []content.Heading
	WordCount     int
	InternalLinks []string
}

// DimensionScore is one of the eight scored comparison dimensions.
type DimensionScore struct {
	Name               string  `json:"dimension"`
	Self               float64 `json:"score_mine"`
	Competitor         float64 `json:"score_competitor"`
	Gap                float64 `json:"gap"`
	SelfEvidence       string  `json:"my_evidence"`
	CompetitorEvidence string  `json:"competitor_evidence"`
	Recommendation     string  `json:"recommendation"`
}

// Comparison is the full side-by-side depth result for one slug pair.
type Comparison struct {
	Slug                string             `json:"slug"`
	SelfURL             string             `json:"self_url"`
	CompetitorURL       string             `json:"competitor_url"`
	SelfWordCount       int                `json:"self_word_count"`
	CompetitorWordCount int                `json:"competitor_word_count"`
	SelfScore           int                `json:"self_depth_score"`
	CompetitorScore     int                `json:"competitor_depth_score"`
	SelfWeighted        float64            `json:"self_depth_score_weighted"`
	CompetitorWeighted  float64            `json:"competitor_depth_score_weighted"`
	SelfDimensions      map[string]float64 `json:"self_dimension_scores"`
	CompetitorDims      map[string]float64 `json:"competitor_dimension_scores"`
	Dimensions          []DimensionScore   `json:"dimensions"`
	ContentGaps         string             `json:"content_gaps"`
	Keywords            []string           `json:"keywords_they_cover"`
	Recommendations     string             `json:"recommendations"`
}

// Comparer runs the eight-dimension comparison. A nil client means the
// deterministic dimensions stand alone with neutral judged values.
type Comparer struct {
	client    Client
	model     string
	maxTokens int64
	logger    *zap.Logger
}

// NewComparer builds a Comparer; client may be nil when analysis is disabled.
func NewComparer(client Client, model string, logger *zap.Logger) *Comparer {
	if model == "" {
		model = DefaultModel
	}
	return &Comparer{client: client, model: model, maxTokens: 2500, logger: logger}
}

// Compare scores both pages of a slug across the eight dimensions. It always
// returns a usable Comparison; model failures only degrade the judged
// dimensions.
func (c *Comparer) Compare(ctx context.Context, slug string, self, competitor PageContent) *Comparison {
	selfWords, selfWordsEv := scoreWordCount(self.WordCount)
	compWords, compWordsEv := scoreWordCount(competitor.WordCount)

	selfHeadings := profileHeadings(self.Headings)
	compHeadings := profileHeadings(competitor.Headings)

	selfTrust, selfTrustFound := scoreTrustSignals(self.Text)
	compTrust, compTrustFound := scoreTrustSignals(competitor.Text)

	selfFresh, selfFreshSignals := scoreFreshness(self.Text)
	compFresh, compFreshSignals := scoreFreshness(competitor.Text)

	selfFAQ := scoreFAQ(self.Text, self.Headings)
	compFAQ := scoreFAQ(competitor.Text, competitor.Headings)

	selfLinks, selfLinksEv := scoreInternalLinks(self.InternalLinks)
	compLinks, compLinksEv := scoreInternalLinks(competitor.InternalLinks)

	judged := c.judge(ctx, slug, self, selfHeadings.h2Texts, competitor, compHeadings.h2Texts)

	selfHeadingScore := clampScore(selfHeadings.base+float64(judged.selfHeadingAdj), 1, 10)
	compHeadingScore := clampScore(compHeadings.base+float64(judged.compHeadingAdj), 1, 10)

	selfScores := map[string]float64{
		"word_count":            selfWords,
		"heading_structure":     selfHeadingScore,
		"question_coverage":     judged.selfQuestions,
		"trust_signals":         selfTrust,
		"transactional_clarity": judged.selfClarity,
		"freshness":             selfFresh,
		"faq_coverage":          selfFAQ.score,
		"internal_linking":      selfLinks,
	}
	compScores := map[string]float64{
		"word_count":            compWords,
		"heading_structure":     compHeadingScore,
		"question_coverage":     judged.compQuestions,
		"trust_signals":         compTrust,
		"transactional_clarity": judged.compClarity,
		"freshness":             compFresh,
		"faq_coverage":          compFAQ.score,
		"internal_linking":      compLinks,
	}

	selfWeighted := weightedAverage(selfScores)
	compWeighted := weightedAverage(compScores)

	headingRec := "Heading structure is competitive."
	if selfHeadingScore < compHeadingScore {
		headingRec = "Add more H2s covering distinct subtopics; use H3s for sub-sections."
	}

	dims := []DimensionScore{
		{
			Name: "Word Count Adequacy", Self: selfWords, Competitor: compWords,
			Gap: compWords - selfWords, SelfEvidence: selfWordsEv, CompetitorEvidence: compWordsEv,
			Recommendation: wordCountRecommendation(self.WordCount, competitor.WordCount),
		},
		{
			Name: "Heading Structure", Self: selfHeadingScore, Competitor: compHeadingScore,
			Gap:                compHeadingScore - selfHeadingScore,
			SelfEvidence:       withVerdict(selfHeadings.evidence, judged.selfHeadingVerdict),
			CompetitorEvidence: withVerdict(compHeadings.evidence, judged.compHeadingVerdict),
			Recommendation:     headingRec,
		},
		{
			Name: "Question Coverage", Self: judged.selfQuestions, Competitor: judged.compQuestions,
			Gap:                judged.compQuestions - judged.selfQuestions,
			SelfEvidence:       formatAnswers(judged.selfAnswers),
			CompetitorEvidence: formatAnswers(judged.compAnswers),
			Recommendation:     questionRecommendation(judged.selfAnswers),
		},
		{
			Name: "Trust Signals", Self: selfTrust, Competitor: compTrust,
			Gap:                compTrust - selfTrust,
			SelfEvidence:       formatTrust(selfTrustFound),
			CompetitorEvidence: formatTrust(compTrustFound),
			Recommendation:     trustRecommendation(selfTrustFound),
		},
		{
			Name: "Transactional Clarity", Self: judged.selfClarity, Competitor: judged.compClarity,
			Gap:                judged.compClarity - judged.selfClarity,
			SelfEvidence:       formatClarity(judged.selfClarityDetail),
			CompetitorEvidence: formatClarity(judged.compClarityDetail),
			Recommendation:     clarityRecommendation(judged.selfClarityDetail),
		},
		{
			Name: "Freshness Signals", Self: selfFresh, Competitor: compFresh,
			Gap:                compFresh - selfFresh,
			SelfEvidence:       formatSignals(selfFreshSignals),
			CompetitorEvidence: formatSignals(compFreshSignals),
			Recommendation:     "Add current season year, upcoming fixture dates, and 'latest/upcoming' language.",
		},
		{
			Name: "FAQ Coverage", Self: selfFAQ.score, Competitor: compFAQ.score,
			Gap:                compFAQ.score - selfFAQ.score,
			SelfEvidence:       faqEvidence(selfFAQ),
			CompetitorEvidence: faqEvidence(compFAQ),
			Recommendation:     faqRecommendation(slug),
		},
		{
			Name: "Internal Linking", Self: selfLinks, Competitor: compLinks,
			Gap: compLinks - selfLinks, SelfEvidence: selfLinksEv, CompetitorEvidence: compLinksEv,
			Recommendation: fmt.Sprintf(
				"Add more internal links to related pages. Currently %d, target 10+ with descriptive anchor text.",
				len(self.InternalLinks)),
		},
	}

	return &Comparison{
		Slug:                slug,
		SelfURL:             self.URL,
		CompetitorURL:       competitor.URL,
		SelfWordCount:       self.WordCount,
		CompetitorWordCount: competitor.WordCount,
		SelfScore:           int(math.Round(selfWeighted)),
		CompetitorScore:     int(math.Round(compWeighted)),
		SelfWeighted:        selfWeighted,
		CompetitorWeighted:  compWeighted,
		SelfDimensions:      selfScores,
		CompetitorDims:      compScores,
		Dimensions:          dims,
		ContentGaps:         judged.contentGaps,
		Keywords:            judged.keywords,
		Recommendations:     judged.recommendations,
	}
}

// judgedDimensions holds the model's half of the comparison, with neutral
// defaults when the model is unavailable.
type judgedDimensions struct {
	selfHeadingAdj     int
	compHeadingAdj     int
	selfHeadingVerdict string
	compHeadingVerdict string
	selfQuestions      float64
	compQuestions      float64
	selfAnswers        map[string]aiAnswer
	compAnswers        map[string]aiAnswer
	selfClarity        float64
	compClarity        float64
	selfClarityDetail  *aiClarity
	compClarityDetail  *aiClarity
	contentGaps        string
	keywords           []string
	recommendations    string
}

func neutralJudged() judgedDimensions {
	return judgedDimensions{
		selfHeadingVerdict: "AI analysis unavailable",
		compHeadingVerdict: "AI analysis unavailable",
		contentGaps:        "[AI analysis unavailable]",
		recommendations:    "[AI analysis unavailable]",
	}
}

type aiAnswer struct {
	Answered bool   `json:"answered"`
	Quote    string `json:"quote"`
}

type aiClarityElement struct {
	Found bool   `json:"found"`
	Quote string `json:"quote"`
}

type aiClarity struct {
	CTA            aiClarityElement `json:"cta"`
	PriceRange     aiClarityElement `json:"price_range"`
	DeliveryMethod aiClarityElement `json:"delivery_method"`
	BookingProcess aiClarityElement `json:"booking_process"`
	Score          float64          `json:"score"`
}

type aiHeadingVerdict struct {
	ScoreAdjustment int    `json:"score_adjustment"`
	Verdict         string `json:"verdict"`
}

type aiQuestionSide struct {
	Answers map[string]aiAnswer `json:"answers"`
	Score   float64             `json:"score"`
}

type aiResponse struct {
	HeadingDiversity struct {
		Mine       aiHeadingVerdict `json:"mine"`
		Competitor aiHeadingVerdict `json:"competitor"`
	} `json:"heading_diversity"`
	QuestionCoverage struct {
		Mine       aiQuestionSide `json:"mine"`
		Competitor aiQuestionSide `json:"competitor"`
	} `json:"question_coverage"`
	TransactionalClarity struct {
		Mine       aiClarity `json:"mine"`
		Competitor aiClarity `json:"competitor"`
	} `json:"transactional_clarity"`
	ContentGaps     string   `json:"content_gaps"`
	Keywords        []string `json:"keywords_they_cover"`
	Recommendations string   `json:"recommendations"`
}

// judge runs the single model call covering heading diversity, question
// coverage, and transactional clarity.
func (c *Comparer) judge(ctx context.Context, slug string, self PageContent, selfH2s []string, competitor PageContent, compH2s []string) judgedDimensions {
	if c.client == nil {
		return neutralJudged()
	}

	prompt, err := comparePrompt(slug, self, selfH2s, competitor, compH2s)
	if err != nil {
		c.logger.Error("build comparison prompt failed", zap.String("slug", slug), zap.Error(err))
		return neutralJudged()
	}

	resp, err := c.client.CreateMessage(ctx, MessageRequest{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		Messages:  []Message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		c.logger.Error("comparison model call failed", zap.String("slug", slug), zap.Error(err))
		return neutralJudged()
	}

	raw := stripCodeFence(strings.TrimSpace(firstText(resp)))
	var parsed aiResponse
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		c.logger.Error("comparison model returned invalid JSON",
			zap.String("slug", slug), zap.Error(err))
		return neutralJudged()
	}

	return judgedDimensions{
		selfHeadingAdj:     clampAdjustment(parsed.HeadingDiversity.Mine.ScoreAdjustment),
		compHeadingAdj:     clampAdjustment(parsed.HeadingDiversity.Competitor.ScoreAdjustment),
		selfHeadingVerdict: parsed.HeadingDiversity.Mine.Verdict,
		compHeadingVerdict: parsed.HeadingDiversity.Competitor.Verdict,
		selfQuestions:      clampScore(parsed.QuestionCoverage.Mine.Score, 0, 10),
		compQuestions:      clampScore(parsed.QuestionCoverage.Competitor.Score, 0, 10),
		selfAnswers:        parsed.QuestionCoverage.Mine.Answers,
		compAnswers:        parsed.QuestionCoverage.Competitor.Answers,
		selfClarity:        clampScore(parsed.TransactionalClarity.Mine.Score, 0, 10),
		compClarity:        clampScore(parsed.TransactionalClarity.Competitor.Score, 0, 10),
		selfClarityDetail:  &parsed.TransactionalClarity.Mine,
		compClarityDetail:  &parsed.TransactionalClarity.Competitor,
		contentGaps:        parsed.ContentGaps,
		keywords:           parsed.Keywords,
		recommendations:    parsed.Recommendations,
	}
}

func comparePrompt(slug string, self PageContent, selfH2s []string, competitor PageContent, compH2s []string) (string, error) {
	questions := questionsFor(slug)
	questionsJSON, err := json.Marshal(questions)
	if err != nil {
		return "", fmt.Errorf("encode questions: %w", err)
	}
	selfH2JSON, err := json.Marshal(selfH2s)
	if err != nil {
		return "", fmt.Errorf("encode headings: %w", err)
	}
	compH2JSON, err := json.Marshal(compH2s)
	if err != nil {
		return "", fmt.Errorf("encode headings: %w", err)
	}

	return fmt.Sprintf(`You are a content analyst for a football ticket marketplace.
Analyze two pages for the topic %q.

=== MY PAGE (%s) ===
H2 headings: %s
Content:
%s

=== COMPETITOR PAGE (%s) ===
H2 headings: %s
Content:
%s

Respond with ONLY valid JSON, no markdown fences, no explanation. Use this exact structure:

{
  "heading_diversity": {
    "mine": {"score_adjustment": 0, "verdict": "One sentence: do the H2s cover meaningfully different subtopics, or are they repetitive?"},
    "competitor": {"score_adjustment": 0, "verdict": "One sentence verdict."}
  },
  "question_coverage": {
    "mine": {"answers": {"QUESTION_TEXT": {"answered": true, "quote": "exact short quote from MY PAGE or null"}}, "score": 0},
    "competitor": {"answers": {"QUESTION_TEXT": {"answered": true, "quote": "exact short quote from COMPETITOR or null"}}, "score": 0}
  },
  "transactional_clarity": {
    "mine": {"cta": {"found": false, "quote": null}, "price_range": {"found": false, "quote": null}, "delivery_method": {"found": false, "quote": null}, "booking_process": {"found": false, "quote": null}, "score": 0},
    "competitor": {"cta": {"found": false, "quote": null}, "price_range": {"found": false, "quote": null}, "delivery_method": {"found": false, "quote": null}, "booking_process": {"found": false, "quote": null}, "score": 0}
  },
  "content_gaps": "Specific topics/sections competitor covers that my page does not.",
  "keywords_they_cover": ["keyword1", "keyword2"],
  "recommendations": "3-5 concrete, actionable improvements for my page."
}

Rules, read carefully:
- Replace every QUESTION_TEXT key with the actual question from this list: %s
- heading_diversity.score_adjustment: +2 if H2s cover distinctly varied subtopics, 0 if adequate, -2 if repetitive
- question_coverage score = round((answered_count / %d) * 10)
- transactional_clarity score = each of 4 elements found adds 2.5 points (max 10)
- For "quote": copy the EXACT text from the page (max 100 chars). Use null if not found.
- NEVER invent quotes. Only quote text that is literally present in the page content above.`,
		slug,
		self.URL, selfH2JSON, truncate(self.Text, 5000),
		competitor.URL, compH2JSON, truncate(competitor.Text, 5000),
		questionsJSON, len(questions)), nil
}

// stripCodeFence removes a surrounding markdown code fence if the model adds
// one despite instructions.
func stripCodeFence(raw string) string {
	if !strings.HasPrefix(raw, "```") {
		return raw
	}
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(strings.TrimSpace(raw), "```")
	return strings.TrimSpace(raw)
}

func clampAdjustment(adj int) int {
	if adj > 2 {
		return 2
	}
	if adj < -2 {
		return -2
	}
	return adj
}

func clampScore(score, lo, hi float64) float64 {
	if score < lo {
		return lo
	}
	if score > hi {
		return hi
	}
	return score
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func withVerdict(evidence, verdict string) string {
	if verdict == "" {
		return evidence
	}
	return evidence + ". " + verdict
}

func formatAnswers(answers map[string]aiAnswer) string {
	if len(answers) == 0 {
		return "No question coverage data available."
	}
	lines := make([]string, 0, len(answers))
	for _, q := range allQuestionOrder(answers) {
		a := answers[q]
		mark := "no"
		if a.Answered {
			mark = "yes"
		}
		line := fmt.Sprintf("[%s] %s", mark, q)
		if a.Quote != "" {
			line += fmt.Sprintf(": %q", a.Quote)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

// allQuestionOrder keeps evidence lines in catalog order where possible, with
// any unexpected keys appended.
func allQuestionOrder(answers map[string]aiAnswer) []string {
	seen := make(map[string]bool, len(answers))
	var ordered []string
	for _, catalog := range [][]string{teamQuestions, competitionQuestions} {
		for _, q := range catalog {
			if _, ok := answers[q]; ok && !seen[q] {
				ordered = append(ordered, q)
				seen[q] = true
			}
		}
	}
	for q := range answers {
		if !seen[q] {
			ordered = append(ordered, q)
		}
	}
	return ordered
}

func formatTrust(found []trustFinding) string {
	if len(found) == 0 {
		return "No trust signals detected."
	}
	parts := make([]string, 0, len(found))
	for _, f := range found {
		quote := f.Quote
		if len(quote) > 80 {
			quote = quote[:80]
		}
		parts = append(parts, fmt.Sprintf("%s: %q", f.Category, quote))
	}
	return strings.Join(parts, "; ")
}

func formatSignals(signals []string) string {
	if len(signals) == 0 {
		return "No freshness signals detected."
	}
	return strings.Join(signals, "; ")
}

var clarityElements = []string{"cta", "price_range", "delivery_method", "booking_process"}

func clarityElement(detail *aiClarity, name string) aiClarityElement {
	switch name {
	case "cta":
		return detail.CTA
	case "price_range":
		return detail.PriceRange
	case "delivery_method":
		return detail.DeliveryMethod
	default:
		return detail.BookingProcess
	}
}

func clarityLabel(name string) string {
	words := strings.Split(name, "_")
	for i, w := range words {
		if w == "cta" {
			words[i] = "CTA"
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func formatClarity(detail *aiClarity) string {
	if detail == nil {
		return "No transactional data available."
	}
	lines := make([]string, 0, len(clarityElements))
	for _, name := range clarityElements {
		el := clarityElement(detail, name)
		if el.Found {
			lines = append(lines, fmt.Sprintf("[yes] %s: %q", clarityLabel(name), el.Quote))
		} else {
			lines = append(lines, fmt.Sprintf("[no] %s: not found", clarityLabel(name)))
		}
	}
	return strings.Join(lines, "\n")
}

func wordCountRecommendation(selfWC, compWC int) string {
	if selfWC >= compWC {
		return fmt.Sprintf("Word count (%d) is already competitive.", selfWC)
	}
	return fmt.Sprintf(
		"Add ~%d words to match competitor. Focus on informational sections: stadium guide, travel, FAQs, history.",
		compWC-selfWC)
}

func questionRecommendation(answers map[string]aiAnswer) string {
	if len(answers) == 0 {
		return "Ensure your page answers all key buyer questions."
	}
	var missing []string
	for _, q := range allQuestionOrder(answers) {
		if !answers[q].Answered {
			missing = append(missing, q)
		}
	}
	if len(missing) == 0 {
		return "All key buyer questions are answered."
	}
	return "Add content answering: " + strings.Join(missing, "; ")
}

func trustRecommendation(found []trustFinding) string {
	present := make(map[string]bool, len(found))
	for _, f := range found {
		present[f.Category] = true
	}
	var missing []string
	for _, cat := range trustCategories {
		if !present[cat.name] {
			missing = append(missing, cat.name)
		}
	}
	if len(missing) == 0 {
		return "Trust signals are comprehensive."
	}
	return "Add missing trust signals: " + strings.Join(missing, ", ")
}

func clarityRecommendation(detail *aiClarity) string {
	if detail == nil {
		return "Ensure page has clear CTA, price range, delivery info, and booking process."
	}
	var missing []string
	for _, name := range clarityElements {
		if !clarityElement(detail, name).Found {
			missing = append(missing, strings.ReplaceAll(name, "_", " "))
		}
	}
	if len(missing) == 0 {
		return "All transactional elements are present."
	}
	return "Add missing transactional elements: " + strings.Join(missing, ", ")
}

func faqEvidence(res faqResult) string {
	if len(res.questionHeadings) == 0 {
		return res.evidence
	}
	shown := res.questionHeadings
	if len(shown) > 3 {
		shown = shown[:3]
	}
	return res.evidence + ": " + strings.Join(shown, ", ")
}

func faqRecommendation(slug string) string {
	questions := questionsFor(slug)
	if len(questions) > 5 {
		questions = questions[:5]
	}
	lines := make([]string, 0, len(questions))
	for _, q := range questions {
		lines = append(lines, "  - "+q)
	}
	return "Add a FAQ section with at least 5 questions, including:\n" + strings.Join(lines, "\n")
}
