package analysis

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/plexfield/pagewatch/internal/content"
)

// fakeClient returns one canned response or error.
type fakeClient struct {
	resp    *MessageResponse
	err     error
	lastReq MessageRequest
	calls   int
}

func (f *fakeClient) CreateMessage(_ context.Context, req MessageRequest) (*MessageResponse, error) {
	f.calls++
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

func textResponse(text string) *MessageResponse {
	return &MessageResponse{Content: []ContentBlock{{Type: "text", Text: text}}}
}

const judgedJSON = `{
  "heading_diversity": {
    "mine": {"score_adjustment": 2, "verdict": "Varied subtopics."},
    "competitor": {"score_adjustment": -2, "verdict": "Repetitive."}
  },
  "question_coverage": {
    "mine": {"answers": {"How much do tickets cost?": {"answered": true, "quote": "from £45"}}, "score": 7},
    "competitor": {"answers": {"How much do tickets cost?": {"answered": false, "quote": null}}, "score": 3}
  },
  "transactional_clarity": {
    "mine": {"cta": {"found": true, "quote": "Buy now"}, "price_range": {"found": true, "quote": "from £45"}, "delivery_method": {"found": false, "quote": null}, "booking_process": {"found": false, "quote": null}, "score": 5},
    "competitor": {"cta": {"found": false, "quote": null}, "price_range": {"found": false, "quote": null}, "delivery_method": {"found": false, "quote": null}, "booking_process": {"found": false, "quote": null}, "score": 0}
  },
  "content_gaps": "Competitor covers hospitality packages.",
  "keywords_they_cover": ["hospitality", "vip boxes"],
  "recommendations": "Add a hospitality section."
}`

func selfPage() PageContent {
	return PageContent{
		URL:       "https://example.com/arsenal",
		Text:      "Buy Arsenal tickets from £45. 100% guarantee and secure payment. Upcoming fixtures for the 2026/27 season.",
		WordCount: 950,
		Headings: []content.Heading{
			{Level: "h2", Text: "Ticket Prices"},
			{Level: "h2", Text: "Stadium Guide"},
			{Level: "h2", Text: "How to Buy"},
		},
		InternalLinks: []string{"a", "b", "c", "d", "e", "f"},
	}
}

func competitorPage() PageContent {
	return PageContent{
		URL:       "https://rival.com/arsenal",
		Text:      "Arsenal tickets available here.",
		WordCount: 250,
		Headings:  []content.Heading{{Level: "h2", Text: "Tickets"}},
	}
}

func TestCompareWithJudgedDimensions(t *testing.T) {
	client := &fakeClient{resp: textResponse(judgedJSON)}
	comparer := NewComparer(client, "", zap.NewNop())

	cmp := comparer.Compare(context.Background(), "arsenal", selfPage(), competitorPage())

	require.Len(t, cmp.Dimensions, 8)
	assert.Equal(t, 1, client.calls)
	assert.Equal(t, DefaultModel, client.lastReq.Model)

	// Heading base 6 (3 H2s, no H3) + 2 adjustment = 8; competitor base 4 - 2 = 2.
	assert.Equal(t, float64(8), cmp.SelfDimensions["heading_structure"])
	assert.Equal(t, float64(2), cmp.CompetitorDims["heading_structure"])

	assert.Equal(t, float64(7), cmp.SelfDimensions["question_coverage"])
	assert.Equal(t, float64(5), cmp.SelfDimensions["transactional_clarity"])
	assert.Equal(t, float64(7), cmp.SelfDimensions["word_count"])
	assert.Equal(t, float64(2), cmp.CompetitorDims["word_count"])
	assert.Equal(t, float64(7), cmp.SelfDimensions["internal_linking"])

	assert.Equal(t, "Competitor covers hospitality packages.", cmp.ContentGaps)
	assert.Equal(t, []string{"hospitality", "vip boxes"}, cmp.Keywords)
	assert.Greater(t, cmp.SelfWeighted, cmp.CompetitorWeighted)
	assert.Equal(t, cmp.SelfWeighted, weightedAverage(cmp.SelfDimensions))
}

func TestCompareToleratesCodeFencedJSON(t *testing.T) {
	client := &fakeClient{resp: textResponse("```json\n" + judgedJSON + "\n```")}
	comparer := NewComparer(client, "", zap.NewNop())

	cmp := comparer.Compare(context.Background(), "arsenal", selfPage(), competitorPage())
	assert.Equal(t, float64(7), cmp.SelfDimensions["question_coverage"])
}

func TestCompareDegradesWhenModelFails(t *testing.T) {
	client := &fakeClient{err: errors.New("api down")}
	comparer := NewComparer(client, "", zap.NewNop())

	cmp := comparer.Compare(context.Background(), "arsenal", selfPage(), competitorPage())

	// Deterministic dimensions still stand.
	assert.Equal(t, float64(7), cmp.SelfDimensions["word_count"])
	assert.Equal(t, float64(4), cmp.SelfDimensions["trust_signals"])
	// Judged dimensions take neutral defaults.
	assert.Equal(t, float64(0), cmp.SelfDimensions["question_coverage"])
	assert.Equal(t, float64(0), cmp.SelfDimensions["transactional_clarity"])
	assert.Equal(t, float64(6), cmp.SelfDimensions["heading_structure"])
	assert.Contains(t, cmp.ContentGaps, "unavailable")
	assert.Empty(t, cmp.Keywords)
}

func TestCompareNilClientNeverCalls(t *testing.T) {
	comparer := NewComparer(nil, "", zap.NewNop())
	cmp := comparer.Compare(context.Background(), "fa-cup", selfPage(), competitorPage())
	require.NotNil(t, cmp)
	assert.Equal(t, "fa-cup", cmp.Slug)
	assert.Equal(t, float64(0), cmp.SelfDimensions["question_coverage"])
}

func TestComparePromptCarriesCompetitionCatalog(t *testing.T) {
	prompt, err := comparePrompt("fa-cup", selfPage(), []string{"Rounds"}, competitorPage(), nil)
	require.NoError(t, err)
	assert.Contains(t, prompt, "What rounds or stages are available?")
	assert.NotContains(t, prompt, "Where is the stadium and how do I get there?")
	assert.True(t, strings.Contains(prompt, `"fa-cup"`))
}

func TestCompareDepthScoreIsRoundedWeighted(t *testing.T) {
	client := &fakeClient{resp: textResponse(judgedJSON)}
	comparer := NewComparer(client, "", zap.NewNop())

	cmp := comparer.Compare(context.Background(), "arsenal", selfPage(), competitorPage())
	assert.InDelta(t, cmp.SelfWeighted, float64(cmp.SelfScore), 0.5)
	assert.InDelta(t, cmp.CompetitorWeighted, float64(cmp.CompetitorScore), 0.5)
}
