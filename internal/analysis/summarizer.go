package analysis

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// DiffContext carries everything the summarizer needs about one detected
// change.
type DiffContext struct {
	PageURL   string
	Slug      string
	OldText   string
	NewText   string
	Added     []string
	Removed   []string
	ChangePct float64
}

// Summarizer turns a detected diff into a short competitor-analyst summary.
type Summarizer struct {
	client Client
	model  string
	logger *zap.Logger
}

// NewSummarizer builds a Summarizer; client may be nil when analysis is
// disabled, in which case SummarizeDiff reports unavailability.
func NewSummarizer(client Client, model string, logger *zap.Logger) *Summarizer {
	if model == "" {
		model = DefaultModel
	}
	return &Summarizer{client: client, model: model, logger: logger}
}

// SummarizeDiff asks the model what changed and why it matters. Failures
// return an error for the caller to log; the pipeline treats summaries as
// best-effort.
func (s *Summarizer) SummarizeDiff(ctx context.Context, dc DiffContext) (string, error) {
	if s.client == nil {
		return "", fmt.Errorf("analysis client not configured")
	}

	prompt := fmt.Sprintf(`You are a competitive intelligence analyst for a football ticket marketplace.

A competitor page has changed significantly.

Page: %s (slug: %s)
Change level: %.1f%% of content changed

--- CONTENT ADDED ---
%s

--- CONTENT REMOVED ---
%s

--- OLD FULL TEXT (truncated) ---
%s

--- NEW FULL TEXT (truncated) ---
%s

Please provide a concise analysis (2-4 sentences) covering:
1. What specifically changed (new sections, removed info, updated facts)
2. Any new topics, keywords, or angles the competitor has added
3. Your assessment of the strategic intent: are they targeting new keywords,
   improving trust signals, adding urgency, etc.?

Be direct and specific. Focus on what matters for a competing ticket marketplace.`,
		dc.PageURL, dc.Slug, dc.ChangePct,
		truncate(strings.Join(dc.Added, "\n"), 4000),
		truncate(strings.Join(dc.Removed, "\n"), 4000),
		truncate(dc.OldText, 3000),
		truncate(dc.NewText, 3000))

	resp, err := s.client.CreateMessage(ctx, MessageRequest{
		Model:     s.model,
		MaxTokens: 400,
		Messages:  []Message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", fmt.Errorf("summarize diff for %s: %w", dc.Slug, err)
	}

	summary := strings.TrimSpace(firstText(resp))
	if summary == "" {
		return "", fmt.Errorf("summarize diff for %s: empty response", dc.Slug)
	}
	s.logger.Debug("diff summarized",
		zap.String("slug", dc.Slug),
		zap.Int64("input_tokens", resp.Usage.InputTokens),
		zap.Int64("output_tokens", resp.Usage.OutputTokens),
	)
	return summary, nil
}
