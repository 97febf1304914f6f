package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/plexfield/pagewatch/internal/analysis"
)

// slackBlock is one Block Kit block; fields are populated per block type.
type slackBlock struct {
	Type     string      `json:"type"`
	Text     *slackText  `json:"text,omitempty"`
	Fields   []slackText `json:"fields,omitempty"`
	Elements []slackText `json:"elements,omitempty"`
}

type slackText struct {
	Type  string `json:"type"`
	Text  string `json:"text"`
	Emoji bool   `json:"emoji,omitempty"`
}

type slackMessage struct {
	Text   string       `json:"text"`
	Blocks []slackBlock `json:"blocks"`
}

// Slack posts Block Kit messages to an incoming webhook.
type Slack struct {
	webhookURL string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *zap.Logger
}

// NewSlack builds a webhook notifier. An empty webhook URL yields the Noop
// notifier so callers never branch.
func NewSlack(webhookURL string, logger *zap.Logger) Notifier {
	if webhookURL == "" {
		logger.Info("slack webhook not configured, alerts disabled")
		return Noop{}
	}
	return &Slack{
		webhookURL: webhookURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(1), 1),
		logger:     logger,
	}
}

// SendChangeAlert posts one significant-change message.
func (s *Slack) SendChangeAlert(ctx context.Context, change Change) error {
	siteLabel := "Our"
	marker := ":large_yellow_circle:"
	if change.Site == "competitor" {
		siteLabel = "Competitor"
		marker = ":red_circle:"
	}
	delta := change.NewWordCount - change.OldWordCount

	summary := change.Summary
	if summary == "" {
		summary = "(no AI summary available)"
	}

	msg := slackMessage{
		Text: fmt.Sprintf("%s *Content Change Detected*: %s Page", marker, siteLabel),
		Blocks: []slackBlock{
			{
				Type: "header",
				Text: &slackText{
					Type:  "plain_text",
					Text:  fmt.Sprintf("%s Content Change: %s", marker, titleSlug(change.Slug)),
					Emoji: true,
				},
			},
			{
				Type: "section",
				Fields: []slackText{
					{Type: "mrkdwn", Text: fmt.Sprintf("*Page:*\n<%s|%s>", change.PageURL, change.Slug)},
					{Type: "mrkdwn", Text: fmt.Sprintf("*Site:*\n%s", siteLabel)},
					{Type: "mrkdwn", Text: fmt.Sprintf("*Change:*\n%.1f%%", change.ChangePct)},
					{Type: "mrkdwn", Text: fmt.Sprintf("*Word count:*\n%d -> %d (%+d)",
						change.OldWordCount, change.NewWordCount, delta)},
				},
			},
			{
				Type: "section",
				Text: &slackText{Type: "mrkdwn", Text: "*AI Summary:*\n" + summary},
			},
			{
				Type: "context",
				Elements: []slackText{
					{Type: "mrkdwn", Text: fmt.Sprintf("Detected at %s | Competitor Monitor",
						change.DetectedAt.UTC().Format("2006-01-02 15:04 UTC"))},
				},
			},
		},
	}

	if err := s.post(ctx, msg); err != nil {
		return err
	}
	s.logger.Info("slack alert sent",
		zap.String("slug", change.Slug),
		zap.Float64("change_pct", change.ChangePct),
	)
	return nil
}

// SendComparisonSummary posts the per-slug score roundup after a full run.
func (s *Slack) SendComparisonSummary(ctx context.Context, comparisons []analysis.Comparison) error {
	if len(comparisons) == 0 {
		return nil
	}

	lines := []string{"*:bar_chart: Daily Competitor Comparison Summary*\n"}
	for _, c := range comparisons {
		indicator := ":warning:"
		if c.SelfScore >= c.CompetitorScore {
			indicator = ":white_check_mark:"
		}
		lines = append(lines, fmt.Sprintf(
			"%s *%s*: My score: %d/10 (%dw) | Competitor: %d/10 (%dw)",
			indicator, titleSlug(c.Slug),
			c.SelfScore, c.SelfWordCount,
			c.CompetitorScore, c.CompetitorWordCount,
		))
	}
	body := strings.Join(lines, "\n")

	msg := slackMessage{
		Text: body,
		Blocks: []slackBlock{
			{Type: "section", Text: &slackText{Type: "mrkdwn", Text: body}},
		},
	}
	return s.post(ctx, msg)
}

func (s *Slack) post(ctx context.Context, msg slackMessage) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("slack rate limit wait: %w", err)
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode slack message: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post slack webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("slack webhook returned %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

// titleSlug renders "champions-league" as "Champions League".
func titleSlug(slug string) string {
	words := strings.Split(strings.ReplaceAll(slug, "-", " "), " ")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
