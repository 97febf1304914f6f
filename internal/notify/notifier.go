// Package notify delivers change alerts and comparison summaries to Slack,
// and optionally publishes change events to Pub/Sub for machine consumers.
// Delivery is strictly downstream of persistence: failures here are logged
// and never affect stored snapshots or diffs.
package notify

import (
	"context"
	"time"

	"github.com/plexfield/pagewatch/internal/analysis"
)

// Change is one significant page change ready for delivery.
type Change struct {
	PageURL      string    `json:"page_url"`
	Slug         string    `json:"page_slug"`
	Site         string    `json:"site"`
	ChangePct    float64   `json:"change_pct"`
	OldWordCount int       `json:"old_word_count"`
	NewWordCount int       `json:"new_word_count"`
	Summary      string    `json:"ai_summary,omitempty"`
	DetectedAt   time.Time `json:"detected_at"`
}

// Notifier delivers human-facing alerts.
type Notifier interface {
	SendChangeAlert(ctx context.Context, change Change) error
	SendComparisonSummary(ctx context.Context, comparisons []analysis.Comparison) error
}

// Publisher delivers machine-facing change events.
type Publisher interface {
	PublishChange(ctx context.Context, change Change) error
}

// Noop satisfies Notifier and Publisher when nothing is configured.
type Noop struct{}

func (Noop) SendChangeAlert(context.Context, Change) error { return nil }

func (Noop) SendComparisonSummary(context.Context, []analysis.Comparison) error { return nil }

func (Noop) PublishChange(context.Context, Change) error { return nil }
