// Package report writes the run's human and machine outputs: the daily JSON
// report, the dashboard data files, and a Markdown digest. All writers are
// best-effort collaborators; the pipeline logs their failures and moves on.
package report

import (
	"time"

	"github.com/plexfield/pagewatch/internal/analysis"
	"github.com/plexfield/pagewatch/internal/content"
)

// reportSegmentCap bounds added/removed sentence lists in report files.
const reportSegmentCap = 10

// Change is one significant page change as reported.
type Change struct {
	PageURL      string    `json:"page_url"`
	Slug         string    `json:"page_slug"`
	Site         string    `json:"site"`
	ChangePct    float64   `json:"change_pct"`
	OldWordCount int       `json:"old_word_count"`
	NewWordCount int       `json:"new_word_count"`
	Added        []string  `json:"added_sentences"`
	Removed      []string  `json:"removed_sentences"`
	Summary      string    `json:"ai_summary"`
	DetectedAt   time.Time `json:"detected_at"`
}

// PageEntry is one slug's row in the dashboard data.
type PageEntry struct {
	Slug                string                    `json:"slug"`
	SelfURL             string                    `json:"self_url"`
	CompetitorURL       string                    `json:"competitor_url"`
	SelfWordCount       int                       `json:"self_word_count"`
	CompetitorWordCount int                       `json:"competitor_word_count"`
	SelfScore           int                       `json:"content_depth_score_self"`
	CompetitorScore     int                       `json:"content_depth_score_competitor"`
	SelfWeighted        float64                   `json:"self_depth_score_weighted"`
	CompetitorWeighted  float64                   `json:"competitor_depth_score_weighted"`
	Dimensions          []analysis.DimensionScore `json:"dimensions"`
	SelfDimensions      map[string]float64        `json:"self_dimension_scores"`
	CompetitorDims      map[string]float64        `json:"competitor_dimension_scores"`
	LastChangeDetected  *time.Time                `json:"last_change_detected"`
	ChangePct           float64                   `json:"change_pct"`
	ChangeSummary       string                    `json:"change_summary"`
	ContentGaps         []string                  `json:"content_gaps"`
	Keywords            []string                  `json:"keywords_they_cover"`
	Recommendations     string                    `json:"recommendations"`
	Status              string                    `json:"status"`
	SelfTitle           string                    `json:"self_title"`
	SelfH1              string                    `json:"self_h1"`
	SelfHeadings        []content.Heading         `json:"self_headings"`
	CompetitorTitle     string                    `json:"competitor_title"`
	CompetitorH1        string                    `json:"competitor_h1"`
	CompetitorHeadings  []content.Heading         `json:"competitor_headings"`
}

// Page status values in the dashboard.
const (
	StatusChanged   = "changed"
	StatusUnchanged = "unchanged"
	StatusError     = "error"
)

// capReportSegments bounds a sentence list for report output.
func capReportSegments(segments []string) []string {
	if len(segments) > reportSegmentCap {
		return segments[:reportSegmentCap]
	}
	return segments
}
