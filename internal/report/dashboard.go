package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"go.uber.org/zap"
)

// historyRetentionDays bounds how far back history.json reaches.
const historyRetentionDays = 90

// Dashboard writes the dashboard data files: latest.json, overwritten on
// every run, and history.json, one row per day with bounded retention.
type Dashboard struct {
	dir    string
	logger *zap.Logger
}

// NewDashboard creates a dashboard writer rooted at dir.
func NewDashboard(dir string, logger *zap.Logger) *Dashboard {
	return &Dashboard{dir: dir, logger: logger}
}

// Latest is the full dashboard payload for the current state.
type Latest struct {
	GeneratedAt string           `json:"generated_at"`
	Date        string           `json:"date"`
	Pages       []PageEntry      `json:"pages"`
	Summary     DashboardSummary `json:"summary"`
}

// DashboardSummary aggregates the page entries.
type DashboardSummary struct {
	TotalPages         int `json:"total_pages"`
	Changed            int `json:"changed"`
	Unchanged          int `json:"unchanged"`
	Errors             int `json:"errors"`
	AvgSelfWords       int `json:"avg_self_words"`
	AvgCompetitorWords int `json:"avg_competitor_words"`
}

// HistoryRow is one day's entry in history.json.
type HistoryRow struct {
	Date      string     `json:"date"`
	Changed   int        `json:"changed"`
	Unchanged int        `json:"unchanged"`
	Errors    int        `json:"errors"`
	PageStats []PageStat `json:"page_stats"`
}

// PageStat is the per-slug slice of a history row.
type PageStat struct {
	Slug                string  `json:"slug"`
	SelfWordCount       int     `json:"self_word_count"`
	CompetitorWordCount int     `json:"competitor_word_count"`
	ChangePct           float64 `json:"change_pct"`
	Status              string  `json:"status"`
}

// Write renders latest.json and updates history.json for the given day.
// Re-running on the same day replaces that day's history row.
func (d *Dashboard) Write(now time.Time, pages []PageEntry) error {
	if err := os.MkdirAll(d.dir, 0o750); err != nil {
		return fmt.Errorf("create dashboard dir: %w", err)
	}

	date := now.UTC().Format("2006-01-02")
	latest := Latest{
		GeneratedAt: now.UTC().Format(time.RFC3339),
		Date:        date,
		Pages:       pages,
		Summary:     summarize(pages),
	}
	if err := writeJSONFile(filepath.Join(d.dir, "latest.json"), latest); err != nil {
		return err
	}
	d.logger.Info("dashboard latest.json written", zap.String("dir", d.dir))

	if err := d.updateHistory(now, latest); err != nil {
		return err
	}
	d.logger.Info("dashboard history.json updated", zap.String("dir", d.dir))
	return nil
}

func summarize(pages []PageEntry) DashboardSummary {
	s := DashboardSummary{TotalPages: len(pages)}
	selfWords, compWords := 0, 0
	for _, p := range pages {
		switch p.Status {
		case StatusChanged:
			s.Changed++
		case StatusError:
			s.Errors++
		default:
			s.Unchanged++
		}
		selfWords += p.SelfWordCount
		compWords += p.CompetitorWordCount
	}
	if len(pages) > 0 {
		s.AvgSelfWords = selfWords / len(pages)
		s.AvgCompetitorWords = compWords / len(pages)
	}
	return s
}

func (d *Dashboard) updateHistory(now time.Time, latest Latest) error {
	path := filepath.Join(d.dir, "history.json")

	var history []HistoryRow
	if raw, err := os.ReadFile(path); err == nil {
		if err := json.Unmarshal(raw, &history); err != nil {
			d.logger.Warn("history.json unreadable, starting fresh", zap.Error(err))
			history = nil
		}
	}

	stats := make([]PageStat, 0, len(latest.Pages))
	for _, p := range latest.Pages {
		stats = append(stats, PageStat{
			Slug:                p.Slug,
			SelfWordCount:       p.SelfWordCount,
			CompetitorWordCount: p.CompetitorWordCount,
			ChangePct:           p.ChangePct,
			Status:              p.Status,
		})
	}

	cutoff := now.UTC().AddDate(0, 0, -historyRetentionDays).Format("2006-01-02")
	kept := history[:0]
	for _, row := range history {
		if row.Date != latest.Date && row.Date >= cutoff {
			kept = append(kept, row)
		}
	}
	kept = append(kept, HistoryRow{
		Date:      latest.Date,
		Changed:   latest.Summary.Changed,
		Unchanged: latest.Summary.Unchanged,
		Errors:    latest.Summary.Errors,
		PageStats: stats,
	})
	sort.Slice(kept, func(i, j int) bool { return kept[i].Date < kept[j].Date })

	return writeJSONFile(path, kept)
}

func writeJSONFile(path string, payload any) error {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}
