package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/markdown"
	"go.uber.org/zap"

	"github.com/plexfield/pagewatch/internal/analysis"
)

// MarkdownWriter renders the daily digest to reports/YYYY-MM-DD.md.
type MarkdownWriter struct {
	dir    string
	logger *zap.Logger
}

// NewMarkdownWriter creates a digest writer rooted at dir.
func NewMarkdownWriter(dir string, logger *zap.Logger) *MarkdownWriter {
	return &MarkdownWriter{dir: dir, logger: logger}
}

// Write renders the digest and returns the written path.
func (w *MarkdownWriter) Write(now time.Time, changes []Change, comparisons []analysis.Comparison) (string, error) {
	if err := os.MkdirAll(w.dir, 0o750); err != nil {
		return "", fmt.Errorf("create reports dir: %w", err)
	}

	date := now.UTC().Format("2006-01-02")
	path := filepath.Join(w.dir, date+".md")
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create markdown digest: %w", err)
	}
	defer file.Close()

	md := markdown.NewMarkdown(file)
	md.H1("Competitor Monitor Digest: " + date)
	md.PlainText("")
	md.PlainTextf("Generated at %s. %d significant change(s), %d comparison(s).",
		now.UTC().Format(time.RFC3339), len(changes), len(comparisons))
	md.PlainText("")

	w.writeChanges(md, changes)
	w.writeComparisons(md, comparisons)

	if err := md.Build(); err != nil {
		return "", fmt.Errorf("render markdown digest: %w", err)
	}
	w.logger.Info("markdown digest written", zap.String("path", path))
	return path, nil
}

func (w *MarkdownWriter) writeChanges(md *markdown.Markdown, changes []Change) {
	md.H2("Significant Changes")
	md.PlainText("")
	if len(changes) == 0 {
		md.PlainText("No significant changes detected.")
		md.PlainText("")
		return
	}

	rows := make([][]string, 0, len(changes))
	for _, c := range changes {
		rows = append(rows, []string{
			c.Slug,
			c.Site,
			fmt.Sprintf("%.1f%%", c.ChangePct),
			fmt.Sprintf("%d -> %d", c.OldWordCount, c.NewWordCount),
		})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Page", "Site", "Change", "Word count"},
		Rows:   rows,
	})
	md.PlainText("")

	for _, c := range changes {
		md.H3(fmt.Sprintf("%s (%s)", c.Slug, c.Site))
		md.PlainText("")
		if c.Summary != "" {
			md.PlainText(c.Summary)
			md.PlainText("")
		}
		if added := capReportSegments(c.Added); len(added) > 0 {
			md.PlainText("Added:")
			md.BulletList(added...)
			md.PlainText("")
		}
		if removed := capReportSegments(c.Removed); len(removed) > 0 {
			md.PlainText("Removed:")
			md.BulletList(removed...)
			md.PlainText("")
		}
	}
}

func (w *MarkdownWriter) writeComparisons(md *markdown.Markdown, comparisons []analysis.Comparison) {
	md.H2("Depth Comparison")
	md.PlainText("")
	if len(comparisons) == 0 {
		md.PlainText("No comparisons available.")
		md.PlainText("")
		return
	}

	rows := make([][]string, 0, len(comparisons))
	for _, c := range comparisons {
		rows = append(rows, []string{
			c.Slug,
			strconv.Itoa(c.SelfScore) + "/10",
			strconv.Itoa(c.CompetitorScore) + "/10",
			strconv.Itoa(c.SelfWordCount),
			strconv.Itoa(c.CompetitorWordCount),
			strings.Join(c.Keywords, ", "),
		})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Slug", "Our score", "Competitor score", "Our words", "Competitor words", "Their keywords"},
		Rows:   rows,
	})
	md.PlainText("")
}
