package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/plexfield/pagewatch/internal/analysis"
)

// JSONWriter writes the structured daily report to reports/YYYY-MM-DD.json.
type JSONWriter struct {
	dir    string
	logger *zap.Logger
}

// NewJSONWriter creates a writer rooted at dir.
func NewJSONWriter(dir string, logger *zap.Logger) *JSONWriter {
	return &JSONWriter{dir: dir, logger: logger}
}

type jsonReport struct {
	GeneratedAt string                `json:"generated_at"`
	Date        string                `json:"date"`
	Changes     []Change              `json:"significant_changes"`
	Comparisons []analysis.Comparison `json:"comparisons"`
}

// Write renders the day's report and returns the written path.
func (w *JSONWriter) Write(now time.Time, changes []Change, comparisons []analysis.Comparison) (string, error) {
	if err := os.MkdirAll(w.dir, 0o750); err != nil {
		return "", fmt.Errorf("create reports dir: %w", err)
	}

	capped := make([]Change, len(changes))
	for i, c := range changes {
		c.Added = capReportSegments(c.Added)
		c.Removed = capReportSegments(c.Removed)
		capped[i] = c
	}
	if comparisons == nil {
		comparisons = []analysis.Comparison{}
	}

	payload := jsonReport{
		GeneratedAt: now.UTC().Format(time.RFC3339),
		Date:        now.UTC().Format("2006-01-02"),
		Changes:     capped,
		Comparisons: comparisons,
	}
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode json report: %w", err)
	}

	path := filepath.Join(w.dir, payload.Date+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write json report: %w", err)
	}
	w.logger.Info("json report written", zap.String("path", path))
	return path, nil
}
