package report

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/plexfield/pagewatch/internal/analysis"
)

func TestMarkdownDigest(t *testing.T) {
	dir := t.TempDir()
	w := NewMarkdownWriter(dir, zap.NewNop())

	now := time.Date(2026, 3, 1, 6, 30, 0, 0, time.UTC)
	path, err := w.Write(now, []Change{testReportChange()}, []analysis.Comparison{
		{
			Slug:                "arsenal",
			SelfScore:           8,
			CompetitorScore:     6,
			SelfWordCount:       1200,
			CompetitorWordCount: 900,
			Keywords:            []string{"hospitality", "parking"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "2026-03-01.md"), path)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	body := string(raw)

	assert.Contains(t, body, "# Competitor Monitor Digest: 2026-03-01")
	assert.Contains(t, body, "## Significant Changes")
	assert.Contains(t, body, "| arsenal | competitor | 12.3% | 900 -> 1100 |")
	assert.Contains(t, body, "### arsenal (competitor)")
	assert.Contains(t, body, "Competitor added hospitality content.")
	assert.Contains(t, body, "- New stadium opens.")
	assert.Contains(t, body, "- Season tickets on sale.")
	assert.Contains(t, body, "## Depth Comparison")
	assert.Contains(t, body, "8/10")
	assert.Contains(t, body, "hospitality, parking")
}

func TestMarkdownDigestEmptyRun(t *testing.T) {
	dir := t.TempDir()
	w := NewMarkdownWriter(dir, zap.NewNop())

	path, err := w.Write(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), nil, nil)
	require.NoError(t, err)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	body := string(raw)
	assert.Contains(t, body, "No significant changes detected.")
	assert.Contains(t, body, "No comparisons available.")
}
