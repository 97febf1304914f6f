package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/plexfield/pagewatch/internal/analysis"
)

func testReportChange() Change {
	return Change{
		PageURL:      "https://rival.com/arsenal",
		Slug:         "arsenal",
		Site:         "competitor",
		ChangePct:    12.3,
		OldWordCount: 900,
		NewWordCount: 1100,
		Added:        []string{"New stadium opens."},
		Removed:      []string{"Season tickets on sale."},
		Summary:      "Competitor added hospitality content.",
		DetectedAt:   time.Date(2026, 3, 1, 6, 15, 0, 0, time.UTC),
	}
}

func TestJSONWriterWritesDateNamedFile(t *testing.T) {
	dir := t.TempDir()
	w := NewJSONWriter(dir, zap.NewNop())

	now := time.Date(2026, 3, 1, 6, 30, 0, 0, time.UTC)
	path, err := w.Write(now, []Change{testReportChange()}, []analysis.Comparison{{Slug: "arsenal", SelfScore: 8}})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "2026-03-01.json"), path)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var got jsonReport
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, "2026-03-01", got.Date)
	assert.Equal(t, "2026-03-01T06:30:00Z", got.GeneratedAt)
	require.Len(t, got.Changes, 1)
	assert.Equal(t, "arsenal", got.Changes[0].Slug)
	require.Len(t, got.Comparisons, 1)
	assert.Equal(t, 8, got.Comparisons[0].SelfScore)
}

func TestJSONWriterCapsSegments(t *testing.T) {
	dir := t.TempDir()
	w := NewJSONWriter(dir, zap.NewNop())

	c := testReportChange()
	c.Added = nil
	for i := 0; i < 25; i++ {
		c.Added = append(c.Added, fmt.Sprintf("sentence %d", i))
	}

	path, err := w.Write(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), []Change{c}, nil)
	require.NoError(t, err)
	assert.Len(t, c.Added, 25, "caller slice must not be truncated")

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var got jsonReport
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Len(t, got.Changes[0].Added, reportSegmentCap)
	assert.Equal(t, "sentence 0", got.Changes[0].Added[0])
}

func TestJSONWriterNilComparisonsEncodeAsEmptyArray(t *testing.T) {
	dir := t.TempDir()
	w := NewJSONWriter(dir, zap.NewNop())

	path, err := w.Write(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), nil, nil)
	require.NoError(t, err)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"comparisons": []`)
	assert.Contains(t, string(raw), `"significant_changes": []`)
}
