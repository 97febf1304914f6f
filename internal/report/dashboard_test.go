package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testPages() []PageEntry {
	return []PageEntry{
		{Slug: "arsenal", SelfWordCount: 1200, CompetitorWordCount: 900, ChangePct: 12.3, Status: StatusChanged},
		{Slug: "chelsea", SelfWordCount: 800, CompetitorWordCount: 1100, Status: StatusUnchanged},
		{Slug: "fa-cup", Status: StatusError},
	}
}

func readHistory(t *testing.T, dir string) []HistoryRow {
	t.Helper()
	raw, err := os.ReadFile(filepath.Join(dir, "history.json"))
	require.NoError(t, err)
	var rows []HistoryRow
	require.NoError(t, json.Unmarshal(raw, &rows))
	return rows
}

func TestDashboardLatestAndSummary(t *testing.T) {
	dir := t.TempDir()
	d := NewDashboard(dir, zap.NewNop())

	now := time.Date(2026, 3, 1, 6, 30, 0, 0, time.UTC)
	require.NoError(t, d.Write(now, testPages()))

	raw, err := os.ReadFile(filepath.Join(dir, "latest.json"))
	require.NoError(t, err)
	var latest Latest
	require.NoError(t, json.Unmarshal(raw, &latest))

	assert.Equal(t, "2026-03-01", latest.Date)
	assert.Equal(t, "2026-03-01T06:30:00Z", latest.GeneratedAt)
	require.Len(t, latest.Pages, 3)

	assert.Equal(t, 3, latest.Summary.TotalPages)
	assert.Equal(t, 1, latest.Summary.Changed)
	assert.Equal(t, 1, latest.Summary.Unchanged)
	assert.Equal(t, 1, latest.Summary.Errors)
	assert.Equal(t, (1200+800)/3, latest.Summary.AvgSelfWords)
	assert.Equal(t, (900+1100)/3, latest.Summary.AvgCompetitorWords)
}

func TestDashboardLatestOverwritten(t *testing.T) {
	dir := t.TempDir()
	d := NewDashboard(dir, zap.NewNop())

	require.NoError(t, d.Write(time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC), testPages()))
	require.NoError(t, d.Write(time.Date(2026, 3, 2, 6, 0, 0, 0, time.UTC), testPages()[:1]))

	raw, err := os.ReadFile(filepath.Join(dir, "latest.json"))
	require.NoError(t, err)
	var latest Latest
	require.NoError(t, json.Unmarshal(raw, &latest))
	assert.Equal(t, "2026-03-02", latest.Date)
	assert.Len(t, latest.Pages, 1)
}

func TestDashboardHistorySameDayReplaced(t *testing.T) {
	dir := t.TempDir()
	d := NewDashboard(dir, zap.NewNop())

	now := time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC)
	require.NoError(t, d.Write(now, testPages()))
	require.NoError(t, d.Write(now.Add(4*time.Hour), testPages()[:1]))

	rows := readHistory(t, dir)
	require.Len(t, rows, 1)
	assert.Equal(t, "2026-03-01", rows[0].Date)
	assert.Equal(t, 1, rows[0].Changed)
	require.Len(t, rows[0].PageStats, 1)
	assert.Equal(t, "arsenal", rows[0].PageStats[0].Slug)
	assert.Equal(t, 12.3, rows[0].PageStats[0].ChangePct)
}

func TestDashboardHistoryRetentionAndOrder(t *testing.T) {
	dir := t.TempDir()
	d := NewDashboard(dir, zap.NewNop())

	base := time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC)
	days := []int{-95, -91, -90, -10, 0}
	for _, offset := range days {
		require.NoError(t, d.Write(base.AddDate(0, 0, offset), testPages()))
	}

	rows := readHistory(t, dir)
	require.Len(t, rows, 3, "rows older than retention are dropped")
	got := make([]string, 0, len(rows))
	for _, row := range rows {
		got = append(got, row.Date)
	}
	assert.True(t, sort.StringsAreSorted(got))
	assert.Equal(t, base.AddDate(0, 0, -90).Format("2006-01-02"), got[0])
	assert.Equal(t, "2026-03-01", got[len(got)-1])
}

func TestDashboardCorruptHistoryStartsFresh(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "history.json"), []byte("{not json"), 0o644))

	d := NewDashboard(dir, zap.NewNop())
	require.NoError(t, d.Write(time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC), testPages()))

	rows := readHistory(t, dir)
	require.Len(t, rows, 1)
	assert.Equal(t, "2026-03-01", rows[0].Date)
}
