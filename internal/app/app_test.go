package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plexfield/pagewatch/internal/config"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	watchPath := filepath.Join(t.TempDir(), "pages.yaml")
	require.NoError(t, os.WriteFile(watchPath, []byte(`
pages:
  - slug: arsenal
    self_url: https://oursite.com/arsenal
    competitor_url: https://rival.com/arsenal
`), 0o644))

	dir := t.TempDir()
	return config.Config{
		Logging: config.LoggingConfig{Level: "error"},
		Storage: config.StorageConfig{Provider: "memory"},
		Archive: config.ArchiveConfig{Provider: "noop"},
		Crawler: config.CrawlerConfig{
			DelayMinSeconds:  1,
			DelayMaxSeconds:  2,
			MaxRetries:       1,
			RetryWaitSeconds: 1,
		},
		Diff:      config.DiffConfig{ChangeThresholdPct: 5.0},
		Analysis:  config.AnalysisConfig{Enabled: false},
		Reports:   config.ReportsConfig{Dir: filepath.Join(dir, "reports"), DashboardDir: filepath.Join(dir, "dashboard")},
		Schedule:  config.ScheduleConfig{HourUTC: 8},
		API:       config.APIConfig{Addr: ":0"},
		Watchlist: config.WatchlistConfig{Path: watchPath},
	}
}

func TestNewAssemblesServices(t *testing.T) {
	cfg := testConfig(t)
	a, err := New(context.Background(), cfg)
	require.NoError(t, err)
	defer a.Close()

	assert.NotNil(t, a.Logger())
	assert.NotNil(t, a.Store())
	assert.NotNil(t, a.Coordinator())
	assert.NotNil(t, a.Scheduler())
	assert.NotNil(t, a.Server())
	require.NotNil(t, a.Watchlist())
	assert.Len(t, a.Watchlist().Entries, 1)

	// Seeding happened during assembly.
	pages, err := a.Store().Pages(context.Background())
	require.NoError(t, err)
	assert.Len(t, pages, 2)
}

func TestNewFailsOnMissingWatchlist(t *testing.T) {
	cfg := testConfig(t)
	cfg.Watchlist.Path = filepath.Join(t.TempDir(), "absent.yaml")
	_, err := New(context.Background(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "watchlist")
}

func TestNewFailsOnUnknownStorageProvider(t *testing.T) {
	cfg := testConfig(t)
	cfg.Storage.Provider = "oracle"
	_, err := New(context.Background(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "storage provider")
}

func TestNewWithSQLiteStore(t *testing.T) {
	cfg := testConfig(t)
	cfg.Storage.Provider = "sqlite"
	cfg.Storage.SQLitePath = filepath.Join(t.TempDir(), "pagewatch.db")
	cfg.Archive.Provider = "local"
	cfg.Archive.Dir = filepath.Join(t.TempDir(), "raw")

	a, err := New(context.Background(), cfg)
	require.NoError(t, err)
	defer a.Close()

	pages, err := a.Store().Pages(context.Background())
	require.NoError(t, err)
	assert.Len(t, pages, 2)
}
