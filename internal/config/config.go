// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"
)

const appName = "pagewatch"

// Config captures every configuration knob. It is loaded once and threaded
// into constructors as a value; nothing reads configuration globally.
type Config struct {
	Logging   LoggingConfig   `mapstructure:"logging"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Archive   ArchiveConfig   `mapstructure:"archive"`
	Crawler   CrawlerConfig   `mapstructure:"crawler"`
	Diff      DiffConfig      `mapstructure:"diff"`
	Analysis  AnalysisConfig  `mapstructure:"analysis"`
	Notify    NotifyConfig    `mapstructure:"notify"`
	Reports   ReportsConfig   `mapstructure:"reports"`
	Schedule  ScheduleConfig  `mapstructure:"schedule"`
	API       APIConfig       `mapstructure:"api"`
	Watchlist WatchlistConfig `mapstructure:"watchlist"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// StorageConfig selects and configures the snapshot store provider.
type StorageConfig struct {
	Provider    string `mapstructure:"provider"`
	SQLitePath  string `mapstructure:"sqlite_path"`
	PostgresDSN string `mapstructure:"postgres_dsn"`
}

// ArchiveConfig selects the raw-HTML archive provider.
type ArchiveConfig struct {
	Provider string `mapstructure:"provider"`
	Dir      string `mapstructure:"dir"`
	Bucket   string `mapstructure:"bucket"`
}

// CrawlerConfig governs fetch pacing, retries, and the browser tier.
type CrawlerConfig struct {
	DelayMinSeconds   int   `mapstructure:"delay_min_seconds"`
	DelayMaxSeconds   int   `mapstructure:"delay_max_seconds"`
	MaxRetries        int   `mapstructure:"max_retries"`
	RetryWaitSeconds  int   `mapstructure:"retry_wait_seconds"`
	BrowserOnly       bool  `mapstructure:"browser_only"`
	RespectRobots     bool  `mapstructure:"respect_robots"`
	MinContentBytes   int   `mapstructure:"min_content_bytes"`
	NavTimeoutSeconds int   `mapstructure:"nav_timeout_seconds"`
	Seed              int64 `mapstructure:"seed"`
}

// DiffConfig sets the significance cutoff.
type DiffConfig struct {
	ChangeThresholdPct float64 `mapstructure:"change_threshold_pct"`
}

// AnalysisConfig configures the AI collaborator.
type AnalysisConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
}

// NotifyConfig configures alert delivery.
type NotifyConfig struct {
	SlackWebhookURL string       `mapstructure:"slack_webhook_url"`
	PubSub          PubSubConfig `mapstructure:"pubsub"`
}

// PubSubConfig names the optional change-event topic.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicID   string `mapstructure:"topic_id"`
}

// ReportsConfig sets the report output directories.
type ReportsConfig struct {
	Dir          string `mapstructure:"dir"`
	DashboardDir string `mapstructure:"dashboard_dir"`
}

// ScheduleConfig sets the daily trigger.
type ScheduleConfig struct {
	HourUTC int `mapstructure:"hour_utc"`
}

// APIConfig configures the read-only HTTP server.
type APIConfig struct {
	Addr string `mapstructure:"addr"`
}

// WatchlistConfig points at the tracked-pages file.
type WatchlistConfig struct {
	Path string `mapstructure:"path"`
}

// Load builds a Config from disk and environment. Environment variables use
// the PAGEWATCH_ prefix with dots replaced by underscores, e.g.
// PAGEWATCH_STORAGE_PROVIDER. The Slack webhook and Anthropic API key also
// bind to their conventional unprefixed names.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("PAGEWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Secrets usually arrive under their conventional names.
	_ = v.BindEnv("notify.slack_webhook_url", "SLACK_WEBHOOK_URL", "PAGEWATCH_NOTIFY_SLACK_WEBHOOK_URL")
	_ = v.BindEnv("analysis.api_key", "ANTHROPIC_API_KEY", "PAGEWATCH_ANALYSIS_API_KEY")

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	dataDir := filepath.Join(xdg.DataHome, appName)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.development", false)
	v.SetDefault("storage.provider", "sqlite")
	v.SetDefault("storage.sqlite_path", filepath.Join(dataDir, "pagewatch.db"))
	v.SetDefault("archive.provider", "noop")
	v.SetDefault("archive.dir", filepath.Join(dataDir, "raw"))
	v.SetDefault("crawler.delay_min_seconds", 2)
	v.SetDefault("crawler.delay_max_seconds", 5)
	v.SetDefault("crawler.max_retries", 3)
	v.SetDefault("crawler.retry_wait_seconds", 60)
	v.SetDefault("crawler.browser_only", false)
	v.SetDefault("crawler.respect_robots", true)
	v.SetDefault("crawler.min_content_bytes", 2048)
	v.SetDefault("crawler.nav_timeout_seconds", 45)
	v.SetDefault("diff.change_threshold_pct", 5.0)
	v.SetDefault("analysis.enabled", true)
	v.SetDefault("analysis.model", "claude-sonnet-4-6")
	v.SetDefault("reports.dir", filepath.Join(dataDir, "reports"))
	v.SetDefault("reports.dashboard_dir", filepath.Join(dataDir, "dashboard"))
	v.SetDefault("schedule.hour_utc", 8)
	v.SetDefault("api.addr", ":8080")
	v.SetDefault("watchlist.path", filepath.Join(xdg.ConfigHome, appName, "pages.yaml"))
}

var (
	storageProviders = map[string]bool{"sqlite": true, "postgres": true, "memory": true}
	archiveProviders = map[string]bool{"noop": true, "local": true, "gcs": true}
)

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if !storageProviders[c.Storage.Provider] {
		return fmt.Errorf("storage.provider %q unknown (sqlite, postgres, memory)", c.Storage.Provider)
	}
	if c.Storage.Provider == "postgres" && c.Storage.PostgresDSN == "" {
		return fmt.Errorf("storage.postgres_dsn must be set for the postgres provider")
	}
	if !archiveProviders[c.Archive.Provider] {
		return fmt.Errorf("archive.provider %q unknown (noop, local, gcs)", c.Archive.Provider)
	}
	if c.Archive.Provider == "gcs" && c.Archive.Bucket == "" {
		return fmt.Errorf("archive.bucket must be set for the gcs provider")
	}
	if c.Crawler.DelayMinSeconds < 0 {
		return fmt.Errorf("crawler.delay_min_seconds must be >= 0")
	}
	if c.Crawler.DelayMaxSeconds < c.Crawler.DelayMinSeconds {
		return fmt.Errorf("crawler.delay_max_seconds must be >= crawler.delay_min_seconds")
	}
	if c.Crawler.MaxRetries < 1 {
		return fmt.Errorf("crawler.max_retries must be >= 1")
	}
	if c.Diff.ChangeThresholdPct < 0 {
		return fmt.Errorf("diff.change_threshold_pct must be >= 0")
	}
	if c.Schedule.HourUTC < 0 || c.Schedule.HourUTC > 23 {
		return fmt.Errorf("schedule.hour_utc must be between 0 and 23")
	}
	if c.Watchlist.Path == "" {
		return fmt.Errorf("watchlist.path must be set")
	}
	return nil
}

// DelayMin returns the minimum politeness delay.
func (c CrawlerConfig) DelayMin() time.Duration {
	return time.Duration(c.DelayMinSeconds) * time.Second
}

// DelayMax returns the maximum politeness delay.
func (c CrawlerConfig) DelayMax() time.Duration {
	return time.Duration(c.DelayMaxSeconds) * time.Second
}

// RetryWait returns the fixed wait between retry attempts.
func (c CrawlerConfig) RetryWait() time.Duration {
	return time.Duration(c.RetryWaitSeconds) * time.Second
}

// NavTimeout returns the browser navigation timeout.
func (c CrawlerConfig) NavTimeout() time.Duration {
	return time.Duration(c.NavTimeoutSeconds) * time.Second
}
