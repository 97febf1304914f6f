// Package app initializes and holds the long-lived application services,
// acting as the dependency injection container. Everything is assembled
// once from configuration and torn down in reverse by Close.
package app

import (
	"context"
	"fmt"

	gcstorage "cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/plexfield/pagewatch/internal/analysis"
	"github.com/plexfield/pagewatch/internal/api"
	"github.com/plexfield/pagewatch/internal/archive"
	"github.com/plexfield/pagewatch/internal/clock/system"
	"github.com/plexfield/pagewatch/internal/config"
	"github.com/plexfield/pagewatch/internal/crawler"
	"github.com/plexfield/pagewatch/internal/hash/sha256"
	"github.com/plexfield/pagewatch/internal/id/uuid"
	"github.com/plexfield/pagewatch/internal/logging"
	"github.com/plexfield/pagewatch/internal/notify"
	"github.com/plexfield/pagewatch/internal/pipeline"
	"github.com/plexfield/pagewatch/internal/report"
	"github.com/plexfield/pagewatch/internal/schedule"
	"github.com/plexfield/pagewatch/internal/snapshot"
	"github.com/plexfield/pagewatch/internal/watchlist"
)

// App holds the shared, long-lived services. It is initialized once at
// startup and handed to the commands that need it.
type App struct {
	cfg         config.Config
	logger      *zap.Logger
	store       snapshot.Store
	watch       *watchlist.Watchlist
	browser     *crawler.BrowserFetcher
	publisher   notify.Publisher
	pubsubClose func() error
	coordinator *pipeline.Coordinator
	scheduler   *schedule.Scheduler
	server      *api.Server
}

// New assembles the full service graph from configuration. It fails fast:
// any provider that cannot be initialized aborts startup.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Development)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	store, err := newStore(ctx, cfg.Storage, logger)
	if err != nil {
		return nil, err
	}

	watch, err := watchlist.Load(cfg.Watchlist.Path)
	if err != nil {
		return nil, fmt.Errorf("load watchlist: %w", err)
	}
	if err := store.SeedPages(ctx, watch.Seeds()); err != nil {
		return nil, fmt.Errorf("seed pages: %w", err)
	}

	arc, err := newArchive(ctx, cfg.Archive, logger)
	if err != nil {
		return nil, err
	}

	clock := system.New()
	sampler := crawler.NewSampler(cfg.Crawler.Seed)
	pause := crawler.TimerPause{}
	static := crawler.NewStaticFetcher(crawler.StaticConfig{
		RespectRobots: cfg.Crawler.RespectRobots,
	})
	browser := crawler.NewBrowserFetcher(crawler.BrowserConfig{
		NavTimeout: cfg.Crawler.NavTimeout(),
	}, sampler, pause)
	crawl := crawler.New(
		crawler.Config{
			DelayMin:    cfg.Crawler.DelayMin(),
			DelayMax:    cfg.Crawler.DelayMax(),
			MaxRetries:  cfg.Crawler.MaxRetries,
			RetryWait:   cfg.Crawler.RetryWait(),
			BrowserOnly: cfg.Crawler.BrowserOnly,
		},
		static,
		browser,
		crawler.NewShellDetector(cfg.Crawler.MinContentBytes),
		crawler.NewFixedWaitPolicy(cfg.Crawler.MaxRetries, cfg.Crawler.RetryWait()),
		pause,
		sampler,
		clock,
		logger,
	)

	runner := pipeline.NewRunner(
		store, crawl, arc,
		sha256.New(), uuid.New(), clock,
		cfg.Diff.ChangeThresholdPct, logger,
	)

	var summarizer pipeline.Summarizer
	var comparer pipeline.Comparer
	if cfg.Analysis.Enabled && cfg.Analysis.APIKey != "" {
		client := analysis.NewClient(cfg.Analysis.APIKey)
		summarizer = analysis.NewSummarizer(client, cfg.Analysis.Model, logger)
		comparer = analysis.NewComparer(client, cfg.Analysis.Model, logger)
	} else {
		logger.Info("AI analysis disabled")
	}

	notifier := notify.NewSlack(cfg.Notify.SlackWebhookURL, logger)

	var publisher notify.Publisher = notify.Noop{}
	var pubsubClose func() error
	if cfg.Notify.PubSub.ProjectID != "" && cfg.Notify.PubSub.TopicID != "" {
		ps, err := notify.NewPubSubPublisher(ctx, cfg.Notify.PubSub.ProjectID, cfg.Notify.PubSub.TopicID, logger)
		if err != nil {
			return nil, fmt.Errorf("init pubsub publisher: %w", err)
		}
		publisher = ps
		pubsubClose = ps.Close
	}

	coordinator := pipeline.NewCoordinator(pipeline.CoordinatorDeps{
		Runner:     runner,
		Store:      store,
		Watchlist:  watch,
		Summarizer: summarizer,
		Comparer:   comparer,
		Notifier:   notifier,
		Publisher:  publisher,
		JSONReport: report.NewJSONWriter(cfg.Reports.Dir, logger),
		Digest:     report.NewMarkdownWriter(cfg.Reports.Dir, logger),
		Dashboard:  report.NewDashboard(cfg.Reports.DashboardDir, logger),
		Clock:      clock,
		Logger:     logger,
	})

	logger.Info("application services initialized",
		zap.String("storage", cfg.Storage.Provider),
		zap.String("archive", cfg.Archive.Provider),
		zap.Int("watched_slugs", len(watch.Entries)))

	return &App{
		cfg:         cfg,
		logger:      logger,
		store:       store,
		watch:       watch,
		browser:     browser,
		publisher:   publisher,
		pubsubClose: pubsubClose,
		coordinator: coordinator,
		scheduler:   schedule.New(clock, logger),
		server:      api.NewServer(store, logger),
	}, nil
}

func newStore(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (snapshot.Store, error) {
	switch cfg.Provider {
	case "sqlite":
		logger.Info("using sqlite store", zap.String("path", cfg.SQLitePath))
		store, err := snapshot.NewSQLiteStore(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("init sqlite store: %w", err)
		}
		return store, nil
	case "postgres":
		logger.Info("using postgres store")
		store, err := snapshot.NewPostgresStore(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("init postgres store: %w", err)
		}
		return store, nil
	case "memory":
		logger.Info("using in-memory store, data will not persist")
		return snapshot.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage provider: %s", cfg.Provider)
	}
}

func newArchive(ctx context.Context, cfg config.ArchiveConfig, logger *zap.Logger) (archive.Store, error) {
	switch cfg.Provider {
	case "noop":
		return archive.Noop{}, nil
	case "local":
		logger.Info("archiving raw HTML locally", zap.String("dir", cfg.Dir))
		arc, err := archive.NewLocal(cfg.Dir)
		if err != nil {
			return nil, fmt.Errorf("init local archive: %w", err)
		}
		return arc, nil
	case "gcs":
		logger.Info("archiving raw HTML to GCS", zap.String("bucket", cfg.Bucket))
		client, err := gcstorage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("init gcs client: %w", err)
		}
		arc, err := archive.NewGCS(client, cfg.Bucket)
		if err != nil {
			return nil, fmt.Errorf("init gcs archive: %w", err)
		}
		return arc, nil
	default:
		return nil, fmt.Errorf("unknown archive provider: %s", cfg.Provider)
	}
}

// Config returns the loaded configuration.
func (a *App) Config() config.Config { return a.cfg }

// Logger returns the shared logger.
func (a *App) Logger() *zap.Logger { return a.logger }

// Store returns the snapshot store.
func (a *App) Store() snapshot.Store { return a.store }

// Watchlist returns the tracked-page list.
func (a *App) Watchlist() *watchlist.Watchlist { return a.watch }

// Coordinator returns the full-run orchestrator.
func (a *App) Coordinator() *pipeline.Coordinator { return a.coordinator }

// Scheduler returns the daily trigger.
func (a *App) Scheduler() *schedule.Scheduler { return a.scheduler }

// Server returns the read-only API server.
func (a *App) Server() *api.Server { return a.server }

// Close tears down services in reverse initialization order.
func (a *App) Close() {
	a.logger.Info("shutting down application services")
	if a.pubsubClose != nil {
		if err := a.pubsubClose(); err != nil {
			a.logger.Warn("error closing pubsub publisher", zap.Error(err))
		}
	}
	if a.browser != nil {
		a.browser.Close()
	}
	if err := a.store.Close(); err != nil {
		a.logger.Warn("error closing store", zap.Error(err))
	}
	// Best effort: stderr sync commonly fails on ttys.
	_ = a.logger.Sync()
}
