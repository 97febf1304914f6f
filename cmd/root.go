// Package cmd defines the CLI commands for the pagewatch executable.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/plexfield/pagewatch/internal/api"
	"github.com/plexfield/pagewatch/internal/app"
	"github.com/plexfield/pagewatch/internal/config"
	"github.com/plexfield/pagewatch/internal/pipeline"
	"github.com/plexfield/pagewatch/internal/schedule"
	"github.com/plexfield/pagewatch/internal/snapshot"
	"github.com/plexfield/pagewatch/internal/watchlist"
)

var cfgFile string

// appKeyType is the key for storing the App in the context.
type appKeyType string

const appKey appKeyType = "app"

// App is the service surface commands depend on. Keeping it an interface
// lets tests inject a stub factory.
type App interface {
	Close()
	Config() config.Config
	Logger() *zap.Logger
	Store() snapshot.Store
	Watchlist() *watchlist.Watchlist
	Coordinator() *pipeline.Coordinator
	Scheduler() *schedule.Scheduler
	Server() *api.Server
}

// newApp is the application factory, a variable so tests can replace it.
var newApp = func(ctx context.Context) (App, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	return app.New(ctx, cfg)
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pagewatch",
		Short: "Monitors competitor web pages for content changes.",
		Long: `pagewatch snapshots a fixed set of our pages and their competitor
counterparts, diffs adjacent captures, scores content depth against the
competition, and delivers alerts and reports when something changes.`,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := newApp(cmd.Context())
			if err != nil {
				return fmt.Errorf("initialize application services: %w", err)
			}
			ctx := context.WithValue(cmd.Context(), appKey, appInstance)
			cmd.SetContext(ctx)
			return nil
		},

		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if appInstance, ok := cmd.Context().Value(appKey).(App); ok && appInstance != nil {
				appInstance.Close()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default searches the XDG config dir)")

	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newWatchCmd())
	cmd.AddCommand(newCompareCmd())
	cmd.AddCommand(newDiffCmd())
	cmd.AddCommand(newInitDBCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func resolveApp(ctx context.Context) (App, error) {
	appInstance, ok := ctx.Value(appKey).(App)
	if !ok || appInstance == nil {
		return nil, errors.New("application services not initialized")
	}
	return appInstance, nil
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
