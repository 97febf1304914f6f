package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Runs the pipeline daily at the configured UTC hour",
		RunE:  runWatchCommand,
	}
}

func runWatchCommand(cmd *cobra.Command, _ []string) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	hour := appInstance.Config().Schedule.HourUTC
	logger := appInstance.Logger()
	job := func(ctx context.Context) {
		if _, err := appInstance.Coordinator().Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("scheduled run failed", zap.Error(err))
		}
	}

	if err := appInstance.Scheduler().Run(ctx, hour, job); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("scheduler: %w", err)
	}
	return nil
}
