package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Runs the full monitoring pipeline once",
		Long: `Crawls every tracked page, snapshots and diffs each one, then runs the
collaborators: AI summaries, Slack alerts, comparisons, and reports.`,
		RunE: runRunCommand,
	}
}

func runRunCommand(cmd *cobra.Command, _ []string) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	res, err := appInstance.Coordinator().Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("run pipeline: %w", err)
	}
	if res == nil {
		return nil
	}

	cmd.Printf("Run %s: %d pages snapshotted, %d failed, %d significant change(s)\n",
		res.RunID, len(res.Processed), len(res.Failed), len(res.Significant))
	for _, ev := range res.Significant {
		cmd.Printf("  %s (%s): %.1f%% change\n", ev.Page.Slug, ev.Page.Site, ev.ChangePct)
	}
	for _, f := range res.Failed {
		cmd.Printf("  FAILED %s (%s): %s/%s\n", f.Page.Slug, f.Page.Site, f.Stage, f.Reason)
	}
	return nil
}
