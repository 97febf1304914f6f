package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newInitDBCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init-db",
		Short: "Creates the schema and seeds the tracked pages",
		Long: `Initialization runs during service assembly: the schema migration and
the watch-list seed are applied when the store opens. This command exists to
do that once, explicitly, and report the result.`,
		RunE: runInitDBCommand,
	}
}

func runInitDBCommand(cmd *cobra.Command, _ []string) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}

	pages, err := appInstance.Store().Pages(cmd.Context())
	if err != nil {
		return fmt.Errorf("list pages: %w", err)
	}
	cmd.Printf("Store ready: %d page(s) seeded from %d tracked slug(s)\n",
		len(pages), len(appInstance.Watchlist().Entries))
	for _, p := range pages {
		cmd.Printf("  %-20s %-10s %s\n", p.Slug, p.Site, p.URL)
	}
	return nil
}
