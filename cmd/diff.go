package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/plexfield/pagewatch/internal/snapshot"
	"github.com/plexfield/pagewatch/internal/textdiff"
)

func newDiffCmd() *cobra.Command {
	var site string
	cmd := &cobra.Command{
		Use:   "diff <slug>",
		Short: "Prints a unified diff of a page's two latest snapshots",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiffCommand(cmd, args[0], site)
		},
	}
	cmd.Flags().StringVar(&site, "site", snapshot.SiteCompetitor, "which side of the pair to diff (self or competitor)")
	return cmd
}

func runDiffCommand(cmd *cobra.Command, slug, site string) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	if !snapshot.ValidSite(site) {
		return fmt.Errorf("unknown site %q (self or competitor)", site)
	}

	entry, ok := appInstance.Watchlist().Entry(slug)
	if !ok {
		return fmt.Errorf("slug %q is not tracked", slug)
	}
	url := entry.CompetitorURL
	if site == snapshot.SiteSelf {
		url = entry.SelfURL
	}

	ctx := cmd.Context()
	store := appInstance.Store()
	page, err := store.PageByURL(ctx, url)
	if err != nil {
		return fmt.Errorf("look up page: %w", err)
	}
	snaps, err := store.LatestSnapshots(ctx, page.ID, 2)
	if err != nil {
		return fmt.Errorf("load snapshots: %w", err)
	}
	if len(snaps) < 2 {
		return fmt.Errorf("page %s (%s) has %d snapshot(s); need two to diff", slug, site, len(snaps))
	}

	// LatestSnapshots is newest first.
	newer, older := snaps[0], snaps[1]
	unified, err := textdiff.Unified(
		older.CleanText, newer.CleanText,
		fmt.Sprintf("%s@%s", slug, older.FetchedAt.UTC().Format("2006-01-02 15:04")),
		fmt.Sprintf("%s@%s", slug, newer.FetchedAt.UTC().Format("2006-01-02 15:04")),
	)
	if err != nil {
		return fmt.Errorf("render diff: %w", err)
	}
	if strings.TrimSpace(unified) == "" {
		cmd.Println("No changes between the two latest snapshots.")
		return nil
	}
	cmd.Print(unified)
	return nil
}

func indent(text, prefix string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = prefix + line
	}
	return strings.Join(lines, "\n")
}
