package cmd

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func newCompareCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "compare",
		Short: "Scores content depth against the competition without crawling",
		Long: `Compares the latest stored snapshot of each tracked page pair across the
eight content-depth dimensions and prints the scores. Requires AI analysis
to be configured.`,
		RunE: runCompareCommand,
	}
}

func runCompareCommand(cmd *cobra.Command, _ []string) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	comparisons, err := appInstance.Coordinator().Compare(ctx)
	if err != nil {
		return fmt.Errorf("compare: %w", err)
	}
	if len(comparisons) == 0 {
		cmd.Println("No comparisons available; run the pipeline first.")
		return nil
	}

	for _, c := range comparisons {
		cmd.Printf("%s\n", c.Slug)
		cmd.Printf("  us:   %d/10 (%d words, weighted %.1f)\n", c.SelfScore, c.SelfWordCount, c.SelfWeighted)
		cmd.Printf("  them: %d/10 (%d words, weighted %.1f)\n", c.CompetitorScore, c.CompetitorWordCount, c.CompetitorWeighted)
		for _, d := range c.Dimensions {
			cmd.Printf("    %-22s %.1f vs %.1f (gap %+.1f)\n", d.Name, d.Self, d.Competitor, d.Gap)
		}
		if c.ContentGaps != "" {
			cmd.Printf("  gaps:\n%s\n", indent(c.ContentGaps, "    "))
		}
		if len(c.Keywords) > 0 {
			cmd.Printf("  keywords they cover: %v\n", c.Keywords)
		}
		cmd.Println()
	}
	return nil
}
