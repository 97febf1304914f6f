package cmd

import "github.com/spf13/cobra"

// Version is stamped at build time via -ldflags.
var Version = "dev"

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Prints the pagewatch version",
		// The root hooks build the full service graph; version needs none of it.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Println("pagewatch", Version)
		},
	}
}
