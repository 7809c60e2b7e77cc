// Package main provides the entry point for the lexicrawl CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for lexicrawl.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lexicrawl",
		Short: "Resumable crawler for online Greek lexica",
		Long: `lexicrawl crawls online dictionaries (currently the LSJ Greek-English
Lexicon on the Perseus Digital Library) into a local SQLite database.

The crawl is resumable: progress is tracked per target in a durable queue,
so an interrupted run continues where it stopped. Requests are rate-limited
globally to stay polite toward the remote service.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	// Add subcommands
	cmd.AddCommand(NewCrawlCmd())
	cmd.AddCommand(NewExportCmd())
	cmd.AddCommand(NewStatusCmd())
	cmd.AddCommand(NewResetCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
