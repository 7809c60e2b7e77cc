package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// NewResetCmd creates the reset command.
func NewResetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Return permanently failed targets to the queue",
		Long: `Reset reverts every permanently failed target to pending with a fresh
retry budget. Use it after a transient outage has passed, then re-run the
crawl to retry those targets.`,
		Args: cobra.NoArgs,
		RunE: runResetCmd,
	}

	cmd.Flags().String("db-dir", "",
		"Database directory (default: XDG data directory)")

	return cmd
}

// runResetCmd executes the reset command.
func runResetCmd(cmd *cobra.Command, _ []string) error {
	db, err := openExistingDB(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	n, err := db.ResetFailed(context.Background())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if n == 0 {
		fmt.Fprintln(out, "No failed targets to reset.")
		return nil
	}
	fmt.Fprintf(out, "Reset %d failed target(s) to pending. Run 'lexicrawl crawl' to retry them.\n", n)
	return nil
}
