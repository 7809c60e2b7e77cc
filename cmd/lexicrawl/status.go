package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// NewStatusCmd creates the status command.
func NewStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show crawl progress and failed targets",
		Long: `Status reports the state of the crawl queue and the entry store. It is
safe to run while a crawl is in progress (the database uses WAL mode, so
readers never block the writer).`,
		Args: cobra.NoArgs,
		RunE: runStatusCmd,
	}

	cmd.Flags().String("db-dir", "",
		"Database directory (default: XDG data directory)")
	cmd.Flags().Int("failures", 10,
		"How many failed targets to list")

	return cmd
}

// runStatusCmd executes the status command.
func runStatusCmd(cmd *cobra.Command, _ []string) error {
	failures, err := cmd.Flags().GetInt("failures")
	if err != nil {
		return err
	}
	db, err := openExistingDB(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := context.Background()
	out := cmd.OutOrStdout()

	progress, err := db.Progress(ctx)
	if err != nil {
		return err
	}
	entries, err := db.CountEntries(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Database: %s\n\n", db.Path())
	fmt.Fprintf(out, "Queue (%d targets):\n", progress.Total)
	fmt.Fprintf(out, "  completed:   %d\n", progress.Completed)
	fmt.Fprintf(out, "  failed:      %d\n", progress.Failed)
	fmt.Fprintf(out, "  pending:     %d\n", progress.Pending)
	fmt.Fprintf(out, "  in progress: %d\n", progress.InProgress)
	fmt.Fprintf(out, "\nEntries stored: %d\n", entries)

	switch {
	case progress.Total == 0:
		fmt.Fprintln(out, "\nThe queue is empty. Run 'lexicrawl crawl' to start.")
	case progress.Done():
		fmt.Fprintln(out, "\nThe crawl is complete.")
	default:
		fmt.Fprintln(out, "\nThe crawl is unfinished. Run 'lexicrawl crawl' to continue.")
	}

	if progress.Failed > 0 && failures > 0 {
		failed, err := db.FailedTargets(ctx, failures)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, "\nFailed targets:")
		for _, ft := range failed {
			fmt.Fprintf(out, "  %s (%s, retries %d): %s\n", ft.URL, ft.Kind, ft.RetryCount, ft.ErrorMessage)
		}
		if progress.Failed > len(failed) {
			fmt.Fprintf(out, "  ... and %d more\n", progress.Failed-len(failed))
		}
	}
	return nil
}
