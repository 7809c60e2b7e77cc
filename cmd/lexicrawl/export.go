package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/lexicrawl/lexicrawl/internal/config"
	"github.com/lexicrawl/lexicrawl/internal/database"
	"github.com/lexicrawl/lexicrawl/internal/report"
)

// NewExportCmd creates the export command.
func NewExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the stored lexicon as JSON",
		Long: `Export writes every stored lexicon entry as a single JSON object keyed
by entry identifier. The export reflects everything accumulated across all
crawl runs so far; it does not require the crawl to be finished.

Examples:
  # Export to the default file
  lexicrawl export

  # Pretty-printed export to a chosen path
  lexicrawl export --pretty -o lexicon.json

  # Export to stdout for piping
  lexicrawl export -o -`,
		Args: cobra.NoArgs,
		RunE: runExportCmd,
	}

	cmd.Flags().StringP("output", "o", config.DefaultExportPath,
		`Output file path ("-" for stdout)`)
	cmd.Flags().Bool("pretty", false,
		"Indent the JSON output")
	cmd.Flags().String("db-dir", "",
		"Database directory (default: XDG data directory)")

	return cmd
}

// runExportCmd executes the export command.
func runExportCmd(cmd *cobra.Command, _ []string) error {
	output, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	pretty, err := cmd.Flags().GetBool("pretty")
	if err != nil {
		return err
	}
	db, err := openExistingDB(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	if output == "-" {
		_, err := newExporter(cmd.OutOrStdout(), pretty).Export(context.Background(), db)
		return err
	}
	return exportLexicon(context.Background(), db, output, pretty, cmd.OutOrStdout())
}

// newExporter builds an Exporter with optional pretty-printing.
func newExporter(w io.Writer, pretty bool) *report.Exporter {
	if pretty {
		return report.NewExporter(w, report.WithPretty())
	}
	return report.NewExporter(w)
}

// exportLexicon writes the stored lexicon to a file, creating parent
// directories as needed.
func exportLexicon(ctx context.Context, db *database.DB, path string, pretty bool, out io.Writer) error {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644) //nolint:gosec // Export data is not sensitive
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	defer f.Close()

	count, err := newExporter(f, pretty).Export(ctx, db)
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	fmt.Fprintf(out, "Exported %d entries to %s\n", count, path)
	return nil
}

// openExistingDB opens the database without creating it, for commands that
// only make sense after a crawl has run.
func openExistingDB(cmd *cobra.Command) (*database.DB, error) {
	dbDir, err := cmd.Flags().GetString("db-dir")
	if err != nil {
		return nil, err
	}
	if dbDir == "" {
		dbDir = config.XDGDataDir()
	}

	db, err := database.Open(dbDir, database.Options{CreateIfNotExists: false, EnableWAL: true})
	if err != nil {
		return nil, fmt.Errorf("no database found in %s (run 'lexicrawl crawl' first): %w", dbDir, err)
	}
	return db, nil
}
