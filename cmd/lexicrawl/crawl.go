package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lexicrawl/lexicrawl/internal/config"
	"github.com/lexicrawl/lexicrawl/internal/crawler"
	"github.com/lexicrawl/lexicrawl/internal/database"
	"github.com/lexicrawl/lexicrawl/internal/fetcher"
	"github.com/lexicrawl/lexicrawl/internal/log"
	"github.com/lexicrawl/lexicrawl/internal/report"
	"github.com/lexicrawl/lexicrawl/internal/source"
	"github.com/lexicrawl/lexicrawl/internal/source/perseus"
)

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Crawl the lexicon into the local database",
		Long: `Crawl fetches dictionary entries from the configured source into the
local SQLite database.

Progress is durable: every target (letter page or entry page) is tracked in
a queue, so interrupting the crawl with Ctrl-C and re-running it continues
where it stopped. Completed targets are never fetched twice.

Requests are spaced at least the configured delay apart, globally across
all workers, measured from the start of the previous request.

Examples:
  # Small test crawl: two letters, five entries each
  lexicrawl crawl --max-letters 2 --max-entries 5

  # Resume an interrupted crawl (limits only matter for the initial seeding)
  lexicrawl crawl --max-letters 2 --max-entries 5

  # Full crawl of the entire lexicon (takes many hours at the polite rate)
  lexicrawl crawl --force

  # Crawl and export the accumulated lexicon as JSON
  lexicrawl crawl --max-letters 2 --max-entries 5 -o lexicon.json

Configuration file (.lexicrawl) example:
  defaults:
    delay: "2s"
  sources:
    lsj:
      base_url: "https://mirror.example.org/hopper"
      max_retries: 5`,
		Args: cobra.NoArgs,
		RunE: runCrawlCmd,
	}

	// Crawl scope flags
	cmd.Flags().IntP("max-letters", "l", 0,
		"Limit how many alphabet letters are seeded (0 = all)")
	cmd.Flags().IntP("max-entries", "g", 0,
		"Limit how many entry links are taken per letter page (0 = all)")
	cmd.Flags().BoolP("force", "f", false,
		"Allow a fully unbounded crawl of the entire lexicon")

	// Politeness and retry flags
	cmd.Flags().DurationP("delay", "d", config.DefaultRequestDelay,
		"Minimum interval between request starts")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Per-request HTTP timeout")
	cmd.Flags().IntP("max-retries", "r", config.DefaultMaxRetries,
		"Retryable failures a target may accumulate before failing permanently")
	cmd.Flags().StringP("user-agent", "u", config.DefaultUserAgent,
		"User-Agent header sent with every request")

	// Concurrency flags
	cmd.Flags().IntP("concurrency", "w", config.DefaultConcurrency,
		"Number of concurrent workers (requests stay rate-limited globally)")
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of targets claimed from the queue per round trip")

	// Storage and output flags
	cmd.Flags().String("db-dir", "",
		"Database directory (default: XDG data directory)")
	cmd.Flags().StringP("output", "o", "",
		"Export the accumulated lexicon to this JSON file after the crawl")
	cmd.Flags().Bool("pretty", false,
		"Indent the JSON export")
	cmd.Flags().BoolP("markdown", "m", false,
		"Render the end-of-run summary as Markdown instead of plain text")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .lexicrawl in current or home directory)")

	return cmd
}

// runCrawlCmd executes the crawl command.
func runCrawlCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildCrawlConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := log.NewLogger(os.Stderr, cfg.Verbose)
	slog.SetDefault(logger)

	// Set up context with signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal, finishing in-flight targets...")
		cancel()
	}()

	return runCrawl(ctx, cfg, logger, cmd)
}

// buildCrawlConfig creates a Config from cobra command flags.
func buildCrawlConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()
	cfg.Verbose = getVerboseFlag(cmd)

	var err error
	if cfg.MaxLetters, err = cmd.Flags().GetInt("max-letters"); err != nil {
		return nil, err
	}
	if cfg.MaxEntriesPerGroup, err = cmd.Flags().GetInt("max-entries"); err != nil {
		return nil, err
	}
	if cfg.Force, err = cmd.Flags().GetBool("force"); err != nil {
		return nil, err
	}
	if cfg.RequestDelay, err = cmd.Flags().GetDuration("delay"); err != nil {
		return nil, err
	}
	if cfg.Timeout, err = cmd.Flags().GetDuration("timeout"); err != nil {
		return nil, err
	}
	if cfg.MaxRetries, err = cmd.Flags().GetInt("max-retries"); err != nil {
		return nil, err
	}
	if cfg.UserAgent, err = cmd.Flags().GetString("user-agent"); err != nil {
		return nil, err
	}
	if cfg.Concurrency, err = cmd.Flags().GetInt("concurrency"); err != nil {
		return nil, err
	}
	if cfg.BatchSize, err = cmd.Flags().GetInt("batch"); err != nil {
		return nil, err
	}
	if cfg.Output, err = cmd.Flags().GetString("output"); err != nil {
		return nil, err
	}
	if cfg.PrettyExport, err = cmd.Flags().GetBool("pretty"); err != nil {
		return nil, err
	}
	if cfg.MarkdownSummary, err = cmd.Flags().GetBool("markdown"); err != nil {
		return nil, err
	}
	if cfg.ConfigFilePath, err = cmd.Flags().GetString("config"); err != nil {
		return nil, err
	}
	dbDir, err := cmd.Flags().GetString("db-dir")
	if err != nil {
		return nil, err
	}
	if dbDir != "" {
		cfg.DBDir = dbDir
	}

	// Load per-source overrides from the config file. An explicitly named
	// file must exist; the default search may come up empty.
	explicitConfigPath := cfg.ConfigFilePath != ""
	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	if configPath != "" {
		cfg.Sources, err = config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	} else if explicitConfigPath {
		return nil, fmt.Errorf("configuration file not found: %s", cfg.ConfigFilePath)
	}

	applySourceOverrides(cfg)
	return cfg, nil
}

// applySourceOverrides folds the selected source's file overrides into the
// effective configuration. Flags set the baseline; the file refines it per
// source.
func applySourceOverrides(cfg *config.Config) {
	src := cfg.SourceConfig()
	if src.Delay != 0 {
		cfg.RequestDelay = src.Delay.Std()
	}
	if src.UserAgent != "" {
		cfg.UserAgent = src.UserAgent
	}
	if src.MaxRetries != 0 {
		cfg.MaxRetries = src.MaxRetries
	}
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// newAdapter builds the site adapter for the configured source.
func newAdapter(cfg *config.Config, logger *slog.Logger) (source.Adapter, error) {
	switch cfg.SourceName {
	case perseus.DefaultTag:
		opts := []perseus.Option{
			perseus.WithMaxLetters(cfg.MaxLetters),
			perseus.WithMaxEntriesPerLetter(cfg.MaxEntriesPerGroup),
			perseus.WithLogger(logger),
		}
		if baseURL := cfg.SourceConfig().BaseURL; baseURL != "" {
			opts = append(opts, perseus.WithBaseURL(baseURL))
		}
		return perseus.New(opts...), nil
	default:
		return nil, fmt.Errorf("unknown source %q (supported: %s)", cfg.SourceName, perseus.DefaultTag)
	}
}

// runCrawl executes the crawl.
func runCrawl(ctx context.Context, cfg *config.Config, logger *slog.Logger, cmd *cobra.Command) error {
	out := cmd.OutOrStdout()

	db, err := database.Open(cfg.DBDir, database.Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
		MaxRetries:        cfg.MaxRetries,
	})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()
	logger.Info("database opened", "path", db.Path())

	adapter, err := newAdapter(cfg, logger)
	if err != nil {
		return err
	}

	fetch := fetcher.New(
		fetcher.WithLogger(logger),
		fetcher.WithInterval(cfg.RequestDelay),
		fetcher.WithTimeout(cfg.Timeout),
		fetcher.WithMaxAttempts(cfg.FetchAttempts),
		fetcher.WithMaxBackoff(cfg.MaxBackoff),
		fetcher.WithUserAgent(cfg.UserAgent),
		fetcher.WithMaxBodySize(cfg.MaxBodySize),
	)

	orchestrator := crawler.New(db, db, fetch, adapter,
		crawler.WithLogger(logger),
		crawler.WithConcurrency(cfg.Concurrency),
		crawler.WithBatchSize(cfg.BatchSize),
	)

	fmt.Fprintf(out, "Crawling source %q into %s...\n\n", cfg.SourceName, db.Path())

	summary, err := orchestrator.Run(ctx)
	if err != nil {
		return fmt.Errorf("crawl aborted: %w", err)
	}

	// The run context may be canceled; the remaining reads and the export
	// use a fresh one.
	tail := context.Background()

	failed, err := db.FailedTargets(tail, 25)
	if err != nil {
		logger.Error("failed to list failed targets", "error", err)
	}

	var writer report.Writer = report.NewSimpleWriter(out)
	if cfg.MarkdownSummary {
		writer = report.NewMarkdownWriter(out)
	}
	if _, err := writer.WriteSummary(summary, failed); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}

	if cfg.Output != "" {
		if err := exportLexicon(tail, db, cfg.Output, cfg.PrettyExport, out); err != nil {
			return err
		}
	}

	if summary.Interrupted {
		fmt.Fprintln(out, "\nCrawl interrupted. Re-run the same command to resume.")
	}
	return nil
}
