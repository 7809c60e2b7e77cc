package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
// These values are chosen to be polite toward the Perseus Digital Library
// servers, matching the pacing the project has always used against them.
const (
	// DefaultRequestDelay is the minimum interval between request starts.
	// 1.2 seconds is conservative for a public academic service and is the
	// pacing the crawl has historically run at without being throttled.
	DefaultRequestDelay = 1200 * time.Millisecond

	// DefaultTimeout is the per-attempt HTTP timeout. Perseus pages are
	// small but the service can be slow under load; 30 seconds avoids
	// failing requests that would have succeeded.
	DefaultTimeout = 30 * time.Second

	// DefaultFetchAttempts is the number of attempts the fetcher makes
	// internally before surfacing a retryable failure to the queue.
	DefaultFetchAttempts = 3

	// DefaultMaxBackoff caps the exponential backoff delay between fetch
	// attempts. Without a cap, a few consecutive failures would push
	// delays into minutes and stall the whole crawl.
	DefaultMaxBackoff = 60 * time.Second

	// DefaultMaxRetries is the number of retryable failures a target may
	// accumulate before it is marked permanently failed.
	DefaultMaxRetries = 3

	// DefaultConcurrency is the orchestrator worker count. Workers share
	// one rate limiter, so this parallelizes parsing and storage, not
	// request rate. Two is enough to overlap parsing with the next fetch.
	DefaultConcurrency = 2

	// DefaultBatchSize is how many pending targets are claimed per queue
	// round trip. Small batches keep resumption granular; large batches
	// reduce queue chatter. Eight is a reasonable middle ground.
	DefaultBatchSize = 8

	// DefaultUserAgent identifies lexicrawl in HTTP requests.
	// A descriptive User-Agent lets service operators identify and contact
	// the crawler; this is a politeness requirement, not an option.
	DefaultUserAgent = "lexicrawl/1.0 (+https://github.com/lexicrawl/lexicrawl)"

	// DefaultMaxBodySize limits the response body size to read.
	// 5MB is generous for lexicon pages while preventing memory exhaustion
	// from unexpectedly large responses.
	DefaultMaxBodySize = 5 * 1024 * 1024 // 5MB

	// DefaultSourceName is the source adapter used when none is configured.
	DefaultSourceName = "lsj"

	// DefaultExportPath is the default JSON export location.
	DefaultExportPath = "lexicon_export.json"

	// AppName is the application name used for XDG directory paths.
	AppName = "lexicrawl"
)

// Config holds all configuration options for lexicrawl.
// This struct is populated from CLI flags and passed through the application
// via dependency injection rather than global state.
//
// Design decision: We use a single flat struct instead of nested structs
// (e.g., FetchConfig, QueueConfig) for simplicity. The number of options
// is manageable, and nesting would add complexity without significant benefit.
type Config struct {
	// DBDir is the directory holding the SQLite database.
	// Defaults to the XDG data directory (~/.local/share/lexicrawl on Linux).
	DBDir string

	// SourceName selects the source adapter (currently only "lsj").
	SourceName string

	// RequestDelay is the minimum interval between request starts,
	// enforced globally across all workers.
	RequestDelay time.Duration

	// Timeout is the per-attempt HTTP timeout.
	Timeout time.Duration

	// FetchAttempts is the fetcher-internal attempt ceiling per call.
	FetchAttempts int

	// MaxBackoff caps the exponential backoff between fetch attempts.
	MaxBackoff time.Duration

	// MaxRetries is the queue-level retry budget per target.
	MaxRetries int

	// Concurrency is the number of orchestrator workers.
	Concurrency int

	// BatchSize is the number of targets claimed per queue round trip.
	BatchSize int

	// UserAgent is sent with every HTTP request.
	UserAgent string

	// MaxBodySize is the maximum response body size in bytes to read.
	MaxBodySize int64

	// MaxLetters limits how many alphabet letters are seeded.
	// Zero means all letters.
	MaxLetters int

	// MaxEntriesPerGroup limits how many entry targets a single discovery
	// page may yield. Zero means no limit.
	MaxEntriesPerGroup int

	// Force allows running a fully unbounded crawl. Without it, a crawl
	// with no letter or entry limits is refused to prevent accidentally
	// crawling the entire lexicon.
	Force bool

	// Output is the JSON export path written after a crawl.
	// Empty means no export is performed by the crawl command.
	Output string

	// PrettyExport enables indented JSON export output.
	PrettyExport bool

	// MarkdownSummary renders the end-of-run summary as Markdown
	// instead of plain text.
	MarkdownSummary bool

	// Verbose enables detailed log output using slog.LevelDebug.
	// When false, only warnings and errors are logged.
	Verbose bool

	// ConfigFilePath is the path to the configuration file.
	// If empty, the tool searches for .lexicrawl in the current directory
	// and then in the user's home directory.
	ConfigFilePath string

	// Sources holds per-source overrides loaded from the config file.
	Sources *File
}

// NewConfig creates a new Config with default values.
// All fields are set to safe, polite defaults that work for most use cases.
// Users can override specific values after creation.
//
// Design decision: We use a constructor function instead of relying on
// zero values because many defaults are non-zero (delays, timeouts, limits).
// This also serves as documentation of what the defaults are.
func NewConfig() *Config {
	return &Config{
		DBDir:         XDGDataDir(),
		SourceName:    DefaultSourceName,
		RequestDelay:  DefaultRequestDelay,
		Timeout:       DefaultTimeout,
		FetchAttempts: DefaultFetchAttempts,
		MaxBackoff:    DefaultMaxBackoff,
		MaxRetries:    DefaultMaxRetries,
		Concurrency:   DefaultConcurrency,
		BatchSize:     DefaultBatchSize,
		UserAgent:     DefaultUserAgent,
		MaxBodySize:   DefaultMaxBodySize,
	}
}

// XDGDataDir returns the XDG data directory for lexicrawl.
// On Linux: ~/.local/share/lexicrawl
// On macOS: ~/Library/Application Support/lexicrawl
// On Windows: %LOCALAPPDATA%\lexicrawl
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for lexicrawl.
// On Linux: ~/.config/lexicrawl
// On macOS: ~/Library/Application Support/lexicrawl
// On Windows: %APPDATA%\lexicrawl
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// SourceConfig returns the effective configuration for the selected source,
// merging file overrides over defaults. Returns the zero value when no
// config file was loaded or it has no section for the source.
func (c *Config) SourceConfig() Source {
	if c.Sources == nil {
		return Source{}
	}
	return c.Sources.Get(c.SourceName)
}

// Validate checks if the configuration is valid.
// It returns a specific error describing what is invalid.
//
// Design decision: We validate at the config level rather than at each
// point of use to fail fast and provide clear error messages upfront.
// This is called once after CLI parsing, before any crawling begins.
func (c *Config) Validate() error {
	if c.RequestDelay < 0 {
		return ErrInvalidDelay
	}
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.Concurrency <= 0 {
		return ErrInvalidConcurrency
	}
	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}
	if c.MaxRetries < 0 {
		return ErrInvalidMaxRetries
	}
	if c.FetchAttempts <= 0 {
		return ErrInvalidFetchAttempts
	}
	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}
	if c.MaxLetters < 0 || c.MaxEntriesPerGroup < 0 {
		return ErrInvalidLimit
	}

	// An unbounded crawl fetches the entire lexicon, tens of thousands of
	// pages at the polite request rate. Require an explicit opt-in.
	if c.MaxLetters == 0 && c.MaxEntriesPerGroup == 0 && !c.Force {
		return ErrUnboundedCrawl
	}

	return nil
}
