package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and provide specific
// information about what is wrong with the configuration.
//
// Design decision: We use package-level sentinel errors rather than
// creating new error instances in Validate(). This allows callers to use
// errors.Is() for programmatic error handling while still providing
// human-readable messages.
var (
	// ErrInvalidDelay is returned when the request delay is negative.
	// Use 0 to disable the inter-request delay (not recommended).
	ErrInvalidDelay = errors.New("invalid request delay: must be non-negative")

	// ErrInvalidTimeout is returned when the timeout is not positive.
	// A timeout of zero or negative would cause immediate request failures.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidConcurrency is returned when the worker count is not positive.
	ErrInvalidConcurrency = errors.New("invalid concurrency: must be positive")

	// ErrInvalidBatchSize is returned when the batch size is not positive.
	// A batch size of zero would mean no targets are ever dequeued.
	ErrInvalidBatchSize = errors.New("invalid batch size: must be positive")

	// ErrInvalidMaxRetries is returned when the retry budget is negative.
	// Zero is allowed and falls back to the default budget.
	ErrInvalidMaxRetries = errors.New("invalid max retries: must be non-negative")

	// ErrInvalidFetchAttempts is returned when the fetch attempt ceiling
	// is not positive. The fetcher needs at least one attempt per call.
	ErrInvalidFetchAttempts = errors.New("invalid fetch attempts: must be positive")

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	// Use 0 to fall back to the default limit.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")

	// ErrInvalidLimit is returned when a crawl limit is negative.
	// Use 0 to disable a limit.
	ErrInvalidLimit = errors.New("invalid crawl limit: must be non-negative")

	// ErrUnboundedCrawl is returned when no limits are set and --force is
	// absent. Crawling the entire lexicon takes many hours at the polite
	// request rate and should be an explicit decision.
	ErrUnboundedCrawl = errors.New("no crawl limits specified: use --max-letters/--max-entries or pass --force to crawl the entire lexicon")
)
