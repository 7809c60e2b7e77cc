// Package fetcher provides the polite HTTP layer of the crawl.
//
// A single Fetcher is shared by every worker. It enforces the global
// request-spacing guarantee (minimum interval between request starts,
// regardless of concurrency), applies per-request timeouts, retries
// transient failures with capped exponential backoff, and classifies every
// failure as retryable or permanent via FetchError so the queue can decide
// whether a target deserves another attempt.
package fetcher
