package source

import (
	"fmt"

	"github.com/lexicrawl/lexicrawl/internal/model"
)

// Adapter abstracts a remote dictionary site. The crawl engine knows nothing
// about any particular site's URL scheme or page structure; adapters supply
// the seeds and turn fetched bodies into entries and further targets.
type Adapter interface {
	// Tag identifies the source (e.g. "lsj"). Stored entries carry it so
	// several sources can share one database.
	Tag() string

	// SeedTargets returns the initial discovery targets for an empty queue.
	SeedTargets() ([]*model.CrawlTarget, error)

	// Parse extracts entries and newly discovered targets from a fetched
	// body. A structurally broken page yields a *ParseError; a page that is
	// merely empty of content yields an empty Result, which is not an error.
	Parse(target *model.CrawlTarget, body []byte) (*Result, error)
}

// Result is the outcome of parsing one fetched page.
type Result struct {
	// Entries holds the lexicon entries extracted from the page.
	Entries []*model.LexiconEntry

	// Discovered holds further targets the page linked to.
	Discovered []*model.CrawlTarget
}

// ParseError marks a page whose structure the adapter could not interpret.
// It is never retryable: the same bytes would fail the same way.
type ParseError struct {
	// URL is the page that failed to parse.
	URL string

	// Err is the underlying failure.
	Err error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.URL, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As chains.
func (e *ParseError) Unwrap() error {
	return e.Err
}
