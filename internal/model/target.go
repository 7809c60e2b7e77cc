package model

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// TargetKind classifies what a crawl target produces when processed.
type TargetKind string

const (
	// KindDiscovery marks a target whose page yields further targets
	// (for example an alphabet-letter index page).
	KindDiscovery TargetKind = "discovery"

	// KindEntry marks a target whose page yields at most one lexicon entry.
	KindEntry TargetKind = "entry"
)

// TargetStatus is the lifecycle state of a crawl target.
//
// The only legal transitions are:
//
//	pending -> in_progress -> completed
//	pending -> in_progress -> pending (retryable failure or requeue)
//	pending -> in_progress -> failed
//
// No target may remain in_progress across a restart; the queue store
// reverts such rows to pending on startup.
type TargetStatus string

const (
	// StatusPending is the initial state; the target is waiting to be fetched.
	StatusPending TargetStatus = "pending"

	// StatusInProgress is set for the duration of a fetch attempt.
	StatusInProgress TargetStatus = "in_progress"

	// StatusCompleted is terminal; the target was fetched and parsed.
	StatusCompleted TargetStatus = "completed"

	// StatusFailed is terminal; the target permanently failed.
	StatusFailed TargetStatus = "failed"
)

// CrawlTarget is one unit of crawl work identifying a single remote resource.
// Rows are created when discovered (seed list or discovery expansion), mutated
// only by the orchestrator through the queue store, and never deleted so that
// completed work survives restarts and failures remain inspectable.
type CrawlTarget struct {
	// ID is derived from the normalized URL and uniquely identifies the target.
	ID string

	// URL is the normalized resource URL to fetch.
	URL string

	// Kind determines how a successful response is interpreted.
	Kind TargetKind

	// Status is the current lifecycle state.
	Status TargetStatus

	// RetryCount is the number of retryable failures recorded so far.
	RetryCount int

	// LastAttemptAt is when the most recent fetch attempt started.
	// The zero time means the target has never been attempted.
	LastAttemptAt time.Time

	// ErrorMessage is the most recent failure reason, empty if none.
	ErrorMessage string

	// CreatedAt is when the target was first enqueued. Dequeue order is
	// oldest CreatedAt first, so it also determines resumption order.
	CreatedAt time.Time
}

// NewTarget creates a pending CrawlTarget for the given raw URL.
// The URL is normalized before the ID is derived, so two spellings of the
// same resource collapse into one target.
func NewTarget(kind TargetKind, rawURL string) (*CrawlTarget, error) {
	normalized, err := NormalizeURL(rawURL)
	if err != nil {
		return nil, err
	}
	return &CrawlTarget{
		ID:     TargetID(normalized),
		URL:    normalized,
		Kind:   kind,
		Status: StatusPending,
	}, nil
}

// NormalizeURL canonicalizes a URL for identity purposes.
// It lowercases the scheme and host, strips default ports and fragments,
// and rejects anything that is not an absolute http(s) URL.
//
// Fragments are stripped because they address positions within a document,
// not distinct resources; keeping them would let re-discovery of the same
// page enqueue duplicate work.
func NormalizeURL(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("invalid target URL %q: %w", raw, err)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("invalid target URL %q: scheme must be http or https", raw)
	}
	if u.Host == "" {
		return "", fmt.Errorf("invalid target URL %q: missing host", raw)
	}

	host := strings.ToLower(u.Host)
	switch {
	case u.Scheme == "http" && strings.HasSuffix(host, ":80"):
		host = strings.TrimSuffix(host, ":80")
	case u.Scheme == "https" && strings.HasSuffix(host, ":443"):
		host = strings.TrimSuffix(host, ":443")
	}
	u.Host = host

	u.Fragment = ""
	if u.Path == "/" && u.RawQuery == "" {
		u.Path = ""
	}

	return u.String(), nil
}

// TargetID derives the stable identifier for a normalized URL.
// SHA-256 keeps IDs fixed-width and safe to use as primary keys regardless
// of what characters appear in the URL.
func TargetID(normalizedURL string) string {
	sum := sha256.Sum256([]byte(normalizedURL))
	return hex.EncodeToString(sum[:])
}

// Terminal reports whether the status is a terminal state.
func (s TargetStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Valid reports whether the status is one of the known states.
func (s TargetStatus) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// Valid reports whether the kind is one of the known kinds.
func (k TargetKind) Valid() bool {
	return k == KindDiscovery || k == KindEntry
}
