package fetcher

import "fmt"

// FetchError describes a failed fetch and whether repeating it could help.
//
// Retryable covers transient conditions: timeouts, connection failures,
// HTTP 5xx, and HTTP 429. Permanent conditions (other 4xx, malformed URLs,
// oversized bodies) set Retryable to false so the queue fails the target
// without burning its retry budget.
type FetchError struct {
	// URL is the requested URL.
	URL string

	// StatusCode is the HTTP status, or 0 when no response arrived.
	StatusCode int

	// Retryable reports whether a later attempt could plausibly succeed.
	Retryable bool

	// Err is the underlying failure.
	Err error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: HTTP %d: %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As chains.
func (e *FetchError) Unwrap() error {
	return e.Err
}

// retryableStatus reports whether an HTTP status code indicates a condition
// a later attempt could resolve. Server errors and explicit throttling
// qualify; other client errors describe the request itself and do not.
func retryableStatus(code int) bool {
	return code >= 500 || code == 429
}
