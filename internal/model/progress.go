package model

import "time"

// Progress is a point-in-time snapshot of queue state, queryable at any time
// without pausing the crawl.
type Progress struct {
	// Total is the number of targets ever enqueued.
	Total int `json:"total"`

	// Pending is the number of targets waiting to be fetched.
	Pending int `json:"pending"`

	// InProgress is the number of targets currently being processed.
	InProgress int `json:"in_progress"`

	// Completed is the number of successfully processed targets.
	Completed int `json:"completed"`

	// Failed is the number of permanently failed targets.
	Failed int `json:"failed"`
}

// Done reports whether the crawl has reached its fixed point:
// no pending or in-flight work remains.
func (p Progress) Done() bool {
	return p.Pending == 0 && p.InProgress == 0
}

// Summary describes the outcome of one crawl run.
type Summary struct {
	// Progress is the queue state at the end of the run.
	Progress Progress `json:"progress"`

	// EntriesStored is the total number of lexicon entries in the store
	// after the run, across all runs (the store is cumulative).
	EntriesStored int `json:"entries_stored"`

	// TargetsProcessed counts targets this run attempted, successful or not.
	TargetsProcessed int `json:"targets_processed"`

	// EntriesUpserted counts entries written during this run.
	EntriesUpserted int `json:"entries_upserted"`

	// Discovered counts new targets enqueued by discovery during this run.
	Discovered int `json:"discovered"`

	// Recovered counts in_progress rows reverted to pending at startup.
	Recovered int `json:"recovered"`

	// Interrupted is true when the run stopped on cancellation rather
	// than by reaching the fixed point.
	Interrupted bool `json:"interrupted"`

	// Elapsed is the wall-clock duration of the run.
	Elapsed time.Duration `json:"elapsed"`

	// StartedAt is when the run began.
	StartedAt time.Time `json:"started_at"`
}

// FailedTarget is a failure record surfaced for manual inspection
// or a later retry pass.
type FailedTarget struct {
	// URL is the normalized target URL.
	URL string `json:"url"`

	// Kind is the target kind.
	Kind TargetKind `json:"kind"`

	// RetryCount is how many retryable failures were recorded.
	RetryCount int `json:"retry_count"`

	// ErrorMessage is the last failure reason.
	ErrorMessage string `json:"error_message"`
}
