package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/lexicrawl/lexicrawl/internal/model"
)

// SimpleWriter outputs human-readable text summaries.
//
// Design decision: We use plain text with ASCII formatting rather than
// ANSI colors by default because:
// 1. It works in all terminals without compatibility issues
// 2. It's easier to pipe to files or other tools
// 3. Color can be added as an option later if needed
type SimpleWriter struct {
	baseWriter

	// maxFailures caps how many failed targets are listed.
	maxFailures int
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithMaxFailures sets how many failed targets are listed (0 = all).
func WithMaxFailures(n int) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.maxFailures = n
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter:  newBaseWriter(output),
		maxFailures: 10,
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// WriteSummary outputs the crawl summary as plain text.
func (w *SimpleWriter) WriteSummary(summary *model.Summary, failed []model.FailedTarget) (int, error) {
	var b strings.Builder

	b.WriteString("CRAWL SUMMARY\n")
	b.WriteString("=============\n")
	fmt.Fprintf(&b, "Started:    %s\n", summary.StartedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(&b, "Elapsed:    %s\n", summary.Elapsed.Round(time.Millisecond))
	fmt.Fprintf(&b, "Status:     %s\n", statusText(summary))
	b.WriteString("\n")

	p := summary.Progress
	b.WriteString("QUEUE\n")
	fmt.Fprintf(&b, "  total:       %d\n", p.Total)
	fmt.Fprintf(&b, "  completed:   %d\n", p.Completed)
	fmt.Fprintf(&b, "  failed:      %d\n", p.Failed)
	fmt.Fprintf(&b, "  pending:     %d\n", p.Pending)
	fmt.Fprintf(&b, "  in progress: %d\n", p.InProgress)
	b.WriteString("\n")

	b.WriteString("THIS RUN\n")
	fmt.Fprintf(&b, "  targets processed: %d\n", summary.TargetsProcessed)
	fmt.Fprintf(&b, "  entries written:   %d\n", summary.EntriesUpserted)
	fmt.Fprintf(&b, "  targets discovered: %d\n", summary.Discovered)
	if summary.Recovered > 0 {
		fmt.Fprintf(&b, "  targets recovered:  %d\n", summary.Recovered)
	}
	fmt.Fprintf(&b, "  entries stored (total): %d\n", summary.EntriesStored)

	if len(failed) > 0 {
		b.WriteString("\nFAILED TARGETS\n")
		listed := failed
		if w.maxFailures > 0 && len(listed) > w.maxFailures {
			listed = listed[:w.maxFailures]
		}
		for _, ft := range listed {
			fmt.Fprintf(&b, "  %s (%s, retries %d): %s\n", ft.URL, ft.Kind, ft.RetryCount, ft.ErrorMessage)
		}
		if len(failed) > len(listed) {
			fmt.Fprintf(&b, "  ... and %d more\n", len(failed)-len(listed))
		}
	}

	return io.WriteString(w.output, b.String())
}

// statusText renders the run outcome as a single word.
func statusText(summary *model.Summary) string {
	if summary.Interrupted {
		return "interrupted (resumable)"
	}
	if summary.Progress.Done() {
		return "complete"
	}
	return "incomplete"
}
