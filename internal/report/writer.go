package report

import (
	"io"

	"github.com/lexicrawl/lexicrawl/internal/model"
)

// Writer defines the interface for crawl summary output.
//
// Design decision: We use an interface to allow different output formats
// and destinations. This enables writing to files, stdout, or network
// connections with the same API.
type Writer interface {
	// WriteSummary outputs the summary of a crawl run together with its
	// permanently failed targets. Returns the number of bytes written and
	// any error encountered.
	WriteSummary(summary *model.Summary, failed []model.FailedTarget) (int, error)
}

// MultiWriter writes to multiple Writers simultaneously.
// This is useful for outputting to both terminal and file.
//
// Design decision: We implement this as a separate type rather than
// using io.MultiWriter because our Writer interface is different
// from io.Writer - we write summaries, not raw bytes.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// WriteSummary outputs the summary to all configured Writers.
// Returns the total bytes written across all writers.
// Stops on first error encountered.
func (m *MultiWriter) WriteSummary(summary *model.Summary, failed []model.FailedTarget) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.WriteSummary(summary, failed)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for summary writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}
