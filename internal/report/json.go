package report

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/lexicrawl/lexicrawl/internal/model"
)

// EntrySource streams stored lexicon entries, typically *database.DB.
type EntrySource interface {
	ForEachEntry(ctx context.Context, fn func(*model.LexiconEntry) error) error
}

// Exporter writes the stored lexicon as a single JSON object keyed by entry
// identifier, the interchange format downstream consumers read.
//
// Design decision: We stream entries straight to the writer instead of
// marshaling one big map because:
// 1. A full lexicon export holds over a hundred thousand entries
// 2. A Go map would also scramble the export order between runs
// 3. Streaming keys ourselves lets us resolve identifier collisions inline
type Exporter struct {
	baseWriter

	// pretty enables indented output.
	pretty bool
}

// ExporterOption configures an Exporter.
type ExporterOption func(*Exporter)

// WithPretty enables indented, human-diffable output.
func WithPretty() ExporterOption {
	return func(e *Exporter) { e.pretty = true }
}

// NewExporter creates an Exporter that outputs to the given writer.
func NewExporter(output io.Writer, opts ...ExporterOption) *Exporter {
	e := &Exporter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Export writes every stored entry as a JSON object and returns how many
// entries were exported. Entries appear in insertion order. When two sources
// share an identifier, later entries are keyed "identifier@source_tag" so no
// entry is silently dropped.
func (e *Exporter) Export(ctx context.Context, src EntrySource) (int, error) {
	var (
		count int
		seen  = make(map[string]bool)
	)

	if _, err := io.WriteString(e.output, "{"); err != nil {
		return 0, err
	}

	err := src.ForEachEntry(ctx, func(entry *model.LexiconEntry) error {
		key := entry.Identifier
		if seen[key] {
			key = entry.Identifier + "@" + entry.SourceTag
		}
		if seen[key] {
			return fmt.Errorf("duplicate export key %q", key)
		}
		seen[key] = true

		keyJSON, err := json.Marshal(key)
		if err != nil {
			return err
		}
		var valueJSON []byte
		if e.pretty {
			valueJSON, err = json.MarshalIndent(entry, "  ", "  ")
		} else {
			valueJSON, err = json.Marshal(entry)
		}
		if err != nil {
			return err
		}

		sep := ","
		if count == 0 {
			sep = ""
		}
		if e.pretty {
			_, err = fmt.Fprintf(e.output, "%s\n  %s: %s", sep, keyJSON, valueJSON)
		} else {
			_, err = fmt.Fprintf(e.output, "%s%s:%s", sep, keyJSON, valueJSON)
		}
		if err != nil {
			return err
		}
		count++
		return nil
	})
	if err != nil {
		return count, err
	}

	closing := "}\n"
	if e.pretty && count > 0 {
		closing = "\n}\n"
	}
	if _, err := io.WriteString(e.output, closing); err != nil {
		return count, err
	}
	return count, nil
}
