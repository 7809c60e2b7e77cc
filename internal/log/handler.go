package log

import (
	"context"
	"io"
	"log/slog"
	"unicode/utf8"
)

// DefaultMaxValueLen is the default maximum length for logged string values.
// Crawl logs routinely carry URLs, error chains, and HTML snippets; anything
// longer than this is noise that buries the fields that matter.
const DefaultMaxValueLen = 256

// Ellipsis is appended to truncated values so readers know content was cut.
const Ellipsis = "…(truncated)"

// TruncateHandler wraps an slog.Handler and truncates oversized string
// attribute values before passing records to the underlying handler.
//
// Design decision: We use a handler wrapper rather than a custom logger
// because:
//  1. It integrates seamlessly with standard slog APIs
//  2. It works with any underlying handler (text, JSON, etc.)
//  3. Call sites stay honest: they can log raw bodies and URLs without
//     each one re-implementing truncation
type TruncateHandler struct {
	// handler is the underlying slog handler that receives shortened records.
	handler slog.Handler

	// maxLen is the maximum rune length for string attribute values.
	maxLen int
}

// NewTruncateHandler creates a TruncateHandler wrapping the given handler.
// If handler is nil, slog.Default().Handler() is used. A maxLen of zero or
// less falls back to DefaultMaxValueLen.
func NewTruncateHandler(handler slog.Handler, maxLen int) *TruncateHandler {
	if handler == nil {
		handler = slog.Default().Handler()
	}
	if maxLen <= 0 {
		maxLen = DefaultMaxValueLen
	}
	return &TruncateHandler{handler: handler, maxLen: maxLen}
}

// Enabled reports whether the handler handles records at the given level.
// It delegates to the underlying handler.
func (h *TruncateHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// Handle shortens the record's attributes and passes it to the underlying handler.
func (h *TruncateHandler) Handle(ctx context.Context, r slog.Record) error {
	shortened := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)

	r.Attrs(func(a slog.Attr) bool {
		shortened.AddAttrs(h.truncateAttr(a))
		return true
	})

	return h.handler.Handle(ctx, shortened)
}

// WithAttrs returns a new handler with the given attributes added.
// Attributes are truncated before being added.
func (h *TruncateHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	shortened := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		shortened[i] = h.truncateAttr(a)
	}
	return &TruncateHandler{handler: h.handler.WithAttrs(shortened), maxLen: h.maxLen}
}

// WithGroup returns a new handler with the given group name.
func (h *TruncateHandler) WithGroup(name string) slog.Handler {
	return &TruncateHandler{handler: h.handler.WithGroup(name), maxLen: h.maxLen}
}

// truncateAttr shortens a single attribute, recursively handling groups.
func (h *TruncateHandler) truncateAttr(a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindGroup {
		attrs := a.Value.Group()
		shortened := make([]slog.Attr, len(attrs))
		for i, groupAttr := range attrs {
			shortened[i] = h.truncateAttr(groupAttr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(shortened...)}
	}

	if a.Value.Kind() == slog.KindString {
		if s := a.Value.String(); utf8.RuneCountInString(s) > h.maxLen {
			return slog.String(a.Key, truncate(s, h.maxLen))
		}
	}

	return a
}

// truncate cuts s to maxLen runes, never splitting a rune, and appends
// the ellipsis marker. Greek lexicon content makes rune-safety matter here.
func truncate(s string, maxLen int) string {
	count := 0
	for i := range s {
		if count == maxLen {
			return s[:i] + Ellipsis
		}
		count++
	}
	return s
}

// NewLogger creates a new slog.Logger for lexicrawl.
// All string attribute values are truncated to DefaultMaxValueLen runes.
//
// Parameters:
//   - w: The io.Writer to write log output to (typically os.Stderr)
//   - verbose: If true, sets log level to Debug; otherwise Warn
//
// Returns a *slog.Logger that can be used with slog.SetDefault() or passed
// to components that accept *slog.Logger.
func NewLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	textHandler := slog.NewTextHandler(w, opts)
	return slog.New(NewTruncateHandler(textHandler, DefaultMaxValueLen))
}
