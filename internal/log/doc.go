// Package log provides logging functionality for lexicrawl, built on top of
// the standard slog package.
//
// This package extends slog to provide:
//   - Automatic truncation of oversized attribute values (HTML snippets,
//     long URLs, error chains) before they reach the output handler
//   - Configurable log levels with verbose mode support
//   - Consistent log formatting across the application
//
// # Usage
//
//	logger := log.NewLogger(os.Stderr, true) // verbose=true
//
//	logger.Info("entry stored",
//	    "identifier", entry.Identifier,
//	    "html", entry.HTML, // truncated automatically
//	)
//
//	slog.SetDefault(logger)
package log
