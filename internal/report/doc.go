// Package report provides crawl summary output and lexicon export.
//
// This package contains writers for different output formats:
//   - SimpleWriter: Human-readable text output for terminal display
//   - MarkdownWriter: Markdown output for documentation and sharing
//   - Exporter: JSON export of the stored lexicon for downstream tools
//
// Design decision: We separate output formatting from the data structures
// (which are in the model package) to follow the single responsibility
// principle. This allows adding new output formats without modifying
// the core data structures.
//
// Summary writers implement the Writer interface, allowing them to be used
// interchangeably and composed for multi-format output.
package report
