// Package model defines the core data structures used throughout lexicrawl.
//
// This package contains the following main types:
//   - CrawlTarget: A unit of crawl work with its durable lifecycle state
//   - LexiconEntry: A persisted dictionary record extracted from a target
//   - Progress, Summary: Observable crawl state and run outcomes
//
// Design decision: We separate models into their own package to avoid circular
// dependencies. Multiple packages (database, crawler, source, report) need to
// use these types, so centralizing them prevents import cycles.
//
// The models are designed to be serializable to JSON for export output and
// database storage. Mutation logic lives in the database package; types here
// carry only validation and derivation helpers (URL normalization, identifier
// construction).
package model
