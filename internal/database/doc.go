// Package database provides SQLite-based storage for lexicrawl.
//
// This package implements the two durable tables the crawl depends on:
//   - crawl_targets: the work queue with per-target status and retry state
//   - lexicon_entries: extracted dictionary entries, idempotently upserted
//
// Design decision: We use SQLite (via modernc.org/sqlite) instead of other
// databases because:
//  1. No external dependencies - the database is a single file
//  2. CGO-free implementation allows easy cross-compilation
//  3. Sufficient performance for our use case
//  4. WAL mode lets the status command read while a crawl writes
//
// All mutations are single-statement or single-transaction operations, so a
// crash at any point leaves the queue in a state the startup recovery pass
// can repair (in_progress rows revert to pending).
package database
