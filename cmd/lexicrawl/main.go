// Package main provides the entry point for the lexicrawl CLI.
//
// lexicrawl is a resumable, polite crawler for online dictionaries. It
// maintains a durable work queue in SQLite, so an interrupted crawl picks up
// where it left off, and extracted entries accumulate across runs.
//
// Usage:
//
//	lexicrawl crawl --max-letters 2 --max-entries 5
//	lexicrawl export -o lexicon.json
//
// See --help for all available options.
package main

// main is the entry point for lexicrawl.
func main() {
	Execute()
}
