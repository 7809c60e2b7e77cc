// Package source defines the adapter contract between the crawl engine and
// a concrete dictionary site. Site-specific knowledge (seed URLs, page
// selectors, identifier schemes) lives in subpackages such as
// source/perseus; the engine only sees Adapter, Result, and ParseError.
package source
