// Package config provides configuration structures and utilities for lexicrawl.
// It defines the main configuration options for crawling, pacing, storage
// location, and export preferences, plus optional per-source overrides
// loaded from a YAML file.
package config
