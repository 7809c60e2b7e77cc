package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from YAML strings like "1.5s".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Source holds per-source overrides for a single dictionary site.
// This allows pointing the crawler at a mirror or adjusting pacing for one
// source without changing global defaults.
type Source struct {
	// BaseURL overrides the adapter's base URL (e.g. a Perseus mirror).
	BaseURL string `yaml:"base_url,omitempty"`

	// UserAgent overrides the global User-Agent for this source.
	UserAgent string `yaml:"user_agent,omitempty"`

	// Delay overrides the global inter-request delay for this source.
	// If zero, the global RequestDelay is used.
	Delay Duration `yaml:"delay,omitempty"`

	// MaxRetries overrides the queue retry budget for this source.
	// If zero, the global MaxRetries is used.
	MaxRetries int `yaml:"max_retries,omitempty"`
}

// File represents the structure of the .lexicrawl configuration file.
type File struct {
	// Sources maps source names (e.g. "lsj") to their overrides.
	Sources map[string]Source `yaml:"sources,omitempty"`

	// Defaults contains overrides applied to all sources unless a
	// source-specific value is present.
	Defaults Source `yaml:"defaults,omitempty"`
}

// Get returns the configuration for a named source.
// It merges the source-specific configuration over the defaults.
func (cf *File) Get(name string) Source {
	result := cf.Defaults

	if src, ok := cf.Sources[name]; ok {
		if src.BaseURL != "" {
			result.BaseURL = src.BaseURL
		}
		if src.UserAgent != "" {
			result.UserAgent = src.UserAgent
		}
		if src.Delay != 0 {
			result.Delay = src.Delay
		}
		if src.MaxRetries != 0 {
			result.MaxRetries = src.MaxRetries
		}
	}

	return result
}
