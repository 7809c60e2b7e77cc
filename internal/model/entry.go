package model

import (
	"errors"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// LexiconEntry is a persisted dictionary record extracted from an entry target.
// The (Identifier, SourceTag) pair is unique; re-processing the same target
// upserts the same row without creating duplicates or regressing CreatedAt.
type LexiconEntry struct {
	// Identifier uniquely names the entry within a source,
	// typically "{lemma}_{disambiguator}".
	Identifier string `json:"identifier"`

	// Lemma is the headword.
	Lemma string `json:"lemma"`

	// SourceTag names the dictionary that produced the entry (e.g. "LSJ").
	// It keeps entries from different sources apart when aggregating.
	SourceTag string `json:"source_tag"`

	// Text is the plain-text rendering of the definition.
	Text string `json:"text"`

	// HTML is the original markup, preserved verbatim.
	HTML string `json:"html"`

	// SourceURL is the target URL the entry was extracted from.
	SourceURL string `json:"source_url"`

	// CreatedAt is the time of first insertion. Upserts never change it.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is the time of the most recent upsert.
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// ErrInvalidEntry is returned when an entry is missing required fields.
var ErrInvalidEntry = errors.New("lexicon entry missing identifier, lemma, or source tag")

// Validate checks that the entry carries the fields the store requires.
func (e *LexiconEntry) Validate() error {
	if e.Identifier == "" || e.Lemma == "" || e.SourceTag == "" {
		return ErrInvalidEntry
	}
	return nil
}

// EntryIdentifier builds the stable "{lemma}_{disambiguator}" identifier.
// The lemma is NFC-normalized first so precomposed and decomposed spellings
// of the same Greek headword produce the same identifier. An empty
// disambiguator defaults to "1", matching sources that number homographs
// starting from one.
func EntryIdentifier(lemma, disambiguator string) string {
	lemma = norm.NFC.String(strings.TrimSpace(lemma))
	disambiguator = strings.TrimSpace(disambiguator)
	if disambiguator == "" {
		disambiguator = "1"
	}
	return lemma + "_" + disambiguator
}

// NormalizeLemma returns the NFC-normalized, whitespace-trimmed headword.
func NormalizeLemma(lemma string) string {
	return norm.NFC.String(strings.TrimSpace(lemma))
}
