package database

import (
	"context"
	"database/sql"

	"github.com/lexicrawl/lexicrawl/internal/model"
)

// UpsertEntry inserts or updates a lexicon entry keyed by
// (identifier, source_tag).
//
// The operation is idempotent: re-inserting identical content leaves exactly
// one row and never changes created_at. Content fields and updated_at follow
// the latest write (last-writer-wins), which is what re-processing a target
// after a site update should do.
func (d *DB) UpsertEntry(ctx context.Context, entry *model.LexiconEntry) error {
	if err := entry.Validate(); err != nil {
		return storageErr("upsert entry", err)
	}

	query := `
	INSERT INTO lexicon_entries (identifier, lemma, source_tag, text, html, source_url)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(identifier, source_tag) DO UPDATE SET
		lemma = excluded.lemma,
		text = excluded.text,
		html = excluded.html,
		source_url = excluded.source_url,
		updated_at = strftime('%Y-%m-%d %H:%M:%f','now')
	`

	_, err := d.db.ExecContext(ctx, query,
		entry.Identifier,
		entry.Lemma,
		entry.SourceTag,
		entry.Text,
		entry.HTML,
		entry.SourceURL,
	)
	if err != nil {
		return storageErr("upsert entry", err)
	}
	return nil
}

// GetEntry retrieves an entry by identifier and source tag.
// Returns (nil, nil) when absent.
func (d *DB) GetEntry(ctx context.Context, identifier, sourceTag string) (*model.LexiconEntry, error) {
	var (
		e         model.LexiconEntry
		createdAt string
		updatedAt string
	)
	err := d.db.QueryRowContext(ctx, `
	SELECT identifier, lemma, source_tag, text, html, source_url, created_at, updated_at
	FROM lexicon_entries
	WHERE identifier = ? AND source_tag = ?
	`, identifier, sourceTag).Scan(
		&e.Identifier, &e.Lemma, &e.SourceTag, &e.Text, &e.HTML, &e.SourceURL, &createdAt, &updatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("get entry", err)
	}

	e.CreatedAt = parseTimestamp(createdAt)
	e.UpdatedAt = parseTimestamp(updatedAt)
	return &e, nil
}

// ForEachEntry streams all entries ordered by created_at (insertion order as
// tie-break), invoking fn for each. Iteration stops on the first error fn
// returns, which is passed through unchanged.
//
// Design decision: A callback over a streaming cursor rather than loading
// the whole table keeps export memory-bounded; a full LSJ crawl holds over
// a hundred thousand entries.
func (d *DB) ForEachEntry(ctx context.Context, fn func(*model.LexiconEntry) error) error {
	rows, err := d.db.QueryContext(ctx, `
	SELECT identifier, lemma, source_tag, text, html, source_url, created_at, updated_at
	FROM lexicon_entries
	ORDER BY created_at, id
	`)
	if err != nil {
		return storageErr("list entries", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			e         model.LexiconEntry
			createdAt string
			updatedAt string
		)
		if err := rows.Scan(&e.Identifier, &e.Lemma, &e.SourceTag, &e.Text, &e.HTML, &e.SourceURL, &createdAt, &updatedAt); err != nil {
			return storageErr("list entries", err)
		}
		e.CreatedAt = parseTimestamp(createdAt)
		e.UpdatedAt = parseTimestamp(updatedAt)

		if err := fn(&e); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return storageErr("list entries", err)
	}
	return nil
}

// CountEntries returns the total number of stored entries.
func (d *DB) CountEntries(ctx context.Context) (int, error) {
	var count int
	if err := d.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM lexicon_entries`).Scan(&count); err != nil {
		return 0, storageErr("count entries", err)
	}
	return count, nil
}
