package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// DB provides SQLite-based storage for the crawl queue and the lexicon
// entry store. It manages connection pooling and provides the atomic
// operations the orchestrator depends on.
//
// Design decision: Both tables live in a single database file rather than
// separate files per concern. The queue and the entries are two views of
// one crawl; a single file keeps backup/restore and resumption trivial.
type DB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string

	// maxRetries is the queue-level retry budget per target.
	maxRetries int
}

// FileName is the name of the SQLite database file inside the data directory.
const FileName = "lexicrawl.db"

// Options configures DB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging so the status command can read
	// progress while a crawl is writing.
	EnableWAL bool

	// MaxRetries is the number of retryable failures a target may
	// accumulate before MarkFailed makes it permanent. Zero or negative
	// falls back to DefaultMaxRetries.
	MaxRetries int
}

// DefaultMaxRetries matches the retry budget the crawl has always used.
const DefaultMaxRetries = 3

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
		MaxRetries:        DefaultMaxRetries,
	}
}

// Open opens or creates the crawl database in the specified directory.
// If CreateIfNotExists is true, the directory and database file are created.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*DB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, &StorageError{Op: "open", Err: fmt.Errorf("database not found at %s (run a crawl first)", dbPath)}
		} else if err != nil {
			return nil, &StorageError{Op: "open", Err: err}
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, &StorageError{Op: "open", Err: fmt.Errorf("failed to create database directory: %w", err)}
		}
	}

	// modernc.org/sqlite connection string: mode=rw prevents creating new
	// files, mode=rwc allows creation.
	var dsn string
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	} else {
		dsn = dbPath + "?mode=rw"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, &StorageError{Op: "open", Err: err}
	}

	// SQLite only supports one writer; a single connection also makes the
	// select-then-update inside NextPending effectively atomic.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	maxRetries := opts.MaxRetries
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}

	d := &DB{
		db:         db,
		dbPath:     dbPath,
		maxRetries: maxRetries,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, &StorageError{Op: "open", Err: fmt.Errorf("failed to enable WAL mode: %w", err)}
		}
	}

	if err := d.createTables(); err != nil {
		_ = db.Close()
		return nil, &StorageError{Op: "open", Err: fmt.Errorf("failed to create tables: %w", err)}
	}

	return d, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

// Path returns the path to the SQLite database file.
func (d *DB) Path() string {
	return d.dbPath
}

// MaxRetries returns the configured queue-level retry budget.
func (d *DB) MaxRetries() int {
	return d.maxRetries
}

// createTables creates the database schema if it doesn't exist.
//
// created_at uses millisecond precision so that FIFO ordering holds even
// for targets enqueued within the same second; rowid breaks remaining ties.
func (d *DB) createTables() error {
	schema := `
	-- Crawl targets are the durable work queue. Rows are never deleted:
	-- completed rows prevent re-fetching across runs, failed rows stay
	-- inspectable for a later retry pass.
	CREATE TABLE IF NOT EXISTS crawl_targets (
		id TEXT PRIMARY KEY,
		url TEXT NOT NULL,
		kind TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		retry_count INTEGER NOT NULL DEFAULT 0,
		last_attempt_at TEXT,
		error_message TEXT,
		created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%d %H:%M:%f','now'))
	);

	CREATE INDEX IF NOT EXISTS idx_targets_status ON crawl_targets(status);
	CREATE INDEX IF NOT EXISTS idx_targets_created ON crawl_targets(created_at);

	-- Lexicon entries are keyed by (identifier, source_tag) so the same
	-- headword from different dictionaries can coexist.
	CREATE TABLE IF NOT EXISTS lexicon_entries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		identifier TEXT NOT NULL,
		lemma TEXT NOT NULL,
		source_tag TEXT NOT NULL,
		text TEXT NOT NULL,
		html TEXT NOT NULL,
		source_url TEXT NOT NULL,
		created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%d %H:%M:%f','now')),
		updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%d %H:%M:%f','now')),
		UNIQUE(identifier, source_tag)
	);

	CREATE INDEX IF NOT EXISTS idx_entries_identifier ON lexicon_entries(identifier);
	CREATE INDEX IF NOT EXISTS idx_entries_source ON lexicon_entries(source_tag);
	CREATE INDEX IF NOT EXISTS idx_entries_created ON lexicon_entries(created_at);
	`

	_, err := d.db.ExecContext(context.Background(), schema)
	return err
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	"2006-01-02 15:04:05.999", // strftime with milliseconds (our defaults)
	"2006-01-02 15:04:05",     // SQLite default datetime format
	"2006-01-02T15:04:05Z",    // ISO 8601 with Z suffix
	"2006-01-02T15:04:05",     // ISO 8601 without timezone
	time.RFC3339,              // Full RFC3339 format
	time.RFC3339Nano,          // RFC3339 with nanoseconds
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// SQLite may return timestamps in different formats depending on configuration.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
