package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lexicrawl/lexicrawl/internal/model"
)

// Enqueue inserts a target into the queue if its ID is not already present.
// Re-discovering a known resource is a no-op, not an error: discovery pages
// routinely link to targets that earlier discoveries already produced.
func (d *DB) Enqueue(ctx context.Context, target *model.CrawlTarget) error {
	if target.ID == "" || target.URL == "" || !target.Kind.Valid() {
		return storageErr("enqueue", fmt.Errorf("malformed target (id=%q url=%q kind=%q)", target.ID, target.URL, target.Kind))
	}

	query := `
	INSERT INTO crawl_targets (id, url, kind, status)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(id) DO NOTHING
	`

	if _, err := d.db.ExecContext(ctx, query, target.ID, target.URL, string(target.Kind), string(model.StatusPending)); err != nil {
		return storageErr("enqueue", err)
	}
	return nil
}

// NextPending atomically claims up to limit pending targets: it selects the
// oldest pending rows (FIFO by created_at, rowid as tie-break) and flips
// them to in_progress, stamping last_attempt_at. The returned targets
// reflect the post-claim state.
//
// The select and update run inside one transaction so two workers can never
// claim the same target.
func (d *DB) NextPending(ctx context.Context, limit int) ([]*model.CrawlTarget, error) {
	if limit <= 0 {
		return nil, nil
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, storageErr("next pending", err)
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx, `
	SELECT id, url, kind, retry_count, error_message, created_at
	FROM crawl_targets
	WHERE status = ?
	ORDER BY created_at, rowid
	LIMIT ?
	`, string(model.StatusPending), limit)
	if err != nil {
		return nil, storageErr("next pending", err)
	}

	var targets []*model.CrawlTarget
	for rows.Next() {
		var (
			t         model.CrawlTarget
			errMsg    sql.NullString
			createdAt string
		)
		if err := rows.Scan(&t.ID, &t.URL, (*string)(&t.Kind), &t.RetryCount, &errMsg, &createdAt); err != nil {
			_ = rows.Close()
			return nil, storageErr("next pending", err)
		}
		t.Status = model.StatusInProgress
		t.ErrorMessage = errMsg.String
		t.CreatedAt = parseTimestamp(createdAt)
		targets = append(targets, &t)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, storageErr("next pending", err)
	}
	_ = rows.Close()

	for _, t := range targets {
		res, err := tx.ExecContext(ctx, `
		UPDATE crawl_targets
		SET status = ?, last_attempt_at = strftime('%Y-%m-%d %H:%M:%f','now')
		WHERE id = ? AND status = ?
		`, string(model.StatusInProgress), t.ID, string(model.StatusPending))
		if err != nil {
			return nil, storageErr("next pending", err)
		}
		if n, err := res.RowsAffected(); err != nil || n != 1 {
			return nil, storageErr("next pending", fmt.Errorf("target %s vanished during claim", t.ID))
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, storageErr("next pending", err)
	}
	return targets, nil
}

// MarkCompleted transitions a target to completed and clears its error.
func (d *DB) MarkCompleted(ctx context.Context, id string) error {
	res, err := d.db.ExecContext(ctx, `
	UPDATE crawl_targets
	SET status = ?, error_message = NULL
	WHERE id = ?
	`, string(model.StatusCompleted), id)
	if err != nil {
		return storageErr("mark completed", err)
	}
	return requireOneRow(res, "mark completed", id)
}

// MarkFailed records a failure on a target.
//
// Retryable failures increment retry_count and revert the target to pending
// until the count reaches the retry budget, at which point the target fails
// permanently with retry_count == MaxRetries. Non-retryable failures (parse
// errors, permanent HTTP errors) fail the target immediately and leave
// retry_count untouched: there is no attempt worth counting toward a budget
// that will never be spent.
func (d *DB) MarkFailed(ctx context.Context, id, errMsg string, retryable bool) error {
	var (
		res sql.Result
		err error
	)

	if retryable {
		res, err = d.db.ExecContext(ctx, `
		UPDATE crawl_targets
		SET retry_count = retry_count + 1,
		    status = CASE WHEN retry_count + 1 >= ? THEN ? ELSE ? END,
		    error_message = ?
		WHERE id = ?
		`, d.maxRetries, string(model.StatusFailed), string(model.StatusPending), errMsg, id)
	} else {
		res, err = d.db.ExecContext(ctx, `
		UPDATE crawl_targets
		SET status = ?, error_message = ?
		WHERE id = ?
		`, string(model.StatusFailed), errMsg, id)
	}
	if err != nil {
		return storageErr("mark failed", err)
	}
	return requireOneRow(res, "mark failed", id)
}

// Requeue reverts an in_progress target to pending without touching its
// retry accounting. The orchestrator uses it when cancellation interrupts a
// claimed target: the target did not fail, it simply was not processed.
func (d *DB) Requeue(ctx context.Context, id string) error {
	_, err := d.db.ExecContext(ctx, `
	UPDATE crawl_targets
	SET status = ?
	WHERE id = ? AND status = ?
	`, string(model.StatusPending), id, string(model.StatusInProgress))
	if err != nil {
		return storageErr("requeue", err)
	}
	return nil
}

// RecoverInProgress reverts every in_progress row to pending and returns
// how many rows were recovered. It is invoked once at startup: a row stuck
// in_progress means a previous run crashed mid-fetch, and the fetch must be
// repeated.
func (d *DB) RecoverInProgress(ctx context.Context) (int64, error) {
	res, err := d.db.ExecContext(ctx, `
	UPDATE crawl_targets
	SET status = ?
	WHERE status = ?
	`, string(model.StatusPending), string(model.StatusInProgress))
	if err != nil {
		return 0, storageErr("recover in-progress", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, storageErr("recover in-progress", err)
	}
	return n, nil
}

// ResetFailed reverts all failed targets to pending with a fresh retry
// budget, for a deliberate retry pass after transient outages.
func (d *DB) ResetFailed(ctx context.Context) (int64, error) {
	res, err := d.db.ExecContext(ctx, `
	UPDATE crawl_targets
	SET status = ?, retry_count = 0, error_message = NULL
	WHERE status = ?
	`, string(model.StatusPending), string(model.StatusFailed))
	if err != nil {
		return 0, storageErr("reset failed", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, storageErr("reset failed", err)
	}
	return n, nil
}

// Progress returns the current queue counts. It is safe to call from a
// different process (the status command) while a crawl is running.
func (d *DB) Progress(ctx context.Context) (model.Progress, error) {
	var p model.Progress
	err := d.db.QueryRowContext(ctx, `
	SELECT
		COUNT(*),
		SUM(CASE WHEN status = ? THEN 1 ELSE 0 END),
		SUM(CASE WHEN status = ? THEN 1 ELSE 0 END),
		SUM(CASE WHEN status = ? THEN 1 ELSE 0 END),
		SUM(CASE WHEN status = ? THEN 1 ELSE 0 END)
	FROM crawl_targets
	`,
		string(model.StatusPending),
		string(model.StatusInProgress),
		string(model.StatusCompleted),
		string(model.StatusFailed),
	).Scan(&p.Total, &nullInt{&p.Pending}, &nullInt{&p.InProgress}, &nullInt{&p.Completed}, &nullInt{&p.Failed})
	if err != nil {
		return model.Progress{}, storageErr("progress", err)
	}
	return p, nil
}

// FailedTargets returns up to limit permanently failed targets with their
// recorded error messages, most recently attempted first.
func (d *DB) FailedTargets(ctx context.Context, limit int) ([]model.FailedTarget, error) {
	rows, err := d.db.QueryContext(ctx, `
	SELECT url, kind, retry_count, COALESCE(error_message, '')
	FROM crawl_targets
	WHERE status = ?
	ORDER BY last_attempt_at DESC
	LIMIT ?
	`, string(model.StatusFailed), limit)
	if err != nil {
		return nil, storageErr("failed targets", err)
	}
	defer rows.Close()

	var results []model.FailedTarget
	for rows.Next() {
		var ft model.FailedTarget
		if err := rows.Scan(&ft.URL, (*string)(&ft.Kind), &ft.RetryCount, &ft.ErrorMessage); err != nil {
			return nil, storageErr("failed targets", err)
		}
		results = append(results, ft)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("failed targets", err)
	}
	return results, nil
}

// GetTarget retrieves a target by ID. Returns (nil, nil) when absent.
func (d *DB) GetTarget(ctx context.Context, id string) (*model.CrawlTarget, error) {
	var (
		t             model.CrawlTarget
		lastAttemptAt sql.NullString
		errMsg        sql.NullString
		createdAt     string
	)
	err := d.db.QueryRowContext(ctx, `
	SELECT id, url, kind, status, retry_count, last_attempt_at, error_message, created_at
	FROM crawl_targets
	WHERE id = ?
	`, id).Scan(&t.ID, &t.URL, (*string)(&t.Kind), (*string)(&t.Status), &t.RetryCount, &lastAttemptAt, &errMsg, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("get target", err)
	}

	if lastAttemptAt.Valid {
		t.LastAttemptAt = parseTimestamp(lastAttemptAt.String)
	}
	t.ErrorMessage = errMsg.String
	t.CreatedAt = parseTimestamp(createdAt)
	return &t, nil
}

// requireOneRow converts a zero-row update into an error: status mutations
// address targets that must already exist.
func requireOneRow(res sql.Result, op, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return storageErr(op, err)
	}
	if n == 0 {
		return storageErr(op, fmt.Errorf("unknown target %s", id))
	}
	return nil
}

// nullInt scans a nullable SUM() result into an int, treating NULL as zero
// (SUM over zero rows yields NULL, not 0).
type nullInt struct {
	dst *int
}

// Scan implements sql.Scanner.
func (n *nullInt) Scan(src any) error {
	if src == nil {
		*n.dst = 0
		return nil
	}
	switch v := src.(type) {
	case int64:
		*n.dst = int(v)
		return nil
	default:
		return fmt.Errorf("unexpected count type %T", src)
	}
}
