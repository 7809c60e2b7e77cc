package database

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/lexicrawl/lexicrawl/internal/model"
)

// setupTestDB creates a temporary database for testing.
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := Open(t.TempDir(), DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	return db
}

// mustTarget creates a target or fails the test.
func mustTarget(t *testing.T, kind model.TargetKind, url string) *model.CrawlTarget {
	t.Helper()

	target, err := model.NewTarget(kind, url)
	if err != nil {
		t.Fatalf("failed to create target: %v", err)
	}
	return target
}

func TestOpen(t *testing.T) {
	t.Parallel()

	t.Run("creates database in new directory", func(t *testing.T) {
		t.Parallel()

		dbDir := filepath.Join(t.TempDir(), "newdir", "subdir")
		db, err := Open(dbDir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()

		if db.Path() != filepath.Join(dbDir, FileName) {
			t.Errorf("Path() = %q", db.Path())
		}
	})

	t.Run("CreateIfNotExists=false requires existing database", func(t *testing.T) {
		t.Parallel()

		opts := DefaultOptions()
		opts.CreateIfNotExists = false

		if _, err := Open(filepath.Join(t.TempDir(), "missing"), opts); err == nil {
			t.Error("Open should fail when the database does not exist")
		}
	})

	t.Run("zero MaxRetries falls back to default", func(t *testing.T) {
		t.Parallel()

		db, err := Open(t.TempDir(), Options{CreateIfNotExists: true})
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()

		if db.MaxRetries() != DefaultMaxRetries {
			t.Errorf("MaxRetries() = %d, want %d", db.MaxRetries(), DefaultMaxRetries)
		}
	})
}

func TestEnqueue(t *testing.T) {
	t.Parallel()

	t.Run("enqueuing the same target twice leaves one row", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		ctx := context.Background()
		target := mustTarget(t, model.KindEntry, "https://example.com/entry?doc=1")

		if err := db.Enqueue(ctx, target); err != nil {
			t.Fatalf("first enqueue failed: %v", err)
		}
		if err := db.Enqueue(ctx, target); err != nil {
			t.Fatalf("second enqueue failed: %v", err)
		}

		p, err := db.Progress(ctx)
		if err != nil {
			t.Fatalf("Progress failed: %v", err)
		}
		if p.Total != 1 || p.Pending != 1 {
			t.Errorf("progress = %+v, want 1 total / 1 pending", p)
		}
	})

	t.Run("re-enqueue does not disturb a completed target", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		ctx := context.Background()
		target := mustTarget(t, model.KindEntry, "https://example.com/done")

		if err := db.Enqueue(ctx, target); err != nil {
			t.Fatalf("enqueue failed: %v", err)
		}
		if _, err := db.NextPending(ctx, 1); err != nil {
			t.Fatalf("NextPending failed: %v", err)
		}
		if err := db.MarkCompleted(ctx, target.ID); err != nil {
			t.Fatalf("MarkCompleted failed: %v", err)
		}

		// Re-discovery of a finished resource must not reopen it.
		if err := db.Enqueue(ctx, target); err != nil {
			t.Fatalf("re-enqueue failed: %v", err)
		}

		got, err := db.GetTarget(ctx, target.ID)
		if err != nil {
			t.Fatalf("GetTarget failed: %v", err)
		}
		if got.Status != model.StatusCompleted {
			t.Errorf("status = %q, want completed", got.Status)
		}
	})

	t.Run("rejects malformed target", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		if err := db.Enqueue(context.Background(), &model.CrawlTarget{}); err == nil {
			t.Error("Enqueue should reject a target without ID and URL")
		}
	})
}

func TestNextPending(t *testing.T) {
	t.Parallel()

	t.Run("claims FIFO by creation order", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		ctx := context.Background()

		urls := []string{
			"https://example.com/first",
			"https://example.com/second",
			"https://example.com/third",
		}
		for _, u := range urls {
			if err := db.Enqueue(ctx, mustTarget(t, model.KindEntry, u)); err != nil {
				t.Fatalf("enqueue failed: %v", err)
			}
		}

		batch, err := db.NextPending(ctx, 2)
		if err != nil {
			t.Fatalf("NextPending failed: %v", err)
		}
		if len(batch) != 2 {
			t.Fatalf("claimed %d targets, want 2", len(batch))
		}
		if batch[0].URL != urls[0] || batch[1].URL != urls[1] {
			t.Errorf("claim order = [%s, %s], want oldest first", batch[0].URL, batch[1].URL)
		}
		for _, target := range batch {
			if target.Status != model.StatusInProgress {
				t.Errorf("claimed target %s status = %q, want in_progress", target.URL, target.Status)
			}
		}

		// The claimed targets must not be claimable again.
		rest, err := db.NextPending(ctx, 10)
		if err != nil {
			t.Fatalf("NextPending failed: %v", err)
		}
		if len(rest) != 1 || rest[0].URL != urls[2] {
			t.Errorf("second claim = %v, want only the third target", rest)
		}
	})

	t.Run("stamps last attempt time", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		ctx := context.Background()
		target := mustTarget(t, model.KindEntry, "https://example.com/stamped")

		if err := db.Enqueue(ctx, target); err != nil {
			t.Fatalf("enqueue failed: %v", err)
		}
		if _, err := db.NextPending(ctx, 1); err != nil {
			t.Fatalf("NextPending failed: %v", err)
		}

		got, err := db.GetTarget(ctx, target.ID)
		if err != nil {
			t.Fatalf("GetTarget failed: %v", err)
		}
		if got.LastAttemptAt.IsZero() {
			t.Error("LastAttemptAt should be set after a claim")
		}
	})

	t.Run("empty queue returns no targets", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		batch, err := db.NextPending(context.Background(), 5)
		if err != nil {
			t.Fatalf("NextPending failed: %v", err)
		}
		if len(batch) != 0 {
			t.Errorf("claimed %d targets from empty queue", len(batch))
		}
	})

	t.Run("non-positive limit returns nothing", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		ctx := context.Background()
		if err := db.Enqueue(ctx, mustTarget(t, model.KindEntry, "https://example.com/x")); err != nil {
			t.Fatalf("enqueue failed: %v", err)
		}

		batch, err := db.NextPending(ctx, 0)
		if err != nil {
			t.Fatalf("NextPending failed: %v", err)
		}
		if batch != nil {
			t.Errorf("NextPending(0) = %v, want nil", batch)
		}
	})
}

func TestMarkFailed(t *testing.T) {
	t.Parallel()

	// claimAndFail claims the single pending target and records a failure.
	claimAndFail := func(t *testing.T, db *DB, msg string, retryable bool) {
		t.Helper()

		ctx := context.Background()
		batch, err := db.NextPending(ctx, 1)
		if err != nil {
			t.Fatalf("NextPending failed: %v", err)
		}
		if len(batch) != 1 {
			t.Fatalf("claimed %d targets, want 1", len(batch))
		}
		if err := db.MarkFailed(ctx, batch[0].ID, msg, retryable); err != nil {
			t.Fatalf("MarkFailed failed: %v", err)
		}
	}

	t.Run("retryable failures re-pend until the budget is spent", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		ctx := context.Background()
		target := mustTarget(t, model.KindEntry, "https://example.com/flaky")

		if err := db.Enqueue(ctx, target); err != nil {
			t.Fatalf("enqueue failed: %v", err)
		}

		// Attempts 1 and 2: re-pended with incremented counts.
		for attempt := 1; attempt < DefaultMaxRetries; attempt++ {
			claimAndFail(t, db, "connection reset", true)

			got, err := db.GetTarget(ctx, target.ID)
			if err != nil {
				t.Fatalf("GetTarget failed: %v", err)
			}
			if got.Status != model.StatusPending {
				t.Fatalf("after attempt %d: status = %q, want pending", attempt, got.Status)
			}
			if got.RetryCount != attempt {
				t.Fatalf("after attempt %d: retry count = %d", attempt, got.RetryCount)
			}
		}

		// Final attempt exhausts the budget.
		claimAndFail(t, db, "connection reset", true)

		got, err := db.GetTarget(ctx, target.ID)
		if err != nil {
			t.Fatalf("GetTarget failed: %v", err)
		}
		if got.Status != model.StatusFailed {
			t.Errorf("status = %q, want failed after %d attempts", got.Status, DefaultMaxRetries)
		}
		if got.RetryCount != DefaultMaxRetries {
			t.Errorf("retry count = %d, want %d", got.RetryCount, DefaultMaxRetries)
		}
		if got.ErrorMessage != "connection reset" {
			t.Errorf("error message = %q", got.ErrorMessage)
		}

		// Failed is terminal: nothing left to claim.
		batch, err := db.NextPending(ctx, 1)
		if err != nil {
			t.Fatalf("NextPending failed: %v", err)
		}
		if len(batch) != 0 {
			t.Error("failed target should not be claimable")
		}
	})

	t.Run("non-retryable failure is immediately terminal with zero retries", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		ctx := context.Background()
		target := mustTarget(t, model.KindEntry, "https://example.com/malformed")

		if err := db.Enqueue(ctx, target); err != nil {
			t.Fatalf("enqueue failed: %v", err)
		}
		claimAndFail(t, db, "unrecognized page structure", false)

		got, err := db.GetTarget(ctx, target.ID)
		if err != nil {
			t.Fatalf("GetTarget failed: %v", err)
		}
		if got.Status != model.StatusFailed {
			t.Errorf("status = %q, want failed", got.Status)
		}
		if got.RetryCount != 0 {
			t.Errorf("retry count = %d, want 0 for non-retryable failure", got.RetryCount)
		}
	})

	t.Run("unknown target is an error", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		if err := db.MarkFailed(context.Background(), "no-such-id", "x", true); err == nil {
			t.Error("MarkFailed should fail for an unknown target")
		}
	})
}

func TestMarkCompleted(t *testing.T) {
	t.Parallel()

	t.Run("completes and clears error", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		ctx := context.Background()
		target := mustTarget(t, model.KindDiscovery, "https://example.com/letter?l=A")

		if err := db.Enqueue(ctx, target); err != nil {
			t.Fatalf("enqueue failed: %v", err)
		}
		if _, err := db.NextPending(ctx, 1); err != nil {
			t.Fatalf("NextPending failed: %v", err)
		}
		if err := db.MarkFailed(ctx, target.ID, "timeout", true); err != nil {
			t.Fatalf("MarkFailed failed: %v", err)
		}
		if _, err := db.NextPending(ctx, 1); err != nil {
			t.Fatalf("NextPending failed: %v", err)
		}
		if err := db.MarkCompleted(ctx, target.ID); err != nil {
			t.Fatalf("MarkCompleted failed: %v", err)
		}

		got, err := db.GetTarget(ctx, target.ID)
		if err != nil {
			t.Fatalf("GetTarget failed: %v", err)
		}
		if got.Status != model.StatusCompleted {
			t.Errorf("status = %q, want completed", got.Status)
		}
		if got.ErrorMessage != "" {
			t.Errorf("error message = %q, want cleared", got.ErrorMessage)
		}
	})

	t.Run("unknown target is an error", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		if err := db.MarkCompleted(context.Background(), "no-such-id"); err == nil {
			t.Error("MarkCompleted should fail for an unknown target")
		}
	})
}

func TestRecoverInProgress(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		url := fmt.Sprintf("https://example.com/page-%d", i)
		if err := db.Enqueue(ctx, mustTarget(t, model.KindEntry, url)); err != nil {
			t.Fatalf("enqueue failed: %v", err)
		}
	}

	// Claim two targets, then simulate a crash by recovering.
	claimed, err := db.NextPending(ctx, 2)
	if err != nil {
		t.Fatalf("NextPending failed: %v", err)
	}
	if len(claimed) != 2 {
		t.Fatalf("claimed %d targets, want 2", len(claimed))
	}

	recovered, err := db.RecoverInProgress(ctx)
	if err != nil {
		t.Fatalf("RecoverInProgress failed: %v", err)
	}
	if recovered != 2 {
		t.Errorf("recovered = %d, want 2", recovered)
	}

	p, err := db.Progress(ctx)
	if err != nil {
		t.Fatalf("Progress failed: %v", err)
	}
	if p.InProgress != 0 || p.Pending != 3 {
		t.Errorf("progress after recovery = %+v, want 0 in_progress / 3 pending", p)
	}

	// Recovered targets must be re-dequeued, oldest first.
	batch, err := db.NextPending(ctx, 3)
	if err != nil {
		t.Fatalf("NextPending failed: %v", err)
	}
	if len(batch) != 3 {
		t.Errorf("re-dequeued %d targets, want all 3", len(batch))
	}
}

func TestRequeue(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()
	target := mustTarget(t, model.KindEntry, "https://example.com/interrupted")

	if err := db.Enqueue(ctx, target); err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}
	if _, err := db.NextPending(ctx, 1); err != nil {
		t.Fatalf("NextPending failed: %v", err)
	}

	if err := db.Requeue(ctx, target.ID); err != nil {
		t.Fatalf("Requeue failed: %v", err)
	}

	got, err := db.GetTarget(ctx, target.ID)
	if err != nil {
		t.Fatalf("GetTarget failed: %v", err)
	}
	if got.Status != model.StatusPending {
		t.Errorf("status = %q, want pending", got.Status)
	}
	if got.RetryCount != 0 {
		t.Errorf("retry count = %d, requeue must not count as a failure", got.RetryCount)
	}

	// Requeue on a non-claimed target is a harmless no-op.
	if err := db.Requeue(ctx, target.ID); err != nil {
		t.Errorf("Requeue on pending target failed: %v", err)
	}
}

func TestResetFailed(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()
	target := mustTarget(t, model.KindEntry, "https://example.com/dead")

	if err := db.Enqueue(ctx, target); err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}
	if _, err := db.NextPending(ctx, 1); err != nil {
		t.Fatalf("NextPending failed: %v", err)
	}
	if err := db.MarkFailed(ctx, target.ID, "gone", false); err != nil {
		t.Fatalf("MarkFailed failed: %v", err)
	}

	n, err := db.ResetFailed(ctx)
	if err != nil {
		t.Fatalf("ResetFailed failed: %v", err)
	}
	if n != 1 {
		t.Errorf("reset %d targets, want 1", n)
	}

	got, err := db.GetTarget(ctx, target.ID)
	if err != nil {
		t.Fatalf("GetTarget failed: %v", err)
	}
	if got.Status != model.StatusPending || got.RetryCount != 0 || got.ErrorMessage != "" {
		t.Errorf("after reset: %+v, want fresh pending target", got)
	}
}

func TestProgress(t *testing.T) {
	t.Parallel()

	t.Run("empty queue reports zeros", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		p, err := db.Progress(context.Background())
		if err != nil {
			t.Fatalf("Progress failed: %v", err)
		}
		if p != (model.Progress{}) {
			t.Errorf("progress = %+v, want all zeros", p)
		}
	})

	t.Run("counts by status", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		ctx := context.Background()

		for i := 0; i < 4; i++ {
			url := fmt.Sprintf("https://example.com/t-%d", i)
			if err := db.Enqueue(ctx, mustTarget(t, model.KindEntry, url)); err != nil {
				t.Fatalf("enqueue failed: %v", err)
			}
		}

		batch, err := db.NextPending(ctx, 3)
		if err != nil {
			t.Fatalf("NextPending failed: %v", err)
		}
		if err := db.MarkCompleted(ctx, batch[0].ID); err != nil {
			t.Fatalf("MarkCompleted failed: %v", err)
		}
		if err := db.MarkFailed(ctx, batch[1].ID, "nope", false); err != nil {
			t.Fatalf("MarkFailed failed: %v", err)
		}

		p, err := db.Progress(ctx)
		if err != nil {
			t.Fatalf("Progress failed: %v", err)
		}
		want := model.Progress{Total: 4, Pending: 1, InProgress: 1, Completed: 1, Failed: 1}
		if p != want {
			t.Errorf("progress = %+v, want %+v", p, want)
		}
	})
}

func TestFailedTargets(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()
	target := mustTarget(t, model.KindEntry, "https://example.com/broken")

	if err := db.Enqueue(ctx, target); err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}
	if _, err := db.NextPending(ctx, 1); err != nil {
		t.Fatalf("NextPending failed: %v", err)
	}
	if err := db.MarkFailed(ctx, target.ID, "404 not found", false); err != nil {
		t.Fatalf("MarkFailed failed: %v", err)
	}

	failed, err := db.FailedTargets(ctx, 10)
	if err != nil {
		t.Fatalf("FailedTargets failed: %v", err)
	}
	if len(failed) != 1 {
		t.Fatalf("got %d failed targets, want 1", len(failed))
	}
	if failed[0].URL != target.URL || failed[0].ErrorMessage != "404 not found" {
		t.Errorf("failed target = %+v", failed[0])
	}
}
