package crawler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/lexicrawl/lexicrawl/internal/database"
	"github.com/lexicrawl/lexicrawl/internal/fetcher"
	"github.com/lexicrawl/lexicrawl/internal/model"
	"github.com/lexicrawl/lexicrawl/internal/source"
)

// setupTestDB creates a temporary database for testing.
func setupTestDB(t *testing.T) *database.DB {
	t.Helper()

	db, err := database.Open(t.TempDir(), database.DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	return db
}

// stubAdapter is a minimal dictionary site: one letter page linking two
// entry pages, each holding one definition.
type stubAdapter struct {
	letterURL string
	entryURLs []string
}

func newStubAdapter() *stubAdapter {
	return &stubAdapter{
		letterURL: "https://dict.test/letter/alpha",
		entryURLs: []string{
			"https://dict.test/entry/agathos",
			"https://dict.test/entry/ago",
		},
	}
}

func (s *stubAdapter) Tag() string { return "stub" }

func (s *stubAdapter) SeedTargets() ([]*model.CrawlTarget, error) {
	seed, err := model.NewTarget(model.KindDiscovery, s.letterURL)
	if err != nil {
		return nil, err
	}
	return []*model.CrawlTarget{seed}, nil
}

func (s *stubAdapter) Parse(target *model.CrawlTarget, body []byte) (*source.Result, error) {
	if target.Kind == model.KindDiscovery {
		var discovered []*model.CrawlTarget
		for _, u := range s.entryURLs {
			next, err := model.NewTarget(model.KindEntry, u)
			if err != nil {
				return nil, err
			}
			discovered = append(discovered, next)
		}
		return &source.Result{Discovered: discovered}, nil
	}

	lemma := target.URL[len("https://dict.test/entry/"):]
	return &source.Result{Entries: []*model.LexiconEntry{{
		Identifier: model.EntryIdentifier(lemma, ""),
		Lemma:      lemma,
		SourceTag:  s.Tag(),
		Text:       "definition of " + lemma,
		SourceURL:  target.URL,
	}}}, nil
}

// stubFetcher serves canned responses without touching the network.
type stubFetcher struct {
	mu    sync.Mutex
	errs  map[string]error
	calls map[string]int
}

func newStubFetcher() *stubFetcher {
	return &stubFetcher{
		errs:  make(map[string]error),
		calls: make(map[string]int),
	}
}

func (f *stubFetcher) failWith(url string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[url] = err
}

func (f *stubFetcher) callCount(url string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[url]
}

func (f *stubFetcher) Fetch(ctx context.Context, rawURL string) (*fetcher.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.calls[rawURL]++
	err := f.errs[rawURL]
	f.mu.Unlock()

	if err != nil {
		return nil, err
	}
	return &fetcher.Result{Body: []byte("<html>page</html>"), StatusCode: 200, URL: rawURL}, nil
}

func TestRun(t *testing.T) {
	t.Parallel()

	t.Run("crawls seed and discovered targets to the fixed point", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		adapter := newStubAdapter()
		o := New(db, db, newStubFetcher(), adapter)

		summary, err := o.Run(context.Background())
		if err != nil {
			t.Fatalf("Run failed: %v", err)
		}

		want := model.Progress{Total: 3, Completed: 3}
		if summary.Progress != want {
			t.Errorf("progress = %+v, want %+v", summary.Progress, want)
		}
		if summary.TargetsProcessed != 3 {
			t.Errorf("targets processed = %d, want 3", summary.TargetsProcessed)
		}
		if summary.EntriesUpserted != 2 || summary.EntriesStored != 2 {
			t.Errorf("entries upserted/stored = %d/%d, want 2/2",
				summary.EntriesUpserted, summary.EntriesStored)
		}
		// One seed plus two discovered entry targets.
		if summary.Discovered != 3 {
			t.Errorf("discovered = %d, want 3", summary.Discovered)
		}
		if summary.Interrupted {
			t.Error("run should not report interruption")
		}

		entry, err := db.GetEntry(context.Background(), "agathos_1", "stub")
		if err != nil {
			t.Fatalf("GetEntry failed: %v", err)
		}
		if entry == nil || entry.Text != "definition of agathos" {
			t.Errorf("stored entry = %+v", entry)
		}
	})

	t.Run("second run over a finished queue does nothing", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		adapter := newStubAdapter()
		fetch := newStubFetcher()

		if _, err := New(db, db, fetch, adapter).Run(context.Background()); err != nil {
			t.Fatalf("first run failed: %v", err)
		}

		summary, err := New(db, db, fetch, adapter).Run(context.Background())
		if err != nil {
			t.Fatalf("second run failed: %v", err)
		}
		if summary.TargetsProcessed != 0 {
			t.Errorf("second run processed %d targets, want 0", summary.TargetsProcessed)
		}
		if fetch.callCount(adapter.letterURL) != 1 {
			t.Errorf("letter page fetched %d times across runs, want 1", fetch.callCount(adapter.letterURL))
		}
	})

	t.Run("transient failures exhaust the retry budget then fail", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		adapter := newStubAdapter()
		fetch := newStubFetcher()
		badURL := adapter.entryURLs[0]
		fetch.failWith(badURL, &fetcher.FetchError{URL: badURL, StatusCode: 503, Retryable: true, Err: errors.New("service unavailable")})

		summary, err := New(db, db, fetch, adapter).Run(context.Background())
		if err != nil {
			t.Fatalf("Run failed: %v", err)
		}

		if summary.Progress.Failed != 1 || summary.Progress.Completed != 2 {
			t.Errorf("progress = %+v, want 1 failed / 2 completed", summary.Progress)
		}
		if got := fetch.callCount(badURL); got != database.DefaultMaxRetries {
			t.Errorf("flaky URL fetched %d times, want %d", got, database.DefaultMaxRetries)
		}

		failed, err := db.FailedTargets(context.Background(), 10)
		if err != nil {
			t.Fatalf("FailedTargets failed: %v", err)
		}
		if len(failed) != 1 || failed[0].RetryCount != database.DefaultMaxRetries {
			t.Errorf("failed targets = %+v", failed)
		}
	})

	t.Run("permanent fetch failure is not retried", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		adapter := newStubAdapter()
		fetch := newStubFetcher()
		badURL := adapter.entryURLs[1]
		fetch.failWith(badURL, &fetcher.FetchError{URL: badURL, StatusCode: 404, Retryable: false, Err: errors.New("not found")})

		summary, err := New(db, db, fetch, adapter).Run(context.Background())
		if err != nil {
			t.Fatalf("Run failed: %v", err)
		}

		if summary.Progress.Failed != 1 {
			t.Errorf("progress = %+v, want 1 failed", summary.Progress)
		}
		if got := fetch.callCount(badURL); got != 1 {
			t.Errorf("permanently failing URL fetched %d times, want 1", got)
		}

		failed, err := db.FailedTargets(context.Background(), 10)
		if err != nil {
			t.Fatalf("FailedTargets failed: %v", err)
		}
		if len(failed) != 1 || failed[0].RetryCount != 0 {
			t.Errorf("failed targets = %+v, want zero retry count", failed)
		}
	})

	t.Run("parse failure fails the target without spending retries", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		adapter := &parseFailingAdapter{stubAdapter: newStubAdapter()}

		summary, err := New(db, db, newStubFetcher(), adapter).Run(context.Background())
		if err != nil {
			t.Fatalf("Run failed: %v", err)
		}

		// The letter page parses; both entry pages fail to parse.
		if summary.Progress.Failed != 2 || summary.Progress.Completed != 1 {
			t.Errorf("progress = %+v, want 2 failed / 1 completed", summary.Progress)
		}

		failed, err := db.FailedTargets(context.Background(), 10)
		if err != nil {
			t.Fatalf("FailedTargets failed: %v", err)
		}
		for _, ft := range failed {
			if ft.RetryCount != 0 {
				t.Errorf("parse failure consumed retries: %+v", ft)
			}
		}
	})

	t.Run("empty pages complete without storing entries", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		adapter := &emptyPageAdapter{stubAdapter: newStubAdapter()}

		summary, err := New(db, db, newStubFetcher(), adapter).Run(context.Background())
		if err != nil {
			t.Fatalf("Run failed: %v", err)
		}

		if summary.Progress.Completed != 3 || summary.Progress.Failed != 0 {
			t.Errorf("progress = %+v, want all completed", summary.Progress)
		}
		if summary.EntriesStored != 0 {
			t.Errorf("entries stored = %d, want 0", summary.EntriesStored)
		}
	})

	t.Run("cancellation requeues in-flight targets", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		adapter := newStubAdapter()

		ctx, cancel := context.WithCancel(context.Background())
		fetch := &cancelingFetcher{stubFetcher: newStubFetcher(), cancel: cancel}

		summary, err := New(db, db, fetch, adapter).Run(ctx)
		if err != nil {
			t.Fatalf("Run after cancellation should not error: %v", err)
		}
		if !summary.Interrupted {
			t.Error("summary should report interruption")
		}

		p, err := db.Progress(context.Background())
		if err != nil {
			t.Fatalf("Progress failed: %v", err)
		}
		if p.InProgress != 0 {
			t.Errorf("in_progress = %d after cancellation, want 0", p.InProgress)
		}
		if p.Pending == 0 {
			t.Error("interrupted work should remain pending for the next run")
		}
	})
}

// parseFailingAdapter fails to parse entry pages.
type parseFailingAdapter struct {
	*stubAdapter
}

func (a *parseFailingAdapter) Parse(target *model.CrawlTarget, body []byte) (*source.Result, error) {
	if target.Kind == model.KindEntry {
		return nil, &source.ParseError{URL: target.URL, Err: fmt.Errorf("unrecognized page structure")}
	}
	return a.stubAdapter.Parse(target, body)
}

// emptyPageAdapter yields content-free entry pages.
type emptyPageAdapter struct {
	*stubAdapter
}

func (a *emptyPageAdapter) Parse(target *model.CrawlTarget, body []byte) (*source.Result, error) {
	if target.Kind == model.KindEntry {
		return &source.Result{}, nil
	}
	return a.stubAdapter.Parse(target, body)
}

// cancelingFetcher cancels the run on its first call.
type cancelingFetcher struct {
	*stubFetcher
	cancel context.CancelFunc
	once   sync.Once
}

func (f *cancelingFetcher) Fetch(ctx context.Context, rawURL string) (*fetcher.Result, error) {
	f.once.Do(f.cancel)
	return nil, ctx.Err()
}
