package crawler

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lexicrawl/lexicrawl/internal/config"
	"github.com/lexicrawl/lexicrawl/internal/fetcher"
	"github.com/lexicrawl/lexicrawl/internal/model"
	"github.com/lexicrawl/lexicrawl/internal/source"
)

// Queue is the target-queue surface the orchestrator needs.
// *database.DB satisfies it.
type Queue interface {
	Enqueue(ctx context.Context, target *model.CrawlTarget) error
	NextPending(ctx context.Context, limit int) ([]*model.CrawlTarget, error)
	MarkCompleted(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id, errMsg string, retryable bool) error
	Requeue(ctx context.Context, id string) error
	RecoverInProgress(ctx context.Context) (int64, error)
	Progress(ctx context.Context) (model.Progress, error)
}

// EntrySink is the entry-store surface the orchestrator needs.
// *database.DB satisfies it.
type EntrySink interface {
	UpsertEntry(ctx context.Context, entry *model.LexiconEntry) error
	CountEntries(ctx context.Context) (int, error)
}

// Fetcher retrieves one URL, honoring rate limits and retry policy.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (*fetcher.Result, error)
}

// Orchestrator drives a crawl to its fixed point: claim a batch of pending
// targets, process them concurrently, repeat until nothing is pending.
// Because discovery enqueues new targets mid-run, the loop naturally drains
// work it created itself.
type Orchestrator struct {
	queue       Queue
	store       EntrySink
	fetch       Fetcher
	adapter     source.Adapter
	logger      *slog.Logger
	concurrency int
	batchSize   int

	processed  atomic.Int64
	upserted   atomic.Int64
	discovered atomic.Int64
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = logger }
}

// WithConcurrency sets how many targets are processed at once.
func WithConcurrency(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

// WithBatchSize sets how many targets each queue claim takes.
func WithBatchSize(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.batchSize = n
		}
	}
}

// New creates an Orchestrator over the given queue, entry store, fetcher,
// and site adapter.
func New(queue Queue, store EntrySink, fetch Fetcher, adapter source.Adapter, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		queue:       queue,
		store:       store,
		fetch:       fetch,
		adapter:     adapter,
		logger:      slog.New(slog.DiscardHandler),
		concurrency: config.DefaultConcurrency,
		batchSize:   config.DefaultBatchSize,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run executes the crawl until the queue reaches its fixed point or ctx is
// canceled. Cancellation is a clean outcome: in-flight targets are requeued,
// the summary is marked interrupted, and no error is returned. A non-nil
// error means storage failed and the run could not continue.
func (o *Orchestrator) Run(ctx context.Context) (*model.Summary, error) {
	started := time.Now()
	summary := &model.Summary{StartedAt: started}

	recovered, err := o.queue.RecoverInProgress(ctx)
	if err != nil {
		return summary, err
	}
	summary.Recovered = int(recovered)
	if recovered > 0 {
		o.logger.Warn("recovered targets interrupted by a previous run",
			slog.Int64("count", recovered))
	}

	if err := o.seedIfEmpty(ctx); err != nil {
		return summary, err
	}

	for {
		if ctx.Err() != nil {
			summary.Interrupted = true
			break
		}

		batch, err := o.queue.NextPending(ctx, o.batchSize)
		if err != nil {
			return o.finish(summary, started), err
		}
		if len(batch) == 0 {
			break
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(o.concurrency)
		for _, target := range batch {
			g.Go(func() error {
				return o.processTarget(gctx, target)
			})
		}
		if err := g.Wait(); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				summary.Interrupted = true
				break
			}
			return o.finish(summary, started), err
		}
	}

	summary = o.finish(summary, started)

	// Fresh contexts for the closing reads: the run context may be canceled.
	readCtx := context.WithoutCancel(ctx)
	if progress, err := o.queue.Progress(readCtx); err == nil {
		summary.Progress = progress
	}
	if count, err := o.store.CountEntries(readCtx); err == nil {
		summary.EntriesStored = count
	}
	return summary, nil
}

// seedIfEmpty enqueues the adapter's seed targets when the queue has never
// held anything. A resumed crawl keeps its existing queue untouched.
func (o *Orchestrator) seedIfEmpty(ctx context.Context) error {
	progress, err := o.queue.Progress(ctx)
	if err != nil {
		return err
	}
	if progress.Total > 0 {
		o.logger.Info("resuming existing queue",
			slog.Int("pending", progress.Pending),
			slog.Int("completed", progress.Completed),
			slog.Int("failed", progress.Failed))
		return nil
	}

	seeds, err := o.adapter.SeedTargets()
	if err != nil {
		return err
	}
	for _, seed := range seeds {
		if err := o.queue.Enqueue(ctx, seed); err != nil {
			return err
		}
		o.discovered.Add(1)
	}
	o.logger.Info("seeded empty queue", slog.Int("targets", len(seeds)))
	return nil
}

// processTarget runs one target through fetch, parse, store, and status
// transition. Per-target failures are recorded in the queue and do not stop
// the run; only storage failures and cancellation propagate.
func (o *Orchestrator) processTarget(ctx context.Context, target *model.CrawlTarget) error {
	if ctx.Err() != nil {
		return o.abandon(ctx, target)
	}

	result, err := o.fetch.Fetch(ctx, target.URL)
	if err != nil {
		if ctx.Err() != nil {
			return o.abandon(ctx, target)
		}
		var fetchErr *fetcher.FetchError
		if errors.As(err, &fetchErr) {
			o.logger.Warn("fetch failed",
				slog.String("url", target.URL),
				slog.Bool("retryable", fetchErr.Retryable),
				slog.String("error", fetchErr.Error()))
			o.processed.Add(1)
			return o.queue.MarkFailed(ctx, target.ID, fetchErr.Error(), fetchErr.Retryable)
		}
		return err
	}

	parsed, err := o.adapter.Parse(target, result.Body)
	if err != nil {
		// A page the adapter cannot interpret will not parse better on a
		// retry; the target fails without spending its retry budget.
		o.logger.Warn("parse failed",
			slog.String("url", target.URL),
			slog.String("error", err.Error()))
		o.processed.Add(1)
		return o.queue.MarkFailed(ctx, target.ID, err.Error(), false)
	}

	for _, entry := range parsed.Entries {
		if err := o.store.UpsertEntry(ctx, entry); err != nil {
			return err
		}
		o.upserted.Add(1)
	}
	for _, next := range parsed.Discovered {
		if err := o.queue.Enqueue(ctx, next); err != nil {
			return err
		}
		o.discovered.Add(1)
	}

	if err := o.queue.MarkCompleted(ctx, target.ID); err != nil {
		return err
	}
	o.processed.Add(1)
	o.logger.Debug("target completed",
		slog.String("url", target.URL),
		slog.String("kind", string(target.Kind)),
		slog.Int("entries", len(parsed.Entries)),
		slog.Int("discovered", len(parsed.Discovered)))
	return nil
}

// abandon returns an interrupted target to the queue. The requeue runs on a
// detached context: it must succeed even though the crawl context is already
// canceled, or the target would stay in_progress until the next startup
// recovery.
func (o *Orchestrator) abandon(ctx context.Context, target *model.CrawlTarget) error {
	if err := o.queue.Requeue(context.WithoutCancel(ctx), target.ID); err != nil {
		return err
	}
	return ctx.Err()
}

// finish folds the run counters into the summary.
func (o *Orchestrator) finish(summary *model.Summary, started time.Time) *model.Summary {
	summary.TargetsProcessed = int(o.processed.Load())
	summary.EntriesUpserted = int(o.upserted.Load())
	summary.Discovered = int(o.discovered.Load())
	summary.Elapsed = time.Since(started)
	return summary
}
