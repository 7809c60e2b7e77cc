// Package crawler coordinates a resumable lexicon crawl.
//
// # Architecture
//
// The Orchestrator ties the durable queue, the rate-limited fetcher, and a
// site adapter together. Each iteration claims a batch of pending targets,
// processes them on a bounded worker pool, and loops until the queue reaches
// its fixed point: no target is pending or in flight. Discovery targets
// enqueue further work mid-run, so the loop drains what it creates.
//
// # Failure handling
//
// Per-target failures never abort the run. Transient fetch failures spend
// the target's retry budget; permanent fetch and parse failures mark it
// failed immediately. Only two things stop a run early: context
// cancellation (a clean, resumable outcome) and storage errors (the run
// cannot even record its own state).
//
// Design decision: We keep the fetch/parse/store pipeline inside a single
// per-target function rather than staged channels because:
//  1. The rate limiter serializes fetches anyway, so staging buys nothing
//  2. A target's status transition must follow its outcome atomically
//  3. One function per target makes cancellation handling auditable
package crawler
