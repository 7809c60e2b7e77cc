package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/lexicrawl/lexicrawl/internal/config"
)

// Fetcher performs polite HTTP fetches against a single remote host.
//
// All requests, from however many workers, pass through one shared rate
// gate: consecutive request starts are spaced at least the configured
// interval apart, measured from the START of the previous request rather
// than its completion. A slow response therefore never grants a burst of
// quick follow-ups.
type Fetcher struct {
	client      *http.Client
	clock       Clock
	logger      *slog.Logger
	userAgent   string
	interval    time.Duration
	timeout     time.Duration
	maxBackoff  time.Duration
	maxAttempts int
	maxBodySize int64

	mu          sync.Mutex
	nextAllowed time.Time
}

// Result holds a successful fetch.
type Result struct {
	// Body is the response body, capped at the configured size limit.
	Body []byte

	// StatusCode is the HTTP status (always 2xx on success).
	StatusCode int

	// URL is the requested URL.
	URL string
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithClient sets the underlying HTTP client.
func WithClient(client *http.Client) Option {
	return func(f *Fetcher) { f.client = client }
}

// WithClock substitutes the time source. Tests use this to verify pacing
// without real sleeps.
func WithClock(clock Clock) Option {
	return func(f *Fetcher) { f.clock = clock }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Fetcher) { f.logger = logger }
}

// WithInterval sets the minimum spacing between request starts.
func WithInterval(d time.Duration) Option {
	return func(f *Fetcher) { f.interval = d }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) { f.timeout = d }
}

// WithMaxAttempts sets how many times a single Fetch call tries the URL
// before giving up on transient failures.
func WithMaxAttempts(n int) Option {
	return func(f *Fetcher) { f.maxAttempts = n }
}

// WithMaxBackoff caps the exponential backoff between in-call attempts.
func WithMaxBackoff(d time.Duration) Option {
	return func(f *Fetcher) { f.maxBackoff = d }
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) { f.userAgent = ua }
}

// WithMaxBodySize caps how many bytes of a response body are read.
func WithMaxBodySize(n int64) Option {
	return func(f *Fetcher) { f.maxBodySize = n }
}

// New creates a Fetcher with sensible defaults, adjusted by opts.
func New(opts ...Option) *Fetcher {
	f := &Fetcher{
		clock:       systemClock{},
		logger:      slog.New(slog.DiscardHandler),
		userAgent:   config.DefaultUserAgent,
		interval:    config.DefaultRequestDelay,
		timeout:     config.DefaultTimeout,
		maxBackoff:  config.DefaultMaxBackoff,
		maxAttempts: config.DefaultFetchAttempts,
		maxBodySize: config.DefaultMaxBodySize,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.client == nil {
		f.client = &http.Client{Timeout: f.timeout}
	}
	return f
}

// Fetch retrieves rawURL, honoring the rate gate and retrying transient
// failures with capped exponential backoff. On failure it returns a
// *FetchError carrying the retryability classification; on parent context
// cancellation it returns ctx.Err() unchanged so callers can tell an
// interrupted crawl from a broken target.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Result, error) {
	if _, err := url.ParseRequestURI(rawURL); err != nil {
		return nil, &FetchError{URL: rawURL, Retryable: false, Err: err}
	}

	var lastErr *FetchError
	for attempt := 1; attempt <= f.maxAttempts; attempt++ {
		if err := f.waitTurn(ctx); err != nil {
			return nil, err
		}

		result, ferr := f.doFetch(ctx, rawURL)
		if ferr == nil {
			return result, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		lastErr = ferr
		if !ferr.Retryable || attempt == f.maxAttempts {
			break
		}

		backoff := f.backoff(attempt)
		f.logger.Debug("transient fetch failure, backing off",
			slog.String("url", rawURL),
			slog.Int("attempt", attempt),
			slog.Duration("backoff", backoff),
			slog.String("error", ferr.Error()))
		if err := f.clock.Sleep(ctx, backoff); err != nil {
			return nil, err
		}
	}
	return nil, lastErr
}

// doFetch performs one HTTP round trip and classifies any failure.
func (f *Fetcher) doFetch(ctx context.Context, rawURL string) (*Result, *FetchError) {
	reqCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &FetchError{URL: rawURL, Retryable: false, Err: err}
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: rawURL, Retryable: true, Err: transportErr(err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &FetchError{
			URL:        rawURL,
			StatusCode: resp.StatusCode,
			Retryable:  retryableStatus(resp.StatusCode),
			Err:        errors.New(http.StatusText(resp.StatusCode)),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize+1))
	if err != nil {
		return nil, &FetchError{URL: rawURL, StatusCode: resp.StatusCode, Retryable: true, Err: err}
	}
	if int64(len(body)) > f.maxBodySize {
		return nil, &FetchError{
			URL:        rawURL,
			StatusCode: resp.StatusCode,
			Retryable:  false,
			Err:        fmt.Errorf("response body exceeds %d bytes", f.maxBodySize),
		}
	}

	return &Result{Body: body, StatusCode: resp.StatusCode, URL: rawURL}, nil
}

// waitTurn reserves the next request slot and sleeps until it arrives.
func (f *Fetcher) waitTurn(ctx context.Context) error {
	start := f.reserve()
	if wait := start.Sub(f.clock.Now()); wait > 0 {
		return f.clock.Sleep(ctx, wait)
	}
	return ctx.Err()
}

// reserve atomically claims the next allowed start time and advances the
// gate by one interval. Concurrent callers each receive distinct slots at
// least interval apart.
func (f *Fetcher) reserve() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()

	start := f.clock.Now()
	if f.nextAllowed.After(start) {
		start = f.nextAllowed
	}
	f.nextAllowed = start.Add(f.interval)
	return start
}

// backoff returns the sleep before retry number attempt+1, doubling from
// the base interval and capped at maxBackoff.
func (f *Fetcher) backoff(attempt int) time.Duration {
	d := f.interval
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= f.maxBackoff {
			return f.maxBackoff
		}
	}
	if d > f.maxBackoff {
		return f.maxBackoff
	}
	return d
}

// transportErr makes timeout failures explicit in the recorded message.
func transportErr(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("timeout: %w", err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("timeout: %w", err)
	}
	return err
}
