package fetcher

import (
	"context"
	"time"
)

// Clock abstracts time for the rate limiter and retry backoff. Production
// code uses the system clock; tests substitute a fake so rate-limit behavior
// can be verified without real sleeping.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// Sleep blocks for d or until ctx is canceled, whichever comes first.
	// It returns ctx.Err() when canceled early.
	Sleep(ctx context.Context, d time.Duration) error
}

// systemClock implements Clock with the real time package.
type systemClock struct{}

// Now implements Clock.
func (systemClock) Now() time.Time { return time.Now() }

// Sleep implements Clock.
func (systemClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
