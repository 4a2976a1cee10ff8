package fetch

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrRateLimited indicates the data source rejected a request for exceeding
// its rate limits. Retries wait the full rate limit delay before the next
// attempt.
var ErrRateLimited = errors.New("rate limited")

// RetryPolicy represents an explicit bounded retry policy for data fetches.
type RetryPolicy struct {
	// MaxAttempts is the maximum number of attempts per fetch.
	MaxAttempts int
	// Delay is the wait between failed attempts.
	Delay time.Duration
	// RateLimitDelay is the wait after a rate limited attempt.
	RateLimitDelay time.Duration
}

// DefaultRetryPolicy returns the default fetch retry policy.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    3,
		Delay:          time.Second * 2,
		RateLimitDelay: time.Second * 30,
	}
}

// Do runs the provided operation until it succeeds, the attempts are
// exhausted or the context is cancelled.
func (p RetryPolicy) Do(ctx context.Context, op func(ctx context.Context) error) error {
	attempts := max(1, p.MaxAttempts)

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = op(ctx)
		if err == nil {
			return nil
		}
		if attempt == attempts {
			break
		}

		delay := p.Delay
		if errors.Is(err, ErrRateLimited) {
			delay = p.RateLimitDelay
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	return fmt.Errorf("%d attempts exhausted: %w", attempts, err)
}
