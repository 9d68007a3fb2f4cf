package retry

import (
	"context"
	"time"

	"codeberg.org/docuchat/server/internal/domain"
)

// one retry with a short pause, the shape every backend call uses
var Default = Policy{Attempts: 2, Backoff: 500 * time.Millisecond}

type Policy struct {
	Attempts int
	Backoff  time.Duration
	// decides whether an error is worth another attempt; defaults to domain.IsTransient
	Retryable func(error) bool
}

// runs fn until it succeeds, returns a non-retryable error or the policy
// runs out of attempts. the backoff doubles after each failure.
func Do(ctx context.Context, p Policy, fn func(ctx context.Context) error) (int, error) {
	attempts := max(p.Attempts, 1)

	retryable := p.Retryable
	if retryable == nil {
		retryable = domain.IsTransient
	}

	delay := p.Backoff

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = fn(ctx)
		if err == nil || !retryable(err) || attempt == attempts {
			return attempt, err
		}

		if delay > 0 {
			select {
			case <-ctx.Done():
				return attempt, ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}
	}

	return attempts, err
}
