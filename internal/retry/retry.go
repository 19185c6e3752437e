// SPDX-License-Identifier: Apache-2.0

// Package retry decides whether and when a failed remote delivery is
// attempted again. The decision is driven purely by the error taxonomy of
// the adapter layer: transient failures back off exponentially, permanent
// rejections and conflicts are never retried blindly.
package retry

import (
	"context"
	"time"

	backoff "github.com/sethvargo/go-retry"

	"github.com/mknoufi/stockverify/internal/adapter"
)

// Policy is one retry schedule. MaxAttempts caps how many times a single
// operation is tried in total; zero means unbounded, which the background
// drain uses because a durable queue item must never be dropped for being
// unlucky with the network.
type Policy struct {
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	MaxAttempts int
}

// ShouldRetry reports whether an operation that has already been attempted
// `attempts` times and last failed with err deserves another try.
func (p Policy) ShouldRetry(attempts int, err error) bool {
	if adapter.Classify(err) != adapter.KindTransient {
		return false
	}
	if p.MaxAttempts > 0 && attempts >= p.MaxAttempts {
		return false
	}
	return true
}

// Backoff returns the delay before attempt number attempts+1. A throttling
// hint from the server (Retry-After) wins over the computed schedule even
// when it exceeds MaxDelay: the server knows its load better than we do.
func (p Policy) Backoff(attempts int, err error) time.Duration {
	if hint, ok := adapter.RetryAfterHint(err); ok && hint > 0 {
		return hint
	}

	delay := p.BaseDelay
	for i := 1; i < attempts; i++ {
		delay *= 2
		if delay >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if p.MaxDelay > 0 && delay > p.MaxDelay {
		return p.MaxDelay
	}
	return delay
}

// Do runs fn under this policy, sleeping between attempts. It is meant for
// interactive call sites that block a user action: MaxAttempts should be
// small there. Non-transient errors abort immediately.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	b := backoff.NewExponential(p.BaseDelay)
	if p.MaxDelay > 0 {
		b = backoff.WithCappedDuration(p.MaxDelay, b)
	}
	if p.MaxAttempts > 0 {
		b = backoff.WithMaxRetries(uint64(p.MaxAttempts-1), b)
	}

	return backoff.Do(ctx, b, func(ctx context.Context) error {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if adapter.Classify(err) == adapter.KindTransient {
			return backoff.RetryableError(err)
		}
		return err
	})
}
