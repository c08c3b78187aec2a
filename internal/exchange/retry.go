package exchange

import (
	"context"
	"errors"
	"time"

	"github.com/jpillora/backoff"
	"go.uber.org/zap"
)

// ErrUnavailable surfaces once a transient-network retry budget is
// exhausted (spec.md §7 "TransientNetwork ... surfaces as Unavailable if
// exhausted").
var ErrUnavailable = errors.New("exchange: unavailable after retries")

// Transient marks an error as retryable by WithRetry. Adapters wrap network
// and rate-limit errors in this before returning them.
type Transient struct{ Err error }

func (t *Transient) Error() string { return t.Err.Error() }
func (t *Transient) Unwrap() error { return t.Err }

// IsTransient reports whether err (or one it wraps) is a Transient.
func IsTransient(err error) bool {
	var t *Transient
	return errors.As(err, &t)
}

// RetryPolicy is the adapter-facing view of pkg/config.Exchange's
// max_retries/base_backoff knobs (spec.md §6 "retry on transient failures
// (≤ 7 attempts, exponential backoff starting at 3 s)").
type RetryPolicy struct {
	MaxRetries  int
	BaseBackoff time.Duration
}

// DefaultRetryPolicy matches the config package's own defaults, for callers
// that build a policy without going through pkg/config (e.g. tests).
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: 7, BaseBackoff: 3 * time.Second}
}

// WithRetry runs fn up to policy.MaxRetries+1 times with exponential
// backoff starting at policy.BaseBackoff, retrying only Transient errors
// (spec.md §9 "retry policy belongs to adapters"). A non-transient error
// returns immediately.
func WithRetry[T any](ctx context.Context, logger *zap.Logger, policy RetryPolicy, fn func(ctx context.Context) (T, error)) (T, error) {
	b := &backoff.Backoff{Min: policy.BaseBackoff, Factor: backoffMultiplier, Jitter: true}

	var zero T
	for attempt := 0; attempt <= policy.MaxRetries; attempt++ {
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		if !IsTransient(err) {
			return zero, err
		}
		if attempt == policy.MaxRetries {
			logger.Warn("exchange: retry budget exhausted", zap.Int("attempts", attempt+1), zap.Error(err))
			return zero, ErrUnavailable
		}

		wait := b.Duration()
		logger.Debug("exchange: transient error, retrying", zap.Int("attempt", attempt+1), zap.Duration("wait", wait), zap.Error(err))
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(wait):
		}
	}
	return zero, ErrUnavailable
}
