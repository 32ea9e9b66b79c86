// Package poll provides a bounded fixed-interval readiness wait.
//
// The driven web app exposes no completion events for server-side
// processing or client-side validation, so readiness is observed by
// repeatedly evaluating a side-effect-free predicate against the current
// UI state. Intervals are fixed (no backoff): target latencies are small
// and bounded, so a fixed cadence gives a deterministic worst-case wait.
package poll

import (
	"context"
	"errors"
	"time"

	"github.com/avast/retry-go/v4"
)

// ErrExhausted is returned when the attempt budget is spent without a
// positive observation. It is a normal outcome, not a failure: callers
// decide whether exhaustion means "feature absent, skip" or is fatal.
var ErrExhausted = errors.New("poll: attempt budget exhausted")

// errNotReady marks a false observation so it can be retried; any other
// predicate error aborts the wait immediately.
var errNotReady = errors.New("poll: not ready")

// Predicate observes current state and reports whether the awaited
// condition holds. It must not mutate the state it observes.
type Predicate func() (bool, error)

// Budget bounds one wait: at most Attempts evaluations, Interval apart.
type Budget struct {
	Interval time.Duration
	Attempts uint
}

// Total returns the worst-case duration of a wait under this budget.
func (b Budget) Total() time.Duration {
	if b.Attempts == 0 {
		return 0
	}
	return time.Duration(b.Attempts-1) * b.Interval
}

// WaitUntil evaluates pred at fixed intervals until it observes true,
// the budget is exhausted (ErrExhausted), the context is done, or the
// predicate fails with a real error.
func WaitUntil(ctx context.Context, pred Predicate, b Budget) error {
	attempts := b.Attempts
	if attempts == 0 {
		attempts = 1
	}

	err := retry.Do(
		func() error {
			ok, err := pred()
			if err != nil {
				return retry.Unrecoverable(err)
			}
			if !ok {
				return errNotReady
			}
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(b.Interval),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
	)
	if err == nil {
		return nil
	}
	if errors.Is(err, errNotReady) {
		return ErrExhausted
	}
	return err
}
