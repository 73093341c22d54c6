package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrExhausted is matched by errors.Is when a policy ran out of attempts or time.
var ErrExhausted = errors.New("retry budget exhausted")

// BackoffFunc returns the delay to wait after the given zero-based attempt.
type BackoffFunc func(attempt int) time.Duration

// Constant waits the same delay after every attempt.
func Constant(d time.Duration) BackoffFunc {
	return func(int) time.Duration { return d }
}

// Exponential waits base * 2^attempt, capped at max when max > 0.
func Exponential(base, max time.Duration) BackoffFunc {
	return func(attempt int) time.Duration {
		f := float64(base) * math.Pow(2, float64(attempt))
		if max > 0 && f > float64(max) {
			return max
		}
		if f > math.MaxInt64 {
			return time.Duration(math.MaxInt64)
		}
		return time.Duration(f)
	}
}

// Policy bounds how many times, and for how long, an operation is attempted.
// At least one of MaxAttempts and MaxElapsed should be set; a zero policy
// makes exactly one attempt.
type Policy struct {
	MaxAttempts int
	MaxElapsed  time.Duration
	Backoff     BackoffFunc

	// Sleep and Now are overridable for tests.
	Sleep func(ctx context.Context, d time.Duration) error
	Now   func() time.Time
}

// Condition reports whether polling is done. A non-nil error counts as a
// failed attempt unless it is Fatal, which stops polling immediately.
type Condition func(ctx context.Context, attempt int) (done bool, err error)

// ExhaustedError is returned when a policy runs out of budget.
type ExhaustedError struct {
	Attempts int
	Elapsed  time.Duration
	Last     error
}

func (e *ExhaustedError) Error() string {
	if e.Last != nil {
		return fmt.Sprintf("gave up after %d attempts (%v): %v", e.Attempts, e.Elapsed.Round(time.Millisecond), e.Last)
	}
	return fmt.Sprintf("gave up after %d attempts (%v)", e.Attempts, e.Elapsed.Round(time.Millisecond))
}

func (e *ExhaustedError) Unwrap() []error {
	if e.Last == nil {
		return []error{ErrExhausted}
	}
	return []error{ErrExhausted, e.Last}
}

// Poll evaluates cond until it reports done, returns a Fatal error, the
// context ends, or the policy budget is spent.
func (p Policy) Poll(ctx context.Context, cond Condition) error {
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepContext
	}
	now := p.Now
	if now == nil {
		now = time.Now
	}
	backoff := p.Backoff
	if backoff == nil {
		backoff = Constant(0)
	}

	start := now()
	var lastErr error

	for attempt := 0; ; attempt++ {
		done, err := cond(ctx, attempt)
		if err == nil && done {
			return nil
		}
		if err != nil {
			if IsFatal(err) {
				return err
			}
			lastErr = err
		}

		attempts := attempt + 1
		if p.MaxAttempts > 0 && attempts >= p.MaxAttempts {
			return &ExhaustedError{Attempts: attempts, Elapsed: now().Sub(start), Last: lastErr}
		}

		delay := backoff(attempt)
		if p.MaxElapsed > 0 && now().Add(delay).Sub(start) > p.MaxElapsed {
			return &ExhaustedError{Attempts: attempts, Elapsed: now().Sub(start), Last: lastErr}
		}
		if p.MaxAttempts <= 0 && p.MaxElapsed <= 0 {
			return &ExhaustedError{Attempts: attempts, Elapsed: now().Sub(start), Last: lastErr}
		}

		if err := sleep(ctx, delay); err != nil {
			return fmt.Errorf("context cancelled after %d attempts: %w", attempts, err)
		}
	}
}

// Do runs op until it succeeds or the policy is exhausted.
func (p Policy) Do(ctx context.Context, op func(ctx context.Context) error) error {
	return p.Poll(ctx, func(ctx context.Context, _ int) (bool, error) {
		if err := op(ctx); err != nil {
			return false, err
		}
		return true, nil
	})
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
