package resilience

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// RetryClass tells the retrier how to treat a failed attempt.
type RetryClass int

const (
	// RetryClassRetryable failures wait on the exponential schedule.
	RetryClassRetryable RetryClass = iota
	// RetryClassRateLimited failures wait at least the rate-limit cooldown.
	RetryClassRateLimited
	// RetryClassAbsent failures resolve immediately without spending retries.
	RetryClassAbsent
	// RetryClassPermanent failures are never retried.
	RetryClassPermanent
)

func (c RetryClass) String() string {
	switch c {
	case RetryClassRetryable:
		return "retryable"
	case RetryClassRateLimited:
		return "rate_limited"
	case RetryClassAbsent:
		return "absent"
	case RetryClassPermanent:
		return "permanent"
	default:
		return "unknown"
	}
}

type RetryDecision struct {
	Class      RetryClass
	RetryAfter time.Duration
}

type Classifier func(err error) RetryDecision

func RetryAll(error) RetryDecision {
	return RetryDecision{Class: RetryClassRetryable}
}

// RetryAttempt describes one failed attempt. Wait is zero when the retrier
// gives up after this attempt.
type RetryAttempt struct {
	Attempt  int
	Err      error
	Decision RetryDecision
	Wait     time.Duration
	Final    bool
}

type RetrierOption func(*Retrier)

// WithSleep replaces the context-aware timer used between attempts.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) RetrierOption {
	return func(r *Retrier) {
		if sleep != nil {
			r.sleep = sleep
		}
	}
}

// WithNotify registers a hook invoked after every failed attempt.
func WithNotify(fn func(ctx context.Context, attempt RetryAttempt)) RetrierOption {
	return func(r *Retrier) {
		r.notify = fn
	}
}

// Retrier runs an operation with bounded retries. Ordinary failures back off
// exponentially from BaseDelay; rate-limited failures wait
// max(RateLimitCooldown, hint) regardless of the schedule.
type Retrier struct {
	cfg      RetryConfig
	classify Classifier
	sleep    func(ctx context.Context, d time.Duration) error
	notify   func(ctx context.Context, attempt RetryAttempt)
}

func NewRetrier(cfg RetryConfig, classify Classifier, opts ...RetrierOption) *Retrier {
	if classify == nil {
		classify = RetryAll
	}
	r := &Retrier{
		cfg:      NormalizeRetryConfig(cfg),
		classify: classify,
		sleep:    SleepContext,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Retrier) Config() RetryConfig {
	return r.cfg
}

// Call runs op until it succeeds, the retry budget is spent, or the failure
// class forbids another attempt. The last error is returned unchanged.
func Call[T any](ctx context.Context, r *Retrier, op func(context.Context) (T, error)) (T, error) {
	var value T
	_, err := r.run(ctx, func(ctx context.Context) error {
		out, err := op(ctx)
		if err != nil {
			return err
		}
		value = out
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return value, nil
}

// FallbackResult reports how CallWithFallback resolved.
type FallbackResult[T any] struct {
	Value    T
	Fallback bool
	Cause    error
	Attempts int
}

// CallWithFallback behaves like Call but resolves every non-context failure
// to fallback. The returned error is non-nil only when ctx ended.
func CallWithFallback[T any](ctx context.Context, r *Retrier, fallback T, op func(context.Context) (T, error)) (FallbackResult[T], error) {
	var value T
	attempts, err := r.run(ctx, func(ctx context.Context) error {
		out, err := op(ctx)
		if err != nil {
			return err
		}
		value = out
		return nil
	})
	if err == nil {
		return FallbackResult[T]{Value: value, Attempts: attempts}, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return FallbackResult[T]{Value: fallback, Fallback: true, Cause: err, Attempts: attempts}, ctxErr
	}
	return FallbackResult[T]{Value: fallback, Fallback: true, Cause: err, Attempts: attempts}, nil
}

func (r *Retrier) run(ctx context.Context, op func(context.Context) error) (int, error) {
	if r == nil {
		r = NewRetrier(DefaultRetryConfig(), nil)
	}

	schedule := &backoff.ExponentialBackOff{
		InitialInterval:     r.cfg.BaseDelay,
		RandomizationFactor: 0,
		Multiplier:          2,
		MaxInterval:         r.cfg.MaxDelay,
	}
	schedule.Reset()

	attempt := 0
	for {
		if err := ctx.Err(); err != nil {
			return attempt, err
		}

		attempt++
		err := op(ctx)
		if err == nil {
			return attempt, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return attempt, ctxErr
		}

		decision := r.classify(err)
		info := RetryAttempt{Attempt: attempt, Err: err, Decision: decision}

		if decision.Class == RetryClassAbsent || decision.Class == RetryClassPermanent || attempt > r.cfg.MaxRetries {
			info.Final = true
			r.emit(ctx, info)
			return attempt, err
		}

		wait := schedule.NextBackOff()
		if decision.Class == RetryClassRateLimited {
			wait = max(r.cfg.RateLimitCooldown, decision.RetryAfter)
		}
		info.Wait = wait
		r.emit(ctx, info)

		if err := r.sleep(ctx, wait); err != nil {
			return attempt, err
		}
	}
}

func (r *Retrier) emit(ctx context.Context, attempt RetryAttempt) {
	if r.notify != nil {
		r.notify(ctx, attempt)
	}
}

// SleepContext blocks for d or until ctx is done.
func SleepContext(ctx context.Context, d time.Duration) error {
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
