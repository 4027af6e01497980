// Package retry wraps storage calls with bounded exponential backoff.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	appErrors "github.com/VPRamon/TSI-sub000/pkg/errors"
)

// Policy bounds a retry loop. The delay doubles after each failed attempt
// starting at BaseDelay and never exceeds MaxDelay.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultPolicy mirrors the configuration defaults.
var DefaultPolicy = Policy{MaxAttempts: 3, BaseDelay: 100 * time.Millisecond, MaxDelay: 5 * time.Second}

// Notify is invoked before each retry with the 1-based attempt that failed.
type Notify func(attempt int, err error, wait time.Duration)

type options struct {
	retryable func(error) bool
	notify    Notify
}

// Option customises a single Do call.
type Option func(*options)

// WithNotify registers a callback fired before every retry.
func WithNotify(fn Notify) Option {
	return func(o *options) { o.notify = fn }
}

// WithClassifier overrides which errors are considered transient.
func WithClassifier(fn func(error) bool) Option {
	return func(o *options) { o.retryable = fn }
}

// Do runs op until it succeeds, returns a non-retryable error, the attempts
// are exhausted or ctx is done. By default only errors classified as
// connection failures are retried.
func Do(ctx context.Context, policy Policy, op func(ctx context.Context) error, opts ...Option) error {
	_, err := DoValue(ctx, policy, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	}, opts...)
	return err
}

// DoValue is Do for operations that produce a value.
func DoValue[T any](ctx context.Context, policy Policy, op func(ctx context.Context) (T, error), opts ...Option) (T, error) {
	o := options{retryable: appErrors.IsRetryable}
	for _, opt := range opts {
		opt(&o)
	}
	policy = policy.normalise()

	attempt := 0
	operation := func() (T, error) {
		attempt++
		value, err := op(ctx)
		if err != nil && !o.retryable(err) {
			return value, backoff.Permanent(err)
		}
		return value, err
	}

	var notify backoff.Notify
	if o.notify != nil {
		notify = func(err error, wait time.Duration) { o.notify(attempt, err, wait) }
	}

	return backoff.RetryNotifyWithData(operation, policy.backOff(ctx), notify)
}

func (p Policy) normalise() Policy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = DefaultPolicy.MaxAttempts
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = DefaultPolicy.BaseDelay
	}
	if p.MaxDelay < p.BaseDelay {
		p.MaxDelay = p.BaseDelay
	}
	return p
}

func (p Policy) backOff(ctx context.Context) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = p.BaseDelay
	exp.MaxInterval = p.MaxDelay
	exp.Multiplier = 2
	exp.RandomizationFactor = 0
	exp.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(exp, uint64(p.MaxAttempts-1)), ctx)
}
