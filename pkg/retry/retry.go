// Package retry runs calls to flaky collaborators under an explicit attempt
// budget and backoff schedule.
package retry

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Policy bounds how often and how patiently an operation is retried.
type Policy struct {
	MaxAttempts int
	// Backoff returns the wait after the given failed attempt (1-based).
	Backoff func(attempt int) time.Duration
}

// Exponential waits base * 2^attempt after each failure, so base=1s gives
// 2s, 4s, 8s...
func Exponential(base time.Duration, maxAttempts int) Policy {
	return Policy{
		MaxAttempts: maxAttempts,
		Backoff: func(attempt int) time.Duration {
			if attempt < 0 {
				attempt = 0
			}
			return time.Duration(1<<uint(attempt)) * base
		},
	}
}

// Timer is the clock seam used between attempts.
type Timer = backoff.Timer

// Option customises a single Do call.
type Option func(*options)

type options struct {
	timer  Timer
	notify func(attempt int, err error, wait time.Duration)
}

// WithTimer replaces the wall clock, mainly for tests.
func WithTimer(t Timer) Option {
	return func(o *options) { o.timer = t }
}

// WithNotify is called after every failed attempt that will be retried.
func WithNotify(fn func(attempt int, err error, wait time.Duration)) Option {
	return func(o *options) { o.notify = fn }
}

// Permanent marks err so that Do returns it without further attempts.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// Do runs op until it succeeds, returns a permanent error, the attempt budget
// is spent, or ctx is done. op receives the 1-based attempt number.
func (p Policy) Do(ctx context.Context, op func(ctx context.Context, attempt int) error, opts ...Option) error {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	maxAttempts := p.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	sched := &schedule{policy: p}
	b := backoff.WithContext(backoff.WithMaxRetries(sched, uint64(maxAttempts-1)), ctx)

	attempt := 0
	operation := func() error {
		attempt++
		return op(ctx, attempt)
	}

	var notify backoff.Notify
	if o.notify != nil {
		notify = func(err error, wait time.Duration) {
			o.notify(attempt, err, wait)
		}
	}

	return backoff.RetryNotifyWithTimer(operation, b, notify, o.timer)
}

// schedule adapts Policy.Backoff to backoff.BackOff.
type schedule struct {
	policy Policy
	n      int
}

func (s *schedule) NextBackOff() time.Duration {
	s.n++
	if s.policy.Backoff == nil {
		return 0
	}
	return s.policy.Backoff(s.n)
}

func (s *schedule) Reset() { s.n = 0 }

// IsRetryable reports whether err looks transient: timeouts, dropped
// connections, rate limiting and 5xx responses.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	errStr := strings.ToLower(err.Error())
	for _, marker := range []string{
		"connection refused",
		"connection reset",
		"network unreachable",
		"no such host",
		"i/o timeout",
		"eof",
		"rate limit",
		"too many requests",
		"status 429",
		"status 5",
		"internal server error",
		"service unavailable",
		"bad gateway",
		"gateway timeout",
		"temporary failure",
		"try again",
	} {
		if strings.Contains(errStr, marker) {
			return true
		}
	}
	return false
}
