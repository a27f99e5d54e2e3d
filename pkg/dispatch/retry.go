package dispatch

import (
	"context"
	"time"

	"github.com/cenkalti/backoff"
)

// RetryPolicy retries a failed oracle call with exponential backoff.
// The wait after failed attempt k is BaseDelay × 2^(k-1); nothing is waited
// after the last attempt.
type RetryPolicy struct {
	// Attempts is the total number of tries, including the first.
	Attempts int

	// BaseDelay is the wait after the first failure.
	BaseDelay time.Duration

	// OnRetry, when set, is called before each wait.
	OnRetry func(attempt int, wait time.Duration, err error)
}

// DefaultRetryPolicy returns three attempts with a one second base delay.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Attempts: 3, BaseDelay: time.Second}
}

func (p RetryPolicy) normalized() RetryPolicy {
	if p.Attempts < 1 {
		p.Attempts = 1
	}
	if p.BaseDelay < 0 {
		p.BaseDelay = 0
	}
	return p
}

func (p RetryPolicy) backOff(ctx context.Context) backoff.BackOff {
	var b backoff.BackOff = &backoff.ZeroBackOff{}
	if p.BaseDelay > 0 {
		eb := backoff.NewExponentialBackOff()
		eb.InitialInterval = p.BaseDelay
		eb.Multiplier = 2
		eb.RandomizationFactor = 0
		eb.MaxInterval = p.BaseDelay << uint(p.Attempts)
		eb.MaxElapsedTime = 0
		b = eb
	}
	if p.Attempts == 1 {
		// WithMaxRetries treats zero as unlimited
		b = &backoff.StopBackOff{}
	} else {
		b = backoff.WithMaxRetries(b, uint64(p.Attempts-1))
	}
	return backoff.WithContext(b, ctx)
}

// Do runs op until it succeeds or the policy is exhausted and returns the
// number of attempts made with the last error. Context cancellation stops the
// loop early.
func (p RetryPolicy) Do(ctx context.Context, op func(ctx context.Context) error) (int, error) {
	p = p.normalized()
	attempts := 0

	err := backoff.RetryNotify(func() error {
		if err := ctx.Err(); err != nil {
			return backoff.Permanent(err)
		}
		attempts++
		return op(ctx)
	}, p.backOff(ctx), func(err error, wait time.Duration) {
		if p.OnRetry != nil {
			p.OnRetry(attempts, wait, err)
		}
	})
	return attempts, err
}
