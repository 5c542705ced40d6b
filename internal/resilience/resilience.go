// Package resilience provides retry with backoff and a dead letter queue
// for invoice documents that fail processing.
package resilience

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
)

// Policy controls retry behavior for external calls.
type Policy struct {
	// Attempts is the total number of tries including the first.
	// A value of 1 means no retries.
	Attempts int

	// BaseDelay is the delay before the first retry. Each subsequent
	// retry doubles it, capped at MaxDelay.
	BaseDelay time.Duration
	MaxDelay  time.Duration

	// Jitter adds random variance as a fraction of the computed delay
	// (0.25 = ±25%).
	Jitter float64
}

// DefaultPolicy suits API calls: 3 attempts, 500ms base, 30s cap.
func DefaultPolicy() Policy {
	return Policy{
		Attempts:  3,
		BaseDelay: 500 * time.Millisecond,
		MaxDelay:  30 * time.Second,
		Jitter:    0.25,
	}
}

// NewPolicy returns DefaultPolicy with the attempt count overridden when
// attempts is positive.
func NewPolicy(attempts int) Policy {
	p := DefaultPolicy()
	if attempts > 0 {
		p.Attempts = attempts
	}
	return p
}

// Do runs fn under the policy, retrying transient errors only. Context
// cancellation stops retries immediately. Each retry is logged with the
// operation name.
func Do[T any](ctx context.Context, p Policy, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	if p.Attempts <= 0 {
		p = NewPolicy(p.Attempts)
	}

	var zero T
	var lastErr error
	for attempt := 0; attempt < p.Attempts; attempt++ {
		val, err := fn(ctx)
		if err == nil {
			return val, nil
		}
		lastErr = err

		if ctx.Err() != nil || !IsTransient(err) || attempt >= p.Attempts-1 {
			break
		}

		zap.L().Warn("retrying after transient error",
			zap.String("operation", op),
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)

		timer := time.NewTimer(p.delay(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, lastErr
		case <-timer.C:
		}
	}

	return zero, lastErr
}

func (p Policy) delay(attempt int) time.Duration {
	d := float64(p.BaseDelay) * math.Pow(2, float64(attempt))
	if limit := float64(p.MaxDelay); p.MaxDelay > 0 && d > limit {
		d = limit
	}
	if p.Jitter > 0 {
		d += (rand.Float64()*2 - 1) * d * p.Jitter
	}
	if d < 0 {
		d = 0
	}
	return time.Duration(d)
}
