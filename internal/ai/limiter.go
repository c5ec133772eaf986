package ai

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/spigell/joe-enricher/internal/utils"
)

// Limiter spaces provider calls at least interval apart across goroutines.
// Each caller reserves its slot under the lock and sleeps outside it, so a
// burst of callers lines up on consecutive slots.
type Limiter struct {
	mu       sync.Mutex
	limiter  *rate.Limiter
	interval time.Duration

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// LimiterOption customises a Limiter.
type LimiterOption func(*Limiter)

// WithClock replaces the time source.
func WithClock(now func() time.Time) LimiterOption {
	return func(l *Limiter) {
		if now != nil {
			l.now = now
		}
	}
}

// WithSleep replaces the wait function.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) LimiterOption {
	return func(l *Limiter) {
		if sleep != nil {
			l.sleep = sleep
		}
	}
}

// NewLimiter builds a limiter for the minimum interval. A zero or negative
// interval disables pacing.
func NewLimiter(interval time.Duration, opts ...LimiterOption) *Limiter {
	l := &Limiter{
		interval: interval,
		now:      time.Now,
		sleep:    utils.WaitFor,
	}
	for _, opt := range opts {
		opt(l)
	}
	if interval > 0 {
		l.limiter = rate.NewLimiter(rate.Every(interval), 1)
	}
	return l
}

// Interval returns the configured minimum spacing.
func (l *Limiter) Interval() time.Duration {
	if l == nil {
		return 0
	}
	return l.interval
}

// Wait blocks until the caller's slot arrives. On cancellation the slot is
// handed back.
func (l *Limiter) Wait(ctx context.Context) error {
	if l == nil || l.limiter == nil {
		return ctx.Err()
	}

	l.mu.Lock()
	now := l.now()
	reservation := l.limiter.ReserveN(now, 1)
	delay := reservation.DelayFrom(now)
	l.mu.Unlock()

	if delay <= 0 {
		return ctx.Err()
	}

	if err := l.sleep(ctx, delay); err != nil {
		l.mu.Lock()
		reservation.CancelAt(l.now())
		l.mu.Unlock()
		return err
	}
	return nil
}

// Reserve returns the delay the next caller would be assigned without
// sleeping. It is meant for diagnostics and tests.
func (l *Limiter) Reserve() time.Duration {
	if l == nil || l.limiter == nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	return l.limiter.ReserveN(now, 1).DelayFrom(now)
}
