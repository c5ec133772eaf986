package ai

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func TestLimiterSpacesConcurrentCallers(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 10, 1, 9, 0, 0, 0, time.UTC)}

	var mu sync.Mutex
	var delays []time.Duration
	sleep := func(_ context.Context, d time.Duration) error {
		mu.Lock()
		delays = append(delays, d)
		mu.Unlock()
		return nil
	}

	limiter := NewLimiter(time.Second, WithClock(clock.Now), WithSleep(sleep))

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := limiter.Wait(context.Background()); err != nil {
				t.Errorf("unexpected wait error: %v", err)
			}
		}()
	}
	wg.Wait()

	sort.Slice(delays, func(i, j int) bool { return delays[i] < delays[j] })
	want := []time.Duration{time.Second, 2 * time.Second}
	if len(delays) != len(want) {
		t.Fatalf("expected %d sleeps, got %v", len(want), delays)
	}
	for i := range want {
		if delays[i] != want[i] {
			t.Fatalf("expected delays %v, got %v", want, delays)
		}
	}
}

func TestLimiterSlotFreesAfterInterval(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 10, 1, 9, 0, 0, 0, time.UTC)}
	limiter := NewLimiter(time.Second, WithClock(clock.Now), WithSleep(func(context.Context, time.Duration) error { return nil }))

	if d := limiter.Reserve(); d != 0 {
		t.Fatalf("expected first slot immediately, got %v", d)
	}

	clock.mu.Lock()
	clock.now = clock.now.Add(1500 * time.Millisecond)
	clock.mu.Unlock()

	if d := limiter.Reserve(); d != 0 {
		t.Fatalf("expected slot to be free after interval, got %v", d)
	}
}

func TestLimiterZeroIntervalDisablesPacing(t *testing.T) {
	called := false
	limiter := NewLimiter(0, WithSleep(func(context.Context, time.Duration) error {
		called = true
		return nil
	}))

	for i := 0; i < 5; i++ {
		if err := limiter.Wait(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if called {
		t.Fatalf("expected no sleeps when pacing is disabled")
	}
}

func TestLimiterCancelledWaitReturnsError(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 10, 1, 9, 0, 0, 0, time.UTC)}
	limiter := NewLimiter(time.Second, WithClock(clock.Now), WithSleep(func(context.Context, time.Duration) error {
		return context.Canceled
	}))

	if err := limiter.Wait(context.Background()); err != nil {
		t.Fatalf("first caller should not wait: %v", err)
	}
	if err := limiter.Wait(context.Background()); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation error, got %v", err)
	}
}
