package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestExecuteToleratesPanickingTask(t *testing.T) {
	pool := NewPool(WithWorkers(20))

	tasks := make([]Task[int], 0, 25)
	for i := 0; i < 25; i++ {
		i := i
		tasks = append(tasks, Task[int]{
			Key: fmt.Sprintf("job-%02d", i),
			Run: func(context.Context) (int, error) {
				if i == 13 {
					panic("malformed response")
				}
				return i * 2, nil
			},
		})
	}

	results := Execute(context.Background(), pool, "scenario", tasks)

	require.Len(t, results, 25)
	succeeded := 0
	for key, value := range results {
		if key == "job-13" {
			assert.Nil(t, value)
			continue
		}
		require.NotNil(t, value, key)
		succeeded++
	}
	assert.Equal(t, 24, succeeded)
	assert.Equal(t, 10, *results["job-05"])
}

func TestExecuteErrorsMapToNil(t *testing.T) {
	pool := NewPool(WithWorkers(2))
	results := Execute(context.Background(), pool, "errors", []Task[string]{
		{Key: "ok", Run: func(context.Context) (string, error) { return "fine", nil }},
		{Key: "bad", Run: func(context.Context) (string, error) { return "", errors.New("boom") }},
		{Key: "empty"},
	})

	require.Len(t, results, 3)
	assert.Equal(t, "fine", *results["ok"])
	assert.Nil(t, results["bad"])
	assert.Nil(t, results["empty"])
}

func TestPoolBoundsConcurrency(t *testing.T) {
	pool := NewPool(WithWorkers(3))

	var running, peak atomic.Int32
	tasks := make([]Task[struct{}], 0, 12)
	for i := 0; i < 12; i++ {
		tasks = append(tasks, Task[struct{}]{
			Key: fmt.Sprint(i),
			Run: func(context.Context) (struct{}, error) {
				n := running.Add(1)
				for {
					p := peak.Load()
					if n <= p || peak.CompareAndSwap(p, n) {
						break
					}
				}
				time.Sleep(5 * time.Millisecond)
				running.Add(-1)
				return struct{}{}, nil
			},
		})
	}

	// Two batches share the same pool, so the ceiling holds across them.
	done := make(chan struct{})
	go func() {
		Execute(context.Background(), pool, "a", tasks[:6])
		close(done)
	}()
	Execute(context.Background(), pool, "b", tasks[6:])
	<-done

	assert.LessOrEqual(t, peak.Load(), int32(3))
}

func TestStreamReportsProgress(t *testing.T) {
	core, observed := observer.New(zapcore.InfoLevel)
	pool := NewPool(WithWorkers(4), WithProgressEvery(5), WithLogger(zap.New(core)))

	tasks := make([]Task[int], 0, 12)
	for i := 0; i < 12; i++ {
		tasks = append(tasks, Task[int]{Key: fmt.Sprint(i), Run: func(context.Context) (int, error) { return 1, nil }})
	}

	count := 0
	for res := range Stream(context.Background(), pool, "progress", tasks) {
		require.NoError(t, res.Err)
		count++
	}
	assert.Equal(t, 12, count)

	assert.Eventually(t, func() bool {
		return observed.FilterMessage("batch finished").Len() == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 2, observed.FilterMessage("batch progress").Len())
}

func TestStreamCancelledContext(t *testing.T) {
	pool := NewPool(WithWorkers(1))
	ctx, cancel := context.WithCancel(context.Background())

	release := make(chan struct{})
	tasks := []Task[int]{
		{Key: "blocker", Run: func(context.Context) (int, error) { <-release; return 1, nil }},
		{Key: "waiting", Run: func(context.Context) (int, error) { return 2, nil }},
	}

	results := make(chan map[string]*int)
	go func() { results <- Execute(ctx, pool, "cancel", tasks) }()

	time.Sleep(10 * time.Millisecond)
	cancel()
	close(release)

	got := <-results
	require.Len(t, got, 2)
}

func TestStreamEmpty(t *testing.T) {
	pool := NewPool()
	_, open := <-Stream[int](context.Background(), pool, "empty", nil)
	assert.False(t, open)
	assert.Equal(t, defaultWorkers, pool.Workers())
}
