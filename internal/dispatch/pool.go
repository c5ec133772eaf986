// Package dispatch runs independent keyed tasks on a shared, bounded pool.
package dispatch

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

const (
	defaultWorkers       = 10
	defaultProgressEvery = 10
)

// Pool bounds how many tasks run at once across every caller sharing it.
type Pool struct {
	slots         chan struct{}
	workers       int
	progressEvery int
	logger        *zap.Logger
}

// Option customises a Pool.
type Option func(*Pool)

// WithWorkers sets the concurrency ceiling.
func WithWorkers(n int) Option {
	return func(p *Pool) {
		if n > 0 {
			p.workers = n
		}
	}
}

// WithProgressEvery sets how many completions pass between progress logs.
func WithProgressEvery(n int) Option {
	return func(p *Pool) {
		if n > 0 {
			p.progressEvery = n
		}
	}
}

// WithLogger sets the progress logger.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Pool) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewPool builds a pool. Create one per process and pass it around.
func NewPool(opts ...Option) *Pool {
	p := &Pool{
		workers:       defaultWorkers,
		progressEvery: defaultProgressEvery,
		logger:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.slots = make(chan struct{}, p.workers)
	return p
}

// Workers returns the concurrency ceiling.
func (p *Pool) Workers() int { return p.workers }

func (p *Pool) acquire(ctx context.Context) error {
	select {
	case p.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pool) release() { <-p.slots }

// Task is one unit of work identified by Key.
type Task[T any] struct {
	Key string
	Run func(ctx context.Context) (T, error)
}

// Result is the outcome of one task. Value is nil when the task failed.
type Result[T any] struct {
	Key   string
	Value *T
	Err   error
}

// Stream submits every task and delivers results as they finish. The channel
// is closed after the last result. A failing or panicking task yields a
// Result with a nil Value and never affects its siblings.
func Stream[T any](ctx context.Context, p *Pool, name string, tasks []Task[T]) <-chan Result[T] {
	out := make(chan Result[T], len(tasks))
	if len(tasks) == 0 {
		close(out)
		return out
	}

	log := p.logger.With(zap.String("batch", name), zap.Int("tasks", len(tasks)))
	var (
		wg        sync.WaitGroup
		completed atomic.Int64
		failed    atomic.Int64
	)

	report := func(failedTask bool) {
		if failedTask {
			failed.Add(1)
		}
		n := completed.Add(1)
		if n%int64(p.progressEvery) == 0 && n != int64(len(tasks)) {
			log.Info("batch progress", zap.Int64("completed", n), zap.Int64("failed", failed.Load()))
		}
	}

	for _, task := range tasks {
		wg.Add(1)
		go func(task Task[T]) {
			defer wg.Done()
			res := run(ctx, p, task)
			if res.Err != nil {
				log.Warn("task failed", zap.String("key", task.Key), zap.Error(res.Err))
			}
			report(res.Err != nil)
			out <- res
		}(task)
	}

	go func() {
		wg.Wait()
		log.Info("batch finished", zap.Int64("completed", completed.Load()), zap.Int64("failed", failed.Load()))
		close(out)
	}()

	return out
}

// Execute runs tasks and returns a map holding every input key. Failed tasks
// map to nil.
func Execute[T any](ctx context.Context, p *Pool, name string, tasks []Task[T]) map[string]*T {
	results := make(map[string]*T, len(tasks))
	for _, task := range tasks {
		results[task.Key] = nil
	}
	for res := range Stream(ctx, p, name, tasks) {
		results[res.Key] = res.Value
	}
	return results
}

func run[T any](ctx context.Context, p *Pool, task Task[T]) (res Result[T]) {
	res.Key = task.Key

	if err := p.acquire(ctx); err != nil {
		res.Err = errors.Wrap(err, "waiting for a worker")
		return res
	}
	defer p.release()

	defer func() {
		if r := recover(); r != nil {
			res.Value = nil
			res.Err = errors.Newf("task panicked: %s", fmt.Sprint(r))
		}
	}()

	if task.Run == nil {
		res.Err = errors.New("task has no function")
		return res
	}

	value, err := task.Run(ctx)
	if err != nil {
		res.Err = err
		return res
	}
	res.Value = &value
	return res
}
