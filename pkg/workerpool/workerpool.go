// Package workerpool runs blocking work on a fixed set of goroutines behind
// a bounded queue. Submissions that find the queue full are rejected.
package workerpool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

var (
	ErrOverloaded = errors.New("worker pool is at capacity")
	ErrClosed     = errors.New("worker pool is closed")
)

type Stats struct {
	Workers  int   `json:"workers"`
	Queue    int   `json:"queue"`
	Queued   int   `json:"queued"`
	InFlight int64 `json:"in_flight"`
	Shed     int64 `json:"shed"`
}

type task struct {
	ctx context.Context
	run func(ctx context.Context)
}

type Pool struct {
	tasks    chan task
	workers  int
	mu       sync.RWMutex
	closed   bool
	wg       sync.WaitGroup
	inFlight atomic.Int64
	shed     atomic.Int64
	log      *logrus.Logger
}

func New(workers, queue int, log *logrus.Logger) *Pool {
	if workers < 1 {
		workers = 1
	}
	if queue < 0 {
		queue = 0
	}
	if log == nil {
		log = logrus.StandardLogger()
	}

	p := &Pool{
		tasks:   make(chan task, queue),
		workers: workers,
		log:     log,
	}

	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.worker(i)
	}

	return p
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()
	for t := range p.tasks {
		// the caller already gave up on this one
		if t.ctx.Err() != nil {
			t.run(t.ctx)
			continue
		}
		p.inFlight.Add(1)
		t.run(t.ctx)
		p.inFlight.Add(-1)
	}
	p.log.WithField("worker", id).Debug("Worker stopped")
}

// submit hands run to a worker without blocking. With zero queue capacity a
// task is only accepted when a worker is idle and waiting.
func (p *Pool) submit(ctx context.Context, run func(ctx context.Context)) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrClosed
	}

	select {
	case p.tasks <- task{ctx: ctx, run: run}:
		return nil
	default:
		p.shed.Add(1)
		return ErrOverloaded
	}
}

// Do runs fn on the pool and waits for its result. It returns ErrOverloaded
// immediately when the pool cannot take more work, and ctx.Err() if ctx ends
// before a worker finishes. A panic in fn is returned as an error.
func Do[T any](ctx context.Context, p *Pool, fn func(ctx context.Context) (T, error)) (T, error) {
	type outcome struct {
		val T
		err error
	}

	var zero T
	done := make(chan outcome, 1)

	err := p.submit(ctx, func(ctx context.Context) {
		if err := ctx.Err(); err != nil {
			done <- outcome{err: err}
			return
		}

		defer func() {
			if r := recover(); r != nil {
				p.log.WithField("panic", r).Error("Recovered panic in worker")
				done <- outcome{err: fmt.Errorf("worker panic: %v", r)}
			}
		}()

		val, err := fn(ctx)
		done <- outcome{val: val, err: err}
	})
	if err != nil {
		return zero, err
	}

	select {
	case out := <-done:
		return out.val, out.err
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

func (p *Pool) Stats() Stats {
	return Stats{
		Workers:  p.workers,
		Queue:    cap(p.tasks),
		Queued:   len(p.tasks),
		InFlight: p.inFlight.Load(),
		Shed:     p.shed.Load(),
	}
}

// Close stops accepting work, lets queued tasks drain and waits for the
// workers to exit.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.tasks)
	p.mu.Unlock()

	p.wg.Wait()
}
