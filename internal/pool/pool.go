// Package pool provides the bounded worker pool that keeps blocking
// extraction calls off the request-dispatch path.
package pool

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var ErrStopped = errors.New("worker pool is stopped")

type job struct {
	id   string
	name string
	fn   func()
	done chan struct{}
}

// Pool runs submitted functions on a fixed set of workers. Each request
// occupies one worker for its full duration; excess requests queue.
type Pool struct {
	workers int
	jobs    chan job
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
	log     zerolog.Logger
}

func New(workers, queueSize int, log zerolog.Logger) *Pool {
	if workers <= 0 {
		workers = 4
	}
	if queueSize <= 0 {
		queueSize = 64
	}

	return &Pool{
		workers: workers,
		jobs:    make(chan job, queueSize),
		log:     log.With().Str("component", "pool").Logger(),
	}
}

// Start launches the worker goroutines.
func (p *Pool) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return
	}
	p.running = true

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// Stop drains the queue and waits for in-flight jobs to finish.
func (p *Pool) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	close(p.jobs)
	p.mu.Unlock()

	p.wg.Wait()
}

// Run executes fn on a pool worker and blocks until it completes or the
// caller's context is done. A context error while queued or running means
// the caller stopped waiting; the job itself may still finish. The server
// must be drained before Stop is called.
func (p *Pool) Run(ctx context.Context, name string, fn func()) error {
	p.mu.Lock()
	running := p.running
	p.mu.Unlock()
	if !running {
		return ErrStopped
	}

	j := job{
		id:   uuid.NewString(),
		name: name,
		fn:   fn,
		done: make(chan struct{}),
	}

	select {
	case p.jobs <- j:
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-j.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()

	for j := range p.jobs {
		start := time.Now()
		j.fn()
		close(j.done)
		p.log.Debug().
			Int("worker", id).
			Str("job_id", j.id).
			Str("job", j.name).
			Dur("elapsed", time.Since(start)).
			Msg("job finished")
	}
}
