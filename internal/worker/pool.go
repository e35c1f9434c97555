package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"finbot/internal/log"
	"finbot/internal/media"
)

var (
	ErrQueueFull   = errors.New("media queue is full")
	ErrPoolStopped = errors.New("media pool is stopped")
)

// ProcessFunc handles one job.
type ProcessFunc func(ctx context.Context, job media.Job) error

// Pool is the in-process media dispatcher used when no broker is configured.
// Dispatch never blocks: a full queue is reported as ErrQueueFull.
type Pool struct {
	process ProcessFunc
	workers int
	logger  *log.Logger

	mu      sync.Mutex
	jobs    chan media.Job
	stopped bool
	group   *errgroup.Group
}

func NewPool(workers, queueSize int, process ProcessFunc, logger *log.Logger) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Pool{
		process: process,
		workers: workers,
		logger:  logger.WithComponent(log.ComponentWorker),
		jobs:    make(chan media.Job, queueSize),
	}
}

// Start launches the workers. Jobs see the values of ctx but not its
// cancellation: once accepted, a job runs to completion and Stop drains the
// queue. Callers bound the drain with their shutdown timeout.
func (p *Pool) Start(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.group != nil {
		return
	}

	p.group = &errgroup.Group{}
	for i := 0; i < p.workers; i++ {
		p.group.Go(func() error {
			for job := range p.jobs {
				p.run(ctx, job)
			}
			return nil
		})
	}
	p.logger.InfoContext(ctx, "Media pool started", "workers", p.workers, "queue_size", cap(p.jobs))
}

func (p *Pool) Dispatch(_ context.Context, job media.Job) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return ErrPoolStopped
	}
	select {
	case p.jobs <- job:
		return nil
	default:
		return ErrQueueFull
	}
}

// Stop refuses new jobs and waits until queued ones are processed.
func (p *Pool) Stop() error {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return nil
	}
	p.stopped = true
	close(p.jobs)
	g := p.group
	p.mu.Unlock()

	if g == nil {
		return nil
	}
	return g.Wait()
}

func (p *Pool) run(ctx context.Context, job media.Job) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.ErrorContext(ctx, "Media job panicked", log.FieldJobID, job.ID, "panic", fmt.Sprint(r))
		}
	}()
	if err := p.process(ctx, job); err != nil {
		p.logger.ErrorContext(ctx, "Media job failed", log.FieldJobID, job.ID, log.FieldError, err)
	}
}
