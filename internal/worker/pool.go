package worker

import (
	"context"
	"errors"
	"sync"
)

// ErrBusy is returned when the job queue is full.
var ErrBusy = errors.New("stream workers busy")

// Job is one unit of streaming work.
type Job func(ctx context.Context)

type queued struct {
	ctx  context.Context
	job  Job
	done chan struct{}
}

// Pool runs streaming turns on a fixed set of workers with a bounded
// queue, so a burst of chat requests degrades to 429s instead of
// unbounded goroutines against the model API.
type Pool struct {
	jobs    chan queued
	wg      sync.WaitGroup
	stopped chan struct{}
	once    sync.Once
}

const (
	defaultWorkers   = 4
	defaultQueueSize = 16
)

func NewPool(workers, queueSize int) *Pool {
	if workers <= 0 {
		workers = defaultWorkers
	}
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	p := &Pool{
		jobs:    make(chan queued, queueSize),
		stopped: make(chan struct{}),
	}
	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.run()
	}
	return p
}

func (p *Pool) run() {
	defer p.wg.Done()
	for {
		select {
		case q := <-p.jobs:
			q.job(q.ctx)
			close(q.done)
		case <-p.stopped:
			return
		}
	}
}

// Do enqueues the job and blocks until it completes. Fails fast with
// ErrBusy when the queue is full, and with the context's error when the
// caller goes away before the job is picked up.
func (p *Pool) Do(ctx context.Context, job Job) error {
	q := queued{ctx: ctx, job: job, done: make(chan struct{})}
	select {
	case p.jobs <- q:
	default:
		return ErrBusy
	}
	select {
	case <-q.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the workers after their current jobs finish.
func (p *Pool) Close() {
	p.once.Do(func() { close(p.stopped) })
	p.wg.Wait()
}
