// Package pool runs connection jobs on a fixed set of workers and
// throttles entry with an admission counter: once admitted, a job runs
// to completion; only entry is refused under load.
package pool

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
)

// Job is a deferred unit of work, consumed exactly once by exactly
// one worker.
type Job func()

var (
	// ErrCapacityExceeded is returned by Execute when the admitted
	// count has reached the configured maximum. The job is never
	// enqueued in that case.
	ErrCapacityExceeded = errors.New("maximum concurrent connections reached")

	ErrPoolClosed = errors.New("pool is closed")
)

// Pool is a fixed-size worker pool. Jobs are queued FIFO; the queue is
// sized to the admission limit, so an admitted Execute never blocks.
type Pool struct {
	jobs   chan Job
	wg     sync.WaitGroup
	logger *slog.Logger

	active atomic.Int64
	max    int64

	closed    atomic.Bool
	closeOnce sync.Once
}

// New starts workerCount long-lived workers. Zero workers or a zero
// admission limit is a startup-configuration error and panics.
func New(workerCount, maxConcurrent int, logger *slog.Logger) *Pool {
	if workerCount <= 0 {
		panic("pool: worker count must be positive")
	}
	if maxConcurrent <= 0 {
		panic("pool: max concurrent connections must be positive")
	}

	p := &Pool{
		jobs:   make(chan Job, maxConcurrent),
		logger: logger,
		max:    int64(maxConcurrent),
	}

	for i := 0; i < workerCount; i++ {
		p.wg.Add(1)
		go p.work(i)
	}

	return p
}

// Execute admits and enqueues a job. Admission is a single atomic
// check-and-increment: there is no window in which a job is queued and
// then rejected. The admitted count is decremented when the job
// completes, whether it returns or panics.
func (p *Pool) Execute(job Job) error {
	if p.closed.Load() {
		return ErrPoolClosed
	}

	for {
		current := p.active.Load()
		if current >= p.max {
			return ErrCapacityExceeded
		}
		if p.active.CompareAndSwap(current, current+1) {
			break
		}
	}

	p.jobs <- job

	return nil
}

// Active reports the current admitted count.
func (p *Pool) Active() int { return int(p.active.Load()) }

// Max reports the configured admission limit.
func (p *Pool) Max() int { return int(p.max) }

// Close stops intake, lets in-flight and queued jobs finish, and joins
// the workers. It is idempotent. Execute must not race with Close.
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		p.closed.Store(true)
		close(p.jobs)
		p.wg.Wait()
	})
}

func (p *Pool) work(id int) {
	defer p.wg.Done()

	for job := range p.jobs {
		p.run(id, job)
	}
}

func (p *Pool) run(id int, job Job) {
	// The slot must be released even when the job panics.
	defer p.active.Add(-1)
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("job panicked", "worker", id, "panic", r)
		}
	}()

	job()
}
