package worker

import (
	"errors"
	"sync"

	"go.uber.org/zap"
)

var (
	// ErrNoWorkers is returned when a pool is created with less than one worker.
	ErrNoWorkers = errors.New("worker pool needs at least one worker")
	// ErrNegativeQueueSize is returned for a negative queue capacity.
	ErrNegativeQueueSize = errors.New("worker pool queue size is negative")
)

// Pool runs submitted jobs on a fixed set of goroutines. When the queue is
// full a job gets an overflow goroutine instead of blocking the submitter,
// so jobs may submit further jobs.
type Pool struct {
	numWorkers int
	jobs       chan func()
	wg         sync.WaitGroup

	mu     sync.RWMutex
	closed bool

	logger *zap.Logger
}

// NewPool starts numWorkers goroutines draining a queue of queueSize jobs.
func NewPool(numWorkers, queueSize int, logger *zap.Logger) (*Pool, error) {
	if numWorkers <= 0 {
		return nil, ErrNoWorkers
	}
	if queueSize < 0 {
		return nil, ErrNegativeQueueSize
	}

	p := &Pool{
		numWorkers: numWorkers,
		jobs:       make(chan func(), queueSize),
		logger:     logger,
	}
	p.start()
	return p, nil
}

func (p *Pool) start() {
	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for job := range p.jobs {
				p.run(job)
			}
		}()
	}
}

// run executes one job, logging instead of crashing on panic.
func (p *Pool) run(job func()) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("Worker job panicked", zap.Any("panic", r))
		}
	}()
	job()
}

// Submit queues job. After Shutdown jobs still run, each on its own
// goroutine, so pending loads always settle.
func (p *Pool) Submit(job func()) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		p.logger.Warn("Job submitted to closed worker pool")
		go p.run(job)
		return
	}

	select {
	case p.jobs <- job:
	default:
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			p.run(job)
		}()
	}
}

// Workers returns the number of worker goroutines.
func (p *Pool) Workers() int {
	return p.numWorkers
}

// Shutdown stops accepting queued work and waits for running jobs.
func (p *Pool) Shutdown() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.jobs)
	p.mu.Unlock()

	p.wg.Wait()
	return nil
}
