package jobs

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Job represents one unit of batch work.
type Job struct {
	ID       string
	Payload  interface{}
	Enqueued time.Time
}

// Result pairs a job with its outcome. Value is whatever the handler
// produced; Err is non-nil when the handler failed.
type Result struct {
	Job   Job
	Value interface{}
	Err   error
}

// Handler processes a single job and returns an immutable result value.
type Handler func(context.Context, Job) (interface{}, error)

// PoolConfig configures batch fan-out behaviour.
type PoolConfig struct {
	Workers int
	Logger  *zap.Logger
}

// Pool fans a batch of jobs out to a fixed set of workers. Workers never
// share mutable state: each result travels over a channel to a single
// consumer invoked serially by Process.
type Pool struct {
	workers int
	logger  *zap.Logger
}

// NewPool builds a pool with the provided configuration.
func NewPool(cfg PoolConfig) *Pool {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Pool{workers: cfg.Workers, logger: cfg.Logger}
}

// Workers reports the configured concurrency.
func (p *Pool) Workers() int {
	return p.workers
}

// Process runs every job through handler and feeds each Result to consume
// from a single goroutine, in completion order. Cancellation is
// cooperative: jobs not yet started when ctx is done are never handed to
// a worker. Process returns the number of jobs actually executed.
func (p *Pool) Process(ctx context.Context, batch []Job, handler Handler, consume func(Result)) int {
	if len(batch) == 0 || handler == nil {
		return 0
	}

	pending := make(chan Job)
	results := make(chan Result, p.workers)

	var wg sync.WaitGroup
	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for job := range pending {
				value, err := handler(ctx, job)
				if err != nil {
					p.logger.Warn("job failed",
						zap.Int("worker", workerID),
						zap.String("job_id", job.ID),
						zap.Error(err))
				}
				results <- Result{Job: job, Value: value, Err: err}
			}
		}(i + 1)
	}

	go func() {
		defer close(pending)
		for _, job := range batch {
			if job.Enqueued.IsZero() {
				job.Enqueued = time.Now().UTC()
			}
			select {
			case <-ctx.Done():
				return
			case pending <- job:
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	executed := 0
	for result := range results {
		executed++
		if consume != nil {
			consume(result)
		}
	}
	return executed
}
