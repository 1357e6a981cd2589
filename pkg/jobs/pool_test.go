package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolProcessesAllJobs(t *testing.T) {
	pool := NewPool(PoolConfig{Workers: 3})

	batch := make([]Job, 10)
	for i := range batch {
		batch[i] = Job{ID: fmt.Sprintf("job-%d", i), Payload: i}
	}

	var mu sync.Mutex
	seen := map[string]int{}
	executed := pool.Process(context.Background(), batch, func(_ context.Context, job Job) (interface{}, error) {
		return job.Payload.(int) * 2, nil
	}, func(res Result) {
		mu.Lock()
		defer mu.Unlock()
		seen[res.Job.ID] = res.Value.(int)
	})

	require.Equal(t, 10, executed)
	require.Len(t, seen, 10)
	assert.Equal(t, 8, seen["job-4"])
}

func TestPoolReportsHandlerErrors(t *testing.T) {
	pool := NewPool(PoolConfig{Workers: 2})
	boom := errors.New("boom")

	var failures int
	executed := pool.Process(context.Background(), []Job{{ID: "a"}, {ID: "b"}}, func(_ context.Context, job Job) (interface{}, error) {
		if job.ID == "b" {
			return nil, boom
		}
		return "ok", nil
	}, func(res Result) {
		if res.Err != nil {
			failures++
		}
	})

	assert.Equal(t, 2, executed)
	assert.Equal(t, 1, failures)
}

func TestPoolStopsDispatchingOnCancel(t *testing.T) {
	pool := NewPool(PoolConfig{Workers: 1})
	ctx, cancel := context.WithCancel(context.Background())

	batch := make([]Job, 50)
	for i := range batch {
		batch[i] = Job{ID: fmt.Sprintf("job-%d", i)}
	}

	executed := pool.Process(ctx, batch, func(_ context.Context, job Job) (interface{}, error) {
		if job.ID == "job-2" {
			cancel()
		}
		return nil, nil
	}, nil)

	assert.Less(t, executed, len(batch))
	assert.GreaterOrEqual(t, executed, 3)
}

func TestPoolDefaultsToSingleWorker(t *testing.T) {
	pool := NewPool(PoolConfig{})
	assert.Equal(t, 1, pool.Workers())

	executed := pool.Process(context.Background(), nil, func(context.Context, Job) (interface{}, error) {
		return nil, nil
	}, nil)
	assert.Zero(t, executed)
}
