package workers

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aatumaykin/dmbot/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPool(t *testing.T, workers, queue int) *WorkerPool {
	t.Helper()
	log, err := logger.New(logger.Config{Level: "debug", Format: "text", Output: "discard"})
	require.NoError(t, err)

	pool := NewPool(workers, queue, log)
	pool.Start()
	t.Cleanup(pool.Stop)
	return pool
}

func TestNewPool_Defaults(t *testing.T) {
	pool := NewPool(0, -1, logger.Nop())
	assert.Equal(t, DefaultPoolSize, pool.WorkerCount())
	assert.Equal(t, 0, pool.QueueSize())
	pool.Stop()
}

func TestPool_Run(t *testing.T) {
	pool := newTestPool(t, 2, 4)

	res := pool.Run(context.Background(), Task{
		ID:   "delivery-1",
		Type: TypeDelivery,
		Exec: func(ctx context.Context) (string, error) {
			return "sent", nil
		},
	})

	require.NoError(t, res.Error)
	assert.Equal(t, "delivery-1", res.TaskID)
	assert.Equal(t, "sent", res.Output)

	m := pool.Metrics()
	assert.Equal(t, uint64(1), m.TasksSubmitted)
	assert.Equal(t, uint64(1), m.TasksCompleted)
	assert.Equal(t, uint64(0), m.TasksFailed)
}

func TestPool_RunReturnsTaskError(t *testing.T) {
	pool := newTestPool(t, 1, 1)
	want := errors.New("chat not found")

	res := pool.Run(context.Background(), Task{
		ID:   "delivery-2",
		Type: TypeDelivery,
		Exec: func(ctx context.Context) (string, error) { return "", want },
	})

	assert.ErrorIs(t, res.Error, want)
	assert.Equal(t, uint64(1), pool.Metrics().TasksFailed)
}

func TestPool_RunRecoversPanic(t *testing.T) {
	pool := newTestPool(t, 1, 1)

	res := pool.Run(context.Background(), Task{
		ID:   "panics",
		Type: TypeMaintenance,
		Exec: func(ctx context.Context) (string, error) { panic("boom") },
	})

	require.Error(t, res.Error)
	assert.Contains(t, res.Error.Error(), "panic during task execution")

	// The worker survives.
	res = pool.Run(context.Background(), Task{
		ID:   "after-panic",
		Exec: func(ctx context.Context) (string, error) { return "ok", nil },
	})
	require.NoError(t, res.Error)
}

func TestPool_RunWithoutExecutor(t *testing.T) {
	pool := newTestPool(t, 1, 1)
	res := pool.Run(context.Background(), Task{ID: "empty"})
	assert.Error(t, res.Error)
}

func TestPool_RunContextCancelled(t *testing.T) {
	pool := newTestPool(t, 1, 1)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	res := pool.Run(ctx, Task{
		ID: "slow",
		Exec: func(ctx context.Context) (string, error) {
			<-ctx.Done()
			return "", ctx.Err()
		},
	})

	assert.ErrorIs(t, res.Error, context.DeadlineExceeded)
}

func TestPool_BoundsConcurrency(t *testing.T) {
	pool := newTestPool(t, 2, 10)

	var running, peak atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res := pool.Run(context.Background(), Task{
				ID: fmt.Sprintf("task-%d", i),
				Exec: func(ctx context.Context) (string, error) {
					n := running.Add(1)
					for {
						p := peak.Load()
						if n <= p || peak.CompareAndSwap(p, n) {
							break
						}
					}
					time.Sleep(10 * time.Millisecond)
					running.Add(-1)
					return "", nil
				},
			})
			assert.NoError(t, res.Error)
		}(i)
	}
	wg.Wait()

	assert.LessOrEqual(t, peak.Load(), int32(2))
	assert.Equal(t, uint64(8), pool.Metrics().TasksCompleted)
}

func TestPool_Submit(t *testing.T) {
	pool := newTestPool(t, 1, 1)

	done := make(chan struct{})
	err := pool.Submit(context.Background(), Task{
		ID:   "purge",
		Type: TypeMaintenance,
		Exec: func(ctx context.Context) (string, error) {
			close(done)
			return "", nil
		},
	})
	require.NoError(t, err)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("submitted task did not run")
	}
}

func TestPool_StopCancelsRunningTasks(t *testing.T) {
	log := logger.Nop()
	pool := NewPool(1, 1, log)
	pool.Start()

	started := make(chan struct{})
	result := make(chan Result, 1)
	go func() {
		result <- pool.Run(context.Background(), Task{
			ID: "long",
			Exec: func(ctx context.Context) (string, error) {
				close(started)
				<-ctx.Done()
				return "", ctx.Err()
			},
		})
	}()

	<-started
	pool.Stop()

	select {
	case res := <-result:
		assert.Error(t, res.Error)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after Stop")
	}
}

func TestPool_SubmitAfterStop(t *testing.T) {
	pool := NewPool(1, 1, logger.Nop())
	pool.Start()
	pool.Stop()
	pool.Stop()

	err := pool.Submit(context.Background(), Task{ID: "late"})
	assert.ErrorIs(t, err, ErrPoolStopped)

	res := pool.Run(context.Background(), Task{ID: "late"})
	assert.ErrorIs(t, res.Error, ErrPoolStopped)
}

func TestPool_MetricsTrackBusyWorkers(t *testing.T) {
	pool := newTestPool(t, 1, 1)

	started := make(chan struct{})
	release := make(chan struct{})
	require.NoError(t, pool.Submit(context.Background(), Task{
		ID: "blocking",
		Exec: func(ctx context.Context) (string, error) {
			close(started)
			<-release
			return "", nil
		},
	}))

	<-started
	m := pool.Metrics()
	assert.Equal(t, 1, m.Busy)
	assert.Equal(t, uint64(1), m.TasksSubmitted)

	close(release)
	require.Eventually(t, func() bool {
		m := pool.Metrics()
		return m.Busy == 0 && m.TasksCompleted == 1
	}, time.Second, 5*time.Millisecond)
	assert.Positive(t, pool.Metrics().TotalDuration)
}
