package workers

import (
	"context"
	"sync"

	"github.com/aatumaykin/dmbot/internal/logger"
)

// WorkerPool manages a pool of goroutine workers for concurrent task execution.
type WorkerPool struct {
	taskQueue chan Task
	workers   int
	wg        sync.WaitGroup
	ctx       context.Context
	cancel    context.CancelFunc
	logger    *logger.Logger
	counters  counters

	stateMu sync.RWMutex
	started bool
	stopped bool
}

// NewPool creates a new worker pool with the specified configuration.
func NewPool(workers int, bufferSize int, log *logger.Logger) *WorkerPool {
	if workers <= 0 {
		workers = DefaultPoolSize
	}
	if bufferSize < 0 {
		bufferSize = DefaultQueueSize
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &WorkerPool{
		taskQueue: make(chan Task, bufferSize),
		workers:   workers,
		ctx:       ctx,
		cancel:    cancel,
		logger:    log.With(logger.Field{Key: "component", Value: "workers"}),
	}
}

// Start initializes and starts all worker goroutines.
func (p *WorkerPool) Start() {
	p.stateMu.Lock()
	defer p.stateMu.Unlock()
	if p.started || p.stopped {
		return
	}
	p.started = true

	p.logger.Info("starting worker pool",
		logger.Field{Key: "workers", Value: p.workers},
		logger.Field{Key: "buffer_size", Value: cap(p.taskQueue)})

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// Submit queues a task without waiting for its result. It blocks while the
// queue is full until ctx ends.
func (p *WorkerPool) Submit(ctx context.Context, task Task) error {
	p.stateMu.RLock()
	defer p.stateMu.RUnlock()
	if p.stopped {
		return ErrPoolStopped
	}

	p.counters.submitted.Add(1)

	p.logger.DebugCtx(ctx, "task submitted",
		logger.Field{Key: "task_id", Value: task.ID},
		logger.Field{Key: "task_type", Value: task.Type})

	select {
	case p.taskQueue <- task:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-p.ctx.Done():
		return ErrPoolStopped
	}
}

// Run submits task and waits for its result. ctx bounds both the wait for a
// free slot and the execution; task.Context, if set, is ignored in favour of
// ctx.
func (p *WorkerPool) Run(ctx context.Context, task Task) Result {
	task.Context = ctx
	task.reply = make(chan Result, 1)

	if err := p.Submit(ctx, task); err != nil {
		return Result{TaskID: task.ID, Error: err}
	}

	select {
	case res := <-task.reply:
		return res
	case <-ctx.Done():
		return Result{TaskID: task.ID, Error: ctx.Err()}
	case <-p.ctx.Done():
		return Result{TaskID: task.ID, Error: ErrPoolStopped}
	}
}

// Stop gracefully shuts down the worker pool.
// Tasks already running are given the pool context's cancellation and
// waited for; queued tasks are dropped.
func (p *WorkerPool) Stop() {
	// Cancel first so blocked submitters release the read lock.
	p.cancel()

	p.stateMu.Lock()
	if p.stopped {
		p.stateMu.Unlock()
		return
	}
	p.stopped = true
	p.stateMu.Unlock()

	p.wg.Wait()

	metrics := p.Metrics()
	p.logger.Info("worker pool stopped",
		logger.Field{Key: "tasks_submitted", Value: metrics.TasksSubmitted},
		logger.Field{Key: "tasks_completed", Value: metrics.TasksCompleted},
		logger.Field{Key: "tasks_failed", Value: metrics.TasksFailed},
		logger.Field{Key: "dropped", Value: len(p.taskQueue)})
}

// WorkerCount returns the number of active workers.
func (p *WorkerPool) WorkerCount() int {
	return p.workers
}

// QueueSize returns the current number of tasks waiting in the queue.
func (p *WorkerPool) QueueSize() int {
	return len(p.taskQueue)
}
