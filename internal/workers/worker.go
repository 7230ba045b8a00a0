package workers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aatumaykin/dmbot/internal/logger"
)

// worker is the main worker goroutine that processes tasks from the queue.
func (p *WorkerPool) worker(id int) {
	defer p.wg.Done()

	p.logger.DebugCtx(p.ctx, "worker started",
		logger.Field{Key: "worker_id", Value: id})

	for {
		select {
		case task := <-p.taskQueue:
			p.processTask(id, task)

		case <-p.ctx.Done():
			p.logger.DebugCtx(p.ctx, "worker stopping",
				logger.Field{Key: "worker_id", Value: id})
			return
		}
	}
}

// processTask handles a single task execution with metrics and error handling.
func (p *WorkerPool) processTask(workerID int, task Task) {
	startTime := time.Now()
	done := p.begin()

	execCtx := p.ctx
	if task.Context != nil {
		// Either the caller or pool shutdown can cancel the task.
		var cancel context.CancelFunc
		execCtx, cancel = context.WithCancel(task.Context)
		stop := context.AfterFunc(p.ctx, cancel)
		defer stop()
		defer cancel()
	}

	result := p.execute(execCtx, task)
	result.Duration = time.Since(startTime)

	done(result.Duration, result.Error != nil)

	if task.reply != nil {
		task.reply <- result
	}

	p.logger.DebugCtx(execCtx, "task processed",
		logger.Field{Key: "worker_id", Value: workerID},
		logger.Field{Key: "task_id", Value: task.ID},
		logger.Field{Key: "task_type", Value: task.Type},
		logger.Field{Key: "duration_ms", Value: result.Duration.Milliseconds()},
		logger.Field{Key: "error", Value: result.Error})
}

// execute runs task.Exec with panic recovery.
func (p *WorkerPool) execute(ctx context.Context, task Task) (res Result) {
	res.TaskID = task.ID

	if err := ctx.Err(); err != nil {
		res.Error = err
		return res
	}
	if task.Exec == nil {
		res.Error = errors.New("task has no executor")
		return res
	}

	defer func() {
		if r := recover(); r != nil {
			res.Error = fmt.Errorf("panic during task execution: %v", r)
			p.logger.ErrorCtx(ctx, "task panic recovered", res.Error,
				logger.Field{Key: "task_id", Value: task.ID})
		}
	}()

	res.Output, res.Error = task.Exec(ctx)
	return res
}
