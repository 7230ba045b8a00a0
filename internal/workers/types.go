// Package workers provides a bounded worker pool. Deliveries and
// maintenance jobs run on it so a burst of simultaneous firings cannot open
// an unbounded number of outbound requests.
package workers

import (
	"context"
	"errors"
	"time"
)

// Task types.
const (
	TypeDelivery    = "delivery"
	TypeMaintenance = "maintenance"
)

// ErrPoolStopped is returned when a task is submitted after Stop.
var ErrPoolStopped = errors.New("worker pool stopped")

// Task represents a unit of work to be executed by a worker.
type Task struct {
	ID      string          // Unique task identifier
	Type    string          // Task type: "delivery" or "maintenance"
	Context context.Context // Task-specific context for cancellation/timeout
	Exec    TaskExecutor    // Work to run

	reply chan Result
}

// Result represents the outcome of a task execution.
type Result struct {
	TaskID   string        // ID of the executed task
	Error    error         // Error if execution failed
	Output   string        // Task output
	Duration time.Duration // Execution duration
}

// PoolMetrics is a snapshot of the pool counters.
type PoolMetrics struct {
	TasksSubmitted uint64
	TasksCompleted uint64
	TasksFailed    uint64
	Busy           int // Tasks running right now
	Queued         int // Tasks waiting for a worker
	TotalDuration  time.Duration
}

// TaskExecutor runs the work of one task.
type TaskExecutor func(context.Context) (string, error)

// Constants for worker pool configuration
const (
	DefaultPoolSize  = 4
	DefaultQueueSize = 64
)
