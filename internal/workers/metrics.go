package workers

import (
	"sync/atomic"
	"time"
)

// counters are updated by workers without taking the state lock.
type counters struct {
	submitted atomic.Uint64
	completed atomic.Uint64
	failed    atomic.Uint64
	busy      atomic.Int64
	nanos     atomic.Int64
}

// Metrics returns a snapshot of the pool counters.
func (p *WorkerPool) Metrics() PoolMetrics {
	return PoolMetrics{
		TasksSubmitted: p.counters.submitted.Load(),
		TasksCompleted: p.counters.completed.Load(),
		TasksFailed:    p.counters.failed.Load(),
		Busy:           int(p.counters.busy.Load()),
		Queued:         len(p.taskQueue),
		TotalDuration:  time.Duration(p.counters.nanos.Load()),
	}
}

// begin marks one worker busy; the returned func records the outcome.
func (p *WorkerPool) begin() func(d time.Duration, failed bool) {
	p.counters.busy.Add(1)
	return func(d time.Duration, failed bool) {
		p.counters.busy.Add(-1)
		p.counters.nanos.Add(int64(d))
		if failed {
			p.counters.failed.Add(1)
		} else {
			p.counters.completed.Add(1)
		}
	}
}
