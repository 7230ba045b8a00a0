package metrics

import "github.com/prometheus/client_golang/prometheus"

// PoolStats is a point-in-time view of the worker pool.
type PoolStats struct {
	Submitted uint64
	Completed uint64
	Failed    uint64
	Busy      int
	Queued    int
}

// RegisterPool exports the worker pool counters. stats is read on every
// scrape.
func (m *Metrics) RegisterPool(stats func() PoolStats) error {
	if m == nil {
		return nil
	}

	counter := func(name, help string, v func(PoolStats) uint64) prometheus.Collector {
		return prometheus.NewCounterFunc(
			prometheus.CounterOpts{Namespace: m.namespace, Subsystem: "pool", Name: name, Help: help},
			func() float64 { return float64(v(stats())) },
		)
	}
	gauge := func(name, help string, v func(PoolStats) int) prometheus.Collector {
		return prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{Namespace: m.namespace, Subsystem: "pool", Name: name, Help: help},
			func() float64 { return float64(v(stats())) },
		)
	}

	for _, c := range []prometheus.Collector{
		counter("tasks_submitted_total", "Tasks submitted to the worker pool",
			func(s PoolStats) uint64 { return s.Submitted }),
		counter("tasks_completed_total", "Tasks that finished without error",
			func(s PoolStats) uint64 { return s.Completed }),
		counter("tasks_failed_total", "Tasks that returned an error or panicked",
			func(s PoolStats) uint64 { return s.Failed }),
		gauge("busy_workers", "Workers running a task",
			func(s PoolStats) int { return s.Busy }),
		gauge("queued_tasks", "Tasks waiting for a free worker",
			func(s PoolStats) int { return s.Queued }),
	} {
		if err := m.registry.Register(c); err != nil {
			return err
		}
	}
	return nil
}
