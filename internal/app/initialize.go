package app

import (
	"context"
	"fmt"
	"time"

	"github.com/aatumaykin/dmbot/internal/cleanup"
	"github.com/aatumaykin/dmbot/internal/commands"
	"github.com/aatumaykin/dmbot/internal/delivery"
	"github.com/aatumaykin/dmbot/internal/logger"
	"github.com/aatumaykin/dmbot/internal/metrics"
	"github.com/aatumaykin/dmbot/internal/retry"
	"github.com/aatumaykin/dmbot/internal/scheduler"
	"github.com/aatumaykin/dmbot/internal/store"
	"github.com/aatumaykin/dmbot/internal/workers"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Initialize initializes all application components.
// It opens the store, starts the worker pool and the chat transport, and
// arms every pending action. Components started before a failure are left
// for Shutdown to release.
func (a *App) Initialize(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.started {
		return fmt.Errorf("application already started")
	}

	// 1. Create application context
	a.ctx, a.cancel = context.WithCancel(ctx)
	a.started = true

	loc, err := a.config.Scheduler.Location()
	if err != nil {
		return fmt.Errorf("invalid scheduler timezone: %w", err)
	}

	// 2. Open storage
	st, err := store.Open(a.ctx, store.Options{
		Path:          a.config.Storage.Path,
		BusyTimeoutMS: a.config.Storage.BusyTimeoutMS,
		Location:      loc,
	}, a.logger)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	a.store = st

	// 3. Metrics
	a.registry = prometheus.NewRegistry()
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	a.metrics = metrics.New(a.config.Metrics.Namespace, a.registry)
	if a.config.Metrics.Enabled {
		a.metricsServer = metrics.NewServer(a.config.Metrics.Listen, a.registry, a.store.Ping, a.logger)
		if err := a.metricsServer.Start(); err != nil {
			a.metricsServer = nil
			return fmt.Errorf("failed to start metrics server: %w", err)
		}
	}

	// 4. Worker pool
	a.workerPool = workers.NewPool(a.config.Workers.PoolSize, a.config.Workers.QueueSize, a.logger)
	a.workerPool.Start()
	pool := a.workerPool
	if err := a.metrics.RegisterPool(func() metrics.PoolStats {
		m := pool.Metrics()
		return metrics.PoolStats{
			Submitted: m.TasksSubmitted,
			Completed: m.TasksCompleted,
			Failed:    m.TasksFailed,
			Busy:      m.Busy,
			Queued:    m.Queued,
		}
	}); err != nil {
		return fmt.Errorf("failed to register pool metrics: %w", err)
	}

	// 5. Command surface and chat transport
	a.service = commands.NewService(a.store, nil, loc, a.logger)
	a.commandHandler = commands.NewHandler(a.service, a.logger, a.metrics)
	a.transport = a.newTransport(a.config.Telegram, a.logger, a.commandHandler, a.service)

	// 6. Delivery through the pool
	a.executor = delivery.NewExecutor(a.transport, a.store, delivery.Config{
		RatePerSec:  a.config.Delivery.RatePerSec,
		Burst:       a.config.Delivery.Burst,
		SendTimeout: a.config.Telegram.SendTimeout(),
		Retry: retry.Config{
			MaxAttempts:    a.config.Delivery.MaxAttempts,
			InitialBackoff: time.Duration(a.config.Delivery.InitialBackoffMS) * time.Millisecond,
			MaxBackoff:     time.Duration(a.config.Delivery.MaxBackoffMS) * time.Millisecond,
		},
	}, a.logger, a.metrics)

	// 7. Scheduling engine
	a.engine = scheduler.New(a.store, delivery.NewPooled(a.workerPool, a.executor), scheduler.Config{
		Location:     loc,
		PollInterval: a.config.Scheduler.PollInterval(),
	}, a.logger, a.metrics)
	a.service.SetScheduler(a.engine)

	// 8. Configured admins
	if err := a.registerAdmins(a.ctx); err != nil {
		return err
	}

	// 9. Start the transport before arming so due actions can be delivered
	if err := a.transport.Start(a.ctx); err != nil {
		return fmt.Errorf("failed to start telegram connector: %w", err)
	}

	if err := a.engine.Start(a.ctx); err != nil {
		return fmt.Errorf("failed to load scheduled actions: %w", err)
	}

	// 10. Cleanup
	a.cleanupScheduler = cleanup.NewScheduler(
		cleanup.NewRunner(a.store, a.config.Cleanup.Retention(), a.logger, a.metrics),
		cleanup.Config{
			Enabled:   a.config.Cleanup.Enabled,
			Schedule:  a.config.Cleanup.Schedule,
			Retention: a.config.Cleanup.Retention(),
		},
		a.workerPool,
		a.logger,
	)
	if err := a.cleanupScheduler.Start(a.ctx); err != nil {
		return fmt.Errorf("failed to start cleanup scheduler: %w", err)
	}

	a.logger.Info("application initialized",
		logger.Field{Key: "timezone", Value: loc.String()},
		logger.Field{Key: "armed", Value: len(a.engine.Armed())},
		logger.Field{Key: "workers", Value: a.workerPool.WorkerCount()})
	return nil
}

func (a *App) registerAdmins(ctx context.Context) error {
	for _, id := range a.config.Telegram.Admins {
		if err := a.store.RegisterUser(ctx, store.User{ID: id, IsAdmin: true}); err != nil {
			return fmt.Errorf("failed to register admin %d: %w", id, err)
		}
	}
	return nil
}
