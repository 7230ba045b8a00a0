package cleanup

import (
	"context"
	"fmt"

	"github.com/aatumaykin/dmbot/internal/logger"
	"github.com/aatumaykin/dmbot/internal/workers"
	"github.com/robfig/cron/v3"
)

// Submitter queues background work.
type Submitter interface {
	Submit(ctx context.Context, task workers.Task) error
}

// Scheduler runs the Runner on a cron schedule. Runs are handed to the
// worker pool so maintenance shares the pool's concurrency bound.
type Scheduler struct {
	runner *Runner
	config Config
	pool   Submitter
	logger *logger.Logger
	cron   *cron.Cron
}

// NewScheduler creates a new cleanup scheduler.
func NewScheduler(runner *Runner, config Config, pool Submitter, log *logger.Logger) *Scheduler {
	log = log.With(logger.Field{Key: "component", Value: "cleanup"})
	return &Scheduler{
		runner: runner,
		config: config,
		pool:   pool,
		logger: log,
		cron: cron.New(
			cron.WithLogger(cronLogger{log}),
			cron.WithChain(cron.SkipIfStillRunning(cronLogger{log})),
		),
	}
}

// Start registers the job and starts the cron loop. It does nothing when
// cleanup is disabled.
func (s *Scheduler) Start(ctx context.Context) error {
	if !s.config.Enabled {
		s.logger.Info("cleanup scheduler disabled")
		return nil
	}

	_, err := s.cron.AddFunc(s.config.Schedule, func() {
		if err := s.submit(ctx); err != nil {
			s.logger.WarnCtx(ctx, "failed to queue cleanup",
				logger.Field{Key: "error", Value: err.Error()})
		}
	})
	if err != nil {
		return fmt.Errorf("invalid cleanup schedule %q: %w", s.config.Schedule, err)
	}

	s.cron.Start()
	s.logger.Info("cleanup scheduler started",
		logger.Field{Key: "schedule", Value: s.config.Schedule},
		logger.Field{Key: "retention", Value: s.config.Retention.String()})

	return nil
}

// Stop stops the cron loop and waits for a job that is being queued.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("cleanup scheduler stopped")
}

// Trigger runs cleanup immediately, outside the schedule.
func (s *Scheduler) Trigger(ctx context.Context) (Stats, error) {
	s.logger.Info("manual cleanup triggered")
	return s.runner.Run(ctx)
}

func (s *Scheduler) submit(ctx context.Context) error {
	return s.pool.Submit(ctx, workers.Task{
		ID:   "cleanup",
		Type: workers.TypeMaintenance,
		Exec: func(ctx context.Context) (string, error) {
			stats, err := s.runner.Run(ctx)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("purged %d actions, %d log rows", stats.ActionsPurged, stats.LogsPurged), nil
		},
	})
}

// cronLogger adapts logger.Logger to cron.Logger.
type cronLogger struct {
	log *logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug("cron: "+msg, pairs(keysAndValues)...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error("cron: "+msg, err, pairs(keysAndValues)...)
}

func pairs(kv []any) []logger.Field {
	fields := make([]logger.Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		fields = append(fields, logger.Field{Key: fmt.Sprint(kv[i]), Value: kv[i+1]})
	}
	return fields
}
