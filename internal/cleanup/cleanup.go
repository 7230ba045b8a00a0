package cleanup

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aatumaykin/dmbot/internal/logger"
	"github.com/aatumaykin/dmbot/internal/metrics"
)

// Runner performs cleanup runs.
type Runner struct {
	purger    Purger
	retention time.Duration
	now       func() time.Time
	logger    *logger.Logger
	metrics   *metrics.Metrics
}

// NewRunner creates a new cleanup runner. m may be nil.
func NewRunner(purger Purger, retention time.Duration, log *logger.Logger, m *metrics.Metrics) *Runner {
	return &Runner{
		purger:    purger,
		retention: retention,
		now:       time.Now,
		logger:    log.With(logger.Field{Key: "component", Value: "cleanup"}),
		metrics:   m,
	}
}

// Run deletes every retired or cancelled action and every delivery-log row
// older than the retention window. Both purges are attempted even when the
// first one fails.
func (r *Runner) Run(ctx context.Context) (Stats, error) {
	if r.retention <= 0 {
		return Stats{}, fmt.Errorf("cleanup retention must be positive, got %s", r.retention)
	}

	start := r.now()
	stats := Stats{Cutoff: start.Add(-r.retention)}

	var errs []error

	n, err := r.purger.PurgeInactive(ctx, stats.Cutoff)
	if err != nil {
		errs = append(errs, err)
	} else {
		stats.ActionsPurged = n
		r.metrics.RecordPurged("actions", n)
	}

	n, err = r.purger.PurgeLogs(ctx, stats.Cutoff)
	if err != nil {
		errs = append(errs, err)
	} else {
		stats.LogsPurged = n
		r.metrics.RecordPurged("delivery_log", n)
	}

	stats.Duration = time.Since(start)

	if err := errors.Join(errs...); err != nil {
		r.logger.ErrorCtx(ctx, "cleanup failed", err)
		return stats, err
	}

	if stats.ActionsPurged > 0 || stats.LogsPurged > 0 {
		r.logger.InfoCtx(ctx, fmt.Sprintf("cleanup completed: purged %d actions and %d log rows",
			stats.ActionsPurged, stats.LogsPurged),
			logger.Field{Key: "actions_purged", Value: stats.ActionsPurged},
			logger.Field{Key: "logs_purged", Value: stats.LogsPurged},
			logger.Field{Key: "cutoff", Value: stats.Cutoff},
			logger.Field{Key: "duration_ms", Value: stats.Duration.Milliseconds()})
	} else {
		r.logger.DebugCtx(ctx, "cleanup completed: nothing to purge")
	}

	return stats, nil
}
