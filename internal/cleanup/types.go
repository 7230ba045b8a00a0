// Package cleanup removes finished actions and old delivery-log rows on a
// cron schedule.
package cleanup

import (
	"context"
	"time"
)

// Stats holds statistics about one cleanup run.
type Stats struct {
	ActionsPurged int64         // Retired or cancelled actions deleted
	LogsPurged    int64         // Delivery-log rows deleted
	Cutoff        time.Time     // Rows that ended before this instant were removed
	Duration      time.Duration // Time taken for cleanup
}

// Config holds configuration for cleanup operations.
type Config struct {
	Enabled   bool
	Schedule  string        // Standard cron spec or descriptor such as "@daily"
	Retention time.Duration // How long finished rows are kept
}

// Purger deletes rows that ended before cutoff.
type Purger interface {
	PurgeInactive(ctx context.Context, cutoff time.Time) (int64, error)
	PurgeLogs(ctx context.Context, cutoff time.Time) (int64, error)
}
