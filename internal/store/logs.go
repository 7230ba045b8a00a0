package store

import (
	"context"
	"fmt"
	"time"
)

// AppendLog records one delivery-log entry.
func (s *SQLite) AppendLog(ctx context.Context, e LogEntry) error {
	if e.ID == "" {
		return fmt.Errorf("log entry id is required")
	}
	if e.Data == "" {
		e.Data = "{}"
	}
	created := e.CreatedOn
	if created.IsZero() {
		created = s.now()
	}

	_, err := s.db.ExecContext(ctx, `INSERT INTO delivery_log (id, action_id, level, message, data, created_on)
		VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID, e.ActionID, e.Level, e.Message, e.Data, unix(created))
	if err != nil {
		return fmt.Errorf("failed to append delivery log for action %d: %w", e.ActionID, err)
	}
	return nil
}

// ListLogs returns the newest entries for actionID, newest first.
func (s *SQLite) ListLogs(ctx context.Context, actionID int64, limit int) ([]LogEntry, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `SELECT id, action_id, level, message, data, created_on
		FROM delivery_log WHERE action_id = ?
		ORDER BY created_on DESC, rowid DESC LIMIT ?`, actionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list delivery log for action %d: %w", actionID, err)
	}
	defer rows.Close()

	var out []LogEntry
	for rows.Next() {
		var (
			e       LogEntry
			created int64
		)
		if err := rows.Scan(&e.ID, &e.ActionID, &e.Level, &e.Message, &e.Data, &created); err != nil {
			return nil, fmt.Errorf("failed to scan delivery log: %w", err)
		}
		e.CreatedOn = fromUnix(created)
		out = append(out, e)
	}
	return out, rows.Err()
}

// PurgeLogs deletes delivery-log entries created before cutoff.
func (s *SQLite) PurgeLogs(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM delivery_log WHERE created_on < ?`, unix(cutoff))
	if err != nil {
		return 0, fmt.Errorf("failed to purge delivery log: %w", err)
	}
	return res.RowsAffected()
}
