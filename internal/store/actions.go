package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/aatumaykin/dmbot/internal/action"
	"github.com/aatumaykin/dmbot/internal/logger"
)

// ErrAlreadyTriggered is returned by MarkTriggered for a one-shot action
// that has already fired.
var ErrAlreadyTriggered = errors.New("one-shot action already triggered")

const actionColumns = `id, created_by, action_data, action_time, action_date, repeat_action,
	trigger_count, last_triggered_at, retired_at, cancelled_at, created_on`

type rowScanner interface {
	Scan(dest ...any) error
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func scanRecord(row rowScanner) (action.Record, error) {
	var (
		r                              action.Record
		date                           sql.NullString
		repeat                         int
		lastTriggered, retired, cancel sql.NullInt64
		createdOn                      int64
	)
	if err := row.Scan(&r.ID, &r.CreatedBy, &r.Payload, &r.Time, &date, &repeat,
		&r.TriggerCount, &lastTriggered, &retired, &cancel, &createdOn); err != nil {
		return action.Record{}, err
	}
	if date.Valid {
		d := date.String
		r.Date = &d
	}
	r.Repeat = repeat != 0
	r.LastTriggeredAt = nullTime(lastTriggered)
	r.RetiredAt = nullTime(retired)
	r.CancelledAt = nullTime(cancel)
	r.CreatedOn = fromUnix(createdOn)
	return r, nil
}

func (s *SQLite) queryRecords(ctx context.Context, query string, args ...any) ([]action.Record, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []action.Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ListPending returns every action that may still fire: all repeating
// actions and the one-shots that have not fired, excluding retired and
// cancelled rows.
func (s *SQLite) ListPending(ctx context.Context) ([]action.Record, error) {
	records, err := s.queryRecords(ctx, `SELECT `+actionColumns+` FROM actions
		WHERE retired_at IS NULL AND cancelled_at IS NULL
		  AND (repeat_action = 1 OR trigger_count = 0)
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending actions: %w", err)
	}
	return records, nil
}

// ListByCreator returns the pending actions created by userID.
func (s *SQLite) ListByCreator(ctx context.Context, userID int64) ([]action.Record, error) {
	records, err := s.queryRecords(ctx, `SELECT `+actionColumns+` FROM actions
		WHERE created_by = ? AND retired_at IS NULL AND cancelled_at IS NULL
		  AND (repeat_action = 1 OR trigger_count = 0)
		ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list actions for user %d: %w", userID, err)
	}
	return records, nil
}

// ListAll returns every action row, optionally including retired and
// cancelled ones.
func (s *SQLite) ListAll(ctx context.Context, includeInactive bool) ([]action.Record, error) {
	query := `SELECT ` + actionColumns + ` FROM actions ORDER BY id`
	if !includeInactive {
		query = `SELECT ` + actionColumns + ` FROM actions
			WHERE retired_at IS NULL AND cancelled_at IS NULL
			  AND (repeat_action = 1 OR trigger_count = 0)
			ORDER BY id`
	}
	records, err := s.queryRecords(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list actions: %w", err)
	}
	return records, nil
}

// Get returns one action row regardless of its state.
func (s *SQLite) Get(ctx context.Context, id int64) (action.Record, error) {
	r, err := scanRecord(s.db.QueryRowContext(ctx,
		`SELECT `+actionColumns+` FROM actions WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return action.Record{}, ErrNotFound
	}
	if err != nil {
		return action.Record{}, fmt.Errorf("failed to get action %d: %w", id, err)
	}
	return r, nil
}

// Create validates draft and persists it. Format errors from the action
// package are returned unchanged; creation rejections are
// *action.ValidationError. Nothing is written when an error is returned.
func (s *SQLite) Create(ctx context.Context, draft action.Draft) (int64, error) {
	a, err := action.FromDraft(draft)
	if err != nil {
		return 0, err
	}

	now := s.now()
	if err := action.Validate(a, now, s.loc); err != nil {
		return 0, err
	}

	a.CreatedOn = now
	rec, err := a.ToRecord()
	if err != nil {
		return 0, fmt.Errorf("failed to encode action: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	creator, err := getUser(ctx, tx, a.CreatedBy)
	if errors.Is(err, ErrNotFound) {
		return 0, &action.ValidationError{Field: "creator", Reason: fmt.Sprintf("user %d is not registered", a.CreatedBy)}
	}
	if err != nil {
		return 0, err
	}
	if creator.IsBanned {
		return 0, &action.ValidationError{Field: "creator", Reason: fmt.Sprintf("user %d is banned", a.CreatedBy)}
	}

	if _, err := getUser(ctx, tx, a.Target); err != nil {
		if errors.Is(err, ErrNotFound) {
			return 0, &action.ValidationError{Field: "target", Reason: fmt.Sprintf("user %d is not registered", a.Target)}
		}
		return 0, err
	}

	var date any
	if rec.Date != nil {
		date = *rec.Date
	}

	res, err := tx.ExecContext(ctx, `INSERT INTO actions
		(created_by, action_data, action_time, action_date, repeat_action, trigger_count, created_on)
		VALUES (?, ?, ?, ?, ?, 0, ?)`,
		rec.CreatedBy, rec.Payload, rec.Time, date, boolInt(rec.Repeat), unix(rec.CreatedOn))
	if err != nil {
		return 0, fmt.Errorf("failed to insert action: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read action id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit action: %w", err)
	}

	s.logger.Info("action created",
		logger.Field{Key: "action_id", Value: id},
		logger.Field{Key: "created_by", Value: rec.CreatedBy},
		logger.Field{Key: "target", Value: a.Target},
		logger.Field{Key: "kind", Value: a.Kind()})

	return id, nil
}

// MarkTriggered increments trigger_count in a single statement. A one-shot
// action can be marked at most once.
func (s *SQLite) MarkTriggered(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `UPDATE actions
		SET trigger_count = trigger_count + 1, last_triggered_at = ?
		WHERE id = ? AND (repeat_action = 1 OR trigger_count = 0)`,
		unix(s.now()), id)
	if err != nil {
		return fmt.Errorf("failed to mark action %d triggered: %w", id, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to mark action %d triggered: %w", id, err)
	}
	if n > 0 {
		return nil
	}

	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return ErrAlreadyTriggered
}

// Retire excludes a one-shot action from future scheduling. Retiring an
// already retired action keeps the first timestamp.
func (s *SQLite) Retire(ctx context.Context, id int64) error {
	return s.stamp(ctx, "retired_at", id)
}

// Cancel stops an action from firing again. requester must be the creator or
// an admin; requester 0 is the local operator and is always allowed.
func (s *SQLite) Cancel(ctx context.Context, id, requester int64) error {
	if requester != 0 {
		rec, err := s.Get(ctx, id)
		if err != nil {
			return err
		}
		if rec.CreatedBy != requester {
			u, err := s.GetUser(ctx, requester)
			if err != nil && !errors.Is(err, ErrNotFound) {
				return err
			}
			if !u.IsAdmin {
				return ErrForbidden
			}
		}
	}
	return s.stamp(ctx, "cancelled_at", id)
}

// stamp sets one of the lifecycle timestamp columns. column is never user
// input.
func (s *SQLite) stamp(ctx context.Context, column string, id int64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE actions SET `+column+` = COALESCE(`+column+`, ?) WHERE id = ?`,
		unix(s.now()), id)
	if err != nil {
		return fmt.Errorf("failed to update %s for action %d: %w", column, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update %s for action %d: %w", column, id, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// PurgeInactive deletes retired and cancelled actions whose lifecycle ended
// before cutoff. It returns the number of rows removed.
func (s *SQLite) PurgeInactive(ctx context.Context, cutoff time.Time) (int64, error) {
	c := unix(cutoff)
	res, err := s.db.ExecContext(ctx, `DELETE FROM actions
		WHERE (retired_at IS NOT NULL AND retired_at < ?)
		   OR (cancelled_at IS NOT NULL AND cancelled_at < ?)`, c, c)
	if err != nil {
		return 0, fmt.Errorf("failed to purge inactive actions: %w", err)
	}
	return res.RowsAffected()
}
