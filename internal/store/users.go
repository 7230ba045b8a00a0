package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/aatumaykin/dmbot/internal/logger"
)

const userColumns = `id, username, display_name, is_admin, is_banned, added_on`

func scanUser(row rowScanner) (User, error) {
	var (
		u             User
		admin, banned int
		addedOn       int64
	)
	if err := row.Scan(&u.ID, &u.Username, &u.DisplayName, &admin, &banned, &addedOn); err != nil {
		return User{}, err
	}
	u.IsAdmin = admin != 0
	u.IsBanned = banned != 0
	u.AddedOn = fromUnix(addedOn)
	return u, nil
}

func getUser(ctx context.Context, q queryRower, id int64) (User, error) {
	u, err := scanUser(q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("failed to get user %d: %w", id, err)
	}
	return u, nil
}

// UserExists reports whether id is a registered user.
func (s *SQLite) UserExists(ctx context.Context, id int64) (bool, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM users WHERE id = ?`, id).Scan(&n); err != nil {
		return false, fmt.Errorf("failed to check user %d: %w", id, err)
	}
	return n > 0, nil
}

// GetUser returns a registered user or ErrNotFound.
func (s *SQLite) GetUser(ctx context.Context, id int64) (User, error) {
	return getUser(ctx, s.db, id)
}

// RegisterUser inserts u or refreshes its non-empty names. added_on is kept from the
// first registration, the admin flag is only ever raised and the ban flag is
// left untouched.
func (s *SQLite) RegisterUser(ctx context.Context, u User) error {
	if u.ID == 0 {
		return fmt.Errorf("user id is required")
	}

	_, err := s.db.ExecContext(ctx, `INSERT INTO users (id, username, display_name, is_admin, is_banned, added_on)
		VALUES (?, ?, ?, ?, 0, ?)
		ON CONFLICT(id) DO UPDATE SET
			username     = COALESCE(NULLIF(excluded.username, ''), users.username),
			display_name = COALESCE(NULLIF(excluded.display_name, ''), users.display_name),
			is_admin     = MAX(users.is_admin, excluded.is_admin)`,
		u.ID, u.Username, u.DisplayName, boolInt(u.IsAdmin), unix(s.now()))
	if err != nil {
		return fmt.Errorf("failed to register user %d: %w", u.ID, err)
	}

	s.logger.Debug("user registered",
		logger.Field{Key: "user_id", Value: u.ID},
		logger.Field{Key: "username", Value: u.Username})
	return nil
}

// ListUsers returns every registered user ordered by id.
func (s *SQLite) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var out []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// SetBanned bans or unbans a user. Banned users cannot create actions.
func (s *SQLite) SetBanned(ctx context.Context, id int64, banned bool) error {
	res, err := s.db.ExecContext(ctx, `UPDATE users SET is_banned = ? WHERE id = ?`, boolInt(banned), id)
	if err != nil {
		return fmt.Errorf("failed to update user %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update user %d: %w", id, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
