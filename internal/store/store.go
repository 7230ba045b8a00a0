// Package store persists scheduled actions, the user registry and the
// delivery log in SQLite.
//
// All statements are parameterized. Instants are stored as unix seconds in
// UTC; action times and dates are stored in their canonical text layouts.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/aatumaykin/dmbot/internal/action"
)

var (
	// ErrNotFound is returned when no row matches the given id.
	ErrNotFound = errors.New("not found")
	// ErrForbidden is returned when a user may not modify an action.
	ErrForbidden = errors.New("forbidden")
)

// User is a registered chat user.
type User struct {
	ID          int64
	Username    string
	DisplayName string
	IsAdmin     bool
	IsBanned    bool
	AddedOn     time.Time
}

// Name returns the best human-readable name for u.
func (u User) Name() string {
	switch {
	case u.Username != "":
		return "@" + u.Username
	case u.DisplayName != "":
		return u.DisplayName
	default:
		return ""
	}
}

// LogEntry is one row of the delivery log.
type LogEntry struct {
	ID        string
	ActionID  int64
	Level     string
	Message   string
	Data      string
	CreatedOn time.Time
}

const (
	LevelInfo  = "info"
	LevelError = "error"
)

// Actions is the action repository.
type Actions interface {
	ListPending(ctx context.Context) ([]action.Record, error)
	Create(ctx context.Context, draft action.Draft) (int64, error)
	MarkTriggered(ctx context.Context, id int64) error
	Retire(ctx context.Context, id int64) error
	Get(ctx context.Context, id int64) (action.Record, error)
	ListByCreator(ctx context.Context, userID int64) ([]action.Record, error)
	Cancel(ctx context.Context, id, requester int64) error
}

// Users is the user registry.
type Users interface {
	UserExists(ctx context.Context, id int64) (bool, error)
	RegisterUser(ctx context.Context, u User) error
	GetUser(ctx context.Context, id int64) (User, error)
}

// Repository is everything the application needs from storage.
type Repository interface {
	Actions
	Users
	AppendLog(ctx context.Context, e LogEntry) error
}
