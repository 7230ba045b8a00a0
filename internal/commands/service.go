// Package commands implements the operations users trigger from chat or the
// command line: creating, listing and cancelling scheduled actions.
package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aatumaykin/dmbot/internal/action"
	"github.com/aatumaykin/dmbot/internal/logger"
	"github.com/aatumaykin/dmbot/internal/scheduler"
	"github.com/aatumaykin/dmbot/internal/store"
)

// Store is the persistence the service needs.
type Store interface {
	Create(ctx context.Context, draft action.Draft) (int64, error)
	Get(ctx context.Context, id int64) (action.Record, error)
	ListByCreator(ctx context.Context, userID int64) ([]action.Record, error)
	Cancel(ctx context.Context, id, requester int64) error
	UserExists(ctx context.Context, id int64) (bool, error)
	RegisterUser(ctx context.Context, u store.User) error
	GetUser(ctx context.Context, id int64) (store.User, error)
}

// Scheduler arms and disarms actions at runtime.
type Scheduler interface {
	Arm(a action.ScheduledAction) error
	Disarm(id int64) bool
}

// Created describes a newly created action.
type Created struct {
	ID     int64
	Kind   string
	NextAt time.Time
	Armed  bool
}

// Service implements the user-facing operations.
type Service struct {
	store     Store
	scheduler Scheduler
	loc       *time.Location
	now       func() time.Time
	logger    *logger.Logger
}

// NewService creates a service. scheduler may be nil when no engine is
// running (for example from the CLI).
func NewService(st Store, sched Scheduler, loc *time.Location, log *logger.Logger) *Service {
	if loc == nil {
		loc = time.Local
	}
	return &Service{
		store:     st,
		scheduler: sched,
		loc:       loc,
		now:       time.Now,
		logger:    log.With(logger.Field{Key: "component", Value: "commands"}),
	}
}

// SetScheduler attaches the engine. It must be called before the service is
// used concurrently.
func (s *Service) SetScheduler(sched Scheduler) {
	s.scheduler = sched
}

// Location is the zone action times are interpreted in.
func (s *Service) Location() *time.Location {
	return s.loc
}

// CreateOnce schedules message to be sent to target once at tm ("9:30 PM")
// on date ("25 12 2025").
func (s *Service) CreateOnce(ctx context.Context, creator, target int64, message, tm, date string) (Created, error) {
	return s.create(ctx, action.Draft{
		CreatedBy: creator,
		Target:    target,
		Message:   message,
		Time:      tm,
		Date:      date,
	})
}

// CreateDaily schedules message to be sent to target every day at tm.
func (s *Service) CreateDaily(ctx context.Context, creator, target int64, message, tm string) (Created, error) {
	return s.create(ctx, action.Draft{
		CreatedBy: creator,
		Target:    target,
		Message:   message,
		Time:      tm,
		Repeat:    true,
	})
}

func (s *Service) create(ctx context.Context, draft action.Draft) (Created, error) {
	id, err := s.store.Create(ctx, draft)
	if err != nil {
		return Created{}, err
	}

	rec, err := s.store.Get(ctx, id)
	if err != nil {
		return Created{}, fmt.Errorf("failed to reload action %d: %w", id, err)
	}
	a, err := action.FromRecord(rec)
	if err != nil {
		return Created{}, fmt.Errorf("failed to parse action %d: %w", id, err)
	}

	created := Created{
		ID:     id,
		Kind:   a.Kind(),
		NextAt: a.FirstOccurrence(s.now(), s.loc).At(a.Time, s.loc),
	}

	if s.scheduler != nil {
		switch err := s.scheduler.Arm(a); {
		case err == nil:
			created.Armed = true
		case errors.Is(err, scheduler.ErrNotStarted):
			s.logger.Warn("scheduler not running, action will be armed at next start",
				logger.Field{Key: "action_id", Value: id})
		default:
			s.logger.Error("failed to arm new action", err, logger.Field{Key: "action_id", Value: id})
		}
	}

	return created, nil
}

// ListPending returns the pending actions created by creator. Rows that no
// longer parse are skipped.
func (s *Service) ListPending(ctx context.Context, creator int64) ([]action.ScheduledAction, error) {
	records, err := s.store.ListByCreator(ctx, creator)
	if err != nil {
		return nil, err
	}

	out := make([]action.ScheduledAction, 0, len(records))
	for _, r := range records {
		a, err := action.FromRecord(r)
		if err != nil {
			s.logger.Warn("skipping unparsable action in list",
				logger.Field{Key: "action_id", Value: r.ID},
				logger.Field{Key: "error", Value: err.Error()})
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

// Cancel stops action id from firing again. requester must be the creator
// or an admin; 0 is the local operator.
func (s *Service) Cancel(ctx context.Context, id, requester int64) error {
	if err := s.store.Cancel(ctx, id, requester); err != nil {
		return err
	}
	if s.scheduler != nil {
		s.scheduler.Disarm(id)
	}

	s.logger.Info("action cancelled",
		logger.Field{Key: "action_id", Value: id},
		logger.Field{Key: "requester", Value: requester})
	return nil
}

// Register records u as a known user. Configured admins are flagged.
func (s *Service) Register(ctx context.Context, u store.User) error {
	return s.store.RegisterUser(ctx, u)
}

// UserExists reports whether id is registered.
func (s *Service) UserExists(ctx context.Context, id int64) (bool, error) {
	return s.store.UserExists(ctx, id)
}

// IsBanned reports whether id is registered and banned.
func (s *Service) IsBanned(ctx context.Context, id int64) (bool, error) {
	u, err := s.store.GetUser(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return u.IsBanned, nil
}
