package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/aatumaykin/dmbot/internal/action"
	"github.com/aatumaykin/dmbot/internal/logger"
)

// State is the lifecycle stage of one unit.
type State int

const (
	StateArmed State = iota
	StateFiring
	StateRetired
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateArmed:
		return "armed"
	case StateFiring:
		return "firing"
	case StateRetired:
		return "retired"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

type unit struct {
	cancel context.CancelFunc
	done   chan struct{}

	mu     sync.Mutex
	action action.ScheduledAction
	date   action.Date
	fireAt time.Time
	state  State
}

func (u *unit) arm(date action.Date, at time.Time) {
	u.mu.Lock()
	u.date = date
	u.fireAt = at
	u.state = StateArmed
	u.mu.Unlock()
}

func (u *unit) setState(s State) {
	u.mu.Lock()
	u.state = s
	u.mu.Unlock()
}

func (u *unit) next() (action.Date, time.Time) {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.date, u.fireAt
}

func (u *unit) snapshot() Snapshot {
	u.mu.Lock()
	defer u.mu.Unlock()
	return Snapshot{
		ActionID: u.action.ID,
		Kind:     u.action.Kind(),
		Target:   u.action.Target,
		State:    u.state,
		FireAt:   u.fireAt,
	}
}

// run drives one unit until it retires or its context ends.
func (e *Engine) run(ctx context.Context, u *unit) {
	defer e.release(u)

	id := u.action.ID
	log := e.logger.With(
		logger.Field{Key: "action_id", Value: id},
		logger.Field{Key: "kind", Value: u.action.Kind()})

	for {
		date, fireAt := u.next()
		if !e.wait(ctx, fireAt) {
			u.setState(StateStopped)
			log.Debug("unit stopped while armed")
			return
		}

		u.setState(StateFiring)
		log.Info("firing action", logger.Field{Key: "fire_at", Value: fireAt.Format(time.RFC3339)})

		err := e.deliverer.Deliver(ctx, u.action)
		if err != nil && ctx.Err() != nil {
			// Interrupted by shutdown or disarm; the row stays pending.
			u.setState(StateStopped)
			log.Warn("delivery interrupted", logger.Field{Key: "error", Value: err.Error()})
			return
		}

		result := "ok"
		if err != nil {
			result = "failed"
			log.Error("delivery failed", err)
		}
		e.metrics.RecordFiring(u.action.Kind(), result)

		if !u.action.Repeat {
			if rerr := e.store.Retire(context.WithoutCancel(ctx), id); rerr != nil {
				log.Error("failed to retire one-shot action", rerr)
			}
			u.setState(StateRetired)
			log.Info("one-shot action retired", logger.Field{Key: "result", Value: result})
			return
		}

		if err == nil {
			u.mu.Lock()
			u.action.TriggerCount++
			fired := fireAt
			u.action.LastTriggeredAt = &fired
			u.mu.Unlock()
		}

		nextDate := u.action.NextOccurrence(date, e.clock.Now(), e.loc)
		nextAt := nextDate.At(u.action.Time, e.loc)
		u.arm(nextDate, nextAt)
		log.Info("repeating action re-armed", logger.Field{Key: "fire_at", Value: nextAt.Format(time.RFC3339)})
	}
}

// wait sleeps until at, one poll interval at a time. It returns false when
// ctx ends first.
func (e *Engine) wait(ctx context.Context, at time.Time) bool {
	for {
		if ctx.Err() != nil {
			return false
		}
		now := e.clock.Now()
		if !now.Before(at) {
			return true
		}

		d := at.Sub(now)
		if d > e.poll {
			d = e.poll
		}

		select {
		case <-ctx.Done():
			return false
		case <-e.clock.After(d):
		}
	}
}
