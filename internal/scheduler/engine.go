// Package scheduler arms scheduled actions and fires them.
//
// Every armed action owns one goroutine (a unit) that sleeps until its fire
// instant, hands the action to the deliverer exactly once, and then either
// retires (one-shot) or re-arms for the next calendar day (repeating). Units
// never wait on each other; the engine's lock only guards the unit registry.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/aatumaykin/dmbot/internal/action"
	"github.com/aatumaykin/dmbot/internal/logger"
	"github.com/aatumaykin/dmbot/internal/metrics"
)

// DefaultPollInterval caps a single sleep so clock jumps are noticed.
const DefaultPollInterval = time.Second

var (
	ErrNotStarted   = errors.New("scheduler not started")
	ErrAlreadyArmed = errors.New("action already armed")
	ErrRetired      = errors.New("one-shot action already fired")
)

// Store is the part of the action repository the engine needs.
type Store interface {
	ListPending(ctx context.Context) ([]action.Record, error)
	Retire(ctx context.Context, id int64) error
}

// Deliverer performs one delivery attempt for an action.
type Deliverer interface {
	Deliver(ctx context.Context, a action.ScheduledAction) error
}

// Clock abstracts time for tests.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) Now() time.Time                         { return time.Now() }
func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// Config tunes the engine.
type Config struct {
	Location     *time.Location
	PollInterval time.Duration
	Clock        Clock
}

// Snapshot describes one armed unit.
type Snapshot struct {
	ActionID int64
	Kind     string
	Target   int64
	State    State
	FireAt   time.Time
}

// Engine owns the set of armed units.
type Engine struct {
	store     Store
	deliverer Deliverer
	logger    *logger.Logger
	metrics   *metrics.Metrics
	loc       *time.Location
	poll      time.Duration
	clock     Clock

	mu      sync.Mutex
	units   map[int64]*unit
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
}

// New creates an engine. m may be nil.
func New(store Store, deliverer Deliverer, cfg Config, log *logger.Logger, m *metrics.Metrics) *Engine {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.Clock == nil {
		cfg.Clock = realClock{}
	}

	return &Engine{
		store:     store,
		deliverer: deliverer,
		logger:    log.With(logger.Field{Key: "component", Value: "scheduler"}),
		metrics:   m,
		loc:       cfg.Location,
		poll:      cfg.PollInterval,
		clock:     cfg.Clock,
		units:     make(map[int64]*unit),
	}
}

// Start binds the engine to ctx and arms every pending action. A failure to
// list pending actions is returned; individual unparsable records are
// logged and skipped.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.started {
		e.mu.Unlock()
		return fmt.Errorf("scheduler already started")
	}
	e.ctx, e.cancel = context.WithCancel(ctx)
	e.started = true
	e.mu.Unlock()

	armed, err := e.Load(ctx)
	if err != nil {
		return err
	}

	e.logger.Info("scheduler started",
		logger.Field{Key: "armed", Value: armed},
		logger.Field{Key: "timezone", Value: e.loc.String()},
		logger.Field{Key: "poll_interval", Value: e.poll.String()})
	return nil
}

// Load arms every pending action from the store and returns how many were
// armed.
func (e *Engine) Load(ctx context.Context) (int, error) {
	records, err := e.store.ListPending(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load pending actions: %w", err)
	}

	armed := 0
	for _, r := range records {
		a, err := action.FromRecord(r)
		if err != nil {
			e.metrics.RecordSkipped()
			e.logger.Error("skipping unparsable action", err,
				logger.Field{Key: "action_id", Value: r.ID})
			continue
		}

		if err := e.Arm(a); err != nil {
			if errors.Is(err, ErrAlreadyArmed) {
				continue
			}
			e.logger.Error("failed to arm action", err,
				logger.Field{Key: "action_id", Value: r.ID})
			continue
		}
		armed++
	}

	return armed, nil
}

// Arm starts a unit for a. Newly created actions are armed through here
// without a restart.
func (e *Engine) Arm(a action.ScheduledAction) error {
	if !a.Repeat && a.TriggerCount > 0 {
		return ErrRetired
	}
	if !a.Repeat && a.Date == nil {
		return fmt.Errorf("one-shot action %d has no date", a.ID)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.started {
		return ErrNotStarted
	}
	if _, ok := e.units[a.ID]; ok {
		return ErrAlreadyArmed
	}

	now := e.clock.Now()
	date := a.FirstOccurrence(now, e.loc)

	ctx, cancel := context.WithCancel(e.ctx)
	u := &unit{
		action: a,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	u.arm(date, date.At(a.Time, e.loc))

	e.units[a.ID] = u
	e.metrics.SetArmed(len(e.units))
	e.wg.Add(1)
	go e.run(ctx, u)

	e.logger.Info("action armed",
		logger.Field{Key: "action_id", Value: a.ID},
		logger.Field{Key: "kind", Value: a.Kind()},
		logger.Field{Key: "fire_at", Value: u.snapshot().FireAt.Format(time.RFC3339)})

	return nil
}

// Disarm tells the unit for id to stop waiting and waits for it to exit.
// It reports whether a unit was armed.
func (e *Engine) Disarm(id int64) bool {
	e.mu.Lock()
	u, ok := e.units[id]
	e.mu.Unlock()
	if !ok {
		return false
	}

	u.cancel()
	<-u.done

	e.logger.Info("action disarmed", logger.Field{Key: "action_id", Value: id})
	return true
}

// Armed returns a snapshot of every unit, ordered by action id.
func (e *Engine) Armed() []Snapshot {
	e.mu.Lock()
	units := make([]*unit, 0, len(e.units))
	for _, u := range e.units {
		units = append(units, u)
	}
	e.mu.Unlock()

	out := make([]Snapshot, 0, len(units))
	for _, u := range units {
		out = append(out, u.snapshot())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ActionID < out[j].ActionID })
	return out
}

// IsArmed reports whether id currently has a unit.
func (e *Engine) IsArmed(id int64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.units[id]
	return ok
}

// Stop stops every unit and waits for in-flight deliveries to return.
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.started {
		e.mu.Unlock()
		return
	}
	e.started = false
	e.cancel()
	e.mu.Unlock()

	e.wg.Wait()
	e.logger.Info("scheduler stopped")
}

func (e *Engine) release(u *unit) {
	e.mu.Lock()
	if cur, ok := e.units[u.action.ID]; ok && cur == u {
		delete(e.units, u.action.ID)
	}
	e.metrics.SetArmed(len(e.units))
	e.mu.Unlock()

	close(u.done)
	e.wg.Done()
}
