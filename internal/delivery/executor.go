// Package delivery sends the message of a firing action to its target as a
// direct message and records the outcome.
package delivery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aatumaykin/dmbot/internal/action"
	"github.com/aatumaykin/dmbot/internal/logger"
	"github.com/aatumaykin/dmbot/internal/metrics"
	"github.com/aatumaykin/dmbot/internal/retry"
	"github.com/aatumaykin/dmbot/internal/store"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// Delivery stages reported in DeliveryError.
const (
	StageOpen = "open"
	StageSend = "send"
)

// Channel is an open direct-message conversation.
type Channel interface {
	Send(ctx context.Context, text string) error
}

// Messenger opens direct-message conversations with users.
type Messenger interface {
	OpenDirectChannel(ctx context.Context, userID int64) (Channel, error)
}

// Recorder persists delivery outcomes.
type Recorder interface {
	MarkTriggered(ctx context.Context, id int64) error
	AppendLog(ctx context.Context, e store.LogEntry) error
}

// DeliveryError reports a failed delivery.
type DeliveryError struct {
	ActionID int64
	Target   int64
	Stage    string
	Err      error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("delivery of action %d to %d failed at %s: %v", e.ActionID, e.Target, e.Stage, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// Config tunes the executor.
type Config struct {
	RatePerSec  float64
	Burst       int
	SendTimeout time.Duration
	Retry       retry.Config
}

// Executor performs deliveries.
type Executor struct {
	messenger Messenger
	recorder  Recorder
	limiter   *rate.Limiter
	cfg       Config
	logger    *logger.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
}

// NewExecutor creates an executor. m may be nil.
func NewExecutor(messenger Messenger, recorder Recorder, cfg Config, log *logger.Logger, m *metrics.Metrics) *Executor {
	limit := rate.Inf
	if cfg.RatePerSec > 0 {
		limit = rate.Limit(cfg.RatePerSec)
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 30 * time.Second
	}

	return &Executor{
		messenger: messenger,
		recorder:  recorder,
		limiter:   rate.NewLimiter(limit, cfg.Burst),
		cfg:       cfg,
		logger:    log.With(logger.Field{Key: "component", Value: "delivery"}),
		metrics:   m,
		now:       time.Now,
	}
}

// Deliver sends a's message to its target. On success the action's trigger
// count is advanced. Failures are logged, recorded in the delivery log and
// returned as *DeliveryError; they never alter the action's schedule.
func (e *Executor) Deliver(ctx context.Context, a action.ScheduledAction) error {
	start := e.now()
	log := e.logger.With(
		logger.Field{Key: "action_id", Value: a.ID},
		logger.Field{Key: "target", Value: a.Target})

	if err := e.limiter.Wait(ctx); err != nil {
		e.metrics.RecordDelivery("cancelled", time.Since(start))
		return &DeliveryError{ActionID: a.ID, Target: a.Target, Stage: StageOpen, Err: err}
	}

	stage := StageOpen
	err := retry.Do(ctx, e.cfg.Retry, log, func(ctx context.Context) error {
		stage = StageOpen
		ch, err := e.messenger.OpenDirectChannel(ctx, a.Target)
		if err != nil {
			return err
		}

		stage = StageSend
		sendCtx, cancel := context.WithTimeout(ctx, e.cfg.SendTimeout)
		defer cancel()
		return sendOnce(ch.Send(sendCtx, a.Message))
	})

	if err != nil {
		derr := &DeliveryError{ActionID: a.ID, Target: a.Target, Stage: stage, Err: err}

		status := "failed"
		if errors.Is(err, context.Canceled) {
			status = "cancelled"
		}
		e.metrics.RecordDelivery(status, time.Since(start))

		log.Error("direct message delivery failed", derr, logger.Field{Key: "stage", Value: stage})
		e.appendLog(ctx, a, store.LevelError, derr.Error(), map[string]any{
			"target": a.Target,
			"stage":  stage,
		})
		return derr
	}

	e.metrics.RecordDelivery("ok", time.Since(start))

	// The message is out; record it even if the caller is shutting down.
	recCtx := context.WithoutCancel(ctx)
	if err := e.recorder.MarkTriggered(recCtx, a.ID); err != nil {
		if errors.Is(err, store.ErrAlreadyTriggered) {
			log.Warn("one-shot action was already marked triggered")
		} else {
			log.Error("failed to mark action triggered", err)
		}
	}

	log.Info("direct message delivered",
		logger.Field{Key: "kind", Value: a.Kind()},
		logger.Field{Key: "duration_ms", Value: time.Since(start).Milliseconds()})
	e.appendLog(recCtx, a, store.LevelInfo, "delivered", map[string]any{
		"target": a.Target,
		"kind":   a.Kind(),
	})

	return nil
}

// sendOnce lets only errors that report themselves retryable reach the retry
// loop. A timeout or dropped connection may come after Telegram accepted the
// message, so sending again could deliver it twice.
func sendOnce(err error) error {
	if err == nil {
		return nil
	}
	var r retry.Retryable
	if errors.As(err, &r) && r.IsRetryable() {
		return err
	}
	return retry.Permanent(err)
}

func (e *Executor) appendLog(ctx context.Context, a action.ScheduledAction, level, message string, data map[string]any) {
	raw, err := json.Marshal(data)
	if err != nil {
		raw = []byte("{}")
	}

	entry := store.LogEntry{
		ID:        uuid.NewString(),
		ActionID:  a.ID,
		Level:     level,
		Message:   message,
		Data:      string(raw),
		CreatedOn: e.now(),
	}
	if err := e.recorder.AppendLog(context.WithoutCancel(ctx), entry); err != nil {
		e.logger.Error("failed to append delivery log", err,
			logger.Field{Key: "action_id", Value: a.ID})
	}
}
