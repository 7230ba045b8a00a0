package telegram

import (
	"context"
	"fmt"

	"github.com/aatumaykin/dmbot/internal/logger"
	"github.com/mymmrac/telego"
)

// LongPollManager drains the update stream into the update handler.
type LongPollManager struct {
	connector *Connector
	logger    *logger.Logger
}

// NewLongPollManager creates a new long poll manager.
func NewLongPollManager(connector *Connector, log *logger.Logger) *LongPollManager {
	return &LongPollManager{
		connector: connector,
		logger:    log,
	}
}

// Run handles updates one at a time until ctx is done or the channel
// closes. A failing or panicking update is logged and skipped.
func (lpm *LongPollManager) Run(ctx context.Context, updates <-chan telego.Update) {
	lpm.logger.Info("long polling started")
	handled := 0
	defer func() {
		lpm.logger.Info("long polling stopped", logger.Field{Key: "updates", Value: handled})
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				lpm.logger.Warn("updates channel closed")
				return
			}
			handled++
			if err := lpm.handle(ctx, update); err != nil {
				lpm.logger.ErrorCtx(ctx, "failed to handle update", err,
					logger.Field{Key: "update_id", Value: update.UpdateID})
			}
		}
	}
}

func (lpm *LongPollManager) handle(ctx context.Context, update telego.Update) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while handling update: %v", r)
		}
	}()
	return lpm.connector.updateHandler.Handle(ctx, update)
}
