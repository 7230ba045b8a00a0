package telegram

import (
	"context"
	"fmt"
	"strings"

	"github.com/aatumaykin/dmbot/internal/commands"
	"github.com/aatumaykin/dmbot/internal/logger"
	"github.com/aatumaykin/dmbot/internal/store"
	"github.com/mymmrac/telego"
)

// UpdateHandler registers senders and dispatches their commands.
type UpdateHandler struct {
	connector *Connector
	logger    *logger.Logger
}

// NewUpdateHandler creates a new update handler.
func NewUpdateHandler(connector *Connector, logger *logger.Logger) *UpdateHandler {
	return &UpdateHandler{
		connector: connector,
		logger:    logger,
	}
}

// Handle processes one update. Every message from a human sender registers
// that sender; command messages are answered in the same chat.
func (uh *UpdateHandler) Handle(ctx context.Context, update telego.Update) error {
	msg := update.Message
	if msg == nil || msg.From == nil || msg.From.IsBot {
		return nil
	}

	from := msg.From
	user := store.User{
		ID:          from.ID,
		Username:    from.Username,
		DisplayName: strings.TrimSpace(from.FirstName + " " + from.LastName),
		IsAdmin:     uh.connector.cfg.IsAdmin(from.ID),
	}
	if err := uh.connector.users.Register(ctx, user); err != nil {
		uh.logger.ErrorCtx(ctx, "failed to register user", err,
			logger.Field{Key: "user_id", Value: from.ID})
	}

	if msg.Text == "" {
		return nil
	}

	cmd, args, ok := commands.ParseCommand(msg.Text)
	if !ok {
		return nil
	}

	uh.logger.DebugCtx(ctx, "command received",
		logger.Field{Key: "user_id", Value: from.ID},
		logger.Field{Key: "chat_id", Value: msg.Chat.ID},
		logger.Field{Key: "command", Value: cmd})

	reply := uh.connector.handler.HandleCommand(ctx, commands.Request{
		UserID:  from.ID,
		Command: cmd,
		Args:    args,
	})
	if reply == "" {
		return nil
	}

	if err := uh.connector.reply(ctx, msg.Chat.ID, reply); err != nil {
		return fmt.Errorf("failed to send reply: %w", err)
	}
	return nil
}
