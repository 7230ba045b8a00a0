package telegram

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aatumaykin/dmbot/internal/channels"
	"github.com/aatumaykin/dmbot/internal/delivery"
	"github.com/mymmrac/telego"
	telegoapi "github.com/mymmrac/telego/telegoapi"
)

// directChannel is the private chat between the bot and one user.
type directChannel struct {
	bot    BotInterface
	chatID int64
	quiet  bool
}

// OpenDirectChannel resolves the private chat with userID. In Telegram the
// private chat id equals the user id; the lookup fails when the user never
// started the bot.
func (c *Connector) OpenDirectChannel(ctx context.Context, userID int64) (delivery.Channel, error) {
	bot := c.currentBot()
	if bot == nil {
		return nil, ErrNotConnected
	}

	chat, err := bot.GetChat(ctx, &telego.GetChatParams{ChatID: telego.ChatID{ID: userID}})
	if err != nil {
		return nil, convertError(err, userID)
	}
	if chat.Type != telego.ChatTypePrivate {
		return nil, fmt.Errorf("chat %d is a %s chat, not a direct message", userID, chat.Type)
	}

	return &directChannel{bot: bot, chatID: chat.ID, quiet: c.cfg.QuietMode}, nil
}

// Send delivers text as a plain message.
func (d *directChannel) Send(ctx context.Context, text string) error {
	_, err := d.bot.SendMessage(ctx, &telego.SendMessageParams{
		ChatID:              telego.ChatID{ID: d.chatID},
		Text:                text,
		DisableNotification: d.quiet,
	})
	if err != nil {
		return convertError(err, d.chatID)
	}
	return nil
}

// convertError turns a Bot API error into *channels.TelegramErrorDetails so
// the retry layer can tell transient failures from permanent ones. Other
// errors are returned unchanged.
func convertError(err error, chatID int64) error {
	var apiErr *telegoapi.Error
	if !errors.As(err, &apiErr) {
		return err
	}

	details := &channels.TelegramErrorDetails{
		ErrorCode:   apiErr.ErrorCode,
		Description: apiErr.Description,
		ChatID:      chatID,
		Timestamp:   time.Now(),
		Err:         err,
	}
	if apiErr.Parameters != nil {
		details.RetryAfterSec = apiErr.Parameters.RetryAfter
	}
	return details
}
