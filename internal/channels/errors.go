// Package channels holds the pieces shared by chat transports.
package channels

import (
	"fmt"
	"time"

	"github.com/aatumaykin/dmbot/internal/logger"
)

// ErrorDetails describes a failed transport call in a transport-neutral way.
type ErrorDetails interface {
	Error() string

	// IsRetryable reports whether the same call may succeed later.
	IsRetryable() bool

	// RetryAfter is the wait the server asked for, or zero.
	RetryAfter() time.Duration

	// LogFields returns the fields for structured logging.
	LogFields() []logger.Field
}

// TelegramErrorDetails describes a Telegram Bot API error.
type TelegramErrorDetails struct {
	ErrorCode     int    // 400, 403, 429, 5xx...
	Description   string // Telegram's description
	RetryAfterSec int    // set on 429
	ChatID        int64
	Timestamp     time.Time
	Err           error
}

func (d *TelegramErrorDetails) Error() string {
	return fmt.Sprintf("telegram: %d %s", d.ErrorCode, d.Description)
}

func (d *TelegramErrorDetails) Unwrap() error {
	return d.Err
}

// IsRetryable is true for rate limiting and server-side failures.
func (d *TelegramErrorDetails) IsRetryable() bool {
	return d.ErrorCode == 429 || (d.ErrorCode >= 500 && d.ErrorCode < 600)
}

func (d *TelegramErrorDetails) RetryAfter() time.Duration {
	if d.RetryAfterSec > 0 {
		return time.Duration(d.RetryAfterSec) * time.Second
	}
	if d.ErrorCode >= 500 && d.ErrorCode < 600 {
		return 5 * time.Second
	}
	return 0
}

// Unreachable reports whether the recipient cannot be messaged at all:
// the user never started the bot, blocked it, or the account is gone.
func (d *TelegramErrorDetails) Unreachable() bool {
	return d.ErrorCode == 403 || (d.ErrorCode == 400 && d.Description == "Bad Request: chat not found")
}

func (d *TelegramErrorDetails) LogFields() []logger.Field {
	return []logger.Field{
		{Key: "error_code", Value: d.ErrorCode},
		{Key: "error_description", Value: d.Description},
		{Key: "retry_after", Value: d.RetryAfterSec},
		{Key: "chat_id", Value: d.ChatID},
	}
}
