// Package telegram connects dmbot to the Telegram Bot API using the Telego
// library. It receives chat commands through long polling, registers every
// user who writes to the bot, and opens direct-message channels for the
// delivery executor.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/aatumaykin/dmbot/internal/commands"
	"github.com/aatumaykin/dmbot/internal/config"
	"github.com/aatumaykin/dmbot/internal/constants"
	"github.com/aatumaykin/dmbot/internal/logger"
	"github.com/aatumaykin/dmbot/internal/store"
	"github.com/mymmrac/telego"
)

const defaultSendTimeout = 30 * time.Second

// ErrNotConnected is returned when the bot is used before Start.
var ErrNotConnected = errors.New("telegram connector is not started")

// CommandHandler answers chat commands.
type CommandHandler interface {
	HandleCommand(ctx context.Context, req commands.Request) string
}

// UserRegistry records the users who talk to the bot.
type UserRegistry interface {
	Register(ctx context.Context, u store.User) error
}

// Connector represents the Telegram bot connector.
type Connector struct {
	cfg     config.TelegramConfig
	logger  *logger.Logger
	handler CommandHandler
	users   UserRegistry

	mu     sync.RWMutex
	bot    BotInterface
	newBot func(token string) (BotInterface, error)

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	longPollManager *LongPollManager
	updateHandler   *UpdateHandler
}

// New creates a new Telegram connector.
func New(cfg config.TelegramConfig, log *logger.Logger, handler CommandHandler, users UserRegistry) *Connector {
	log = log.With(logger.Field{Key: "component", Value: "telegram"})
	conn := &Connector{
		cfg:     cfg,
		logger:  log,
		handler: handler,
		users:   users,
		newBot: func(token string) (BotInterface, error) {
			bot, err := telego.NewBot(token)
			if err != nil {
				return nil, err
			}
			return NewBotAdapter(bot), nil
		},
	}
	conn.updateHandler = NewUpdateHandler(conn, log)
	conn.longPollManager = NewLongPollManager(conn, log)
	return conn
}

// Start initializes the bot, registers the command menu and starts long
// polling. It returns once polling is running.
func (c *Connector) Start(ctx context.Context) error {
	c.logger.Info(constants.MsgTelegramStartup)

	if c.cfg.Token == "" {
		return fmt.Errorf("invalid config: telegram token is required")
	}

	bot, err := c.newBot(c.cfg.Token)
	if err != nil {
		return fmt.Errorf("failed to initialize telegram bot: %w", err)
	}

	botUser, err := bot.GetMe(ctx)
	if err != nil {
		return fmt.Errorf("failed to get bot info: %w", err)
	}

	c.logger.Info("telegram bot initialized",
		logger.Field{Key: "bot_id", Value: botUser.ID},
		logger.Field{Key: "username", Value: botUser.Username})

	c.mu.Lock()
	c.bot = bot
	c.ctx, c.cancel = context.WithCancel(ctx)
	pollCtx := c.ctx
	c.mu.Unlock()

	if err := c.registerCommands(pollCtx); err != nil {
		c.logger.ErrorCtx(pollCtx, "failed to register bot commands", err)
	}

	updates, err := bot.UpdatesViaLongPolling(pollCtx, &telego.GetUpdatesParams{
		Timeout:        c.cfg.PollTimeoutSeconds,
		AllowedUpdates: []string{"message"},
	})
	if err != nil {
		c.cancel()
		return fmt.Errorf("failed to start long polling: %w", err)
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.longPollManager.Run(pollCtx, updates)
	}()

	return nil
}

// Stop stops long polling and waits for the update loop to return.
func (c *Connector) Stop() error {
	c.logger.Info("stopping telegram connector")

	c.mu.Lock()
	cancel := c.cancel
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	c.wg.Wait()

	c.mu.Lock()
	c.bot = nil
	c.mu.Unlock()

	c.logger.Info("telegram connector stopped gracefully")
	return nil
}

func (c *Connector) currentBot() BotInterface {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.bot
}

// registerCommands publishes the command menu shown by Telegram clients.
func (c *Connector) registerCommands(ctx context.Context) error {
	bot := c.currentBot()
	if bot == nil {
		return ErrNotConnected
	}

	params := &telego.SetMyCommandsParams{
		Commands: []telego.BotCommand{
			{Command: constants.CommandOnce, Description: "Send a message once: <user> | <message> | <time> | <date>"},
			{Command: constants.CommandDaily, Description: "Send a message every day: <user> | <message> | <time>"},
			{Command: constants.CommandList, Description: "Show your pending actions"},
			{Command: constants.CommandCancel, Description: "Cancel an action: <id>"},
			{Command: constants.CommandHelp, Description: "How to use this bot"},
		},
	}

	if err := bot.SetMyCommands(ctx, params); err != nil {
		return fmt.Errorf("failed to register commands: %w", err)
	}

	c.logger.Info("bot commands registered successfully")
	return nil
}

// reply sends text to chatID.
func (c *Connector) reply(ctx context.Context, chatID int64, text string) error {
	bot := c.currentBot()
	if bot == nil {
		return ErrNotConnected
	}

	timeout := c.cfg.SendTimeout()
	if timeout <= 0 {
		timeout = defaultSendTimeout
	}
	sendCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	_, err := bot.SendMessage(sendCtx, &telego.SendMessageParams{
		ChatID: telego.ChatID{ID: chatID},
		Text:   text,
	})
	if err != nil {
		return convertError(err, chatID)
	}
	return nil
}
