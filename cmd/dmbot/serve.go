package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/aatumaykin/dmbot/internal/app"
	"github.com/aatumaykin/dmbot/internal/config"
	"github.com/aatumaykin/dmbot/internal/logger"
	"github.com/aatumaykin/dmbot/internal/messages"
	"github.com/aatumaykin/dmbot/internal/version"
	"github.com/spf13/cobra"
)

var serveLogLevel string

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the bot (main command)",
	Long: `Start dmbot with the specified configuration.
This opens the database, connects to Telegram, arms every pending action
and runs until SIGINT or SIGTERM.`,
	RunE: serveHandler,
}

func serveHandler(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Override log level if flag is set
	if serveLogLevel != "" {
		cfg.Logging.Level = serveLogLevel
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		fmt.Fprint(cmd.ErrOrStderr(), messages.FormatValidationErrors(errs))
		return errors.New("configuration is invalid")
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = log.Close() }()
	logger.SetDefault(log)

	log.Info("🚀 Starting dmbot",
		logger.Field{Key: "version", Value: version.Version},
		logger.Field{Key: "git_commit", Value: version.GitCommit},
		logger.Field{Key: "config", Value: configPath},
		logger.Field{Key: "database", Value: cfg.Storage.Path},
		logger.Field{Key: "timezone", Value: cfg.Scheduler.Timezone},
		logger.Field{Key: "telegram_token", Value: config.MaskTelegramToken(cfg.Telegram.Token)})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.New(cfg, log).Run(ctx); err != nil {
		log.Error("dmbot stopped with error", err)
		return err
	}

	log.Info("👋 dmbot stopped")
	return nil
}

func init() {
	serveCmd.Flags().StringVarP(&serveLogLevel, "log-level", "l", "", "override the configured log level (debug, info, warn, error)")
}
