package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/aatumaykin/dmbot/internal/config"
	"github.com/aatumaykin/dmbot/internal/logger"
	"github.com/aatumaykin/dmbot/internal/store"
)

// openStore loads the configuration and opens its database. Commands that
// only touch the database do not need a valid Telegram token.
func openStore(ctx context.Context) (*store.SQLite, *config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	loc, err := cfg.Scheduler.Location()
	if err != nil {
		return nil, nil, err
	}

	st, err := store.Open(ctx, store.Options{
		Path:          cfg.Storage.Path,
		BusyTimeoutMS: cfg.Storage.BusyTimeoutMS,
		Location:      loc,
	}, cliLogger())
	if err != nil {
		return nil, nil, err
	}
	return st, cfg, nil
}

// cliLogger keeps administrative commands quiet unless something goes wrong.
func cliLogger() *logger.Logger {
	log, err := logger.New(logger.Config{Level: "warn", Format: "text", Output: "stderr"})
	if err != nil {
		return logger.Nop()
	}
	return log
}

// parseID accepts "42" or "#42".
func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(strings.TrimSpace(s), "#"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}
