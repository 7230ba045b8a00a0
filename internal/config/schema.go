// Package config provides configuration loading and validation for dmbot.
// It reads TOML files (YAML when the file ends in .yaml or .yml), expands
// environment variables, applies default values and validates the result.
//
// Configuration structure:
//   - [telegram]: bot token, admin user ids, polling and send timeouts
//   - [storage]: SQLite database path
//   - [scheduler]: timezone for action times, poll interval
//   - [delivery]: send rate limit and retry backoff
//   - [workers]: delivery pool size
//   - [cleanup]: maintenance schedule and retention
//   - [metrics]: Prometheus listener
//   - [logging]: level, format and output
//
// Environment variables:
// String values can reference environment variables with ${VAR} or
// ${VAR:default} syntax, for example: token = "${TELEGRAM_BOT_TOKEN}".
package config

import (
	"fmt"
	"time"
)

// Config represents the main application configuration.
type Config struct {
	Telegram  TelegramConfig  `toml:"telegram" yaml:"telegram"`
	Storage   StorageConfig   `toml:"storage" yaml:"storage"`
	Scheduler SchedulerConfig `toml:"scheduler" yaml:"scheduler"`
	Delivery  DeliveryConfig  `toml:"delivery" yaml:"delivery"`
	Workers   WorkersConfig   `toml:"workers" yaml:"workers"`
	Cleanup   CleanupConfig   `toml:"cleanup" yaml:"cleanup"`
	Metrics   MetricsConfig   `toml:"metrics" yaml:"metrics"`
	Logging   LoggingConfig   `toml:"logging" yaml:"logging"`
}

// TelegramConfig configures the Telegram bot.
type TelegramConfig struct {
	Token              string  `toml:"token" yaml:"token"`
	Admins             []int64 `toml:"admins" yaml:"admins"`
	PollTimeoutSeconds int     `toml:"poll_timeout_seconds" yaml:"poll_timeout_seconds"`
	SendTimeoutSeconds int     `toml:"send_timeout_seconds" yaml:"send_timeout_seconds"`
	QuietMode          bool    `toml:"quiet_mode" yaml:"quiet_mode"`
}

// SendTimeout returns the per-request timeout for outgoing messages.
func (c TelegramConfig) SendTimeout() time.Duration {
	return time.Duration(c.SendTimeoutSeconds) * time.Second
}

// IsAdmin reports whether id is listed in admins.
func (c TelegramConfig) IsAdmin(id int64) bool {
	for _, a := range c.Admins {
		if a == id {
			return true
		}
	}
	return false
}

// StorageConfig configures the SQLite database.
type StorageConfig struct {
	Path          string `toml:"path" yaml:"path"`
	BusyTimeoutMS int    `toml:"busy_timeout_ms" yaml:"busy_timeout_ms"`
}

// SchedulerConfig configures the scheduling engine.
type SchedulerConfig struct {
	// Timezone is an IANA zone name; "Local" uses the host zone.
	Timezone       string `toml:"timezone" yaml:"timezone"`
	PollIntervalMS int    `toml:"poll_interval_ms" yaml:"poll_interval_ms"`
}

// Location resolves Timezone.
func (c SchedulerConfig) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("unknown timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// PollInterval returns the wait cap of a scheduled unit.
func (c SchedulerConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMS) * time.Millisecond
}

// DeliveryConfig configures sending.
type DeliveryConfig struct {
	RatePerSec       float64 `toml:"rate_per_sec" yaml:"rate_per_sec"`
	Burst            int     `toml:"burst" yaml:"burst"`
	MaxAttempts      int     `toml:"max_attempts" yaml:"max_attempts"`
	InitialBackoffMS int     `toml:"initial_backoff_ms" yaml:"initial_backoff_ms"`
	MaxBackoffMS     int     `toml:"max_backoff_ms" yaml:"max_backoff_ms"`
}

// WorkersConfig configures the delivery worker pool.
type WorkersConfig struct {
	PoolSize  int `toml:"pool_size" yaml:"pool_size"`
	QueueSize int `toml:"queue_size" yaml:"queue_size"`
}

// CleanupConfig configures the maintenance job.
type CleanupConfig struct {
	Enabled       bool   `toml:"enabled" yaml:"enabled"`
	Schedule      string `toml:"schedule" yaml:"schedule"`
	RetentionDays int    `toml:"retention_days" yaml:"retention_days"`
}

// Retention returns how long finished rows are kept.
func (c CleanupConfig) Retention() time.Duration {
	return time.Duration(c.RetentionDays) * 24 * time.Hour
}

// MetricsConfig configures the Prometheus listener.
type MetricsConfig struct {
	Enabled   bool   `toml:"enabled" yaml:"enabled"`
	Listen    string `toml:"listen" yaml:"listen"`
	Namespace string `toml:"namespace" yaml:"namespace"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `toml:"level" yaml:"level"`
	Format string `toml:"format" yaml:"format"`
	Output string `toml:"output" yaml:"output"`
}
