package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/aatumaykin/dmbot/internal/constants"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// Load reads the configuration file at path. The format follows the file
// extension: .yaml and .yml are YAML, anything else is TOML.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &cfg)
	default:
		err = toml.Unmarshal(data, &cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	expandEnvVars(&cfg)
	applyDefaults(&cfg)

	return &cfg, nil
}

// Validate checks the configuration and returns every problem found.
func (c *Config) Validate() []error {
	var errs []error

	if c.Telegram.Token == "" {
		errs = append(errs, fmt.Errorf("telegram.token is required"))
	} else if err := validateTelegramToken(c.Telegram.Token); err != nil {
		errs = append(errs, err)
	}
	for _, id := range c.Telegram.Admins {
		if id <= 0 {
			errs = append(errs, fmt.Errorf("telegram.admins contains invalid user id %d", id))
		}
	}
	if c.Telegram.PollTimeoutSeconds < 0 {
		errs = append(errs, fmt.Errorf("telegram.poll_timeout_seconds must be >= 0"))
	}
	if c.Telegram.SendTimeoutSeconds < 1 {
		errs = append(errs, fmt.Errorf("telegram.send_timeout_seconds must be >= 1"))
	}

	if c.Storage.Path == "" {
		errs = append(errs, fmt.Errorf("storage.path is required"))
	} else if err := validatePath(c.Storage.Path, "storage.path"); err != nil {
		errs = append(errs, err)
	}

	if _, err := c.Scheduler.Location(); err != nil {
		errs = append(errs, fmt.Errorf("scheduler.timezone: %w", err))
	}
	if c.Scheduler.PollIntervalMS < 10 || c.Scheduler.PollIntervalMS > 60000 {
		errs = append(errs, fmt.Errorf("scheduler.poll_interval_ms must be between 10 and 60000 (got %d)", c.Scheduler.PollIntervalMS))
	}

	if c.Delivery.RatePerSec < 0 {
		errs = append(errs, fmt.Errorf("delivery.rate_per_sec must be >= 0"))
	}
	if c.Delivery.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("delivery.max_attempts must be >= 1"))
	}
	if c.Delivery.MaxBackoffMS < c.Delivery.InitialBackoffMS {
		errs = append(errs, fmt.Errorf("delivery.max_backoff_ms must not be less than delivery.initial_backoff_ms"))
	}

	if c.Workers.PoolSize < 1 {
		errs = append(errs, fmt.Errorf("workers.pool_size must be >= 1"))
	}
	if c.Workers.QueueSize < 0 {
		errs = append(errs, fmt.Errorf("workers.queue_size must be >= 0"))
	}

	if c.Cleanup.Enabled {
		if _, err := cron.ParseStandard(c.Cleanup.Schedule); err != nil {
			errs = append(errs, fmt.Errorf("invalid cleanup.schedule %q: %w", c.Cleanup.Schedule, err))
		}
		if c.Cleanup.RetentionDays < 1 {
			errs = append(errs, fmt.Errorf("cleanup.retention_days must be >= 1"))
		}
	}

	if c.Metrics.Enabled && c.Metrics.Listen == "" {
		errs = append(errs, fmt.Errorf("metrics.listen is required when metrics are enabled"))
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Errorf("invalid logging.level: %s (expected: debug, info, warn, error)", c.Logging.Level))
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, fmt.Errorf("invalid logging.format: %s (expected: json, text)", c.Logging.Format))
	}
	if c.Logging.Output == "" {
		errs = append(errs, fmt.Errorf("logging.output is required"))
	}

	return errs
}

func validateTelegramToken(token string) error {
	botID, secret, ok := strings.Cut(token, ":")
	if !ok || strings.Contains(secret, ":") {
		return formatValidationError("telegram.token",
			"invalid format (expected <bot_id>:<token>)", token)
	}

	if len(botID) < 3 || len(botID) > 15 {
		return formatValidationError("telegram.token",
			fmt.Sprintf("invalid bot ID length (expected 3-15 digits, got %d)", len(botID)), token)
	}
	for _, r := range botID {
		if r < '0' || r > '9' {
			return formatValidationError("telegram.token", "bot ID must contain digits only", token)
		}
	}

	if len(secret) < 10 || len(secret) > 50 {
		return formatValidationError("telegram.token",
			fmt.Sprintf("invalid token length (expected 10-50 characters, got %d)", len(secret)), token)
	}

	return nil
}

func validatePath(path, fieldName string) error {
	if strings.HasPrefix(path, "~") {
		return nil
	}
	if strings.Contains(path, "..") {
		return fmt.Errorf("%s contains potentially dangerous path traversal sequence", fieldName)
	}
	return nil
}

// applyDefaults fills every unset field.
func applyDefaults(c *Config) {
	setDefault(&c.Telegram.PollTimeoutSeconds, constants.DefaultPollTimeoutSeconds)
	setDefault(&c.Telegram.SendTimeoutSeconds, constants.DefaultSendTimeoutSeconds)

	setDefault(&c.Storage.Path, expandHome(constants.DefaultDatabasePath))
	setDefault(&c.Storage.BusyTimeoutMS, constants.DefaultBusyTimeoutMS)

	setDefault(&c.Scheduler.Timezone, constants.DefaultTimezone)
	setDefault(&c.Scheduler.PollIntervalMS, constants.DefaultPollIntervalMS)

	setDefault(&c.Delivery.RatePerSec, constants.DefaultRatePerSec)
	setDefault(&c.Delivery.Burst, constants.DefaultBurst)
	setDefault(&c.Delivery.MaxAttempts, constants.DefaultMaxAttempts)
	setDefault(&c.Delivery.InitialBackoffMS, constants.DefaultInitialBackoffMS)
	setDefault(&c.Delivery.MaxBackoffMS, constants.DefaultMaxBackoffMS)

	setDefault(&c.Workers.PoolSize, constants.DefaultPoolSize)
	setDefault(&c.Workers.QueueSize, constants.DefaultQueueSize)

	setDefault(&c.Cleanup.Schedule, constants.DefaultCleanupSchedule)
	setDefault(&c.Cleanup.RetentionDays, constants.DefaultRetentionDays)

	setDefault(&c.Metrics.Listen, constants.DefaultMetricsListen)
	setDefault(&c.Metrics.Namespace, constants.DefaultMetricsNamespace)

	setDefault(&c.Logging.Level, constants.DefaultLogLevel)
	setDefault(&c.Logging.Format, constants.DefaultLogFormat)
	setDefault(&c.Logging.Output, constants.DefaultLogOutput)
}

func setDefault[T comparable](field *T, value T) {
	var zero T
	if *field == zero {
		*field = value
	}
}

// expandEnvVars expands ${VAR} references and ~ in the string fields that
// commonly hold secrets or paths.
func expandEnvVars(c *Config) {
	c.Telegram.Token = expandEnv(c.Telegram.Token)
	c.Storage.Path = expandHome(expandEnv(c.Storage.Path))
	c.Scheduler.Timezone = expandEnv(c.Scheduler.Timezone)
	c.Metrics.Listen = expandEnv(c.Metrics.Listen)
	c.Logging.Output = expandHome(expandEnv(c.Logging.Output))
}

// expandEnv expands a value of the form ${VAR} or ${VAR:default}. Other
// values are returned unchanged.
func expandEnv(s string) string {
	if !strings.HasPrefix(s, "${") || !strings.HasSuffix(s, "}") {
		return s
	}

	content := s[2 : len(s)-1]
	if key, def, ok := strings.Cut(content, ":"); ok {
		if val := os.Getenv(key); val != "" {
			return val
		}
		return def
	}

	return os.Getenv(content)
}

// expandHome expands a leading ~/ to the user's home directory.
func expandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
