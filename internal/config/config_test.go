package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testToken = "123456789:ABCdefGHIjklMNOpqrSTUvwxYZ"

func validConfig() *Config {
	cfg := &Config{
		Telegram: TelegramConfig{Token: testToken, Admins: []int64{42}},
		Storage:  StorageConfig{Path: "/var/lib/dmbot/dmbot.db"},
		Cleanup:  CleanupConfig{Enabled: true},
	}
	applyDefaults(cfg)
	return cfg
}

func TestConfigDefaults(t *testing.T) {
	cfg := &Config{}
	applyDefaults(cfg)

	assert.Equal(t, 30, cfg.Telegram.PollTimeoutSeconds)
	assert.Equal(t, 30*time.Second, cfg.Telegram.SendTimeout())
	assert.True(t, strings.HasSuffix(cfg.Storage.Path, filepath.Join(".dmbot", "dmbot.db")))
	assert.Equal(t, "Local", cfg.Scheduler.Timezone)
	assert.Equal(t, time.Second, cfg.Scheduler.PollInterval())
	assert.Equal(t, 3, cfg.Delivery.MaxAttempts)
	assert.Equal(t, 4, cfg.Workers.PoolSize)
	assert.Equal(t, "@daily", cfg.Cleanup.Schedule)
	assert.Equal(t, 30*24*time.Hour, cfg.Cleanup.Retention())
	assert.Equal(t, "dmbot", cfg.Metrics.Namespace)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "stdout", cfg.Logging.Output)
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"missing token", func(c *Config) { c.Telegram.Token = "" }, "telegram.token is required"},
		{"bad token", func(c *Config) { c.Telegram.Token = "not-a-token" }, "invalid format"},
		{"bad admin", func(c *Config) { c.Telegram.Admins = []int64{0} }, "telegram.admins"},
		{"bad timezone", func(c *Config) { c.Scheduler.Timezone = "Mars/Olympus" }, "scheduler.timezone"},
		{"poll interval", func(c *Config) { c.Scheduler.PollIntervalMS = 5 }, "scheduler.poll_interval_ms"},
		{"attempts", func(c *Config) { c.Delivery.MaxAttempts = -1 }, "delivery.max_attempts"},
		{"backoff", func(c *Config) { c.Delivery.MaxBackoffMS = 10 }, "delivery.max_backoff_ms"},
		{"pool", func(c *Config) { c.Workers.PoolSize = -1 }, "workers.pool_size"},
		{"cron", func(c *Config) { c.Cleanup.Schedule = "every day" }, "cleanup.schedule"},
		{"cron disabled", func(c *Config) { c.Cleanup.Enabled = false; c.Cleanup.Schedule = "every day" }, ""},
		{"metrics", func(c *Config) { c.Metrics.Enabled = true; c.Metrics.Listen = "" }, "metrics.listen"},
		{"level", func(c *Config) { c.Logging.Level = "verbose" }, "logging.level"},
		{"format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"traversal", func(c *Config) { c.Storage.Path = "/var/../etc/db" }, "path traversal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			errs := cfg.Validate()

			if tt.wantErr == "" {
				assert.Empty(t, errs)
				return
			}
			require.NotEmpty(t, errs)
			var msgs []string
			for _, err := range errs {
				msgs = append(msgs, err.Error())
			}
			assert.Contains(t, strings.Join(msgs, "\n"), tt.wantErr)
		})
	}
}

func TestValidateTelegramToken_MasksSecret(t *testing.T) {
	err := validateTelegramToken("12:short-secret-value")
	require.Error(t, err)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "telegram.token", verr.Field)
	assert.NotContains(t, err.Error(), "short-secret-value")
	assert.Contains(t, err.Error(), "12:shor")
}

func TestLoad_TOML(t *testing.T) {
	t.Setenv("DMBOT_TEST_TOKEN", testToken)

	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[telegram]
token = "${DMBOT_TEST_TOKEN}"
admins = [42, 43]

[storage]
path = "${DMBOT_TEST_DB:/tmp/dmbot-test.db}"

[scheduler]
timezone = "Europe/Berlin"

[cleanup]
enabled = true
schedule = "0 3 * * *"
retention_days = 7

[logging]
level = "debug"
format = "text"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, testToken, cfg.Telegram.Token)
	assert.Equal(t, []int64{42, 43}, cfg.Telegram.Admins)
	assert.True(t, cfg.Telegram.IsAdmin(43))
	assert.False(t, cfg.Telegram.IsAdmin(44))
	assert.Equal(t, "/tmp/dmbot-test.db", cfg.Storage.Path)
	assert.Equal(t, "0 3 * * *", cfg.Cleanup.Schedule)
	assert.Equal(t, "debug", cfg.Logging.Level)

	loc, err := cfg.Scheduler.Location()
	require.NoError(t, err)
	assert.Equal(t, "Europe/Berlin", loc.String())

	assert.Empty(t, cfg.Validate())
}

func TestLoad_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
telegram:
  token: "` + testToken + `"
  admins: [7]
  quiet_mode: true
delivery:
  rate_per_sec: 2.5
workers:
  pool_size: 8
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, testToken, cfg.Telegram.Token)
	assert.True(t, cfg.Telegram.QuietMode)
	assert.Equal(t, 2.5, cfg.Delivery.RatePerSec)
	assert.Equal(t, 8, cfg.Workers.PoolSize)
	assert.Equal(t, 64, cfg.Workers.QueueSize)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.ErrorContains(t, err, "failed to read config file")

	path := filepath.Join(t.TempDir(), "broken.toml")
	require.NoError(t, os.WriteFile(path, []byte("[telegram\ntoken = "), 0o600))
	_, err = Load(path)
	assert.ErrorContains(t, err, "failed to parse config file")
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("DMBOT_SET", "value")

	assert.Equal(t, "value", expandEnv("${DMBOT_SET}"))
	assert.Equal(t, "value", expandEnv("${DMBOT_SET:fallback}"))
	assert.Equal(t, "fallback", expandEnv("${DMBOT_UNSET_VARIABLE:fallback}"))
	assert.Equal(t, "", expandEnv("${DMBOT_UNSET_VARIABLE}"))
	assert.Equal(t, "plain", expandEnv("plain"))
	assert.Equal(t, "${broken", expandEnv("${broken"))
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, "data", "db"), expandHome("~/data/db"))
	assert.Equal(t, "/abs/path", expandHome("/abs/path"))
}

func TestMaskTelegramToken(t *testing.T) {
	assert.Equal(t, "123456789:ABCd******************wxYZ", MaskTelegramToken(testToken))
	assert.Equal(t, "***", MaskTelegramToken("short"))
	assert.Equal(t, "", maskSecret(""))
}
