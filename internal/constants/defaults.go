package constants

// Build information used when the linker does not inject any.
const (
	DefaultVersion   = "0.1.0-dev"
	DefaultBuildTime = "unknown"
	DefaultGitCommit = "unknown"
	DefaultGoVersion = "unknown"
)

// Runtime defaults applied to an unset configuration.
const (
	DefaultPollTimeoutSeconds = 30
	DefaultSendTimeoutSeconds = 30
	DefaultBusyTimeoutMS      = 5000
	DefaultTimezone           = "Local"
	DefaultPollIntervalMS     = 1000

	// Telegram allows about 30 messages per second per bot.
	DefaultRatePerSec       = 25
	DefaultBurst            = 5
	DefaultMaxAttempts      = 3
	DefaultInitialBackoffMS = 1000
	DefaultMaxBackoffMS     = 30000

	DefaultPoolSize  = 4
	DefaultQueueSize = 64

	DefaultCleanupSchedule = "@daily"
	DefaultRetentionDays   = 30

	DefaultMetricsListen    = "127.0.0.1:9464"
	DefaultMetricsNamespace = "dmbot"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
	DefaultLogOutput = "stdout"
)

// DefaultListLimit caps how many actions one list reply shows.
const DefaultListLimit = 50
