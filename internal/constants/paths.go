package constants

// Locations used when no flag or config key overrides them.
const (
	DefaultConfigPath   = "./config.toml"
	DefaultEnvPath      = "./.env"
	DefaultDatabasePath = "~/.dmbot/dmbot.db"
)
