package main

import (
	"github.com/aatumaykin/dmbot/internal/config"
	"github.com/aatumaykin/dmbot/internal/constants"
	"github.com/spf13/cobra"
)

var (
	configPath string
	envPath    string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "dmbot",
	Short: "dmbot - scheduled direct messages for Telegram",
	Long: `dmbot is a Telegram bot that sends direct messages on behalf of its
users at a set time, once or every day.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return config.LoadEnvOptional(envPath)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", constants.DefaultConfigPath, "path to the configuration file")
	rootCmd.PersistentFlags().StringVar(&envPath, "env", constants.DefaultEnvPath, "path to an optional .env file")

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(actionsCmd)
	rootCmd.AddCommand(usersCmd)
}
