package main

import (
	"errors"
	"fmt"

	"github.com/aatumaykin/dmbot/internal/config"
	"github.com/aatumaykin/dmbot/internal/constants"
	"github.com/aatumaykin/dmbot/internal/messages"
	"github.com/spf13/cobra"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long:  `Validate dmbot configuration.`,
}

// configValidateCmd represents the config validate command
var configValidateCmd = &cobra.Command{
	Use:   "validate [config-file]",
	Short: "Validate configuration file",
	Long:  `Validate the configuration file and check for errors.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configPath
		if len(args) > 0 {
			path = args[0]
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, constants.MsgConfigValidating, path)

		cfg, err := config.Load(path)
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		if errs := cfg.Validate(); len(errs) > 0 {
			fmt.Fprint(out, messages.FormatValidationErrors(errs))
			return errors.New("configuration is invalid")
		}

		fmt.Fprintln(out, constants.MsgConfigValid)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configValidateCmd)
}
