package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"eventadmission/config"
)

var (
	cfg    *config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:           "eventadmission",
	Short:         "Event registration admission and waiting list service",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger = config.NewLogger()
		loaded, err := config.Load()
		if err != nil {
			logger.Error("invalid configuration", "err", err)
			return err
		}
		cfg = loaded
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(tokenCmd)
}

// Execute runs the root command.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		if logger != nil {
			logger.Error("command failed", "err", err)
		} else {
			slog.Error("command failed", "err", err)
		}
		return err
	}
	return nil
}
