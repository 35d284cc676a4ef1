package main

import (
	"github.com/spf13/cobra"

	"github.com/vizora/signage/pkg/logger"
)

func newRootCmd() *cobra.Command {
	var logLevel string

	root := &cobra.Command{
		Use:   "signagectl",
		Short: "Validate and preview signage templates",
		Long: `signagectl runs the template engine locally.

Examples:
  signagectl validate menu.hbs
  signagectl validate menu.hbs --format json
  signagectl preview menu.hbs --data sample.json
  signagectl preview news.hbs --source rss-source.json
  signagectl widgets`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	newLogger := func(cmd *cobra.Command) logger.Logger {
		return logger.NewLoggerWithWriterLevel(cmd.ErrOrStderr(), logLevel)
	}

	root.AddCommand(
		newValidateCmd(),
		newPreviewCmd(newLogger),
		newWidgetsCmd(newLogger),
	)
	return root
}
