package main

import (
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

type commandContext struct {
	logLevel string
	logger   *log.Logger
}

func newRootCommand() *cobra.Command {
	ctx := &commandContext{}

	rootCmd := &cobra.Command{
		Use:           "clarity-podcast",
		Short:         "Serve the Social Media Clarity podcast feed and website",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := log.ParseLevel(ctx.logLevel)
			if err != nil {
				return err
			}
			ctx.logger = log.NewWithOptions(cmd.ErrOrStderr(), log.Options{
				ReportTimestamp: true,
				Level:           level,
				Prefix:          "clarity-podcast",
			})
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVar(&ctx.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(newFeedCommand(ctx))
	rootCmd.AddCommand(newWebCommand(ctx))
	rootCmd.AddCommand(newCheckCommand(ctx))
	rootCmd.AddCommand(newProbeCommand(ctx))
	rootCmd.AddCommand(newPrerenderCommand(ctx))

	return rootCmd
}
