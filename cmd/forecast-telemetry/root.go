package main

import (
	cobra "github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           appName,
		Short:         "forecast-telemetry publishes weather forecasts for a moving position as telemetry",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(newServeCommand())
	rootCmd.AddCommand(newMetaCommand())
	rootCmd.AddCommand(newVersionCommand())
	return rootCmd
}
