package main

import (
	"github.com/spf13/cobra"

	// tracker drivers
	_ "github.com/eyelink-control/elg/internal/tracker/sim"
)

type rootOptions struct {
	configPath string
	envFile    string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:           "elg",
		Short:         "EyeLink command gateway",
		Long:          "elg accepts eye-tracker commands over HTTP, drives the tracker host and runs calibration in a child process.",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), opts)
		},
	}

	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "config file (default ./elg.yaml if present)")
	rootCmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file loaded before the environment is read")

	rootCmd.AddCommand(
		newServeCmd(opts),
		newCalibrateCmd(opts),
		newConfigCmd(opts),
		newVersionCmd(),
	)

	return rootCmd
}
