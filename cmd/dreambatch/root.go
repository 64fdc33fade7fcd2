package main

import (
	"github.com/spf13/cobra"
)

// newRootCmd creates the root dreambatch command with all subcommands
// attached.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "dreambatch",
		Short:         "Batch image generation runner",
		Long:          "dreambatch pairs prompt files with session files and drives batch\nimage generation against a remote API, rotating credentials on failure.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringP("config", "c", "", "path to dreambatch.toml (default: ./dreambatch.toml)")

	cmd.AddCommand(
		newInitCmd(),
		newRunCmd(),
		newValidateCmd(),
		newLogsCmd(),
		newDashCmd(),
	)

	return cmd
}

// configPathFromFlags resolves the --config flag to a config file path.
func configPathFromFlags(cmd *cobra.Command) (string, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return "", err
	}
	if path == "" {
		path = "dreambatch.toml"
	}
	return path, nil
}
