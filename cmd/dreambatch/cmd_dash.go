package main

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/spf13/cobra"
)

// newDashCmd creates the "dreambatch dash" subcommand.
func newDashCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dash",
		Short: "Launch interactive dashboard",
		Long:  "Opens the dreambatch dashboard TUI for controlling workers and\nwatching their logs.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath, err := configPathFromFlags(cmd)
			if err != nil {
				return err
			}

			dashCmd := exec.CommandContext(cmd.Context(), "dreambatch-dash")
			dashCmd.Env = append(os.Environ(), "DREAMBATCH_CONFIG="+cfgPath)
			dashCmd.Stdin = os.Stdin
			dashCmd.Stdout = os.Stdout
			dashCmd.Stderr = os.Stderr

			if err := dashCmd.Run(); err != nil {
				return fmt.Errorf("run dreambatch-dash: %w", err)
			}
			return nil
		},
	}
}
