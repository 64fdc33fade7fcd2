package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"dreambatch/pkg/config"
)

// newInitCmd creates the "dreambatch init" subcommand: scaffold the input
// folders and a commented default config in the working directory.
func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Scaffold input folders and a default config",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Default()
			out := cmd.OutOrStdout()

			for _, dir := range []string{cfg.PromptDir, cfg.SessionDir, cfg.OutputDir} {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return fmt.Errorf("create %s: %w", dir, err)
				}
				fmt.Fprintf(out, "created %s/\n", dir)
			}

			if err := config.WriteDefault(config.DefaultFileName); err != nil {
				fmt.Fprintf(out, "skipped %s: %v\n", config.DefaultFileName, err)
			} else {
				fmt.Fprintf(out, "created %s\n", config.DefaultFileName)
			}

			fmt.Fprintln(out, "\nDrop matching .txt files into prompt/ and session/, then run:")
			fmt.Fprintln(out, "  dreambatch validate")
			fmt.Fprintln(out, "  dreambatch run")
			return nil
		},
	}
}
