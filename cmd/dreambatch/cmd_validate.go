package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"dreambatch/pkg/config"
	"dreambatch/pkg/supervisor"
)

// newValidateCmd creates the "dreambatch validate" subcommand. It runs
// the pairing check without starting any workers, so misconfigured input
// folders surface before a run.
func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check prompt/session pairing without running",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath, err := configPathFromFlags(cmd)
			if err != nil {
				return err
			}
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}

			pairs, err := supervisor.PairFiles(cfg.PromptDir, cfg.SessionDir)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%d worker pair(s):\n", len(pairs))
			for i, pair := range pairs {
				fmt.Fprintf(out, "  %2d. %s  <->  %s\n", i+1,
					filepath.Base(pair.PromptFile), filepath.Base(pair.SessionFile))
			}
			return nil
		},
	}
}
