package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"dreambatch/pkg/config"
	"dreambatch/pkg/eventlog"
)

// logsConfig holds configuration for the logs command.
type logsConfig struct {
	runID string
	level string
	tail  int
}

// newLogsCmd creates the "dreambatch logs" subcommand: query past run
// events from the event database.
func newLogsCmd() *cobra.Command {
	var lc logsConfig

	cmd := &cobra.Command{
		Use:   "logs [worker]",
		Short: "Show recent events from past runs",
		Long:  "Displays events recorded in the event database.\nOptionally filter by worker name, run ID, and level.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var workerName string
			if len(args) == 1 {
				workerName = args[0]
			}

			cfgPath, err := configPathFromFlags(cmd)
			if err != nil {
				return err
			}
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}

			dbPath := cfg.EventDBPath
			if dbPath == "" {
				dbPath = eventlog.DefaultDBPath()
			}

			reader, err := eventlog.NewReader(dbPath)
			if err != nil {
				return fmt.Errorf("open event log: %w", err)
			}
			defer reader.Close()

			events, err := reader.Query(cmd.Context(), eventlog.QueryOpts{
				Worker: workerName,
				RunID:  lc.runID,
				Level:  lc.level,
				Limit:  lc.tail,
			})
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if len(events) == 0 {
				fmt.Fprintln(w, "no events found")
				return nil
			}

			// Query returns newest first; print oldest first so the
			// terminal reads top to bottom like a log file.
			for i := len(events) - 1; i >= 0; i-- {
				e := events[i]
				fmt.Fprintf(w, "%s  %-5s  %-16s  %s\n",
					e.CreatedAt.Format("2006-01-02 15:04:05"), e.Level, e.Worker, e.Message)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&lc.runID, "run", "", "filter by run ID")
	cmd.Flags().StringVar(&lc.level, "level", "", "filter by level (info, warn, error)")
	cmd.Flags().IntVar(&lc.tail, "tail", 50, "number of recent events to show")

	return cmd
}
