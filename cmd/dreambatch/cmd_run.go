package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"dreambatch/pkg/config"
	"dreambatch/pkg/eventlog"
	"dreambatch/pkg/supervisor"
	"dreambatch/pkg/worker"
)

// newRunCmd creates the "dreambatch run" subcommand: a headless run of
// every paired worker to completion.
func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run all workers to completion",
		Long:  "Pairs prompt files with session files, starts one worker per pair,\nand waits for all of them to finish. Ctrl-C requests a graceful stop;\na second Ctrl-C exits immediately.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath, err := configPathFromFlags(cmd)
			if err != nil {
				return err
			}
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			return runHeadless(cmd.Context(), cfg)
		},
	}
}

// newLogger builds the CLI logger: human-readable console output on a
// TTY, JSON lines otherwise.
func newLogger() zerolog.Logger {
	if isatty.IsTerminal(os.Stderr.Fd()) {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}).
			With().Timestamp().Logger()
	}
	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}

// runHeadless executes every worker and blocks until completion or a
// stop signal.
func runHeadless(ctx context.Context, cfg config.Config) error {
	logger := newLogger()

	dbPath := cfg.EventDBPath
	if dbPath == "" {
		dbPath = eventlog.DefaultDBPath()
	}

	var elog *eventlog.Writer
	if w, err := eventlog.NewWriter(dbPath); err != nil {
		logger.Warn().Err(err).Msg("event log unavailable, continuing without history")
	} else {
		elog = w
		defer elog.Close()
	}

	sink := worker.SinkFunc(func(e worker.Event) {
		var ev *zerolog.Event
		switch e.Level {
		case worker.LevelError:
			ev = logger.Error()
		case worker.LevelWarn:
			ev = logger.Warn()
		default:
			ev = logger.Info()
		}
		ev.Str("worker", e.Worker).Msg(e.Message)

		if elog != nil {
			appendCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := elog.Append(appendCtx, e.RunID, e.Worker, e.Level, e.Message); err != nil {
				logger.Debug().Err(err).Msg("event log append failed")
			}
			cancel()
		}
	})

	sup := supervisor.New(cfg, sink)
	if err := sup.LoadWorkers(); err != nil {
		return err
	}

	snaps := sup.Snapshots()
	logger.Info().Int("workers", len(snaps)).
		Str("batch_id", uuid.NewString()).
		Msg("starting batch run")
	for _, s := range snaps {
		logger.Info().Str("worker", s.Name).
			Str("prompts", s.PromptFile).
			Str("sessions", s.SessionFile).
			Str("ratio", s.Ratio).
			Msg("worker loaded")
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	sup.RunAll(runCtx)

	done := make(chan struct{})
	go func() {
		sup.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-sigCh:
		logger.Info().Msg("stop requested, waiting for in-flight prompts")
		sup.StopAll()
		select {
		case <-done:
		case <-sigCh:
			logger.Warn().Msg("second interrupt, abandoning in-flight prompts")
			cancel()
			<-done
		}
	}

	failed := 0
	for _, s := range sup.Snapshots() {
		logger.Info().Str("worker", s.Name).
			Str("status", string(s.Status)).
			Str("detail", s.StatusText).
			Msg("worker finished")
		if s.Status == worker.StatusError {
			failed++
		}
	}
	if failed > 0 {
		logger.Warn().Int("failed", failed).Msg("some workers ended in error")
	}
	return nil
}
