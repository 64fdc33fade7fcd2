// Package supervisor owns the collection of workers built from paired
// input folders. It fans out start-all/stop-all, rebuilds the set on
// refresh, and aggregates status snapshots for display. Workers share
// nothing with each other; the supervisor only holds collection
// membership.
package supervisor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"dreambatch/pkg/config"
	"dreambatch/pkg/genapi"
	"dreambatch/pkg/worker"
)

// debounceWindow coalesces bursts of fsnotify events into one refresh
// notification.
const debounceWindow = 500 * time.Millisecond

// Supervisor builds and controls the worker set.
type Supervisor struct {
	cfg  config.Config
	sink worker.EventSink

	// newGenerator and newDownloader build the API collaborators for each
	// worker; tests substitute fakes.
	newGenerator  func(cfg config.Config) genapi.Generator
	newDownloader func(cfg config.Config) genapi.Downloader

	mu      sync.Mutex
	workers []*worker.Worker
}

// New creates a Supervisor. sink receives events from every worker and
// may be nil.
func New(cfg config.Config, sink worker.EventSink) *Supervisor {
	return &Supervisor{
		cfg:  cfg,
		sink: sink,
		newGenerator: func(cfg config.Config) genapi.Generator {
			return genapi.NewClient(cfg.Endpoint, cfg.GenerateTimeout())
		},
		newDownloader: func(cfg config.Config) genapi.Downloader {
			return genapi.NewDownloader(cfg.DownloadTimeout())
		},
	}
}

// SetFactories overrides the collaborator constructors (for testing).
func (s *Supervisor) SetFactories(gen func(config.Config) genapi.Generator, dl func(config.Config) genapi.Downloader) {
	s.newGenerator = gen
	s.newDownloader = dl
}

// LoadWorkers pairs the input folders and replaces the current worker
// set. Any previous set is stopped and discarded first. On a pairing
// error the previous set is still discarded; no partial set is built.
func (s *Supervisor) LoadWorkers() error {
	s.StopAll()

	s.mu.Lock()
	s.workers = nil
	s.mu.Unlock()

	pairs, err := PairFiles(s.cfg.PromptDir, s.cfg.SessionDir)
	if err != nil {
		return err
	}

	built := make([]*worker.Worker, 0, len(pairs))
	for _, pair := range pairs {
		ov, err := config.LoadOverrides(pair.PromptFile)
		if err != nil {
			return fmt.Errorf("worker %s: %w", pair.Name(), err)
		}
		cfg := ov.Apply(s.cfg)
		w := worker.New(pair.PromptFile, pair.SessionFile, cfg,
			s.newGenerator(cfg), s.newDownloader(cfg), s.sink)
		built = append(built, w)
	}

	s.mu.Lock()
	s.workers = built
	s.mu.Unlock()
	return nil
}

// Workers returns the current worker set.
func (s *Supervisor) Workers() []*worker.Worker {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*worker.Worker(nil), s.workers...)
}

// Snapshots returns a point-in-time status copy of every worker.
func (s *Supervisor) Snapshots() []worker.Snapshot {
	workers := s.Workers()
	snaps := make([]worker.Snapshot, len(workers))
	for i, w := range workers {
		snaps[i] = w.Snapshot()
	}
	return snaps
}

// RunAll starts every worker that is not already running. Workers run
// concurrently with no defined interleaving.
func (s *Supervisor) RunAll(ctx context.Context) {
	for _, w := range s.Workers() {
		w.Start(ctx)
	}
}

// StopAll requests stop on every running worker without blocking for
// in-flight prompts.
func (s *Supervisor) StopAll() {
	for _, w := range s.Workers() {
		w.Stop()
	}
}

// Wait blocks until every worker's run goroutine has exited.
func (s *Supervisor) Wait() {
	for _, w := range s.Workers() {
		w.Wait()
	}
}

// Refresh stops all workers, re-scans the input folders, and rebuilds the
// worker set.
func (s *Supervisor) Refresh() error {
	return s.LoadWorkers()
}

// Watch monitors the prompt and session folders with fsnotify and invokes
// onChange (debounced) when their contents change, so the control surface
// can offer or trigger a refresh. Watch blocks until ctx is cancelled.
// Watcher setup failure is non-fatal: the method just returns, and manual
// refresh still works.
func (s *Supervisor) Watch(ctx context.Context, onChange func()) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(s.cfg.PromptDir); err != nil {
		return
	}
	if err := watcher.Add(s.cfg.SessionDir); err != nil {
		return
	}

	var pending *time.Timer
	defer func() {
		if pending != nil {
			pending.Stop()
		}
	}()

	fire := make(chan struct{}, 1)
	for {
		select {
		case <-ctx.Done():
			return
		case <-watcher.Events:
			if pending != nil {
				pending.Stop()
			}
			pending = time.AfterFunc(debounceWindow, func() {
				select {
				case fire <- struct{}{}:
				default:
				}
			})
		case <-fire:
			onChange()
		case <-watcher.Errors:
			// Watch errors are non-fatal; manual refresh still works.
		}
	}
}
