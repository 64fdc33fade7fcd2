// Package worker implements the per-worker execution engine: one worker
// owns a (prompt file, session file) pair and drives each prompt through
// rotating credentials until success, pool exhaustion, or abort. Workers
// share nothing but configuration; the only cross-goroutine state is an
// atomic running flag and a mutex-guarded snapshot.
package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"dreambatch/pkg/config"
	"dreambatch/pkg/genapi"
	"dreambatch/pkg/session"
)

// Status is a worker's lifecycle state.
type Status string

// Worker status constants.
const (
	StatusIdle     Status = "idle"
	StatusRunning  Status = "running"
	StatusStopping Status = "stopping"
	StatusStopped  Status = "stopped"
	StatusError    Status = "error"
)

// Snapshot is a point-in-time copy of worker state, safe to read from any
// goroutine. The worker is the only writer of the underlying fields.
type Snapshot struct {
	Name        string
	PromptFile  string
	SessionFile string
	Status      Status
	StatusText  string
	PromptIndex int // 1-based index of the prompt being processed
	PromptTotal int
	Ratio       string
	Model       string
	RunID       string
}

// Worker pairs one prompt file with one session file and processes the
// prompts sequentially on its own goroutine.
type Worker struct {
	name        string
	promptFile  string
	sessionFile string
	outDir      string
	resolution  string
	gen         genapi.Generator
	download    genapi.Downloader
	sink        EventSink

	running atomic.Bool
	wg      sync.WaitGroup

	mu          sync.Mutex
	stop        *atomic.Bool // stop request for the current run
	status      Status
	statusText  string
	promptIndex int
	promptTotal int
	model       string
	ratio       string
	endpoint    string
	runID       string
}

// New creates a Worker for one (prompt file, session file) pair. cfg is
// the effective configuration for this worker, sidecar overrides already
// applied. The worker is Idle until Start.
func New(promptFile, sessionFile string, cfg config.Config, gen genapi.Generator, dl genapi.Downloader, sink EventSink) *Worker {
	if sink == nil {
		sink = NopSink
	}
	stem := strings.TrimSuffix(filepath.Base(promptFile), filepath.Ext(promptFile))
	return &Worker{
		name:        stem,
		promptFile:  promptFile,
		sessionFile: sessionFile,
		outDir:      filepath.Join(cfg.OutputDir, stem),
		resolution:  cfg.Resolution,
		gen:         gen,
		download:    dl,
		sink:        sink,
		status:      StatusIdle,
		statusText:  "Ready",
		model:       cfg.Model,
		ratio:       cfg.Ratio,
		endpoint:    cfg.Endpoint,
	}
}

// Name returns the worker's display name (the prompt file stem).
func (w *Worker) Name() string {
	return w.name
}

// Snapshot returns a copy of the worker's current state.
func (w *Worker) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	return Snapshot{
		Name:        w.name,
		PromptFile:  filepath.Base(w.promptFile),
		SessionFile: filepath.Base(w.sessionFile),
		Status:      w.status,
		StatusText:  w.statusText,
		PromptIndex: w.promptIndex,
		PromptTotal: w.promptTotal,
		Ratio:       w.ratio,
		Model:       w.model,
		RunID:       w.runID,
	}
}

// Running reports whether the worker's run loop is active.
func (w *Worker) Running() bool {
	return w.running.Load()
}

// SetRatio changes the aspect ratio used by subsequent attempts. Unknown
// ratios are rejected.
func (w *Worker) SetRatio(ratio string) error {
	if !config.ValidRatio(ratio) {
		return fmt.Errorf("unknown ratio %q", ratio)
	}
	w.mu.Lock()
	w.ratio = ratio
	w.mu.Unlock()
	return nil
}

// SetModel changes the model used by subsequent attempts.
func (w *Worker) SetModel(model string) {
	w.mu.Lock()
	w.model = model
	w.mu.Unlock()
}

// Start launches the run goroutine. It is a no-op while a previous run
// goroutine is still alive, including one that is draining after Stop,
// so two run loops never interleave. Load failures surface through the
// worker's status, not through Start. A restart always begins the batch
// again from the first prompt.
func (w *Worker) Start(ctx context.Context) {
	if !w.running.CompareAndSwap(false, true) {
		return
	}

	stop := new(atomic.Bool)
	runID := uuid.NewString()
	w.mu.Lock()
	w.stop = stop
	w.status = StatusRunning
	w.statusText = "Running..."
	w.promptIndex = 0
	w.promptTotal = 0
	w.runID = runID
	w.mu.Unlock()

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer w.running.Store(false)
		w.run(ctx, runID, stop)
	}()
}

// Stop requests a halt of the current run. It does not block waiting for
// the in-flight prompt; the run loop observes the request at its next
// check point. The running flag stays set until the run goroutine exits,
// so a Start issued while the run is draining is a no-op rather than a
// second concurrent loop.
func (w *Worker) Stop() {
	if !w.running.Load() {
		return
	}
	w.mu.Lock()
	stop := w.stop
	if w.status == StatusRunning {
		w.status = StatusStopping
		w.statusText = "Stopping..."
	}
	w.mu.Unlock()
	if stop != nil {
		stop.Store(true)
	}
}

// Wait blocks until the current run goroutine has exited. Returns
// immediately when no run is in flight.
func (w *Worker) Wait() {
	w.wg.Wait()
}

// run is the worker's main loop: load sessions and prompts, then process
// each prompt in file order. stop belongs to this run alone; a later run
// gets a fresh one.
func (w *Worker) run(ctx context.Context, runID string, stop *atomic.Bool) {
	pool, err := session.Load(w.sessionFile)
	if err != nil {
		w.emit(runID, LevelError, "error loading sessions: %v", err)
		w.setTerminal(StatusError, "Error: no sessions")
		return
	}
	w.emit(runID, LevelInfo, "loaded %d sessions", pool.Size())

	prompts, err := loadPrompts(w.promptFile)
	if err != nil {
		w.emit(runID, LevelError, "error reading prompts: %v", err)
		w.setTerminal(StatusError, "Error: no prompts")
		return
	}

	w.mu.Lock()
	w.promptTotal = len(prompts)
	w.mu.Unlock()
	w.emit(runID, LevelInfo, "processing %d prompts", len(prompts))

	proc := &processor{
		pool:     pool,
		gen:      w.gen,
		download: w.download,
		running:  func() bool { return !stop.Load() },
		params:   w.callParams,
		outDir:   w.outDir,
		emit: func(level, format string, args ...any) {
			w.emit(runID, level, format, args...)
		},
	}

	for i, prompt := range prompts {
		if stop.Load() {
			w.emit(runID, LevelInfo, "stopped by user")
			w.setTerminal(StatusStopped, "Stopped")
			return
		}

		w.mu.Lock()
		w.promptIndex = i + 1
		w.statusText = fmt.Sprintf("Processing %d/%d", i+1, len(prompts))
		w.mu.Unlock()
		w.emit(runID, LevelInfo, "prompt %d/%d: %s", i+1, len(prompts), truncatePrompt(prompt))

		switch proc.process(ctx, prompt) {
		case Completed:
			w.emit(runID, LevelInfo, "prompt %d completed", i+1)
		case Aborted:
			w.emit(runID, LevelWarn, "prompt %d aborted", i+1)
		case SessionsExhausted:
			w.emit(runID, LevelWarn, "prompt %d: all sessions exhausted", i+1)
		case Stopped:
			w.emit(runID, LevelInfo, "stopped by user")
			w.setTerminal(StatusStopped, "Stopped")
			return
		}
	}

	w.emit(runID, LevelInfo, "finished")
	w.setTerminal(StatusStopped, "Completed")
}

// callParams snapshots the request settings for one attempt.
func (w *Worker) callParams() callParams {
	w.mu.Lock()
	defer w.mu.Unlock()
	return callParams{
		Model:      w.model,
		Ratio:      w.ratio,
		Resolution: w.resolution,
		Endpoint:   w.endpoint,
	}
}

// setTerminal records the final status of a run.
func (w *Worker) setTerminal(status Status, text string) {
	w.mu.Lock()
	w.status = status
	w.statusText = text
	w.mu.Unlock()
}

// emit sends one timestamped event to the sink.
func (w *Worker) emit(runID, level, format string, args ...any) {
	w.sink.Emit(Event{
		Time:    time.Now(),
		RunID:   runID,
		Worker:  w.name,
		Level:   level,
		Message: fmt.Sprintf(format, args...),
	})
}

// loadPrompts reads prompts from path, one per line, trimmed, blank lines
// skipped. Zero prompts is an error.
func loadPrompts(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open prompt file: %w", err)
	}
	defer f.Close()

	var prompts []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		prompts = append(prompts, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read prompt file: %w", err)
	}
	if len(prompts) == 0 {
		return nil, fmt.Errorf("prompt file %s: no prompts found", path)
	}
	return prompts, nil
}

// truncatePrompt shortens a prompt for log lines.
func truncatePrompt(p string) string {
	const maxLen = 80
	if len(p) <= maxLen {
		return p
	}
	return p[:maxLen] + "..."
}
