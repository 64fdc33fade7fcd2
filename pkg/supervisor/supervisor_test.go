package supervisor_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"dreambatch/pkg/config"
	"dreambatch/pkg/genapi"
	"dreambatch/pkg/supervisor"
	"dreambatch/pkg/worker"
)

// stubGenerator always succeeds with one image and records prompts seen.
type stubGenerator struct {
	mu      sync.Mutex
	prompts []string
	ratios  []string
}

func (g *stubGenerator) Generate(_ context.Context, req genapi.Request) genapi.Result {
	g.mu.Lock()
	g.prompts = append(g.prompts, req.Prompt)
	g.ratios = append(g.ratios, req.Ratio)
	g.mu.Unlock()
	return genapi.Result{StatusCode: 200, Body: []byte(`{"data":[{"url":"https://cdn.example/1"}]}`)}
}

// nopDownloader discards downloads.
type nopDownloader struct{}

func (nopDownloader) Download(_ context.Context, _, _ string) error { return nil }

// setupDirs creates prompt/session folders with n paired files.
func setupDirs(t *testing.T, n int) config.Config {
	t.Helper()
	root := t.TempDir()
	cfg := config.Default()
	cfg.PromptDir = filepath.Join(root, "prompt")
	cfg.SessionDir = filepath.Join(root, "session")
	cfg.OutputDir = filepath.Join(root, "outputs")
	for _, dir := range []string{cfg.PromptDir, cfg.SessionDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", dir, err)
		}
	}
	names := []string{"animals", "landscapes", "portraits", "vehicles"}
	for i := 0; i < n; i++ {
		name := names[i%len(names)]
		if err := os.WriteFile(filepath.Join(cfg.PromptDir, name+".txt"), []byte("a prompt\n"), 0o644); err != nil {
			t.Fatalf("write prompt file: %v", err)
		}
		if err := os.WriteFile(filepath.Join(cfg.SessionDir, name+".txt"), []byte("tok\n"), 0o644); err != nil {
			t.Fatalf("write session file: %v", err)
		}
	}
	return cfg
}

func newSupervisor(cfg config.Config, gen genapi.Generator) *supervisor.Supervisor {
	s := supervisor.New(cfg, nil)
	s.SetFactories(
		func(config.Config) genapi.Generator { return gen },
		func(config.Config) genapi.Downloader { return nopDownloader{} },
	)
	return s
}

func TestPairFiles_SortedNthWithNth(t *testing.T) {
	cfg := setupDirs(t, 3)

	pairs, err := supervisor.PairFiles(cfg.PromptDir, cfg.SessionDir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pairs) != 3 {
		t.Fatalf("expected 3 pairs, got %d", len(pairs))
	}
	want := []string{"animals", "landscapes", "portraits"}
	for i, pair := range pairs {
		if pair.Name() != want[i] {
			t.Fatalf("pair %d: expected %s, got %s", i, want[i], pair.Name())
		}
	}
}

func TestPairFiles_CountMismatchIsError(t *testing.T) {
	cfg := setupDirs(t, 2)
	if err := os.WriteFile(filepath.Join(cfg.PromptDir, "extra.txt"), []byte("x\n"), 0o644); err != nil {
		t.Fatalf("write extra prompt: %v", err)
	}

	_, err := supervisor.PairFiles(cfg.PromptDir, cfg.SessionDir)
	if !errors.Is(err, supervisor.ErrMismatch) {
		t.Fatalf("expected ErrMismatch, got %v", err)
	}
}

func TestPairFiles_EmptyDirsAreErrors(t *testing.T) {
	cfg := setupDirs(t, 0)

	_, err := supervisor.PairFiles(cfg.PromptDir, cfg.SessionDir)
	if !errors.Is(err, supervisor.ErrNoPromptFiles) {
		t.Fatalf("expected ErrNoPromptFiles, got %v", err)
	}

	if err := os.WriteFile(filepath.Join(cfg.PromptDir, "a.txt"), []byte("x\n"), 0o644); err != nil {
		t.Fatalf("write prompt: %v", err)
	}
	_, err = supervisor.PairFiles(cfg.PromptDir, cfg.SessionDir)
	if !errors.Is(err, supervisor.ErrNoSessionFiles) {
		t.Fatalf("expected ErrNoSessionFiles, got %v", err)
	}
}

func TestPairFiles_IgnoresNonTxtAndSidecars(t *testing.T) {
	cfg := setupDirs(t, 1)
	if err := os.WriteFile(filepath.Join(cfg.PromptDir, "animals.yaml"), []byte("ratio: \"16:9\"\n"), 0o644); err != nil {
		t.Fatalf("write sidecar: %v", err)
	}

	pairs, err := supervisor.PairFiles(cfg.PromptDir, cfg.SessionDir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pairs) != 1 {
		t.Fatalf("sidecar must not pair, got %d pairs", len(pairs))
	}
}

func TestLoadWorkers_BuildsOnePerPair(t *testing.T) {
	cfg := setupDirs(t, 2)
	s := newSupervisor(cfg, &stubGenerator{})

	if err := s.LoadWorkers(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := len(s.Workers()); got != 2 {
		t.Fatalf("expected 2 workers, got %d", got)
	}
}

func TestLoadWorkers_PairingErrorLeavesNoWorkers(t *testing.T) {
	cfg := setupDirs(t, 1)
	s := newSupervisor(cfg, &stubGenerator{})
	if err := s.LoadWorkers(); err != nil {
		t.Fatalf("first load: %v", err)
	}

	// Break the pairing, then reload: the old set is discarded and no
	// partial set replaces it.
	if err := os.WriteFile(filepath.Join(cfg.PromptDir, "extra.txt"), []byte("x\n"), 0o644); err != nil {
		t.Fatalf("write extra prompt: %v", err)
	}
	if err := s.LoadWorkers(); err == nil {
		t.Fatal("expected pairing error")
	}
	if got := len(s.Workers()); got != 0 {
		t.Fatalf("expected no workers after failed load, got %d", got)
	}
}

func TestLoadWorkers_AppliesSidecarOverrides(t *testing.T) {
	cfg := setupDirs(t, 1)
	sidecar := filepath.Join(cfg.PromptDir, "animals.yaml")
	if err := os.WriteFile(sidecar, []byte("ratio: \"9:16\"\n"), 0o644); err != nil {
		t.Fatalf("write sidecar: %v", err)
	}

	gen := &stubGenerator{}
	s := newSupervisor(cfg, gen)
	if err := s.LoadWorkers(); err != nil {
		t.Fatalf("load workers: %v", err)
	}

	s.RunAll(context.Background())
	s.Wait()

	gen.mu.Lock()
	defer gen.mu.Unlock()
	if len(gen.ratios) != 1 || gen.ratios[0] != "9:16" {
		t.Fatalf("sidecar ratio not applied: %v", gen.ratios)
	}
}

func TestRunAllStopAll(t *testing.T) {
	cfg := setupDirs(t, 3)
	gen := &stubGenerator{}
	s := newSupervisor(cfg, gen)
	if err := s.LoadWorkers(); err != nil {
		t.Fatalf("load workers: %v", err)
	}

	s.RunAll(context.Background())
	s.Wait()

	gen.mu.Lock()
	prompts := len(gen.prompts)
	gen.mu.Unlock()
	if prompts != 3 {
		t.Fatalf("expected one prompt per worker, got %d", prompts)
	}
	for _, snap := range s.Snapshots() {
		if snap.Status != worker.StatusStopped || snap.StatusText != "Completed" {
			t.Fatalf("worker %s not completed: %s / %s", snap.Name, snap.Status, snap.StatusText)
		}
	}

	// StopAll on finished workers is a no-op.
	s.StopAll()
	for _, snap := range s.Snapshots() {
		if snap.Status != worker.StatusStopped {
			t.Fatalf("stop on finished worker changed status to %s", snap.Status)
		}
	}
}

func TestRefresh_RebuildsWorkerSet(t *testing.T) {
	cfg := setupDirs(t, 1)
	s := newSupervisor(cfg, &stubGenerator{})
	if err := s.LoadWorkers(); err != nil {
		t.Fatalf("load workers: %v", err)
	}

	// Add a new pair and refresh.
	if err := os.WriteFile(filepath.Join(cfg.PromptDir, "new.txt"), []byte("p\n"), 0o644); err != nil {
		t.Fatalf("write prompt: %v", err)
	}
	if err := os.WriteFile(filepath.Join(cfg.SessionDir, "new.txt"), []byte("t\n"), 0o644); err != nil {
		t.Fatalf("write session: %v", err)
	}

	if err := s.Refresh(); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if got := len(s.Workers()); got != 2 {
		t.Fatalf("expected 2 workers after refresh, got %d", got)
	}
}

func TestWatch_NotifiesOnFolderChange(t *testing.T) {
	cfg := setupDirs(t, 1)
	s := newSupervisor(cfg, &stubGenerator{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan struct{}, 1)
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Watch(ctx, func() {
			select {
			case changed <- struct{}{}:
			default:
			}
		})
	}()

	// Give the watcher a moment to register, then touch the prompt dir.
	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(filepath.Join(cfg.PromptDir, "late.txt"), []byte("p\n"), 0o644); err != nil {
		t.Fatalf("write prompt: %v", err)
	}

	select {
	case <-changed:
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not report the folder change")
	}

	cancel()
	<-done
}
