package session_test

import (
	"os"
	"path/filepath"
	"testing"

	"dreambatch/pkg/session"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoad_TrimsAndSkipsBlanks(t *testing.T) {
	path := writeFile(t, t.TempDir(), "sessions.txt", "  alpha  \n\n\tbeta\n   \ngamma\n")

	pool, err := session.Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pool.Size() != 3 {
		t.Fatalf("expected 3 credentials, got %d", pool.Size())
	}
	if pool.Current() != "alpha" {
		t.Fatalf("expected cursor at alpha, got %s", pool.Current())
	}
}

func TestLoad_EmptyFileIsError(t *testing.T) {
	path := writeFile(t, t.TempDir(), "sessions.txt", "\n   \n\t\n")

	if _, err := session.Load(path); err == nil {
		t.Fatal("expected error for file with no credentials")
	}
}

func TestLoad_MissingFileIsError(t *testing.T) {
	if _, err := session.Load(filepath.Join(t.TempDir(), "absent.txt")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestAdvance_WrapsModuloSize(t *testing.T) {
	pool, err := session.NewPool([]string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	steps := []struct {
		current string
		ok      bool // rotation not yet complete
	}{
		{"b", true},
		{"c", true},
		{"a", false}, // wrapped to the start
		{"b", true},  // second rotation under way
	}
	for i, step := range steps {
		if got := pool.Advance(); got != step.ok {
			t.Fatalf("advance %d: expected ok=%v, got %v", i, step.ok, got)
		}
		if pool.Current() != step.current {
			t.Fatalf("advance %d: expected %s, got %s", i, step.current, pool.Current())
		}
	}
}

func TestAdvance_SingleCredentialNeverMoves(t *testing.T) {
	pool, err := session.NewPool([]string{"only"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pool.Advance() {
		t.Fatal("size-1 pool should report no movement")
	}
	if pool.Current() != "only" {
		t.Fatalf("cursor moved in size-1 pool: %s", pool.Current())
	}
}

func TestReset_ReturnsCursorToStart(t *testing.T) {
	pool, err := session.NewPool([]string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	pool.Advance()
	pool.Advance()
	if pool.Cursor() != 2 {
		t.Fatalf("expected cursor 2, got %d", pool.Cursor())
	}
	pool.Reset()
	if pool.Cursor() != 0 || pool.Current() != "a" {
		t.Fatalf("reset did not return cursor to start: cursor=%d current=%s", pool.Cursor(), pool.Current())
	}
}

func TestNewPool_EmptyListIsError(t *testing.T) {
	if _, err := session.NewPool(nil); err == nil {
		t.Fatal("expected error for empty credential list")
	}
}
