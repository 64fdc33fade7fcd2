// Package session manages the ordered pool of API credentials a worker
// rotates through. A pool is loaded once per run from a text file (one
// credential per non-blank line) and its contents are immutable for the
// lifetime of the worker; only the cursor moves.
package session

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// Pool is an ordered, fixed list of credentials with a wrapping cursor.
// The pool has no memory of which credentials were tried for the current
// prompt; that bookkeeping belongs to the caller.
type Pool struct {
	credentials []string
	cursor      int
}

// Load reads credentials from path, one per line. Leading and trailing
// whitespace is trimmed and blank lines are skipped. A file with zero
// usable lines is a load failure, not an empty pool.
func Load(path string) (*Pool, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open session file: %w", err)
	}
	defer f.Close()

	var creds []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		creds = append(creds, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read session file: %w", err)
	}
	if len(creds) == 0 {
		return nil, fmt.Errorf("session file %s: no credentials found", path)
	}
	return &Pool{credentials: creds}, nil
}

// NewPool creates a pool from an in-memory credential list (for testing).
// The list must be non-empty.
func NewPool(credentials []string) (*Pool, error) {
	if len(credentials) == 0 {
		return nil, fmt.Errorf("session pool: empty credential list")
	}
	return &Pool{credentials: append([]string(nil), credentials...)}, nil
}

// Current returns the credential at the cursor.
func (p *Pool) Current() string {
	return p.credentials[p.cursor]
}

// Advance moves the cursor to the next credential, wrapping modulo pool
// size. It returns true while a full rotation has not yet completed,
// i.e. the cursor has not wrapped back to the start; false on the move
// that wraps. For a size-1 pool Advance always returns false.
func (p *Pool) Advance() bool {
	p.cursor = (p.cursor + 1) % len(p.credentials)
	return p.cursor != 0
}

// Reset moves the cursor back to the first credential.
func (p *Pool) Reset() {
	p.cursor = 0
}

// Size returns the number of credentials in the pool.
func (p *Pool) Size() int {
	return len(p.credentials)
}

// Cursor returns the current cursor position (for status display).
func (p *Pool) Cursor() int {
	return p.cursor
}
