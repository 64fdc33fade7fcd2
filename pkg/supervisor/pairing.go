package supervisor

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Pairing configuration errors. These are fatal to setup: no worker is
// created until the input folders pair cleanly.
var (
	ErrNoPromptFiles  = errors.New("no prompt files found")
	ErrNoSessionFiles = errors.New("no session files found")
	ErrMismatch       = errors.New("prompt and session file counts differ")
)

// Pair matches one prompt file with one session file.
type Pair struct {
	PromptFile  string
	SessionFile string
}

// Name returns the pair's display name (the prompt file stem).
func (p Pair) Name() string {
	base := filepath.Base(p.PromptFile)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// PairFiles lists both directories, sorts the .txt files by name, and
// pairs the Nth prompt file with the Nth session file. A count mismatch
// is a configuration error; there is no partial pairing.
func PairFiles(promptDir, sessionDir string) ([]Pair, error) {
	promptFiles, err := listTxt(promptDir)
	if err != nil {
		return nil, fmt.Errorf("list prompt dir: %w", err)
	}
	sessionFiles, err := listTxt(sessionDir)
	if err != nil {
		return nil, fmt.Errorf("list session dir: %w", err)
	}

	if len(promptFiles) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoPromptFiles, promptDir)
	}
	if len(sessionFiles) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoSessionFiles, sessionDir)
	}
	if len(promptFiles) != len(sessionFiles) {
		return nil, fmt.Errorf("%w: %d prompt files vs %d session files",
			ErrMismatch, len(promptFiles), len(sessionFiles))
	}

	pairs := make([]Pair, len(promptFiles))
	for i := range promptFiles {
		pairs[i] = Pair{PromptFile: promptFiles[i], SessionFile: sessionFiles[i]}
	}
	return pairs, nil
}

// listTxt returns the sorted .txt files directly inside dir.
func listTxt(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".txt") {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}
