// Package main implements the dreambatch-dash interactive dashboard: a
// terminal control surface for starting, stopping, and watching the batch
// generation workers.
package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"dreambatch/pkg/config"
)

func main() {
	cfgPath := os.Getenv("DREAMBATCH_CONFIG")
	if cfgPath == "" {
		cfgPath = config.DefaultFileName
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	m, err := newModel(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running dashboard: %v\n", err)
		os.Exit(1)
	}
}
