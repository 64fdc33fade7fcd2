package main

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"dreambatch/pkg/config"
	"dreambatch/pkg/eventlog"
	"dreambatch/pkg/supervisor"
	"dreambatch/pkg/worker"
)

// maxLogLines bounds the per-worker in-memory log ring.
const maxLogLines = 200

// tickMsg is sent on every refresh interval to re-snapshot worker state.
type tickMsg time.Time

// eventMsg carries one worker event into the update loop. Workers emit
// from their own goroutines; the event channel marshals everything onto
// the Bubble Tea loop so the model is only ever mutated here.
type eventMsg worker.Event

// folderChangedMsg signals that the input folders changed on disk.
type folderChangedMsg struct{}

// tickCmd returns a command that sends a tickMsg after 2 seconds.
func tickCmd() tea.Cmd {
	return tea.Tick(2*time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// waitForEvent returns a command that delivers the next worker event.
func waitForEvent(ch <-chan worker.Event) tea.Cmd {
	return func() tea.Msg {
		return eventMsg(<-ch)
	}
}

// waitForFolderChange returns a command that delivers the next folder
// change notification.
func waitForFolderChange(ch <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-ch
		return folderChangedMsg{}
	}
}

// Model is the Bubble Tea model for the dreambatch dashboard.
type Model struct {
	cfg config.Config
	sup *supervisor.Supervisor

	events   chan worker.Event
	folderCh chan struct{}
	elog     *eventlog.Writer

	snaps    []worker.Snapshot
	logs     map[string][]worker.Event
	selected int
	loadErr  string
	stale    bool // input folders changed since last load

	logView viewport.Model
	spin    spinner.Model

	width  int
	height int
}

// newModel builds the dashboard model, loads the worker set, and starts
// the folder watcher.
func newModel(cfg config.Config) (Model, error) {
	events := make(chan worker.Event, 256)
	folderCh := make(chan struct{}, 1)

	dbPath := cfg.EventDBPath
	if dbPath == "" {
		dbPath = eventlog.DefaultDBPath()
	}
	// Event history is best-effort; the dashboard works without it.
	elog, _ := eventlog.NewWriter(dbPath)

	sink := worker.SinkFunc(func(e worker.Event) {
		select {
		case events <- e:
		default: // UI is behind, drop rather than block a worker
		}
		if elog != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			_ = elog.Append(ctx, e.RunID, e.Worker, e.Level, e.Message)
			cancel()
		}
	})

	sup := supervisor.New(cfg, sink)

	m := Model{
		cfg:      cfg,
		sup:      sup,
		events:   events,
		folderCh: folderCh,
		elog:     elog,
		logs:     make(map[string][]worker.Event),
		logView:  viewport.New(80, 10),
		spin:     spinner.New(spinner.WithSpinner(spinner.Dot)),
	}

	if err := sup.LoadWorkers(); err != nil {
		m.loadErr = err.Error()
	}
	m.snaps = sup.Snapshots()

	go sup.Watch(context.Background(), func() {
		select {
		case folderCh <- struct{}{}:
		default:
		}
	})

	return m, nil
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(tickCmd(), waitForEvent(m.events), waitForFolderChange(m.folderCh), m.spin.Tick)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.logView.Width = msg.Width - 2
		m.logView.Height = logPaneHeight(msg.Height)
		m.refreshLogView()

	case tickMsg:
		m.snaps = m.sup.Snapshots()
		m.clampSelection()
		return m, tickCmd()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case eventMsg:
		e := worker.Event(msg)
		ring := append(m.logs[e.Worker], e)
		if len(ring) > maxLogLines {
			ring = ring[len(ring)-maxLogLines:]
		}
		m.logs[e.Worker] = ring
		if name := m.selectedName(); name == e.Worker {
			m.refreshLogView()
		}
		return m, waitForEvent(m.events)

	case folderChangedMsg:
		m.stale = true
		return m, waitForFolderChange(m.folderCh)
	}

	return m, nil
}

// handleKeyPress processes keyboard input.
func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.sup.StopAll()
		return m, tea.Quit

	case "j", "down":
		if m.selected < len(m.snaps)-1 {
			m.selected++
			m.refreshLogView()
		}
	case "tab":
		if len(m.snaps) > 0 {
			m.selected = (m.selected + 1) % len(m.snaps)
			m.refreshLogView()
		}
	case "k", "up":
		if m.selected > 0 {
			m.selected--
			m.refreshLogView()
		}

	case "r":
		if w := m.selectedWorker(); w != nil {
			w.Start(context.Background())
		}
	case "s":
		if w := m.selectedWorker(); w != nil {
			w.Stop()
		}
	case "R":
		m.sup.RunAll(context.Background())
	case "S":
		m.sup.StopAll()

	case "a":
		if w := m.selectedWorker(); w != nil {
			_ = w.SetRatio(nextRatio(w.Snapshot().Ratio))
		}

	case "F":
		if err := m.sup.Refresh(); err != nil {
			m.loadErr = err.Error()
		} else {
			m.loadErr = ""
		}
		m.stale = false
		m.snaps = m.sup.Snapshots()
		m.clampSelection()
		m.refreshLogView()
	}

	m.snaps = m.sup.Snapshots()
	return m, nil
}

// selectedName returns the name of the selected worker, or "".
func (m Model) selectedName() string {
	if m.selected < 0 || m.selected >= len(m.snaps) {
		return ""
	}
	return m.snaps[m.selected].Name
}

// selectedWorker returns the selected worker, or nil.
func (m Model) selectedWorker() *worker.Worker {
	workers := m.sup.Workers()
	if m.selected < 0 || m.selected >= len(workers) {
		return nil
	}
	return workers[m.selected]
}

// clampSelection keeps the cursor inside the worker list after a refresh.
func (m *Model) clampSelection() {
	if m.selected >= len(m.snaps) {
		m.selected = len(m.snaps) - 1
	}
	if m.selected < 0 {
		m.selected = 0
	}
}

// refreshLogView re-renders the selected worker's log ring into the
// viewport, pinned to the bottom.
func (m *Model) refreshLogView() {
	m.logView.SetContent(renderLogLines(m.logs[m.selectedName()], DefaultTheme()))
	m.logView.GotoBottom()
}

// nextRatio cycles to the next aspect ratio.
func nextRatio(current string) string {
	for i, r := range config.Ratios {
		if r == current {
			return config.Ratios[(i+1)%len(config.Ratios)]
		}
	}
	return config.Ratios[0]
}

// View implements tea.Model.
func (m Model) View() string {
	theme := DefaultTheme()

	sections := []string{
		m.renderStatusBar(theme),
		renderWorkersTable(m.snaps, m.selected, m.spin.View(), theme),
		m.renderLogPane(theme),
		renderHelp(theme),
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// renderStatusBar renders aggregate counts and any load error.
func (m Model) renderStatusBar(theme Theme) string {
	running := 0
	for _, s := range m.snaps {
		if s.Status == worker.StatusRunning || s.Status == worker.StatusStopping {
			running++
		}
	}

	parts := []string{
		lipgloss.NewStyle().Bold(true).Foreground(theme.Primary).Render("dreambatch"),
		fmt.Sprintf(" | Workers: %d", len(m.snaps)),
		" | Running: " + lipgloss.NewStyle().Foreground(theme.Success).Render(fmt.Sprintf("%d", running)),
	}
	if m.stale {
		parts = append(parts, " | "+lipgloss.NewStyle().Foreground(theme.Warning).Render("folders changed, press F to refresh"))
	}
	if m.loadErr != "" {
		parts = append(parts, " | "+lipgloss.NewStyle().Foreground(theme.Error).Render(m.loadErr))
	}
	return lipgloss.JoinHorizontal(lipgloss.Left, parts...)
}

// renderLogPane renders the selected worker's log viewport.
func (m Model) renderLogPane(theme Theme) string {
	title := "Log"
	if name := m.selectedName(); name != "" {
		title = "Log: " + name
	}
	header := lipgloss.NewStyle().Bold(true).Foreground(theme.Primary).Render(title)
	return header + "\n" + m.logView.View()
}

// renderHelp renders the keybinding reference line.
func renderHelp(theme Theme) string {
	help := "tab/j/k select · r run · s stop · R run all · S stop all · a ratio · F refresh · q quit"
	return lipgloss.NewStyle().Foreground(theme.Muted).Render(help)
}

// logPaneHeight sizes the log viewport from the terminal height, leaving
// room for the table and chrome.
func logPaneHeight(total int) int {
	h := total - 16
	if h < 4 {
		h = 4
	}
	return h
}
