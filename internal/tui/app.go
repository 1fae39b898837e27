// Package tui provides a terminal browser for the latest diagnostic run.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/user/netdiag/internal/model"
	"github.com/user/netdiag/internal/storage"
)

// App is the report browser application.
type App struct {
	db *storage.DB
}

// NewApp creates a new report browser over the run database.
func NewApp(db *storage.DB) *App {
	return &App{db: db}
}

// Run starts the browser.
func (a *App) Run() error {
	p := tea.NewProgram(newBrowserModel(a.db), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// browserModel is the main bubbletea model: the latest run's entries in a
// scrollable viewport with a severity filter.
type browserModel struct {
	db       *storage.DB
	viewport viewport.Model
	run      *model.Run
	entries  []model.LogEntry
	filter   model.Severity // "" shows everything
	ready    bool
	err      error
}

func newBrowserModel(db *storage.DB) browserModel {
	return browserModel{db: db}
}

// Init loads the latest run.
func (m browserModel) Init() tea.Cmd {
	return loadRun(m.db)
}

// Update handles messages.
func (m browserModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "r":
			return m, loadRun(m.db)
		case "a":
			m.filter = ""
			m.refreshContent()
		case "e":
			m.filter = model.SeverityError
			m.refreshContent()
		case "w":
			m.filter = model.SeverityWarn
			m.refreshContent()
		case "s":
			m.filter = model.SeveritySuccess
			m.refreshContent()
		case "i":
			m.filter = model.SeverityInfo
			m.refreshContent()
		}

	case tea.WindowSizeMsg:
		headerHeight := 3
		footerHeight := 2
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-headerHeight-footerHeight)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - headerHeight - footerHeight
		}
		m.refreshContent()

	case runMsg:
		m.run = msg.run
		m.entries = msg.entries
		m.err = nil
		m.refreshContent()

	case errMsg:
		m.err = msg.err
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m *browserModel) refreshContent() {
	if !m.ready {
		return
	}
	var lines []string
	for _, e := range m.entries {
		if m.filter != "" && e.Severity != m.filter {
			continue
		}
		line := fmt.Sprintf("[%s] [%s] %s",
			e.Timestamp.Format("15:04:05"), e.Severity, e.Message)
		lines = append(lines, SeverityStyle(e.Severity).Render(line))
	}
	if len(lines) == 0 {
		lines = []string{DimStyle.Render("No entries")}
	}
	m.viewport.SetContent(strings.Join(lines, "\n"))
}

// View renders the UI.
func (m browserModel) View() string {
	if m.err != nil {
		return ErrorStyle.Render("Error: " + m.err.Error())
	}
	if !m.ready || m.run == nil {
		return DimStyle.Render("Loading latest run...")
	}

	header := HeaderStyle.Render(fmt.Sprintf("netdiag run #%d — %s (%d errors, %d warnings)",
		m.run.ID, m.run.Verdict, m.run.Errors, m.run.Warnings))

	filter := "all"
	if m.filter != "" {
		filter = string(m.filter)
	}
	help := HelpStyle.Render(fmt.Sprintf(
		"filter: %s • a/e/w/s/i to filter • r to reload • q to quit", filter))

	return header + "\n\n" + m.viewport.View() + "\n" + help
}

// Messages
type runMsg struct {
	run     *model.Run
	entries []model.LogEntry
}

type errMsg struct {
	err error
}

func loadRun(db *storage.DB) tea.Cmd {
	return func() tea.Msg {
		runs := storage.NewRunStorage(db)
		run, err := runs.LatestRun()
		if err != nil {
			return errMsg{err}
		}
		if run == nil {
			return errMsg{fmt.Errorf("no runs recorded yet")}
		}
		entries, err := runs.RunEntries(run.ID)
		if err != nil {
			return errMsg{err}
		}
		return runMsg{run: run, entries: entries}
	}
}
