// Package report provides the measurement store: the single append-only
// sink every diagnostic component writes through, plus the final verdict
// aggregation.
package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/user/netdiag/internal/model"
	"github.com/user/netdiag/internal/util"
)

const timestampLayout = "2006-01-02 15:04:05"

var severityStyles = map[model.Severity]lipgloss.Style{
	model.SeverityInfo:    lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
	model.SeveritySuccess: lipgloss.NewStyle().Foreground(lipgloss.Color("46")),
	model.SeverityWarn:    lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
	model.SeverityError:   lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
}

// Store is the ordered, append-only sequence of report entries for one
// diagnostic run. Every append writes one line to the report file and one
// severity-colorized line to the console. Appends are safe to interleave
// from concurrent probe families; entries are never mutated or deleted.
type Store struct {
	mu       sync.Mutex
	entries  []model.LogEntry
	file     *os.File
	console  io.Writer
	colorize bool
}

// NewStore creates the report sink at path. Failure to create the sink is
// the only unrecoverable fault of a run.
func NewStore(path string, colorize bool) (*Store, error) {
	if err := util.EnsureDir(filepath.Dir(path)); err != nil {
		return nil, fmt.Errorf("failed to create report dir: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create report sink: %w", err)
	}
	return &Store{
		entries:  make([]model.LogEntry, 0, 128),
		file:     file,
		console:  os.Stdout,
		colorize: colorize,
	}, nil
}

// SetConsole redirects the console mirror, mainly for tests.
func (s *Store) SetConsole(w io.Writer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.console = w
}

// Info appends an informational entry.
func (s *Store) Info(format string, args ...interface{}) {
	s.append(model.SeverityInfo, format, args...)
}

// Success appends a success entry.
func (s *Store) Success(format string, args ...interface{}) {
	s.append(model.SeveritySuccess, format, args...)
}

// Warn appends a warning entry.
func (s *Store) Warn(format string, args ...interface{}) {
	s.append(model.SeverityWarn, format, args...)
}

// Error appends an error entry.
func (s *Store) Error(format string, args ...interface{}) {
	s.append(model.SeverityError, format, args...)
}

func (s *Store) append(sev model.Severity, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	msg = escapeNewlines(msg)

	s.mu.Lock()
	defer s.mu.Unlock()

	entry := model.LogEntry{
		Timestamp: time.Now(),
		Severity:  sev,
		Message:   msg,
	}
	s.entries = append(s.entries, entry)

	line := fmt.Sprintf("[%s] [%s] %s",
		entry.Timestamp.Format(timestampLayout), sev, msg)

	if s.file != nil {
		fmt.Fprintln(s.file, line)
	}
	if s.console != nil {
		if s.colorize {
			fmt.Fprintln(s.console, severityStyles[sev].Render(line))
		} else {
			fmt.Fprintln(s.console, line)
		}
	}
}

// escapeNewlines keeps the report strictly line-oriented: one entry per
// line even when a probe error message embeds newlines.
func escapeNewlines(msg string) string {
	msg = strings.ReplaceAll(msg, "\r\n", `\n`)
	msg = strings.ReplaceAll(msg, "\n", `\n`)
	msg = strings.ReplaceAll(msg, "\r", `\n`)
	return msg
}

// Entries returns a copy of the entries recorded so far, in append order.
func (s *Store) Entries() []model.LogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.LogEntry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Len returns the number of recorded entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Close closes the report file.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file != nil {
		return s.file.Close()
	}
	return nil
}
