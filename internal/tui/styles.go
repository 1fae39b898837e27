package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/user/netdiag/internal/model"
)

var (
	// Colors
	Primary = lipgloss.Color("205")
	Subtle  = lipgloss.Color("241")
	Success = lipgloss.Color("46")
	Warning = lipgloss.Color("214")
	Error   = lipgloss.Color("196")

	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(Primary).
			Padding(0, 2)

	InfoStyle = lipgloss.NewStyle().
			Foreground(Subtle)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(Success)

	WarningStyle = lipgloss.NewStyle().
			Foreground(Warning)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(Error).
			Bold(true)

	DimStyle = lipgloss.NewStyle().
			Foreground(Subtle).
			Italic(true)

	HelpStyle = lipgloss.NewStyle().
			Foreground(Subtle).
			MarginTop(1)
)

// SeverityStyle returns the display style for a report severity.
func SeverityStyle(sev model.Severity) lipgloss.Style {
	switch sev {
	case model.SeveritySuccess:
		return SuccessStyle
	case model.SeverityWarn:
		return WarningStyle
	case model.SeverityError:
		return ErrorStyle
	default:
		return InfoStyle
	}
}
