package dashboard

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/statusbeat/statusbeat/internal/ui"
)

// Base styles for the dashboard, built on the shared ANSI palette so the TUI
// degrades cleanly on 16-color terminals.
var (
	TitleStyle = lipgloss.NewStyle().
			Foreground(ui.ColorInfo).
			Bold(true)

	HeaderStyle = lipgloss.NewStyle().
			Foreground(ui.ColorPrimary).
			Bold(true).
			Padding(0, 1)

	StatsStyle = lipgloss.NewStyle().
			Foreground(ui.ColorMuted)

	FooterStyle = lipgloss.NewStyle().
			Foreground(ui.ColorMuted).
			Padding(0, 1)

	RowStyle = lipgloss.NewStyle().
			Padding(0, 1)

	RowSelectedStyle = lipgloss.NewStyle().
				Padding(0, 1).
				Bold(true).
				Background(ui.ColorMuted)

	NameStyle = lipgloss.NewStyle().
			Foreground(ui.ColorPrimary).
			Bold(true)

	MutedStyle = lipgloss.NewStyle().
			Foreground(ui.ColorMuted)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ui.ColorError).
			Bold(true)

	UpStyle = lipgloss.NewStyle().
		Foreground(ui.ColorSuccess)

	DownStyle = lipgloss.NewStyle().
			Foreground(ui.ColorError)

	ConnectingStyle = lipgloss.NewStyle().
			Foreground(ui.ColorWarning)
)
