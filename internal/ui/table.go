package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
)

// TableColumn defines a table column with name and width.
type TableColumn struct {
	Title string
	Width int
}

// NewTable creates a new Bubbles table with the shared styling.
func NewTable(columns []TableColumn, rows []table.Row) table.Model {
	cols := make([]table.Column, len(columns))
	for i, c := range columns {
		cols[i] = table.Column{
			Title: c.Title,
			Width: c.Width,
		}
	}

	t := table.New(
		table.WithColumns(cols),
		table.WithRows(rows),
		table.WithFocused(false),
		table.WithHeight(len(rows)+1), // +1 for header
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color(string(ColorMuted))).
		BorderBottom(true).
		Bold(true).
		Foreground(lipgloss.Color(string(ColorPrimary)))
	s.Cell = s.Cell.
		Foreground(lipgloss.Color(string(ColorPrimary)))
	s.Selected = s.Selected.
		Foreground(lipgloss.Color(string(ColorPrimary))).
		Background(lipgloss.Color(string(ColorMuted))).
		Bold(false)

	t.SetStyles(s)
	return t
}

// RenderSimpleTable renders a non-interactive table string for CLI output.
func RenderSimpleTable(columns []TableColumn, rows [][]string) string {
	if len(rows) == 0 {
		return ""
	}

	tableRows := make([]table.Row, len(rows))
	for i, row := range rows {
		tableRows[i] = table.Row(row)
	}

	t := NewTable(columns, tableRows)
	return t.View()
}

// MonitorRow is one line of the status table.
type MonitorRow struct {
	Symbol  string // Status glyph
	Name    string
	Type    string
	Uptime  string // Day-window uptime, formatted
	AvgPing string // Rolling average latency, formatted
}

// RenderMonitorTable renders the one-shot status output.
func RenderMonitorTable(rows []MonitorRow) string {
	if len(rows) == 0 {
		return "No monitors"
	}

	columns := []TableColumn{
		{Title: "", Width: 2},
		{Title: "NAME", Width: 28},
		{Title: "TYPE", Width: 10},
		{Title: "UPTIME", Width: 8},
		{Title: "PING", Width: 10},
	}

	tableRows := make([][]string, len(rows))
	for i, r := range rows {
		tableRows[i] = []string{r.Symbol, r.Name, r.Type, r.Uptime, r.AvgPing}
	}
	return RenderSimpleTable(columns, tableRows)
}

// FormatUptime renders an uptime ratio as a percentage.
func FormatUptime(ratio float64) string {
	return fmt.Sprintf("%.1f%%", ratio*100)
}

// FormatPing renders a latency in milliseconds, or a dash when unknown.
func FormatPing(ms float64) string {
	if ms <= 0 {
		return "-"
	}
	return fmt.Sprintf("%.0f ms", ms)
}
