package ui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Semantic colors for status indication, as ANSI codes for terminal
// compatibility.
const (
	ColorSuccess lipgloss.Color = "2" // Green
	ColorError   lipgloss.Color = "1" // Red
	ColorWarning lipgloss.Color = "3" // Yellow
	ColorInfo    lipgloss.Color = "6" // Cyan
)

// Text colors for content hierarchy
const (
	ColorPrimary   lipgloss.Color = "7" // White/default
	ColorSecondary lipgloss.Color = "4" // Blue
	ColorMuted     lipgloss.Color = "8" // Gray (bright black)
)

// ColorsEnabled reports whether the terminal supports color output. The
// --no-color flag and NO_COLOR both force it off via termenv.
func ColorsEnabled() bool {
	return termenv.EnvColorProfile() != termenv.Ascii
}

// DisableColors switches lipgloss to monochrome rendering.
func DisableColors() {
	lipgloss.SetColorProfile(termenv.Ascii)
}

// StatusColor maps a monitor status to its display color.
func StatusColor(isUp, active, maintenance bool) lipgloss.Color {
	switch {
	case maintenance:
		return ColorWarning
	case !active:
		return ColorMuted
	case isUp:
		return ColorSuccess
	default:
		return ColorError
	}
}
