package dashboard

import tea "github.com/charmbracelet/bubbletea"

// ViewMode defines the current display mode of the dashboard.
type ViewMode int

const (
	ViewList ViewMode = iota
	ViewDetail
)

// Key bindings as constants for consistency.
const (
	KeyQuit        = "q"
	KeyQuitAlt     = "ctrl+c"
	KeyRefresh     = "r"
	KeySelectPrev  = "up"
	KeySelectPrevA = "k"
	KeySelectNext  = "down"
	KeySelectNextA = "j"
	KeyDetail      = "enter"
	KeyBack        = "esc"
	KeyHelp        = "?"
)

// HandleKeyMsg processes a key press. It returns whether the key was handled
// and any command to run.
func (m *Model) HandleKeyMsg(msg tea.KeyMsg) (bool, tea.Cmd) {
	key := msg.String()

	// Help overlay swallows everything except quit.
	if m.showHelp && key != KeyQuit && key != KeyQuitAlt {
		m.showHelp = false
		return true, nil
	}

	switch key {
	case KeyQuit, KeyQuitAlt:
		m.quitting = true
		return true, tea.Quit

	case KeyRefresh:
		return true, m.refreshCmd()

	case KeySelectPrev, KeySelectPrevA:
		if m.selected > 0 {
			m.selected--
		}
		if m.viewMode == ViewDetail {
			m.updateDetailContent()
		}
		return true, nil

	case KeySelectNext, KeySelectNextA:
		if m.selected < len(m.monitors)-1 {
			m.selected++
		}
		if m.viewMode == ViewDetail {
			m.updateDetailContent()
		}
		return true, nil

	case KeyDetail:
		if m.viewMode == ViewList && len(m.monitors) > 0 {
			m.viewMode = ViewDetail
			m.updateDetailContent()
		}
		return true, nil

	case KeyBack:
		if m.viewMode == ViewDetail {
			m.viewMode = ViewList
		}
		return true, nil

	case KeyHelp:
		m.showHelp = !m.showHelp
		return true, nil
	}

	// In detail view, let the viewport handle scrolling keys.
	if m.viewMode == ViewDetail && m.viewportReady {
		var cmd tea.Cmd
		m.detailViewport, cmd = m.detailViewport.Update(msg)
		return true, cmd
	}

	return false, nil
}
