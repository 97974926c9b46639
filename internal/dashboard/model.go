// Package dashboard is the live TUI: a Bubble Tea program subscribed to the
// monitor store, rendering monitor status, ping sparklines, and aggregate
// statistics as the reconciler applies server events.
package dashboard

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/statusbeat/statusbeat/internal/client"
	"github.com/statusbeat/statusbeat/internal/model"
	"github.com/statusbeat/statusbeat/internal/store"
	"github.com/statusbeat/statusbeat/internal/ui"
)

// refreshTimeout bounds the server round trips behind the manual refresh key.
const refreshTimeout = 30 * time.Second

// Model is the Bubble Tea model for the monitoring dashboard.
type Model struct {
	cli *client.Client

	monitors  []model.Monitor
	stats     store.AggregateStats
	connState client.State
	lastErr   string

	selected int
	width    int
	height   int
	viewMode ViewMode
	showHelp bool
	quitting bool

	lastUpdate time.Time
	spin       spinner.Model

	detailViewport viewport.Model
	viewportReady  bool
}

// NewModel creates a dashboard model. The client is used for manual refresh
// requests; all state arrives as messages through the bridge.
func NewModel(cli *client.Client) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(ui.ColorWarning)

	return Model{
		cli:       cli,
		connState: cli.State(),
		spin:      s,
	}
}

// Init starts the spinner animation.
func (m Model) Init() tea.Cmd {
	return m.spin.Tick
}

// Update handles messages and updates the model state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		handled, cmd := m.HandleKeyMsg(msg)
		if handled {
			return m, cmd
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizeViewport()

	case MonitorsMsg:
		m.applyMonitors(msg.Monitors)
		if m.viewMode == ViewDetail {
			m.updateDetailContent()
		}

	case StatsMsg:
		m.stats = msg.Stats

	case ConnStateMsg:
		m.connState = msg.State
		m.lastErr = m.cli.LastError()

	case refreshedMsg:
		if msg.err != nil {
			m.lastErr = msg.err.Error()
		} else {
			m.lastErr = ""
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View renders the dashboard.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	return m.render()
}

// applyMonitors swaps in a fresh snapshot, keeping the selection pinned to
// the same monitor id across reorderings.
func (m *Model) applyMonitors(monitors []model.Monitor) {
	var selectedID int64 = -1
	if m.selected >= 0 && m.selected < len(m.monitors) {
		selectedID = int64(m.monitors[m.selected].ID)
	}

	m.monitors = monitors
	m.lastUpdate = time.Now()

	if selectedID >= 0 {
		for i := range m.monitors {
			if int64(m.monitors[i].ID) == selectedID {
				m.selected = i
				return
			}
		}
	}
	if m.selected >= len(m.monitors) {
		m.selected = len(m.monitors) - 1
	}
	if m.selected < 0 && len(m.monitors) > 0 {
		m.selected = 0
	}
}

// refreshCmd asks the server for a fresh list and heartbeat histories. The
// results arrive as push events through the bridge, so the command only
// reports the acknowledgement error.
func (m *Model) refreshCmd() tea.Cmd {
	cli := m.cli
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
		defer cancel()

		if err := cli.GetMonitors(ctx); err != nil {
			return refreshedMsg{err: err}
		}
		return refreshedMsg{err: cli.GetHeartbeats(ctx)}
	}
}

// SelectedMonitor returns the currently selected monitor, if any.
func (m Model) SelectedMonitor() (model.Monitor, bool) {
	if m.selected >= 0 && m.selected < len(m.monitors) {
		return m.monitors[m.selected], true
	}
	return model.Monitor{}, false
}

// SecondsSinceUpdate returns how many seconds have passed since the last
// snapshot arrived.
func (m Model) SecondsSinceUpdate() int {
	if m.lastUpdate.IsZero() {
		return 0
	}
	return int(time.Since(m.lastUpdate).Seconds())
}

func (m *Model) resizeViewport() {
	headerHeight := 3
	footerHeight := 2
	viewportHeight := m.height - headerHeight - footerHeight
	if viewportHeight < 1 {
		viewportHeight = 1
	}

	if !m.viewportReady {
		m.detailViewport = viewport.New(m.width, viewportHeight)
		m.detailViewport.YPosition = headerHeight
		m.viewportReady = true
	} else {
		m.detailViewport.Width = m.width
		m.detailViewport.Height = viewportHeight
	}

	if m.viewMode == ViewDetail {
		m.updateDetailContent()
	}
}

func (m *Model) updateDetailContent() {
	if !m.viewportReady {
		return
	}
	monitor, ok := m.SelectedMonitor()
	if !ok {
		m.detailViewport.SetContent("No monitor selected")
		return
	}
	m.detailViewport.SetContent(m.renderDetail(monitor))
}
