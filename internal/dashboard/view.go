package dashboard

import (
	"fmt"
	"strings"

	"github.com/statusbeat/statusbeat/internal/client"
	"github.com/statusbeat/statusbeat/internal/model"
	"github.com/statusbeat/statusbeat/internal/ui"
	"github.com/statusbeat/statusbeat/internal/util"
)

// sparklineWidth is how many heartbeat points the list view graphs.
const sparklineWidth = 24

// render assembles the complete dashboard view.
func (m Model) render() string {
	var b strings.Builder

	b.WriteString(m.renderHeader())
	b.WriteString("\n\n")

	switch {
	case m.showHelp:
		b.WriteString(m.renderHelp())
	case m.viewMode == ViewDetail:
		b.WriteString(m.detailViewport.View())
	default:
		b.WriteString(m.renderList())
	}

	b.WriteString("\n")
	b.WriteString(m.renderFooter())

	return b.String()
}

// renderHeader shows the title, the connection state, and the stats line.
func (m Model) renderHeader() string {
	title := TitleStyle.Render("statusbeat")

	var state string
	switch m.connState {
	case client.StateConnected:
		state = UpStyle.Render(ui.SymbolConnected + " connected")
	case client.StateConnecting:
		state = ConnectingStyle.Render(m.spin.View() + "connecting")
	default:
		state = DownStyle.Render(ui.SymbolDown + " disconnected")
	}

	var updateText string
	switch age := m.SecondsSinceUpdate(); {
	case m.lastUpdate.IsZero():
		updateText = "waiting for data"
	case age == 0:
		updateText = "updated just now"
	case age == 1:
		updateText = "updated 1s ago"
	default:
		updateText = fmt.Sprintf("updated %ds ago", age)
	}

	stats := StatsStyle.Render(fmt.Sprintf(" | %d monitors | %d up | %d down | %s",
		m.stats.Total, m.stats.Up, m.stats.Down, updateText))

	header := HeaderStyle.Render(title + "  " + state + stats)

	if m.lastErr != "" {
		header += "\n" + ErrorStyle.Render("! "+m.lastErr)
	}
	return header
}

// renderList shows one row per monitor: status glyph, name, ping sparkline,
// day uptime, and rolling average ping.
func (m Model) renderList() string {
	if len(m.monitors) == 0 {
		return MutedStyle.Render("No monitors yet")
	}

	var rows []string
	for i := range m.monitors {
		rows = append(rows, m.renderRow(&m.monitors[i], i == m.selected))
	}
	return strings.Join(rows, "\n")
}

func (m Model) renderRow(monitor *model.Monitor, selected bool) string {
	_, hasHistory := monitor.HeadStatus()
	symbol := ui.StatusSymbol(monitor.IsUp, hasHistory, bool(monitor.Active), bool(monitor.Maintenance))
	color := ui.StatusColor(monitor.IsUp, bool(monitor.Active), bool(monitor.Maintenance))

	name := util.Truncate(monitor.Name, 24)

	spark := ui.RenderSparkline(pingSeries(monitor.HeartBeatList), sparklineWidth, color)
	if spark == "" {
		spark = MutedStyle.Render(strings.Repeat("·", sparklineWidth))
	}

	line := fmt.Sprintf("%s %-24s %s  %7s %9s",
		symbol, name, spark,
		ui.FormatUptime(monitor.Uptime.Day),
		ui.FormatPing(monitor.AvgPing))

	if selected {
		return RowSelectedStyle.Render(line)
	}
	return RowStyle.Render(line)
}

// renderDetail is the scrollable single-monitor view.
func (m Model) renderDetail(monitor model.Monitor) string {
	var b strings.Builder

	b.WriteString(NameStyle.Render(monitor.Name))
	b.WriteString(MutedStyle.Render("  (" + monitor.Type + ")"))
	b.WriteString("\n\n")

	target := monitor.URL
	if target == "" {
		target = monitor.Hostname
	}
	if target != "" {
		b.WriteString(fmt.Sprintf("Target:    %s\n", target))
	}
	b.WriteString(fmt.Sprintf("Interval:  %ds\n", monitor.Interval))
	b.WriteString(fmt.Sprintf("Active:    %v\n", bool(monitor.Active)))
	if bool(monitor.Maintenance) {
		b.WriteString("Status:    under maintenance\n")
	}

	b.WriteString("\nUptime\n")
	b.WriteString(fmt.Sprintf("  24h:     %s\n", ui.FormatUptime(monitor.Uptime.Day)))
	b.WriteString(fmt.Sprintf("  30d:     %s\n", ui.FormatUptime(monitor.Uptime.Month)))
	if monitor.Uptime.Year != nil {
		b.WriteString(fmt.Sprintf("  1y:      %s\n", ui.FormatUptime(*monitor.Uptime.Year)))
	}
	b.WriteString(fmt.Sprintf("Avg ping:  %s\n", ui.FormatPing(monitor.AvgPing)))

	if len(monitor.Tags) > 0 {
		names := make([]string, len(monitor.Tags))
		for i, tag := range monitor.Tags {
			names[i] = tag.Name
		}
		b.WriteString("Tags:      " + util.JoinOrNone(names) + "\n")
	}

	if len(monitor.HeartBeatList) > 0 {
		color := ui.StatusColor(monitor.IsUp, bool(monitor.Active), bool(monitor.Maintenance))
		width := m.width - 4
		if width < sparklineWidth {
			width = sparklineWidth
		}
		b.WriteString("\nPing history\n")
		b.WriteString("  " + ui.RenderSparkline(pingSeries(monitor.HeartBeatList), width, color) + "\n")
	}

	if len(monitor.ImportantHeartBeatList) > 0 {
		b.WriteString("\nRecent events\n")
		limit := len(monitor.ImportantHeartBeatList)
		if limit > 10 {
			limit = 10
		}
		for _, beat := range monitor.ImportantHeartBeatList[:limit] {
			glyph := ui.SymbolDown
			style := DownStyle
			if beat.Status == model.StatusUp {
				glyph = ui.SymbolUp
				style = UpStyle
			}
			line := fmt.Sprintf("  %s %s  %s",
				glyph, beat.Time.Time().Format("2006-01-02 15:04"), beat.Msg)
			b.WriteString(style.Render(line) + "\n")
		}
	}

	return b.String()
}

func (m Model) renderHelp() string {
	help := [][2]string{
		{"j / down", "select next monitor"},
		{"k / up", "select previous monitor"},
		{"enter", "open detail view"},
		{"esc", "back to the list"},
		{"r", "refresh from server"},
		{"?", "toggle this help"},
		{"q", "quit"},
	}

	var b strings.Builder
	b.WriteString(NameStyle.Render("Keys") + "\n\n")
	for _, h := range help {
		b.WriteString(fmt.Sprintf("  %-10s %s\n", h[0], MutedStyle.Render(h[1])))
	}
	return b.String()
}

func (m Model) renderFooter() string {
	if m.viewMode == ViewDetail {
		return FooterStyle.Render("esc back · j/k switch monitor · q quit")
	}
	return FooterStyle.Render("j/k select · enter details · r refresh · ? help · q quit")
}

// pingSeries extracts ping values oldest-first so sparklines read
// left-to-right in time.
func pingSeries(beats []model.Heartbeat) []float64 {
	if len(beats) == 0 {
		return nil
	}
	series := make([]float64, len(beats))
	for i, beat := range beats {
		series[len(beats)-1-i] = beat.Ping
	}
	return series
}
