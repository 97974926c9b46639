package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/statusbeat/statusbeat/internal/errors"
	"github.com/statusbeat/statusbeat/internal/model"
	"github.com/statusbeat/statusbeat/internal/store"
	"github.com/statusbeat/statusbeat/internal/ui"
	"github.com/statusbeat/statusbeat/internal/util"
)

var (
	statusJSON   bool
	statusCached bool
)

// statusCmd prints a one-shot monitor summary.
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "One-shot monitor summary",
	Long: `Fetch the current monitor list and print a summary table.

Connects, pulls a fresh snapshot, and exits. When the server is
unreachable the last persisted snapshot is shown instead, marked as
cached. Use --cached to skip the server round-trip entirely.

Examples:
  statusbeat status
  statusbeat status --json
  statusbeat status --cached`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return statusCommand()
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "output in JSON format")
	statusCmd.Flags().BoolVar(&statusCached, "cached", false, "show the local snapshot without connecting")
}

// StatusOutput is the JSON output of the status command.
type StatusOutput struct {
	Cached   bool                 `json:"cached"`
	Stats    store.AggregateStats `json:"stats"`
	Monitors []model.Monitor      `json:"monitors"`
}

func statusCommand() error {
	a, err := newApp(true)
	if err != nil {
		return err
	}
	defer a.Close()

	cached := statusCached
	if !cached {
		ctx, cancel := context.WithTimeout(context.Background(),
			a.cfg.Server.DialTimeout+a.cfg.Server.RequestTimeout)
		err := a.connect(ctx)
		switch {
		case err == nil:
			if a.waitForMonitors(a.cfg.Server.RequestTimeout) {
				_ = a.client.GetHeartbeats(ctx)
			}
		case errors.IsCode(err, errors.ErrAuth):
			cancel()
			return err
		default:
			// Unreachable server: fall back to the persisted snapshot.
			if a.monitors.Len() == 0 {
				cancel()
				return err
			}
			cached = true
		}
		cancel()
	}

	monitors := a.monitors.Monitors()
	stats := a.monitors.Stats()

	if statusJSON {
		out := StatusOutput{Cached: cached, Stats: stats, Monitors: monitors}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	if cached {
		fmt.Println("Server unreachable, showing cached snapshot")
	}
	fmt.Println(ui.RenderMonitorTable(monitorRows(monitors)))
	fmt.Println(statsLine(stats))
	return nil
}

// monitorRows converts store monitors into renderable table rows.
func monitorRows(monitors []model.Monitor) []ui.MonitorRow {
	rows := make([]ui.MonitorRow, 0, len(monitors))
	for _, m := range monitors {
		rows = append(rows, ui.MonitorRow{
			Symbol:  ui.StatusSymbol(m.IsUp, len(m.HeartBeatList) > 0, m.Active.Bool(), m.Maintenance.Bool()),
			Name:    m.Name,
			Type:    m.Type,
			Uptime:  ui.FormatUptime(m.Uptime.Day),
			AvgPing: ui.FormatPing(m.AvgPing),
		})
	}
	return rows
}

// statsLine summarizes the aggregate counts under the table.
func statsLine(stats store.AggregateStats) string {
	line := fmt.Sprintf("%d %s: %d up, %d down, %d pending, %d paused",
		stats.Total, util.Pluralize(stats.Total, "monitor", "monitors"),
		stats.Up, stats.Down, stats.Pending, stats.Inactive)
	if len(stats.DownMonitors) > 0 {
		line += fmt.Sprintf("\nDown: %s", strings.Join(stats.DownMonitors, ", "))
	}
	return line
}
