package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/statusbeat/statusbeat/internal/dashboard"
)

// dashboardCmd starts the live TUI dashboard.
var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Live monitor dashboard",
	Long: `Start an interactive TUI dashboard showing all monitors with live
heartbeat updates.

Displays per-monitor status, uptime, ping history sparklines, and important
events, updating as the server pushes heartbeats. If the connection drops,
the client reconnects in the background and the dashboard shows the
connection state.

Keyboard shortcuts:
  q / Ctrl+C  Quit
  r           Force refresh
  up/k        Select previous monitor
  down/j      Select next monitor
  Enter       Open monitor details
  Esc         Back to the list
  ?           Show help

Examples:
  statusbeat dashboard
  statusbeat dashboard --no-color`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return dashboardCommand()
	},
}

func init() {
	rootCmd.AddCommand(dashboardCmd)
}

func dashboardCommand() error {
	a, err := newApp(true)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := context.WithTimeout(context.Background(),
		a.cfg.Server.DialTimeout+a.cfg.Server.RequestTimeout)
	if err := a.connect(ctx); err != nil {
		cancel()
		return err
	}

	// Heartbeat histories arrive per monitor, so the fan-out has to wait
	// for the monitor list push. Best effort: the dashboard's refresh key
	// covers anything missed here.
	if a.waitForMonitors(a.cfg.Server.RequestTimeout) {
		_ = a.client.GetHeartbeats(ctx)
	}
	cancel()

	return dashboard.Run(a.monitors, a.client)
}
