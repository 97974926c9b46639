package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/statusbeat/statusbeat/internal/ui"
)

// Global flags available on all commands
var (
	configFlag  string
	noColorFlag bool
)

// rootCmd is the base command all subcommands hang off.
var rootCmd = &cobra.Command{
	Use:   "statusbeat",
	Short: "Terminal client for Uptime Kuma monitoring servers",
	Long: `statusbeat keeps a live, local view of an Uptime Kuma server.

It authenticates over the server's socket protocol, mirrors the monitor
list and heartbeat history locally, and renders them as a dashboard or a
one-shot status report. The local snapshot survives restarts, so status
works even while the server is briefly unreachable.

Get started:
  statusbeat login             Authenticate and save credentials
  statusbeat dashboard         Live monitor dashboard
  statusbeat status            One-shot summary`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if noColorFlag || os.Getenv("NO_COLOR") != "" {
			ui.DisableColors()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "path to config file")
	rootCmd.PersistentFlags().BoolVar(&noColorFlag, "no-color", false, "disable colored output")
}

// Config returns the --config flag value for config discovery.
func Config() string {
	return configFlag
}

// Execute runs the root command and exits non-zero on error. Errors are
// printed here rather than by Cobra so the structured suggestion text
// stays intact.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
