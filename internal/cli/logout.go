package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/statusbeat/statusbeat/internal/config"
	"github.com/statusbeat/statusbeat/internal/kv"
	"github.com/statusbeat/statusbeat/internal/logger"
	"github.com/statusbeat/statusbeat/internal/store"
)

// logoutCmd forgets credentials and wipes the local snapshot.
var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget credentials and wipe the local snapshot",
	Long: `Remove the saved credentials from the config file and delete the
locally cached monitor snapshot.

Server address and other settings are kept so a later 'statusbeat login'
only has to ask for credentials again.

Examples:
  statusbeat logout`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return logoutCommand()
	},
}

func init() {
	rootCmd.AddCommand(logoutCmd)
}

func logoutCommand() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	dataDir, err := cfg.DataDir()
	if err != nil {
		return err
	}

	// Reset drops the in-memory state and removes the persisted snapshot.
	monitors := store.NewMonitorStore(kv.NewFileStore(dataDir), logger.NewEnvLogger("[store]"))
	monitors.Reset()

	cfg.Auth.Username = ""
	cfg.Auth.Password = ""

	path, err := config.SaveToFoundOrGlobal(cfg, Config())
	if err != nil {
		return err
	}

	fmt.Printf("Logged out. Credentials removed from %s\n", path)
	return nil
}
