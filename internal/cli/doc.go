// Package cli implements the statusbeat command-line interface.
//
// The package is organized around Cobra commands, with each command
// delegating to the synchronization core for the actual work. The general
// structure follows a clean separation between:
//
//   - Command definitions (cobra.Command instances)
//   - Application wiring (config -> store -> reconciler -> client)
//   - Implementation details (in other internal packages)
//
// # Command Structure
//
// The root command is "statusbeat" with subcommands for different operations:
//
//	statusbeat login      - Authenticate against an Uptime Kuma server
//	statusbeat logout     - Forget credentials and wipe the local snapshot
//	statusbeat dashboard  - Live TUI monitor dashboard
//	statusbeat status     - One-shot monitor summary
//	statusbeat version    - Version information
//
// # Application Wiring
//
// The newApp function handles the setup shared by every command that talks
// to a server: load and validate config, open the snapshot store, build the
// notifier chain, and construct the reconciler and client. Commands hold an
// *app for its lifetime and must call Close to disconnect cleanly.
//
// # Flag Handling
//
// Global flags (--config, --no-color) are defined on the root command and
// available to all subcommands. Command-specific flags like --json and
// --server are defined on individual commands.
package cli
