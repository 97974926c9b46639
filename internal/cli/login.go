package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/statusbeat/statusbeat/internal/config"
	"github.com/statusbeat/statusbeat/internal/errors"
)

var (
	loginServerFlag   string
	loginUsernameFlag string
	loginPasswordFlag string
)

// loginCmd authenticates against a server and stores the credentials.
var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authenticate against an Uptime Kuma server",
	Long: `Authenticate against an Uptime Kuma server and save the credentials.

Prompts for the server address, username, and password, verifies them by
logging in, then writes them to the config file. Subsequent commands reuse
the saved credentials, including automatic reconnects.

Examples:
  statusbeat login
  statusbeat login --server kuma.example.com:3001
  statusbeat login --server localhost:3001 --username admin --password s3cret`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return loginCommand(loginServerFlag, loginUsernameFlag, loginPasswordFlag)
	},
}

func init() {
	rootCmd.AddCommand(loginCmd)
	loginCmd.Flags().StringVar(&loginServerFlag, "server", "", "server address (host:port)")
	loginCmd.Flags().StringVar(&loginUsernameFlag, "username", "", "account username")
	loginCmd.Flags().StringVar(&loginPasswordFlag, "password", "", "account password")
}

func loginCommand(server, username, password string) error {
	// Start from the existing config so login keeps reconnect and notify
	// settings the user already tuned.
	cfg, err := config.LoadOrDefault()
	if err != nil {
		return err
	}

	if server == "" {
		server = cfg.Server.Address
	}
	if username == "" {
		username = cfg.Auth.Username
	}

	interactive := term.IsTerminal(int(os.Stdin.Fd()))
	if server == "" || username == "" || password == "" {
		if !interactive {
			return errors.New(errors.ErrConfig,
				"Missing login details and no terminal to prompt on",
				"Provide --server, --username, and --password flags")
		}
		if err := promptLogin(&server, &username, &password); err != nil {
			return err
		}
	}

	cfg.Server.Address = server
	cfg.Auth.Username = username
	cfg.Auth.Password = password
	if err := cfg.Validate(); err != nil {
		return err
	}

	// Verify before saving: a rejected login should not clobber working
	// credentials on disk.
	a, err := newAppWithConfig(cfg, false)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.DialTimeout+cfg.Server.RequestTimeout)
	defer cancel()
	if err := a.client.Authenticate(ctx, username, password); err != nil {
		return err
	}

	path, err := config.SaveToFoundOrGlobal(cfg, Config())
	if err != nil {
		return err
	}

	fmt.Printf("Logged in to %s as %s\n", server, username)
	fmt.Printf("Credentials saved to %s\n", path)
	return nil
}

// promptLogin collects missing login details interactively.
func promptLogin(server, username, password *string) error {
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Server address").
				Description("Host and port of the Uptime Kuma server").
				Placeholder("kuma.example.com:3001").
				Value(server).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("server address is required")
					}
					return nil
				}),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Username").
				Value(username).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("username is required")
					}
					return nil
				}),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Password").
				EchoMode(huh.EchoModePassword).
				Value(password).
				Validate(func(s string) error {
					if s == "" {
						return fmt.Errorf("password is required")
					}
					return nil
				}),
		),
	)

	if err := form.Run(); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to get login details",
			"Check terminal compatibility or pass --server, --username, and --password")
	}
	return nil
}
