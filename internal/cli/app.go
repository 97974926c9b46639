package cli

import (
	"context"
	"time"

	"github.com/statusbeat/statusbeat/internal/client"
	"github.com/statusbeat/statusbeat/internal/config"
	"github.com/statusbeat/statusbeat/internal/errors"
	"github.com/statusbeat/statusbeat/internal/kv"
	"github.com/statusbeat/statusbeat/internal/logger"
	"github.com/statusbeat/statusbeat/internal/notify"
	"github.com/statusbeat/statusbeat/internal/reconcile"
	"github.com/statusbeat/statusbeat/internal/store"
)

// app bundles the wired synchronization core for one command invocation.
type app struct {
	cfg      *config.Config
	monitors *store.MonitorStore
	infos    *store.InfoStore
	client   *client.Client
}

// newApp loads config and wires the snapshot store, notifiers, reconciler,
// and client together. Pass requireCreds for commands that cannot work
// without a prior 'statusbeat login'.
func newApp(requireCreds bool) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return newAppWithConfig(cfg, requireCreds)
}

// newAppWithConfig wires the core around an already-loaded config. Used by
// login, which builds its config from prompts before any file exists.
func newAppWithConfig(cfg *config.Config, requireCreds bool) (*app, error) {
	if requireCreds && cfg.Auth.Username == "" {
		return nil, errors.New(errors.ErrAuth,
			"Not logged in",
			"Run 'statusbeat login' to authenticate first")
	}

	dataDir, err := cfg.DataDir()
	if err != nil {
		return nil, err
	}

	monitors := store.NewMonitorStore(kv.NewFileStore(dataDir), logger.NewEnvLogger("[store]"))
	infos := store.NewInfoStore()

	notifier, err := buildNotifier(cfg)
	if err != nil {
		return nil, err
	}

	rec := reconcile.New(monitors, infos, notifier, logger.NewEnvLogger("[reconcile]"))

	cli := client.New(client.Options{
		Address:        cfg.Server.Address,
		DialTimeout:    cfg.Server.DialTimeout,
		RequestTimeout: cfg.Server.RequestTimeout,
		AutoReconnect:  cfg.Reconnect.Enabled,
		Backoff: client.BackoffPolicy{
			MinDelay:    cfg.Reconnect.MinDelay,
			MaxDelay:    cfg.Reconnect.MaxDelay,
			MaxAttempts: cfg.Reconnect.MaxAttempts,
		},
	}, monitors, rec, logger.NewEnvLogger("[client]"))

	return &app{cfg: cfg, monitors: monitors, infos: infos, client: cli}, nil
}

// connect authenticates with the stored credentials and performs the
// initial fetch so the store holds a fresh snapshot.
func (a *app) connect(ctx context.Context) error {
	if err := a.client.Authenticate(ctx, a.cfg.Auth.Username, a.cfg.Auth.Password); err != nil {
		return err
	}
	if err := a.client.GetMonitors(ctx); err != nil {
		return err
	}
	return nil
}

// waitForMonitors blocks until the store holds at least one monitor or the
// timeout passes. The monitor list arrives as a push after getMonitorList
// acks, so a fetch returning does not mean the store is populated yet.
func (a *app) waitForMonitors(timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for a.monitors.Len() == 0 {
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(20 * time.Millisecond)
	}
	return true
}

// Close disconnects the client. Idempotent.
func (a *app) Close() {
	a.client.Disconnect()
}

// loadConfig finds, loads, and validates the config file, honoring --config.
func loadConfig() (*config.Config, error) {
	path, err := config.Find(Config())
	if err != nil {
		return nil, err
	}
	if path == "" {
		return nil, errors.New(errors.ErrConfig,
			"No config file found",
			"Run 'statusbeat login' to create one")
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// buildNotifier assembles the notification chain: transitions always go to
// the log, and to Telegram when a token and chat are configured.
func buildNotifier(cfg *config.Config) (notify.Notifier, error) {
	logNotifier := notify.NewLogNotifier(logger.NewEnvLogger("[notify]"))
	if !cfg.TelegramEnabled() {
		return logNotifier, nil
	}

	tg, err := notify.NewTelegramNotifier(cfg.Notify.Telegram.Token, cfg.Notify.Telegram.ChatID, logger.NewEnvLogger("[notify]"))
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Telegram notifier setup failed",
			"Check notify.telegram.token and notify.telegram.chat_id in your config")
	}
	return notify.NewMultiNotifier(logNotifier, tg), nil
}
