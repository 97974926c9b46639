package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/statusbeat/statusbeat/internal/config"
	"github.com/statusbeat/statusbeat/internal/errors"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), config.ConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := config.DefaultConfig()

	assert.Equal(t, config.CurrentConfigVersion, cfg.Version)
	assert.Equal(t, 10*time.Second, cfg.Server.DialTimeout)
	assert.True(t, cfg.Reconnect.Enabled)
	assert.Equal(t, 30*time.Second, cfg.Reconnect.MaxDelay)
	assert.Equal(t, 10, cfg.Reconnect.MaxAttempts)
	assert.False(t, cfg.TelegramEnabled())
}

func TestLoadFullConfig(t *testing.T) {
	path := writeConfig(t, `
version: 1
server:
  address: status.example.com:3001
  dial_timeout: 5s
  request_timeout: 20s
auth:
  username: admin
  password: hunter2
reconnect:
  enabled: false
  min_delay: 2s
  max_delay: 1m
  max_attempts: 4
notify:
  telegram:
    token: 12345:abcdef
    chat_id: -100123
storage:
  dir: /var/lib/statusbeat
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "status.example.com:3001", cfg.Server.Address)
	assert.Equal(t, 5*time.Second, cfg.Server.DialTimeout)
	assert.Equal(t, 20*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, "admin", cfg.Auth.Username)
	assert.Equal(t, "hunter2", cfg.Auth.Password)
	assert.False(t, cfg.Reconnect.Enabled)
	assert.Equal(t, 2*time.Second, cfg.Reconnect.MinDelay)
	assert.Equal(t, time.Minute, cfg.Reconnect.MaxDelay)
	assert.Equal(t, 4, cfg.Reconnect.MaxAttempts)
	assert.True(t, cfg.TelegramEnabled())
	assert.Equal(t, int64(-100123), cfg.Notify.Telegram.ChatID)

	dir, err := cfg.DataDir()
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/statusbeat", dir)
}

func TestLoadPartialConfigKeepsDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  address: localhost:3001
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "localhost:3001", cfg.Server.Address)
	assert.Equal(t, 10*time.Second, cfg.Server.DialTimeout)
	assert.True(t, cfg.Reconnect.Enabled)
	assert.Equal(t, time.Second, cfg.Reconnect.MinDelay)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrConfig))
}

func TestLoadInvalidYAML(t *testing.T) {
	path := writeConfig(t, "server: [not: valid")
	_, err := config.Load(path)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrConfig))
}

func TestFindExplicitMissing(t *testing.T) {
	_, err := config.Find(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrConfig))
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := config.DefaultConfig()
	cfg.Server.Address = "uptime.internal:3001"
	cfg.Auth.Username = "riley"
	cfg.Auth.Password = "s3cret"

	require.NoError(t, config.Save(cfg, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	loaded, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Server.Address, loaded.Server.Address)
	assert.Equal(t, cfg.Auth.Username, loaded.Auth.Username)
	assert.Equal(t, cfg.Auth.Password, loaded.Auth.Password)
	assert.Equal(t, cfg.Reconnect, loaded.Reconnect)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(cfg *config.Config)
		wantErr bool
	}{
		{
			name:   "valid",
			mutate: func(cfg *config.Config) { cfg.Server.Address = "localhost:3001" },
		},
		{
			name:    "missing address",
			mutate:  func(cfg *config.Config) {},
			wantErr: true,
		},
		{
			name: "min delay above max",
			mutate: func(cfg *config.Config) {
				cfg.Server.Address = "localhost:3001"
				cfg.Reconnect.MinDelay = time.Minute
				cfg.Reconnect.MaxDelay = time.Second
			},
			wantErr: true,
		},
		{
			name: "negative attempts",
			mutate: func(cfg *config.Config) {
				cfg.Server.Address = "localhost:3001"
				cfg.Reconnect.MaxAttempts = -1
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsCode(err, errors.ErrConfig))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
