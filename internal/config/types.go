package config

import (
	"time"

	"github.com/statusbeat/statusbeat/internal/errors"
)

// CurrentConfigVersion is the schema version for the config file.
// Increment when making breaking changes to the config structure.
const CurrentConfigVersion = 1

// Config represents the complete .statusbeat.yaml configuration file.
type Config struct {
	Version   int             `yaml:"version" mapstructure:"version"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Auth      AuthConfig      `yaml:"auth" mapstructure:"auth"`
	Reconnect ReconnectConfig `yaml:"reconnect" mapstructure:"reconnect"`
	Notify    NotifyConfig    `yaml:"notify" mapstructure:"notify"`
	Storage   StorageConfig   `yaml:"storage" mapstructure:"storage"`
}

// ServerConfig identifies the monitoring server and the connection timeouts.
type ServerConfig struct {
	// Address is the host:port the event channel connects to.
	Address string `yaml:"address" mapstructure:"address"`

	// DialTimeout bounds each connection attempt.
	DialTimeout time.Duration `yaml:"dial_timeout" mapstructure:"dial_timeout"`

	// RequestTimeout bounds each request/response exchange.
	RequestTimeout time.Duration `yaml:"request_timeout" mapstructure:"request_timeout"`
}

// AuthConfig holds the saved credentials. Written by 'statusbeat login'.
type AuthConfig struct {
	Username string `yaml:"username" mapstructure:"username"`
	Password string `yaml:"password" mapstructure:"password"`
}

// ReconnectConfig controls the automatic reconnect loop.
type ReconnectConfig struct {
	Enabled     bool          `yaml:"enabled" mapstructure:"enabled"`
	MinDelay    time.Duration `yaml:"min_delay" mapstructure:"min_delay"`
	MaxDelay    time.Duration `yaml:"max_delay" mapstructure:"max_delay"`
	MaxAttempts int           `yaml:"max_attempts" mapstructure:"max_attempts"`
}

// NotifyConfig selects notification backends for up/down transitions.
type NotifyConfig struct {
	Telegram TelegramConfig `yaml:"telegram" mapstructure:"telegram"`
}

// TelegramConfig enables the Telegram backend when both fields are set.
type TelegramConfig struct {
	Token  string `yaml:"token" mapstructure:"token"`
	ChatID int64  `yaml:"chat_id" mapstructure:"chat_id"`
}

// StorageConfig locates the on-disk snapshot directory.
type StorageConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *Config {
	return &Config{
		Version: CurrentConfigVersion,
		Server: ServerConfig{
			DialTimeout:    10 * time.Second,
			RequestTimeout: 15 * time.Second,
		},
		Reconnect: ReconnectConfig{
			Enabled:     true,
			MinDelay:    time.Second,
			MaxDelay:    30 * time.Second,
			MaxAttempts: 10,
		},
	}
}

// Validate checks the parts of the config every command depends on.
func (c *Config) Validate() error {
	if c.Server.Address == "" {
		return errors.New(errors.ErrConfig,
			"No server address configured",
			"Set server.address in the config file or run 'statusbeat login'")
	}
	if c.Reconnect.MinDelay > c.Reconnect.MaxDelay && c.Reconnect.MaxDelay != 0 {
		return errors.New(errors.ErrConfig,
			"reconnect.min_delay is larger than reconnect.max_delay",
			"Adjust the reconnect delays so min <= max")
	}
	if c.Reconnect.MaxAttempts < 0 {
		return errors.New(errors.ErrConfig,
			"reconnect.max_attempts cannot be negative",
			"Use 0 to disable or a positive attempt count")
	}
	return nil
}

// TelegramEnabled reports whether the Telegram notifier is configured.
func (c *Config) TelegramEnabled() bool {
	return c.Notify.Telegram.Token != "" && c.Notify.Telegram.ChatID != 0
}
