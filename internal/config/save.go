package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/statusbeat/statusbeat/internal/errors"
)

// Save writes the config to path as YAML, creating parent directories as
// needed. The file is written 0600 because it can carry credentials.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Cannot create config directory",
			"Check permissions for "+filepath.Dir(path))
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Cannot serialize config",
			"This is a bug; please report it")
	}

	// Write to a temp file in the same directory, then rename, so a crash
	// mid-write never leaves a truncated config behind.
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Cannot write config file",
			"Check permissions for "+path)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp) //nolint:errcheck // Best effort cleanup
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Cannot replace config file",
			"Check permissions for "+path)
	}
	return nil
}

// SaveToFoundOrGlobal writes the config back to the file it was found at, or
// to the global path when none exists yet. Returns the path written.
func SaveToFoundOrGlobal(cfg *Config, explicit string) (string, error) {
	path, err := Find(explicit)
	if err != nil {
		return "", err
	}
	if path == "" {
		path, err = GlobalConfigPath()
		if err != nil {
			return "", err
		}
	}
	if err := Save(cfg, path); err != nil {
		return "", err
	}
	return path, nil
}
