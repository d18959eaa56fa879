// Package config resolves where the vault file lives. Precedence: explicit
// --file flag, then the config file named by LOCKBOX_CONFIG, then
// ~/.lockbox/config.yaml, then the built-in default path.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	// EnvConfig names the environment variable pointing at the config file.
	EnvConfig = "LOCKBOX_CONFIG"

	configDirName    = ".lockbox"
	configFileName   = "config.yaml"
	defaultVaultName = "vault.lbx"
)

// Config is the on-disk configuration file.
type Config struct {
	// VaultPath overrides the default vault file location.
	VaultPath string `yaml:"vault_path"`
}

// DefaultVaultPath returns ~/.lockbox/vault.lbx.
func DefaultVaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, configDirName, defaultVaultName), nil
}

func defaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, configDirName, configFileName), nil
}

// Load reads the config file at path.
func Load(path string) (Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// ResolveVaultPath picks the vault file location. flagPath wins when set;
// a missing config file is not an error, a malformed one is.
func ResolveVaultPath(flagPath string) (string, error) {
	if flagPath != "" {
		return flagPath, nil
	}

	cfgPath := os.Getenv(EnvConfig)
	explicit := cfgPath != ""
	if !explicit {
		p, err := defaultConfigPath()
		if err != nil {
			return "", err
		}
		cfgPath = p
	}

	cfg, err := Load(cfgPath)
	switch {
	case err == nil:
		if cfg.VaultPath != "" {
			return cfg.VaultPath, nil
		}
	case errors.Is(err, os.ErrNotExist):
		if explicit {
			return "", fmt.Errorf("config file %s: %w", cfgPath, err)
		}
	default:
		return "", err
	}

	return DefaultVaultPath()
}
