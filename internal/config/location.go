package config

import (
	"os"
	"path/filepath"
)

// EnvConfigPath overrides the config file location.
const EnvConfigPath = "CLOSUREBT_CONFIG"

// GetConfigPath returns the configuration file path. It first checks the
// CLOSUREBT_CONFIG environment variable, then falls back to
// ~/.closure-bt/config.
func GetConfigPath() (string, error) {
	if configPath := os.Getenv(EnvConfigPath); configPath != "" {
		return configPath, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	return filepath.Join(homeDir, ".closure-bt", "config"), nil
}
