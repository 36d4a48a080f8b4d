package app

import (
	"fmt"
	"os"
	"path/filepath"
)

// GetDefaults returns application default paths, checking environment variables first.
// Environment variables:
//   - DRIVEVAULT_CONFIG_PATH: config file location (default: ~/.config/drivevault.toml)
//   - DRIVEVAULT_HOME: base directory for drivevault data (default: ~/.local/share/drivevault)
func GetDefaults() (map[string]string, error) {
	configPath, err := getConfigPath()
	if err != nil {
		return nil, err
	}

	baseDir, err := getBaseDir()
	if err != nil {
		return nil, err
	}

	return map[string]string{
		"config_path": configPath,
		"base_dir":    baseDir,
		"log_dir":     filepath.Join(baseDir, "log"),
	}, nil
}

// getConfigPath returns the config file path, checking DRIVEVAULT_CONFIG_PATH
// first, then falling back to the default ~/.config/drivevault.toml.
func getConfigPath() (string, error) {
	if path := os.Getenv("DRIVEVAULT_CONFIG_PATH"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "drivevault.toml"), nil
}

// getBaseDir returns the base data directory, checking DRIVEVAULT_HOME first,
// then falling back to the XDG default ~/.local/share/drivevault.
func getBaseDir() (string, error) {
	if path := os.Getenv("DRIVEVAULT_HOME"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".local", "share", "drivevault"), nil
}
