// Package config provides configuration management for aiv-upload.
package config

import (
	"os"
	"path/filepath"
)

// ConfigDirectory returns the directory holding the uploader configuration.
//
// Locations:
//   - Windows: %AppData%\aiverify
//   - Unix: ~/.config/aiverify
func ConfigDirectory() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join(os.TempDir(), "aiverify")
		}
		return filepath.Join(homeDir, ".config", "aiverify")
	}
	return filepath.Join(configDir, "aiverify")
}

// GetDefaultConfigPath returns the default config.csv location.
func GetDefaultConfigPath() string {
	return filepath.Join(ConfigDirectory(), "config.csv")
}
