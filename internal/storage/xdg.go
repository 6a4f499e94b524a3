package storage

import (
	"fmt"
	"os"
	"path/filepath"
)

// DefaultDir returns $XDG_CONFIG_HOME/authtoken-proxy, falling back to
// ~/.config/authtoken-proxy.
func DefaultDir() string {
	xdgConfigHome := os.Getenv("XDG_CONFIG_HOME")
	if xdgConfigHome == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		xdgConfigHome = filepath.Join(homeDir, ".config")
	}
	return filepath.Join(xdgConfigHome, "authtoken-proxy")
}

func DefaultFilePath() string {
	return filepath.Join(DefaultDir(), "tokens.json")
}

func DefaultSQLitePath() string {
	return filepath.Join(DefaultDir(), "tokens.db")
}

func EnsureParentDir(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return nil
}
