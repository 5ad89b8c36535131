package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	// AppName names the per-user configuration directory.
	AppName = "TimeRing"

	TimersFile   = "timers.json"
	SettingsFile = "settings.json"
	BuiltinSound = "timesup.wav"
)

// ConfigDir returns the directory holding timers and settings. The
// TIMERING_CONFIG_DIR environment variable overrides the platform default.
// The directory is created if missing.
func ConfigDir() (string, error) {
	dir := strings.TrimSpace(os.Getenv("TIMERING_CONFIG_DIR"))
	if dir == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			return "", fmt.Errorf("locate user config dir: %w", err)
		}
		dir = filepath.Join(base, AppName)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create config dir: %w", err)
	}
	return dir, nil
}

// writeFileAtomic writes data to a temp file next to path and renames it
// over path.
func writeFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
