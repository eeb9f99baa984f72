// Package profile handles the local per-profile directory under ~/.caredesk:
// the cache database, the stored access token, logs, and the exclusive lock
// that keeps two clients from sharing one cache.
package profile

import (
	"os"
	"path/filepath"
)

// BaseDir returns ~/.caredesk.
func BaseDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".caredesk")
}

// Dir returns the profile-specific directory.
func Dir(name string) string {
	return filepath.Join(BaseDir(), "profiles", name)
}

// DBPath returns the local cache database path for a profile.
func DBPath(name string) string {
	return filepath.Join(Dir(name), "caredesk.db")
}

// TokenPath returns the stored access token path for a profile.
func TokenPath(name string) string {
	return filepath.Join(Dir(name), "token")
}

// LockPath returns the lock file path for a profile.
func LockPath(name string) string {
	return filepath.Join(Dir(name), "LOCK")
}

// LogDir returns the log directory for a profile.
func LogDir(name string) string {
	return filepath.Join(Dir(name), "logs")
}

// LogPath returns the client log file path.
func LogPath(name string) string {
	return filepath.Join(LogDir(name), "caredesk.log")
}

// ConfigPath returns the global config file path.
func ConfigPath() string {
	return filepath.Join(BaseDir(), "config.toml")
}

// EnsureDir creates the profile directory tree with proper permissions.
func EnsureDir(name string) error {
	dirs := []string{
		Dir(name),
		LogDir(name),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0700); err != nil {
			return err
		}
	}
	return nil
}
