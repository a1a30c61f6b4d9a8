package config

import (
	"path/filepath"

	"github.com/projecteru2/apkfetch/utils"
)

// EnsurePrefsDirs creates the preferences directory.
func (c *Config) EnsurePrefsDirs() error {
	return utils.EnsureDirs(c.prefsDir())
}

func (c *Config) prefsDir() string  { return filepath.Join(c.RootDir, "db") }
func (c *Config) PrefsFile() string { return filepath.Join(c.prefsDir(), "prefs.json") }
func (c *Config) PrefsLock() string { return filepath.Join(c.prefsDir(), "prefs.lock") }
