package config

import (
	"path/filepath"
	"time"

	"github.com/projecteru2/apkfetch/utils"
)

// ManagerConfig tunes the download manager and the orchestrator's poll loop.
type ManagerConfig struct {
	// PollInterval is the delay between two status queries.
	PollInterval time.Duration `json:"poll_interval" mapstructure:"poll_interval"`
	// PollTimeout bounds how long the orchestrator watches one download.
	// Zero polls until a terminal state or cancellation.
	PollTimeout time.Duration `json:"poll_timeout" mapstructure:"poll_timeout"`
	// Retention is how long finished rows are kept before GC prunes them.
	Retention time.Duration `json:"retention" mapstructure:"retention"`
}

// EnsureManagerDirs creates all required directories for the download manager.
func (c *Config) EnsureManagerDirs() error {
	return utils.EnsureDirs(
		c.ManagerDBDir(),
		c.DownloadsDir(),
	)
}

// Derived path helpers. Manager metadata lives under {RootDir}/manager/.

func (c *Config) managerDir() string       { return filepath.Join(c.RootDir, "manager") }
func (c *Config) ManagerDBDir() string     { return filepath.Join(c.managerDir(), "db") }
func (c *Config) ManagerIndexFile() string { return filepath.Join(c.ManagerDBDir(), "jobs.json") }
func (c *Config) ManagerIndexLock() string { return filepath.Join(c.ManagerDBDir(), "jobs.lock") }
