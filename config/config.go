package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	coretypes "github.com/projecteru2/core/types"
)

// Config holds global apkfetch configuration.
type Config struct {
	// RootDir is the base directory for persistent data (job index, prefs).
	RootDir string `json:"root_dir" mapstructure:"root_dir"`
	// DownloadDir receives files fetched by the download manager.
	// Defaults to {RootDir}/downloads if empty.
	DownloadDir string `json:"download_dir" mapstructure:"download_dir"`
	// CacheDir receives files fetched by the embedded engine.
	// Defaults to {RootDir}/cache if empty.
	CacheDir string `json:"cache_dir" mapstructure:"cache_dir"`
	// PoolSize is the manager worker pool size.
	// Defaults to runtime.NumCPU() if zero.
	PoolSize int `json:"pool_size" mapstructure:"pool_size"`

	Engine       EngineConfig       `json:"engine" mapstructure:"engine"`
	Manager      ManagerConfig      `json:"manager" mapstructure:"manager"`
	Connectivity ConnectivityConfig `json:"connectivity" mapstructure:"connectivity"`

	// Openers lists browser/installer binaries tried in order.
	// Empty means the platform defaults.
	Openers []string `json:"openers" mapstructure:"openers"`

	// Log configuration, uses eru core's ServerLogConfig.
	Log coretypes.ServerLogConfig `json:"log" mapstructure:"log"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		RootDir:  defaultRootDir(),
		PoolSize: runtime.NumCPU(),
		Engine: EngineConfig{
			ProgressInterval:  256 << 10, //nolint:mnd
			Timeout:           30 * time.Minute,
			InactivityTimeout: time.Minute,
			MaxSize:           "20GiB",
			Resume:            true,
		},
		Manager: ManagerConfig{
			PollInterval: 500 * time.Millisecond, //nolint:mnd
			PollTimeout:  time.Hour,
			Retention:    7 * 24 * time.Hour,
		},
		Connectivity: ConnectivityConfig{
			Source:       defaultSource(),
			DialAddress:  "1.1.1.1:443",
			DialInterval: 5 * time.Second, //nolint:mnd
			DialTimeout:  2 * time.Second, //nolint:mnd
		},
		Log: coretypes.ServerLogConfig{
			Level:      "info",
			MaxSize:    500,
			MaxAge:     28,
			MaxBackups: 3,
		},
	}
}

// LoadConfig loads configuration from a JSON file, falling back to defaults.
// The CLI goes through viper instead; this is for library callers.
func LoadConfig(path string) (*Config, error) {
	conf := DefaultConfig()
	if path == "" {
		return conf, nil
	}

	data, err := os.ReadFile(path) //nolint:gosec // config path from caller
	if err != nil {
		if os.IsNotExist(err) {
			return conf, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := json.Unmarshal(data, conf); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	conf.Normalize()
	return conf, nil
}

// Normalize fills zero values left by partial config files.
func (c *Config) Normalize() {
	def := DefaultConfig()
	if c.RootDir == "" {
		c.RootDir = def.RootDir
	}
	if c.PoolSize <= 0 {
		c.PoolSize = runtime.NumCPU()
	}
	if c.Log.Level == "" {
		c.Log.Level = def.Log.Level
	}
	if c.Engine.ProgressInterval <= 0 {
		c.Engine.ProgressInterval = def.Engine.ProgressInterval
	}
	if c.Manager.Retention <= 0 {
		c.Manager.Retention = def.Manager.Retention
	}
	if c.Manager.PollInterval <= 0 {
		c.Manager.PollInterval = def.Manager.PollInterval
	}
	if c.Connectivity.Source == "" {
		c.Connectivity.Source = def.Connectivity.Source
	}
	if c.Connectivity.DialInterval <= 0 {
		c.Connectivity.DialInterval = def.Connectivity.DialInterval
	}
	if c.Connectivity.DialTimeout <= 0 {
		c.Connectivity.DialTimeout = def.Connectivity.DialTimeout
	}
}

// DownloadsDir returns the directory for manager downloads.
func (c *Config) DownloadsDir() string {
	if c.DownloadDir != "" {
		return c.DownloadDir
	}
	return filepath.Join(c.RootDir, "downloads")
}

// EngineCacheDir returns the directory for embedded-engine downloads.
func (c *Config) EngineCacheDir() string {
	if c.CacheDir != "" {
		return c.CacheDir
	}
	return filepath.Join(c.RootDir, "cache")
}

func defaultRootDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "apkfetch")
	}
	return filepath.Join(os.TempDir(), "apkfetch")
}
