package config

import (
	"fmt"
	"time"

	units "github.com/docker/go-units"

	"github.com/projecteru2/apkfetch/utils"
)

// EngineConfig tunes the embedded download engine.
type EngineConfig struct {
	// ProgressInterval is the number of bytes between progress events.
	ProgressInterval int64 `json:"progress_interval" mapstructure:"progress_interval"`
	// Timeout bounds a whole transfer. Zero disables it.
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`
	// InactivityTimeout aborts a transfer that receives no data for this long.
	// Zero disables it.
	InactivityTimeout time.Duration `json:"inactivity_timeout" mapstructure:"inactivity_timeout"`
	// MaxSize is a human-readable size limit ("20GiB"). Empty disables it.
	MaxSize string `json:"max_size" mapstructure:"max_size"`
	// Resume continues a shorter local file with a Range request.
	Resume bool `json:"resume" mapstructure:"resume"`
	// UserAgent overrides the default User-Agent header.
	UserAgent string `json:"user_agent" mapstructure:"user_agent"`
}

// MaxBytes parses MaxSize. Returns 0 when no limit is configured.
func (e EngineConfig) MaxBytes() (int64, error) {
	if e.MaxSize == "" {
		return 0, nil
	}
	n, err := units.RAMInBytes(e.MaxSize)
	if err != nil {
		return 0, fmt.Errorf("invalid engine.max_size %q: %w", e.MaxSize, err)
	}
	return n, nil
}

// EnsureEngineDirs creates the engine cache directory.
func (c *Config) EnsureEngineDirs() error {
	return utils.EnsureDirs(c.EngineCacheDir())
}
