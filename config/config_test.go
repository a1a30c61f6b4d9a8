package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigMissingFile(t *testing.T) {
	conf, err := LoadConfig(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)
	require.Equal(t, DefaultConfig(), conf)
}

func TestLoadConfigPartial(t *testing.T) {
	path := filepath.Join(t.TempDir(), "apkfetch.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"root_dir": "/data/apkfetch",
		"pool_size": 0,
		"manager": {"poll_interval": 0, "retention": 0},
		"log": {"level": ""}
	}`), 0o600))

	conf, err := LoadConfig(path)
	require.NoError(t, err)
	def := DefaultConfig()
	require.Equal(t, "/data/apkfetch", conf.RootDir)
	require.Positive(t, conf.PoolSize)
	require.Equal(t, def.Manager.PollInterval, conf.Manager.PollInterval)
	require.Equal(t, def.Manager.Retention, conf.Manager.Retention)
	require.Equal(t, "info", conf.Log.Level)
	require.Equal(t, filepath.Join("/data/apkfetch", "downloads"), conf.DownloadsDir())
	require.Equal(t, filepath.Join("/data/apkfetch", "cache"), conf.EngineCacheDir())
}

func TestLoadConfigInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "apkfetch.json")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0o600))
	_, err := LoadConfig(path)
	require.Error(t, err)
}

func TestNormalizeKeepsExplicitValues(t *testing.T) {
	conf := &Config{
		RootDir:  "/r",
		PoolSize: 3,
		Manager:  ManagerConfig{PollInterval: time.Second, PollTimeout: 0},
		Connectivity: ConnectivityConfig{
			Source: SourceDial, DialInterval: time.Second, DialTimeout: time.Second,
		},
	}
	conf.Normalize()
	require.Equal(t, 3, conf.PoolSize)
	require.Equal(t, time.Second, conf.Manager.PollInterval)
	require.Zero(t, conf.Manager.PollTimeout)
	require.Equal(t, SourceDial, conf.Connectivity.Source)
}

func TestMaxBytes(t *testing.T) {
	n, err := EngineConfig{MaxSize: "2MiB"}.MaxBytes()
	require.NoError(t, err)
	require.EqualValues(t, 2<<20, n)

	n, err = EngineConfig{}.MaxBytes()
	require.NoError(t, err)
	require.Zero(t, n)

	_, err = EngineConfig{MaxSize: "lots"}.MaxBytes()
	require.Error(t, err)
}

func TestDirOverrides(t *testing.T) {
	conf := &Config{RootDir: "/r", DownloadDir: "/dl", CacheDir: "/c"}
	require.Equal(t, "/dl", conf.DownloadsDir())
	require.Equal(t, "/c", conf.EngineCacheDir())
	require.Equal(t, filepath.Join("/r", "manager", "db", "jobs.json"), conf.ManagerIndexFile())
	require.Equal(t, filepath.Join("/r", "db", "prefs.json"), conf.PrefsFile())
}
