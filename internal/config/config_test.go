package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// writeConfig drops a YAML config file into a temp dir.
func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "{}"))
	require.NoError(t, err)

	require.Equal(t, "127.0.0.1", cfg.Server.Host)
	require.Equal(t, 8636, cfg.Server.Port)
	require.Equal(t, "127.0.0.1:8636", cfg.Server.Addr())
	require.Equal(t, int64(2*1024*1024*1024), cfg.Server.MaxUploadSize)

	require.Equal(t, "file", cfg.Snapshot.Driver)
	require.False(t, cfg.Snapshot.IsEmbedded())
	require.Equal(t, "./data/snapshot.json", cfg.Snapshot.Path)

	require.Equal(t, "filesystem", cfg.Blobs.Driver)
	require.Equal(t, "./data/media", cfg.Blobs.DataDir)

	require.Equal(t, 3*time.Second, cfg.Playback.ControlsHideDelay)
	require.Zero(t, cfg.Playback.ResolveTimeout)

	require.Equal(t, "info", cfg.Logging.Level)
	require.True(t, cfg.Metrics.Enabled)
	require.Equal(t, "/metrics", cfg.Metrics.Path)
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9000
snapshot:
  driver: sqlite
  path: /tmp/localtube.db
blobs:
  driver: memory
playback:
  controls_hide_delay: 5s
  resolve_timeout: 10s
logging:
  level: debug
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, 9000, cfg.Server.Port)
	require.True(t, cfg.Snapshot.IsEmbedded())
	require.Equal(t, "/tmp/localtube.db", cfg.Snapshot.Path)
	require.Equal(t, "memory", cfg.Blobs.Driver)
	require.Equal(t, 5*time.Second, cfg.Playback.ControlsHideDelay)
	require.Equal(t, 10*time.Second, cfg.Playback.ResolveTimeout)
	require.Equal(t, "debug", cfg.Logging.Level)

	// Unset sections keep their defaults.
	require.Equal(t, "127.0.0.1", cfg.Server.Host)
	require.Equal(t, "WAL", cfg.Snapshot.JournalMode)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("LOCALTUBE_SERVER_PORT", "7070")
	t.Setenv("LOCALTUBE_LOGGING_LEVEL", "warn")

	cfg, err := Load(writeConfig(t, "server:\n  port: 9000\n"))
	require.NoError(t, err)
	require.Equal(t, 7070, cfg.Server.Port, "environment beats the file")
	require.Equal(t, "warn", cfg.Logging.Level)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg, err := Load(writeConfig(t, "{}"))
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "invalid port",
			mutate:  func(c *Config) { c.Server.Port = 0 },
			wantErr: "server.port",
		},
		{
			name:    "unknown snapshot driver",
			mutate:  func(c *Config) { c.Snapshot.Driver = "postgres" },
			wantErr: "snapshot.driver",
		},
		{
			name:    "missing snapshot path",
			mutate:  func(c *Config) { c.Snapshot.Path = "" },
			wantErr: "snapshot.path",
		},
		{
			name:    "unknown blob driver",
			mutate:  func(c *Config) { c.Blobs.Driver = "s3" },
			wantErr: "blobs.driver",
		},
		{
			name: "filesystem driver without data dir",
			mutate: func(c *Config) {
				c.Blobs.Driver = "filesystem"
				c.Blobs.DataDir = ""
			},
			wantErr: "blobs.data_dir",
		},
		{
			name:    "non-positive controls delay",
			mutate:  func(c *Config) { c.Playback.ControlsHideDelay = 0 },
			wantErr: "controls_hide_delay",
		},
		{
			name:    "negative resolve timeout",
			mutate:  func(c *Config) { c.Playback.ResolveTimeout = -time.Second },
			wantErr: "resolve_timeout",
		},
		{
			name:    "unknown log level",
			mutate:  func(c *Config) { c.Logging.Level = "verbose" },
			wantErr: "logging.level",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadRejectsInvalidFile(t *testing.T) {
	_, err := Load(writeConfig(t, "logging:\n  level: shouty\n"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid configuration")
}
