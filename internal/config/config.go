// Package config provides configuration management for localtube.
// Configuration can be loaded from YAML files and environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Snapshot SnapshotConfig `mapstructure:"snapshot"`
	Blobs    BlobsConfig    `mapstructure:"blobs"`
	Playback PlaybackConfig `mapstructure:"playback"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// ServerConfig holds settings for the local HTTP boundary.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxUploadSize   int64         `mapstructure:"max_upload_size"`
}

// Addr returns the listen address in host:port format.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// SnapshotConfig holds settings for the metadata snapshot store.
// Supports a plain JSON file and an embedded SQLite database.
type SnapshotConfig struct {
	// Driver selects the snapshot backend: "file" or "sqlite".
	Driver string `mapstructure:"driver"`

	// Path is the snapshot file path ("file" driver) or the database
	// file path ("sqlite" driver). Use ":memory:" with sqlite for an
	// ephemeral store.
	Path string `mapstructure:"path"`

	// SQLite pragmas (used when Driver is "sqlite").
	JournalMode     string `mapstructure:"journal_mode"`
	BusyTimeout     int    `mapstructure:"busy_timeout"`
	SynchronousMode string `mapstructure:"synchronous_mode"`
}

// IsEmbedded returns true if using the embedded database driver.
func (c SnapshotConfig) IsEmbedded() bool {
	return c.Driver == "sqlite"
}

// BlobsConfig holds settings for the binary object store.
type BlobsConfig struct {
	// Driver selects the object-store backend: "filesystem" or "memory".
	Driver string `mapstructure:"driver"`

	// DataDir is the root directory for stored payloads.
	DataDir string `mapstructure:"data_dir"`

	// StagingDir is where the playback engine materializes transient
	// handles for locally stored media. Defaults to the OS temp dir.
	StagingDir string `mapstructure:"staging_dir"`
}

// PlaybackConfig holds playback engine settings.
type PlaybackConfig struct {
	// ControlsHideDelay is the inactivity window before the transport
	// controls fade while playing.
	ControlsHideDelay time.Duration `mapstructure:"controls_hide_delay"`

	// ResolveTimeout bounds the object-store fetch when resolving a
	// local source. Zero disables the bound; a missing object then
	// leaves the session in Resolving indefinitely, matching the
	// local-only storage model.
	ResolveTimeout time.Duration `mapstructure:"resolve_timeout"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	TimeFormat string `mapstructure:"time_format"`
}

// MetricsConfig holds Prometheus metrics settings.
type MetricsConfig struct {
	// Enabled determines if metrics collection is active.
	Enabled bool `mapstructure:"enabled"`

	// Path is the URL path for the metrics endpoint.
	Path string `mapstructure:"path"`
}

// Load reads configuration from the specified file and environment variables.
// Environment variables take precedence over file values.
// Environment variables are prefixed with LOCALTUBE_ and use _ as separator.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("LOCALTUBE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
	}

	// Config file is optional - defaults and env vars are enough.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 8636)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 15*time.Second)
	v.SetDefault("server.max_upload_size", 2*1024*1024*1024) // 2GB

	// Snapshot defaults
	v.SetDefault("snapshot.driver", "file")
	v.SetDefault("snapshot.path", "./data/snapshot.json")
	v.SetDefault("snapshot.journal_mode", "WAL")
	v.SetDefault("snapshot.busy_timeout", 5000)
	v.SetDefault("snapshot.synchronous_mode", "NORMAL")

	// Blob store defaults
	v.SetDefault("blobs.driver", "filesystem")
	v.SetDefault("blobs.data_dir", "./data/media")
	v.SetDefault("blobs.staging_dir", "")

	// Playback defaults
	v.SetDefault("playback.controls_hide_delay", 3*time.Second)
	v.SetDefault("playback.resolve_timeout", time.Duration(0))

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.time_format", time.RFC3339)

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
}

// Validate checks the configuration for required values and valid ranges.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}

	validSnapshotDrivers := map[string]bool{"file": true, "sqlite": true}
	if !validSnapshotDrivers[c.Snapshot.Driver] {
		return fmt.Errorf("snapshot.driver must be 'file' or 'sqlite'")
	}
	if c.Snapshot.Path == "" {
		return fmt.Errorf("snapshot.path is required")
	}

	validBlobDrivers := map[string]bool{"filesystem": true, "memory": true}
	if !validBlobDrivers[c.Blobs.Driver] {
		return fmt.Errorf("blobs.driver must be 'filesystem' or 'memory'")
	}
	if c.Blobs.Driver == "filesystem" && c.Blobs.DataDir == "" {
		return fmt.Errorf("blobs.data_dir is required for filesystem driver")
	}

	if c.Playback.ControlsHideDelay <= 0 {
		return fmt.Errorf("playback.controls_hide_delay must be positive")
	}
	if c.Playback.ResolveTimeout < 0 {
		return fmt.Errorf("playback.resolve_timeout cannot be negative")
	}

	validLevels := map[string]bool{
		"trace": true, "debug": true, "info": true,
		"warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("logging.level must be one of: trace, debug, info, warn, error, fatal, panic")
	}

	return nil
}

// MustLoad loads configuration or panics on error.
// Useful for main function initialization.
func MustLoad(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}
