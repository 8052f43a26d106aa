// Package config loads blockerd configuration from a YAML file with
// environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults.
const (
	DefaultTickInterval   = 5 * time.Second
	DefaultHeartbeat      = 30 * time.Second
	DefaultSessionHistory = 50

	defaultDirName        = ".blockerd"
	defaultConfigFileName = "config.yaml"
	defaultLogFileName    = "blockerd.log"
	defaultDatabaseName   = "profiles.db"
)

// Duration wraps time.Duration so YAML values like "30s" parse.
type Duration time.Duration

// UnmarshalYAML parses a Go duration string.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML renders the duration string form.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Config is the full blockerd configuration.
type Config struct {
	// DataDir holds the database, the shared snapshot file, the activities
	// file, and the encryption key.
	DataDir string `yaml:"data_dir"`

	// LogFile is the log destination; empty logs to stderr.
	LogFile string `yaml:"log_file"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`

	// TickInterval is how often the background daemon polls for due
	// scheduler boundaries.
	TickInterval Duration `yaml:"tick_interval"`

	// HeartbeatInterval is how often the daemon stamps its liveness into
	// the shared snapshot.
	HeartbeatInterval Duration `yaml:"heartbeat_interval"`

	// SessionHistoryLimit caps session listings.
	SessionHistoryLimit int `yaml:"session_history_limit"`
}

// Default returns the built-in configuration rooted under the user's home.
func Default() Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	dataDir := filepath.Join(home, defaultDirName)
	return Config{
		DataDir:             dataDir,
		LogFile:             filepath.Join(dataDir, defaultLogFileName),
		LogLevel:            "info",
		TickInterval:        Duration(DefaultTickInterval),
		HeartbeatInterval:   Duration(DefaultHeartbeat),
		SessionHistoryLimit: DefaultSessionHistory,
	}
}

// Load reads configuration from path, falling back to defaults for a missing
// file, then applies environment overrides. An empty path reads the default
// location under DataDir.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = filepath.Join(cfg.DataDir, defaultConfigFileName)
	}

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// Defaults apply.
	case err != nil:
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.applyEnv()

	if cfg.TickInterval <= 0 {
		cfg.TickInterval = Duration(DefaultTickInterval)
	}
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = Duration(DefaultHeartbeat)
	}
	if cfg.SessionHistoryLimit <= 0 {
		cfg.SessionHistoryLimit = DefaultSessionHistory
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("BLOCKERD_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("BLOCKERD_LOG_FILE"); v != "" {
		c.LogFile = v
	}
	if v := os.Getenv("BLOCKERD_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("BLOCKERD_TICK_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.TickInterval = Duration(d)
		}
	}
}

// DatabasePath returns the encrypted profile database location.
func (c Config) DatabasePath() string {
	return filepath.Join(c.DataDir, defaultDatabaseName)
}

// EnsureDataDir creates the data directory if needed.
func (c Config) EnsureDataDir() error {
	if err := os.MkdirAll(c.DataDir, 0700); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}
	return nil
}
