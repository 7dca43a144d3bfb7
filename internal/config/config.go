package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Defaults for a fresh install. Each one can be overridden per request where
// the request model carries the same knob.
const (
	DefaultConcurrency   = 5
	DefaultCaptureBytes  = int64(100 << 20)
	DefaultStreamBytes   = int64(10 << 20)
	DefaultFlushInterval = 300 * time.Millisecond
)

// Config is the tool configuration. One value is built at startup and passed
// by handle; nothing reads it through a package global.
type Config struct {
	// Concurrency caps in-flight batch exchanges.
	Concurrency int `mapstructure:"concurrency"`

	// MaxCaptureBytes caps response capture for single-shot exchanges.
	MaxCaptureBytes int64 `mapstructure:"max_capture_bytes"`

	// MaxStreamBytes caps response capture for interactive (streamed)
	// exchanges, where the full text is held for on-screen scrollback.
	MaxStreamBytes int64 `mapstructure:"max_stream_bytes"`

	// FlushInterval is the window streamed chunks coalesce over before
	// they are pushed at the UI.
	FlushInterval time.Duration `mapstructure:"flush_interval"`

	// Timeout bounds each exchange; zero means no deadline.
	Timeout time.Duration `mapstructure:"timeout"`

	// FormatJSON pretty-prints JSON response bodies.
	FormatJSON bool `mapstructure:"format_json"`

	// Debug lowers the log threshold to debug.
	Debug bool `mapstructure:"debug"`
}

// Load builds the configuration from defaults plus an optional YAML file.
// An empty path means defaults only; a named file must exist and parse.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	v.SetDefault("concurrency", DefaultConcurrency)
	v.SetDefault("max_capture_bytes", DefaultCaptureBytes)
	v.SetDefault("max_stream_bytes", DefaultStreamBytes)
	v.SetDefault("flush_interval", DefaultFlushInterval)
	v.SetDefault("timeout", time.Duration(0))
	v.SetDefault("format_json", true)
	v.SetDefault("debug", false)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// DefaultPath returns the conventional config location, ~/.volley/config.yaml,
// or empty when the home directory cannot be resolved. Callers decide whether
// a missing file there matters; Load treats an empty path as defaults-only.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".volley", "config.yaml")
}

func (c *Config) validate() error {
	if c.Concurrency < 1 {
		return fmt.Errorf("config: concurrency %d is below 1", c.Concurrency)
	}
	if c.MaxCaptureBytes < 0 {
		return fmt.Errorf("config: max_capture_bytes cannot be negative")
	}
	if c.MaxStreamBytes < 0 {
		return fmt.Errorf("config: max_stream_bytes cannot be negative")
	}
	if c.FlushInterval <= 0 {
		return fmt.Errorf("config: flush_interval must be positive")
	}
	if c.Timeout < 0 {
		return fmt.Errorf("config: timeout cannot be negative")
	}
	return nil
}
