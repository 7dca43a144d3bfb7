// Package logging builds the zerolog loggers volley writes to. Headless
// commands log human-readable lines on stderr; the TUI redirects to a file so
// log output never tears the alternate screen. No process-global logger is
// kept; the root logger is built once in main and passed by handle.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

// Options configures a logger build.
type Options struct {
	// Debug lowers the threshold from info to debug.
	Debug bool

	// Console formats for humans instead of emitting JSON lines.
	Console bool

	// Writer overrides the destination. Defaults to stderr.
	Writer io.Writer
}

// New builds a root logger.
func New(opt Options) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339Nano

	level := zerolog.InfoLevel
	if opt.Debug {
		level = zerolog.DebugLevel
	}

	var w io.Writer = os.Stderr
	if opt.Writer != nil {
		w = opt.Writer
	}
	if opt.Console {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}

	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

// NewFile builds a logger appending JSON lines to path, creating parent
// directories as needed. The returned func closes the file.
func NewFile(path string, debug bool) (zerolog.Logger, func() error, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("logging: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("logging: %w", err)
	}

	return New(Options{Debug: debug, Writer: f}), f.Close, nil
}

// DefaultFilePath returns the conventional log location, ~/.volley/volley.log,
// or empty when the home directory cannot be resolved.
func DefaultFilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".volley", "volley.log")
}
