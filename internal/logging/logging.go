// Package logging builds the service's JSON slog logger, writing to stdout
// or to a size-rotated file.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Config selects the log level and destination.
type Config struct {
	Level      slog.Level
	File       string // Rotated log file; empty logs to stdout.
	MaxSizeMB  int    // Rotate after this many megabytes (default: 64).
	MaxBackups int    // Rotated files kept (default: 3).
	MaxAgeDays int    // Days to keep rotated files (default: 14).
}

// DefaultConfig logs at info to stdout.
func DefaultConfig() Config {
	return Config{
		Level:      slog.LevelInfo,
		MaxSizeMB:  64,
		MaxBackups: 3,
		MaxAgeDays: 14,
	}
}

// ParseLevel maps debug|info|warn|error (any case) to a slog level.
func ParseLevel(s string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	}
	return slog.LevelInfo, false
}

// New returns the logger and the writer behind it. Close the writer on exit
// to flush a rotated file.
func New(cfg Config) (*slog.Logger, io.WriteCloser) {
	var w io.WriteCloser = nopCloser{os.Stdout}
	if cfg.File != "" {
		def := DefaultConfig()
		if cfg.MaxSizeMB <= 0 {
			cfg.MaxSizeMB = def.MaxSizeMB
		}
		w = &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   true,
		}
	}
	return NewWithWriter(w, cfg.Level), w
}

// NewWithWriter returns a JSON logger writing to w.
func NewWithWriter(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }
