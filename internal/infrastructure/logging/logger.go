// Package logging provides structured logging utilities.
//
// Logs are formatted in Maven-style with colors:
// [LEVEL] [SYSTEM] [HH:MM:SS] message key=value
//
// Setting format to "json" switches to slog's JSON handler for machine
// consumption (e.g. when the API server runs under a log collector).
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/eshaffer321/monarch-amazon-tagger/internal/infrastructure/config"
)

// NewLogger creates a structured logger based on config, writing to stdout
func NewLogger(cfg config.LoggingConfig) *slog.Logger {
	return NewLoggerTo(os.Stdout, cfg)
}

// NewLoggerTo creates a structured logger writing to w
func NewLoggerTo(w io.Writer, cfg config.LoggingConfig) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: ParseLevel(cfg.Level),
	}

	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(NewMavenHandler(w, opts))
}

// NewLoggerWithSystem creates a logger with a system prefix (e.g., "tagger", "api", "monarch")
// This is useful for creating scoped loggers that can be injected into components
func NewLoggerWithSystem(cfg config.LoggingConfig, system string) *slog.Logger {
	return NewLoggerWithSystemTo(os.Stdout, cfg, system)
}

// NewLoggerWithSystemTo is NewLoggerWithSystem writing to w.
func NewLoggerWithSystemTo(w io.Writer, cfg config.LoggingConfig, system string) *slog.Logger {
	return WithSystem(NewLoggerTo(w, cfg), system)
}

// ParseLevel maps a config level name to a slog level; unknown names are info.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// WithSystem rescopes an existing logger to another system prefix.
func WithSystem(logger *slog.Logger, system string) *slog.Logger {
	return logger.With("system", system)
}
