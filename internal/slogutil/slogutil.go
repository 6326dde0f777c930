package slogutil

import (
	"io"
	"log/slog"
	"strings"
)

// Format selects the log line encoding.
type Format string

const (
	// FormatHuman writes "TIMESTAMP [level] Message | key=value"
	FormatHuman Format = "human"
	// FormatJSON writes one JSON object per line
	FormatJSON Format = "json"
)

// levelOff is above every standard level.
const levelOff = slog.Level(100)

// NewLogger creates a new slog.Logger in the human format.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(NewHandler(w, &slog.HandlerOptions{Level: level}))
}

// NewFormattedLogger creates a logger in the given format. Unknown formats
// fall back to human.
func NewFormattedLogger(w io.Writer, format Format, level slog.Level) *slog.Logger {
	if format == FormatJSON {
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
	}
	return NewLogger(w, level)
}

// NewDiscardLogger creates a logger that discards all output.
// Useful for tests or when logging should be completely suppressed.
func NewDiscardLogger() *slog.Logger {
	return slog.New(NewHandler(io.Discard, &slog.HandlerOptions{Level: levelOff}))
}

// LevelFromString converts a string to a slog.Level.
// Supports: debug, info, warn, error (case-insensitive).
// Returns slog.LevelInfo for unrecognized strings.
func LevelFromString(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// EffectiveLevel picks the level for a CLI run.
// Precedence: --quiet > -v count > configured level.
func EffectiveLevel(configured string, verbosity int, quiet bool) slog.Level {
	if quiet {
		return levelOff
	}
	switch {
	case verbosity == 1:
		return slog.LevelInfo
	case verbosity >= 2:
		return slog.LevelDebug
	}
	if configured == "" {
		return slog.LevelWarn
	}
	return LevelFromString(configured)
}
