// Package logging builds the slog loggers used by the server and the CLI.
//
// The level comes from a LOG_LEVEL-style string ("debug", "info", "warn",
// "error") or, on the command line, from the -v count.
package logging

import (
	"io"
	"log/slog"
	"strings"
)

// ParseLevel converts a level name to a slog.Level. Unknown and empty names
// map to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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

// VerbosityLevel maps a -v count to a level: 0 error, 1 warn, 2 info,
// 3 or more debug.
func VerbosityLevel(verbose int) slog.Level {
	switch {
	case verbose >= 3:
		return slog.LevelDebug
	case verbose >= 2:
		return slog.LevelInfo
	case verbose >= 1:
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}

// New returns a text logger writing to w at the given level.
func New(w io.Writer, level slog.Leveler) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Setup builds a logger at level, installs it as the slog default so stray
// slog and log calls share the handler, and returns it.
func Setup(w io.Writer, level slog.Level) *slog.Logger {
	lv := &slog.LevelVar{}
	lv.Set(level)
	logger := New(w, lv)
	slog.SetDefault(logger)
	return logger
}
