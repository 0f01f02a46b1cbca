// Package logging builds the structured loggers detbuilder components share.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/bcchr/detbuilder/internal/types"
)

// NewLogger creates a structured logger. format is "json" or "text";
// unknown levels fall back to info.
func NewLogger(format string, level string, w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}

	opts := &slog.HandlerOptions{Level: ParseLevel(level)}

	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler)
}

// ParseLevel maps a level name to a slog.Level.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// WithProject returns a logger with the project id attached.
func WithProject(logger *slog.Logger, project types.ProjectID) *slog.Logger {
	return logger.With("project", string(project))
}

// WithRecord returns a logger scoped to one saved record.
func WithRecord(logger *slog.Logger, project types.ProjectID, record types.RecordID, event string) *slog.Logger {
	l := logger.With("project", string(project), "record", string(record))
	if event != "" {
		l = l.With("event", event)
	}
	return l
}
