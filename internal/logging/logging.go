// Package logging configures the process logger.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"tinytactics/internal/config"
)

// Debug controls whether debug logs are printed.
var Debug bool

// Debugf logs a formatted debug message when Debug is enabled.
func Debugf(format string, v ...any) {
	if Debug {
		slog.Debug(fmt.Sprintf(format, v...))
	}
}

// New creates a *slog.Logger based on the provided LogConfig and sets it
// as the default logger via slog.SetDefault.
//
// Format "json" produces structured JSON output; anything else is text
// with source info. The debug flag forces the debug level.
func New(cfg config.LogConfig) *slog.Logger {
	return NewWriter(os.Stderr, cfg)
}

// NewWriter is New writing to w.
func NewWriter(w io.Writer, cfg config.LogConfig) *slog.Logger {
	level := parseLevel(cfg.Level)
	if cfg.Debug {
		level = slog.LevelDebug
	}
	Debug = level == slog.LevelDebug

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: strings.EqualFold(cfg.Format, "text") && Debug,
	}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)

	return logger
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
