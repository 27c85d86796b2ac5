package config

import (
	"log/slog"
	"os"
	"strings"
)

// NewLogger builds the process logger. Production gets JSON, everything else text.
func (c LoggerConfig) NewLogger(env string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.level()}

	if strings.EqualFold(env, "production") {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

func (c LoggerConfig) level() slog.Level {
	switch strings.ToLower(c.Level) {
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
