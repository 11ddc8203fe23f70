package config

import (
	"log/slog"
	"os"
	"strings"
)

// NewLogger LogLevel/LogFormatからslog.Loggerを生成し、デフォルトに設定
func (c *Config) NewLogger() *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:     parseLevel(c.LogLevel),
		AddSource: c.Environment == "development",
	}

	var handler slog.Handler
	if strings.EqualFold(c.LogFormat, "json") {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
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
