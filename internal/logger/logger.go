package logger

import (
	"io"
	"log/slog"
	"os"

	"github.com/gdumair1-a11y/EchoSave/internal/config"
)

// SetupLogger configures structured logging based on environment.
func SetupLogger(cfg *config.Config) *slog.Logger {
	return SetupLoggerTo(cfg, os.Stderr)
}

// SetupLoggerTo configures structured logging writing to w. The TUI owns
// stdout, so logs default to stderr and can be redirected to a file.
func SetupLoggerTo(cfg *config.Config, w io.Writer) *slog.Logger {
	// Determine log level
	logLevel := slog.LevelInfo
	if cfg.Env == "development" {
		logLevel = slog.LevelDebug
	}
	if cfg.LogLevel == "debug" {
		logLevel = slog.LevelDebug
	}

	// Create JSON handler for structured logging
	//nolint:exhaustruct // Using default values for other HandlerOptions fields
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: logLevel,
	})

	logger := slog.New(handler)

	// Set as default logger
	slog.SetDefault(logger)

	return logger
}
