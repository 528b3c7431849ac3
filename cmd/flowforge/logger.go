package main

import (
	"fmt"
	"log/slog"
	"os"
)

// Environment variable names honored when the matching CLI flag is empty,
// following the teacher's CLI-flag > env var > default priority.
const (
	LogLevelEnvVar  = "LOG_LEVEL"
	LogFileEnvVar   = "LOG_FILE"
	LogFormatEnvVar = "LOG_FORMAT"

	DefaultLogFormat = "text"
)

// initLogger builds the process-wide slog.Logger from CLI flags, falling
// back to environment variables and then defaults, and installs it as the
// slog default. Returns a cleanup func to close an opened log file.
func initLogger(cliLevel, cliFile, cliFormat string) (func(), error) {
	level := cliLevel
	if level == "" {
		level = os.Getenv(LogLevelEnvVar)
	}
	if level == "" {
		level = "info"
	}

	file := cliFile
	if file == "" {
		file = os.Getenv(LogFileEnvVar)
	}

	format := cliFormat
	if format == "" {
		format = os.Getenv(LogFormatEnvVar)
	}
	if format == "" {
		format = DefaultLogFormat
	}

	slogLevel, err := parseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	output := os.Stderr
	var cleanup func()
	if file != "" {
		f, err := os.OpenFile(file, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file %s: %w", file, err)
		}
		output = f
		cleanup = func() { f.Close() }
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: slogLevel}
	if format == "json" {
		handler = slog.NewJSONHandler(output, opts)
	} else {
		handler = slog.NewTextHandler(output, opts)
	}
	slog.SetDefault(slog.New(handler))

	return cleanup, nil
}

func parseLevel(s string) (slog.Level, error) {
	switch s {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", s)
	}
}
