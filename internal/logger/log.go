// Package logger configures the process-wide slog default: JSON records to
// stdout and/or a size-rotated file, selected by config.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"loan-advisor/internal/config"

	"gopkg.in/lumberjack.v2"
)

func Init(cfg config.LogConfig) {
	var sinks []io.Writer
	if cfg.Console {
		sinks = append(sinks, os.Stdout)
	}
	if cfg.File != "" {
		sinks = append(sinks, &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			LocalTime:  true,
		})
	}
	if len(sinks) == 0 {
		// Neither sink configured: stdout rather than silence.
		sinks = append(sinks, os.Stdout)
	}

	h := slog.NewJSONHandler(io.MultiWriter(sinks...), &slog.HandlerOptions{
		Level: parseLevel(cfg.Level),
	})
	slog.SetDefault(slog.New(h))
	Info("logger initialized", "level", cfg.Level, "file", cfg.File)
}

func Debug(msg string, args ...any) { slog.Debug(msg, args...) }
func Info(msg string, args ...any)  { slog.Info(msg, args...) }
func Warn(msg string, args ...any)  { slog.Warn(msg, args...) }
func Error(msg string, args ...any) { slog.Error(msg, args...) }

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
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
