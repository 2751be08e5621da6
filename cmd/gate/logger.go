package main

import (
	"fmt"
	"io"
	"log/slog"

	"go.uber.org/zap"
)

func newLogger(c LoggerConfig) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if c.Format == "console" {
		zc = zap.NewDevelopmentConfig()
	}
	if c.Level != "" {
		lvl, err := zap.ParseAtomicLevel(c.Level)
		if err != nil {
			return nil, fmt.Errorf("logger level: %w", err)
		}
		zc.Level = lvl
	}
	return zc.Build()
}

// newSlogLogger mirrors the zap settings for the packages that log
// through slog.
func newSlogLogger(c LoggerConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.Format == "console" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}
