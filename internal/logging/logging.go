// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging builds the zap logger used across helios.
//
// The interactive TUI owns the terminal, so by default logs go to a JSON
// file in the config directory. Headless commands may log to stderr instead.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options selects where and how verbosely to log.
type Options struct {
	// Level is debug, info, warn or error. Empty means info.
	Level string
	// File is the log path. Ignored when Stderr is set.
	File string
	// Stderr sends logs to standard error in console format.
	Stderr bool
	// Verbose forces debug level.
	Verbose bool
}

// ParseLevel converts a level name to a zapcore level.
func ParseLevel(name string) (zapcore.Level, error) {
	if name == "" {
		return zapcore.InfoLevel, nil
	}
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(strings.ToLower(name))); err != nil {
		return zapcore.InfoLevel, fmt.Errorf("invalid log level %q: %w", name, err)
	}
	return lvl, nil
}

// New builds a logger from opts.
func New(opts Options) (*zap.Logger, error) {
	lvl, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}
	if opts.Verbose {
		lvl = zapcore.DebugLevel
	}

	var config zap.Config
	switch {
	case opts.Stderr:
		config = zap.NewDevelopmentConfig()
		config.OutputPaths = []string{"stderr"}
		config.DisableStacktrace = true
	case opts.File != "":
		if err := os.MkdirAll(filepath.Dir(opts.File), 0700); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		config = zap.NewProductionConfig()
		config.OutputPaths = []string{opts.File}
		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	default:
		return zap.NewNop(), nil
	}
	config.Level = zap.NewAtomicLevelAt(lvl)
	config.ErrorOutputPaths = []string{"stderr"}

	logger, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger.With(zap.Int("pid", os.Getpid())), nil
}
