// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Ardane Systems

package cmd

import (
	"log/slog"
	"os"

	"github.com/lmittmann/tint"
)

// setupLogging installs the process-wide logger. Diagnostics go to
// stderr so stdout stays clean for record output.
func setupLogging(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	handler := tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: "15:04:05.000",
	})
	slog.SetDefault(slog.New(handler))
}
