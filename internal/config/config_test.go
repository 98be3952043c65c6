// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Ardane Systems

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "collect.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadCollect_Full(t *testing.T) {
	path := writeConfig(t, `
device = "/dev/ttyACM0"
baud_rate = 9600
max_line_length = 256
timeout = 2.5
tags = "site=roof"
database = "sensors"
host = "influx.lan:8086"
warn_on_status = [400, 422]
spool_dir = "/var/spool/linewatch"
`)

	cfg, err := LoadCollect(path)
	require.NoError(t, err)
	require.Equal(t, "/dev/ttyACM0", cfg.Device)
	require.Equal(t, 9600, cfg.BaudRate)
	require.Equal(t, 256, cfg.MaxLineLength)
	require.Equal(t, 2.5, cfg.Timeout)
	require.Equal(t, "site=roof", cfg.Tags)
	require.Equal(t, []int{400, 422}, cfg.WarnOnStatus)
	require.Equal(t, "/var/spool/linewatch", cfg.SpoolDir)
}

func TestLoadCollect_Defaults(t *testing.T) {
	path := writeConfig(t, `
device = "/dev/ttyACM0"
database = "sensors"
`)

	cfg, err := LoadCollect(path)
	require.NoError(t, err)
	require.Equal(t, 115200, cfg.BaudRate)
	require.Equal(t, 1024, cfg.MaxLineLength)
	require.Equal(t, 10.0, cfg.Timeout)
	require.Equal(t, "localhost:8086", cfg.Host)
	require.Equal(t, "spool", cfg.SpoolDir)
}

func TestLoadCollect_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"missing device", `database = "sensors"`, "device is required"},
		{"missing database", `device = "/dev/ttyACM0"`, "database is required"},
		{
			"negative timeout",
			"device = \"/dev/ttyACM0\"\ndatabase = \"sensors\"\ntimeout = -1.0",
			"timeout must be non-negative",
		},
		{
			"negative max line length",
			"device = \"/dev/ttyACM0\"\ndatabase = \"sensors\"\nmax_line_length = -5",
			"max_line_length must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadCollect(writeConfig(t, tt.content))
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadCollect_MissingFile(t *testing.T) {
	_, err := LoadCollect(filepath.Join(t.TempDir(), "nope.toml"))
	require.Error(t, err)
}
