// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Ardane Systems

// Package config loads the collect command's TOML configuration.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Collect is the configuration for a collect session. Flag values
// override whatever the file sets.
type Collect struct {
	Device        string  `toml:"device"`
	BaudRate      int     `toml:"baud_rate"`
	MaxLineLength int     `toml:"max_line_length"`
	Timeout       float64 `toml:"timeout"` // seconds, per-line inactivity
	Tags          string  `toml:"tags"`
	Database      string  `toml:"database"`
	Host          string  `toml:"host"`
	WarnOnStatus  []int   `toml:"warn_on_status"`
	SpoolDir      string  `toml:"spool_dir"`
}

// ReadCollect parses a collect configuration file without applying
// defaults or validating, so callers can layer flag overrides first.
func ReadCollect(path string) (Collect, error) {
	var cfg Collect
	raw, err := os.ReadFile(path)
	if err != nil {
		return Collect{}, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := toml.Unmarshal(raw, &cfg); err != nil {
		return Collect{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadCollect reads and validates a collect configuration file.
func LoadCollect(path string) (Collect, error) {
	cfg, err := ReadCollect(path)
	if err != nil {
		return Collect{}, err
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return Collect{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyDefaults fills in unset optional fields.
func (c *Collect) ApplyDefaults() {
	if c.BaudRate == 0 {
		c.BaudRate = 115200
	}
	if c.MaxLineLength == 0 {
		c.MaxLineLength = 1024
	}
	if c.Timeout == 0 {
		c.Timeout = 10.0
	}
	if c.Host == "" {
		c.Host = "localhost:8086"
	}
	if c.SpoolDir == "" {
		c.SpoolDir = "spool"
	}
}

// Validate rejects configurations the collector cannot run with.
func (c Collect) Validate() error {
	if c.Device == "" {
		return fmt.Errorf("device is required")
	}
	if c.Database == "" {
		return fmt.Errorf("database is required")
	}
	if c.BaudRate <= 0 {
		return fmt.Errorf("baud_rate must be positive, got %d", c.BaudRate)
	}
	if c.MaxLineLength <= 0 {
		return fmt.Errorf("max_line_length must be positive, got %d", c.MaxLineLength)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must be non-negative, got %v", c.Timeout)
	}
	return nil
}
