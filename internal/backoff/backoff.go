// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Ardane Systems

// Package backoff implements the exponential retry policy used by the
// collect loops: session failures back off with a multiplier up to a
// cap, with optional jitter.
package backoff

import (
	"context"
	"log/slog"
	"math"
	"math/rand"
	"time"
)

// Config holds the retry delay parameters.
type Config struct {
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	Jitter       bool
}

// DefaultConfig matches the collector's historical policy: 1s initial
// delay doubling up to 60s.
func DefaultConfig() Config {
	return Config{
		InitialDelay: time.Second,
		MaxDelay:     60 * time.Second,
		Multiplier:   2.0,
		Jitter:       true,
	}
}

// Delay returns the retry delay for attempt N (1-based).
func (cfg Config) Delay(attempt int, rng *rand.Rand) time.Duration {
	if attempt <= 1 {
		return cfg.InitialDelay
	}
	if cfg.InitialDelay <= 0 {
		return 0
	}
	if cfg.Multiplier < 1.0 {
		cfg.Multiplier = 1.0
	}
	delay := float64(cfg.InitialDelay) * math.Pow(cfg.Multiplier, float64(attempt-1))
	if cfg.MaxDelay > 0 && delay > float64(cfg.MaxDelay) {
		delay = float64(cfg.MaxDelay)
	}
	if cfg.Jitter {
		f := 0.5
		if rng != nil {
			f = 0.5 + rng.Float64()
		}
		delay = delay * f
	}
	return time.Duration(delay)
}

// Retry runs fn until it succeeds or ctx is cancelled, sleeping the
// configured delay between attempts. Each attempt is expected to be a
// full session (open device, run, tear down).
func Retry(ctx context.Context, cfg Config, log *slog.Logger, op string, fn func() error) error {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	for attempt := 1; ; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		delay := cfg.Delay(attempt, rng)
		log.Warn("retrying after error",
			"op", op,
			"attempt", attempt,
			"delay", delay,
			"error", err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}
