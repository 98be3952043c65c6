// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Ardane Systems

package backoff

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDelay_Growth(t *testing.T) {
	cfg := Config{
		InitialDelay: time.Second,
		MaxDelay:     8 * time.Second,
		Multiplier:   2.0,
	}

	require.Equal(t, time.Second, cfg.Delay(1, nil))
	require.Equal(t, 2*time.Second, cfg.Delay(2, nil))
	require.Equal(t, 4*time.Second, cfg.Delay(3, nil))
	require.Equal(t, 8*time.Second, cfg.Delay(4, nil))
	// Capped.
	require.Equal(t, 8*time.Second, cfg.Delay(10, nil))
}

func TestDelay_JitterStaysBounded(t *testing.T) {
	cfg := Config{
		InitialDelay: time.Second,
		MaxDelay:     time.Minute,
		Multiplier:   2.0,
		Jitter:       true,
	}
	// With a nil rng the jitter factor is the deterministic 0.5.
	require.Equal(t, time.Second, cfg.Delay(2, nil)) // 2s * 0.5
}

func TestDelay_ZeroInitial(t *testing.T) {
	cfg := Config{InitialDelay: 0, Multiplier: 2.0}
	require.Equal(t, time.Duration(0), cfg.Delay(5, nil))
}

func TestRetry_SucceedsAfterFailures(t *testing.T) {
	cfg := Config{InitialDelay: time.Millisecond, Multiplier: 1.0}
	log := slog.New(slog.DiscardHandler)

	attempts := 0
	err := Retry(context.Background(), cfg, log, "test", func() error {
		attempts++
		if attempts < 3 {
			return errors.New("transient")
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 3, attempts)
}

func TestRetry_StopsOnCancel(t *testing.T) {
	cfg := Config{InitialDelay: 10 * time.Millisecond, Multiplier: 1.0}
	log := slog.New(slog.DiscardHandler)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Retry(ctx, cfg, log, "test", func() error {
		return errors.New("always fails")
	})
	require.ErrorIs(t, err, context.Canceled)
}
