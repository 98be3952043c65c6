// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Ardane Systems

// Package lineframe turns the raw byte stream of a line-oriented
// device (typically a serial-connected microcontroller) into a
// sequence of complete, bounded-length lines.
//
// The framer first synchronizes to a line boundary by discarding bytes
// up to and including the first newline, so the first produced line is
// never a mid-line fragment. It then accumulates lines byte by byte,
// dropping lines that stall longer than the configured inactivity
// timeout and failing permanently when a line exceeds the configured
// maximum length.
package lineframe

import (
	"bytes"
	"fmt"
	"log/slog"
	"time"
)

// syncChunkSize bounds a single read attempt during boundary
// synchronization.
const syncChunkSize = 4096

// Config holds the framing parameters.
type Config struct {
	// MaxLineLength bounds a line in bytes, terminator included.
	MaxLineLength int

	// Timeout is the per-line inactivity budget. The deadline is fixed
	// when the first byte of a line arrives and is never extended.
	Timeout time.Duration

	// Logger receives framing diagnostics. Defaults to a discard
	// logger.
	Logger *slog.Logger

	// OnDismiss, when set, is called with the partial buffer each time
	// an incomplete line is dropped.
	OnDismiss func(partial []byte)
}

// Framer produces complete lines from a ByteSource. It is not safe for
// concurrent use; there is exactly one consumer of the source by
// construction.
type Framer struct {
	src     ByteSource
	cfg     Config
	synced  bool
	skipped int
	failed  error
}

// New validates cfg and returns a framer reading from src. The framer
// never opens or closes the underlying device; that stays with the
// caller.
func New(src ByteSource, cfg Config) (*Framer, error) {
	if cfg.MaxLineLength <= 0 {
		return nil, fmt.Errorf("max line length must be positive, got %d", cfg.MaxLineLength)
	}
	if cfg.Timeout < 0 {
		return nil, fmt.Errorf("timeout must be non-negative, got %v", cfg.Timeout)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	return &Framer{src: src, cfg: cfg}, nil
}

// Next returns the next complete line with the trailing newline and
// any trailing whitespace stripped. It blocks until a line completes,
// silently restarting after inactivity dismissals. Once it returns a
// *LineOverflowError the framer is dead and every later call returns
// the same error. Source read errors are propagated unchanged.
func (f *Framer) Next() ([]byte, error) {
	if f.failed != nil {
		return nil, f.failed
	}
	if !f.synced {
		if err := f.sync(); err != nil {
			return nil, err
		}
		f.synced = true
	}
	for {
		line, err := f.accumulate()
		if err != nil {
			return nil, err
		}
		if line == nil {
			// Dismissed, start over on the next line.
			continue
		}
		if line[len(line)-1] != '\n' {
			overflow := &LineOverflowError{Line: line, Max: f.cfg.MaxLineLength}
			f.failed = overflow
			return nil, overflow
		}
		f.cfg.Logger.Debug("received line", "line", string(line))
		return bytes.TrimRight(line, " \t\r\n"), nil
	}
}

// ReadLines pulls lines forever, handing each to onLine. It returns
// the first error from Next; it never returns nil.
func (f *Framer) ReadLines(onLine func(line []byte)) error {
	for {
		line, err := f.Next()
		if err != nil {
			return err
		}
		onLine(line)
	}
}

// SkippedBytes reports how many bytes boundary synchronization
// discarded. It is zero until the first call to Next returns.
func (f *Framer) SkippedBytes() int {
	return f.skipped
}

// sync discards bytes until a read chunk ends with a newline, so line
// accumulation starts on a fresh line boundary. This phase has no
// timeout: before the first newline there is no partial-line state to
// bound against.
func (f *Framer) sync() error {
	f.cfg.Logger.Debug("skipping until the end of a line")
	chunk := make([]byte, syncChunkSize)
	for {
		n, err := f.src.ReadChunk(chunk)
		if err != nil {
			return err
		}
		f.skipped += n
		if n > 0 && chunk[n-1] == '\n' {
			f.cfg.Logger.Debug("synchronized", "skipped_bytes", f.skipped)
			return nil
		}
	}
}

// accumulate builds one line byte by byte. It returns the line
// including its newline, a nil line when the inactivity timeout
// dismissed it, or a buffer of exactly MaxLineLength bytes without a
// newline when the line overflowed.
func (f *Framer) accumulate() ([]byte, error) {
	buf := make([]byte, 0, f.cfg.MaxLineLength)
	start := time.Now()
	var deadline time.Time

	for len(buf) < f.cfg.MaxLineLength {
		ready, err := f.src.Ready()
		if err != nil {
			return nil, err
		}
		if ready {
			b, err := f.src.ReadByte()
			if err != nil {
				return nil, err
			}
			if deadline.IsZero() {
				// The inactivity deadline is fixed at the first byte.
				deadline = time.Now().Add(f.cfg.Timeout)
			}
			buf = append(buf, b)
			if b == '\n' {
				return buf, nil
			}
		}
		if deadline.IsZero() {
			// Nothing received yet: bound the empty poll window so a
			// silent device still surfaces as periodic dismissals.
			if f.cfg.Timeout > 0 && !time.Now().Before(start.Add(f.cfg.Timeout)) {
				return f.dismiss(buf), nil
			}
		} else if !time.Now().Before(deadline) {
			return f.dismiss(buf), nil
		}
	}
	return buf, nil
}

func (f *Framer) dismiss(partial []byte) []byte {
	f.cfg.Logger.Warn("dismissing incomplete line", "partial", string(partial))
	if f.cfg.OnDismiss != nil {
		f.cfg.OnDismiss(partial)
	}
	return nil
}
