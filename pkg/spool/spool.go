// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Ardane Systems

// Package spool provides a disk-backed FIFO for line-protocol records,
// decoupling the device read loop from the database write loop so that
// samples survive process restarts and database outages.
package spool

import (
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// entry is the on-disk record: a CBOR blob behind a 4-byte big-endian
// length prefix.
type entry struct {
	At   time.Time `cbor:"1,keyasint"`
	Line string    `cbor:"2,keyasint"`
}

// Queue is a single-file spool. Put appends; Next peeks the oldest
// record and Ack consumes it, so a record survives until its delivery
// is confirmed. Safe for one producer and one consumer goroutine.
type Queue struct {
	mu      sync.Mutex
	data    *os.File
	offPath string
	offset  int64
	size    int64
	peeked  int64 // byte length of the last peeked record, 0 if none
	notify  chan struct{}
}

// Open creates or reopens a spool in dir. Records written by a
// previous process that were never consumed are served first.
func Open(dir string) (*Queue, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create spool dir: %w", err)
	}

	dataPath := filepath.Join(dir, "spool.dat")
	f, err := os.OpenFile(dataPath, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open spool: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat spool: %w", err)
	}

	q := &Queue{
		data:    f,
		offPath: filepath.Join(dir, "spool.off"),
		size:    info.Size(),
		notify:  make(chan struct{}, 1),
	}
	if raw, err := os.ReadFile(q.offPath); err == nil {
		if off, err := strconv.ParseInt(strings.TrimSpace(string(raw)), 10, 64); err == nil && off >= 0 && off <= q.size {
			q.offset = off
		}
	}
	return q, nil
}

// Put appends one record to the spool.
func (q *Queue) Put(line string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	blob, err := cbor.Marshal(entry{At: time.Now(), Line: line})
	if err != nil {
		return fmt.Errorf("encode spool record: %w", err)
	}
	var hdr [4]byte
	binary.BigEndian.PutUint32(hdr[:], uint32(len(blob)))
	if _, err := q.data.WriteAt(hdr[:], q.size); err != nil {
		return fmt.Errorf("write spool record: %w", err)
	}
	if _, err := q.data.WriteAt(blob, q.size+int64(len(hdr))); err != nil {
		return fmt.Errorf("write spool record: %w", err)
	}
	q.size += int64(len(hdr) + len(blob))

	select {
	case q.notify <- struct{}{}:
	default:
	}
	return nil
}

// Next returns the oldest unacknowledged record, blocking until one is
// available or ctx is cancelled. The record stays in the spool until
// Ack; calling Next again without Ack returns the same record. The
// tick bounds how long a waiting consumer sleeps before re-checking
// the file.
func (q *Queue) Next(ctx context.Context, tick time.Duration) (string, error) {
	for {
		line, ok, err := q.peek()
		if err != nil {
			return "", err
		}
		if ok {
			return line, nil
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-q.notify:
		case <-time.After(tick):
		}
	}
}

// Ack consumes the record returned by the last Next.
func (q *Queue) Ack() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.peeked == 0 {
		return nil
	}
	q.offset += q.peeked
	q.peeked = 0
	if err := q.persistOffset(); err != nil {
		return err
	}

	// Everything consumed: reclaim the file.
	if q.offset == q.size {
		if err := q.data.Truncate(0); err == nil {
			q.offset = 0
			q.size = 0
			_ = q.persistOffset()
		}
	}
	return nil
}

func (q *Queue) peek() (string, bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.offset >= q.size {
		return "", false, nil
	}

	var hdr [4]byte
	if _, err := q.data.ReadAt(hdr[:], q.offset); err != nil {
		return "", false, fmt.Errorf("read spool record: %w", err)
	}
	n := int64(binary.BigEndian.Uint32(hdr[:]))
	blob := make([]byte, n)
	if _, err := q.data.ReadAt(blob, q.offset+int64(len(hdr))); err != nil {
		return "", false, fmt.Errorf("read spool record: %w", err)
	}
	var e entry
	if err := cbor.Unmarshal(blob, &e); err != nil {
		return "", false, fmt.Errorf("decode spool record: %w", err)
	}

	q.peeked = int64(len(hdr)) + n
	return e.Line, true, nil
}

func (q *Queue) persistOffset() error {
	if err := os.WriteFile(q.offPath, []byte(strconv.FormatInt(q.offset, 10)), 0o644); err != nil {
		return fmt.Errorf("persist spool offset: %w", err)
	}
	return nil
}

// Close releases the underlying file. Pending records stay on disk.
func (q *Queue) Close() error {
	return q.data.Close()
}
