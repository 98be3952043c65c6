// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Ardane Systems

package lineframe

import (
	"bytes"
	"io"
	"time"

	"go.bug.st/serial"
)

// ByteSource is the capability the framer needs from a device stream.
// Implementations retain bytes read ahead of the consumer, so a chunk
// read never swallows data belonging to the next line.
type ByteSource interface {
	// ReadChunk fills p with immediately available bytes, stopping
	// just past a newline if one is present. It blocks until at least
	// one byte arrives.
	ReadChunk(p []byte) (int, error)

	// Ready reports whether ReadByte can return without blocking
	// longer than the source's poll interval.
	Ready() (bool, error)

	// ReadByte reads exactly one byte, blocking until it arrives.
	ReadByte() (byte, error)
}

const defaultPoll = 5 * time.Millisecond

// takeBuffered copies buffered bytes into p, stopping just past a
// newline so callers see at most one line terminator per chunk.
func takeBuffered(pending *[]byte, p []byte) int {
	chunk := *pending
	if i := bytes.IndexByte(chunk, '\n'); i >= 0 {
		chunk = chunk[:i+1]
	}
	n := copy(p, chunk)
	*pending = (*pending)[n:]
	return n
}

// PortSource adapts a serial.Port to the ByteSource interface. The
// port's read timeout doubles as the readiness poll: Ready issues a
// short-deadline single-byte read and stashes whatever arrives.
type PortSource struct {
	port    serial.Port
	poll    time.Duration
	pending []byte
}

// NewPortSource wraps an open serial port. The caller keeps ownership
// of the port and is responsible for closing it.
func NewPortSource(port serial.Port) *PortSource {
	return &PortSource{port: port, poll: defaultPoll}
}

func (s *PortSource) ReadChunk(p []byte) (int, error) {
	if len(s.pending) > 0 {
		return takeBuffered(&s.pending, p), nil
	}
	if err := s.port.SetReadTimeout(serial.NoTimeout); err != nil {
		return 0, err
	}
	n, err := s.port.Read(p)
	if err != nil {
		return 0, err
	}
	if i := bytes.IndexByte(p[:n], '\n'); i >= 0 && i+1 < n {
		s.pending = append(s.pending, p[i+1:n]...)
		n = i + 1
	}
	return n, nil
}

func (s *PortSource) Ready() (bool, error) {
	if len(s.pending) > 0 {
		return true, nil
	}
	if err := s.port.SetReadTimeout(s.poll); err != nil {
		return false, err
	}
	var b [1]byte
	n, err := s.port.Read(b[:])
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, nil
	}
	s.pending = append(s.pending, b[0])
	return true, nil
}

func (s *PortSource) ReadByte() (byte, error) {
	if len(s.pending) > 0 {
		b := s.pending[0]
		s.pending = s.pending[1:]
		return b, nil
	}
	if err := s.port.SetReadTimeout(serial.NoTimeout); err != nil {
		return 0, err
	}
	var b [1]byte
	for {
		n, err := s.port.Read(b[:])
		if err != nil {
			return 0, err
		}
		if n > 0 {
			return b[0], nil
		}
	}
}

// ReaderSource adapts any io.Reader (a WebSocket byte stream, a pipe)
// to the ByteSource interface. A background goroutine performs the
// blocking reads so readiness can be answered without one.
type ReaderSource struct {
	results chan readResult
	poll    time.Duration
	pending []byte
	err     error
}

type readResult struct {
	data []byte
	err  error
}

// NewReaderSource starts reading from r. The reader goroutine exits on
// the first read error, which is handed to the consumer once buffered
// data has been drained.
func NewReaderSource(r io.Reader) *ReaderSource {
	s := &ReaderSource{
		results: make(chan readResult, 16),
		poll:    defaultPoll,
	}
	go func() {
		buf := make([]byte, 4096)
		for {
			n, err := r.Read(buf)
			res := readResult{err: err}
			if n > 0 {
				res.data = append([]byte(nil), buf[:n]...)
			}
			s.results <- res
			if err != nil {
				return
			}
		}
	}()
	return s
}

func (s *ReaderSource) ReadChunk(p []byte) (int, error) {
	for len(s.pending) == 0 {
		if err := s.wait(); err != nil {
			return 0, err
		}
	}
	return takeBuffered(&s.pending, p), nil
}

func (s *ReaderSource) Ready() (bool, error) {
	if len(s.pending) > 0 {
		return true, nil
	}
	if s.err != nil {
		return false, s.err
	}
	select {
	case res := <-s.results:
		s.absorb(res)
	case <-time.After(s.poll):
		return false, nil
	}
	if len(s.pending) > 0 {
		return true, nil
	}
	if s.err != nil {
		return false, s.err
	}
	return false, nil
}

func (s *ReaderSource) ReadByte() (byte, error) {
	for len(s.pending) == 0 {
		if err := s.wait(); err != nil {
			return 0, err
		}
	}
	b := s.pending[0]
	s.pending = s.pending[1:]
	return b, nil
}

func (s *ReaderSource) wait() error {
	if s.err != nil {
		return s.err
	}
	s.absorb(<-s.results)
	if len(s.pending) == 0 && s.err != nil {
		return s.err
	}
	return nil
}

func (s *ReaderSource) absorb(res readResult) {
	s.pending = append(s.pending, res.data...)
	if res.err != nil {
		s.err = res.err
	}
}
