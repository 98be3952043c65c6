// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Ardane Systems

package lineframe

import (
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// newPipeFramer wires a framer to an in-memory byte stream. The
// returned writer plays the device side.
func newPipeFramer(t *testing.T, cfg Config) (*Framer, *io.PipeWriter) {
	t.Helper()
	pr, pw := io.Pipe()
	t.Cleanup(func() { pw.Close(); pr.Close() })

	f, err := New(NewReaderSource(pr), cfg)
	require.NoError(t, err)
	return f, pw
}

// nextLine runs Next in a goroutine so tests can bound how long it may
// block.
func nextLine(f *Framer) (<-chan []byte, <-chan error) {
	lines := make(chan []byte, 1)
	errs := make(chan error, 1)
	go func() {
		line, err := f.Next()
		if err != nil {
			errs <- err
			return
		}
		lines <- line
	}()
	return lines, errs
}

func requireLine(t *testing.T, f *Framer, want string, within time.Duration) {
	t.Helper()
	lines, errs := nextLine(f)
	select {
	case line := <-lines:
		require.Equal(t, want, string(line))
	case err := <-errs:
		t.Fatalf("unexpected error: %v", err)
	case <-time.After(within):
		t.Fatalf("timeout waiting for line %q", want)
	}
}

func TestNew_Validation(t *testing.T) {
	pr, _ := io.Pipe()
	defer pr.Close()
	src := NewReaderSource(pr)

	_, err := New(src, Config{MaxLineLength: 0, Timeout: time.Second})
	require.Error(t, err)

	_, err = New(src, Config{MaxLineLength: 64, Timeout: -time.Second})
	require.Error(t, err)

	_, err = New(src, Config{MaxLineLength: 64, Timeout: 0})
	require.NoError(t, err)
}

func TestFramer_SkipsPartialDataBeforeFirstLine(t *testing.T) {
	f, pw := newPipeFramer(t, Config{MaxLineLength: 64, Timeout: time.Second})

	go func() {
		// Tail of a line that was in flight when we attached, split
		// across two writes, then two complete records.
		pw.Write([]byte("garb"))
		pw.Write([]byte("age\n"))
		pw.Write([]byte("field=1 1\n"))
		pw.Write([]byte("field=2 2\n"))
	}()

	requireLine(t, f, "field=1 1", time.Second)
	requireLine(t, f, "field=2 2", time.Second)
	require.Equal(t, len("garbage\n"), f.SkippedBytes())
}

func TestFramer_SingleChunkSyncKeepsFollowingLine(t *testing.T) {
	f, pw := newPipeFramer(t, Config{MaxLineLength: 64, Timeout: time.Second})

	// Everything arrives in one chunk: the source must stop the sync
	// read just past the first newline so the next line survives.
	go pw.Write([]byte("mid-line tail\nfield=1 1\n"))

	requireLine(t, f, "field=1 1", time.Second)
}

func TestFramer_StripsTrailingWhitespace(t *testing.T) {
	f, pw := newPipeFramer(t, Config{MaxLineLength: 64, Timeout: time.Second})

	go func() {
		pw.Write([]byte("\n"))
		pw.Write([]byte("temp=lab 23.5 \r\n"))
	}()

	requireLine(t, f, "temp=lab 23.5", time.Second)
}

func TestFramer_OverflowIsFatal(t *testing.T) {
	f, pw := newPipeFramer(t, Config{MaxLineLength: 5, Timeout: time.Second})

	go func() {
		pw.Write([]byte("\n"))
		pw.Write([]byte("abcdef\n"))
	}()

	lines, errs := nextLine(f)
	select {
	case line := <-lines:
		t.Fatalf("expected overflow, got line %q", line)
	case err := <-errs:
		var overflow *LineOverflowError
		require.ErrorAs(t, err, &overflow)
		require.Equal(t, []byte("abcde"), overflow.Line)
		require.Contains(t, err.Error(), "read line overflow")
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for overflow")
	}

	// The sequence is dead: every later call reports the same error.
	_, err := f.Next()
	var overflow *LineOverflowError
	require.ErrorAs(t, err, &overflow)
}

func TestFramer_DismissesStalledLineAndRecovers(t *testing.T) {
	dismissed := make(chan []byte, 16)
	f, pw := newPipeFramer(t, Config{
		MaxLineLength: 64,
		Timeout:       50 * time.Millisecond,
		OnDismiss: func(partial []byte) {
			dismissed <- append([]byte(nil), partial...)
		},
	})

	go func() {
		pw.Write([]byte("\n"))
		pw.Write([]byte("par"))
		time.Sleep(150 * time.Millisecond)
		pw.Write([]byte("next=1 1\n"))
	}()

	requireLine(t, f, "next=1 1", time.Second)

	select {
	case partial := <-dismissed:
		require.Equal(t, []byte("par"), partial)
	default:
		t.Fatal("expected the stalled partial line to be dismissed")
	}
}

func TestFramer_SilentDeviceRetriesWithoutError(t *testing.T) {
	dismissed := make(chan []byte, 16)
	f, pw := newPipeFramer(t, Config{
		MaxLineLength: 64,
		Timeout:       50 * time.Millisecond,
		OnDismiss: func(partial []byte) {
			dismissed <- append([]byte(nil), partial...)
		},
	})

	go func() {
		pw.Write([]byte("\n"))
		time.Sleep(180 * time.Millisecond)
		pw.Write([]byte("a=1 1\n"))
	}()

	// The device goes silent for several timeout windows: no line, no
	// error, but dismissals are reported.
	requireLine(t, f, "a=1 1", time.Second)
	require.NotEmpty(t, dismissed)
}

func TestFramer_DeadlineFixedAtFirstByte(t *testing.T) {
	dismissed := make(chan []byte, 16)
	f, pw := newPipeFramer(t, Config{
		MaxLineLength: 64,
		Timeout:       100 * time.Millisecond,
		OnDismiss: func(partial []byte) {
			dismissed <- append([]byte(nil), partial...)
		},
	})

	go func() {
		pw.Write([]byte("\n"))
		// Every gap is below the timeout, but the deadline is fixed at
		// the first byte, so the line dies once total time passes it.
		pw.Write([]byte("ab"))
		time.Sleep(60 * time.Millisecond)
		pw.Write([]byte("cd"))
		time.Sleep(60 * time.Millisecond)
		pw.Write([]byte("ef\n"))
	}()

	// The surviving bytes after the dismissal form the next line.
	requireLine(t, f, "ef", time.Second)

	select {
	case partial := <-dismissed:
		require.Equal(t, []byte("abcd"), partial)
	case <-time.After(time.Second):
		t.Fatal("expected the slow line to be dismissed")
	}
}

func TestFramer_SourceErrorPropagates(t *testing.T) {
	f, pw := newPipeFramer(t, Config{MaxLineLength: 64, Timeout: time.Second})

	go func() {
		pw.Write([]byte("\n"))
		pw.Write([]byte("a=1 1\n"))
		pw.Close()
	}()

	requireLine(t, f, "a=1 1", time.Second)

	_, err := f.Next()
	require.ErrorIs(t, err, io.EOF)
}

func TestFramer_ReadLines(t *testing.T) {
	f, pw := newPipeFramer(t, Config{MaxLineLength: 64, Timeout: time.Second})

	go func() {
		pw.Write([]byte("\n"))
		pw.Write([]byte("a=1 1\n"))
		pw.Write([]byte("b=2 2\n"))
		pw.Close()
	}()

	var got []string
	err := f.ReadLines(func(line []byte) {
		got = append(got, string(line))
	})
	require.ErrorIs(t, err, io.EOF)
	require.Equal(t, []string{"a=1 1", "b=2 2"}, got)
}

func TestLineOverflowError_Messages(t *testing.T) {
	tests := []struct {
		name string
		err  *LineOverflowError
		want string
	}{
		{
			name: "no data",
			err:  &LineOverflowError{Line: nil, Max: 16},
			want: "timeout on device inactivity, no data received",
		},
		{
			name: "reached cap",
			err:  &LineOverflowError{Line: []byte("abcd"), Max: 4},
			want: `read line overflow: "abcd"`,
		},
		{
			name: "incomplete",
			err:  &LineOverflowError{Line: []byte("ab"), Max: 16},
			want: `read timeout; received incomplete line: "ab"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, tt.err.Error())
		})
	}
}
