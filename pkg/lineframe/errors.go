// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Ardane Systems

package lineframe

import "fmt"

// LineOverflowError is returned when the device produced MaxLineLength
// bytes without terminating the line. It is fatal: the framer stops
// producing and the device session must be reattached.
type LineOverflowError struct {
	Line []byte
	Max  int
}

func (e *LineOverflowError) Error() string {
	switch {
	case len(e.Line) == 0:
		return "timeout on device inactivity, no data received"
	case len(e.Line) >= e.Max:
		return fmt.Sprintf("read line overflow: %q", e.Line)
	default:
		return fmt.Sprintf("read timeout; received incomplete line: %q", e.Line)
	}
}
