// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Ardane Systems

// Package lineproto parses framed device lines as line-protocol
// records: whitespace-separated tags and values with an optional
// trailing timestamp.
package lineproto

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Record is one parsed line-protocol sample.
type Record struct {
	Tags      string
	Values    string
	Timestamp int64 // nanoseconds since the Unix epoch
}

// Parse splits a framed line into tags, values and timestamp. Lines
// without a timestamp are stamped with the current wall clock.
func Parse(line string) (Record, error) {
	fields := strings.Split(strings.TrimSpace(line), " ")
	switch len(fields) {
	case 2:
		return Record{
			Tags:      fields[0],
			Values:    fields[1],
			Timestamp: time.Now().UnixNano(),
		}, nil
	case 3:
		ts, err := parseTimestamp(fields[2])
		if err != nil {
			return Record{}, fmt.Errorf("unable to parse line %q: %w", line, err)
		}
		return Record{Tags: fields[0], Values: fields[1], Timestamp: ts}, nil
	default:
		return Record{}, fmt.Errorf("unable to parse line %q", line)
	}
}

// parseTimestamp accepts integer nanoseconds, or a float for devices
// that report fractional clocks.
func parseTimestamp(s string) (int64, error) {
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil {
		return ts, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("bad timestamp %q", s)
	}
	return int64(f), nil
}

// WithTags returns a copy of the record with extra static tags merged
// after the device's own.
func (r Record) WithTags(extra string) Record {
	parts := make([]string, 0, 2)
	for _, t := range []string{r.Tags, extra} {
		if t != "" {
			parts = append(parts, t)
		}
	}
	r.Tags = strings.Join(parts, ",")
	return r
}

// String renders the record in line-protocol wire form.
func (r Record) String() string {
	return fmt.Sprintf("%s %s %d", r.Tags, r.Values, r.Timestamp)
}
