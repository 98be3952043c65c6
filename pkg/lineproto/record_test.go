// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Ardane Systems

package lineproto

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParse_WithTimestamp(t *testing.T) {
	rec, err := Parse("sensor=garden,kind=dht22 temp=21.5 1700000000000000000")
	require.NoError(t, err)
	require.Equal(t, "sensor=garden,kind=dht22", rec.Tags)
	require.Equal(t, "temp=21.5", rec.Values)
	require.Equal(t, int64(1700000000000000000), rec.Timestamp)
}

func TestParse_FloatTimestamp(t *testing.T) {
	rec, err := Parse("sensor=garden temp=21.5 1700000000.5")
	require.NoError(t, err)
	require.Equal(t, int64(1700000000), rec.Timestamp)
}

func TestParse_WithoutTimestampStampsNow(t *testing.T) {
	before := time.Now().UnixNano()
	rec, err := Parse("sensor=garden temp=21.5")
	require.NoError(t, err)
	after := time.Now().UnixNano()

	require.GreaterOrEqual(t, rec.Timestamp, before)
	require.LessOrEqual(t, rec.Timestamp, after)
}

func TestParse_TrimsSurroundingWhitespace(t *testing.T) {
	rec, err := Parse("  sensor=garden temp=21.5 42  ")
	require.NoError(t, err)
	require.Equal(t, "sensor=garden", rec.Tags)
	require.Equal(t, int64(42), rec.Timestamp)
}

func TestParse_Rejects(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{"empty", ""},
		{"one field", "lonely"},
		{"four fields", "a b c d"},
		{"bad timestamp", "a b not-a-number"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.line)
			require.Error(t, err)
			require.Contains(t, err.Error(), "unable to parse line")
		})
	}
}

func TestRecord_WithTags(t *testing.T) {
	rec := Record{Tags: "sensor=garden", Values: "temp=1", Timestamp: 7}

	merged := rec.WithTags("site=roof")
	require.Equal(t, "sensor=garden,site=roof", merged.Tags)

	// Empty extras leave the device tags alone.
	require.Equal(t, "sensor=garden", rec.WithTags("").Tags)

	// Empty device tags do not produce a leading comma.
	require.Equal(t, "site=roof", Record{Tags: ""}.WithTags("site=roof").Tags)
}

func TestRecord_String(t *testing.T) {
	rec := Record{Tags: "sensor=garden", Values: "temp=21.5", Timestamp: 42}
	require.Equal(t, "sensor=garden temp=21.5 42", rec.String())
}

func TestStatistics(t *testing.T) {
	stats := NewStatistics()
	stats.Update(nil)
	stats.Update(nil)
	stats.Update(errors.New("bad line"))
	stats.AddDismissal()

	require.Equal(t, uint64(3), stats.TotalLines)
	require.Equal(t, uint64(2), stats.ValidRecords)
	require.Equal(t, uint64(1), stats.ParseErrors)
	require.Equal(t, uint64(1), stats.Dismissals)

	out := stats.String()
	require.Contains(t, out, "Total Lines")
	require.Contains(t, out, "Dismissed Lines")

	stats.Reset()
	require.Zero(t, stats.TotalLines)
	require.Zero(t, stats.Dismissals)
}
