// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Ardane Systems

package lineproto

import (
	"fmt"
	"time"
)

// Statistics tracks line and parse-error rates for a device session.
type Statistics struct {
	StartTime      time.Time
	LastUpdateTime time.Time

	// Counters
	TotalLines   uint64
	ValidRecords uint64
	ParseErrors  uint64
	Dismissals   uint64

	// Rates (calculated)
	LineRate  float64 // lines/sec
	ErrorRate float64 // errors/sec
}

// NewStatistics creates a new statistics tracker.
func NewStatistics() *Statistics {
	now := time.Now()
	return &Statistics{
		StartTime:      now,
		LastUpdateTime: now,
	}
}

// Update records the outcome of parsing one framed line.
func (s *Statistics) Update(parseErr error) {
	s.TotalLines++
	if parseErr != nil {
		s.ParseErrors++
	} else {
		s.ValidRecords++
	}
	s.LastUpdateTime = time.Now()
}

// AddDismissal records one incomplete line dropped by the framer.
func (s *Statistics) AddDismissal() {
	s.Dismissals++
	s.LastUpdateTime = time.Now()
}

// CalculateRates calculates line and error rates.
func (s *Statistics) CalculateRates() {
	elapsed := time.Since(s.StartTime).Seconds()
	if elapsed > 0 {
		s.LineRate = float64(s.TotalLines) / elapsed
		s.ErrorRate = float64(s.ParseErrors+s.Dismissals) / elapsed
	}
}

// String returns a formatted statistics summary.
func (s *Statistics) String() string {
	s.CalculateRates()

	var validPercent, errorPercent float64
	if s.TotalLines > 0 {
		validPercent = float64(s.ValidRecords) * 100.0 / float64(s.TotalLines)
		errorPercent = float64(s.ParseErrors) * 100.0 / float64(s.TotalLines)
	}

	elapsed := time.Since(s.StartTime)

	result := fmt.Sprintf("=== Statistics (%.0f seconds) ===\n", elapsed.Seconds())
	result += fmt.Sprintf("Total Lines:     %8d\n", s.TotalLines)
	result += fmt.Sprintf("Valid Records:   %8d (%.1f%%)\n", s.ValidRecords, validPercent)
	if s.ParseErrors > 0 {
		result += fmt.Sprintf("Parse Errors:    %8d (%.1f%%)\n", s.ParseErrors, errorPercent)
	}
	if s.Dismissals > 0 {
		result += fmt.Sprintf("Dismissed Lines: %8d\n", s.Dismissals)
	}
	result += fmt.Sprintf("Line Rate:       %8.1f lines/sec\n", s.LineRate)
	result += fmt.Sprintf("Error Rate:      %8.1f errors/sec\n", s.ErrorRate)
	result += "================================\n"

	return result
}

// Reset resets all statistics counters.
func (s *Statistics) Reset() {
	now := time.Now()
	s.StartTime = now
	s.LastUpdateTime = now
	s.TotalLines = 0
	s.ValidRecords = 0
	s.ParseErrors = 0
	s.Dismissals = 0
	s.LineRate = 0
	s.ErrorRate = 0
}
