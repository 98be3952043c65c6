// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Ardane Systems

package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ardane/linewatch/pkg/lineframe"
	"github.com/ardane/linewatch/pkg/lineproto"
	"github.com/spf13/cobra"
)

var (
	watchStatsInterval int
	watchUseTUI        bool
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Display framed records as they arrive",
	Long: `Continuously frame and display line-protocol records from the device.

Each complete line is parsed as "tags values [timestamp]" and printed
with its receive time. Lines that stall mid-transmission are dismissed
and counted; a line exceeding --max-line-length stops the session.

Supports both serial and WebSocket connections.`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().IntVar(&watchStatsInterval, "stats-interval", 10, "Statistics update interval (seconds)")
	watchCmd.Flags().BoolVar(&watchUseTUI, "tui", false, "Use terminal UI (false for text mode)")
}

func runWatch(cmd *cobra.Command, args []string) error {
	conn, connInfo, err := OpenConnection()
	if err != nil {
		return err
	}
	defer conn.Close()

	dismissals := make(chan string, 16)
	framer, err := lineframe.New(NewByteSource(conn), lineframe.Config{
		MaxLineLength: maxLineLength,
		Timeout:       readTimeout,
		Logger:        slog.Default(),
		OnDismiss: func(partial []byte) {
			select {
			case dismissals <- string(partial):
			default:
			}
		},
	})
	if err != nil {
		return err
	}

	if watchUseTUI {
		return runWatchTUI(framer, dismissals, connInfo)
	}
	return runWatchText(framer, dismissals, connInfo)
}

// runWatchText streams records to stdout with periodic statistics.
func runWatchText(framer *lineframe.Framer, dismissals <-chan string, connInfo string) error {
	fmt.Printf("Linewatch - Record Watch\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Statistics interval: %d seconds\n", watchStatsInterval)
	fmt.Printf("Press Ctrl+C to exit\n\n")

	stats := lineproto.NewStatistics()

	statsTicker := time.NewTicker(time.Duration(watchStatsInterval) * time.Second)
	defer statsTicker.Stop()

	// Channel for non-blocking framer reads
	lines := make(chan []byte, 64)
	readErr := make(chan error, 1)
	go func() {
		readErr <- framer.ReadLines(func(line []byte) {
			lines <- append([]byte(nil), line...)
		})
	}()

	synchronized := false
	for {
		select {
		case line := <-lines:
			if !synchronized {
				synchronized = true
				if skipped := framer.SkippedBytes(); skipped > 0 {
					fmt.Printf("[SYNC] Synchronized after skipping %d bytes\n\n", skipped)
				} else {
					fmt.Printf("[SYNC] Synchronized\n\n")
				}
			}
			printRecord(stats, string(line))

		case partial := <-dismissals:
			stats.AddDismissal()
			timestamp := time.Now().Format("15:04:05.000")
			fmt.Printf("[%s] \033[1;33mDISMISSED:\033[0m incomplete line %q\n\n", timestamp, partial)

		case <-statsTicker.C:
			fmt.Println()
			fmt.Print(stats.String())
			fmt.Println()

		case err := <-readErr:
			var overflow *lineframe.LineOverflowError
			if errors.As(err, &overflow) {
				fmt.Println()
				fmt.Print(stats.String())
			}
			return err
		}
	}
}

// printRecord parses one framed line and prints it or the parse error.
func printRecord(stats *lineproto.Statistics, line string) {
	timestamp := time.Now().Format("15:04:05.000")
	record, err := lineproto.Parse(line)
	stats.Update(err)
	if err != nil {
		fmt.Printf("[%s] \033[1;31mPARSE ERROR:\033[0m %v\n", timestamp, err)
		fmt.Printf("  >>> LINE REJECTED <<<\n\n")
		return
	}
	fmt.Printf("[%s] %s\n", timestamp, record.String())
}
