// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Ardane Systems

package cmd

import (
	"time"

	"github.com/spf13/cobra"
)

var (
	// Serial connection flags
	portName string
	baudRate int

	// WebSocket connection flags
	wsURL         string
	wsUsername    string
	wsNoSSLVerify bool

	// Framing flags
	maxLineLength int
	readTimeout   time.Duration

	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "linewatch",
	Short: "Line-oriented serial device collector",
	Long: `Linewatch - A CLI tool for reading line-oriented records from serial
devices and forwarding them to InfluxDB.

The device is expected to emit newline-terminated records in InfluxDB
line protocol form ("tags values [timestamp]"). Linewatch synchronizes
to a line boundary, drops lines that stall mid-transmission, and stops
on lines that exceed the configured maximum length.

Connection modes:
  Serial:    --port /dev/ttyUSB0 [--baud 115200]
  WebSocket: --url ws://host/path [--username user]

For WebSocket authentication, the password is read from the
LINEWATCH_PASSWORD environment variable, or prompted interactively if
not set. The --password flag is intentionally not provided to avoid
leaking credentials in shell history.`,
	Version: "1.0.0",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogging(verbose)
	},
}

func init() {
	// Serial connection flags
	rootCmd.PersistentFlags().StringVarP(&portName, "port", "p", "", "Serial port device")
	rootCmd.PersistentFlags().IntVarP(&baudRate, "baud", "b", 115200, "Baud rate (serial only)")

	// WebSocket connection flags
	rootCmd.PersistentFlags().StringVarP(&wsURL, "url", "u", "", "WebSocket URL (ws:// or wss://)")
	rootCmd.PersistentFlags().StringVar(&wsUsername, "username", "", "Username for HTTP Basic auth")
	rootCmd.PersistentFlags().BoolVar(&wsNoSSLVerify, "no-ssl-verify", false, "Skip TLS certificate verification (wss:// only)")

	// Framing flags
	rootCmd.PersistentFlags().IntVar(&maxLineLength, "max-line-length", 1024, "Maximum line length in bytes")
	rootCmd.PersistentFlags().DurationVar(&readTimeout, "read-timeout", 10*time.Second, "Per-line inactivity timeout")

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
