// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Ardane Systems
//
// Linewatch - Line-oriented serial device collector
//
// A CLI tool for framing line-protocol records from serial devices and
// forwarding them to InfluxDB.

package main

import (
	"os"

	"github.com/ardane/linewatch/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
