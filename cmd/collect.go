// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Ardane Systems

package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/ardane/linewatch/internal/backoff"
	"github.com/ardane/linewatch/internal/config"
	"github.com/ardane/linewatch/pkg/influx"
	"github.com/ardane/linewatch/pkg/lineframe"
	"github.com/ardane/linewatch/pkg/lineproto"
	"github.com/ardane/linewatch/pkg/spool"
	"github.com/spf13/cobra"
	"go.bug.st/serial"
)

var (
	collectConfigPath string
	collectTags       string
	collectDatabase   string
	collectHost       string
	collectSpoolDir   string
	collectWarnOn     []int
)

// spoolPollInterval bounds how long the writer sleeps when the spool
// is empty before re-checking the file for records from a previous run.
const spoolPollInterval = time.Minute

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Collect records from a serial device into InfluxDB",
	Long: `Run the collector: frame line-protocol records from a serial device,
merge in static tags, and forward them to an InfluxDB write endpoint.

Records pass through a disk-backed spool, so samples survive process
restarts and database outages. The device reader and the database
writer run as independent sessions; either one failing is retried with
exponential backoff while the other keeps running.

Settings come from a TOML config file (--config) and can be overridden
per-flag. Without a config file, --port and --database are required.`,
	RunE: runCollect,
}

func init() {
	rootCmd.AddCommand(collectCmd)
	collectCmd.Flags().StringVarP(&collectConfigPath, "config", "c", "", "TOML config file")
	collectCmd.Flags().StringVar(&collectTags, "tags", "", "Static tags merged into every record (comma-separated)")
	collectCmd.Flags().StringVar(&collectDatabase, "database", "", "InfluxDB database name")
	collectCmd.Flags().StringVar(&collectHost, "host", "", "InfluxDB host[:port]")
	collectCmd.Flags().StringVar(&collectSpoolDir, "spool-dir", "", "Directory for the on-disk record spool")
	collectCmd.Flags().IntSliceVar(&collectWarnOn, "warn-on-status", nil, "HTTP statuses logged as warnings instead of failing the batch")
}

// collectConfig merges the config file with flag overrides.
func collectConfig(cmd *cobra.Command) (config.Collect, error) {
	var cfg config.Collect
	if collectConfigPath != "" {
		var err error
		cfg, err = config.ReadCollect(collectConfigPath)
		if err != nil {
			return config.Collect{}, err
		}
	}

	flags := cmd.Flags()
	if flags.Changed("port") || cfg.Device == "" {
		cfg.Device = portName
	}
	if flags.Changed("baud") {
		cfg.BaudRate = baudRate
	}
	if flags.Changed("max-line-length") {
		cfg.MaxLineLength = maxLineLength
	}
	if flags.Changed("read-timeout") {
		cfg.Timeout = readTimeout.Seconds()
	}
	if flags.Changed("tags") {
		cfg.Tags = collectTags
	}
	if flags.Changed("database") {
		cfg.Database = collectDatabase
	}
	if flags.Changed("host") {
		cfg.Host = collectHost
	}
	if flags.Changed("warn-on-status") {
		cfg.WarnOnStatus = collectWarnOn
	}
	if flags.Changed("spool-dir") {
		cfg.SpoolDir = collectSpoolDir
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return config.Collect{}, err
	}
	return cfg, nil
}

func runCollect(cmd *cobra.Command, args []string) error {
	cfg, err := collectConfig(cmd)
	if err != nil {
		return err
	}
	log := slog.Default()

	queue, err := spool.Open(cfg.SpoolDir)
	if err != nil {
		return err
	}
	defer queue.Close()

	client := influx.NewClient(cfg.Host, cfg.Database, cfg.WarnOnStatus, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("collector starting",
		"device", cfg.Device,
		"baud", cfg.BaudRate,
		"database", cfg.Database,
		"host", cfg.Host,
		"spool", cfg.SpoolDir)

	policy := backoff.DefaultConfig()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		err := backoff.Retry(ctx, policy, log, "read", func() error {
			return readSession(ctx, cfg, queue, log)
		})
		if err != nil && ctx.Err() == nil {
			log.Error("read loop stopped", "error", err)
		}
	}()
	go func() {
		defer wg.Done()
		err := backoff.Retry(ctx, policy, log, "write", func() error {
			return writeSession(ctx, client, queue, log)
		})
		if err != nil && ctx.Err() == nil {
			log.Error("write loop stopped", "error", err)
		}
	}()
	wg.Wait()

	log.Info("collector stopped")
	return nil
}

// readSession opens the device and frames records into the spool until
// the connection fails, a line overflows, or ctx is cancelled. Each
// retry is a full session: reopen, resynchronize, resume.
func readSession(ctx context.Context, cfg config.Collect, queue *spool.Queue, log *slog.Logger) error {
	mode := &serial.Mode{
		BaudRate: cfg.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(cfg.Device, mode)
	if err != nil {
		return fmt.Errorf("open serial port %s: %w", cfg.Device, err)
	}

	// Closing the port unblocks the framer when ctx is cancelled.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			port.Close()
		case <-done:
			port.Close()
		}
	}()

	framer, err := lineframe.New(lineframe.NewPortSource(port), lineframe.Config{
		MaxLineLength: cfg.MaxLineLength,
		Timeout:       time.Duration(cfg.Timeout * float64(time.Second)),
		Logger:        log,
	})
	if err != nil {
		return err
	}

	log.Info("device session started", "device", cfg.Device, "baud", cfg.BaudRate)
	err = framer.ReadLines(func(line []byte) {
		record, perr := lineproto.Parse(string(line))
		if perr != nil {
			log.Warn("skipping unparseable line", "error", perr)
			return
		}
		record = record.WithTags(cfg.Tags)
		if perr := queue.Put(record.String()); perr != nil {
			log.Error("spooling record failed", "error", perr)
		}
	})
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

// writeSession drains the spool into InfluxDB one record at a time,
// acknowledging each only after a successful write. On failure the
// record stays spooled and the next session retries it.
func writeSession(ctx context.Context, client *influx.Client, queue *spool.Queue, log *slog.Logger) error {
	for {
		line, err := queue.Next(ctx, spoolPollInterval)
		if err != nil {
			return err
		}
		if err := client.WriteLines(ctx, []string{line}); err != nil {
			return err
		}
		if err := queue.Ack(); err != nil {
			return err
		}
		log.Debug("record written", "line", line)
	}
}
