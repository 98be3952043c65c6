// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Ardane Systems

// Package influx posts line-protocol records to an InfluxDB write
// endpoint over plain HTTP.
package influx

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client writes batches of line-protocol records to one database.
type Client struct {
	host     string // host[:port], no scheme
	database string
	warnOn   map[int]struct{}
	httpc    *http.Client
	log      *slog.Logger
}

// NewClient returns a client for http://host/write?db=database.
// Responses with a status in warnOnStatus are logged as warnings
// instead of failing the batch, for servers that reject individual
// malformed points with e.g. 400.
func NewClient(host, database string, warnOnStatus []int, logger *slog.Logger) *Client {
	warnOn := make(map[int]struct{}, len(warnOnStatus))
	for _, s := range warnOnStatus {
		warnOn[s] = struct{}{}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Client{
		host:     host,
		database: database,
		warnOn:   warnOn,
		httpc:    &http.Client{Timeout: 30 * time.Second},
		log:      logger,
	}
}

// WriteLines posts the records as one newline-joined batch.
func (c *Client) WriteLines(ctx context.Context, lines []string) error {
	if len(lines) == 0 {
		return nil
	}

	u := url.URL{
		Scheme:   "http",
		Host:     c.host,
		Path:     "/write",
		RawQuery: url.Values{"db": {c.database}}.Encode(),
	}
	body := strings.NewReader(strings.Join(lines, "\n"))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), body)
	if err != nil {
		return fmt.Errorf("build write request: %w", err)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("post to influxdb: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	if _, ok := c.warnOn[resp.StatusCode]; ok {
		c.log.Warn("influxdb rejected batch",
			"status", resp.StatusCode,
			"detail", strings.TrimSpace(string(detail)),
			"lines", len(lines))
		return nil
	}
	return fmt.Errorf("influxdb write failed: status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
}
