/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package telemetry sends opt-in anonymous usage events and crash reports
// for the faceplate builder. Nothing is sent unless the user opted in and an
// endpoint is configured.
package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	applog "faceplate/internal/log"
	"faceplate/internal/version"
)

const (
	EnvOptIn     = "FPB_TELEMETRY_OPT_IN"
	EnvEventsURL = "FPB_TELEMETRY_URL"
	EnvCrashURL  = "FPB_CRASH_UPLOAD_URL"
	EnvTimeoutMs = "FPB_TELEMETRY_TIMEOUT_MS"
	EnvDebug     = "FPB_TELEMETRY_DEBUG"

	defaultTimeout = 1500 * time.Millisecond
	queueSize      = 64
)

// Config selects endpoints and opt-in. The zero value sends nothing.
type Config struct {
	OptIn        bool
	EventsURL    string
	CrashURL     string
	Timeout      time.Duration
	DebugLogging bool
}

// FromEnv reads the FPB_TELEMETRY_* and FPB_CRASH_UPLOAD_URL variables.
func FromEnv() Config {
	cfg := Config{
		OptIn:        truthy(os.Getenv(EnvOptIn)),
		EventsURL:    strings.TrimSpace(os.Getenv(EnvEventsURL)),
		CrashURL:     strings.TrimSpace(os.Getenv(EnvCrashURL)),
		Timeout:      defaultTimeout,
		DebugLogging: os.Getenv(EnvDebug) != "",
	}
	if ms, err := strconv.Atoi(strings.TrimSpace(os.Getenv(EnvTimeoutMs))); err == nil && ms > 0 {
		cfg.Timeout = time.Duration(ms) * time.Millisecond
	}
	return cfg
}

// WithOptIn ORs the user's config choice into the env opt-in.
func (c Config) WithOptIn(userOptIn bool) Config {
	c.OptIn = c.OptIn || userOptIn
	return c
}

func truthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

// Usage is the wire form of one event. Props are merged into the top level
// and must never carry node ids, names or paths.
type Usage struct {
	Name    string
	TS      time.Time
	Props   map[string]any
	Version string
	OS      string
	Arch    string
}

func (u Usage) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(u.Props)+5)
	for k, v := range u.Props {
		m[k] = v
	}
	m["name"] = u.Name
	m["ts"] = u.TS.UTC().Format(time.RFC3339Nano)
	m["version"] = u.Version
	m["os"] = u.OS
	m["arch"] = u.Arch
	return json.Marshal(m)
}

// Client queues events and posts them from one goroutine. Event never
// blocks; a full queue drops.
type Client struct {
	cfg     Config
	log     *slog.Logger
	http    *http.Client
	queue   chan Usage
	pending atomic.Int64
	stop    chan struct{}
	once    sync.Once
}

// New starts a client. Close it when done.
func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	c := &Client{
		cfg:   cfg,
		log:   applog.WithComponent("telemetry"),
		http:  &http.Client{Timeout: cfg.Timeout},
		queue: make(chan Usage, queueSize),
		stop:  make(chan struct{}),
	}
	go c.run()
	return c
}

// Enabled reports opt-in with an events endpoint configured.
func (c *Client) Enabled() bool { return c != nil && c.cfg.OptIn && c.cfg.EventsURL != "" }

// Event queues a usage event. Empty names are ignored.
func (c *Client) Event(name string, props map[string]any) {
	if !c.Enabled() || name == "" {
		return
	}
	u := Usage{Name: name, TS: time.Now(), Props: props, Version: version.String(), OS: runtime.GOOS, Arch: runtime.GOARCH}
	c.pending.Add(1)
	select {
	case c.queue <- u:
	default:
		c.pending.Add(-1)
	}
}

// Flush waits until queued events are sent, ctx is done, or half a second
// passes. A nil ctx means no caller deadline.
func (c *Client) Flush(ctx context.Context) {
	if c == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	deadline := time.After(500 * time.Millisecond)
	tick := time.NewTicker(10 * time.Millisecond)
	defer tick.Stop()
	for c.pending.Load() > 0 {
		select {
		case <-ctx.Done():
			return
		case <-deadline:
			return
		case <-tick.C:
		}
	}
}

// Close stops the sender. Queued events are dropped.
func (c *Client) Close() {
	if c != nil {
		c.once.Do(func() { close(c.stop) })
	}
}

func (c *Client) run() {
	for {
		select {
		case <-c.stop:
			return
		case u := <-c.queue:
			body, err := json.Marshal(u)
			if err == nil {
				err = c.post(context.Background(), c.cfg.EventsURL, "application/json", body)
			}
			c.debug("telemetry event", u.Name, err)
			c.pending.Add(-1)
		}
	}
}

// UploadCrash posts a crash report synchronously, bounded by the client
// timeout. It is a no-op without opt-in or a crash endpoint.
func (c *Client) UploadCrash(ctx context.Context, report []byte) error {
	if c == nil || !c.cfg.OptIn || c.cfg.CrashURL == "" {
		return nil
	}
	err := c.post(ctx, c.cfg.CrashURL, "text/plain; charset=utf-8", report)
	c.debug("crash upload", "", err)
	return err
}

func (c *Client) post(ctx context.Context, url, contentType string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	_ = resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("telemetry: %s returned %s", url, resp.Status)
	}
	return nil
}

func (c *Client) debug(msg, name string, err error) {
	if !c.cfg.DebugLogging {
		return
	}
	if err != nil {
		c.log.Debug(msg+" failed", slog.String("name", name), slog.Any("err", err))
		return
	}
	c.log.Debug(msg+" sent", slog.String("name", name))
}

var (
	defaultMu     sync.Mutex
	defaultClient *Client
)

// Default returns the process-wide client, built from the environment on
// first use.
func Default() *Client {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultClient == nil {
		defaultClient = New(FromEnv())
	}
	return defaultClient
}

// SetDefault replaces the process-wide client and returns the previous one.
func SetDefault(c *Client) *Client {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	prev := defaultClient
	defaultClient = c
	return prev
}

// UploadCrash sends report through the default client.
func UploadCrash(ctx context.Context, report []byte) error {
	return Default().UploadCrash(ctx, report)
}
