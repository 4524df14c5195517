/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package telemetry reports anonymous usage events and crash uploads.
// Everything is strictly opt-in and disabled by default; with no endpoint
// configured every call is a no-op.
package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"

	applog "chapterpress/internal/log"
	"chapterpress/internal/version"
)

// Event names emitted by the app. Properties must stay non-PII: counts and
// flags, never paths, titles or URLs.
const (
	EventPublishCreated = "publish_created"
	EventPublishEdited  = "publish_edited"
	EventArticleLoaded  = "article_loaded"
	EventAnnounceSent   = "announce_sent"
	EventExport         = "export"
)

// Config holds runtime configuration for telemetry and crash uploads.
//
// Environment variables (read by FromEnv):
// - CHP_TELEMETRY_OPT_IN: "1", "true", "yes" to enable metrics
// - CHP_TELEMETRY_URL: base URL to POST JSON events to
// - CHP_CRASH_UPLOAD_URL: URL to POST crash reports to
// - CHP_TELEMETRY_TIMEOUT_MS: optional request timeout, default 1500ms
// - CHP_TELEMETRY_DEBUG: if set, logs event send attempts
type Config struct {
	OptIn        bool
	EventsURL    string
	CrashURL     string
	Timeout      time.Duration
	DebugLogging bool
}

func FromEnv() Config {
	cfg := Config{
		OptIn:        parseBool(os.Getenv("CHP_TELEMETRY_OPT_IN")),
		EventsURL:    strings.TrimSpace(os.Getenv("CHP_TELEMETRY_URL")),
		CrashURL:     strings.TrimSpace(os.Getenv("CHP_CRASH_UPLOAD_URL")),
		Timeout:      1500 * time.Millisecond,
		DebugLogging: os.Getenv("CHP_TELEMETRY_DEBUG") != "",
	}
	if ms := strings.TrimSpace(os.Getenv("CHP_TELEMETRY_TIMEOUT_MS")); ms != "" {
		if v, err := time.ParseDuration(ms + "ms"); err == nil {
			cfg.Timeout = v
		}
	}
	return cfg
}

func parseBool(v string) bool {
	s := strings.ToLower(strings.TrimSpace(v))
	return s == "1" || s == "true" || s == "yes" || s == "on"
}

// Reporter posts events asynchronously through a bounded queue. It never
// blocks the caller; when the queue is full or a send fails, the event is
// dropped.
type Reporter struct {
	cfg   Config
	log   *slog.Logger
	http  *http.Client
	queue chan map[string]any
	once  sync.Once
	done  chan struct{}
}

var defaultReporter *Reporter
var defaultOnce sync.Once

// InitDefault installs the package-level reporter from env, once.
func InitDefault() {
	defaultOnce.Do(func() { NewDefault(FromEnv()) })
}

// NewDefault creates and installs the default reporter with cfg.
func NewDefault(cfg Config) {
	defaultReporter = New(cfg)
}

// New constructs a reporter and starts its send loop.
func New(cfg Config) *Reporter {
	r := &Reporter{
		cfg:   cfg,
		log:   applog.WithComponent("telemetry"),
		http:  &http.Client{Timeout: cfg.Timeout},
		queue: make(chan map[string]any, 64),
		done:  make(chan struct{}),
	}
	go r.loop()
	return r
}

// Enabled reports whether events are opted in and an endpoint is configured.
func (r *Reporter) Enabled() bool { return r != nil && r.cfg.OptIn && r.cfg.EventsURL != "" }

// Enabled reports the default reporter's state.
func Enabled() bool {
	InitDefault()
	return defaultReporter.Enabled()
}

// Event enqueues a named event with the standard identity attributes. Safe
// to call from anywhere.
func (r *Reporter) Event(name string, props map[string]any) {
	if !r.Enabled() || name == "" {
		return
	}
	payload := map[string]any{
		"name":    name,
		"ts":      time.Now().UTC().Format(time.RFC3339Nano),
		"app":     "chapterpress",
		"version": version.String(),
		"os":      runtime.GOOS,
		"arch":    runtime.GOARCH,
	}
	for k, v := range props {
		payload[k] = v
	}
	select {
	case r.queue <- payload:
	default:
	}
}

// Event posts through the default reporter.
func Event(name string, props map[string]any) { InitDefault(); defaultReporter.Event(name, props) }

// Flush waits briefly for the queue to drain. Intended for shutdown paths.
func (r *Reporter) Flush(ctx context.Context) {
	deadline := time.Now().Add(500 * time.Millisecond)
	for {
		if len(r.queue) == 0 || time.Now().After(deadline) {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(25 * time.Millisecond):
		}
	}
}

// Flush drains the default reporter.
func Flush(ctx context.Context) { InitDefault(); defaultReporter.Flush(ctx) }

// Close stops the send loop.
func (r *Reporter) Close() { r.once.Do(func() { close(r.done) }) }

func (r *Reporter) loop() {
	for {
		select {
		case <-r.done:
			return
		case payload := <-r.queue:
			r.send(payload)
		}
	}
}

func (r *Reporter) send(payload map[string]any) {
	buf, _ := json.Marshal(payload)
	req, err := http.NewRequest(http.MethodPost, r.cfg.EventsURL, bytes.NewReader(buf))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := r.http.Do(req)
	if err != nil {
		if r.cfg.DebugLogging {
			r.log.Debug("event send failed", slog.Any("err", err))
		}
		return
	}
	_ = resp.Body.Close()
	if r.cfg.DebugLogging {
		r.log.Debug("event sent", slog.Any("name", payload["name"]))
	}
}

// UploadCrash posts an already-serialized crash report to the crash URL.
// Independent from the events endpoint so crash capture works even when
// usage metrics stay off.
func (r *Reporter) UploadCrash(report []byte) {
	if r == nil || !r.cfg.OptIn || r.cfg.CrashURL == "" {
		return
	}
	go func(b []byte) {
		req, err := http.NewRequest(http.MethodPost, r.cfg.CrashURL, bytes.NewReader(b))
		if err != nil {
			return
		}
		req.Header.Set("Content-Type", "text/plain; charset=utf-8")
		resp, err := r.http.Do(req)
		if err != nil {
			if r.cfg.DebugLogging {
				r.log.Debug("crash upload failed", slog.Any("err", err))
			}
			return
		}
		_ = resp.Body.Close()
		if r.cfg.DebugLogging {
			r.log.Debug("crash report uploaded")
		}
	}(append([]byte(nil), report...))
}

// UploadCrash posts through the default reporter.
func UploadCrash(report []byte) { InitDefault(); defaultReporter.UploadCrash(report) }
