/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package log

import (
	"context"
	"log/slog"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Fatalf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestInitAndComponentLogger(t *testing.T) {
	Init(Options{Level: "debug", Format: "console"})
	l := WithComponent("test")
	if l == nil {
		t.Fatalf("WithComponent returned nil")
	}
	// must not panic and must be enabled at debug
	l.Debug("hello")
	if !L().Enabled(context.Background(), slog.LevelDebug) {
		t.Fatalf("debug level not enabled after Init")
	}
}

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("CHP_LOG_LEVEL", "")
	t.Setenv("CHP_LOG_FORMAT", "")
	opts := FromEnv()
	if opts.Level != "info" || opts.Format != "console" {
		t.Fatalf("unexpected env defaults: %+v", opts)
	}
}
