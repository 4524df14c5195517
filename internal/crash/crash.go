/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package crash turns a panic into a crash report plus a last-ditch draft
// autosave, so an assembled chapter survives the process dying.
package crash

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"time"

	"chapterpress/internal/draft"
	applog "chapterpress/internal/log"
	"chapterpress/internal/telemetry"
	"chapterpress/internal/version"
)

// exitFn is used to allow testing of Recover without terminating the test process.
var exitFn = os.Exit

// Snapshotter yields the current chapter state for the autosave. The editor
// store satisfies this through a small adapter in cmd.
type Snapshotter interface {
	DraftManifest() draft.Manifest
}

// Recover captures a panic, logs the stack, writes a report file into
// draftDir, and attempts a draft autosave when snap is non-nil.
//
// Usage: defer crash.Recover(draftDir, snap)
func Recover(draftDir string, snap Snapshotter) {
	if r := recover(); r != nil {
		l := applog.WithComponent("crash")
		stack := debug.Stack()
		l.Error("panic recovered", slog.Any("panic", r), slog.String("stack", string(stack)))

		reportPath, _ := writeReport(draftDir, r, stack)
		if snap != nil {
			if err := draft.Save(draftDir, snap.DraftManifest()); err != nil {
				l.Error("crash autosave failed", slog.Any("err", err))
			} else {
				l.Info("crash autosave written", slog.String("dir", draftDir))
			}
		}

		fmt.Fprintf(os.Stderr, "A fatal error occurred. A crash report was saved to: %s\n", reportPath)
		fmt.Fprintf(os.Stderr, "Version: %s\nOS/Arch: %s/%s\n", version.String(), runtime.GOOS, runtime.GOARCH)
		exitFn(2)
	}
}

func writeReport(draftDir string, panicVal any, stack []byte) (string, error) {
	dir := os.TempDir()
	if draftDir != "" {
		dir = filepath.Join(draftDir, draft.BackupsDirName)
		_ = os.MkdirAll(dir, 0o755)
	}
	stamp := time.Now().Format("20060102-150405")
	path := filepath.Join(dir, fmt.Sprintf("crash-%s.log", stamp))

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "Chapterpress Crash Report\n")
	fmt.Fprintf(&buf, "Timestamp: %s\n", time.Now().Format(time.RFC3339))
	fmt.Fprintf(&buf, "Version: %s\n", version.String())
	fmt.Fprintf(&buf, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	if draftDir != "" {
		fmt.Fprintf(&buf, "DraftDir: %s\n", draftDir)
	}
	fmt.Fprintf(&buf, "\nPanic: %v\n\n", panicVal)
	fmt.Fprintf(&buf, "Stack:\n%s\n", string(stack))

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return path, err
	}

	// optionally upload anonymized crash report (opt-in via env)
	telemetry.UploadCrash(buf.Bytes())
	return path, nil
}
