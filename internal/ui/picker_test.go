/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package ui

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func touch(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestScanFolder(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "One Piece Ch 1050")
	if err := os.Mkdir(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	b := touch(t, dir, "002.png")
	a := touch(t, dir, "001.jpg")
	touch(t, dir, "notes.txt")
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0o755); err != nil {
		t.Fatalf("mkdir sub: %v", err)
	}

	sel, err := ScanFolder(dir)
	if err != nil {
		t.Fatalf("ScanFolder error: %v", err)
	}
	if sel.Path != dir || sel.Title != "One Piece Ch 1050" {
		t.Fatalf("selection = %+v", sel)
	}
	if !reflect.DeepEqual(sel.Images, []string{a, b}) {
		t.Fatalf("images = %v, want sorted [%s %s]", sel.Images, a, b)
	}
}

func TestPathProviderCancelled(t *testing.T) {
	sel, err := PathProvider{}.PickFolder(context.Background())
	if err != nil || sel.Path != "" {
		t.Fatalf("empty provider: sel=%+v err=%v", sel, err)
	}
}

func TestPathProviderFilesFiltered(t *testing.T) {
	p := PathProvider{Files: []string{"/a/001.jpg", "/a/readme.md", "/a/002.webp"}}
	got, err := p.PickFiles(context.Background())
	if err != nil {
		t.Fatalf("PickFiles error: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"/a/001.jpg", "/a/002.webp"}) {
		t.Fatalf("files = %v", got)
	}
}
