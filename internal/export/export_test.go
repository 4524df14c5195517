/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"archive/zip"
	"bytes"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"chapterpress/internal/domain"
)

func writePNG(t *testing.T, dir, name string, w, h int) string {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write png: %v", err)
	}
	return path
}

func TestChapterCBZ(t *testing.T) {
	dir := t.TempDir()
	entries := []domain.ImageEntry{
		domain.NewLocalEntry(writePNG(t, dir, "b.png", 40, 60)),
		domain.NewRemoteEntry("https://cdn.example/skip.jpg", 2),
		domain.NewLocalEntry(writePNG(t, dir, "a.png", 40, 60)),
	}
	out := filepath.Join(dir, "out", "ch1.cbz")
	if err := ChapterCBZ("Ch 1", entries, out); err != nil {
		t.Fatalf("ChapterCBZ error: %v", err)
	}

	zr, err := zip.OpenReader(out)
	if err != nil {
		t.Fatalf("open cbz: %v", err)
	}
	defer zr.Close()

	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	want := []string{"001.png", "002.png", "ComicInfo.xml"}
	if len(names) != len(want) {
		t.Fatalf("archive entries = %v, want %v", names, want)
	}
	for i, n := range want {
		if names[i] != n {
			t.Fatalf("archive entries = %v, want %v", names, want)
		}
	}
}

func TestChapterCBZNoLocalPages(t *testing.T) {
	entries := []domain.ImageEntry{domain.NewRemoteEntry("https://cdn.example/a.jpg", 1)}
	if err := ChapterCBZ("Ch 1", entries, filepath.Join(t.TempDir(), "x.cbz")); err == nil {
		t.Fatalf("expected error without local pages")
	}
}

func TestChapterPDF(t *testing.T) {
	dir := t.TempDir()
	entries := []domain.ImageEntry{
		domain.NewLocalEntry(writePNG(t, dir, "001.png", 800, 1200)),
		domain.NewLocalEntry(writePNG(t, dir, "002.png", 1200, 800)),
	}
	out := filepath.Join(dir, "ch1.pdf")
	if err := ChapterPDF("Ch 1", entries, out, PDFOptions{}); err != nil {
		t.Fatalf("ChapterPDF error: %v", err)
	}
	info, err := os.Stat(out)
	if err != nil || info.Size() == 0 {
		t.Fatalf("pdf missing or empty: %v", err)
	}
}
