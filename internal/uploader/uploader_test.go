/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package uploader

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/minio/minio-go/v7"

	"chapterpress/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func writePage(t *testing.T, dir, name string, w, h int) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, pngBytes(t, w, h), 0o644); err != nil {
		t.Fatalf("write page: %v", err)
	}
	return path
}

func TestProcessReaderResizesWideImages(t *testing.T) {
	s := domain.SettingsRecord{Resize: true, ResizeTo: 100, Quality: 80}
	got, err := processReader(bytes.NewReader(pngBytes(t, 200, 50)), s)
	if err != nil {
		t.Fatalf("processReader error: %v", err)
	}
	if got.width != 100 || got.height != 25 {
		t.Fatalf("resized to %dx%d, want 100x25", got.width, got.height)
	}
	img, err := jpeg.Decode(bytes.NewReader(got.data))
	if err != nil {
		t.Fatalf("output not jpeg: %v", err)
	}
	if img.Bounds().Dx() != 100 {
		t.Fatalf("decoded width = %d", img.Bounds().Dx())
	}
}

func TestProcessReaderKeepsNarrowImages(t *testing.T) {
	s := domain.SettingsRecord{Resize: true, ResizeTo: 1600, Quality: 80}
	got, err := processReader(bytes.NewReader(pngBytes(t, 120, 80)), s)
	if err != nil {
		t.Fatalf("processReader error: %v", err)
	}
	if got.width != 120 || got.height != 80 {
		t.Fatalf("size changed to %dx%d", got.width, got.height)
	}
}

func TestProcessReaderResizeDisabled(t *testing.T) {
	s := domain.SettingsRecord{Resize: false, ResizeTo: 100, Quality: 80}
	got, err := processReader(bytes.NewReader(pngBytes(t, 200, 50)), s)
	if err != nil {
		t.Fatalf("processReader error: %v", err)
	}
	if got.width != 200 {
		t.Fatalf("image resized while disabled: width = %d", got.width)
	}
}

type fakeStore struct {
	mu      sync.Mutex
	objects []string
	failOn  string
}

func (f *fakeStore) PutObject(ctx context.Context, bucket, name string, r io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	if f.failOn != "" && filepath.Base(name) == f.failOn {
		return minio.UploadInfo{}, fmt.Errorf("simulated outage")
	}
	if _, err := io.Copy(io.Discard, r); err != nil {
		return minio.UploadInfo{}, err
	}
	f.mu.Lock()
	f.objects = append(f.objects, name)
	f.mu.Unlock()
	return minio.UploadInfo{Bucket: bucket, Key: name, Size: size}, nil
}

func TestUploadChapterKeepsPageOrder(t *testing.T) {
	dir := t.TempDir()
	paths := []string{
		writePage(t, dir, "003.png", 50, 50),
		writePage(t, dir, "001.png", 50, 50),
		writePage(t, dir, "002.png", 50, 50),
	}
	store := &fakeStore{}
	u := &R2Uploader{client: store, bucket: "chapters", publicDomain: "https://img.example.com", workers: 2, logger: testLogger()}

	links, err := u.UploadChapter(context.Background(), paths, domain.DefaultSettings())
	if err != nil {
		t.Fatalf("UploadChapter error: %v", err)
	}
	if len(links) != 3 {
		t.Fatalf("len(links) = %d", len(links))
	}
	for i, link := range links {
		wantFrag := fmt.Sprintf("%03d_", i)
		if !bytes.Contains([]byte(link), []byte(wantFrag)) {
			t.Errorf("links[%d] = %q, want position fragment %q", i, link, wantFrag)
		}
		if link[:len("https://img.example.com/")] != "https://img.example.com/" {
			t.Errorf("links[%d] = %q missing public domain", i, link)
		}
	}
	if len(store.objects) != 3 {
		t.Fatalf("uploaded %d objects", len(store.objects))
	}
}

func TestUploadChapterFirstErrorWins(t *testing.T) {
	dir := t.TempDir()
	paths := []string{
		writePage(t, dir, "001.png", 50, 50),
		writePage(t, dir, "002.png", 50, 50),
	}
	store := &fakeStore{failOn: "001_002.jpg"}
	u := &R2Uploader{client: store, bucket: "chapters", publicDomain: "https://img.example.com", workers: 2, logger: testLogger()}

	if _, err := u.UploadChapter(context.Background(), paths, domain.DefaultSettings()); err == nil {
		t.Fatalf("expected error from failed upload")
	}
}

func TestUploadChapterEmptyInput(t *testing.T) {
	u := &R2Uploader{client: &fakeStore{}, bucket: "chapters", publicDomain: "https://img.example.com", workers: 2, logger: testLogger()}
	links, err := u.UploadChapter(context.Background(), nil, domain.DefaultSettings())
	if err != nil || links != nil {
		t.Fatalf("empty input: links=%v err=%v", links, err)
	}
}
