/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package draft

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"chapterpress/internal/domain"
)

func sampleManifest() Manifest {
	return Manifest{
		Title:    "Ch 1",
		EditMode: true,
		Slug:     "Ch-1",
		FinalURL: "https://telegra.ph/Ch-1",
		Images: []domain.ImageEntry{
			domain.NewLocalEntry("/scans/ch1/001.jpg"),
			domain.NewRemoteEntry("https://cdn.example/002.jpg", 2),
		},
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	if err := Save(dir, sampleManifest()); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	if !Exists(dir) {
		t.Fatalf("Exists = false after save")
	}

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if m.SchemaVersion != SchemaVersion || m.Title != "Ch 1" || !m.EditMode || m.Slug != "Ch-1" {
		t.Fatalf("loaded manifest wrong: %+v", m)
	}
	if len(m.Images) != 2 || m.Images[0].Origin != domain.OriginLocalFile || m.Images[1].Origin != domain.OriginRemoteURL {
		t.Fatalf("images wrong: %+v", m.Images)
	}
	if m.SavedAt == "" {
		t.Fatalf("SavedAt not stamped")
	}
}

func TestSaveBacksUpPreviousManifest(t *testing.T) {
	dir := t.TempDir()
	first := sampleManifest()
	if err := Save(dir, first); err != nil {
		t.Fatalf("first Save error: %v", err)
	}
	second := first
	second.Title = "Ch 2"
	if err := Save(dir, second); err != nil {
		t.Fatalf("second Save error: %v", err)
	}

	entries, err := os.ReadDir(filepath.Join(dir, BackupsDirName))
	if err != nil {
		t.Fatalf("read backups dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("backups = %d, want 1", len(entries))
	}
	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if m.Title != "Ch 2" {
		t.Fatalf("current manifest = %q, want Ch 2", m.Title)
	}
}

func TestLoadFallsBackToBackupOnCorruption(t *testing.T) {
	dir := t.TempDir()
	if err := Save(dir, sampleManifest()); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	// Force a backup to exist, then corrupt the live manifest.
	time.Sleep(10 * time.Millisecond)
	if err := Save(dir, sampleManifest()); err != nil {
		t.Fatalf("second Save error: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, ManifestFileName), []byte("{broken"), 0o644); err != nil {
		t.Fatalf("corrupt manifest: %v", err)
	}

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load with backup error: %v", err)
	}
	if m.Title != "Ch 1" {
		t.Fatalf("backup manifest wrong: %+v", m)
	}
}

func TestLoadMissingDraft(t *testing.T) {
	if _, err := Load(t.TempDir()); err == nil {
		t.Fatalf("expected error for missing draft")
	}
}

func TestEmptyImagesSerializeAsArray(t *testing.T) {
	dir := t.TempDir()
	if err := Save(dir, Manifest{Title: "empty"}); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if m.Images == nil {
		t.Fatalf("images serialized as null")
	}
}
