/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package titles

import (
	"context"
	"testing"

	"chapterpress/internal/domain"
)

type memTitles struct {
	titles []domain.Title
	nextID int64
}

func (m *memTitles) Titles(ctx context.Context) ([]domain.Title, error) {
	return m.titles, nil
}

func (m *memTitles) CreateTitle(ctx context.Context, name, rootFolder string) (int64, error) {
	m.nextID++
	t := domain.Title{ID: m.nextID, Name: name}
	if rootFolder != "" {
		t.Folders = []domain.TitleFolder{{TitleID: m.nextID, Path: rootFolder}}
	}
	m.titles = append(m.titles, t)
	return m.nextID, nil
}

func (m *memTitles) AddTitleFolder(ctx context.Context, titleID int64, folder string) error {
	for i := range m.titles {
		if m.titles[i].ID == titleID {
			m.titles[i].Folders = append(m.titles[i].Folders, domain.TitleFolder{TitleID: titleID, Path: folder})
		}
	}
	return nil
}

func loadedStore(t *testing.T, db *memTitles) *Store {
	t.Helper()
	s := NewStore(db)
	if err := s.Load(context.Background()); err != nil {
		t.Fatalf("Load error: %v", err)
	}
	return s
}

func TestDetectLongestPrefixWins(t *testing.T) {
	db := &memTitles{}
	_, _ = db.CreateTitle(context.Background(), "A", "/x/y")
	_, _ = db.CreateTitle(context.Background(), "B", "/x/y/z")
	s := loadedStore(t, db)

	got, ok := s.DetectFromPath("/x/y/z/img.jpg")
	if !ok || got.Name != "B" {
		t.Fatalf("detected %+v ok=%v, want B", got, ok)
	}
}

func TestDetectCaseAndSeparatorInsensitive(t *testing.T) {
	db := &memTitles{}
	_, _ = db.CreateTitle(context.Background(), "Scans", `C:\Scans\OnePiece`)
	s := loadedStore(t, db)

	got, ok := s.DetectFromPath("c:/scans/onepiece/ch01/001.jpg")
	if !ok || got.Name != "Scans" {
		t.Fatalf("detected %+v ok=%v, want Scans", got, ok)
	}
}

func TestDetectTieKeepsFirstExamined(t *testing.T) {
	db := &memTitles{}
	_, _ = db.CreateTitle(context.Background(), "First", "/x/y")
	_, _ = db.CreateTitle(context.Background(), "Second", "/X/Y")
	s := loadedStore(t, db)

	got, ok := s.DetectFromPath("/x/y/img.jpg")
	if !ok || got.Name != "First" {
		t.Fatalf("detected %+v ok=%v, want First", got, ok)
	}
}

func TestDetectNoMatch(t *testing.T) {
	db := &memTitles{}
	_, _ = db.CreateTitle(context.Background(), "A", "/x/y")
	s := loadedStore(t, db)

	if _, ok := s.DetectFromPath("/other/place/img.jpg"); ok {
		t.Fatalf("unexpected match")
	}
}

func TestSelectionLifecycle(t *testing.T) {
	db := &memTitles{}
	s := loadedStore(t, db)

	created, err := s.Create(context.Background(), "New", "/scans/new")
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if len(s.Titles()) != 1 {
		t.Fatalf("title not mirrored in memory")
	}

	if _, ok := s.Selected(); ok {
		t.Fatalf("selection set before Select")
	}
	s.Select(created.ID)
	got, ok := s.Selected()
	if !ok || got.ID != created.ID {
		t.Fatalf("Selected = %+v ok=%v", got, ok)
	}
	s.Select(0)
	if _, ok := s.Selected(); ok {
		t.Fatalf("selection not cleared")
	}
}

func TestByID(t *testing.T) {
	db := &memTitles{}
	_, _ = db.CreateTitle(context.Background(), "A", "/x/y")
	s := loadedStore(t, db)

	got, ok := s.ByID(1)
	if !ok || got.Name != "A" {
		t.Fatalf("ByID(1) = %+v ok=%v", got, ok)
	}
	if _, ok := s.ByID(99); ok {
		t.Fatalf("ByID(99) found a title")
	}
}

func TestAddFolderMirrorsInMemory(t *testing.T) {
	db := &memTitles{}
	s := loadedStore(t, db)
	created, err := s.Create(context.Background(), "A", "/x/y")
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if err := s.AddFolder(context.Background(), created.ID, "/x/alt"); err != nil {
		t.Fatalf("AddFolder error: %v", err)
	}

	got, ok := s.DetectFromPath("/x/alt/ch01/p01.png")
	if !ok || got.ID != created.ID {
		t.Fatalf("folder not used for detection: %+v ok=%v", got, ok)
	}
}
