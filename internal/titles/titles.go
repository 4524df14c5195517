/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package titles manages the folder-scoped title groups used to associate
// ingested chapters with a series, including the longest-prefix folder
// matcher behind title auto-detection.
package titles

import (
	"context"
	"strings"
	"sync"

	"chapterpress/internal/domain"
)

// Persistence is the storage slice the store needs. *store.DB satisfies it.
type Persistence interface {
	Titles(ctx context.Context) ([]domain.Title, error)
	CreateTitle(ctx context.Context, name, rootFolder string) (int64, error)
	AddTitleFolder(ctx context.Context, titleID int64, folder string) error
}

// Store holds the title list and the active selection.
type Store struct {
	db Persistence

	mu       sync.Mutex
	titles   []domain.Title
	selected int64 // 0 means none
}

// NewStore builds an empty store; call Load to populate it.
func NewStore(db Persistence) *Store {
	return &Store{db: db}
}

// Load refreshes the title list from storage.
func (s *Store) Load(ctx context.Context) error {
	titles, err := s.db.Titles(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.titles = titles
	s.mu.Unlock()
	return nil
}

// Titles returns the loaded list.
func (s *Store) Titles() []domain.Title {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Title, len(s.titles))
	copy(out, s.titles)
	return out
}

// Create persists a new title (with an optional first folder) and adds it to
// the in-memory list.
func (s *Store) Create(ctx context.Context, name, rootFolder string) (domain.Title, error) {
	id, err := s.db.CreateTitle(ctx, name, rootFolder)
	if err != nil {
		return domain.Title{}, err
	}
	t := domain.Title{ID: id, Name: name}
	if strings.TrimSpace(rootFolder) != "" {
		t.Folders = []domain.TitleFolder{{TitleID: id, Path: rootFolder}}
	}
	s.mu.Lock()
	s.titles = append(s.titles, t)
	s.mu.Unlock()
	return t, nil
}

// AddFolder attaches another folder to a title and mirrors it in memory.
func (s *Store) AddFolder(ctx context.Context, titleID int64, folder string) error {
	if err := s.db.AddTitleFolder(ctx, titleID, folder); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.titles {
		if s.titles[i].ID == titleID {
			s.titles[i].Folders = append(s.titles[i].Folders, domain.TitleFolder{TitleID: titleID, Path: folder})
			break
		}
	}
	return nil
}

// ByID returns the loaded title with the given id.
func (s *Store) ByID(id int64) (domain.Title, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.titles {
		if t.ID == id {
			return t, true
		}
	}
	return domain.Title{}, false
}

// Select sets the active title. Zero clears the selection.
func (s *Store) Select(id int64) {
	s.mu.Lock()
	s.selected = id
	s.mu.Unlock()
}

// SelectedID returns the active title id, 0 when none.
func (s *Store) SelectedID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected
}

// Selected returns the active title, if any.
func (s *Store) Selected() (domain.Title, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selected == 0 {
		return domain.Title{}, false
	}
	for _, t := range s.titles {
		if t.ID == s.selected {
			return t, true
		}
	}
	return domain.Title{}, false
}

// DetectFromPath finds the title owning the folder that is the longest
// prefix of path. Paths and folders are compared case-insensitively with
// separators normalized, so Windows and Unix spellings match. Ties on
// length keep the first title examined.
func (s *Store) DetectFromPath(path string) (domain.Title, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	target := normalizePath(path)
	best := -1
	bestLen := 0
	for i, t := range s.titles {
		for _, f := range t.Folders {
			folder := normalizePath(f.Path)
			if folder == "" {
				continue
			}
			if strings.HasPrefix(target, folder) && len(folder) > bestLen {
				best = i
				bestLen = len(folder)
			}
		}
	}
	if best < 0 {
		return domain.Title{}, false
	}
	return s.titles[best], true
}

func normalizePath(p string) string {
	return strings.ToLower(strings.ReplaceAll(p, "\\", "/"))
}
