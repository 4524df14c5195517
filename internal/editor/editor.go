/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package editor is the chapter reconciliation engine. It owns the ordered,
// mixed-origin image list, the create-vs-edit publish state machine, and the
// dirty snapshot that tells unsaved work apart from the last published or
// loaded state.
package editor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"chapterpress/internal/domain"
	applog "chapterpress/internal/log"
	"chapterpress/internal/navigation"
	"chapterpress/internal/settings"
	"chapterpress/internal/telegraph"
	"chapterpress/internal/titles"
)

// Validation failures the UI presents as blocking notices. They never enter
// the processing state.
var (
	ErrNothingSelected = errors.New("no images selected")
	ErrBlankTitle      = errors.New("chapter title is blank")
	ErrBusy            = errors.New("a publish is already in progress")
)

// Uploader pushes local files and returns one hosted link per input path,
// order-matched. Any per-file failure fails the whole batch.
type Uploader interface {
	UploadChapter(ctx context.Context, paths []string, s domain.SettingsRecord) ([]string, error)
}

// Publisher is the page-hosting service surface the editor drives.
type Publisher interface {
	CreatePage(ctx context.Context, title string, imageURLs []string) (string, error)
	EditPage(ctx context.Context, slug, title string, imageURLs []string, accessToken string) (string, error)
	GetPage(ctx context.Context, articleURL string) (telegraph.Page, error)
}

// HistoryRecorder persists one record per successful create. The editor
// treats recording as best-effort.
type HistoryRecorder interface {
	AddHistory(ctx context.Context, rec domain.HistoryRecord) (int64, error)
}

// Deps are the editor's collaborators, passed explicitly so tests can swap
// fakes in.
type Deps struct {
	Uploader   Uploader
	Publisher  Publisher
	Titles     *titles.Store
	Settings   *settings.Store
	Navigation *navigation.Store
	History    HistoryRecorder // optional
	Mirror     HistoryRecorder // optional secondary sink, best-effort
}

// Store is the editor state. All exported methods are safe for concurrent
// use; Publish and LoadArticle release the lock across collaborator calls so
// the list stays editable while a publish is in flight.
type Store struct {
	deps   Deps
	logger *slog.Logger

	mu          sync.Mutex
	images      []domain.ImageEntry
	title       string
	status      string
	finalURL    string
	editMode    bool
	slug        string
	accessToken string
	historyID   int64
	processing  bool

	savedTitle string
	savedIDs   string // serialized ordered id list at last mark-clean
}

// NewStore builds an editor over the given collaborators. The initial state
// is an empty, clean chapter.
func NewStore(deps Deps) *Store {
	s := &Store{deps: deps, logger: applog.WithComponent("editor")}
	s.savedIDs = serializeIDs(nil)
	return s
}

func serializeIDs(entries []domain.ImageEntry) string {
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.ID)
	}
	b, _ := json.Marshal(ids)
	return string(b)
}

// markCleanLocked advances the dirty snapshot to the current title and id
// order. Called only after clearAll, a successful load, or a successful
// publish.
func (s *Store) markCleanLocked() {
	s.savedTitle = s.title
	s.savedIDs = serializeIDs(s.images)
}

// AddPaths ingests a batch of candidate paths: non-image extensions and
// already-present ids are dropped silently, survivors are appended in input
// order as selected local entries. Returns the number of entries added.
//
// If no title group is selected yet, the first accepted path of the batch is
// run through folder auto-detection; a match becomes the selection. An
// existing selection is never overwritten.
func (s *Store) AddPaths(paths []string) int {
	s.mu.Lock()
	existing := make(map[string]bool, len(s.images))
	for _, e := range s.images {
		existing[e.ID] = true
	}
	added := 0
	firstAccepted := ""
	for _, p := range paths {
		if !domain.IsImagePath(p) || existing[p] {
			continue
		}
		existing[p] = true
		s.images = append(s.images, domain.NewLocalEntry(p))
		if added == 0 {
			firstAccepted = p
		}
		added++
	}
	if added > 0 {
		s.status = fmt.Sprintf("Added %d images", added)
	}
	s.mu.Unlock()

	if added > 0 && s.deps.Titles != nil && s.deps.Titles.SelectedID() == 0 {
		if t, ok := s.deps.Titles.DetectFromPath(firstAccepted); ok {
			s.deps.Titles.Select(t.ID)
			s.logger.Debug("title auto-detected",
				slog.String("path", firstAccepted), slog.String("title", t.Name))
		}
	}
	return added
}

// ApplyFolderSelection handles a folder-picker result. An empty path means
// the picker was cancelled and nothing happens. Outside edit mode the picked
// folder starts a fresh chapter: its title replaces the current one and the
// list is cleared before ingesting. In edit mode the picked title only fills
// an empty title field.
func (s *Store) ApplyFolderSelection(path, title string, images []string) int {
	if path == "" {
		return 0
	}
	s.mu.Lock()
	if !s.editMode {
		s.title = title
		s.images = nil
	} else if strings.TrimSpace(s.title) == "" {
		s.title = title
	}
	s.mu.Unlock()
	return s.AddPaths(images)
}

// RemoveAt deletes the entry at index i, shifting the rest. Out-of-range
// indexes are ignored.
func (s *Store) RemoveAt(i int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.images) {
		return
	}
	s.images = append(s.images[:i], s.images[i+1:]...)
}

// Move reorders the entry at from to position to.
func (s *Store) Move(from, to int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if from < 0 || from >= len(s.images) || to < 0 || to >= len(s.images) || from == to {
		return
	}
	e := s.images[from]
	s.images = append(s.images[:from], s.images[from+1:]...)
	rest := append([]domain.ImageEntry{}, s.images[to:]...)
	s.images = append(append(s.images[:to:to], e), rest...)
}

// SetSelected toggles whether the entry at index i participates in the next
// publish.
func (s *Store) SetSelected(i int, selected bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.images) {
		return
	}
	s.images[i].Selected = selected
}

// SetTitle replaces the chapter title.
func (s *Store) SetTitle(title string) {
	s.mu.Lock()
	s.title = title
	s.mu.Unlock()
}

// ClearAll resets the chapter to an empty, clean state and leaves edit mode.
func (s *Store) ClearAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearLocked()
}

func (s *Store) clearLocked() {
	s.images = nil
	s.title = ""
	s.status = ""
	s.finalURL = ""
	s.editMode = false
	s.slug = ""
	s.accessToken = ""
	s.historyID = 0
	s.markCleanLocked()
}

// Accessors. Images returns a copy; callers mutate through the store only.

func (s *Store) Images() []domain.ImageEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.ImageEntry, len(s.images))
	copy(out, s.images)
	return out
}

func (s *Store) Title() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.title
}

func (s *Store) Status() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *Store) FinalURL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finalURL
}

func (s *Store) EditMode() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.editMode
}

func (s *Store) Slug() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.slug
}

func (s *Store) IsProcessing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.processing
}

// IsDirty reports whether the chapter differs from its last-persisted form.
// Recomputed on every call; the snapshot advances only at the explicit
// mark-clean points.
func (s *Store) IsDirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.title != s.savedTitle || serializeIDs(s.images) != s.savedIDs
}

// LoadArticle replaces the chapter with the hosted content of a previously
// published article and enters edit mode for it. On any failure the chapter
// is left cleared and edit mode off; the operation never partially applies.
func (s *Store) LoadArticle(ctx context.Context, rec domain.HistoryRecord) error {
	s.mu.Lock()
	if s.processing {
		s.mu.Unlock()
		return ErrBusy
	}
	s.clearLocked()
	s.processing = true
	s.status = "Loading article..."
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.processing = false
		s.mu.Unlock()
	}()

	page, err := s.deps.Publisher.GetPage(ctx, rec.URL)
	if err != nil {
		s.mu.Lock()
		s.editMode = false
		s.status = "Failed to load article"
		s.mu.Unlock()
		return fmt.Errorf("load article: %w", err)
	}

	s.mu.Lock()
	s.editMode = true
	s.slug = domain.Slug(rec.URL)
	s.accessToken = rec.AccessToken
	s.historyID = rec.ID
	s.images = make([]domain.ImageEntry, 0, len(page.Images))
	for i, url := range page.Images {
		s.images = append(s.images, domain.NewRemoteEntry(url, i+1))
	}
	s.title = page.Title
	s.finalURL = rec.URL
	s.status = fmt.Sprintf("Loaded %d images", len(page.Images))
	s.markCleanLocked()
	s.mu.Unlock()

	if rec.TitleID != 0 && s.deps.Titles != nil {
		s.deps.Titles.Select(rec.TitleID)
	}
	if s.deps.Navigation != nil {
		s.deps.Navigation.Go(navigation.PageHome, nil)
	}
	return nil
}

// Publish uploads the selected local entries, merges the resulting links
// into display order, and creates or edits the hosted article depending on
// mode. On success the whole image list is replaced by remote entries built
// from the published links and the chapter is marked clean.
//
// A second publish while one is in flight is rejected with ErrBusy.
func (s *Store) Publish(ctx context.Context) (string, error) {
	s.mu.Lock()
	if s.processing {
		s.mu.Unlock()
		return "", ErrBusy
	}
	selected := make([]domain.ImageEntry, 0, len(s.images))
	for _, e := range s.images {
		if e.Selected {
			selected = append(selected, e)
		}
	}
	title := strings.TrimSpace(s.title)
	if len(selected) == 0 {
		s.mu.Unlock()
		return "", ErrNothingSelected
	}
	if title == "" {
		s.mu.Unlock()
		return "", ErrBlankTitle
	}
	s.processing = true
	s.finalURL = ""
	s.status = "Publishing..."
	editMode, slug, token := s.editMode, s.slug, s.accessToken
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.processing = false
		s.mu.Unlock()
	}()

	var snap domain.SettingsRecord
	if s.deps.Settings != nil {
		snap = s.deps.Settings.Snapshot()
	} else {
		snap = domain.DefaultSettings()
	}

	var localPaths []string
	for _, e := range selected {
		if e.Origin == domain.OriginLocalFile {
			localPaths = append(localPaths, e.OriginalPath)
		}
	}

	var links []string
	if len(localPaths) > 0 {
		var err error
		links, err = s.deps.Uploader.UploadChapter(ctx, localPaths, snap)
		if err != nil {
			s.setStatus("Upload failed")
			return "", fmt.Errorf("upload: %w", err)
		}
		if len(links) != len(localPaths) {
			s.setStatus("Upload failed")
			return "", fmt.Errorf("upload: got %d links for %d files", len(links), len(localPaths))
		}
	}

	finalURLs := mergeLinks(selected, links)

	var pageURL string
	var err error
	if editMode {
		pageURL, err = s.deps.Publisher.EditPage(ctx, slug, title, finalURLs, token)
	} else {
		pageURL, err = s.deps.Publisher.CreatePage(ctx, title, finalURLs)
	}
	if err != nil {
		s.setStatus("Publish failed")
		return "", fmt.Errorf("publish: %w", err)
	}

	s.mu.Lock()
	s.finalURL = pageURL
	if !editMode {
		s.editMode = true
		s.slug = domain.Slug(pageURL)
		s.accessToken = "" // default credential edits this article from now on
	}
	s.images = make([]domain.ImageEntry, 0, len(finalURLs))
	for i, url := range finalURLs {
		s.images = append(s.images, domain.NewRemoteEntry(url, i+1))
	}
	s.status = "Published"
	s.markCleanLocked()
	s.mu.Unlock()

	if !editMode {
		s.recordHistory(ctx, title, pageURL, len(finalURLs))
	}
	s.logger.Info("chapter published",
		slog.String("url", pageURL),
		slog.Int("images", len(finalURLs)),
		slog.Bool("edit", editMode))
	return pageURL, nil
}

// mergeLinks walks the selected entries in display order, passing remote
// payloads through and consuming uploaded links strictly in submission
// order. Both sequences were produced by the same traversal, so positions
// line up without any lookup by value.
func mergeLinks(selected []domain.ImageEntry, links []string) []string {
	out := make([]string, 0, len(selected))
	next := 0
	for _, e := range selected {
		if e.Origin == domain.OriginRemoteURL {
			out = append(out, e.OriginalPath)
			continue
		}
		if next < len(links) {
			out = append(out, links[next])
			next++
		}
	}
	return out
}

// recordHistory saves the created article. Failures are logged, never
// surfaced: history is a convenience, not part of the publish contract.
func (s *Store) recordHistory(ctx context.Context, title, url string, count int) {
	rec := domain.HistoryRecord{Title: title, URL: url, ImageCount: count}
	if s.deps.Titles != nil {
		rec.TitleID = s.deps.Titles.SelectedID()
	}
	if s.deps.History != nil {
		id, err := s.deps.History.AddHistory(ctx, rec)
		if err != nil {
			s.logger.Warn("record history", slog.String("err", err.Error()))
		} else {
			s.mu.Lock()
			s.historyID = id
			s.mu.Unlock()
		}
	}
	if s.deps.Mirror != nil {
		if _, err := s.deps.Mirror.AddHistory(ctx, rec); err != nil {
			s.logger.Warn("mirror history", slog.String("err", err.Error()))
		}
	}
}

func (s *Store) setStatus(msg string) {
	s.mu.Lock()
	s.status = msg
	s.mu.Unlock()
}
