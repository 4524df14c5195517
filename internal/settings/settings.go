/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package settings owns the mutable upload settings record and its
// persistence policy: loaded once at startup, written back with a trailing
// 500ms debounce so slider drags produce a single write.
package settings

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"time"

	"chapterpress/internal/domain"
	applog "chapterpress/internal/log"
)

// DefaultDebounce is the quiescence window before a changed record is
// persisted.
const DefaultDebounce = 500 * time.Millisecond

// Persistence is the storage slice the store needs. *store.DB satisfies it.
type Persistence interface {
	GetSettings(ctx context.Context) (domain.SettingsRecord, error)
	PutSettings(ctx context.Context, s domain.SettingsRecord) error
}

// Store holds the settings record. Mutations before Load succeed in memory
// but are never persisted; this keeps defaults from overwriting the real
// record when the UI fires before the database is ready.
type Store struct {
	db     Persistence
	delay  time.Duration
	logger *slog.Logger

	mu      sync.Mutex
	rec     domain.SettingsRecord
	quality float64 // fractional slider value; rounded only when persisted
	loaded  bool
	timer   *time.Timer
}

// Option adjusts store construction.
type Option func(*Store)

// WithDebounce overrides the persistence quiescence window.
func WithDebounce(d time.Duration) Option {
	return func(s *Store) { s.delay = d }
}

// NewStore builds a store seeded with defaults. Call Load before expecting
// persisted values.
func NewStore(db Persistence, opts ...Option) *Store {
	s := &Store{
		db:     db,
		delay:  DefaultDebounce,
		logger: applog.WithComponent("settings"),
		rec:    domain.DefaultSettings(),
	}
	s.quality = float64(s.rec.Quality)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load reads the persisted record. It runs at most once; later calls are
// no-ops so a second window cannot clobber in-memory edits.
func (s *Store) Load(ctx context.Context) error {
	s.mu.Lock()
	if s.loaded {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	rec, err := s.db.GetSettings(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loaded {
		return nil
	}
	s.rec = rec
	s.quality = float64(rec.Quality)
	s.loaded = true
	return nil
}

// Snapshot returns the current record with quality rounded to an integer
// percentage, suitable for passing to the uploader or persisting.
func (s *Store) Snapshot() domain.SettingsRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() domain.SettingsRecord {
	rec := s.rec
	rec.Quality = int(math.Round(s.quality))
	return rec
}

// Quality returns the raw, possibly fractional slider value.
func (s *Store) Quality() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.quality
}

// SetResize toggles downscaling of wide pages.
func (s *Store) SetResize(on bool) {
	s.mutate(func() { s.rec.Resize = on })
}

// SetResizeTo sets the target page width in pixels.
func (s *Store) SetResizeTo(px int) {
	s.mutate(func() { s.rec.ResizeTo = px })
}

// SetQuality sets the JPEG quality slider value. The fractional value is
// kept in memory; only the persisted write rounds it.
func (s *Store) SetQuality(q float64) {
	s.mutate(func() { s.quality = q })
}

// SetLastChannel remembers the destination channel used for the last
// publish.
func (s *Store) SetLastChannel(id, hash, title string) {
	s.mutate(func() {
		s.rec.LastChannelID = id
		s.rec.LastChannelHash = hash
		s.rec.LastChannelTitle = title
	})
}

// mutate applies fn under the lock and reschedules the debounce timer. Each
// new mutation cancels a still-pending save, so only the trailing edge of a
// burst is written.
func (s *Store) mutate(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn()
	if !s.loaded {
		return
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.delay, s.save)
}

func (s *Store) save() {
	s.mu.Lock()
	rec := s.snapshotLocked()
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.db.PutSettings(ctx, rec); err != nil {
		s.logger.Error("save settings", slog.String("err", err.Error()))
	}
}

// Flush cancels any pending timer and persists immediately. Used at
// shutdown.
func (s *Store) Flush(ctx context.Context) error {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if !s.loaded {
		s.mu.Unlock()
		return nil
	}
	rec := s.snapshotLocked()
	s.mu.Unlock()
	return s.db.PutSettings(ctx, rec)
}
