/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package store is the embedded persistence layer: a single SQLite database
// holding the settings record, the title groups with their folders, and the
// publish history.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	applog "chapterpress/internal/log"
	"chapterpress/internal/version"

	// Pure-Go SQLite driver (CGO-free)
	_ "modernc.org/sqlite"
)

const (
	DBFileName = "chapterpress.sqlite"

	// schemaVersion tracks the embedded schema. Bump together with new DDL
	// in ensureSchema.
	schemaVersion = 2
)

// DB wraps the sql handle and offers the repository surface the stores use.
type DB struct {
	sql *sql.DB
}

// DBPath returns the full database path inside dataDir.
func DBPath(dataDir string) string { return filepath.Join(dataDir, DBFileName) }

// Open ensures the database exists under dataDir, enables WAL, bootstraps the
// meta/version tables and the schema, and seeds the default settings row.
func Open(dataDir string) (*DB, error) {
	l := applog.WithOperation(applog.WithComponent("store"), "open").With(slog.String("dir", dataDir))
	if strings.TrimSpace(dataDir) == "" {
		return nil, errors.New("data dir is required")
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?cache=shared&_pragma=busy_timeout(5000)", filepath.ToSlash(DBPath(dataDir)))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON;"); err != nil {
		l.Warn("enable foreign_keys failed", slog.Any("err", err))
	}
	if err := ensureSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := seedDefaults(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	l.Info("store ready", slog.String("path", DBPath(dataDir)))
	return &DB{sql: db}, nil
}

// Close releases the underlying handle.
func (d *DB) Close() error { return d.sql.Close() }

func ensureSchema(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS version (
			id      INTEGER PRIMARY KEY CHECK(id=1),
			schema  INTEGER NOT NULL,
			app     TEXT,
			updated TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS settings (
			id                 INTEGER PRIMARY KEY CHECK(id=1),
			resize             INTEGER NOT NULL DEFAULT 0,
			resize_to          INTEGER NOT NULL DEFAULT 1600,
			quality            INTEGER NOT NULL DEFAULT 80,
			last_channel_id    TEXT NOT NULL DEFAULT '0',
			last_channel_hash  TEXT NOT NULL DEFAULT '0',
			last_channel_title TEXT NOT NULL DEFAULT ''
		);`,
		`CREATE TABLE IF NOT EXISTS titles (
			id   INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL UNIQUE
		);`,
		`CREATE TABLE IF NOT EXISTS title_folders (
			id       INTEGER PRIMARY KEY AUTOINCREMENT,
			title_id INTEGER NOT NULL REFERENCES titles(id) ON DELETE CASCADE,
			path     TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_title_folders_path ON title_folders(path);`,
		`CREATE TABLE IF NOT EXISTS title_variables (
			id       INTEGER PRIMARY KEY AUTOINCREMENT,
			title_id INTEGER NOT NULL REFERENCES titles(id) ON DELETE CASCADE,
			key      TEXT NOT NULL,
			value    TEXT NOT NULL DEFAULT '',
			UNIQUE(title_id, key)
		);`,
		`CREATE TABLE IF NOT EXISTS templates (
			id      INTEGER PRIMARY KEY AUTOINCREMENT,
			name    TEXT NOT NULL UNIQUE,
			content TEXT NOT NULL DEFAULT ''
		);`,
		`CREATE TABLE IF NOT EXISTS history (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			created_at   TEXT NOT NULL,
			title        TEXT NOT NULL,
			url          TEXT NOT NULL,
			img_count    INTEGER NOT NULL DEFAULT 0,
			access_token TEXT NOT NULL DEFAULT '',
			title_id     INTEGER NOT NULL DEFAULT 0
		);`,
		`CREATE INDEX IF NOT EXISTS idx_history_created ON history(created_at DESC);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := db.ExecContext(ctx,
		`INSERT INTO version(id, schema, app, updated) VALUES(1, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET schema=excluded.schema, app=excluded.app, updated=excluded.updated`,
		schemaVersion, version.String(), now)
	if err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	return nil
}

func seedDefaults(ctx context.Context, db *sql.DB) error {
	var n int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM settings`).Scan(&n); err != nil {
		return fmt.Errorf("count settings: %w", err)
	}
	if n == 0 {
		if _, err := db.ExecContext(ctx, `INSERT INTO settings(id) VALUES(1)`); err != nil {
			return fmt.Errorf("seed settings: %w", err)
		}
	}
	return nil
}
