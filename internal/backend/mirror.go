/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package backend mirrors publish history into a shared Postgres database so
// a team can see each other's published chapters. It sits behind the
// backend.enable config flag and is strictly best-effort: the local sqlite
// store remains the source of truth.
package backend

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"chapterpress/internal/domain"
)

const schemaDDL = `
CREATE TABLE IF NOT EXISTS publish_history (
	id           BIGSERIAL PRIMARY KEY,
	published_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	title        TEXT NOT NULL,
	url          TEXT NOT NULL,
	img_count    INTEGER NOT NULL DEFAULT 0,
	title_group  BIGINT NOT NULL DEFAULT 0
)`

// Mirror is a remote history sink backed by Postgres.
type Mirror struct {
	db *sql.DB
}

// Connect opens the mirror database and ensures its schema. The DSN comes
// from config (backend.dsn).
func Connect(ctx context.Context, dsn string) (*Mirror, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open mirror db: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping mirror db: %w", err)
	}
	if _, err := db.ExecContext(ctx, schemaDDL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure mirror schema: %w", err)
	}
	return &Mirror{db: db}, nil
}

// AddHistory mirrors one published article. Access tokens stay local; they
// are deliberately not part of the shared schema.
func (m *Mirror) AddHistory(ctx context.Context, rec domain.HistoryRecord) (int64, error) {
	var id int64
	err := m.db.QueryRowContext(ctx,
		`INSERT INTO publish_history(title, url, img_count, title_group) VALUES($1, $2, $3, $4) RETURNING id`,
		rec.Title, rec.URL, rec.ImageCount, rec.TitleID).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("mirror history: %w", err)
	}
	return id, nil
}

// Recent returns the newest mirrored records, for the shared history view.
func (m *Mirror) Recent(ctx context.Context, limit int) ([]domain.HistoryRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := m.db.QueryContext(ctx,
		`SELECT id, to_char(published_at, 'YYYY-MM-DD HH24:MI:SS'), title, url, img_count, title_group
		 FROM publish_history ORDER BY published_at DESC, id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list mirror history: %w", err)
	}
	defer rows.Close()

	var out []domain.HistoryRecord
	for rows.Next() {
		var r domain.HistoryRecord
		if err := rows.Scan(&r.ID, &r.Date, &r.Title, &r.URL, &r.ImageCount, &r.TitleID); err != nil {
			return nil, fmt.Errorf("scan mirror history: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list mirror history: %w", err)
	}
	return out, nil
}

// Close releases the database handle.
func (m *Mirror) Close() error { return m.db.Close() }
