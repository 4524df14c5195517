/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package store

import (
	"context"
	"fmt"
	"time"

	"chapterpress/internal/domain"
)

const historyDateFormat = "2006-01-02 15:04:05"

// AddHistory records a published article and returns its id. Date is stamped
// here; rec.Date is ignored on input.
func (d *DB) AddHistory(ctx context.Context, rec domain.HistoryRecord) (int64, error) {
	res, err := d.sql.ExecContext(ctx,
		`INSERT INTO history(created_at, title, url, img_count, access_token, title_id) VALUES(?, ?, ?, ?, ?, ?)`,
		time.Now().Format(historyDateFormat), rec.Title, rec.URL, rec.ImageCount, rec.AccessToken, rec.TitleID)
	if err != nil {
		return 0, fmt.Errorf("insert history: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("history id: %w", err)
	}
	return id, nil
}

// RecentHistory returns records newest-first.
func (d *DB) RecentHistory(ctx context.Context, limit, offset int) ([]domain.HistoryRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := d.sql.QueryContext(ctx,
		`SELECT id, created_at, title, url, img_count, access_token, title_id
		 FROM history ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	var out []domain.HistoryRecord
	for rows.Next() {
		var r domain.HistoryRecord
		if err := rows.Scan(&r.ID, &r.Date, &r.Title, &r.URL, &r.ImageCount, &r.AccessToken, &r.TitleID); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	return out, nil
}

// HistoryByID returns one record.
func (d *DB) HistoryByID(ctx context.Context, id int64) (domain.HistoryRecord, error) {
	var r domain.HistoryRecord
	err := d.sql.QueryRowContext(ctx,
		`SELECT id, created_at, title, url, img_count, access_token, title_id FROM history WHERE id=?`, id).
		Scan(&r.ID, &r.Date, &r.Title, &r.URL, &r.ImageCount, &r.AccessToken, &r.TitleID)
	if err != nil {
		return domain.HistoryRecord{}, fmt.Errorf("load history %d: %w", id, err)
	}
	return r, nil
}

// ClearHistory removes all records.
func (d *DB) ClearHistory(ctx context.Context) error {
	if _, err := d.sql.ExecContext(ctx, `DELETE FROM history`); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	return nil
}
