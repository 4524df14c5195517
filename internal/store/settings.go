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

	"chapterpress/internal/domain"
)

// GetSettings returns the single settings row.
func (d *DB) GetSettings(ctx context.Context) (domain.SettingsRecord, error) {
	var s domain.SettingsRecord
	var resize int
	err := d.sql.QueryRowContext(ctx,
		`SELECT resize, resize_to, quality, last_channel_id, last_channel_hash, last_channel_title
		 FROM settings WHERE id=1`).
		Scan(&resize, &s.ResizeTo, &s.Quality, &s.LastChannelID, &s.LastChannelHash, &s.LastChannelTitle)
	if err != nil {
		return domain.SettingsRecord{}, fmt.Errorf("load settings: %w", err)
	}
	s.Resize = resize != 0
	return s, nil
}

// PutSettings overwrites the single settings row.
func (d *DB) PutSettings(ctx context.Context, s domain.SettingsRecord) error {
	resize := 0
	if s.Resize {
		resize = 1
	}
	_, err := d.sql.ExecContext(ctx,
		`UPDATE settings SET resize=?, resize_to=?, quality=?, last_channel_id=?, last_channel_hash=?, last_channel_title=?
		 WHERE id=1`,
		resize, s.ResizeTo, s.Quality, s.LastChannelID, s.LastChannelHash, s.LastChannelTitle)
	if err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}
