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
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"chapterpress/internal/domain"
)

// ErrTemplateNotFound is returned by TemplateByName for an unknown name.
var ErrTemplateNotFound = errors.New("template not found")

// SaveTemplate upserts a named announcement template and returns its id.
func (d *DB) SaveTemplate(ctx context.Context, name, content string) (int64, error) {
	if strings.TrimSpace(name) == "" {
		return 0, fmt.Errorf("template name is required")
	}
	_, err := d.sql.ExecContext(ctx,
		`INSERT INTO templates(name, content) VALUES(?, ?)
		 ON CONFLICT(name) DO UPDATE SET content=excluded.content`,
		name, content)
	if err != nil {
		return 0, fmt.Errorf("save template: %w", err)
	}
	var id int64
	if err := d.sql.QueryRowContext(ctx, `SELECT id FROM templates WHERE name = ?`, name).Scan(&id); err != nil {
		return 0, fmt.Errorf("template id: %w", err)
	}
	return id, nil
}

// Templates returns all templates in insertion order.
func (d *DB) Templates(ctx context.Context) ([]domain.Template, error) {
	rows, err := d.sql.QueryContext(ctx, `SELECT id, name, content FROM templates ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	defer rows.Close()

	var out []domain.Template
	for rows.Next() {
		var t domain.Template
		if err := rows.Scan(&t.ID, &t.Name, &t.Content); err != nil {
			return nil, fmt.Errorf("scan template: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	return out, nil
}

// TemplateByName looks a template up by its unique name.
func (d *DB) TemplateByName(ctx context.Context, name string) (domain.Template, error) {
	var t domain.Template
	err := d.sql.QueryRowContext(ctx,
		`SELECT id, name, content FROM templates WHERE name = ?`, name).
		Scan(&t.ID, &t.Name, &t.Content)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Template{}, ErrTemplateNotFound
	}
	if err != nil {
		return domain.Template{}, fmt.Errorf("template by name: %w", err)
	}
	return t, nil
}
