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
	"strings"

	"chapterpress/internal/domain"
)

// CreateTitle inserts a title and, when rootFolder is non-blank, its first
// owned folder, in one transaction. Returns the new title id.
func (d *DB) CreateTitle(ctx context.Context, name, rootFolder string) (int64, error) {
	if strings.TrimSpace(name) == "" {
		return 0, fmt.Errorf("title name is required")
	}
	tx, err := d.sql.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `INSERT INTO titles(name) VALUES(?)`, name)
	if err != nil {
		return 0, fmt.Errorf("insert title: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("title id: %w", err)
	}
	if strings.TrimSpace(rootFolder) != "" {
		if _, err := tx.ExecContext(ctx, `INSERT INTO title_folders(title_id, path) VALUES(?, ?)`, id, rootFolder); err != nil {
			return 0, fmt.Errorf("insert title folder: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return id, nil
}

// AddTitleFolder attaches another folder to an existing title.
func (d *DB) AddTitleFolder(ctx context.Context, titleID int64, folder string) error {
	if strings.TrimSpace(folder) == "" {
		return fmt.Errorf("folder path is required")
	}
	if _, err := d.sql.ExecContext(ctx, `INSERT INTO title_folders(title_id, path) VALUES(?, ?)`, titleID, folder); err != nil {
		return fmt.Errorf("insert title folder: %w", err)
	}
	return nil
}

// SetTitleVariable upserts one announcement variable on a title.
func (d *DB) SetTitleVariable(ctx context.Context, titleID int64, key, value string) error {
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("variable key is required")
	}
	_, err := d.sql.ExecContext(ctx,
		`INSERT INTO title_variables(title_id, key, value) VALUES(?, ?, ?)
		 ON CONFLICT(title_id, key) DO UPDATE SET value=excluded.value`,
		titleID, key, value)
	if err != nil {
		return fmt.Errorf("set title variable: %w", err)
	}
	return nil
}

// Titles returns all titles with their folders and variables, in insertion
// order.
func (d *DB) Titles(ctx context.Context) ([]domain.Title, error) {
	rows, err := d.sql.QueryContext(ctx, `SELECT id, name FROM titles ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list titles: %w", err)
	}
	defer rows.Close()

	var titles []domain.Title
	index := map[int64]int{}
	for rows.Next() {
		var t domain.Title
		if err := rows.Scan(&t.ID, &t.Name); err != nil {
			return nil, fmt.Errorf("scan title: %w", err)
		}
		index[t.ID] = len(titles)
		titles = append(titles, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list titles: %w", err)
	}

	frows, err := d.sql.QueryContext(ctx, `SELECT id, title_id, path FROM title_folders ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list title folders: %w", err)
	}
	defer frows.Close()
	for frows.Next() {
		var f domain.TitleFolder
		if err := frows.Scan(&f.ID, &f.TitleID, &f.Path); err != nil {
			return nil, fmt.Errorf("scan title folder: %w", err)
		}
		if i, ok := index[f.TitleID]; ok {
			titles[i].Folders = append(titles[i].Folders, f)
		}
	}
	if err := frows.Err(); err != nil {
		return nil, fmt.Errorf("list title folders: %w", err)
	}

	vrows, err := d.sql.QueryContext(ctx, `SELECT id, title_id, key, value FROM title_variables ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list title variables: %w", err)
	}
	defer vrows.Close()
	for vrows.Next() {
		var v domain.TitleVariable
		if err := vrows.Scan(&v.ID, &v.TitleID, &v.Key, &v.Value); err != nil {
			return nil, fmt.Errorf("scan title variable: %w", err)
		}
		if i, ok := index[v.TitleID]; ok {
			titles[i].Variables = append(titles[i].Variables, v)
		}
	}
	if err := vrows.Err(); err != nil {
		return nil, fmt.Errorf("list title variables: %w", err)
	}
	return titles, nil
}
