/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package ui provides the folder/file pickers feeding the editor. The fyne
// dialogs are compiled only under -tags fyne; default builds use the
// path-based provider driven by CLI arguments.
package ui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"chapterpress/internal/domain"
)

// FolderSelection is a folder-picker result. A zero Path means cancelled.
type FolderSelection struct {
	Path   string
	Title  string
	Images []string
}

// DialogProvider abstracts how the user points the app at images.
type DialogProvider interface {
	PickFolder(ctx context.Context) (FolderSelection, error)
	PickFiles(ctx context.Context) ([]string, error)
}

// ScanFolder enumerates the image files directly inside dir, sorted by
// name, and derives the chapter title from the folder name.
func ScanFolder(dir string) (FolderSelection, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return FolderSelection{}, fmt.Errorf("read folder: %w", err)
	}
	var images []string
	for _, e := range entries {
		if e.IsDir() || !domain.IsImagePath(e.Name()) {
			continue
		}
		images = append(images, filepath.Join(dir, e.Name()))
	}
	sort.Strings(images)
	return FolderSelection{
		Path:   dir,
		Title:  filepath.Base(dir),
		Images: images,
	}, nil
}

// PathProvider is the headless DialogProvider: the "picked" folder and files
// come from command-line arguments.
type PathProvider struct {
	Folder string
	Files  []string
}

// PickFolder scans the configured folder. An empty Folder behaves like a
// cancelled dialog.
func (p PathProvider) PickFolder(ctx context.Context) (FolderSelection, error) {
	if p.Folder == "" {
		return FolderSelection{}, nil
	}
	return ScanFolder(p.Folder)
}

// PickFiles returns the configured file list, filtered to images.
func (p PathProvider) PickFiles(ctx context.Context) ([]string, error) {
	var out []string
	for _, f := range p.Files {
		if domain.IsImagePath(f) {
			out = append(out, f)
		}
	}
	return out, nil
}
