/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

// This file defines the core data model for chapterpress: the in-progress
// chapter being assembled for publication, plus the records the stores
// persist (settings, titles, publish history).

import (
	"fmt"
	"path"
	"strings"
)

// Origin tags where an image entry's payload lives.
type Origin string

const (
	// OriginLocalFile marks an entry backed by a file on disk that must be
	// uploaded before publishing.
	OriginLocalFile Origin = "file"
	// OriginRemoteURL marks an entry whose payload is already hosted; its
	// OriginalPath is a fully-qualified URL and is reused verbatim.
	OriginRemoteURL Origin = "url"
)

// ImageEntry is one item in a chapter. ID doubles as identity: the source
// path for local entries, the hosted URL for remote ones. Entries are unique
// by ID within a chapter.
type ImageEntry struct {
	ID           string `json:"id"`
	OriginalPath string `json:"originalPath"`
	DisplayName  string `json:"name"`
	Selected     bool   `json:"selected"`
	Origin       Origin `json:"origin"`
}

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
}

// IsImagePath reports whether p has a recognized image extension
// (case-insensitive). Backslash separators are accepted.
func IsImagePath(p string) bool {
	return imageExtensions[strings.ToLower(path.Ext(normalizeSeps(p)))]
}

func normalizeSeps(p string) string { return strings.ReplaceAll(p, "\\", "/") }

// BaseName returns the final segment of a path or URL, used as the display
// name for ingested files.
func BaseName(p string) string {
	norm := normalizeSeps(p)
	if i := strings.LastIndex(norm, "/"); i >= 0 {
		return norm[i+1:]
	}
	return norm
}

// NewLocalEntry builds a selected local-file entry from a filesystem path.
func NewLocalEntry(p string) ImageEntry {
	return ImageEntry{
		ID:           p,
		OriginalPath: p,
		DisplayName:  BaseName(p),
		Selected:     true,
		Origin:       OriginLocalFile,
	}
}

// NewRemoteEntry builds a selected remote-url entry. n is the 1-based
// position used for the placeholder display name.
func NewRemoteEntry(url string, n int) ImageEntry {
	return ImageEntry{
		ID:           url,
		OriginalPath: url,
		DisplayName:  fmt.Sprintf("Image %d", n),
		Selected:     true,
		Origin:       OriginRemoteURL,
	}
}

// SettingsRecord is the flat upload/destination settings object owned by the
// settings store. Quality is a JPEG quality percentage and must be stored as
// an integer.
type SettingsRecord struct {
	Resize           bool   `json:"resize"`
	ResizeTo         int    `json:"resize_to"`
	Quality          int    `json:"quality"`
	LastChannelID    string `json:"last_channel_id"`
	LastChannelHash  string `json:"last_channel_hash"`
	LastChannelTitle string `json:"last_channel_title"`
}

// DefaultSettings returns the settings used before the stored record loads
// and for a fresh install.
func DefaultSettings() SettingsRecord {
	return SettingsRecord{Resize: false, ResizeTo: 1600, Quality: 80, LastChannelID: "0", LastChannelHash: "0"}
}

// TitleFolder is one folder owned by a title group.
type TitleFolder struct {
	ID      int64  `json:"id"`
	TitleID int64  `json:"title_id"`
	Path    string `json:"path"`
}

// TitleVariable is a per-title substitution applied to announcement text;
// every {{Key}} occurrence becomes Value.
type TitleVariable struct {
	ID      int64  `json:"id"`
	TitleID int64  `json:"title_id"`
	Key     string `json:"key"`
	Value   string `json:"value"`
}

// Title is a folder-scoped logical grouping used to auto-associate ingested
// files with a project. Distinct from a chapter's textual title.
type Title struct {
	ID        int64           `json:"id"`
	Name      string          `json:"name"`
	Folders   []TitleFolder   `json:"folders"`
	Variables []TitleVariable `json:"variables"`
}

// Template is a named, reusable announcement text.
type Template struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Content string `json:"content"`
}

// HistoryRecord describes one published article. AccessToken may be empty,
// meaning the publisher's default credential edits the article.
type HistoryRecord struct {
	ID          int64  `json:"id"`
	Date        string `json:"date"`
	Title       string `json:"title"`
	URL         string `json:"url"`
	ImageCount  int    `json:"img_count"`
	AccessToken string `json:"access_token"`
	TitleID     int64  `json:"title_id"`
}

// Slug extracts the final path segment of an article URL, the identity the
// edit operation requires.
func Slug(articleURL string) string { return BaseName(strings.TrimRight(articleURL, "/")) }
