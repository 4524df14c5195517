/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package export packages a chapter's local pages for offline reading or
// proofing: a CBZ archive, or a PDF contact sheet.
package export

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"chapterpress/internal/domain"
)

// comicInfo is the minimal ComicInfo.xml manifest comic readers expect.
type comicInfo struct {
	XMLName   xml.Name `xml:"ComicInfo"`
	Title     string   `xml:"Title"`
	PageCount int      `xml:"PageCount"`
}

// ChapterCBZ writes the local-origin entries of a chapter into a CBZ (ZIP)
// archive at outPath, in display order, with a ComicInfo.xml manifest.
// Remote entries are skipped: their payloads are not on disk.
func ChapterCBZ(title string, entries []domain.ImageEntry, outPath string) error {
	local := localEntries(entries)
	if len(local) == 0 {
		return fmt.Errorf("no local pages to export")
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create cbz: %w", err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	for i, e := range local {
		name := fmt.Sprintf("%03d%s", i+1, filepath.Ext(e.OriginalPath))
		w, err := zw.Create(name)
		if err != nil {
			_ = zw.Close()
			return fmt.Errorf("add page %s: %w", name, err)
		}
		src, err := os.Open(e.OriginalPath)
		if err != nil {
			_ = zw.Close()
			return fmt.Errorf("open page %s: %w", e.OriginalPath, err)
		}
		_, err = io.Copy(w, src)
		src.Close()
		if err != nil {
			_ = zw.Close()
			return fmt.Errorf("write page %s: %w", name, err)
		}
	}

	info, err := xml.MarshalIndent(comicInfo{Title: title, PageCount: len(local)}, "", "  ")
	if err != nil {
		_ = zw.Close()
		return fmt.Errorf("marshal ComicInfo: %w", err)
	}
	w, err := zw.Create("ComicInfo.xml")
	if err != nil {
		_ = zw.Close()
		return fmt.Errorf("add ComicInfo: %w", err)
	}
	if _, err := w.Write(append([]byte(xml.Header), info...)); err != nil {
		_ = zw.Close()
		return fmt.Errorf("write ComicInfo: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("finalize cbz: %w", err)
	}
	return f.Sync()
}

func localEntries(entries []domain.ImageEntry) []domain.ImageEntry {
	var out []domain.ImageEntry
	for _, e := range entries {
		if e.Origin == domain.OriginLocalFile {
			out = append(out, e)
		}
	}
	return out
}
