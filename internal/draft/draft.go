/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package draft persists the working chapter as a JSON manifest so a crash
// or restart does not lose an assembled-but-unpublished chapter. Writes are
// transactional (temp file + rename) with a timestamped backup of the
// previous manifest.
package draft

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"chapterpress/internal/domain"
)

const (
	ManifestFileName = "chapter.json"
	BackupsDirName   = "backups"

	// SchemaVersion is bumped whenever Manifest changes shape.
	SchemaVersion = 1
)

// Manifest is the on-disk form of a working chapter.
type Manifest struct {
	SchemaVersion int                 `json:"schemaVersion"`
	Title         string              `json:"title"`
	EditMode      bool                `json:"editMode"`
	Slug          string              `json:"slug,omitempty"`
	AccessToken   string              `json:"accessToken,omitempty"`
	FinalURL      string              `json:"finalUrl,omitempty"`
	Images        []domain.ImageEntry `json:"images"`
	SavedAt       string              `json:"savedAt"`
}

// Save writes the manifest into dir with transactional semantics. An
// existing manifest is copied to backups/ with a timestamp before being
// replaced.
func Save(dir string, m Manifest) error {
	if dir == "" {
		return errors.New("draft dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create draft dir: %w", err)
	}
	m.SchemaVersion = SchemaVersion
	m.SavedAt = time.Now().UTC().Format(time.RFC3339)
	if m.Images == nil {
		m.Images = []domain.ImageEntry{}
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal draft: %w", err)
	}
	data = append(data, '\n')

	target := filepath.Join(dir, ManifestFileName)
	if _, statErr := os.Stat(target); statErr == nil {
		stamp := time.Now().Format("20060102-150405")
		bpath := filepath.Join(dir, BackupsDirName, fmt.Sprintf("%s.%s.bak", ManifestFileName, stamp))
		if cerr := copyFile(target, bpath); cerr != nil {
			return fmt.Errorf("backup draft: %w", cerr)
		}
	}

	temp := filepath.Join(dir, fmt.Sprintf(".%s.tmp-%d-%d", ManifestFileName, os.Getpid(), rand.Int()))
	if werr := writeFileSync(temp, data); werr != nil {
		return fmt.Errorf("write temp draft: %w", werr)
	}
	if _, err := os.Stat(target); err == nil {
		_ = os.Remove(target) // Windows cannot rename over an existing file
	}
	if rerr := os.Rename(temp, target); rerr != nil {
		_ = os.Remove(temp)
		return fmt.Errorf("replace draft: %w", rerr)
	}
	return nil
}

// Load reads the manifest from dir. A missing or unparsable manifest falls
// back to the most recent backup before giving up.
func Load(dir string) (Manifest, error) {
	target := filepath.Join(dir, ManifestFileName)
	b, err := os.ReadFile(target)
	if err != nil {
		m, berr := loadLatestBackup(dir)
		if berr != nil {
			return Manifest{}, fmt.Errorf("open draft: %w; backup attempt: %v", err, berr)
		}
		return m, nil
	}
	var m Manifest
	if uerr := json.Unmarshal(b, &m); uerr != nil {
		bm, berr := loadLatestBackup(dir)
		if berr != nil {
			return Manifest{}, fmt.Errorf("parse draft: %w; backup attempt: %v", uerr, berr)
		}
		return bm, nil
	}
	return m, nil
}

// Exists reports whether dir holds a draft manifest.
func Exists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ManifestFileName))
	return err == nil
}

func loadLatestBackup(dir string) (Manifest, error) {
	bdir := filepath.Join(dir, BackupsDirName)
	entries, err := os.ReadDir(bdir)
	if err != nil {
		return Manifest{}, err
	}
	latest := ""
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		// Timestamped names sort lexicographically by age.
		if e.Name() > latest {
			latest = e.Name()
		}
	}
	if latest == "" {
		return Manifest{}, errors.New("no backups found")
	}
	b, err := os.ReadFile(filepath.Join(bdir, latest))
	if err != nil {
		return Manifest{}, err
	}
	var m Manifest
	if err := json.Unmarshal(b, &m); err != nil {
		return Manifest{}, fmt.Errorf("parse backup %s: %w", latest, err)
	}
	return m, nil
}

func writeFileSync(path string, data []byte) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := f.Write(data); err != nil {
		return err
	}
	return f.Sync()
}

func copyFile(src, dst string) (err error) {
	sf, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := sf.Close(); err == nil {
			err = cerr
		}
	}()
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	df, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := df.Close(); err == nil {
			err = cerr
		}
	}()
	_, err = io.Copy(df, sf)
	return err
}
