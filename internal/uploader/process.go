/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package uploader

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"os"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"chapterpress/internal/domain"
)

// processed is one page ready for upload.
type processed struct {
	data   []byte
	width  int
	height int
}

// processFile decodes a page image, optionally scales it down to the
// configured width, and re-encodes it as JPEG. Pages narrower than the
// target are left at their original size.
func processFile(path string, s domain.SettingsRecord) (processed, error) {
	f, err := os.Open(path)
	if err != nil {
		return processed{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return processReader(f, s)
}

func processReader(r io.Reader, s domain.SettingsRecord) (processed, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return processed{}, fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if s.Resize && s.ResizeTo > 0 && w > s.ResizeTo {
		newH := h * s.ResizeTo / w
		dst := image.NewRGBA(image.Rect(0, 0, s.ResizeTo, newH))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
		img = dst
		w, h = s.ResizeTo, newH
	}

	quality := s.Quality
	if quality <= 0 || quality > 100 {
		quality = 80
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return processed{}, fmt.Errorf("encode jpeg: %w", err)
	}
	return processed{data: buf.Bytes(), width: w, height: h}, nil
}
