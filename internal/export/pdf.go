/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"chapterpress/internal/domain"
)

// PDFOptions controls the contact sheet layout. Units are points.
type PDFOptions struct {
	PageWidth  float64 // default A4 portrait
	PageHeight float64
	Margin     float64
}

// ChapterPDF renders the local-origin entries of a chapter as a one-image-
// per-page PDF at outPath. Each page is scaled to fit inside the margins,
// preserving aspect ratio. Uses built-in Helvetica for the title page.
func ChapterPDF(title string, entries []domain.ImageEntry, outPath string, opt PDFOptions) error {
	local := localEntries(entries)
	if len(local) == 0 {
		return fmt.Errorf("no local pages to export")
	}
	if opt.PageWidth <= 0 || opt.PageHeight <= 0 {
		opt.PageWidth, opt.PageHeight = 595.28, 841.89
	}
	if opt.Margin <= 0 {
		opt.Margin = 24
	}

	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr: "pt",
		Size:    gofpdf.SizeType{Wd: opt.PageWidth, Ht: opt.PageHeight},
	})
	pdf.SetTitle(title, false)

	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 24)
	pdf.CellFormat(0, 40, title, "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 12)
	pdf.CellFormat(0, 20, fmt.Sprintf("%d pages", len(local)), "", 1, "C", false, 0, "")

	availW := opt.PageWidth - 2*opt.Margin
	availH := opt.PageHeight - 2*opt.Margin
	for _, e := range local {
		w, h, err := imageDimensions(e.OriginalPath)
		if err != nil {
			return err
		}
		scale := availW / float64(w)
		if float64(h)*scale > availH {
			scale = availH / float64(h)
		}
		drawW := float64(w) * scale
		drawH := float64(h) * scale

		pdf.AddPage()
		pdf.ImageOptions(e.OriginalPath,
			opt.Margin+(availW-drawW)/2, opt.Margin+(availH-drawH)/2,
			drawW, drawH, false,
			gofpdf.ImageOptions{ImageType: imageType(e.OriginalPath), ReadDpi: false}, 0, "")
	}
	if pdf.Err() {
		return fmt.Errorf("render pdf: %v", pdf.Error())
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	if err := pdf.OutputFileAndClose(outPath); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

func imageDimensions(path string) (int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, fmt.Errorf("open page %s: %w", path, err)
	}
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, fmt.Errorf("decode page %s: %w", path, err)
	}
	return cfg.Width, cfg.Height, nil
}

// imageType maps a file extension to gofpdf's image type string.
func imageType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return "PNG"
	case ".gif":
		return "GIF"
	default:
		return "JPG"
	}
}
