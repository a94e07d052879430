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
	"image/color"

	"github.com/jung-kurt/gofpdf"

	"faceplate/internal/storage"
)

// ExportPDF writes a single-page vector wireframe. One canvas px maps to
// Scale pt. Built-in Helvetica keeps text vector without embedding.
func ExportPDF(h *storage.DocumentHandle, outPath string, opt Options) (string, error) {
	path, err := resolveOut(h, outPath)
	if err != nil {
		return "", err
	}
	opt = opt.withDefaults()
	f := buildFrame(h.Document, opt)
	s := opt.Scale
	size := gofpdf.SizeType{Wd: f.w * s, Ht: f.h * s}

	pdf := gofpdf.NewCustom(&gofpdf.InitType{UnitStr: "pt", Size: size})
	pdf.SetTitle(h.Document.Name, true)
	pdf.SetAuthor(h.Document.Metadata.Author, true)
	pdf.SetCreator("Faceplate Builder", false)
	pdf.AddPageFormat("", size)
	pdf.SetFont("Helvetica", "", 8)

	if opt.Grid && f.grid > 0 {
		setDrawColor(pdf, opt.GridColor)
		pdf.SetLineWidth(0.25)
		for x := f.grid; x < f.w; x += f.grid {
			pdf.Line(x*s, 0, x*s, f.h*s)
		}
		for y := f.grid; y < f.h; y += f.grid {
			pdf.Line(0, y*s, f.w*s, y*s)
		}
	}

	pdf.SetLineWidth(1)
	setFillColor(pdf, opt.Fill)
	for _, it := range f.items {
		r := it.rect
		stroke := opt.Stroke
		if it.container {
			stroke = opt.ContainerStroke
			pdf.SetDashPattern([]float64{6, 4}, 0)
		} else {
			pdf.SetDashPattern(nil, 0)
		}
		if it.highlight {
			stroke = opt.HighlightColor
		}
		setDrawColor(pdf, stroke)
		pdf.Rect(r.X*s, r.Y*s, r.W*s, r.H*s, "FD")
		if opt.Labels && it.name != "" {
			pdf.SetTextColor(0, 0, 0)
			pdf.Text(r.X*s+3, r.Y*s+10, it.name)
		}
	}
	pdf.SetDashPattern(nil, 0)

	if err := pdf.OutputFileAndClose(path); err != nil {
		return "", fmt.Errorf("write pdf: %w", err)
	}
	return path, nil
}

func setDrawColor(pdf *gofpdf.Fpdf, c color.RGBA) {
	pdf.SetDrawColor(int(c.R), int(c.G), int(c.B))
}

func setFillColor(pdf *gofpdf.Fpdf, c color.RGBA) {
	pdf.SetFillColor(int(c.R), int(c.G), int(c.B))
}
