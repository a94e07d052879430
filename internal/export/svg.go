/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"bytes"
	"fmt"
	"image/color"
	"io"
	"os"

	"faceplate/internal/domain"
	"faceplate/internal/storage"
)

// RenderSVG writes the wireframe of doc as SVG. The viewBox is in canvas
// px; width and height attributes apply Scale.
func RenderSVG(w io.Writer, doc domain.Document, opt Options) error {
	opt = opt.withDefaults()
	f := buildFrame(doc, opt)

	var buf bytes.Buffer
	var werr error
	wf := func(format string, args ...any) {
		if werr != nil {
			return
		}
		_, werr = fmt.Fprintf(&buf, format, args...)
	}

	wf("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n")
	wf("<svg xmlns=\"http://www.w3.org/2000/svg\" version=\"1.1\" width=\"%dpx\" height=\"%dpx\" viewBox=\"0 0 %g %g\">\n",
		px(f.w, opt.Scale), px(f.h, opt.Scale), f.w, f.h)
	wf("  <title>%s</title>\n", escText(doc.Name))
	wf("  <rect x=\"0\" y=\"0\" width=\"%g\" height=\"%g\" fill=\"#ffffff\"/>\n", f.w, f.h)

	if opt.Grid && f.grid > 0 {
		gc := svgColor(opt.GridColor)
		wf("  <g stroke=\"%s\" stroke-width=\"0.5\">\n", gc)
		for x := f.grid; x < f.w; x += f.grid {
			wf("    <line x1=\"%g\" y1=\"0\" x2=\"%g\" y2=\"%g\"/>\n", x, x, f.h)
		}
		for y := f.grid; y < f.h; y += f.grid {
			wf("    <line x1=\"0\" y1=\"%g\" x2=\"%g\" y2=\"%g\"/>\n", y, f.w, y)
		}
		wf("  </g>\n")
	}

	fill := svgColor(opt.Fill)
	for _, it := range f.items {
		r := it.rect
		stroke, dash := svgColor(opt.Stroke), ""
		if it.container {
			stroke, dash = svgColor(opt.ContainerStroke), " stroke-dasharray=\"6 4\""
		}
		if it.highlight {
			stroke = svgColor(opt.HighlightColor)
		}
		wf("  <rect data-id=\"%s\" x=\"%g\" y=\"%g\" width=\"%g\" height=\"%g\" fill=\"%s\" stroke=\"%s\" stroke-width=\"1\"%s/>\n",
			escAttr(it.id), r.X, r.Y, r.W, r.H, fill, stroke, dash)
		if opt.Labels && it.name != "" {
			wf("  <text x=\"%g\" y=\"%g\" font-family=\"Helvetica, Arial, sans-serif\" font-size=\"10\" fill=\"#000\">%s</text>\n",
				r.X+3, r.Y+11, escText(it.name))
		}
	}
	wf("</svg>\n")
	if werr != nil {
		return fmt.Errorf("build svg: %w", werr)
	}
	_, err := w.Write(buf.Bytes())
	return err
}

// ExportSVG writes the handle's document to outPath. Relative paths land
// in the document's exports folder.
func ExportSVG(h *storage.DocumentHandle, outPath string, opt Options) (string, error) {
	path, err := resolveOut(h, outPath)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := RenderSVG(&buf, h.Document, opt); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("write svg: %w", err)
	}
	return path, nil
}

func svgColor(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

func escAttr(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch ch {
		case '"':
			out = append(out, "&quot;"...)
		case '&':
			out = append(out, "&amp;"...)
		case '<':
			out = append(out, "&lt;"...)
		case '\n':
			out = append(out, ' ')
		case '\r':
		default:
			out = append(out, ch)
		}
	}
	return string(out)
}

func escText(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch ch {
		case '&':
			out = append(out, "&amp;"...)
		case '<':
			out = append(out, "&lt;"...)
		case '>':
			out = append(out, "&gt;"...)
		default:
			out = append(out, ch)
		}
	}
	return string(out)
}
