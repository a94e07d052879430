/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package export renders wireframes of a faceplate's resolved layout.
package export

import (
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"

	"faceplate/internal/domain"
	"faceplate/internal/layout"
	"faceplate/internal/storage"
	"faceplate/internal/vector"
)

// Options controls wireframe export. Zero values get defaults.
type Options struct {
	// Scale maps canvas px to output units (px for PNG/SVG, pt for PDF).
	Scale float64
	// Labels draws node names in the top-left corner of each box.
	Labels bool
	// Grid draws the document grid behind the nodes.
	Grid bool
	// Margin is added around the content bounds when the document has
	// no explicit size.
	Margin float64

	Stroke          color.RGBA
	ContainerStroke color.RGBA
	Fill            color.RGBA
	GridColor       color.RGBA
	Highlight       []string
	HighlightColor  color.RGBA
}

func (o Options) withDefaults() Options {
	if o.Scale <= 0 {
		o.Scale = 1
	}
	if o.Margin <= 0 {
		o.Margin = domain.DefaultGrid
	}
	if o.Stroke == (color.RGBA{}) {
		o.Stroke = color.RGBA{R: 0x33, G: 0x33, B: 0x33, A: 255}
	}
	if o.ContainerStroke == (color.RGBA{}) {
		o.ContainerStroke = color.RGBA{R: 0x1e, G: 0x6f, B: 0xd9, A: 255}
	}
	if o.Fill == (color.RGBA{}) {
		o.Fill = color.RGBA{R: 0xf4, G: 0xf6, B: 0xf8, A: 255}
	}
	if o.GridColor == (color.RGBA{}) {
		o.GridColor = color.RGBA{R: 0xe3, G: 0xe6, B: 0xea, A: 255}
	}
	if o.HighlightColor == (color.RGBA{}) {
		o.HighlightColor = color.RGBA{R: 0xff, G: 0x8c, B: 0x00, A: 255}
	}
	return o
}

// item is one visible box in paint order.
type item struct {
	id        string
	name      string
	rect      vector.Rect
	container bool
	highlight bool
}

// frame is the resolved drawing content of a document in canvas px.
type frame struct {
	w, h  float64
	grid  float64
	items []item
}

func buildFrame(doc domain.Document, opt Options) frame {
	res := layout.Resolve(doc.Nodes, layout.Edit)
	names := make(map[string]string, len(doc.Nodes))
	for _, n := range doc.Nodes {
		names[n.ID] = n.Name
	}
	hl := make(map[string]bool, len(opt.Highlight))
	for _, id := range opt.Highlight {
		hl[id] = true
	}
	f := frame{w: doc.Width, h: doc.Height, grid: doc.GridSize()}
	for _, b := range res.Visible() {
		f.items = append(f.items, item{id: b.ID, name: names[b.ID], rect: b.Rect, container: b.Container, highlight: hl[b.ID]})
	}
	if f.w <= 0 || f.h <= 0 {
		bw, bh := opt.Margin*2, opt.Margin*2
		if bounds, ok := res.Bounds(); ok {
			m := bounds.Max()
			bw, bh = m.X+opt.Margin, m.Y+opt.Margin
		}
		if f.w <= 0 {
			f.w = bw
		}
		if f.h <= 0 {
			f.h = bh
		}
	}
	return f
}

// resolveOut places relative output paths under the document's exports
// folder and ensures the directory exists.
func resolveOut(h *storage.DocumentHandle, outPath string) (string, error) {
	if h == nil {
		return "", fmt.Errorf("document handle is nil")
	}
	if !filepath.IsAbs(outPath) {
		outPath = filepath.Join(h.Root, storage.ExportsDirName, outPath)
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return "", fmt.Errorf("ensure out dir: %w", err)
	}
	return outPath, nil
}

func px(v, scale float64) int { return int(math.Round(v * scale)) }
