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
	"image/color"
	"image/draw"
	"image/png"
	"os"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"faceplate/internal/domain"
	"faceplate/internal/storage"
)

// RenderPNG rasterizes the wireframe of doc. Labels use the basicfont face.
func RenderPNG(doc domain.Document, opt Options) *image.RGBA {
	opt = opt.withDefaults()
	f := buildFrame(doc, opt)
	s := opt.Scale
	pixW, pixH := max(px(f.w, s), 1), max(px(f.h, s), 1)

	img := image.NewRGBA(image.Rect(0, 0, pixW, pixH))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.RGBA{255, 255, 255, 255}}, image.Point{}, draw.Src)

	if opt.Grid && f.grid > 0 {
		for x := f.grid; x < f.w; x += f.grid {
			vline(img, px(x, s), 0, pixH-1, opt.GridColor)
		}
		for y := f.grid; y < f.h; y += f.grid {
			hline(img, 0, pixW-1, px(y, s), opt.GridColor)
		}
	}

	face := basicfont.Face7x13
	for _, it := range f.items {
		r := it.rect
		x0, y0 := px(r.X, s), px(r.Y, s)
		x1, y1 := x0+px(r.W, s)-1, y0+px(r.H, s)-1
		fillRect(img, x0, y0, x1, y1, opt.Fill)
		stroke := opt.Stroke
		if it.container {
			stroke = opt.ContainerStroke
		}
		if it.highlight {
			stroke = opt.HighlightColor
		}
		if it.container {
			dashedRect(img, x0, y0, x1, y1, stroke, 6, 4)
		} else {
			strokeRect(img, x0, y0, x1, y1, stroke)
		}
		if opt.Labels && it.name != "" {
			d := font.Drawer{
				Dst:  img,
				Src:  image.NewUniform(color.RGBA{A: 255}),
				Face: face,
				Dot:  fixed.P(x0+3, y0+face.Ascent+2),
			}
			d.DrawString(clipLabel(it.name, x1-x0-6, face.Advance))
		}
	}
	return img
}

// ExportPNG writes the handle's document as PNG to outPath.
func ExportPNG(h *storage.DocumentHandle, outPath string, opt Options) (string, error) {
	path, err := resolveOut(h, outPath)
	if err != nil {
		return "", err
	}
	img := RenderPNG(h.Document, opt)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create png: %w", err)
	}
	if err := png.Encode(f, img); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("encode png: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close png: %w", err)
	}
	return path, nil
}

// clipLabel cuts s to the characters that fit into width px.
func clipLabel(s string, width, advance int) string {
	if advance <= 0 || width <= 0 {
		return ""
	}
	n := width / advance
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func hline(img *image.RGBA, x0, x1, y int, col color.RGBA) {
	for x := x0; x <= x1; x++ {
		img.SetRGBA(x, y, col)
	}
}

func vline(img *image.RGBA, x, y0, y1 int, col color.RGBA) {
	for y := y0; y <= y1; y++ {
		img.SetRGBA(x, y, col)
	}
}

// strokeRect draws a 1px axis-aligned rectangle border inclusive of endpoints.
func strokeRect(img *image.RGBA, x0, y0, x1, y1 int, col color.RGBA) {
	hline(img, x0, x1, y0, col)
	hline(img, x0, x1, y1, col)
	vline(img, x0, y0, y1, col)
	vline(img, x1, y0, y1, col)
}

// dashedRect is strokeRect with on/off dashes along each edge.
func dashedRect(img *image.RGBA, x0, y0, x1, y1 int, col color.RGBA, on, off int) {
	period := on + off
	for x := x0; x <= x1; x++ {
		if (x-x0)%period < on {
			img.SetRGBA(x, y0, col)
			img.SetRGBA(x, y1, col)
		}
	}
	for y := y0; y <= y1; y++ {
		if (y-y0)%period < on {
			img.SetRGBA(x0, y, col)
			img.SetRGBA(x1, y, col)
		}
	}
}

func fillRect(img *image.RGBA, x0, y0, x1, y1 int, col color.RGBA) {
	if x1 < x0 {
		x0, x1 = x1, x0
	}
	if y1 < y0 {
		y0, y1 = y1, y0
	}
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			img.SetRGBA(x, y, col)
		}
	}
}
