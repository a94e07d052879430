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
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"faceplate/internal/domain"
	"faceplate/internal/storage"
)

func sampleDocument() domain.Document {
	lay := domain.DefaultContainerLayout()
	return domain.Document{
		Name: "Pump <station>",
		Grid: 20,
		Nodes: []domain.CanvasNode{
			{ID: "panel", Name: "Panel", ComponentID: "container", Position: domain.V(20, 20), Size: domain.V(200, 200),
				Children: []string{"gauge"}, Config: domain.Config{Layout: &lay}},
			{ID: "gauge", Name: "Gauge", ComponentID: "gauge", ParentID: "panel", Size: domain.V(80, 40)},
			{ID: "label", Name: "Label", ComponentID: "text", Position: domain.V(300, 40), Size: domain.V(60, 20), ZIndex: 1},
			{ID: "ghost", Name: "Ghost", ComponentID: "text", Position: domain.V(0, 300), Size: domain.V(60, 20), ZIndex: 2, Hidden: true},
		},
	}
}

func TestBuildFrameUsesContentBoundsWhenUnsized(t *testing.T) {
	f := buildFrame(sampleDocument(), Options{}.withDefaults())
	if f.w != 380 || f.h != 240 {
		t.Fatalf("frame size = %gx%g, want 380x240", f.w, f.h)
	}
	if len(f.items) != 3 {
		t.Fatalf("expected 3 visible items, got %d", len(f.items))
	}
	for _, it := range f.items {
		if it.id == "ghost" {
			t.Fatalf("hidden node exported")
		}
		if it.id == "gauge" && (it.rect.X != 36 || it.rect.Y != 36) {
			t.Fatalf("gauge not laid out inside panel: %+v", it.rect)
		}
	}
}

func TestBuildFrameKeepsDocumentSize(t *testing.T) {
	doc := sampleDocument()
	doc.Width, doc.Height = 800, 600
	f := buildFrame(doc, Options{}.withDefaults())
	if f.w != 800 || f.h != 600 {
		t.Fatalf("frame size = %gx%g", f.w, f.h)
	}
}

func TestRenderSVGEscapesAndDashesContainers(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderSVG(&buf, sampleDocument(), Options{Labels: true, Grid: true, Highlight: []string{"label"}}); err != nil {
		t.Fatalf("RenderSVG: %v", err)
	}
	s := buf.String()
	if !strings.HasPrefix(s, "<?xml") || !strings.Contains(s, "<svg") {
		t.Fatalf("not an svg document")
	}
	if !strings.Contains(s, "<title>Pump &lt;station&gt;</title>") {
		t.Fatalf("title not escaped: %s", s)
	}
	if strings.Count(s, "stroke-dasharray") != 1 {
		t.Fatalf("expected exactly one dashed container")
	}
	if !strings.Contains(s, "data-id=\"gauge\" x=\"36\" y=\"36\"") {
		t.Fatalf("gauge rect missing")
	}
	if !strings.Contains(s, "#ff8c00") {
		t.Fatalf("highlight colour missing")
	}
	if strings.Contains(s, "ghost") {
		t.Fatalf("hidden node in svg")
	}
	if !strings.Contains(s, ">Gauge</text>") {
		t.Fatalf("label missing")
	}
}

func TestExportSVGRelativePathGoesToExports(t *testing.T) {
	h, err := storage.InitDocument(t.TempDir(), sampleDocument())
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	path, err := ExportSVG(h, "wire.svg", Options{})
	if err != nil {
		t.Fatalf("ExportSVG: %v", err)
	}
	if path != filepath.Join(h.Root, storage.ExportsDirName, "wire.svg") {
		t.Fatalf("unexpected path %s", path)
	}
	if fi, err := os.Stat(path); err != nil || fi.Size() == 0 {
		t.Fatalf("svg not written: %v", err)
	}
}

func TestRenderPNGDrawsBoxes(t *testing.T) {
	opt := Options{Scale: 2}
	img := RenderPNG(sampleDocument(), opt)
	if b := img.Bounds(); b.Dx() != 760 || b.Dy() != 480 {
		t.Fatalf("png size = %v", b)
	}
	def := opt.withDefaults()
	// Label box top-left corner at (300,40) scaled.
	if got := img.RGBAAt(600, 80); got != def.Stroke {
		t.Fatalf("label border = %v, want %v", got, def.Stroke)
	}
	// Inside the gauge.
	if got := img.RGBAAt(100, 100); got != def.Fill {
		t.Fatalf("gauge fill = %v", got)
	}
	// Background outside all nodes.
	if got := img.RGBAAt(5, 5); got != (color.RGBA{255, 255, 255, 255}) {
		t.Fatalf("background = %v", got)
	}
	// Panel is dashed: first pixel of its top edge on, a pixel in the gap off.
	if got := img.RGBAAt(40, 40); got != def.ContainerStroke {
		t.Fatalf("container dash start = %v", got)
	}
	if got := img.RGBAAt(47, 40); got == def.ContainerStroke {
		t.Fatalf("container edge is not dashed")
	}
}

func TestExportPNGWritesFile(t *testing.T) {
	h, err := storage.InitDocument(t.TempDir(), sampleDocument())
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	out := filepath.Join(t.TempDir(), "nested", "wire.png")
	path, err := ExportPNG(h, out, Options{Labels: true})
	if err != nil {
		t.Fatalf("ExportPNG: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.HasPrefix(b, []byte("\x89PNG")) {
		t.Fatalf("missing png signature")
	}
}

func TestExportPDFWritesFile(t *testing.T) {
	h, err := storage.InitDocument(t.TempDir(), sampleDocument())
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	path, err := ExportPDF(h, "wire.pdf", Options{Labels: true, Grid: true})
	if err != nil {
		t.Fatalf("ExportPDF: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.HasPrefix(b, []byte("%PDF")) {
		t.Fatalf("missing pdf header")
	}
}

func TestExportNilHandle(t *testing.T) {
	if _, err := ExportSVG(nil, "x.svg", Options{}); err == nil {
		t.Fatalf("expected error for nil handle")
	}
}

func TestClipLabel(t *testing.T) {
	if got := clipLabel("Temperature", 28, 7); got != "Temp" {
		t.Fatalf("clipLabel = %q", got)
	}
	if got := clipLabel("ok", 100, 7); got != "ok" {
		t.Fatalf("clipLabel = %q", got)
	}
}
