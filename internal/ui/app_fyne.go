//go:build fyne && cgo

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package ui

import (
	"context"
	"encoding/json"
	"fmt"
	"image/color"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	fcanvas "fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"faceplate/internal/config"
	"faceplate/internal/crash"
	"faceplate/internal/events"
	"faceplate/internal/export"
	"faceplate/internal/layers"
	applog "faceplate/internal/log"
	"faceplate/internal/session"
	"faceplate/internal/storage"
	"faceplate/internal/telemetry"
	"faceplate/internal/vector"
	"faceplate/internal/version"
)

// Run opens the desktop builder, optionally with the document at dir.
func Run(dir string) error {
	cfg, _, err := config.Load()
	l := applog.WithComponent("ui")
	if err != nil {
		l.Warn("config load", slog.Any("err", err))
	}
	tcfg := telemetry.FromEnv().WithOptIn(cfg.General.TelemetryOptIn)
	tel := telemetry.New(tcfg)
	defer tel.Close()
	l.Info("starting UI", slog.String("version", version.String()))

	var sess *session.Session
	defer crash.RecoverWith(func() *storage.DocumentHandle {
		if sess == nil {
			return nil
		}
		return sess.CrashHandle()
	})

	fyneApp := app.NewWithID("faceplate.builder")
	w := fyneApp.NewWindow("Faceplate Builder")
	prefs := fyneApp.Preferences()
	winW := max(prefs.IntWithFallback("window.width", 1200), 800)
	winH := max(prefs.IntWithFallback("window.height", 800), 600)
	w.Resize(fyne.NewSize(float32(winW), float32(winH)))

	status := widget.NewLabel("Ready")
	fc := NewFaceplateCanvas()
	fc.SetZoom(float32(cfg.Canvas.Zoom))

	var rows []layers.Row
	layerList := widget.NewList(
		func() int { return len(rows) },
		func() fyne.CanvasObject { return widget.NewLabel("") },
		func(i widget.ListItemID, o fyne.CanvasObject) {
			if int(i) < len(rows) {
				o.(*widget.Label).SetText(rowLabel(rows[i]))
			}
		},
	)
	refreshLayers := func() {
		if sess == nil {
			rows = nil
		} else {
			rows = sess.Canvas.Rows()
		}
		layerList.Refresh()
	}
	layerList.OnSelected = func(id widget.ListItemID) {
		if sess == nil || int(id) >= len(rows) {
			return
		}
		sess.Canvas.Select(rows[id].ID)
		fc.Refresh()
	}
	fc.OnChange = func(e events.Event) {
		if sess == nil {
			return
		}
		switch {
		case events.Edits(e):
			refreshLayers()
			status.SetText(fmt.Sprintf("%s (unsaved)", sess.Handle.Document.Name))
		case e.Kind() == events.KindSelectionChanged:
			status.SetText(fmt.Sprintf("%d selected", len(sess.Canvas.Selection())))
		}
	}

	openDir := func(path string) {
		s, err := session.Open(path, session.Options{
			Config:           cfg,
			Telemetry:        tel,
			Observer:         fc,
			PersistSnapshots: true,
			Log:              l,
		})
		if err != nil {
			dialog.ShowError(err, w)
			return
		}
		sess = s
		fc.Attach(s)
		refreshLayers()
		addRecentDocument(prefs, path)
		w.SetTitle("Faceplate Builder: " + s.Handle.Document.Name)
		status.SetText("Opened " + s.Handle.Root)
	}

	withSelection := func(fn func(id string) error) func() {
		return func() {
			if sess == nil {
				return
			}
			sel := sess.Canvas.Selection()
			if len(sel) == 0 {
				return
			}
			if err := fn(sel[0]); err != nil {
				dialog.ShowError(err, w)
			}
			refreshLayers()
			fc.Refresh()
		}
	}
	save := func() {
		if sess == nil {
			return
		}
		if err := sess.Save(context.Background()); err != nil {
			dialog.ShowError(err, w)
			return
		}
		status.SetText("Saved.")
	}
	undoFn := func() {
		if sess != nil && sess.UndoEdit() {
			refreshLayers()
			fc.Refresh()
		}
	}
	redoFn := func() {
		if sess != nil && sess.RedoEdit() {
			refreshLayers()
			fc.Refresh()
		}
	}

	toolbar := widget.NewToolbar(
		widget.NewToolbarAction(theme.FolderOpenIcon(), func() {
			dialog.ShowFolderOpen(func(u fyne.ListableURI, err error) {
				if err != nil || u == nil {
					return
				}
				openDir(u.Path())
			}, w)
		}),
		widget.NewToolbarAction(theme.DocumentSaveIcon(), save),
		widget.NewToolbarSeparator(),
		widget.NewToolbarAction(theme.ContentUndoIcon(), undoFn),
		widget.NewToolbarAction(theme.ContentRedoIcon(), redoFn),
		widget.NewToolbarSeparator(),
		widget.NewToolbarAction(theme.MoveUpIcon(), withSelection(func(id string) error { return sess.Canvas.BringToFront(id) })),
		widget.NewToolbarAction(theme.MoveDownIcon(), withSelection(func(id string) error { return sess.Canvas.SendToBack(id) })),
		widget.NewToolbarAction(theme.VisibilityOffIcon(), withSelection(func(id string) error { return sess.Canvas.ToggleVisibility(id) })),
		widget.NewToolbarAction(theme.CheckButtonCheckedIcon(), withSelection(func(id string) error {
			_, err := sess.Canvas.ToggleLocked(id)
			return err
		})),
		widget.NewToolbarAction(theme.DeleteIcon(), withSelection(func(string) error {
			sess.Canvas.Remove(sess.Canvas.Selection()...)
			return nil
		})),
		widget.NewToolbarSeparator(),
		widget.NewToolbarAction(theme.DownloadIcon(), func() {
			if sess == nil {
				return
			}
			path, err := export.ExportSVG(sess.Handle, "wireframe.svg", export.Options{Labels: true, Highlight: sess.Canvas.Selection()})
			if err != nil {
				dialog.ShowError(err, w)
				return
			}
			status.SetText("Exported " + path)
		}),
	)

	expandBtn := widget.NewButton("Expand/Collapse", func() {
		if sess == nil {
			return
		}
		if sel := sess.Canvas.Selection(); len(sel) > 0 {
			sess.Canvas.ToggleExpanded(sel[0])
			refreshLayers()
		}
	})
	left := container.NewBorder(container.NewVBox(widget.NewLabel("Layers"), widget.NewSeparator()), expandBtn, nil, nil, layerList)
	split := container.NewHSplit(left, fc)
	split.SetOffset(0.22)
	w.SetContent(container.NewBorder(toolbar, status, nil, nil, split))

	w.Canvas().AddShortcut(&desktop.CustomShortcut{KeyName: fyne.KeyS, Modifier: fyne.KeyModifierShortcutDefault}, func(fyne.Shortcut) { save() })
	w.Canvas().AddShortcut(&desktop.CustomShortcut{KeyName: fyne.KeyZ, Modifier: fyne.KeyModifierShortcutDefault}, func(fyne.Shortcut) { undoFn() })
	w.Canvas().AddShortcut(&desktop.CustomShortcut{KeyName: fyne.KeyY, Modifier: fyne.KeyModifierShortcutDefault}, func(fyne.Shortcut) { redoFn() })
	w.Canvas().SetOnTypedKey(func(ev *fyne.KeyEvent) {
		if ev.Name == fyne.KeyEscape && sess != nil {
			sess.Canvas.Cancel()
			fc.Refresh()
		}
	})

	w.SetCloseIntercept(func() {
		sz := w.Canvas().Size()
		prefs.SetInt("window.width", int(sz.Width))
		prefs.SetInt("window.height", int(sz.Height))
		if sess == nil || !sess.Dirty() {
			w.Close()
			return
		}
		dialog.ShowConfirm("Unsaved changes", "Save before closing?", func(ok bool) {
			if ok {
				save()
			}
			w.Close()
		}, w)
	})

	if strings.TrimSpace(dir) != "" {
		openDir(dir)
	} else if rec := loadRecentDocuments(prefs); len(rec) > 0 {
		status.SetText("Recent: " + rec[0])
	}

	w.ShowAndRun()
	return nil
}

func rowLabel(r layers.Row) string {
	var b strings.Builder
	b.WriteString(strings.Repeat("   ", r.Depth))
	switch {
	case r.Container && r.Expanded:
		b.WriteString("▾ ")
	case r.Container:
		b.WriteString("▸ ")
	}
	name := r.Name
	if name == "" {
		name = r.ID
	}
	b.WriteString(name)
	if r.Hidden {
		b.WriteString(" (hidden)")
	}
	if r.Locked {
		b.WriteString(" (locked)")
	}
	return b.String()
}

// FaceplateCanvas hosts a session canvas: it forwards mouse input as
// pointer events and draws the resolved boxes, selection, marquee, drop
// target and guides.
type FaceplateCanvas struct {
	widget.BaseWidget

	sess    *session.Session
	zoom    float32
	scrollX float32
	scrollY float32
	guides  []vector.GuideLine
	pressed bool

	// OnChange is called for every canvas event after the widget updated.
	OnChange func(events.Event)
}

func NewFaceplateCanvas() *FaceplateCanvas {
	fc := &FaceplateCanvas{zoom: 1}
	fc.ExtendBaseWidget(fc)
	return fc
}

// Attach switches the widget to a new session.
func (fc *FaceplateCanvas) Attach(s *session.Session) {
	fc.sess = s
	fc.guides = nil
	fc.syncViewport()
	fc.Refresh()
}

// SetZoom clamps z to [0.1, 4].
func (fc *FaceplateCanvas) SetZoom(z float32) {
	if z <= 0 {
		z = 1
	}
	fc.zoom = min(max(z, 0.1), 4)
	fc.syncViewport()
}

func (fc *FaceplateCanvas) syncViewport() {
	if fc.sess != nil {
		fc.sess.Canvas.SetViewport(float64(fc.scrollX), float64(fc.scrollY), float64(fc.zoom))
	}
}

// Emit receives canvas events as the session observer.
func (fc *FaceplateCanvas) Emit(e events.Event) {
	switch ev := e.(type) {
	case events.GuidesChanged:
		fc.guides = ev.Guides
	case events.NodesMoveEnd:
		fc.guides = nil
	}
	if fc.OnChange != nil {
		fc.OnChange(e)
	}
	fc.Refresh()
}

func toPt(p fyne.Position) vector.Pt { return vector.Pt{X: float64(p.X), Y: float64(p.Y)} }

func mods(m fyne.KeyModifier) events.Modifiers {
	return events.Modifiers{
		Shift: m&fyne.KeyModifierShift != 0,
		Ctrl:  m&fyne.KeyModifierControl != 0,
		Meta:  m&fyne.KeyModifierSuper != 0,
	}
}

func (fc *FaceplateCanvas) MouseDown(e *desktop.MouseEvent) {
	if fc.sess == nil || e.Button != desktop.MouseButtonPrimary {
		return
	}
	fc.pressed = fc.sess.Canvas.PointerDown(toPt(e.Position), mods(e.Modifier))
	fc.Refresh()
}

func (fc *FaceplateCanvas) MouseUp(e *desktop.MouseEvent) {
	if fc.sess == nil || !fc.pressed {
		return
	}
	fc.pressed = false
	fc.sess.Canvas.Bus().Publish(events.PointerEvent{Phase: events.PointerUp, Pos: toPt(e.Position), Mods: mods(e.Modifier)})
	fc.Refresh()
}

func (fc *FaceplateCanvas) MouseIn(*desktop.MouseEvent) {}
func (fc *FaceplateCanvas) MouseOut()                   {}

func (fc *FaceplateCanvas) MouseMoved(e *desktop.MouseEvent) {
	fc.move(e.Position)
}

// Dragged is delivered instead of MouseMoved while a button is held.
func (fc *FaceplateCanvas) Dragged(e *fyne.DragEvent) { fc.move(e.Position) }
func (fc *FaceplateCanvas) DragEnd()                  {}

func (fc *FaceplateCanvas) move(p fyne.Position) {
	if fc.sess == nil || !fc.pressed {
		return
	}
	fc.sess.Canvas.Bus().Publish(events.PointerEvent{Phase: events.PointerMove, Pos: toPt(p)})
	fc.Refresh()
}

// Scrolled zooms with the wheel.
func (fc *FaceplateCanvas) Scrolled(e *fyne.ScrollEvent) {
	fc.SetZoom(fc.zoom + e.Scrolled.DY*0.05)
	fc.Refresh()
}

func (fc *FaceplateCanvas) MinSize() fyne.Size { return fyne.NewSize(400, 300) }

func (fc *FaceplateCanvas) CreateRenderer() fyne.WidgetRenderer {
	bg := fcanvas.NewRectangle(color.RGBA{R: 245, G: 246, B: 248, A: 255})
	return &faceplateRenderer{fc: fc, bg: bg}
}

var (
	colNodeFill      = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	colNodeStroke    = color.RGBA{R: 60, G: 60, B: 60, A: 255}
	colContainer     = color.RGBA{R: 30, G: 111, B: 217, A: 255}
	colSelected      = color.RGBA{R: 0, G: 170, B: 255, A: 255}
	colDropTarget    = color.RGBA{R: 40, G: 180, B: 90, A: 255}
	colMarqueeFill   = color.RGBA{R: 0, G: 170, B: 255, A: 40}
	colGuide         = color.RGBA{R: 255, G: 0, B: 140, A: 255}
	colLabel         = color.RGBA{R: 20, G: 20, B: 20, A: 255}
	colTransparent   = color.RGBA{}
	selectionPadding = float32(2)
)

type faceplateRenderer struct {
	fc      *FaceplateCanvas
	bg      *fcanvas.Rectangle
	objects []fyne.CanvasObject
}

func (r *faceplateRenderer) Destroy()                     {}
func (r *faceplateRenderer) Objects() []fyne.CanvasObject { return r.objects }
func (r *faceplateRenderer) MinSize() fyne.Size           { return r.fc.MinSize() }
func (r *faceplateRenderer) Refresh()                     { r.Layout(r.fc.Size()); fcanvas.Refresh(r.fc) }

func (r *faceplateRenderer) screenRect(rc vector.Rect) (fyne.Position, fyne.Size) {
	c := r.fc.sess.Canvas
	p0 := c.ToScreen(rc.Min())
	p1 := c.ToScreen(rc.Max())
	return fyne.NewPos(float32(p0.X), float32(p0.Y)), fyne.NewSize(float32(p1.X-p0.X), float32(p1.Y-p0.Y))
}

// Layout rebuilds the drawable objects from the session state.
func (r *faceplateRenderer) Layout(size fyne.Size) {
	r.bg.Resize(size)
	r.bg.Move(fyne.NewPos(0, 0))
	r.objects = append(r.objects[:0], r.bg)
	if r.fc.sess == nil {
		return
	}
	c := r.fc.sess.Canvas
	res := c.Resolved()
	names := map[string]string{}
	for _, n := range c.Nodes() {
		names[n.ID] = n.Name
	}
	for _, b := range res.Visible() {
		pos, sz := r.screenRect(b.Rect)
		rect := fcanvas.NewRectangle(colNodeFill)
		rect.StrokeWidth = 1
		rect.StrokeColor = colNodeStroke
		if b.Container {
			rect.StrokeColor = colContainer
		}
		rect.Move(pos)
		rect.Resize(sz)
		r.objects = append(r.objects, rect)
		if name := names[b.ID]; name != "" {
			txt := fcanvas.NewText(name, colLabel)
			txt.TextSize = 10
			txt.Move(pos.Add(fyne.NewPos(3, 2)))
			r.objects = append(r.objects, txt)
		}
	}
	if target := c.DropTarget(); target != "" {
		if b, ok := res.Box(target); ok {
			r.outline(b.Rect, colDropTarget, 2)
		}
	}
	for _, id := range c.Selection() {
		if b, ok := res.Box(id); ok && b.Visible {
			r.outline(b.Rect, colSelected, 2)
		}
	}
	if m, ok := c.Marquee(); ok {
		pos, sz := r.screenRect(m)
		rect := fcanvas.NewRectangle(colMarqueeFill)
		rect.StrokeColor = colSelected
		rect.StrokeWidth = 1
		rect.Move(pos)
		rect.Resize(sz)
		r.objects = append(r.objects, rect)
	}
	for _, g := range r.fc.guides {
		ln := fcanvas.NewLine(colGuide)
		ln.StrokeWidth = 1
		p1, p2 := c.ToScreen(g.From), c.ToScreen(g.To)
		ln.Position1 = fyne.NewPos(float32(p1.X), float32(p1.Y))
		ln.Position2 = fyne.NewPos(float32(p2.X), float32(p2.Y))
		r.objects = append(r.objects, ln)
	}
}

func (r *faceplateRenderer) outline(rc vector.Rect, col color.RGBA, width float32) {
	pos, sz := r.screenRect(rc)
	o := fcanvas.NewRectangle(colTransparent)
	o.StrokeColor = col
	o.StrokeWidth = width
	o.Move(pos.Subtract(fyne.NewPos(selectionPadding, selectionPadding)))
	o.Resize(sz.Add(fyne.NewSize(2*selectionPadding, 2*selectionPadding)))
	r.objects = append(r.objects, o)
}

const recentPrefsKey = "recent.documents"
const recentMax = 10

func loadRecentDocuments(p fyne.Preferences) []string {
	raw := p.StringWithFallback(recentPrefsKey, "")
	var items []string
	if strings.TrimSpace(raw) != "" {
		_ = json.Unmarshal([]byte(raw), &items)
	}
	out := make([]string, 0, len(items))
	for _, s := range items {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, err := os.Stat(filepath.Join(s, storage.ManifestFileName)); err == nil {
			out = append(out, s)
		}
	}
	return out
}

func addRecentDocument(p fyne.Preferences, path string) {
	if strings.TrimSpace(path) == "" {
		return
	}
	abs, _ := filepath.Abs(path)
	out := []string{abs}
	for _, s := range loadRecentDocuments(p) {
		if !strings.EqualFold(s, abs) {
			out = append(out, s)
		}
	}
	if len(out) > recentMax {
		out = out[:recentMax]
	}
	b, _ := json.Marshal(out)
	p.SetString(recentPrefsKey, string(b))
}
