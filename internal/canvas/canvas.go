/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package canvas is the view model of the faceplate editor surface. It
// owns the node collection, selection, drag session, layer panel state
// and viewport, and forwards every change to an events.Emitter.
package canvas

import (
	"log/slog"

	"faceplate/internal/domain"
	"faceplate/internal/drag"
	"faceplate/internal/drop"
	"faceplate/internal/events"
	"faceplate/internal/layers"
	"faceplate/internal/layout"
	applog "faceplate/internal/log"
	"faceplate/internal/scene"
	"faceplate/internal/selection"
	"faceplate/internal/vector"
)

// Options configure a Canvas.
type Options struct {
	Mode           layout.Mode
	Guides         bool
	GuideThreshold float64
	Log            *slog.Logger
}

// Canvas wires the interaction components together. It is single
// threaded; hosts call it from their UI thread.
type Canvas struct {
	nodes   *scene.Collection
	sel     selection.Model
	layers  *layers.Controller
	drag    *drag.Controller
	tracker drop.Tracker
	bus     *events.Bus
	out     events.Emitter
	log     *slog.Logger

	mode     layout.Mode
	view     vector.Affine2D
	resolved layout.Result
	// moveEnd is held back until the drop of the same drag is committed.
	moveEnd *events.NodesMoveEnd
}

// New creates a canvas over nodes. out receives every outbound event and
// may be nil.
func New(nodes *scene.Collection, out events.Emitter, opts Options) *Canvas {
	if out == nil {
		out = events.Discard
	}
	lg := opts.Log
	if lg == nil {
		lg = applog.WithComponent("canvas")
	}
	c := &Canvas{
		nodes:  nodes,
		layers: layers.NewController(lg),
		bus:    &events.Bus{},
		out:    out,
		log:    lg,
		mode:   opts.Mode,
		view:   vector.Identity,
	}
	c.drag = drag.New(drag.Deps{
		Nodes:     nodes,
		Selection: &c.sel,
		Capture:   screenCapture{c},
		Geometry:  c,
		Emitter:   events.Func(c.fromDrag),
		Observer:  dropObserver{c},
		Log:       lg,
	}, drag.Options{Grid: nodes.Grid(), Guides: opts.Guides, GuideThreshold: opts.GuideThreshold})
	c.relayout()
	return c
}

// Bus receives window-level pointer move and up events in screen space.
func (c *Canvas) Bus() *events.Bus { return c.bus }

func (c *Canvas) Collection() *scene.Collection { return c.nodes }
func (c *Canvas) Nodes() []domain.CanvasNode    { return c.nodes.Nodes() }
func (c *Canvas) Selection() []string           { return c.sel.IDs() }
func (c *Canvas) DragState() drag.State         { return c.drag.State() }
func (c *Canvas) DropTarget() string            { return c.tracker.Current() }

// Resolved returns the current layout of all nodes.
func (c *Canvas) Resolved() layout.Result { return c.resolved }

// Marquee returns the active marquee in canvas space.
func (c *Canvas) Marquee() (vector.Rect, bool) { return c.drag.Marquee() }

// SetMode switches between edit and live layout.
func (c *Canvas) SetMode(m layout.Mode) {
	c.mode = m
	c.relayout()
}

// SetViewport sets the host's scroll offset and zoom factor. Screen points
// map to canvas points as (screen + scroll) / zoom.
func (c *Canvas) SetViewport(scrollX, scrollY, zoom float64) {
	if zoom <= 0 {
		zoom = 1
	}
	c.view = vector.Translate(-scrollX, -scrollY).Mul(vector.Scale(zoom, zoom))
}

// ToCanvas converts a host-element point to canvas coordinates.
func (c *Canvas) ToCanvas(screen vector.Pt) vector.Pt {
	inv, ok := c.view.Invert()
	if !ok {
		return screen
	}
	return inv.Apply(screen)
}

// ToScreen converts a canvas point to host-element coordinates.
func (c *Canvas) ToScreen(p vector.Pt) vector.Pt { return c.view.Apply(p) }

// PointerDown is the host element's pointer-down handler. screen is
// relative to the element's top-left corner.
func (c *Canvas) PointerDown(screen vector.Pt, mods events.Modifiers) bool {
	p := c.ToCanvas(screen)
	target, _ := c.resolved.HitTest(p)
	return c.drag.PointerDown(events.PointerEvent{Phase: events.PointerDown, Pos: p, Mods: mods, Target: target})
}

// Cancel aborts an active pointer session.
func (c *Canvas) Cancel() { c.drag.Cancel() }

// Select replaces the selection, e.g. from a layer row click. Unknown and
// invisible ids are ignored.
func (c *Canvas) Select(ids ...string) {
	var keep []string
	for _, id := range ids {
		if b, ok := c.resolved.Box(id); ok && b.Visible {
			keep = append(keep, id)
		}
	}
	var changed bool
	switch len(keep) {
	case 0:
		return
	case 1:
		changed = c.sel.SelectSingle(keep[0])
	default:
		changed = c.sel.SelectMany(keep)
	}
	if changed {
		c.emitSelection()
	}
}

// ClearSelection empties the selection.
func (c *Canvas) ClearSelection() {
	if c.sel.Clear() {
		c.emitSelection()
	}
}

// fromDrag writes drag results back into the collection before
// forwarding them.
func (c *Canvas) fromDrag(e events.Event) {
	switch ev := e.(type) {
	case events.NodesUpdated:
		c.nodes.ApplyPositions(ev.Positions)
		c.relayout()
	case events.NodesMoveEnd:
		c.nodes.ApplyPositions(ev.Positions)
		c.relayout()
		c.moveEnd = &ev
		return
	}
	c.out.Emit(e)
}

// releaseMoveEnd emits the held move-end with the positions the nodes
// ended up at after the drop.
func (c *Canvas) releaseMoveEnd() {
	ev := c.moveEnd
	if ev == nil {
		return
	}
	c.moveEnd = nil
	ps := make([]domain.NodePosition, 0, len(ev.Positions))
	for _, p := range ev.Positions {
		if n, ok := c.nodes.Get(p.ID); ok {
			p.Position = n.Position
		}
		ps = append(ps, p)
	}
	c.out.Emit(events.NodesMoveEnd{Positions: ps})
}

func (c *Canvas) relayout() {
	c.resolved = layout.Resolve(c.nodes.Nodes(), c.mode)
}

// pruneSelection drops ids that no longer exist or are not visible.
func (c *Canvas) pruneSelection() {
	if c.sel.Retain(func(id string) bool {
		b, ok := c.resolved.Box(id)
		return ok && b.Visible
	}) {
		c.emitSelection()
	}
}

func (c *Canvas) emitSelection() {
	c.out.Emit(events.SelectionChanged{IDs: c.sel.IDs()})
}

// screenCapture subscribes drag sessions to the bus and converts
// positions to canvas space.
type screenCapture struct{ c *Canvas }

func (s screenCapture) Subscribe(fn func(events.PointerEvent)) events.Subscription {
	return s.c.bus.Subscribe(func(ev events.PointerEvent) {
		ev.Pos = s.c.ToCanvas(ev.Pos)
		fn(ev)
	})
}
