/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package drag turns pointer sessions into selection changes, grid
// snapped group moves and marquee selection.
//
// A session starts with PointerDown on the host element. Move and up
// events are then received through a capture subscription that is held
// until the session ends, so the pointer can leave the element mid drag.
package drag

import (
	"log/slog"

	"faceplate/internal/domain"
	"faceplate/internal/events"
	"faceplate/internal/layout"
	"faceplate/internal/selection"
	"faceplate/internal/vector"
)

// State of the controller.
type State int

const (
	Idle State = iota
	BoxSelecting
	NodeDragging
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case BoxSelecting:
		return "box-selecting"
	case NodeDragging:
		return "node-dragging"
	}
	return "unknown"
}

// Nodes gives read access to the node collection.
type Nodes interface {
	Get(id string) (domain.CanvasNode, bool)
}

// Capturer hands out pointer capture for the duration of a session.
type Capturer interface {
	Subscribe(fn func(events.PointerEvent)) events.Subscription
}

// Geometry returns the current resolved layout.
type Geometry interface {
	Resolved() layout.Result
}

// Observer is told about node drags after the controller has emitted its
// own events. The canvas uses it for drop target tracking.
type Observer interface {
	DragMoved(ids []string, p vector.Pt)
	DragEnded(ids []string, p vector.Pt)
	DragCancelled(ids []string)
}

// Deps wires a controller.
type Deps struct {
	Nodes     Nodes
	Selection *selection.Model
	Capture   Capturer
	Geometry  Geometry
	Emitter   events.Emitter
	Observer  Observer
	Log       *slog.Logger
}

// Options tune a controller.
type Options struct {
	// Grid is the snapping cell size in px.
	Grid float64
	// Guides enables alignment guide events while dragging.
	Guides         bool
	GuideThreshold float64
}

type participant struct {
	id     string
	origin domain.Vec2
}

// Controller is the pointer session state machine. It is single threaded:
// all calls must come from the thread that publishes pointer events.
type Controller struct {
	d    Deps
	opts Options

	state   State
	sub     events.Subscription
	start   vector.Pt
	current vector.Pt
	parts   []participant
	guides  bool
}

func New(d Deps, opts Options) *Controller {
	if d.Emitter == nil {
		d.Emitter = events.Discard
	}
	if d.Log == nil {
		d.Log = slog.Default()
	}
	if d.Selection == nil {
		d.Selection = &selection.Model{}
	}
	if opts.Grid <= 0 {
		opts.Grid = domain.DefaultGrid
	}
	return &Controller{d: d, opts: opts}
}

func (c *Controller) State() State { return c.state }

// Marquee returns the normalized marquee while box selecting.
func (c *Controller) Marquee() (vector.Rect, bool) {
	if c.state != BoxSelecting {
		return vector.Rect{}, false
	}
	return vector.NormalizeRect(c.start, c.current), true
}

// Dragging returns the ids of the nodes being moved.
func (c *Controller) Dragging() []string {
	if c.state != NodeDragging {
		return nil
	}
	return c.ids()
}

// PointerDown starts a session. ev.Pos is canvas local and ev.Target is
// the node under the pointer, "" for the background. It returns false when
// a session is already active.
func (c *Controller) PointerDown(ev events.PointerEvent) bool {
	if c.state != Idle {
		c.d.Log.Debug("pointer down ignored, session active", "state", c.state.String())
		return false
	}
	if ev.Target == "" {
		c.beginMarquee(ev.Pos)
		return true
	}
	target, ok := c.d.Nodes.Get(ev.Target)
	if !ok {
		c.beginMarquee(ev.Pos)
		return true
	}

	var changed bool
	switch {
	case ev.Mods.Multi():
		changed = c.d.Selection.Toggle(target.ID)
	case !c.d.Selection.Contains(target.ID):
		changed = c.d.Selection.SelectSingle(target.ID)
	}
	if changed {
		c.emitSelection()
	}
	if target.Locked || !c.d.Selection.Contains(target.ID) {
		return true
	}

	c.parts = c.participants()
	if len(c.parts) == 0 {
		return true
	}
	c.state = NodeDragging
	c.start, c.current = ev.Pos, ev.Pos
	c.sub = c.d.Capture.Subscribe(c.handle)
	c.d.Log.Debug("drag started", "nodes", len(c.parts), "primary", c.parts[0].id)
	return true
}

// Cancel ends an active session without committing it. Dragged nodes are
// put back to their origins through a final nodes-updated event.
func (c *Controller) Cancel() {
	switch c.state {
	case NodeDragging:
		ids := c.ids()
		origins := make([]domain.NodePosition, len(c.parts))
		for i, p := range c.parts {
			origins[i] = domain.NodePosition{ID: p.id, Position: p.origin}
		}
		c.d.Emitter.Emit(events.NodesUpdated{Positions: origins})
		c.clearGuides()
		c.finish()
		if c.d.Observer != nil {
			c.d.Observer.DragCancelled(ids)
		}
	case BoxSelecting:
		r := vector.NormalizeRect(c.start, c.current)
		c.finish()
		c.d.Emitter.Emit(events.MarqueeChanged{Rect: r, Active: false})
	}
}

func (c *Controller) handle(ev events.PointerEvent) {
	switch c.state {
	case NodeDragging:
		if ev.Phase == events.PointerUp {
			c.endDrag(ev.Pos)
		} else if ev.Phase == events.PointerMove {
			c.moveDrag(ev.Pos)
		}
	case BoxSelecting:
		if ev.Phase == events.PointerUp {
			c.endMarquee(ev.Pos)
		} else if ev.Phase == events.PointerMove {
			c.current = ev.Pos
			c.d.Emitter.Emit(events.MarqueeChanged{Rect: vector.NormalizeRect(c.start, c.current), Active: true})
		}
	default:
		// stray event after the session ended
	}
}

func (c *Controller) moveDrag(p vector.Pt) {
	c.current = p
	ps := c.positions(p)
	c.d.Emitter.Emit(events.NodesUpdated{Positions: ps})
	if c.opts.Guides {
		c.emitGuides(ps[0].Position)
	}
	if c.d.Observer != nil {
		c.d.Observer.DragMoved(c.ids(), p)
	}
}

func (c *Controller) endDrag(p vector.Pt) {
	c.current = p
	ps := c.positions(p)
	ids := c.ids()
	c.d.Emitter.Emit(events.NodesMoveEnd{Positions: ps})
	c.clearGuides()
	c.finish()
	c.d.Log.Debug("drag ended", "nodes", len(ids))
	if c.d.Observer != nil {
		c.d.Observer.DragEnded(ids, p)
	}
}

// positions applies the snapped primary shift to every participant.
func (c *Controller) positions(p vector.Pt) []domain.NodePosition {
	delta := p.Sub(c.start)
	primary := c.parts[0].origin.Pt()
	snapped := vector.SnapToGrid(primary.Add(delta), c.opts.Grid)
	shift := snapped.Sub(primary)
	out := make([]domain.NodePosition, len(c.parts))
	for i, part := range c.parts {
		out[i] = domain.NodePosition{ID: part.id, Position: domain.FromPt(part.origin.Pt().Add(shift).ClampNonNegative())}
	}
	return out
}

func (c *Controller) beginMarquee(p vector.Pt) {
	c.state = BoxSelecting
	c.start, c.current = p, p
	c.sub = c.d.Capture.Subscribe(c.handle)
	c.d.Emitter.Emit(events.MarqueeChanged{Rect: vector.NormalizeRect(p, p), Active: true})
}

func (c *Controller) endMarquee(p vector.Pt) {
	c.current = p
	r := vector.NormalizeRect(c.start, c.current)
	var hits []string
	if c.d.Geometry != nil {
		for _, b := range c.d.Geometry.Resolved().Visible() {
			if b.Rect.Intersects(r) {
				hits = append(hits, b.ID)
			}
		}
	}
	c.finish()
	c.d.Emitter.Emit(events.MarqueeChanged{Rect: r, Active: false})
	if len(hits) == 0 {
		return
	}
	if c.d.Selection.SelectMany(hits) {
		c.emitSelection()
	}
	c.d.Emitter.Emit(events.DragSelectComplete{IDs: hits})
}

// participants are the selected nodes that exist, are visible and not
// locked, in selection order.
func (c *Controller) participants() []participant {
	var res layout.Result
	haveGeometry := c.d.Geometry != nil
	if haveGeometry {
		res = c.d.Geometry.Resolved()
	}
	var out []participant
	for _, id := range c.d.Selection.IDs() {
		n, ok := c.d.Nodes.Get(id)
		if !ok || n.Locked || n.Hidden {
			continue
		}
		if haveGeometry {
			if b, ok := res.Box(id); ok && !b.Visible {
				continue
			}
		}
		out = append(out, participant{id: id, origin: n.Position})
	}
	return out
}

func (c *Controller) ids() []string {
	out := make([]string, len(c.parts))
	for i, p := range c.parts {
		out[i] = p.id
	}
	return out
}

func (c *Controller) emitSelection() {
	c.d.Emitter.Emit(events.SelectionChanged{IDs: c.d.Selection.IDs()})
}

func (c *Controller) finish() {
	c.sub.Cancel()
	c.sub = events.Subscription{}
	c.state = Idle
	c.parts = nil
}
